// Package fieldmap turns catalog documents into destination rows. Nothing
// here touches the network or the database.
package fieldmap

import (
	"github.com/MufengNiu/Paradisec/internal/entity"
	"github.com/MufengNiu/Paradisec/internal/platform/paradisec"
)

const (
	unknownName        = "Unknown"
	defaultDescription = " "
)

// DatasetFields maps collection metadata onto a dataset row. The root
// collection is mapped with both include flags off so it never carries a
// license or rights statement.
func DatasetFields(meta paradisec.Metadata, overrideName *string, includeLicense, includeRights bool) entity.Dataset {
	name := unknownName
	switch {
	case overrideName != nil:
		name = *overrideName
	case meta.Name != nil:
		name = *meta.Name
	}

	description := defaultDescription
	if meta.Description != nil {
		description = *meta.Description
	}

	d := entity.Dataset{
		Name:         name,
		Description:  description,
		Public:       true,
		Publisher:    meta.Publisher,
		Contact:      meta.Contact,
		SourceURL:    meta.URL,
		RecordTypeID: entity.RecordTypeOther,
		Linkback:     meta.URL,
	}
	if includeLicense {
		d.License = meta.License
	}
	if includeRights {
		d.Rights = meta.Rights
	}
	return d
}
