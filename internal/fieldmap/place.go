package fieldmap

import (
	"github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/MufengNiu/Paradisec/internal/entity"
	"github.com/MufengNiu/Paradisec/internal/platform/paradisec"
)

// PlaceFields maps one feature onto a place row. ID, DatasetID and UID are
// left for the caller.
func PlaceFields(props paradisec.Properties, geom *paradisec.Geometry) entity.Place {
	p := entity.Place{
		Title:        props.Name,
		RecordTypeID: entity.RecordTypeOther,
		Description:  props.Description,
		Source:       props.URL,
		ExternalURL:  props.URL,
		ExtendedData: ExtendedData(props),
		DatasourceID: entity.DatasourceGHAP,
	}

	if pt, ok := Point(geom); ok {
		lat, lon := pt.Lat(), pt.Lon()
		p.Latitude = &lat
		p.Longitude = &lon
	}

	date := NormalizeTimestamp(props.UDateStart.Float())
	p.DateStart = date
	p.DateEnd = date
	return p
}

// Point extracts a [lon, lat] pair. The geometry is decoded as GeoJSON,
// with a missing type read as "Point"; anything that does not decode to an
// orb.Point of exactly two coordinates yields ok == false.
func Point(geom *paradisec.Geometry) (orb.Point, bool) {
	if geom == nil || !isPair(geom.Coordinates) {
		return orb.Point{}, false
	}
	typ := geom.Type
	if typ == "" {
		typ = "Point"
	}
	raw, err := json.Marshal(geometryDoc{Type: typ, Coordinates: geom.Coordinates})
	if err != nil {
		return orb.Point{}, false
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return orb.Point{}, false
	}
	switch v := g.Geometry().(type) {
	case orb.Point:
		return v, true
	default:
		return orb.Point{}, false
	}
}

type geometryDoc struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// isPair reports whether raw is a JSON array of exactly two elements.
// orb decodes a point into a fixed pair and drops or zero-fills the rest.
func isPair(raw json.RawMessage) bool {
	var vals []json.RawMessage
	if err := json.Unmarshal(raw, &vals); err != nil {
		return false
	}
	return len(vals) == 2
}
