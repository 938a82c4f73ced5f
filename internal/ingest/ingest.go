// Package ingest synchronizes the PARADISEC catalog into the destination
// store. Every command fetches the whole feed first and then writes inside
// a single transaction; the mapping side files change only after commit.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/MufengNiu/Paradisec/internal/mapping"
	"github.com/MufengNiu/Paradisec/internal/platform/paradisec"
)

const (
	DefaultRootName = "PARADISEC collections"
	// RootRemoteID keys the root dataset when the feed omits metadata.id.
	RootRemoteID = "PARADISEC"
)

var ErrLedgerExists = errors.New("mapping files already exist")

type Mode string

const (
	ModeImport Mode = "import"
	ModeUpdate Mode = "update"
	ModeUndo   Mode = "undo"
)

type Config struct {
	OwnerID   int64
	RootName  string
	UIDPrefix string
}

type FeedClient interface {
	FetchRoot(ctx context.Context) (*paradisec.Collection, error)
	FetchCollection(ctx context.Context, id string) (*paradisec.Collection, error)
}

type MappingStore interface {
	Exists() (bool, error)
	Load() (*mapping.Ledger, error)
	Save(l *mapping.Ledger) error
	Remove() error
}

type ImportOptions struct {
	// Force overwrites existing side files instead of refusing.
	Force bool
}

type Report struct {
	// RunID tags every log line of one command.
	RunID             string
	Mode              Mode
	DatasetsCreated   int
	DatasetsUpdated   int
	PlacesCreated     int
	PlacesUpdated     int
	PlacesSkipped     int
	DatasetsDeleted   int64
	OwnershipsDeleted int64
	PlacesDeleted     int64
}

func (r Report) String() string {
	switch r.Mode {
	case ModeUndo:
		return fmt.Sprintf("undo complete: deleted %d datasets, %d ownerships, %d places",
			r.DatasetsDeleted, r.OwnershipsDeleted, r.PlacesDeleted)
	case ModeImport:
		return fmt.Sprintf("import complete: created %d datasets, %d places (%d skipped)",
			r.DatasetsCreated, r.PlacesCreated, r.PlacesSkipped)
	default:
		return fmt.Sprintf("%s complete: datasets %d created, %d updated; places %d created, %d updated, %d skipped",
			r.Mode, r.DatasetsCreated, r.DatasetsUpdated, r.PlacesCreated, r.PlacesUpdated, r.PlacesSkipped)
	}
}

// Status summarizes the side files without touching the store.
type Status struct {
	LedgerPresent bool
	// Incomplete is set when only one of the two files exists. Import still
	// refuses to run and update and undo cannot load it.
	Incomplete bool
	Datasets   int
	Places     int
}

type subCollection struct {
	remoteID string
	coll     *paradisec.Collection
}

// snapshot is the whole feed as fetched before any write.
type snapshot struct {
	root *paradisec.Collection
	subs []subCollection
}
