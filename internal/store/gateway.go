// Package store writes datasets, their ownership and their places to the
// destination database. All statements are parameterized.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/MufengNiu/Paradisec/internal/entity"
)

var ErrRowNotFound = errors.New("row not found")

// WriteError wraps any failed create, update or delete.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *WriteError) Unwrap() error { return e.Err }

func writeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &WriteError{Op: op, Err: err}
}

// Tx is the set of row operations available inside one transaction.
type Tx interface {
	InsertDataset(ctx context.Context, d *entity.Dataset) (int64, error)
	UpdateDataset(ctx context.Context, d *entity.Dataset) error
	InsertOwnership(ctx context.Context, o *entity.Ownership) error
	// InsertPlace stores everything but the uid, which depends on the new id.
	InsertPlace(ctx context.Context, p *entity.Place) (int64, error)
	SetPlaceUID(ctx context.Context, id int64, uid string) error
	// UpdatePlace overwrites every mapped column except uid and created_at.
	UpdatePlace(ctx context.Context, p *entity.Place) error
	DeletePlacesByDataset(ctx context.Context, datasetID int64) (int64, error)
	DeleteOwnershipByDataset(ctx context.Context, datasetID int64) (int64, error)
	DeleteDataset(ctx context.Context, id int64) (int64, error)
}

type Counts struct {
	Datasets   int64
	Ownerships int64
	Places     int64
}

type Gateway interface {
	// WithTx commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(Tx) error) error
	Counts(ctx context.Context) (Counts, error)
	Close() error
}
