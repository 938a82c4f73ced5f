package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MufengNiu/Paradisec/internal/entity"
)

type PG struct {
	db *pgxpool.Pool
}

func NewPG(db *pgxpool.Pool) *PG {
	return &PG{db: db}
}

// OpenPG connects and pings within the given timeout.
func OpenPG(ctx context.Context, dsn string, timeout time.Duration) (*PG, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewPG(pool), nil
}

func (g *PG) WithTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := g.db.Begin(ctx)
	if err != nil {
		return writeErr("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return writeErr("commit tx", tx.Commit(ctx))
}

func (g *PG) Counts(ctx context.Context) (Counts, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM tlcmap.dataset),
			(SELECT COUNT(*) FROM tlcmap.user_dataset),
			(SELECT COUNT(*) FROM tlcmap.dataitem)`
	var c Counts
	err := g.db.QueryRow(ctx, query).Scan(&c.Datasets, &c.Ownerships, &c.Places)
	return c, err
}

func (g *PG) Close() error {
	g.db.Close()
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

func pgDate(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: *t, Valid: true}
}

func (r *pgTx) InsertDataset(ctx context.Context, d *entity.Dataset) (int64, error) {
	const sql = `
		INSERT INTO tlcmap.dataset (name, description, public, publisher, contact, source_url, license, rights, recordtype_id, linkback, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	var id int64
	err := r.tx.QueryRow(ctx, sql,
		d.Name, d.Description, d.Public, d.Publisher, d.Contact, d.SourceURL,
		d.License, d.Rights, d.RecordTypeID, d.Linkback, d.CreatedAt, d.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, writeErr("insert dataset", err)
	}
	return id, nil
}

func (r *pgTx) UpdateDataset(ctx context.Context, d *entity.Dataset) error {
	const sql = `
		UPDATE tlcmap.dataset SET
			name = $1, description = $2, public = $3, publisher = $4, contact = $5, source_url = $6,
			license = $7, rights = $8, recordtype_id = $9, linkback = $10, updated_at = $11
		WHERE id = $12`

	tag, err := r.tx.Exec(ctx, sql,
		d.Name, d.Description, d.Public, d.Publisher, d.Contact, d.SourceURL,
		d.License, d.Rights, d.RecordTypeID, d.Linkback, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return writeErr("update dataset", err)
	}
	if tag.RowsAffected() == 0 {
		return writeErr("update dataset", fmt.Errorf("%w: dataset %d", ErrRowNotFound, d.ID))
	}
	return nil
}

func (r *pgTx) InsertOwnership(ctx context.Context, o *entity.Ownership) error {
	const sql = `
		INSERT INTO tlcmap.user_dataset (user_id, dataset_id, dsrole, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.tx.Exec(ctx, sql, o.UserID, o.DatasetID, o.Role, o.CreatedAt, o.UpdatedAt)
	return writeErr("insert ownership", err)
}

func (r *pgTx) InsertPlace(ctx context.Context, p *entity.Place) (int64, error) {
	const sql = `
		INSERT INTO tlcmap.dataitem (dataset_id, title, recordtype_id, description, latitude, longitude, datestart, dateend, source, external_url, extended_data, datasource_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`

	var id int64
	err := r.tx.QueryRow(ctx, sql,
		p.DatasetID, p.Title, p.RecordTypeID, p.Description, p.Latitude, p.Longitude,
		pgDate(p.DateStart), pgDate(p.DateEnd), p.Source, p.ExternalURL, p.ExtendedData,
		p.DatasourceID, p.CreatedAt, p.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, writeErr("insert place", err)
	}
	return id, nil
}

func (r *pgTx) SetPlaceUID(ctx context.Context, id int64, uid string) error {
	tag, err := r.tx.Exec(ctx, `UPDATE tlcmap.dataitem SET uid = $1 WHERE id = $2`, uid, id)
	if err != nil {
		return writeErr("set place uid", err)
	}
	if tag.RowsAffected() == 0 {
		return writeErr("set place uid", fmt.Errorf("%w: place %d", ErrRowNotFound, id))
	}
	return nil
}

func (r *pgTx) UpdatePlace(ctx context.Context, p *entity.Place) error {
	const sql = `
		UPDATE tlcmap.dataitem SET
			dataset_id = $1, title = $2, recordtype_id = $3, description = $4, latitude = $5, longitude = $6,
			datestart = $7, dateend = $8, source = $9, external_url = $10, extended_data = $11, datasource_id = $12,
			updated_at = $13
		WHERE id = $14`

	tag, err := r.tx.Exec(ctx, sql,
		p.DatasetID, p.Title, p.RecordTypeID, p.Description, p.Latitude, p.Longitude,
		pgDate(p.DateStart), pgDate(p.DateEnd), p.Source, p.ExternalURL, p.ExtendedData,
		p.DatasourceID, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return writeErr("update place", err)
	}
	if tag.RowsAffected() == 0 {
		return writeErr("update place", fmt.Errorf("%w: place %d", ErrRowNotFound, p.ID))
	}
	return nil
}

func (r *pgTx) DeletePlacesByDataset(ctx context.Context, datasetID int64) (int64, error) {
	tag, err := r.tx.Exec(ctx, `DELETE FROM tlcmap.dataitem WHERE dataset_id = $1`, datasetID)
	if err != nil {
		return 0, writeErr("delete places", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgTx) DeleteOwnershipByDataset(ctx context.Context, datasetID int64) (int64, error) {
	tag, err := r.tx.Exec(ctx, `DELETE FROM tlcmap.user_dataset WHERE dataset_id = $1`, datasetID)
	if err != nil {
		return 0, writeErr("delete ownership", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgTx) DeleteDataset(ctx context.Context, id int64) (int64, error) {
	tag, err := r.tx.Exec(ctx, `DELETE FROM tlcmap.dataset WHERE id = $1`, id)
	if err != nil {
		return 0, writeErr("delete dataset", err)
	}
	return tag.RowsAffected(), nil
}
