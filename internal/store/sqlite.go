package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/MufengNiu/Paradisec/internal/entity"
)

// sqliteSchema mirrors the columns of tlcmap.dataset, tlcmap.user_dataset
// and tlcmap.dataitem without the schema qualifier.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS dataset (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	description TEXT NOT NULL,
	public INTEGER NOT NULL,
	publisher TEXT NOT NULL DEFAULT '',
	contact TEXT NOT NULL DEFAULT '',
	source_url TEXT NOT NULL DEFAULT '',
	license TEXT,
	rights TEXT,
	recordtype_id INTEGER NOT NULL,
	linkback TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS user_dataset (
	user_id INTEGER NOT NULL,
	dataset_id INTEGER NOT NULL REFERENCES dataset(id),
	dsrole TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS dataitem (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	dataset_id INTEGER NOT NULL REFERENCES dataset(id),
	title TEXT NOT NULL,
	recordtype_id INTEGER NOT NULL,
	description TEXT,
	latitude REAL,
	longitude REAL,
	datestart TEXT,
	dateend TEXT,
	source TEXT NOT NULL DEFAULT '',
	external_url TEXT NOT NULL DEFAULT '',
	extended_data TEXT,
	datasource_id INTEGER NOT NULL,
	uid TEXT,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);`

// SQLite is a local gateway for dry runs and tests. Foreign keys are
// enforced so the delete order of undo is checked the same way Postgres
// checks it.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens dsn (a file path or ":memory:") and creates the tables.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A second connection to :memory: would see an empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (g *SQLite) WithTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return writeErr("begin tx", err)
	}
	defer tx.Rollback()

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		return err
	}
	return writeErr("commit tx", tx.Commit())
}

func (g *SQLite) Counts(ctx context.Context) (Counts, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM dataset),
			(SELECT COUNT(*) FROM user_dataset),
			(SELECT COUNT(*) FROM dataitem)`
	var c Counts
	err := g.db.QueryRowContext(ctx, query).Scan(&c.Datasets, &c.Ownerships, &c.Places)
	return c, err
}

// Place reads one dataitem row back. Only tests and status output use it.
func (g *SQLite) Place(ctx context.Context, id int64) (*entity.Place, error) {
	const query = `
		SELECT id, dataset_id, title, recordtype_id, description, latitude, longitude, datestart, dateend,
			source, external_url, extended_data, datasource_id, uid
		FROM dataitem WHERE id = ?`

	var (
		p          entity.Place
		start, end sql.NullString
	)
	err := g.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.DatasetID, &p.Title, &p.RecordTypeID, &p.Description, &p.Latitude, &p.Longitude,
		&start, &end, &p.Source, &p.ExternalURL, &p.ExtendedData, &p.DatasourceID, &p.UID,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: place %d", ErrRowNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if p.DateStart, err = parseSQLiteDate(start); err != nil {
		return nil, err
	}
	if p.DateEnd, err = parseSQLiteDate(end); err != nil {
		return nil, err
	}
	return &p, nil
}

// Dataset reads one dataset row back.
func (g *SQLite) Dataset(ctx context.Context, id int64) (*entity.Dataset, error) {
	const query = `
		SELECT id, name, description, public, publisher, contact, source_url, license, rights, recordtype_id, linkback
		FROM dataset WHERE id = ?`

	var d entity.Dataset
	err := g.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.Name, &d.Description, &d.Public, &d.Publisher, &d.Contact, &d.SourceURL,
		&d.License, &d.Rights, &d.RecordTypeID, &d.Linkback,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: dataset %d", ErrRowNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (g *SQLite) Close() error {
	return g.db.Close()
}

func sqliteDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.DateOnly)
}

func parseSQLiteDate(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s.String)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", s.String, err)
	}
	return &t, nil
}

type sqliteTx struct {
	tx *sql.Tx
}

func (r *sqliteTx) InsertDataset(ctx context.Context, d *entity.Dataset) (int64, error) {
	const query = `
		INSERT INTO dataset (name, description, public, publisher, contact, source_url, license, rights, recordtype_id, linkback, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := r.tx.ExecContext(ctx, query,
		d.Name, d.Description, d.Public, d.Publisher, d.Contact, d.SourceURL,
		d.License, d.Rights, d.RecordTypeID, d.Linkback, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return 0, writeErr("insert dataset", err)
	}
	id, err := res.LastInsertId()
	return id, writeErr("insert dataset", err)
}

func (r *sqliteTx) UpdateDataset(ctx context.Context, d *entity.Dataset) error {
	const query = `
		UPDATE dataset SET
			name = ?, description = ?, public = ?, publisher = ?, contact = ?, source_url = ?,
			license = ?, rights = ?, recordtype_id = ?, linkback = ?, updated_at = ?
		WHERE id = ?`

	res, err := r.tx.ExecContext(ctx, query,
		d.Name, d.Description, d.Public, d.Publisher, d.Contact, d.SourceURL,
		d.License, d.Rights, d.RecordTypeID, d.Linkback, d.UpdatedAt, d.ID,
	)
	return requireRow("update dataset", "dataset", d.ID, res, err)
}

func (r *sqliteTx) InsertOwnership(ctx context.Context, o *entity.Ownership) error {
	const query = `
		INSERT INTO user_dataset (user_id, dataset_id, dsrole, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err := r.tx.ExecContext(ctx, query, o.UserID, o.DatasetID, o.Role, o.CreatedAt, o.UpdatedAt)
	return writeErr("insert ownership", err)
}

func (r *sqliteTx) InsertPlace(ctx context.Context, p *entity.Place) (int64, error) {
	const query = `
		INSERT INTO dataitem (dataset_id, title, recordtype_id, description, latitude, longitude, datestart, dateend, source, external_url, extended_data, datasource_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := r.tx.ExecContext(ctx, query,
		p.DatasetID, p.Title, p.RecordTypeID, p.Description, p.Latitude, p.Longitude,
		sqliteDate(p.DateStart), sqliteDate(p.DateEnd), p.Source, p.ExternalURL, p.ExtendedData,
		p.DatasourceID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return 0, writeErr("insert place", err)
	}
	id, err := res.LastInsertId()
	return id, writeErr("insert place", err)
}

func (r *sqliteTx) SetPlaceUID(ctx context.Context, id int64, uid string) error {
	res, err := r.tx.ExecContext(ctx, `UPDATE dataitem SET uid = ? WHERE id = ?`, uid, id)
	return requireRow("set place uid", "place", id, res, err)
}

func (r *sqliteTx) UpdatePlace(ctx context.Context, p *entity.Place) error {
	const query = `
		UPDATE dataitem SET
			dataset_id = ?, title = ?, recordtype_id = ?, description = ?, latitude = ?, longitude = ?,
			datestart = ?, dateend = ?, source = ?, external_url = ?, extended_data = ?, datasource_id = ?,
			updated_at = ?
		WHERE id = ?`

	res, err := r.tx.ExecContext(ctx, query,
		p.DatasetID, p.Title, p.RecordTypeID, p.Description, p.Latitude, p.Longitude,
		sqliteDate(p.DateStart), sqliteDate(p.DateEnd), p.Source, p.ExternalURL, p.ExtendedData,
		p.DatasourceID, p.UpdatedAt, p.ID,
	)
	return requireRow("update place", "place", p.ID, res, err)
}

func (r *sqliteTx) DeletePlacesByDataset(ctx context.Context, datasetID int64) (int64, error) {
	return r.deleteCount(ctx, "delete places", `DELETE FROM dataitem WHERE dataset_id = ?`, datasetID)
}

func (r *sqliteTx) DeleteOwnershipByDataset(ctx context.Context, datasetID int64) (int64, error) {
	return r.deleteCount(ctx, "delete ownership", `DELETE FROM user_dataset WHERE dataset_id = ?`, datasetID)
}

func (r *sqliteTx) DeleteDataset(ctx context.Context, id int64) (int64, error) {
	return r.deleteCount(ctx, "delete dataset", `DELETE FROM dataset WHERE id = ?`, id)
}

func (r *sqliteTx) deleteCount(ctx context.Context, op, query string, id int64) (int64, error) {
	res, err := r.tx.ExecContext(ctx, query, id)
	if err != nil {
		return 0, writeErr(op, err)
	}
	n, err := res.RowsAffected()
	return n, writeErr(op, err)
}

func requireRow(op, what string, id int64, res sql.Result, err error) error {
	if err != nil {
		return writeErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return writeErr(op, err)
	}
	if n == 0 {
		return writeErr(op, fmt.Errorf("%w: %s %d", ErrRowNotFound, what, id))
	}
	return nil
}
