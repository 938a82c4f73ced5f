package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MufengNiu/Paradisec/internal/entity"
)

func setupSQLite(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testDataset(name string, now time.Time) *entity.Dataset {
	return &entity.Dataset{
		Name:         name,
		Description:  " ",
		Public:       true,
		Publisher:    "PARADISEC",
		Contact:      "admin@paradisec.org.au",
		SourceURL:    "https://catalog.paradisec.org.au",
		RecordTypeID: entity.RecordTypeOther,
		Linkback:     "https://catalog.paradisec.org.au",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestSQLite_InsertAndUpdate(t *testing.T) {
	db := setupSQLite(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	lat, lon := -9.47, 147.15
	ext := "<ExtendedData></ExtendedData>"

	var datasetID, placeID int64
	err := db.WithTx(ctx, func(tx Tx) error {
		var err error
		datasetID, err = tx.InsertDataset(ctx, testDataset("SC1", now))
		if err != nil {
			return err
		}
		if err := tx.InsertOwnership(ctx, &entity.Ownership{
			UserID: 7, DatasetID: datasetID, Role: entity.RoleOwner, CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			return err
		}
		placeID, err = tx.InsertPlace(ctx, &entity.Place{
			DatasetID:    datasetID,
			Title:        "Site A",
			RecordTypeID: entity.RecordTypeOther,
			Latitude:     &lat,
			Longitude:    &lon,
			DateStart:    &start,
			DateEnd:      &start,
			Source:       "http://x",
			ExternalURL:  "http://x",
			ExtendedData: &ext,
			DatasourceID: entity.DatasourceGHAP,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return err
		}
		return tx.SetPlaceUID(ctx, placeID, "t1")
	})
	require.NoError(t, err)

	c, err := db.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Datasets: 1, Ownerships: 1, Places: 1}, c)

	p, err := db.Place(ctx, placeID)
	require.NoError(t, err)
	assert.Equal(t, "Site A", p.Title)
	require.NotNil(t, p.UID)
	assert.Equal(t, "t1", *p.UID)
	require.NotNil(t, p.DateStart)
	assert.True(t, start.Equal(*p.DateStart))
	assert.Nil(t, p.Description)
	require.NotNil(t, p.Latitude)
	assert.Equal(t, lat, *p.Latitude)

	err = db.WithTx(ctx, func(tx Tx) error {
		d := testDataset("Renamed", now.Add(time.Hour))
		d.ID = datasetID
		if err := tx.UpdateDataset(ctx, d); err != nil {
			return err
		}
		p.Title = "Site A2"
		p.DateStart, p.DateEnd = nil, nil
		p.UpdatedAt = now.Add(time.Hour)
		return tx.UpdatePlace(ctx, p)
	})
	require.NoError(t, err)

	d, err := db.Dataset(ctx, datasetID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", d.Name)
	assert.True(t, d.Public)

	p, err = db.Place(ctx, placeID)
	require.NoError(t, err)
	assert.Equal(t, "Site A2", p.Title)
	assert.Nil(t, p.DateStart)
	require.NotNil(t, p.UID)
	assert.Equal(t, "t1", *p.UID)
}

func TestSQLite_UpdateMissingRow(t *testing.T) {
	db := setupSQLite(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx Tx) error {
		d := testDataset("ghost", time.Now())
		d.ID = 999
		return tx.UpdateDataset(ctx, d)
	})
	var we *WriteError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, "update dataset", we.Op)
	assert.True(t, errors.Is(err, ErrRowNotFound))

	err = db.WithTx(ctx, func(tx Tx) error {
		return tx.UpdatePlace(ctx, &entity.Place{ID: 5, DatasetID: 1, Title: "x"})
	})
	assert.True(t, errors.Is(err, ErrRowNotFound))
}

func TestSQLite_RollbackOnError(t *testing.T) {
	db := setupSQLite(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.InsertDataset(ctx, testDataset("SC1", time.Now())); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	c, err := db.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, c.Datasets)
}

func TestSQLite_DeleteOrder(t *testing.T) {
	db := setupSQLite(t)
	ctx := context.Background()
	now := time.Now().UTC()

	var datasetID int64
	require.NoError(t, db.WithTx(ctx, func(tx Tx) error {
		var err error
		datasetID, err = tx.InsertDataset(ctx, testDataset("SC1", now))
		if err != nil {
			return err
		}
		if err := tx.InsertOwnership(ctx, &entity.Ownership{UserID: 1, DatasetID: datasetID, Role: entity.RoleOwner, CreatedAt: now, UpdatedAt: now}); err != nil {
			return err
		}
		for _, title := range []string{"a", "b"} {
			if _, err := tx.InsertPlace(ctx, &entity.Place{DatasetID: datasetID, Title: title, CreatedAt: now, UpdatedAt: now}); err != nil {
				return err
			}
		}
		return nil
	}))

	t.Run("dataset first violates foreign keys", func(t *testing.T) {
		err := db.WithTx(ctx, func(tx Tx) error {
			_, err := tx.DeleteDataset(ctx, datasetID)
			return err
		})
		var we *WriteError
		require.True(t, errors.As(err, &we))
		assert.Equal(t, "delete dataset", we.Op)
	})

	t.Run("places, ownership, dataset", func(t *testing.T) {
		err := db.WithTx(ctx, func(tx Tx) error {
			n, err := tx.DeletePlacesByDataset(ctx, datasetID)
			require.NoError(t, err)
			assert.Equal(t, int64(2), n)
			n, err = tx.DeleteOwnershipByDataset(ctx, datasetID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
			n, err = tx.DeleteDataset(ctx, datasetID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
			return nil
		})
		require.NoError(t, err)

		c, err := db.Counts(ctx)
		require.NoError(t, err)
		assert.Equal(t, Counts{}, c)
	})

	t.Run("deleting what is gone is a no-op", func(t *testing.T) {
		err := db.WithTx(ctx, func(tx Tx) error {
			n, err := tx.DeleteDataset(ctx, datasetID)
			assert.Zero(t, n)
			return err
		})
		require.NoError(t, err)
	})
}
