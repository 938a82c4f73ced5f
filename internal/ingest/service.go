package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"github.com/MufengNiu/Paradisec/internal/entity"
	"github.com/MufengNiu/Paradisec/internal/fieldmap"
	"github.com/MufengNiu/Paradisec/internal/mapping"
	"github.com/MufengNiu/Paradisec/internal/platform/paradisec"
	"github.com/MufengNiu/Paradisec/internal/store"
)

type Service struct {
	feed   FeedClient
	gw     store.Gateway
	ledger MappingStore
	cfg    Config
	log    *slog.Logger
	now    func() time.Time
}

func NewService(feed FeedClient, gw store.Gateway, ledger MappingStore, cfg Config, log *slog.Logger) *Service {
	if cfg.RootName == "" {
		cfg.RootName = DefaultRootName
	}
	if cfg.UIDPrefix == "" {
		cfg.UIDPrefix = fieldmap.DefaultUIDPrefix
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		feed:   feed,
		gw:     gw,
		ledger: ledger,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// begin starts a report and a logger tagged with a fresh run id.
func (s *Service) begin(mode Mode) (Report, *slog.Logger) {
	id := uuid.NewString()
	return Report{RunID: id, Mode: mode}, s.log.With(slog.String("run_id", id), slog.String("mode", string(mode)))
}

func (s *Service) Import(ctx context.Context, opts ImportOptions) (Report, error) {
	report, log := s.begin(ModeImport)

	exists, err := s.ledger.Exists()
	if err != nil {
		return report, fmt.Errorf("check mapping files: %w", err)
	}
	if exists && !opts.Force {
		return report, ErrLedgerExists
	}
	if exists {
		log.Warn("existing mapping files will be overwritten")
	}

	snap, err := s.fetch(ctx, log)
	if err != nil {
		return report, err
	}

	ledger := mapping.NewLedger()
	if err := s.write(ctx, log, snap, ledger, &report); err != nil {
		return report, err
	}
	return report, nil
}

func (s *Service) Update(ctx context.Context) (Report, error) {
	report, log := s.begin(ModeUpdate)

	ledger, err := s.ledger.Load()
	if err != nil {
		return report, fmt.Errorf("load mapping: %w", err)
	}
	log.Debug("mapping loaded",
		slog.Int("datasets", ledger.Datasets.Len()),
		slog.Int("places", ledger.Places.Len()),
	)

	snap, err := s.fetch(ctx, log)
	if err != nil {
		return report, err
	}

	if err := s.write(ctx, log, snap, ledger, &report); err != nil {
		return report, err
	}
	return report, nil
}

// Undo removes every dataset in the ledger together with its places and
// ownership, then the side files.
func (s *Service) Undo(ctx context.Context) (Report, error) {
	report, log := s.begin(ModeUndo)

	ledger, err := s.ledger.Load()
	if err != nil {
		return report, fmt.Errorf("load mapping: %w", err)
	}

	err = s.gw.WithTx(ctx, func(tx store.Tx) error {
		for _, e := range ledger.Datasets.Entries() {
			places, err := tx.DeletePlacesByDataset(ctx, e.LocalID)
			if err != nil {
				return err
			}
			owners, err := tx.DeleteOwnershipByDataset(ctx, e.LocalID)
			if err != nil {
				return err
			}
			datasets, err := tx.DeleteDataset(ctx, e.LocalID)
			if err != nil {
				return err
			}
			if datasets == 0 {
				log.Warn("mapped dataset already gone", slog.String("remote_id", e.RemoteID), slog.Int64("id", e.LocalID))
			}
			report.PlacesDeleted += places
			report.OwnershipsDeleted += owners
			report.DatasetsDeleted += datasets
			log.Debug("dataset deleted",
				slog.String("remote_id", e.RemoteID),
				slog.Int64("id", e.LocalID),
				slog.Int64("places", places),
			)
		}
		return nil
	})
	if err != nil {
		return Report{RunID: report.RunID, Mode: ModeUndo}, err
	}

	if err := s.ledger.Remove(); err != nil {
		return report, fmt.Errorf("remove mapping files: %w", err)
	}
	return report, nil
}

func (s *Service) Status(ctx context.Context) (Status, error) {
	ledger, err := s.ledger.Load()
	if errors.Is(err, mapping.ErrNotFound) {
		exists, err := s.ledger.Exists()
		if err != nil {
			return Status{}, fmt.Errorf("check mapping files: %w", err)
		}
		return Status{LedgerPresent: exists, Incomplete: exists}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("load mapping: %w", err)
	}
	return Status{
		LedgerPresent: true,
		Datasets:      ledger.Datasets.Len(),
		Places:        ledger.Places.Len(),
	}, nil
}

// fetch reads the root and every sub-collection it lists, in feed order.
func (s *Service) fetch(ctx context.Context, log *slog.Logger) (*snapshot, error) {
	root, err := s.feed.FetchRoot(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("root collection fetched", slog.Int("sub_collections", len(root.Features)))

	snap := &snapshot{root: root}
	for _, f := range root.Features {
		id := f.Properties.ID.String()
		if id == "" {
			log.Warn("sub-collection without id skipped", slog.String("name", f.Properties.Name))
			continue
		}
		coll, err := s.feed.FetchCollection(ctx, id)
		if err != nil {
			return nil, err
		}
		log.Debug("sub-collection fetched", slog.String("id", id), slog.Int("features", len(coll.Features)))
		snap.subs = append(snap.subs, subCollection{remoteID: id, coll: coll})
	}
	return snap, nil
}

// write applies snap inside one transaction and saves the ledger after
// commit. ledger is mutated as the run goes; callers discard it on error.
func (s *Service) write(ctx context.Context, log *slog.Logger, snap *snapshot, ledger *mapping.Ledger, report *Report) error {
	err := s.gw.WithTx(ctx, func(tx store.Tx) error {
		return s.sync(ctx, log, tx, snap, ledger, report)
	})
	if err != nil {
		return err
	}
	if err := s.ledger.Save(ledger); err != nil {
		return fmt.Errorf("save mapping: %w", err)
	}
	return nil
}

func (s *Service) sync(ctx context.Context, log *slog.Logger, tx store.Tx, snap *snapshot, ledger *mapping.Ledger, report *Report) error {
	run := &syncRun{
		svc:    s,
		log:    log,
		tx:     tx,
		ledger: ledger,
		report: report,
		now:    s.now().UTC(),
		seen:   make(map[string]bool),
	}

	rootID := snap.root.Metadata.ID.String()
	if rootID == "" {
		rootID = RootRemoteID
	}
	// Root features only reference sub-collections; they are not places.
	rootName := s.cfg.RootName
	_, changes, err := run.dataset(ctx, rootID, snap.root.Metadata, &rootName, false)
	if err != nil {
		return err
	}
	run.merge(changes)

	for _, sub := range snap.subs {
		if err := run.collection(ctx, sub.remoteID, sub.coll); err != nil {
			return err
		}
	}
	return nil
}

// syncRun carries the state of one write phase.
type syncRun struct {
	svc    *Service
	log    *slog.Logger
	tx     store.Tx
	ledger *mapping.Ledger
	report *Report
	now    time.Time
	// seen holds place ids already written in this run; first occurrence wins.
	seen map[string]bool
}

// collection writes one sub-collection dataset and its places.
func (r *syncRun) collection(ctx context.Context, remoteID string, coll *paradisec.Collection) error {
	datasetID, changes, err := r.dataset(ctx, remoteID, coll.Metadata, nil, true)
	if err != nil {
		return err
	}
	// places looks up only place ids, so the dataset mapping can wait.
	placeChanges, err := r.places(ctx, datasetID, coll.Features)
	if err != nil {
		return err
	}
	changes.Append(placeChanges)
	r.merge(changes)
	return nil
}

func (r *syncRun) merge(c mapping.Changes) {
	if c.Empty() {
		return
	}
	r.log.Debug("mapping extended", slog.Int("datasets", len(c.Datasets)), slog.Int("places", len(c.Places)))
	for _, w := range r.ledger.Merge(c) {
		r.log.Warn("mapping integrity", slog.String("detail", w.String()))
	}
}

// dataset updates the mapped row for remoteID, or creates the dataset and
// its ownership when there is none.
func (r *syncRun) dataset(ctx context.Context, remoteID string, meta paradisec.Metadata, name *string, licensed bool) (int64, mapping.Changes, error) {
	var changes mapping.Changes

	d := fieldmap.DatasetFields(meta, name, licensed, licensed)
	d.UpdatedAt = r.now

	if id, ok := r.ledger.Lookup(mapping.KindDataset, remoteID); ok {
		d.ID = id
		if err := r.tx.UpdateDataset(ctx, &d); err != nil {
			return 0, changes, err
		}
		r.report.DatasetsUpdated++
		r.log.Debug("dataset updated", slog.String("remote_id", remoteID), slog.Int64("id", id))
		return id, changes, nil
	}

	d.CreatedAt = r.now
	id, err := r.tx.InsertDataset(ctx, &d)
	if err != nil {
		return 0, changes, err
	}
	err = r.tx.InsertOwnership(ctx, &entity.Ownership{
		UserID:    r.svc.cfg.OwnerID,
		DatasetID: id,
		Role:      entity.RoleOwner,
		CreatedAt: r.now,
		UpdatedAt: r.now,
	})
	if err != nil {
		return 0, changes, err
	}

	changes.AddDataset(remoteID, id)
	r.report.DatasetsCreated++
	r.log.Info("dataset created", slog.String("remote_id", remoteID), slog.Int64("id", id), slog.String("name", d.Name))
	return id, changes, nil
}

// places writes every feature of one collection into datasetID. Mapped
// places are overwritten in full except uid; the rest are inserted and get
// their uid from the new id. Nothing is deleted.
func (r *syncRun) places(ctx context.Context, datasetID int64, features []paradisec.Feature) (mapping.Changes, error) {
	var changes mapping.Changes

	for _, f := range features {
		remoteID := f.Properties.ID.String()
		if remoteID == "" {
			r.report.PlacesSkipped++
			r.log.Warn("place without id skipped", slog.Int64("dataset_id", datasetID), slog.String("name", f.Properties.Name))
			continue
		}
		if r.seen[remoteID] {
			r.report.PlacesSkipped++
			r.log.Warn("mapping integrity",
				slog.String("detail", fmt.Sprintf("place %q appears more than once in the feed; keeping the first", remoteID)),
				slog.Int64("dataset_id", datasetID),
			)
			continue
		}
		r.seen[remoteID] = true

		p := fieldmap.PlaceFields(f.Properties, f.Geometry)
		p.DatasetID = datasetID
		p.UpdatedAt = r.now

		if id, ok := r.ledger.Lookup(mapping.KindPlace, remoteID); ok {
			p.ID = id
			if err := r.tx.UpdatePlace(ctx, &p); err != nil {
				return changes, err
			}
			r.report.PlacesUpdated++
			continue
		}

		p.CreatedAt = r.now
		id, err := r.tx.InsertPlace(ctx, &p)
		if err != nil {
			return changes, err
		}
		if err := r.tx.SetPlaceUID(ctx, id, fieldmap.PlaceUID(id, r.svc.cfg.UIDPrefix)); err != nil {
			return changes, err
		}
		changes.AddPlace(remoteID, id)
		r.report.PlacesCreated++
		r.log.Debug("place created", slog.String("remote_id", remoteID), slog.Int64("id", id))
	}
	return changes, nil
}
