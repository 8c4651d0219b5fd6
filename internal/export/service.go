package export

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/poravv/cuencly-backend/internal/logger"
	"github.com/poravv/cuencly-backend/internal/reconcile"
	"github.com/poravv/cuencly-backend/pkg/models"
)

// Store is the partition persistence the export service writes through.
type Store interface {
	// LoadPartition returns the rows and items currently persisted for a
	// partition; empty slices when it does not exist yet.
	LoadPartition(ctx context.Context, partition string) ([]models.ExportRow, []models.ItemRow, error)

	// ReplacePartition atomically replaces the full contents of a partition.
	ReplacePartition(ctx context.Context, partition string, rows []models.ExportRow, items []models.ItemRow) error
}

// Service runs the export pipeline: reconcile, partition, round, merge with
// persisted state, persist, snapshot. Concurrent exports against the same
// partition are serialized; different partitions proceed in parallel.
type Service struct {
	store       Store
	snapshotDir string
	cfg         reconcile.Config
	log         zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates an export service writing through store, with CSV
// snapshots under snapshotDir.
func NewService(store Store, snapshotDir string, cfg reconcile.Config) *Service {
	return &Service{
		store:       store,
		snapshotDir: snapshotDir,
		cfg:         cfg,
		log:         logger.WithComponent("export"),
		locks:       make(map[string]*sync.Mutex),
	}
}

// partitionLock returns the mutex serializing writes to one partition.
func (s *Service) partitionLock(partition string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[partition]
	if !ok {
		l = &sync.Mutex{}
		s.locks[partition] = l
	}
	return l
}

// Export folds a batch of invoices into their monthly partitions. The batch
// may span months; every touched partition is re-merged and re-snapshotted.
// Warnings report per-record anomalies; only storage failures are errors.
func (s *Service) Export(ctx context.Context, invoices []models.Invoice) (*models.ExportResult, error) {
	const op = "Export"

	result := &models.ExportResult{}
	if len(invoices) == 0 {
		return result, nil
	}

	groups, warnings := GroupByMonth(invoices, s.cfg, time.Now())
	result.Warnings = warnings

	partitions := make([]string, 0, len(groups))
	for p := range groups {
		partitions = append(partitions, p)
	}
	sort.Strings(partitions)
	result.Partitions = partitions

	for _, partition := range partitions {
		inserted, updated, snapshots, err := s.exportPartition(ctx, partition, groups[partition])
		if err != nil {
			return result, fmt.Errorf("%s: partition %s: %w", op, partition, err)
		}
		result.Inserted += inserted
		result.Updated += updated
		result.Snapshots = append(result.Snapshots, snapshots...)
	}

	s.log.Info().
		Strs("partitions", partitions).
		Int("inserted", result.Inserted).
		Int("updated", result.Updated).
		Int("warnings", len(result.Warnings)).
		Msg("export completed")
	return result, nil
}

func (s *Service) exportPartition(ctx context.Context, partition string, invoices []models.Invoice) (inserted, updated int, snapshots []string, err error) {
	lock := s.partitionLock(partition)
	lock.Lock()
	defer lock.Unlock()

	incoming := make([]models.ExportRow, 0, len(invoices))
	var incomingItems []models.ItemRow
	for i := range invoices {
		row, items := buildRow(&invoices[i])
		incoming = append(incoming, row)
		incomingItems = append(incomingItems, items...)
	}

	existing, existingItems, err := s.store.LoadPartition(ctx, partition)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("loading existing rows: %w", err)
	}

	rows, inserted, updated := mergeRows(existing, incoming)
	items := mergeItems(existingItems, incomingItems, rows)

	if err := s.store.ReplacePartition(ctx, partition, rows, items); err != nil {
		return 0, 0, nil, fmt.Errorf("replacing partition: %w", err)
	}

	snapshots, err = writeSnapshot(s.snapshotDir, partition, rows, items)
	if err != nil {
		return 0, 0, nil, err
	}

	s.log.Debug().
		Str("partition", partition).
		Int("rows", len(rows)).
		Int("inserted", inserted).
		Int("updated", updated).
		Msg("partition rewritten")
	return inserted, updated, snapshots, nil
}

// Summary computes the monthly summary of a persisted partition.
func (s *Service) Summary(ctx context.Context, partition string) (models.MonthlySummary, error) {
	const op = "Summary"

	rows, _, err := s.store.LoadPartition(ctx, partition)
	if err != nil {
		return models.MonthlySummary{}, fmt.Errorf("%s: %w", op, err)
	}
	return Summarize(partition, rows), nil
}

// Snapshots lists the CSV snapshot files written so far.
func (s *Service) Snapshots() ([]models.SnapshotInfo, error) {
	return ListSnapshots(s.snapshotDir)
}
