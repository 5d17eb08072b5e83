package catalog

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blinkbus/blink-go/internal/errors"
	"github.com/blinkbus/blink-go/internal/logger"
)

// DefaultTransferBatch is the number of rows copied per insert.
const DefaultTransferBatch = 500

// TableStats counts what a transfer did to one table.
type TableStats struct {
	Table    string
	Source   int64
	Copied   int64
	Skipped  int64
	Duration time.Duration
}

// TransferStats summarizes a transfer.
type TransferStats struct {
	Tables   []TableStats
	Duration time.Duration
}

// Copied returns the rows inserted across all tables.
func (s *TransferStats) Copied() int64 {
	var n int64
	for _, t := range s.Tables {
		n += t.Copied
	}
	return n
}

// Transfer copies every catalog table from src to dst keeping primary keys.
// Rows already present in dst are skipped, so a transfer can be rerun.
func Transfer(ctx context.Context, src, dst *GormStore, batchSize int) (*TransferStats, error) {
	if batchSize <= 0 {
		batchSize = DefaultTransferBatch
	}
	start := time.Now()
	stats := &TransferStats{}

	// parents first so foreign keys resolve
	steps := []func() (TableStats, error){
		func() (TableStats, error) { return copyTable[Route](ctx, src, dst, "routes", batchSize) },
		func() (TableStats, error) { return copyTable[Station](ctx, src, dst, "stations", batchSize) },
		func() (TableStats, error) { return copyTable[Bus](ctx, src, dst, "buses", batchSize) },
		func() (TableStats, error) {
			return copyTable[SavedLocation](ctx, src, dst, "saved_locations", batchSize)
		},
		func() (TableStats, error) { return copyTable[Journey](ctx, src, dst, "journeys", batchSize) },
		func() (TableStats, error) { return copyTable[ScanRecord](ctx, src, dst, "scan_records", batchSize) },
	}
	for _, step := range steps {
		ts, err := step()
		stats.Tables = append(stats.Tables, ts)
		if err != nil {
			return stats, err
		}
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

func copyTable[T any](ctx context.Context, src, dst *GormStore, table string, batchSize int) (TableStats, error) {
	start := time.Now()
	ts := TableStats{Table: table}

	if err := src.db.WithContext(ctx).Model(new(T)).Count(&ts.Source).Error; err != nil {
		return ts, dbError(err, "count_"+table)
	}
	if ts.Source == 0 {
		return ts, nil
	}

	target := dst.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true})
	err := src.db.WithContext(ctx).Model(new(T)).FindInBatches(new([]T), batchSize, func(tx *gorm.DB, _ int) error {
		records := tx.Statement.Dest.(*[]T)
		res := target.Create(records)
		if res.Error != nil {
			return res.Error
		}
		ts.Copied += res.RowsAffected
		ts.Skipped += int64(len(*records)) - res.RowsAffected
		return nil
	}).Error
	ts.Duration = time.Since(start)
	if err != nil {
		return ts, errors.New(err).
			Component("catalog").
			Category(errors.CategoryDatabase).
			Context("operation", "transfer").
			Context("table", table).
			Build()
	}

	src.log.Debug("table transferred",
		logger.String("table", table),
		logger.Int64("copied", ts.Copied),
		logger.Int64("skipped", ts.Skipped))
	return ts, nil
}

// VerifyTransfer compares row counts of every catalog table and returns the
// tables whose counts differ.
func VerifyTransfer(ctx context.Context, src, dst *GormStore) ([]string, error) {
	tables := []struct {
		name  string
		model any
	}{
		{"routes", &Route{}},
		{"stations", &Station{}},
		{"buses", &Bus{}},
		{"saved_locations", &SavedLocation{}},
		{"journeys", &Journey{}},
		{"scan_records", &ScanRecord{}},
	}

	var mismatched []string
	for _, t := range tables {
		var a, b int64
		if err := src.db.WithContext(ctx).Model(t.model).Count(&a).Error; err != nil {
			return nil, dbError(err, "verify_"+t.name)
		}
		if err := dst.db.WithContext(ctx).Model(t.model).Count(&b).Error; err != nil {
			return nil, dbError(err, "verify_"+t.name)
		}
		if a != b {
			mismatched = append(mismatched, t.name)
		}
	}
	return mismatched, nil
}
