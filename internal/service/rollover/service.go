// Package rollover implements the monthly close engine: archiving the
// current ledger into monthly_history and reseeding the next period's opening
// stock from the physical counts.
//
// The archive append and the ledger reset cannot share a transaction across
// worksheets, so the close is sequenced behind a durable recovery marker: a
// crash between the two writes leaves a started marker that Recover finishes
// forward or rolls back on the next startup.
package rollover

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ndiasse/stockroom/internal/domain/models"
	"github.com/ndiasse/stockroom/internal/repository"
)

// Journal is the durable recovery store for in-flight closes.
type Journal interface {
	Begin(ctx context.Context, period, nextPeriod string) error
	Complete(ctx context.Context, period string) error
	Abort(ctx context.Context, period string) error
	Pending(ctx context.Context) ([]models.RolloverMarker, error)
	SaveSnapshot(ctx context.Context, snapshot models.MonthlyArchiveSnapshot) error
}

// ActivityFence appends the rollover sentinel that stops undo from reaching
// into the archived period.
type ActivityFence interface {
	LogRollover(ctx context.Context, period string) error
}

// Service implements the close-month engine.
type Service struct {
	store   repository.TableStore
	journal Journal
	fence   ActivityFence
	logger  *zap.Logger
	now     func() time.Time
}

// NewService constructs a rollover engine.
func NewService(store repository.TableStore, journal Journal, fence ActivityFence, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		journal: journal,
		fence:   fence,
		logger:  logger,
		now:     time.Now,
	}
}

// CloseMonth archives the current ledger under currentPeriod and reseeds the
// next period: opening stock becomes the physical count, the flow columns are
// zeroed and closing stock is recomputed. Closing an already-archived period
// fails with ErrDuplicatePeriod before anything is mutated.
func (s *Service) CloseMonth(ctx context.Context, currentPeriod, nextPeriod string) error {
	if currentPeriod == "" || nextPeriod == "" {
		return fmt.Errorf("period labels must not be empty: %w", models.ErrValidation)
	}
	if currentPeriod == nextPeriod {
		return fmt.Errorf("next period must differ from %s: %w", currentPeriod, models.ErrValidation)
	}

	historySnap, err := s.store.ReadAll(ctx, repository.TableHistory)
	if err != nil {
		return fmt.Errorf("load archive: %w", err)
	}
	archived, err := models.ParseArchiveTable(historySnap.Rows)
	if err != nil {
		return err
	}
	if models.HasPeriod(archived, currentPeriod) {
		return fmt.Errorf("period %s: %w", currentPeriod, models.ErrDuplicatePeriod)
	}

	invSnap, err := s.store.ReadAll(ctx, repository.TableInventory)
	if err != nil {
		return fmt.Errorf("load inventory: %w", err)
	}
	rows, err := models.ParseInventoryTable(invSnap.Rows)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("cannot close %s on an empty ledger: %w", currentPeriod, models.ErrValidation)
	}

	// The journal doubles as the idempotence guard: the marker keyed by
	// period rejects a concurrent or repeated close of the same label.
	if err := s.journal.Begin(ctx, currentPeriod, nextPeriod); err != nil {
		return err
	}

	snapshot := models.MonthlyArchiveSnapshot{
		PeriodLabel: currentPeriod,
		ClosedAt:    s.now().UTC(),
		Rows:        append([]models.InventoryRow(nil), rows...),
	}

	if err := s.store.Append(ctx, repository.TableHistory, snapshot.Cells()...); err != nil {
		return fmt.Errorf("archive period %s (marker left for recovery): %w", currentPeriod, err)
	}
	if err := s.journal.SaveSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("mirror period %s (marker left for recovery): %w", currentPeriod, err)
	}

	reset := resetFromSnapshot(rows, snapshot)
	if err := s.store.WriteAll(ctx, repository.TableInventory, models.InventoryTableCells(reset), invSnap.Version); err != nil {
		return fmt.Errorf("reseed ledger for %s (marker left for recovery): %w", nextPeriod, err)
	}

	if err := s.fence.LogRollover(ctx, currentPeriod); err != nil {
		return fmt.Errorf("fence activity log for %s (marker left for recovery): %w", currentPeriod, err)
	}

	if err := s.journal.Complete(ctx, currentPeriod); err != nil {
		return err
	}

	s.logger.Info("month closed",
		zap.String("period", currentPeriod),
		zap.String("next_period", nextPeriod),
		zap.Int("products", len(rows)))

	return nil
}

// Recover inspects markers left in the started state by an interrupted close
// and either finishes the close forward (when the archive rows landed) or
// rolls the marker back (when they did not). Run once at startup before the
// portals accept traffic.
func (s *Service) Recover(ctx context.Context) error {
	pending, err := s.journal.Pending(ctx)
	if err != nil {
		return err
	}

	for _, marker := range pending {
		s.logger.Warn("recovering interrupted month close",
			zap.String("period", marker.Period),
			zap.String("next_period", marker.NextPeriod))

		historySnap, err := s.store.ReadAll(ctx, repository.TableHistory)
		if err != nil {
			return fmt.Errorf("load archive: %w", err)
		}
		archived, err := models.ParseArchiveTable(historySnap.Rows)
		if err != nil {
			return err
		}

		var snapshot *models.MonthlyArchiveSnapshot
		for i := range archived {
			if archived[i].PeriodLabel == marker.Period {
				snapshot = &archived[i]
				break
			}
		}

		if snapshot == nil {
			// The archive append never landed; the ledger is untouched.
			// Dropping the marker makes the close retryable.
			if err := s.journal.Abort(ctx, marker.Period); err != nil {
				return err
			}
			s.logger.Info("rolled back unarchived close", zap.String("period", marker.Period))
			continue
		}

		// The archive landed, so finish forward. The reset reseeds from the
		// archived physical counts, which makes it safe to apply whether or
		// not the original reset write went through.
		invSnap, err := s.store.ReadAll(ctx, repository.TableInventory)
		if err != nil {
			return fmt.Errorf("load inventory: %w", err)
		}
		rows, err := models.ParseInventoryTable(invSnap.Rows)
		if err != nil {
			return err
		}

		reset := resetFromSnapshot(rows, *snapshot)
		if err := s.store.WriteAll(ctx, repository.TableInventory, models.InventoryTableCells(reset), invSnap.Version); err != nil {
			return fmt.Errorf("reseed ledger for %s: %w", marker.NextPeriod, err)
		}
		if err := s.journal.SaveSnapshot(ctx, *snapshot); err != nil {
			return err
		}
		if err := s.fence.LogRollover(ctx, marker.Period); err != nil {
			return err
		}
		if err := s.journal.Complete(ctx, marker.Period); err != nil {
			return err
		}
		s.logger.Info("completed interrupted close", zap.String("period", marker.Period))
	}

	return nil
}

// Archive returns the snapshot stored under the given period label.
func (s *Service) Archive(ctx context.Context, period string) (models.MonthlyArchiveSnapshot, error) {
	historySnap, err := s.store.ReadAll(ctx, repository.TableHistory)
	if err != nil {
		return models.MonthlyArchiveSnapshot{}, fmt.Errorf("load archive: %w", err)
	}
	archived, err := models.ParseArchiveTable(historySnap.Rows)
	if err != nil {
		return models.MonthlyArchiveSnapshot{}, err
	}

	for _, snap := range archived {
		if snap.PeriodLabel == period {
			return snap, nil
		}
	}
	return models.MonthlyArchiveSnapshot{}, fmt.Errorf("period %s: %w", period, models.ErrNotFound)
}

// resetFromSnapshot reseeds the ledger for the next period. Every row present
// in the snapshot opens with its archived physical count and zeroed flows;
// products added after the snapshot (none during a normal close, possible
// during recovery) keep their current values.
func resetFromSnapshot(rows []models.InventoryRow, snapshot models.MonthlyArchiveSnapshot) []models.InventoryRow {
	counts := make(map[string]decimal.Decimal, len(snapshot.Rows))
	for _, row := range snapshot.Rows {
		counts[row.ProductName] = row.PhysicalCount
	}

	out := append([]models.InventoryRow(nil), rows...)
	for i := range out {
		count, ok := counts[out[i].ProductName]
		if !ok {
			continue
		}
		out[i].OpeningStock = count
		out[i].Receipts = decimal.Zero
		out[i].Consumption = decimal.Zero
		out[i].PhysicalCount = decimal.Zero
		out[i].Recalculate()
	}
	return out
}
