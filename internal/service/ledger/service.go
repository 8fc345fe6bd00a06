// Package ledger implements the warehouse inventory ledger: validated
// mutations of the persistent_inventory sheet, the append-only activity log,
// and undo of logged transactions.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ndiasse/stockroom/internal/domain/models"
	"github.com/ndiasse/stockroom/internal/repository"
)

// FieldRollover marks the sentinel activity entry appended by a month close.
// Entries positioned before the latest rollover sentinel belong to an
// archived period and can no longer be undone.
const FieldRollover models.LedgerField = "rollover"

// Service implements ledger operations against the table store.
type Service struct {
	store  repository.TableStore
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewService constructs a ledger service.
func NewService(store repository.TableStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Inventory returns the current ledger rows.
func (s *Service) Inventory(ctx context.Context) ([]models.InventoryRow, error) {
	snap, err := s.store.ReadAll(ctx, repository.TableInventory)
	if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}
	return models.ParseInventoryTable(snap.Rows)
}

// Activity returns the full activity log, oldest first.
func (s *Service) Activity(ctx context.Context) ([]models.ActivityLogEntry, error) {
	snap, err := s.store.ReadAll(ctx, repository.TableActivity)
	if err != nil {
		return nil, fmt.Errorf("load activity log: %w", err)
	}
	return models.ParseActivityTable(snap.Rows)
}

// RecordReceipt books a delivery into a product's receipts column. The date,
// when non-zero, is used as the transaction timestamp.
func (s *Service) RecordReceipt(ctx context.Context, actor, product string, qty decimal.Decimal, date time.Time) (models.InventoryRow, error) {
	if qty.IsNegative() {
		return models.InventoryRow{}, fmt.Errorf("receipt quantity %s: %w", qty, models.ErrValidation)
	}
	return s.mutate(ctx, actor, product, models.FieldReceipts, date, func(row *models.InventoryRow) decimal.Decimal {
		row.Receipts = row.Receipts.Add(qty)
		return row.Receipts
	})
}

// UpdateConsumption overwrites a product's consumption value.
func (s *Service) UpdateConsumption(ctx context.Context, actor, product string, value decimal.Decimal) (models.InventoryRow, error) {
	if value.IsNegative() {
		return models.InventoryRow{}, fmt.Errorf("consumption %s: %w", value, models.ErrValidation)
	}
	return s.mutate(ctx, actor, product, models.FieldConsumption, time.Time{}, func(row *models.InventoryRow) decimal.Decimal {
		row.Consumption = value
		return row.Consumption
	})
}

// UpdatePhysicalCount overwrites a product's manually observed count. The
// count is independent of the derived closing stock.
func (s *Service) UpdatePhysicalCount(ctx context.Context, actor, product string, value decimal.Decimal) (models.InventoryRow, error) {
	if value.IsNegative() {
		return models.InventoryRow{}, fmt.Errorf("physical count %s: %w", value, models.ErrValidation)
	}
	return s.mutate(ctx, actor, product, models.FieldPhysicalCount, time.Time{}, func(row *models.InventoryRow) decimal.Decimal {
		row.PhysicalCount = value
		return row.PhysicalCount
	})
}

// Undo reverses a logged transaction: the ledger field is restored to the
// entry's old value, derived columns are recomputed, the entry is flagged
// undone and the reversal is itself appended to the log.
func (s *Service) Undo(ctx context.Context, actor, entryID string) (models.InventoryRow, error) {
	activitySnap, err := s.store.ReadAll(ctx, repository.TableActivity)
	if err != nil {
		return models.InventoryRow{}, fmt.Errorf("load activity log: %w", err)
	}
	entries, err := models.ParseActivityTable(activitySnap.Rows)
	if err != nil {
		return models.InventoryRow{}, err
	}

	entryIdx := -1
	for i := range entries {
		if entries[i].ID == entryID {
			entryIdx = i
			break
		}
	}
	if entryIdx == -1 {
		return models.InventoryRow{}, fmt.Errorf("activity entry %s: %w", entryID, models.ErrNotFound)
	}

	entry := entries[entryIdx]
	if entry.Undone {
		return models.InventoryRow{}, fmt.Errorf("activity entry %s: %w", entryID, models.ErrAlreadyUndone)
	}
	if entry.Field == FieldRollover {
		return models.InventoryRow{}, fmt.Errorf("rollover entries cannot be undone: %w", models.ErrValidation)
	}
	// A rollover sentinel after the entry means its period was archived.
	for _, later := range entries[entryIdx+1:] {
		if later.Field == FieldRollover {
			return models.InventoryRow{}, fmt.Errorf("activity entry %s: %w", entryID, models.ErrStaleEntry)
		}
	}

	invSnap, err := s.store.ReadAll(ctx, repository.TableInventory)
	if err != nil {
		return models.InventoryRow{}, fmt.Errorf("load inventory: %w", err)
	}
	rows, err := models.ParseInventoryTable(invSnap.Rows)
	if err != nil {
		return models.InventoryRow{}, err
	}

	idx := models.FindInventoryRow(rows, entry.ProductName)
	if idx == -1 {
		return models.InventoryRow{}, fmt.Errorf("product %s: %w", entry.ProductName, models.ErrStaleEntry)
	}

	row := &rows[idx]
	switch entry.Field {
	case models.FieldReceipts:
		row.Receipts = entry.OldValue
	case models.FieldConsumption:
		row.Consumption = entry.OldValue
	case models.FieldPhysicalCount:
		row.PhysicalCount = entry.OldValue
	default:
		return models.InventoryRow{}, fmt.Errorf("unknown ledger field %q: %w", entry.Field, models.ErrValidation)
	}
	row.Recalculate()

	if err := s.store.WriteAll(ctx, repository.TableInventory, models.InventoryTableCells(rows), invSnap.Version); err != nil {
		return models.InventoryRow{}, fmt.Errorf("persist inventory: %w", err)
	}

	entries[entryIdx].Undone = true
	undoEntry := models.ActivityLogEntry{
		ID:          s.newID(),
		Timestamp:   s.now().UTC(),
		ProductName: entry.ProductName,
		Field:       entry.Field,
		OldValue:    entry.NewValue,
		NewValue:    entry.OldValue,
		Actor:       actor,
	}
	entries = append(entries, undoEntry)

	if err := s.store.WriteAll(ctx, repository.TableActivity, models.ActivityTableCells(entries), activitySnap.Version); err != nil {
		return models.InventoryRow{}, fmt.Errorf("persist activity log: %w", err)
	}

	s.logger.Info("transaction undone",
		zap.String("entry_id", entryID),
		zap.String("product", entry.ProductName),
		zap.String("field", string(entry.Field)),
		zap.String("actor", actor))

	return rows[idx], nil
}

// LogRollover appends the sentinel that fences off the archived period's
// entries from undo. Called by the rollover engine after the ledger reset.
func (s *Service) LogRollover(ctx context.Context, period string) error {
	entry := models.ActivityLogEntry{
		ID:          s.newID(),
		Timestamp:   s.now().UTC(),
		ProductName: period,
		Field:       FieldRollover,
		Actor:       "system",
	}
	if err := s.store.Append(ctx, repository.TableActivity, entry.Cells()); err != nil {
		return fmt.Errorf("log rollover: %w", err)
	}
	return nil
}

// mutate applies one validated field change to one product, recomputes the
// derived closing stock, persists the full ledger under its version token and
// then appends the transaction to the activity log. Nothing is applied
// partially: a version conflict aborts before any write lands.
func (s *Service) mutate(ctx context.Context, actor, product string, field models.LedgerField, at time.Time, apply func(*models.InventoryRow) decimal.Decimal) (models.InventoryRow, error) {
	snap, err := s.store.ReadAll(ctx, repository.TableInventory)
	if err != nil {
		return models.InventoryRow{}, fmt.Errorf("load inventory: %w", err)
	}
	rows, err := models.ParseInventoryTable(snap.Rows)
	if err != nil {
		return models.InventoryRow{}, err
	}

	idx := models.FindInventoryRow(rows, product)
	if idx == -1 {
		return models.InventoryRow{}, fmt.Errorf("product %s: %w", product, models.ErrNotFound)
	}

	row := &rows[idx]
	oldValue := fieldValue(*row, field)
	newValue := apply(row)
	row.Recalculate()

	if err := s.store.WriteAll(ctx, repository.TableInventory, models.InventoryTableCells(rows), snap.Version); err != nil {
		return models.InventoryRow{}, fmt.Errorf("persist inventory: %w", err)
	}

	if at.IsZero() {
		at = s.now()
	}
	entry := models.ActivityLogEntry{
		ID:          s.newID(),
		Timestamp:   at.UTC(),
		ProductName: row.ProductName,
		Field:       field,
		OldValue:    oldValue,
		NewValue:    newValue,
		Actor:       actor,
	}
	if err := s.store.Append(ctx, repository.TableActivity, entry.Cells()); err != nil {
		// The ledger write already landed; surface the logging failure so the
		// user knows the audit trail is short one entry.
		return models.InventoryRow{}, fmt.Errorf("ledger updated but activity log append failed: %w", err)
	}

	s.logger.Info("ledger mutated",
		zap.String("product", row.ProductName),
		zap.String("field", string(field)),
		zap.String("old", oldValue.String()),
		zap.String("new", newValue.String()),
		zap.String("actor", actor))

	return rows[idx], nil
}

func fieldValue(row models.InventoryRow, field models.LedgerField) decimal.Decimal {
	switch field {
	case models.FieldReceipts:
		return row.Receipts
	case models.FieldConsumption:
		return row.Consumption
	case models.FieldPhysicalCount:
		return row.PhysicalCount
	}
	return decimal.Zero
}
