// Package repository defines the table-store abstraction the services persist
// through. A store is a set of named worksheets holding rows of string cells;
// implementations exist for Google Sheets and for memory (tests, local dev).
package repository

import (
	"context"
	"errors"
)

// Worksheet names of the backing spreadsheet.
const (
	TableInventory   = "persistent_inventory"
	TableActivity    = "activity_logs"
	TableHistory     = "monthly_history"
	TableOrders      = "orders_db"
	TableMetadata    = "product_metadata"
	TableOutletStock = "rest_01_inventory"
	TableParLevels   = "par_levels"
)

var (
	// ErrVersionConflict indicates a WriteAll against a snapshot another
	// writer has since replaced. The caller re-reads and re-applies.
	ErrVersionConflict = errors.New("table modified since read")

	// ErrStoreUnavailable indicates the backing spreadsheet could not be
	// reached. Surfaced to the user as retryable; never retried internally.
	ErrStoreUnavailable = errors.New("sheet store unavailable")

	// ErrTableNotFound indicates an unknown worksheet name.
	ErrTableNotFound = errors.New("worksheet not found")
)

// Version is an opaque optimistic-concurrency token for one table. A write
// carrying a stale token is rejected, which is what keeps the two portals
// from silently overwriting each other on the shared tables.
type Version string

// TableSnapshot is the result of reading a whole worksheet.
type TableSnapshot struct {
	Table   string
	Rows    [][]string
	Version Version
}

// TableStore is the persistence surface of the application: whole-table reads
// and version-checked whole-table writes, plus appends for the append-only
// sheets (activity log, monthly history).
type TableStore interface {
	ReadAll(ctx context.Context, table string) (*TableSnapshot, error)
	WriteAll(ctx context.Context, table string, rows [][]string, expect Version) error
	Append(ctx context.Context, table string, rows ...[]string) error
}
