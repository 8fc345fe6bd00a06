package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerField identifies which inventory column a transaction touched.
type LedgerField string

const (
	FieldReceipts      LedgerField = "receipts"
	FieldConsumption   LedgerField = "consumption"
	FieldPhysicalCount LedgerField = "physical_count"
)

// ActivityHeader is the column header row of the activity_logs sheet.
var ActivityHeader = []string{
	"Entry ID", "Timestamp", "Product Name", "Field", "Old Value", "New Value",
	"Actor", "Undone",
}

// ActivityLogEntry is one transaction in the append-only activity log.
// Entries are never deleted; undo only flips the Undone marker and appends a
// fresh entry describing the reversal.
type ActivityLogEntry struct {
	ID          string
	Timestamp   time.Time
	ProductName string
	Field       LedgerField
	OldValue    decimal.Decimal
	NewValue    decimal.Decimal
	Actor       string
	Undone      bool
}

// Cells serializes the entry for the worksheet.
func (e ActivityLogEntry) Cells() []string {
	return []string{
		e.ID,
		e.Timestamp.Format(TimestampLayout),
		e.ProductName,
		string(e.Field),
		e.OldValue.String(),
		e.NewValue.String(),
		e.Actor,
		formatBool(e.Undone),
	}
}

// ParseActivityLogEntry reads one worksheet row.
func ParseActivityLogEntry(values []string) (ActivityLogEntry, error) {
	id := cell(values, 0)
	if id == "" {
		return ActivityLogEntry{}, fmt.Errorf("empty entry id")
	}

	ts, err := parseTimestampCell(values, 1)
	if err != nil {
		return ActivityLogEntry{}, err
	}

	entry := ActivityLogEntry{
		ID:          id,
		Timestamp:   ts,
		ProductName: cell(values, 2),
		Field:       LedgerField(cell(values, 3)),
		Actor:       cell(values, 6),
		Undone:      parseBoolCell(values, 7),
	}

	if entry.OldValue, err = parseDecimalCell(values, 4); err != nil {
		return ActivityLogEntry{}, err
	}
	if entry.NewValue, err = parseDecimalCell(values, 5); err != nil {
		return ActivityLogEntry{}, err
	}
	return entry, nil
}

// ParseActivityTable reads the whole activity_logs worksheet.
func ParseActivityTable(rows [][]string) ([]ActivityLogEntry, error) {
	if hasHeader(rows, ActivityHeader[0]) {
		rows = rows[1:]
	}

	out := make([]ActivityLogEntry, 0, len(rows))
	for i, values := range rows {
		if cell(values, 0) == "" {
			continue
		}
		entry, err := ParseActivityLogEntry(values)
		if err != nil {
			return nil, fmt.Errorf("activity row %d: %w", i+1, err)
		}
		out = append(out, entry)
	}
	return out, nil
}

// ActivityTableCells renders the full worksheet, header included.
func ActivityTableCells(entries []ActivityLogEntry) [][]string {
	out := make([][]string, 0, len(entries)+1)
	out = append(out, ActivityHeader)
	for _, entry := range entries {
		out = append(out, entry.Cells())
	}
	return out
}
