package models

import (
	"fmt"
	"time"
)

// ArchiveHeader is the column header row of the monthly_history sheet. Each
// archived period repeats its label on every copied inventory row.
var ArchiveHeader = append([]string{"Period"}, InventoryHeader...)

// MonthlyArchiveSnapshot is a frozen copy of the ledger taken at month close.
// Snapshots are immutable once written and keyed uniquely by period label.
type MonthlyArchiveSnapshot struct {
	PeriodLabel string
	ClosedAt    time.Time
	Rows        []InventoryRow
}

// Cells flattens the snapshot into monthly_history rows.
func (s MonthlyArchiveSnapshot) Cells() [][]string {
	out := make([][]string, 0, len(s.Rows))
	for _, row := range s.Rows {
		out = append(out, append([]string{s.PeriodLabel}, row.Cells()...))
	}
	return out
}

// ParseArchiveTable groups monthly_history rows back into snapshots, keeping
// the order periods first appear in the sheet (oldest first, since rows are
// only ever appended).
func ParseArchiveTable(rows [][]string) ([]MonthlyArchiveSnapshot, error) {
	if hasHeader(rows, ArchiveHeader[0]) {
		rows = rows[1:]
	}

	var order []string
	byPeriod := map[string]*MonthlyArchiveSnapshot{}

	for i, values := range rows {
		period := cell(values, 0)
		if period == "" {
			continue
		}
		row, err := ParseInventoryRow(values[1:])
		if err != nil {
			return nil, fmt.Errorf("history row %d: %w", i+1, err)
		}

		snap, ok := byPeriod[period]
		if !ok {
			snap = &MonthlyArchiveSnapshot{PeriodLabel: period}
			byPeriod[period] = snap
			order = append(order, period)
		}
		snap.Rows = append(snap.Rows, row)
	}

	out := make([]MonthlyArchiveSnapshot, 0, len(order))
	for _, period := range order {
		out = append(out, *byPeriod[period])
	}
	return out, nil
}

// HasPeriod reports whether a period label is already present in the archive.
func HasPeriod(snapshots []MonthlyArchiveSnapshot, period string) bool {
	for _, snap := range snapshots {
		if snap.PeriodLabel == period {
			return true
		}
	}
	return false
}
