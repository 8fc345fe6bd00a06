package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Worksheet cell helpers. Every table travels as rows of string cells; the
// parse helpers tolerate the formatting quirks a hand-edited spreadsheet
// accumulates (blank cells, stray whitespace, thousands separators).

const (
	// DateLayout is used for date-only cells.
	DateLayout = "2006-01-02"
	// TimestampLayout is used for activity and requisition timestamps.
	TimestampLayout = "2006-01-02 15:04:05"
)

func cell(values []string, idx int) string {
	if idx >= len(values) {
		return ""
	}
	return strings.TrimSpace(values[idx])
}

func parseDecimalCell(values []string, idx int) (decimal.Decimal, error) {
	raw := cell(values, idx)
	if raw == "" {
		return decimal.Zero, nil
	}
	raw = strings.ReplaceAll(raw, ",", "")
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("column %d: bad number %q: %w", idx+1, raw, err)
	}
	return value, nil
}

func parseTimestampCell(values []string, idx int) (time.Time, error) {
	raw := cell(values, idx)
	if raw == "" {
		return time.Time{}, fmt.Errorf("column %d: empty timestamp", idx+1)
	}
	if ts, err := time.Parse(TimestampLayout, raw); err == nil {
		return ts, nil
	}
	ts, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("column %d: bad timestamp %q: %w", idx+1, raw, err)
	}
	return ts, nil
}

func parseBoolCell(values []string, idx int) bool {
	switch strings.ToLower(cell(values, idx)) {
	case "true", "yes", "1":
		return true
	}
	return false
}

func formatBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// hasHeader reports whether the first row of a block is the column header of
// the given table, so parsers can skip it regardless of whether the backend
// returns it.
func hasHeader(rows [][]string, firstColumn string) bool {
	return len(rows) > 0 && strings.EqualFold(cell(rows[0], 0), firstColumn)
}
