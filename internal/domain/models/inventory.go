package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// InventoryHeader is the column header row of the persistent_inventory sheet.
var InventoryHeader = []string{
	"Product Name", "UOM", "Opening Stock", "Receipts", "Consumption",
	"Physical Count", "Closing Stock",
}

// InventoryRow is one product line in the warehouse ledger. ClosingStock is
// derived and must be recomputed after every mutation of the other stock
// columns; PhysicalCount is an independent manual observation.
type InventoryRow struct {
	ProductName   string
	UOM           string
	OpeningStock  decimal.Decimal
	Receipts      decimal.Decimal
	Consumption   decimal.Decimal
	PhysicalCount decimal.Decimal
	ClosingStock  decimal.Decimal
}

// Recalculate restores the closing stock invariant
// closing = opening + receipts - consumption.
func (r *InventoryRow) Recalculate() {
	r.ClosingStock = r.OpeningStock.Add(r.Receipts).Sub(r.Consumption)
}

// Variance is the gap between the counted quantity and the derived closing
// stock.
func (r InventoryRow) Variance() decimal.Decimal {
	return r.PhysicalCount.Sub(r.ClosingStock)
}

// Cells serializes the row for the worksheet.
func (r InventoryRow) Cells() []string {
	return []string{
		r.ProductName,
		r.UOM,
		r.OpeningStock.String(),
		r.Receipts.String(),
		r.Consumption.String(),
		r.PhysicalCount.String(),
		r.ClosingStock.String(),
	}
}

// ParseInventoryRow reads one worksheet row.
func ParseInventoryRow(values []string) (InventoryRow, error) {
	name := cell(values, 0)
	if name == "" {
		return InventoryRow{}, fmt.Errorf("empty product name")
	}

	row := InventoryRow{ProductName: name, UOM: cell(values, 1)}

	var err error
	if row.OpeningStock, err = parseDecimalCell(values, 2); err != nil {
		return InventoryRow{}, err
	}
	if row.Receipts, err = parseDecimalCell(values, 3); err != nil {
		return InventoryRow{}, err
	}
	if row.Consumption, err = parseDecimalCell(values, 4); err != nil {
		return InventoryRow{}, err
	}
	if row.PhysicalCount, err = parseDecimalCell(values, 5); err != nil {
		return InventoryRow{}, err
	}
	row.Recalculate()
	return row, nil
}

// ParseInventoryTable reads a whole worksheet, skipping the header row when
// present and ignoring fully blank rows.
func ParseInventoryTable(rows [][]string) ([]InventoryRow, error) {
	if hasHeader(rows, InventoryHeader[0]) {
		rows = rows[1:]
	}

	out := make([]InventoryRow, 0, len(rows))
	for i, values := range rows {
		if cell(values, 0) == "" {
			continue
		}
		row, err := ParseInventoryRow(values)
		if err != nil {
			return nil, fmt.Errorf("inventory row %d: %w", i+1, err)
		}
		out = append(out, row)
	}
	return out, nil
}

// InventoryTableCells renders the full worksheet, header included.
func InventoryTableCells(rows []InventoryRow) [][]string {
	out := make([][]string, 0, len(rows)+1)
	out = append(out, InventoryHeader)
	for _, row := range rows {
		out = append(out, row.Cells())
	}
	return out
}

// FindInventoryRow locates a product by name (case-insensitive, like the
// spreadsheet lookups it replaces). Returns the index or -1.
func FindInventoryRow(rows []InventoryRow, product string) int {
	for i := range rows {
		if strings.EqualFold(rows[i].ProductName, product) {
			return i
		}
	}
	return -1
}
