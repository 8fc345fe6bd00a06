package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DaysInSheet is the number of day-of-month receipt columns on an outlet
// stock sheet. Day 31 exists even in shorter months; unused columns stay zero.
const DaysInSheet = 31

// OutletHeader is the column header row of a restaurant stock sheet
// (rest_01_inventory): fixed identity columns, one receipt column per day of
// month, then the derived totals.
var OutletHeader = buildOutletHeader()

func buildOutletHeader() []string {
	header := []string{"Product Name", "Category", "UOM", "Opening Stock"}
	for day := 1; day <= DaysInSheet; day++ {
		header = append(header, strconv.Itoa(day))
	}
	return append(header,
		"Total Received", "Consumption", "Closing Stock", "Physical Count", "Variance")
}

const (
	outletDayOffset      = 4
	outletTotalIdx       = outletDayOffset + DaysInSheet
	outletConsumptionIdx = outletTotalIdx + 1
	outletClosingIdx     = outletConsumptionIdx + 1
	outletPhysicalIdx    = outletClosingIdx + 1
	outletVarianceIdx    = outletPhysicalIdx + 1
)

// OutletStockRow is one product line on a restaurant's local stock-take
// sheet. Receipts are tracked per day of month; TotalReceived and
// ClosingStock are derived. A row with Counted=false has had no physical
// count this period and reports zero variance.
type OutletStockRow struct {
	ProductName   string
	Category      string
	UOM           string
	OpeningStock  decimal.Decimal
	DayReceipts   [DaysInSheet]decimal.Decimal
	TotalReceived decimal.Decimal
	Consumption   decimal.Decimal
	ClosingStock  decimal.Decimal
	PhysicalCount decimal.Decimal
	Counted       bool
}

// Recalculate restores the derived columns: total received from the day
// columns, closing stock from the flow equation.
func (r *OutletStockRow) Recalculate() {
	total := decimal.Zero
	for _, qty := range r.DayReceipts {
		total = total.Add(qty)
	}
	r.TotalReceived = total
	r.ClosingStock = r.OpeningStock.Add(total).Sub(r.Consumption)
}

// Variance is physical count minus derived closing stock, zero when no count
// has been taken.
func (r OutletStockRow) Variance() decimal.Decimal {
	if !r.Counted {
		return decimal.Zero
	}
	return r.PhysicalCount.Sub(r.ClosingStock)
}

// AddReceipt books a delivery into the given day-of-month column.
func (r *OutletStockRow) AddReceipt(day int, qty decimal.Decimal) error {
	if day < 1 || day > DaysInSheet {
		return fmt.Errorf("day %d out of range", day)
	}
	r.DayReceipts[day-1] = r.DayReceipts[day-1].Add(qty)
	r.Recalculate()
	return nil
}

// Cells serializes the row for the worksheet.
func (r OutletStockRow) Cells() []string {
	out := []string{r.ProductName, r.Category, r.UOM, r.OpeningStock.String()}
	for _, qty := range r.DayReceipts {
		out = append(out, qty.String())
	}
	physical := ""
	if r.Counted {
		physical = r.PhysicalCount.String()
	}
	return append(out,
		r.TotalReceived.String(),
		r.Consumption.String(),
		r.ClosingStock.String(),
		physical,
		r.Variance().String())
}

// ParseOutletRow reads one worksheet row.
func ParseOutletRow(values []string) (OutletStockRow, error) {
	name := cell(values, 0)
	if name == "" {
		return OutletStockRow{}, fmt.Errorf("empty product name")
	}

	row := OutletStockRow{
		ProductName: name,
		Category:    cell(values, 1),
		UOM:         cell(values, 2),
	}

	var err error
	if row.OpeningStock, err = parseDecimalCell(values, 3); err != nil {
		return OutletStockRow{}, err
	}
	for day := 0; day < DaysInSheet; day++ {
		if row.DayReceipts[day], err = parseDecimalCell(values, outletDayOffset+day); err != nil {
			return OutletStockRow{}, err
		}
	}
	if row.Consumption, err = parseDecimalCell(values, outletConsumptionIdx); err != nil {
		return OutletStockRow{}, err
	}
	if raw := cell(values, outletPhysicalIdx); raw != "" {
		if row.PhysicalCount, err = parseDecimalCell(values, outletPhysicalIdx); err != nil {
			return OutletStockRow{}, err
		}
		row.Counted = true
	}
	row.Recalculate()
	return row, nil
}

// ParseOutletTable reads a whole outlet stock worksheet.
func ParseOutletTable(rows [][]string) ([]OutletStockRow, error) {
	if hasHeader(rows, OutletHeader[0]) {
		rows = rows[1:]
	}

	out := make([]OutletStockRow, 0, len(rows))
	for i, values := range rows {
		if cell(values, 0) == "" {
			continue
		}
		row, err := ParseOutletRow(values)
		if err != nil {
			return nil, fmt.Errorf("outlet row %d: %w", i+1, err)
		}
		out = append(out, row)
	}
	return out, nil
}

// OutletTableCells renders the full worksheet, header included.
func OutletTableCells(rows []OutletStockRow) [][]string {
	out := make([][]string, 0, len(rows)+1)
	out = append(out, OutletHeader)
	for _, row := range rows {
		out = append(out, row.Cells())
	}
	return out
}

// FindOutletRow locates a product by name (case-insensitive). Returns the
// index or -1.
func FindOutletRow(rows []OutletStockRow, product string) int {
	for i := range rows {
		if strings.EqualFold(rows[i].ProductName, product) {
			return i
		}
	}
	return -1
}
