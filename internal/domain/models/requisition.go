package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RequisitionStatus is the state of a purchase/reorder request.
type RequisitionStatus string

const (
	StatusSubmitted         RequisitionStatus = "Submitted"
	StatusReceived          RequisitionStatus = "Received"
	StatusFollowUpRequested RequisitionStatus = "FollowUpRequested"
)

// Valid reports whether the status is one of the known states.
func (s RequisitionStatus) Valid() bool {
	switch s {
	case StatusSubmitted, StatusReceived, StatusFollowUpRequested:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s RequisitionStatus) Terminal() bool {
	return s == StatusReceived
}

// OrdersHeader is the column header row of the orders_db sheet. Orders are
// flattened one row per line item with the order-level fields repeated.
var OrdersHeader = []string{
	"Req ID", "Origin", "Product Name", "Qty", "UOM", "Dispatched Qty",
	"Status", "Supplier Ref", "Submitted At", "Updated At",
}

// RequisitionLine is one requested product within an order. DispatchedQty
// tracks partial deliveries from the warehouse; it is carried data, not a
// state of its own.
type RequisitionLine struct {
	ProductName   string
	Quantity      decimal.Decimal
	UOM           string
	DispatchedQty decimal.Decimal
}

// Remaining is the quantity still owed on the line.
func (l RequisitionLine) Remaining() decimal.Decimal {
	return l.Quantity.Sub(l.DispatchedQty)
}

// RequisitionOrder is a reorder request flowing from an outlet to the
// warehouse. Orders are never deleted; only their status (and dispatched
// quantities) change, and Received is terminal.
type RequisitionOrder struct {
	ID          string
	Origin      string
	LineItems   []RequisitionLine
	Status      RequisitionStatus
	SupplierRef string
	SubmittedAt time.Time
	UpdatedAt   time.Time
}

// Cells flattens the order into orders_db rows, one per line item.
func (o RequisitionOrder) Cells() [][]string {
	out := make([][]string, 0, len(o.LineItems))
	for _, line := range o.LineItems {
		out = append(out, []string{
			o.ID,
			o.Origin,
			line.ProductName,
			line.Quantity.String(),
			line.UOM,
			line.DispatchedQty.String(),
			string(o.Status),
			o.SupplierRef,
			o.SubmittedAt.Format(TimestampLayout),
			o.UpdatedAt.Format(TimestampLayout),
		})
	}
	return out
}

// ParseOrdersTable groups flattened orders_db rows back into orders,
// preserving first-appearance order and per-order line sequence.
func ParseOrdersTable(rows [][]string) ([]RequisitionOrder, error) {
	if hasHeader(rows, OrdersHeader[0]) {
		rows = rows[1:]
	}

	var order []string
	byID := map[string]*RequisitionOrder{}

	for i, values := range rows {
		id := cell(values, 0)
		if id == "" {
			continue
		}

		line := RequisitionLine{
			ProductName: cell(values, 2),
			UOM:         cell(values, 4),
		}

		var err error
		if line.Quantity, err = parseDecimalCell(values, 3); err != nil {
			return nil, fmt.Errorf("orders row %d: %w", i+1, err)
		}
		if line.DispatchedQty, err = parseDecimalCell(values, 5); err != nil {
			return nil, fmt.Errorf("orders row %d: %w", i+1, err)
		}

		req, ok := byID[id]
		if !ok {
			status := RequisitionStatus(cell(values, 6))
			if !status.Valid() {
				return nil, fmt.Errorf("orders row %d: unknown status %q", i+1, cell(values, 6))
			}

			submittedAt, err := parseTimestampCell(values, 8)
			if err != nil {
				return nil, fmt.Errorf("orders row %d: %w", i+1, err)
			}
			updatedAt, err := parseTimestampCell(values, 9)
			if err != nil {
				updatedAt = submittedAt
			}

			req = &RequisitionOrder{
				ID:          id,
				Origin:      cell(values, 1),
				Status:      status,
				SupplierRef: cell(values, 7),
				SubmittedAt: submittedAt,
				UpdatedAt:   updatedAt,
			}
			byID[id] = req
			order = append(order, id)
		}
		req.LineItems = append(req.LineItems, line)
	}

	out := make([]RequisitionOrder, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}

// OrdersTableCells renders the full worksheet, header included.
func OrdersTableCells(orders []RequisitionOrder) [][]string {
	out := [][]string{OrdersHeader}
	for _, o := range orders {
		out = append(out, o.Cells()...)
	}
	return out
}

// FindOrder locates an order by id. Returns the index or -1.
func FindOrder(orders []RequisitionOrder, id string) int {
	for i := range orders {
		if orders[i].ID == id {
			return i
		}
	}
	return -1
}
