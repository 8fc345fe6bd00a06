// Package handlers adapts the portal services to HTTP. Each handler is a
// thin request/response shim; all rules live in the services.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ndiasse/stockroom/internal/domain/models"
	"github.com/ndiasse/stockroom/internal/repository"
)

// respondError maps the domain error taxonomy onto HTTP statuses and
// surfaces the human-readable message to the caller. Store failures and
// version conflicts are retryable by re-triggering the action; nothing is
// retried server-side.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound), errors.Is(err, repository.ErrTableNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrDuplicatePeriod),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrAlreadyUndone),
		errors.Is(err, models.ErrStaleEntry),
		errors.Is(err, repository.ErrVersionConflict):
		status = http.StatusConflict
	case errors.Is(err, repository.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

// actor resolves who performed the action for the activity log. There is no
// authentication layer; the portal sends a display name.
func actor(c *gin.Context, fallback string) string {
	if name := c.GetHeader("X-Actor"); name != "" {
		return name
	}
	return fallback
}

type inventoryRowResponse struct {
	ProductName   string          `json:"product_name"`
	UOM           string          `json:"uom"`
	OpeningStock  decimal.Decimal `json:"opening_stock"`
	Receipts      decimal.Decimal `json:"receipts"`
	Consumption   decimal.Decimal `json:"consumption"`
	PhysicalCount decimal.Decimal `json:"physical_count"`
	ClosingStock  decimal.Decimal `json:"closing_stock"`
	Variance      decimal.Decimal `json:"variance"`
}

func toInventoryResponse(row models.InventoryRow) inventoryRowResponse {
	return inventoryRowResponse{
		ProductName:   row.ProductName,
		UOM:           row.UOM,
		OpeningStock:  row.OpeningStock,
		Receipts:      row.Receipts,
		Consumption:   row.Consumption,
		PhysicalCount: row.PhysicalCount,
		ClosingStock:  row.ClosingStock,
		Variance:      row.Variance(),
	}
}

func toInventoryResponses(rows []models.InventoryRow) []inventoryRowResponse {
	out := make([]inventoryRowResponse, len(rows))
	for i, row := range rows {
		out[i] = toInventoryResponse(row)
	}
	return out
}

type activityEntryResponse struct {
	ID          string          `json:"id"`
	Timestamp   string          `json:"timestamp"`
	ProductName string          `json:"product_name"`
	Field       string          `json:"field"`
	OldValue    decimal.Decimal `json:"old_value"`
	NewValue    decimal.Decimal `json:"new_value"`
	Actor       string          `json:"actor"`
	Undone      bool            `json:"undone"`
}

func toActivityResponses(entries []models.ActivityLogEntry) []activityEntryResponse {
	out := make([]activityEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = activityEntryResponse{
			ID:          e.ID,
			Timestamp:   e.Timestamp.Format(models.TimestampLayout),
			ProductName: e.ProductName,
			Field:       string(e.Field),
			OldValue:    e.OldValue,
			NewValue:    e.NewValue,
			Actor:       e.Actor,
			Undone:      e.Undone,
		}
	}
	return out
}

type requisitionLineResponse struct {
	ProductName   string          `json:"product_name"`
	Quantity      decimal.Decimal `json:"quantity"`
	UOM           string          `json:"uom"`
	DispatchedQty decimal.Decimal `json:"dispatched_qty"`
	Remaining     decimal.Decimal `json:"remaining"`
}

type requisitionResponse struct {
	ID          string                    `json:"id"`
	Origin      string                    `json:"origin"`
	Status      string                    `json:"status"`
	SupplierRef string                    `json:"supplier_ref,omitempty"`
	SubmittedAt string                    `json:"submitted_at"`
	UpdatedAt   string                    `json:"updated_at"`
	LineItems   []requisitionLineResponse `json:"line_items"`
}

func toRequisitionResponse(order models.RequisitionOrder) requisitionResponse {
	resp := requisitionResponse{
		ID:          order.ID,
		Origin:      order.Origin,
		Status:      string(order.Status),
		SupplierRef: order.SupplierRef,
		SubmittedAt: order.SubmittedAt.Format(models.TimestampLayout),
		UpdatedAt:   order.UpdatedAt.Format(models.TimestampLayout),
	}
	for _, line := range order.LineItems {
		resp.LineItems = append(resp.LineItems, requisitionLineResponse{
			ProductName:   line.ProductName,
			Quantity:      line.Quantity,
			UOM:           line.UOM,
			DispatchedQty: line.DispatchedQty,
			Remaining:     line.Remaining(),
		})
	}
	return resp
}

func toRequisitionResponses(orders []models.RequisitionOrder) []requisitionResponse {
	out := make([]requisitionResponse, len(orders))
	for i, order := range orders {
		out[i] = toRequisitionResponse(order)
	}
	return out
}

type outletRowResponse struct {
	ProductName   string            `json:"product_name"`
	Category      string            `json:"category"`
	UOM           string            `json:"uom"`
	OpeningStock  decimal.Decimal   `json:"opening_stock"`
	DayReceipts   []decimal.Decimal `json:"day_receipts"`
	TotalReceived decimal.Decimal   `json:"total_received"`
	Consumption   decimal.Decimal   `json:"consumption"`
	ClosingStock  decimal.Decimal   `json:"closing_stock"`
	PhysicalCount *decimal.Decimal  `json:"physical_count,omitempty"`
	Variance      decimal.Decimal   `json:"variance"`
}

func toOutletResponse(row models.OutletStockRow) outletRowResponse {
	resp := outletRowResponse{
		ProductName:   row.ProductName,
		Category:      row.Category,
		UOM:           row.UOM,
		OpeningStock:  row.OpeningStock,
		DayReceipts:   row.DayReceipts[:],
		TotalReceived: row.TotalReceived,
		Consumption:   row.Consumption,
		ClosingStock:  row.ClosingStock,
		Variance:      row.Variance(),
	}
	if row.Counted {
		count := row.PhysicalCount
		resp.PhysicalCount = &count
	}
	return resp
}

func toOutletResponses(rows []models.OutletStockRow) []outletRowResponse {
	out := make([]outletRowResponse, len(rows))
	for i, row := range rows {
		out[i] = toOutletResponse(row)
	}
	return out
}
