package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ndiasse/stockroom/internal/domain/models"
	"github.com/ndiasse/stockroom/internal/service/catalog"
	"github.com/ndiasse/stockroom/internal/service/importer"
	"github.com/ndiasse/stockroom/internal/service/ledger"
	"github.com/ndiasse/stockroom/internal/service/paranalysis"
	"github.com/ndiasse/stockroom/internal/service/requisition"
	"github.com/ndiasse/stockroom/internal/service/rollover"
)

const warehouseActor = "warehouse"

// WarehouseHandler serves the warehouse manager portal.
type WarehouseHandler struct {
	ledger   *ledger.Service
	rollover *rollover.Service
	par      *paranalysis.Service
	orders   *requisition.Service
	catalog  *catalog.Service
	importer *importer.Service
	logger   *zap.Logger
}

// NewWarehouseHandler constructs the warehouse portal adapter.
func NewWarehouseHandler(
	ledgerSvc *ledger.Service,
	rolloverSvc *rollover.Service,
	parSvc *paranalysis.Service,
	orderSvc *requisition.Service,
	catalogSvc *catalog.Service,
	importerSvc *importer.Service,
	logger *zap.Logger,
) *WarehouseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WarehouseHandler{
		ledger:   ledgerSvc,
		rollover: rolloverSvc,
		par:      parSvc,
		orders:   orderSvc,
		catalog:  catalogSvc,
		importer: importerSvc,
		logger:   logger,
	}
}

// ListInventory returns the current ledger.
func (h *WarehouseHandler) ListInventory(c *gin.Context) {
	rows, err := h.ledger.Inventory(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inventory": toInventoryResponses(rows)})
}

type receiptRequest struct {
	ProductName string          `json:"product_name" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	Date        string          `json:"date"`
}

// RecordReceipt books a delivery against a product.
func (h *WarehouseHandler) RecordReceipt(c *gin.Context) {
	var req receiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var date time.Time
	if req.Date != "" {
		parsed, err := time.Parse(models.DateLayout, req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		date = parsed
	}

	row, err := h.ledger.RecordReceipt(c.Request.Context(), actor(c, warehouseActor), req.ProductName, req.Quantity, date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInventoryResponse(row))
}

type valueRequest struct {
	Value decimal.Decimal `json:"value"`
}

// UpdateConsumption overwrites a product's consumption.
func (h *WarehouseHandler) UpdateConsumption(c *gin.Context) {
	var req valueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	row, err := h.ledger.UpdateConsumption(c.Request.Context(), actor(c, warehouseActor), c.Param("product"), req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInventoryResponse(row))
}

// UpdatePhysicalCount overwrites a product's manually observed count.
func (h *WarehouseHandler) UpdatePhysicalCount(c *gin.Context) {
	var req valueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	row, err := h.ledger.UpdatePhysicalCount(c.Request.Context(), actor(c, warehouseActor), c.Param("product"), req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInventoryResponse(row))
}

type importRequest struct {
	Records [][]string `json:"records" binding:"required"`
}

// ImportInventory merges a decoded stock-take template into the ledger.
func (h *WarehouseHandler) ImportInventory(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	report, err := h.importer.ImportInventory(c.Request.Context(), req.Records)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListActivity returns the activity log, oldest first.
func (h *WarehouseHandler) ListActivity(c *gin.Context) {
	entries, err := h.ledger.Activity(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": toActivityResponses(entries)})
}

// UndoActivity reverses one logged transaction.
func (h *WarehouseHandler) UndoActivity(c *gin.Context) {
	row, err := h.ledger.Undo(c.Request.Context(), actor(c, warehouseActor), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInventoryResponse(row))
}

type closeMonthRequest struct {
	CurrentPeriod string `json:"current_period" binding:"required"`
	NextPeriod    string `json:"next_period" binding:"required"`
}

// CloseMonth archives the period and reseeds the ledger.
func (h *WarehouseHandler) CloseMonth(c *gin.Context) {
	var req closeMonthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.rollover.CloseMonth(c.Request.Context(), req.CurrentPeriod, req.NextPeriod); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"closed_period": req.CurrentPeriod, "next_period": req.NextPeriod})
}

// GetArchive returns one archived period.
func (h *WarehouseHandler) GetArchive(c *gin.Context) {
	snapshot, err := h.rollover.Archive(c.Request.Context(), c.Param("period"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"period": snapshot.PeriodLabel,
		"rows":   toInventoryResponses(snapshot.Rows),
	})
}

// ParLevels computes par-level suggestions; save=true also persists them.
func (h *WarehouseHandler) ParLevels(c *gin.Context) {
	window := 0
	if raw := c.Query("window"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "window must be a positive integer"})
			return
		}
		window = parsed
	}

	suggestions, err := h.par.Suggest(c.Request.Context(), window)
	if err != nil {
		respondError(c, err)
		return
	}

	saved := false
	if c.Query("save") == "true" {
		if err := h.par.Save(c.Request.Context(), suggestions); err != nil {
			respondError(c, err)
			return
		}
		saved = true
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions, "saved": saved})
}

// ListOrders returns requisitions from every outlet.
func (h *WarehouseHandler) ListOrders(c *gin.Context) {
	orders, err := h.orders.Orders(c.Request.Context(), c.Query("origin"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": toRequisitionResponses(orders)})
}

type dispatchRequest struct {
	ProductName string          `json:"product_name" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// DispatchOrder records quantities sent out against an order line.
func (h *WarehouseHandler) DispatchOrder(c *gin.Context) {
	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	order, err := h.orders.RecordDispatch(c.Request.Context(), c.Param("id"), req.ProductName, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRequisitionResponse(order))
}

// ReceiveOrder marks an order received (terminal).
func (h *WarehouseHandler) ReceiveOrder(c *gin.Context) {
	order, err := h.orders.MarkReceived(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRequisitionResponse(order))
}

// ListProducts returns the supplier reference table.
func (h *WarehouseHandler) ListProducts(c *gin.Context) {
	mappings, err := h.catalog.Mappings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	type mappingResponse struct {
		ProductName  string `json:"product_name"`
		SupplierName string `json:"supplier_name"`
		ContactInfo  string `json:"contact_info"`
	}
	out := make([]mappingResponse, len(mappings))
	for i, m := range mappings {
		out[i] = mappingResponse{m.ProductName, m.SupplierName, m.ContactInfo}
	}
	c.JSON(http.StatusOK, gin.H{"products": out})
}

type upsertProductRequest struct {
	ProductName  string `json:"product_name" binding:"required"`
	SupplierName string `json:"supplier_name" binding:"required"`
	ContactInfo  string `json:"contact_info"`
}

// UpsertProduct inserts or replaces one supplier mapping.
func (h *WarehouseHandler) UpsertProduct(c *gin.Context) {
	var req upsertProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	mapping := models.ProductSupplierMapping{
		ProductName:  req.ProductName,
		SupplierName: req.SupplierName,
		ContactInfo:  req.ContactInfo,
	}
	if err := h.catalog.Upsert(c.Request.Context(), mapping); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
