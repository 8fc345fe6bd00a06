package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ndiasse/stockroom/internal/domain/models"
	"github.com/ndiasse/stockroom/internal/service/importer"
	"github.com/ndiasse/stockroom/internal/service/outlet"
	"github.com/ndiasse/stockroom/internal/service/requisition"
)

// RestaurantHandler serves a single restaurant's operations portal.
type RestaurantHandler struct {
	origin   string
	stock    *outlet.Service
	orders   *requisition.Service
	importer *importer.Service
	logger   *zap.Logger
}

// NewRestaurantHandler constructs the restaurant portal adapter. origin is
// the outlet name stamped on every requisition it raises.
func NewRestaurantHandler(origin string, stockSvc *outlet.Service, orderSvc *requisition.Service, importerSvc *importer.Service, logger *zap.Logger) *RestaurantHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RestaurantHandler{
		origin:   origin,
		stock:    stockSvc,
		orders:   orderSvc,
		importer: importerSvc,
		logger:   logger,
	}
}

// ListStock returns the outlet's stock sheet.
func (h *RestaurantHandler) ListStock(c *gin.Context) {
	rows, err := h.stock.Stock(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stock": toOutletResponses(rows)})
}

type saveCountsRequest struct {
	Counts []outlet.CountUpdate `json:"counts" binding:"required"`
}

// SaveCounts applies the daily stock take.
func (h *RestaurantHandler) SaveCounts(c *gin.Context) {
	var req saveCountsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	rows, err := h.stock.SaveCounts(c.Request.Context(), req.Counts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stock": toOutletResponses(rows)})
}

// ImportStock merges a decoded stock-take template into the outlet sheet.
func (h *RestaurantHandler) ImportStock(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	report, err := h.importer.ImportOutletStock(c.Request.Context(), req.Records)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type acceptDispatchRequest struct {
	OrderID     string          `json:"order_id" binding:"required"`
	ProductName string          `json:"product_name" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// AcceptDispatch books a delivered quantity into today's receipt column.
func (h *RestaurantHandler) AcceptDispatch(c *gin.Context) {
	var req acceptDispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	row, err := h.stock.AcceptDispatch(c.Request.Context(), req.OrderID, req.ProductName, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOutletResponse(row))
}

// ListOrders returns this outlet's requisitions.
func (h *RestaurantHandler) ListOrders(c *gin.Context) {
	orders, err := h.orders.Orders(c.Request.Context(), h.origin)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": toRequisitionResponses(orders)})
}

type submitOrderRequest struct {
	SupplierRef string             `json:"supplier_ref"`
	Lines       []submitLineFields `json:"lines" binding:"required"`
}

type submitLineFields struct {
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UOM         string          `json:"uom"`
}

// SubmitOrder raises a new requisition to the warehouse.
func (h *RestaurantHandler) SubmitOrder(c *gin.Context) {
	var req submitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	lines := make([]models.RequisitionLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = models.RequisitionLine{
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UOM:         l.UOM,
		}
	}

	order, err := h.orders.Submit(c.Request.Context(), h.origin, req.SupplierRef, lines)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRequisitionResponse(order))
}

// RequestFollowUp flags an order for follow-up; repeating it is a no-op.
func (h *RestaurantHandler) RequestFollowUp(c *gin.Context) {
	order, err := h.orders.RequestFollowUp(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRequisitionResponse(order))
}

// ReceiveOrder marks an order fully received.
func (h *RestaurantHandler) ReceiveOrder(c *gin.Context) {
	order, err := h.orders.MarkReceived(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRequisitionResponse(order))
}
