package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ndiasse/stockroom/internal/server/handlers"
)

// New wires the Gin engine with both portals and required middlewares.
func New(warehouse *handlers.WarehouseHandler, restaurant *handlers.RestaurantHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	wh := r.Group("/api/warehouse")
	{
		wh.GET("/inventory", warehouse.ListInventory)
		wh.POST("/inventory/receipts", warehouse.RecordReceipt)
		wh.PUT("/inventory/:product/consumption", warehouse.UpdateConsumption)
		wh.PUT("/inventory/:product/physical-count", warehouse.UpdatePhysicalCount)
		wh.POST("/inventory/import", warehouse.ImportInventory)
		wh.GET("/activity", warehouse.ListActivity)
		wh.POST("/activity/:id/undo", warehouse.UndoActivity)
		wh.POST("/close-month", warehouse.CloseMonth)
		wh.GET("/archive/:period", warehouse.GetArchive)
		wh.GET("/par-levels", warehouse.ParLevels)
		wh.GET("/orders", warehouse.ListOrders)
		wh.POST("/orders/:id/dispatch", warehouse.DispatchOrder)
		wh.POST("/orders/:id/received", warehouse.ReceiveOrder)
		wh.GET("/products", warehouse.ListProducts)
		wh.PUT("/products", warehouse.UpsertProduct)
	}

	rest := r.Group("/api/restaurant")
	{
		rest.GET("/stock", restaurant.ListStock)
		rest.PUT("/stock/counts", restaurant.SaveCounts)
		rest.POST("/stock/import", restaurant.ImportStock)
		rest.POST("/stock/accept-dispatch", restaurant.AcceptDispatch)
		rest.GET("/orders", restaurant.ListOrders)
		rest.POST("/orders", restaurant.SubmitOrder)
		rest.POST("/orders/:id/follow-up", restaurant.RequestFollowUp)
		rest.POST("/orders/:id/received", restaurant.ReceiveOrder)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
