// Package outlet implements the restaurant portal's local stock table: daily
// counts over the rest_01_inventory sheet and acceptance of warehouse
// dispatches into the day-of-month receipt columns.
package outlet

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ndiasse/stockroom/internal/domain/models"
	"github.com/ndiasse/stockroom/internal/repository"
)

// Dispatcher records accepted deliveries against the originating requisition.
type Dispatcher interface {
	RecordDispatch(ctx context.Context, orderID, product string, qty decimal.Decimal) (models.RequisitionOrder, error)
}

// CountUpdate carries one product's daily stock-take figures. Nil fields are
// left untouched.
type CountUpdate struct {
	ProductName   string           `json:"product_name"`
	Consumption   *decimal.Decimal `json:"consumption,omitempty"`
	PhysicalCount *decimal.Decimal `json:"physical_count,omitempty"`
}

// Service implements the outlet stock operations.
type Service struct {
	store      repository.TableStore
	dispatcher Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewService constructs an outlet stock service.
func NewService(store repository.TableStore, dispatcher Dispatcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Stock returns the outlet's current stock rows.
func (s *Service) Stock(ctx context.Context) ([]models.OutletStockRow, error) {
	snap, err := s.store.ReadAll(ctx, repository.TableOutletStock)
	if err != nil {
		return nil, fmt.Errorf("load outlet stock: %w", err)
	}
	return models.ParseOutletTable(snap.Rows)
}

// SaveCounts applies a batch of daily stock-take figures and recomputes the
// derived columns. Unknown products or negative values reject the whole batch
// before anything is written.
func (s *Service) SaveCounts(ctx context.Context, updates []CountUpdate) ([]models.OutletStockRow, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("no counts provided: %w", models.ErrValidation)
	}

	snap, err := s.store.ReadAll(ctx, repository.TableOutletStock)
	if err != nil {
		return nil, fmt.Errorf("load outlet stock: %w", err)
	}
	rows, err := models.ParseOutletTable(snap.Rows)
	if err != nil {
		return nil, err
	}

	for _, update := range updates {
		idx := models.FindOutletRow(rows, update.ProductName)
		if idx == -1 {
			return nil, fmt.Errorf("product %s: %w", update.ProductName, models.ErrNotFound)
		}

		row := &rows[idx]
		if update.Consumption != nil {
			if update.Consumption.IsNegative() {
				return nil, fmt.Errorf("consumption %s for %s: %w", update.Consumption, update.ProductName, models.ErrValidation)
			}
			row.Consumption = *update.Consumption
		}
		if update.PhysicalCount != nil {
			if update.PhysicalCount.IsNegative() {
				return nil, fmt.Errorf("physical count %s for %s: %w", update.PhysicalCount, update.ProductName, models.ErrValidation)
			}
			row.PhysicalCount = *update.PhysicalCount
			row.Counted = true
		}
		row.Recalculate()
	}

	if err := s.store.WriteAll(ctx, repository.TableOutletStock, models.OutletTableCells(rows), snap.Version); err != nil {
		return nil, fmt.Errorf("persist outlet stock: %w", err)
	}

	s.logger.Info("daily counts saved", zap.Int("products", len(updates)))
	return rows, nil
}

// AcceptDispatch books a delivered quantity into today's receipt column and
// records the dispatch against the originating requisition line. The
// requisition update runs first so an over-dispatch is rejected before the
// stock sheet changes.
func (s *Service) AcceptDispatch(ctx context.Context, orderID, product string, qty decimal.Decimal) (models.OutletStockRow, error) {
	if !qty.IsPositive() {
		return models.OutletStockRow{}, fmt.Errorf("accepted quantity %s must be positive: %w", qty, models.ErrValidation)
	}

	snap, err := s.store.ReadAll(ctx, repository.TableOutletStock)
	if err != nil {
		return models.OutletStockRow{}, fmt.Errorf("load outlet stock: %w", err)
	}
	rows, err := models.ParseOutletTable(snap.Rows)
	if err != nil {
		return models.OutletStockRow{}, err
	}

	idx := models.FindOutletRow(rows, product)
	if idx == -1 {
		return models.OutletStockRow{}, fmt.Errorf("product %s: %w", product, models.ErrNotFound)
	}

	if _, err := s.dispatcher.RecordDispatch(ctx, orderID, product, qty); err != nil {
		return models.OutletStockRow{}, err
	}

	day := s.now().Day()
	if err := rows[idx].AddReceipt(day, qty); err != nil {
		return models.OutletStockRow{}, fmt.Errorf("book receipt: %w", err)
	}

	if err := s.store.WriteAll(ctx, repository.TableOutletStock, models.OutletTableCells(rows), snap.Version); err != nil {
		return models.OutletStockRow{}, fmt.Errorf("persist outlet stock: %w", err)
	}

	s.logger.Info("dispatch accepted",
		zap.String("order_id", orderID),
		zap.String("product", product),
		zap.String("qty", qty.String()),
		zap.Int("day", day))

	return rows[idx], nil
}
