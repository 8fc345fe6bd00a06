// Package requisition implements the reorder workflow between the restaurant
// outlets and the warehouse: a small state machine over orders_db rows.
//
// Submitted -> Received (terminal)
// Submitted -> FollowUpRequested -> Received
//
// orders_db is the one table both portals write, so every status change goes
// through a version-checked full-table write and a concurrent writer is
// rejected instead of silently overwritten.
package requisition

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ndiasse/stockroom/internal/domain/models"
	"github.com/ndiasse/stockroom/internal/repository"
)

// Service implements the requisition workflow.
type Service struct {
	store  repository.TableStore
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewService constructs a requisition service.
func NewService(store repository.TableStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
		// Short ids keep the sheet readable; eight hex chars is what the
		// warehouse staff are used to quoting.
		newID: func() string { return uuid.NewString()[:8] },
	}
}

// Orders returns all requisitions, optionally filtered by origin outlet.
func (s *Service) Orders(ctx context.Context, origin string) ([]models.RequisitionOrder, error) {
	snap, err := s.store.ReadAll(ctx, repository.TableOrders)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	orders, err := models.ParseOrdersTable(snap.Rows)
	if err != nil {
		return nil, err
	}

	if origin == "" {
		return orders, nil
	}
	filtered := orders[:0]
	for _, order := range orders {
		if strings.EqualFold(order.Origin, origin) {
			filtered = append(filtered, order)
		}
	}
	return filtered, nil
}

// Order returns a single requisition by id.
func (s *Service) Order(ctx context.Context, id string) (models.RequisitionOrder, error) {
	orders, err := s.Orders(ctx, "")
	if err != nil {
		return models.RequisitionOrder{}, err
	}
	idx := models.FindOrder(orders, id)
	if idx == -1 {
		return models.RequisitionOrder{}, fmt.Errorf("order %s: %w", id, models.ErrNotFound)
	}
	return orders[idx], nil
}

// Submit creates a new order in the Submitted state. An order without line
// items is rejected.
func (s *Service) Submit(ctx context.Context, origin, supplierRef string, lines []models.RequisitionLine) (models.RequisitionOrder, error) {
	if origin == "" {
		return models.RequisitionOrder{}, fmt.Errorf("origin must not be empty: %w", models.ErrValidation)
	}
	if len(lines) == 0 {
		return models.RequisitionOrder{}, fmt.Errorf("order has no line items: %w", models.ErrValidation)
	}
	for i, line := range lines {
		if line.ProductName == "" {
			return models.RequisitionOrder{}, fmt.Errorf("line %d: empty product name: %w", i+1, models.ErrValidation)
		}
		if !line.Quantity.IsPositive() {
			return models.RequisitionOrder{}, fmt.Errorf("line %d: quantity %s must be positive: %w", i+1, line.Quantity, models.ErrValidation)
		}
		lines[i].DispatchedQty = decimal.Zero
	}

	now := s.now().UTC()
	order := models.RequisitionOrder{
		ID:          s.newID(),
		Origin:      origin,
		LineItems:   lines,
		Status:      models.StatusSubmitted,
		SupplierRef: supplierRef,
		SubmittedAt: now,
		UpdatedAt:   now,
	}

	// New orders only append rows, which never conflicts with the other
	// portal's concurrent status updates.
	if err := s.store.Append(ctx, repository.TableOrders, order.Cells()...); err != nil {
		return models.RequisitionOrder{}, fmt.Errorf("persist order: %w", err)
	}

	s.logger.Info("requisition submitted",
		zap.String("order_id", order.ID),
		zap.String("origin", origin),
		zap.Int("lines", len(lines)))

	return order, nil
}

// MarkReceived moves an order to the terminal Received state. Receiving an
// already-received order fails with ErrInvalidTransition.
func (s *Service) MarkReceived(ctx context.Context, id string) (models.RequisitionOrder, error) {
	return s.transition(ctx, id, func(order *models.RequisitionOrder) error {
		if order.Status.Terminal() {
			return fmt.Errorf("order %s already received: %w", id, models.ErrInvalidTransition)
		}
		order.Status = models.StatusReceived
		return nil
	})
}

// RequestFollowUp flags an order for follow-up. Re-requesting is a no-op
// success, and a received order can no longer be followed up.
func (s *Service) RequestFollowUp(ctx context.Context, id string) (models.RequisitionOrder, error) {
	return s.transition(ctx, id, func(order *models.RequisitionOrder) error {
		if order.Status.Terminal() {
			return fmt.Errorf("order %s already received: %w", id, models.ErrInvalidTransition)
		}
		order.Status = models.StatusFollowUpRequested
		return nil
	})
}

// RecordDispatch books a partial or full delivery against one line item of a
// still-open order. Dispatching beyond the requested quantity is rejected.
func (s *Service) RecordDispatch(ctx context.Context, id, product string, qty decimal.Decimal) (models.RequisitionOrder, error) {
	if !qty.IsPositive() {
		return models.RequisitionOrder{}, fmt.Errorf("dispatch quantity %s must be positive: %w", qty, models.ErrValidation)
	}

	return s.transition(ctx, id, func(order *models.RequisitionOrder) error {
		if order.Status.Terminal() {
			return fmt.Errorf("order %s already received: %w", id, models.ErrInvalidTransition)
		}

		for i := range order.LineItems {
			line := &order.LineItems[i]
			if !strings.EqualFold(line.ProductName, product) {
				continue
			}
			if qty.GreaterThan(line.Remaining()) {
				return fmt.Errorf("dispatch %s exceeds remaining %s for %s: %w",
					qty, line.Remaining(), line.ProductName, models.ErrValidation)
			}
			line.DispatchedQty = line.DispatchedQty.Add(qty)
			return nil
		}
		return fmt.Errorf("order %s has no line for %s: %w", id, product, models.ErrNotFound)
	})
}

func (s *Service) transition(ctx context.Context, id string, apply func(*models.RequisitionOrder) error) (models.RequisitionOrder, error) {
	snap, err := s.store.ReadAll(ctx, repository.TableOrders)
	if err != nil {
		return models.RequisitionOrder{}, fmt.Errorf("load orders: %w", err)
	}
	orders, err := models.ParseOrdersTable(snap.Rows)
	if err != nil {
		return models.RequisitionOrder{}, err
	}

	idx := models.FindOrder(orders, id)
	if idx == -1 {
		return models.RequisitionOrder{}, fmt.Errorf("order %s: %w", id, models.ErrNotFound)
	}

	order := &orders[idx]
	before := order.Status
	if err := apply(order); err != nil {
		return models.RequisitionOrder{}, err
	}
	order.UpdatedAt = s.now().UTC()

	if err := s.store.WriteAll(ctx, repository.TableOrders, models.OrdersTableCells(orders), snap.Version); err != nil {
		return models.RequisitionOrder{}, fmt.Errorf("persist orders: %w", err)
	}

	s.logger.Info("requisition updated",
		zap.String("order_id", id),
		zap.String("from", string(before)),
		zap.String("to", string(order.Status)))

	return orders[idx], nil
}
