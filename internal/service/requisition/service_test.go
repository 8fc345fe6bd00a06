package requisition

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndiasse/stockroom/internal/domain/models"
	"github.com/ndiasse/stockroom/internal/repository/memory"
)

func newTestService(store *memory.Store) *Service {
	svc := NewService(store, nil)
	svc.now = func() time.Time {
		return time.Date(2026, 8, 15, 9, 30, 0, 0, time.UTC)
	}
	seq := 0
	svc.newID = func() string {
		seq++
		return fmt.Sprintf("ord%05d", seq)
	}
	return svc
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func submitSample(t *testing.T, svc *Service) models.RequisitionOrder {
	t.Helper()
	order, err := svc.Submit(context.Background(), "Restaurant 01", "", []models.RequisitionLine{
		{ProductName: "Rice", Quantity: dec("25"), UOM: "kg"},
		{ProductName: "Oil", Quantity: dec("10"), UOM: "ltr"},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	return order
}

func TestSubmitCreatesSubmittedOrder(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(store)

	order := submitSample(t, svc)
	if order.Status != models.StatusSubmitted {
		t.Errorf("status = %q, want submitted", order.Status)
	}
	if len(order.ID) != 8 {
		t.Errorf("order id %q, want 8 characters", order.ID)
	}

	// The round trip through the table must preserve the order.
	got, err := svc.Order(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("Order failed: %v", err)
	}
	if len(got.LineItems) != 2 {
		t.Fatalf("lines = %d, want 2", len(got.LineItems))
	}
	if !got.LineItems[0].Quantity.Equal(dec("25")) || !got.LineItems[0].DispatchedQty.IsZero() {
		t.Errorf("unexpected first line: %+v", got.LineItems[0])
	}
}

func TestSubmitValidation(t *testing.T) {
	svc := newTestService(memory.NewStore())
	ctx := context.Background()

	tests := []struct {
		name   string
		origin string
		lines  []models.RequisitionLine
	}{
		{name: "empty origin", origin: "", lines: []models.RequisitionLine{{ProductName: "Rice", Quantity: dec("1")}}},
		{name: "no lines", origin: "Restaurant 01", lines: nil},
		{name: "empty product", origin: "Restaurant 01", lines: []models.RequisitionLine{{ProductName: "", Quantity: dec("1")}}},
		{name: "zero quantity", origin: "Restaurant 01", lines: []models.RequisitionLine{{ProductName: "Rice", Quantity: decimal.Zero}}},
		{name: "negative quantity", origin: "Restaurant 01", lines: []models.RequisitionLine{{ProductName: "Rice", Quantity: dec("-5")}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Submit(ctx, tc.origin, "", tc.lines); !errors.Is(err, models.ErrValidation) {
				t.Fatalf("got %v, want ErrValidation", err)
			}
		})
	}
}

func TestMarkReceivedIsTerminal(t *testing.T) {
	svc := newTestService(memory.NewStore())
	ctx := context.Background()

	order := submitSample(t, svc)

	got, err := svc.MarkReceived(ctx, order.ID)
	if err != nil {
		t.Fatalf("MarkReceived failed: %v", err)
	}
	if got.Status != models.StatusReceived {
		t.Errorf("status = %q, want received", got.Status)
	}

	if _, err := svc.MarkReceived(ctx, order.ID); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("second receive: got %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.RequestFollowUp(ctx, order.ID); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("follow-up after receive: got %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.RecordDispatch(ctx, order.ID, "Rice", dec("1")); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("dispatch after receive: got %v, want ErrInvalidTransition", err)
	}
}

func TestRequestFollowUpIsIdempotent(t *testing.T) {
	svc := newTestService(memory.NewStore())
	ctx := context.Background()

	order := submitSample(t, svc)

	for i := 0; i < 2; i++ {
		got, err := svc.RequestFollowUp(ctx, order.ID)
		if err != nil {
			t.Fatalf("RequestFollowUp #%d failed: %v", i+1, err)
		}
		if got.Status != models.StatusFollowUpRequested {
			t.Errorf("status = %q, want follow_up_requested", got.Status)
		}
	}

	// A followed-up order can still be received.
	got, err := svc.MarkReceived(ctx, order.ID)
	if err != nil {
		t.Fatalf("MarkReceived failed: %v", err)
	}
	if got.Status != models.StatusReceived {
		t.Errorf("status = %q, want received", got.Status)
	}
}

func TestRecordDispatchTracksRemaining(t *testing.T) {
	svc := newTestService(memory.NewStore())
	ctx := context.Background()

	order := submitSample(t, svc)

	got, err := svc.RecordDispatch(ctx, order.ID, "Rice", dec("10"))
	if err != nil {
		t.Fatalf("first dispatch failed: %v", err)
	}
	if !got.LineItems[0].DispatchedQty.Equal(dec("10")) {
		t.Errorf("dispatched = %s, want 10", got.LineItems[0].DispatchedQty)
	}
	if !got.LineItems[0].Remaining().Equal(dec("15")) {
		t.Errorf("remaining = %s, want 15", got.LineItems[0].Remaining())
	}

	// Over-dispatch of the remaining quantity is rejected.
	if _, err := svc.RecordDispatch(ctx, order.ID, "Rice", dec("16")); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("over-dispatch: got %v, want ErrValidation", err)
	}

	// Dispatching the exact remainder closes out the line.
	got, err = svc.RecordDispatch(ctx, order.ID, "Rice", dec("15"))
	if err != nil {
		t.Fatalf("final dispatch failed: %v", err)
	}
	if !got.LineItems[0].Remaining().IsZero() {
		t.Errorf("remaining = %s, want 0", got.LineItems[0].Remaining())
	}

	if _, err := svc.RecordDispatch(ctx, order.ID, "Rice", dec("1")); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("dispatch past full: got %v, want ErrValidation", err)
	}
	if _, err := svc.RecordDispatch(ctx, order.ID, "Saffron", dec("1")); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("unknown line: got %v, want ErrNotFound", err)
	}
	if _, err := svc.RecordDispatch(ctx, order.ID, "Oil", decimal.Zero); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("zero dispatch: got %v, want ErrValidation", err)
	}
}

func TestOrdersFilterByOrigin(t *testing.T) {
	svc := newTestService(memory.NewStore())
	ctx := context.Background()

	if _, err := svc.Submit(ctx, "Restaurant 01", "", []models.RequisitionLine{{ProductName: "Rice", Quantity: dec("5")}}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := svc.Submit(ctx, "Restaurant 02", "", []models.RequisitionLine{{ProductName: "Oil", Quantity: dec("3")}}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	all, err := svc.Orders(ctx, "")
	if err != nil {
		t.Fatalf("Orders failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all orders = %d, want 2", len(all))
	}

	filtered, err := svc.Orders(ctx, "restaurant 01")
	if err != nil {
		t.Fatalf("Orders failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Origin != "Restaurant 01" {
		t.Fatalf("filtered = %+v, want the Restaurant 01 order", filtered)
	}
}

func TestUnknownOrder(t *testing.T) {
	svc := newTestService(memory.NewStore())

	if _, err := svc.Order(context.Background(), "nope1234"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if _, err := svc.MarkReceived(context.Background(), "nope1234"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
