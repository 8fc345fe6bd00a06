package outlet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndiasse/stockroom/internal/domain/models"
	"github.com/ndiasse/stockroom/internal/repository"
	"github.com/ndiasse/stockroom/internal/repository/memory"
)

type fakeDispatcher struct {
	err   error
	calls []dispatchCall
}

type dispatchCall struct {
	orderID string
	product string
	qty     decimal.Decimal
}

func (d *fakeDispatcher) RecordDispatch(_ context.Context, orderID, product string, qty decimal.Decimal) (models.RequisitionOrder, error) {
	if d.err != nil {
		return models.RequisitionOrder{}, d.err
	}
	d.calls = append(d.calls, dispatchCall{orderID: orderID, product: product, qty: qty})
	return models.RequisitionOrder{ID: orderID}, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func seedStock(store *memory.Store, rows ...models.OutletStockRow) {
	for i := range rows {
		rows[i].Recalculate()
	}
	store.Seed(repository.TableOutletStock, models.OutletTableCells(rows))
}

func TestSaveCountsRecomputesDerivedColumns(t *testing.T) {
	store := memory.NewStore()
	seedStock(store, models.OutletStockRow{ProductName: "Rice", Category: "Dry", UOM: "kg", OpeningStock: dec("20")})

	svc := NewService(store, &fakeDispatcher{}, nil)
	rows, err := svc.SaveCounts(context.Background(), []CountUpdate{{
		ProductName:   "rice",
		Consumption:   decPtr("6"),
		PhysicalCount: decPtr("13"),
	}})
	if err != nil {
		t.Fatalf("SaveCounts failed: %v", err)
	}

	row := rows[0]
	if !row.ClosingStock.Equal(dec("14")) {
		t.Errorf("closing = %s, want 14", row.ClosingStock)
	}
	if !row.Counted {
		t.Error("row should be marked counted")
	}
	if !row.Variance().Equal(dec("-1")) {
		t.Errorf("variance = %s, want -1", row.Variance())
	}

	// The count survives the round trip through the sheet.
	persisted, err := svc.Stock(context.Background())
	if err != nil {
		t.Fatalf("Stock failed: %v", err)
	}
	if !persisted[0].PhysicalCount.Equal(dec("13")) || !persisted[0].Counted {
		t.Errorf("persisted row lost the count: %+v", persisted[0])
	}
}

func TestSaveCountsPartialUpdate(t *testing.T) {
	store := memory.NewStore()
	seedStock(store, models.OutletStockRow{ProductName: "Oil", UOM: "ltr", OpeningStock: dec("10"), Consumption: dec("2")})

	svc := NewService(store, &fakeDispatcher{}, nil)
	rows, err := svc.SaveCounts(context.Background(), []CountUpdate{{
		ProductName:   "Oil",
		PhysicalCount: decPtr("7"),
	}})
	if err != nil {
		t.Fatalf("SaveCounts failed: %v", err)
	}
	if !rows[0].Consumption.Equal(dec("2")) {
		t.Errorf("consumption = %s, want untouched 2", rows[0].Consumption)
	}
}

func TestSaveCountsRejectsBatchBeforeWriting(t *testing.T) {
	store := memory.NewStore()
	seedStock(store, models.OutletStockRow{ProductName: "Rice", UOM: "kg", OpeningStock: dec("20")})
	svc := NewService(store, &fakeDispatcher{}, nil)
	ctx := context.Background()

	before, _ := store.ReadAll(ctx, repository.TableOutletStock)

	tests := []struct {
		name    string
		updates []CountUpdate
		wantErr error
	}{
		{name: "empty batch", updates: nil, wantErr: models.ErrValidation},
		{name: "unknown product", updates: []CountUpdate{{ProductName: "Rice", Consumption: decPtr("1")}, {ProductName: "Ghost", Consumption: decPtr("1")}}, wantErr: models.ErrNotFound},
		{name: "negative consumption", updates: []CountUpdate{{ProductName: "Rice", Consumption: decPtr("-1")}}, wantErr: models.ErrValidation},
		{name: "negative count", updates: []CountUpdate{{ProductName: "Rice", PhysicalCount: decPtr("-1")}}, wantErr: models.ErrValidation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.SaveCounts(ctx, tc.updates); !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}

	after, _ := store.ReadAll(ctx, repository.TableOutletStock)
	if after.Version != before.Version {
		t.Error("rejected batches must not write")
	}
}

func TestAcceptDispatchBooksTodayColumn(t *testing.T) {
	store := memory.NewStore()
	seedStock(store, models.OutletStockRow{ProductName: "Rice", UOM: "kg", OpeningStock: dec("20")})

	dispatcher := &fakeDispatcher{}
	svc := NewService(store, dispatcher, nil)
	svc.now = func() time.Time {
		return time.Date(2026, 8, 17, 14, 0, 0, 0, time.UTC)
	}

	row, err := svc.AcceptDispatch(context.Background(), "ord12345", "Rice", dec("25"))
	if err != nil {
		t.Fatalf("AcceptDispatch failed: %v", err)
	}
	if !row.DayReceipts[16].Equal(dec("25")) {
		t.Errorf("day 17 receipts = %s, want 25", row.DayReceipts[16])
	}
	if !row.TotalReceived.Equal(dec("25")) || !row.ClosingStock.Equal(dec("45")) {
		t.Errorf("derived columns wrong: total=%s closing=%s", row.TotalReceived, row.ClosingStock)
	}

	if len(dispatcher.calls) != 1 {
		t.Fatalf("dispatcher calls = %d, want 1", len(dispatcher.calls))
	}
	call := dispatcher.calls[0]
	if call.orderID != "ord12345" || call.product != "Rice" || !call.qty.Equal(dec("25")) {
		t.Errorf("unexpected dispatch call: %+v", call)
	}

	// A second delivery on the same day accumulates in the same column.
	row, err = svc.AcceptDispatch(context.Background(), "ord12345", "Rice", dec("5"))
	if err != nil {
		t.Fatalf("second AcceptDispatch failed: %v", err)
	}
	if !row.DayReceipts[16].Equal(dec("30")) {
		t.Errorf("day 17 receipts = %s, want 30", row.DayReceipts[16])
	}
}

func TestAcceptDispatchRejectedByRequisition(t *testing.T) {
	store := memory.NewStore()
	seedStock(store, models.OutletStockRow{ProductName: "Rice", UOM: "kg", OpeningStock: dec("20")})

	dispatchErr := errors.New("dispatch exceeds remaining")
	svc := NewService(store, &fakeDispatcher{err: dispatchErr}, nil)
	ctx := context.Background()

	before, _ := store.ReadAll(ctx, repository.TableOutletStock)
	if _, err := svc.AcceptDispatch(ctx, "ord1", "Rice", dec("5")); !errors.Is(err, dispatchErr) {
		t.Fatalf("got %v, want the dispatcher error", err)
	}
	after, _ := store.ReadAll(ctx, repository.TableOutletStock)
	if after.Version != before.Version {
		t.Error("stock written although the requisition rejected the dispatch")
	}
}

func TestAcceptDispatchValidation(t *testing.T) {
	store := memory.NewStore()
	seedStock(store, models.OutletStockRow{ProductName: "Rice", UOM: "kg"})
	svc := NewService(store, &fakeDispatcher{}, nil)
	ctx := context.Background()

	if _, err := svc.AcceptDispatch(ctx, "ord1", "Rice", decimal.Zero); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("zero qty: got %v, want ErrValidation", err)
	}
	if _, err := svc.AcceptDispatch(ctx, "ord1", "Ghost", dec("1")); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("unknown product: got %v, want ErrNotFound", err)
	}
}
