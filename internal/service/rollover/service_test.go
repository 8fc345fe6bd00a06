package rollover

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndiasse/stockroom/internal/domain/models"
	"github.com/ndiasse/stockroom/internal/repository"
	"github.com/ndiasse/stockroom/internal/repository/memory"
)

type fakeJournal struct {
	markers   map[string]models.RolloverMarker
	snapshots map[string]models.MonthlyArchiveSnapshot
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{
		markers:   make(map[string]models.RolloverMarker),
		snapshots: make(map[string]models.MonthlyArchiveSnapshot),
	}
}

func (j *fakeJournal) Begin(_ context.Context, period, nextPeriod string) error {
	if _, ok := j.markers[period]; ok {
		return fmt.Errorf("period %s: %w", period, models.ErrDuplicatePeriod)
	}
	j.markers[period] = models.RolloverMarker{
		Period:     period,
		NextPeriod: nextPeriod,
		State:      models.RolloverStarted,
		StartedAt:  time.Now().UTC(),
	}
	return nil
}

func (j *fakeJournal) Complete(_ context.Context, period string) error {
	marker, ok := j.markers[period]
	if !ok {
		return fmt.Errorf("no marker for %s", period)
	}
	marker.State = models.RolloverCompleted
	j.markers[period] = marker
	return nil
}

func (j *fakeJournal) Abort(_ context.Context, period string) error {
	delete(j.markers, period)
	return nil
}

func (j *fakeJournal) Pending(_ context.Context) ([]models.RolloverMarker, error) {
	var out []models.RolloverMarker
	for _, marker := range j.markers {
		if marker.State == models.RolloverStarted {
			out = append(out, marker)
		}
	}
	return out, nil
}

func (j *fakeJournal) SaveSnapshot(_ context.Context, snapshot models.MonthlyArchiveSnapshot) error {
	j.snapshots[snapshot.PeriodLabel] = snapshot
	return nil
}

type fakeFence struct {
	periods []string
}

func (f *fakeFence) LogRollover(_ context.Context, period string) error {
	f.periods = append(f.periods, period)
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedLedger(store *memory.Store, rows ...models.InventoryRow) {
	for i := range rows {
		rows[i].Recalculate()
	}
	store.Seed(repository.TableInventory, models.InventoryTableCells(rows))
}

func TestCloseMonthArchivesAndReseeds(t *testing.T) {
	store := memory.NewStore()
	journal := newFakeJournal()
	fence := &fakeFence{}
	svc := NewService(store, journal, fence, nil)
	ctx := context.Background()

	seedLedger(store,
		models.InventoryRow{ProductName: "Rice", UOM: "kg", OpeningStock: dec("100"), Receipts: dec("20"), Consumption: dec("30"), PhysicalCount: dec("85")},
		models.InventoryRow{ProductName: "Oil", UOM: "ltr", OpeningStock: dec("10"), Receipts: dec("5"), Consumption: dec("3"), PhysicalCount: dec("12")},
	)

	if err := svc.CloseMonth(ctx, "2026-08", "2026-09"); err != nil {
		t.Fatalf("CloseMonth failed: %v", err)
	}

	// The archive must hold the pre-close values unchanged.
	archived, err := svc.Archive(ctx, "2026-08")
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if len(archived.Rows) != 2 {
		t.Fatalf("archived %d rows, want 2", len(archived.Rows))
	}
	rice := archived.Rows[0]
	if !rice.OpeningStock.Equal(dec("100")) || !rice.Receipts.Equal(dec("20")) ||
		!rice.Consumption.Equal(dec("30")) || !rice.ClosingStock.Equal(dec("90")) ||
		!rice.PhysicalCount.Equal(dec("85")) {
		t.Errorf("archived rice row corrupted: %+v", rice)
	}

	// The live ledger opens the next period from the physical counts.
	snap, err := store.ReadAll(ctx, repository.TableInventory)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	rows, err := models.ParseInventoryTable(snap.Rows)
	if err != nil {
		t.Fatalf("ParseInventoryTable failed: %v", err)
	}
	for i, want := range []string{"85", "12"} {
		row := rows[i]
		if !row.OpeningStock.Equal(dec(want)) {
			t.Errorf("%s opening = %s, want %s", row.ProductName, row.OpeningStock, want)
		}
		if !row.Receipts.IsZero() || !row.Consumption.IsZero() || !row.PhysicalCount.IsZero() {
			t.Errorf("%s flows not zeroed: %+v", row.ProductName, row)
		}
		if !row.ClosingStock.Equal(dec(want)) {
			t.Errorf("%s closing = %s, want %s", row.ProductName, row.ClosingStock, want)
		}
	}

	if marker := journal.markers["2026-08"]; marker.State != models.RolloverCompleted {
		t.Errorf("marker state = %q, want completed", marker.State)
	}
	if _, ok := journal.snapshots["2026-08"]; !ok {
		t.Error("snapshot mirror missing")
	}
	if len(fence.periods) != 1 || fence.periods[0] != "2026-08" {
		t.Errorf("fence periods = %v, want [2026-08]", fence.periods)
	}
}

func TestCloseMonthRejectsDuplicatePeriod(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store, newFakeJournal(), &fakeFence{}, nil)
	ctx := context.Background()

	seedLedger(store, models.InventoryRow{ProductName: "Rice", UOM: "kg", OpeningStock: dec("50"), PhysicalCount: dec("48")})

	if err := svc.CloseMonth(ctx, "2026-08", "2026-09"); err != nil {
		t.Fatalf("first close failed: %v", err)
	}

	before, _ := store.ReadAll(ctx, repository.TableInventory)
	historyBefore, _ := store.ReadAll(ctx, repository.TableHistory)

	if err := svc.CloseMonth(ctx, "2026-08", "2026-10"); !errors.Is(err, models.ErrDuplicatePeriod) {
		t.Fatalf("got %v, want ErrDuplicatePeriod", err)
	}

	// The rejected close must not have mutated anything.
	after, _ := store.ReadAll(ctx, repository.TableInventory)
	if after.Version != before.Version {
		t.Error("inventory changed by rejected close")
	}
	historyAfter, _ := store.ReadAll(ctx, repository.TableHistory)
	if len(historyAfter.Rows) != len(historyBefore.Rows) {
		t.Error("archive grew on rejected close")
	}
}

func TestCloseMonthValidatesInput(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		current, next string
		seed          bool
		wantErr       error
	}{
		{name: "empty current", current: "", next: "2026-09", seed: true, wantErr: models.ErrValidation},
		{name: "empty next", current: "2026-08", next: "", seed: true, wantErr: models.ErrValidation},
		{name: "same labels", current: "2026-08", next: "2026-08", seed: true, wantErr: models.ErrValidation},
		{name: "empty ledger", current: "2026-08", next: "2026-09", seed: false, wantErr: models.ErrValidation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.NewStore()
			if tc.seed {
				seedLedger(store, models.InventoryRow{ProductName: "Rice", UOM: "kg", OpeningStock: dec("1")})
			}
			svc := NewService(store, newFakeJournal(), &fakeFence{}, nil)
			if err := svc.CloseMonth(ctx, tc.current, tc.next); !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestRecoverFinishesForwardWhenArchiveLanded(t *testing.T) {
	store := memory.NewStore()
	journal := newFakeJournal()
	fence := &fakeFence{}
	svc := NewService(store, journal, fence, nil)
	ctx := context.Background()

	// Simulate a crash after the archive append but before the ledger reset:
	// the marker is started, the archive rows exist, the ledger still carries
	// the old period's values.
	seedLedger(store, models.InventoryRow{ProductName: "Rice", UOM: "kg", OpeningStock: dec("100"), Receipts: dec("20"), Consumption: dec("30"), PhysicalCount: dec("85")})

	if err := journal.Begin(ctx, "2026-08", "2026-09"); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	snapshot := models.MonthlyArchiveSnapshot{
		PeriodLabel: "2026-08",
		ClosedAt:    time.Date(2026, 8, 31, 23, 0, 0, 0, time.UTC),
		Rows: []models.InventoryRow{{
			ProductName: "Rice", UOM: "kg",
			OpeningStock: dec("100"), Receipts: dec("20"), Consumption: dec("30"),
			PhysicalCount: dec("85"), ClosingStock: dec("90"),
		}},
	}
	if err := store.Append(ctx, repository.TableHistory, snapshot.Cells()...); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if err := svc.Recover(ctx); err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	snap, _ := store.ReadAll(ctx, repository.TableInventory)
	rows, err := models.ParseInventoryTable(snap.Rows)
	if err != nil {
		t.Fatalf("ParseInventoryTable failed: %v", err)
	}
	if !rows[0].OpeningStock.Equal(dec("85")) || !rows[0].Receipts.IsZero() {
		t.Errorf("ledger not reseeded after recovery: %+v", rows[0])
	}
	if marker := journal.markers["2026-08"]; marker.State != models.RolloverCompleted {
		t.Errorf("marker state = %q, want completed", marker.State)
	}
	if len(fence.periods) != 1 {
		t.Errorf("fence called %d times, want 1", len(fence.periods))
	}
}

func TestRecoverRollsBackWhenArchiveMissing(t *testing.T) {
	store := memory.NewStore()
	journal := newFakeJournal()
	svc := NewService(store, journal, &fakeFence{}, nil)
	ctx := context.Background()

	seedLedger(store, models.InventoryRow{ProductName: "Rice", UOM: "kg", OpeningStock: dec("100"), Receipts: dec("20")})
	before, _ := store.ReadAll(ctx, repository.TableInventory)

	// A marker with no archive rows means the crash hit before the append.
	if err := journal.Begin(ctx, "2026-08", "2026-09"); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	if err := svc.Recover(ctx); err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	if _, ok := journal.markers["2026-08"]; ok {
		t.Error("marker should have been dropped")
	}
	after, _ := store.ReadAll(ctx, repository.TableInventory)
	if after.Version != before.Version {
		t.Error("ledger mutated during rollback")
	}

	// With the marker gone the close is retryable.
	if err := svc.CloseMonth(ctx, "2026-08", "2026-09"); err != nil {
		t.Fatalf("retry after rollback failed: %v", err)
	}
}

func TestRecoverNoPendingIsNoop(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store, newFakeJournal(), &fakeFence{}, nil)

	if err := svc.Recover(context.Background()); err != nil {
		t.Fatalf("Recover failed: %v", err)
	}
}

func TestArchiveUnknownPeriod(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store, newFakeJournal(), &fakeFence{}, nil)

	if _, err := svc.Archive(context.Background(), "1999-01"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
