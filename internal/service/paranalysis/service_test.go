package paranalysis

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndiasse/stockroom/internal/config"
	"github.com/ndiasse/stockroom/internal/domain/models"
	"github.com/ndiasse/stockroom/internal/repository"
	"github.com/ndiasse/stockroom/internal/repository/memory"
)

func testConfig() config.ParConfig {
	return config.ParConfig{
		FactorLow:  decimal.RequireFromString("0.5"),
		FactorHigh: decimal.RequireFromString("1.5"),
		Window:     3,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedCurrent(store *memory.Store, rows ...models.InventoryRow) {
	for i := range rows {
		rows[i].Recalculate()
	}
	store.Seed(repository.TableInventory, models.InventoryTableCells(rows))
}

func seedArchive(store *memory.Store, snapshots ...models.MonthlyArchiveSnapshot) {
	var rows [][]string
	rows = append(rows, models.ArchiveHeader)
	for _, snap := range snapshots {
		rows = append(rows, snap.Cells()...)
	}
	store.Seed(repository.TableHistory, rows)
}

func archivePeriod(label string, consumption string) models.MonthlyArchiveSnapshot {
	return models.MonthlyArchiveSnapshot{
		PeriodLabel: label,
		ClosedAt:    time.Date(2026, 6, 30, 23, 0, 0, 0, time.UTC),
		Rows: []models.InventoryRow{{
			ProductName: "Rice", UOM: "kg", Consumption: dec(consumption),
		}},
	}
}

func TestSuggestAveragesOverWindow(t *testing.T) {
	store := memory.NewStore()
	seedArchive(store,
		archivePeriod("2026-05", "30"),
		archivePeriod("2026-06", "40"),
	)
	seedCurrent(store, models.InventoryRow{ProductName: "Rice", UOM: "kg", Consumption: dec("50")})

	svc := NewService(store, testConfig(), nil)
	got, err := svc.Suggest(context.Background(), 3)
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("suggestions = %d, want 1", len(got))
	}

	sg := got[0]
	if sg.Periods != 3 {
		t.Errorf("periods = %d, want 3", sg.Periods)
	}
	if !sg.MeanConsumption.Equal(dec("40")) {
		t.Errorf("mean = %s, want 40", sg.MeanConsumption)
	}
	if !sg.Min.Equal(dec("20")) || !sg.Max.Equal(dec("60")) {
		t.Errorf("min/max = %s/%s, want 20/60", sg.Min, sg.Max)
	}
}

func TestSuggestTruncatesToWindow(t *testing.T) {
	store := memory.NewStore()
	seedArchive(store,
		archivePeriod("2026-03", "1000"),
		archivePeriod("2026-04", "10"),
		archivePeriod("2026-05", "20"),
	)
	seedCurrent(store, models.InventoryRow{ProductName: "Rice", UOM: "kg", Consumption: dec("30")})

	// Window 2 keeps only the two most recent archived periods, so the
	// outlier from March must not influence the mean.
	svc := NewService(store, testConfig(), nil)
	got, err := svc.Suggest(context.Background(), 2)
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if got[0].Periods != 3 {
		t.Errorf("periods = %d, want 3", got[0].Periods)
	}
	if !got[0].MeanConsumption.Equal(dec("20")) {
		t.Errorf("mean = %s, want 20", got[0].MeanConsumption)
	}
}

func TestSuggestDegradesWithoutHistory(t *testing.T) {
	store := memory.NewStore()
	seedCurrent(store, models.InventoryRow{ProductName: "Rice", UOM: "kg", Consumption: dec("12")})

	svc := NewService(store, testConfig(), nil)
	got, err := svc.Suggest(context.Background(), 3)
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if len(got) != 1 || got[0].Periods != 1 {
		t.Fatalf("got %+v, want one single-period suggestion", got)
	}
	if !got[0].MeanConsumption.Equal(dec("12")) {
		t.Errorf("mean = %s, want 12", got[0].MeanConsumption)
	}
}

func TestSuggestEmptyLedger(t *testing.T) {
	svc := NewService(memory.NewStore(), testConfig(), nil)

	got, err := svc.Suggest(context.Background(), 3)
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("suggestions = %d, want 0", len(got))
	}
}

func TestSuggestUsesConfiguredWindowWhenUnset(t *testing.T) {
	store := memory.NewStore()
	seedArchive(store,
		archivePeriod("2026-02", "1000"),
		archivePeriod("2026-04", "10"),
		archivePeriod("2026-05", "10"),
		archivePeriod("2026-06", "10"),
	)
	seedCurrent(store, models.InventoryRow{ProductName: "Rice", UOM: "kg", Consumption: dec("10")})

	// Window 0 falls back to the configured window of 3.
	svc := NewService(store, testConfig(), nil)
	got, err := svc.Suggest(context.Background(), 0)
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if got[0].Periods != 4 {
		t.Errorf("periods = %d, want 4", got[0].Periods)
	}
	if !got[0].MeanConsumption.Equal(dec("10")) {
		t.Errorf("mean = %s, want 10", got[0].MeanConsumption)
	}
}

func TestSavePersistsParLevels(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store, testConfig(), nil)
	ctx := context.Background()

	err := svc.Save(ctx, []Suggestion{{
		ProductName: "Rice", UOM: "kg",
		MeanConsumption: dec("40"), Min: dec("20"), Max: dec("60"), Periods: 3,
	}})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	snap, err := store.ReadAll(ctx, repository.TableParLevels)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(snap.Rows) != 2 {
		t.Fatalf("rows = %d, want header plus one", len(snap.Rows))
	}
	want := []string{"Rice", "kg", "40", "20", "60", "3"}
	for i, cell := range want {
		if snap.Rows[1][i] != cell {
			t.Errorf("cell %d = %q, want %q", i, snap.Rows[1][i], cell)
		}
	}
}
