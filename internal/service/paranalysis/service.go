// Package paranalysis computes suggested min/max reorder thresholds from
// historical consumption. The computation is pure: nothing is persisted
// unless the caller explicitly saves a result.
package paranalysis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ndiasse/stockroom/internal/config"
	"github.com/ndiasse/stockroom/internal/domain/models"
	"github.com/ndiasse/stockroom/internal/repository"
)

// Suggestion is a per-product par-level recommendation: a moving average of
// consumption over the analysis window, scaled by the configured factors.
type Suggestion struct {
	ProductName     string          `json:"product_name"`
	UOM             string          `json:"uom"`
	MeanConsumption decimal.Decimal `json:"mean_consumption"`
	Min             decimal.Decimal `json:"min"`
	Max             decimal.Decimal `json:"max"`
	Periods         int             `json:"periods"`
}

// Service implements par analysis over the archive and the live ledger.
type Service struct {
	store  repository.TableStore
	cfg    config.ParConfig
	logger *zap.Logger
}

// NewService constructs a par analysis service.
func NewService(store repository.TableStore, cfg config.ParConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cfg: cfg, logger: logger}
}

// Suggest computes par levels over the window most recent archived periods
// plus the current period's consumption. Shorter history degrades to whatever
// is available; zero history yields suggestions from the current period
// alone, and an empty ledger yields an empty result. Never errors on
// insufficient data.
func (s *Service) Suggest(ctx context.Context, window int) ([]Suggestion, error) {
	if window <= 0 {
		window = s.cfg.Window
	}

	historySnap, err := s.store.ReadAll(ctx, repository.TableHistory)
	if err != nil {
		return nil, fmt.Errorf("load archive: %w", err)
	}
	snapshots, err := models.ParseArchiveTable(historySnap.Rows)
	if err != nil {
		return nil, err
	}
	if len(snapshots) > window {
		snapshots = snapshots[len(snapshots)-window:]
	}

	invSnap, err := s.store.ReadAll(ctx, repository.TableInventory)
	if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}
	current, err := models.ParseInventoryTable(invSnap.Rows)
	if err != nil {
		return nil, err
	}

	type accumulator struct {
		uom     string
		total   decimal.Decimal
		periods int
	}
	var order []string
	totals := map[string]*accumulator{}

	observe := func(row models.InventoryRow) {
		acc, ok := totals[row.ProductName]
		if !ok {
			acc = &accumulator{uom: row.UOM}
			totals[row.ProductName] = acc
			order = append(order, row.ProductName)
		}
		acc.total = acc.total.Add(row.Consumption)
		acc.periods++
	}

	for _, snap := range snapshots {
		for _, row := range snap.Rows {
			observe(row)
		}
	}
	for _, row := range current {
		observe(row)
	}

	out := make([]Suggestion, 0, len(order))
	for _, name := range order {
		acc := totals[name]
		mean := acc.total.DivRound(decimal.NewFromInt(int64(acc.periods)), 4)
		out = append(out, Suggestion{
			ProductName:     name,
			UOM:             acc.uom,
			MeanConsumption: mean,
			Min:             mean.Mul(s.cfg.FactorLow).Round(4),
			Max:             mean.Mul(s.cfg.FactorHigh).Round(4),
			Periods:         acc.periods,
		})
	}

	s.logger.Debug("par levels computed",
		zap.Int("window", window),
		zap.Int("periods_used", len(snapshots)+1),
		zap.Int("products", len(out)))

	return out, nil
}

// Save writes suggestions to the par_levels worksheet. Explicit opt-in; the
// sheet is fully replaced.
func (s *Service) Save(ctx context.Context, suggestions []Suggestion) error {
	snap, err := s.store.ReadAll(ctx, repository.TableParLevels)
	if err != nil {
		return fmt.Errorf("load par levels: %w", err)
	}

	rows := [][]string{{"Product Name", "UOM", "Mean Consumption", "Min", "Max", "Periods"}}
	for _, sg := range suggestions {
		rows = append(rows, []string{
			sg.ProductName,
			sg.UOM,
			sg.MeanConsumption.String(),
			sg.Min.String(),
			sg.Max.String(),
			strconv.Itoa(sg.Periods),
		})
	}

	if err := s.store.WriteAll(ctx, repository.TableParLevels, rows, snap.Version); err != nil {
		return fmt.Errorf("persist par levels: %w", err)
	}
	return nil
}
