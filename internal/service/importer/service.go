// Package importer turns bulk stock-take templates into ledger rows. The
// caller hands over already-decoded tabular records; file transport and
// decoding stay outside this service.
//
// Template shape: rows 1-4 are banner/header and are skipped, column B is the
// product name, column C the unit of measure, column D the opening stock.
// Validation failures are reported per row; a bad row never aborts the batch.
package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ndiasse/stockroom/internal/domain/models"
	"github.com/ndiasse/stockroom/internal/repository"
)

// Template layout constants, 0-based.
const (
	skipRows        = 4
	productColumn   = 1 // column B
	uomColumn       = 2 // column C
	openingColumn   = 3 // column D
	defaultUOM      = "pcs"
	defaultCategory = "General"
)

// RowError describes why one template row was rejected. Row numbers are
// 1-based positions in the uploaded file.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Report summarizes a batch import.
type Report struct {
	Imported int        `json:"imported"`
	Rejected []RowError `json:"rejected,omitempty"`
}

// Service implements bulk imports into the warehouse ledger and the outlet
// stock sheets.
type Service struct {
	store  repository.TableStore
	logger *zap.Logger
}

// NewService constructs an importer.
func NewService(store repository.TableStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// ImportInventory merges template records into the warehouse ledger. Imported
// products start with the given opening stock and zero flows. A product name
// already present in the ledger, or repeated within the batch, rejects that
// row and the rest of the batch proceeds.
func (s *Service) ImportInventory(ctx context.Context, records [][]string) (Report, error) {
	snap, err := s.store.ReadAll(ctx, repository.TableInventory)
	if err != nil {
		return Report{}, fmt.Errorf("load inventory: %w", err)
	}
	rows, err := models.ParseInventoryTable(snap.Rows)
	if err != nil {
		return Report{}, err
	}

	seen := map[string]bool{}
	for _, row := range rows {
		seen[strings.ToLower(row.ProductName)] = true
	}

	var report Report
	for i, record := range records {
		if i < skipRows {
			continue
		}

		parsed, rejectMsg := parseTemplateRow(record)
		if rejectMsg != "" {
			report.Rejected = append(report.Rejected, RowError{Row: i + 1, Message: rejectMsg})
			continue
		}
		key := strings.ToLower(parsed.name)
		if seen[key] {
			report.Rejected = append(report.Rejected, RowError{Row: i + 1, Message: fmt.Sprintf("duplicate product %q", parsed.name)})
			continue
		}
		seen[key] = true

		row := models.InventoryRow{
			ProductName:  parsed.name,
			UOM:          parsed.uom,
			OpeningStock: parsed.opening,
		}
		row.Recalculate()
		rows = append(rows, row)
		report.Imported++
	}

	if report.Imported > 0 {
		if err := s.store.WriteAll(ctx, repository.TableInventory, models.InventoryTableCells(rows), snap.Version); err != nil {
			return Report{}, fmt.Errorf("persist inventory: %w", err)
		}
	}

	s.logger.Info("inventory import finished",
		zap.Int("imported", report.Imported),
		zap.Int("rejected", len(report.Rejected)))

	return report, nil
}

// ImportOutletStock merges template records into the restaurant stock sheet,
// building the standard layout the portal expects (day columns, derived
// totals). Same per-row validation and duplicate policy as the warehouse
// import.
func (s *Service) ImportOutletStock(ctx context.Context, records [][]string) (Report, error) {
	snap, err := s.store.ReadAll(ctx, repository.TableOutletStock)
	if err != nil {
		return Report{}, fmt.Errorf("load outlet stock: %w", err)
	}
	rows, err := models.ParseOutletTable(snap.Rows)
	if err != nil {
		return Report{}, err
	}

	seen := map[string]bool{}
	for _, row := range rows {
		seen[strings.ToLower(row.ProductName)] = true
	}

	var report Report
	for i, record := range records {
		if i < skipRows {
			continue
		}

		parsed, rejectMsg := parseTemplateRow(record)
		if rejectMsg != "" {
			report.Rejected = append(report.Rejected, RowError{Row: i + 1, Message: rejectMsg})
			continue
		}
		key := strings.ToLower(parsed.name)
		if seen[key] {
			report.Rejected = append(report.Rejected, RowError{Row: i + 1, Message: fmt.Sprintf("duplicate product %q", parsed.name)})
			continue
		}
		seen[key] = true

		row := models.OutletStockRow{
			ProductName:  parsed.name,
			Category:     defaultCategory,
			UOM:          parsed.uom,
			OpeningStock: parsed.opening,
		}
		row.Recalculate()
		rows = append(rows, row)
		report.Imported++
	}

	if report.Imported > 0 {
		if err := s.store.WriteAll(ctx, repository.TableOutletStock, models.OutletTableCells(rows), snap.Version); err != nil {
			return Report{}, fmt.Errorf("persist outlet stock: %w", err)
		}
	}

	s.logger.Info("outlet import finished",
		zap.Int("imported", report.Imported),
		zap.Int("rejected", len(report.Rejected)))

	return report, nil
}

type templateRow struct {
	name    string
	uom     string
	opening decimal.Decimal
}

func parseTemplateRow(record []string) (templateRow, string) {
	get := func(idx int) string {
		if idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	name := get(productColumn)
	if name == "" {
		return templateRow{}, "missing product name in column B"
	}

	uom := get(uomColumn)
	if uom == "" {
		uom = defaultUOM
	}

	opening := decimal.Zero
	if raw := get(openingColumn); raw != "" {
		value, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
		if err != nil {
			return templateRow{}, fmt.Sprintf("bad opening stock %q in column D", raw)
		}
		if value.IsNegative() {
			return templateRow{}, fmt.Sprintf("negative opening stock %s in column D", value)
		}
		opening = value
	}

	return templateRow{name: name, uom: uom, opening: opening}, ""
}
