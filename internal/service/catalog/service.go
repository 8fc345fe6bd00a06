// Package catalog manages the product_metadata reference table mapping
// products to their suppliers.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ndiasse/stockroom/internal/domain/models"
	"github.com/ndiasse/stockroom/internal/repository"
)

// Service implements supplier metadata lookups and upserts.
type Service struct {
	store  repository.TableStore
	logger *zap.Logger
}

// NewService constructs a catalog service.
func NewService(store repository.TableStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Mappings returns all product-to-supplier mappings.
func (s *Service) Mappings(ctx context.Context) ([]models.ProductSupplierMapping, error) {
	snap, err := s.store.ReadAll(ctx, repository.TableMetadata)
	if err != nil {
		return nil, fmt.Errorf("load product metadata: %w", err)
	}
	return models.ParseSupplierTable(snap.Rows)
}

// Upsert inserts or replaces the mapping for one product.
func (s *Service) Upsert(ctx context.Context, mapping models.ProductSupplierMapping) error {
	if mapping.ProductName == "" {
		return fmt.Errorf("product name must not be empty: %w", models.ErrValidation)
	}
	if mapping.SupplierName == "" {
		return fmt.Errorf("supplier name must not be empty: %w", models.ErrValidation)
	}

	snap, err := s.store.ReadAll(ctx, repository.TableMetadata)
	if err != nil {
		return fmt.Errorf("load product metadata: %w", err)
	}
	mappings, err := models.ParseSupplierTable(snap.Rows)
	if err != nil {
		return err
	}

	replaced := false
	for i := range mappings {
		if strings.EqualFold(mappings[i].ProductName, mapping.ProductName) {
			mappings[i] = mapping
			replaced = true
			break
		}
	}
	if !replaced {
		mappings = append(mappings, mapping)
	}

	if err := s.store.WriteAll(ctx, repository.TableMetadata, models.SupplierTableCells(mappings), snap.Version); err != nil {
		return fmt.Errorf("persist product metadata: %w", err)
	}

	s.logger.Info("supplier mapping upserted",
		zap.String("product", mapping.ProductName),
		zap.String("supplier", mapping.SupplierName))

	return nil
}
