package application

import (
	"context"
	"errors"
	"sort"

	"github.com/inventory-platform/ledger-service/internal/domain"
	"github.com/inventory-platform/ledger-service/pkg/logging"
)

// QueryService is the read side of the ledger: catalog lookups, stock
// positions folded across batches, and the recent activity feed.
type QueryService struct {
	products  domain.ProductRepository
	batches   domain.BatchRepository
	logs      domain.OperationLogRepository
	operators domain.OperatorRepository
	logger    *logging.Logger
}

// NewQueryService creates a new QueryService
func NewQueryService(
	products domain.ProductRepository,
	batches domain.BatchRepository,
	logs domain.OperationLogRepository,
	operators domain.OperatorRepository,
	logger *logging.Logger,
) *QueryService {
	return &QueryService{
		products:  products,
		batches:   batches,
		logs:      logs,
		operators: operators,
		logger:    logger.WithComponent("query-service"),
	}
}

// GetProduct retrieves a single catalog product.
func (s *QueryService) GetProduct(ctx context.Context, query GetProductQuery) (*ProductDTO, error) {
	product, err := s.products.FindByID(ctx, query.ProductID)
	if err != nil {
		return nil, err
	}
	return toProductDTO(product), nil
}

// ListProducts lists catalog products, newest first.
func (s *QueryService) ListProducts(ctx context.Context, query ListProductsQuery) ([]ProductDTO, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}

	products, err := s.products.FindAll(ctx, limit, query.Offset)
	if err != nil {
		return nil, err
	}
	return toProductDTOs(products), nil
}

// GetBatch retrieves a single batch, tombstoned ones included.
func (s *QueryService) GetBatch(ctx context.Context, batchID string) (*BatchDTO, error) {
	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	dto := toBatchDTO(batch)
	return &dto, nil
}

// ListBatches lists the batches of a product sorted by soonest expiry.
// Tombstoned batches are filtered out unless explicitly requested.
func (s *QueryService) ListBatches(ctx context.Context, query ListBatchesQuery) ([]BatchDTO, error) {
	batches, err := s.batches.FindByProduct(ctx, query.ProductID)
	if err != nil {
		return nil, err
	}

	dtos := make([]BatchDTO, 0, len(batches))
	for _, b := range batches {
		if b.Deleted && !query.IncludeDeleted {
			continue
		}
		dtos = append(dtos, toBatchDTO(b))
	}

	sort.Slice(dtos, func(i, j int) bool {
		return dtos[i].ExpiryDate.Before(dtos[j].ExpiryDate)
	})

	return dtos, nil
}

// ProductTotals folds the live batches of a product into a single stock
// position. Tombstoned batches contribute nothing. The result is
// normalized against the product's conversion rate.
func (s *QueryService) ProductTotals(ctx context.Context, query ProductTotalsQuery) (*ProductTotalsDTO, error) {
	product, err := s.products.FindByID(ctx, query.ProductID)
	if err != nil {
		return nil, err
	}

	batches, err := s.batches.FindByProduct(ctx, query.ProductID)
	if err != nil {
		return nil, err
	}

	total := 0
	count := 0
	for _, b := range batches {
		if b.Deleted {
			continue
		}
		t, err := b.TotalSmallUnits(product.ConversionRate)
		if err != nil {
			return nil, err
		}
		total += t
		count++
	}

	folded, err := domain.QuantityFromTotal(total, product.ConversionRate)
	if err != nil {
		return nil, err
	}

	return &ProductTotalsDTO{
		ProductID:  product.ID,
		TotalLarge: folded.Large,
		TotalSmall: folded.Small,
		UnitLarge:  product.UnitLarge,
		UnitSmall:  product.UnitSmall,
		BatchCount: count,
	}, nil
}

// GetLogEntry retrieves a single audit trail entry.
func (s *QueryService) GetLogEntry(ctx context.Context, id domain.LogID) (*LogEntryDTO, error) {
	entry, err := s.logs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toLogEntryDTO(entry)
	return &dto, nil
}

// RecentActivity reads the newest audit trail entries. When JoinOperators
// is set, operator display names are resolved; a missing operator record
// leaves the name blank rather than failing the feed.
func (s *QueryService) RecentActivity(ctx context.Context, query RecentActivityQuery) ([]LogEntryDTO, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}

	entries, err := s.logs.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}

	if query.JoinOperators {
		names := make(map[string]string, len(entries))
		for _, entry := range entries {
			if _, seen := names[entry.OperatorID]; seen {
				continue
			}
			operator, err := s.operators.FindByID(ctx, entry.OperatorID)
			if err != nil {
				if errors.Is(err, domain.ErrOperatorNotFound) {
					names[entry.OperatorID] = ""
					continue
				}
				return nil, err
			}
			names[entry.OperatorID] = operator.Username
		}
		for _, entry := range entries {
			entry.OperatorName = names[entry.OperatorID]
		}
	}

	return toLogEntryDTOs(entries), nil
}
