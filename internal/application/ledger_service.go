package application

import (
	"context"
	"fmt"

	"github.com/inventory-platform/ledger-service/internal/domain"
	"github.com/inventory-platform/ledger-service/pkg/kafka"
	"github.com/inventory-platform/ledger-service/pkg/logging"
	"github.com/inventory-platform/ledger-service/pkg/outbox"
)

const aggregateTypeBatch = "batch"

// LedgerService is the write side of the inventory ledger. Every mutation
// runs inside a single transaction: the batch update, the audit trail
// append and the outbox write commit or roll back together.
type LedgerService struct {
	products domain.ProductRepository
	batches  domain.BatchRepository
	logs     domain.OperationLogRepository
	outbox   outbox.Repository
	tx       domain.Transactor
	logger   *logging.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	products domain.ProductRepository,
	batches domain.BatchRepository,
	logs domain.OperationLogRepository,
	outboxRepo outbox.Repository,
	tx domain.Transactor,
	logger *logging.Logger,
) *LedgerService {
	return &LedgerService{
		products: products,
		batches:  batches,
		logs:     logs,
		outbox:   outboxRepo,
		tx:       tx,
		logger:   logger.WithComponent("ledger-service"),
	}
}

// CreateProduct registers a catalog product. The SKU must be unique; a
// duplicate fails with ErrSKUExists.
func (s *LedgerService) CreateProduct(ctx context.Context, cmd CreateProductCommand) (*ProductDTO, error) {
	product, err := domain.NewProduct(cmd.Name, cmd.SKU, cmd.Category, cmd.UnitLarge, cmd.UnitSmall, cmd.ConversionRate)
	if err != nil {
		return nil, err
	}
	if cmd.ImageURL != "" {
		product.ImageURL = cmd.ImageURL
	}

	if err := s.products.Save(ctx, product); err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).Info("Product created",
		"productId", product.ID,
		"sku", product.SKU,
		"conversionRate", product.ConversionRate,
	)

	return toProductDTO(product), nil
}

// CreateBatch creates a batch and records its initial stock as an IMPORT
// operation, so even the first receipt shows up in the audit trail and can
// be revoked. A zero initial quantity still produces an entry.
func (s *LedgerService) CreateBatch(ctx context.Context, cmd CreateBatchCommand) (*ExecuteResultDTO, error) {
	var result *ExecuteResultDTO

	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		product, err := s.products.FindByID(txCtx, cmd.ProductID)
		if err != nil {
			return err
		}

		total, err := cmd.InitialQuantity.Total(product.ConversionRate)
		if err != nil {
			return err
		}
		if err := domain.ActionImport.ValidateDelta(total); err != nil {
			return err
		}

		batch, err := domain.NewBatch(cmd.ProductID, cmd.StoreID, cmd.BatchNumber, cmd.ExpiryDate, cmd.Remark)
		if err != nil {
			return err
		}

		snapshot := batch.Snapshot()
		if !cmd.InitialQuantity.IsZero() {
			if err := batch.Apply(cmd.InitialQuantity, product.ConversionRate); err != nil {
				return err
			}
		}

		if err := s.batches.Insert(txCtx, batch); err != nil {
			return err
		}

		entry, err := domain.NewOperationLogEntry(domain.ActionImport, batch.ID, cmd.InitialQuantity, snapshot, cmd.OperatorID)
		if err != nil {
			return err
		}
		if err := s.logs.Append(txCtx, entry); err != nil {
			return err
		}

		if err := s.saveRecordedEvent(txCtx, entry, batch); err != nil {
			return err
		}

		result = &ExecuteResultDTO{
			Batch: toBatchDTO(batch),
			LogID: entry.ID.String(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).Info("Batch created",
		"batchId", result.Batch.ID,
		"productId", cmd.ProductID,
		"logId", result.LogID,
	)

	return result, nil
}

// Execute applies a mutation to a batch and appends the matching audit
// trail entry atomically. The batch is read, mutated and written back
// under an optimistic version check; a concurrent writer surfaces as
// ErrTransactionConflict and the caller may retry.
func (s *LedgerService) Execute(ctx context.Context, cmd ExecuteCommand) (*ExecuteResultDTO, error) {
	if !cmd.ActionType.IsValid() {
		return nil, domain.ErrInvalidActionType
	}

	var result *ExecuteResultDTO

	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		batch, err := s.batches.FindByID(txCtx, cmd.TargetID)
		if err != nil {
			return err
		}

		product, err := s.products.FindByID(txCtx, batch.ProductID)
		if err != nil {
			return err
		}

		snapshot := batch.Snapshot()

		var delta domain.Quantity
		if cmd.ActionType == domain.ActionDelete {
			delta, err = batch.MarkDeleted()
			if err != nil {
				return err
			}
		} else {
			total, err := cmd.Delta.Total(product.ConversionRate)
			if err != nil {
				return err
			}
			if err := cmd.ActionType.ValidateDelta(total); err != nil {
				return err
			}
			if err := batch.Apply(cmd.Delta, product.ConversionRate); err != nil {
				return err
			}
			delta = cmd.Delta
		}

		if err := s.batches.Update(txCtx, batch); err != nil {
			return err
		}

		entry, err := domain.NewOperationLogEntry(cmd.ActionType, batch.ID, delta, snapshot, cmd.OperatorID)
		if err != nil {
			return err
		}
		if err := s.logs.Append(txCtx, entry); err != nil {
			return err
		}

		if err := s.saveRecordedEvent(txCtx, entry, batch); err != nil {
			return err
		}

		result = &ExecuteResultDTO{
			Batch: toBatchDTO(batch),
			LogID: entry.ID.String(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).Info("Operation executed",
		"action", cmd.ActionType.String(),
		"batchId", cmd.TargetID,
		"logId", result.LogID,
		"operatorId", cmd.OperatorID,
	)

	return result, nil
}

// Revoke undoes a recorded operation by restoring the batch to the
// snapshot taken before it ran, then flips the entry's revocation flag.
// Operations appended after the revoked one lose their effect; their count
// is returned so callers can warn about the discard.
func (s *LedgerService) Revoke(ctx context.Context, cmd RevokeCommand) (*RevokeResultDTO, error) {
	if cmd.LogID.IsZero() {
		return nil, domain.ErrLogEntryNotFound
	}

	var result *RevokeResultDTO

	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		entry, err := s.logs.FindByID(txCtx, cmd.LogID)
		if err != nil {
			return err
		}
		if entry.IsRevoked {
			return domain.ErrAlreadyRevoked
		}

		batch, err := s.batches.FindByID(txCtx, entry.TargetID)
		if err != nil {
			return err
		}

		discarded, err := s.logs.CountNewerForTarget(txCtx, entry.TargetID, entry.CreatedAt)
		if err != nil {
			return err
		}

		batch.Restore(entry.SnapshotData)

		if err := s.batches.Update(txCtx, batch); err != nil {
			return err
		}
		if err := s.logs.MarkRevoked(txCtx, entry.ID); err != nil {
			return err
		}

		event := &domain.OperationRevokedEvent{
			LogID:      entry.ID.String(),
			ActionType: entry.ActionType,
			BatchID:    batch.ID,
			ProductID:  batch.ProductID,
			OperatorID: cmd.OperatorID,
			RevokedAt:  batch.UpdatedAt,
		}
		outboxEvent, err := outbox.NewOutboxEvent(batch.ID, aggregateTypeBatch, kafka.Topics.OperationEvents, event)
		if err != nil {
			return fmt.Errorf("failed to create outbox event: %w", err)
		}
		if err := s.outbox.Save(txCtx, outboxEvent); err != nil {
			return fmt.Errorf("failed to save outbox event: %w", err)
		}

		result = &RevokeResultDTO{
			Batch:               toBatchDTO(batch),
			LogID:               entry.ID.String(),
			ActionType:          entry.ActionType.String(),
			DiscardedOperations: discarded,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.DiscardedOperations > 0 {
		s.logger.WithContext(ctx).Warn("Revoke discarded later operations",
			"logId", result.LogID,
			"batchId", result.Batch.ID,
			"discarded", result.DiscardedOperations,
		)
	}

	s.logger.WithContext(ctx).Info("Operation revoked",
		"logId", result.LogID,
		"batchId", result.Batch.ID,
		"operatorId", cmd.OperatorID,
	)

	return result, nil
}

func (s *LedgerService) saveRecordedEvent(ctx context.Context, entry *domain.OperationLogEntry, batch *domain.Batch) error {
	event := &domain.OperationRecordedEvent{
		LogID:      entry.ID.String(),
		ActionType: entry.ActionType,
		BatchID:    batch.ID,
		ProductID:  batch.ProductID,
		StoreID:    batch.StoreID,
		Delta:      entry.ChangeDelta,
		OperatorID: entry.OperatorID,
		RecordedAt: entry.CreatedAt,
	}

	outboxEvent, err := outbox.NewOutboxEvent(batch.ID, aggregateTypeBatch, kafka.Topics.OperationEvents, event)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	if err := s.outbox.Save(ctx, outboxEvent); err != nil {
		return fmt.Errorf("failed to save outbox event: %w", err)
	}
	return nil
}
