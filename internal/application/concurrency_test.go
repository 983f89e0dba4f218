package application

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inventory-platform/ledger-service/internal/domain"
	"github.com/inventory-platform/ledger-service/internal/infrastructure/memory"
	"github.com/inventory-platform/ledger-service/pkg/logging"
)

func newQuietLogger() *logging.Logger {
	return logging.New(&logging.Config{
		Level:       logging.LevelError,
		ServiceName: "ledger-service-test",
		Output:      io.Discard,
	})
}

// racingBatchRepo wraps the fake batch repository and lets a test inject a
// competing committed write between the service's read of a batch and its
// update, the interleaving that loses the optimistic version race.
type racingBatchRepo struct {
	*fakeBatchRepo
	interleave func()
}

func (r *racingBatchRepo) FindByID(ctx context.Context, id string) (*domain.Batch, error) {
	b, err := r.fakeBatchRepo.FindByID(ctx, id)
	if err == nil && r.interleave != nil {
		f := r.interleave
		r.interleave = nil
		f()
	}
	return b, err
}

func TestExecuteConcurrentDisjointBatches(t *testing.T) {
	store := memory.New()
	logger := newQuietLogger()
	service := NewLedgerService(store.Products(), store.Batches(), store.Logs(), store.Outbox(), store, logger)
	queries := NewQueryService(store.Products(), store.Batches(), store.Logs(), store.Operators(), logger)
	ctx := context.Background()

	product, err := service.CreateProduct(ctx, CreateProductCommand{
		Name:           "Mineral Water 550ml",
		SKU:            "WTR-550",
		UnitLarge:      "box",
		UnitSmall:      "bottle",
		ConversionRate: 24,
	})
	require.NoError(t, err)

	batchIDs := make([]string, 2)
	for i, number := range []string{"LOT-2026-001", "LOT-2026-002"} {
		created, err := service.CreateBatch(ctx, CreateBatchCommand{
			ProductID:   product.ID,
			StoreID:     "store-001",
			BatchNumber: number,
			ExpiryDate:  time.Now().Add(180 * 24 * time.Hour),
			OperatorID:  "op-1",
		})
		require.NoError(t, err)
		batchIDs[i] = created.Batch.ID
	}

	const perBatch = 10

	var wg sync.WaitGroup
	errs := make(chan error, 2*perBatch)
	for _, batchID := range batchIDs {
		for i := 0; i < perBatch; i++ {
			wg.Add(1)
			go func(target string) {
				defer wg.Done()
				_, err := service.Execute(ctx, ExecuteCommand{
					ActionType: domain.ActionInbound,
					TargetID:   target,
					Delta:      domain.Quantity{Small: 1},
					OperatorID: "op-1",
				})
				errs <- err
			}(batchID)
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	for _, batchID := range batchIDs {
		batch, err := queries.GetBatch(ctx, batchID)
		require.NoError(t, err)
		assert.Equal(t, 0, batch.QuantityLarge)
		assert.Equal(t, perBatch, batch.QuantitySmall)
	}

	totals, err := queries.ProductTotals(ctx, ProductTotalsQuery{ProductID: product.ID})
	require.NoError(t, err)
	assert.Equal(t, 2*perBatch, totals.TotalSmall)

	// Every execute appended exactly one entry, plus one IMPORT per batch.
	entries, err := queries.RecentActivity(ctx, RecentActivityQuery{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, entries, 2*perBatch+2)
}

func TestExecuteLostVersionRaceSurfacesConflict(t *testing.T) {
	logger := newQuietLogger()
	products := newFakeProductRepo()
	batches := &racingBatchRepo{fakeBatchRepo: newFakeBatchRepo()}
	logs := newFakeLogRepo()
	outboxRepo := newFakeOutboxRepo()
	service := NewLedgerService(products, batches, logs, outboxRepo, &fakeTransactor{}, logger)
	ctx := context.Background()

	product, err := service.CreateProduct(ctx, CreateProductCommand{
		Name:           "Mineral Water 550ml",
		SKU:            "WTR-550",
		UnitLarge:      "box",
		UnitSmall:      "bottle",
		ConversionRate: 24,
	})
	require.NoError(t, err)

	created, err := service.CreateBatch(ctx, CreateBatchCommand{
		ProductID:       product.ID,
		StoreID:         "store-001",
		BatchNumber:     "LOT-2026-001",
		ExpiryDate:      time.Now().Add(180 * 24 * time.Hour),
		InitialQuantity: domain.Quantity{Large: 2},
		OperatorID:      "op-1",
	})
	require.NoError(t, err)
	batchID := created.Batch.ID

	logsBefore := len(logs.entries)
	eventsBefore := len(outboxRepo.events)

	// A competing writer commits between this execute's read and its
	// update, so the version check must fail.
	batches.interleave = func() {
		batches.fakeBatchRepo.batches[batchID].Version++
	}

	_, err = service.Execute(ctx, ExecuteCommand{
		ActionType: domain.ActionOutbound,
		TargetID:   batchID,
		Delta:      domain.Quantity{Large: -1},
		OperatorID: "op-1",
	})
	assert.ErrorIs(t, err, domain.ErrTransactionConflict)

	// The losing execute left no trace: no log entry, no outbox event.
	assert.Len(t, logs.entries, logsBefore)
	assert.Len(t, outboxRepo.events, eventsBefore)

	// A retry with fresh state goes through.
	result, err := service.Execute(ctx, ExecuteCommand{
		ActionType: domain.ActionOutbound,
		TargetID:   batchID,
		Delta:      domain.Quantity{Large: -1},
		OperatorID: "op-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Batch.QuantityLarge)
}
