package application

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inventory-platform/ledger-service/internal/domain"
	"github.com/inventory-platform/ledger-service/pkg/logging"
)

type testEnv struct {
	service   *LedgerService
	queries   *QueryService
	products  *fakeProductRepo
	batches   *fakeBatchRepo
	logs      *fakeLogRepo
	operators *fakeOperatorRepo
	outbox    *fakeOutboxRepo
}

func newTestEnv() *testEnv {
	logger := logging.New(&logging.Config{
		Level:       logging.LevelError,
		ServiceName: "ledger-service-test",
		Output:      io.Discard,
	})

	products := newFakeProductRepo()
	batches := newFakeBatchRepo()
	logs := newFakeLogRepo()
	operators := newFakeOperatorRepo()
	outboxRepo := newFakeOutboxRepo()

	return &testEnv{
		service:   NewLedgerService(products, batches, logs, outboxRepo, &fakeTransactor{}, logger),
		queries:   NewQueryService(products, batches, logs, operators, logger),
		products:  products,
		batches:   batches,
		logs:      logs,
		operators: operators,
		outbox:    outboxRepo,
	}
}

func (env *testEnv) createProduct(t *testing.T, rate int) *ProductDTO {
	t.Helper()
	product, err := env.service.CreateProduct(context.Background(), CreateProductCommand{
		Name:           "Mineral Water 550ml",
		SKU:            "WTR-550",
		Category:       "beverages",
		UnitLarge:      "box",
		UnitSmall:      "bottle",
		ConversionRate: rate,
	})
	require.NoError(t, err)
	return product
}

func (env *testEnv) createBatch(t *testing.T, productID string, initial domain.Quantity) *ExecuteResultDTO {
	t.Helper()
	result, err := env.service.CreateBatch(context.Background(), CreateBatchCommand{
		ProductID:       productID,
		StoreID:         "store-001",
		BatchNumber:     "LOT-2026-001",
		ExpiryDate:      time.Now().Add(180 * 24 * time.Hour),
		InitialQuantity: initial,
		OperatorID:      "op-1",
	})
	require.NoError(t, err)
	return result
}

func TestCreateProduct(t *testing.T) {
	env := newTestEnv()

	product := env.createProduct(t, 24)
	assert.Equal(t, "WTR-550", product.SKU)
	assert.Equal(t, 24, product.ConversionRate)

	_, err := env.service.CreateProduct(context.Background(), CreateProductCommand{
		Name:           "Duplicate",
		SKU:            "wtr-550",
		UnitLarge:      "box",
		UnitSmall:      "bottle",
		ConversionRate: 24,
	})
	assert.ErrorIs(t, err, domain.ErrSKUExists)
}

func TestCreateProductRejectsInvalidRate(t *testing.T) {
	env := newTestEnv()

	_, err := env.service.CreateProduct(context.Background(), CreateProductCommand{
		Name:           "Broken",
		SKU:            "BRK-1",
		UnitLarge:      "box",
		UnitSmall:      "bottle",
		ConversionRate: 0,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRate)
}

func TestCreateBatchLogsImport(t *testing.T) {
	env := newTestEnv()
	product := env.createProduct(t, 24)

	result := env.createBatch(t, product.ID, domain.Quantity{Large: 3, Small: 5})

	assert.Equal(t, 3, result.Batch.QuantityLarge)
	assert.Equal(t, 5, result.Batch.QuantitySmall)
	assert.NotEmpty(t, result.LogID)

	require.Len(t, env.logs.entries, 1)
	entry := env.logs.entries[0]
	assert.Equal(t, domain.ActionImport, entry.ActionType)
	assert.Equal(t, result.Batch.ID, entry.TargetID)
	assert.Equal(t, domain.Quantity{Large: 3, Small: 5}, entry.ChangeDelta)
	assert.True(t, entry.SnapshotData.Quantity.IsZero(), "snapshot must predate the import")

	require.Len(t, env.outbox.events, 1)
	assert.Equal(t, "ledger.operation.recorded", env.outbox.events[0].EventType)
}

func TestCreateBatchZeroInitialStillLogged(t *testing.T) {
	env := newTestEnv()
	product := env.createProduct(t, 24)

	result := env.createBatch(t, product.ID, domain.ZeroQuantity())

	assert.Equal(t, 0, result.Batch.QuantityLarge)
	require.Len(t, env.logs.entries, 1)
	assert.Equal(t, domain.ActionImport, env.logs.entries[0].ActionType)
}

func TestCreateBatchUnknownProduct(t *testing.T) {
	env := newTestEnv()

	_, err := env.service.CreateBatch(context.Background(), CreateBatchCommand{
		ProductID:   "missing",
		StoreID:     "store-001",
		BatchNumber: "LOT-1",
		OperatorID:  "op-1",
	})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestExecuteInboundNormalizes(t *testing.T) {
	env := newTestEnv()
	product := env.createProduct(t, 24)
	batch := env.createBatch(t, product.ID, domain.Quantity{Large: 1, Small: 20})

	result, err := env.service.Execute(context.Background(), ExecuteCommand{
		ActionType: domain.ActionInbound,
		TargetID:   batch.Batch.ID,
		Delta:      domain.Quantity{Large: 0, Small: 10},
		OperatorID: "op-1",
	})
	require.NoError(t, err)

	// 1*24+20+10 = 54 = 2 boxes + 6 bottles
	assert.Equal(t, 2, result.Batch.QuantityLarge)
	assert.Equal(t, 6, result.Batch.QuantitySmall)
}

func TestExecuteOutboundInsufficientStock(t *testing.T) {
	env := newTestEnv()
	product := env.createProduct(t, 24)
	batch := env.createBatch(t, product.ID, domain.Quantity{Large: 0, Small: 5})

	_, err := env.service.Execute(context.Background(), ExecuteCommand{
		ActionType: domain.ActionOutbound,
		TargetID:   batch.Batch.ID,
		Delta:      domain.Quantity{Large: 0, Small: -6},
		OperatorID: "op-1",
	})
	assert.ErrorIs(t, err, domain.ErrNegativeStock)

	// The failed operation must leave no trace
	stored, err := env.batches.FindByID(context.Background(), batch.Batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Quantity.Small)
	assert.Len(t, env.logs.entries, 1, "only the IMPORT entry should exist")
}

func TestExecuteDeltaSignValidation(t *testing.T) {
	env := newTestEnv()
	product := env.createProduct(t, 24)
	batch := env.createBatch(t, product.ID, domain.Quantity{Large: 2, Small: 0})

	tests := []struct {
		name    string
		action  domain.ActionType
		delta   domain.Quantity
		wantErr error
	}{
		{"inbound negative", domain.ActionInbound, domain.Quantity{Small: -1}, domain.ErrDeltaSignMismatch},
		{"inbound zero", domain.ActionInbound, domain.ZeroQuantity(), domain.ErrDeltaSignMismatch},
		{"outbound positive", domain.ActionOutbound, domain.Quantity{Small: 1}, domain.ErrDeltaSignMismatch},
		{"adjust zero", domain.ActionAdjust, domain.ZeroQuantity(), domain.ErrZeroDelta},
		{"import negative", domain.ActionImport, domain.Quantity{Small: -1}, domain.ErrDeltaSignMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.service.Execute(context.Background(), ExecuteCommand{
				ActionType: tt.action,
				TargetID:   batch.Batch.ID,
				Delta:      tt.delta,
				OperatorID: "op-1",
			})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExecuteUnknownAction(t *testing.T) {
	env := newTestEnv()

	_, err := env.service.Execute(context.Background(), ExecuteCommand{
		ActionType: domain.ActionType("TRANSMUTE"),
		TargetID:   "whatever",
		OperatorID: "op-1",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidActionType)
}

func TestExecuteDeleteTombstones(t *testing.T) {
	env := newTestEnv()
	product := env.createProduct(t, 24)
	batch := env.createBatch(t, product.ID, domain.Quantity{Large: 2, Small: 3})

	result, err := env.service.Execute(context.Background(), ExecuteCommand{
		ActionType: domain.ActionDelete,
		TargetID:   batch.Batch.ID,
		OperatorID: "op-1",
	})
	require.NoError(t, err)

	assert.True(t, result.Batch.Deleted)
	assert.Equal(t, 0, result.Batch.QuantityLarge)
	assert.Equal(t, 0, result.Batch.QuantitySmall)

	// The logged delta is the negated prior quantity
	entry := env.logs.entries[len(env.logs.entries)-1]
	assert.Equal(t, domain.ActionDelete, entry.ActionType)
	assert.Equal(t, domain.Quantity{Large: -2, Small: -3}, entry.ChangeDelta)
	assert.False(t, entry.SnapshotData.Deleted)

	// The record remains addressable after the tombstone
	stored, err := env.batches.FindByID(context.Background(), batch.Batch.ID)
	require.NoError(t, err)
	assert.True(t, stored.Deleted)
}

func TestExecuteOnDeletedBatch(t *testing.T) {
	env := newTestEnv()
	product := env.createProduct(t, 24)
	batch := env.createBatch(t, product.ID, domain.Quantity{Large: 1, Small: 0})

	_, err := env.service.Execute(context.Background(), ExecuteCommand{
		ActionType: domain.ActionDelete,
		TargetID:   batch.Batch.ID,
		OperatorID: "op-1",
	})
	require.NoError(t, err)

	_, err = env.service.Execute(context.Background(), ExecuteCommand{
		ActionType: domain.ActionInbound,
		TargetID:   batch.Batch.ID,
		Delta:      domain.Quantity{Small: 1},
		OperatorID: "op-1",
	})
	assert.ErrorIs(t, err, domain.ErrBatchDeleted)

	_, err = env.service.Execute(context.Background(), ExecuteCommand{
		ActionType: domain.ActionDelete,
		TargetID:   batch.Batch.ID,
		OperatorID: "op-1",
	})
	assert.ErrorIs(t, err, domain.ErrBatchDeleted)
}

func TestRevokeRestoresSnapshot(t *testing.T) {
	env := newTestEnv()
	product := env.createProduct(t, 24)
	batch := env.createBatch(t, product.ID, domain.Quantity{Large: 2, Small: 0})

	executed, err := env.service.Execute(context.Background(), ExecuteCommand{
		ActionType: domain.ActionOutbound,
		TargetID:   batch.Batch.ID,
		Delta:      domain.Quantity{Large: -1, Small: 0},
		OperatorID: "op-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, executed.Batch.QuantityLarge)

	logID, err := domain.ParseLogID(executed.LogID)
	require.NoError(t, err)

	revoked, err := env.service.Revoke(context.Background(), RevokeCommand{
		LogID:      logID,
		OperatorID: "op-2",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, revoked.Batch.QuantityLarge)
	assert.Equal(t, int64(0), revoked.DiscardedOperations)

	// The entry is flagged, not removed
	entry, err := env.logs.FindByID(context.Background(), logID)
	require.NoError(t, err)
	assert.True(t, entry.IsRevoked)
}

func TestRevokeTwiceFails(t *testing.T) {
	env := newTestEnv()
	product := env.createProduct(t, 24)
	batch := env.createBatch(t, product.ID, domain.Quantity{Large: 2, Small: 0})

	executed, err := env.service.Execute(context.Background(), ExecuteCommand{
		ActionType: domain.ActionInbound,
		TargetID:   batch.Batch.ID,
		Delta:      domain.Quantity{Large: 1},
		OperatorID: "op-1",
	})
	require.NoError(t, err)

	logID, err := domain.ParseLogID(executed.LogID)
	require.NoError(t, err)

	_, err = env.service.Revoke(context.Background(), RevokeCommand{LogID: logID, OperatorID: "op-1"})
	require.NoError(t, err)

	_, err = env.service.Revoke(context.Background(), RevokeCommand{LogID: logID, OperatorID: "op-1"})
	assert.ErrorIs(t, err, domain.ErrAlreadyRevoked)
}

func TestRevokeNonLatestReportsDiscarded(t *testing.T) {
	env := newTestEnv()
	product := env.createProduct(t, 24)
	batch := env.createBatch(t, product.ID, domain.Quantity{Large: 5, Small: 0})

	first, err := env.service.Execute(context.Background(), ExecuteCommand{
		ActionType: domain.ActionOutbound,
		TargetID:   batch.Batch.ID,
		Delta:      domain.Quantity{Large: -1},
		OperatorID: "op-1",
	})
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)

	_, err = env.service.Execute(context.Background(), ExecuteCommand{
		ActionType: domain.ActionOutbound,
		TargetID:   batch.Batch.ID,
		Delta:      domain.Quantity{Large: -2},
		OperatorID: "op-1",
	})
	require.NoError(t, err)

	logID, err := domain.ParseLogID(first.LogID)
	require.NoError(t, err)

	revoked, err := env.service.Revoke(context.Background(), RevokeCommand{LogID: logID, OperatorID: "op-2"})
	require.NoError(t, err)

	// Restoring the snapshot from before the first outbound wipes the
	// second one too; the caller is told how many entries lost effect.
	assert.Equal(t, int64(1), revoked.DiscardedOperations)
	assert.Equal(t, 5, revoked.Batch.QuantityLarge)
}

func TestRevokeDeleteRestoresBatch(t *testing.T) {
	env := newTestEnv()
	product := env.createProduct(t, 24)
	batch := env.createBatch(t, product.ID, domain.Quantity{Large: 2, Small: 3})

	deleted, err := env.service.Execute(context.Background(), ExecuteCommand{
		ActionType: domain.ActionDelete,
		TargetID:   batch.Batch.ID,
		OperatorID: "op-1",
	})
	require.NoError(t, err)

	logID, err := domain.ParseLogID(deleted.LogID)
	require.NoError(t, err)

	revoked, err := env.service.Revoke(context.Background(), RevokeCommand{LogID: logID, OperatorID: "op-1"})
	require.NoError(t, err)

	assert.False(t, revoked.Batch.Deleted)
	assert.Equal(t, 2, revoked.Batch.QuantityLarge)
	assert.Equal(t, 3, revoked.Batch.QuantitySmall)
}

func TestRevokeUnknownEntry(t *testing.T) {
	env := newTestEnv()

	logID, err := domain.ParseLogID("OP-20260101000000-deadbeef")
	require.NoError(t, err)

	_, err = env.service.Revoke(context.Background(), RevokeCommand{LogID: logID, OperatorID: "op-1"})
	assert.ErrorIs(t, err, domain.ErrLogEntryNotFound)
}

func TestExecuteEmitsOutboxEvent(t *testing.T) {
	env := newTestEnv()
	product := env.createProduct(t, 24)
	batch := env.createBatch(t, product.ID, domain.Quantity{Large: 1})

	_, err := env.service.Execute(context.Background(), ExecuteCommand{
		ActionType: domain.ActionInbound,
		TargetID:   batch.Batch.ID,
		Delta:      domain.Quantity{Large: 1},
		OperatorID: "op-1",
	})
	require.NoError(t, err)

	// One event for the IMPORT at creation, one for the INBOUND
	require.Len(t, env.outbox.events, 2)
	assert.Equal(t, batch.Batch.ID, env.outbox.events[1].AggregateID)
	assert.Equal(t, "ledger.operation.recorded", env.outbox.events[1].EventType)
}
