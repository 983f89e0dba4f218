package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/inventory-platform/ledger-service/internal/domain"
	"github.com/inventory-platform/ledger-service/internal/infrastructure/mongodb"
	sharedtesting "github.com/inventory-platform/ledger-service/pkg/testing"
)

func setupTestDatabase(t *testing.T) (*mongo.Database, func()) {
	ctx := context.Background()

	mongoContainer, err := sharedtesting.NewMongoDBContainer(ctx)
	require.NoError(t, err)

	client, err := mongoContainer.GetClient(ctx)
	require.NoError(t, err)

	db := client.Database("test_ledger_db")

	cleanup := func() {
		if err := client.Disconnect(ctx); err != nil {
			t.Logf("Failed to disconnect MongoDB client: %v", err)
		}
		if err := mongoContainer.Close(ctx); err != nil {
			t.Logf("Failed to close MongoDB container: %v", err)
		}
	}

	return db, cleanup
}

func createTestProduct(t *testing.T, sku string) *domain.Product {
	t.Helper()
	product, err := domain.NewProduct("Bottled Water 550ml", sku, "beverages", "crate", "bottle", 24)
	require.NoError(t, err)
	return product
}

func createTestBatch(t *testing.T, productID string) *domain.Batch {
	t.Helper()
	batch, err := domain.NewBatch(productID, "store-01", "BN-001", time.Now().Add(72*time.Hour), "")
	require.NoError(t, err)
	return batch
}

func TestProductRepository(t *testing.T) {
	db, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo := mongodb.NewProductRepository(db)
	require.NoError(t, repo.EnsureIndexes(ctx))

	t.Run("save and find product", func(t *testing.T) {
		product := createTestProduct(t, "WTR-550")

		err := repo.Save(ctx, product)
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, product.ID)
		require.NoError(t, err)
		assert.Equal(t, "WTR-550", found.SKU)
		assert.Equal(t, 24, found.ConversionRate)

		bySKU, err := repo.FindBySKU(ctx, "WTR-550")
		require.NoError(t, err)
		assert.Equal(t, product.ID, bySKU.ID)
	})

	t.Run("duplicate SKU rejected", func(t *testing.T) {
		duplicate := createTestProduct(t, "WTR-550")

		err := repo.Save(ctx, duplicate)
		assert.ErrorIs(t, err, domain.ErrSKUExists)
	})

	t.Run("find missing product", func(t *testing.T) {
		_, err := repo.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	})

	t.Run("list with pagination", func(t *testing.T) {
		for _, sku := range []string{"SNK-010", "SNK-011", "SNK-012"} {
			require.NoError(t, repo.Save(ctx, createTestProduct(t, sku)))
		}

		page, err := repo.FindAll(ctx, 2, 0)
		require.NoError(t, err)
		assert.Len(t, page, 2)

		rest, err := repo.FindAll(ctx, 10, 2)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(rest), 2)
	})
}

func TestBatchRepository(t *testing.T) {
	db, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo := mongodb.NewBatchRepository(db)
	require.NoError(t, repo.EnsureIndexes(ctx))

	t.Run("insert and find batch", func(t *testing.T) {
		batch := createTestBatch(t, "product-1")

		err := repo.Insert(ctx, batch)
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, batch.ID)
		require.NoError(t, err)
		assert.Equal(t, batch.BatchNumber, found.BatchNumber)
		assert.Equal(t, int64(0), found.Version)
	})

	t.Run("update bumps version", func(t *testing.T) {
		batch := createTestBatch(t, "product-2")
		require.NoError(t, repo.Insert(ctx, batch))

		require.NoError(t, batch.Apply(domain.Quantity{Large: 2, Small: 3}, 24))
		require.NoError(t, repo.Update(ctx, batch))
		assert.Equal(t, int64(1), batch.Version)

		found, err := repo.FindByID(ctx, batch.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), found.Version)
		assert.Equal(t, 2, found.Quantity.Large)
		assert.Equal(t, 3, found.Quantity.Small)
	})

	t.Run("stale version loses the race", func(t *testing.T) {
		batch := createTestBatch(t, "product-3")
		require.NoError(t, repo.Insert(ctx, batch))

		fresh, err := repo.FindByID(ctx, batch.ID)
		require.NoError(t, err)
		stale, err := repo.FindByID(ctx, batch.ID)
		require.NoError(t, err)

		require.NoError(t, fresh.Apply(domain.Quantity{Large: 1}, 24))
		require.NoError(t, repo.Update(ctx, fresh))

		require.NoError(t, stale.Apply(domain.Quantity{Large: 1}, 24))
		err = repo.Update(ctx, stale)
		assert.ErrorIs(t, err, domain.ErrTransactionConflict)
	})

	t.Run("update of missing batch", func(t *testing.T) {
		ghost := createTestBatch(t, "product-4")
		err := repo.Update(ctx, ghost)
		assert.ErrorIs(t, err, domain.ErrBatchNotFound)
	})

	t.Run("find by product includes tombstoned", func(t *testing.T) {
		live := createTestBatch(t, "product-5")
		require.NoError(t, repo.Insert(ctx, live))

		dead, err := domain.NewBatch("product-5", "store-01", "BN-002", time.Now().Add(time.Hour), "")
		require.NoError(t, err)
		_, err = dead.MarkDeleted()
		require.NoError(t, err)
		require.NoError(t, repo.Insert(ctx, dead))

		batches, err := repo.FindByProduct(ctx, "product-5")
		require.NoError(t, err)
		assert.Len(t, batches, 2)
	})
}

func TestOperationLogRepository(t *testing.T) {
	db, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo := mongodb.NewOperationLogRepository(db)
	require.NoError(t, repo.EnsureIndexes(ctx))

	appendEntry := func(t *testing.T, action domain.ActionType, targetID string, delta domain.Quantity) *domain.OperationLogEntry {
		t.Helper()
		entry, err := domain.NewOperationLogEntry(action, targetID, delta, domain.Batch{ID: targetID}, "op-01")
		require.NoError(t, err)
		require.NoError(t, repo.Append(ctx, entry))
		return entry
	}

	t.Run("append and find entry", func(t *testing.T) {
		entry := appendEntry(t, domain.ActionInbound, "batch-1", domain.Quantity{Large: 2, Small: 5})

		found, err := repo.FindByID(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionInbound, found.ActionType)
		assert.Equal(t, 2, found.ChangeDelta.Large)
		assert.Equal(t, 5, found.ChangeDelta.Small)
		assert.False(t, found.IsRevoked)
		assert.Equal(t, "batch-1", found.SnapshotData.ID)
	})

	t.Run("mark revoked is monotonic", func(t *testing.T) {
		entry := appendEntry(t, domain.ActionOutbound, "batch-2", domain.Quantity{Large: -1})

		require.NoError(t, repo.MarkRevoked(ctx, entry.ID))

		found, err := repo.FindByID(ctx, entry.ID)
		require.NoError(t, err)
		assert.True(t, found.IsRevoked)

		err = repo.MarkRevoked(ctx, entry.ID)
		assert.ErrorIs(t, err, domain.ErrAlreadyRevoked)
	})

	t.Run("mark revoked on missing entry", func(t *testing.T) {
		missing, err := domain.ParseLogID("OP-20240101000000-deadbeef")
		require.NoError(t, err)
		err = repo.MarkRevoked(ctx, missing)
		assert.ErrorIs(t, err, domain.ErrLogEntryNotFound)
	})

	t.Run("recent returns newest first", func(t *testing.T) {
		first := appendEntry(t, domain.ActionInbound, "batch-3", domain.Quantity{Large: 1})
		time.Sleep(5 * time.Millisecond)
		second := appendEntry(t, domain.ActionAdjust, "batch-3", domain.Quantity{Small: -2})

		entries, err := repo.Recent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, second.ID, entries[0].ID)
		assert.Equal(t, first.ID, entries[1].ID)
	})

	t.Run("count newer skips revoked entries", func(t *testing.T) {
		first := appendEntry(t, domain.ActionInbound, "batch-4", domain.Quantity{Large: 1})
		time.Sleep(5 * time.Millisecond)
		second := appendEntry(t, domain.ActionOutbound, "batch-4", domain.Quantity{Large: -1})
		time.Sleep(5 * time.Millisecond)
		appendEntry(t, domain.ActionInbound, "batch-other", domain.Quantity{Large: 1})

		count, err := repo.CountNewerForTarget(ctx, "batch-4", first.CreatedAt)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		require.NoError(t, repo.MarkRevoked(ctx, second.ID))

		count, err = repo.CountNewerForTarget(ctx, "batch-4", first.CreatedAt)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})
}

func TestOperatorRepository(t *testing.T) {
	db, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo := mongodb.NewOperatorRepository(db)

	seed := domain.Operator{ID: "op-42", Username: "alice", Role: domain.RoleManager}
	_, err := db.Collection("profiles").InsertOne(ctx, seed)
	require.NoError(t, err)

	t.Run("find seeded operator", func(t *testing.T) {
		found, err := repo.FindByID(ctx, "op-42")
		require.NoError(t, err)
		assert.Equal(t, "alice", found.Username)
		assert.Equal(t, domain.RoleManager, found.Role)
	})

	t.Run("find missing operator", func(t *testing.T) {
		_, err := repo.FindByID(ctx, "op-missing")
		assert.ErrorIs(t, err, domain.ErrOperatorNotFound)
	})
}
