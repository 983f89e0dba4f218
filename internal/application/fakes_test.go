package application

import (
	"context"
	"sort"
	"time"

	"github.com/inventory-platform/ledger-service/internal/domain"
	"github.com/inventory-platform/ledger-service/pkg/outbox"
)

// Handwritten in-memory fakes for the domain ports. Behavior mirrors the
// MongoDB implementations, including the optimistic version check on
// batch updates.

type fakeProductRepo struct {
	products map[string]*domain.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: make(map[string]*domain.Product)}
}

func (r *fakeProductRepo) Save(ctx context.Context, product *domain.Product) error {
	for _, p := range r.products {
		if p.SKU == product.SKU {
			return domain.ErrSKUExists
		}
	}
	copied := *product
	r.products[product.ID] = &copied
	return nil
}

func (r *fakeProductRepo) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakeProductRepo) FindBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	for _, p := range r.products {
		if p.SKU == sku {
			copied := *p
			return &copied, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func (r *fakeProductRepo) FindAll(ctx context.Context, limit, offset int) ([]*domain.Product, error) {
	all := make([]*domain.Product, 0, len(r.products))
	for _, p := range r.products {
		copied := *p
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

type fakeBatchRepo struct {
	batches map[string]*domain.Batch
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{batches: make(map[string]*domain.Batch)}
}

func (r *fakeBatchRepo) FindByID(ctx context.Context, id string) (*domain.Batch, error) {
	b, ok := r.batches[id]
	if !ok {
		return nil, domain.ErrBatchNotFound
	}
	copied := *b
	return &copied, nil
}

func (r *fakeBatchRepo) FindByProduct(ctx context.Context, productID string) ([]*domain.Batch, error) {
	var result []*domain.Batch
	for _, b := range r.batches {
		if b.ProductID == productID {
			copied := *b
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *fakeBatchRepo) Insert(ctx context.Context, batch *domain.Batch) error {
	copied := *batch
	r.batches[batch.ID] = &copied
	return nil
}

func (r *fakeBatchRepo) Update(ctx context.Context, batch *domain.Batch) error {
	stored, ok := r.batches[batch.ID]
	if !ok {
		return domain.ErrBatchNotFound
	}
	if stored.Version != batch.Version {
		return domain.ErrTransactionConflict
	}
	batch.Version++
	copied := *batch
	r.batches[batch.ID] = &copied
	return nil
}

type fakeLogRepo struct {
	entries []*domain.OperationLogEntry
}

func newFakeLogRepo() *fakeLogRepo {
	return &fakeLogRepo{}
}

func (r *fakeLogRepo) Append(ctx context.Context, entry *domain.OperationLogEntry) error {
	copied := *entry
	r.entries = append(r.entries, &copied)
	return nil
}

func (r *fakeLogRepo) FindByID(ctx context.Context, id domain.LogID) (*domain.OperationLogEntry, error) {
	for _, e := range r.entries {
		if e.ID.String() == id.String() {
			copied := *e
			return &copied, nil
		}
	}
	return nil, domain.ErrLogEntryNotFound
}

func (r *fakeLogRepo) MarkRevoked(ctx context.Context, id domain.LogID) error {
	for _, e := range r.entries {
		if e.ID.String() == id.String() {
			return e.MarkRevoked()
		}
	}
	return domain.ErrLogEntryNotFound
}

func (r *fakeLogRepo) Recent(ctx context.Context, limit int) ([]*domain.OperationLogEntry, error) {
	all := make([]*domain.OperationLogEntry, 0, len(r.entries))
	for _, e := range r.entries {
		copied := *e
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *fakeLogRepo) CountNewerForTarget(ctx context.Context, targetID string, after time.Time) (int64, error) {
	var count int64
	for _, e := range r.entries {
		if e.TargetID == targetID && !e.IsRevoked && e.CreatedAt.After(after) {
			count++
		}
	}
	return count, nil
}

type fakeOperatorRepo struct {
	operators map[string]*domain.Operator
}

func newFakeOperatorRepo() *fakeOperatorRepo {
	return &fakeOperatorRepo{operators: make(map[string]*domain.Operator)}
}

func (r *fakeOperatorRepo) FindByID(ctx context.Context, id string) (*domain.Operator, error) {
	op, ok := r.operators[id]
	if !ok {
		return nil, domain.ErrOperatorNotFound
	}
	copied := *op
	return &copied, nil
}

type fakeOutboxRepo struct {
	events []*outbox.OutboxEvent
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{}
}

func (r *fakeOutboxRepo) Save(ctx context.Context, event *outbox.OutboxEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *fakeOutboxRepo) SaveAll(ctx context.Context, events []*outbox.OutboxEvent) error {
	r.events = append(r.events, events...)
	return nil
}

func (r *fakeOutboxRepo) FindUnpublished(ctx context.Context, limit int) ([]*outbox.OutboxEvent, error) {
	var result []*outbox.OutboxEvent
	for _, e := range r.events {
		if !e.IsPublished() {
			result = append(result, e)
		}
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (r *fakeOutboxRepo) MarkPublished(ctx context.Context, eventID string) error {
	for _, e := range r.events {
		if e.ID == eventID {
			now := time.Now()
			e.PublishedAt = &now
			return nil
		}
	}
	return nil
}

func (r *fakeOutboxRepo) IncrementRetry(ctx context.Context, eventID string, errorMsg string) error {
	for _, e := range r.events {
		if e.ID == eventID {
			e.RetryCount++
			e.LastError = errorMsg
		}
	}
	return nil
}

func (r *fakeOutboxRepo) DeletePublished(ctx context.Context, olderThan int64) error {
	return nil
}

func (r *fakeOutboxRepo) GetByID(ctx context.Context, eventID string) (*outbox.OutboxEvent, error) {
	for _, e := range r.events {
		if e.ID == eventID {
			return e, nil
		}
	}
	return nil, domain.ErrLogEntryNotFound
}

func (r *fakeOutboxRepo) FindByAggregateID(ctx context.Context, aggregateID string) ([]*outbox.OutboxEvent, error) {
	var result []*outbox.OutboxEvent
	for _, e := range r.events {
		if e.AggregateID == aggregateID {
			result = append(result, e)
		}
	}
	return result, nil
}

type fakeTransactor struct{}

func (t *fakeTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
