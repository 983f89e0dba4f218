package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/inventory-platform/ledger-service/internal/domain"
	"github.com/inventory-platform/ledger-service/pkg/outbox"
)

// Store is an in-memory implementation of every persistence port, used for
// local development and tests that do not need a real MongoDB. A single
// RWMutex guards the maps. Transactions hold the write lock from start to
// commit, so readers block for the duration and can never observe
// partially-applied state; on error the pre-transaction copy is restored
// before the lock is released.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	products  map[string]domain.Product
	batches   map[string]domain.Batch
	entries   map[string]domain.OperationLogEntry
	logOrder  []string
	operators map[string]domain.Operator
	events    []*outbox.OutboxEvent
}

// New creates an empty in-memory store
func New() *Store {
	return &Store{
		products:  make(map[string]domain.Product),
		batches:   make(map[string]domain.Batch),
		entries:   make(map[string]domain.OperationLogEntry),
		operators: make(map[string]domain.Operator),
	}
}

// SeedOperator inserts an operator record, for development setups
func (s *Store) SeedOperator(operator domain.Operator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operators[operator.ID] = operator
}

// Products returns the product repository view of the store
func (s *Store) Products() domain.ProductRepository { return &productStore{s} }

// Batches returns the batch repository view of the store
func (s *Store) Batches() domain.BatchRepository { return &batchStore{s} }

// Logs returns the operation log repository view of the store
func (s *Store) Logs() domain.OperationLogRepository { return &logStore{s} }

// Operators returns the operator repository view of the store
func (s *Store) Operators() domain.OperatorRepository { return &operatorStore{s} }

// Outbox returns the outbox repository view of the store
func (s *Store) Outbox() outbox.Repository { return &outboxStore{s} }

// txKey marks a context as running inside WithinTransaction. Repository
// calls carrying the marker skip per-call locking: the transaction already
// holds the write lock.
type txKey struct{}

func inTx(ctx context.Context) bool {
	return ctx.Value(txKey{}) != nil
}

// lock acquires the write lock unless the context is transactional, and
// returns the matching unlock.
func (s *Store) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// rlock acquires the read lock unless the context is transactional.
func (s *Store) rlock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

// WithinTransaction implements domain.Transactor. Transactions run one at
// a time and hold the store's write lock across fn, so concurrent readers
// see either none or all of the transaction's writes. On error all state
// is restored to the pre-transaction copy before the lock is released.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	products := copyMap(s.products)
	batches := copyMap(s.batches)
	entries := copyMap(s.entries)
	logOrder := append([]string(nil), s.logOrder...)
	events := append([]*outbox.OutboxEvent(nil), s.events...)

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.products = products
		s.batches = batches
		s.entries = entries
		s.logOrder = logOrder
		s.events = events
		return err
	}
	return nil
}

func copyMap[V any](src map[string]V) map[string]V {
	dst := make(map[string]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

type productStore struct{ s *Store }

func (r *productStore) Save(ctx context.Context, product *domain.Product) error {
	defer r.s.lock(ctx)()

	for _, p := range r.s.products {
		if p.SKU == product.SKU {
			return domain.ErrSKUExists
		}
	}
	r.s.products[product.ID] = *product
	return nil
}

func (r *productStore) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	defer r.s.rlock(ctx)()

	p, ok := r.s.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

func (r *productStore) FindBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	defer r.s.rlock(ctx)()

	for _, p := range r.s.products {
		if p.SKU == sku {
			found := p
			return &found, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func (r *productStore) FindAll(ctx context.Context, limit, offset int) ([]*domain.Product, error) {
	defer r.s.rlock(ctx)()

	all := make([]*domain.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		copied := p
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

type batchStore struct{ s *Store }

func (r *batchStore) FindByID(ctx context.Context, id string) (*domain.Batch, error) {
	defer r.s.rlock(ctx)()

	b, ok := r.s.batches[id]
	if !ok {
		return nil, domain.ErrBatchNotFound
	}
	return &b, nil
}

func (r *batchStore) FindByProduct(ctx context.Context, productID string) ([]*domain.Batch, error) {
	defer r.s.rlock(ctx)()

	var result []*domain.Batch
	for _, b := range r.s.batches {
		if b.ProductID == productID {
			copied := b
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *batchStore) Insert(ctx context.Context, batch *domain.Batch) error {
	defer r.s.lock(ctx)()

	if _, exists := r.s.batches[batch.ID]; exists {
		return fmt.Errorf("batch %s already exists", batch.ID)
	}
	r.s.batches[batch.ID] = *batch
	return nil
}

func (r *batchStore) Update(ctx context.Context, batch *domain.Batch) error {
	defer r.s.lock(ctx)()

	stored, ok := r.s.batches[batch.ID]
	if !ok {
		return domain.ErrBatchNotFound
	}
	if stored.Version != batch.Version {
		return domain.ErrTransactionConflict
	}
	batch.Version++
	r.s.batches[batch.ID] = *batch
	return nil
}

type logStore struct{ s *Store }

func (r *logStore) Append(ctx context.Context, entry *domain.OperationLogEntry) error {
	defer r.s.lock(ctx)()

	id := entry.ID.String()
	if _, exists := r.s.entries[id]; exists {
		return fmt.Errorf("operation log entry %s already exists", id)
	}
	r.s.entries[id] = *entry
	r.s.logOrder = append(r.s.logOrder, id)
	return nil
}

func (r *logStore) FindByID(ctx context.Context, id domain.LogID) (*domain.OperationLogEntry, error) {
	defer r.s.rlock(ctx)()

	e, ok := r.s.entries[id.String()]
	if !ok {
		return nil, domain.ErrLogEntryNotFound
	}
	return &e, nil
}

func (r *logStore) MarkRevoked(ctx context.Context, id domain.LogID) error {
	defer r.s.lock(ctx)()

	e, ok := r.s.entries[id.String()]
	if !ok {
		return domain.ErrLogEntryNotFound
	}
	if err := e.MarkRevoked(); err != nil {
		return err
	}
	r.s.entries[id.String()] = e
	return nil
}

func (r *logStore) Recent(ctx context.Context, limit int) ([]*domain.OperationLogEntry, error) {
	defer r.s.rlock(ctx)()

	var result []*domain.OperationLogEntry
	for i := len(r.s.logOrder) - 1; i >= 0 && len(result) < limit; i-- {
		e := r.s.entries[r.s.logOrder[i]]
		result = append(result, &e)
	}
	return result, nil
}

func (r *logStore) CountNewerForTarget(ctx context.Context, targetID string, after time.Time) (int64, error) {
	defer r.s.rlock(ctx)()

	var count int64
	for _, e := range r.s.entries {
		if e.TargetID == targetID && !e.IsRevoked && e.CreatedAt.After(after) {
			count++
		}
	}
	return count, nil
}

type operatorStore struct{ s *Store }

func (r *operatorStore) FindByID(ctx context.Context, id string) (*domain.Operator, error) {
	defer r.s.rlock(ctx)()

	op, ok := r.s.operators[id]
	if !ok {
		return nil, domain.ErrOperatorNotFound
	}
	return &op, nil
}

type outboxStore struct{ s *Store }

func (r *outboxStore) Save(ctx context.Context, event *outbox.OutboxEvent) error {
	defer r.s.lock(ctx)()
	r.s.events = append(r.s.events, event)
	return nil
}

func (r *outboxStore) SaveAll(ctx context.Context, events []*outbox.OutboxEvent) error {
	defer r.s.lock(ctx)()
	r.s.events = append(r.s.events, events...)
	return nil
}

func (r *outboxStore) FindUnpublished(ctx context.Context, limit int) ([]*outbox.OutboxEvent, error) {
	defer r.s.rlock(ctx)()

	var result []*outbox.OutboxEvent
	for _, e := range r.s.events {
		if !e.IsPublished() && e.ShouldRetry() {
			result = append(result, e)
		}
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (r *outboxStore) MarkPublished(ctx context.Context, eventID string) error {
	defer r.s.lock(ctx)()

	for _, e := range r.s.events {
		if e.ID == eventID {
			now := time.Now()
			e.PublishedAt = &now
			return nil
		}
	}
	return fmt.Errorf("outbox event %s not found", eventID)
}

func (r *outboxStore) IncrementRetry(ctx context.Context, eventID string, errorMsg string) error {
	defer r.s.lock(ctx)()

	for _, e := range r.s.events {
		if e.ID == eventID {
			e.RetryCount++
			e.LastError = errorMsg
			return nil
		}
	}
	return fmt.Errorf("outbox event %s not found", eventID)
}

func (r *outboxStore) DeletePublished(ctx context.Context, olderThan int64) error {
	defer r.s.lock(ctx)()

	cutoff := time.Now().Add(-time.Duration(olderThan) * time.Second)
	kept := r.s.events[:0]
	for _, e := range r.s.events {
		if e.IsPublished() && e.PublishedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, e)
	}
	r.s.events = kept
	return nil
}

func (r *outboxStore) GetByID(ctx context.Context, eventID string) (*outbox.OutboxEvent, error) {
	defer r.s.rlock(ctx)()

	for _, e := range r.s.events {
		if e.ID == eventID {
			return e, nil
		}
	}
	return nil, fmt.Errorf("outbox event %s not found", eventID)
}

func (r *outboxStore) FindByAggregateID(ctx context.Context, aggregateID string) ([]*outbox.OutboxEvent, error) {
	defer r.s.rlock(ctx)()

	var result []*outbox.OutboxEvent
	for _, e := range r.s.events {
		if e.AggregateID == aggregateID {
			result = append(result, e)
		}
	}
	return result, nil
}
