package domain

import "time"

// DomainEvent is implemented by events emitted from ledger mutations. They
// are written to the outbox in the same transaction as the mutation and
// published asynchronously.
type DomainEvent interface {
	EventType() string
}

// OperationRecordedEvent is emitted after a successful Execute.
type OperationRecordedEvent struct {
	LogID      string     `json:"logId"`
	ActionType ActionType `json:"actionType"`
	BatchID    string     `json:"batchId"`
	ProductID  string     `json:"productId"`
	StoreID    string     `json:"storeId"`
	Delta      Quantity   `json:"delta"`
	OperatorID string     `json:"operatorId"`
	RecordedAt time.Time  `json:"recordedAt"`
}

// EventType returns the event type identifier.
func (e *OperationRecordedEvent) EventType() string {
	return "ledger.operation.recorded"
}

// OperationRevokedEvent is emitted after a successful Revoke.
type OperationRevokedEvent struct {
	LogID      string     `json:"logId"`
	ActionType ActionType `json:"actionType"`
	BatchID    string     `json:"batchId"`
	ProductID  string     `json:"productId"`
	OperatorID string     `json:"operatorId"`
	RevokedAt  time.Time  `json:"revokedAt"`
}

// EventType returns the event type identifier.
func (e *OperationRevokedEvent) EventType() string {
	return "ledger.operation.revoked"
}
