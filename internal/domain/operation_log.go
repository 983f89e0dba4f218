package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// ActionType classifies a ledger mutation.
type ActionType string

const (
	ActionInbound  ActionType = "INBOUND"
	ActionOutbound ActionType = "OUTBOUND"
	ActionAdjust   ActionType = "ADJUST"
	ActionDelete   ActionType = "DELETE"
	ActionImport   ActionType = "IMPORT"
)

// IsValid returns true for the closed set of action types.
func (a ActionType) IsValid() bool {
	switch a {
	case ActionInbound, ActionOutbound, ActionAdjust, ActionDelete, ActionImport:
		return true
	}
	return false
}

// String returns the wire representation.
func (a ActionType) String() string {
	return string(a)
}

// ParseActionType validates a wire string into an ActionType.
func ParseActionType(s string) (ActionType, error) {
	a := ActionType(s)
	if !a.IsValid() {
		return "", ErrInvalidActionType
	}
	return a, nil
}

// ValidateDelta checks that a delta total carries the sign the action
// semantics demand. DELETE derives its delta from the batch and never
// validates a caller-supplied one; IMPORT tolerates zero so an empty batch
// creation still produces a revocable entry.
func (a ActionType) ValidateDelta(total int) error {
	switch a {
	case ActionInbound:
		if total <= 0 {
			return fmt.Errorf("%w: INBOUND must increase stock", ErrDeltaSignMismatch)
		}
	case ActionOutbound:
		if total >= 0 {
			return fmt.Errorf("%w: OUTBOUND must decrease stock", ErrDeltaSignMismatch)
		}
	case ActionAdjust:
		if total == 0 {
			return ErrZeroDelta
		}
	case ActionImport:
		if total < 0 {
			return fmt.Errorf("%w: IMPORT cannot be negative", ErrDeltaSignMismatch)
		}
	case ActionDelete:
		return fmt.Errorf("%w: DELETE derives its delta from the batch", ErrInvalidActionType)
	default:
		return ErrInvalidActionType
	}
	return nil
}

// LogID identifies an operation log entry. The embedded timestamp keeps ids
// roughly sortable for humans; ordering guarantees come from CreatedAt.
type LogID struct {
	value string
}

// NewLogID creates a new unique log entry ID.
func NewLogID() LogID {
	timestamp := time.Now().UTC().Format("20060102150405")
	return LogID{value: fmt.Sprintf("OP-%s-%s", timestamp, uuid.New().String()[:8])}
}

// ParseLogID parses a string into a LogID.
func ParseLogID(s string) (LogID, error) {
	if s == "" {
		return LogID{}, errors.New("log ID cannot be empty")
	}
	return LogID{value: s}, nil
}

// String returns the string representation.
func (id LogID) String() string {
	return id.value
}

// IsZero returns true for the zero-value ID.
func (id LogID) IsZero() bool {
	return id.value == ""
}

// MarshalBSONValue implements bson.ValueMarshaler.
func (id LogID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(id.value)
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler.
func (id *LogID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	return bson.UnmarshalValue(t, data, &id.value)
}

// OperationLogEntry is one record in the append-only audit trail. Core
// fields are immutable after append; the only permitted later mutation is
// the false-to-true transition of IsRevoked. ChangeDelta is the signed net
// effect that was applied, SnapshotData the full batch record from
// immediately before the operation.
type OperationLogEntry struct {
	ID           LogID      `bson:"_id" json:"id"`
	ActionType   ActionType `bson:"action_type" json:"action_type"`
	TargetID     string     `bson:"target_id" json:"target_id"`
	ChangeDelta  Quantity   `bson:"change_delta" json:"change_delta"`
	SnapshotData Batch      `bson:"snapshot_data" json:"snapshot_data"`
	OperatorID   string     `bson:"operator_id" json:"operator_id"`
	IsRevoked    bool       `bson:"is_revoked" json:"is_revoked"`
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`

	// OperatorName is populated by read-side joins only, never persisted.
	OperatorName string `bson:"-" json:"operator_name,omitempty"`
}

// NewOperationLogEntry creates a log entry for a just-applied mutation.
func NewOperationLogEntry(actionType ActionType, targetID string, delta Quantity, snapshot Batch, operatorID string) (*OperationLogEntry, error) {
	if !actionType.IsValid() {
		return nil, ErrInvalidActionType
	}
	if targetID == "" {
		return nil, errors.New("target ID is required")
	}
	if operatorID == "" {
		return nil, errors.New("operator ID is required")
	}

	return &OperationLogEntry{
		ID:           NewLogID(),
		ActionType:   actionType,
		TargetID:     targetID,
		ChangeDelta:  delta,
		SnapshotData: snapshot,
		OperatorID:   operatorID,
		IsRevoked:    false,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// MarkRevoked flips the revocation flag. The transition is monotonic:
// revoking twice fails with ErrAlreadyRevoked.
func (e *OperationLogEntry) MarkRevoked() error {
	if e.IsRevoked {
		return ErrAlreadyRevoked
	}
	e.IsRevoked = true
	return nil
}
