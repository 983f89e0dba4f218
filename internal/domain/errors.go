package domain

import "errors"

// Ledger domain errors
var (
	// ErrProductNotFound is returned when a product cannot be found
	ErrProductNotFound = errors.New("product not found")

	// ErrBatchNotFound is returned when a batch cannot be found
	ErrBatchNotFound = errors.New("batch not found")

	// ErrLogEntryNotFound is returned when an operation log entry cannot be found
	ErrLogEntryNotFound = errors.New("operation log entry not found")

	// ErrInvalidRate is returned when a conversion rate is zero or negative
	ErrInvalidRate = errors.New("conversion rate must be positive")

	// ErrNegativeStock is returned when an operation would drive stock below zero
	ErrNegativeStock = errors.New("operation would drive stock below zero")

	// ErrAlreadyRevoked is returned when revoking an entry that is already revoked
	ErrAlreadyRevoked = errors.New("operation log entry is already revoked")

	// ErrTransactionConflict is returned when a concurrent mutation lost the
	// version race for the same batch; callers retry with fresh state
	ErrTransactionConflict = errors.New("concurrent modification detected, retry with fresh state")

	// ErrBatchDeleted is returned when executing an operation against a tombstoned batch
	ErrBatchDeleted = errors.New("batch has been deleted")

	// ErrSKUExists is returned when creating a product with a duplicate SKU
	ErrSKUExists = errors.New("product with this SKU already exists")

	// ErrInvalidActionType is returned when an unknown action type is used
	ErrInvalidActionType = errors.New("invalid action type")

	// ErrOperatorNotFound is returned when an operator record cannot be found
	ErrOperatorNotFound = errors.New("operator not found")

	// ErrInvalidRoleLevel is returned when an operator role code is outside the closed set
	ErrInvalidRoleLevel = errors.New("invalid role level")

	// ErrZeroDelta is returned when an operation carries no net change
	ErrZeroDelta = errors.New("change delta cannot be zero")

	// ErrDeltaSignMismatch is returned when a delta's sign contradicts the action semantics
	ErrDeltaSignMismatch = errors.New("invalid delta sign for action")
)
