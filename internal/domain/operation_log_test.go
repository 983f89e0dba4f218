package domain

import (
	"testing"
	"time"
)

func TestParseActionType(t *testing.T) {
	valid := []string{"INBOUND", "OUTBOUND", "ADJUST", "DELETE", "IMPORT"}
	for _, s := range valid {
		if _, err := ParseActionType(s); err != nil {
			t.Errorf("%s: unexpected error: %v", s, err)
		}
	}

	for _, s := range []string{"", "inbound", "TRANSFER", "UNDO"} {
		if _, err := ParseActionType(s); err != ErrInvalidActionType {
			t.Errorf("%s: expected ErrInvalidActionType, got %v", s, err)
		}
	}
}

func TestNewOperationLogEntry(t *testing.T) {
	batch, err := NewBatch("prod-1", "store-1", "B-001", time.Now(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name        string
		actionType  ActionType
		targetID    string
		operatorID  string
		expectError bool
	}{
		{"valid entry", ActionInbound, batch.ID, "op-1", false},
		{"invalid action", ActionType("BOGUS"), batch.ID, "op-1", true},
		{"missing target", ActionInbound, "", "op-1", true},
		{"missing operator", ActionInbound, batch.ID, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := NewOperationLogEntry(tt.actionType, tt.targetID, Quantity{Small: 5}, batch.Snapshot(), tt.operatorID)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if entry.ID.IsZero() {
				t.Errorf("expected generated log ID")
			}
			if entry.IsRevoked {
				t.Errorf("new entry must not be revoked")
			}
			if entry.SnapshotData.ID != batch.ID {
				t.Errorf("snapshot lost batch identity")
			}
		})
	}
}

func TestMarkRevokedMonotonic(t *testing.T) {
	batch, _ := NewBatch("prod-1", "store-1", "B-001", time.Now(), "")
	entry, err := NewOperationLogEntry(ActionOutbound, batch.ID, Quantity{Large: -1}, batch.Snapshot(), "op-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := entry.MarkRevoked(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !entry.IsRevoked {
		t.Errorf("expected revoked flag set")
	}
	if err := entry.MarkRevoked(); err != ErrAlreadyRevoked {
		t.Errorf("expected ErrAlreadyRevoked, got %v", err)
	}
	if !entry.IsRevoked {
		t.Errorf("revoked flag must never flip back")
	}
}
