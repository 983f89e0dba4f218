package domain

import "testing"

func TestParseRoleLevel(t *testing.T) {
	tests := []struct {
		code        string
		expected    RoleLevel
		expectError bool
	}{
		{"00", RoleGuest, false},
		{"03", RoleOperator, false},
		{"06", RoleManager, false},
		{"09", RoleOwner, false},
		{"10", 0, true},
		{"3", 0, true},
		{"", 0, true},
		{"ab", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			role, err := ParseRoleLevel(tt.code)
			if tt.expectError {
				if err != ErrInvalidRoleLevel {
					t.Errorf("expected ErrInvalidRoleLevel, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if role != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, role)
			}
			if role.Code() != tt.code {
				t.Errorf("code round trip failed: %s != %s", role.Code(), tt.code)
			}
		})
	}
}

func TestRoleLevelOrdering(t *testing.T) {
	if !RoleManager.AtLeast(RoleOperator) {
		t.Errorf("manager should satisfy operator requirement")
	}
	if RoleClerk.AtLeast(RoleManager) {
		t.Errorf("clerk should not satisfy manager requirement")
	}
	if !RoleOperator.AtLeast(RoleOperator) {
		t.Errorf("requirement should be inclusive")
	}
}
