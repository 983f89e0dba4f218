package domain

import "fmt"

// RoleLevel is the closed set of operator authorization levels, ordered
// from least to most privileged. The upstream identity system encodes
// these as two-digit codes ("00".."09"); they are parsed into the enum at
// the boundary so access checks compare levels, not strings.
type RoleLevel int

const (
	RoleGuest      RoleLevel = 0
	RoleViewer     RoleLevel = 1
	RoleClerk      RoleLevel = 2
	RoleOperator   RoleLevel = 3
	RoleAuditor    RoleLevel = 4
	RoleSupervisor RoleLevel = 5
	RoleManager    RoleLevel = 6
	RoleDirector   RoleLevel = 7
	RoleAdmin      RoleLevel = 8
	RoleOwner      RoleLevel = 9
)

var roleNames = map[RoleLevel]string{
	RoleGuest:      "guest",
	RoleViewer:     "viewer",
	RoleClerk:      "clerk",
	RoleOperator:   "operator",
	RoleAuditor:    "auditor",
	RoleSupervisor: "supervisor",
	RoleManager:    "manager",
	RoleDirector:   "director",
	RoleAdmin:      "admin",
	RoleOwner:      "owner",
}

// ParseRoleLevel converts a two-digit role code into a RoleLevel.
func ParseRoleLevel(code string) (RoleLevel, error) {
	if len(code) != 2 || code[0] != '0' || code[1] < '0' || code[1] > '9' {
		return 0, ErrInvalidRoleLevel
	}
	return RoleLevel(code[1] - '0'), nil
}

// Code returns the two-digit wire encoding.
func (r RoleLevel) Code() string {
	return fmt.Sprintf("%02d", int(r))
}

// String returns the human-readable role name.
func (r RoleLevel) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// IsValid returns true for levels inside the closed set.
func (r RoleLevel) IsValid() bool {
	_, ok := roleNames[r]
	return ok
}

// AtLeast reports whether the role meets or exceeds the required level.
func (r RoleLevel) AtLeast(required RoleLevel) bool {
	return r >= required
}
