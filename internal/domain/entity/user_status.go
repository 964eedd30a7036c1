package entity

import (
	"strings"

	"github.com/oksasatya/go-ddd-user-management/internal/domain/domainerr"
)

// UserStatus is the lifecycle state of a User. DELETED is terminal.
type UserStatus string

const (
	StatusPending   UserStatus = "PENDING"
	StatusActive    UserStatus = "ACTIVE"
	StatusInactive  UserStatus = "INACTIVE"
	StatusSuspended UserStatus = "SUSPENDED"
	StatusDeleted   UserStatus = "DELETED"
)

var statusDescriptions = map[UserStatus]string{
	StatusPending:   "pending activation",
	StatusActive:    "active",
	StatusInactive:  "inactive",
	StatusSuspended: "temporarily suspended",
	StatusDeleted:   "deleted",
}

// AllStatuses lists every status in declaration order.
func AllStatuses() []UserStatus {
	return []UserStatus{StatusPending, StatusActive, StatusInactive, StatusSuspended, StatusDeleted}
}

// ParseUserStatus accepts the literal tokens, case-insensitively.
func ParseUserStatus(raw string) (UserStatus, error) {
	s := UserStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", domainerr.Validation("status", "unknown status: "+raw)
	}
	return s, nil
}

func (s UserStatus) Valid() bool {
	_, ok := statusDescriptions[s]
	return ok
}

func (s UserStatus) String() string { return string(s) }

func (s UserStatus) Description() string { return statusDescriptions[s] }

// CanLogin is true only for ACTIVE users.
func (s UserStatus) CanLogin() bool { return s == StatusActive }

// CanUpdate is false only for DELETED users.
func (s UserStatus) CanUpdate() bool { return s != StatusDeleted }

func (s UserStatus) IsTerminal() bool { return s == StatusDeleted }
