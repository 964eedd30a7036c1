package entity

import (
	"github.com/oksasatya/go-ddd-user-management/internal/domain/event"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/valueobject"
)

// Event type tags. They match the concrete type names.
const (
	EventUserCreated         = "UserCreated"
	EventUserEmailUpdated    = "UserEmailUpdated"
	EventUserNameUpdated     = "UserNameUpdated"
	EventUserStatusUpdated   = "UserStatusUpdated"
	EventUserActivated       = "UserActivated"
	EventUserDeactivated     = "UserDeactivated"
	EventUserDeleted         = "UserDeleted"
	EventUserPasswordChanged = "UserPasswordChanged"
)

type UserCreated struct {
	event.Base
	UserID string     `json:"user_id"`
	Email  string     `json:"email"`
	Name   string     `json:"name"`
	Status UserStatus `json:"status"`
}

type UserEmailUpdated struct {
	event.Base
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	OldEmail string `json:"old_email"`
	NewEmail string `json:"new_email"`
}

type UserNameUpdated struct {
	event.Base
	UserID  string `json:"user_id"`
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

type UserStatusUpdated struct {
	event.Base
	UserID    string     `json:"user_id"`
	OldStatus UserStatus `json:"old_status"`
	NewStatus UserStatus `json:"new_status"`
}

type UserActivated struct {
	event.Base
	UserID    string     `json:"user_id"`
	OldStatus UserStatus `json:"old_status"`
}

type UserDeactivated struct {
	event.Base
	UserID    string     `json:"user_id"`
	OldStatus UserStatus `json:"old_status"`
}

// UserDeleted carries the email so downstream consumers can still reach the
// user after the soft delete.
type UserDeleted struct {
	event.Base
	UserID    string     `json:"user_id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	OldStatus UserStatus `json:"old_status"`
}

// UserPasswordChanged deliberately carries no digest.
type UserPasswordChanged struct {
	event.Base
	UserID string `json:"user_id"`
}

func newBase(eventType string, id valueobject.UserID) event.Base {
	return event.NewBase(eventType, id.String())
}
