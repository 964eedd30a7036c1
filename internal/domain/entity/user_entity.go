package entity

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oksasatya/go-ddd-user-management/internal/domain/domainerr"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/event"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/valueobject"
	"github.com/oksasatya/go-ddd-user-management/pkg/helpers"
)

const (
	MinNameLength     = 2
	MaxNameLength     = 100
	MinPasswordLength = 6
	MaxPasswordLength = 100
)

// now stamps createdAt and updatedAt: UTC at microsecond precision, the
// resolution of the Postgres store, so a saved user reads back equal.
var now = func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// User is the aggregate root for the user domain.
// State only changes through its methods; a DELETED user is terminal.
// The password digest never leaves the aggregate except through Snapshot,
// which exists for repositories.
type User struct {
	id             valueobject.UserID
	email          valueobject.Email
	name           string
	passwordDigest string
	status         UserStatus
	createdAt      time.Time
	updatedAt      time.Time

	events []event.DomainEvent
}

// UserSnapshot is the persistence form of a User.
type UserSnapshot struct {
	ID             valueobject.UserID
	Email          valueobject.Email
	Name           string
	PasswordDigest string
	Status         UserStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewUser creates a PENDING user and records a UserCreated event.
func NewUser(email, name, rawPassword string) (*User, error) {
	return NewUserWithStatus(email, name, rawPassword, StatusPending)
}

// NewUserWithStatus is NewUser with an explicit creation policy. Only PENDING
// and ACTIVE are valid initial statuses.
func NewUserWithStatus(email, name, rawPassword string, initial UserStatus) (*User, error) {
	if initial != StatusPending && initial != StatusActive {
		return nil, domainerr.Validation("status", "initial status must be PENDING or ACTIVE")
	}
	addr, err := valueobject.NewEmail(email)
	if err != nil {
		return nil, err
	}
	n, err := validateName(name)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(rawPassword); err != nil {
		return nil, err
	}

	ts := now()
	u := &User{
		id:             valueobject.NewUserID(),
		email:          addr,
		name:           n,
		passwordDigest: helpers.DigestPassword(rawPassword),
		status:         initial,
		createdAt:      ts,
		updatedAt:      ts,
	}
	u.record(UserCreated{
		Base:   newBase(EventUserCreated, u.id),
		UserID: u.id.String(),
		Email:  u.email.String(),
		Name:   u.name,
		Status: u.status,
	})
	return u, nil
}

// Reconstitute rebuilds a User from a stored snapshot. No events are recorded.
func Reconstitute(s UserSnapshot) (*User, error) {
	if s.ID.IsZero() {
		return nil, domainerr.Validation("id", "cannot be empty")
	}
	if s.Email.IsZero() {
		return nil, domainerr.Validation("email", "cannot be empty")
	}
	if !s.Status.Valid() {
		return nil, domainerr.Validation("status", "unknown status: "+string(s.Status))
	}
	return &User{
		id:             s.ID,
		email:          s.Email,
		name:           s.Name,
		passwordDigest: s.PasswordDigest,
		status:         s.Status,
		createdAt:      s.CreatedAt,
		updatedAt:      s.UpdatedAt,
	}, nil
}

func (u *User) ID() valueobject.UserID        { return u.id }
func (u *User) Email() valueobject.Email      { return u.email }
func (u *User) Name() string                  { return u.name }
func (u *User) Status() UserStatus            { return u.status }
func (u *User) CreatedAt() time.Time          { return u.createdAt }
func (u *User) UpdatedAt() time.Time          { return u.updatedAt }
func (u *User) IsActive() bool                { return u.status == StatusActive }
func (u *User) IsDeleted() bool               { return u.status == StatusDeleted }
func (u *User) SameIdentity(other *User) bool { return other != nil && u.id == other.id }

func (u *User) Snapshot() UserSnapshot {
	return UserSnapshot{
		ID:             u.id,
		Email:          u.email,
		Name:           u.name,
		PasswordDigest: u.passwordDigest,
		Status:         u.status,
		CreatedAt:      u.createdAt,
		UpdatedAt:      u.updatedAt,
	}
}

func (u *User) VerifyPassword(raw string) bool {
	return helpers.CompareDigest(u.passwordDigest, raw)
}

func (u *User) UpdateEmail(newEmail string) error {
	if err := u.ensureMutable("update email"); err != nil {
		return err
	}
	addr, err := valueobject.NewEmail(newEmail)
	if err != nil {
		return err
	}
	old := u.email
	u.email = addr
	u.touch()
	u.record(UserEmailUpdated{
		Base:     newBase(EventUserEmailUpdated, u.id),
		UserID:   u.id.String(),
		Name:     u.name,
		OldEmail: old.String(),
		NewEmail: addr.String(),
	})
	return nil
}

func (u *User) UpdateName(newName string) error {
	if err := u.ensureMutable("update name"); err != nil {
		return err
	}
	n, err := validateName(newName)
	if err != nil {
		return err
	}
	old := u.name
	u.name = n
	u.touch()
	u.record(UserNameUpdated{
		Base:    newBase(EventUserNameUpdated, u.id),
		UserID:  u.id.String(),
		OldName: old,
		NewName: n,
	})
	return nil
}

// UpdateStatus reassigns the status without checking the transition graph;
// only leaving DELETED is refused. Activate, Deactivate and Delete are the
// guarded paths.
func (u *User) UpdateStatus(newStatus UserStatus) error {
	if err := u.ensureMutable("update status"); err != nil {
		return err
	}
	if !newStatus.Valid() {
		return domainerr.Validation("status", "unknown status: "+string(newStatus))
	}
	old := u.status
	u.status = newStatus
	u.touch()
	u.record(UserStatusUpdated{
		Base:      newBase(EventUserStatusUpdated, u.id),
		UserID:    u.id.String(),
		OldStatus: old,
		NewStatus: newStatus,
	})
	return nil
}

func (u *User) Activate() error {
	if err := u.ensureMutable("activate"); err != nil {
		return err
	}
	if u.status == StatusActive {
		return domainerr.IllegalState("activate", u.status.String(), "user is already active")
	}
	old := u.status
	u.status = StatusActive
	u.touch()
	u.record(UserActivated{
		Base:      newBase(EventUserActivated, u.id),
		UserID:    u.id.String(),
		OldStatus: old,
	})
	return nil
}

func (u *User) Deactivate() error {
	if err := u.ensureMutable("deactivate"); err != nil {
		return err
	}
	if u.status == StatusInactive {
		return domainerr.IllegalState("deactivate", u.status.String(), "user is already inactive")
	}
	old := u.status
	u.status = StatusInactive
	u.touch()
	u.record(UserDeactivated{
		Base:      newBase(EventUserDeactivated, u.id),
		UserID:    u.id.String(),
		OldStatus: old,
	})
	return nil
}

// Delete is a soft delete: the user stays in the store with status DELETED.
func (u *User) Delete() error {
	if u.status == StatusDeleted {
		return domainerr.IllegalState("delete", u.status.String(), "user is already deleted")
	}
	old := u.status
	u.status = StatusDeleted
	u.touch()
	u.record(UserDeleted{
		Base:      newBase(EventUserDeleted, u.id),
		UserID:    u.id.String(),
		Email:     u.email.String(),
		Name:      u.name,
		OldStatus: old,
	})
	return nil
}

func (u *User) ChangePassword(rawPassword string) error {
	if err := u.ensureMutable("change password"); err != nil {
		return err
	}
	if err := validatePassword(rawPassword); err != nil {
		return err
	}
	u.passwordDigest = helpers.DigestPassword(rawPassword)
	u.touch()
	u.record(UserPasswordChanged{
		Base:   newBase(EventUserPasswordChanged, u.id),
		UserID: u.id.String(),
	})
	return nil
}

// PullEvents hands the buffered events to the caller in emission order and
// empties the buffer. The aggregate keeps no reference to the returned slice.
func (u *User) PullEvents() []event.DomainEvent {
	out := u.events
	u.events = nil
	return out
}

func (u *User) PendingEvents() int { return len(u.events) }

func (u *User) record(e event.DomainEvent) {
	u.events = append(u.events, e)
}

func (u *User) touch() {
	u.updatedAt = now()
}

func (u *User) ensureMutable(op string) error {
	if !u.status.CanUpdate() {
		return domainerr.IllegalState(op, u.status.String(), "cannot modify a deleted user")
	}
	return nil
}

func validateName(raw string) (string, error) {
	n := strings.TrimSpace(raw)
	if n == "" {
		return "", domainerr.Validation("name", "cannot be empty")
	}
	l := utf8.RuneCountInString(n)
	if l < MinNameLength {
		return "", domainerr.Validation("name", "must be at least 2 characters")
	}
	if l > MaxNameLength {
		return "", domainerr.Validation("name", "cannot exceed 100 characters")
	}
	return n, nil
}

func validatePassword(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return domainerr.Validation("password", "cannot be empty")
	}
	if len(raw) < MinPasswordLength {
		return domainerr.Validation("password", "must be at least 6 characters")
	}
	if len(raw) > MaxPasswordLength {
		return domainerr.Validation("password", "cannot exceed 100 characters")
	}
	return nil
}
