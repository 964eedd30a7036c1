package valueobject

import (
	"strings"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-user-management/internal/domain/domainerr"
)

// ID is a tagged identifier backed by a UUID. The type parameter only keeps
// identifiers of different aggregates from being mixed up; two IDs compare
// with == by value.
type ID[T any] struct {
	value uuid.UUID
}

// NewID returns a fresh random identifier.
func NewID[T any]() ID[T] {
	return ID[T]{value: uuid.New()}
}

// ParseID parses the canonical textual form of an identifier.
func ParseID[T any](raw string) (ID[T], error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ID[T]{}, domainerr.Validation("id", "cannot be empty")
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return ID[T]{}, domainerr.Validation("id", "invalid format: "+raw)
	}
	if u == uuid.Nil {
		return ID[T]{}, domainerr.Validation("id", "cannot be the nil uuid")
	}
	return ID[T]{value: u}, nil
}

func (id ID[T]) String() string {
	if id.IsZero() {
		return ""
	}
	return id.value.String()
}

func (id ID[T]) UUID() uuid.UUID { return id.value }

func (id ID[T]) IsZero() bool { return id.value == uuid.Nil }

func (id ID[T]) Equals(other ID[T]) bool { return id.value == other.value }

type userTag struct{}

// UserID identifies a User aggregate.
type UserID = ID[userTag]

func NewUserID() UserID { return NewID[userTag]() }

func ParseUserID(raw string) (UserID, error) { return ParseID[userTag](raw) }
