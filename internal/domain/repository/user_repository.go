package repository

import (
	"strings"

	"github.com/oksasatya/go-ddd-user-management/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/valueobject"
)

// UserRepository defines the storage contract for User aggregates.
// Lookups that find nothing return a domainerr.NotFoundError.
type UserRepository interface {
	// Save upserts by identifier, last writer wins.
	Save(u *entity.User) (*entity.User, error)
	// SaveUnique is Save plus an atomic check that no other user owns the
	// same normalized email. It fails with a domainerr.ConflictError.
	SaveUnique(u *entity.User) (*entity.User, error)
	FindByID(id valueobject.UserID) (*entity.User, error)
	FindByEmail(email valueobject.Email) (*entity.User, error)
	ExistsByEmail(email valueobject.Email) (bool, error)
	// FindAll applies the filter, skips page*size matches and returns at most
	// size users. page and size are validated by the caller.
	FindAll(page, size int, f Filter) ([]*entity.User, error)
	Count(f Filter) (int, error)
	// Delete removes the user from the store. This is not the aggregate's soft
	// delete.
	Delete(id valueobject.UserID) error
}

// Filter narrows FindAll and Count. Empty fields match everything.
type Filter struct {
	Status entity.UserStatus
	Search string
}

// Matches is the reference predicate: status equality first, then a
// case-insensitive substring match on name or email.
func (f Filter) Matches(u *entity.User) bool {
	if f.Status != "" && u.Status() != f.Status {
		return false
	}
	term := strings.ToLower(strings.TrimSpace(f.Search))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(u.Name()), term) ||
		strings.Contains(u.Email().String(), term)
}
