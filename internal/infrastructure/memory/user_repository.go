// Package memory is a process-local UserRepository. Contents live as long as
// the instance does.
package memory

import (
	"sort"
	"sync"

	"github.com/oksasatya/go-ddd-user-management/internal/domain/domainerr"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/repository"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/valueobject"
)

// UserRepository keeps snapshots, never the caller's pointer, so an aggregate
// mutated after Save does not change the store until it is saved again.
// Every map access happens under the lock; sorting and paging run on the
// copies returned from it.
type UserRepository struct {
	mu      sync.RWMutex
	users   map[valueobject.UserID]entity.UserSnapshot
	byEmail map[string]map[valueobject.UserID]struct{}
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:   make(map[valueobject.UserID]entity.UserSnapshot),
		byEmail: make(map[string]map[valueobject.UserID]struct{}),
	}
}

func (r *UserRepository) Save(u *entity.User) (*entity.User, error) {
	if u == nil {
		return nil, domainerr.Validation("user", "cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(u.Snapshot())
	return u, nil
}

func (r *UserRepository) SaveUnique(u *entity.User) (*entity.User, error) {
	if u == nil {
		return nil, domainerr.Validation("user", "cannot be nil")
	}
	snap := u.Snapshot()
	r.mu.Lock()
	defer r.mu.Unlock()
	for owner := range r.byEmail[snap.Email.String()] {
		if owner != snap.ID {
			return nil, domainerr.Conflict("email", snap.Email.String())
		}
	}
	r.put(snap)
	return u, nil
}

func (r *UserRepository) FindByID(id valueobject.UserID) (*entity.User, error) {
	r.mu.RLock()
	snap, ok := r.users[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domainerr.NotFound("user", id.String())
	}
	return entity.Reconstitute(snap)
}

// FindByEmail returns the oldest user owning email when Save admitted
// duplicates.
func (r *UserRepository) FindByEmail(email valueobject.Email) (*entity.User, error) {
	r.mu.RLock()
	var (
		found entity.UserSnapshot
		ok    bool
	)
	for id := range r.byEmail[email.String()] {
		snap := r.users[id]
		if !ok || less(snap, found) {
			found, ok = snap, true
		}
	}
	r.mu.RUnlock()
	if !ok {
		return nil, domainerr.NotFound("user", email.String())
	}
	return entity.Reconstitute(found)
}

func (r *UserRepository) ExistsByEmail(email valueobject.Email) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byEmail[email.String()]) > 0, nil
}

// FindAll orders matches by creation time, then id, before paginating.
func (r *UserRepository) FindAll(page, size int, f repository.Filter) ([]*entity.User, error) {
	matches, err := r.matching(f)
	if err != nil {
		return nil, err
	}
	sort.Slice(matches, func(i, j int) bool {
		return less(matches[i].Snapshot(), matches[j].Snapshot())
	})

	start := page * size
	if start < 0 || start >= len(matches) || size <= 0 {
		return []*entity.User{}, nil
	}
	end := start + size
	if end > len(matches) {
		end = len(matches)
	}
	return matches[start:end], nil
}

func (r *UserRepository) Count(f repository.Filter) (int, error) {
	matches, err := r.matching(f)
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}

func (r *UserRepository) Delete(id valueobject.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.users[id]
	if !ok {
		return domainerr.NotFound("user", id.String())
	}
	r.unindex(snap)
	delete(r.users, id)
	return nil
}

// Len reports how many users are stored.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func (r *UserRepository) matching(f repository.Filter) ([]*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.User, 0, len(r.users))
	for _, snap := range r.users {
		u, err := entity.Reconstitute(snap)
		if err != nil {
			return nil, err
		}
		if f.Matches(u) {
			out = append(out, u)
		}
	}
	return out, nil
}

// put must be called with the write lock held.
func (r *UserRepository) put(snap entity.UserSnapshot) {
	if prev, ok := r.users[snap.ID]; ok {
		r.unindex(prev)
	}
	r.users[snap.ID] = snap
	key := snap.Email.String()
	owners, ok := r.byEmail[key]
	if !ok {
		owners = make(map[valueobject.UserID]struct{}, 1)
		r.byEmail[key] = owners
	}
	owners[snap.ID] = struct{}{}
}

func (r *UserRepository) unindex(snap entity.UserSnapshot) {
	key := snap.Email.String()
	owners := r.byEmail[key]
	delete(owners, snap.ID)
	if len(owners) == 0 {
		delete(r.byEmail, key)
	}
}

func less(a, b entity.UserSnapshot) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

var _ repository.UserRepository = (*UserRepository)(nil)
