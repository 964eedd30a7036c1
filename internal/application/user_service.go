package application

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-management/internal/domain/domainerr"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/event"
	repo "github.com/oksasatya/go-ddd-user-management/internal/domain/repository"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/valueobject"
	"github.com/oksasatya/go-ddd-user-management/internal/infrastructure/metrics"
)

// EventPublisher receives the events drained from an aggregate after it has
// been saved.
type EventPublisher interface {
	Publish(ctx context.Context, events []event.DomainEvent) error
}

// UserIndexer maintains a search projection. Search returns user ids.
type UserIndexer interface {
	Index(ctx context.Context, u *entity.User) error
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, q string, size int) ([]string, error)
}

// Policy holds the service-level rules that are configuration, not domain.
type Policy struct {
	InitialStatus      entity.UserStatus
	EnforceUniqueEmail bool
	DefaultPageSize    int
	MaxPageSize        int
}

func DefaultPolicy() Policy {
	return Policy{
		InitialStatus:      entity.StatusPending,
		EnforceUniqueEmail: true,
		DefaultPageSize:    10,
		MaxPageSize:        100,
	}
}

type Service struct {
	Repo      repo.UserRepository
	Publisher EventPublisher
	Index     UserIndexer
	Logger    *logrus.Logger
	Metrics   *metrics.Metrics
	Policy    Policy
}

// NewService wires the service. publisher, index and m may be nil.
func NewService(repo repo.UserRepository, publisher EventPublisher, index UserIndexer, logger *logrus.Logger, m *metrics.Metrics, policy Policy) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	d := DefaultPolicy()
	if policy.InitialStatus == "" {
		policy.InitialStatus = d.InitialStatus
	}
	if policy.DefaultPageSize <= 0 {
		policy.DefaultPageSize = d.DefaultPageSize
	}
	if policy.MaxPageSize <= 0 {
		policy.MaxPageSize = d.MaxPageSize
	}
	return &Service{
		Repo:      repo,
		Publisher: publisher,
		Index:     index,
		Logger:    logger,
		Metrics:   m,
		Policy:    policy,
	}
}

type CreateUserInput struct {
	Email    string
	Name     string
	Password string
}

// UpdateUserInput fields left nil are not touched.
type UpdateUserInput struct {
	Email  *string
	Name   *string
	Status *string
}

type ListUsersInput struct {
	Page   int
	Size   int
	Status string
	Search string
}

type ListUsersResult struct {
	Items []*entity.User
	Total int
	Page  int
	Size  int
}

func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (u *entity.User, err error) {
	defer func() { s.Metrics.ObserveOperation("create", err) }()

	u, err = entity.NewUserWithStatus(in.Email, in.Name, in.Password, s.Policy.InitialStatus)
	if err != nil {
		return nil, err
	}
	if err := s.save(u, true); err != nil {
		return nil, err
	}
	s.commit(ctx, u)
	s.Logger.WithFields(logrus.Fields{"user_id": u.ID().String(), "status": u.Status()}).Info("user created")
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*entity.User, error) {
	uid, err := valueobject.ParseUserID(id)
	if err != nil {
		return nil, err
	}
	return s.Repo.FindByID(uid)
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	addr, err := valueobject.NewEmail(email)
	if err != nil {
		return nil, err
	}
	return s.Repo.FindByEmail(addr)
}

func (s *Service) CountUsers(ctx context.Context) (int, error) {
	return s.Repo.Count(repo.Filter{})
}

// ListUsers validates paging here; the repository trusts its caller.
func (s *Service) ListUsers(ctx context.Context, in ListUsersInput) (ListUsersResult, error) {
	if in.Page < 0 {
		return ListUsersResult{}, domainerr.Validation("page", "must be zero or greater")
	}
	size := in.Size
	if size == 0 {
		size = s.Policy.DefaultPageSize
	}
	if size < 0 {
		return ListUsersResult{}, domainerr.Validation("size", "must be positive")
	}
	if size > s.Policy.MaxPageSize {
		size = s.Policy.MaxPageSize
	}
	f := repo.Filter{Search: in.Search}
	if in.Status != "" {
		st, err := entity.ParseUserStatus(in.Status)
		if err != nil {
			return ListUsersResult{}, err
		}
		f.Status = st
	}

	items, err := s.Repo.FindAll(in.Page, size, f)
	if err != nil {
		return ListUsersResult{}, err
	}
	total, err := s.Repo.Count(f)
	if err != nil {
		return ListUsersResult{}, err
	}
	return ListUsersResult{Items: items, Total: total, Page: in.Page, Size: size}, nil
}

// SearchUsers uses the search index when one is configured and falls back to
// the repository filter otherwise.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]*entity.User, error) {
	if size <= 0 || size > s.Policy.MaxPageSize {
		size = s.Policy.DefaultPageSize
	}
	if s.Index == nil {
		return s.Repo.FindAll(0, size, repo.Filter{Search: q})
	}
	ids, err := s.Index.Search(ctx, q, size)
	if err != nil {
		s.Logger.WithError(err).Warn("search index query failed, falling back to repository")
		return s.Repo.FindAll(0, size, repo.Filter{Search: q})
	}
	out := make([]*entity.User, 0, len(ids))
	for _, raw := range ids {
		uid, err := valueobject.ParseUserID(raw)
		if err != nil {
			continue
		}
		u, err := s.Repo.FindByID(uid)
		if errors.Is(err, domainerr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// UpdateUser applies email, name and status changes in that order. Any
// failure leaves the stored user unchanged.
func (s *Service) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (u *entity.User, err error) {
	defer func() { s.Metrics.ObserveOperation("update", err) }()

	u, err = s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	emailChanged := false
	if in.Email != nil {
		before := u.Email()
		if err := u.UpdateEmail(*in.Email); err != nil {
			return nil, err
		}
		emailChanged = !before.Equals(u.Email())
	}
	if in.Name != nil {
		if err := u.UpdateName(*in.Name); err != nil {
			return nil, err
		}
	}
	if in.Status != nil {
		st, err := entity.ParseUserStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		if err := u.UpdateStatus(st); err != nil {
			return nil, err
		}
	}
	if err := s.save(u, emailChanged); err != nil {
		return nil, err
	}
	s.commit(ctx, u)
	return u, nil
}

func (s *Service) ActivateUser(ctx context.Context, id string) (*entity.User, error) {
	return s.transition(ctx, "activate", id, (*entity.User).Activate)
}

func (s *Service) DeactivateUser(ctx context.Context, id string) (*entity.User, error) {
	return s.transition(ctx, "deactivate", id, (*entity.User).Deactivate)
}

// DeleteUser soft deletes: the user stays stored with status DELETED.
func (s *Service) DeleteUser(ctx context.Context, id string) (*entity.User, error) {
	return s.transition(ctx, "delete", id, (*entity.User).Delete)
}

func (s *Service) ChangePassword(ctx context.Context, id, newPassword string) (*entity.User, error) {
	return s.transition(ctx, "change_password", id, func(u *entity.User) error {
		return u.ChangePassword(newPassword)
	})
}

// PurgeUser removes the user from the store for good. It is an operator
// action and emits no domain event.
func (s *Service) PurgeUser(ctx context.Context, id string) (err error) {
	defer func() { s.Metrics.ObserveOperation("purge", err) }()

	uid, err := valueobject.ParseUserID(id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(uid); err != nil {
		return err
	}
	if s.Index != nil {
		if iErr := s.Index.Remove(ctx, uid.String()); iErr != nil {
			s.Metrics.ObserveIndexError()
			s.Logger.WithError(iErr).WithField("user_id", uid.String()).Warn("search index remove failed")
		}
	}
	s.Logger.WithField("user_id", uid.String()).Warn("user purged")
	return nil
}

func (s *Service) transition(ctx context.Context, op, id string, mutate func(*entity.User) error) (u *entity.User, err error) {
	defer func() { s.Metrics.ObserveOperation(op, err) }()

	u, err = s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := mutate(u); err != nil {
		return nil, err
	}
	if err := s.save(u, false); err != nil {
		return nil, err
	}
	s.commit(ctx, u)
	return u, nil
}

// save persists u. When the email is new to this user, uniqueness is
// checked: atomically through SaveUnique when enforced, otherwise with a
// best-effort lookup that can race with a concurrent writer. emailChanged
// must be false when u already owns its address.
func (s *Service) save(u *entity.User, emailChanged bool) error {
	if !emailChanged {
		_, err := s.Repo.Save(u)
		return err
	}
	if s.Policy.EnforceUniqueEmail {
		_, err := s.Repo.SaveUnique(u)
		return err
	}
	taken, err := s.Repo.ExistsByEmail(u.Email())
	if err != nil {
		return err
	}
	if taken {
		return domainerr.Conflict("email", u.Email().String())
	}
	_, err = s.Repo.Save(u)
	return err
}

// commit drains the aggregate after a successful save and hands the events to
// the publisher and the search index. Neither failure undoes the save.
func (s *Service) commit(ctx context.Context, u *entity.User) {
	events := u.PullEvents()
	if s.Publisher != nil && len(events) > 0 {
		if err := s.Publisher.Publish(ctx, events); err != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID().String()).Warn("publish domain events failed")
		}
	}
	if s.Index != nil {
		if err := s.Index.Index(ctx, u); err != nil {
			s.Metrics.ObserveIndexError()
			s.Logger.WithError(err).WithField("user_id", u.ID().String()).Warn("search index update failed")
		}
	}
}
