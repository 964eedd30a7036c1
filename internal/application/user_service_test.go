package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-user-management/internal/domain/domainerr"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/event"
	"github.com/oksasatya/go-ddd-user-management/internal/infrastructure/memory"
	"github.com/oksasatya/go-ddd-user-management/internal/infrastructure/metrics"
)

type fakePublisher struct {
	err    error
	events []event.DomainEvent
}

func (p *fakePublisher) Publish(_ context.Context, events []event.DomainEvent) error {
	p.events = append(p.events, events...)
	return p.err
}

func (p *fakePublisher) types() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type fakeIndex struct {
	docs      map[string]string
	searchErr error
	hits      []string
	indexErr  error
}

func newFakeIndex() *fakeIndex { return &fakeIndex{docs: map[string]string{}} }

func (f *fakeIndex) Index(_ context.Context, u *entity.User) error {
	if f.indexErr != nil {
		return f.indexErr
	}
	f.docs[u.ID().String()] = u.Name()
	return nil
}

func (f *fakeIndex) Remove(_ context.Context, id string) error {
	delete(f.docs, id)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ string, _ int) ([]string, error) {
	return f.hits, f.searchErr
}

type fixture struct {
	svc     *Service
	repo    *memory.UserRepository
	pub     *fakePublisher
	metrics *metrics.Metrics
	hook    *logtest.Hook
}

func newFixture(t *testing.T, policy Policy) fixture {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	repo := memory.NewUserRepository()
	pub := &fakePublisher{}
	m := metrics.New("users")
	return fixture{
		svc:     NewService(repo, pub, nil, logger, m, policy),
		repo:    repo,
		pub:     pub,
		metrics: m,
		hook:    hook,
	}
}

func (f fixture) create(t *testing.T, email, name string) *entity.User {
	t.Helper()
	u, err := f.svc.CreateUser(context.Background(), CreateUserInput{Email: email, Name: name, Password: "secret1"})
	require.NoError(t, err)
	return u
}

func ptr(s string) *string { return &s }

func TestCreateUser(t *testing.T) {
	f := newFixture(t, DefaultPolicy())

	u := f.create(t, " Ana@Example.com ", "  Ana  ")
	assert.Equal(t, "ana@example.com", u.Email().String())
	assert.Equal(t, "Ana", u.Name())
	assert.Equal(t, entity.StatusPending, u.Status())
	assert.Zero(t, u.PendingEvents())
	assert.Equal(t, []string{entity.EventUserCreated}, f.pub.types())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.UserOperations.WithLabelValues("create", "ok")))

	stored, err := f.svc.GetUser(context.Background(), u.ID().String())
	require.NoError(t, err)
	assert.True(t, stored.VerifyPassword("secret1"))
}

func TestCreateUserActivePolicy(t *testing.T) {
	p := DefaultPolicy()
	p.InitialStatus = entity.StatusActive
	f := newFixture(t, p)

	u := f.create(t, "ana@example.com", "Ana")
	assert.Equal(t, entity.StatusActive, u.Status())
}

func TestCreateUserValidation(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	tests := []struct {
		name string
		in   CreateUserInput
	}{
		{name: "bad email", in: CreateUserInput{Email: "nope", Name: "Ana", Password: "secret1"}},
		{name: "short name", in: CreateUserInput{Email: "a@example.com", Name: "A", Password: "secret1"}},
		{name: "short password", in: CreateUserInput{Email: "a@example.com", Name: "Ana", Password: "123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateUser(context.Background(), tt.in)
			assert.ErrorIs(t, err, domainerr.ErrValidation)
		})
	}
	assert.Zero(t, f.repo.Len())
	assert.Empty(t, f.pub.events)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	f.create(t, "ana@example.com", "Ana")

	_, err := f.svc.CreateUser(context.Background(), CreateUserInput{Email: "ANA@example.com", Name: "Other", Password: "secret1"})
	assert.ErrorIs(t, err, domainerr.ErrConflict)
	assert.Equal(t, 1, f.repo.Len())
	assert.Len(t, f.pub.events, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.UserOperations.WithLabelValues("create", "error")))
}

func TestCreateUserDuplicateEmailWithoutEnforcement(t *testing.T) {
	p := DefaultPolicy()
	p.EnforceUniqueEmail = false
	f := newFixture(t, p)
	f.create(t, "ana@example.com", "Ana")

	_, err := f.svc.CreateUser(context.Background(), CreateUserInput{Email: "ana@example.com", Name: "Other", Password: "secret1"})
	assert.ErrorIs(t, err, domainerr.ErrConflict)
}

func TestGetUser(t *testing.T) {
	f := newFixture(t, DefaultPolicy())

	_, err := f.svc.GetUser(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, domainerr.ErrValidation)

	_, err = f.svc.GetUser(context.Background(), "6f1c2b4e-8d3a-4f5e-9a7b-1c2d3e4f5a6b")
	assert.ErrorIs(t, err, domainerr.ErrNotFound)

	u := f.create(t, "ana@example.com", "Ana")
	byEmail, err := f.svc.GetUserByEmail(context.Background(), "ANA@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID(), byEmail.ID())
}

func TestListUsers(t *testing.T) {
	p := DefaultPolicy()
	p.MaxPageSize = 20
	f := newFixture(t, p)
	for i := 0; i < 25; i++ {
		f.create(t, fmt.Sprintf("user%02d@example.com", i), fmt.Sprintf("User %02d", i))
	}

	res, err := f.svc.ListUsers(context.Background(), ListUsersInput{Page: 1})
	require.NoError(t, err)
	assert.Len(t, res.Items, 10)
	assert.Equal(t, 25, res.Total)
	assert.Equal(t, 10, res.Size)

	clamped, err := f.svc.ListUsers(context.Background(), ListUsersInput{Size: 500})
	require.NoError(t, err)
	assert.Equal(t, 20, clamped.Size)
	assert.Len(t, clamped.Items, 20)

	filtered, err := f.svc.ListUsers(context.Background(), ListUsersInput{Status: "pending", Search: "user 0"})
	require.NoError(t, err)
	assert.Equal(t, 10, filtered.Total)

	tests := []ListUsersInput{
		{Page: -1},
		{Size: -5},
		{Status: "BANNED"},
	}
	for _, in := range tests {
		_, err := f.svc.ListUsers(context.Background(), in)
		assert.ErrorIs(t, err, domainerr.ErrValidation, "%+v", in)
	}
}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	u := f.create(t, "ana@example.com", "Ana")
	id := u.ID().String()

	updated, err := f.svc.UpdateUser(context.Background(), id, UpdateUserInput{
		Email:  ptr("ana.maria@example.com"),
		Name:   ptr("Ana Maria"),
		Status: ptr("suspended"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ana.maria@example.com", updated.Email().String())
	assert.Equal(t, "Ana Maria", updated.Name())
	assert.Equal(t, entity.StatusSuspended, updated.Status())
	assert.Equal(t, []string{
		entity.EventUserCreated,
		entity.EventUserEmailUpdated,
		entity.EventUserNameUpdated,
		entity.EventUserStatusUpdated,
	}, f.pub.types())
}

func TestUpdateUserFailureLeavesStoreUnchanged(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	u := f.create(t, "ana@example.com", "Ana")
	id := u.ID().String()

	_, err := f.svc.UpdateUser(context.Background(), id, UpdateUserInput{
		Email: ptr("new@example.com"),
		Name:  ptr("X"),
	})
	assert.ErrorIs(t, err, domainerr.ErrValidation)

	stored, err := f.svc.GetUser(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", stored.Email().String())
	assert.Equal(t, "Ana", stored.Name())
	assert.Len(t, f.pub.events, 1)
}

func TestUpdateUserEmailConflict(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	f.create(t, "ana@example.com", "Ana")
	bob := f.create(t, "bob@example.com", "Bob")

	_, err := f.svc.UpdateUser(context.Background(), bob.ID().String(), UpdateUserInput{Email: ptr("Ana@example.com")})
	assert.ErrorIs(t, err, domainerr.ErrConflict)

	// keeping your own email is not a conflict
	_, err = f.svc.UpdateUser(context.Background(), bob.ID().String(), UpdateUserInput{Email: ptr("bob@example.com")})
	require.NoError(t, err)
}

func TestStatusTransitions(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	ctx := context.Background()
	id := f.create(t, "ana@example.com", "Ana").ID().String()

	u, err := f.svc.ActivateUser(ctx, id)
	require.NoError(t, err)
	assert.True(t, u.IsActive())

	_, err = f.svc.ActivateUser(ctx, id)
	assert.ErrorIs(t, err, domainerr.ErrIllegalState)

	u, err = f.svc.DeactivateUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusInactive, u.Status())

	u, err = f.svc.DeleteUser(ctx, id)
	require.NoError(t, err)
	assert.True(t, u.IsDeleted())

	stored, err := f.svc.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDeleted, stored.Status())

	_, err = f.svc.DeleteUser(ctx, id)
	assert.ErrorIs(t, err, domainerr.ErrIllegalState)
	_, err = f.svc.ActivateUser(ctx, id)
	assert.ErrorIs(t, err, domainerr.ErrIllegalState)
	_, err = f.svc.UpdateUser(ctx, id, UpdateUserInput{Name: ptr("Ghost")})
	assert.ErrorIs(t, err, domainerr.ErrIllegalState)

	assert.Equal(t, []string{
		entity.EventUserCreated,
		entity.EventUserActivated,
		entity.EventUserDeactivated,
		entity.EventUserDeleted,
	}, f.pub.types())
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	id := f.create(t, "ana@example.com", "Ana").ID().String()

	_, err := f.svc.ChangePassword(context.Background(), id, "123")
	assert.ErrorIs(t, err, domainerr.ErrValidation)

	_, err = f.svc.ChangePassword(context.Background(), id, "n3w-secret")
	require.NoError(t, err)
	stored, err := f.svc.GetUser(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, stored.VerifyPassword("n3w-secret"))
	assert.False(t, stored.VerifyPassword("secret1"))
}

func TestPurgeUser(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	idx := newFakeIndex()
	f.svc.Index = idx
	id := f.create(t, "ana@example.com", "Ana").ID().String()
	require.Contains(t, idx.docs, id)

	require.NoError(t, f.svc.PurgeUser(context.Background(), id))
	assert.Zero(t, f.repo.Len())
	assert.NotContains(t, idx.docs, id)

	assert.ErrorIs(t, f.svc.PurgeUser(context.Background(), id), domainerr.ErrNotFound)
}

func TestPublishFailureDoesNotUndoSave(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	f.pub.err = errors.New("broker down")

	u := f.create(t, "ana@example.com", "Ana")
	_, err := f.svc.GetUser(context.Background(), u.ID().String())
	require.NoError(t, err)
	var messages []string
	for _, e := range f.hook.AllEntries() {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "publish domain events failed")
}

func TestIndexFailureIsCounted(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	f.svc.Index = &fakeIndex{docs: map[string]string{}, indexErr: errors.New("es down")}

	f.create(t, "ana@example.com", "Ana")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.IndexErrors))
	assert.Equal(t, 1, f.repo.Len())
}

func TestSearchUsers(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	ana := f.create(t, "ana@example.com", "Ana")
	f.create(t, "bob@example.com", "Bob")

	// no index: repository filter
	got, err := f.svc.SearchUsers(context.Background(), "bob", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Bob", got[0].Name())

	idx := newFakeIndex()
	idx.hits = []string{ana.ID().String(), "6f1c2b4e-8d3a-4f5e-9a7b-1c2d3e4f5a6b", "garbage"}
	f.svc.Index = idx
	got, err = f.svc.SearchUsers(context.Background(), "whatever", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ana.ID(), got[0].ID())

	idx.searchErr = errors.New("es down")
	got, err = f.svc.SearchUsers(context.Background(), "ana", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ana.ID(), got[0].ID())
}
