package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-ddd-user-management/internal/domain/domainerr"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/repository"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/valueobject"
)

const queryTimeout = 5 * time.Second

const selectUser = `
	SELECT id::text, email, name, password_digest, status, created_at, updated_at
	FROM users
`

const upsertUser = `
	INSERT INTO users (id, email, name, password_digest, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE
	SET email = EXCLUDED.email,
		name = EXCLUDED.name,
		password_digest = EXCLUDED.password_digest,
		status = EXCLUDED.status,
		updated_at = EXCLUDED.updated_at
`

// filterClause matches repository.Filter: $1 status (empty = any), $2 LIKE
// pattern (empty = any).
const filterClause = `
	WHERE ($1 = '' OR status = $1)
	  AND ($2 = '' OR name ILIKE $2 ESCAPE '\' OR email ILIKE $2 ESCAPE '\')
`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Save(u *entity.User) (*entity.User, error) {
	if u == nil {
		return nil, domainerr.Validation("user", "cannot be nil")
	}
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	s := u.Snapshot()
	if _, err := r.pool.Exec(ctx, upsertUser, upsertArgs(s)...); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	return u, nil
}

// SaveUnique serializes writers per email with a transaction-scoped advisory
// lock, then checks for another owner before upserting.
func (r *UserRepository) SaveUnique(u *entity.User) (*entity.User, error) {
	if u == nil {
		return nil, domainerr.Validation("user", "cannot be nil")
	}
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	s := u.Snapshot()
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, s.Email.String()); err != nil {
			return err
		}
		var taken bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id <> $2)`,
			s.Email.String(), s.ID.UUID(),
		).Scan(&taken); err != nil {
			return err
		}
		if taken {
			return domainerr.Conflict("email", s.Email.String())
		}
		_, err := tx.Exec(ctx, upsertUser, upsertArgs(s)...)
		return err
	})
	if err != nil {
		if errors.Is(err, domainerr.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("save user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) FindByID(id valueobject.UserID) (*entity.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, selectUser+` WHERE id = $1`, id.UUID())
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainerr.NotFound("user", id.String())
	}
	return u, err
}

func (r *UserRepository) FindByEmail(email valueobject.Email) (*entity.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, selectUser+` WHERE email = $1 ORDER BY created_at, id LIMIT 1`, email.String())
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainerr.NotFound("user", email.String())
	}
	return u, err
}

func (r *UserRepository) ExistsByEmail(email valueobject.Email) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists by email: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) FindAll(page, size int, f repository.Filter) ([]*entity.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		selectUser+filterClause+` ORDER BY created_at, id OFFSET $3 LIMIT $4`,
		string(f.Status), likePattern(f.Search), page*size, size,
	)
	if err != nil {
		return nil, fmt.Errorf("find all users: %w", err)
	}
	defer rows.Close()

	out := make([]*entity.User, 0, size)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find all users: %w", err)
	}
	return out, nil
}

func (r *UserRepository) Count(f repository.Filter) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users`+filterClause, string(f.Status), likePattern(f.Search)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) Delete(id valueobject.UserID) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	res, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id.UUID())
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.RowsAffected() == 0 {
		return domainerr.NotFound("user", id.String())
	}
	return nil
}

// TIMESTAMPTZ keeps microseconds; times are truncated on the way in and read
// back in UTC so a loaded snapshot equals the saved one.
func upsertArgs(s entity.UserSnapshot) []any {
	return []any{
		s.ID.UUID(), s.Email.String(), s.Name, s.PasswordDigest, string(s.Status),
		dbTime(s.CreatedAt), dbTime(s.UpdatedAt),
	}
}

func dbTime(t time.Time) time.Time { return t.UTC().Truncate(time.Microsecond) }

func scanUser(row pgx.Row) (*entity.User, error) {
	var (
		rawID, rawEmail, status string
		s                       entity.UserSnapshot
	)
	if err := row.Scan(&rawID, &rawEmail, &s.Name, &s.PasswordDigest, &status, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	id, err := valueobject.ParseUserID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored user id %q: %w", rawID, err)
	}
	email, err := valueobject.NewEmail(rawEmail)
	if err != nil {
		return nil, fmt.Errorf("stored user email %q: %w", rawEmail, err)
	}
	s.ID, s.Email, s.Status = id, email, entity.UserStatus(status)
	s.CreatedAt, s.UpdatedAt = s.CreatedAt.UTC(), s.UpdatedAt.UTC()
	return entity.Reconstitute(s)
}

// likePattern turns a search term into an ILIKE substring pattern, escaping
// the wildcard characters it may contain.
func likePattern(search string) string {
	term := strings.TrimSpace(search)
	if term == "" {
		return ""
	}
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

var _ repository.UserRepository = (*UserRepository)(nil)
