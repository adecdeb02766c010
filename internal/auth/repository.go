package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/showroom-dms/showroom/internal/platform/db"
	"github.com/showroom-dms/showroom/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	CreateUser(ctx context.Context, user User) (int64, error)
	DeleteUser(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, username, full_name, role, password_hash, is_active, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var (
		u    User
		role string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.FullName, &role, &u.PasswordHash, &u.IsActive, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = shared.Role(role)
	return &u, nil
}

// FindByUsername fetches a user by login name.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.NotFound("user", username)
	}
	return user, db.Classify(err)
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.NotFound("user", id)
	}
	return user, db.Classify(err)
}

// ListUsers returns every account ordered by name.
func (r *PGRepository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY full_name`)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// CreateUser inserts a user and returns its id.
func (r *PGRepository) CreateUser(ctx context.Context, user User) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO users (username, full_name, role, password_hash, is_active)
VALUES ($1, $2, $3, $4, TRUE) RETURNING id`, user.Username, user.FullName, string(user.Role), user.PasswordHash).Scan(&id)
	return id, db.Classify(err)
}

// DeleteUser removes a user.
func (r *PGRepository) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return db.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("user", id)
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
