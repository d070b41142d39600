package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caadev/tutortrainer/internal/domain"
	"github.com/caadev/tutortrainer/internal/domain/identity"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Users ---

func (s *Store) GetUserByName(ctx context.Context, username string) (*identity.User, error) {
	var u identity.User
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, username FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get user %s: %w", username, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *identity.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (user_id, username) VALUES ($1, $2)`,
		u.ID, u.Username)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return fmt.Errorf("create user %s: %w", u.Username, domain.ErrConflict)
		}
		return fmt.Errorf("create user %s: %w", u.Username, err)
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]identity.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, username FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []identity.User
	for rows.Next() {
		var u identity.User
		if err := rows.Scan(&u.ID, &u.Username); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
