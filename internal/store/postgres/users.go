package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Takvimwebserver/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersStore struct {
	pool *pgxpool.Pool
}

func NewUsersStore(pool *pgxpool.Pool) *UsersStore {
	return &UsersStore{pool: pool}
}

// UpsertByTelegramUsername creates the user on first login and
// refreshes last_login_at on every later one. Usernames arrive already
// lower-cased from the service layer.
func (s *UsersStore) UpsertByTelegramUsername(ctx context.Context, username string, when time.Time) (domain.User, error) {
	const q = `
		INSERT INTO users (telegram_username, last_login_at)
		VALUES ($1, $2)
		ON CONFLICT (telegram_username)
		DO UPDATE SET last_login_at = EXCLUDED.last_login_at, updated_at = now()
		RETURNING id, telegram_username, created_at, updated_at, last_login_at
	`

	var (
		u           domain.User
		idUUID      pgtype.UUID
		lastLoginTS pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx, q, username, when).Scan(
		&idUUID,
		&u.TelegramUsername,
		&u.CreatedAt,
		&u.UpdatedAt,
		&lastLoginTS,
	)
	if err != nil {
		return domain.User{}, fmt.Errorf("upsert user: %w", err)
	}

	u.ID = uuidOrEmpty(idUUID)
	u.LastLoginAt = timestamptzPtr(lastLoginTS)
	return u, nil
}

func (s *UsersStore) GetByID(ctx context.Context, id string) (domain.User, error) {
	const q = `
		SELECT id, telegram_username, created_at, updated_at, last_login_at
		FROM users
		WHERE id = $1
	`

	var (
		u           domain.User
		idUUID      pgtype.UUID
		lastLoginTS pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&idUUID,
		&u.TelegramUsername,
		&u.CreatedAt,
		&u.UpdatedAt,
		&lastLoginTS,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by id: %w", err)
	}

	u.ID = uuidOrEmpty(idUUID)
	u.LastLoginAt = timestamptzPtr(lastLoginTS)
	return u, nil
}

func (s *UsersStore) GetByTelegramUsername(ctx context.Context, username string) (domain.User, error) {
	const q = `
		SELECT id, telegram_username, created_at, updated_at, last_login_at
		FROM users
		WHERE telegram_username = $1
		LIMIT 1
	`

	var (
		u           domain.User
		idUUID      pgtype.UUID
		lastLoginTS pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx, q, username).Scan(
		&idUUID,
		&u.TelegramUsername,
		&u.CreatedAt,
		&u.UpdatedAt,
		&lastLoginTS,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by username: %w", err)
	}

	u.ID = uuidOrEmpty(idUUID)
	u.LastLoginAt = timestamptzPtr(lastLoginTS)
	return u, nil
}

func (s *UsersStore) SetLastLogin(ctx context.Context, userID string, when time.Time) error {
	const q = `
		UPDATE users
		SET last_login_at = $2, updated_at = now()
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, q, userID, when)
	if err != nil {
		return fmt.Errorf("set last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
