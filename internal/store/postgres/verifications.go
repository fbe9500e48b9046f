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

type VerificationsStore struct {
	pool *pgxpool.Pool
}

func NewVerificationsStore(pool *pgxpool.Pool) *VerificationsStore {
	return &VerificationsStore{pool: pool}
}

// Replace removes any live token for the user and inserts the new one.
// Both statements run in one transaction so two live tokens can never
// coexist, even if the caller retries.
func (s *VerificationsStore) Replace(ctx context.Context, userID, tokenHash string, issuedAt time.Time) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM verifications WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete prior tokens: %w", err)
	}

	const insert = `
		INSERT INTO verifications (user_id, token_hash, created_at)
		VALUES ($1, $2, $3)
	`
	if _, err := tx.Exec(ctx, insert, userID, tokenHash, issuedAt); err != nil {
		return fmt.Errorf("insert token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Consume looks a token up by hash and deletes it in the same
// statement, so a second attempt with the same secret finds nothing.
func (s *VerificationsStore) Consume(ctx context.Context, tokenHash string) (domain.VerificationToken, error) {
	const q = `
		DELETE FROM verifications
		WHERE token_hash = $1
		RETURNING user_id, token_hash, created_at
	`

	var (
		token      domain.VerificationToken
		userIDUUID pgtype.UUID
	)
	err := s.pool.QueryRow(ctx, q, tokenHash).Scan(&userIDUUID, &token.TokenHash, &token.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.VerificationToken{}, domain.ErrNotFound
		}
		return domain.VerificationToken{}, fmt.Errorf("consume token: %w", err)
	}

	token.UserID = uuidOrEmpty(userIDUUID)
	return token, nil
}

// DeleteByHash is the compensating cleanup for a token whose login
// link never reached Telegram.
func (s *VerificationsStore) DeleteByHash(ctx context.Context, tokenHash string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM verifications WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}
