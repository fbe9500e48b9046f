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

// PlansStore is owner-scoped by construction: every query carries the
// user id predicate, so a wrong owner and a missing row look the same.
type PlansStore struct {
	pool *pgxpool.Pool
}

func NewPlansStore(pool *pgxpool.Pool) *PlansStore {
	return &PlansStore{pool: pool}
}

func (s *PlansStore) Create(ctx context.Context, userID, title, description string, occursAt time.Time) (domain.Plan, error) {
	const q = `
		INSERT INTO plans (user_id, title, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id, user_id, title, description, created_at, updated_at
	`

	plan, err := s.scanPlan(s.pool.QueryRow(ctx, q, userID, title, nullIfEmpty(description), occursAt))
	if err != nil {
		return domain.Plan{}, fmt.Errorf("create plan: %w", err)
	}
	return plan, nil
}

func (s *PlansStore) GetForUser(ctx context.Context, userID, planID string) (domain.Plan, error) {
	const q = `
		SELECT id, user_id, title, description, created_at, updated_at
		FROM plans
		WHERE id = $1 AND user_id = $2
	`

	plan, err := s.scanPlan(s.pool.QueryRow(ctx, q, planID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Plan{}, domain.ErrNotFound
		}
		return domain.Plan{}, fmt.Errorf("get plan: %w", err)
	}
	return plan, nil
}

func (s *PlansStore) ListForUser(ctx context.Context, userID string) ([]domain.Plan, error) {
	const q = `
		SELECT id, user_id, title, description, created_at, updated_at
		FROM plans
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var out []domain.Plan
	for rows.Next() {
		plan, err := s.scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		out = append(out, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}

	return out, nil
}

func (s *PlansStore) Update(ctx context.Context, userID, planID, title, description string, when time.Time) (domain.Plan, error) {
	const q = `
		UPDATE plans
		SET title = $3, description = $4, updated_at = $5
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, title, description, created_at, updated_at
	`

	plan, err := s.scanPlan(s.pool.QueryRow(ctx, q, planID, userID, title, nullIfEmpty(description), when))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Plan{}, domain.ErrNotFound
		}
		return domain.Plan{}, fmt.Errorf("update plan: %w", err)
	}
	return plan, nil
}

func (s *PlansStore) Delete(ctx context.Context, userID, planID string) error {
	const q = `
		DELETE FROM plans
		WHERE id = $1 AND user_id = $2
	`

	tag, err := s.pool.Exec(ctx, q, planID, userID)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *PlansStore) scanPlan(row pgx.Row) (domain.Plan, error) {
	var (
		plan       domain.Plan
		idUUID     pgtype.UUID
		userIDUUID pgtype.UUID
		descText   pgtype.Text
	)
	err := row.Scan(
		&idUUID,
		&userIDUUID,
		&plan.Title,
		&descText,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		return domain.Plan{}, err
	}

	plan.ID = uuidOrEmpty(idUUID)
	plan.UserID = uuidOrEmpty(userIDUUID)
	plan.Description = textOrEmpty(descText)
	return plan, nil
}
