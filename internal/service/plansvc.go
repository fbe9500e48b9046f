package service

import (
	"context"
	"strings"
	"time"

	"Takvimwebserver/internal/domain"
)

type PlansStore interface {
	Create(ctx context.Context, userID, title, description string, occursAt time.Time) (domain.Plan, error)
	GetForUser(ctx context.Context, userID, planID string) (domain.Plan, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Plan, error)
	Update(ctx context.Context, userID, planID, title, description string, when time.Time) (domain.Plan, error)
	Delete(ctx context.Context, userID, planID string) error
}

// PlanService is scoped CRUD over plan records. Every store call
// carries the owning user id, so cross-user access is impossible at
// the query level rather than hidden by the UI.
type PlanService struct {
	Plans PlansStore
	Now   func() time.Time
}

func (s *PlanService) Create(ctx context.Context, userID, title, description string, occursAt *time.Time) (domain.Plan, error) {
	if s.Now == nil {
		s.Now = time.Now
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Plan{}, domain.NewValidationError(map[string]string{"title": "required"})
	}

	when := s.Now()
	if occursAt != nil {
		when = *occursAt
	}

	return s.Plans.Create(ctx, userID, title, strings.TrimSpace(description), when)
}

func (s *PlanService) Get(ctx context.Context, userID, planID string) (domain.Plan, error) {
	return s.Plans.GetForUser(ctx, userID, planID)
}

func (s *PlanService) List(ctx context.Context, userID string) ([]domain.Plan, error) {
	return s.Plans.ListForUser(ctx, userID)
}

func (s *PlanService) Update(ctx context.Context, userID, planID, title, description string) (domain.Plan, error) {
	if s.Now == nil {
		s.Now = time.Now
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Plan{}, domain.NewValidationError(map[string]string{"title": "required"})
	}

	return s.Plans.Update(ctx, userID, planID, title, strings.TrimSpace(description), s.Now())
}

func (s *PlanService) Delete(ctx context.Context, userID, planID string) error {
	return s.Plans.Delete(ctx, userID, planID)
}
