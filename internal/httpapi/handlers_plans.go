package httpapi

import (
	"net/http"
	"time"

	"Takvimwebserver/internal/domain"
)

type planResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toPlanResponse(p domain.Plan) planResponse {
	return planResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type createPlanRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	OccursAt    *time.Time `json:"occurs_at"`
}

func (a *api) handlePlansCreate(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req createPlanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	plan, err := a.planSvc.Create(r.Context(), u.ID, req.Title, req.Description, req.OccursAt)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, toPlanResponse(plan))
}

func (a *api) handlePlansList(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	plans, err := a.planSvc.List(r.Context(), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	out := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, toPlanResponse(p))
	}
	WriteJSON(w, http.StatusOK, map[string][]planResponse{"plans": out})
}

func (a *api) handlePlansGet(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	plan, err := a.planSvc.Get(r.Context(), u.ID, r.PathValue("id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, toPlanResponse(plan))
}

type updatePlanRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (a *api) handlePlansUpdate(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req updatePlanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	plan, err := a.planSvc.Update(r.Context(), u.ID, r.PathValue("id"), req.Title, req.Description)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, toPlanResponse(plan))
}

func (a *api) handlePlansDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	if err := a.planSvc.Delete(r.Context(), u.ID, r.PathValue("id")); err != nil {
		WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
