package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"emsp/internal/domain/account"
	"emsp/internal/domain/card"
	"emsp/internal/domain/outbox"
	"emsp/internal/usecase"
)

type CardAssigner interface {
	Execute(ctx context.Context, params usecase.AssignCardParams) (*usecase.AssignCardResult, error)
}

type EventGetter interface {
	Execute(ctx context.Context, eventID string) (*usecase.EventDTO, error)
}

type Handlers struct {
	assignCardUC CardAssigner
	getEventUC   EventGetter
}

func NewHandlers(assignCardUC CardAssigner, getEventUC EventGetter) *Handlers {
	return &Handlers{
		assignCardUC: assignCardUC,
		getEventUC:   getEventUC,
	}
}

func (h *Handlers) AssignCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid card id", http.StatusBadRequest)
		return
	}

	var req struct {
		AccountID int64 `json:"account_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccountID <= 0 {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.assignCardUC.Execute(r.Context(), usecase.AssignCardParams{
		CardID:    cardID,
		AccountID: req.AccountID,
	})
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "missing event id", http.StatusBadRequest)
		return
	}

	dto, err := h.getEventUC.Execute(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	writeJSON(w, http.StatusOK, dto)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, card.ErrNotFound), errors.Is(err, account.ErrNotFound), errors.Is(err, outbox.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, card.ErrInvalidOperation):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
