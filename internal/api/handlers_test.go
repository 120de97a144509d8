package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emsp/internal/domain/account"
	"emsp/internal/domain/card"
	"emsp/internal/domain/outbox"
	"emsp/internal/usecase"
)

type assignStub struct {
	got usecase.AssignCardParams
	err error
}

func (s *assignStub) Execute(ctx context.Context, params usecase.AssignCardParams) (*usecase.AssignCardResult, error) {
	s.got = params
	if s.err != nil {
		return nil, s.err
	}
	return &usecase.AssignCardResult{Card: &card.Card{ID: params.CardID, Status: card.StatusAssigned}, EventID: "e1"}, nil
}

type eventStub struct{}

func (eventStub) Execute(ctx context.Context, eventID string) (*usecase.EventDTO, error) {
	if eventID != "e1" {
		return nil, fmt.Errorf("get event: %w", outbox.ErrNotFound)
	}
	return &usecase.EventDTO{EventID: "e1", EventType: "CardAssigned", Status: "PROCESSED"}, nil
}

func TestAssignCard(t *testing.T) {
	stub := &assignStub{}
	router := NewRouter(NewHandlers(stub, eventStub{}), nil)

	req := httptest.NewRequest(http.MethodPost, "/cards/10/assign", strings.NewReader(`{"account_id": 20}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usecase.AssignCardParams{CardID: 10, AccountID: 20}, stub.got)

	var body usecase.AssignCardResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "e1", body.EventID)
}

func TestAssignCard_Errors(t *testing.T) {
	cases := []struct {
		name string
		path string
		body string
		err  error
		want int
	}{
		{"bad id", "/cards/x/assign", `{"account_id": 20}`, nil, http.StatusBadRequest},
		{"bad body", "/cards/10/assign", `{`, nil, http.StatusBadRequest},
		{"missing account id", "/cards/10/assign", `{}`, nil, http.StatusBadRequest},
		{"card not found", "/cards/10/assign", `{"account_id": 20}`, card.ErrNotFound, http.StatusNotFound},
		{"account not found", "/cards/10/assign", `{"account_id": 20}`, account.ErrNotFound, http.StatusNotFound},
		{"invalid state", "/cards/10/assign", `{"account_id": 20}`, card.ErrInvalidOperation, http.StatusConflict},
		{"store failure", "/cards/10/assign", `{"account_id": 20}`, outbox.ErrSerialization, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := NewRouter(NewHandlers(&assignStub{err: tc.err}, eventStub{}), nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body)))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestGetEvent(t *testing.T) {
	router := NewRouter(NewHandlers(&assignStub{}, eventStub{}), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/e1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"PROCESSED"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	router := NewRouter(NewHandlers(&assignStub{}, eventStub{}), nil)

	for _, path := range []string{"/health", "/metrics"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
