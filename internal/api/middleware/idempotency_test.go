package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, status int) (http.Handler, *miniredis.Miniredis, *atomic.Int32) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var calls atomic.Int32
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(status)
		w.Write([]byte(`{"event_id":"e1"}`))
	})
	return Idempotency(client)(next), mr, &calls
}

func post(h http.Handler, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/cards/10/assign", strings.NewReader(`{}`))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency_ReplaysCompletedResponse(t *testing.T) {
	h, mr, calls := setup(t, http.StatusOK)

	first := post(h, "k1")
	require.Equal(t, http.StatusOK, first.Code)

	second := post(h, "k1")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get("X-Idempotency-Hit"))
	assert.JSONEq(t, `{"event_id":"e1"}`, second.Body.String())
	assert.EqualValues(t, 1, calls.Load())

	got, err := mr.Get("idempotency:/cards/10/assign:k1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":200,"body":"{\"event_id\":\"e1\"}"}`, got)
}

func TestIdempotency_ReplayKeepsStatus(t *testing.T) {
	h, _, calls := setup(t, http.StatusCreated)

	first := post(h, "k1")
	require.Equal(t, http.StatusCreated, first.Code)

	second := post(h, "k1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("X-Idempotency-Hit"))
	assert.JSONEq(t, `{"event_id":"e1"}`, second.Body.String())
	assert.EqualValues(t, 1, calls.Load())
}

func TestIdempotency_RejectsInFlightDuplicate(t *testing.T) {
	h, mr, calls := setup(t, http.StatusOK)
	require.NoError(t, mr.Set("idempotency:/cards/10/assign:k1", processingMarker))

	rec := post(h, "k1")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Zero(t, calls.Load())
}

func TestIdempotency_FailureReleasesKey(t *testing.T) {
	h, mr, calls := setup(t, http.StatusInternalServerError)

	post(h, "k1")
	assert.False(t, mr.Exists("idempotency:/cards/10/assign:k1"))

	post(h, "k1")
	assert.EqualValues(t, 2, calls.Load())
}

func TestIdempotency_PassThrough(t *testing.T) {
	h, _, calls := setup(t, http.StatusOK)

	post(h, "")
	post(h, "")
	assert.EqualValues(t, 2, calls.Load())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/e1", nil))
	assert.EqualValues(t, 3, calls.Load())
}
