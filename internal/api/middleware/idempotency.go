package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	ChiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyInFlightTTL = 10 * time.Second
	idempotencyDoneTTL     = 24 * time.Hour
	processingMarker       = "PROCESSING"
)

// storedResponse is what a completed request leaves under its key.
type storedResponse struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// Idempotency replays the stored response of a completed request that carries
// the same Idempotency-Key and rejects a concurrent duplicate.
func Idempotency(redisClient *redis.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Only apply to state-changing methods
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			idemKey := fmt.Sprintf("idempotency:%s:%s", r.URL.Path, key)
			ctx := r.Context()

			acquired, err := redisClient.SetNX(ctx, idemKey, processingMarker, idempotencyInFlightTTL).Result()
			if err != nil {
				// Redis unavailable: serve without the guard
				next.ServeHTTP(w, r)
				return
			}
			if !acquired {
				val, err := redisClient.Get(ctx, idemKey).Result()
				if err != nil || val == processingMarker {
					writeConflict(w)
					return
				}
				var stored storedResponse
				if err := json.Unmarshal([]byte(val), &stored); err != nil {
					writeConflict(w)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Idempotency-Hit", "true")
				w.WriteHeader(stored.Status)
				w.Write([]byte(stored.Body))
				return
			}

			var body bytes.Buffer
			ww := ChiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&body)

			next.ServeHTTP(ww, r)

			if ww.Status() >= 200 && ww.Status() < 300 {
				stored, err := json.Marshal(storedResponse{Status: ww.Status(), Body: body.String()})
				if err == nil {
					redisClient.Set(ctx, idemKey, stored, idempotencyDoneTTL)
					return
				}
			}
			// Failed requests may be retried with the same key
			redisClient.Del(ctx, idemKey)
		})
	}
}

func writeConflict(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusConflict)
	w.Write([]byte(`{"error": "concurrent request"}`))
}
