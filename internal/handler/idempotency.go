package handler

import (
	"bytes"
	"net/http"
	"time"

	"github.com/boddenberg/console-bank-go/internal/infra/cache"
	"github.com/boddenberg/console-bank-go/internal/infra/observability"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// IdempotencyKeyHeader is the request header that makes a POST replayable.
const IdempotencyKeyHeader = "Idempotency-Key"

// ReplayedHeader is set on responses served from the idempotency cache.
const ReplayedHeader = "Idempotent-Replayed"

// StoredResponse is a captured HTTP response kept for replay.
type StoredResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// NewReplayCache creates the cache backing the idempotency middleware.
func NewReplayCache(ttl time.Duration) *cache.InMemory[StoredResponse] {
	return cache.New[StoredResponse](ttl)
}

type replayResult struct {
	resp     StoredResponse
	replayed bool
}

// idempotencyMiddleware executes a keyed POST at most once per TTL window.
// Concurrent requests with the same key share a single execution; later
// ones are answered from the cache. 5xx responses are not stored.
func idempotencyMiddleware(replay *cache.InMemory[StoredResponse], metrics *observability.Metrics, logger *zap.Logger) func(http.Handler) http.Handler {
	var group singleflight.Group

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyKeyHeader)
			if r.Method != http.MethodPost || key == "" || replay == nil {
				next.ServeHTTP(w, r)
				return
			}
			cacheKey := r.Method + " " + r.URL.Path + " " + key

			v, _, _ := group.Do(cacheKey, func() (any, error) {
				if stored, ok := replay.Get(cacheKey); ok {
					return replayResult{resp: stored, replayed: true}, nil
				}
				buf := &responseBuffer{header: make(http.Header)}
				next.ServeHTTP(buf, r)
				resp := buf.stored()
				if resp.Status < http.StatusInternalServerError {
					replay.Set(cacheKey, resp)
				}
				return replayResult{resp: resp}, nil
			})
			result := v.(replayResult)

			if result.replayed {
				metrics.IncrIdempotentReplay()
				logger.Info("idempotent replay",
					zap.String("path", r.URL.Path),
					zap.String("idempotency_key", key),
				)
				w.Header().Set(ReplayedHeader, "true")
			}
			writeStored(w, result.resp)
		})
	}
}

func writeStored(w http.ResponseWriter, resp StoredResponse) {
	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

// responseBuffer is an http.ResponseWriter that keeps everything in memory.
type responseBuffer struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (b *responseBuffer) Header() http.Header { return b.header }

func (b *responseBuffer) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *responseBuffer) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *responseBuffer) stored() StoredResponse {
	status := b.status
	if status == 0 {
		status = http.StatusOK
	}
	return StoredResponse{
		Status: status,
		Header: b.header.Clone(),
		Body:   append([]byte(nil), b.body.Bytes()...),
	}
}
