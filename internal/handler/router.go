package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/console-bank-go/internal/domain"
	"github.com/boddenberg/console-bank-go/internal/infra/cache"
	"github.com/boddenberg/console-bank-go/internal/infra/observability"
	"github.com/boddenberg/console-bank-go/internal/infra/resilience"
	"github.com/boddenberg/console-bank-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// bankSvc may be nil, in which case only the operational endpoints work.
func NewRouter(bankSvc *service.BankService, replay *cache.InMemory[StoredResponse], bulkhead *resilience.Bulkhead, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(bankSvc))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics/operations", operationMetricsHandler(metrics))

		r.Group(func(r chi.Router) {
			if bulkhead != nil {
				r.Use(bulkhead.Middleware)
			}
			r.Use(idempotencyMiddleware(replay, metrics, logger))

			if bankSvc == nil {
				r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					writeError(w, http.StatusServiceUnavailable, "bank service unavailable")
				}))
				return
			}

			// Accounts
			r.Post("/accounts", openAccountHandler(bankSvc, logger))
			r.Get("/accounts", listAccountsHandler(bankSvc, logger))
			r.Get("/accounts/search", searchAccountsHandler(bankSvc, logger))
			r.Get("/accounts/{accountNumber}", getAccountHandler(bankSvc, logger))
			r.Get("/accounts/{accountNumber}/statement", statementHandler(bankSvc, logger))

			// Movements
			r.Post("/accounts/{accountNumber}/deposit", depositHandler(bankSvc, logger))
			r.Post("/accounts/{accountNumber}/withdraw", withdrawHandler(bankSvc, logger))
			r.Post("/transfers", transferHandler(bankSvc, logger))
		})
	})

	return r
}

// ============================================================
// Metrics & Health
// ============================================================

func healthzHandler(bankSvc *service.BankService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "bank-api", Status: "healthy", LastChecked: now},
		}

		if bankSvc != nil {
			start := time.Now()
			_, err := bankSvc.ListAccounts(r.Context())
			status := "healthy"
			if err != nil {
				status = "unhealthy"
			}
			services = append(services, domain.ServiceHealth{
				Name: "account-store", Status: status,
				LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		} else {
			services = append(services, domain.ServiceHealth{Name: "account-store", Status: "degraded", LastChecked: now})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		code := http.StatusOK
		if overallStatus == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func operationMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetOperationSnapshot())
	}
}
