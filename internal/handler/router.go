package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/rentbook/rentbook-api/internal/infra/observability"
	"github.com/rentbook/rentbook-api/internal/service"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// Routes follow the API contract the bookkeeping frontend consumes.
func NewRouter(ledgerSvc *service.LedgerService, reportsSvc *service.ReportsService, authSvc *service.AuthService, metrics *observability.Metrics, logger *zap.Logger, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Public auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authSignupHandler(authSvc, logger))
			r.Post("/login", authLoginHandler(authSvc, logger))
			r.Post("/google", authGoogleHandler(authSvc, logger))
		})

		// Everything below belongs to the authenticated user's scope.
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(authSvc, logger))
			r.Use(requestStatusMiddleware(metrics))

			// Properties
			r.Get("/properties", listPropertiesHandler(ledgerSvc, logger))
			r.Post("/properties", addPropertyHandler(ledgerSvc, logger))

			// Tenants
			r.Get("/tenants", listTenantsHandler(ledgerSvc, logger))
			r.Post("/tenants", addTenantHandler(ledgerSvc, logger))
			r.Get("/tenants/{tenantId}/balance", tenantBalanceHandler(ledgerSvc, logger))
			r.Get("/tenants/{tenantId}/ledger", tenantLedgerHandler(ledgerSvc, logger))
			r.Post("/tenants/mark-paid", markTenantsPaidHandler(ledgerSvc, logger))

			// Transactions
			r.Get("/transactions", listTransactionsHandler(ledgerSvc, logger))
			r.Post("/transactions/payments", recordPaymentHandler(ledgerSvc, logger))
			r.Post("/transactions/expenses", recordExpenseHandler(ledgerSvc, logger))

			// Monthly accrual roll
			r.Post("/rent/generate", generateRentHandler(ledgerSvc, logger))

			// Reports
			r.Get("/stats", statsHandler(reportsSvc, logger))
			r.Get("/reports/receivers", cashByReceiverHandler(reportsSvc, logger))
			r.Get("/reports/monthly", monthlyCollectionsHandler(reportsSvc, logger))

			// Metrics snapshot
			r.Get("/metrics/ledger", ledgerMetricsHandler(metrics))
		})
	})

	return r
}

// requestStatusMiddleware feeds the success/error request counters.
func requestStatusMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := "success"
			if ww.Status() >= 400 {
				status = "error"
			}
			metrics.IncrRequest(status)
			metrics.RecordRequestDuration(r.Method+" "+r.URL.Path, time.Since(start))
		})
	}
}

// ============================================================
// Operational
// ============================================================

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func ledgerMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetLedgerSnapshot())
	}
}
