package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rentbook/rentbook-api/internal/domain"
	"github.com/rentbook/rentbook-api/internal/infra/cache"
	"github.com/rentbook/rentbook-api/internal/infra/observability"
	"github.com/rentbook/rentbook-api/internal/infra/storage"
	"github.com/rentbook/rentbook-api/internal/service"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	dir := t.TempDir()
	store, err := storage.NewFileStore(dir, cache.New[*domain.Collection](time.Minute), logger, metrics)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	users, err := storage.NewFileUserStore(dir, logger)
	if err != nil {
		t.Fatalf("new user store: %v", err)
	}

	ledgerSvc := service.NewLedgerService(store, logger, metrics)
	reportsSvc := service.NewReportsService(store, logger)
	authSvc := service.NewAuthService(users, logger, "test-secret", time.Hour)

	return NewRouter(ledgerSvc, reportsSvc, authSvc, metrics, logger, []string{"*"})
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func signupToken(t *testing.T, router http.Handler, email string) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"name": "Tester", "email": email, "password": "hunter22",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp domain.AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}
	return resp.AccessToken
}

func TestOperationalEndpoints(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/healthz", "/readyz", "/ping", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/v1/tenants", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/tenants", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", rec.Code)
	}
}

func TestSignupLoginFlow(t *testing.T) {
	router := newTestRouter(t)

	token := signupToken(t, router, "alice@example.com")
	if token == "" {
		t.Fatal("expected a token")
	}

	// Duplicate signup conflicts.
	rec := doJSON(t, router, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"name": "Tester", "email": "alice@example.com", "password": "hunter22",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "hunter22",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", rec.Code)
	}
}

func TestSeedDataVisibleAfterSignup(t *testing.T) {
	router := newTestRouter(t)
	token := signupToken(t, router, "alice@example.com")

	rec := doJSON(t, router, http.MethodGet, "/v1/tenants", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Tenants []domain.Tenant `json:"tenants"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Tenants) != 3 {
		t.Fatalf("expected 3 seeded tenants, got %d", len(resp.Tenants))
	}
}

func TestRecordPaymentOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	token := signupToken(t, router, "alice@example.com")

	rec := doJSON(t, router, http.MethodPost, "/v1/transactions/payments", token, map[string]any{
		"tenantId": "t2", "cashAmount": 1000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/tenants/t2/balance", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("balance: expected 200, got %d", rec.Code)
	}
	var bal struct {
		TenantID string  `json:"tenantId"`
		Balance  float64 `json:"balance"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &bal); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if bal.Balance != 500 {
		t.Fatalf("expected balance 500, got %v", bal.Balance)
	}
}

func TestPaymentValidationReturns400(t *testing.T) {
	router := newTestRouter(t)
	token := signupToken(t, router, "alice@example.com")

	rec := doJSON(t, router, http.MethodPost, "/v1/transactions/payments", token, map[string]any{
		"tenantId":   "t2",
		"cashAmount": 1000,
		"splits": []map[string]any{
			{"receiverName": "A", "amount": 400},
			{"receiverName": "B", "amount": 500},
		},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUnknownTenantReturns404(t *testing.T) {
	router := newTestRouter(t)
	token := signupToken(t, router, "alice@example.com")

	rec := doJSON(t, router, http.MethodGet, "/v1/tenants/ghost/ledger", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestMarkPaidOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	token := signupToken(t, router, "alice@example.com")

	rec := doJSON(t, router, http.MethodPost, "/v1/tenants/mark-paid", token, map[string]any{
		"tenantIds": []string{"t2"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// A tenant without arrears rejects the batch.
	rec = doJSON(t, router, http.MethodPost, "/v1/tenants/mark-paid", token, map[string]any{
		"tenantIds": []string{"t2"},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGenerateRentOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	token := signupToken(t, router, "alice@example.com")

	rec := doJSON(t, router, http.MethodPost, "/v1/rent/generate", token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp domain.GenerateRentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Charged != 3 {
		t.Fatalf("expected 3 charges, got %d", resp.Charged)
	}
}

func TestStatsAndReportsOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	token := signupToken(t, router, "alice@example.com")

	rec := doJSON(t, router, http.MethodGet, "/v1/stats", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", rec.Code)
	}
	var stats domain.DashboardStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalProperties != 2 {
		t.Fatalf("expected 2 properties, got %d", stats.TotalProperties)
	}

	for _, path := range []string{"/v1/reports/receivers", "/v1/reports/monthly", "/v1/metrics/ledger"} {
		rec := doJSON(t, router, http.MethodGet, path, token, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestScopeIsolationOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	aliceToken := signupToken(t, router, "alice@example.com")
	bobToken := signupToken(t, router, "bob@example.com")

	// Alice adds a property only she should see.
	rec := doJSON(t, router, http.MethodPost, "/v1/properties", aliceToken, map[string]any{
		"name": "Alice Tower", "address": "1 Secret Ln", "type": "House", "ownerName": "Alice",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add property: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	count := func(token string) int {
		rec := doJSON(t, router, http.MethodGet, "/v1/properties", token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("list properties: expected 200, got %d", rec.Code)
		}
		var resp struct {
			Properties []domain.Property `json:"properties"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return len(resp.Properties)
	}

	if got := count(aliceToken); got != 3 {
		t.Fatalf("alice: expected 3 properties, got %d", got)
	}
	if got := count(bobToken); got != 2 {
		t.Fatalf("bob: expected 2 seeded properties, got %d", got)
	}

	// Alice's payments never move Bob's balances either.
	rec = doJSON(t, router, http.MethodPost, "/v1/transactions/payments", aliceToken, map[string]any{
		"tenantId": "t2", "cashAmount": 1500,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("payment: expected 201, got %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/v1/tenants/t2/balance", bobToken, nil)
	var bal struct {
		Balance float64 `json:"balance"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &bal); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if bal.Balance != 1500 {
		t.Fatalf("bob's t2 balance changed: got %v", bal.Balance)
	}
}

func TestExpenseEndpoint(t *testing.T) {
	router := newTestRouter(t)
	token := signupToken(t, router, "alice@example.com")

	rec := doJSON(t, router, http.MethodPost, "/v1/transactions/expenses", token, map[string]any{
		"type": "REPAIR", "propertyId": "1", "amount": 350, "description": "roof work",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/transactions/expenses", token, map[string]any{
		"type": "RENT_DUE", "propertyId": "1", "amount": 350,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-expense kind, got %d", rec.Code)
	}
}

func TestTenantLedgerShape(t *testing.T) {
	router := newTestRouter(t)
	token := signupToken(t, router, "alice@example.com")

	rec := doJSON(t, router, http.MethodGet, "/v1/tenants/t1/ledger", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var ledger domain.TenantLedger
	if err := json.Unmarshal(rec.Body.Bytes(), &ledger); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ledger.Tenant.ID != "t1" {
		t.Fatalf("expected tenant t1, got %q", ledger.Tenant.ID)
	}
	if len(ledger.PaymentHistory) != 6 {
		t.Fatalf("expected 6 history buckets, got %d", len(ledger.PaymentHistory))
	}
	if len(ledger.Transactions) != 1 {
		t.Fatalf("expected 1 seeded transaction, got %d", len(ledger.Transactions))
	}
}

func TestGoogleLoginEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/auth/google", "", map[string]string{
		"credential": "garbage",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/auth/google", "", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMetricsSnapshotCountsEvents(t *testing.T) {
	router := newTestRouter(t)
	token := signupToken(t, router, "alice@example.com")

	for i := 0; i < 2; i++ {
		rec := doJSON(t, router, http.MethodPost, "/v1/transactions/payments", token, map[string]any{
			"tenantId": "t2", "cashAmount": 100, "date": fmt.Sprintf("2026-0%d-15", i+1),
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("payment %d: expected 201, got %d", i, rec.Code)
		}
	}

	rec := doJSON(t, router, http.MethodGet, "/v1/metrics/ledger", token, nil)
	var snap domain.LedgerMetrics
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.EventsRecorded["RENT_PAYMENT"] != 2 {
		t.Fatalf("expected 2 payment events, got %d", snap.EventsRecorded["RENT_PAYMENT"])
	}
}
