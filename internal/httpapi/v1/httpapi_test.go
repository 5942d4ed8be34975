package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tinoosan/bank/internal/events"
	"github.com/tinoosan/bank/internal/service/account"
	"github.com/tinoosan/bank/internal/service/journal"
	"github.com/tinoosan/bank/internal/service/registry"
	"github.com/tinoosan/bank/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type errResp struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type fixture struct {
	h     http.Handler
	store *memory.Store
	rec   *events.Recorder
	prom  *prometheus.Registry
}

func setupWith(t *testing.T, ready ...ReadyChecker) fixture {
	t.Helper()
	logger := testLogger()
	store := memory.New(1000)
	rec := &events.Recorder{}
	reg, err := registry.New(store, store, registry.Options{Name: "Demo", Currency: "INR", Sink: rec, Logger: logger})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	prom := prometheus.NewRegistry()
	srv, err := New(Options{
		Registry:       reg,
		Accounts:       account.New(store, reg, account.Options{Bank: "Demo", Sink: rec, Logger: logger}),
		Journal:        journal.New(store),
		Session:        SessionConfig{Secret: []byte("test-secret"), TTL: time.Minute, Issuer: "bank-test"},
		Ready:          append([]ReadyChecker{store}, ready...),
		Logger:         logger,
		Metrics:        prom,
		AllowedOrigins: []string{"https://app.example"},
	})
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	return fixture{h: srv.Handler(), store: store, rec: rec, prom: prom}
}

func setup(t *testing.T) fixture {
	t.Helper()
	return setupWith(t)
}

func do(t *testing.T, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rdr = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			rdr = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func expectCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rr.Code, rr.Body.String())
	}
	if code == "" {
		return
	}
	if got := decode[errResp](t, rr).Code; got != code {
		t.Fatalf("expected code %q, got %q", code, got)
	}
}

// onboard opens an account for name and returns it.
func onboard(t *testing.T, h http.Handler, name, variant, pin string, openingMinor int64) onboardingResponse {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/v1/onboarding", map[string]any{
		"customer": map[string]any{"name": name, "age": 30, "salary_minor": 5000000},
		"account":  map[string]any{"variant": variant, "credential": pin, "opening_minor": openingMinor},
	}, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("onboard %s: %d %s", name, rr.Code, rr.Body.String())
	}
	return decode[onboardingResponse](t, rr)
}

func login(t *testing.T, h http.Handler, name, pin string) string {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/v1/sessions", map[string]any{"name": name, "credential": pin}, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("login %s: %d %s", name, rr.Code, rr.Body.String())
	}
	return decode[sessionResponse](t, rr).Token
}

func TestHealthAndReady(t *testing.T) {
	f := setup(t)
	if rr := do(t, f.h, http.MethodGet, "/healthz", nil, ""); rr.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rr.Code)
	}
	if rr := do(t, f.h, http.MethodGet, "/readyz", nil, ""); rr.Code != http.StatusOK {
		t.Fatalf("readyz = %d", rr.Code)
	}
}

type failingReady struct{}

func (failingReady) Ready(context.Context) error { return errors.New("down") }

func TestReadyz_Unavailable(t *testing.T) {
	f := setupWith(t, failingReady{})
	if rr := do(t, f.h, http.MethodGet, "/readyz", nil, ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz = %d", rr.Code)
	}
}

func TestCustomersAndAccounts(t *testing.T) {
	f := setup(t)

	rr := do(t, f.h, http.MethodPost, "/v1/customers", map[string]any{"name": "Asha", "age": 30, "salary_minor": 5000000}, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("post customer: %d %s", rr.Code, rr.Body.String())
	}
	c := decode[customerResponse](t, rr)
	if c.Salary != "50000.00" || c.Currency != "INR" || len(c.AccountNumbers) != 0 {
		t.Fatalf("unexpected customer %+v", c)
	}

	rr = do(t, f.h, http.MethodPost, "/v1/accounts", map[string]any{
		"customer_id": c.ID, "variant": "Checking", "credential": "1234", "opening_minor": 10000,
	}, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("post account: %d %s", rr.Code, rr.Body.String())
	}
	acc := decode[accountResponse](t, rr)
	if acc.Number != "1001" || acc.Variant != "checking" || acc.Balance != "100.00" {
		t.Fatalf("unexpected account %+v", acc)
	}
	if acc.OverdraftLimit == nil || *acc.OverdraftLimit != "500.00" || acc.InterestRate != nil {
		t.Fatalf("unexpected terms %+v", acc)
	}

	rr = do(t, f.h, http.MethodGet, "/v1/customers/"+c.ID.String(), nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get customer: %d", rr.Code)
	}
	if got := decode[customerResponse](t, rr).AccountNumbers; len(got) != 1 || got[0] != "1001" {
		t.Fatalf("account numbers = %v", got)
	}

	// duplicate PIN
	rr = do(t, f.h, http.MethodPost, "/v1/accounts", map[string]any{
		"customer_id": c.ID, "variant": "savings", "credential": "1234",
	}, "")
	expectCode(t, rr, http.StatusConflict, "duplicate_credential")

	// the failed opening did not consume a number
	rr = do(t, f.h, http.MethodPost, "/v1/accounts", map[string]any{
		"customer_id": c.ID, "variant": "savings", "credential": "4321", "params": map[string]string{"interest_rate": "0.05"},
	}, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("post savings: %d %s", rr.Code, rr.Body.String())
	}
	sav := decode[accountResponse](t, rr)
	if sav.Number != "1002" || sav.InterestRate == nil || *sav.InterestRate != "0.05" {
		t.Fatalf("unexpected savings %+v", sav)
	}
	if n := len(f.rec.OfType(events.AccountOpened)); n != 2 {
		t.Fatalf("expected 2 account events, got %d", n)
	}
}

func TestAccountValidationErrors(t *testing.T) {
	f := setup(t)
	c := onboard(t, f.h, "Asha", "standard", "1111", 0).Customer

	cases := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"variant", map[string]any{"customer_id": c.ID, "variant": "gold", "credential": "2222"}, http.StatusUnprocessableEntity, "invalid_variant"},
		{"credential", map[string]any{"customer_id": c.ID, "variant": "standard", "credential": "12a4"}, http.StatusUnprocessableEntity, "invalid_credential"},
		{"negative opening", map[string]any{"customer_id": c.ID, "variant": "standard", "credential": "2222", "opening_minor": -1}, http.StatusUnprocessableEntity, "invalid_amount"},
		{"params on standard", map[string]any{"customer_id": c.ID, "variant": "standard", "credential": "2222", "params": map[string]string{"interest_rate": "0.1"}}, http.StatusUnprocessableEntity, "invalid_terms"},
		{"unknown customer", map[string]any{"customer_id": "7b0d8c7c-4ad1-4a39-9b3c-2f7f7f6f7e11", "variant": "standard", "credential": "2222"}, http.StatusNotFound, "not_found"},
		{"unknown field", map[string]any{"customer_id": c.ID, "variant": "standard", "credential": "2222", "colour": "red"}, http.StatusBadRequest, "invalid"},
		{"malformed", `{"variant":`, http.StatusBadRequest, "invalid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, f.h, http.MethodPost, "/v1/accounts", tc.body, "")
			expectCode(t, rr, tc.status, tc.code)
		})
	}
}

func TestRequireJSON(t *testing.T) {
	f := setup(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/customers", strings.NewReader(`{"name":"Asha"}`))
	req.Header.Set("Content-Type", "text/plain")
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, req)
	expectCode(t, rr, http.StatusUnsupportedMediaType, "unsupported_media_type")
}

func TestGetCustomer_Errors(t *testing.T) {
	f := setup(t)
	expectCode(t, do(t, f.h, http.MethodGet, "/v1/customers/not-a-uuid", nil, ""), http.StatusBadRequest, "invalid")
	expectCode(t, do(t, f.h, http.MethodGet, "/v1/customers/7b0d8c7c-4ad1-4a39-9b3c-2f7f7f6f7e11", nil, ""), http.StatusNotFound, "not_found")
}

func TestOnboarding_FailuresLeaveNoCustomer(t *testing.T) {
	f := setup(t)
	onboard(t, f.h, "Asha", "checking", "1234", 10000)
	rr := do(t, f.h, http.MethodPost, "/v1/onboarding", map[string]any{
		"customer": map[string]any{"name": "Ravi", "age": 41},
		"account":  map[string]any{"variant": "savings", "credential": "1234"},
	}, "")
	expectCode(t, rr, http.StatusConflict, "duplicate_credential")

	rr = do(t, f.h, http.MethodPost, "/v1/onboarding", map[string]any{
		"customer": map[string]any{"name": "Ravi", "age": 41},
		"account":  map[string]any{"variant": "savings", "credential": "5678", "opening_minor": -100},
	}, "")
	expectCode(t, rr, http.StatusUnprocessableEntity, "invalid_amount")

	rr = do(t, f.h, http.MethodPost, "/v1/onboarding", map[string]any{
		"customer": map[string]any{"name": "Ravi", "age": 41},
		"account":  map[string]any{"variant": "checking", "credential": "5678", "params": map[string]string{"overdraft_limit": "-5"}},
	}, "")
	expectCode(t, rr, http.StatusUnprocessableEntity, "invalid_terms")

	customers, _ := f.store.Customers(context.Background())
	if len(customers) != 1 || len(f.rec.OfType(events.CustomerCreated)) != 1 {
		t.Fatalf("expected 1 customer, got %d", len(customers))
	}
}

func TestSessionFlow_Checking(t *testing.T) {
	f := setup(t)
	onboard(t, f.h, "Asha", "checking", "1234", 10000)

	expectCode(t, do(t, f.h, http.MethodPost, "/v1/sessions", map[string]any{"name": "asha", "credential": "1234"}, ""), http.StatusUnauthorized, "authentication_failed")
	expectCode(t, do(t, f.h, http.MethodPost, "/v1/sessions", map[string]any{"name": "Asha", "credential": "9999"}, ""), http.StatusUnauthorized, "authentication_failed")
	tok := login(t, f.h, "Asha", "1234")

	rr := do(t, f.h, http.MethodGet, "/v1/session", nil, tok)
	if rr.Code != http.StatusOK {
		t.Fatalf("overview: %d %s", rr.Code, rr.Body.String())
	}
	ov := decode[overviewResponse](t, rr)
	if ov.Customer.Name != "Asha" || ov.Account.Number != "1001" || ov.Account.Balance != "100.00" {
		t.Fatalf("unexpected overview %+v", ov)
	}

	rr = do(t, f.h, http.MethodPost, "/v1/session/withdrawals", map[string]any{"amount_minor": 55000}, tok)
	if rr.Code != http.StatusCreated {
		t.Fatalf("withdraw: %d %s", rr.Code, rr.Body.String())
	}
	e := decode[entryResponse](t, rr)
	if e.Balance != "-450.00" || e.Amount != "-550.00" || e.Kind != "withdrawal" || e.Seq != 1 {
		t.Fatalf("unexpected entry %+v", e)
	}

	expectCode(t, do(t, f.h, http.MethodPost, "/v1/session/withdrawals", map[string]any{"amount_minor": 10000}, tok), http.StatusUnprocessableEntity, "overdraft_exceeded")
	expectCode(t, do(t, f.h, http.MethodPost, "/v1/session/deposits", map[string]any{"amount_minor": 0}, tok), http.StatusUnprocessableEntity, "invalid_amount")
	expectCode(t, do(t, f.h, http.MethodPost, "/v1/session/interest", nil, tok), http.StatusUnprocessableEntity, "not_savings")

	rr = do(t, f.h, http.MethodPost, "/v1/session/deposits", map[string]any{"amount_minor": 5000}, tok)
	if rr.Code != http.StatusCreated {
		t.Fatalf("deposit: %d %s", rr.Code, rr.Body.String())
	}
	if got := decode[entryResponse](t, rr).Description; got != "deposit +50.00" {
		t.Fatalf("description = %q", got)
	}

	rr = do(t, f.h, http.MethodGet, "/v1/session/ledger?order=oldest&limit=1", nil, tok)
	if rr.Code != http.StatusOK {
		t.Fatalf("ledger: %d %s", rr.Code, rr.Body.String())
	}
	l := decode[ledgerResponse](t, rr)
	if l.Total != 2 || len(l.Items) != 1 || l.Items[0].Kind != "withdrawal" || l.Order != journal.OldestFirst {
		t.Fatalf("unexpected ledger %+v", l)
	}
	if l.Account.Balance != "-400.00" {
		t.Fatalf("ledger balance = %s", l.Account.Balance)
	}
	expectCode(t, do(t, f.h, http.MethodGet, "/v1/session/ledger?order=sideways", nil, tok), http.StatusBadRequest, "invalid")
	expectCode(t, do(t, f.h, http.MethodGet, "/v1/session/ledger?limit=-1", nil, tok), http.StatusBadRequest, "invalid")
}

func TestSessionFlow_SavingsInterest(t *testing.T) {
	f := setup(t)
	onboard(t, f.h, "Ravi", "savings", "5678", 100000)
	tok := login(t, f.h, "Ravi", "5678")

	rr := do(t, f.h, http.MethodPost, "/v1/session/interest", nil, tok)
	if rr.Code != http.StatusCreated {
		t.Fatalf("interest: %d %s", rr.Code, rr.Body.String())
	}
	e := decode[entryResponse](t, rr)
	if e.Amount != "+10.00" || e.Balance != "1010.00" || e.Kind != "interest" {
		t.Fatalf("unexpected entry %+v", e)
	}
	expectCode(t, do(t, f.h, http.MethodPost, "/v1/session/withdrawals", map[string]any{"amount_minor": 200000}, tok), http.StatusUnprocessableEntity, "insufficient_funds")
}

func TestSession_Rejected(t *testing.T) {
	f := setup(t)
	onboard(t, f.h, "Asha", "checking", "1234", 10000)
	tok := login(t, f.h, "Asha", "1234")

	expectCode(t, do(t, f.h, http.MethodGet, "/v1/session", nil, ""), http.StatusUnauthorized, "session_invalid")
	expectCode(t, do(t, f.h, http.MethodGet, "/v1/session", nil, tok+"x"), http.StatusUnauthorized, "session_invalid")

	other, err := newSessionKeeper(SessionConfig{Secret: []byte("other-secret"), TTL: time.Minute, Issuer: "bank-test"})
	if err != nil {
		t.Fatalf("keeper: %v", err)
	}
	forged, _, err := other.issue(account.Session{AccountNumber: "1001", CustomerID: decode[overviewResponse](t, do(t, f.h, http.MethodGet, "/v1/session", nil, tok)).Customer.ID, StartedAt: time.Now()})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	expectCode(t, do(t, f.h, http.MethodGet, "/v1/session", nil, forged), http.StatusUnauthorized, "session_invalid")
}

func TestSessionKeeper_ExpiryAndIssuer(t *testing.T) {
	k, err := newSessionKeeper(SessionConfig{Secret: []byte("s"), TTL: time.Minute, Issuer: "bank"})
	if err != nil {
		t.Fatalf("keeper: %v", err)
	}
	sess := account.Session{AccountNumber: "1001", CustomerID: [16]byte{1}, StartedAt: time.Now().Add(-2 * time.Minute)}
	tok, _, err := k.issue(sess)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := k.parse(tok); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}

	sess.StartedAt = time.Now()
	tok, _, _ = k.issue(sess)
	got, err := k.parse(tok)
	if err != nil || got.AccountNumber != "1001" || got.CustomerID != sess.CustomerID {
		t.Fatalf("parse = %+v, %v", got, err)
	}
	foreign := &sessionKeeper{secret: []byte("s"), ttl: time.Minute, issuer: "elsewhere"}
	if _, err := foreign.parse(tok); err == nil {
		t.Fatalf("expected issuer mismatch to be rejected")
	}
}

func TestReconciliationEndpoints(t *testing.T) {
	f := setup(t)
	onboard(t, f.h, "Asha", "checking", "1234", 10000)
	tok := login(t, f.h, "Asha", "1234")
	do(t, f.h, http.MethodPost, "/v1/session/withdrawals", map[string]any{"amount_minor": 20000}, tok)

	rr := do(t, f.h, http.MethodGet, "/v1/accounts/1001/reconciliation", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("reconcile: %d %s", rr.Code, rr.Body.String())
	}
	rec := decode[reconciliationResponse](t, rr)
	if !rec.OK || rec.ComputedMinor != -10000 || rec.Entries != 1 {
		t.Fatalf("unexpected reconciliation %+v", rec)
	}
	expectCode(t, do(t, f.h, http.MethodGet, "/v1/accounts/9999/reconciliation", nil, ""), http.StatusNotFound, "not_found")

	rr = do(t, f.h, http.MethodGet, "/v1/reconciliation", nil, "")
	all := decode[reconciliationListResponse](t, rr)
	if rr.Code != http.StatusOK || len(all.Items) != 1 || all.Mismatches != 0 {
		t.Fatalf("unexpected list %d %+v", rr.Code, all)
	}
}

func TestVariantsDictionary(t *testing.T) {
	f := setup(t)
	rr := do(t, f.h, http.MethodGet, "/v1/dictionary/variants", nil, "")
	if got := decode[variantsResponse](t, rr).Items; rr.Code != http.StatusOK || len(got) != 3 {
		t.Fatalf("variants: %d %+v", rr.Code, got)
	}
	rr = do(t, f.h, http.MethodGet, "/v1/dictionary/variants?variant=SAVINGS", nil, "")
	got := decode[variantsResponse](t, rr).Items
	if len(got) != 1 || got[0].Code != "savings" || len(got[0].Params) != 1 {
		t.Fatalf("savings: %+v", got)
	}
	expectCode(t, do(t, f.h, http.MethodGet, "/v1/dictionary/variants?variant=gold", nil, ""), http.StatusUnprocessableEntity, "invalid_variant")
}

func TestMetricsEndpoint(t *testing.T) {
	f := setup(t)
	do(t, f.h, http.MethodGet, "/healthz", nil, "")
	rr := do(t, f.h, http.MethodGet, "/metrics", nil, "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `bank_http_requests_total{method="GET",status="200"}`) {
		t.Fatalf("metrics: %d %s", rr.Code, rr.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	f := setup(t)
	req := httptest.NewRequest(http.MethodOptions, "/v1/customers", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Fatalf("allow origin = %q", got)
	}
}
