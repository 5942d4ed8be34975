package v1

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/govalues/money"

	"github.com/tinoosan/bank/internal/ledger"
	"github.com/tinoosan/bank/internal/meta"
	"github.com/tinoosan/bank/internal/service/account"
	"github.com/tinoosan/bank/internal/service/journal"
	"github.com/tinoosan/bank/internal/service/registry"
)

type ctxKey string

const (
	ctxKeyPostCustomer ctxKey = "validatedPostCustomer"
	ctxKeyPostAccount  ctxKey = "validatedPostAccount"
	ctxKeyOnboarding   ctxKey = "validatedOnboarding"
	ctxKeyPostSession  ctxKey = "validatedPostSession"
	ctxKeyAmount       ctxKey = "validatedAmount"
	ctxKeyLedgerQuery  ctxKey = "validatedLedgerQuery"
)

// amount converts minor units in the bank currency. Sign and magnitude are
// left to the domain.
func (s *Server) amount(w http.ResponseWriter, field string, minor int64) (money.Amount, bool) {
	a, err := ledger.FromMinor(s.reg.Currency(), minor)
	if err != nil {
		badRequest(w, field+": "+err.Error())
		return money.Amount{}, false
	}
	return a, true
}

func (s *Server) newCustomer(w http.ResponseWriter, req postCustomerRequest) (registry.NewCustomer, bool) {
	salary, ok := s.amount(w, "salary_minor", req.SalaryMinor)
	if !ok {
		return registry.NewCustomer{}, false
	}
	return registry.NewCustomer{Name: req.Name, Age: req.Age, Salary: salary}, true
}

func (s *Server) openAccount(w http.ResponseWriter, f accountFields) (registry.OpenAccount, bool) {
	opening, ok := s.amount(w, "opening_minor", f.OpeningMinor)
	if !ok {
		return registry.OpenAccount{}, false
	}
	var params meta.Metadata
	if len(f.Params) > 0 {
		params = meta.New(f.Params)
	}
	return registry.OpenAccount{
		Variant:    f.Variant,
		Credential: f.Credential,
		Opening:    opening,
		Params:     params,
	}, true
}

// validatePostCustomer decodes POST /v1/customers and stores a
// registry.NewCustomer in the request context.
func (s *Server) validatePostCustomer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req postCustomerRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			in, ok := s.newCustomer(w, req)
			if !ok {
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostCustomer, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) validatePostAccount() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req postAccountRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			in, ok := s.openAccount(w, req.accountFields)
			if !ok {
				return
			}
			in.CustomerID = req.CustomerID
			ctx := context.WithValue(r.Context(), ctxKeyPostAccount, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type onboardingInput struct {
	customer registry.NewCustomer
	account  registry.OpenAccount
}

func (s *Server) validateOnboarding() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req postOnboardingRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			c, ok := s.newCustomer(w, req.Customer)
			if !ok {
				return
			}
			a, ok := s.openAccount(w, req.Account)
			if !ok {
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyOnboarding, onboardingInput{customer: c, account: a})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) validatePostSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req postSessionRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			if req.Name == "" || req.Credential == "" {
				badRequest(w, "name and credential are required")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostSession, req)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateAmount decodes {"amount_minor": n} for deposits and withdrawals.
func (s *Server) validateAmount() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req amountRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			amt, ok := s.amount(w, "amount_minor", req.AmountMinor)
			if !ok {
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyAmount, amt)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateLedgerQuery parses ?order=newest|oldest&limit=n. A zero limit
// returns the whole ledger.
func (s *Server) validateLedgerQuery() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			order, err := journal.ParseOrder(q.Get("order"))
			if err != nil {
				badRequest(w, "order must be newest or oldest")
				return
			}
			limit := 0
			if ls := strings.TrimSpace(q.Get("limit")); ls != "" {
				n, err := strconv.Atoi(ls)
				if err != nil || n < 0 {
					badRequest(w, "limit must be a non-negative integer")
					return
				}
				limit = n
			}
			ctx := context.WithValue(r.Context(), ctxKeyLedgerQuery, ledgerQuery{Order: order, Limit: limit})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionOrFail re-resolves the bearer session against the registry so a
// token for a foreign or missing account is rejected even if its signature
// is valid.
func (s *Server) sessionOrFail(w http.ResponseWriter, r *http.Request) (account.Session, account.Overview, bool) {
	sess := sessionFrom(r.Context())
	ov, err := s.acc.Overview(r.Context(), sess)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return account.Session{}, account.Overview{}, false
	}
	return sess, ov, true
}
