package v1

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tinoosan/bank/internal/service/registry"
)

// POST /v1/customers
func (s *Server) postCustomer(w http.ResponseWriter, r *http.Request) {
	in, ok := r.Context().Value(ctxKeyPostCustomer).(registry.NewCustomer)
	if !ok {
		badRequest(w, "invalid customer")
		return
	}
	c, err := s.reg.CreateCustomer(r.Context(), in)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toCustomerResponse(c))
}

// GET /v1/customers/{id}
func (s *Server) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid customer id")
		return
	}
	c, err := s.reg.Customer(r.Context(), id)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toCustomerResponse(c))
}

// POST /v1/onboarding registers a customer and opens their first account.
func (s *Server) postOnboarding(w http.ResponseWriter, r *http.Request) {
	in, ok := r.Context().Value(ctxKeyOnboarding).(onboardingInput)
	if !ok {
		badRequest(w, "invalid onboarding request")
		return
	}
	c, acc, err := s.reg.Onboard(r.Context(), in.customer, in.account)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, onboardingResponse{
		Customer: toCustomerResponse(c),
		Account:  toAccountResponse(acc.Snapshot()),
	})
}
