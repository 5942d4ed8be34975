package v1

import (
	"errors"
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/tinoosan/bank/internal/errs"
	"github.com/tinoosan/bank/internal/service/registry"
)

// POST /v1/accounts
func (s *Server) postAccount(w http.ResponseWriter, r *http.Request) {
	in, ok := r.Context().Value(ctxKeyPostAccount).(registry.OpenAccount)
	if !ok {
		badRequest(w, "invalid account")
		return
	}
	acc, err := s.reg.CreateAccount(r.Context(), in)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toAccountResponse(acc.Snapshot()))
}

// GET /v1/accounts/{number}/reconciliation reports 200 when the account
// reconciles and 409 with the same body when it does not.
func (s *Server) getAccountReconciliation(w http.ResponseWriter, r *http.Request) {
	rec, err := s.jrn.Reconcile(r.Context(), chi.URLParam(r, "number"))
	switch {
	case errors.Is(err, errs.ErrLedgerMismatch):
		toJSON(w, http.StatusConflict, toReconciliationResponse(rec))
	case err != nil:
		s.writeDomainErr(w, r, err)
	default:
		toJSON(w, http.StatusOK, toReconciliationResponse(rec))
	}
}

// GET /v1/reconciliation
func (s *Server) getReconciliation(w http.ResponseWriter, r *http.Request) {
	all, err := s.jrn.ReconcileAll(r.Context())
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	out := reconciliationListResponse{Items: make([]reconciliationResponse, 0, len(all))}
	for _, rec := range all {
		if !rec.OK() {
			out.Mismatches++
		}
		out.Items = append(out.Items, toReconciliationResponse(rec))
	}
	toJSON(w, http.StatusOK, out)
}
