package v1

import (
	"net/http"

	"github.com/govalues/money"

	"github.com/tinoosan/bank/internal/ledger"
)

// POST /v1/sessions exchanges a holder name and PIN for a bearer token.
func (s *Server) postSession(w http.ResponseWriter, r *http.Request) {
	req, ok := r.Context().Value(ctxKeyPostSession).(postSessionRequest)
	if !ok {
		badRequest(w, "invalid session request")
		return
	}
	sess, err := s.acc.Login(r.Context(), req.Name, req.Credential)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	tok, exp, err := s.sessions.issue(sess)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, sessionResponse{
		Token:         tok,
		TokenType:     "Bearer",
		ExpiresAt:     exp,
		AccountNumber: sess.AccountNumber,
		CustomerID:    sess.CustomerID,
	})
}

// GET /v1/session
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	_, ov, ok := s.sessionOrFail(w, r)
	if !ok {
		return
	}
	toJSON(w, http.StatusOK, overviewResponse{
		Customer: toCustomerResponse(ov.Customer),
		Account:  toAccountResponse(ov.Account),
	})
}

// POST /v1/session/deposits
func (s *Server) postDeposit(w http.ResponseWriter, r *http.Request) {
	amt, _ := r.Context().Value(ctxKeyAmount).(money.Amount)
	e, err := s.acc.Deposit(r.Context(), sessionFrom(r.Context()), amt)
	s.writeEntry(w, r, e, err)
}

// POST /v1/session/withdrawals
func (s *Server) postWithdrawal(w http.ResponseWriter, r *http.Request) {
	amt, _ := r.Context().Value(ctxKeyAmount).(money.Amount)
	e, err := s.acc.Withdraw(r.Context(), sessionFrom(r.Context()), amt)
	s.writeEntry(w, r, e, err)
}

// POST /v1/session/interest
func (s *Server) postInterest(w http.ResponseWriter, r *http.Request) {
	e, err := s.acc.ApplyInterest(r.Context(), sessionFrom(r.Context()))
	s.writeEntry(w, r, e, err)
}

func (s *Server) writeEntry(w http.ResponseWriter, r *http.Request, e ledger.Entry, err error) {
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toEntryResponse(e))
}

// GET /v1/session/ledger?order=newest|oldest&limit=
func (s *Server) getLedger(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := s.sessionOrFail(w, r)
	if !ok {
		return
	}
	q, _ := r.Context().Value(ctxKeyLedgerQuery).(ledgerQuery)
	st, err := s.jrn.Statement(r.Context(), sess.AccountNumber, q.Order, q.Limit)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	out := ledgerResponse{
		Account: toAccountResponse(st.Account),
		Order:   q.Order,
		Items:   make([]entryResponse, 0, len(st.Entries)),
		Total:   st.Total,
	}
	for _, e := range st.Entries {
		out.Items = append(out.Items, toEntryResponse(e))
	}
	toJSON(w, http.StatusOK, out)
}
