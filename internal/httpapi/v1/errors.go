package v1

import (
	"errors"
	"net/http"

	"github.com/tinoosan/bank/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "invalid") }
func unauthorized(w http.ResponseWriter, code string) {
	writeErr(w, http.StatusUnauthorized, code, code)
}

// statusByErr maps domain sentinels to HTTP statuses. Anything unlisted is a 500.
var statusByErr = []struct {
	err    error
	status int
}{
	{errs.ErrNotFound, http.StatusNotFound},
	{errs.ErrInvalid, http.StatusBadRequest},
	{errs.ErrInvalidAmount, http.StatusUnprocessableEntity},
	{errs.ErrInsufficientFunds, http.StatusUnprocessableEntity},
	{errs.ErrOverdraftExceeded, http.StatusUnprocessableEntity},
	{errs.ErrCurrencyMismatch, http.StatusUnprocessableEntity},
	{errs.ErrInvalidVariant, http.StatusUnprocessableEntity},
	{errs.ErrInvalidTerms, http.StatusUnprocessableEntity},
	{errs.ErrInvalidCredential, http.StatusUnprocessableEntity},
	{errs.ErrNotSavings, http.StatusUnprocessableEntity},
	{errs.ErrDuplicateCredential, http.StatusConflict},
	{errs.ErrAuthenticationFailed, http.StatusUnauthorized},
	{errs.ErrSessionInvalid, http.StatusUnauthorized},
	{errs.ErrLedgerMismatch, http.StatusConflict},
}

// writeDomainErr writes err using the status table. Unknown errors are
// logged by the caller's middleware and reported as internal.
func (s *Server) writeDomainErr(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range statusByErr {
		if errors.Is(err, m.err) {
			writeErr(w, m.status, err.Error(), m.err.Error())
			return
		}
	}
	s.log.Error("request failed", "path", r.URL.Path, "err", err)
	writeErr(w, http.StatusInternalServerError, "internal error", "internal")
}
