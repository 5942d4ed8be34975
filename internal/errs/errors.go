package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound = errors.New("not_found")
	ErrInvalid  = errors.New("invalid")

	// Balance policy failures.
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInsufficientFunds = errors.New("insufficient_funds")
	ErrOverdraftExceeded = errors.New("overdraft_exceeded")
	// ErrCurrencyMismatch is returned when an amount is not in the registry currency.
	ErrCurrencyMismatch = errors.New("currency_mismatch")

	// Account opening failures.
	ErrInvalidVariant      = errors.New("invalid_variant")
	ErrInvalidTerms        = errors.New("invalid_terms")
	ErrInvalidCredential   = errors.New("invalid_credential")
	ErrDuplicateCredential = errors.New("duplicate_credential")

	// ErrAuthenticationFailed covers both an unknown credential and an owner name mismatch.
	ErrAuthenticationFailed = errors.New("authentication_failed")
	// ErrSessionInvalid means the session no longer resolves to an account owned by its customer.
	ErrSessionInvalid = errors.New("session_invalid")
	// ErrNotSavings is returned when interest is requested for a non-savings account.
	ErrNotSavings = errors.New("not_savings")

	// ErrLedgerMismatch reports a balance that disagrees with its ledger.
	ErrLedgerMismatch = errors.New("ledger_mismatch")
)

var known = []error{
	ErrNotFound, ErrInvalid,
	ErrInvalidAmount, ErrInsufficientFunds, ErrOverdraftExceeded, ErrCurrencyMismatch,
	ErrInvalidVariant, ErrInvalidTerms, ErrInvalidCredential, ErrDuplicateCredential,
	ErrAuthenticationFailed, ErrSessionInvalid, ErrNotSavings, ErrLedgerMismatch,
}

// Code returns the snake_case code of the first sentinel err wraps, or
// "internal" when it wraps none. nil yields "".
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range known {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	return "internal"
}
