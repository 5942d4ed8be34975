package ledger

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinoosan/bank/internal/errs"
	"github.com/tinoosan/bank/internal/slug"
)

// Variant enumerates the closed set of account kinds.
type Variant string

const (
	// VariantStandard never lets the balance go below zero.
	VariantStandard Variant = "standard"
	// VariantChecking may go below zero down to its overdraft limit.
	VariantChecking Variant = "checking"
	// VariantSavings never goes below zero and accrues interest on demand.
	VariantSavings Variant = "savings"
)

// Default variant terms, used when an account is opened without explicit params.
const (
	DefaultOverdraftLimit = "500"
	DefaultInterestRate   = "0.01"
)

// Variants returns every known variant in display order.
func Variants() []Variant {
	return []Variant{VariantStandard, VariantChecking, VariantSavings}
}

// Valid reports whether v is one of the known variants.
func (v Variant) Valid() bool {
	switch v {
	case VariantStandard, VariantChecking, VariantSavings:
		return true
	}
	return false
}

// Label is the display name of the variant.
func (v Variant) Label() string {
	switch v {
	case VariantStandard:
		return "Standard"
	case VariantChecking:
		return "Checking"
	case VariantSavings:
		return "Savings"
	}
	return string(v)
}

// ParseVariant accepts a variant name in any casing ("Checking", " savings ").
func ParseVariant(s string) (Variant, error) {
	v := Variant(slug.Slugify(s))
	if !v.Valid() {
		return "", errs.ErrInvalidVariant
	}
	return v, nil
}

// EntryKind identifies the balance-affecting event an Entry records.
type EntryKind string

const (
	KindDeposit    EntryKind = "deposit"
	KindWithdrawal EntryKind = "withdrawal"
	KindInterest   EntryKind = "interest"
)

// Customer is an account holder. It references its accounts by number only;
// the registry owns both the customers and the accounts.
type Customer struct {
	ID             uuid.UUID
	Name           string
	Age            int
	Salary         money.Amount
	AccountNumbers []string
	CreatedAt      time.Time
}

// Clone returns a copy that shares no slices with c.
func (c Customer) Clone() Customer {
	out := c
	out.AccountNumbers = append([]string(nil), c.AccountNumbers...)
	return out
}

// Terms is the variant-specific payload of an account. Only the field that
// belongs to the account's variant is meaningful.
type Terms struct {
	// OverdraftLimit is how far below zero a checking balance may go.
	OverdraftLimit money.Amount
	// InterestRate is the factor applied to a savings balance per accrual.
	InterestRate decimal.Decimal
}

// AccountSpec is everything needed to construct an Account.
type AccountSpec struct {
	Number     string
	CustomerID uuid.UUID
	Credential string
	Variant    Variant
	Opening    money.Amount
	Terms      Terms
}

// Entry is one immutable, append-only record of a balance change.
// Amount is signed: deposits and interest are positive, withdrawals negative.
type Entry struct {
	Seq     int
	Time    time.Time
	Kind    EntryKind
	Amount  money.Amount
	Balance money.Amount
}

// Description renders the kind and signed amount, e.g. "withdrawal -550.00".
func (e Entry) Description() string {
	return string(e.Kind) + " " + FormatSigned(e.Amount)
}

// String renders the entry with its resulting balance, e.g. "interest +10.00, balance 1010.00".
func (e Entry) String() string {
	return e.Description() + ", balance " + FormatAmount(e.Balance)
}

var reCredential = regexp.MustCompile(`^[0-9]{4}$`)

// ValidCredential reports whether s is a 4-digit PIN.
func ValidCredential(s string) bool { return reCredential.MatchString(s) }
