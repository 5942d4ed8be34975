package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinoosan/bank/internal/errs"
)

// now is swapped in tests that need deterministic timestamps.
var now = time.Now

// Account is a customer account with its ledger. The shared record (balance,
// ledger, credential, owner) is common to every variant; Terms carries the
// variant payload. All mutations hold mu for the whole check, mutate and
// append sequence.
type Account struct {
	mu sync.Mutex

	number     string
	customerID uuid.UUID
	credential string
	variant    Variant
	terms      Terms
	createdAt  time.Time

	opening money.Amount
	balance money.Amount
	entries []Entry
}

// Snapshot is a point-in-time copy of an account's state.
type Snapshot struct {
	Number         string
	CustomerID     uuid.UUID
	Variant        Variant
	Currency       string
	Opening        money.Amount
	Balance        money.Amount
	OverdraftLimit *money.Amount
	InterestRate   *decimal.Decimal
	Entries        int
	CreatedAt      time.Time
}

// Validate checks everything about spec except its number: variant,
// owner, credential format, terms and that the opening balance satisfies the
// variant's balance rule.
func (spec AccountSpec) Validate() error {
	if !spec.Variant.Valid() {
		return errs.ErrInvalidVariant
	}
	if spec.CustomerID == uuid.Nil {
		return errs.ErrInvalid
	}
	if !ValidCredential(spec.Credential) {
		return errs.ErrInvalidCredential
	}
	switch spec.Variant {
	case VariantChecking:
		limit := spec.Terms.OverdraftLimit
		if limit.Curr() != spec.Opening.Curr() || limit.IsNeg() || !Representable(limit) {
			return fmt.Errorf("overdraft limit %s: %w", limit, errs.ErrInvalidTerms)
		}
	case VariantSavings:
		if spec.Terms.InterestRate.IsNeg() {
			return fmt.Errorf("interest rate %s: %w", spec.Terms.InterestRate, errs.ErrInvalidTerms)
		}
	}
	if !Representable(spec.Opening) {
		return fmt.Errorf("opening balance %s out of range: %w", FormatAmount(spec.Opening), errs.ErrInvalidAmount)
	}
	if err := allow(spec.Variant, spec.Terms, spec.Opening); err != nil {
		return fmt.Errorf("opening balance %s: %w", FormatAmount(spec.Opening), errs.ErrInvalidAmount)
	}
	return nil
}

// NewAccount validates spec and builds the account. The opening balance is
// not recorded as an entry.
func NewAccount(spec AccountSpec) (*Account, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.Number == "" {
		return nil, errs.ErrInvalid
	}
	terms := Terms{}
	switch spec.Variant {
	case VariantChecking:
		terms.OverdraftLimit = spec.Terms.OverdraftLimit
	case VariantSavings:
		terms.InterestRate = spec.Terms.InterestRate
	}
	return &Account{
		number:     spec.Number,
		customerID: spec.CustomerID,
		credential: spec.Credential,
		variant:    spec.Variant,
		terms:      terms,
		createdAt:  now().UTC(),
		opening:    spec.Opening,
		balance:    spec.Opening,
	}, nil
}

func (a *Account) Number() string        { return a.number }
func (a *Account) CustomerID() uuid.UUID { return a.customerID }
func (a *Account) Credential() string    { return a.credential }
func (a *Account) Variant() Variant      { return a.variant }
func (a *Account) Terms() Terms          { return a.terms }
func (a *Account) Currency() string      { return a.opening.Curr().Code() }
func (a *Account) OpeningBalance() money.Amount {
	return a.opening
}

// Balance returns the current balance.
func (a *Account) Balance() money.Amount {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// History returns a copy of the ledger, oldest first.
func (a *Account) History() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Entry(nil), a.entries...)
}

// Snapshot returns a consistent copy of the account state.
func (a *Account) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// Statement returns the snapshot and the ledger taken under the same lock, so
// the balance always corresponds to the returned entries.
func (a *Account) Statement() (Snapshot, []Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked(), append([]Entry(nil), a.entries...)
}

func (a *Account) snapshotLocked() Snapshot {
	s := Snapshot{
		Number:     a.number,
		CustomerID: a.customerID,
		Variant:    a.variant,
		Currency:   a.opening.Curr().Code(),
		Opening:    a.opening,
		Balance:    a.balance,
		Entries:    len(a.entries),
		CreatedAt:  a.createdAt,
	}
	switch a.variant {
	case VariantChecking:
		limit := a.terms.OverdraftLimit
		s.OverdraftLimit = &limit
	case VariantSavings:
		rate := a.terms.InterestRate
		s.InterestRate = &rate
	}
	return s
}

// Deposit adds amount to the balance and records a deposit entry.
func (a *Account) Deposit(amount money.Amount) (Entry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkAmountLocked(amount); err != nil {
		return Entry{}, err
	}
	next, err := a.balance.Add(amount)
	if err != nil || !Representable(next) {
		return Entry{}, fmt.Errorf("deposit %s: balance out of range: %w", FormatAmount(amount), errs.ErrInvalidAmount)
	}
	return a.recordLocked(KindDeposit, amount, next), nil
}

// Withdraw removes amount from the balance if the variant's policy allows it
// and records a withdrawal entry.
func (a *Account) Withdraw(amount money.Amount) (Entry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkAmountLocked(amount); err != nil {
		return Entry{}, err
	}
	next, err := a.balance.Sub(amount)
	if err != nil || !Representable(next) {
		return Entry{}, fmt.Errorf("withdraw %s: balance out of range: %w", FormatAmount(amount), errs.ErrInvalidAmount)
	}
	if err := a.allowLocked(next); err != nil {
		return Entry{}, err
	}
	return a.recordLocked(KindWithdrawal, amount.Neg(), next), nil
}

// Savings exposes the interest capability. ok is false for other variants.
func (a *Account) Savings() (s *Savings, ok bool) {
	if a.variant != VariantSavings {
		return nil, false
	}
	return &Savings{Account: a}, true
}

// Savings is the view of a savings account that can accrue interest.
type Savings struct {
	*Account
}

// Rate is the interest rate applied by ApplyInterest.
func (s *Savings) Rate() decimal.Decimal { return s.terms.InterestRate }

// ApplyInterest adds balance × rate, rounded to the currency scale, and records
// an interest entry.
func (s *Savings) ApplyInterest() (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	interest, err := s.balance.Mul(s.terms.InterestRate)
	if err != nil {
		return Entry{}, fmt.Errorf("interest: %w", err)
	}
	interest = interest.RoundToCurr()
	next, err := s.balance.Add(interest)
	if err != nil || !Representable(next) {
		return Entry{}, fmt.Errorf("interest %s: balance out of range: %w", FormatAmount(interest), errs.ErrInvalidAmount)
	}
	return s.recordLocked(KindInterest, interest, next), nil
}

func (a *Account) checkAmountLocked(amount money.Amount) error {
	if !amount.IsPos() || !Representable(amount) {
		return errs.ErrInvalidAmount
	}
	if amount.Curr() != a.balance.Curr() {
		return errs.ErrCurrencyMismatch
	}
	return nil
}

func (a *Account) allowLocked(next money.Amount) error {
	return allow(a.variant, a.terms, next)
}

// allow is the withdrawal policy, selected by variant: next is the balance
// the account would have after the operation.
func allow(v Variant, terms Terms, next money.Amount) error {
	switch v {
	case VariantChecking:
		floor, err := next.Add(terms.OverdraftLimit)
		if err != nil {
			return fmt.Errorf("overdraft: %w", err)
		}
		if floor.IsNeg() {
			return errs.ErrOverdraftExceeded
		}
	default:
		if next.IsNeg() {
			return errs.ErrInsufficientFunds
		}
	}
	return nil
}

func (a *Account) recordLocked(kind EntryKind, signed, next money.Amount) Entry {
	a.balance = next
	e := Entry{
		Seq:     len(a.entries) + 1,
		Time:    now().UTC(),
		Kind:    kind,
		Amount:  signed,
		Balance: next,
	}
	a.entries = append(a.entries, e)
	return e
}
