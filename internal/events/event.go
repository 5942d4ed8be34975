// Package events describes what happened in the registry after the fact.
// Services publish to a Sink once a mutation has completed; sinks never
// influence the outcome of the operation that produced the event.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/bank/internal/ledger"
	"github.com/tinoosan/bank/internal/meta"
)

type Type string

const (
	CustomerCreated Type = "customer.created"
	AccountOpened   Type = "account.opened"
	EntryRecorded   Type = "ledger.entry.recorded"
)

// EntryPayload is the wire form of a ledger entry.
type EntryPayload struct {
	Seq          int       `json:"seq"`
	Kind         string    `json:"kind"`
	AmountMinor  int64     `json:"amount_minor"`
	BalanceMinor int64     `json:"balance_minor"`
	Time         time.Time `json:"time"`
}

type Event struct {
	ID            uuid.UUID     `json:"id"`
	Type          Type          `json:"type"`
	Occurred      time.Time     `json:"occurred"`
	Bank          string        `json:"bank"`
	Currency      string        `json:"currency,omitempty"`
	CustomerID    uuid.UUID     `json:"customer_id"`
	CustomerName  string        `json:"customer_name,omitempty"`
	CustomerAge   *int          `json:"customer_age,omitempty"`
	SalaryMinor   *int64        `json:"salary_minor,omitempty"`
	AccountNumber string        `json:"account_number,omitempty"`
	Variant       string        `json:"variant,omitempty"`
	OpeningMinor  *int64        `json:"opening_minor,omitempty"`
	Params        meta.Metadata `json:"params,omitempty"`
	Entry         *EntryPayload `json:"entry,omitempty"`
}

// Sink receives events. Implementations must be safe for concurrent use.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event) error

func (f SinkFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }

func newEvent(t Type, bank string) Event {
	return Event{ID: uuid.New(), Type: t, Occurred: time.Now().UTC(), Bank: bank}
}

// NewCustomerCreated describes a newly registered customer.
func NewCustomerCreated(bank string, c ledger.Customer) Event {
	e := newEvent(CustomerCreated, bank)
	e.CustomerID = c.ID
	e.CustomerName = c.Name
	e.Currency = c.Salary.Curr().Code()
	age, salary := c.Age, ledger.Minor(c.Salary)
	e.CustomerAge, e.SalaryMinor = &age, &salary
	return e
}

// NewAccountOpened describes a newly opened account and its opening balance.
func NewAccountOpened(bank string, a *ledger.Account) Event {
	e := newEvent(AccountOpened, bank)
	e.CustomerID = a.CustomerID()
	e.AccountNumber = a.Number()
	e.Variant = string(a.Variant())
	e.Currency = a.Currency()
	opening := ledger.Minor(a.OpeningBalance())
	e.OpeningMinor = &opening
	terms := a.Terms()
	switch a.Variant() {
	case ledger.VariantChecking:
		e.Params = meta.Metadata{meta.KeyOverdraftLimit: ledger.FormatAmount(terms.OverdraftLimit)}
	case ledger.VariantSavings:
		e.Params = meta.Metadata{meta.KeyInterestRate: terms.InterestRate.String()}
	}
	return e
}

// NewEntryRecorded describes one appended ledger entry.
func NewEntryRecorded(bank string, a *ledger.Account, entry ledger.Entry) Event {
	e := newEvent(EntryRecorded, bank)
	e.CustomerID = a.CustomerID()
	e.AccountNumber = a.Number()
	e.Variant = string(a.Variant())
	e.Currency = a.Currency()
	e.Entry = &EntryPayload{
		Seq:          entry.Seq,
		Kind:         string(entry.Kind),
		AmountMinor:  ledger.Minor(entry.Amount),
		BalanceMinor: ledger.Minor(entry.Balance),
		Time:         entry.Time,
	}
	return e
}
