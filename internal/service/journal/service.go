package journal

import (
	"context"
	"fmt"
	"strings"

	"github.com/govalues/money"

	"github.com/tinoosan/bank/internal/errs"
	"github.com/tinoosan/bank/internal/ledger"
)

// Repo defines read operations needed by the service.
type Repo interface {
	AccountByNumber(ctx context.Context, number string) (*ledger.Account, error)
	Accounts(ctx context.Context) ([]*ledger.Account, error)
}

// Order selects how a statement lists entries.
type Order string

const (
	NewestFirst Order = "newest"
	OldestFirst Order = "oldest"
)

// ParseOrder maps "" to NewestFirst and rejects anything but newest|oldest.
func ParseOrder(s string) (Order, error) {
	switch Order(strings.ToLower(strings.TrimSpace(s))) {
	case "", NewestFirst:
		return NewestFirst, nil
	case OldestFirst:
		return OldestFirst, nil
	}
	return "", errs.ErrInvalid
}

// Statement is an account's state together with (a window of) its ledger.
type Statement struct {
	Account ledger.Snapshot
	Entries []ledger.Entry
	// Total is the number of entries in the ledger, regardless of limit.
	Total int
}

// Reconciliation is the outcome of checking one account's balance against
// its ledger.
type Reconciliation struct {
	Number   string
	Opening  money.Amount
	Balance  money.Amount
	Computed money.Amount
	Entries  int
	// Problem is empty when the account reconciles.
	Problem string
}

func (r Reconciliation) OK() bool { return r.Problem == "" }

type Service interface {
	Statement(ctx context.Context, number string, order Order, limit int) (Statement, error)
	Reconcile(ctx context.Context, number string) (Reconciliation, error)
	ReconcileAll(ctx context.Context) ([]Reconciliation, error)
}

type service struct {
	repo Repo
}

func New(repo Repo) Service { return &service{repo: repo} }

func (s *service) Statement(ctx context.Context, number string, order Order, limit int) (Statement, error) {
	if limit < 0 {
		return Statement{}, errs.ErrInvalid
	}
	acc, err := s.repo.AccountByNumber(ctx, number)
	if err != nil {
		return Statement{}, err
	}
	snap, entries := acc.Statement()
	if order == NewestFirst {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}
	total := len(entries)
	if limit > 0 && limit < total {
		entries = entries[:limit]
	}
	return Statement{Account: snap, Entries: entries, Total: total}, nil
}

// Reconcile replays the ledger from the opening balance. It returns
// errs.ErrLedgerMismatch, alongside the report, when the sequence numbers,
// any running balance or the final balance disagree.
func (s *service) Reconcile(ctx context.Context, number string) (Reconciliation, error) {
	acc, err := s.repo.AccountByNumber(ctx, number)
	if err != nil {
		return Reconciliation{}, err
	}
	r := reconcile(acc)
	if !r.OK() {
		return r, fmt.Errorf("account %s: %s: %w", number, r.Problem, errs.ErrLedgerMismatch)
	}
	return r, nil
}

func (s *service) ReconcileAll(ctx context.Context) ([]Reconciliation, error) {
	accs, err := s.repo.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Reconciliation, 0, len(accs))
	for _, acc := range accs {
		out = append(out, reconcile(acc))
	}
	return out, nil
}

func reconcile(acc *ledger.Account) Reconciliation {
	snap, entries := acc.Statement()
	r := Reconciliation{
		Number:   snap.Number,
		Opening:  snap.Opening,
		Balance:  snap.Balance,
		Computed: snap.Opening,
		Entries:  len(entries),
	}
	for i, e := range entries {
		if e.Seq != i+1 {
			r.Problem = fmt.Sprintf("entry %d has seq %d", i+1, e.Seq)
			return r
		}
		next, err := r.Computed.Add(e.Amount)
		if err != nil {
			r.Problem = err.Error()
			return r
		}
		r.Computed = next
		if !ledger.Equal(next, e.Balance) {
			r.Problem = fmt.Sprintf("entry %d balance %s, replayed %s", e.Seq, ledger.FormatAmount(e.Balance), ledger.FormatAmount(next))
			return r
		}
	}
	if !ledger.Equal(r.Computed, r.Balance) {
		r.Problem = fmt.Sprintf("balance %s, replayed %s", ledger.FormatAmount(r.Balance), ledger.FormatAmount(r.Computed))
	}
	return r
}
