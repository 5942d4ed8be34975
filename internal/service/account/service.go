// Package account implements the operations a signed-in holder performs on
// their account: deposits, withdrawals, interest and the overview. The
// signed-in account is an explicit Session value passed to every call.
package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/bank/internal/errs"
	"github.com/tinoosan/bank/internal/events"
	"github.com/tinoosan/bank/internal/ledger"
)

type Repo interface {
	AccountByNumber(ctx context.Context, number string) (*ledger.Account, error)
	CustomerByID(ctx context.Context, id uuid.UUID) (ledger.Customer, error)
	Accounts(ctx context.Context) ([]*ledger.Account, error)
}

// Authenticator resolves a holder's name and credential to their account.
type Authenticator interface {
	Authenticate(ctx context.Context, name, credential string) (*ledger.Account, error)
}

// Session identifies the signed-in account.
type Session struct {
	AccountNumber string
	CustomerID    uuid.UUID
	StartedAt     time.Time
}

// Overview is the dashboard view of a session: owner and account state.
type Overview struct {
	Customer ledger.Customer
	Account  ledger.Snapshot
}

type Service interface {
	Login(ctx context.Context, name, credential string) (Session, error)
	Overview(ctx context.Context, s Session) (Overview, error)
	Deposit(ctx context.Context, s Session, amount money.Amount) (ledger.Entry, error)
	Withdraw(ctx context.Context, s Session, amount money.Amount) (ledger.Entry, error)
	ApplyInterest(ctx context.Context, s Session) (ledger.Entry, error)
	// ApplyInterestAll accrues interest on every savings account and reports
	// how many were credited.
	ApplyInterestAll(ctx context.Context) (int, error)
}

type Options struct {
	Bank    string
	Sink    events.Sink
	Metrics *events.Metrics
	Logger  *slog.Logger
}

type service struct {
	repo    Repo
	auth    Authenticator
	bank    string
	sink    events.Sink
	metrics *events.Metrics
	logger  *slog.Logger
}

func New(repo Repo, auth Authenticator, opts Options) Service {
	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}
	return &service{repo: repo, auth: auth, bank: opts.Bank, sink: opts.Sink, metrics: opts.Metrics, logger: l}
}

func (s *service) Login(ctx context.Context, name, credential string) (Session, error) {
	acc, err := s.auth.Authenticate(ctx, name, credential)
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("session started", "account", acc.Number())
	return Session{AccountNumber: acc.Number(), CustomerID: acc.CustomerID(), StartedAt: time.Now().UTC()}, nil
}

// resolve returns the session's account, provided it still belongs to the
// session's customer.
func (s *service) resolve(ctx context.Context, sess Session) (*ledger.Account, error) {
	if sess.AccountNumber == "" || sess.CustomerID == uuid.Nil {
		return nil, errs.ErrSessionInvalid
	}
	acc, err := s.repo.AccountByNumber(ctx, sess.AccountNumber)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrSessionInvalid
	}
	if err != nil {
		return nil, err
	}
	if acc.CustomerID() != sess.CustomerID {
		return nil, errs.ErrSessionInvalid
	}
	return acc, nil
}

func (s *service) Overview(ctx context.Context, sess Session) (Overview, error) {
	acc, err := s.resolve(ctx, sess)
	if err != nil {
		return Overview{}, err
	}
	c, err := s.repo.CustomerByID(ctx, acc.CustomerID())
	if err != nil {
		return Overview{}, err
	}
	return Overview{Customer: c, Account: acc.Snapshot()}, nil
}

func (s *service) Deposit(ctx context.Context, sess Session, amount money.Amount) (ledger.Entry, error) {
	return s.apply(ctx, "deposit", sess, func(acc *ledger.Account) (ledger.Entry, error) {
		return acc.Deposit(amount)
	})
}

func (s *service) Withdraw(ctx context.Context, sess Session, amount money.Amount) (ledger.Entry, error) {
	return s.apply(ctx, "withdraw", sess, func(acc *ledger.Account) (ledger.Entry, error) {
		return acc.Withdraw(amount)
	})
}

func (s *service) ApplyInterest(ctx context.Context, sess Session) (ledger.Entry, error) {
	return s.apply(ctx, "interest", sess, func(acc *ledger.Account) (ledger.Entry, error) {
		sav, ok := acc.Savings()
		if !ok {
			return ledger.Entry{}, errs.ErrNotSavings
		}
		return sav.ApplyInterest()
	})
}

func (s *service) apply(ctx context.Context, op string, sess Session, fn func(*ledger.Account) (ledger.Entry, error)) (ledger.Entry, error) {
	acc, err := s.resolve(ctx, sess)
	if err != nil {
		s.metrics.Failure(op, err)
		return ledger.Entry{}, err
	}
	e, err := fn(acc)
	if err != nil {
		s.metrics.Failure(op, err)
		s.logger.Debug("operation rejected", "op", op, "account", acc.Number(), "code", errs.Code(err))
		return ledger.Entry{}, err
	}
	s.recorded(ctx, acc, e)
	return e, nil
}

func (s *service) ApplyInterestAll(ctx context.Context) (int, error) {
	accs, err := s.repo.Accounts(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, acc := range accs {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		sav, ok := acc.Savings()
		if !ok {
			continue
		}
		e, err := sav.ApplyInterest()
		if err != nil {
			s.metrics.Failure("interest", err)
			s.logger.Warn("interest failed", "account", acc.Number(), "err", err)
			continue
		}
		s.recorded(ctx, acc, e)
		n++
	}
	return n, nil
}

func (s *service) recorded(ctx context.Context, acc *ledger.Account, e ledger.Entry) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Publish(ctx, events.NewEntryRecorded(s.bank, acc, e)); err != nil {
		s.logger.Warn("publish entry", "account", acc.Number(), "seq", e.Seq, "err", err)
	}
}
