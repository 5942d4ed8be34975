// Package registry implements the bank registry rules: customer registration,
// account opening with globally unique credentials, lookup and authentication.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/bank/internal/dictionary"
	"github.com/tinoosan/bank/internal/errs"
	"github.com/tinoosan/bank/internal/events"
	"github.com/tinoosan/bank/internal/ledger"
	"github.com/tinoosan/bank/internal/meta"
)

type Repo interface {
	CustomerByID(ctx context.Context, id uuid.UUID) (ledger.Customer, error)
	Customers(ctx context.Context) ([]ledger.Customer, error)
	AccountByNumber(ctx context.Context, number string) (*ledger.Account, error)
	AccountByCredential(ctx context.Context, credential string) (*ledger.Account, error)
	Accounts(ctx context.Context) ([]*ledger.Account, error)
}

type Writer interface {
	CreateCustomer(ctx context.Context, c ledger.Customer) (ledger.Customer, error)
	// CreateAccount assigns the next number and registers the account. It must
	// reject a taken credential with errs.ErrDuplicateCredential.
	CreateAccount(ctx context.Context, spec ledger.AccountSpec) (*ledger.Account, error)
	// CreateCustomerWithAccount registers c and its first account atomically:
	// on error neither is stored.
	CreateCustomerWithAccount(ctx context.Context, c ledger.Customer, spec ledger.AccountSpec) (ledger.Customer, *ledger.Account, error)
}

type Service interface {
	Name() string
	Currency() string
	CreateCustomer(ctx context.Context, in NewCustomer) (ledger.Customer, error)
	CreateAccount(ctx context.Context, in OpenAccount) (*ledger.Account, error)
	Onboard(ctx context.Context, c NewCustomer, a OpenAccount) (ledger.Customer, *ledger.Account, error)
	FindByCredential(ctx context.Context, credential string) (*ledger.Account, error)
	Authenticate(ctx context.Context, name, credential string) (*ledger.Account, error)
	Account(ctx context.Context, number string) (*ledger.Account, error)
	Customer(ctx context.Context, id uuid.UUID) (ledger.Customer, error)
	Customers(ctx context.Context) ([]ledger.Customer, error)
	Accounts(ctx context.Context) ([]*ledger.Account, error)
}

// NewCustomer is the input to CreateCustomer.
type NewCustomer struct {
	Name   string
	Age    int
	Salary money.Amount
}

// OpenAccount is the input to CreateAccount. Variant is matched
// case-insensitively. Params overrides the variant defaults.
type OpenAccount struct {
	CustomerID uuid.UUID
	Variant    string
	Credential string
	Opening    money.Amount
	Params     meta.Metadata
}

type Options struct {
	Name     string
	Currency string
	// Defaults overrides the catalog's variant parameter defaults.
	Defaults meta.Metadata
	Sink     events.Sink
	Metrics  *events.Metrics
	Logger   *slog.Logger
}

type service struct {
	repo     Repo
	writer   Writer
	name     string
	currency string
	defaults meta.Metadata
	sink     events.Sink
	metrics  *events.Metrics
	logger   *slog.Logger
}

// New validates opts and returns the registry service.
func New(repo Repo, writer Writer, opts Options) (Service, error) {
	if strings.TrimSpace(opts.Name) == "" {
		return nil, errors.New("bank name is required")
	}
	curr := strings.ToUpper(strings.TrimSpace(opts.Currency))
	if _, err := ledger.Zero(curr); err != nil {
		return nil, fmt.Errorf("currency %q: %w", opts.Currency, err)
	}
	defaults := meta.New(opts.Defaults)
	if err := defaults.Validate(meta.KeyOverdraftLimit, meta.KeyInterestRate); err != nil {
		return nil, fmt.Errorf("variant defaults: %w", err)
	}
	s := &service{
		repo:     repo,
		writer:   writer,
		name:     opts.Name,
		currency: curr,
		defaults: defaults,
		sink:     opts.Sink,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

func (s *service) Name() string     { return s.name }
func (s *service) Currency() string { return s.currency }

func (s *service) CreateCustomer(ctx context.Context, in NewCustomer) (ledger.Customer, error) {
	c, err := s.createCustomer(ctx, in)
	if err != nil {
		s.metrics.Failure("create_customer", err)
		return ledger.Customer{}, err
	}
	return c, nil
}

func (s *service) createCustomer(ctx context.Context, in NewCustomer) (ledger.Customer, error) {
	c, err := s.customerFor(in)
	if err != nil {
		return ledger.Customer{}, err
	}
	c, err = s.writer.CreateCustomer(ctx, c)
	if err != nil {
		return ledger.Customer{}, err
	}
	s.publish(ctx, events.NewCustomerCreated(s.name, c))
	s.logger.Info("customer created", "customer_id", c.ID.String())
	return c, nil
}

// customerFor validates in. The name is kept exactly as given because
// Authenticate matches it exactly.
func (s *service) customerFor(in NewCustomer) (ledger.Customer, error) {
	if strings.TrimSpace(in.Name) == "" {
		return ledger.Customer{}, fmt.Errorf("name is required: %w", errs.ErrInvalid)
	}
	if in.Age < 0 {
		return ledger.Customer{}, fmt.Errorf("age must be >= 0: %w", errs.ErrInvalid)
	}
	salary := s.orZero(in.Salary)
	if salary.IsNeg() || !ledger.Representable(salary) {
		return ledger.Customer{}, fmt.Errorf("salary %s out of range: %w", ledger.FormatAmount(salary), errs.ErrInvalid)
	}
	if salary.Curr().Code() != s.currency {
		return ledger.Customer{}, errs.ErrCurrencyMismatch
	}
	return ledger.Customer{Name: in.Name, Age: in.Age, Salary: salary}, nil
}

func (s *service) CreateAccount(ctx context.Context, in OpenAccount) (*ledger.Account, error) {
	acc, err := s.createAccount(ctx, in)
	if err != nil {
		s.metrics.Failure("create_account", err)
		return nil, err
	}
	return acc, nil
}

func (s *service) createAccount(ctx context.Context, in OpenAccount) (*ledger.Account, error) {
	spec, err := s.accountSpec(ctx, in)
	if err != nil {
		return nil, err
	}
	acc, err := s.writer.CreateAccount(ctx, spec)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewAccountOpened(s.name, acc))
	s.logger.Info("account opened",
		"account", acc.Number(),
		"variant", string(acc.Variant()),
		"customer_id", acc.CustomerID().String(),
	)
	return acc, nil
}

// accountSpec runs every opening check the store does not: variant,
// credential format, owner, terms and opening balance, in that order.
func (s *service) accountSpec(ctx context.Context, in OpenAccount) (ledger.AccountSpec, error) {
	return s.openSpec(in, func() error {
		if in.CustomerID == uuid.Nil {
			return errs.ErrNotFound
		}
		_, err := s.repo.CustomerByID(ctx, in.CustomerID)
		return err
	})
}

// openSpec builds and validates the spec for in. owner runs between the
// credential and terms checks.
func (s *service) openSpec(in OpenAccount, owner func() error) (ledger.AccountSpec, error) {
	variant, err := ledger.ParseVariant(in.Variant)
	if err != nil {
		return ledger.AccountSpec{}, err
	}
	if !ledger.ValidCredential(in.Credential) {
		return ledger.AccountSpec{}, errs.ErrInvalidCredential
	}
	if err := owner(); err != nil {
		return ledger.AccountSpec{}, err
	}
	terms, err := s.terms(variant, in.Params)
	if err != nil {
		return ledger.AccountSpec{}, err
	}
	opening := s.orZero(in.Opening)
	if opening.Curr().Code() != s.currency {
		return ledger.AccountSpec{}, errs.ErrCurrencyMismatch
	}
	spec := ledger.AccountSpec{
		CustomerID: in.CustomerID,
		Credential: in.Credential,
		Variant:    variant,
		Opening:    opening,
		Terms:      terms,
	}
	if err := spec.Validate(); err != nil {
		return ledger.AccountSpec{}, err
	}
	return spec, nil
}

// terms resolves a variant's parameters from explicit params over the
// configured and catalog defaults.
func (s *service) terms(v ledger.Variant, params meta.Metadata) (ledger.Terms, error) {
	p := meta.New(params)
	if err := p.Validate(dictionary.ParamKeys(v)...); err != nil {
		return ledger.Terms{}, fmt.Errorf("%v: %w", err, errs.ErrInvalidTerms)
	}
	if len(dictionary.ParamKeys(v)) == 0 && len(p) > 0 {
		return ledger.Terms{}, fmt.Errorf("%s takes no params: %w", v, errs.ErrInvalidTerms)
	}
	p.Merge(dictionary.Defaults(v, s.defaults))

	var t ledger.Terms
	switch v {
	case ledger.VariantChecking:
		raw, _ := p.Get(meta.KeyOverdraftLimit)
		limit, err := money.ParseAmount(s.currency, raw)
		if err != nil {
			return ledger.Terms{}, fmt.Errorf("overdraft_limit %q: %w", raw, errs.ErrInvalidTerms)
		}
		t.OverdraftLimit = limit.RoundToCurr()
	case ledger.VariantSavings:
		rate, _, err := p.Decimal(meta.KeyInterestRate)
		if err != nil {
			return ledger.Terms{}, fmt.Errorf("%v: %w", err, errs.ErrInvalidTerms)
		}
		t.InterestRate = rate
	}
	return t, nil
}

// Onboard registers a customer together with their first account. Every
// customer and account check runs first and the store writes both under one
// lock, so a failed onboarding leaves nothing behind.
func (s *service) Onboard(ctx context.Context, c NewCustomer, a OpenAccount) (ledger.Customer, *ledger.Account, error) {
	cust, acc, err := s.onboard(ctx, c, a)
	if err != nil {
		s.metrics.Failure("onboard", err)
		return ledger.Customer{}, nil, err
	}
	return cust, acc, nil
}

func (s *service) onboard(ctx context.Context, c NewCustomer, a OpenAccount) (ledger.Customer, *ledger.Account, error) {
	cust, err := s.customerFor(c)
	if err != nil {
		return ledger.Customer{}, nil, err
	}
	cust.ID = uuid.New()
	a.CustomerID = cust.ID
	spec, err := s.openSpec(a, func() error { return nil })
	if err != nil {
		return ledger.Customer{}, nil, err
	}
	cust, acc, err := s.writer.CreateCustomerWithAccount(ctx, cust, spec)
	if err != nil {
		return ledger.Customer{}, nil, err
	}
	s.publish(ctx, events.NewCustomerCreated(s.name, cust))
	s.publish(ctx, events.NewAccountOpened(s.name, acc))
	s.logger.Info("customer onboarded",
		"customer_id", cust.ID.String(),
		"account", acc.Number(),
		"variant", string(acc.Variant()),
	)
	return cust, acc, nil
}

func (s *service) FindByCredential(ctx context.Context, credential string) (*ledger.Account, error) {
	return s.repo.AccountByCredential(ctx, credential)
}

// Authenticate resolves credential to its account and checks that the owner's
// name matches exactly. Both failure modes report ErrAuthenticationFailed so
// callers cannot tell which one occurred.
func (s *service) Authenticate(ctx context.Context, name, credential string) (*ledger.Account, error) {
	acc, err := s.repo.AccountByCredential(ctx, credential)
	if errors.Is(err, errs.ErrNotFound) {
		s.metrics.Failure("authenticate", errs.ErrAuthenticationFailed)
		return nil, errs.ErrAuthenticationFailed
	}
	if err != nil {
		return nil, err
	}
	owner, err := s.repo.CustomerByID(ctx, acc.CustomerID())
	if err != nil {
		return nil, err
	}
	if owner.Name != name {
		s.metrics.Failure("authenticate", errs.ErrAuthenticationFailed)
		return nil, errs.ErrAuthenticationFailed
	}
	return acc, nil
}

func (s *service) Account(ctx context.Context, number string) (*ledger.Account, error) {
	return s.repo.AccountByNumber(ctx, number)
}

func (s *service) Customer(ctx context.Context, id uuid.UUID) (ledger.Customer, error) {
	if id == uuid.Nil {
		return ledger.Customer{}, errs.ErrNotFound
	}
	return s.repo.CustomerByID(ctx, id)
}

func (s *service) Customers(ctx context.Context) ([]ledger.Customer, error) {
	return s.repo.Customers(ctx)
}

func (s *service) Accounts(ctx context.Context) ([]*ledger.Account, error) {
	return s.repo.Accounts(ctx)
}

// orZero maps the zero money.Amount, which carries no currency, to zero in the
// registry currency.
func (s *service) orZero(a money.Amount) money.Amount {
	if a.IsZero() && a.Curr().Code() == "XXX" {
		z, _ := ledger.Zero(s.currency)
		return z
	}
	return a
}

func (s *service) publish(ctx context.Context, e events.Event) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Publish(ctx, e); err != nil {
		s.logger.Warn("publish event", "type", string(e.Type), "err", err)
	}
}
