package memory

// Package memory is the bank registry's storage: customers, accounts and the
// credential index live in process memory for the lifetime of the server.
import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/bank/internal/errs"
	"github.com/tinoosan/bank/internal/ledger"
)

// Store holds every customer and account. The RWMutex guards the maps, the
// number counter and the credential index; each Account guards its own
// balance and ledger.
type Store struct {
	mu        sync.RWMutex
	customers map[uuid.UUID]*ledger.Customer
	order     []uuid.UUID
	accounts  map[string]*ledger.Account
	// Accounts in creation order
	numbers []string
	// credential -> account number
	byCredential map[string]string
	counter      int64
}

// New constructs an empty store whose first account number is start+1.
func New(start int64) *Store {
	return &Store{
		customers:    make(map[uuid.UUID]*ledger.Customer),
		accounts:     make(map[string]*ledger.Account),
		byCredential: make(map[string]string),
		counter:      start,
	}
}

// Reset drops all state and rewinds the counter to start.
func (s *Store) Reset(start int64) {
	s.mu.Lock()
	s.customers = map[uuid.UUID]*ledger.Customer{}
	s.order = nil
	s.accounts = map[string]*ledger.Account{}
	s.numbers = nil
	s.byCredential = map[string]string{}
	s.counter = start
	s.mu.Unlock()
}

// Ready always succeeds; the store has no external dependency.
func (s *Store) Ready(context.Context) error { return nil }

// CreateCustomer registers c, assigning an ID and creation time when unset.
func (s *Store) CreateCustomer(_ context.Context, c ledger.Customer) (ledger.Customer, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.AccountNumbers = nil
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[c.ID]; ok {
		return ledger.Customer{}, fmt.Errorf("customer %s exists: %w", c.ID, errs.ErrInvalid)
	}
	stored := c.Clone()
	s.customers[c.ID] = &stored
	s.order = append(s.order, c.ID)
	return stored.Clone(), nil
}

// CreateAccount assigns the next account number to spec and registers the
// account with its owner. The existence, uniqueness and numbering steps run
// under one write lock, so two concurrent openings can never share a
// credential and a rejected opening never consumes a number.
func (s *Store) CreateAccount(_ context.Context, spec ledger.AccountSpec) (*ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.customers[spec.CustomerID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return s.openLocked(owner, spec)
}

// CreateCustomerWithAccount registers c and opens its first account under one
// write lock. The customer becomes visible only if the account opens.
func (s *Store) CreateCustomerWithAccount(_ context.Context, c ledger.Customer, spec ledger.AccountSpec) (ledger.Customer, *ledger.Account, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	stored := c.Clone()
	stored.AccountNumbers = nil
	spec.CustomerID = c.ID

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[c.ID]; ok {
		return ledger.Customer{}, nil, fmt.Errorf("customer %s exists: %w", c.ID, errs.ErrInvalid)
	}
	acc, err := s.openLocked(&stored, spec)
	if err != nil {
		return ledger.Customer{}, nil, err
	}
	s.customers[c.ID] = &stored
	s.order = append(s.order, c.ID)
	return stored.Clone(), acc, nil
}

func (s *Store) openLocked(owner *ledger.Customer, spec ledger.AccountSpec) (*ledger.Account, error) {
	if _, taken := s.byCredential[spec.Credential]; taken {
		return nil, errs.ErrDuplicateCredential
	}
	spec.Number = strconv.FormatInt(s.counter+1, 10)
	acc, err := ledger.NewAccount(spec)
	if err != nil {
		return nil, err
	}
	s.counter++
	s.accounts[spec.Number] = acc
	s.numbers = append(s.numbers, spec.Number)
	s.byCredential[spec.Credential] = spec.Number
	owner.AccountNumbers = append(owner.AccountNumbers, spec.Number)
	return acc, nil
}

// AccountByCredential returns the single account registered under credential.
func (s *Store) AccountByCredential(_ context.Context, credential string) (*ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	number, ok := s.byCredential[credential]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return s.accounts[number], nil
}

func (s *Store) AccountByNumber(_ context.Context, number string) (*ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[number]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return acc, nil
}

// Accounts returns every account in creation order.
func (s *Store) Accounts(_ context.Context) ([]*ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ledger.Account, 0, len(s.numbers))
	for _, n := range s.numbers {
		out = append(out, s.accounts[n])
	}
	return out, nil
}

// CustomerByID returns a copy of the customer.
func (s *Store) CustomerByID(_ context.Context, id uuid.UUID) (ledger.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	if !ok {
		return ledger.Customer{}, errs.ErrNotFound
	}
	return c.Clone(), nil
}

// Customers returns copies of every customer in registration order.
func (s *Store) Customers(_ context.Context) ([]ledger.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Customer, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.customers[id].Clone())
	}
	return out, nil
}

// LastNumber is the most recently issued account number counter value.
func (s *Store) LastNumber() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counter
}
