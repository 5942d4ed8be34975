package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/tinoosan/bank/internal/errs"
	"github.com/tinoosan/bank/internal/ledger"
)

func spec(t *testing.T, owner uuid.UUID, cred string) ledger.AccountSpec {
	t.Helper()
	zero, err := ledger.Zero("INR")
	if err != nil {
		t.Fatalf("zero: %v", err)
	}
	return ledger.AccountSpec{CustomerID: owner, Credential: cred, Variant: ledger.VariantStandard, Opening: zero}
}

func TestCreateAccount_NumbersCredentialsOwners(t *testing.T) {
	ctx := context.Background()
	s := New(1000)
	c, err := s.CreateCustomer(ctx, ledger.Customer{Name: "Asha"})
	if err != nil {
		t.Fatalf("customer: %v", err)
	}
	if c.ID == uuid.Nil || c.CreatedAt.IsZero() {
		t.Fatalf("customer not stamped: %+v", c)
	}

	a, err := s.CreateAccount(ctx, spec(t, c.ID, "1234"))
	if err != nil || a.Number() != "1001" {
		t.Fatalf("first account: %v %v", a, err)
	}
	if _, err := s.CreateAccount(ctx, spec(t, c.ID, "1234")); !errors.Is(err, errs.ErrDuplicateCredential) {
		t.Fatalf("expected duplicate_credential, got %v", err)
	}
	if _, err := s.CreateAccount(ctx, spec(t, uuid.New(), "5555")); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not_found owner, got %v", err)
	}
	bad := spec(t, c.ID, "7777")
	bad.Variant = "brokerage"
	if _, err := s.CreateAccount(ctx, bad); !errors.Is(err, errs.ErrInvalidVariant) {
		t.Fatalf("expected invalid_variant, got %v", err)
	}
	b, err := s.CreateAccount(ctx, spec(t, c.ID, "4321"))
	if err != nil || b.Number() != "1002" {
		t.Fatalf("second account after failures: %v %v", b, err)
	}

	byCred, err := s.AccountByCredential(ctx, "4321")
	if err != nil || byCred != b {
		t.Fatalf("by credential: %v", err)
	}
	if _, err := s.AccountByNumber(ctx, "1003"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
	got, _ := s.CustomerByID(ctx, c.ID)
	if len(got.AccountNumbers) != 2 {
		t.Fatalf("owner links = %v", got.AccountNumbers)
	}
	// returned customers are copies
	got.AccountNumbers[0] = "x"
	again, _ := s.CustomerByID(ctx, c.ID)
	if again.AccountNumbers[0] != "1001" {
		t.Fatalf("customer copy aliases store")
	}
	accs, _ := s.Accounts(ctx)
	if len(accs) != 2 || accs[0].Number() != "1001" {
		t.Fatalf("accounts order = %d", len(accs))
	}
}

func TestCreateCustomerWithAccount_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := New(1000)
	c, a, err := s.CreateCustomerWithAccount(ctx, ledger.Customer{Name: "Asha"}, spec(t, uuid.Nil, "1234"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Number() != "1001" || a.CustomerID() != c.ID || len(c.AccountNumbers) != 1 || c.AccountNumbers[0] != "1001" {
		t.Fatalf("not linked: %+v / %s", c, a.Number())
	}

	if _, _, err := s.CreateCustomerWithAccount(ctx, ledger.Customer{Name: "Bob"}, spec(t, uuid.Nil, "1234")); !errors.Is(err, errs.ErrDuplicateCredential) {
		t.Fatalf("expected duplicate_credential, got %v", err)
	}
	bad := spec(t, uuid.Nil, "5678")
	bad.Opening, _ = ledger.FromMinor("INR", -100)
	if _, _, err := s.CreateCustomerWithAccount(ctx, ledger.Customer{Name: "Cat"}, bad); !errors.Is(err, errs.ErrInvalidAmount) {
		t.Fatalf("expected invalid_amount, got %v", err)
	}
	all, _ := s.Customers(ctx)
	if len(all) != 1 || s.LastNumber() != 1001 {
		t.Fatalf("failed creations left state behind: %d customers, counter %d", len(all), s.LastNumber())
	}
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	s := New(1000)
	c, _ := s.CreateCustomer(ctx, ledger.Customer{Name: "Asha"})
	if _, err := s.CreateAccount(ctx, spec(t, c.ID, "1234")); err != nil {
		t.Fatalf("account: %v", err)
	}
	s.Reset(5000)
	if cs, _ := s.Customers(ctx); len(cs) != 0 {
		t.Fatalf("customers survived reset")
	}
	if s.LastNumber() != 5000 {
		t.Fatalf("counter = %d", s.LastNumber())
	}
}
