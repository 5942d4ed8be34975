package v1

import (
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/bank/internal/dictionary"
	"github.com/tinoosan/bank/internal/ledger"
	"github.com/tinoosan/bank/internal/service/journal"
)

// Requests carry amounts in minor units of the bank currency.

type postCustomerRequest struct {
	Name        string `json:"name"`
	Age         int    `json:"age"`
	SalaryMinor int64  `json:"salary_minor"`
}

type accountFields struct {
	Variant      string            `json:"variant"`
	Credential   string            `json:"credential"`
	OpeningMinor int64             `json:"opening_minor"`
	Params       map[string]string `json:"params,omitempty"`
}

type postAccountRequest struct {
	CustomerID uuid.UUID `json:"customer_id"`
	accountFields
}

type postOnboardingRequest struct {
	Customer postCustomerRequest `json:"customer"`
	Account  accountFields       `json:"account"`
}

type postSessionRequest struct {
	Name       string `json:"name"`
	Credential string `json:"credential"`
}

type amountRequest struct {
	AmountMinor int64 `json:"amount_minor"`
}

type ledgerQuery struct {
	Order journal.Order
	Limit int
}

type customerResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Age            int       `json:"age"`
	Currency       string    `json:"currency"`
	SalaryMinor    int64     `json:"salary_minor"`
	Salary         string    `json:"salary"`
	AccountNumbers []string  `json:"account_numbers"`
	CreatedAt      time.Time `json:"created_at"`
}

type accountResponse struct {
	Number              string    `json:"number"`
	CustomerID          uuid.UUID `json:"customer_id"`
	Variant             string    `json:"variant"`
	Currency            string    `json:"currency"`
	OpeningMinor        int64     `json:"opening_minor"`
	Opening             string    `json:"opening"`
	BalanceMinor        int64     `json:"balance_minor"`
	Balance             string    `json:"balance"`
	OverdraftLimitMinor *int64    `json:"overdraft_limit_minor,omitempty"`
	OverdraftLimit      *string   `json:"overdraft_limit,omitempty"`
	InterestRate        *string   `json:"interest_rate,omitempty"`
	Entries             int       `json:"entries"`
	CreatedAt           time.Time `json:"created_at"`
}

type entryResponse struct {
	Seq          int       `json:"seq"`
	Time         time.Time `json:"time"`
	Kind         string    `json:"kind"`
	AmountMinor  int64     `json:"amount_minor"`
	Amount       string    `json:"amount"`
	BalanceMinor int64     `json:"balance_minor"`
	Balance      string    `json:"balance"`
	Description  string    `json:"description"`
}

type onboardingResponse struct {
	Customer customerResponse `json:"customer"`
	Account  accountResponse  `json:"account"`
}

type sessionResponse struct {
	Token         string    `json:"token"`
	TokenType     string    `json:"token_type"`
	ExpiresAt     time.Time `json:"expires_at"`
	AccountNumber string    `json:"account_number"`
	CustomerID    uuid.UUID `json:"customer_id"`
}

type overviewResponse struct {
	Customer customerResponse `json:"customer"`
	Account  accountResponse  `json:"account"`
}

type ledgerResponse struct {
	Account accountResponse `json:"account"`
	Order   journal.Order   `json:"order"`
	Items   []entryResponse `json:"items"`
	Total   int             `json:"total"`
}

type reconciliationResponse struct {
	Number        string `json:"number"`
	OpeningMinor  int64  `json:"opening_minor"`
	BalanceMinor  int64  `json:"balance_minor"`
	ComputedMinor int64  `json:"computed_minor"`
	Entries       int    `json:"entries"`
	OK            bool   `json:"ok"`
	Problem       string `json:"problem,omitempty"`
}

type reconciliationListResponse struct {
	Items      []reconciliationResponse `json:"items"`
	Mismatches int                      `json:"mismatches"`
}

type variantsResponse struct {
	Items []dictionary.VariantDef `json:"items"`
}

func toCustomerResponse(c ledger.Customer) customerResponse {
	numbers := c.AccountNumbers
	if numbers == nil {
		numbers = []string{}
	}
	return customerResponse{
		ID:             c.ID,
		Name:           c.Name,
		Age:            c.Age,
		Currency:       c.Salary.Curr().Code(),
		SalaryMinor:    ledger.Minor(c.Salary),
		Salary:         ledger.FormatAmount(c.Salary),
		AccountNumbers: numbers,
		CreatedAt:      c.CreatedAt,
	}
}

func toAccountResponse(s ledger.Snapshot) accountResponse {
	out := accountResponse{
		Number:       s.Number,
		CustomerID:   s.CustomerID,
		Variant:      string(s.Variant),
		Currency:     s.Currency,
		OpeningMinor: ledger.Minor(s.Opening),
		Opening:      ledger.FormatAmount(s.Opening),
		BalanceMinor: ledger.Minor(s.Balance),
		Balance:      ledger.FormatAmount(s.Balance),
		Entries:      s.Entries,
		CreatedAt:    s.CreatedAt,
	}
	if s.OverdraftLimit != nil {
		minor, str := ledger.Minor(*s.OverdraftLimit), ledger.FormatAmount(*s.OverdraftLimit)
		out.OverdraftLimitMinor, out.OverdraftLimit = &minor, &str
	}
	if s.InterestRate != nil {
		rate := s.InterestRate.String()
		out.InterestRate = &rate
	}
	return out
}

func toEntryResponse(e ledger.Entry) entryResponse {
	return entryResponse{
		Seq:          e.Seq,
		Time:         e.Time,
		Kind:         string(e.Kind),
		AmountMinor:  ledger.Minor(e.Amount),
		Amount:       ledger.FormatSigned(e.Amount),
		BalanceMinor: ledger.Minor(e.Balance),
		Balance:      ledger.FormatAmount(e.Balance),
		Description:  e.Description(),
	}
}

func toReconciliationResponse(r journal.Reconciliation) reconciliationResponse {
	return reconciliationResponse{
		Number:        r.Number,
		OpeningMinor:  ledger.Minor(r.Opening),
		BalanceMinor:  ledger.Minor(r.Balance),
		ComputedMinor: ledger.Minor(r.Computed),
		Entries:       r.Entries,
		OK:            r.OK(),
		Problem:       r.Problem,
	}
}
