package postgres

// Package postgres writes the registry's event stream to Postgres as an
// append-only audit trail. Migrations that create the expected schema live
// under db/migrations. Nothing here is read back into the registry on startup.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tinoosan/bank/internal/errs"
	"github.com/tinoosan/bank/internal/events"
)

// Store holds a pgx connection pool. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// Publish records e and its typed row in one transaction. Replaying an event
// with a known ID is a no-op.
func (s *Store) Publish(ctx context.Context, e events.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
        insert into events (id, type, bank, occurred_at, payload)
        values ($1,$2,$3,$4,$5)
        on conflict (id) do nothing
    `, e.ID, string(e.Type), e.Bank, e.Occurred, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return nil
	}
	switch e.Type {
	case events.CustomerCreated:
		err = insertCustomer(ctx, tx, e)
	case events.AccountOpened:
		err = insertAccount(ctx, tx, e)
	case events.EntryRecorded:
		err = insertEntry(ctx, tx, e)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", e.Type, e.ID, err)
	}
	return tx.Commit(ctx)
}

func insertCustomer(ctx context.Context, tx pgx.Tx, e events.Event) error {
	if e.CustomerAge == nil || e.SalaryMinor == nil {
		return errs.ErrInvalid
	}
	_, err := tx.Exec(ctx, `
        insert into customers (id, bank, name, age, salary_minor, currency, created_at)
        values ($1,$2,$3,$4,$5,$6,$7)
        on conflict (id) do nothing
    `, e.CustomerID, e.Bank, e.CustomerName, *e.CustomerAge, *e.SalaryMinor, e.Currency, e.Occurred)
	return err
}

func insertAccount(ctx context.Context, tx pgx.Tx, e events.Event) error {
	if e.AccountNumber == "" || e.OpeningMinor == nil {
		return errs.ErrInvalid
	}
	params, err := e.Params.MarshalStableJSON()
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
        insert into accounts (number, bank, customer_id, variant, currency, opening_minor, params, opened_at)
        values ($1,$2,$3,$4,$5,$6,$7,$8)
        on conflict (number) do nothing
    `, e.AccountNumber, e.Bank, e.CustomerID, e.Variant, e.Currency, *e.OpeningMinor, params, e.Occurred)
	return err
}

func insertEntry(ctx context.Context, tx pgx.Tx, e events.Event) error {
	if e.Entry == nil {
		return errs.ErrInvalid
	}
	_, err := tx.Exec(ctx, `
        insert into ledger_entries (account_number, seq, kind, amount_minor, balance_minor, recorded_at, event_id)
        values ($1,$2,$3,$4,$5,$6,$7)
    `, e.AccountNumber, e.Entry.Seq, e.Entry.Kind, e.Entry.AmountMinor, e.Entry.BalanceMinor, e.Entry.Time, e.ID)
	return err
}

// AuditEntry is one ledger row as recorded in the audit trail.
type AuditEntry struct {
	Seq          int
	Kind         string
	AmountMinor  int64
	BalanceMinor int64
}

// LedgerAudit returns the audited entries for number, oldest first. It is an
// operator tool for comparing the audit trail with a live statement.
func (s *Store) LedgerAudit(ctx context.Context, number string) ([]AuditEntry, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `select exists(select 1 from accounts where number = $1)`, number).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, errs.ErrNotFound
	}
	rows, err := s.pool.Query(ctx, `
        select seq, kind, amount_minor, balance_minor
        from ledger_entries where account_number = $1
        order by seq
    `, number)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditEntry
	for rows.Next() {
		var a AuditEntry
		if err := rows.Scan(&a.Seq, &a.Kind, &a.AmountMinor, &a.BalanceMinor); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// EventCount returns how many events of type t were recorded.
func (s *Store) EventCount(ctx context.Context, t events.Type) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `select count(*) from events where type = $1`, string(t)).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

// Compile-time check that Store can be fanned out to.
var _ events.Sink = (*Store)(nil)
