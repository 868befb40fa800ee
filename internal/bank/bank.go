// Package bank runs the blood bank's stock-affecting operations.
//
// Every operation executes inside one SQL transaction in a fixed order:
// stock ledger update, audit transaction, workflow state, lifetime counters.
// A failure at any step rolls the whole event back. The only write outside
// the transaction is the donation history entry, which is best effort.
package bank

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/erazemk/bloodbank/internal/metrics"
	"github.com/erazemk/bloodbank/internal/model"
	"github.com/erazemk/bloodbank/internal/store"
	"github.com/erazemk/bloodbank/internal/workflow"
)

// Bank owns the ledger and both workflows.
type Bank struct {
	db      *sql.DB
	now     func() time.Time
	metrics *metrics.Metrics
	log     *slog.Logger
}

// Option configures a Bank.
type Option func(*Bank)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Bank) { b.now = now }
}

// WithMetrics attaches instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bank) { b.metrics = m }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bank) { b.log = l }
}

// New creates a Bank backed by db.
func New(db *sql.DB, opts ...Option) *Bank {
	b := &Bank{
		db:  db,
		now: time.Now,
		log: slog.Default(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Principal is the authenticated caller.
type Principal struct {
	UserID int64
	Email  string
	Admin  bool
}

// Actor returns the audit identity of p.
func (p Principal) Actor() model.Actor {
	var id *int64
	if p.UserID > 0 {
		uid := p.UserID
		id = &uid
	}
	return model.Actor{UserID: id, Email: p.Email}
}

func (b *Bank) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// applyStock executes the AdjustStock effects, recording one audit
// transaction per delta from base with the balances the ledger returned.
func (b *Bank) applyStock(ctx context.Context, q store.Querier, effects []workflow.Effect, p Principal, base model.Transaction, now time.Time) ([]model.Transaction, error) {
	var recorded []model.Transaction
	for _, e := range effects {
		adj, ok := e.(workflow.AdjustStock)
		if !ok {
			continue
		}

		bal, err := store.ApplyDelta(ctx, q, adj.BloodGroup, adj.Delta, p.Actor(), now)
		if err != nil {
			return nil, err
		}

		t := base
		t.Type = adj.TxType
		t.BloodGroup = adj.BloodGroup
		t.Units = abs(adj.Delta)
		t.ActorID = p.Actor().UserID
		t.ActorEmail = p.Email
		t.PreviousStock = bal.PreviousUnits
		t.NewStock = bal.NewUnits
		t.CreatedAt = now
		if _, err := store.RecordTransaction(ctx, q, &t); err != nil {
			return nil, err
		}
		recorded = append(recorded, t)
	}
	return recorded, nil
}

// applyCounters executes the counter effects.
func applyCounters(ctx context.Context, q store.Querier, effects []workflow.Effect) error {
	for _, e := range effects {
		var err error
		switch c := e.(type) {
		case workflow.IncrementTaken:
			err = store.IncrementBloodTaken(ctx, q, c.UserID, c.Units)
		case workflow.IncrementGiven:
			err = store.IncrementBloodGiven(ctx, q, c.UserID, c.Units, c.DonatedAt)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// committed publishes metrics for transactions that are now durable.
func (b *Bank) committed(txs ...model.Transaction) {
	for _, t := range txs {
		b.metrics.Transaction(t.Type)
		b.metrics.SetStock(t.BloodGroup, t.NewStock)
		if t.ToBloodGroup != "" && t.ToNewStock != nil {
			b.metrics.SetStock(t.ToBloodGroup, *t.ToNewStock)
		}
	}
}

// fail counts a refused operation and returns err unchanged.
func (b *Bank) fail(operation string, err error) error {
	if err != nil {
		b.metrics.Failure(operation, model.KindOf(err).String())
	}
	return err
}

// RefreshStockMetrics loads every blood group's units into the stock gauge.
func (b *Bank) RefreshStockMetrics(ctx context.Context) error {
	records, err := store.ListStock(ctx, b.db)
	if err != nil {
		return err
	}
	for _, r := range records {
		b.metrics.SetStock(r.BloodGroup, r.Units)
	}
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
