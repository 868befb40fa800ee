package bank

import (
	"context"
	"database/sql"
	"strings"

	"github.com/erazemk/bloodbank/internal/model"
	"github.com/erazemk/bloodbank/internal/store"
	"github.com/erazemk/bloodbank/internal/workflow"
)

// EntryInput describes units received into stock outside the donation workflow.
type EntryInput struct {
	BloodGroup     string
	Units          int
	DonorName      string
	BloodBagNumber string
	Notes          string
}

// DispenseInput describes units issued directly to a recipient.
type DispenseInput struct {
	BloodGroup    string
	Units         int
	RecipientName string
	HospitalName  string
	Notes         string
}

// DisposalInput describes units discarded from stock.
type DisposalInput struct {
	BloodGroup string
	Units      int
	Reason     string
}

// ExchangeInput describes units swapped from one group for another.
type ExchangeInput struct {
	FromBloodGroup string
	ToBloodGroup   string
	Units          int
	Notes          string
}

func validateMovement(bloodGroup string, units int) error {
	if !model.ValidBloodGroup(bloodGroup) {
		return model.Validationf("invalid blood group %q", bloodGroup)
	}
	if units <= 0 {
		return model.Validationf("units must be a positive number")
	}
	return nil
}

// Entry deposits units into stock.
func (b *Bank) Entry(ctx context.Context, p Principal, in EntryInput) (*model.Transaction, error) {
	if err := validateMovement(in.BloodGroup, in.Units); err != nil {
		return nil, b.fail("blood_entry", err)
	}
	base := model.Transaction{
		DonorName:      strings.TrimSpace(in.DonorName),
		BloodBagNumber: strings.TrimSpace(in.BloodBagNumber),
		Notes:          strings.TrimSpace(in.Notes),
	}
	t, err := b.move(ctx, p, workflow.AdjustStock{BloodGroup: in.BloodGroup, Delta: in.Units, TxType: model.TxEntry}, base)
	return t, b.fail("blood_entry", err)
}

// Dispense withdraws units issued to a recipient.
func (b *Bank) Dispense(ctx context.Context, p Principal, in DispenseInput) (*model.Transaction, error) {
	if err := validateMovement(in.BloodGroup, in.Units); err != nil {
		return nil, b.fail("blood_donate", err)
	}
	if strings.TrimSpace(in.RecipientName) == "" {
		return nil, b.fail("blood_donate", model.Validationf("recipient name is required"))
	}
	base := model.Transaction{
		RecipientName: strings.TrimSpace(in.RecipientName),
		HospitalName:  strings.TrimSpace(in.HospitalName),
		Notes:         strings.TrimSpace(in.Notes),
	}
	t, err := b.move(ctx, p, workflow.AdjustStock{BloodGroup: in.BloodGroup, Delta: -in.Units, TxType: model.TxDonate}, base)
	return t, b.fail("blood_donate", err)
}

// Dispose withdraws expired or damaged units.
func (b *Bank) Dispose(ctx context.Context, p Principal, in DisposalInput) (*model.Transaction, error) {
	if err := validateMovement(in.BloodGroup, in.Units); err != nil {
		return nil, b.fail("blood_disposal", err)
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, b.fail("blood_disposal", model.Validationf("disposal reason is required"))
	}
	base := model.Transaction{Notes: strings.TrimSpace(in.Reason)}
	t, err := b.move(ctx, p, workflow.AdjustStock{BloodGroup: in.BloodGroup, Delta: -in.Units, TxType: model.TxDisposal}, base)
	return t, b.fail("blood_disposal", err)
}

func (b *Bank) move(ctx context.Context, p Principal, adj workflow.AdjustStock, base model.Transaction) (*model.Transaction, error) {
	now := b.now()
	var recorded []model.Transaction
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		recorded, err = b.applyStock(ctx, tx, []workflow.Effect{adj}, p, base, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	b.committed(recorded...)
	b.log.Info("stock moved", "type", adj.TxType, "blood_group", adj.BloodGroup,
		"delta", adj.Delta, "new_units", recorded[0].NewStock, "by", p.Email)
	return &recorded[0], nil
}

// Exchange withdraws units of one group and deposits the same number of
// another. The withdrawal runs first; both deltas and the audit row commit
// together.
func (b *Bank) Exchange(ctx context.Context, p Principal, in ExchangeInput) (*model.Transaction, error) {
	if err := validateMovement(in.FromBloodGroup, in.Units); err != nil {
		return nil, b.fail("blood_exchange", err)
	}
	if !model.ValidBloodGroup(in.ToBloodGroup) {
		return nil, b.fail("blood_exchange", model.Validationf("invalid blood group %q", in.ToBloodGroup))
	}
	if in.FromBloodGroup == in.ToBloodGroup {
		return nil, b.fail("blood_exchange", model.Validationf("cannot exchange a blood group for itself"))
	}

	now := b.now()
	actor := p.Actor()
	t := model.Transaction{
		Type:         model.TxExchange,
		BloodGroup:   in.FromBloodGroup,
		ToBloodGroup: in.ToBloodGroup,
		Units:        in.Units,
		ActorID:      actor.UserID,
		ActorEmail:   p.Email,
		Notes:        strings.TrimSpace(in.Notes),
		CreatedAt:    now,
	}
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		from, err := store.ApplyDelta(ctx, tx, in.FromBloodGroup, -in.Units, actor, now)
		if err != nil {
			return err
		}
		to, err := store.ApplyDelta(ctx, tx, in.ToBloodGroup, in.Units, actor, now)
		if err != nil {
			return err
		}
		t.PreviousStock, t.NewStock = from.PreviousUnits, from.NewUnits
		t.ToPreviousStock, t.ToNewStock = &to.PreviousUnits, &to.NewUnits
		_, err = store.RecordTransaction(ctx, tx, &t)
		return err
	})
	if err != nil {
		return nil, b.fail("blood_exchange", err)
	}

	b.committed(t)
	b.log.Info("stock exchanged", "from", in.FromBloodGroup, "to", in.ToBloodGroup,
		"units", in.Units, "by", p.Email)
	return &t, nil
}

// Stock returns units keyed by blood group, all eight groups present.
func (b *Bank) Stock(ctx context.Context) (map[string]int, error) {
	return store.StockSnapshot(ctx, b.db)
}

// StockRecords returns the stock record of every blood group.
func (b *Bank) StockRecords(ctx context.Context) ([]model.StockRecord, error) {
	return store.ListStock(ctx, b.db)
}

// Transactions lists the audit trail.
func (b *Bank) Transactions(ctx context.Context, f store.TransactionFilter) ([]model.Transaction, error) {
	if f.BloodGroup != "" && !model.ValidBloodGroup(f.BloodGroup) {
		return nil, model.Validationf("invalid blood group %q", f.BloodGroup)
	}
	return store.ListTransactions(ctx, b.db, f)
}
