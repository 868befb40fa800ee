package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/erazemk/bloodbank/internal/model"
)

// RecordTransaction appends an audit row. It must only be called after the
// paired ApplyDelta succeeded, with the balances that call returned.
// Transactions are never updated or deleted.
func RecordTransaction(ctx context.Context, q Querier, t *model.Transaction) (int64, error) {
	if t.Units <= 0 {
		return 0, model.Validationf("units must be positive")
	}
	if t.Reference == "" {
		t.Reference = uuid.NewString()
	}
	t.Status = model.TxStatusCompleted

	result, err := q.ExecContext(ctx,
		`INSERT INTO transactions (reference, type, blood_group, to_blood_group, units,
		     actor_id, actor_email, donor_name, recipient_name, hospital_name,
		     blood_bag_number, notes, previous_stock, new_stock,
		     to_previous_stock, to_new_stock, request_id, donation_id, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Reference, t.Type, t.BloodGroup, nullString(t.ToBloodGroup), t.Units,
		t.ActorID, nullString(t.ActorEmail), nullString(t.DonorName), nullString(t.RecipientName), nullString(t.HospitalName),
		nullString(t.BloodBagNumber), nullString(t.Notes), t.PreviousStock, t.NewStock,
		t.ToPreviousStock, t.ToNewStock, t.RequestID, t.DonationID, t.Status, t.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("recording transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting transaction id: %w", err)
	}
	t.ID = id
	return id, nil
}

const transactionColumns = `id, reference, type, blood_group, to_blood_group, units,
	actor_id, actor_email, donor_name, recipient_name, hospital_name,
	blood_bag_number, notes, previous_stock, new_stock,
	to_previous_stock, to_new_stock, request_id, donation_id, status, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (*model.Transaction, error) {
	var t model.Transaction
	var toGroup, actorEmail, donorName, recipient, hospital, bag, notes sql.NullString
	err := s.Scan(&t.ID, &t.Reference, &t.Type, &t.BloodGroup, &toGroup, &t.Units,
		&t.ActorID, &actorEmail, &donorName, &recipient, &hospital,
		&bag, &notes, &t.PreviousStock, &t.NewStock,
		&t.ToPreviousStock, &t.ToNewStock, &t.RequestID, &t.DonationID, &t.Status, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.ToBloodGroup = toGroup.String
	t.ActorEmail = actorEmail.String
	t.DonorName = donorName.String
	t.RecipientName = recipient.String
	t.HospitalName = hospital.String
	t.BloodBagNumber = bag.String
	t.Notes = notes.String
	return &t, nil
}

// GetTransaction returns a transaction by ID.
func GetTransaction(ctx context.Context, q Querier, id int64) (*model.Transaction, error) {
	t, err := scanTransaction(q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting transaction: %w", err)
	}
	return t, nil
}

// TransactionFilter narrows ListTransactions. Zero values match everything.
type TransactionFilter struct {
	Type       string
	BloodGroup string
	Limit      int
}

// ListTransactions returns transactions, newest first. A blood group filter
// also matches exchanges into that group.
func ListTransactions(ctx context.Context, q Querier, f TransactionFilter) ([]model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE 1=1`
	var args []any

	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, f.Type)
	}
	if f.BloodGroup != "" {
		query += ` AND (blood_group = ? OR to_blood_group = ?)`
		args = append(args, f.BloodGroup, f.BloodGroup)
	}

	query += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}
