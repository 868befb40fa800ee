package store

import (
	"context"
	"fmt"

	"github.com/erazemk/bloodbank/internal/model"
)

// CreateHistory records a completed donation for a donor.
func CreateHistory(ctx context.Context, q Querier, h *model.DonationHistory) error {
	result, err := q.ExecContext(ctx,
		`INSERT INTO donation_history (donor_id, donation_id, blood_group, units, blood_bag_number, donated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		h.DonorID, h.DonationID, h.BloodGroup, h.Units, h.BloodBagNumber, h.DonatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording donation history: %w", err)
	}
	h.ID, _ = result.LastInsertId()
	return nil
}

// ListHistory returns a donor's completed donations, newest first.
func ListHistory(ctx context.Context, q Querier, donorID int64) ([]model.DonationHistory, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, donor_id, donation_id, blood_group, units, blood_bag_number, donated_at
		 FROM donation_history WHERE donor_id = ? ORDER BY donated_at DESC, id DESC`, donorID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing donation history: %w", err)
	}
	defer rows.Close()

	var history []model.DonationHistory
	for rows.Next() {
		var h model.DonationHistory
		if err := rows.Scan(&h.ID, &h.DonorID, &h.DonationID, &h.BloodGroup, &h.Units, &h.BloodBagNumber, &h.DonatedAt); err != nil {
			return nil, fmt.Errorf("scanning donation history: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
