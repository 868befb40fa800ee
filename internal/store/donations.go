package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/erazemk/bloodbank/internal/model"
)

const donationColumns = `id, donor_id, name, email, phone, gender, date_of_birth, weight,
	blood_group, units, last_donation_date, medical_conditions, address, preferred_date,
	eligibility, approval_status, status, blood_bag_number, transaction_id,
	rejection_reason, reviewed_by, reviewed_at, created_at, updated_at`

func scanDonation(s rowScanner) (*model.DonationRequest, error) {
	var d model.DonationRequest
	var email, gender, conditions, address, bag, rejection, reviewedBy sql.NullString
	var eligibility string
	err := s.Scan(&d.ID, &d.DonorID, &d.Name, &email, &d.Phone, &gender, &d.DateOfBirth, &d.Weight,
		&d.BloodGroup, &d.Units, &d.LastDonationDate, &conditions, &address, &d.PreferredDate,
		&eligibility, &d.ApprovalStatus, &d.Status, &bag, &d.TransactionID,
		&rejection, &reviewedBy, &d.ReviewedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(eligibility), &d.Eligibility); err != nil {
		return nil, fmt.Errorf("decoding eligibility snapshot: %w", err)
	}
	d.Email = email.String
	d.Gender = gender.String
	d.MedicalConditions = conditions.String
	d.Address = address.String
	d.BloodBagNumber = bag.String
	d.RejectionReason = rejection.String
	d.ReviewedBy = reviewedBy.String
	return &d, nil
}

// CreateDonation inserts a donation request together with its eligibility
// snapshot. The snapshot column is never rewritten afterwards.
func CreateDonation(ctx context.Context, q Querier, d *model.DonationRequest) (*model.DonationRequest, error) {
	snapshot, err := json.Marshal(d.Eligibility)
	if err != nil {
		return nil, fmt.Errorf("encoding eligibility snapshot: %w", err)
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO donation_requests (donor_id, name, email, phone, gender, date_of_birth, weight,
		     blood_group, units, last_donation_date, medical_conditions, address, preferred_date,
		     eligibility, approval_status, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.DonorID, d.Name, nullString(d.Email), d.Phone, nullString(d.Gender), d.DateOfBirth, d.Weight,
		d.BloodGroup, d.Units, d.LastDonationDate, nullString(d.MedicalConditions), nullString(d.Address), d.PreferredDate,
		string(snapshot), d.ApprovalStatus, d.Status, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating donation request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting donation request id: %w", err)
	}
	return GetDonation(ctx, q, id)
}

// GetDonation returns a donation request by ID.
func GetDonation(ctx context.Context, q Querier, id int64) (*model.DonationRequest, error) {
	d, err := scanDonation(q.QueryRowContext(ctx,
		`SELECT `+donationColumns+` FROM donation_requests WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting donation request: %w", err)
	}
	return d, nil
}

// DonationFilter narrows ListDonations. Zero values match everything.
type DonationFilter struct {
	DonorID        int64
	ApprovalStatus string
	BloodGroup     string
}

// ListDonations returns donation requests, newest first.
func ListDonations(ctx context.Context, q Querier, f DonationFilter) ([]model.DonationRequest, error) {
	query := `SELECT ` + donationColumns + ` FROM donation_requests WHERE 1=1`
	var args []any

	if f.DonorID > 0 {
		query += ` AND donor_id = ?`
		args = append(args, f.DonorID)
	}
	if f.ApprovalStatus != "" {
		query += ` AND approval_status = ?`
		args = append(args, f.ApprovalStatus)
	}
	if f.BloodGroup != "" {
		query += ` AND blood_group = ?`
		args = append(args, f.BloodGroup)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing donation requests: %w", err)
	}
	defer rows.Close()

	var donations []model.DonationRequest
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning donation request: %w", err)
		}
		donations = append(donations, *d)
	}
	return donations, rows.Err()
}

// UpdateDonationReview stores the outcome of an admin review. The update
// only applies while the donation is still pending approval, so a second
// review of the same donation is reported as a state error.
func UpdateDonationReview(ctx context.Context, q Querier, d *model.DonationRequest) error {
	result, err := q.ExecContext(ctx,
		`UPDATE donation_requests SET approval_status = ?, status = ?, blood_bag_number = ?,
		     transaction_id = ?, rejection_reason = ?, reviewed_by = ?, reviewed_at = ?, updated_at = ?
		 WHERE id = ? AND approval_status = ?`,
		d.ApprovalStatus, d.Status, nullString(d.BloodBagNumber),
		d.TransactionID, nullString(d.RejectionReason), nullString(d.ReviewedBy), d.ReviewedAt, d.UpdatedAt,
		d.ID, model.ApprovalPending,
	)
	if err != nil {
		return fmt.Errorf("updating donation request: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating donation request: %w", err)
	}
	if n == 0 {
		return model.Statef("donation request %d has already been reviewed", d.ID)
	}
	return nil
}
