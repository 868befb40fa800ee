package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/bloodbank/internal/model"
)

const requestColumns = `id, requester_id, patient_name, contact_phone, contact_email,
	blood_group, units, hospital_name, hospital_address, urgency, reason, required_by,
	status, approval_status, rejection_reason, counters_updated,
	donor_id, donor_name, donor_phone, fulfilled_by, fulfilled_at, created_at, updated_at`

func scanRequest(s rowScanner) (*model.BloodRequest, error) {
	var r model.BloodRequest
	var email, reason, rejection, donorName, donorPhone, fulfilledBy sql.NullString
	err := s.Scan(&r.ID, &r.RequesterID, &r.PatientName, &r.ContactPhone, &email,
		&r.BloodGroup, &r.Units, &r.HospitalName, &r.HospitalAddress, &r.Urgency, &reason, &r.RequiredBy,
		&r.Status, &r.ApprovalStatus, &rejection, &r.CountersUpdated,
		&r.DonorID, &donorName, &donorPhone, &fulfilledBy, &r.FulfilledAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.ContactEmail = email.String
	r.Reason = reason.String
	r.RejectionReason = rejection.String
	r.DonorName = donorName.String
	r.DonorPhone = donorPhone.String
	r.FulfilledBy = fulfilledBy.String
	return &r, nil
}

// CreateRequest inserts a blood request and returns the stored row.
func CreateRequest(ctx context.Context, q Querier, r *model.BloodRequest) (*model.BloodRequest, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO blood_requests (requester_id, patient_name, contact_phone, contact_email,
		     blood_group, units, hospital_name, hospital_address, urgency, reason, required_by,
		     status, approval_status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RequesterID, r.PatientName, r.ContactPhone, nullString(r.ContactEmail),
		r.BloodGroup, r.Units, r.HospitalName, r.HospitalAddress, r.Urgency, nullString(r.Reason), r.RequiredBy,
		r.Status, r.ApprovalStatus, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating blood request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting blood request id: %w", err)
	}
	return GetRequest(ctx, q, id)
}

// GetRequest returns a blood request by ID.
func GetRequest(ctx context.Context, q Querier, id int64) (*model.BloodRequest, error) {
	r, err := scanRequest(q.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM blood_requests WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting blood request: %w", err)
	}
	return r, nil
}

// RequestFilter narrows ListRequests. Zero values match everything.
type RequestFilter struct {
	// Public restricts to approved requests that are not cancelled.
	Public         bool
	Status         string
	ApprovalStatus string
	BloodGroup     string
	RequesterID    int64
}

// ListRequests returns blood requests, most urgent first, then newest.
func ListRequests(ctx context.Context, q Querier, f RequestFilter) ([]model.BloodRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM blood_requests WHERE 1=1`
	var args []any

	if f.Public {
		query += ` AND approval_status = ? AND status != ?`
		args = append(args, model.ApprovalApproved, model.RequestCancelled)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.ApprovalStatus != "" {
		query += ` AND approval_status = ?`
		args = append(args, f.ApprovalStatus)
	}
	if f.BloodGroup != "" {
		query += ` AND blood_group = ?`
		args = append(args, f.BloodGroup)
	}
	if f.RequesterID > 0 {
		query += ` AND requester_id = ?`
		args = append(args, f.RequesterID)
	}

	query += ` ORDER BY CASE urgency WHEN 'emergency' THEN 0 WHEN 'urgent' THEN 1 ELSE 2 END, created_at DESC, id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing blood requests: %w", err)
	}
	defer rows.Close()

	var requests []model.BloodRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning blood request: %w", err)
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

// UpdateRequestState writes the workflow columns of r. The update only
// applies while the stored status and counter flag still equal prevStatus
// and prevCounters; otherwise the request changed underneath the caller and
// a state error is returned.
func UpdateRequestState(ctx context.Context, q Querier, r *model.BloodRequest, prevStatus string, prevCounters bool) error {
	result, err := q.ExecContext(ctx,
		`UPDATE blood_requests SET status = ?, approval_status = ?, rejection_reason = ?,
		     counters_updated = ?, donor_id = ?, donor_name = ?, donor_phone = ?,
		     fulfilled_by = ?, fulfilled_at = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND counters_updated = ?`,
		r.Status, r.ApprovalStatus, nullString(r.RejectionReason),
		r.CountersUpdated, r.DonorID, nullString(r.DonorName), nullString(r.DonorPhone),
		nullString(r.FulfilledBy), r.FulfilledAt, r.UpdatedAt,
		r.ID, prevStatus, prevCounters,
	)
	if err != nil {
		return fmt.Errorf("updating blood request: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating blood request: %w", err)
	}
	if n == 0 {
		return model.Statef("blood request %d was modified by another operation", r.ID)
	}
	return nil
}

// DeleteRequest removes a blood request. Counters already applied are kept.
func DeleteRequest(ctx context.Context, q Querier, id int64) (bool, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM blood_requests WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting blood request: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting blood request: %w", err)
	}
	return n > 0, nil
}
