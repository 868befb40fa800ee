package bank

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/erazemk/bloodbank/internal/model"
	"github.com/erazemk/bloodbank/internal/store"
	"github.com/erazemk/bloodbank/internal/workflow"
)

// RequestInput is a new blood request as submitted by a requester.
type RequestInput struct {
	PatientName     string
	ContactPhone    string
	ContactEmail    string
	BloodGroup      string
	Units           int
	HospitalName    string
	HospitalAddress string
	Urgency         string
	Reason          string
	RequiredBy      *time.Time
}

// CreateRequest stores a pending blood request awaiting approval.
func (b *Bank) CreateRequest(ctx context.Context, p Principal, in RequestInput) (*model.BloodRequest, error) {
	r := &model.BloodRequest{
		RequesterID:     p.UserID,
		PatientName:     strings.TrimSpace(in.PatientName),
		ContactPhone:    strings.TrimSpace(in.ContactPhone),
		ContactEmail:    strings.TrimSpace(in.ContactEmail),
		BloodGroup:      strings.TrimSpace(in.BloodGroup),
		Units:           in.Units,
		HospitalName:    strings.TrimSpace(in.HospitalName),
		HospitalAddress: strings.TrimSpace(in.HospitalAddress),
		Urgency:         strings.TrimSpace(in.Urgency),
		Reason:          strings.TrimSpace(in.Reason),
		RequiredBy:      in.RequiredBy,
		Status:          model.RequestPending,
		ApprovalStatus:  model.ApprovalPending,
	}
	if r.ContactEmail == "" {
		r.ContactEmail = p.Email
	}
	if r.Urgency == "" {
		r.Urgency = model.UrgencyNormal
	}
	if r.Units == 0 {
		r.Units = 1
	}

	switch {
	case p.UserID <= 0:
		return nil, b.fail("create_request", model.Validationf("requester is required"))
	case r.PatientName == "":
		return nil, b.fail("create_request", model.Validationf("patient name is required"))
	case r.ContactPhone == "":
		return nil, b.fail("create_request", model.Validationf("contact phone is required"))
	case !model.ValidBloodGroup(r.BloodGroup):
		return nil, b.fail("create_request", model.Validationf("invalid blood group %q", r.BloodGroup))
	case r.Units < 0:
		return nil, b.fail("create_request", model.Validationf("units must be a positive number"))
	case r.HospitalName == "":
		return nil, b.fail("create_request", model.Validationf("hospital name is required"))
	case r.HospitalAddress == "":
		return nil, b.fail("create_request", model.Validationf("hospital address is required"))
	case !model.ValidUrgency(r.Urgency):
		return nil, b.fail("create_request", model.Validationf("invalid urgency %q", r.Urgency))
	}

	now := b.now()
	r.CreatedAt, r.UpdatedAt = now, now
	created, err := store.CreateRequest(ctx, b.db, r)
	if err != nil {
		return nil, b.fail("create_request", err)
	}

	b.metrics.Event("request", "created")
	b.log.Info("blood request created", "id", created.ID, "blood_group", created.BloodGroup,
		"urgency", created.Urgency, "by", p.Email)
	return created, nil
}

// GetRequest returns a blood request or a not-found error.
func (b *Bank) GetRequest(ctx context.Context, id int64) (*model.BloodRequest, error) {
	return getRequest(ctx, b.db, id)
}

func getRequest(ctx context.Context, q store.Querier, id int64) (*model.BloodRequest, error) {
	r, err := store.GetRequest(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, model.NotFoundf("blood request not found")
	}
	return r, nil
}

// ListPublicRequests returns approved requests that are not cancelled.
func (b *Bank) ListPublicRequests(ctx context.Context, bloodGroup string) ([]model.BloodRequest, error) {
	return b.ListRequests(ctx, store.RequestFilter{Public: true, BloodGroup: bloodGroup})
}

// ListRequests returns requests matching f.
func (b *Bank) ListRequests(ctx context.Context, f store.RequestFilter) ([]model.BloodRequest, error) {
	if f.BloodGroup != "" && !model.ValidBloodGroup(f.BloodGroup) {
		return nil, model.Validationf("invalid blood group %q", f.BloodGroup)
	}
	if f.Status != "" && !model.ValidRequestStatus(f.Status) {
		return nil, model.Validationf("invalid status %q", f.Status)
	}
	return store.ListRequests(ctx, b.db, f)
}

// ReviewRequest approves or rejects a pending request.
func (b *Bank) ReviewRequest(ctx context.Context, p Principal, id int64, approve bool, reason string) (*model.BloodRequest, error) {
	op := "reject_request"
	if approve {
		op = "approve_request"
	}

	var r *model.BloodRequest
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		r, err = getRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		next, err := workflow.ReviewRequest(r.ApprovalStatus, approve)
		if err != nil {
			return err
		}
		r.ApprovalStatus = next
		if !approve {
			r.RejectionReason = strings.TrimSpace(reason)
		}
		r.UpdatedAt = b.now()
		return store.UpdateRequestState(ctx, tx, r, r.Status, r.CountersUpdated)
	})
	if err != nil {
		return nil, b.fail(op, err)
	}

	b.metrics.Event("request", r.ApprovalStatus)
	b.log.Info("blood request reviewed", "id", id, "approval", r.ApprovalStatus, "by", p.Email)
	return r, nil
}

// Donate attaches the caller as direct donor of a pending request. Both
// lifetime counters move immediately.
func (b *Bank) Donate(ctx context.Context, p Principal, id int64, name, phone string) (*model.BloodRequest, error) {
	var r *model.BloodRequest
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		r, err = getRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if r.RequesterID == p.UserID {
			return model.Validationf("you cannot donate to your own blood request")
		}
		if r.ApprovalStatus == model.ApprovalRejected {
			return model.Statef("blood request has been rejected")
		}

		donor, err := donorFor(ctx, tx, p, name, phone)
		if err != nil {
			return err
		}
		rc := workflow.RequestContext{RequesterID: r.RequesterID, BloodGroup: r.BloodGroup}
		next, effects, err := workflow.Pledge(workflow.RequestStateOf(r), rc, donor)
		if err != nil {
			return err
		}
		return b.advance(ctx, tx, r, next, effects)
	})
	if err != nil {
		return nil, b.fail("donate", err)
	}

	b.metrics.Event("request", "pledged")
	b.log.Info("blood request pledged", "id", id, "donor", p.Email)
	return r, nil
}

// donorFor builds the direct donor from the caller, falling back to the
// caller's profile for missing contact details.
func donorFor(ctx context.Context, q store.Querier, p Principal, name, phone string) (workflow.Donor, error) {
	d := workflow.Donor{Name: strings.TrimSpace(name), Phone: strings.TrimSpace(phone)}
	if p.UserID > 0 {
		uid := p.UserID
		d.UserID = &uid
		if d.Name == "" || d.Phone == "" {
			u, err := store.GetUser(ctx, q, p.UserID)
			if err != nil {
				return d, err
			}
			if u == nil {
				return d, model.NotFoundf("user not found")
			}
			if d.Name == "" {
				d.Name = u.Name
			}
			if d.Phone == "" {
				d.Phone = u.Phone
			}
		}
	}
	if d.Name == "" {
		return d, model.Validationf("donor name is required")
	}
	return d, nil
}

// DonateFromBank serves a pending request from stock. On insufficient stock
// nothing is written and the request stays pending.
func (b *Bank) DonateFromBank(ctx context.Context, p Principal, id int64, units int) (*model.BloodRequest, *model.Transaction, error) {
	var r *model.BloodRequest
	var recorded []model.Transaction
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		r, err = getRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if units == 0 {
			units = r.Units
		}

		now := b.now()
		rc := workflow.RequestContext{RequesterID: r.RequesterID, BloodGroup: r.BloodGroup}
		next, effects, err := workflow.FulfilFromBank(workflow.RequestStateOf(r), rc, units, now)
		if err != nil {
			return err
		}

		reqID := r.ID
		base := model.Transaction{
			RecipientName: r.PatientName,
			HospitalName:  r.HospitalName,
			RequestID:     &reqID,
		}
		recorded, err = b.applyStock(ctx, tx, effects, p, base, now)
		if err != nil {
			return err
		}
		return b.advance(ctx, tx, r, next, effects)
	})
	if err != nil {
		return nil, nil, b.fail("donate_from_bank", err)
	}

	b.committed(recorded...)
	b.metrics.Event("request", "fulfilled")
	b.log.Info("blood request served from bank", "id", id, "blood_group", r.BloodGroup,
		"units", units, "new_units", recorded[0].NewStock, "by", p.Email)
	return r, &recorded[0], nil
}

// UpdateStatus moves a request to status. fulfiller optionally names the
// donor when the request is marked fulfilled.
func (b *Bank) UpdateStatus(ctx context.Context, p Principal, id int64, status string, fulfiller *workflow.Donor) (*model.BloodRequest, error) {
	var r *model.BloodRequest
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		r, err = getRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := resolveFulfiller(ctx, tx, fulfiller); err != nil {
			return err
		}
		rc := workflow.RequestContext{RequesterID: r.RequesterID, BloodGroup: r.BloodGroup}
		next, effects, err := workflow.Transition(workflow.RequestStateOf(r), rc, status, fulfiller, b.now())
		if err != nil {
			return err
		}
		return b.advance(ctx, tx, r, next, effects)
	})
	if err != nil {
		return nil, b.fail("update_request_status", err)
	}

	b.metrics.Event("request", r.Status)
	b.log.Info("blood request status changed", "id", id, "status", r.Status, "by", p.Email)
	return r, nil
}

// resolveFulfiller checks that a fulfiller naming a user refers to an active
// account and fills missing contact details from its profile.
func resolveFulfiller(ctx context.Context, q store.Querier, d *workflow.Donor) error {
	if d == nil || d.UserID == nil {
		return nil
	}
	u, err := store.GetUser(ctx, q, *d.UserID)
	if err != nil {
		return err
	}
	if u == nil || u.DeletedAt != nil {
		return model.NotFoundf("donor not found")
	}
	if d.Name == "" {
		d.Name = u.Name
	}
	if d.Phone == "" {
		d.Phone = u.Phone
	}
	return nil
}

// advance persists the new state of r and then applies its counter effects.
func (b *Bank) advance(ctx context.Context, q store.Querier, r *model.BloodRequest, next workflow.RequestState, effects []workflow.Effect) error {
	prevStatus, prevCounters := r.Status, r.CountersUpdated
	workflow.ApplyRequestState(r, next)
	r.UpdatedAt = b.now()
	if err := store.UpdateRequestState(ctx, q, r, prevStatus, prevCounters); err != nil {
		return err
	}
	return applyCounters(ctx, q, effects)
}

// DeleteRequest removes a request owned by the caller, or any request for
// an admin. Lifetime counters already applied are not rolled back.
func (b *Bank) DeleteRequest(ctx context.Context, p Principal, id int64) error {
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		r, err := getRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if !p.Admin && r.RequesterID != p.UserID {
			return model.NotFoundf("blood request not found")
		}
		deleted, err := store.DeleteRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return model.NotFoundf("blood request not found")
		}
		return nil
	})
	if err != nil {
		return b.fail("delete_request", err)
	}

	b.metrics.Event("request", "deleted")
	b.log.Info("blood request deleted", "id", id, "by", p.Email)
	return nil
}
