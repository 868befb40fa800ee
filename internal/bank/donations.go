package bank

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/bloodbank/internal/eligibility"
	"github.com/erazemk/bloodbank/internal/model"
	"github.com/erazemk/bloodbank/internal/store"
	"github.com/erazemk/bloodbank/internal/workflow"
)

// DonationInput is a donation offer. Missing identity fields are taken from
// the submitting user's profile.
type DonationInput struct {
	Name              string
	Email             string
	Phone             string
	Gender            string
	DateOfBirth       *time.Time
	Weight            decimal.NullDecimal
	BloodGroup        string
	Units             int
	LastDonationDate  *time.Time
	MedicalConditions string
	Address           string
	PreferredDate     *time.Time
}

func (in DonationInput) donor() eligibility.Donor {
	return eligibility.Donor{
		BloodGroup:        in.BloodGroup,
		DateOfBirth:       in.DateOfBirth,
		Weight:            in.Weight,
		LastDonationDate:  in.LastDonationDate,
		MedicalConditions: in.MedicalConditions,
	}
}

// IneligibleError is returned when a donation fails eligibility. The
// submission is not stored.
type IneligibleError struct {
	Result model.Eligibility
}

func (e *IneligibleError) Error() string {
	return "donor is not eligible: " + strings.Join(e.Result.IneligibilityReasons, "; ")
}

// CheckEligibility evaluates in without storing anything.
func (b *Bank) CheckEligibility(ctx context.Context, p Principal, in DonationInput) (model.Eligibility, error) {
	in, err := b.withProfile(ctx, p, in)
	if err != nil {
		return model.Eligibility{}, err
	}
	return eligibility.Evaluate(in.donor(), b.now()), nil
}

// withProfile fills the gaps in in from the caller's user record.
func (b *Bank) withProfile(ctx context.Context, p Principal, in DonationInput) (DonationInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.BloodGroup = strings.TrimSpace(in.BloodGroup)
	if p.UserID <= 0 {
		return in, nil
	}

	u, err := store.GetUser(ctx, b.db, p.UserID)
	if err != nil {
		return in, err
	}
	if u == nil {
		return in, model.NotFoundf("user not found")
	}
	if in.Name == "" {
		in.Name = u.Name
	}
	if in.Email == "" {
		in.Email = u.Email
	}
	if in.Phone == "" {
		in.Phone = u.Phone
	}
	if in.BloodGroup == "" {
		in.BloodGroup = u.BloodGroup
	}
	if in.DateOfBirth == nil {
		in.DateOfBirth = u.DateOfBirth
	}
	if in.LastDonationDate == nil {
		in.LastDonationDate = u.LastDonateDate
	}
	return in, nil
}

// SubmitDonation evaluates eligibility and stores an eligible offer for
// review together with the evaluation snapshot.
func (b *Bank) SubmitDonation(ctx context.Context, p Principal, in DonationInput) (*model.DonationRequest, error) {
	in, err := b.withProfile(ctx, p, in)
	if err != nil {
		return nil, b.fail("submit_donation", err)
	}
	if in.Units == 0 {
		in.Units = 1
	}
	switch {
	case in.Name == "":
		return nil, b.fail("submit_donation", model.Validationf("name is required"))
	case in.Phone == "":
		return nil, b.fail("submit_donation", model.Validationf("phone is required"))
	case in.Units < 0:
		return nil, b.fail("submit_donation", model.Validationf("units must be a positive number"))
	}

	now := b.now()
	result := eligibility.Evaluate(in.donor(), now)
	if !result.IsEligible {
		b.metrics.Event("donation", "ineligible")
		return nil, b.fail("submit_donation", &IneligibleError{Result: result})
	}

	d := &model.DonationRequest{
		Name:              in.Name,
		Email:             in.Email,
		Phone:             in.Phone,
		Gender:            strings.TrimSpace(in.Gender),
		DateOfBirth:       in.DateOfBirth,
		Weight:            in.Weight,
		BloodGroup:        in.BloodGroup,
		Units:             in.Units,
		LastDonationDate:  in.LastDonationDate,
		MedicalConditions: strings.TrimSpace(in.MedicalConditions),
		Address:           strings.TrimSpace(in.Address),
		PreferredDate:     in.PreferredDate,
		Eligibility:       result,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	workflow.ApplyDonationState(d, workflow.AwaitingReview{})

	err = b.withTx(ctx, func(tx *sql.Tx) error {
		if p.UserID > 0 {
			uid := p.UserID
			d.DonorID = &uid
			pending, err := store.ListDonations(ctx, tx, store.DonationFilter{DonorID: uid, ApprovalStatus: model.ApprovalPending})
			if err != nil {
				return err
			}
			if len(pending) > 0 {
				return model.Conflictf("you already have a donation request awaiting review")
			}
		}
		var err error
		d, err = store.CreateDonation(ctx, tx, d)
		return err
	})
	if err != nil {
		return nil, b.fail("submit_donation", err)
	}

	b.metrics.Event("donation", "submitted")
	b.log.Info("donation request submitted", "id", d.ID, "blood_group", d.BloodGroup, "units", d.Units)
	return d, nil
}

func getDonation(ctx context.Context, q store.Querier, id int64) (*model.DonationRequest, error) {
	d, err := store.GetDonation(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, model.NotFoundf("donation request not found")
	}
	return d, nil
}

// GetDonation returns a donation request or a not-found error.
func (b *Bank) GetDonation(ctx context.Context, id int64) (*model.DonationRequest, error) {
	return getDonation(ctx, b.db, id)
}

// ListDonations returns donation requests matching f.
func (b *Bank) ListDonations(ctx context.Context, f store.DonationFilter) ([]model.DonationRequest, error) {
	if f.BloodGroup != "" && !model.ValidBloodGroup(f.BloodGroup) {
		return nil, model.Validationf("invalid blood group %q", f.BloodGroup)
	}
	return store.ListDonations(ctx, b.db, f)
}

// MyDonations returns the caller's donation requests and completed history.
func (b *Bank) MyDonations(ctx context.Context, p Principal) ([]model.DonationRequest, []model.DonationHistory, error) {
	requests, err := store.ListDonations(ctx, b.db, store.DonationFilter{DonorID: p.UserID})
	if err != nil {
		return nil, nil, err
	}
	history, err := store.ListHistory(ctx, b.db, p.UserID)
	if err != nil {
		return nil, nil, err
	}
	return requests, history, nil
}

// ApproveDonation deposits the donated units into stock and credits the
// donor. Approving an already reviewed donation is a state error and leaves
// stock untouched.
func (b *Bank) ApproveDonation(ctx context.Context, p Principal, id int64, bloodBagNumber string) (*model.DonationRequest, *model.Transaction, error) {
	var d *model.DonationRequest
	var recorded []model.Transaction
	var writeHistory bool
	now := b.now()

	err := b.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		d, err = getDonation(ctx, tx, id)
		if err != nil {
			return err
		}

		dc := workflow.DonationContext{DonorID: d.DonorID, BloodGroup: d.BloodGroup, Units: d.Units}
		next, effects, err := workflow.ApproveDonation(workflow.DonationStateOf(d), dc, bloodBagNumber, now)
		if err != nil {
			return err
		}

		donationID := d.ID
		base := model.Transaction{
			DonorName:      d.Name,
			BloodBagNumber: strings.TrimSpace(bloodBagNumber),
			DonationID:     &donationID,
		}
		recorded, err = b.applyStock(ctx, tx, effects, p, base, now)
		if err != nil {
			return err
		}

		workflow.ApplyDonationState(d, next)
		txID := recorded[0].ID
		d.TransactionID = &txID
		d.ReviewedBy = p.Email
		d.ReviewedAt = &now
		d.UpdatedAt = now
		if err := store.UpdateDonationReview(ctx, tx, d); err != nil {
			return err
		}

		for _, e := range effects {
			if _, ok := e.(workflow.WriteHistory); ok {
				writeHistory = true
			}
		}
		return applyCounters(ctx, tx, effects)
	})
	if err != nil {
		return nil, nil, b.fail("approve_donation", err)
	}

	b.committed(recorded...)
	b.metrics.Event("donation", "approved")
	b.log.Info("donation approved", "id", id, "blood_group", d.BloodGroup, "units", d.Units,
		"new_units", recorded[0].NewStock, "by", p.Email)

	if writeHistory {
		h := &model.DonationHistory{
			DonorID:        d.DonorID,
			DonationID:     d.ID,
			BloodGroup:     d.BloodGroup,
			Units:          d.Units,
			BloodBagNumber: d.BloodBagNumber,
			DonatedAt:      now,
		}
		if err := store.CreateHistory(ctx, b.db, h); err != nil {
			b.log.Warn("failed to record donation history", "donation_id", d.ID, "error", err)
		}
	}
	return d, &recorded[0], nil
}

// RejectDonation closes a pending donation without touching stock.
func (b *Bank) RejectDonation(ctx context.Context, p Principal, id int64, reason string) (*model.DonationRequest, error) {
	var d *model.DonationRequest
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		d, err = getDonation(ctx, tx, id)
		if err != nil {
			return err
		}
		next, err := workflow.RejectDonation(workflow.DonationStateOf(d), reason)
		if err != nil {
			return err
		}
		now := b.now()
		workflow.ApplyDonationState(d, next)
		d.ReviewedBy = p.Email
		d.ReviewedAt = &now
		d.UpdatedAt = now
		return store.UpdateDonationReview(ctx, tx, d)
	})
	if err != nil {
		return nil, b.fail("reject_donation", err)
	}

	b.metrics.Event("donation", "rejected")
	b.log.Info("donation rejected", "id", id, "by", p.Email)
	return d, nil
}
