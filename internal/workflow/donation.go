package workflow

import (
	"strings"
	"time"

	"github.com/erazemk/bloodbank/internal/model"
)

// DonationState is the review position of a donation request.
type DonationState interface {
	ApprovalStatus() string
	donationState()
}

// AwaitingReview donations have passed eligibility and wait for an admin.
type AwaitingReview struct{}

// Approved is terminal. The units have been deposited.
type Approved struct {
	BloodBagNumber string
}

// Rejected is terminal with no stock effect.
type Rejected struct {
	Reason string
}

func (AwaitingReview) ApprovalStatus() string { return model.ApprovalPending }
func (Approved) ApprovalStatus() string       { return model.ApprovalApproved }
func (Rejected) ApprovalStatus() string       { return model.ApprovalRejected }

func (AwaitingReview) donationState() {}
func (Approved) donationState()       {}
func (Rejected) donationState()       {}

// DonationStateOf decodes the persisted columns of d.
func DonationStateOf(d *model.DonationRequest) DonationState {
	switch d.ApprovalStatus {
	case model.ApprovalApproved:
		return Approved{BloodBagNumber: d.BloodBagNumber}
	case model.ApprovalRejected:
		return Rejected{Reason: d.RejectionReason}
	default:
		return AwaitingReview{}
	}
}

// ApplyDonationState encodes s into the review columns of d.
func ApplyDonationState(d *model.DonationRequest, s DonationState) {
	d.ApprovalStatus = s.ApprovalStatus()
	switch st := s.(type) {
	case AwaitingReview:
		d.Status = model.DonationPending
	case Approved:
		d.Status = model.DonationCompleted
		d.BloodBagNumber = st.BloodBagNumber
	case Rejected:
		d.Status = model.DonationCancelled
		d.RejectionReason = st.Reason
	}
}

// DonationContext carries the donation attributes transitions depend on.
type DonationContext struct {
	DonorID    *int64
	BloodGroup string
	Units      int
}

// ApproveDonation deposits the donated units. A second approval is a state
// error so stock is credited only once.
func ApproveDonation(s DonationState, dc DonationContext, bloodBagNumber string, now time.Time) (DonationState, []Effect, error) {
	bag := strings.TrimSpace(bloodBagNumber)
	if bag == "" {
		return s, nil, model.Validationf("blood bag number is required to approve a donation")
	}
	if _, ok := s.(AwaitingReview); !ok {
		return s, nil, model.Statef("donation request has already been %s", s.ApprovalStatus())
	}

	effects := []Effect{
		AdjustStock{BloodGroup: dc.BloodGroup, Delta: dc.Units, TxType: model.TxEntry},
	}
	if dc.DonorID != nil {
		donated := now
		effects = append(effects, IncrementGiven{UserID: *dc.DonorID, Units: dc.Units, DonatedAt: &donated})
	}
	effects = append(effects, WriteHistory{})
	return Approved{BloodBagNumber: bag}, effects, nil
}

// RejectDonation closes a donation without touching stock.
func RejectDonation(s DonationState, reason string) (DonationState, error) {
	if _, ok := s.(AwaitingReview); !ok {
		return s, model.Statef("donation request has already been %s", s.ApprovalStatus())
	}
	return Rejected{Reason: strings.TrimSpace(reason)}, nil
}
