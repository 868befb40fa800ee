package workflow

import (
	"time"

	"github.com/erazemk/bloodbank/internal/model"
)

// Donor identifies whoever fulfils a blood request.
type Donor struct {
	UserID *int64
	Name   string
	Phone  string
}

// RequestState is the lifecycle position of a blood request.
type RequestState interface {
	Status() string
	requestState()
}

// Pending requests wait for a donor or the bank.
type Pending struct{}

// Active requests have a donor attached whose counters are not yet applied.
type Active struct {
	Donor *Donor
}

// Pledged requests are active with a direct donor whose counters, and the
// requester's, were applied when the pledge was made.
type Pledged struct {
	Donor Donor
}

// Fulfilled is terminal. Counters are settled.
type Fulfilled struct {
	Donor       *Donor
	FulfilledBy string
	At          time.Time
}

// Cancelled is terminal.
type Cancelled struct{}

func (Pending) Status() string   { return model.RequestPending }
func (Active) Status() string    { return model.RequestActive }
func (Pledged) Status() string   { return model.RequestActive }
func (Fulfilled) Status() string { return model.RequestFulfilled }
func (Cancelled) Status() string { return model.RequestCancelled }

func (Pending) requestState()   {}
func (Active) requestState()    {}
func (Pledged) requestState()   {}
func (Fulfilled) requestState() {}
func (Cancelled) requestState() {}

// RequestStateOf decodes the persisted columns of r.
func RequestStateOf(r *model.BloodRequest) RequestState {
	donor := donorOf(r)
	switch r.Status {
	case model.RequestActive:
		if r.CountersUpdated {
			var d Donor
			if donor != nil {
				d = *donor
			}
			return Pledged{Donor: d}
		}
		return Active{Donor: donor}
	case model.RequestFulfilled:
		var at time.Time
		if r.FulfilledAt != nil {
			at = *r.FulfilledAt
		}
		return Fulfilled{Donor: donor, FulfilledBy: r.FulfilledBy, At: at}
	case model.RequestCancelled:
		return Cancelled{}
	default:
		return Pending{}
	}
}

// ApplyRequestState encodes s into the workflow columns of r.
func ApplyRequestState(r *model.BloodRequest, s RequestState) {
	r.Status = s.Status()
	r.CountersUpdated = false
	var donor *Donor
	switch st := s.(type) {
	case Active:
		donor = st.Donor
	case Pledged:
		donor = &st.Donor
		r.CountersUpdated = true
	case Fulfilled:
		donor = st.Donor
		r.CountersUpdated = true
		r.FulfilledBy = st.FulfilledBy
		at := st.At
		r.FulfilledAt = &at
	}
	if donor != nil {
		r.DonorID = donor.UserID
		r.DonorName = donor.Name
		r.DonorPhone = donor.Phone
	}
}

func donorOf(r *model.BloodRequest) *Donor {
	if r.DonorID == nil && r.DonorName == "" {
		return nil
	}
	return &Donor{UserID: r.DonorID, Name: r.DonorName, Phone: r.DonorPhone}
}

// RequestContext carries the request attributes transitions depend on.
type RequestContext struct {
	RequesterID int64
	BloodGroup  string
}

// Pledge moves a pending request to active with a direct donor. The donor
// and requester counters are applied immediately.
func Pledge(s RequestState, rc RequestContext, donor Donor) (RequestState, []Effect, error) {
	if _, ok := s.(Pending); !ok {
		return s, nil, model.Statef("blood request is %s; only pending requests can receive a donation", s.Status())
	}
	effects := []Effect{IncrementTaken{UserID: rc.RequesterID, Units: 1}}
	if donor.UserID != nil {
		effects = append(effects, IncrementGiven{UserID: *donor.UserID, Units: 1})
	}
	return Pledged{Donor: donor}, effects, nil
}

// FulfilFromBank serves a pending request from stock. The withdrawal comes
// first so that insufficient stock aborts before anything else is written.
func FulfilFromBank(s RequestState, rc RequestContext, units int, now time.Time) (RequestState, []Effect, error) {
	if _, ok := s.(Pending); !ok {
		return s, nil, model.Statef("blood request is %s; only pending requests can be served from the bank", s.Status())
	}
	if units <= 0 {
		return s, nil, model.Validationf("units must be positive")
	}
	effects := []Effect{
		AdjustStock{BloodGroup: rc.BloodGroup, Delta: -units, TxType: model.TxDonate},
		IncrementTaken{UserID: rc.RequesterID, Units: 1},
	}
	return Fulfilled{FulfilledBy: model.FulfilledByBank, At: now}, effects, nil
}

// Transition moves a request to the target status on an admin's behalf.
// Entering fulfilled from a state without settled counters applies them.
func Transition(s RequestState, rc RequestContext, target string, fulfiller *Donor, now time.Time) (RequestState, []Effect, error) {
	if !model.ValidRequestStatus(target) {
		return s, nil, model.Validationf("invalid status %q", target)
	}

	switch s.(type) {
	case Fulfilled, Cancelled:
		return s, nil, model.Statef("blood request is already %s", s.Status())
	}

	switch target {
	case model.RequestActive:
		if _, ok := s.(Pending); !ok {
			return s, nil, model.Statef("blood request is already active")
		}
		return Active{Donor: fulfiller}, nil, nil

	case model.RequestCancelled:
		return Cancelled{}, nil, nil

	case model.RequestFulfilled:
		var donor *Donor
		var settled bool
		switch st := s.(type) {
		case Active:
			donor = st.Donor
		case Pledged:
			donor = &st.Donor
			settled = true
		}
		if fulfiller != nil && !settled {
			donor = fulfiller
		}

		next := Fulfilled{Donor: donor, At: now}
		if donor != nil {
			next.FulfilledBy = donor.Name
		}
		if settled {
			return next, nil, nil
		}
		effects := []Effect{IncrementTaken{UserID: rc.RequesterID, Units: 1}}
		if donor != nil && donor.UserID != nil {
			effects = append(effects, IncrementGiven{UserID: *donor.UserID, Units: 1})
		}
		return next, effects, nil

	default:
		return s, nil, model.Statef("blood request cannot return to %s", target)
	}
}

// ReviewRequest sets the approval dimension. It never touches the status.
func ReviewRequest(current string, approve bool) (string, error) {
	if current != model.ApprovalPending {
		return current, model.Statef("blood request has already been %s", current)
	}
	if approve {
		return model.ApprovalApproved, nil
	}
	return model.ApprovalRejected, nil
}
