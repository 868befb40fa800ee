package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/erazemk/bloodbank/internal/bank"
	"github.com/erazemk/bloodbank/internal/model"
	"github.com/erazemk/bloodbank/internal/store"
)

// DonationsHandler handles donation request endpoints.
type DonationsHandler struct {
	Bank *bank.Bank
}

type donationRequest struct {
	Name              string              `json:"name"`
	Email             string              `json:"email"`
	Phone             string              `json:"phone"`
	Gender            string              `json:"gender"`
	DateOfBirth       string              `json:"dateOfBirth"`
	Weight            decimal.NullDecimal `json:"weight"`
	BloodGroup        string              `json:"bloodGroup"`
	Units             int                 `json:"units"`
	LastDonationDate  string              `json:"lastDonationDate"`
	MedicalConditions string              `json:"medicalConditions"`
	Address           string              `json:"address"`
	PreferredDate     string              `json:"preferredDate"`
}

type approveDonationRequest struct {
	BloodBagNumber string `json:"bloodBagNumber"`
}

type approveDonationResponse struct {
	Donation    *model.DonationRequest `json:"donation"`
	Transaction *model.Transaction     `json:"transaction"`
}

type myDonationsResponse struct {
	Requests []model.DonationRequest `json:"requests"`
	History  []model.DonationHistory `json:"history"`
}

func (d donationRequest) input() (bank.DonationInput, error) {
	dob, err := parseDate(d.DateOfBirth)
	if err != nil {
		return bank.DonationInput{}, err
	}
	last, err := parseDate(d.LastDonationDate)
	if err != nil {
		return bank.DonationInput{}, err
	}
	preferred, err := parseDate(d.PreferredDate)
	if err != nil {
		return bank.DonationInput{}, err
	}
	return bank.DonationInput{
		Name:              d.Name,
		Email:             d.Email,
		Phone:             d.Phone,
		Gender:            d.Gender,
		DateOfBirth:       dob,
		Weight:            d.Weight,
		BloodGroup:        d.BloodGroup,
		Units:             d.Units,
		LastDonationDate:  last,
		MedicalConditions: d.MedicalConditions,
		Address:           d.Address,
		PreferredDate:     preferred,
	}, nil
}

func (h *DonationsHandler) decode(w http.ResponseWriter, r *http.Request) (bank.DonationInput, bool) {
	var req donationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return bank.DonationInput{}, false
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return bank.DonationInput{}, false
	}
	return in, true
}

// Create handles POST /api/donation-requests.
func (h *DonationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	created, err := h.Bank.SubmitDonation(r.Context(), principal(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, created)
}

// Eligibility handles POST /api/donation-requests/eligibility.
func (h *DonationsHandler) Eligibility(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	result, err := h.Bank.CheckEligibility(r.Context(), principal(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

// Mine handles GET /api/donation-requests/mine.
func (h *DonationsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	requests, history, err := h.Bank.MyDonations(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if requests == nil {
		requests = []model.DonationRequest{}
	}
	if history == nil {
		history = []model.DonationHistory{}
	}
	jsonResponse(w, http.StatusOK, myDonationsResponse{Requests: requests, History: history})
}

// List handles GET /api/donation-requests.
func (h *DonationsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	donations, err := h.Bank.ListDonations(r.Context(), store.DonationFilter{
		ApprovalStatus: q.Get("approvalStatus"),
		BloodGroup:     q.Get("bloodGroup"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if donations == nil {
		donations = []model.DonationRequest{}
	}
	jsonResponse(w, http.StatusOK, donations)
}

// Approve handles PUT /api/donation-requests/{id}/approve.
func (h *DonationsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusNotFound, "donation request not found")
		return
	}

	var body approveDonationRequest
	if err := decodeOptionalJSON(r, &body); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	donation, tx, err := h.Bank.ApproveDonation(r.Context(), principal(r), id, body.BloodBagNumber)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, approveDonationResponse{Donation: donation, Transaction: tx})
}

// Reject handles PUT /api/donation-requests/{id}/reject.
func (h *DonationsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusNotFound, "donation request not found")
		return
	}

	var body rejectRequest
	if err := decodeOptionalJSON(r, &body); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	donation, err := h.Bank.RejectDonation(r.Context(), principal(r), id, body.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, donation)
}
