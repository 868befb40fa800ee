package api

import (
	"net/http"

	"github.com/erazemk/bloodbank/internal/bank"
	"github.com/erazemk/bloodbank/internal/model"
	"github.com/erazemk/bloodbank/internal/store"
	"github.com/erazemk/bloodbank/internal/workflow"
)

// RequestsHandler handles blood request endpoints.
type RequestsHandler struct {
	Bank *bank.Bank
}

type createRequestRequest struct {
	PatientName     string `json:"patientName"`
	ContactPhone    string `json:"contactPhone"`
	ContactEmail    string `json:"contactEmail"`
	BloodGroup      string `json:"bloodGroup"`
	Units           int    `json:"units"`
	HospitalName    string `json:"hospitalName"`
	HospitalAddress string `json:"hospitalAddress"`
	Urgency         string `json:"urgency"`
	Reason          string `json:"reason"`
	RequiredBy      string `json:"requiredBy"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type donateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type donateFromBankRequest struct {
	Units int `json:"units"`
}

type donateFromBankResponse struct {
	Request     *model.BloodRequest `json:"request"`
	Transaction *model.Transaction  `json:"transaction"`
}

type updateStatusRequest struct {
	Status     string `json:"status"`
	DonorID    *int64 `json:"donorId"`
	DonorName  string `json:"donorName"`
	DonorPhone string `json:"donorPhone"`
}

func requestsOrEmpty(rs []model.BloodRequest) []model.BloodRequest {
	if rs == nil {
		return []model.BloodRequest{}
	}
	return rs
}

// ListPublic handles GET /api/blood-requests.
func (h *RequestsHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Bank.ListPublicRequests(r.Context(), r.URL.Query().Get("bloodGroup"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, requestsOrEmpty(requests))
}

// ListAll handles GET /api/admin/blood-requests.
func (h *RequestsHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	requests, err := h.Bank.ListRequests(r.Context(), store.RequestFilter{
		Status:         q.Get("status"),
		ApprovalStatus: q.Get("approvalStatus"),
		BloodGroup:     q.Get("bloodGroup"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, requestsOrEmpty(requests))
}

// Get handles GET /api/blood-requests/{id}.
func (h *RequestsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusNotFound, "blood request not found")
		return
	}
	req, err := h.Bank.GetRequest(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, req)
}

// Create handles POST /api/blood-requests.
func (h *RequestsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	requiredBy, err := parseDate(req.RequiredBy)
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := h.Bank.CreateRequest(r.Context(), principal(r), bank.RequestInput{
		PatientName:     req.PatientName,
		ContactPhone:    req.ContactPhone,
		ContactEmail:    req.ContactEmail,
		BloodGroup:      req.BloodGroup,
		Units:           req.Units,
		HospitalName:    req.HospitalName,
		HospitalAddress: req.HospitalAddress,
		Urgency:         req.Urgency,
		Reason:          req.Reason,
		RequiredBy:      requiredBy,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, created)
}

// Delete handles DELETE /api/blood-requests/{id}.
func (h *RequestsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusNotFound, "blood request not found")
		return
	}
	if err := h.Bank.DeleteRequest(r.Context(), principal(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "blood request deleted"})
}

// Approve handles PUT /api/blood-requests/{id}/approve.
func (h *RequestsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, true)
}

// Reject handles PUT /api/blood-requests/{id}/reject.
func (h *RequestsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, false)
}

func (h *RequestsHandler) review(w http.ResponseWriter, r *http.Request, approve bool) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusNotFound, "blood request not found")
		return
	}

	var body rejectRequest
	if err := decodeOptionalJSON(r, &body); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.Bank.ReviewRequest(r.Context(), principal(r), id, approve, body.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// Donate handles PUT /api/blood-requests/{id}/donate. Admins serve
// requests from stock instead.
func (h *RequestsHandler) Donate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusNotFound, "blood request not found")
		return
	}
	p := principal(r)
	if p.Admin {
		jsonError(w, http.StatusForbidden, "admins fulfil requests from the bank")
		return
	}

	var body donateRequest
	if err := decodeOptionalJSON(r, &body); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.Bank.Donate(r.Context(), p, id, body.Name, body.Phone)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// DonateFromBank handles PUT /api/blood-requests/{id}/donate-from-bank.
// Units default to the requested amount.
func (h *RequestsHandler) DonateFromBank(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusNotFound, "blood request not found")
		return
	}

	var body donateFromBankRequest
	if err := decodeOptionalJSON(r, &body); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Units < 0 {
		jsonError(w, http.StatusBadRequest, "units must be a positive number")
		return
	}

	updated, tx, err := h.Bank.DonateFromBank(r.Context(), principal(r), id, body.Units)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, donateFromBankResponse{Request: updated, Transaction: tx})
}

// UpdateStatus handles PUT /api/blood-requests/{id}/status.
func (h *RequestsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusNotFound, "blood request not found")
		return
	}

	var body updateStatusRequest
	if err := decodeJSON(r, &body); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var fulfiller *workflow.Donor
	if body.DonorID != nil || body.DonorName != "" {
		fulfiller = &workflow.Donor{UserID: body.DonorID, Name: body.DonorName, Phone: body.DonorPhone}
	}

	updated, err := h.Bank.UpdateStatus(r.Context(), principal(r), id, body.Status, fulfiller)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}
