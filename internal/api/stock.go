package api

import (
	"net/http"
	"strconv"

	"github.com/erazemk/bloodbank/internal/bank"
	"github.com/erazemk/bloodbank/internal/model"
	"github.com/erazemk/bloodbank/internal/store"
)

// StockHandler handles the admin stock endpoints.
type StockHandler struct {
	Bank *bank.Bank
}

type entryRequest struct {
	BloodGroup     string `json:"bloodGroup"`
	Units          int    `json:"units"`
	DonorName      string `json:"donorName"`
	BloodBagNumber string `json:"bloodBagNumber"`
	Notes          string `json:"notes"`
}

type dispenseRequest struct {
	BloodGroup    string `json:"bloodGroup"`
	Units         int    `json:"units"`
	RecipientName string `json:"recipientName"`
	HospitalName  string `json:"hospitalName"`
	Notes         string `json:"notes"`
}

type exchangeRequest struct {
	FromBloodGroup string `json:"fromBloodGroup"`
	ToBloodGroup   string `json:"toBloodGroup"`
	Units          int    `json:"units"`
	Notes          string `json:"notes"`
}

type disposalRequest struct {
	BloodGroup string `json:"bloodGroup"`
	Units      int    `json:"units"`
	Reason     string `json:"reason"`
}

func (h *StockHandler) respond(w http.ResponseWriter, r *http.Request, tx *model.Transaction, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, tx)
}

// Entry handles POST /api/admin/blood-entry.
func (h *StockHandler) Entry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tx, err := h.Bank.Entry(r.Context(), principal(r), bank.EntryInput(req))
	h.respond(w, r, tx, err)
}

// Dispense handles POST /api/admin/blood-donate.
func (h *StockHandler) Dispense(w http.ResponseWriter, r *http.Request) {
	var req dispenseRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tx, err := h.Bank.Dispense(r.Context(), principal(r), bank.DispenseInput(req))
	h.respond(w, r, tx, err)
}

// Exchange handles POST /api/admin/blood-exchange.
func (h *StockHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tx, err := h.Bank.Exchange(r.Context(), principal(r), bank.ExchangeInput(req))
	h.respond(w, r, tx, err)
}

// Dispose handles POST /api/admin/blood-disposal.
func (h *StockHandler) Dispose(w http.ResponseWriter, r *http.Request) {
	var req disposalRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tx, err := h.Bank.Dispose(r.Context(), principal(r), bank.DisposalInput(req))
	h.respond(w, r, tx, err)
}

// Stock handles GET /api/admin/blood-stock.
func (h *StockHandler) Stock(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.Bank.Stock(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, snapshot)
}

// AllStock handles GET /api/admin/all-blood-stock.
func (h *StockHandler) AllStock(w http.ResponseWriter, r *http.Request) {
	records, err := h.Bank.StockRecords(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, records)
}

// Transactions handles GET /api/admin/transactions.
func (h *StockHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.TransactionFilter{
		Type:       q.Get("type"),
		BloodGroup: q.Get("bloodGroup"),
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		f.Limit = limit
	}

	txs, err := h.Bank.Transactions(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	jsonResponse(w, http.StatusOK, txs)
}
