package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/bloodbank/internal/bank"
	"github.com/erazemk/bloodbank/internal/model"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
func decodeOptionalJSON(r *http.Request, target any) error {
	err := decodeJSON(r, target)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

type insufficientStockResponse struct {
	Error          string `json:"error"`
	AvailableUnits int    `json:"availableUnits"`
}

type ineligibleResponse struct {
	Error                string            `json:"error"`
	IneligibilityReasons []string          `json:"ineligibilityReasons"`
	WarningMessages      []string          `json:"warningMessages"`
	Eligibility          model.Eligibility `json:"eligibility"`
}

func statusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindValidation, model.KindInsufficientStock, model.KindState:
		return http.StatusBadRequest
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a bank error to its HTTP response. Untyped errors are
// logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ineligible *bank.IneligibleError
	if errors.As(err, &ineligible) {
		jsonResponse(w, http.StatusBadRequest, ineligibleResponse{
			Error:                "Donor is not eligible to donate",
			IneligibilityReasons: ineligible.Result.IneligibilityReasons,
			WarningMessages:      ineligible.Result.WarningMessages,
			Eligibility:          ineligible.Result,
		})
		return
	}

	var domainErr *model.Error
	if errors.As(err, &domainErr) && domainErr.Kind != model.KindInternal {
		if domainErr.Kind == model.KindInsufficientStock {
			jsonResponse(w, http.StatusBadRequest, insufficientStockResponse{
				Error:          domainErr.Message,
				AvailableUnits: domainErr.Available,
			})
			return
		}
		jsonError(w, statusFor(domainErr.Kind), domainErr.Message)
		return
	}

	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	jsonError(w, http.StatusInternalServerError, "internal error")
}

// pathID parses the {id} path value. Handlers answer 404 when it fails, as
// an unparseable id names no record.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. Empty input
// yields nil.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, model.Validationf("invalid date %q", s)
	}
	return &t, nil
}
