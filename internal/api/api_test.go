package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/bloodbank/internal/auth"
	"github.com/erazemk/bloodbank/internal/bank"
	"github.com/erazemk/bloodbank/internal/db"
	"github.com/erazemk/bloodbank/internal/metrics"
	"github.com/erazemk/bloodbank/internal/model"
	"github.com/erazemk/bloodbank/internal/store"
)

const (
	testJWTSecret = "test-secret"
	testOrigin    = "http://localhost:5173"
	adminPassword = "admin-password"
)

type testServer struct {
	*httptest.Server
	adminToken string
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	database := db.NewTestDB(t)
	m := metrics.New()
	router := NewRouter(database, testJWTSecret, bank.New(database, bank.WithMetrics(m)), Options{
		AllowedOrigins: []string{testOrigin},
		Metrics:        m,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = store.CreateUser(context.Background(), database, store.NewUser{
		Email: "admin@example.com", PasswordHash: string(hash), Role: model.RoleAdmin, Name: "Admin",
	})
	require.NoError(t, err)

	ts := &testServer{Server: server}
	ts.adminToken = ts.login(t, "admin@example.com", adminPassword)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (ts *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := decode[loginResponse](t, resp).Token
	require.NotEmpty(t, token)
	return token
}

func (ts *testServer) register(t *testing.T, email string) (string, *model.User) {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "password": "donor-password", "name": "Donor " + email,
		"phone": "555-0100", "bloodGroup": "A+", "dateOfBirth": "1990-05-10",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decode[loginResponse](t, resp)
	return body.Token, body.User
}

func (ts *testServer) createRequest(t *testing.T, token, group string, units int) model.BloodRequest {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/blood-requests", token, map[string]any{
		"patientName": "Patient", "contactPhone": "555-0199", "bloodGroup": group, "units": units,
		"hospitalName": "General", "hospitalAddress": "1 Main St", "urgency": "urgent",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[model.BloodRequest](t, resp)
}

func requestPath(id int64, action string) string {
	p := "/api/blood-requests/" + strconv.FormatInt(id, 10)
	if action != "" {
		p += "/" + action
	}
	return p
}

func TestLoginEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "admin@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ADMIN@example.com", "password": adminPassword})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterAndProfile(t *testing.T) {
	ts := setupTestServer(t)
	token, user := ts.register(t, "donor@example.com")
	assert.Equal(t, model.RoleUser, user.Role)

	resp := ts.do(t, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[map[string]any](t, resp)
	assert.Equal(t, "donor@example.com", me["email"])
	assert.Equal(t, 0.0, me["bloodGiven"])
	assert.Equal(t, []any{}, me["donationHistory"])

	resp = ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "donor@example.com", "password": "another-password", "name": "Again",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "short@example.com", "password": "short", "name": "Short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogoutRevokesToken(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.register(t, "donor@example.com")

	resp := ts.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChangePassword(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.register(t, "donor@example.com")

	resp := ts.do(t, http.MethodPut, "/api/auth/password", token, map[string]string{
		"currentPassword": "wrong-password", "newPassword": "new-donor-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, http.MethodPut, "/api/auth/password", token, map[string]string{
		"currentPassword": "donor-password", "newPassword": "new-donor-password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ts.login(t, "donor@example.com", "new-donor-password")
}

func TestUnauthenticatedAccess(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/blood-requests", "", map[string]string{"patientName": "X"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/blood-requests", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]model.BloodRequest](t, resp))
}

func TestRoleBasedAccess(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.register(t, "donor@example.com")

	for _, path := range []string{"/api/users", "/api/admin/blood-stock", "/api/admin/transactions", "/api/donation-requests"} {
		resp := ts.do(t, http.MethodGet, path, token, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
	}

	forged, err := auth.GenerateToken("other-secret", 1, "admin@example.com", model.RoleAdmin, time.Now())
	require.NoError(t, err)
	resp := ts.do(t, http.MethodGet, "/api/users", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBloodStockDefaultsAllGroups(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/admin/blood-stock", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stock := decode[map[string]int](t, resp)
	assert.Len(t, stock, len(model.BloodGroups))
	for _, g := range model.BloodGroups {
		assert.Equal(t, 0, stock[g], g)
	}

	resp = ts.do(t, http.MethodGet, "/api/admin/all-blood-stock", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.StockRecord](t, resp), len(model.BloodGroups))
}

func TestDonateFromBankInsufficientStock(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.register(t, "requester@example.com")
	r := ts.createRequest(t, token, "O-", 3)

	resp := ts.do(t, http.MethodPost, "/api/admin/blood-entry", ts.adminToken, map[string]any{"bloodGroup": "O-", "units": 2})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.do(t, http.MethodPut, requestPath(r.ID, "donate-from-bank"), ts.adminToken, map[string]int{"units": 3})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[insufficientStockResponse](t, resp)
	assert.Equal(t, 2, body.AvailableUnits)
	assert.Contains(t, body.Error, "Only 2 unit(s) available")

	resp = ts.do(t, http.MethodGet, requestPath(r.ID, ""), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.RequestPending, decode[model.BloodRequest](t, resp).Status)
}

func TestBloodRequestFlow(t *testing.T) {
	ts := setupTestServer(t)
	requesterToken, _ := ts.register(t, "requester@example.com")
	donorToken, _ := ts.register(t, "donor@example.com")
	r := ts.createRequest(t, requesterToken, "A+", 1)

	resp := ts.do(t, http.MethodGet, "/api/blood-requests", "", nil)
	assert.Empty(t, decode[[]model.BloodRequest](t, resp))

	resp = ts.do(t, http.MethodPut, requestPath(r.ID, "approve"), ts.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/blood-requests", "", nil)
	assert.Len(t, decode[[]model.BloodRequest](t, resp), 1)

	resp = ts.do(t, http.MethodPut, requestPath(r.ID, "donate"), requesterToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodPut, requestPath(r.ID, "donate"), ts.adminToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.do(t, http.MethodPut, requestPath(r.ID, "donate"), donorToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.RequestActive, decode[model.BloodRequest](t, resp).Status)

	resp = ts.do(t, http.MethodPut, requestPath(r.ID, "status"), ts.adminToken, map[string]string{"status": "fulfilled"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/users/me", requesterToken, nil)
	assert.Equal(t, 1.0, decode[map[string]any](t, resp)["bloodTaken"])
	resp = ts.do(t, http.MethodGet, "/api/users/me", donorToken, nil)
	assert.Equal(t, 1.0, decode[map[string]any](t, resp)["bloodGiven"])

	resp = ts.do(t, http.MethodPut, requestPath(r.ID, "status"), ts.adminToken, map[string]string{"status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodDelete, requestPath(r.ID, ""), donorToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = ts.do(t, http.MethodDelete, requestPath(r.ID, ""), requesterToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDonationFlow(t *testing.T) {
	ts := setupTestServer(t)
	donorToken, _ := ts.register(t, "donor@example.com")

	resp := ts.do(t, http.MethodPost, "/api/donation-requests", donorToken, map[string]any{"weight": 40, "phone": "555"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	ineligible := decode[ineligibleResponse](t, resp)
	assert.Contains(t, ineligible.IneligibilityReasons, "Minimum weight requirement is 50kg (provided: 40kg)")

	resp = ts.do(t, http.MethodPost, "/api/donation-requests/eligibility", donorToken, map[string]any{"weight": 72.5})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[model.Eligibility](t, resp).IsEligible)

	resp = ts.do(t, http.MethodPost, "/api/donation-requests", donorToken, map[string]any{"weight": 72.5, "units": 1})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	donation := decode[model.DonationRequest](t, resp)
	approvePath := "/api/donation-requests/" + strconv.FormatInt(donation.ID, 10) + "/approve"

	resp = ts.do(t, http.MethodPut, approvePath, ts.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodPut, approvePath, ts.adminToken, map[string]string{"bloodBagNumber": "BAG-7"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	approved := decode[approveDonationResponse](t, resp)
	assert.Equal(t, model.DonationCompleted, approved.Donation.Status)
	assert.Equal(t, 1, approved.Transaction.NewStock)

	resp = ts.do(t, http.MethodPut, approvePath, ts.adminToken, map[string]string{"bloodBagNumber": "BAG-8"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/admin/blood-stock", ts.adminToken, nil)
	assert.Equal(t, 1, decode[map[string]int](t, resp)["A+"])

	resp = ts.do(t, http.MethodGet, "/api/donation-requests/mine", donorToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	mine := decode[myDonationsResponse](t, resp)
	assert.Len(t, mine.Requests, 1)
	assert.Len(t, mine.History, 1)
}

func TestExchangeAndTransactions(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/admin/blood-entry", ts.adminToken, map[string]any{"bloodGroup": "B+", "units": 4})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/admin/blood-exchange", ts.adminToken, map[string]any{
		"fromBloodGroup": "B+", "toBloodGroup": "O+", "units": 3,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/admin/blood-disposal", ts.adminToken, map[string]any{
		"bloodGroup": "B+", "units": 2, "reason": "expired",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 1, decode[insufficientStockResponse](t, resp).AvailableUnits)

	resp = ts.do(t, http.MethodGet, "/api/admin/transactions?bloodGroup=O%2B", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	txs := decode[[]model.Transaction](t, resp)
	require.Len(t, txs, 1)
	assert.Equal(t, model.TxExchange, txs[0].Type)
	require.NotNil(t, txs[0].ToNewStock)
	assert.Equal(t, 3, *txs[0].ToNewStock)
}

func TestAvatarUpload(t *testing.T) {
	ts := setupTestServer(t)
	token, user := ts.register(t, "donor@example.com")

	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	img.Set(1, 1, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/users/me/avatar", &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/users/"+strconv.FormatInt(user.ID, 10)+"/avatar", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

	resp = ts.do(t, http.MethodGet, "/api/users/999/avatar", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsAndCORS(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "go_goroutines")

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/blood-requests", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, testOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestInvalidIDsAreNotFound(t *testing.T) {
	ts := setupTestServer(t)
	donorToken, _ := ts.register(t, "donor@example.com")

	tests := []struct {
		method, path, token string
	}{
		{http.MethodPut, "/api/blood-requests/abc/donate", donorToken},
		{http.MethodPut, "/api/blood-requests/0/donate", donorToken},
		{http.MethodPut, "/api/blood-requests/-3/donate", donorToken},
		{http.MethodGet, "/api/blood-requests/abc", ""},
		{http.MethodPut, "/api/blood-requests/abc/status", ts.adminToken},
		{http.MethodPut, "/api/donation-requests/abc/approve", ts.adminToken},
		{http.MethodDelete, "/api/users/abc", ts.adminToken},
		{http.MethodGet, "/api/users/abc/avatar", ""},
	}
	for _, tt := range tests {
		resp := ts.do(t, tt.method, tt.path, tt.token, map[string]string{})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, "%s %s", tt.method, tt.path)
		assert.Contains(t, decode[map[string]string](t, resp)["error"], "not found", tt.path)
	}

	resp := ts.do(t, http.MethodPut, requestPath(9999, "donate"), donorToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateStatusUnknownDonor(t *testing.T) {
	ts := setupTestServer(t)
	requesterToken, _ := ts.register(t, "requester@example.com")
	r := ts.createRequest(t, requesterToken, "B+", 1)

	resp := ts.do(t, http.MethodPut, requestPath(r.ID, "status"), ts.adminToken, map[string]any{
		"status": "fulfilled", "donorId": 9999,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "donor not found", decode[map[string]string](t, resp)["error"])

	resp = ts.do(t, http.MethodGet, requestPath(r.ID, ""), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.RequestPending, decode[model.BloodRequest](t, resp).Status)
}
