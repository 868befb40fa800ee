package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/bloodbank/internal/db"
	"github.com/erazemk/bloodbank/internal/model"
)

func newTestDonation(donorID *int64, now time.Time) *model.DonationRequest {
	age := 30
	return &model.DonationRequest{
		DonorID:    donorID,
		Name:       "Donor",
		Phone:      "555-0101",
		Weight:     decimal.NewNullDecimal(decimal.RequireFromString("72.5")),
		BloodGroup: "A+",
		Units:      1,
		Eligibility: model.Eligibility{
			IsEligible:           true,
			IneligibilityReasons: []string{},
			WarningMessages:      []string{"Date of birth not provided"},
			Checks:               model.EligibilityChecks{Age: &age},
		},
		ApprovalStatus: model.ApprovalPending,
		Status:         model.DonationPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestCreateAndGetDonation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, database, "donation@example.com")

	d, err := CreateDonation(ctx, database, newTestDonation(&user.ID, time.Now()))
	require.NoError(t, err)
	require.True(t, d.Weight.Valid)
	assert.True(t, d.Weight.Decimal.Equal(decimal.RequireFromString("72.5")))
	assert.True(t, d.Eligibility.IsEligible)
	assert.Equal(t, []string{"Date of birth not provided"}, d.Eligibility.WarningMessages)
	require.NotNil(t, d.Eligibility.Checks.Age)
	assert.Equal(t, 30, *d.Eligibility.Checks.Age)

	mine, err := ListDonations(ctx, database, DonationFilter{DonorID: user.ID})
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestUpdateDonationReviewOnlyOnce(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Now()

	d, err := CreateDonation(ctx, database, newTestDonation(nil, now))
	require.NoError(t, err)

	d.ApprovalStatus = model.ApprovalRejected
	d.Status = model.DonationCancelled
	d.RejectionReason = "low hemoglobin"
	d.ReviewedAt = &now
	require.NoError(t, UpdateDonationReview(ctx, database, d))

	d.ApprovalStatus = model.ApprovalApproved
	err = UpdateDonationReview(ctx, database, d)
	assert.Equal(t, model.KindState, model.KindOf(err))

	got, err := GetDonation(ctx, database, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalRejected, got.ApprovalStatus)
	assert.Equal(t, "low hemoglobin", got.RejectionReason)

	pending, err := ListDonations(ctx, database, DonationFilter{ApprovalStatus: model.ApprovalPending})
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDonationHistory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, database, "history@example.com")

	d, err := CreateDonation(ctx, database, newTestDonation(&user.ID, time.Now()))
	require.NoError(t, err)

	h := &model.DonationHistory{
		DonorID: &user.ID, DonationID: d.ID, BloodGroup: "A+", Units: 1,
		BloodBagNumber: "BAG-9", DonatedAt: time.Now(),
	}
	require.NoError(t, CreateHistory(ctx, database, h))
	assert.NotZero(t, h.ID)

	// One history row per donation.
	assert.Error(t, CreateHistory(ctx, database, h))

	history, err := ListHistory(ctx, database, user.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "BAG-9", history[0].BloodBagNumber)
}
