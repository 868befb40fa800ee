package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/bloodbank/internal/model"
)

func TestApproveDonation(t *testing.T) {
	dc := DonationContext{DonorID: id(4), BloodGroup: "A+", Units: 2}

	s, effects, err := ApproveDonation(AwaitingReview{}, dc, " BAG-1 ", now)
	require.NoError(t, err)
	assert.Equal(t, Approved{BloodBagNumber: "BAG-1"}, s)
	require.Len(t, effects, 3)
	assert.Equal(t, AdjustStock{BloodGroup: "A+", Delta: 2, TxType: model.TxEntry}, effects[0])

	given, ok := effects[1].(IncrementGiven)
	require.True(t, ok)
	assert.Equal(t, int64(4), given.UserID)
	require.NotNil(t, given.DonatedAt)
	assert.Equal(t, WriteHistory{}, effects[2])

	_, effects, err = ApproveDonation(s, dc, "BAG-1", now)
	assert.Equal(t, model.KindState, model.KindOf(err))
	assert.Empty(t, effects)
}

func TestApproveDonationRequiresBag(t *testing.T) {
	_, _, err := ApproveDonation(AwaitingReview{}, DonationContext{BloodGroup: "A+", Units: 1}, "  ", now)
	assert.Equal(t, model.KindValidation, model.KindOf(err))
}

func TestApproveAnonymousDonationSkipsCounters(t *testing.T) {
	_, effects, err := ApproveDonation(AwaitingReview{}, DonationContext{BloodGroup: "B-", Units: 1}, "BAG-2", now)
	require.NoError(t, err)
	assert.Equal(t, []Effect{
		AdjustStock{BloodGroup: "B-", Delta: 1, TxType: model.TxEntry},
		WriteHistory{},
	}, effects)
}

func TestRejectDonation(t *testing.T) {
	s, err := RejectDonation(AwaitingReview{}, "anemia")
	require.NoError(t, err)

	d := &model.DonationRequest{}
	ApplyDonationState(d, s)
	assert.Equal(t, model.ApprovalRejected, d.ApprovalStatus)
	assert.Equal(t, model.DonationCancelled, d.Status)
	assert.Equal(t, "anemia", d.RejectionReason)

	_, err = RejectDonation(DonationStateOf(d), "again")
	assert.Equal(t, model.KindState, model.KindOf(err))

	_, _, err = ApproveDonation(DonationStateOf(d), DonationContext{BloodGroup: "A+", Units: 1}, "BAG", now)
	assert.Equal(t, model.KindState, model.KindOf(err))
}
