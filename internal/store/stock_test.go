package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/bloodbank/internal/db"
	"github.com/erazemk/bloodbank/internal/model"
)

var testActor = model.Actor{Email: "admin@example.com"}

func TestApplyDeltaDepositCreatesRecord(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	bal, err := ApplyDelta(ctx, database, "A+", 5, testActor, now)
	require.NoError(t, err)
	assert.Equal(t, model.Balance{PreviousUnits: 0, NewUnits: 5}, bal)

	bal, err = ApplyDelta(ctx, database, "A+", 3, testActor, now)
	require.NoError(t, err)
	assert.Equal(t, model.Balance{PreviousUnits: 5, NewUnits: 8}, bal)

	records, err := ListStock(ctx, database)
	require.NoError(t, err)
	require.Len(t, records, len(model.BloodGroups))
	assert.Equal(t, "A+", records[0].BloodGroup)
	assert.Equal(t, 8, records[0].Units)
	assert.Equal(t, "admin@example.com", records[0].UpdatedBy)
	assert.True(t, records[0].LastUpdated.Equal(now))
}

func TestApplyDeltaWithdrawalBeyondBalanceFails(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Now()

	_, err := ApplyDelta(ctx, database, "O-", 2, testActor, now)
	require.NoError(t, err)

	_, err = ApplyDelta(ctx, database, "O-", -3, testActor, now)
	require.Error(t, err)

	var domainErr *model.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, model.KindInsufficientStock, domainErr.Kind)
	assert.Equal(t, 2, domainErr.Available)
	assert.Contains(t, domainErr.Message, "Only 2 unit(s) available")

	units, err := GetUnits(ctx, database, "O-")
	require.NoError(t, err)
	assert.Equal(t, 2, units, "failed withdrawal must leave stock unchanged")
}

func TestApplyDeltaWithdrawalWithoutRecordFails(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := ApplyDelta(ctx, database, "B-", -1, testActor, time.Now())
	require.Error(t, err)
	assert.Equal(t, model.KindInsufficientStock, model.KindOf(err))

	snapshot, err := StockSnapshot(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, 0, snapshot["B-"])
}

func TestApplyDeltaWithdrawToZero(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := ApplyDelta(ctx, database, "AB+", 4, testActor, time.Now())
	require.NoError(t, err)

	bal, err := ApplyDelta(ctx, database, "AB+", -4, testActor, time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.Balance{PreviousUnits: 4, NewUnits: 0}, bal)
}

func TestApplyDeltaRejectsBadInput(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := ApplyDelta(ctx, database, "C+", 1, testActor, time.Now())
	assert.Equal(t, model.KindValidation, model.KindOf(err))

	_, err = ApplyDelta(ctx, database, "A+", 0, testActor, time.Now())
	assert.Equal(t, model.KindValidation, model.KindOf(err))
}

func TestApplyDeltaConcurrentUpdatesCompose(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := ApplyDelta(ctx, database, "O+", 100, testActor, time.Now())
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers*2)
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := ApplyDelta(ctx, database, "O+", 3, testActor, time.Now())
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := ApplyDelta(ctx, database, "O+", -2, testActor, time.Now())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	units, err := GetUnits(ctx, database, "O+")
	require.NoError(t, err)
	assert.Equal(t, 100+workers*3-workers*2, units)
}

func TestStockSnapshotDefaultsAllGroups(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := ApplyDelta(ctx, database, "A-", 7, testActor, time.Now())
	require.NoError(t, err)

	snapshot, err := StockSnapshot(ctx, database)
	require.NoError(t, err)
	require.Len(t, snapshot, 8)
	for _, g := range model.BloodGroups {
		want := 0
		if g == "A-" {
			want = 7
		}
		assert.Equal(t, want, snapshot[g], g)
	}
}
