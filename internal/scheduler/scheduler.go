// Package scheduler runs the periodic donor maintenance job: it recomputes
// donor availability from the last donation date and purges expired
// revoked tokens.
package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/erazemk/bloodbank/internal/eligibility"
	"github.com/erazemk/bloodbank/internal/store"
)

// DefaultInterval is how often the job runs unless configured otherwise.
const DefaultInterval = 24 * time.Hour

// Result summarizes one run.
type Result struct {
	Checked       int
	BecameAvail   int
	BecameUnavail int
	TokensPurged  int64
}

// Changed is the number of donors whose flag was rewritten.
func (r Result) Changed() int {
	return r.BecameAvail + r.BecameUnavail
}

// RecomputeAvailability marks donors available once the minimum donation
// interval has passed since their last donation. Only donors whose flag
// changes are written.
func RecomputeAvailability(ctx context.Context, db *sql.DB, now time.Time) (Result, error) {
	var res Result
	donors, err := store.ListDonorAvailability(ctx, db)
	if err != nil {
		return res, err
	}

	for _, d := range donors {
		res.Checked++
		available := eligibility.DaysSince(d.LastDonateDate, now) >= eligibility.MinDonationIntervalDays
		if available == d.Available {
			continue
		}
		if err := store.SetAvailability(ctx, db, d.UserID, available); err != nil {
			return res, fmt.Errorf("updating donor %d: %w", d.UserID, err)
		}
		if available {
			res.BecameAvail++
		} else {
			res.BecameUnavail++
		}
	}
	return res, nil
}

// Scheduler runs the maintenance job on a ticker. It runs once immediately
// on Start.
type Scheduler struct {
	DB       *sql.DB
	Interval time.Duration
	Now      func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// New creates a scheduler running every interval. A non-positive interval
// selects DefaultInterval.
func New(db *sql.DB, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		DB:       db,
		Interval: interval,
		Now:      time.Now,
	}
}

// Start launches the job loop. Cancelling ctx stops it as Stop does.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		return
	}
	s.ticker = time.NewTicker(s.Interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run(ctx, s.ticker, s.stop)

	slog.Info("availability scheduler started", "interval", s.Interval)
}

// Stop halts the loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	slog.Info("availability scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	s.RunOnce(ctx)
	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce performs a single pass and logs its outcome.
func (s *Scheduler) RunOnce(ctx context.Context) Result {
	now := s.Now()
	res, err := RecomputeAvailability(ctx, s.DB, now)
	if err != nil {
		slog.Error("availability recompute failed", "error", err)
	}

	purged, err := store.PurgeExpiredTokens(ctx, s.DB, now)
	if err != nil {
		slog.Error("revoked token purge failed", "error", err)
	}
	res.TokensPurged = purged

	slog.Info("availability recomputed",
		"checked", res.Checked,
		"became_available", res.BecameAvail,
		"became_unavailable", res.BecameUnavail,
		"tokens_purged", res.TokensPurged,
	)
	return res
}
