// Package workflow holds the blood request and donation state machines.
//
// States are tagged unions. A transition takes the current state and returns
// the next state together with the side effects the caller must execute, in
// order. Counter effects are only emitted by transitions leaving a state that
// has not yet settled counters, so applying them exactly once follows from
// the state types rather than from a flag checked at the call site.
package workflow

import "time"

// Effect is a side effect requested by a transition.
type Effect interface {
	effect()
}

// AdjustStock applies Delta to the stock of BloodGroup and records an audit
// transaction of type TxType with the resulting balances.
type AdjustStock struct {
	BloodGroup string
	Delta      int
	TxType     string
}

// IncrementTaken adds Units to a recipient's lifetime received count.
type IncrementTaken struct {
	UserID int64
	Units  int
}

// IncrementGiven adds Units to a donor's lifetime donated count. DonatedAt,
// when set, becomes the donor's last donation date.
type IncrementGiven struct {
	UserID    int64
	Units     int
	DonatedAt *time.Time
}

// WriteHistory requests a best-effort donation history entry.
type WriteHistory struct{}

func (AdjustStock) effect()    {}
func (IncrementTaken) effect() {}
func (IncrementGiven) effect() {}
func (WriteHistory) effect()   {}
