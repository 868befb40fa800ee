package model

import "time"

// StockRecord is the unit counter for one blood group.
type StockRecord struct {
	BloodGroup  string    `json:"bloodGroup"`
	Units       int       `json:"units"`
	LastUpdated time.Time `json:"lastUpdated"`
	UpdatedBy   string    `json:"updatedBy,omitempty"`
}

// Balance is the result of a single ledger mutation.
type Balance struct {
	PreviousUnits int `json:"previousUnits"`
	NewUnits      int `json:"newUnits"`
}
