package model

import "time"

// Transaction types.
const (
	TxEntry    = "entry"
	TxDonate   = "donate"
	TxExchange = "exchange"
	TxDisposal = "disposal"
)

// TxStatusCompleted is the only status a recorded transaction can have.
const TxStatusCompleted = "completed"

// Transaction is an immutable audit row for one stock-affecting operation.
// For exchanges, BloodGroup and the Previous/New stock fields describe the
// source group and the To* fields describe the destination.
type Transaction struct {
	ID              int64     `json:"id"`
	Reference       string    `json:"reference"`
	Type            string    `json:"type"`
	BloodGroup      string    `json:"bloodGroup"`
	ToBloodGroup    string    `json:"toBloodGroup,omitempty"`
	Units           int       `json:"units"`
	ActorID         *int64    `json:"actorId,omitempty"`
	ActorEmail      string    `json:"actorEmail,omitempty"`
	DonorName       string    `json:"donorName,omitempty"`
	RecipientName   string    `json:"recipientName,omitempty"`
	HospitalName    string    `json:"hospitalName,omitempty"`
	BloodBagNumber  string    `json:"bloodBagNumber,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	PreviousStock   int       `json:"previousStock"`
	NewStock        int       `json:"newStock"`
	ToPreviousStock *int      `json:"toPreviousStock,omitempty"`
	ToNewStock      *int      `json:"toNewStock,omitempty"`
	RequestID       *int64    `json:"requestId,omitempty"`
	DonationID      *int64    `json:"donationId,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Actor identifies the principal performing an operation.
type Actor struct {
	UserID *int64
	Email  string
}

// Label is the value stored in StockRecord.UpdatedBy.
func (a Actor) Label() string {
	if a.Email != "" {
		return a.Email
	}
	return "system"
}
