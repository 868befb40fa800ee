package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Donation statuses.
const (
	DonationPending   = "pending"
	DonationCompleted = "completed"
	DonationCancelled = "cancelled"
)

// DonationRequest is a donor's offer to give blood, reviewed by an admin.
type DonationRequest struct {
	ID                int64               `json:"id"`
	DonorID           *int64              `json:"donorId,omitempty"`
	Name              string              `json:"name"`
	Email             string              `json:"email,omitempty"`
	Phone             string              `json:"phone"`
	Gender            string              `json:"gender,omitempty"`
	DateOfBirth       *time.Time          `json:"dateOfBirth,omitempty"`
	Weight            decimal.NullDecimal `json:"weight"`
	BloodGroup        string              `json:"bloodGroup"`
	Units             int                 `json:"units"`
	LastDonationDate  *time.Time          `json:"lastDonationDate,omitempty"`
	MedicalConditions string              `json:"medicalConditions,omitempty"`
	Address           string              `json:"address,omitempty"`
	PreferredDate     *time.Time          `json:"preferredDate,omitempty"`
	Eligibility       Eligibility         `json:"eligibility"`
	ApprovalStatus    string              `json:"approvalStatus"`
	Status            string              `json:"status"`
	BloodBagNumber    string              `json:"bloodBagNumber,omitempty"`
	TransactionID     *int64              `json:"transactionId,omitempty"`
	RejectionReason   string              `json:"rejectionReason,omitempty"`
	ReviewedBy        string              `json:"reviewedBy,omitempty"`
	ReviewedAt        *time.Time          `json:"reviewedAt,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

// Eligibility is the outcome of a donor eligibility evaluation. It is
// snapshotted into each donation request at submission time.
type Eligibility struct {
	IsEligible           bool              `json:"isEligible"`
	IneligibilityReasons []string          `json:"ineligibilityReasons"`
	WarningMessages      []string          `json:"warningMessages"`
	Checks               EligibilityChecks `json:"checks"`
}

// EligibilityChecks holds the measured values behind an evaluation.
// Nil pointers mean the input was not provided.
type EligibilityChecks struct {
	Age                     *int                `json:"age"`
	Weight                  decimal.NullDecimal `json:"weight"`
	DaysSinceLastDonation   *int                `json:"daysSinceLastDonation"`
	HasRestrictedConditions bool                `json:"hasRestrictedConditions"`
}

// DonationHistory is a completed donation credited to a donor.
type DonationHistory struct {
	ID             int64     `json:"id"`
	DonorID        *int64    `json:"donorId,omitempty"`
	DonationID     int64     `json:"donationId"`
	BloodGroup     string    `json:"bloodGroup"`
	Units          int       `json:"units"`
	BloodBagNumber string    `json:"bloodBagNumber"`
	DonatedAt      time.Time `json:"donatedAt"`
}
