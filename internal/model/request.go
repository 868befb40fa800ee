package model

import "time"

// Blood request statuses.
const (
	RequestPending   = "pending"
	RequestActive    = "active"
	RequestFulfilled = "fulfilled"
	RequestCancelled = "cancelled"
)

// Approval statuses, shared by blood and donation requests.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// Urgency levels.
const (
	UrgencyNormal    = "normal"
	UrgencyUrgent    = "urgent"
	UrgencyEmergency = "emergency"
)

// FulfilledByBank is the FulfilledBy value for requests served from stock.
const FulfilledByBank = "Blood Bank"

// ValidRequestStatus reports whether s is a blood request status.
func ValidRequestStatus(s string) bool {
	switch s {
	case RequestPending, RequestActive, RequestFulfilled, RequestCancelled:
		return true
	}
	return false
}

// ValidUrgency reports whether u is an urgency level.
func ValidUrgency(u string) bool {
	switch u {
	case UrgencyNormal, UrgencyUrgent, UrgencyEmergency:
		return true
	}
	return false
}

// BloodRequest is a recipient's request for blood.
type BloodRequest struct {
	ID              int64      `json:"id"`
	RequesterID     int64      `json:"requesterId"`
	PatientName     string     `json:"patientName"`
	ContactPhone    string     `json:"contactPhone"`
	ContactEmail    string     `json:"contactEmail,omitempty"`
	BloodGroup      string     `json:"bloodGroup"`
	Units           int        `json:"units"`
	HospitalName    string     `json:"hospitalName"`
	HospitalAddress string     `json:"hospitalAddress"`
	Urgency         string     `json:"urgency"`
	Reason          string     `json:"reason,omitempty"`
	RequiredBy      *time.Time `json:"requiredBy,omitempty"`
	Status          string     `json:"status"`
	ApprovalStatus  string     `json:"approvalStatus"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	CountersUpdated bool       `json:"countersUpdated"`
	DonorID         *int64     `json:"donorId,omitempty"`
	DonorName       string     `json:"donorName,omitempty"`
	DonorPhone      string     `json:"donorPhone,omitempty"`
	FulfilledBy     string     `json:"fulfilledBy,omitempty"`
	FulfilledAt     *time.Time `json:"fulfilledAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}
