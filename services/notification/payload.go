package notification

import "time"

type VerificationPayload struct {
	UserID       string    `json:"user_id"`
	ContractorID string    `json:"contractor_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Token        string    `json:"token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type ApplicationPayload struct {
	ContractorID string `json:"contractor_id"`
	BusinessName string `json:"business_name"`
	Email        string `json:"email"`
}

type InvitationPayload struct {
	InvitationID    string    `json:"invitation_id"`
	LeadID          string    `json:"lead_id"`
	ContractorID    string    `json:"contractor_id"`
	ContractorEmail string    `json:"contractor_email"`
	ContractorName  string    `json:"contractor_name"`
	Token           string    `json:"token"`
	ExpiresAt       time.Time `json:"expires_at"`
}

type LeadAssignedPayload struct {
	AssignmentID    string `json:"assignment_id"`
	LeadID          string `json:"lead_id"`
	ContractorID    string `json:"contractor_id"`
	ContractorEmail string `json:"contractor_email"`
	ContractorName  string `json:"contractor_name"`
}

type QuoteSubmittedPayload struct {
	QuoteID        string `json:"quote_id"`
	LeadID         string `json:"lead_id"`
	LeadName       string `json:"lead_name"`
	LeadEmail      string `json:"lead_email"`
	LeadPhone      string `json:"lead_phone"`
	ContractorName string `json:"contractor_name"`
	Amount         string `json:"amount"`
	Timeline       string `json:"timeline"`
}

type PaymentReleasedPayload struct {
	JobID           string    `json:"job_id"`
	Code            string    `json:"code"`
	ContractorID    string    `json:"contractor_id"`
	ContractorEmail string    `json:"contractor_email"`
	Title           string    `json:"title"`
	Payment         string    `json:"payment"`
	ReleasedAt      time.Time `json:"released_at"`
}
