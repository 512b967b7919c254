package gatekeeper

import "time"

// Submission is a contractor application as posted by the signup form.
type Submission struct {
	Name          string `json:"name" validate:"required,max=120"`
	BusinessName  string `json:"business_name" validate:"required,max=160"`
	Email         string `json:"email" validate:"required,email,max=254"`
	Phone         string `json:"phone" validate:"required,min=7,max=32"`
	LicenseNumber string `json:"license_number" validate:"max=64"`
	Password      string `json:"password" validate:"required,min=8,max=72"`

	// Website is the honeypot. The field is hidden from people.
	Website string `json:"website"`

	// FormStartedAt is when the form was rendered, in unix milliseconds.
	FormStartedAt int64 `json:"form_started_at"`

	RemoteAddr string `json:"-"`
}

// Draft is a submission that passed every policy check.
type Draft struct {
	Name          string
	BusinessName  string
	Email         string
	Phone         string
	LicenseNumber string
	Password      string
	RemoteAddr    string
}

type Registration struct {
	UserID       string    `json:"userId"`
	ContractorID string    `json:"contractorId"`
	Email        string    `json:"email"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type VerifyInput struct {
	Token string `json:"token" validate:"required"`
}

type Verification struct {
	UserID             string    `json:"userId"`
	ContractorID       string    `json:"contractorId"`
	VerifiedAt         time.Time `json:"verifiedAt"`
	NotificationQueued bool      `json:"notification_queued"`
}
