package directory

import (
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusSuspended Status = "suspended"
	StatusRejected  Status = "rejected"
)

func (s Status) String() string {
	switch s {
	case StatusPending, StatusApproved, StatusSuspended, StatusRejected:
		return string(s)
	default:
		return ""
	}
}

func (s Status) Valid() bool { return s.String() != "" }

var transitions = map[Status][]Status{
	StatusPending:   {StatusApproved, StatusRejected},
	StatusApproved:  {StatusSuspended},
	StatusSuspended: {StatusApproved},
	StatusRejected:  {StatusApproved},
}

// CanTransition reports whether an operator may move a contractor from one
// status to another.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// User is the login identity that owns a contractor account.
type User struct {
	ID                    string     `gorm:"column:id;primaryKey" json:"id"`
	Email                 string     `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PasswordHash          string     `gorm:"column:password_hash;not null" json:"-"`
	VerificationTokenHash *string    `gorm:"column:verification_token_hash;uniqueIndex" json:"-"`
	VerificationExpiresAt *time.Time `gorm:"column:verification_expires_at" json:"-"`
	EmailVerifiedAt       *time.Time `gorm:"column:email_verified_at" json:"email_verified_at,omitempty"`
	CreatedAt             time.Time  `gorm:"column:created_at;index" json:"created_at"`
}

func (User) TableName() string { return "users" }

type Contractor struct {
	ID            string    `gorm:"column:id;primaryKey" json:"id"`
	UserID        string    `gorm:"column:user_id;not null;uniqueIndex" json:"user_id"`
	DisplayName   string    `gorm:"column:display_name;not null" json:"display_name"`
	BusinessName  string    `gorm:"column:business_name" json:"business_name"`
	Email         string    `gorm:"column:email;not null" json:"email"`
	Phone         string    `gorm:"column:phone" json:"phone"`
	LicenseNumber string    `gorm:"column:license_number" json:"license_number"`
	Status        Status    `gorm:"column:status;not null;index;default:pending" json:"status"`
	Credits       int64     `gorm:"column:credits;not null;default:0;check:chk_contractors_credits,credits >= 0" json:"credits"`
	CreatedAt     time.Time `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Contractor) TableName() string { return "contractors" }

type StatusInput struct {
	Status Status `json:"status" validate:"required"`
}

type CreditsInput struct {
	Credits *int64 `json:"credits" validate:"required,gte=0"`
}
