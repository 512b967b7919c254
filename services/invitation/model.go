package invitation

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type State string

const (
	StateActive   State = "active"
	StateRedeemed State = "redeemed"
	StateExpired  State = "expired"
)

// Invitation is a single use offer for one contractor to quote on one lead.
// Only the digest of the token is stored.
type Invitation struct {
	ID           string     `gorm:"column:id;primaryKey" json:"id"`
	LeadID       string     `gorm:"column:lead_id;not null;index" json:"lead_id"`
	ContractorID string     `gorm:"column:contractor_id;not null;index" json:"contractor_id"`
	TokenHash    string     `gorm:"column:token_hash;not null;uniqueIndex" json:"-"`
	State        State      `gorm:"column:state;not null;index;default:active" json:"state"`
	ExpiresAt    time.Time  `gorm:"column:expires_at;not null" json:"expires_at"`
	RedeemedAt   *time.Time `gorm:"column:redeemed_at" json:"redeemed_at,omitempty"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Invitation) TableName() string { return "invitations" }

// EffectiveState applies read time expiry to the stored state.
func (i *Invitation) EffectiveState(now time.Time) State {
	if i.State == StateActive && now.After(i.ExpiresAt) {
		return StateExpired
	}
	return i.State
}

type Quote struct {
	ID           string          `gorm:"column:id;primaryKey" json:"id"`
	InvitationID string          `gorm:"column:invitation_id;not null;uniqueIndex" json:"invitation_id"`
	LeadID       string          `gorm:"column:lead_id;not null;index" json:"lead_id"`
	ContractorID string          `gorm:"column:contractor_id;not null;index" json:"contractor_id"`
	Amount       decimal.Decimal `gorm:"column:amount;type:decimal(12,2);not null" json:"amount"`
	Timeline     string          `gorm:"column:timeline;not null" json:"timeline"`
	Notes        string          `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt    time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (Quote) TableName() string { return "quotes" }

type QuoteInput struct {
	ContractorID string          `json:"contractor_id" validate:"required"`
	Amount       decimal.Decimal `json:"amount"`
	Timeline     string          `json:"timeline" validate:"required,max=120"`
	Notes        string          `json:"notes" validate:"max=2000"`
}

// Issued pairs a new invitation with its plain token. The token exists only
// here and in the outbound notice.
type Issued struct {
	Invitation *Invitation
	Token      string
}

// LeadSummary is what an invited contractor may see before quoting.
type LeadSummary struct {
	ID            string                      `json:"id"`
	City          string                      `json:"city"`
	Region        string                      `json:"region"`
	PostalCode    string                      `json:"postal_code"`
	ServiceAreas  datatypes.JSONSlice[string] `json:"service_areas"`
	MaterialTypes datatypes.JSONSlice[string] `json:"material_types"`
	Notes         string                      `json:"notes,omitempty"`
}

type Detail struct {
	Invitation *Invitation  `json:"invitation"`
	Lead       *LeadSummary `json:"lead"`
}

type Redemption struct {
	Quote              *Quote `json:"quote"`
	NotificationQueued bool   `json:"notification_queued"`
}
