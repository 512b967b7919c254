package escrow

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusDisputed   Status = "disputed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled, StatusDisputed:
		return true
	}
	return false
}

// pending cannot jump straight to completed; work has to start first.
var transitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusCancelled, StatusDisputed},
	StatusInProgress: {StatusCompleted, StatusCancelled, StatusDisputed},
}

func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Job is an escrow job. The commission split is fixed when the job is
// created and never recomputed.
type Job struct {
	ID                  string          `gorm:"column:id;primaryKey" json:"id"`
	Code                string          `gorm:"column:code;not null;uniqueIndex" json:"code"`
	ContractorID        string          `gorm:"column:contractor_id;not null;index" json:"contractor_id"`
	Title               string          `gorm:"column:title;not null" json:"title"`
	Description         string          `gorm:"column:description" json:"description,omitempty"`
	TotalAmount         decimal.Decimal `gorm:"column:total_amount;type:decimal(12,2);not null" json:"total_amount"`
	CommissionRate      decimal.Decimal `gorm:"column:commission_rate;type:decimal(5,4);not null" json:"commission_rate"`
	CommissionAmount    decimal.Decimal `gorm:"column:commission_amount;type:decimal(12,2);not null" json:"commission_amount"`
	ContractorPayment   decimal.Decimal `gorm:"column:contractor_payment;type:decimal(12,2);not null" json:"contractor_payment"`
	Status              Status          `gorm:"column:status;not null;index;default:pending" json:"status"`
	Notes               string          `gorm:"column:notes" json:"notes,omitempty"`
	StartDate           *time.Time      `gorm:"column:start_date" json:"start_date,omitempty"`
	CompletionDate      *time.Time      `gorm:"column:completion_date" json:"completion_date,omitempty"`
	PaymentReleasedDate *time.Time      `gorm:"column:payment_released_date" json:"payment_released_date,omitempty"`
	CreatedAt           time.Time       `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Job) TableName() string { return "escrow_jobs" }

type CreateInput struct {
	ContractorID string          `json:"contractor_id" validate:"required"`
	Title        string          `json:"title" validate:"required,max=200"`
	Description  string          `json:"description" validate:"max=4000"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Notes        string          `json:"notes" validate:"max=4000"`
}

type TransitionInput struct {
	Status Status `json:"status" validate:"required"`
}

// ContractorTransitionInput is a transition requested by the job's contractor.
type ContractorTransitionInput struct {
	ContractorID string `json:"contractor_id" validate:"required"`
	TransitionInput
}

// Split divides total into the platform commission and the contractor
// payment. Commission is rounded half up to cents and payment takes the
// remainder, so the two always add back to total.
func Split(total, rate decimal.Decimal) (commission, payment decimal.Decimal) {
	commission = total.Mul(rate).Round(2)
	payment = total.Sub(commission)
	return commission, payment
}
