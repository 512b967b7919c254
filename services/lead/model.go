package lead

import (
	"time"

	"gorm.io/datatypes"
)

type RoutingMode string

const (
	RoutingDirect     RoutingMode = "direct"
	RoutingInvitation RoutingMode = "invitation"
)

// Lead is a homeowner's project request. Only the routing fields change after
// creation.
type Lead struct {
	ID            string                      `gorm:"column:id;primaryKey" json:"id"`
	ContactName   string                      `gorm:"column:contact_name;not null" json:"contact_name"`
	ContactEmail  string                      `gorm:"column:contact_email" json:"contact_email,omitempty"`
	ContactPhone  string                      `gorm:"column:contact_phone" json:"contact_phone,omitempty"`
	Address       string                      `gorm:"column:address" json:"address"`
	City          string                      `gorm:"column:city" json:"city"`
	Region        string                      `gorm:"column:region" json:"region"`
	PostalCode    string                      `gorm:"column:postal_code;index" json:"postal_code"`
	ServiceAreas  datatypes.JSONSlice[string] `gorm:"column:service_areas" json:"service_areas"`
	MaterialTypes datatypes.JSONSlice[string] `gorm:"column:material_types" json:"material_types"`
	Notes         string                      `gorm:"column:notes" json:"notes,omitempty"`
	RoutingMode   RoutingMode                 `gorm:"column:routing_mode" json:"routing_mode,omitempty"`
	RoutedAt      *time.Time                  `gorm:"column:routed_at" json:"routed_at,omitempty"`
	CreatedAt     time.Time                   `gorm:"column:created_at" json:"created_at"`
}

func (Lead) TableName() string { return "leads" }

// Assignment is the fulfillment record of a direct routing.
type Assignment struct {
	ID           string    `gorm:"column:id;primaryKey" json:"id"`
	LeadID       string    `gorm:"column:lead_id;not null;uniqueIndex:idx_lead_assignment" json:"lead_id"`
	ContractorID string    `gorm:"column:contractor_id;not null;uniqueIndex:idx_lead_assignment;index" json:"contractor_id"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Assignment) TableName() string { return "lead_assignments" }

type CreateInput struct {
	ContactName   string   `json:"contact_name" validate:"required,max=120"`
	ContactEmail  string   `json:"contact_email" validate:"required_without=ContactPhone,omitempty,email"`
	ContactPhone  string   `json:"contact_phone" validate:"required_without=ContactEmail,omitempty,max=32"`
	Address       string   `json:"address" validate:"max=255"`
	City          string   `json:"city" validate:"required,max=120"`
	Region        string   `json:"region" validate:"max=120"`
	PostalCode    string   `json:"postal_code" validate:"required,max=16"`
	ServiceAreas  []string `json:"service_areas" validate:"required,min=1,dive,required,max=64"`
	MaterialTypes []string `json:"material_types" validate:"dive,required,max=64"`
	Notes         string   `json:"notes" validate:"max=4000"`
}
