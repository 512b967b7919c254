package router

import "insulead-core/services/invitation"

type AssignInput struct {
	ContractorID string `json:"contractor_id" validate:"required"`
}

type InviteInput struct {
	ContractorIDs []string `json:"contractor_ids" validate:"omitempty,max=50,dive,required"`
	TTLHours      *int     `json:"ttl_hours" validate:"omitempty,gt=0,lte=720"`
}

type InvitationResult struct {
	Invitations         []*invitation.Invitation `json:"invitations"`
	NotificationsQueued int                      `json:"notifications_queued"`
}
