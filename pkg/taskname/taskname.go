package taskname

const (
	// Registration
	ContractorVerification = "notify:contractor.verification"
	AdminApplication       = "notify:admin.application"

	// Routing
	ContractorInvitation   = "notify:contractor.invitation"
	ContractorLeadAssigned = "notify:contractor.lead_assigned"

	// Quotes
	LeadQuoteSubmitted = "notify:lead.quote_submitted"

	// Escrow
	ContractorPaymentReleased = "notify:contractor.payment_released"
)

// All lists every notification task type the worker serves.
var All = []string{
	ContractorVerification,
	AdminApplication,
	ContractorInvitation,
	ContractorLeadAssigned,
	LeadQuoteSubmitted,
	ContractorPaymentReleased,
}
