package notification

import (
	"encoding/json"
	"time"

	"insulead-core/pkg/task"
	"insulead-core/pkg/taskname"

	"github.com/hibiken/asynq"
)

func newTask(typename string, payload any, queue string) (*asynq.Task, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(typename, b,
		asynq.Queue(queue),
		asynq.MaxRetry(10),
		asynq.Timeout(30*time.Second),
	), nil
}

func NewVerificationTask(p VerificationPayload) (*asynq.Task, error) {
	return newTask(taskname.ContractorVerification, p, task.QueueCritical)
}

func NewApplicationTask(p ApplicationPayload) (*asynq.Task, error) {
	return newTask(taskname.AdminApplication, p, task.QueueDefault)
}

func NewInvitationTask(p InvitationPayload) (*asynq.Task, error) {
	return newTask(taskname.ContractorInvitation, p, task.QueueDefault)
}

func NewLeadAssignedTask(p LeadAssignedPayload) (*asynq.Task, error) {
	return newTask(taskname.ContractorLeadAssigned, p, task.QueueDefault)
}

func NewQuoteSubmittedTask(p QuoteSubmittedPayload) (*asynq.Task, error) {
	return newTask(taskname.LeadQuoteSubmitted, p, task.QueueDefault)
}

func NewPaymentReleasedTask(p PaymentReleasedPayload) (*asynq.Task, error) {
	return newTask(taskname.ContractorPaymentReleased, p, task.QueueCritical)
}
