package notification

import (
	"context"

	"insulead-core/pkg/task"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

//go:generate mockgen -source=notifier.go -destination=mock/notifier.go -package=mock

// Notifier queues outbound notices. A nil error means the notice is durably
// queued, not delivered.
type Notifier interface {
	VerificationRequested(ctx context.Context, p VerificationPayload) error
	ApplicationReceived(ctx context.Context, p ApplicationPayload) error
	InvitationIssued(ctx context.Context, p InvitationPayload) error
	LeadAssigned(ctx context.Context, p LeadAssignedPayload) error
	QuoteSubmitted(ctx context.Context, p QuoteSubmittedPayload) error
	PaymentReleased(ctx context.Context, p PaymentReleasedPayload) error
}

type QueueNotifier struct {
	asynq task.Enqueuer
}

type NotifierParams struct {
	fx.In
	Asynq task.Enqueuer
}

func NewNotifier(p NotifierParams) *QueueNotifier {
	return &QueueNotifier{asynq: p.Asynq}
}

func (n *QueueNotifier) enqueue(ctx context.Context, t *asynq.Task, err error) error {
	if err != nil {
		return err
	}

	info, err := n.asynq.Enqueue(ctx, t)
	if err != nil {
		zap.L().Error("failed to enqueue notification", zap.String("task_type", t.Type()), zap.Error(err))
		return err
	}

	if info != nil {
		zap.L().Debug("notification queued", zap.String("task_type", t.Type()), zap.String("task_id", info.ID))
	}
	return nil
}

func (n *QueueNotifier) VerificationRequested(ctx context.Context, p VerificationPayload) error {
	t, err := NewVerificationTask(p)
	return n.enqueue(ctx, t, err)
}

func (n *QueueNotifier) ApplicationReceived(ctx context.Context, p ApplicationPayload) error {
	t, err := NewApplicationTask(p)
	return n.enqueue(ctx, t, err)
}

func (n *QueueNotifier) InvitationIssued(ctx context.Context, p InvitationPayload) error {
	t, err := NewInvitationTask(p)
	return n.enqueue(ctx, t, err)
}

func (n *QueueNotifier) LeadAssigned(ctx context.Context, p LeadAssignedPayload) error {
	t, err := NewLeadAssignedTask(p)
	return n.enqueue(ctx, t, err)
}

func (n *QueueNotifier) QuoteSubmitted(ctx context.Context, p QuoteSubmittedPayload) error {
	t, err := NewQuoteSubmittedTask(p)
	return n.enqueue(ctx, t, err)
}

func (n *QueueNotifier) PaymentReleased(ctx context.Context, p PaymentReleasedPayload) error {
	t, err := NewPaymentReleasedTask(p)
	return n.enqueue(ctx, t, err)
}
