package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"insulead-core/pkg/config"
	"insulead-core/pkg/task"
	"insulead-core/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

// Worker renders queued notices and hands them to the Sender.
type Worker struct {
	sender     Sender
	baseURL    string
	platform   string
	adminEmail string
}

type WorkerParams struct {
	fx.In
	Config *config.Config
	Sender Sender
}

func NewWorker(p WorkerParams) *Worker {
	return &Worker{
		sender:     p.Sender,
		baseURL:    strings.TrimRight(p.Config.Platform.BaseURL, "/"),
		platform:   p.Config.Platform.Name,
		adminEmail: p.Config.Platform.AdminEmail,
	}
}

// Handlers lists the asynq handlers served by the worker binary.
func (w *Worker) Handlers() []task.Handler {
	return []task.Handler{
		{Pattern: taskname.ContractorVerification, Handler: asynq.HandlerFunc(w.handleVerification)},
		{Pattern: taskname.AdminApplication, Handler: asynq.HandlerFunc(w.handleApplication)},
		{Pattern: taskname.ContractorInvitation, Handler: asynq.HandlerFunc(w.handleInvitation)},
		{Pattern: taskname.ContractorLeadAssigned, Handler: asynq.HandlerFunc(w.handleLeadAssigned)},
		{Pattern: taskname.LeadQuoteSubmitted, Handler: asynq.HandlerFunc(w.handleQuoteSubmitted)},
		{Pattern: taskname.ContractorPaymentReleased, Handler: asynq.HandlerFunc(w.handlePaymentReleased)},
	}
}

func decode(t *asynq.Task, out any) error {
	if err := json.Unmarshal(t.Payload(), out); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return nil
}

func (w *Worker) link(path string, query url.Values) string {
	u := w.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (w *Worker) handleVerification(ctx context.Context, t *asynq.Task) error {
	var p VerificationPayload
	if err := decode(t, &p); err != nil {
		return err
	}

	return w.sender.Send(ctx, Message{
		Channel: Email,
		To:      p.Email,
		Subject: fmt.Sprintf("Confirm your %s contractor account", w.platform),
		Body: fmt.Sprintf("Hi %s, confirm your email to finish your application. The link expires %s.",
			p.Name, p.ExpiresAt.Format("Jan 2, 15:04 MST")),
		Link: w.link("/verify", url.Values{"token": {p.Token}}),
	})
}

func (w *Worker) handleApplication(ctx context.Context, t *asynq.Task) error {
	var p ApplicationPayload
	if err := decode(t, &p); err != nil {
		return err
	}

	return w.sender.Send(ctx, Message{
		Channel: Email,
		To:      w.adminEmail,
		Subject: "New contractor application",
		Body:    fmt.Sprintf("%s (%s) verified their email and is waiting for review.", p.BusinessName, p.Email),
		Link:    w.link("/admin/contractors/"+p.ContractorID, nil),
	})
}

func (w *Worker) handleInvitation(ctx context.Context, t *asynq.Task) error {
	var p InvitationPayload
	if err := decode(t, &p); err != nil {
		return err
	}

	return w.sender.Send(ctx, Message{
		Channel: Email,
		To:      p.ContractorEmail,
		Subject: "You have a new project to quote",
		Body: fmt.Sprintf("Hi %s, a homeowner is looking for a quote. This invitation expires %s.",
			p.ContractorName, p.ExpiresAt.Format("Jan 2, 15:04 MST")),
		Link: w.link("/invitations/"+url.PathEscape(p.Token), nil),
	})
}

func (w *Worker) handleLeadAssigned(ctx context.Context, t *asynq.Task) error {
	var p LeadAssignedPayload
	if err := decode(t, &p); err != nil {
		return err
	}

	return w.sender.Send(ctx, Message{
		Channel: Email,
		To:      p.ContractorEmail,
		Subject: "A new lead was assigned to you",
		Body:    fmt.Sprintf("Hi %s, a new lead is waiting on your dashboard.", p.ContractorName),
		Link:    w.link("/dashboard/leads/"+p.LeadID, nil),
	})
}

func (w *Worker) handleQuoteSubmitted(ctx context.Context, t *asynq.Task) error {
	var p QuoteSubmittedPayload
	if err := decode(t, &p); err != nil {
		return err
	}

	msg := Message{
		Channel: Email,
		To:      p.LeadEmail,
		Subject: fmt.Sprintf("%s sent you a quote", p.ContractorName),
		Body: fmt.Sprintf("Hi %s, %s quoted %s with a timeline of %s.",
			p.LeadName, p.ContractorName, p.Amount, p.Timeline),
	}
	if msg.To == "" {
		msg.Channel = SMS
		msg.To = p.LeadPhone
	}

	return w.sender.Send(ctx, msg)
}

func (w *Worker) handlePaymentReleased(ctx context.Context, t *asynq.Task) error {
	var p PaymentReleasedPayload
	if err := decode(t, &p); err != nil {
		return err
	}

	return w.sender.Send(ctx, Message{
		Channel: Email,
		To:      p.ContractorEmail,
		Subject: fmt.Sprintf("Payment released for %s", p.Code),
		Body:    fmt.Sprintf("Your payment of %s for %q was released.", p.Payment, p.Title),
		Link:    w.link("/dashboard/jobs/"+p.JobID, nil),
	})
}
