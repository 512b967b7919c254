package notification_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"insulead-core/pkg/config"
	"insulead-core/pkg/taskname"
	"insulead-core/services/notification"
	"insulead-core/services/notification/mock"
)

func newWorker(t *testing.T) (*notification.Worker, *mock.MockSender) {
	ctrl := gomock.NewController(t)
	sender := mock.NewMockSender(ctrl)

	cfg := &config.Config{}
	cfg.Platform.Name = "Insulead"
	cfg.Platform.BaseURL = "https://insulead.test/"
	cfg.Platform.AdminEmail = "ops@insulead.test"

	return notification.NewWorker(notification.WorkerParams{Config: cfg, Sender: sender}), sender
}

func handler(t *testing.T, w *notification.Worker, pattern string) asynq.Handler {
	for _, h := range w.Handlers() {
		if h.Pattern == pattern {
			return h.Handler
		}
	}
	t.Fatalf("no handler for %s", pattern)
	return nil
}

func TestWorkerServesEveryTask(t *testing.T) {
	w, _ := newWorker(t)

	patterns := make([]string, 0, len(taskname.All))
	for _, h := range w.Handlers() {
		patterns = append(patterns, h.Pattern)
	}
	require.ElementsMatch(t, taskname.All, patterns)
}

func TestVerificationLink(t *testing.T) {
	w, sender := newWorker(t)

	sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg notification.Message) error {
		require.Equal(t, notification.Email, msg.Channel)
		require.Equal(t, "jane@acme-insulation.com", msg.To)
		require.Equal(t, "https://insulead.test/verify?token=abc", msg.Link)
		return nil
	})

	task, err := notification.NewVerificationTask(notification.VerificationPayload{Email: "jane@acme-insulation.com", Token: "abc"})
	require.NoError(t, err)
	require.NoError(t, handler(t, w, taskname.ContractorVerification).ProcessTask(context.Background(), task))
}

func TestApplicationGoesToAdmin(t *testing.T) {
	w, sender := newWorker(t)

	sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg notification.Message) error {
		require.Equal(t, "ops@insulead.test", msg.To)
		return nil
	})

	task, err := notification.NewApplicationTask(notification.ApplicationPayload{ContractorID: "c1", BusinessName: "Acme"})
	require.NoError(t, err)
	require.NoError(t, handler(t, w, taskname.AdminApplication).ProcessTask(context.Background(), task))
}

func TestQuoteFallsBackToSMS(t *testing.T) {
	w, sender := newWorker(t)

	sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg notification.Message) error {
		require.Equal(t, notification.SMS, msg.Channel)
		require.Equal(t, "+15550123", msg.To)
		return nil
	})

	task, err := notification.NewQuoteSubmittedTask(notification.QuoteSubmittedPayload{LeadPhone: "+15550123", Amount: "1200.00"})
	require.NoError(t, err)
	require.NoError(t, handler(t, w, taskname.LeadQuoteSubmitted).ProcessTask(context.Background(), task))
}

func TestMalformedPayloadSkipsRetry(t *testing.T) {
	w, _ := newWorker(t)

	task := asynq.NewTask(taskname.ContractorInvitation, []byte("{"))
	err := handler(t, w, taskname.ContractorInvitation).ProcessTask(context.Background(), task)
	require.Error(t, err)
	require.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestSenderErrorIsReturned(t *testing.T) {
	w, sender := newWorker(t)

	sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("smtp down"))

	task, err := notification.NewPaymentReleasedTask(notification.PaymentReleasedPayload{JobID: "j1", Code: "ESC-1"})
	require.NoError(t, err)
	require.Error(t, handler(t, w, taskname.ContractorPaymentReleased).ProcessTask(context.Background(), task))
}
