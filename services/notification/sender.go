package notification

import (
	"context"

	"go.uber.org/zap"
)

type Channel string

const (
	Email Channel = "email"
	SMS   Channel = "sms"
)

// Message is a rendered notice ready for a delivery provider.
type Message struct {
	Channel Channel
	To      string
	Subject string
	Body    string
	Link    string
}

//go:generate mockgen -source=sender.go -destination=mock/sender.go -package=mock

// Sender delivers a rendered Message through an external provider.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct{}

func NewLogSender() Sender { return LogSender{} }

func (LogSender) Send(ctx context.Context, msg Message) error {
	zap.L().Info("notification delivered",
		zap.String("channel", string(msg.Channel)),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("link", msg.Link),
	)
	return nil
}
