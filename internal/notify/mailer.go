package notify

import (
	"context"
	"log"
)

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	Logger *log.Logger
}

func (m LogMailer) Send(ctx context.Context, msg Message) error {
	m.Logger.Printf("mail to=%s subject=%q\n%s", msg.To, msg.Subject, msg.Body)
	return nil
}
