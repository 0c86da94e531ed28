// Package mail sends notification email through SMTP. Delivery runs on a
// background worker so a slow mail server never adds request latency;
// enqueueing is non-blocking and at-most-once, with drops logged.
package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
	HTML    string
}

// Mailer queues messages for a single delivery goroutine.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	queue  chan Message
	logger *zap.SugaredLogger
}

// New creates a mailer. With an empty host the mailer still accepts
// messages but drops them with a debug log (development mode).
func New(host string, port int, user, password, from string, logger *zap.SugaredLogger) *Mailer {
	m := &Mailer{
		from:   from,
		queue:  make(chan Message, 256),
		logger: logger,
	}
	if host != "" {
		m.dialer = gomail.NewDialer(host, port, user, password)
	}
	return m
}

// Enqueue hands a message to the delivery worker. Never blocks: when the
// queue is full the message is dropped and the drop logged.
func (m *Mailer) Enqueue(msg Message) {
	select {
	case m.queue <- msg:
	default:
		m.logger.Warnw("Mail queue full, dropping message", "to", msg.To, "subject", msg.Subject)
	}
}

// Start runs the delivery loop until ctx is cancelled. Intended to run as
// a goroutine owned by main.
func (m *Mailer) Start(ctx context.Context) {
	m.logger.Info("Mail worker started")
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Mail worker stopped")
			return
		case msg := <-m.queue:
			if err := m.send(msg); err != nil {
				m.logger.Warnw("Email delivery failed",
					"to", msg.To,
					"subject", msg.Subject,
					"error", err,
				)
			}
		}
	}
}

func (m *Mailer) send(msg Message) error {
	if m.dialer == nil {
		m.logger.Debugw("SMTP not configured, dropping email", "to", msg.To, "subject", msg.Subject)
		return nil
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)
	if msg.HTML != "" {
		gm.AddAlternative("text/html", msg.HTML)
	} else {
		gm.AddAlternative("text/html", fmt.Sprintf("<p>%s</p>", msg.Body))
	}

	return m.dialer.DialAndSend(gm)
}
