// Package notify publishes release events to NATS so that CI dashboards or
// chat bridges can follow a release as it happens.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
)

// DefaultSubject prefixes every published subject.
const DefaultSubject = "gwcrelease.events"

// PublishTimeout bounds one publish.
const PublishTimeout = 5 * time.Second

// Publisher sends raw messages.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Close()
}

// NATSPublisher publishes through JetStream when the server has a stream for
// the subject, and as core NATS messages otherwise.
type NATSPublisher struct {
	conn      *nats.Conn
	js        jetstream.JetStream
	jetStream bool
}

// Connect dials url. With useJetStream the publisher waits for the stream
// acknowledgement of each message.
func Connect(url string, useJetStream bool) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("gwcrelease"), nats.Timeout(5*time.Second))
	if err != nil {
		return nil, errors.NetworkError("failed to connect to NATS").WithCause(err).WithContext("url", url).Build()
	}
	p := &NATSPublisher{conn: conn, jetStream: useJetStream}
	if useJetStream {
		js, err := jetstream.New(conn)
		if err != nil {
			conn.Close()
			return nil, errors.NetworkError("failed to create JetStream context").WithCause(err).Build()
		}
		p.js = js
	}
	return p, nil
}

// Publish sends data on subject.
func (p *NATSPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if p.jetStream {
		if _, err := p.js.Publish(ctx, subject, data); err != nil {
			return errors.NetworkError("failed to publish event").WithCause(err).WithContext("subject", subject).Build()
		}
		return nil
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return errors.NetworkError("failed to publish event").WithCause(err).WithContext("subject", subject).Build()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return errors.NetworkError("failed to flush event").WithCause(err).WithContext("subject", subject).Build()
	}
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// Notifier marshals events to JSON and publishes them below a base subject.
type Notifier struct {
	pub     Publisher
	subject string
	logger  *slog.Logger
}

// NewNotifier creates a Notifier. An empty subject means DefaultSubject.
func NewNotifier(pub Publisher, subject string, logger *slog.Logger) *Notifier {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{pub: pub, subject: subject, logger: logger}
}

// Subject joins the base subject with topic tokens, e.g. "update", "completed".
func (n *Notifier) Subject(topic ...string) string {
	parts := []string{n.subject}
	for _, t := range topic {
		t = strings.Map(func(r rune) rune {
			switch r {
			case '.', ' ', '*', '>':
				return '_'
			}
			return r
		}, t)
		if t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, ".")
}

// Notify publishes payload as JSON on Subject(topic...).
func (n *Notifier) Notify(ctx context.Context, payload any, topic ...string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.InternalError("failed to marshal event").WithCause(err).Build()
	}
	ctx, cancel := context.WithTimeout(ctx, PublishTimeout)
	defer cancel()

	subject := n.Subject(topic...)
	if err := n.pub.Publish(ctx, subject, data); err != nil {
		return err
	}
	n.logger.Debug("Published event", slog.String("subject", subject))
	return nil
}

// Close closes the underlying publisher.
func (n *Notifier) Close() { n.pub.Close() }
