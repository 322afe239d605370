package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/pagefold/pagefold/internal/logfields"
)

// Publisher mirrors lifecycle events to NATS JetStream so external
// consumers (chat notifiers, dashboards) can follow builds without polling
// the history database.
type Publisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewPublisher connects to NATS and ensures the lifecycle stream exists.
// subject is the base subject; events publish to subject.finished and
// subject.deployed.
func NewPublisher(natsURL, subject string) (*Publisher, error) {
	if natsURL == "" {
		return nil, fmt.Errorf("nats: URL is empty")
	}
	if subject == "" {
		return nil, fmt.Errorf("nats: subject is empty")
	}

	conn, err := nats.Connect(natsURL, nats.Name("pagefold"))
	if err != nil {
		return nil, fmt.Errorf("nats: connect: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("nats: jetstream context: %w", err)
	}

	p := &Publisher{conn: conn, js: js, subject: subject}
	if err := p.initStream(); err != nil {
		conn.Close()
		return nil, err
	}

	slog.Info("NATS publisher connected",
		logfields.URL(natsURL),
		logfields.Subject(subject))
	return p, nil
}

func (p *Publisher) initStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        streamName(p.subject),
		Description: "pagefold build lifecycle events",
		Subjects:    []string{p.subject + ".*"},
		MaxMsgs:     4096,
	})
	if err != nil {
		return fmt.Errorf("nats: ensure stream: %w", err)
	}
	return nil
}

// PublishBuildFinished mirrors a build completion.
func (p *Publisher) PublishBuildFinished(ev *BuildFinished) error {
	return p.publish(subjectFor(p.subject, "finished"), ev)
}

// PublishDeployFinished mirrors a deploy completion.
func (p *Publisher) PublishDeployFinished(ev *DeployFinished) error {
	return p.publish(subjectFor(p.subject, "deployed"), ev)
}

func (p *Publisher) publish(subject string, ev any) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("nats: marshal event: %w", err)
	}
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("nats: publish %s: %w", subject, err)
	}

	slog.Debug("Published lifecycle event", logfields.Subject(subject))
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}

func subjectFor(base, kind string) string {
	return base + "." + kind
}

// streamName derives a JetStream-legal stream name from the base subject.
// Stream names must not contain dots.
func streamName(subject string) string {
	return strings.ToUpper(strings.ReplaceAll(subject, ".", "_"))
}
