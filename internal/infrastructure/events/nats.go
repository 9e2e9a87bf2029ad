package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"troubledesk/internal/bootstrap/logging"
	"troubledesk/internal/errs"
	"troubledesk/internal/ports"
)

const DefaultSubjectPrefix = "troubledesk.incident"

// msgPublisher is the part of *nats.Conn the publisher needs.
type msgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

// NATSPublisher sends each incident event as JSON on <prefix>.<action>.
type NATSPublisher struct {
	conn   msgPublisher
	prefix string
}

func NewNATSPublisher(conn msgPublisher, subjectPrefix string) *NATSPublisher {
	prefix := strings.Trim(strings.TrimSpace(subjectPrefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{conn: conn, prefix: prefix}
}

type eventMessage struct {
	IncidentID int64          `json:"incident_id"`
	ActorID    int64          `json:"actor_id"`
	ActorRole  string         `json:"actor_role"`
	Action     string         `json:"action"`
	Phase      int            `json:"phase,omitempty"`
	Changes    map[string]any `json:"changes,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

func (p *NATSPublisher) Subject(action string) string {
	return p.prefix + "." + strings.ReplaceAll(strings.TrimSpace(action), " ", "_")
}

func (p *NATSPublisher) Publish(ctx context.Context, event ports.IncidentEvent) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	body, err := json.Marshal(eventMessage{
		IncidentID: event.IncidentID,
		ActorID:    event.ActorID,
		ActorRole:  event.ActorRole.String(),
		Action:     event.Action,
		Phase:      event.Phase,
		Changes:    event.Changes,
		OccurredAt: event.CreatedAt,
	})
	if err != nil {
		return errs.Wrap(err, "marshal incident event")
	}

	msg := nats.NewMsg(p.Subject(event.Action))
	msg.Data = body
	msg.Header.Set("Content-Type", "application/json")
	msg.Header.Set("Incident-Id", strconv.FormatInt(event.IncidentID, 10))
	if err := p.conn.PublishMsg(msg); err != nil {
		return errs.Wrapf(err, "publish %s", msg.Subject)
	}
	return nil
}

// Connect dials url and keeps retrying in the background, so a broker that is
// down at startup does not stop the app.
func Connect(ctx context.Context, url string) (*nats.Conn, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "infrastructure.events"), slog.String("url", url))

	conn, err := nats.Connect(
		url,
		nats.Name("troubledesk"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warn(logCtx, "nats disconnected", slog.Any("err", errs.Loggable(err)))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logging.Info(logCtx, "nats reconnected")
		}),
	)
	if err != nil {
		return nil, errs.Wrapf(err, "connect nats %s", url)
	}
	return conn, nil
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, ports.IncidentEvent) error {
	return nil
}
