package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"troubledesk/internal/domain/incident"
	"troubledesk/internal/ports"
)

type fakeConn struct {
	msgs []*nats.Msg
	err  error
}

func (f *fakeConn) PublishMsg(msg *nats.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func TestNATSPublisherSendsJSON(t *testing.T) {
	conn := &fakeConn{}
	publisher := NewNATSPublisher(conn, "desk.events.")
	at := time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)

	err := publisher.Publish(context.Background(), ports.IncidentEvent{
		IncidentID: 7,
		ActorID:    3,
		ActorRole:  incident.RoleOfficeAdmin,
		Action:     string(incident.ActionCreateSecondInfo),
		Phase:      2,
		Changes:    map[string]any{"cause": "forklift"},
		CreatedAt:  at,
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(conn.msgs) != 1 {
		t.Fatalf("published %d messages", len(conn.msgs))
	}
	msg := conn.msgs[0]
	if msg.Subject != "desk.events.phase2.create" {
		t.Fatalf("Subject = %q", msg.Subject)
	}
	if msg.Header.Get("Incident-Id") != "7" {
		t.Fatalf("Incident-Id header = %q", msg.Header.Get("Incident-Id"))
	}

	var body eventMessage
	if err := json.Unmarshal(msg.Data, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.IncidentID != 7 || body.ActorRole != incident.RoleOfficeAdmin.String() || body.Changes["cause"] != "forklift" {
		t.Fatalf("body = %+v", body)
	}
	if !body.OccurredAt.Equal(at) {
		t.Fatalf("OccurredAt = %s", body.OccurredAt)
	}
}

func TestNATSPublisherDefaultsPrefixAndWrapsErrors(t *testing.T) {
	conn := &fakeConn{err: errors.New("nats: connection closed")}
	publisher := NewNATSPublisher(conn, "  ")
	if got := publisher.Subject("file.add"); got != DefaultSubjectPrefix+".file.add" {
		t.Fatalf("Subject() = %q", got)
	}
	if err := publisher.Publish(context.Background(), ports.IncidentEvent{Action: "file.add"}); err == nil {
		t.Fatalf("Publish() error = nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewNATSPublisher(&fakeConn{}, "").Publish(ctx, ports.IncidentEvent{}); err == nil {
		t.Fatalf("Publish(canceled) error = nil")
	}
}
