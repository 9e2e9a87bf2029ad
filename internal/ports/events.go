package ports

import "context"

// EventPublisher announces committed incident changes to other systems.
type EventPublisher interface {
	Publish(ctx context.Context, event IncidentEvent) error
}
