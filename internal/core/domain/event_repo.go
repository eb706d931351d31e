package domain

import "context"

type EventRepository interface {
	// Save appends events for the given topic and aggregate id and
	// dispatches them to the registered handlers.
	Save(ctx context.Context, topic, id string, events []Event) error
	RegisterEventsHandler(topic string, handler func(events []Event))
	ClearRegisteredHandlers(topics ...string)
	Close()
}
