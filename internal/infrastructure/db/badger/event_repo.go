package badgerdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/openmart/martd/internal/core/domain"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
)

const eventStoreDir = "events"

type eventDTO struct {
	Id          string
	Topic       string
	AggregateId string
	Type        domain.EventType
	Payload     []byte
	CreatedAt   int64
}

type subscriber struct {
	topic   string
	handler func(events []domain.Event)
}

type eventRepository struct {
	store *badgerhold.Store

	subscribers    map[string][]subscriber // topic -> subscribers
	subscriberLock *sync.Mutex
}

func NewEventRepository(config ...interface{}) (domain.EventRepository, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid base directory")
	}
	var logger badger.Logger
	if config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return nil, fmt.Errorf("invalid logger")
		}
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, eventStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open event store: %s", err)
	}

	return &eventRepository{
		store:          store,
		subscribers:    make(map[string][]subscriber),
		subscriberLock: &sync.Mutex{},
	}, nil
}

func (e *eventRepository) Close() {
	// nolint:all
	e.store.Close()
}

func (e *eventRepository) ClearRegisteredHandlers(topics ...string) {
	e.subscriberLock.Lock()
	defer e.subscriberLock.Unlock()

	if len(topics) == 0 {
		e.subscribers = make(map[string][]subscriber)
		return
	}

	for _, topic := range topics {
		delete(e.subscribers, topic)
	}
}

func (e *eventRepository) RegisterEventsHandler(
	topic string, handler func(events []domain.Event),
) {
	e.subscriberLock.Lock()
	defer e.subscriberLock.Unlock()

	if _, ok := e.subscribers[topic]; !ok {
		e.subscribers[topic] = make([]subscriber, 0)
	}

	e.subscribers[topic] = append(e.subscribers[topic], subscriber{
		topic:   topic,
		handler: handler,
	})
}

func (e *eventRepository) Save(
	ctx context.Context, topic string, id string, events []domain.Event,
) error {
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to serialize event: %s", err)
		}
		dto := eventDTO{
			Id:          uuid.NewString(),
			Topic:       topic,
			AggregateId: id,
			Type:        event.GetType(),
			Payload:     payload,
			CreatedAt:   time.Now().UnixNano(),
		}

		insertFn := func() error {
			return e.store.Insert(dto.Id, dto)
		}
		if err := insertFn(); err != nil {
			if errors.Is(err, badger.ErrConflict) {
				attempts := 1
				for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
					time.Sleep(100 * time.Millisecond)
					err = insertFn()
					attempts++
				}
			}
			if err != nil {
				return err
			}
		}
	}

	// dispatch events to subscribers
	if err := e.dispatch(topic, id); err != nil {
		log.WithError(err).Error("failed to dispatch saved events")
	}

	return nil
}

func (e *eventRepository) dispatch(topic string, id string) error {
	events, err := e.getAllEvents(topic, id)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		return nil
	}

	// run the handlers in go routines
	e.subscriberLock.Lock()
	defer e.subscriberLock.Unlock()
	for _, subscriber := range e.subscribers[topic] {
		go subscriber.handler(events)
	}
	return nil
}

// getAllEvents returns all historical events for a topic, filtered by
// aggregate id and ordered by creation time.
func (e *eventRepository) getAllEvents(topic, id string) ([]domain.Event, error) {
	dtos := make([]eventDTO, 0)
	query := badgerhold.Where("Topic").Eq(topic).And("AggregateId").Eq(id)
	if err := e.store.Find(&dtos, query); err != nil {
		return nil, err
	}
	sort.SliceStable(dtos, func(i, j int) bool {
		return dtos[i].CreatedAt < dtos[j].CreatedAt
	})

	events := make([]domain.Event, 0, len(dtos))
	for _, dto := range dtos {
		event, err := deserializeEvent(dto.Type, dto.Payload)
		if err != nil {
			log.WithError(err).Warnf("failed to deserialize event: %s", string(dto.Payload))
			continue
		}
		events = append(events, event)
	}

	return events, nil
}

func deserializeEvent(eventType domain.EventType, buf []byte) (domain.Event, error) {
	switch eventType {
	case domain.EventTypeItemForSale:
		var event = domain.ItemForSale{}
		if err := json.Unmarshal(buf, &event); err == nil {
			return event, nil
		}
	case domain.EventTypeItemBought:
		var event = domain.ItemBought{}
		if err := json.Unmarshal(buf, &event); err == nil {
			return event, nil
		}
	}

	return nil, fmt.Errorf("unknown event")
}
