package restservice

import (
	"fmt"
	"maps"
	"strings"
	"sync"
)

type listener[T any] struct {
	id        string
	topics    map[string]struct{}
	ch        chan T
	done      chan struct{}
	closeOnce *sync.Once
	lock      *sync.RWMutex
}

func newListener[T any](id string, topics []string) *listener[T] {
	topicsMap := make(map[string]struct{})
	for _, topic := range topics {
		topicsMap[formatTopic(topic)] = struct{}{}
	}
	return &listener[T]{
		id:        id,
		topics:    topicsMap,
		ch:        make(chan T, 100),
		done:      make(chan struct{}),
		closeOnce: &sync.Once{},
		lock:      &sync.RWMutex{},
	}
}

func (l *listener[T]) includesAny(topics []string) bool {
	l.lock.RLock()
	defer l.lock.RUnlock()
	if len(l.topics) == 0 {
		return true
	}

	for _, topic := range topics {
		formattedTopic := formatTopic(topic)
		if _, ok := l.topics[formattedTopic]; ok {
			return true
		}
	}
	return false
}

func (l *listener[T]) closeDone() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
}

// broker is a simple utility struct to manage subscriptions.
// it is used to send events to multiple listeners.
// it is thread safe and can be used to send events to multiple listeners.
type broker[T any] struct {
	lock      *sync.RWMutex
	listeners map[string]*listener[T]
}

func newBroker[T any]() *broker[T] {
	return &broker[T]{
		lock:      &sync.RWMutex{},
		listeners: make(map[string]*listener[T], 0),
	}
}

func (h *broker[T]) pushListener(l *listener[T]) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.listeners[l.id] = l
}

func (h *broker[T]) removeListener(id string) {
	h.lock.Lock()
	defer h.lock.Unlock()

	listener, ok := h.listeners[id]
	if !ok {
		return
	}
	listener.closeDone()
	delete(h.listeners, id)
}

func (h *broker[T]) getListenerChannel(id string) (chan T, error) {
	h.lock.RLock()
	defer h.lock.RUnlock()

	listener, ok := h.listeners[id]
	if !ok {
		return nil, fmt.Errorf("subscription %s not found", id)
	}
	return listener.ch, nil
}

func (h *broker[T]) getListenersCopy() map[string]*listener[T] {
	h.lock.RLock()
	defer h.lock.RUnlock()

	listenersCopy := make(map[string]*listener[T], len(h.listeners))
	maps.Copy(listenersCopy, h.listeners)
	return listenersCopy
}

func (h *broker[T]) hasListeners() bool {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.listeners) > 0
}

// fanout delivers msg to every listener subscribed to any of the given
// topics. The send never blocks: a removed listener is skipped via its done
// channel and a full channel drops the message.
func (h *broker[T]) fanout(msg T, topics ...string) {
	for _, l := range h.getListenersCopy() {
		if !l.includesAny(topics) {
			continue
		}
		select {
		case <-l.done:
		case l.ch <- msg:
		default:
		}
	}
}

func formatTopic(topic string) string {
	return strings.Trim(strings.ToLower(topic), " ")
}
