// Package events carries run lifecycle notifications from the runner to
// the audit log and any other observers.
package events

import (
	"sync"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	EventRunStarted      EventType = "run_started"
	EventActionStarted   EventType = "action_started"
	EventActionCompleted EventType = "action_completed"
	EventActionFailed    EventType = "action_failed"
	EventHookFailed      EventType = "hook_failed"
	EventRunCompleted    EventType = "run_completed"
)

// AllTypes lists every event the runner publishes, in lifecycle order.
func AllTypes() []EventType {
	return []EventType{
		EventRunStarted,
		EventActionStarted,
		EventActionCompleted,
		EventActionFailed,
		EventHookFailed,
		EventRunCompleted,
	}
}

// Event represents a run event. RunID and Action are promoted out of Data
// because every consumer keys on them.
type Event struct {
	Type      EventType
	Timestamp time.Time
	RunID     string
	Action    string
	Data      map[string]any
}

// Subscriber is a function that receives events.
type Subscriber func(Event)

// Bus is a non-blocking event bus using Publish/Subscribe pattern.
// Events are delivered asynchronously via buffered channels.
// If a subscriber's channel is full, the event is dropped for that subscriber.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]chan Event
	bufferSize  int
	wg          sync.WaitGroup
	closed      bool
}

// NewBus creates a new event bus with the specified buffer size per subscriber.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &Bus{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers fn for the given event types and returns an
// unsubscribe function. fn runs on a dedicated goroutine, so events of
// different types reach it in publish order.
func (b *Bus) Subscribe(fn Subscriber, types ...EventType) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	if b.closed {
		close(ch)
		return func() {}
	}
	for _, t := range types {
		b.subscribers[t] = append(b.subscribers[t], ch)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for event := range ch {
			func() {
				// A panicking subscriber must not take the run down with it.
				defer func() { _ = recover() }()
				fn(event)
			}()
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.detach(ch) {
				close(ch)
			}
		})
	}
}

// detach removes ch from every type and reports whether it was still attached.
func (b *Bus) detach(ch chan Event) bool {
	found := false
	for t, subs := range b.subscribers {
		for i, subCh := range subs {
			if subCh == ch {
				b.subscribers[t] = append(subs[:i:i], subs[i+1:]...)
				found = true
				break
			}
		}
		if len(b.subscribers[t]) == 0 {
			delete(b.subscribers, t)
		}
	}
	return found
}

// Publish sends an event to all subscribers of its type without blocking.
func (b *Bus) Publish(eventType EventType, runID, actionName string, data map[string]any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		Action:    actionName,
		Data:      data,
	}

	for _, ch := range b.subscribers[eventType] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Close stops delivery and waits until every subscriber has drained the
// events already queued for it.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true

	seen := make(map[chan Event]bool)
	for eventType, subs := range b.subscribers {
		for _, ch := range subs {
			if !seen[ch] {
				seen[ch] = true
				close(ch)
			}
		}
		delete(b.subscribers, eventType)
	}
	b.mu.Unlock()

	b.wg.Wait()
}
