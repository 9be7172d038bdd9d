package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventRunStarted        EventType = "RUN_STARTED"
	EventRunCompleted      EventType = "RUN_COMPLETED"
	EventProposalCreated   EventType = "PROPOSAL_CREATED"
	EventProposalDecided   EventType = "PROPOSAL_DECIDED"
	EventProposalExecuted  EventType = "PROPOSAL_EXECUTED"
	EventProposalClosed    EventType = "PROPOSAL_CLOSED"
	EventProposalDiscarded EventType = "PROPOSAL_DISCARDED"
	EventOrderSubmitted    EventType = "ORDER_SUBMITTED"
	EventOrderFailed       EventType = "ORDER_FAILED"
	EventEngineStarted     EventType = "ENGINE_STARTED"
	EventEngineStopped     EventType = "ENGINE_STOPPED"
	EventError             EventType = "ERROR"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber // Subscribers to all events
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	// Set timestamp if not provided
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Notify specific subscribers
	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event) // Run in goroutine to avoid blocking
		}
	}

	// Notify all-event subscribers
	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishRunStarted publishes an analysis run started event
func (eb *EventBus) PublishRunStarted(runID, symbol, timeframe string) {
	eb.Publish(Event{
		Type: EventRunStarted,
		Data: map[string]interface{}{
			"run_id":    runID,
			"symbol":    symbol,
			"timeframe": timeframe,
		},
	})
}

// PublishRunCompleted publishes an analysis run completed event
func (eb *EventBus) PublishRunCompleted(runID, symbol, timeframe, verdict string, durationMs int64) {
	eb.Publish(Event{
		Type: EventRunCompleted,
		Data: map[string]interface{}{
			"run_id":      runID,
			"symbol":      symbol,
			"timeframe":   timeframe,
			"verdict":     verdict,
			"duration_ms": durationMs,
		},
	})
}

// PublishProposalCreated publishes a new pending proposal event
func (eb *EventBus) PublishProposalCreated(proposalID, runID, symbol, direction string, entry, size float64, zeroSize bool) {
	eb.Publish(Event{
		Type: EventProposalCreated,
		Data: map[string]interface{}{
			"proposal_id": proposalID,
			"run_id":      runID,
			"symbol":      symbol,
			"direction":   direction,
			"entry":       entry,
			"size":        size,
			"zero_size":   zeroSize,
		},
	})
}

// PublishProposalDecided publishes the outcome of a review decision
func (eb *EventBus) PublishProposalDecided(proposalID, decision, status string) {
	eb.Publish(Event{
		Type: EventProposalDecided,
		Data: map[string]interface{}{
			"proposal_id": proposalID,
			"decision":    decision,
			"status":      status,
		},
	})
}

// PublishProposalExecuted publishes a proposal execution event
func (eb *EventBus) PublishProposalExecuted(proposalID, orderID, symbol string, size float64) {
	eb.Publish(Event{
		Type: EventProposalExecuted,
		Data: map[string]interface{}{
			"proposal_id": proposalID,
			"order_id":    orderID,
			"symbol":      symbol,
			"size":        size,
		},
	})
}

// PublishProposalClosed publishes a proposal close event
func (eb *EventBus) PublishProposalClosed(proposalID, orderID string) {
	eb.Publish(Event{
		Type: EventProposalClosed,
		Data: map[string]interface{}{
			"proposal_id": proposalID,
			"order_id":    orderID,
		},
	})
}

// PublishProposalDiscarded publishes a proposal discard event
func (eb *EventBus) PublishProposalDiscarded(proposalID, reason string) {
	eb.Publish(Event{
		Type: EventProposalDiscarded,
		Data: map[string]interface{}{
			"proposal_id": proposalID,
			"reason":      reason,
		},
	})
}

// PublishOrderSubmitted publishes an order submission event
func (eb *EventBus) PublishOrderSubmitted(proposalID, orderID, symbol string, size float64) {
	eb.Publish(Event{
		Type: EventOrderSubmitted,
		Data: map[string]interface{}{
			"proposal_id": proposalID,
			"order_id":    orderID,
			"symbol":      symbol,
			"size":        size,
		},
	})
}

// PublishOrderFailed publishes an order submission failure event
func (eb *EventBus) PublishOrderFailed(proposalID, symbol, reason string) {
	eb.Publish(Event{
		Type: EventOrderFailed,
		Data: map[string]interface{}{
			"proposal_id": proposalID,
			"symbol":      symbol,
			"reason":      reason,
		},
	})
}

// PublishError publishes an error event
func (eb *EventBus) PublishError(source, message string, err error) {
	data := map[string]interface{}{
		"source":  source,
		"message": message,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	eb.Publish(Event{
		Type: EventError,
		Data: data,
	})
}
