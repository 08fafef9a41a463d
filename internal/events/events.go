// Package events provides event handling functionality
package events

import (
	"context"
	"sync"

	"github.com/taskmesh/marketplace/internal/logger"
)

// EventType represents the type of marketplace event
type EventType string

const (
	// EventAdvertisementStored is emitted when an advertisement is stored or updated
	EventAdvertisementStored EventType = "advertisement_stored"
	// EventAdvertisementRemoved is emitted when an advertisement is deleted
	EventAdvertisementRemoved EventType = "advertisement_removed"
	// EventJobRegistered is emitted when a job registration is stored
	EventJobRegistered EventType = "job_registered"
	// EventJobDeregistered is emitted when a job registration is removed
	EventJobDeregistered EventType = "job_deregistered"
	// EventJobMatched is emitted when providers were committed for all slots of a job
	EventJobMatched EventType = "job_matched"
	// EventJobAssigned is emitted when a provider acknowledges its assignment
	EventJobAssigned EventType = "job_assigned"
	// EventReported is emitted for every accepted execution report
	EventReported EventType = "reported"
	// EventExecutionSuccess is emitted when an execution is reported successful
	EventExecutionSuccess EventType = "execution_success"
	// EventExecutionFailure is emitted when an execution is reported failed
	EventExecutionFailure EventType = "execution_failure"
	// EventChannelSize is the buffer size for the event channel
	EventChannelSize = 100
)

// Event represents a marketplace event
type Event struct {
	Type          EventType // The type of event
	JobID         string    // The job the event concerns, if any
	Provider      string    // The provider involved, if any
	Consumer      string    // The job's consumer, if any
	Matcher       string    // The matcher that proposed the pairing, if any
	OperationHash string    // Hash reported for a successful execution
	Message       string    // Message reported for a failed execution
}

// Handler is a function that handles an event
type Handler func(context.Context, Event) error

var (
	// handlers is a map of event types to their handlers
	handlers = make(map[EventType][]Handler)
	// handlersMu is a mutex for the handlers map
	handlersMu sync.RWMutex
	// eventChan is a channel for events
	eventChan = make(chan Event, EventChannelSize)
)

// Subscribe registers a handler for a specific event type
func Subscribe(eventType EventType, handler Handler) {
	handlersMu.Lock()
	defer handlersMu.Unlock()
	handlers[eventType] = append(handlers[eventType], handler)
	logger.Debugf("Registered handler for event type: %s", eventType)
}

// Publish sends an event to be processed
func Publish(event Event) {
	eventChan <- event
	logger.Debugf("Published event: %s (Job: %s)", event.Type, event.JobID)
}

// Start starts the event processing loop
func Start(ctx context.Context) {
	go processEvents(ctx)
	logger.Info("Started event processing loop")
}

// processEvents handles events in the background
func processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping event processing loop")
			return
		case event := <-eventChan:
			handlersMu.RLock()
			eventHandlers := handlers[event.Type]
			handlersMu.RUnlock()

			// Process event with all registered handlers
			for _, handler := range eventHandlers {
				go func(h Handler, e Event) {
					if err := h(ctx, e); err != nil {
						logger.Errorf("Failed to handle event %s: %v", e.Type, err)
					}
				}(handler, event)
			}
		}
	}
}
