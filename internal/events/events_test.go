package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventSystem(t *testing.T) {
	t.Run("Subscribe and Publish", func(t *testing.T) {
		// Reset handlers for clean test environment
		handlers = make(map[EventType][]Handler)
		eventChan = make(chan Event, EventChannelSize)

		var wg sync.WaitGroup
		wg.Add(1)

		var receivedEvent Event
		testHandler := func(ctx context.Context, event Event) error {
			receivedEvent = event
			wg.Done()
			return nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Start event processing
		Start(ctx)

		// Subscribe to test event
		Subscribe(EventJobMatched, testHandler)

		// Create test event
		testEvent := Event{
			Type:     EventJobMatched,
			JobID:    "test-job-123",
			Consumer: "consumer-1",
			Matcher:  "matcher-1",
		}

		// Publish event
		Publish(testEvent)

		// Wait for handler to process event with timeout
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			// Success case
		case <-time.After(2 * time.Second):
			t.Fatal("Test timed out waiting for event handler")
		}

		// Verify received event matches published event
		assert.Equal(t, testEvent.Type, receivedEvent.Type)
		assert.Equal(t, testEvent.JobID, receivedEvent.JobID)
		assert.Equal(t, testEvent.Consumer, receivedEvent.Consumer)
		assert.Equal(t, testEvent.Matcher, receivedEvent.Matcher)
	})

	t.Run("Multiple Handlers", func(t *testing.T) {
		// Reset handlers for clean test environment
		handlers = make(map[EventType][]Handler)
		eventChan = make(chan Event, EventChannelSize)

		var wg sync.WaitGroup
		wg.Add(2) // Expecting two handlers to be called

		handlerCalls := make(map[string]bool)
		var mu sync.Mutex

		handler1 := func(ctx context.Context, event Event) error {
			mu.Lock()
			handlerCalls["handler1"] = true
			mu.Unlock()
			wg.Done()
			return nil
		}

		handler2 := func(ctx context.Context, event Event) error {
			mu.Lock()
			handlerCalls["handler2"] = true
			mu.Unlock()
			wg.Done()
			return nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Start event processing
		Start(ctx)

		// Subscribe both handlers
		Subscribe(EventJobRegistered, handler1)
		Subscribe(EventJobRegistered, handler2)

		// Publish test event
		Publish(Event{
			Type:     EventJobRegistered,
			JobID:    "test-job-456",
			Consumer: "consumer-1",
		})

		// Wait for handlers with timeout
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			// Success case
		case <-time.After(2 * time.Second):
			t.Fatal("Test timed out waiting for event handlers")
		}

		// Verify both handlers were called
		mu.Lock()
		assert.True(t, handlerCalls["handler1"], "Handler 1 should have been called")
		assert.True(t, handlerCalls["handler2"], "Handler 2 should have been called")
		mu.Unlock()
	})

	t.Run("Context Cancellation", func(t *testing.T) {
		// Reset handlers for clean test environment
		handlers = make(map[EventType][]Handler)
		eventChan = make(chan Event, EventChannelSize)

		ctx, cancel := context.WithCancel(context.Background())

		// Start event processing
		Start(ctx)

		// Subscribe a handler that should not be called
		Subscribe(EventJobRegistered, func(ctx context.Context, event Event) error {
			t.Error("Handler should not be called after context cancellation")
			return nil
		})

		// Cancel context immediately
		cancel()

		// Give some time for the goroutine to process the cancellation
		time.Sleep(100 * time.Millisecond)

		// Try to publish an event after cancellation
		// This should not block or panic
		Publish(Event{
			Type:  EventJobRegistered,
			JobID: "test-job-789",
		})

		// Wait a bit to ensure no handlers are called
		time.Sleep(100 * time.Millisecond)
	})

	t.Run("Different Event Types", func(t *testing.T) {
		// Reset handlers for clean test environment
		handlers = make(map[EventType][]Handler)
		eventChan = make(chan Event, EventChannelSize)

		var wg sync.WaitGroup
		wg.Add(2)

		receivedEvents := make(map[EventType]bool)
		var mu sync.Mutex

		storedHandler := func(ctx context.Context, event Event) error {
			mu.Lock()
			receivedEvents[EventAdvertisementStored] = true
			mu.Unlock()
			wg.Done()
			return nil
		}

		removedHandler := func(ctx context.Context, event Event) error {
			mu.Lock()
			receivedEvents[EventAdvertisementRemoved] = true
			mu.Unlock()
			wg.Done()
			return nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Start event processing
		Start(ctx)

		// Subscribe to different event types
		Subscribe(EventAdvertisementStored, storedHandler)
		Subscribe(EventAdvertisementRemoved, removedHandler)

		// Publish both types of events
		Publish(Event{Type: EventAdvertisementStored, Provider: "provider-1"})
		Publish(Event{Type: EventAdvertisementRemoved, Provider: "provider-2"})

		// Wait for handlers with timeout
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			// Success case
		case <-time.After(2 * time.Second):
			t.Fatal("Test timed out waiting for event handlers")
		}

		// Verify both event types were handled
		mu.Lock()
		assert.True(t, receivedEvents[EventAdvertisementStored], "Stored event should have been handled")
		assert.True(t, receivedEvents[EventAdvertisementRemoved], "Removed event should have been handled")
		mu.Unlock()
	})
}
