package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/domain/shared"
)

type recordingHandler struct {
	mu       sync.Mutex
	types    []string
	received []shared.DomainEvent
	err      error
	panics   bool
}

func (h *recordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("boom")
	}
	h.mu.Lock()
	h.received = append(h.received, event)
	h.mu.Unlock()
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.received)
}

func testEvent(eventType string) *shared.BaseDomainEvent {
	e := shared.NewBaseDomainEvent(eventType, "Test", uuid.New())
	return &e
}

func TestInMemoryEventBus_PublishReachesSubscribers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &recordingHandler{types: []string{"test.created"}}
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), testEvent("test.created")))
	bus.Wait()

	assert.Equal(t, 1, handler.count())
}

func TestInMemoryEventBus_TypeFiltering(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	created := &recordingHandler{types: []string{"test.created"}}
	deleted := &recordingHandler{types: []string{"test.deleted"}}
	bus.Subscribe(created)
	bus.Subscribe(deleted)

	require.NoError(t, bus.Publish(context.Background(), testEvent("test.created")))
	bus.Wait()

	assert.Equal(t, 1, created.count())
	assert.Equal(t, 0, deleted.count())
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &recordingHandler{types: []string{"test.created"}}
	bus.Subscribe(handler, "test.other")

	require.NoError(t, bus.Publish(context.Background(), testEvent("test.other")))
	bus.Wait()
	assert.Equal(t, 1, handler.count())

	require.NoError(t, bus.Publish(context.Background(), testEvent("test.created")))
	bus.Wait()
	assert.Equal(t, 1, handler.count())
}

func TestInMemoryEventBus_PublishDoesNotBlockOnSlowHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	release := make(chan struct{})
	slow := &blockingHandler{types: []string{"test.created"}, release: release}
	bus.Subscribe(slow)

	start := time.Now()
	require.NoError(t, bus.Publish(context.Background(), testEvent("test.created")))
	assert.Less(t, time.Since(start), time.Second)

	close(release)
	bus.Wait()
}

type blockingHandler struct {
	types   []string
	release chan struct{}
}

func (h *blockingHandler) Handle(context.Context, shared.DomainEvent) error {
	<-h.release
	return nil
}

func (h *blockingHandler) EventTypes() []string { return h.types }

func TestInMemoryEventBus_HandlerErrorsAndPanicsAreIsolated(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	failing := &recordingHandler{types: []string{"test.created"}, err: errors.New("handler failed")}
	panicking := &recordingHandler{types: []string{"test.created"}, panics: true}
	healthy := &recordingHandler{types: []string{"test.created"}}
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), testEvent("test.created")))
	bus.Wait()

	assert.Equal(t, 1, healthy.count())
}
