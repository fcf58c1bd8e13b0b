package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Contract", uuid.New(), uuid.New()),
	}
}

type recordingHandler struct {
	types    []string
	received []shared.DomainEvent
	err      error
	panics   bool
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func (h *recordingHandler) Handle(ctx context.Context, evt shared.DomainEvent) error {
	if h.panics {
		panic("handler exploded")
	}
	h.received = append(h.received, evt)
	return h.err
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to handlers subscribed to the type", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		created := &recordingHandler{types: []string{"ContractCreated"}}
		approved := &recordingHandler{types: []string{"ContractFinanceApproved"}}
		bus.Subscribe(created)
		bus.Subscribe(approved)

		require.NoError(t, bus.Publish(ctx, newTestEvent("ContractCreated")))

		assert.Len(t, created.received, 1)
		assert.Empty(t, approved.received)
	})

	t.Run("catch-all handler receives every event", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		audit := &recordingHandler{}
		bus.Subscribe(audit)

		require.NoError(t, bus.Publish(ctx,
			newTestEvent("ContractCreated"),
			newTestEvent("InvoiceCreated")))

		assert.Len(t, audit.received, 2)
	})

	t.Run("handler failure does not stop other handlers", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		failing := &recordingHandler{types: []string{"ContractCreated"}, err: errors.New("smtp down")}
		healthy := &recordingHandler{types: []string{"ContractCreated"}}
		bus.Subscribe(failing)
		bus.Subscribe(healthy)

		require.NoError(t, bus.Publish(ctx, newTestEvent("ContractCreated")))

		assert.Len(t, healthy.received, 1)
	})

	t.Run("handler panic is contained", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		panicking := &recordingHandler{types: []string{"ContractCreated"}, panics: true}
		healthy := &recordingHandler{types: []string{"ContractCreated"}}
		bus.Subscribe(panicking)
		bus.Subscribe(healthy)

		require.NoError(t, bus.Publish(ctx, newTestEvent("ContractCreated")))

		assert.Len(t, healthy.received, 1)
	})

	t.Run("unsubscribed handler stops receiving", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := &recordingHandler{types: []string{"ContractCreated"}}
		bus.Subscribe(handler)
		bus.Unsubscribe(handler)

		require.NoError(t, bus.Publish(ctx, newTestEvent("ContractCreated")))

		assert.Empty(t, handler.received)
	})
}

type fakeStore struct {
	seen map[string]bool
	err  error
}

func newFakeStore() *fakeStore { return &fakeStore{seen: make(map[string]bool)} }

func (s *fakeStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if s.seen[eventID] {
		return false, nil
	}
	s.seen[eventID] = true
	return true, nil
}

func (s *fakeStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	return s.seen[eventID], s.err
}

func (s *fakeStore) Close() error { return nil }

func TestIdempotentHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("processes an event exactly once", func(t *testing.T) {
		inner := &recordingHandler{types: []string{"InvoiceCreated"}}
		handler := NewIdempotentHandler(inner, newFakeStore(), shared.DefaultIdempotencyConfig(), zap.NewNop())

		evt := newTestEvent("InvoiceCreated")
		require.NoError(t, handler.Handle(ctx, evt))
		require.NoError(t, handler.Handle(ctx, evt))

		assert.Len(t, inner.received, 1)
	})

	t.Run("distinct events are all processed", func(t *testing.T) {
		inner := &recordingHandler{types: []string{"InvoiceCreated"}}
		handler := NewIdempotentHandler(inner, newFakeStore(), shared.DefaultIdempotencyConfig(), zap.NewNop())

		require.NoError(t, handler.Handle(ctx, newTestEvent("InvoiceCreated")))
		require.NoError(t, handler.Handle(ctx, newTestEvent("InvoiceCreated")))

		assert.Len(t, inner.received, 2)
	})

	t.Run("store failure does not block processing", func(t *testing.T) {
		inner := &recordingHandler{types: []string{"InvoiceCreated"}}
		store := newFakeStore()
		store.err = errors.New("redis unavailable")
		handler := NewIdempotentHandler(inner, store, shared.DefaultIdempotencyConfig(), zap.NewNop())

		require.NoError(t, handler.Handle(ctx, newTestEvent("InvoiceCreated")))

		assert.Len(t, inner.received, 1)
	})

	t.Run("disabled config skips the check", func(t *testing.T) {
		inner := &recordingHandler{types: []string{"InvoiceCreated"}}
		store := newFakeStore()
		handler := NewIdempotentHandler(inner, store, shared.IdempotencyConfig{Enabled: false}, zap.NewNop())

		evt := newTestEvent("InvoiceCreated")
		require.NoError(t, handler.Handle(ctx, evt))
		require.NoError(t, handler.Handle(ctx, evt))

		assert.Len(t, inner.received, 2)
		assert.Empty(t, store.seen)
	})

	t.Run("exposes the wrapped handler's event types", func(t *testing.T) {
		inner := &recordingHandler{types: []string{"InvoiceCreated"}}
		handler := NewIdempotentHandler(inner, newFakeStore(), shared.DefaultIdempotencyConfig(), zap.NewNop())

		assert.Equal(t, []string{"InvoiceCreated"}, handler.EventTypes())
	})
}
