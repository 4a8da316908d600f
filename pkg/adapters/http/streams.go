package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/flowfsm/internal/logging"
	"github.com/aretw0/flowfsm/pkg/domain"
)

// globalStream receives the events of every context.
const globalStream = ""

// StreamManager fans lifecycle events out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // context id -> set of channels
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a channel for the events of contextID, or of every
// context if contextID is empty. The returned func unsubscribes and closes it.
func (sm *StreamManager) Subscribe(contextID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	if _, ok := sm.subscribers[contextID]; !ok {
		sm.subscribers[contextID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[contextID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[contextID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, contextID)
				}
			}
		})
	}
}

// Broadcast sends msg to the subscribers of contextID and to global subscribers.
// Slow subscribers miss messages instead of blocking the engine.
func (sm *StreamManager) Broadcast(contextID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	targets := []string{contextID}
	if contextID != globalStream {
		targets = append(targets, globalStream)
	}
	for _, id := range targets {
		for ch := range sm.subscribers[id] {
			select {
			case ch <- msg:
			default:
				sm.logger.Warn("SSE: client buffer full, dropping message", "context", contextID)
			}
		}
	}
}

// Hooks publishes every lifecycle event as JSON.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	state := func(_ context.Context, e *domain.StateEvent) { sm.publish(e.ContextID, e) }
	return domain.LifecycleHooks{
		OnContextStart: state,
		OnStateEnter:   state,
		OnStateLeave:   state,
		OnContextEnd:   state,
		OnEventTrigger: func(_ context.Context, e *domain.TriggerEvent) { sm.publish(e.ContextID, e) },
		OnError:        func(_ context.Context, e *domain.ErrorEvent) { sm.publish(e.ContextID, e) },
	}
}

func (sm *StreamManager) publish(contextID string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		sm.logger.Error("SSE: failed to encode event", "err", err, "context", contextID)
		return
	}
	sm.Broadcast(contextID, string(data))
}
