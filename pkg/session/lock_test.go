package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/flowfsm/pkg/adapters/memory"
	"github.com/aretw0/flowfsm/pkg/domain"
	"github.com/stretchr/testify/assert"
)

type nopRunner struct{}

func (nopRunner) Start(*domain.Context) error { return nil }
func (nopRunner) Trigger(domain.Event, *domain.Context) (bool, error) {
	return true, nil
}
func (nopRunner) ConditionTrigger(domain.Event, *domain.Context, domain.State) (bool, error) {
	return true, nil
}

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(nopRunner{}, memory.NewStore())
	ctx := context.Background()

	for i := 0; i < 10000; i++ {
		id := fmt.Sprintf("context-%d", i)
		_, _ = mgr.Open(ctx, id)
		_, _ = mgr.Trigger(ctx, id, "go", "")
		_ = mgr.Delete(ctx, id)
	}

	assert.Empty(t, mgr.locks, "lock entries leaked after Delete")
}

func TestManager_WithLockSerializesPerID(t *testing.T) {
	mgr := NewManager(nopRunner{}, memory.NewStore())
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		mu      sync.Mutex
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mgr.WithLock(ctx, "shared", func(context.Context) error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, mgr.locks)
}
