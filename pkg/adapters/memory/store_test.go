package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/flowfsm/pkg/adapters/memory"
	"github.com/aretw0/flowfsm/pkg/domain"
	"github.com/aretw0/flowfsm/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunContextStoreContract(t, memory.NewStore())
}

func TestMemoryStore_ConcurrentPutSortedList(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 9; i >= 0; i-- {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Put(ctx, domain.NewContext(domain.WithID(fmt.Sprintf("ctx-%d", i)))))
		}()
	}
	wg.Wait()

	ids, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 10)
	assert.Equal(t, "ctx-0", ids[0])
	assert.Equal(t, "ctx-9", ids[9])
}
