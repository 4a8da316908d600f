package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/flowfsm/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunContextStoreContract runs a suite of tests to verify that a ContextStore implementation
// adheres to the defined interface contract.
func RunContextStoreContract(t *testing.T, store ContextStore) {
	ctx := context.Background()
	prefix := "contract-test-context-" + time.Now().Format("20060102150405")

	t.Run("Put and Get", func(t *testing.T) {
		c := domain.NewContext(domain.WithID(prefix), domain.WithValues(map[string]any{"foo": "bar"}))

		err := store.Put(ctx, c)
		require.NoError(t, err, "Put should not return error")

		loaded, err := store.Get(ctx, prefix)
		require.NoError(t, err, "Get should not return error")
		assert.Same(t, c, loaded, "store must return the live instance")
		assert.Equal(t, "bar", loaded.Get("foo"))
	})

	t.Run("Put Duplicate", func(t *testing.T) {
		err := store.Put(ctx, domain.NewContext(domain.WithID(prefix)))
		assert.ErrorIs(t, err, domain.ErrContextExists)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "non-existent-"+prefix)
		assert.ErrorIs(t, err, domain.ErrContextNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Delete(ctx, prefix)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Get(ctx, prefix)
		assert.ErrorIs(t, err, domain.ErrContextNotFound, "Get after Delete should return ErrContextNotFound")

		assert.NoError(t, store.Delete(ctx, prefix), "Delete of a missing id is a no-op")
	})

	t.Run("List", func(t *testing.T) {
		id1 := prefix + "-1"
		id2 := prefix + "-2"
		require.NoError(t, store.Put(ctx, domain.NewContext(domain.WithID(id1))))
		require.NoError(t, store.Put(ctx, domain.NewContext(domain.WithID(id2))))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
