package ports

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	suffix := time.Now().Format("20060102150405.000000000")
	identity := func(user string) domain.Identity {
		return domain.Identity{
			ChannelID:      "contract",
			ConversationID: "conv-" + suffix,
			UserID:         user,
		}
	}

	pendingStack := func() *domain.DialogStack {
		s := domain.NewStack()
		f := domain.NewFrame("root")
		f.StepIndex = 1
		f.Results["name"] = "Alice"
		f.Pending = &domain.PendingPrompt{
			PromptID: "choice",
			Options: domain.PromptOptions{
				Text:    "Pick one",
				Choices: []string{"Cheese", "Veggie"},
			},
		}
		s.Push(f)
		return s
	}

	t.Run("Save and Load", func(t *testing.T) {
		id := identity("save-load")
		defer func() { _ = store.Delete(ctx, id) }()

		stack := pendingStack()
		require.NoError(t, store.Save(ctx, id, stack), "Save should not return error")
		assert.Equal(t, int64(1), stack.Version, "Save should bump the caller's version")

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, int64(1), loaded.Version)
		require.Len(t, loaded.Frames, 1)
		assert.Equal(t, "root", loaded.Frames[0].DialogID)
		assert.Equal(t, 1, loaded.Frames[0].StepIndex)
		assert.Equal(t, "Alice", loaded.Frames[0].Results["name"])
		require.NotNil(t, loaded.Frames[0].Pending)
		assert.Equal(t, "choice", loaded.Frames[0].Pending.PromptID)
		assert.Equal(t, []string{"Cheese", "Veggie"}, loaded.Frames[0].Pending.Options.Choices)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, identity("ghost"))
		assert.ErrorIs(t, err, domain.ErrStackNotFound)
	})

	t.Run("Loaded Value Is Isolated", func(t *testing.T) {
		id := identity("isolation")
		defer func() { _ = store.Delete(ctx, id) }()

		require.NoError(t, store.Save(ctx, id, pendingStack()))
		first, err := store.Load(ctx, id)
		require.NoError(t, err)
		first.Frames[0].Results["name"] = "Mallory"

		second, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Alice", second.Frames[0].Results["name"])
	})

	t.Run("Empty Stack Persists", func(t *testing.T) {
		id := identity("empty")
		defer func() { _ = store.Delete(ctx, id) }()

		require.NoError(t, store.Save(ctx, id, domain.NewStack()))
		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.True(t, loaded.Empty())
		assert.Equal(t, int64(1), loaded.Version)
	})

	t.Run("Version Conflict", func(t *testing.T) {
		id := identity("conflict")
		defer func() { _ = store.Delete(ctx, id) }()

		require.NoError(t, store.Save(ctx, id, pendingStack()))

		a, err := store.Load(ctx, id)
		require.NoError(t, err)
		b, err := store.Load(ctx, id)
		require.NoError(t, err)

		require.NoError(t, store.Save(ctx, id, a))
		err = store.Save(ctx, id, b)
		assert.ErrorIs(t, err, domain.ErrConflict, "stale writer must lose")

		stale := pendingStack()
		assert.ErrorIs(t, store.Save(ctx, id, stale), domain.ErrConflict, "create must not overwrite an existing stack")

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(2), loaded.Version)
	})

	t.Run("Concurrent Creates", func(t *testing.T) {
		id := identity("race")
		defer func() { _ = store.Delete(ctx, id) }()

		const writers = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := store.Save(ctx, id, pendingStack()); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins, "exactly one creator must win")
	})

	t.Run("Delete", func(t *testing.T) {
		id := identity("delete")
		require.NoError(t, store.Save(ctx, id, pendingStack()))

		require.NoError(t, store.Delete(ctx, id), "Delete should not return error")

		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrStackNotFound, "Load after Delete should return ErrStackNotFound")

		assert.NoError(t, store.Delete(ctx, id), "Delete of an absent stack should not fail")

		fresh := pendingStack()
		assert.NoError(t, store.Save(ctx, id, fresh), "Save after Delete starts from version 0")
		_ = store.Delete(ctx, id)
	})

	t.Run("List", func(t *testing.T) {
		ids := make([]domain.Identity, 2)
		for i := range ids {
			ids[i] = identity(fmt.Sprintf("list-%d", i))
			require.NoError(t, store.Save(ctx, ids[i], pendingStack()))
		}
		defer func() {
			for _, id := range ids {
				_ = store.Delete(ctx, id)
			}
		}()

		listed, err := store.List(ctx)
		require.NoError(t, err)
		for _, id := range ids {
			assert.Contains(t, listed, id)
		}
	})
}
