package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/turnstile/pkg/adapters/file"
	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/aretw0/turnstile/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure Store implements StateStore
var _ ports.StateStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_SurvivesNewInstance(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	id := domain.Identity{ChannelID: "msteams", ConversationID: "a/b", UserID: "u:1"}

	stack := domain.NewStack()
	f := domain.NewFrame("pizza")
	f.Results["name"] = "Alice"
	stack.Push(f)
	require.NoError(t, file.New(dir).Save(ctx, id, stack))

	// A second instance models a process restart
	reopened := file.New(dir)
	loaded, err := reopened.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Alice", loaded.Active().Results["name"])

	ids, err := reopened.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Identity{id}, ids)
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()
	id := domain.Identity{ChannelID: "c", ConversationID: "v", UserID: "u"}

	stack := domain.NewStack()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Save(ctx, id, stack))
	}

	matches, err := filepath.Glob(filepath.Join(dir, "tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_RejectsInvalidIdentity(t *testing.T) {
	store := file.New(t.TempDir())
	err := store.Save(context.Background(), domain.Identity{}, domain.NewStack())
	assert.ErrorIs(t, err, domain.ErrInvalidIdentity)
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "missing"))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
