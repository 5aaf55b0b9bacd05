package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/turnstile/pkg/adapters/memory"
	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		id := domain.Identity{ChannelID: "c", ConversationID: "v", UserID: fmt.Sprintf("user-%d", i)}
		_ = mgr.WithLock(ctx, id, func(context.Context) error { return nil })
		_ = mgr.Delete(ctx, id)
	}

	assert.Empty(t, mgr.locks, "locks must be released once no turn holds them")
}

func TestManager_CancelledWaitReleasesEntry(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	id := domain.Identity{ChannelID: "c", ConversationID: "v", UserID: "u"}

	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = mgr.WithLock(context.Background(), id, func(context.Context) error {
			close(held)
			<-done
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := mgr.WithLock(ctx, id, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)

	close(done)
	assert.Eventually(t, func() bool {
		mgr.mu.Lock()
		defer mgr.mu.Unlock()
		return len(mgr.locks) == 0
	}, time.Second, 5*time.Millisecond)
}
