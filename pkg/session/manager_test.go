package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/turnstile/pkg/adapters/memory"
	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/aretw0/turnstile/pkg/ports"
	"github.com/aretw0/turnstile/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity(user string) domain.Identity {
	return domain.Identity{ChannelID: "test", ConversationID: "conv", UserID: user}
}

func TestManager_SerializesSameIdentity(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()
	id := identity("alice")

	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.WithLock(ctx, id, func(ctx context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				if n > atomic.LoadInt32(&maxSeen) {
					atomic.StoreInt32(&maxSeen, n)
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxSeen)
}

func TestManager_LoadAdvanceSaveWithoutLostUpdates(t *testing.T) {
	store := memory.NewStore()
	manager := session.NewManager(store)
	ctx := context.Background()
	id := identity("counter")

	const turns = 20
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.WithLock(ctx, id, func(ctx context.Context) error {
				stack, err := store.Load(ctx, id)
				if errors.Is(err, domain.ErrStackNotFound) {
					stack = domain.NewStack()
					stack.Push(domain.NewFrame("root"))
				} else if err != nil {
					return err
				}
				stack.Active().StepIndex++
				return store.Save(ctx, id, stack)
			})
			assert.NoError(t, err, "a serialized read-modify-write never conflicts")
		}()
	}
	wg.Wait()

	stack, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, turns, stack.Active().StepIndex)
	assert.Equal(t, int64(turns), stack.Version)
}

func TestManager_DifferentIdentitiesRunConcurrently(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	aInside := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = manager.WithLock(ctx, identity("a"), func(context.Context) error {
			close(aInside)
			<-release
			return nil
		})
	}()
	<-aInside
	defer close(release)

	done := make(chan struct{})
	go func() {
		_ = manager.WithLock(ctx, identity("b"), func(context.Context) error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("identity b was blocked by identity a")
	}
}

type recordingLocker struct {
	mu       sync.Mutex
	locked   []string
	unlocked []string
	err      error
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.mu.Lock()
	l.locked = append(l.locked, key)
	l.mu.Unlock()
	return func(context.Context) error {
		l.mu.Lock()
		l.unlocked = append(l.unlocked, key)
		l.mu.Unlock()
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &recordingLocker{}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker), session.WithLockTTL(time.Second))
	id := identity("dist")

	require.NoError(t, manager.WithLock(context.Background(), id, func(context.Context) error { return nil }))
	assert.Equal(t, []string{id.Key()}, locker.locked)
	assert.Equal(t, []string{id.Key()}, locker.unlocked)

	locker.err = errors.New("redis down")
	err := manager.WithLock(context.Background(), id, func(context.Context) error {
		t.Fatal("fn must not run without the distributed lock")
		return nil
	})
	assert.ErrorContains(t, err, "failed to acquire distributed lock")
}
