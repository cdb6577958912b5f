package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quilldb/internal/value"
)

func TestAcquireReentrantForSameOwner(t *testing.T) {
	m := NewManager()
	rid := value.RID{Page: 1, Slot: 0}

	require.NoError(t, m.Acquire(context.Background(), 1, "t", rid))
	require.NoError(t, m.Acquire(context.Background(), 1, "t", rid))
}

func TestAcquireBlocksDifferentOwnerUntilRelease(t *testing.T) {
	m := NewManager()
	rid := value.RID{Page: 1, Slot: 0}

	require.NoError(t, m.Acquire(context.Background(), 1, "t", rid))

	var wg sync.WaitGroup
	granted := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		require.NoError(t, m.Acquire(context.Background(), 2, "t", rid))
		close(granted)
	}()

	select {
	case <-granted:
		t.Fatal("second owner acquired a still-held lock")
	case <-time.After(50 * time.Millisecond):
	}

	m.Release(1, "t", rid)

	select {
	case <-granted:
	case <-time.After(time.Second):
		t.Fatal("second owner never granted the lock after release")
	}
	wg.Wait()
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	m := NewManager()
	rid := value.RID{Page: 1, Slot: 0}
	require.NoError(t, m.Acquire(context.Background(), 1, "t", rid))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := m.Acquire(ctx, 2, "t", rid)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReleaseAllDropsEveryLockHeldByOwner(t *testing.T) {
	m := NewManager()
	ridA := value.RID{Page: 1, Slot: 0}
	ridB := value.RID{Page: 1, Slot: 1}

	require.NoError(t, m.Acquire(context.Background(), 1, "t", ridA))
	require.NoError(t, m.Acquire(context.Background(), 1, "t", ridB))

	m.ReleaseAll(1)

	require.NoError(t, m.Acquire(context.Background(), 2, "t", ridA))
	require.NoError(t, m.Acquire(context.Background(), 3, "t", ridB))
}

func TestReleaseByNonOwnerIsNoop(t *testing.T) {
	m := NewManager()
	rid := value.RID{Page: 1, Slot: 0}
	require.NoError(t, m.Acquire(context.Background(), 1, "t", rid))

	m.Release(2, "t", rid)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := m.Acquire(ctx, 2, "t", rid)
	assert.Error(t, err)
}
