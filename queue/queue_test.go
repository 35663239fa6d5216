package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueue_FIFOOrder(t *testing.T) {
	q := New[int](4, nil)
	for i := 0; i < 4; i++ {
		require.NoError(t, q.Push(i))
	}
	for i := 0; i < 4; i++ {
		v, err := q.Pop()
		require.NoError(t, err)
		require.Equal(t, i, v)
	}
}

func TestQueue_CapacityNeverExceeded(t *testing.T) {
	const capacity = 8
	q := New[int](capacity, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if q.Push(i) != nil {
				return
			}
		}
		q.Close()
	}()

	maxSeen := 0
	for {
		if l := q.Len(); l > maxSeen {
			maxSeen = l
		}
		_, err := q.Pop()
		if err != nil {
			break
		}
	}
	wg.Wait()
	require.LessOrEqual(t, maxSeen, capacity)
}

func TestQueue_PushBlocksAtCapacityUnblocksOnPop(t *testing.T) {
	q := New[int](1, nil)
	require.NoError(t, q.Push(1))

	pushed := make(chan error, 1)
	go func() {
		pushed <- q.Push(2)
	}()

	select {
	case <-pushed:
		t.Fatal("push at capacity did not block")
	case <-time.After(50 * time.Millisecond):
	}

	v, err := q.Pop()
	require.NoError(t, err)
	require.Equal(t, 1, v)
	require.NoError(t, <-pushed)

	v, err = q.Pop()
	require.NoError(t, err)
	require.Equal(t, 2, v)
}

func TestQueue_PushBlockedUnblocksOnClose(t *testing.T) {
	q := New[int](1, nil)
	require.NoError(t, q.Push(1))

	pushed := make(chan error, 1)
	go func() {
		pushed <- q.Push(2)
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()
	require.ErrorIs(t, <-pushed, ErrClosed)
}

func TestQueue_PopEmptyOpenBlocks(t *testing.T) {
	q := New[int](1, nil)

	popped := make(chan error, 1)
	go func() {
		_, err := q.Pop()
		popped <- err
	}()

	select {
	case <-popped:
		t.Fatal("pop on an empty open queue did not block")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, q.Push(42))
	require.NoError(t, <-popped)
}

func TestQueue_PopClosedDrainsThenReportsClosed(t *testing.T) {
	q := New[int](4, nil)
	require.NoError(t, q.Push(1))
	require.NoError(t, q.Push(2))
	q.Close()

	v, err := q.Pop()
	require.NoError(t, err)
	require.Equal(t, 1, v)
	v, err = q.Pop()
	require.NoError(t, err)
	require.Equal(t, 2, v)

	_, err = q.Pop()
	require.ErrorIs(t, err, ErrClosed)
}

func TestQueue_PopEmptyClosedReturnsImmediately(t *testing.T) {
	q := New[int](1, nil)
	q.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := q.Pop()
		require.ErrorIs(t, err, ErrClosed)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pop on an empty closed queue blocked")
	}
}

func TestQueue_CloseWakesAllWaiters(t *testing.T) {
	q := New[int](1, nil)
	require.NoError(t, q.Push(0))

	const waiters = 8
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = q.Push(1)
		}()
		go func() {
			defer wg.Done()
			_, _ = q.Pop()
		}()
	}

	time.Sleep(20 * time.Millisecond)
	q.Close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("close did not wake every blocked waiter")
	}
}

func TestQueue_SizeAccounting(t *testing.T) {
	type blob struct{ size int }
	q := New[blob](4, func(b blob) int { return b.size })

	require.NoError(t, q.Push(blob{size: 100}))
	require.NoError(t, q.Push(blob{size: 28}))
	require.Equal(t, 128, q.Size())
	require.Equal(t, 2, q.Len())

	_, err := q.Pop()
	require.NoError(t, err)
	require.Equal(t, 28, q.Size())

	_, err = q.Pop()
	require.NoError(t, err)
	require.Equal(t, 0, q.Size())
}

func TestQueue_DrainReleasesRemaining(t *testing.T) {
	q := New[int](8, nil)
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Push(i))
	}

	var released []int
	q.Drain(func(v int) { released = append(released, v) })
	require.Equal(t, []int{0, 1, 2, 3, 4}, released)

	_, err := q.Pop()
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, q.Push(9), ErrClosed)
}
