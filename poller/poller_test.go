package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestOneLoopPerKey(t *testing.T) {
	s := New(WithInterval(5 * time.Millisecond))
	defer s.Stop()

	var first, second int32
	unsubA := s.Subscribe("tpy/daily", func(context.Context) error {
		atomic.AddInt32(&first, 1)
		return nil
	})
	unsubB := s.Subscribe("tpy/daily", func(context.Context) error {
		atomic.AddInt32(&second, 1)
		return nil
	})
	assert.Equal(t, 2, s.Subscribers("tpy/daily"))

	require.Eventually(t, func() bool { return atomic.LoadInt32(&first) >= 3 }, time.Second, time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&second))

	unsubA()
	unsubA()
	assert.Equal(t, 1, s.Subscribers("tpy/daily"))
	unsubB()
	assert.Equal(t, 0, s.Subscribers("tpy/daily"))

	stopped := atomic.LoadInt32(&first)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, atomic.LoadInt32(&first))
}

func TestImmediateFetch(t *testing.T) {
	s := New(WithInterval(time.Hour), WithImmediate())
	defer s.Stop()

	fetched := make(chan struct{}, 1)
	unsub := s.Subscribe("packing", func(context.Context) error {
		fetched <- struct{}{}
		return nil
	})
	defer unsub()

	select {
	case <-fetched:
	case <-time.After(time.Second):
		t.Fatal("expected an immediate fetch")
	}
}

func TestRefreshCollapsesConcurrentCalls(t *testing.T) {
	s := New(WithInterval(time.Hour))
	defer s.Stop()

	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	unsub := s.Subscribe("snfn", func(context.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		return errors.New("backend down")
	})
	defer unsub()

	var wg sync.WaitGroup
	errs := make([]error, 3)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = s.Refresh(context.Background(), "snfn")
	}()
	<-started
	for i := 1; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Refresh(context.Background(), "snfn")
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, err := range errs {
		assert.EqualError(t, err, "backend down")
	}
}

func TestRefreshUnknownKeyAndCancelledCaller(t *testing.T) {
	s := New(WithInterval(time.Hour))
	defer s.Stop()
	assert.ErrorIs(t, s.Refresh(context.Background(), "missing"), ErrUnknownKey)

	unsub := s.Subscribe("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Refresh(ctx, "slow"), context.DeadlineExceeded)
	unsub()
}

func TestStopEndsEverything(t *testing.T) {
	s := New(WithInterval(time.Millisecond))
	unsub := s.Subscribe("a", func(context.Context) error { return nil })
	s.Subscribe("b", func(context.Context) error { return nil })
	s.Stop()

	unsub()
	assert.ErrorIs(t, s.Refresh(context.Background(), "a"), ErrStopped)
	noop := s.Subscribe("c", func(context.Context) error { return nil })
	noop()
	assert.Zero(t, s.Subscribers("c"))
}
