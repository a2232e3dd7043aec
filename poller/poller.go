// Package poller runs one refresh loop per data source no matter how many
// views subscribe to it.
package poller

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const DefaultInterval = 5 * time.Minute

var (
	ErrUnknownKey = errors.New("poller: no subscription for key")
	ErrStopped    = errors.New("poller: scheduler stopped")
)

// FetchFunc refreshes one data source. It should honor ctx cancellation.
type FetchFunc func(ctx context.Context) error

type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithLogger(l *logrus.Logger) Option { return func(s *Scheduler) { s.log = l } }

// WithImmediate makes a new topic fetch once as soon as it is created instead
// of waiting for the first tick.
func WithImmediate() Option { return func(s *Scheduler) { s.immediate = true } }

type topic struct {
	key    string
	fetch  FetchFunc
	refs   int
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

type Scheduler struct {
	interval  time.Duration
	immediate bool
	log       *logrus.Logger

	group   singleflight.Group
	mu      sync.Mutex
	topics  map[string]*topic
	stopped bool
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		interval: DefaultInterval,
		topics:   make(map[string]*topic),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logrus.New()
		s.log.SetOutput(io.Discard)
	}
	return s
}

// Subscribe registers interest in key. The first subscriber's fetch starts
// the topic's loop; later subscribers share it. The returned function
// releases the subscription and is safe to call more than once. The loop
// stops, and unsubscribe waits for it, when the last subscriber leaves.
func (s *Scheduler) Subscribe(key string, fetch FetchFunc) (unsubscribe func()) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return func() {}
	}
	t, ok := s.topics[key]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		t = &topic{key: key, fetch: fetch, ctx: ctx, cancel: cancel, done: make(chan struct{})}
		s.topics[key] = t
		go s.loop(t)
		s.log.WithField("key", key).Debug("poll topic started")
	}
	t.refs++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.release(t) })
	}
}

func (s *Scheduler) release(t *topic) {
	s.mu.Lock()
	t.refs--
	last := t.refs == 0
	if last && s.topics[t.key] == t {
		delete(s.topics, t.key)
	}
	s.mu.Unlock()

	if last {
		t.cancel()
		<-t.done
		s.log.WithField("key", t.key).Debug("poll topic stopped")
	}
}

func (s *Scheduler) loop(t *topic) {
	defer close(t.done)
	if s.immediate {
		s.run(t)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.ctx.Done():
			return
		case <-ticker.C:
			s.run(t)
		}
	}
}

func (s *Scheduler) run(t *topic) {
	if _, err, shared := s.group.Do(t.key, func() (any, error) {
		return nil, t.fetch(t.ctx)
	}); err != nil && t.ctx.Err() == nil {
		s.log.WithFields(logrus.Fields{"key": t.key, "shared": shared}).WithError(err).Warn("poll fetch failed")
	}
}

// Refresh fetches key now. Concurrent refreshes and ticks of one key collapse
// into a single fetch whose error every caller receives.
func (s *Scheduler) Refresh(ctx context.Context, key string) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	t, ok := s.topics[key]
	s.mu.Unlock()
	if !ok {
		return ErrUnknownKey
	}

	ch := s.group.DoChan(key, func() (any, error) {
		return nil, t.fetch(t.ctx)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribers reports the reference count of key.
func (s *Scheduler) Subscribers(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.topics[key]; ok {
		return t.refs
	}
	return 0
}

// Stop ends every loop and waits for them. Outstanding unsubscribe functions
// become no-ops.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	topics := s.topics
	s.topics = make(map[string]*topic)
	s.mu.Unlock()

	for _, t := range topics {
		t.cancel()
	}
	for _, t := range topics {
		<-t.done
	}
}
