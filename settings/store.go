package settings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNoState is returned by a Persister that has nothing saved yet.
var ErrNoState = errors.New("no saved settings")

// Persister is the storage boundary of the settings store.
type Persister interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, s State) error
}

// Store owns the current state. Every accepted action that changes the state
// is written through the persister before Dispatch returns.
type Store struct {
	mu        sync.Mutex
	state     State
	persister Persister
	log       *logrus.Logger
}

// Open loads the saved state, falling back to Default when nothing is saved.
// A nil persister keeps state in memory only.
func Open(ctx context.Context, p Persister, logger *logrus.Logger) (*Store, error) {
	if p == nil {
		p = &MemoryPersister{}
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	s := &Store{persister: p, log: logger}
	st, err := p.Load(ctx)
	switch {
	case errors.Is(err, ErrNoState):
		st = Default(time.Now())
		logger.Debug("no saved settings, using defaults")
	case err != nil:
		return nil, fmt.Errorf("load settings: %w", err)
	}
	s.state = st
	return s, nil
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Dispatch applies a. Invalid actions are rejected with ErrInvalidAction and
// leave the state untouched; a failed save also leaves it untouched.
func (s *Store) Dispatch(ctx context.Context, a Action) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := a.apply(s.state.clone())
	if err != nil {
		return s.state.clone(), err
	}
	if reflect.DeepEqual(next, s.state) {
		return next.clone(), nil
	}
	if err := s.persister.Save(ctx, next); err != nil {
		return s.state.clone(), fmt.Errorf("save settings: %w", err)
	}
	s.log.WithField("action", fmt.Sprintf("%T", a)).Debug("settings updated")
	s.state = next
	return next.clone(), nil
}

// MemoryPersister keeps the last saved state in memory.
type MemoryPersister struct {
	mu    sync.Mutex
	saved *State
	Saves int
}

func (m *MemoryPersister) Load(context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		return State{}, ErrNoState
	}
	return m.saved.clone(), nil
}

func (m *MemoryPersister) Save(_ context.Context, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := s.clone()
	m.saved = &c
	m.Saves++
	return nil
}
