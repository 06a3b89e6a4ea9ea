package store

import (
	"log/slog"
	"sync"
)

// Dispatcher accepts actions.
type Dispatcher interface {
	Dispatch(a Action) error
}

// Listener observes an accepted action together with the state it produced.
type Listener func(a Action, s State)

// Store serializes dispatches: one action is reduced and delivered to every
// listener before the next one starts. Listeners may read State but must
// not Dispatch synchronously.
type Store struct {
	logger *slog.Logger

	dispatchMu sync.Mutex

	mu        sync.RWMutex
	state     State
	listeners map[int]Listener
	order     []int
	nextID    int
}

var _ Dispatcher = (*Store)(nil)

// New creates a store in the initial state.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		logger:    logger,
		state:     InitialState(),
		listeners: make(map[int]Listener),
	}
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.order = append(s.order, id)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Dispatch reduces a and notifies listeners. A rejected action leaves the
// state untouched, is not delivered, and returns the reducer's error.
func (s *Store) Dispatch(a Action) error {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	next, err := Reduce(s.state, a)
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("store: action rejected",
			slog.String("action", string(a.Type())),
			slog.String("error", err.Error()))
		return err
	}
	s.state = next
	listeners := make([]Listener, 0, len(s.order))
	live := s.order[:0]
	for _, id := range s.order {
		if l, ok := s.listeners[id]; ok {
			listeners = append(listeners, l)
			live = append(live, id)
		}
	}
	s.order = live
	s.mu.Unlock()

	s.logger.Debug("store: action", slog.String("action", string(a.Type())))
	for _, l := range listeners {
		l(a, next)
	}
	return nil
}
