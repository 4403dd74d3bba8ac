package provisioning

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultWindow is how long provisioning mode stays open.
const DefaultWindow = 5 * time.Minute

// Request sources.
const (
	SourceButton = "button"
	SourceRPC    = "rpc"
	SourceAPI    = "api"
)

// Event describes one entry into (or extension of) provisioning mode.
type Event struct {
	ID        int64     `json:"id,omitempty"`
	Source    string    `json:"source"`
	EnteredAt time.Time `json:"entered_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Extended  bool      `json:"extended,omitempty"`
}

// Status is a point-in-time view of the service.
type Status struct {
	Active    bool      `json:"active"`
	Source    string    `json:"source,omitempty"`
	EnteredAt time.Time `json:"entered_at,omitzero"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	Pending   bool      `json:"pending"`
}

// Listener is told about every entry or extension.
type Listener func(Event)

// Service owns provisioning mode on behalf of the radio stack.
//
// RequestProvisioning only records the request and is safe from any
// goroutine, including RPC handlers on the transport goroutine. Loop is
// called by the scheduler and does the work: enter the mode, extend an
// open window, close an expired one.
type Service struct {
	pending atomic.Pointer[string]

	window time.Duration
	store  EventStore
	now    func() time.Time

	mu        sync.RWMutex
	active    bool
	source    string
	enteredAt time.Time
	expiresAt time.Time
	listeners []Listener

	logger Logger
}

// NewService creates a service. A nil store skips event recording; a zero
// window uses DefaultWindow.
func NewService(store EventStore, window time.Duration) *Service {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Service{
		window: window,
		store:  store,
		now:    time.Now,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// OnEnter registers a listener.
func (s *Service) OnEnter(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// RequestProvisioning asks for provisioning mode. It never blocks. Requests
// made before the next Loop collapse into one.
func (s *Service) RequestProvisioning(source string) {
	s.pending.Store(&source)
}

// Loop processes a pending request and expires the window.
func (s *Service) Loop(ctx context.Context) {
	now := s.now()

	if src := s.pending.Swap(nil); src != nil {
		s.enter(ctx, *src, now)
	}

	s.mu.Lock()
	if s.active && !now.Before(s.expiresAt) {
		s.active = false
		s.mu.Unlock()
		s.logger.Info("provisioning window closed")
		return
	}
	s.mu.Unlock()
}

func (s *Service) enter(ctx context.Context, source string, now time.Time) {
	s.mu.Lock()
	extended := s.active
	if !extended {
		s.active = true
		s.enteredAt = now
	}
	s.source = source
	s.expiresAt = now.Add(s.window)
	ev := Event{Source: source, EnteredAt: s.enteredAt, ExpiresAt: s.expiresAt, Extended: extended}
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	if extended {
		s.logger.Info("provisioning window extended", "source", source, "expires_at", ev.ExpiresAt)
	} else {
		s.logger.Info("entered provisioning mode", "source", source, "expires_at", ev.ExpiresAt)
	}

	if s.store != nil {
		id, err := s.store.Record(ctx, ev)
		if err != nil {
			s.logger.Warn("recording provisioning event failed", "error", err)
		}
		ev.ID = id
	}

	for _, l := range listeners {
		l(ev)
	}
}

// Status returns the current state.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Active:  s.active,
		Pending: s.pending.Load() != nil,
	}
	if s.active {
		st.Source = s.source
		st.EnteredAt = s.enteredAt
		st.ExpiresAt = s.expiresAt
	}
	return st
}

// Active reports whether provisioning mode is open.
func (s *Service) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// History returns up to limit recent events, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]Event, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.Recent(ctx, limit)
}
