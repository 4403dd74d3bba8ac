package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-device/internal/cloud"
	"github.com/nerrad567/gray-logic-device/internal/credentials"
	"github.com/nerrad567/gray-logic-device/internal/notification"
	"github.com/nerrad567/gray-logic-device/internal/property"
	"github.com/nerrad567/gray-logic-device/internal/provisioning"
	"github.com/nerrad567/gray-logic-device/internal/rpc"
)

// DefaultTick is the main loop period.
const DefaultTick = 10 * time.Millisecond

// Storage prepares persistent storage before credentials are read.
type Storage interface {
	Init(ctx context.Context) error
}

// StorageFunc adapts a function to Storage.
type StorageFunc func(ctx context.Context) error

// Init calls f.
func (f StorageFunc) Init(ctx context.Context) error { return f(ctx) }

// Link is the cloud connection as seen by the scheduler. *cloud.Link
// implements it.
type Link interface {
	Configure(id *credentials.Identity) error
	SetPropertyUpdateHandler(fn cloud.PropertyUpdateFunc)
	SetRPCDispatcher(d cloud.Dispatcher)
	Connect() error
	Loop()
}

// Provisioning is the provisioning collaborator polled every tick.
// *provisioning.Service implements it.
type Provisioning interface {
	provisioning.Requester
	Loop(ctx context.Context)
}

// Poller is advanced once per tick. The trigger and periodic publisher
// implement it.
type Poller interface {
	Poll() bool
}

// Worker is a background task started during startup.
type Worker interface {
	Start(ctx context.Context)
	Stop()
}

// Registries is handed to the Registrar so the application can install
// its properties, notifications and handlers.
type Registries struct {
	Properties    *property.Registry
	Notifications *notification.Registry
	RPC           *rpc.Registry
	Provisioning  provisioning.Requester
}

// Registrar installs the application.
type Registrar func(r Registries) error

// Deps wires the scheduler's collaborators.
type Deps struct {
	Storage       Storage
	Credentials   credentials.Provider
	Link          Link
	Registrar     Registrar
	Properties    *property.Registry
	Notifications *notification.Registry
	RPC           *rpc.Registry
	Provisioning  Provisioning
	Trigger       Poller
	Publisher     Poller

	// Workers are started in order after registration and stopped in
	// reverse order by Shutdown.
	Workers []Worker

	Clock Clock
	Tick  time.Duration
}

// Scheduler is the device's main loop.
//
// Startup runs the fixed startup sequence, stopping at the first failure.
// Run then polls the link, the provisioning service, the trigger and the
// periodic publisher every tick, in that order, against absolute deadlines
// so that the period does not drift with the work done in each tick.
type Scheduler struct {
	deps     Deps
	tick     time.Duration
	clock    Clock
	identity *credentials.Identity

	started bool
	ticks   atomic.Uint64
	overrun atomic.Uint64

	stopOnce sync.Once
	logger   Logger
}

// New validates deps and creates a scheduler.
func New(deps Deps) (*Scheduler, error) {
	var missing []error
	check := func(ok bool, name string) {
		if !ok {
			missing = append(missing, fmt.Errorf("%w: %s", ErrMissingDependency, name))
		}
	}
	check(deps.Storage != nil, "storage")
	check(deps.Credentials != nil, "credentials")
	check(deps.Link != nil, "link")
	check(deps.Registrar != nil, "registrar")
	check(deps.Properties != nil, "properties")
	check(deps.Notifications != nil, "notifications")
	check(deps.RPC != nil, "rpc")
	check(deps.Provisioning != nil, "provisioning")
	check(deps.Trigger != nil, "trigger")
	check(deps.Publisher != nil, "publisher")
	if err := errors.Join(missing...); err != nil {
		return nil, err
	}

	tick := deps.Tick
	if tick <= 0 {
		tick = DefaultTick
	}
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock{}
	}

	return &Scheduler{
		deps:   deps,
		tick:   tick,
		clock:  clock,
		logger: noopLogger{},
	}, nil
}

// SetLogger sets the logger for the scheduler.
func (s *Scheduler) SetLogger(logger Logger) {
	s.logger = logger
}

// Identity returns the loaded device identity, or nil before Startup.
func (s *Scheduler) Identity() *credentials.Identity {
	return s.identity
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

// Startup brings the device up:
//
//  1. storage
//  2. credentials
//  3. link configuration
//  4. application registration
//  5. inbound handler wiring
//  6. background workers
//  7. connection request
//
// Every step is fatal. Steps after a failure are not attempted.
func (s *Scheduler) Startup(ctx context.Context) error {
	if s.started {
		return ErrAlreadyStarted
	}

	d := s.deps
	steps := []step{
		{"storage", d.Storage.Init},
		{"credentials", func(ctx context.Context) error {
			id, err := d.Credentials.Load(ctx)
			if err != nil {
				return err
			}
			s.identity = id
			return nil
		}},
		{"link", func(context.Context) error {
			return d.Link.Configure(s.identity)
		}},
		{"registrar", func(context.Context) error {
			return d.Registrar(Registries{
				Properties:    d.Properties,
				Notifications: d.Notifications,
				RPC:           d.RPC,
				Provisioning:  d.Provisioning,
			})
		}},
		{"handlers", func(context.Context) error {
			d.Link.SetPropertyUpdateHandler(d.Properties.OnRemoteUpdate)
			d.Link.SetRPCDispatcher(d.RPC)
			return nil
		}},
		{"workers", func(ctx context.Context) error {
			for _, w := range d.Workers {
				w.Start(ctx)
			}
			return nil
		}},
		{"connect", func(context.Context) error {
			return d.Link.Connect()
		}},
	}

	for _, st := range steps {
		if err := st.run(ctx); err != nil {
			s.logger.Error("startup step failed", "step", st.name, "error", err)
			return fmt.Errorf("%w: %s: %w", ErrStartup, st.name, err)
		}
		s.logger.Debug("startup step complete", "step", st.name)
	}

	s.started = true
	s.logger.Info("device started",
		"device", s.identity.String(),
		"properties", d.Properties.Len(),
		"endpoints", len(d.RPC.Endpoints()),
	)
	return nil
}

// RunOnce performs one tick of work.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.deps.Link.Loop()
	s.deps.Provisioning.Loop(ctx)
	s.deps.Trigger.Poll()
	s.deps.Publisher.Poll()
	s.ticks.Add(1)
}

// Run repeats RunOnce every tick until ctx is done.
//
// Deadlines are start+k*tick. When a tick overruns its deadline the
// schedule restarts from the current time instead of running the missed
// ticks back to back.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.started {
		return ErrNotStarted
	}

	s.logger.Info("main loop running", "tick", s.tick)
	next := s.clock.Now()
	for {
		s.RunOnce(ctx)

		next = next.Add(s.tick)
		if now := s.clock.Now(); now.After(next) {
			s.overrun.Add(1)
			s.logger.Debug("tick overran", "late_by", now.Sub(next))
			next = now
		}

		if err := s.clock.SleepUntil(ctx, next); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				s.logger.Info("main loop stopped", "ticks", s.ticks.Load(), "overruns", s.overrun.Load())
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			s.logger.Info("main loop stopped", "ticks", s.ticks.Load(), "overruns", s.overrun.Load())
			return nil
		}
	}
}

// Stats returns the number of ticks run and how many overran. Safe to
// call from any goroutine.
func (s *Scheduler) Stats() (ticks, overruns uint64) {
	return s.ticks.Load(), s.overrun.Load()
}

// Shutdown stops the background workers in reverse start order. The device
// core has no other teardown; the process exits afterwards.
func (s *Scheduler) Shutdown() {
	s.stopOnce.Do(func() {
		for i := len(s.deps.Workers) - 1; i >= 0; i-- {
			s.deps.Workers[i].Stop()
		}
	})
}
