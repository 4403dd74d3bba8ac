package property

import (
	"context"
	"sync"
	"time"
)

// DefaultIdleWake is the worker period while nothing is registered.
const DefaultIdleWake = 100 * time.Millisecond

// unit is one independently clocked sync target: an ungrouped property or a group.
type unit struct {
	prop  Handle
	group GroupHandle
}

// Syncer periodically emits property values to a Sink.
//
// It wakes every min(all sync intervals), or every idleWake while nothing
// is registered. On each pass every unit whose interval has elapsed since it was
// last sent is emitted and its clock restarts. A unit's clock starts the
// first time the syncer sees it. Emission is best effort: a Sink error is
// logged and the clock still restarts.
//
// The syncer only reads the registry; it never blocks device logic.
type Syncer struct {
	reg      *Registry
	sink     Sink
	idleWake time.Duration
	now      func() time.Time

	lastSent map[unit]time.Time
	mu       sync.Mutex

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger Logger
}

// NewSyncer creates a syncer. An idleWake of zero uses DefaultIdleWake.
func NewSyncer(reg *Registry, sink Sink, idleWake time.Duration) *Syncer {
	if idleWake <= 0 {
		idleWake = DefaultIdleWake
	}
	return &Syncer{
		reg:      reg,
		sink:     sink,
		idleWake: idleWake,
		now:      time.Now,
		lastSent: make(map[unit]time.Time),
		done:     make(chan struct{}),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the syncer.
func (s *Syncer) SetLogger(logger Logger) {
	s.logger = logger
}

// Start launches the worker goroutine. It runs until ctx is cancelled or Stop is called.
func (s *Syncer) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop stops the worker and waits for it to exit. Safe to call multiple times.
func (s *Syncer) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}

func (s *Syncer) loop(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(s.WakeInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-timer.C:
			s.SyncDue(s.now())
			timer.Reset(s.WakeInterval())
		}
	}
}

// WakeInterval returns the current worker period: the smallest sync
// interval among ungrouped properties and non-empty groups, or idleWake
// when there is none.
func (s *Syncer) WakeInterval() time.Duration {
	s.reg.mu.RLock()
	defer s.reg.mu.RUnlock()

	var smallest time.Duration
	consider := func(d time.Duration) {
		if smallest == 0 || d < smallest {
			smallest = d
		}
	}
	for _, p := range s.reg.props {
		if p.group == noGroup {
			consider(p.minInterval)
		}
	}
	for _, g := range s.reg.groups {
		if len(g.members) > 0 {
			consider(g.interval)
		}
	}

	if smallest == 0 {
		return s.idleWake
	}
	return smallest
}

// emission is one Sink call prepared under the registry lock.
type emission struct {
	unit    unit
	samples []Sample
}

// SyncDue emits every unit that is due at now and returns how many Sink
// calls were made.
func (s *Syncer) SyncDue(now time.Time) int {
	due := s.collectDue(now)

	for _, e := range due {
		if err := s.sink.EmitProperties(e.samples); err != nil {
			s.logger.Warn("property sync failed",
				"keys", sampleKeys(e.samples),
				"error", err,
			)
		}
	}
	return len(due)
}

// collectDue captures samples for due units and restarts their clocks.
func (s *Syncer) collectDue(now time.Time) []emission {
	s.reg.mu.RLock()
	defer s.reg.mu.RUnlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []emission

	for i, p := range s.reg.props {
		if p.group != noGroup {
			continue
		}
		u := unit{prop: Handle(i), group: noGroup}
		if s.isDue(u, p.minInterval, now) {
			out = append(out, emission{unit: u, samples: []Sample{p.sample()}})
		}
	}

	for gi, g := range s.reg.groups {
		if len(g.members) == 0 {
			continue
		}
		u := unit{prop: -1, group: GroupHandle(gi)}
		if !s.isDue(u, g.interval, now) {
			continue
		}
		if g.batch {
			samples := make([]Sample, 0, len(g.members))
			for _, h := range g.members {
				samples = append(samples, s.reg.props[h].sample())
			}
			out = append(out, emission{unit: u, samples: samples})
			continue
		}
		for _, h := range g.members {
			out = append(out, emission{unit: u, samples: []Sample{s.reg.props[h].sample()}})
		}
	}

	return out
}

// isDue reports whether interval has elapsed for u and, if so, restarts its clock.
func (s *Syncer) isDue(u unit, interval time.Duration, now time.Time) bool {
	last, seen := s.lastSent[u]
	if !seen {
		s.lastSent[u] = now
		return false
	}
	if now.Sub(last) < interval {
		return false
	}
	s.lastSent[u] = now
	return true
}

func sampleKeys(samples []Sample) []string {
	keys := make([]string, len(samples))
	for i, smp := range samples {
		keys[i] = smp.Key
	}
	return keys
}
