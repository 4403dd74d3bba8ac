package notification

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is the publisher period when none is configured.
const DefaultInterval = time.Second

// Emitter sends a rendered notification to the cloud.
type Emitter interface {
	EmitNotification(name, topic, text string) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(name, topic, text string) error

// EmitNotification calls f.
func (f EmitterFunc) EmitNotification(name, topic, text string) error {
	return f(name, topic, text)
}

// Publisher sends pending notifications from a background goroutine.
//
// Each pending notification is emitted once per pass. It stays pending if
// the Emitter fails, so it is retried on the next pass.
type Publisher struct {
	reg      *Registry
	emitter  Emitter
	interval time.Duration

	onPublished func(name, topic, text string)

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger Logger
}

// NewPublisher creates a publisher. An interval of zero uses DefaultInterval.
func NewPublisher(reg *Registry, emitter Emitter, interval time.Duration) *Publisher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Publisher{
		reg:      reg,
		emitter:  emitter,
		interval: interval,
		done:     make(chan struct{}),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the publisher.
func (p *Publisher) SetLogger(logger Logger) {
	p.logger = logger
}

// OnPublished registers fn to run after each successful emit. Set before Start.
func (p *Publisher) OnPublished(fn func(name, topic, text string)) {
	p.onPublished = fn
}

// Start launches the worker goroutine.
func (p *Publisher) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.loop(ctx)
}

// Stop stops the worker and waits for it to exit. Safe to call multiple times.
func (p *Publisher) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
}

func (p *Publisher) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-ticker.C:
			p.PublishPending()
		}
	}
}

// PublishPending emits every pending notification once and returns how
// many were sent successfully.
func (p *Publisher) PublishPending() int {
	sent := 0
	for _, n := range p.reg.Pending() {
		if err := p.emitter.EmitNotification(n.Name, n.Topic, n.Text); err != nil {
			p.logger.Warn("notification publish failed", "name", n.Name, "error", err)
			continue
		}
		p.reg.markSent(n)
		sent++
		if p.onPublished != nil {
			p.onPublished(n.Name, n.Topic, n.Text)
		}
	}
	return sent
}
