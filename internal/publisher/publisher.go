package publisher

import "time"

// Defaults for the periodic status message.
const (
	DefaultTick    = 10 * time.Millisecond
	DefaultPeriod  = 20 * time.Second
	DefaultTopic   = "status"
	DefaultMessage = "online"
)

// Emitter queues a message for the cloud. It must not block and reports
// whether the message was accepted.
type Emitter interface {
	Publish(topic, message string) bool
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(topic, message string) bool

// Publish calls f.
func (f EmitterFunc) Publish(topic, message string) bool {
	return f(topic, message)
}

// Config holds the fixed message and its timing.
type Config struct {
	Tick    time.Duration
	Period  time.Duration
	Topic   string
	Message string
}

// Periodic emits a fixed message on a fixed period, counted in scheduler
// ticks. Elapsed time only advances through Poll, so the message goes out
// on the first poll where elapsed time is strictly greater than the
// period, and elapsed time then restarts from zero.
//
// A Periodic is owned by the scheduler goroutine and is not thread-safe.
type Periodic struct {
	emitter Emitter
	cfg     Config
	elapsed time.Duration
	logger  Logger
}

// New creates a publisher. Zero fields in cfg take the defaults.
func New(emitter Emitter, cfg Config) *Periodic {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.Message == "" {
		cfg.Message = DefaultMessage
	}
	return &Periodic{emitter: emitter, cfg: cfg, logger: noopLogger{}}
}

// SetLogger sets the logger for the publisher.
func (p *Periodic) SetLogger(logger Logger) {
	p.logger = logger
}

// Elapsed returns the time accumulated since the last emission.
func (p *Periodic) Elapsed() time.Duration {
	return p.elapsed
}

// Poll advances one tick and reports whether the message was emitted.
// A rejected emission is not retried; the period restarts either way.
func (p *Periodic) Poll() bool {
	p.elapsed += p.cfg.Tick
	if p.elapsed <= p.cfg.Period {
		return false
	}
	p.elapsed = 0

	if !p.emitter.Publish(p.cfg.Topic, p.cfg.Message) {
		p.logger.Warn("periodic publish dropped", "topic", p.cfg.Topic)
		return false
	}
	p.logger.Debug("periodic message queued", "topic", p.cfg.Topic)
	return true
}
