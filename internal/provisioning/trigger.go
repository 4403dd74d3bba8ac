package provisioning

import "time"

// Defaults for the long-press trigger.
const (
	DefaultTick      = 10 * time.Millisecond
	DefaultThreshold = 10 * time.Second
)

// Requester receives provisioning requests. Implementations must not block.
type Requester interface {
	RequestProvisioning(source string)
}

// Trigger turns a long button press into a provisioning request.
//
// Poll is called once per scheduler tick. While the button is held the
// press duration grows by one tick; a release resets it. The request fires
// on the tick where the duration crosses the threshold, at most once per
// press: the duration restarts from zero and stays there until the button
// is released, so the next request needs a release followed by another full
// threshold of holding.
//
// A Trigger is owned by the scheduler goroutine and is not thread-safe.
type Trigger struct {
	input     Input
	requester Requester
	tick      time.Duration
	threshold time.Duration

	pressedFor time.Duration
	fired      bool // latched until the current press ends
	readFailed bool

	logger Logger
}

// NewTrigger creates a trigger. Zero tick or threshold use the defaults.
func NewTrigger(input Input, requester Requester, tick, threshold time.Duration) *Trigger {
	if tick <= 0 {
		tick = DefaultTick
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if input == nil {
		input = StaticInput{}
	}
	return &Trigger{
		input:     input,
		requester: requester,
		tick:      tick,
		threshold: threshold,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the trigger.
func (t *Trigger) SetLogger(logger Logger) {
	t.logger = logger
}

// PressedFor returns the accumulated press duration.
func (t *Trigger) PressedFor() time.Duration {
	return t.pressedFor
}

// Poll samples the input once and reports whether a request fired.
// A read error counts as released.
func (t *Trigger) Poll() bool {
	pressed, err := t.input.Pressed()
	if err != nil {
		// Log once per failure streak; the loop polls every tick.
		if !t.readFailed {
			t.logger.Warn("button read failed", "error", err)
			t.readFailed = true
		}
		pressed = false
	} else {
		t.readFailed = false
	}

	if !pressed {
		t.pressedFor = 0
		t.fired = false
		return false
	}
	if t.fired {
		return false
	}

	before := t.pressedFor
	t.pressedFor += t.tick
	if before < t.threshold && t.pressedFor >= t.threshold {
		t.pressedFor = 0
		t.fired = true
		t.logger.Info("long press detected, requesting provisioning", "threshold", t.threshold)
		if t.requester != nil {
			t.requester.RequestProvisioning(SourceButton)
		}
		return true
	}
	return false
}
