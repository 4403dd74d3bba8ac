package publisher

import (
	"testing"
	"time"
)

type recordingEmitter struct {
	accept bool
	sent   []string
}

func (r *recordingEmitter) Publish(topic, message string) bool {
	r.sent = append(r.sent, topic+":"+message)
	return r.accept
}

func TestPeriodic_StrictlyGreaterThanPeriod(t *testing.T) {
	em := &recordingEmitter{accept: true}
	p := New(em, Config{Tick: 10 * time.Millisecond, Period: 100 * time.Millisecond})

	// Ten ticks reach the period exactly; the eleventh exceeds it.
	for i := 1; i <= 10; i++ {
		if p.Poll() {
			t.Fatalf("Poll() emitted on tick %d", i)
		}
	}
	if !p.Poll() {
		t.Fatal("Poll() did not emit on tick 11")
	}
	if p.Elapsed() != 0 {
		t.Errorf("Elapsed() = %v, want 0 after emit", p.Elapsed())
	}
	if len(em.sent) != 1 || em.sent[0] != "status:online" {
		t.Errorf("sent = %v, want [status:online]", em.sent)
	}
}

func TestPeriodic_EmissionsOverTime(t *testing.T) {
	tests := []struct {
		name   string
		tick   time.Duration
		period time.Duration
		polls  int
		want   int
	}{
		{"default timing one minute", 10 * time.Millisecond, 20 * time.Second, 6000, 2},
		{"period shorter than tick", 10 * time.Millisecond, 5 * time.Millisecond, 5, 5},
		{"uneven", 30 * time.Millisecond, 100 * time.Millisecond, 16, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			em := &recordingEmitter{accept: true}
			p := New(em, Config{Tick: tt.tick, Period: tt.period, Topic: "t", Message: "m"})
			for i := 0; i < tt.polls; i++ {
				p.Poll()
			}
			if len(em.sent) != tt.want {
				t.Errorf("emissions = %d, want %d", len(em.sent), tt.want)
			}
		})
	}
}

func TestPeriodic_RejectedNotRetried(t *testing.T) {
	em := &recordingEmitter{accept: false}
	p := New(em, Config{Tick: 10 * time.Millisecond, Period: 20 * time.Millisecond})

	for i := 0; i < 3; i++ {
		p.Poll()
	}
	if len(em.sent) != 1 {
		t.Fatalf("attempts = %d, want 1", len(em.sent))
	}
	if p.Elapsed() != 0 {
		t.Errorf("Elapsed() = %v, want reset after rejected emit", p.Elapsed())
	}
	p.Poll()
	if len(em.sent) != 1 {
		t.Errorf("attempts after next tick = %d, want no immediate retry", len(em.sent))
	}
}

func TestNew_Defaults(t *testing.T) {
	var got string
	p := New(EmitterFunc(func(topic, message string) bool {
		got = topic + "/" + message
		return true
	}), Config{})

	polls := int(DefaultPeriod/DefaultTick) + 1
	for i := 0; i < polls; i++ {
		p.Poll()
	}
	if got != "status/online" {
		t.Errorf("emitted %q, want status/online", got)
	}
}
