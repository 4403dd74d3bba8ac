package property

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recordingSink captures every Sink call.
type recordingSink struct {
	mu    sync.Mutex
	calls [][]Sample
	err   error
}

func (s *recordingSink) EmitProperties(samples []Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, append([]Sample(nil), samples...))
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *recordingSink) reset() {
	s.mu.Lock()
	s.calls = nil
	s.mu.Unlock()
}

func keysOf(call []Sample) []string {
	return sampleKeys(call)
}

func TestSyncer_UngroupedInterval(t *testing.T) {
	reg := NewRegistry()
	h, _ := reg.Register("cloudNumber", 1, 0, time.Second, true)
	sink := &recordingSink{}
	s := NewSyncer(reg, sink, 10*time.Millisecond)

	t0 := time.Unix(1000, 0)
	if n := s.SyncDue(t0); n != 0 {
		t.Fatalf("first pass emitted %d, want 0 (clock starts)", n)
	}
	if n := s.SyncDue(t0.Add(999 * time.Millisecond)); n != 0 {
		t.Errorf("emitted %d before interval, want 0", n)
	}

	_ = reg.Update(h, 5)
	if n := s.SyncDue(t0.Add(time.Second)); n != 1 {
		t.Fatalf("emitted %d at interval, want 1", n)
	}
	if got := sink.calls[0][0]; got.Key != "cloudNumber" || got.Raw != 5 {
		t.Errorf("sample = %+v", got)
	}

	// Clock restarted at t0+1s.
	if n := s.SyncDue(t0.Add(1500 * time.Millisecond)); n != 0 {
		t.Errorf("emitted %d half an interval after send, want 0", n)
	}
	if n := s.SyncDue(t0.Add(2 * time.Second)); n != 1 {
		t.Errorf("emitted %d one interval after send, want 1", n)
	}
}

func TestSyncer_BatchAndNonBatchGroups(t *testing.T) {
	reg := NewRegistry()
	temp, _ := reg.Register("temperature", 10, 1, time.Hour, false)
	hum, _ := reg.Register("humidity", 10, 1, time.Hour, false)
	a, _ := reg.Register("a", 1, 0, time.Hour, false)
	b, _ := reg.Register("b", 1, 0, time.Hour, false)

	env, _ := reg.CreateGroup(5*time.Second, true)
	_ = reg.AddToGroup(temp, env)
	_ = reg.AddToGroup(hum, env)

	loose, _ := reg.CreateGroup(5*time.Second, false)
	_ = reg.AddToGroup(a, loose)
	_ = reg.AddToGroup(b, loose)

	sink := &recordingSink{}
	s := NewSyncer(reg, sink, 10*time.Millisecond)

	t0 := time.Unix(0, 0)
	s.SyncDue(t0)

	// Group interval governs members, not their own (hour) intervals.
	if n := s.SyncDue(t0.Add(5 * time.Second)); n != 3 {
		t.Fatalf("emitted %d calls, want 3 (one batch + two singles)", n)
	}

	want := [][]string{{"temperature", "humidity"}, {"a"}, {"b"}}
	for i, keys := range want {
		got := keysOf(sink.calls[i])
		if len(got) != len(keys) {
			t.Fatalf("call %d keys = %v, want %v", i, got, keys)
		}
		for j := range keys {
			if got[j] != keys[j] {
				t.Errorf("call %d keys = %v, want %v", i, got, keys)
			}
		}
	}
}

func TestSyncer_SinkErrorStillResetsClock(t *testing.T) {
	reg := NewRegistry()
	_, _ = reg.Register("x", 1, 0, time.Second, false)
	sink := &recordingSink{err: errors.New("offline")}
	s := NewSyncer(reg, sink, 0)

	t0 := time.Unix(0, 0)
	s.SyncDue(t0)
	s.SyncDue(t0.Add(time.Second))
	if n := s.SyncDue(t0.Add(1500 * time.Millisecond)); n != 0 {
		t.Errorf("emitted %d after failed send, want 0 (no backlog)", n)
	}
	if sink.count() != 1 {
		t.Errorf("sink calls = %d, want 1", sink.count())
	}
}

func TestSyncer_WakeInterval(t *testing.T) {
	reg := NewRegistry()
	s := NewSyncer(reg, &recordingSink{}, 50*time.Millisecond)

	if got := s.WakeInterval(); got != 50*time.Millisecond {
		t.Errorf("empty registry WakeInterval() = %v, want min wake", got)
	}

	_, _ = reg.Register("slow", 1, 0, 10*time.Second, false)
	if got := s.WakeInterval(); got != 10*time.Second {
		t.Errorf("WakeInterval() = %v, want 10s", got)
	}

	fast, _ := reg.Register("fast", 1, 0, 2*time.Second, false)
	if got := s.WakeInterval(); got != 2*time.Second {
		t.Errorf("WakeInterval() = %v, want 2s", got)
	}

	// Grouping moves "fast" onto the group interval.
	g, _ := reg.CreateGroup(4*time.Second, true)
	_ = reg.AddToGroup(fast, g)
	if got := s.WakeInterval(); got != 4*time.Second {
		t.Errorf("WakeInterval() = %v, want 4s", got)
	}

	// Intervals below the idle period are honoured.
	_, _ = reg.Register("tiny", 1, 0, 20*time.Millisecond, false)
	if got := s.WakeInterval(); got != 20*time.Millisecond {
		t.Errorf("WakeInterval() = %v, want 20ms", got)
	}
}

func TestSyncer_IntervalBelowIdleWake(t *testing.T) {
	reg := NewRegistry()
	_, _ = reg.Register("fast", 1, 0, 20*time.Millisecond, false)
	sink := &recordingSink{}
	s := NewSyncer(reg, sink, time.Second)

	s.Start(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for sink.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	elapsed := 2*time.Second - time.Until(deadline)
	s.Stop()

	if sink.count() < 3 {
		t.Fatalf("sink calls = %d, want at least 3", sink.count())
	}
	if elapsed >= time.Second {
		t.Errorf("3 syncs took %v, want well under the 1s idle wake", elapsed)
	}
}

func TestSyncer_StartStop(t *testing.T) {
	reg := NewRegistry()
	_, _ = reg.Register("x", 1, 0, 20*time.Millisecond, false)
	sink := &recordingSink{}
	s := NewSyncer(reg, sink, 10*time.Millisecond)

	s.Start(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for sink.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()
	s.Stop() // idempotent

	if sink.count() < 2 {
		t.Fatalf("sink calls = %d, want at least 2", sink.count())
	}

	sink.reset()
	time.Sleep(60 * time.Millisecond)
	if sink.count() != 0 {
		t.Errorf("sink called %d times after Stop", sink.count())
	}
}

func TestMultiSink(t *testing.T) {
	ok := &recordingSink{}
	failing := &recordingSink{err: errors.New("down")}
	after := &recordingSink{}

	err := MultiSink{ok, failing, after}.EmitProperties([]Sample{{Key: "k", Scale: 1}})
	if err == nil {
		t.Error("MultiSink error = nil, want joined error")
	}
	if ok.count() != 1 || after.count() != 1 {
		t.Error("MultiSink did not emit to every sink")
	}
}

type fakeWriter struct {
	deviceID string
	key      string
	value    float64
	at       time.Time
}

func (w *fakeWriter) WritePropertySample(deviceID, key string, value float64, at time.Time) {
	w.deviceID, w.key, w.value, w.at = deviceID, key, value, at
}

func TestMirrorSink(t *testing.T) {
	w := &fakeWriter{}
	at := time.Unix(42, 0)
	sink := MirrorSink{Writer: w, DeviceID: "abc", Now: func() time.Time { return at }}

	if err := sink.EmitProperties([]Sample{{Key: "humidity", Raw: 485, Scale: 10}}); err != nil {
		t.Fatalf("EmitProperties() error = %v", err)
	}
	if w.deviceID != "abc" || w.key != "humidity" || w.value != 48.5 || !w.at.Equal(at) {
		t.Errorf("writer got %+v", w)
	}
}
