package property

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRegister(t *testing.T) {
	reg := NewRegistry()

	h, err := reg.Register("cloudNumber", 1, 0, time.Second, true)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if v, _ := reg.Value(h); v != 0 {
		t.Errorf("initial Value() = %d, want 0", v)
	}

	tests := []struct {
		name     string
		key      string
		scale    int64
		decimals int
		interval time.Duration
		wantErr  error
	}{
		{"duplicate key", "cloudNumber", 1, 0, time.Second, ErrDuplicateKey},
		{"empty key", "", 1, 0, time.Second, ErrInvalidProperty},
		{"zero scale", "a", 0, 0, time.Second, ErrInvalidProperty},
		{"negative decimals", "a", 1, -1, time.Second, ErrInvalidProperty},
		{"zero interval", "a", 1, 0, 0, ErrInvalidProperty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Register(tt.key, tt.scale, tt.decimals, tt.interval, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}

func TestGroups(t *testing.T) {
	reg := NewRegistry()
	temp, _ := reg.Register("temperature", 10, 1, time.Second, false)
	hum, _ := reg.Register("humidity", 10, 1, time.Second, false)

	if _, err := reg.CreateGroup(0, true); !errors.Is(err, ErrInvalidGroup) {
		t.Errorf("CreateGroup(0) error = %v, want ErrInvalidGroup", err)
	}

	g1, err := reg.CreateGroup(5*time.Second, true)
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	g2, _ := reg.CreateGroup(time.Second, false)

	if err := reg.AddToGroup(temp, g1); err != nil {
		t.Fatalf("AddToGroup() error = %v", err)
	}
	if err := reg.AddToGroup(hum, g1); err != nil {
		t.Fatalf("AddToGroup() error = %v", err)
	}

	if err := reg.AddToGroup(temp, g2); !errors.Is(err, ErrAlreadyGrouped) {
		t.Errorf("AddToGroup() second group error = %v, want ErrAlreadyGrouped", err)
	}
	if err := reg.AddToGroup(temp, g1); !errors.Is(err, ErrAlreadyGrouped) {
		t.Errorf("AddToGroup() same group error = %v, want ErrAlreadyGrouped", err)
	}
	if err := reg.AddToGroup(Handle(99), g1); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("AddToGroup() bad handle error = %v, want ErrInvalidHandle", err)
	}
	if err := reg.AddToGroup(temp, GroupHandle(7)); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("AddToGroup() bad group error = %v, want ErrInvalidHandle", err)
	}
}

func TestUpdateValueScale(t *testing.T) {
	reg := NewRegistry()
	h, _ := reg.Register("setpoint", 1000, 3, time.Second, true)

	if err := reg.Update(h, 21500); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if v, _ := reg.Value(h); v != 21500 {
		t.Errorf("Value() = %d, want 21500", v)
	}
	if s, _ := reg.Scale(h); s != 1000 {
		t.Errorf("Scale() = %d, want 1000", s)
	}

	if err := reg.Update(Handle(-1), 1); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("Update() bad handle error = %v, want ErrInvalidHandle", err)
	}
	if _, err := reg.Value(Handle(5)); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("Value() bad handle error = %v, want ErrInvalidHandle", err)
	}
	if _, err := reg.Lookup("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup() error = %v, want ErrNotFound", err)
	}
	if got, _ := reg.Lookup("setpoint"); got != h {
		t.Errorf("Lookup() = %d, want %d", got, h)
	}
}

func TestSnapshot(t *testing.T) {
	reg := NewRegistry()
	a, _ := reg.Register("a", 10, 1, time.Second, true)
	b, _ := reg.Register("b", 1, 0, 2*time.Second, false)
	g, _ := reg.CreateGroup(time.Second, false)
	_ = reg.AddToGroup(b, g)
	_ = reg.Update(a, 215)

	snap := reg.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot() len = %d, want 2", len(snap))
	}
	if snap[0].Key != "a" || snap[0].Value != 21.5 || !snap[0].Editable || snap[0].Grouped {
		t.Errorf("snap[0] = %+v", snap[0])
	}
	if snap[1].Key != "b" || !snap[1].Grouped {
		t.Errorf("snap[1] = %+v", snap[1])
	}
}

func TestOnRemoteUpdate(t *testing.T) {
	reg := NewRegistry()
	counter, _ := reg.Register("cloudNumber", 1, 0, time.Second, true)
	setpoint, _ := reg.Register("setpoint", 1000, 3, time.Second, true)
	_, _ = reg.Register("temperature", 10, 1, time.Second, false)

	tests := []struct {
		name    string
		key     string
		value   string
		want    UpdateResult
		handle  Handle
		wantRaw int64
	}{
		{"integer", "cloudNumber", "42", Success, counter, 42},
		{"negative with spaces", "cloudNumber", " -7 ", Success, counter, -7},
		{"decimal scaled", "setpoint", "21.5", Success, setpoint, 21500},
		{"rounded to scale", "setpoint", "0.0006", Success, setpoint, 1},
		{"exponent", "setpoint", "1e-3", Success, setpoint, 1},
		{"not a number", "setpoint", "warm", ParseError, setpoint, 1},
		{"empty", "setpoint", "", ParseError, setpoint, 1},
		{"nan", "setpoint", "NaN", ParseError, setpoint, 1},
		{"infinity", "setpoint", "+Inf", ParseError, setpoint, 1},
		{"overflow when scaled", "setpoint", "1e300", ParseError, setpoint, 1},
		{"read only", "temperature", "20", NotWritable, -1, 0},
		{"unknown key", "pressure", "1", NotFound, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reg.OnRemoteUpdate(tt.key, tt.value, true); got != tt.want {
				t.Fatalf("OnRemoteUpdate() = %v, want %v", got, tt.want)
			}
			if tt.handle >= 0 {
				if raw, _ := reg.Value(tt.handle); raw != tt.wantRaw {
					t.Errorf("raw = %d, want %d", raw, tt.wantRaw)
				}
			}
		})
	}
}

func TestOnRemoteUpdate_StableCodes(t *testing.T) {
	codes := map[UpdateResult]int{Success: 1, NotWritable: -1, ParseError: -2, NotFound: -3}
	for r, want := range codes {
		if int(r) != want {
			t.Errorf("%v = %d, want %d", r, int(r), want)
		}
	}
}

func TestOnRemoteUpdate_Hook(t *testing.T) {
	reg := NewRegistry()
	h, _ := reg.Register("cloudNumber", 1, 0, time.Second, true)

	var gotHandle Handle = -1
	var gotRaw int64
	var gotOwner bool
	reg.SetRemoteUpdateHook(func(hh Handle, raw int64, isOwner bool) {
		gotHandle, gotRaw, gotOwner = hh, raw, isOwner
	})

	reg.OnRemoteUpdate("cloudNumber", "bad", true)
	if gotHandle != -1 {
		t.Fatal("hook called for a rejected update")
	}

	reg.OnRemoteUpdate("cloudNumber", "9", false)
	if gotHandle != h || gotRaw != 9 || gotOwner {
		t.Errorf("hook got (%d, %d, %v), want (%d, 9, false)", gotHandle, gotRaw, gotOwner, h)
	}
}

func TestConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	h, _ := reg.Register("cloudNumber", 1, 0, time.Second, true)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(3)
		go func(n int64) {
			defer wg.Done()
			_ = reg.Update(h, n)
		}(int64(i))
		go func() {
			defer wg.Done()
			reg.OnRemoteUpdate("cloudNumber", "3", true)
		}()
		go func() {
			defer wg.Done()
			_ = reg.Snapshot()
		}()
	}
	wg.Wait()
}

func TestSample_Format(t *testing.T) {
	tests := []struct {
		s    Sample
		want string
	}{
		{Sample{Raw: 215, Scale: 10, Decimals: 1}, "21.5"},
		{Sample{Raw: 21500, Scale: 1000, Decimals: 2}, "21.50"},
		{Sample{Raw: 42, Scale: 1, Decimals: 0}, "42"},
		{Sample{Raw: -5, Scale: 2, Decimals: 1}, "-2.5"},
	}
	for _, tt := range tests {
		if got := tt.s.Format(); got != tt.want {
			t.Errorf("Format(%+v) = %q, want %q", tt.s, got, tt.want)
		}
	}
}
