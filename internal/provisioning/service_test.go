package provisioning

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-device/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-device/migrations"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type failingStore struct{}

func (failingStore) Record(context.Context, Event) (int64, error) {
	return 0, ErrEventStore
}

func (failingStore) Recent(context.Context, int) ([]Event, error) {
	return nil, ErrEventStore
}

func newTestService(store EventStore, window time.Duration) (*Service, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewService(store, window)
	svc.now = clk.now
	return svc, clk
}

func openMigratedDB(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Path: filepath.Join(t.TempDir(), "device.db"), BusyTimeout: 1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if err := db.Migrate(ctx, migrations.Source()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

// =============================================================================
// Service
// =============================================================================

func TestService_RequestIsDeferredToLoop(t *testing.T) {
	svc, _ := newTestService(nil, time.Minute)

	svc.RequestProvisioning(SourceRPC)
	if svc.Active() {
		t.Fatal("Active() = true before Loop")
	}
	if !svc.Status().Pending {
		t.Error("Status().Pending = false after request")
	}

	svc.Loop(context.Background())
	st := svc.Status()
	if !st.Active || st.Pending || st.Source != SourceRPC {
		t.Errorf("Status() after Loop = %+v", st)
	}
}

func TestService_WindowExpires(t *testing.T) {
	svc, clk := newTestService(nil, time.Minute)
	ctx := context.Background()

	svc.RequestProvisioning(SourceButton)
	svc.Loop(ctx)

	clk.advance(59 * time.Second)
	svc.Loop(ctx)
	if !svc.Active() {
		t.Fatal("Active() = false before window end")
	}

	clk.advance(time.Second)
	svc.Loop(ctx)
	if svc.Active() {
		t.Error("Active() = true at window end")
	}
	if st := svc.Status(); !st.ExpiresAt.IsZero() {
		t.Errorf("Status().ExpiresAt = %v, want zero when inactive", st.ExpiresAt)
	}
}

func TestService_RepeatRequestExtendsWindow(t *testing.T) {
	svc, clk := newTestService(nil, time.Minute)
	ctx := context.Background()

	var events []Event
	svc.OnEnter(func(ev Event) { events = append(events, ev) })

	svc.RequestProvisioning(SourceButton)
	svc.Loop(ctx)
	entered := svc.Status().EnteredAt

	clk.advance(40 * time.Second)
	svc.RequestProvisioning(SourceButton)
	svc.RequestProvisioning(SourceButton)
	svc.Loop(ctx)

	clk.advance(40 * time.Second)
	svc.Loop(ctx)
	if !svc.Active() {
		t.Fatal("Active() = false, want window extended")
	}

	st := svc.Status()
	if !st.EnteredAt.Equal(entered) {
		t.Errorf("EnteredAt = %v, want unchanged %v", st.EnteredAt, entered)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2 (collapsed requests)", len(events))
	}
	if events[0].Extended || !events[1].Extended {
		t.Errorf("Extended flags = %v, %v; want false, true", events[0].Extended, events[1].Extended)
	}
}

func TestService_StoreFailureStillEnters(t *testing.T) {
	svc, _ := newTestService(failingStore{}, time.Minute)

	svc.RequestProvisioning(SourceButton)
	svc.Loop(context.Background())
	if !svc.Active() {
		t.Error("Active() = false after store failure")
	}
	if _, err := svc.History(context.Background(), 10); !errors.Is(err, ErrEventStore) {
		t.Errorf("History() error = %v, want ErrEventStore", err)
	}
}

func TestService_TriggerIntegration(t *testing.T) {
	svc, _ := newTestService(nil, time.Minute)
	tr := NewTrigger(StaticInput{Held: true}, svc, 10*time.Millisecond, 50*time.Millisecond)

	for i := 0; i < 5; i++ {
		tr.Poll()
		svc.Loop(context.Background())
	}
	if st := svc.Status(); !st.Active || st.Source != SourceButton {
		t.Errorf("Status() = %+v, want active from button", st)
	}
}

// =============================================================================
// SQLiteEventStore
// =============================================================================

func TestSQLiteEventStore(t *testing.T) {
	db := openMigratedDB(t)
	store := NewSQLiteEventStore(db)
	ctx := context.Background()

	svc, clk := newTestService(store, time.Minute)
	svc.RequestProvisioning(SourceButton)
	svc.Loop(ctx)
	clk.advance(2 * time.Minute)
	svc.Loop(ctx)
	svc.RequestProvisioning(SourceRPC)
	svc.Loop(ctx)

	events, err := svc.History(ctx, 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("History() = %d events, want 2", len(events))
	}
	if events[0].Source != SourceRPC || events[1].Source != SourceButton {
		t.Errorf("sources = %s, %s; want newest first", events[0].Source, events[1].Source)
	}
	if !events[0].EnteredAt.Equal(clk.t) {
		t.Errorf("EnteredAt = %v, want %v", events[0].EnteredAt, clk.t)
	}
	if got := events[0].ExpiresAt.Sub(events[0].EnteredAt); got != time.Minute {
		t.Errorf("window = %v, want 1m", got)
	}

	limited, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent(1) error = %v", err)
	}
	if len(limited) != 1 || limited[0].ID != events[0].ID {
		t.Errorf("Recent(1) = %+v", limited)
	}
}
