package credentials

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-device/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-device/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-device/migrations"
)

func testDeviceID() []byte {
	return []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c}
}

func testKey() []byte {
	return bytes.Repeat([]byte{0xab}, PrivateKeyLength)
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
// Identity
// =============================================================================

func TestNewIdentity(t *testing.T) {
	tests := []struct {
		name     string
		deviceID []byte
		key      []byte
		wantErr  error
	}{
		{"valid", testDeviceID(), testKey(), nil},
		{"short device id", testDeviceID()[:11], testKey(), ErrCredentialsMalformed},
		{"long key", testDeviceID(), append(testKey(), 0), ErrCredentialsMalformed},
		{"empty", nil, nil, ErrCredentialsMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIdentity(tt.deviceID, tt.key)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewIdentity() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIdentity_FormattingHidesKey(t *testing.T) {
	id, err := NewIdentity(testDeviceID(), testKey())
	if err != nil {
		t.Fatalf("NewIdentity() error = %v", err)
	}

	if got := id.DeviceIDHex(); got != "0102030405060708090a0b0c" {
		t.Errorf("DeviceIDHex() = %q", got)
	}

	keyHex := hex.EncodeToString(testKey()[:8])
	for _, out := range []string{id.String(), fmt.Sprintf("%v", id), fmt.Sprintf("%#v", id)} {
		if strings.Contains(out, keyHex) || strings.Contains(out, "171") {
			t.Errorf("formatted identity leaks key material: %q", out)
		}
	}
}

// =============================================================================
// StaticProvider
// =============================================================================

func TestStaticProvider_Load(t *testing.T) {
	validID := hex.EncodeToString(testDeviceID())
	validKey := hex.EncodeToString(testKey())

	tests := []struct {
		name    string
		p       StaticProvider
		wantErr error
	}{
		{"valid", StaticProvider{validID, validKey}, nil},
		{"missing device id", StaticProvider{"", validKey}, ErrCredentialsMissing},
		{"missing key", StaticProvider{validID, ""}, ErrCredentialsMissing},
		{"bad hex", StaticProvider{"zz", validKey}, ErrCredentialsMalformed},
		{"wrong length", StaticProvider{"0102", validKey}, ErrCredentialsMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := tt.p.Load(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Load() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && !bytes.Equal(id.PrivateKey[:], testKey()) {
				t.Error("Load() returned wrong key")
			}
		})
	}
}

func TestCompiledIn(t *testing.T) {
	origID, origKey := compiledDeviceID, compiledPrivateKey
	t.Cleanup(func() { compiledDeviceID, compiledPrivateKey = origID, origKey })

	compiledDeviceID = hex.EncodeToString(testDeviceID())
	compiledPrivateKey = hex.EncodeToString(testKey())

	id, err := CompiledIn().Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if id.DeviceIDHex() != compiledDeviceID {
		t.Errorf("DeviceIDHex() = %q, want %q", id.DeviceIDHex(), compiledDeviceID)
	}
}

// =============================================================================
// StorageProvider
// =============================================================================

type failingStore struct{ err error }

func (s failingStore) LoadRaw(context.Context) ([]byte, []byte, error) {
	return nil, nil, s.err
}

func TestStorageProvider_Errors(t *testing.T) {
	tests := []struct {
		name    string
		store   Store
		wantErr error
	}{
		{"no store", nil, ErrStorageUnavailable},
		{"io failure", failingStore{errors.New("disk I/O error")}, ErrStorageUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&StorageProvider{Store: tt.store}).Load(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	db := openMigratedDB(t)
	ctx := context.Background()
	store := NewSQLiteStore(db)
	provider := &StorageProvider{Store: store}

	if _, err := provider.Load(ctx); !errors.Is(err, ErrCredentialsMissing) {
		t.Fatalf("Load() on empty store error = %v, want ErrCredentialsMissing", err)
	}

	want, _ := NewIdentity(testDeviceID(), testKey())
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	// Saving again replaces the single row.
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	got, err := provider.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *got != *want {
		t.Error("loaded identity differs from saved identity")
	}
}

func TestSQLiteStore_Malformed(t *testing.T) {
	db := openMigratedDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx,
		"INSERT INTO device_credentials (id, device_id, private_key, updated_at) VALUES (1, ?, ?, 'now')",
		[]byte{1, 2, 3}, testKey(),
	)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	_, err = (&StorageProvider{Store: NewSQLiteStore(db)}).Load(ctx)
	if !errors.Is(err, ErrCredentialsMalformed) {
		t.Errorf("Load() error = %v, want ErrCredentialsMalformed", err)
	}
}

func TestSQLiteStore_Unmigrated(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Path: filepath.Join(t.TempDir(), "raw.db"), BusyTimeout: 1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	_, err = (&StorageProvider{Store: NewSQLiteStore(db)}).Load(ctx)
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Load() error = %v, want ErrStorageUnavailable", err)
	}
}

// =============================================================================
// NewProvider
// =============================================================================

func TestNewProvider(t *testing.T) {
	validID := hex.EncodeToString(testDeviceID())
	validKey := hex.EncodeToString(testKey())

	t.Run("storage", func(t *testing.T) {
		p, err := NewProvider(config.DeviceConfig{CredentialSource: "storage"}, openMigratedDB(t))
		if err != nil {
			t.Fatalf("NewProvider() error = %v", err)
		}
		if _, ok := p.(*StorageProvider); !ok {
			t.Errorf("NewProvider() = %T, want *StorageProvider", p)
		}
	})

	t.Run("static from config", func(t *testing.T) {
		p, err := NewProvider(config.DeviceConfig{
			CredentialSource: "static",
			Static:           config.StaticCredentialsConfig{DeviceID: validID, PrivateKey: validKey},
		}, nil)
		if err != nil {
			t.Fatalf("NewProvider() error = %v", err)
		}
		id, err := p.Load(context.Background())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if id.DeviceIDHex() != validID {
			t.Errorf("DeviceIDHex() = %q, want %q", id.DeviceIDHex(), validID)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, err := NewProvider(config.DeviceConfig{CredentialSource: "flash"}, nil); !errors.Is(err, ErrUnknownSource) {
			t.Errorf("NewProvider() error = %v, want ErrUnknownSource", err)
		}
	})
}
