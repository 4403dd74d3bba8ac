package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-device/internal/infrastructure/database"
)

// Store reads the raw credential record.
type Store interface {
	// LoadRaw returns sql.ErrNoRows when no record exists.
	LoadRaw(ctx context.Context) (deviceID, privateKey []byte, err error)
}

// StorageProvider loads credentials from a Store.
type StorageProvider struct {
	Store Store
}

// Load reads and validates the stored record.
func (p *StorageProvider) Load(ctx context.Context) (*Identity, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("%w: no store configured", ErrStorageUnavailable)
	}

	deviceID, key, err := p.Store.LoadRaw(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCredentialsMissing
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	return NewIdentity(deviceID, key)
}

// SQLiteStore keeps the credential record in the device_credentials table.
type SQLiteStore struct {
	db *database.DB
}

// NewSQLiteStore creates a store over an opened and migrated database.
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// LoadRaw returns the single credential row.
func (s *SQLiteStore) LoadRaw(ctx context.Context) (deviceID, privateKey []byte, err error) {
	err = s.db.QueryRowContext(ctx,
		"SELECT device_id, private_key FROM device_credentials WHERE id = 1",
	).Scan(&deviceID, &privateKey)
	if err != nil {
		return nil, nil, err
	}
	return deviceID, privateKey, nil
}

// Save writes (or replaces) the credential row. Used by factory provisioning.
func (s *SQLiteStore) Save(ctx context.Context, id *Identity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO device_credentials (id, device_id, private_key, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			device_id = excluded.device_id,
			private_key = excluded.private_key,
			updated_at = excluded.updated_at
	`, id.DeviceID[:], id.PrivateKey[:], time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	return nil
}
