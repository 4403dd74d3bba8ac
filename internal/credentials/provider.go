package credentials

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-device/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-device/internal/infrastructure/database"
)

// Provider supplies the device identity.
type Provider interface {
	Load(ctx context.Context) (*Identity, error)
}

// NewProvider selects exactly one credential strategy.
//
// Parameters:
//   - cfg: The device section of config.yaml
//   - db: The device database (only used by the storage source, may be nil otherwise)
//
// Returns:
//   - Provider: StorageProvider or StaticProvider
//   - error: ErrUnknownSource for anything other than "storage" or "static"
func NewProvider(cfg config.DeviceConfig, db *database.DB) (Provider, error) {
	switch cfg.CredentialSource {
	case config.CredentialSourceStorage:
		var store Store
		if db != nil {
			store = NewSQLiteStore(db)
		}
		return &StorageProvider{Store: store}, nil
	case config.CredentialSourceStatic:
		p := CompiledIn()
		if cfg.Static.DeviceID != "" {
			p.DeviceIDHex = cfg.Static.DeviceID
		}
		if cfg.Static.PrivateKey != "" {
			p.PrivateKeyHex = cfg.Static.PrivateKey
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.CredentialSource)
	}
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (*Identity, error)

// Load calls f.
func (f ProviderFunc) Load(ctx context.Context) (*Identity, error) {
	return f(ctx)
}
