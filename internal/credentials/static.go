package credentials

import (
	"context"
	"encoding/hex"
	"fmt"
)

// Set at build time for devices without a credential store:
//
//	go build -ldflags "-X github.com/nerrad567/gray-logic-device/internal/credentials.compiledDeviceID=0102... \
//	                   -X github.com/nerrad567/gray-logic-device/internal/credentials.compiledPrivateKey=3077..."
var (
	compiledDeviceID   = ""
	compiledPrivateKey = ""
)

// StaticProvider returns hex-encoded constants.
type StaticProvider struct {
	DeviceIDHex   string
	PrivateKeyHex string
}

// CompiledIn returns a StaticProvider holding the values linked into the binary.
func CompiledIn() *StaticProvider {
	return &StaticProvider{
		DeviceIDHex:   compiledDeviceID,
		PrivateKeyHex: compiledPrivateKey,
	}
}

// Load decodes the constants.
func (p *StaticProvider) Load(_ context.Context) (*Identity, error) {
	if p.DeviceIDHex == "" || p.PrivateKeyHex == "" {
		return nil, ErrCredentialsMissing
	}

	deviceID, err := hex.DecodeString(p.DeviceIDHex)
	if err != nil {
		return nil, fmt.Errorf("%w: device id: %w", ErrCredentialsMalformed, err)
	}
	key, err := hex.DecodeString(p.PrivateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: private key: %w", ErrCredentialsMalformed, err)
	}

	return NewIdentity(deviceID, key)
}
