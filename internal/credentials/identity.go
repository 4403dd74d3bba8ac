package credentials

import (
	"encoding/hex"
	"fmt"
)

// Lengths fixed by the cloud stack.
const (
	DeviceIDLength   = 12
	PrivateKeyLength = 121
)

// Identity is the device id and private key the cloud link authenticates with.
// It is loaded once at startup and never modified afterwards.
type Identity struct {
	DeviceID   [DeviceIDLength]byte
	PrivateKey [PrivateKeyLength]byte
}

// NewIdentity copies deviceID and privateKey into an Identity, checking lengths.
func NewIdentity(deviceID, privateKey []byte) (*Identity, error) {
	if len(deviceID) != DeviceIDLength {
		return nil, fmt.Errorf("%w: device id is %d bytes, want %d",
			ErrCredentialsMalformed, len(deviceID), DeviceIDLength)
	}
	if len(privateKey) != PrivateKeyLength {
		return nil, fmt.Errorf("%w: private key is %d bytes, want %d",
			ErrCredentialsMalformed, len(privateKey), PrivateKeyLength)
	}

	id := &Identity{}
	copy(id.DeviceID[:], deviceID)
	copy(id.PrivateKey[:], privateKey)
	return id, nil
}

// DeviceIDHex returns the lowercase hex device id used in topics and as the
// broker client id.
func (id *Identity) DeviceIDHex() string {
	return hex.EncodeToString(id.DeviceID[:])
}

// String identifies the device without revealing key material.
func (id *Identity) String() string {
	return "device " + id.DeviceIDHex()
}

// GoString keeps %#v from printing the key.
func (id *Identity) GoString() string {
	return fmt.Sprintf("credentials.Identity{DeviceID: %q}", id.DeviceIDHex())
}
