package cloud

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/nerrad567/gray-logic-device/internal/infrastructure/config"
)

// Codec encodes envelopes for the wire.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// NewCodec returns the codec for a configured encoding. An empty name
// selects JSON.
func NewCodec(encoding string) (Codec, error) {
	switch encoding {
	case "", config.EncodingJSON:
		return JSONCodec{}, nil
	case config.EncodingCBOR:
		return newCBORCodec()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, encoding)
	}
}

// JSONCodec encodes with encoding/json.
type JSONCodec struct{}

// Name returns "json".
func (JSONCodec) Name() string { return config.EncodingJSON }

// Marshal encodes v as JSON.
func (JSONCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes JSON into v.
func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// CBORCodec encodes deterministic CBOR for constrained links.
type CBORCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func newCBORCodec() (*CBORCodec, error) {
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	enc, err := encOpts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("creating CBOR encoder mode: %w", err)
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthAllowed,
	}
	dec, err := decOpts.DecMode()
	if err != nil {
		return nil, fmt.Errorf("creating CBOR decoder mode: %w", err)
	}

	return &CBORCodec{enc: enc, dec: dec}, nil
}

// Name returns "cbor".
func (c *CBORCodec) Name() string { return config.EncodingCBOR }

// Marshal encodes v as CBOR.
func (c *CBORCodec) Marshal(v any) ([]byte, error) { return c.enc.Marshal(v) }

// Unmarshal decodes CBOR into v.
func (c *CBORCodec) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }
