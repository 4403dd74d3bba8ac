package property

import "strconv"

// Sample is a property value captured for sync.
type Sample struct {
	Key      string `json:"key" cbor:"k"`
	Raw      int64  `json:"raw" cbor:"r"`
	Scale    int64  `json:"scale" cbor:"s"`
	Decimals int    `json:"decimals" cbor:"d"`
}

// Value returns raw/scale.
func (s Sample) Value() float64 {
	return float64(s.Raw) / float64(s.Scale)
}

// Format renders the value with the property's decimal precision.
func (s Sample) Format() string {
	return strconv.FormatFloat(s.Value(), 'f', s.Decimals, 64)
}
