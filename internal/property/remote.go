package property

import (
	"math"
	"strconv"
	"strings"
)

// UpdateResult is the outcome of a remote property write. The cloud
// branches on these exact values.
type UpdateResult int

const (
	Success     UpdateResult = 1
	NotWritable UpdateResult = -1
	ParseError  UpdateResult = -2
	NotFound    UpdateResult = -3
)

func (r UpdateResult) String() string {
	switch r {
	case Success:
		return "success"
	case NotWritable:
		return "not_writable"
	case ParseError:
		return "parse_error"
	case NotFound:
		return "not_found"
	default:
		return "unknown(" + strconv.Itoa(int(r)) + ")"
	}
}

// OnRemoteUpdate applies a write requested by the cloud.
//
// value is decimal text such as "21.5"; the stored raw value is
// round(value * scale). isOwner is passed to the remote update hook and does
// not change the outcome.
//
// Returns:
//   - NotFound: no property has this key
//   - NotWritable: the property is read-only
//   - ParseError: value is not a finite decimal number, or overflows when scaled
//   - Success: the raw value was stored
func (r *Registry) OnRemoteUpdate(key, value string, isOwner bool) UpdateResult {
	r.mu.RLock()
	h, ok := r.byKey[key]
	var p *property
	if ok {
		p = r.props[h]
	}
	hook := r.hook
	r.mu.RUnlock()

	if !ok {
		r.logger.Debug("remote update for unknown property", "key", key)
		return NotFound
	}
	if !p.editable {
		r.logger.Debug("remote update for read-only property", "key", key)
		return NotWritable
	}

	raw, ok := parseScaled(value, p.scale)
	if !ok {
		r.logger.Debug("remote update value rejected", "key", key, "value", value)
		return ParseError
	}

	p.raw.Store(raw)
	r.logger.Info("property updated remotely", "key", key, "raw", raw, "owner", isOwner)

	if hook != nil {
		hook(h, raw, isOwner)
	}
	return Success
}

// maxExactFloat bounds scaled values to what float64 represents exactly.
const maxExactFloat = 1 << 53

func parseScaled(value string, scale int64) (int64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}

	scaled := math.Round(v * float64(scale))
	if math.Abs(scaled) > maxExactFloat {
		return 0, false
	}
	return int64(scaled), true
}
