package provisioning

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// DefaultSysfsRoot is where the kernel exposes exported GPIO lines.
const DefaultSysfsRoot = "/sys/class/gpio"

// Input reports whether the provisioning button is held down.
type Input interface {
	Pressed() (bool, error)
}

// FuncInput adapts a function to Input.
type FuncInput func() (bool, error)

// Pressed calls f.
func (f FuncInput) Pressed() (bool, error) {
	return f()
}

// StaticInput is a button that never changes. The zero value is a device
// without a button.
type StaticInput struct {
	Held bool
}

// Pressed returns the fixed level.
func (s StaticInput) Pressed() (bool, error) {
	return s.Held, nil
}

// SysfsInput samples a GPIO line through the sysfs value file. The line
// must already be exported and configured as an input.
type SysfsInput struct {
	path      string
	activeLow bool
}

// NewSysfsInput creates an input for GPIO line under root. An empty root
// uses DefaultSysfsRoot. With activeLow a raw level of 0 means pressed.
func NewSysfsInput(root string, line int, activeLow bool) (*SysfsInput, error) {
	if line < 0 {
		return nil, fmt.Errorf("%w: gpio line %d", ErrInvalidInput, line)
	}
	if root == "" {
		root = DefaultSysfsRoot
	}
	return &SysfsInput{
		path:      filepath.Join(root, "gpio"+strconv.Itoa(line), "value"),
		activeLow: activeLow,
	}, nil
}

// Path returns the value file being sampled.
func (s *SysfsInput) Path() string {
	return s.path
}

// Pressed reads the current level.
func (s *SysfsInput) Pressed() (bool, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrInputRead, err)
	}

	var high bool
	switch string(bytes.TrimSpace(raw)) {
	case "1":
		high = true
	case "0":
		high = false
	default:
		return false, fmt.Errorf("%w: unexpected level %q in %s", ErrInputRead, raw, s.path)
	}

	return high != s.activeLow, nil
}
