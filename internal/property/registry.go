package property

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Handle identifies a registered property.
type Handle int

// GroupHandle identifies a property group.
type GroupHandle int

// noGroup marks an ungrouped property.
const noGroup GroupHandle = -1

// property is one registered value. Only raw changes after registration.
type property struct {
	key         string
	scale       int64
	decimals    int
	minInterval time.Duration
	editable    bool
	group       GroupHandle
	raw         atomic.Int64
}

// group syncs its members together at one interval.
type group struct {
	interval time.Duration
	batch    bool
	members  []Handle
}

// Info describes a property for the local API.
type Info struct {
	Key         string        `json:"key"`
	Raw         int64         `json:"raw"`
	Value       float64       `json:"value"`
	Scale       int64         `json:"scale"`
	Decimals    int           `json:"decimals"`
	MinInterval time.Duration `json:"min_interval"`
	Editable    bool          `json:"editable"`
	Grouped     bool          `json:"grouped"`
}

// RemoteUpdateHook is called after a remote update has been applied.
type RemoteUpdateHook func(h Handle, raw int64, isOwner bool)

// Registry holds the device's named numeric properties.
//
// Registration happens once at startup; afterwards the set of properties is
// fixed and group membership only grows. Raw values are atomics so the main
// loop, RPC handlers, the MQTT callback goroutine and the sync worker never
// see a torn value.
//
// All public methods are thread-safe.
type Registry struct {
	mu     sync.RWMutex
	props  []*property
	byKey  map[string]Handle
	groups []*group

	hook   RemoteUpdateHook
	logger Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byKey:  make(map[string]Handle),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetRemoteUpdateHook installs fn to observe successful remote updates.
func (r *Registry) SetRemoteUpdateHook(fn RemoteUpdateHook) {
	r.mu.Lock()
	r.hook = fn
	r.mu.Unlock()
}

// Register adds a property with an initial raw value of zero.
//
// Parameters:
//   - key: Unique name the cloud addresses the property by
//   - scale: Fixed-point divisor; the value is raw/scale
//   - decimals: Digits shown when formatting the value
//   - minInterval: Sync interval when the property is not in a group
//   - editable: Whether the cloud may write it
//
// Returns:
//   - Handle: Used for Update, Value, Scale and AddToGroup
//   - error: ErrDuplicateKey or ErrInvalidProperty
func (r *Registry) Register(key string, scale int64, decimals int, minInterval time.Duration, editable bool) (Handle, error) {
	if key == "" || scale <= 0 || minInterval <= 0 || decimals < 0 {
		return 0, fmt.Errorf("%w: key=%q scale=%d decimals=%d interval=%v",
			ErrInvalidProperty, key, scale, decimals, minInterval)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byKey[key]; exists {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateKey, key)
	}

	h := Handle(len(r.props))
	r.props = append(r.props, &property{
		key:         key,
		scale:       scale,
		decimals:    decimals,
		minInterval: minInterval,
		editable:    editable,
		group:       noGroup,
	})
	r.byKey[key] = h

	r.logger.Debug("property registered", "key", key, "scale", scale, "editable", editable)
	return h, nil
}

// CreateGroup creates an empty group. A batch group is emitted as one message.
func (r *Registry) CreateGroup(interval time.Duration, batch bool) (GroupHandle, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("%w: interval=%v", ErrInvalidGroup, interval)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g := GroupHandle(len(r.groups))
	r.groups = append(r.groups, &group{interval: interval, batch: batch})
	return g, nil
}

// AddToGroup appends a property to a group. A property joins at most one group.
func (r *Registry) AddToGroup(h Handle, g GroupHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.propLocked(h)
	if err != nil {
		return err
	}
	if g < 0 || int(g) >= len(r.groups) {
		return fmt.Errorf("%w: group %d", ErrInvalidHandle, g)
	}
	if p.group != noGroup {
		return fmt.Errorf("%w: %s", ErrAlreadyGrouped, p.key)
	}

	p.group = g
	r.groups[g].members = append(r.groups[g].members, h)
	return nil
}

// Update sets the raw value from device logic.
func (r *Registry) Update(h Handle, raw int64) error {
	p, err := r.prop(h)
	if err != nil {
		return err
	}
	p.raw.Store(raw)
	return nil
}

// Value returns the current raw value.
func (r *Registry) Value(h Handle) (int64, error) {
	p, err := r.prop(h)
	if err != nil {
		return 0, err
	}
	return p.raw.Load(), nil
}

// Scale returns the property's fixed-point scale.
func (r *Registry) Scale(h Handle) (int64, error) {
	p, err := r.prop(h)
	if err != nil {
		return 0, err
	}
	return p.scale, nil
}

// Lookup returns the handle registered under key.
func (r *Registry) Lookup(key string) (Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.byKey[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return h, nil
}

// Snapshot describes every property in registration order.
func (r *Registry) Snapshot() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, 0, len(r.props))
	for _, p := range r.props {
		s := p.sample()
		out = append(out, Info{
			Key:         p.key,
			Raw:         s.Raw,
			Value:       s.Value(),
			Scale:       p.scale,
			Decimals:    p.decimals,
			MinInterval: p.minInterval,
			Editable:    p.editable,
			Grouped:     p.group != noGroup,
		})
	}
	return out
}

// Len returns the number of registered properties.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.props)
}

func (r *Registry) prop(h Handle) (*property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.propLocked(h)
}

func (r *Registry) propLocked(h Handle) (*property, error) {
	if h < 0 || int(h) >= len(r.props) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHandle, h)
	}
	return r.props[h], nil
}

func (p *property) sample() Sample {
	return Sample{
		Key:      p.key,
		Raw:      p.raw.Load(),
		Scale:    p.scale,
		Decimals: p.decimals,
	}
}
