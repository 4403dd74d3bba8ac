package app

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-device/internal/notification"
	"github.com/nerrad567/gray-logic-device/internal/property"
	"github.com/nerrad567/gray-logic-device/internal/provisioning"
	"github.com/nerrad567/gray-logic-device/internal/rpc"
	"github.com/nerrad567/gray-logic-device/internal/runtime"
)

// Names the cloud addresses the application by.
const (
	PropCloudNumber = "cloudNumber"
	PropTemperature = "temperature"
	PropHumidity    = "humidity"
	PropSetpoint    = "setpoint"

	NotifyCloudNumberChanged = "cloudNumberChanged"

	RPCIncrementCloudNumber  = "incrementCloudNumber"
	RPCGetCloudNumberMessage = "getCloudNumberMessage"
	RPCGetHalfCloudNumber    = "getHalfCloudNumber"
	RPCStartProvisioning     = "startProvisioning"
	RPCSetCloudNumber        = "setCloudNumber"
)

// StatusParseError is returned by setCloudNumber for a non-integer argument.
const StatusParseError rpc.StatusCode = -1

// Sync intervals.
const (
	cloudNumberInterval = time.Second
	setpointInterval    = 5 * time.Second
	environmentInterval = 10 * time.Second
)

// Device is the application running on the device: a cloud-controlled
// counter plus environment readings and a setpoint.
//
// The counter is the source of truth for the cloudNumber property. Every
// change, whether from an RPC or a remote property write, updates the
// property and raises the cloudNumberChanged notification.
type Device struct {
	mu          sync.Mutex
	cloudNumber int64

	props     *property.Registry
	notes     *notification.Registry
	requester provisioning.Requester

	hCloudNumber property.Handle
	hTemperature property.Handle
	hHumidity    property.Handle
	hSetpoint    property.Handle
	hChanged     notification.Handle

	logger Logger
}

// New creates the application. It does nothing until Register.
func New() *Device {
	return &Device{logger: noopLogger{}}
}

// SetLogger sets the logger for the application.
func (d *Device) SetLogger(logger Logger) {
	d.logger = logger
}

// Register installs properties, notifications and RPC handlers. It is the
// scheduler's Registrar.
func (d *Device) Register(r runtime.Registries) error {
	d.props = r.Properties
	d.notes = r.Notifications
	d.requester = r.Provisioning

	if err := d.registerProperties(); err != nil {
		return fmt.Errorf("registering properties: %w", err)
	}
	if err := d.registerNotifications(); err != nil {
		return fmt.Errorf("registering notifications: %w", err)
	}
	if err := d.registerRPC(r.RPC); err != nil {
		return fmt.Errorf("registering rpc handlers: %w", err)
	}

	d.props.SetRemoteUpdateHook(d.onRemoteUpdate)
	d.logger.Info("application registered")
	return nil
}

func (d *Device) registerProperties() error {
	var err error
	if d.hCloudNumber, err = d.props.Register(PropCloudNumber, 1, 0, cloudNumberInterval, true); err != nil {
		return err
	}
	if d.hSetpoint, err = d.props.Register(PropSetpoint, 1000, 3, setpointInterval, true); err != nil {
		return err
	}
	if d.hTemperature, err = d.props.Register(PropTemperature, 10, 1, environmentInterval, false); err != nil {
		return err
	}
	if d.hHumidity, err = d.props.Register(PropHumidity, 10, 1, environmentInterval, false); err != nil {
		return err
	}

	env, err := d.props.CreateGroup(environmentInterval, true)
	if err != nil {
		return err
	}
	for _, h := range []property.Handle{d.hTemperature, d.hHumidity} {
		if err := d.props.AddToGroup(h, env); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) registerNotifications() error {
	var err error
	d.hChanged, err = d.notes.Register(NotifyCloudNumberChanged, PropCloudNumber, "cloudNumber=%d", 1)
	return err
}

func (d *Device) registerRPC(reg *rpc.Registry) error {
	posts := []struct {
		name   string
		h      rpc.PostHandler
		policy rpc.AccessPolicy
	}{
		{RPCIncrementCloudNumber, d.incrementCloudNumber, rpc.AllowAll},
		{RPCStartProvisioning, d.startProvisioning, rpc.AllowAll},
		{RPCSetCloudNumber, d.setCloudNumber, rpc.OwnerOnly},
	}
	for _, p := range posts {
		if err := reg.RegisterPost(p.name, p.h, p.policy); err != nil {
			return err
		}
	}

	if err := reg.RegisterGet(RPCGetCloudNumberMessage, d.getCloudNumberMessage, rpc.KindString, rpc.AllowAll); err != nil {
		return err
	}
	return reg.RegisterGet(RPCGetHalfCloudNumber, d.getHalfCloudNumber, rpc.KindJSON, rpc.AllowAll)
}

// CloudNumber returns the counter.
func (d *Device) CloudNumber() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cloudNumber
}

// setCloudNumberLocked stores n, mirrors it to the property and raises the
// notification. Caller holds d.mu.
func (d *Device) setCloudNumberLocked(n int64) {
	d.cloudNumber = n
	if err := d.props.Update(d.hCloudNumber, n); err != nil {
		d.logger.Error("mirroring cloudNumber failed", "error", err)
	}
	MustUpdate(d.notes, d.hChanged, n)
}

// =============================================================================
// RPC handlers
// =============================================================================

func (d *Device) incrementCloudNumber(string) rpc.StatusCode {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setCloudNumberLocked(d.cloudNumber + 1)
	d.logger.Info("cloudNumber incremented", "value", d.cloudNumber)
	return rpc.StatusOK
}

func (d *Device) setCloudNumber(arg string) rpc.StatusCode {
	n, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil {
		return StatusParseError
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.setCloudNumberLocked(n)
	return rpc.StatusOK
}

func (d *Device) startProvisioning(string) rpc.StatusCode {
	if d.requester != nil {
		d.requester.RequestProvisioning(provisioning.SourceRPC)
	}
	return rpc.StatusOK
}

func (d *Device) getCloudNumberMessage(string) ([]byte, error) {
	return fmt.Appendf(nil, "The number is %d !", d.CloudNumber()), nil
}

func (d *Device) getHalfCloudNumber(string) ([]byte, error) {
	return json.Marshal(struct {
		HalfCloudNumber int64 `json:"halfCloudNumber"`
	}{d.CloudNumber() / 2})
}

// =============================================================================
// Remote writes and sensors
// =============================================================================

func (d *Device) onRemoteUpdate(h property.Handle, raw int64, isOwner bool) {
	if h != d.hCloudNumber {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.setCloudNumberLocked(raw)
	d.logger.Info("cloudNumber written remotely", "value", raw, "owner", isOwner)
}

// RecordEnvironment stores a sensor reading. Humidity keeps its previous
// value when the reading has none.
func (d *Device) RecordEnvironment(r Reading) error {
	if err := d.props.Update(d.hTemperature, scaled(r.TemperatureC, 10)); err != nil {
		return err
	}
	if r.Humidity == nil {
		return nil
	}
	return d.props.Update(d.hHumidity, scaled(*r.Humidity, 10))
}

// Setpoint returns the target temperature in °C.
func (d *Device) Setpoint() float64 {
	raw, err := d.props.Value(d.hSetpoint)
	if err != nil {
		return 0
	}
	return float64(raw) / 1000
}

func scaled(v float64, scale int64) int64 {
	if v >= 0 {
		return int64(v*float64(scale) + 0.5)
	}
	return int64(v*float64(scale) - 0.5)
}

// MustUpdate updates a notification and panics on a registration mismatch,
// which is a programming error.
func MustUpdate(reg *notification.Registry, h notification.Handle, params ...any) {
	if err := reg.Update(h, params...); err != nil {
		panic(fmt.Sprintf("notification update: %v", err))
	}
}
