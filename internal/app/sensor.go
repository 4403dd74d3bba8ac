package app

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultThermalZone is the SoC temperature on most Linux boards.
const DefaultThermalZone = "/sys/class/thermal/thermal_zone0/temp"

// DefaultSensorInterval is how often the sensor is sampled.
const DefaultSensorInterval = 5 * time.Second

// Reading is one environment sample. Humidity is nil when the sensor has no
// humidity channel.
type Reading struct {
	TemperatureC float64
	Humidity     *float64
}

// Sensor produces environment readings.
type Sensor interface {
	Read() (Reading, error)
}

// SensorFunc adapts a function to Sensor.
type SensorFunc func() (Reading, error)

// Read calls f.
func (f SensorFunc) Read() (Reading, error) { return f() }

// ThermalZone reads temperature from a kernel thermal zone, reported in
// millidegrees Celsius. It has no humidity channel.
type ThermalZone struct {
	Path string
}

// Read samples the zone.
func (z ThermalZone) Read() (Reading, error) {
	path := z.Path
	if path == "" {
		path = DefaultThermalZone
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Reading{}, fmt.Errorf("reading thermal zone: %w", err)
	}
	milli, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return Reading{}, fmt.Errorf("parsing thermal zone %s: %w", path, err)
	}
	return Reading{TemperatureC: float64(milli) / 1000}, nil
}

// SensorPoller samples a Sensor in the background and records readings on
// the Device.
type SensorPoller struct {
	device   *Device
	sensor   Sensor
	interval time.Duration

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger Logger
}

// NewSensorPoller creates a poller. A zero interval uses DefaultSensorInterval.
func NewSensorPoller(device *Device, sensor Sensor, interval time.Duration) *SensorPoller {
	if interval <= 0 {
		interval = DefaultSensorInterval
	}
	return &SensorPoller{
		device:   device,
		sensor:   sensor,
		interval: interval,
		done:     make(chan struct{}),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the poller.
func (p *SensorPoller) SetLogger(logger Logger) {
	p.logger = logger
}

// Start launches the sampling goroutine.
func (p *SensorPoller) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.loop(ctx)
}

// Stop stops sampling and waits for the goroutine. Safe to call multiple times.
func (p *SensorPoller) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
}

func (p *SensorPoller) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	failing := false
	for {
		if err := p.Sample(); err != nil {
			if !failing {
				p.logger.Warn("sensor read failed", "error", err)
			}
			failing = true
		} else {
			failing = false
		}

		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-ticker.C:
		}
	}
}

// Sample reads the sensor once and records the result.
func (p *SensorPoller) Sample() error {
	r, err := p.sensor.Read()
	if err != nil {
		return err
	}
	return p.device.RecordEnvironment(r)
}
