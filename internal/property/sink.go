package property

import (
	"errors"
	"time"
)

// Sink receives property samples from the sync worker. One call carries
// either a single property or all members of a batch group.
type Sink interface {
	EmitProperties(samples []Sample) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(samples []Sample) error

// EmitProperties calls f.
func (f SinkFunc) EmitProperties(samples []Sample) error {
	return f(samples)
}

// MultiSink emits to every sink in order and joins their errors.
type MultiSink []Sink

// EmitProperties emits to all sinks even when an earlier one fails.
func (m MultiSink) EmitProperties(samples []Sample) error {
	var errs []error
	for _, s := range m {
		if err := s.EmitProperties(samples); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SampleWriter stores individual samples, e.g. the InfluxDB client.
type SampleWriter interface {
	WritePropertySample(deviceID, key string, value float64, at time.Time)
}

// MirrorSink writes each sample to a SampleWriter under a device id.
type MirrorSink struct {
	Writer   SampleWriter
	DeviceID string
	Now      func() time.Time
}

// EmitProperties writes every sample; it never fails.
func (m MirrorSink) EmitProperties(samples []Sample) error {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	at := now()
	for _, s := range samples {
		m.Writer.WritePropertySample(m.DeviceID, s.Key, s.Value(), at)
	}
	return nil
}
