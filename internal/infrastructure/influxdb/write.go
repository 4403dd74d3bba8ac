package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the device.
const (
	MeasurementProperties   = "device_properties"
	MeasurementProvisioning = "device_provisioning"
)

// WritePropertySample records one synced property value.
//
// Example:
//
//	client.WritePropertySample("0102...0c", "temperature", 21.5, time.Now())
func (c *Client) WritePropertySample(deviceID, key string, value float64, at time.Time) {
	c.write(propertyPoint(deviceID, key, value, at))
}

// WriteProvisioningEvent records an entry into provisioning mode.
func (c *Client) WriteProvisioningEvent(deviceID, source string, window time.Duration, at time.Time) {
	c.write(provisioningPoint(deviceID, source, window, at))
}

func propertyPoint(deviceID, key string, value float64, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementProperties,
		map[string]string{
			"device_id": deviceID,
			"key":       key,
		},
		map[string]interface{}{
			"value": value,
		},
		at,
	)
}

func provisioningPoint(deviceID, source string, window time.Duration, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementProvisioning,
		map[string]string{
			"device_id": deviceID,
			"source":    source,
		},
		map[string]interface{}{
			"window_seconds": window.Seconds(),
		},
		at,
	)
}
