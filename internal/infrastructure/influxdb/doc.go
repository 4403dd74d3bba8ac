// Package influxdb mirrors device telemetry into InfluxDB.
//
// When influxdb.enabled is set, every property sample the sync worker emits
// is also written as a point in the device_properties measurement, tagged by
// device id and property key. Entries into provisioning mode are written to
// device_provisioning.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WritePropertySample(deviceID, "temperature", 21.5, time.Now())
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval.
package influxdb
