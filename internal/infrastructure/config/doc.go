// Package config loads and validates the device runtime configuration.
//
// Values are resolved in order: built-in defaults, the YAML file, then
// GRAYDEVICE_* environment variables. Validate reports every problem at once,
// including timing relationships such as a button threshold shorter than the
// scheduler tick.
//
// Static credentials and broker passwords belong in the environment
// (GRAYDEVICE_DEVICE_ID, GRAYDEVICE_PRIVATE_KEY, GRAYDEVICE_MQTT_PASSWORD),
// not in the file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	tick := cfg.GetTick()
package config
