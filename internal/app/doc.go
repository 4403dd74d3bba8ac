// Package app is the application installed on the device runtime.
//
// It registers:
//
//   - Properties cloudNumber and setpoint (writable), temperature and
//     humidity (read-only, synced together as one batch)
//   - Notification cloudNumberChanged
//   - RPCs incrementCloudNumber, setCloudNumber, startProvisioning,
//     getCloudNumberMessage and getHalfCloudNumber
package app
