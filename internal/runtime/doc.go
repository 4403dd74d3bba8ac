// Package runtime runs the device: a one-shot startup sequence followed by
// a fixed-period cooperative main loop.
//
// Background work (property sync, notification publishing, the cloud
// link's sender) runs on its own goroutines. Everything the main loop
// touches per tick is non-blocking, so a slow network never delays the
// button trigger or the periodic publisher.
package runtime
