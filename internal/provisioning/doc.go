// Package provisioning turns a long button press into a request for the
// device's provisioning mode and runs that mode.
//
// The Trigger is polled by the main loop every tick. When the button has
// been held for the threshold it calls Requester.RequestProvisioning. The
// Service is the Requester: it records the request in an atomic flag and
// acts on it during its own Loop, which the main loop also polls, so no
// work happens on the caller's goroutine.
//
// Entries are logged to SQLite through SQLiteEventStore and broadcast to
// listeners such as the local API's websocket hub.
package provisioning
