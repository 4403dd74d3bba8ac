// Package api implements the device's local diagnostics HTTP API and
// WebSocket event stream.
//
// This package provides:
//   - REST endpoints to inspect properties, notifications, RPC handlers and
//     provisioning state
//   - Property writes and RPC invocation with the same result codes the
//     cloud receives
//   - A WebSocket hub broadcasting property syncs, published notifications
//     and provisioning entries
//   - Middleware stack (request ID, logging, recovery, body limit)
//
// # Security
//
// The server binds to the loopback or maintenance interface only. Callers
// are treated as the device owner; there are no accounts or tokens.
package api
