// Package audit keeps a trail of remote writes and calls made against the
// device, whether they arrived from the cloud or from the local API.
//
// Entries are recorded without blocking the caller: Recorder queues them
// and a background goroutine writes them to the audit_logs table. The
// cloud delivery goroutine must never wait on SQLite.
package audit
