// Package credentials loads the device identity from exactly one source:
// the SQLite credential store or constants compiled into the binary.
//
// A failure of any kind is fatal to startup. Nothing here retries.
package credentials
