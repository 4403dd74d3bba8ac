// Package panel serves the device's maintenance page: a single page that
// lists properties and RPC endpoints from the local API and follows the
// live event stream over the websocket.
//
// The page is embedded with go:embed. Pointing Options.Dir at a copy of the
// web directory serves it from disk instead, re-reading the template on every
// request.
package panel
