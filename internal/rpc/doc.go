// Package rpc holds the named handlers the cloud can call.
//
// POST handlers perform an action and return an integer status code. GET
// handlers return a value tagged as plain text or JSON. Dispatch failures
// map to reserved codes through Status:
//
//	StatusOK             1     success
//	handler-defined     <0     e.g. -1 for a bad argument
//	StatusAccessDenied  -403   owner-only handler, non-owner caller
//	StatusUnknownName   -404   no handler with that name
//	StatusHandlerFailed -500   handler error, panic or invalid JSON result
package rpc
