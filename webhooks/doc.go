// Package webhooks verifies and dispatches TRM webhook deliveries.
//
// A delivery is checked in a fixed order: required headers, signature,
// JSON payload, then the handler registered for the event. Every outcome is
// reported as a Result; Dispatch never returns an error.
package webhooks
