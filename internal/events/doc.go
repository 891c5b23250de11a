// Package events publishes plan lifecycle events.
//
// Every schedule mutation emits one Event. The NATS publisher sends it as
// JSON on the subject
//
//	<prefix>.<user_id>.<event>
//
// for example cadence.u-123.day.completed. Publishing is best-effort:
// failures are logged and counted, never returned to the caller.
package events
