// Package tcpapi speaks the gate wire protocol: one UTF-8 text request per
// TCP connection, one response, then close. The format is fixed by the
// deployed scanner fleet: no framing, no versioning.
package tcpapi

// maxMessage caps a request or response read. Every legal message is far
// smaller; the largest is a validation request at 22 bytes.
const maxMessage = 1024

const (
	// WipeSentinel is the destructive-reset command. Shorter than a code,
	// so it can never collide with a scanned request.
	WipeSentinel = "wipe_database"
	// WipeAck acknowledges a wipe, sent even when the wipe partially failed.
	WipeAck = "wiped"

	respOpen  = "open"
	respClose = "close"

	overrideTrue  = "True"
	overrideFalse = "False"
)
