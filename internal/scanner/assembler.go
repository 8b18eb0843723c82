// Package scanner turns a USB keyboard-wedge barcode scanner into a stream
// of completed code strings. The reader owns the device handle and survives
// disconnects; the assembler maps key reports to characters.
package scanner

import "time"

// USB HID usage IDs as they appear in the scanner's key reports.
// The keypad table covers digits only; every other usage is ignored.
var keycodeChars = map[uint8]byte{
	30: '1', 31: '2', 32: '3', 33: '4', 34: '5',
	35: '6', 36: '7', 37: '8', 38: '9', 39: '0',
}

const keyEnter = 40

// maxPending guards against a scanner stuck streaming without a terminator.
const maxPending = 50

// pendingTimeout is measured from the FIRST character of the current
// buffer: a scan that has not completed within it is abandoned.
const pendingTimeout = 3 * time.Second

// Assembler accumulates key reports into code candidates. Not safe for
// concurrent use; the device reader goroutine is the only caller.
type Assembler struct {
	pending   []byte
	startedAt time.Time

	now func() time.Time
}

func NewAssembler() *Assembler {
	return &Assembler{now: time.Now}
}

// Feed consumes one key usage ID. When the key terminates a code, the
// completed candidate is returned with done=true (possibly empty; length
// enforcement belongs to validation, not assembly).
func (a *Assembler) Feed(key uint8) (code string, done bool) {
	if len(a.pending) > 0 && a.now().Sub(a.startedAt) >= pendingTimeout {
		// The scan never finished in time; whatever arrives now starts over.
		a.Reset()
	}

	if key == keyEnter {
		code = string(a.pending)
		a.Reset()
		return code, true
	}

	ch, ok := keycodeChars[key]
	if !ok {
		return "", false
	}

	if len(a.pending) == 0 {
		a.startedAt = a.now()
	}
	a.pending = append(a.pending, ch)
	if len(a.pending) > maxPending {
		a.Reset()
	}
	return "", false
}

// Expire discards the pending buffer if it has been sitting past the
// timeout. Called by the reader on idle read cycles; reports whether a
// partial scan was abandoned.
func (a *Assembler) Expire() bool {
	if len(a.pending) == 0 || a.now().Sub(a.startedAt) < pendingTimeout {
		return false
	}
	a.Reset()
	return true
}

// Pending reports whether a partial code is buffered.
func (a *Assembler) Pending() bool { return len(a.pending) > 0 }

// Reset clears the buffer; the next character starts a fresh scan.
func (a *Assembler) Reset() {
	a.pending = a.pending[:0]
	a.startedAt = time.Time{}
}
