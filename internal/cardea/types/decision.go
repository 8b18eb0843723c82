package types

import "time"

// Decision is the outcome of validating one scanned code.
type Decision int

const (
	Denied Decision = iota
	Granted
)

func (d Decision) String() string {
	if d == Granted {
		return "granted"
	}
	return "denied"
}

// ScanEvent is one completed code as it left the assembler.
type ScanEvent struct {
	Code      string
	ScannedAt time.Time
}
