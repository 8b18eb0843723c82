package scanner

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrReadTimeout is returned by ReadKey when no key arrived within the
// timeout. It is the normal idle outcome, not a device fault.
var ErrReadTimeout = errors.New("scanner read timeout")

// ErrNoDevice is returned by an opener when no configured scanner is
// attached.
var ErrNoDevice = errors.New("no scanner device found")

// DeviceID identifies a supported scanner model by USB vendor/product pair.
type DeviceID struct {
	Vendor  uint16
	Product uint16
}

// InputDevice is one attached scanner handle. Implementations are exclusive
// owners of the underlying device; the reader holds at most one at a time.
type InputDevice interface {
	// ReadKey blocks up to timeout for the next key-down usage ID.
	// Returns ErrReadTimeout when idle; any other error is a device fault.
	ReadKey(timeout time.Duration) (uint8, error)

	// Flush discards whatever input the device has buffered, bounded by
	// short-timeout reads.
	Flush()

	Close() error
}

// Opener acquires a scanner handle. Returns ErrNoDevice when nothing
// matching is attached.
type Opener func() (InputDevice, error)

// ParseDeviceIDs parses configured "vendor:product" hex pairs,
// e.g. "1eab:1a03".
func ParseDeviceIDs(specs []string) ([]DeviceID, error) {
	ids := make([]DeviceID, 0, len(specs))
	for _, spec := range specs {
		v, p, ok := strings.Cut(strings.TrimSpace(spec), ":")
		if !ok {
			return nil, fmt.Errorf("bad scanner id %q, want vendor:product", spec)
		}
		var id DeviceID
		if _, err := fmt.Sscanf(strings.ToLower(v), "%04x", &id.Vendor); err != nil {
			return nil, fmt.Errorf("bad vendor in %q: %w", spec, err)
		}
		if _, err := fmt.Sscanf(strings.ToLower(p), "%04x", &id.Product); err != nil {
			return nil, fmt.Errorf("bad product in %q: %w", spec, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
