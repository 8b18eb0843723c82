package scanner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	hidrawSysDir = "/sys/class/hidraw"
	hidrawDevDir = "/dev"

	// flushTimeout bounds each read of the drain loop; the flush stops at
	// the first idle read.
	flushTimeout = 50 * time.Millisecond
)

// hidrawDevice reads boot-keyboard reports straight from /dev/hidrawN.
// Byte 2 of each 8-byte report carries the active key's usage ID (0 when
// no key is down), which is exactly what the assembler's table consumes.
type hidrawDevice struct {
	f *os.File
}

// OpenHidraw scans the hidraw class for the first attached device matching
// one of the configured vendor/product pairs.
func OpenHidraw(ids []DeviceID) (InputDevice, error) {
	entries, err := os.ReadDir(hidrawSysDir)
	if err != nil {
		return nil, fmt.Errorf("list hidraw devices: %w", err)
	}

	for _, e := range entries {
		vendor, product, err := hidrawID(e.Name())
		if err != nil {
			continue
		}
		for _, id := range ids {
			if id.Vendor != vendor || id.Product != product {
				continue
			}
			f, err := os.OpenFile(filepath.Join(hidrawDevDir, e.Name()), os.O_RDONLY, 0)
			if err != nil {
				return nil, fmt.Errorf("open %s: %w", e.Name(), err)
			}
			return &hidrawDevice{f: f}, nil
		}
	}
	return nil, ErrNoDevice
}

// hidrawID parses the HID_ID line of the device uevent,
// e.g. "HID_ID=0003:00001EAB:00001A03" -> (0x1eab, 0x1a03).
func hidrawID(name string) (vendor, product uint16, err error) {
	b, err := os.ReadFile(filepath.Join(hidrawSysDir, name, "device", "uevent"))
	if err != nil {
		return 0, 0, err
	}
	for _, line := range strings.Split(string(b), "\n") {
		rest, ok := strings.CutPrefix(line, "HID_ID=")
		if !ok {
			continue
		}
		parts := strings.Split(rest, ":")
		if len(parts) != 3 {
			break
		}
		var v, p uint32
		if _, err := fmt.Sscanf(parts[1], "%08X", &v); err != nil {
			break
		}
		if _, err := fmt.Sscanf(parts[2], "%08X", &p); err != nil {
			break
		}
		return uint16(v), uint16(p), nil
	}
	return 0, 0, fmt.Errorf("no HID_ID in uevent for %s", name)
}

func (d *hidrawDevice) ReadKey(timeout time.Duration) (uint8, error) {
	deadline := time.Now().Add(timeout)
	if err := d.f.SetReadDeadline(deadline); err != nil {
		return 0, fmt.Errorf("set read deadline: %w", err)
	}

	buf := make([]byte, 8)
	for {
		n, err := d.f.Read(buf)
		if err != nil {
			if os.IsTimeout(err) {
				return 0, ErrReadTimeout
			}
			return 0, fmt.Errorf("read report: %w", err)
		}
		// Reports with no key down (key-up phases) carry a zero usage.
		if n < 3 || buf[2] == 0 {
			continue
		}
		return buf[2], nil
	}
}

func (d *hidrawDevice) Flush() {
	buf := make([]byte, 8)
	for {
		if err := d.f.SetReadDeadline(time.Now().Add(flushTimeout)); err != nil {
			return
		}
		if _, err := d.f.Read(buf); err != nil {
			return
		}
	}
}

func (d *hidrawDevice) Close() error {
	// A handle that is already gone counts as closed.
	if err := d.f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}
