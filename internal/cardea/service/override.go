package service

import "time"

// defaultHold is how long the override input must stay pressed before a
// wipe fires.
const defaultHold = 10 * time.Second

// OverrideMonitor watches the manual-override input level and decides when
// a sustained hold should trigger the store wipe. At most one wipe fires
// per continuous hold; releasing the input arms the next one.
//
// Not safe for concurrent use; the orchestrator loop is the only caller.
type OverrideMonitor struct {
	hold      time.Duration
	holdStart *time.Time
	wiped     bool

	now func() time.Time
}

func NewOverrideMonitor(hold time.Duration) *OverrideMonitor {
	if hold <= 0 {
		hold = defaultHold
	}
	return &OverrideMonitor{hold: hold, now: time.Now}
}

// Observe feeds one sample of the input level and reports whether a wipe
// must fire now.
func (m *OverrideMonitor) Observe(pressed bool) bool {
	if !pressed {
		m.holdStart = nil
		m.wiped = false
		return false
	}

	if m.holdStart == nil {
		t := m.now()
		m.holdStart = &t
		m.wiped = false
		return false
	}

	if m.wiped || m.now().Sub(*m.holdStart) < m.hold {
		return false
	}

	m.wiped = true
	return true
}
