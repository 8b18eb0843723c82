// Package rpi holds the Raspberry Pi side-effect collaborators: the gate
// pulse output, the override button input, and sound playback. Everything
// here is fire-and-forget; decisions never depend on it.
package rpi

import (
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/zap"
)

const (
	gpioChip = "gpiochip0"

	// pulseWidth is how long the gate line is held high per grant.
	pulseWidth = 200 * time.Millisecond
)

// Gate pulses the gate-relay line once per granted scan.
type Gate struct {
	line *gpiocdev.Line
	log  *zap.Logger

	mu sync.Mutex
}

func NewGate(pin int, log *zap.Logger) (*Gate, error) {
	line, err := gpiocdev.RequestLine(gpioChip, pin, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, err
	}
	return &Gate{line: line, log: log}, nil
}

// Pulse fires the gate signal and returns immediately. Overlapping pulses
// are serialized so the line always sees a full-width high.
func (g *Gate) Pulse() {
	go func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if err := g.line.SetValue(1); err != nil {
			g.log.Warn("gate line set failed", zap.Error(err))
			return
		}
		time.Sleep(pulseWidth)
		if err := g.line.SetValue(0); err != nil {
			g.log.Warn("gate line clear failed", zap.Error(err))
		}
	}()
}

func (g *Gate) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	_ = g.line.SetValue(0)
	return g.line.Close()
}

// Button samples the override input level. The line is pulled up, so
// pressed reads low.
type Button struct {
	line *gpiocdev.Line
	log  *zap.Logger
}

func NewButton(pin int, log *zap.Logger) (*Button, error) {
	line, err := gpiocdev.RequestLine(gpioChip, pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		return nil, err
	}
	return &Button{line: line, log: log}, nil
}

func (b *Button) Pressed() bool {
	v, err := b.line.Value()
	if err != nil {
		b.log.Warn("button read failed", zap.Error(err))
		return false
	}
	return v == 0
}

func (b *Button) Close() error {
	return b.line.Close()
}

// NopGate and NopButton stand in when GPIO is unavailable (dev machines,
// failed line requests). The node still validates and logs.
type NopGate struct{}

func (NopGate) Pulse() {}

type NopButton struct{}

func (NopButton) Pressed() bool { return false }
