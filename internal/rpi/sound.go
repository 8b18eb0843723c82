package rpi

import (
	"fmt"
	"os"
	"os/exec"

	"go.uber.org/zap"
)

// audioDevice is the ALSA device the USB speaker shows up as.
const audioDevice = "hw:2,0"

// Player spawns mpg123 for feedback sounds. Missing sound files are
// silently skipped so a bare install still operates the gate.
type Player struct {
	pathTemplate string // e.g. "/home/admin/Barcodes/sounds/%s.mp3"
	log          *zap.Logger
}

func NewPlayer(pathTemplate string, log *zap.Logger) *Player {
	return &Player{pathTemplate: pathTemplate, log: log}
}

func (p *Player) Play(name string) {
	path := fmt.Sprintf(p.pathTemplate, name)
	if _, err := os.Stat(path); err != nil {
		return
	}

	cmd := exec.Command("mpg123", "-a", audioDevice, path)
	if err := cmd.Start(); err != nil {
		p.log.Warn("sound playback failed", zap.String("sound", name), zap.Error(err))
		return
	}
	// Reap the player without blocking the caller.
	go func() { _ = cmd.Wait() }()
}

// NopSounder stands in when feedback audio is not configured.
type NopSounder struct{}

func (NopSounder) Play(string) {}
