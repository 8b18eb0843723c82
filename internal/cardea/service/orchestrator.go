package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cardea-gate/cardea/internal/cardea/types"
)

// Feedback sound names, resolved against the configured sound path template.
const (
	SoundGrant   = "sound"
	SoundDeny    = "beep"
	SoundConfirm = "beep"
)

// Gate drives the physical gate signal. Pulse is fire-and-forget.
type Gate interface {
	Pulse()
}

// Sounder plays a feedback sound by name. Non-blocking.
type Sounder interface {
	Play(name string)
}

// OverrideInput samples the manual-override level. Pressed means active.
type OverrideInput interface {
	Pressed() bool
}

// Resolver produces a decision for one scanned code, remote-first with a
// transparent local fallback, and forwards wipe commands to the authority.
type Resolver interface {
	Resolve(ctx context.Context, code string, override bool) types.Decision
	Wipe(ctx context.Context) error
}

// ScanSource hands over every code completed since the last call.
type ScanSource interface {
	Drain() []types.ScanEvent
}

// Orchestrator is the gate node's main loop: it drains scanned codes,
// resolves each to a decision, drives the gate and feedback sounds, and
// watches the override input for the sustained-hold wipe.
type Orchestrator struct {
	scans    ScanSource
	resolver Resolver
	engine   *Engine
	monitor  *OverrideMonitor
	override OverrideInput
	gate     Gate
	sounder  Sounder
	log      *zap.Logger

	tick        time.Duration
	keep        []string
	isAuthority bool

	lastCode string
	seenScan bool
}

type OrchestratorConfig struct {
	Scans       ScanSource
	Resolver    Resolver
	Engine      *Engine
	Monitor     *OverrideMonitor
	Override    OverrideInput
	Gate        Gate
	Sounder     Sounder
	Logger      *zap.Logger
	Tick        time.Duration
	WipeKeep    []string
	IsAuthority bool
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Tick <= 0 {
		cfg.Tick = 20 * time.Millisecond
	}
	if cfg.Monitor == nil {
		cfg.Monitor = NewOverrideMonitor(0)
	}
	return &Orchestrator{
		scans:       cfg.Scans,
		resolver:    cfg.Resolver,
		engine:      cfg.Engine,
		monitor:     cfg.Monitor,
		override:    cfg.Override,
		gate:        cfg.Gate,
		sounder:     cfg.Sounder,
		log:         cfg.Logger,
		tick:        cfg.Tick,
		keep:        cfg.WipeKeep,
		isAuthority: cfg.IsAuthority,
	}
}

// Run loops until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(o.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.Step(ctx)
		}
	}
}

// Step performs one tick: drain all pending scans, then sample the
// override input. Exported so tests can drive the loop directly.
func (o *Orchestrator) Step(ctx context.Context) {
	overridePressed := o.override != nil && o.override.Pressed()

	for _, ev := range o.scans.Drain() {
		o.handleScan(ctx, ev, overridePressed)
	}

	if o.monitor.Observe(overridePressed) {
		o.wipe(ctx)
	}
}

func (o *Orchestrator) handleScan(ctx context.Context, ev types.ScanEvent, overridePressed bool) {
	master := types.IsMasterForm(ev.Code)

	// A rescan of the same badge is a misfire, not a new attempt, unless
	// the override is held or the code is a master code. seenScan guards
	// the comparison so the very first scan is always resolved, even when
	// it matches lastCode's zero value.
	if !master && !overridePressed && o.seenScan && ev.Code == o.lastCode {
		o.log.Info("duplicate scan ignored", zap.String("code", ev.Code))
		o.sounder.Play(SoundDeny)
		return
	}

	decision := o.resolver.Resolve(ctx, ev.Code, overridePressed)
	o.log.Info("scan resolved",
		zap.String("code", ev.Code),
		zap.Stringer("decision", decision),
		zap.Bool("override", overridePressed),
		zap.Time("scanned_at", ev.ScannedAt))

	if decision == types.Granted {
		o.gate.Pulse()
		if !master {
			o.sounder.Play(SoundGrant)
		}
	} else {
		o.sounder.Play(SoundDeny)
	}

	if !master {
		o.lastCode = ev.Code
		o.seenScan = true
	}
}

func (o *Orchestrator) wipe(ctx context.Context) {
	o.log.Warn("override held, wiping validation store")

	if err := o.engine.Wipe(o.keep); err != nil {
		o.log.Error("local wipe incomplete", zap.Error(err))
	}

	// The authority holds the canonical store; ask it to wipe too.
	if !o.isAuthority {
		if err := o.resolver.Wipe(ctx); err != nil {
			o.log.Warn("authority wipe failed", zap.Error(err))
		}
	}

	o.sounder.Play(SoundConfirm)
}
