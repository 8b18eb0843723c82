package scanner

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/cardea-gate/cardea/internal/cardea/types"
)

const (
	readTimeout    = 1 * time.Second
	reconnectDelay = 2 * time.Second
	errorPause     = 100 * time.Millisecond

	// errorThreshold is the number of consecutive device faults tolerated
	// on one handle before it is released and reacquired.
	errorThreshold = 3
)

// Reader owns the scanner handle and runs the acquire/read/recover state
// machine, pushing completed codes onto the queue. It is the only goroutine
// that ever touches the device.
type Reader struct {
	open  Opener
	asm   *Assembler
	queue *Queue
	log   *zap.Logger

	now func() time.Time
}

func NewReader(open Opener, queue *Queue, log *zap.Logger) *Reader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reader{
		open:  open,
		asm:   NewAssembler(),
		queue: queue,
		log:   log,
		now:   time.Now,
	}
}

// Run loops until ctx is cancelled: acquire a device, pump it until it
// faults out, release, reacquire. Device loss is routine, never fatal.
func (r *Reader) Run(ctx context.Context) {
	for ctx.Err() == nil {
		dev, err := r.open()
		if err != nil {
			if !errors.Is(err, ErrNoDevice) {
				r.log.Warn("scanner acquisition failed", zap.Error(err))
			} else {
				r.log.Info("scanner not found, retrying")
			}
			sleep(ctx, reconnectDelay)
			continue
		}

		r.log.Info("scanner connected")
		// Whatever the device buffered before this process started must not
		// leak into the first scan.
		dev.Flush()
		r.asm.Reset()

		r.pump(ctx, dev)

		if err := dev.Close(); err != nil {
			r.log.Warn("scanner close failed", zap.Error(err))
		}
		sleep(ctx, reconnectDelay)
	}
}

// pump reads one handle until ctx ends or consecutive faults pass the
// threshold.
func (r *Reader) pump(ctx context.Context, dev InputDevice) {
	faults := 0

	for ctx.Err() == nil {
		key, err := dev.ReadKey(readTimeout)

		switch {
		case errors.Is(err, ErrReadTimeout):
			// Idle. A stale partial buffer is abandoned by the assembler's
			// own timeout rule.
			if r.asm.Expire() {
				r.log.Info("abandoned incomplete scan")
			}
			continue

		case err != nil:
			faults++
			r.log.Warn("scanner read fault", zap.Int("consecutive", faults), zap.Error(err))
			if faults >= errorThreshold {
				r.log.Warn("scanner fault threshold reached, reconnecting")
				return
			}
			r.asm.Reset()
			dev.Flush()
			sleep(ctx, errorPause)
			continue
		}

		faults = 0
		code, done := r.asm.Feed(key)
		if !done {
			continue
		}

		r.log.Info("scan completed", zap.String("code", code))
		r.queue.Push(types.ScanEvent{Code: code, ScannedAt: r.now()})
		// Drop residual bytes so they cannot bleed into the next scan.
		dev.Flush()
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
