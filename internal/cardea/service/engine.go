package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/cardea-gate/cardea/internal/cardea/store"
	"github.com/cardea-gate/cardea/internal/cardea/types"
)

// Decision reasons recorded in the audit log.
const (
	ReasonBadLength          = "bad_length"
	ReasonMasterCode         = "master_code"
	ReasonOverride           = "override"
	ReasonOverrideStoreError = "override_store_error"
	ReasonBadDate            = "bad_date"
	ReasonUnknownSite        = "unknown_site"
	ReasonReplay             = "replay"
	ReasonConsumed           = "consumed"
	ReasonStoreError         = "store_error"
)

// Engine decides whether a scanned code opens the gate. It is shared by the
// authority server and the offline fallback path, both running against the
// same marker store.
type Engine struct {
	markers store.MarkerStore
	events  store.EventStore
	yearMin int
	yearMax int
	log     *zap.Logger
}

func NewEngine(markers store.MarkerStore, events store.EventStore, yearMin, yearMax int, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		markers: markers,
		events:  events,
		yearMin: yearMin,
		yearMax: yearMax,
		log:     log,
	}
}

// Evaluate runs the ordered validation checks, first match wins:
// length, master code, manual override, date plausibility, site provisioned,
// then the consume-or-replay gate. Consumption and the grant are one step:
// the store's atomic create-if-absent is the single source of truth, and
// "already exists" from that call is the replay signal.
func (e *Engine) Evaluate(ctx context.Context, raw string, override bool) types.Decision {
	code, ok := types.ParseCode(raw)
	if !ok {
		e.audit(ctx, types.Code{Raw: raw}, false, ReasonBadLength, override)
		return types.Denied
	}

	if code.Raw == types.MasterCode(code.Site) && e.markers.SiteExists(code.Site) {
		// Master codes never consume a usage slot.
		e.audit(ctx, code, true, ReasonMasterCode, override)
		return types.Granted
	}

	if override {
		// The override is a human decision at the gate; a storage fault
		// must not revoke it. Consumption accounting here is best-effort.
		reason := ReasonOverride
		if err := e.markers.Consume(code.Site, code.Registry, code.Date, code.Serial); err != nil &&
			!errors.Is(err, store.ErrAlreadyConsumed) {
			e.log.Warn("override: recording consumption failed",
				zap.String("code", code.Raw), zap.Error(err))
			reason = ReasonOverrideStoreError
		}
		e.audit(ctx, code, true, reason, override)
		return types.Granted
	}

	if !code.DateValid(e.yearMin, e.yearMax) {
		e.audit(ctx, code, false, ReasonBadDate, override)
		return types.Denied
	}

	if !e.markers.SiteExists(code.Site) {
		e.audit(ctx, code, false, ReasonUnknownSite, override)
		return types.Denied
	}

	switch err := e.markers.Consume(code.Site, code.Registry, code.Date, code.Serial); {
	case err == nil:
		e.audit(ctx, code, true, ReasonConsumed, override)
		return types.Granted
	case errors.Is(err, store.ErrAlreadyConsumed):
		e.audit(ctx, code, false, ReasonReplay, override)
		return types.Denied
	default:
		e.log.Error("marker store fault", zap.String("code", code.Raw), zap.Error(err))
		e.audit(ctx, code, false, ReasonStoreError, override)
		return types.Denied
	}
}

// Wipe clears the marker store, sparing the keep list. Best-effort.
func (e *Engine) Wipe(keep []string) error {
	return e.markers.Wipe(keep)
}

func (e *Engine) audit(ctx context.Context, code types.Code, granted bool, reason string, override bool) {
	if e.events == nil {
		return
	}
	err := e.events.RecordEvent(ctx, store.EventRecord{
		Code:      code.Raw,
		Site:      code.Site,
		Registry:  code.Registry,
		Date:      code.Date,
		Serial:    code.Serial,
		Granted:   granted,
		Reason:    reason,
		Override:  override,
		DecidedAt: time.Now().UTC(),
	})
	if err != nil {
		// Auditing never affects the decision.
		e.log.Warn("audit append failed", zap.Error(err))
	}
}
