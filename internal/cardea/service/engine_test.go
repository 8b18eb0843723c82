package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/cardea-gate/cardea/internal/cardea/service"
	"github.com/cardea-gate/cardea/internal/cardea/store/memory"
	"github.com/cardea-gate/cardea/internal/cardea/types"
)

// newTestEngine builds an Engine over in-memory stores, returning both
// stores so tests can seed markers and inspect the audit trail.
func newTestEngine(sites ...string) (*service.Engine, *memory.MarkerStore, *memory.EventStore) {
	markers := memory.NewMarkerStore(sites...)
	events := memory.NewEventStore()
	eng := service.NewEngine(markers, events, 23, 50, nil)
	return eng, markers, events
}

// ── Structural checks ────────────────────────────────────────────────────────

func TestEvaluate_BadLength_DeniedWithoutStorageTouch(t *testing.T) {
	eng, markers, events := newTestEngine("SITE")

	for _, raw := range []string{"", "2507231234ABCD", "010125SITEA123456"} {
		if got := eng.Evaluate(context.Background(), raw, false); got != types.Denied {
			t.Errorf("Evaluate(%q) = %v, want Denied", raw, got)
		}
	}
	if n := markers.MarkerCount(); n != 0 {
		t.Fatalf("expected no markers, got %d", n)
	}

	evs := events.Events()
	if len(evs) != 3 {
		t.Fatalf("expected 3 audit events, got %d", len(evs))
	}
	for _, ev := range evs {
		if ev.Reason != service.ReasonBadLength {
			t.Errorf("expected reason=bad_length, got %q", ev.Reason)
		}
	}
}

func TestEvaluate_BadDate_Denied(t *testing.T) {
	eng, _, events := newTestEngine("SITE")

	if got := eng.Evaluate(context.Background(), "320125SITEA12345", false); got != types.Denied {
		t.Fatalf("expected Denied for day 32, got %v", got)
	}
	if evs := events.Events(); evs[len(evs)-1].Reason != service.ReasonBadDate {
		t.Errorf("expected reason=bad_date, got %q", evs[len(evs)-1].Reason)
	}
}

func TestEvaluate_UnknownSite_Denied(t *testing.T) {
	eng, _, _ := newTestEngine() // nothing provisioned

	if got := eng.Evaluate(context.Background(), "010125SITEA12345", false); got != types.Denied {
		t.Fatalf("expected Denied for unprovisioned site, got %v", got)
	}
}

// ── Master code ──────────────────────────────────────────────────────────────

func TestEvaluate_MasterCode_GrantedWithoutMarker(t *testing.T) {
	eng, markers, events := newTestEngine("SITE")

	if got := eng.Evaluate(context.Background(), types.MasterCode("SITE"), false); got != types.Granted {
		t.Fatalf("expected Granted for master code, got %v", got)
	}
	if n := markers.MarkerCount(); n != 0 {
		t.Fatalf("master code must not consume a slot, got %d markers", n)
	}
	if evs := events.Events(); evs[0].Reason != service.ReasonMasterCode {
		t.Errorf("expected reason=master_code, got %q", evs[0].Reason)
	}
}

func TestEvaluate_MasterCode_UnprovisionedSite_Denied(t *testing.T) {
	eng, _, _ := newTestEngine("SITE")

	if got := eng.Evaluate(context.Background(), types.MasterCode("ELSE"), false); got != types.Denied {
		t.Fatalf("master code for an unprovisioned site must not grant, got %v", got)
	}
}

// ── Consumption and replay ───────────────────────────────────────────────────

func TestEvaluate_FirstUseGranted_ReplayDenied(t *testing.T) {
	eng, markers, _ := newTestEngine("SITE")
	const raw = "010125SITEA12345"

	if got := eng.Evaluate(context.Background(), raw, false); got != types.Granted {
		t.Fatalf("first evaluation: expected Granted, got %v", got)
	}
	if !markers.Consumed("SITE", "A1", "010125", "2345") {
		t.Fatal("expected marker to be created on grant")
	}

	if got := eng.Evaluate(context.Background(), raw, false); got != types.Denied {
		t.Fatalf("replay: expected Denied, got %v", got)
	}
}

func TestEvaluate_StorageFault_Denied(t *testing.T) {
	eng, markers, events := newTestEngine("SITE")
	markers.ConsumeErr = errors.New("disk on fire")

	if got := eng.Evaluate(context.Background(), "010125SITEA12345", false); got != types.Denied {
		t.Fatalf("expected Denied on storage fault, got %v", got)
	}
	if evs := events.Events(); evs[0].Reason != service.ReasonStoreError {
		t.Errorf("expected reason=store_error, got %q", evs[0].Reason)
	}
}

// ── Override ─────────────────────────────────────────────────────────────────

func TestEvaluate_Override_GrantsAndRecords(t *testing.T) {
	eng, markers, _ := newTestEngine() // no sites, bad date on purpose

	// Override bypasses date validity, site provisioning and replay.
	if got := eng.Evaluate(context.Background(), "990199ZZZZQ99999", true); got != types.Granted {
		t.Fatalf("expected Granted under override, got %v", got)
	}
	if !markers.Consumed("ZZZZ", "Q9", "990199", "9999") {
		t.Fatal("override grant must attempt to record consumption")
	}

	// A replay under override still grants.
	if got := eng.Evaluate(context.Background(), "990199ZZZZQ99999", true); got != types.Granted {
		t.Fatalf("expected Granted on override replay, got %v", got)
	}
}

func TestEvaluate_Override_StorageFaultStillGrants(t *testing.T) {
	eng, markers, events := newTestEngine("SITE")
	markers.ConsumeErr = errors.New("disk on fire")

	if got := eng.Evaluate(context.Background(), "010125SITEA12345", true); got != types.Granted {
		t.Fatalf("override grant must survive a storage fault, got %v", got)
	}
	if evs := events.Events(); evs[0].Reason != service.ReasonOverrideStoreError {
		t.Errorf("expected reason=override_store_error, got %q", evs[0].Reason)
	}
}

// ── Audit trail ──────────────────────────────────────────────────────────────

func TestEvaluate_AuditRecordsSegments(t *testing.T) {
	eng, _, events := newTestEngine("SITE")

	eng.Evaluate(context.Background(), "010125SITEA12345", false)

	evs := events.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	ev := evs[0]
	if ev.Site != "SITE" || ev.Registry != "A1" || ev.Date != "010125" || ev.Serial != "2345" {
		t.Errorf("unexpected segments: %+v", ev)
	}
	if !ev.Granted || ev.Reason != service.ReasonConsumed {
		t.Errorf("expected granted/consumed, got %+v", ev)
	}
	if ev.DecidedAt.IsZero() {
		t.Error("expected decided_at to be set")
	}
}
