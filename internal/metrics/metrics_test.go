package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew(t *testing.T) {
	m := New()
	if m == nil {
		t.Error("New() returned nil")
	}
}

func TestDefault(t *testing.T) {
	m1 := Default()
	m2 := Default()

	if m1 != m2 {
		t.Error("Default() should return same instance")
	}
}

func TestRecordExtraction(t *testing.T) {
	m := New()
	m.RecordExtraction("create", true)
	m.RecordExtraction("create", true)
	m.RecordExtraction("cancel", false)
	m.RecordExtraction("", false)

	if got := testutil.ToFloat64(m.extractions.WithLabelValues("create", "success")); got != 2 {
		t.Errorf("create/success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.extractions.WithLabelValues("cancel", "failure")); got != 1 {
		t.Errorf("cancel/failure = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.extractions.WithLabelValues("unknown", "failure")); got != 1 {
		t.Errorf("unknown/failure = %v, want 1", got)
	}
}

func TestRecordParseFailure(t *testing.T) {
	m := New()
	m.RecordParseFailure("ambiguous_time")
	m.RecordParseFailure("ambiguous_time")

	if got := testutil.ToFloat64(m.parseFailures.WithLabelValues("ambiguous_time")); got != 2 {
		t.Errorf("parse failures = %v, want 2", got)
	}
}

func TestRecordGatewayCall(t *testing.T) {
	m := New()
	m.RecordGatewayCall("create", nil)
	m.RecordGatewayCall("create", errors.New("boom"))

	if got := testutil.ToFloat64(m.gatewayCalls.WithLabelValues("create", "success")); got != 1 {
		t.Errorf("gateway success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.gatewayCalls.WithLabelValues("create", "failure")); got != 1 {
		t.Errorf("gateway failure = %v, want 1", got)
	}
}

func TestRecordSyncRun(t *testing.T) {
	m := New()
	m.RecordSyncRun(nil)
	m.RecordSyncRun(errors.New("boom"))

	if got := testutil.ToFloat64(m.syncRuns.WithLabelValues("success")); got != 1 {
		t.Errorf("sync success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.syncRuns.WithLabelValues("failure")); got != 1 {
		t.Errorf("sync failure = %v, want 1", got)
	}
}

func TestSetPatternsLoaded(t *testing.T) {
	m := New()
	m.SetPatternsLoaded(42)

	if got := testutil.ToFloat64(m.patternsLoaded); got != 42 {
		t.Errorf("patterns loaded = %v, want 42", got)
	}
}

func TestHandlerExposition(t *testing.T) {
	m := New()
	m.RecordExtraction("create", true)
	m.ObserveRequest("/api/chat", 25*time.Millisecond)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "meetwise_extractions_total") {
		t.Error("exposition missing extractions counter")
	}
	if !strings.Contains(body, "meetwise_request_duration_seconds") {
		t.Error("exposition missing request histogram")
	}
	if !strings.Contains(body, "meetwise_uptime_seconds") {
		t.Error("exposition missing uptime gauge")
	}
}
