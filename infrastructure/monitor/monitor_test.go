package monitor

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordOfferFlow(t *testing.T) {
	m := New(DefaultConfig())
	m.RecordTransition("form", "confirm")
	m.RecordTransition("form", "confirm")
	m.RecordOfferSubmitted("buy")
	m.RecordOfferResult("buy", "sent", 0.2)
	m.RecordDuplicateSubmit()
	m.RecordValidationFailure("parse")

	if got := testutil.ToFloat64(m.transitions.WithLabelValues("form", "confirm")); got != 2 {
		t.Errorf("transitions form->confirm = %f, want 2", got)
	}
	if got := testutil.ToFloat64(m.offersSubmitted.WithLabelValues("buy")); got != 1 {
		t.Errorf("offers submitted = %f, want 1", got)
	}
	if got := testutil.ToFloat64(m.offerResults.WithLabelValues("buy", "sent")); got != 1 {
		t.Errorf("offer results = %f, want 1", got)
	}
	if got := testutil.ToFloat64(m.duplicates); got != 1 {
		t.Errorf("duplicates = %f, want 1", got)
	}
	if got := testutil.ToFloat64(m.validationFailures.WithLabelValues("parse")); got != 1 {
		t.Errorf("validation failures = %f, want 1", got)
	}
}

func TestGatewayMetrics(t *testing.T) {
	m := New(DefaultConfig())
	m.RecordGatewayRequest("submit")
	m.RecordGatewayError("submit")
	m.RecordCatalogReload()
	if got := testutil.ToFloat64(m.gatewayRequests.WithLabelValues("submit")); got != 1 {
		t.Errorf("gateway requests = %f, want 1", got)
	}
	if got := testutil.ToFloat64(m.catalogReloads); got != 1 {
		t.Errorf("catalog reloads = %f, want 1", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(DefaultConfig())
	m.RecordOfferSubmitted("sell")
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `offerdesk_order_offers_submitted_total{op="sell"} 1`) {
		t.Fatalf("metrics output missing counter:\n%s", body)
	}
}
