package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRun(t *testing.T) {
	before := testutil.ToFloat64(analysesTotal.WithLabelValues(OutcomeOK))
	beforeStrategy := testutil.ToFloat64(strategyTotal.WithLabelValues("marker"))

	ObserveRun(Run{
		Outcome:     OutcomeOK,
		Strategy:    "marker",
		Duration:    15 * time.Millisecond,
		BytesRead:   2048,
		Occurrences: 3,
		Products:    2,
	})

	if got := testutil.ToFloat64(analysesTotal.WithLabelValues(OutcomeOK)); got != before+1 {
		t.Errorf("analyses ok = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(strategyTotal.WithLabelValues("marker")); got != beforeStrategy+1 {
		t.Errorf("strategy marker = %v, want %v", got, beforeStrategy+1)
	}
	if got := testutil.ToFloat64(datasetBytes); got != 2048 {
		t.Errorf("dataset bytes = %v, want 2048", got)
	}
	if got := testutil.ToFloat64(lastProducts); got != 2 {
		t.Errorf("products = %v, want 2", got)
	}
}

func TestObserveRun_FailureKeepsLastCounts(t *testing.T) {
	ObserveRun(Run{Outcome: OutcomeOK, Occurrences: 10, Products: 4})
	ObserveRun(Run{Outcome: OutcomeLoadError})

	if got := testutil.ToFloat64(lastOccurrences); got != 10 {
		t.Errorf("occurrences = %v, want 10 from the last successful run", got)
	}
}

func TestObserveRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequests.WithLabelValues("unmatched", "404"))
	ObserveRequest("", http.StatusNotFound)
	if got := testutil.ToFloat64(httpRequests.WithLabelValues("unmatched", "404")); got != before+1 {
		t.Errorf("unmatched 404 = %v, want %v", got, before+1)
	}
}

func TestHandler(t *testing.T) {
	ObserveRun(Run{Outcome: OutcomeEmpty})

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "basketfreq_analyses_total") {
		t.Error("exposition should include basketfreq_analyses_total")
	}
}
