package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestObserveQueryCountsOutcome(t *testing.T) {
	ObserveQuery("metrics_people", QueryStatusOK, 5, 2, 10*time.Millisecond)
	ObserveQuery("metrics_people", QueryStatusReadError, 0, 0, time.Millisecond)
	ObserveTableOpen("file", 3*time.Millisecond)

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	counts := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["table"] != "metrics_people" {
				continue
			}
			key := family.GetName() + "/" + labels["status"]
			if metric.GetCounter() != nil {
				counts[key] += metric.GetCounter().GetValue()
			}
		}
	}

	if got := counts["pxql_queries_total/"+QueryStatusOK]; got != 1 {
		t.Fatalf("pxql_queries_total{status=ok} = %v, want 1", got)
	}
	if got := counts["pxql_queries_total/"+QueryStatusReadError]; got != 1 {
		t.Fatalf("pxql_queries_total{status=read_error} = %v, want 1", got)
	}
	if got := counts["pxql_query_records_scanned_total/"]; got != 5 {
		t.Fatalf("pxql_query_records_scanned_total = %v, want 5", got)
	}
	if got := counts["pxql_query_rows_returned_total/"]; got != 2 {
		t.Fatalf("pxql_query_rows_returned_total = %v, want 2", got)
	}
}
