package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorsRegistered(t *testing.T) {
	LinkLayerUp.WithLabelValues("radio").Set(BoolGauge(true))
	if got := testutil.ToFloat64(LinkLayerUp.WithLabelValues("radio")); got != 1 {
		t.Fatalf("radio gauge = %v, want 1", got)
	}

	before := testutil.ToFloat64(HeartbeatsTotal)
	HeartbeatsTotal.Inc()
	if got := testutil.ToFloat64(HeartbeatsTotal); got != before+1 {
		t.Fatalf("heartbeats = %v, want %v", got, before+1)
	}

	families, err := Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "cpeer_link_layer_up" {
			found = true
		}
	}
	if !found {
		t.Fatal("cpeer_link_layer_up not gathered")
	}
}
