package metrics

import "testing"

func TestNew_RegistersCollectors(t *testing.T) {
	m := New("test", "go1.26")

	mfs, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	found := false
	for _, mf := range mfs {
		if mf.GetName() == "localshare_info" {
			found = true
		}
	}
	if !found {
		t.Error("localshare_info metric not registered")
	}
}

func TestIngestRequestsTotal_Increments(t *testing.T) {
	m := New("test", "go1.26")
	m.IngestRequestsTotal.WithLabelValues("POST", "/api/localshare/send-file", "200").Inc()

	mfs, _ := m.Registry.Gather()
	for _, mf := range mfs {
		if mf.GetName() == "localshare_ingest_requests_total" {
			if len(mf.GetMetric()) != 1 {
				t.Errorf("expected 1 series, got %d", len(mf.GetMetric()))
			}
			return
		}
	}
	t.Error("localshare_ingest_requests_total metric not found")
}
