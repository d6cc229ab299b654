package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fundn3xus/sessionauth"
)

type fakeSource struct {
	snapshot sessionauth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() sessionauth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                         { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: sessionauth.MetricsSnapshot{
			Counters:   map[sessionauth.MetricID]uint64{},
			Histograms: map[sessionauth.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: sessionauth.MetricsSnapshot{
			Counters: map[sessionauth.MetricID]uint64{
				sessionauth.MetricSessionIssued: 7,
			},
			Histograms: map[sessionauth.MetricID][]uint64{
				sessionauth.MetricVerifyLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"sessionauth_session_issued_total 7",
		"sessionauth_refresh_wrong_type_total 0",
		`sessionauth_verify_latency_seconds_bucket{le="0.001"} 1`,
		`sessionauth_verify_latency_seconds_bucket{le="+Inf"} 36`,
		"sessionauth_verify_latency_seconds_count 36",
		"sessionauth_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestHandlerServesManagerMetrics(t *testing.T) {
	m, err := sessionauth.New().
		WithSecret([]byte("prometheus-secret-prometheus-secret")).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer m.Close()

	pair, err := m.Issue(context.Background(), sessionauth.Subject{UserID: "u"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	m.Verify(context.Background(), pair.AccessToken)

	rec := httptest.NewRecorder()
	NewExporter(m).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "sessionauth_session_issued_total 1") || !strings.Contains(body, "sessionauth_verify_success_total 1") {
		t.Fatalf("unexpected body:\n%s", body)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewExporter(fakeSource{
		snapshot: sessionauth.MetricsSnapshot{
			Counters: map[sessionauth.MetricID]uint64{
				sessionauth.MetricSessionIssued:      1000,
				sessionauth.MetricVerifySuccess:      9000,
				sessionauth.MetricRefreshSuccess:     800,
				sessionauth.MetricRefreshFailure:     10,
				sessionauth.MetricSessionInvalidated: 20,
			},
			Histograms: map[sessionauth.MetricID][]uint64{
				sessionauth.MetricVerifyLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
