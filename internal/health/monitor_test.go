package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/opteee-ai/opteee/internal/botapi"
)

func newMonitorAgainst(t *testing.T, healthy *atomic.Bool, alertAfter int, alert AlertFunc) *Monitor {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() {
			_, _ = w.Write([]byte(`{"status":"ok"}`))
			return
		}
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	api, err := botapi.New(srv.URL, botapi.Options{HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("new api client: %v", err)
	}
	return NewMonitor(api, "@every 1m", alertAfter, alert)
}

func TestProbe_AlertsOnceAtThreshold(t *testing.T) {
	var healthy atomic.Bool
	var alerts int
	var alertedAt int

	monitor := newMonitorAgainst(t, &healthy, 3, func(consecutive int, err error) {
		alerts++
		alertedAt = consecutive
		if err == nil {
			t.Fatalf("alert should carry the probe error")
		}
	})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		monitor.Probe(ctx)
	}

	if alerts != 1 {
		t.Fatalf("expected one alert, got %d", alerts)
	}
	if alertedAt != 3 {
		t.Fatalf("expected alert at 3 consecutive failures, got %d", alertedAt)
	}
}

func TestProbe_RecoveryResetsAlerting(t *testing.T) {
	var healthy atomic.Bool
	var alerts int

	monitor := newMonitorAgainst(t, &healthy, 2, func(int, error) { alerts++ })

	ctx := context.Background()
	monitor.Probe(ctx)
	monitor.Probe(ctx) // first alert

	healthy.Store(true)
	monitor.Probe(ctx) // recovery

	healthy.Store(false)
	monitor.Probe(ctx)
	monitor.Probe(ctx) // second alert

	if alerts != 2 {
		t.Fatalf("expected alerting to re-arm after recovery, got %d alerts", alerts)
	}
}

func TestProbe_HealthyKeepsQuiet(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)

	monitor := newMonitorAgainst(t, &healthy, 1, func(int, error) {
		t.Fatalf("alert fired for healthy api")
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		monitor.Probe(ctx)
	}
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	var healthy atomic.Bool
	monitor := newMonitorAgainst(t, &healthy, 1, nil)
	monitor.schedule = "not a schedule"

	if err := monitor.Start(context.Background()); err == nil {
		t.Fatalf("expected error for invalid schedule")
	}
}

func TestStart_TwiceFails(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	monitor := newMonitorAgainst(t, &healthy, 1, nil)

	ctx := context.Background()
	if err := monitor.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(monitor.Stop)

	if err := monitor.Start(ctx); err == nil {
		t.Fatalf("expected error starting twice")
	}
}
