package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/perchbar/perch/internal/action"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body, _ := io.ReadAll(w.Body)
	return string(body)
}

func TestNewCollector(t *testing.T) {
	c := New()
	if c == nil {
		t.Fatal("expected non-nil collector")
	}
}

func TestMetricsHandler(t *testing.T) {
	body := scrape(t, New())
	if !strings.Contains(body, "go_goroutines") {
		t.Fatal("expected go_goroutines metric")
	}
}

func TestSignalCounter(t *testing.T) {
	c := New()
	c.ObserveSignal("SIGUSR1")
	c.ObserveSignal("SIGUSR1")
	c.ObserveSignal("SIGRTMIN+5")

	body := scrape(t, c)
	if !strings.Contains(body, `perch_signals_received_total{signal="SIGUSR1"} 2`) {
		t.Fatalf("expected SIGUSR1=2, got:\n%s", body)
	}
	if !strings.Contains(body, `perch_signals_received_total{signal="SIGRTMIN+5"} 1`) {
		t.Fatalf("expected SIGRTMIN+5=1, got:\n%s", body)
	}
}

func TestActionCounter(t *testing.T) {
	c := New()
	c.ObserveAction(action.Toggle)
	c.ObserveAction(action.Reload)
	c.ObserveAction(action.Toggle)

	body := scrape(t, c)
	if !strings.Contains(body, `perch_bar_actions_total{action="toggle"} 2`) {
		t.Fatalf("expected toggle=2, got:\n%s", body)
	}
	if !strings.Contains(body, `perch_bar_actions_total{action="reload"} 1`) {
		t.Fatalf("expected reload=1, got:\n%s", body)
	}
}

func TestLoopCounters(t *testing.T) {
	c := New()
	c.ObserveLoopRun()
	c.ObserveLoopRun()
	c.ObserveReload()

	body := scrape(t, c)
	if !strings.Contains(body, "perch_main_loop_runs_total 2") {
		t.Fatalf("expected runs=2, got:\n%s", body)
	}
	if !strings.Contains(body, "perch_reloads_total 1") {
		t.Fatalf("expected reloads=1, got:\n%s", body)
	}
}

func TestReapMetrics(t *testing.T) {
	c := New()
	c.ObserveReap(3, 2)
	c.ObserveReap(1, 1)

	body := scrape(t, c)
	if !strings.Contains(body, "perch_children_reaped_total 4") {
		t.Fatalf("expected reaped=4, got:\n%s", body)
	}
	if !strings.Contains(body, "perch_children_pending 1") {
		t.Fatalf("expected pending=1, got:\n%s", body)
	}
}

func TestBarsAndBuildInfo(t *testing.T) {
	c := New()
	c.SetBarsActive(3)
	c.SetBuildInfo("1.0.0", "go1.26")

	body := scrape(t, c)
	if !strings.Contains(body, "perch_bars_active 3") {
		t.Fatalf("expected bars_active=3, got:\n%s", body)
	}
	if !strings.Contains(body, `perch_info{go_version="go1.26",version="1.0.0"} 1`) {
		t.Fatalf("expected build info, got:\n%s", body)
	}
}
