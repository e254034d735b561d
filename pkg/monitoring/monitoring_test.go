package monitoring

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/giongto35/camview/pkg/config"
	"github.com/giongto35/camview/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
)

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(body)
}

func local(t *testing.T, m *Monitoring) string {
	t.Helper()
	_, port, err := net.SplitHostPort(m.Addr())
	if err != nil {
		t.Fatal(err)
	}
	return "http://127.0.0.1:" + port
}

func TestMonitoring(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_frames_total", Help: "frames"})
	reg.MustRegister(c)
	c.Add(3)

	m := New(config.Monitoring{URLPrefix: "/cam", MetricEnabled: true, ProfilingEnabled: true}, reg, logger.Nop())
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = m.Shutdown(context.Background()) }()

	base := local(t, m) + "/cam"
	code, body := get(t, base+"/metrics")
	if code != http.StatusOK || !strings.Contains(body, "test_frames_total 3") {
		t.Errorf("metrics: %v %q", code, body)
	}
	if code, _ = get(t, base+"/debug/pprof/"); code != http.StatusOK {
		t.Errorf("pprof: %v", code)
	}
}

func TestMonitoringDisabledEndpoints(t *testing.T) {
	m := New(config.Monitoring{}, prometheus.NewRegistry(), logger.Nop())
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = m.Shutdown(context.Background()) }()

	if code, _ := get(t, local(t, m)+"/metrics"); code != http.StatusNotFound {
		t.Errorf("metrics should be off, got %v", code)
	}
}
