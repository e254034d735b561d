package pipeline

import (
	"github.com/giongto35/camview/pkg/capture"
	"github.com/giongto35/camview/pkg/frame"
	"github.com/giongto35/camview/pkg/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "camview"

// Metrics exports pipeline counters to Prometheus.
// Subscribe it to the pipeline to feed it.
type Metrics struct {
	reg *prometheus.Registry
	bg  *render.Background

	captured prometheus.Counter
	status   *prometheus.GaugeVec
	ticks    prometheus.Counter
	uploads  prometheus.Gauge
	allocs   prometheus.Gauge
	drawable *prometheus.GaugeVec
	touches  *prometheus.CounterVec
}

func NewMetrics(p *Pipeline) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		bg:  p.bg,
		captured: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "capture", Name: "frames_total",
			Help: "Frames accepted from the camera.",
		}),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "capture", Name: "status",
			Help: "Capture status, 1 for the current one.",
		}, []string{"status"}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "render", Name: "ticks_total",
			Help: "Rendered frames.",
		}),
		uploads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "render", Name: "texture_uploads",
			Help: "Camera frames uploaded to the GPU.",
		}),
		allocs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "render", Name: "texture_allocs",
			Help: "Background texture storage allocations.",
		}),
		drawable: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "render", Name: "drawable_pixels",
			Help: "Drawable size in physical pixels.",
		}, []string{"axis"}),
		touches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "input", Name: "touches_total",
			Help: "Pointer events forwarded to the surface.",
		}, []string{"phase"}),
	}

	store := p.store
	stat := func(name, help string, get func(frame.Stats) uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "store", Name: name, Help: help,
		}, func() float64 { return float64(get(store.Stats())) })
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.captured, m.status, m.ticks, m.uploads, m.allocs, m.drawable, m.touches,
		stat("pushed_total", "Frames written to the store.", func(s frame.Stats) uint64 { return s.Pushed }),
		stat("dropped_total", "Frames rejected by the store.", func(s frame.Stats) uint64 { return s.Dropped }),
		stat("reallocs_total", "Slot buffer reallocations.", func(s frame.Stats) uint64 { return s.Reallocs }),
	)
	m.OnCaptureStatus(capture.StatusStopped, nil)
	return m
}

// Registry is the gatherer for the monitoring server.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) OnFrameCaptured(frame.Info) { m.captured.Inc() }

func (m *Metrics) OnCaptureStatus(status capture.Status, _ error) {
	for _, s := range []capture.Status{capture.StatusStopped, capture.StatusRunning, capture.StatusUnavailable} {
		v := 0.0
		if s == status {
			v = 1
		}
		m.status.WithLabelValues(s.String()).Set(v)
	}
}

// OnRenderTick copies the background counters on the render thread
// which owns them.
func (m *Metrics) OnRenderTick(*render.Surface) {
	m.ticks.Inc()
	m.uploads.Set(float64(m.bg.Uploads()))
	m.allocs.Set(float64(m.bg.Allocs()))
}

func (m *Metrics) OnResize(w, h int) {
	m.drawable.WithLabelValues("x").Set(float64(w))
	m.drawable.WithLabelValues("y").Set(float64(h))
}

func (m *Metrics) OnTouch(_ *render.Surface, t render.Touch) {
	m.touches.WithLabelValues(t.Phase.String()).Inc()
}
