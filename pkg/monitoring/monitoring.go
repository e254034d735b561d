package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/giongto35/camview/pkg/config"
	"github.com/giongto35/camview/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Monitoring struct {
	conf   config.Monitoring
	log    *logger.Logger
	server *http.Server
	ln     net.Listener
	done   chan struct{}
}

// New creates new monitoring service exposing metrics of the gatherer.
func New(conf config.Monitoring, metrics prometheus.Gatherer, log *logger.Logger) *Monitoring {
	m := &Monitoring{conf: conf, log: log.Module("monitoring")}
	h := http.NewServeMux()

	if conf.ProfilingEnabled {
		prefix := fmt.Sprintf("%s/debug/pprof", conf.URLPrefix)
		m.log.Info().Msgf("Profiling is enabled at %v", prefix)
		h.HandleFunc(prefix+"/", pprof.Index)
		h.HandleFunc(prefix+"/cmdline", pprof.Cmdline)
		h.HandleFunc(prefix+"/profile", pprof.Profile)
		h.HandleFunc(prefix+"/symbol", pprof.Symbol)
		h.HandleFunc(prefix+"/trace", pprof.Trace)
		// pprof handler for custom pprof path needs to be explicitly specified
		h.Handle(prefix+"/allocs", pprof.Handler("allocs"))
		h.Handle(prefix+"/block", pprof.Handler("block"))
		h.Handle(prefix+"/goroutine", pprof.Handler("goroutine"))
		h.Handle(prefix+"/heap", pprof.Handler("heap"))
		h.Handle(prefix+"/mutex", pprof.Handler("mutex"))
		h.Handle(prefix+"/threadcreate", pprof.Handler("threadcreate"))
	}

	if conf.MetricEnabled {
		metricPath := fmt.Sprintf("%s/metrics", conf.URLPrefix)
		m.log.Info().Msgf("Prometheus metric is enabled at %v", metricPath)
		h.Handle(metricPath, promhttp.HandlerFor(metrics, promhttp.HandlerOpts{}))
	}

	m.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", conf.Port),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return m
}

// Run starts listening and serves in the background.
func (m *Monitoring) Run() error {
	ln, err := net.Listen("tcp", m.server.Addr)
	if err != nil {
		return fmt.Errorf("monitoring listen: %w", err)
	}
	m.ln, m.done = ln, make(chan struct{})
	m.log.Info().Msgf("Starting monitoring server at %v", ln.Addr())
	go func() {
		defer close(m.done)
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error().Err(err).Msg("monitoring server")
		}
	}()
	return nil
}

// Addr is the actual listen address, empty before Run.
func (m *Monitoring) Addr() string {
	if m.ln == nil {
		return ""
	}
	return m.ln.Addr().String()
}

func (m *Monitoring) Shutdown(ctx context.Context) error {
	if m.ln == nil {
		return nil
	}
	m.log.Info().Msg("Shutting down monitoring server")
	err := m.server.Shutdown(ctx)
	<-m.done
	return err
}

func (m *Monitoring) String() string {
	return fmt.Sprintf("monitoring::%s:%d", m.conf.URLPrefix, m.conf.Port)
}
