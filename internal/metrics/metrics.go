package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/duskwatch/server/internal/core/event"
	coresys "github.com/duskwatch/server/internal/core/system"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds the gameplay counters exported on /metrics. Counters are fed
// from the event bus; state gauges are copied by a Sampler on the tick.
type Metrics struct {
	reg  *prometheus.Registry
	subs event.Group

	PhaseTransitions *prometheus.CounterVec
	BloodMoons       prometheus.Counter
	Days             prometheus.Gauge
	Spawns           *prometheus.CounterVec
	Waves            prometheus.Counter
	Placements       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		PhaseTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "duskwatch",
			Name:      "phase_transitions_total",
			Help:      "Phase changes by entered phase.",
		}, []string{"phase"}),
		BloodMoons: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "duskwatch",
			Name:      "blood_moons_total",
			Help:      "Blood moon nights started.",
		}),
		Days: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "duskwatch",
			Name:      "day",
			Help:      "Current day counter.",
		}),
		Spawns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "duskwatch",
			Name:      "spawns_total",
			Help:      "Spawn requests by outcome (spawned, skipped).",
		}, []string{"outcome"}),
		Waves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "duskwatch",
			Name:      "waves_started_total",
			Help:      "Waves started across all runs.",
		}),
		Placements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "duskwatch",
			Name:      "placements_total",
			Help:      "Placement confirmations by verdict.",
		}, []string{"verdict"}),
	}
	m.reg.MustRegister(m.PhaseTransitions, m.BloodMoons, m.Days, m.Spawns, m.Waves, m.Placements)
	return m
}

// Registry exposes the private registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Bind subscribes the counters to bus.
func (m *Metrics) Bind(bus *event.Bus) {
	m.subs.Add(event.Subscribe(bus, func(ev event.PhaseChanged) {
		m.PhaseTransitions.WithLabelValues(ev.Phase.String()).Inc()
	}))
	m.subs.Add(event.Subscribe(bus, func(ev event.BloodMoonStarted) {
		m.BloodMoons.Inc()
	}))
	m.subs.Add(event.Subscribe(bus, func(ev event.DayChanged) {
		m.Days.Set(float64(ev.Day))
	}))
	m.subs.Add(event.Subscribe(bus, func(ev event.EnemySpawned) {
		m.Spawns.WithLabelValues("spawned").Inc()
	}))
	m.subs.Add(event.Subscribe(bus, func(ev event.SpawnSkipped) {
		m.Spawns.WithLabelValues("skipped").Inc()
	}))
	m.subs.Add(event.Subscribe(bus, func(ev event.WaveStarted) {
		m.Waves.Inc()
	}))
	m.subs.Add(event.Subscribe(bus, func(ev event.StructurePlaced) {
		m.Placements.WithLabelValues("ok").Inc()
	}))
	m.subs.Add(event.Subscribe(bus, func(ev event.PlacementRejected) {
		m.Placements.WithLabelValues(ev.Verdict.String()).Inc()
	}))
}

// Gauge registers a gauge sampled from fn at scrape time. fn runs on the HTTP
// goroutine, so it may only read state that is safe for concurrent use.
func (m *Metrics) Gauge(name, help string, fn func() float64) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "duskwatch",
		Name:      name,
		Help:      help,
	}, fn))
}

// Sampler copies tick-owned values into gauges once per tick. Phase 4
// (Persist).
type Sampler struct {
	m       *Metrics
	samples []sample
}

type sample struct {
	gauge prometheus.Gauge
	fn    func() float64
}

func (m *Metrics) NewSampler() *Sampler { return &Sampler{m: m} }

// Track registers a gauge set from fn on every tick.
func (s *Sampler) Track(name, help string, fn func() float64) {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "duskwatch",
		Name:      name,
		Help:      help,
	})
	s.m.reg.MustRegister(g)
	s.samples = append(s.samples, sample{gauge: g, fn: fn})
}

func (s *Sampler) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *Sampler) Update(_ time.Duration) {
	for _, x := range s.samples {
		x.gauge.Set(x.fn())
	}
}

// Close drops the bus subscriptions.
func (m *Metrics) Close() { m.subs.Close() }

// Serve runs the /metrics endpoint until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	log.Info("metrics endpoint listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
