package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"drone-dispatch/internal/mission"
)

// Collector exports mission telemetry to Prometheus. All methods are safe
// on a nil *Collector.
type Collector struct {
	gatherer prometheus.Gatherer

	CommandDurations *prometheus.HistogramVec
	Progress         *prometheus.GaugeVec
	Airborne         prometheus.Gauge
	FlightsCompleted prometheus.Counter
}

// NewCollector registers against reg, defaulting to the global registry
// when nil. Registering twice reuses the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispatch_command_duration_seconds",
		Help:    "Duration of one-shot vehicle commands, labeled by step and result.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"step", "result"}))
	if err != nil {
		return nil, err
	}
	progress, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dispatch_mission_progress",
		Help: "Mission progress reported by the vehicle (kind=current|total).",
	}, []string{"kind"}))
	if err != nil {
		return nil, err
	}
	airborne, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_vehicle_airborne",
		Help: "1 while the vehicle reports being in the air.",
	}))
	if err != nil {
		return nil, err
	}
	flights, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_flights_completed_total",
		Help: "Flights that took off and landed again.",
	}))
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:         gatherer,
		CommandDurations: durations,
		Progress:         progress,
		Airborne:         airborne,
		FlightsCompleted: flights,
	}, nil
}

func (c *Collector) ObserveStep(step string, d time.Duration, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.CommandDurations.WithLabelValues(step, result).Observe(d.Seconds())
}

func (c *Collector) SetProgress(s mission.ProgressSample) {
	if c == nil {
		return
	}
	c.Progress.WithLabelValues("current").Set(float64(s.Current))
	c.Progress.WithLabelValues("total").Set(float64(s.Total))
}

func (c *Collector) SetAirborne(inAir bool) {
	if c == nil {
		return
	}
	v := 0.0
	if inAir {
		v = 1
	}
	c.Airborne.Set(v)
}

func (c *Collector) FlightCompleted() {
	if c == nil {
		return
	}
	c.FlightsCompleted.Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector already registered with incompatible type: %w", err)
		}
		var zero T
		return zero, err
	}
	return c, nil
}
