package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"drone-dispatch/internal/config"
	"drone-dispatch/internal/display"
	"drone-dispatch/internal/executor"
	"drone-dispatch/internal/geocode"
	"drone-dispatch/internal/intake"
	"drone-dispatch/internal/listener"
	"drone-dispatch/internal/logger"
	"drone-dispatch/internal/metrics"
	"drone-dispatch/internal/mission"
	"drone-dispatch/internal/observability"
	"drone-dispatch/internal/planner"
	"drone-dispatch/internal/supervisor"
	"drone-dispatch/internal/vehicle"
)

var errDeclined = errors.New("dispatch declined by operator")

type options struct {
	endpoint      string
	simulate      bool
	destinations  string
	yes           bool
	metricsAddr   string
	flightTimeout time.Duration
}

// console is what run needs from the operator terminal.
type console interface {
	intake.Prompter
	Confirm(ctx context.Context, question string) (bool, error)
	Close() error
}

func newRootCmd(cfg config.Config, out io.Writer) *cobra.Command {
	opts := options{endpoint: cfg.Endpoint, metricsAddr: cfg.MetricsAddr}

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Dispatch a drone to one or more emergency destinations",
		Long: `Collects destinations from the operator (or a file), plans a fly-through
mission over them, uploads it to the vehicle and supervises the flight until
the drone has taken off and landed again.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfg, opts, out)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.endpoint, "endpoint", opts.endpoint, "vehicle connection string (udp://:14540, tcp://host:port, serial:///dev/ttyUSB0:57600)")
	f.BoolVar(&opts.simulate, "simulate", false, "fly against the built-in simulated vehicle")
	f.StringVar(&opts.destinations, "destinations", "", "read destinations from a JSON file instead of prompting")
	f.BoolVarP(&opts.yes, "yes", "y", false, "dispatch without asking for confirmation")
	f.StringVar(&opts.metricsAddr, "metrics-addr", opts.metricsAddr, "HTTP address for Prometheus /metrics (empty disables)")
	f.DurationVar(&opts.flightTimeout, "flight-timeout", 0, "abort supervision after this long (0 waits for landing)")
	return cmd
}

func run(ctx context.Context, cfg config.Config, opts options, out io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := observability.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdown)

	collector, err := metrics.NewCollector(nil)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	if srv := serveMetrics(opts.metricsAddr, collector); srv != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	term, err := openConsole(opts, out)
	if err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer term.Close()

	geo, err := geocode.NewCached(geocode.NewNominatim(cfg.GeocoderURL, cfg.GeocoderUserAgent), cfg.GeocoderCacheSize)
	if err != nil {
		return fmt.Errorf("init geocoder: %w", err)
	}

	dests, err := collect(ctx, opts, term, geo)
	if err != nil {
		return err
	}
	term.Println("")
	term.Println(display.FormatDestinations(dests))

	plan, err := planner.Planner{Altitude: cfg.Altitude, Speed: cfg.Speed}.Build(dests)
	if err != nil {
		return err
	}
	term.Println(display.FormatPlan(plan))

	link := newLink(cfg, opts)
	defer link.Close()

	term.Println("Waiting for drone to connect...")
	id, err := vehicle.Open(ctx, link, opts.endpoint, cfg.ConnectTimeout)
	if err != nil {
		return err
	}
	term.Println(fmt.Sprintf("Drone discovered with ID: %s", id))

	if !opts.yes {
		ok, err := term.Confirm(ctx, fmt.Sprintf("Dispatch drone over %d waypoint(s)?", plan.Len()))
		if err != nil {
			return err
		}
		if !ok {
			return errDeclined
		}
	}

	flightCtx := ctx
	if opts.flightTimeout > 0 {
		var cancel context.CancelFunc
		flightCtx, cancel = context.WithTimeout(ctx, opts.flightTimeout)
		defer cancel()
	}

	ex := &executor.Executor{
		Link:       link,
		Supervisor: supervisor.New(),
		Collector:  collector,
		Report:     term.Println,
	}
	mm, err := ex.Execute(flightCtx, plan)
	mm.VehicleID = string(id)
	logger.Log.Info("mission finished",
		slog.String("mission_id", mm.MissionID),
		slog.Bool("succeeded", mm.Succeeded),
		slog.Int64("duration_ms", mm.DurationMs),
	)
	term.Println(display.FormatMissionMetrics(mm))
	return err
}

func openConsole(opts options, out io.Writer) (console, error) {
	if opts.destinations != "" && opts.yes {
		return plainConsole{listener.NewPlain(out)}, nil
	}
	t, err := listener.NewTerminal()
	if err != nil {
		return nil, err
	}
	return t, nil
}

// plainConsole serves fully scripted runs, which never prompt.
type plainConsole struct {
	*listener.Terminal
}

func (c plainConsole) Confirm(context.Context, string) (bool, error) { return true, nil }

func collect(ctx context.Context, opts options, term console, geo geocode.Geocoder) ([]mission.Destination, error) {
	if opts.destinations != "" {
		return intake.LoadFile(ctx, opts.destinations, geo)
	}
	return (&intake.Collector{Prompter: term, Geocoder: geo}).Collect(ctx)
}

func newLink(cfg config.Config, opts options) vehicle.Link {
	if opts.simulate {
		return vehicle.NewSim(cfg.SimTick)
	}
	return vehicle.NewMAVLink(cfg.AckTimeout)
}

func serveMetrics(addr string, collector *metrics.Collector) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Warn("metrics server exited", slog.String("error", err.Error()))
		}
	}()

	logger.Log.Info("serving Prometheus metrics", slog.String("addr", addr))
	return srv
}
