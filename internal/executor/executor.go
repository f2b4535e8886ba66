package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"drone-dispatch/internal/logger"
	"drone-dispatch/internal/metrics"
	"drone-dispatch/internal/mission"
	"drone-dispatch/internal/monitor"
	"drone-dispatch/internal/observability"
	"drone-dispatch/internal/supervisor"
	"drone-dispatch/internal/vehicle"
)

const (
	flightTask   = "flight"
	progressTask = "progress"
)

// Executor sends a plan to the vehicle and supervises the flight.
type Executor struct {
	Link       vehicle.Link
	Supervisor *supervisor.Supervisor
	Collector  *metrics.Collector

	// Report receives operator-facing lines. May be nil.
	Report func(string)
}

type step struct {
	name   string
	banner string
	kind   error
	run    func(ctx context.Context) error
}

func (e *Executor) steps(plan mission.MissionPlan) []step {
	return []step{
		{name: "set_rtl", kind: vehicle.ErrCommand, run: func(ctx context.Context) error {
			return e.Link.SetReturnToLaunch(ctx, true)
		}},
		{name: "upload", banner: "-- Uploading mission", kind: vehicle.ErrUpload, run: func(ctx context.Context) error {
			return e.Link.UploadMission(ctx, plan)
		}},
		{name: "arm", banner: "-- Arming", kind: vehicle.ErrArm, run: e.Link.Arm},
		{name: "start", banner: "-- Starting mission", kind: vehicle.ErrStart, run: e.Link.StartMission},
	}
}

// Execute runs the one-shot commands strictly in order, stopping at the first
// failure with no retry and no rollback. After a successful start it blocks
// until the flight has completed and every monitor has stopped.
//
// The returned metrics are never nil, even on error.
func (e *Executor) Execute(ctx context.Context, plan mission.MissionPlan) (*metrics.MissionMetrics, error) {
	mm := &metrics.MissionMetrics{MissionID: uuid.NewString(), Waypoints: plan.Len(), Start: time.Now()}
	defer func() {
		mm.End = time.Now()
		mm.Finalize()
	}()
	log := logger.Log.With(slog.String("mission_id", mm.MissionID))

	ctx, span := observability.Tracer().Start(ctx, "mission.execute", trace.WithAttributes(
		attribute.String("mission_id", mm.MissionID),
		attribute.Int("waypoints", plan.Len()),
	))
	defer span.End()

	for _, st := range e.steps(plan) {
		if err := ctx.Err(); err != nil {
			return mm, err
		}
		if st.banner != "" {
			e.report(st.banner)
		}
		if err := e.runStep(ctx, mm, st); err != nil {
			log.Error("mission step failed", slog.String("step", st.name), slog.String("error", err.Error()))
			span.SetStatus(codes.Error, err.Error())
			return mm, err
		}
		log.Info("mission step done", slog.String("step", st.name))
	}

	err := e.supervise(ctx, mm, log)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return mm, err
	}
	mm.Succeeded = true
	return mm, nil
}

func (e *Executor) runStep(ctx context.Context, mm *metrics.MissionMetrics, st step) error {
	ctx, span := observability.Tracer().Start(ctx, "mission."+st.name)
	defer span.End()

	sm := metrics.StepMetrics{Step: st.name, Start: time.Now()}
	err := st.run(ctx)
	sm.End = time.Now()
	sm.Finalize()
	sm.Success = err == nil
	if err != nil {
		sm.Err = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		err = fmt.Errorf("%w: %w", st.kind, err)
	}
	mm.Steps = append(mm.Steps, sm)
	e.Collector.ObserveStep(st.name, sm.End.Sub(sm.Start), err)
	return err
}

func (e *Executor) supervise(ctx context.Context, mm *metrics.MissionMetrics, log *slog.Logger) error {
	ctx, span := observability.Tracer().Start(ctx, "mission.flight")
	defer span.End()

	progress := &monitor.ProgressMonitor{
		Source: e.Link,
		Report: func(s mission.ProgressSample) {
			e.Collector.SetProgress(s)
			log.Info("mission progress", slog.Int("current", s.Current), slog.Int("total", s.Total))
			e.report("Mission progress: " + s.String())
		},
	}

	var takeoff time.Time
	flight := &monitor.FlightMonitor{
		Source: e.Link,
		OnTransition: func(from, to monitor.FlightState) {
			log.Info("flight state", slog.String("from", from.String()), slog.String("to", to.String()))
			span.AddEvent(to.String())
			switch to {
			case monitor.Airborne:
				takeoff = time.Now()
				e.Collector.SetAirborne(true)
			case monitor.Completed:
				mm.FlightMs = time.Since(takeoff).Milliseconds()
				e.Collector.SetAirborne(false)
				e.Collector.FlightCompleted()
			}
		},
	}

	sup := e.Supervisor
	if sup == nil {
		sup = supervisor.New()
	}
	err := sup.Run(ctx,
		supervisor.Task{Name: flightTask, Run: flight.Run},
		supervisor.Task{Name: progressTask, Run: progress.Run},
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	e.report("-- Mission complete, vehicle landed")
	return nil
}

func (e *Executor) report(line string) {
	if e.Report != nil {
		e.Report(line)
	}
}
