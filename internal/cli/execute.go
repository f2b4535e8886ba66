package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/chzyer/readline"

	"drone-dispatch/internal/config"
	"drone-dispatch/internal/geocode"
	"drone-dispatch/internal/logger"
	"drone-dispatch/internal/planner"
	"drone-dispatch/internal/supervisor"
	"drone-dispatch/internal/vehicle"
)

// Execute runs the root command and returns the process exit code. Any
// failure is reported on errOut as one line naming its kind.
func Execute(ctx context.Context, cfg config.Config, args []string, out, errOut io.Writer) int {
	cmd := newRootCmd(cfg, out)
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errDeclined):
		fmt.Fprintln(out, "Dispatch cancelled.")
		return 0
	}
	kind := errorKind(err)
	logger.Log.Error("dispatch failed", slog.String("kind", kind), slog.String("error", err.Error()))
	fmt.Fprintf(errOut, "dispatch failed [%s]: %v\n", kind, err)
	return 1
}

func errorKind(err error) string {
	var empty *planner.EmptyPlanError
	var monitor *supervisor.MonitorError
	switch {
	case errors.Is(err, vehicle.ErrConnection):
		return "connection"
	case errors.Is(err, vehicle.ErrUpload):
		return "upload"
	case errors.Is(err, vehicle.ErrArm):
		return "arm"
	case errors.Is(err, vehicle.ErrStart):
		return "start"
	case errors.Is(err, vehicle.ErrCommand):
		return "command"
	case errors.As(err, &monitor):
		return "monitor"
	case errors.As(err, &empty):
		return "plan"
	case errors.Is(err, geocode.ErrGeocode):
		return "geocode"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled), errors.Is(err, readline.ErrInterrupt):
		return "interrupted"
	default:
		return "error"
	}
}
