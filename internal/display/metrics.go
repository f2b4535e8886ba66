package display

import (
	"fmt"
	"strings"

	"drone-dispatch/internal/metrics"
)

func FormatMissionMetrics(mm *metrics.MissionMetrics) string {
	if mm == nil {
		return "No metrics available."
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Mission %s metrics:\n", mm.MissionID))
	sb.WriteString(fmt.Sprintf("- Total: %d ms  (success=%v, waypoints=%d)\n", mm.DurationMs, mm.Succeeded, mm.Waypoints))
	for _, s := range mm.Steps {
		status := "ok"
		if !s.Success {
			status = "err: " + s.Err
		}
		sb.WriteString(fmt.Sprintf("    • %-10s %5d ms  [%s]\n", s.Step, s.DurationMs, status))
	}
	if mm.FlightMs > 0 {
		sb.WriteString(fmt.Sprintf("- Flight: %d ms airborne\n", mm.FlightMs))
	}
	return sb.String()
}
