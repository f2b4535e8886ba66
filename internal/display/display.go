package display

import (
	"fmt"
	"strings"

	"drone-dispatch/internal/mission"
)

const maxAddressLength = 60

// FormatDestinations lists what will be dispatched, in entry order.
func FormatDestinations(dests []mission.Destination) string {
	var sb strings.Builder
	sb.WriteString("Dispatching the following drones for the corresponding situations:\n")
	sb.WriteString("--------------------------------------------------\n")
	for i, d := range dests {
		payload := d.Payload()
		if payload == "" {
			payload = "no payload"
		}
		sb.WriteString(fmt.Sprintf("%2d. %-12s %-20s", i+1, d.Category, payload))
		if d.Address != "" {
			sb.WriteString("  " + truncate(d.Address, maxAddressLength))
		}
		if d.Resolved() {
			sb.WriteString(fmt.Sprintf("  (%s)\n", d.Coordinate))
		} else {
			sb.WriteString("  (unresolved, skipped)\n")
		}
	}
	sb.WriteString("--------------------------------------------------")
	return sb.String()
}

func FormatPlan(plan mission.MissionPlan) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Mission plan (%d waypoints):\n", plan.Len()))
	for i, it := range plan.Items {
		mode := "stop"
		if it.IsFlyThrough {
			mode = "fly-through"
		}
		sb.WriteString(fmt.Sprintf("  WP %d: %.6f, %.6f  alt %.0f m  speed %.0f m/s  %s\n",
			i+1, it.Latitude, it.Longitude, it.Altitude, it.Speed, mode))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// Limit a value's stdout length (limit < 0 means no limit)
func truncate(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if limit >= 0 && len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
