package planner

import (
	"fmt"
	"log/slog"

	"drone-dispatch/internal/logger"
	"drone-dispatch/internal/mission"
)

const (
	DefaultAltitude float32 = 25 // m
	DefaultSpeed    float32 = 10 // m/s
)

// EmptyPlanError means no destination produced a usable waypoint.
type EmptyPlanError struct {
	Destinations int
	Skipped      int
}

func (e *EmptyPlanError) Error() string {
	if e.Destinations == 0 {
		return "empty plan: no destinations"
	}
	return fmt.Sprintf("empty plan: none of %d destination(s) has a resolved coordinate", e.Destinations)
}

// Planner turns destinations into waypoints flown at one altitude and speed.
type Planner struct {
	Altitude float32
	Speed    float32
}

func Default() Planner {
	return Planner{Altitude: DefaultAltitude, Speed: DefaultSpeed}
}

// Build uses the default altitude and speed.
func Build(destinations []mission.Destination) (mission.MissionPlan, error) {
	return Default().Build(destinations)
}

// Build emits one waypoint per resolved destination, in input order.
// Unresolved destinations are left out; if nothing is left the result is an
// *EmptyPlanError.
func (p Planner) Build(destinations []mission.Destination) (mission.MissionPlan, error) {
	items := make([]mission.MissionItem, 0, len(destinations))
	skipped := 0

	for i, d := range destinations {
		if !d.Resolved() {
			skipped++
			logger.Log.Warn("destination excluded from plan: no coordinate",
				slog.Int("index", i),
				slog.String("category", d.Category.String()),
				slog.String("address", d.Address))
			continue
		}
		items = append(items, p.item(*d.Coordinate))
	}

	if len(items) == 0 {
		return mission.MissionPlan{}, &EmptyPlanError{Destinations: len(destinations), Skipped: skipped}
	}
	return mission.MissionPlan{Items: items}, nil
}

func (p Planner) item(c mission.Coordinate) mission.MissionItem {
	return mission.MissionItem{
		Latitude:     c.Latitude,
		Longitude:    c.Longitude,
		Altitude:     p.Altitude,
		Speed:        p.Speed,
		IsFlyThrough: true,
		CameraAction: mission.CameraActionNone,
	}
}
