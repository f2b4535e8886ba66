package planner

import (
	"errors"
	"testing"

	"drone-dispatch/internal/mission"
)

func dest(c mission.Category, lat, lng float64) mission.Destination {
	return mission.Destination{Category: c, Coordinate: &mission.Coordinate{Latitude: lat, Longitude: lng}}
}

func unresolved(c mission.Category, addr string) mission.Destination {
	return mission.Destination{Category: c, Address: addr}
}

func TestBuild(t *testing.T) {
	testCases := []struct {
		name      string
		input     []mission.Destination
		wantLats  []float64
		wantEmpty bool
	}{
		{
			name: "All destinations resolved keep their order",
			input: []mission.Destination{
				dest(mission.Medical, 12.90, 77.50),
				dest(mission.BreakIn, 12.91, 77.51),
				dest(mission.Overcrowding, 12.92, 77.52),
			},
			wantLats: []float64{12.90, 12.91, 12.92},
		},
		{
			name: "Duplicates are not removed",
			input: []mission.Destination{
				dest(mission.Medical, 1, 1),
				dest(mission.Medical, 1, 1),
			},
			wantLats: []float64{1, 1},
		},
		{
			name: "One unresolved destination is excluded",
			input: []mission.Destination{
				dest(mission.Medical, 10, 10),
				unresolved(mission.BreakIn, "nowhere"),
				dest(mission.Overcrowding, 30, 30),
			},
			wantLats: []float64{10, 30},
		},
		{
			name: "Every destination unresolved",
			input: []mission.Destination{
				unresolved(mission.Medical, "a"),
				unresolved(mission.BreakIn, "b"),
			},
			wantEmpty: true,
		},
		{
			name:      "No destinations at all",
			input:     nil,
			wantEmpty: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := Build(tc.input)

			if tc.wantEmpty {
				var empty *EmptyPlanError
				if !errors.As(err, &empty) {
					t.Fatalf("expected EmptyPlanError, got %v", err)
				}
				if empty.Destinations != len(tc.input) {
					t.Errorf("EmptyPlanError.Destinations = %d, want %d", empty.Destinations, len(tc.input))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if plan.Len() != len(tc.wantLats) {
				t.Fatalf("plan has %d items, want %d", plan.Len(), len(tc.wantLats))
			}
			for i, lat := range tc.wantLats {
				if plan.Items[i].Latitude != lat {
					t.Errorf("item %d latitude = %v, want %v", i, plan.Items[i].Latitude, lat)
				}
			}
		})
	}
}

func TestBuildItemFields(t *testing.T) {
	plan, err := Build([]mission.Destination{dest(mission.Medical, 12.90, 77.50)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	item := plan.Items[0]

	if item.Altitude != DefaultAltitude || item.Speed != DefaultSpeed {
		t.Errorf("altitude/speed = %v/%v, want %v/%v", item.Altitude, item.Speed, DefaultAltitude, DefaultSpeed)
	}
	if !item.IsFlyThrough {
		t.Errorf("items must be fly-through")
	}
	if item.CameraAction != mission.CameraActionNone {
		t.Errorf("camera action = %v, want none", item.CameraAction)
	}
	if item.Yaw != nil || item.GimbalPitch != nil || item.GimbalYaw != nil || item.LoiterTime != nil || item.AcceptanceRadius != nil {
		t.Errorf("optional fields must be unset: %+v", item)
	}
}

func TestPlannerCustomAltitude(t *testing.T) {
	p := Planner{Altitude: 40, Speed: 5}
	plan, err := p.Build([]mission.Destination{dest(mission.Medical, 1, 2), dest(mission.BreakIn, 3, 4)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, item := range plan.Items {
		if item.Altitude != 40 || item.Speed != 5 {
			t.Errorf("item %d altitude/speed = %v/%v", i, item.Altitude, item.Speed)
		}
	}
}
