package mission

import "fmt"

type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f, %.6f", c.Latitude, c.Longitude)
}

// Destination is one round of operator input. A nil Coordinate means the
// address could not be resolved.
type Destination struct {
	Category   Category
	Address    string
	Coordinate *Coordinate
}

func (d Destination) Payload() string { return d.Category.Payload() }

func (d Destination) Resolved() bool { return d.Coordinate != nil }

type CameraAction int

const (
	CameraActionNone CameraAction = iota
	CameraActionTakePhoto
	CameraActionStartPhotoInterval
	CameraActionStopPhotoInterval
	CameraActionStartVideo
	CameraActionStopVideo
)

// MissionItem is a single waypoint. Optional fields are nil when unset.
type MissionItem struct {
	Latitude     float64
	Longitude    float64
	Altitude     float32 // metres, relative to home
	Speed        float32 // m/s
	IsFlyThrough bool
	CameraAction CameraAction

	Yaw              *float32
	GimbalPitch      *float32
	GimbalYaw        *float32
	LoiterTime       *float32
	AcceptanceRadius *float32
}

// MissionPlan is the ordered list of waypoints uploaded to the vehicle.
type MissionPlan struct {
	Items []MissionItem
}

func (p MissionPlan) Len() int { return len(p.Items) }

type ProgressSample struct {
	Current int
	Total   int
}

func (s ProgressSample) Done() bool { return s.Total > 0 && s.Current >= s.Total }

func (s ProgressSample) String() string { return fmt.Sprintf("%d/%d", s.Current, s.Total) }
