package metrics

import "time"

type StepMetrics struct {
	Step       string    `json:"step"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	DurationMs int64     `json:"duration_ms"`
	Success    bool      `json:"success"`
	Err        string    `json:"err,omitempty"`
}

type MissionMetrics struct {
	MissionID  string        `json:"mission_id"`
	VehicleID  string        `json:"vehicle_id,omitempty"`
	Waypoints  int           `json:"waypoints"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	DurationMs int64         `json:"duration_ms"`
	FlightMs   int64         `json:"flight_ms"`
	Succeeded  bool          `json:"succeeded"`
	Steps      []StepMetrics `json:"steps"`
}

// Compute derived fields for a step.
func (s *StepMetrics) Finalize() {
	s.DurationMs = s.End.Sub(s.Start).Milliseconds()
}

func (m *MissionMetrics) Finalize() {
	m.DurationMs = m.End.Sub(m.Start).Milliseconds()
}

// Failed returns the first failed step, if any.
func (m *MissionMetrics) Failed() (StepMetrics, bool) {
	for _, s := range m.Steps {
		if !s.Success {
			return s, true
		}
	}
	return StepMetrics{}, false
}
