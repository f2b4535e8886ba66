package monitor

import (
	"context"
	"errors"
	"fmt"
)

type FlightState int

const (
	Grounded FlightState = iota
	Airborne
	Completed
)

func (s FlightState) String() string {
	switch s {
	case Grounded:
		return "grounded"
	case Airborne:
		return "airborne"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("FlightState(%d)", int(s))
	}
}

var ErrFlightCompleted = errors.New("flight already completed")

type AirborneSource interface {
	SubscribeAirborne(ctx context.Context) (<-chan bool, error)
}

// FlightMonitor detects one full flight: airborne, then grounded. Ground
// signals before the first airborne one are ignored and there is no
// debounce, so a single airborne→grounded flicker completes the flight.
//
// A monitor is single use and owned by the goroutine running it.
type FlightMonitor struct {
	Source       AirborneSource
	OnTransition func(from, to FlightState)

	state    FlightState
	consumed int
}

// Observe applies one signal and returns the resulting state.
func (m *FlightMonitor) Observe(inAir bool) FlightState {
	from := m.state
	switch {
	case m.state == Grounded && inAir:
		m.state = Airborne
	case m.state == Airborne && !inAir:
		m.state = Completed
	}
	if m.state != from && m.OnTransition != nil {
		m.OnTransition(from, m.state)
	}
	return m.state
}

// Run consumes airborne signals until the flight completes and then returns
// nil without reading further. If the stream ends first, Run waits for ctx
// and returns its error.
func (m *FlightMonitor) Run(ctx context.Context) error {
	if m.state == Completed {
		return ErrFlightCompleted
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := m.Source.SubscribeAirborne(ctx)
	if err != nil {
		return fmt.Errorf("subscribe airborne: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case inAir, ok := <-ch:
			if !ok {
				ch = nil
				continue
			}
			m.consumed++
			if m.Observe(inAir) == Completed {
				return nil
			}
		}
	}
}

func (m *FlightMonitor) State() FlightState { return m.state }

// Consumed is the number of signals Run has read.
func (m *FlightMonitor) Consumed() int { return m.consumed }
