package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"drone-dispatch/internal/mission"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type airborneFeed struct {
	ch  chan bool
	err error
}

func (f *airborneFeed) SubscribeAirborne(context.Context) (<-chan bool, error) {
	return f.ch, f.err
}

func feed(signals ...bool) *airborneFeed {
	ch := make(chan bool, len(signals))
	for _, s := range signals {
		ch <- s
	}
	return &airborneFeed{ch: ch}
}

type progressFeed struct {
	ch  chan mission.ProgressSample
	err error
}

func (f *progressFeed) SubscribeProgress(context.Context) (<-chan mission.ProgressSample, error) {
	return f.ch, f.err
}

func TestFlightMonitorTransitions(t *testing.T) {
	testCases := []struct {
		name    string
		signals []bool
		want    []FlightState
	}{
		{"grounded stays grounded", []bool{false, false}, []FlightState{Grounded, Grounded}},
		{"takeoff", []bool{false, true}, []FlightState{Grounded, Airborne}},
		{"airborne stays airborne", []bool{true, true}, []FlightState{Airborne, Airborne}},
		{"landing completes", []bool{true, false}, []FlightState{Airborne, Completed}},
		{"completed is terminal", []bool{true, false, true, false}, []FlightState{Airborne, Completed, Completed, Completed}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var m FlightMonitor
			for i, s := range tc.signals {
				if got := m.Observe(s); got != tc.want[i] {
					t.Errorf("signal %d (%v): state %v, want %v", i, s, got, tc.want[i])
				}
			}
		})
	}
}

func TestFlightMonitorRunCompletesAfterLanding(t *testing.T) {
	// the trailing true must never be read
	src := feed(false, false, true, true, false, true)

	var transitions []string
	m := &FlightMonitor{
		Source: src,
		OnTransition: func(from, to FlightState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	}

	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.Consumed() != 5 {
		t.Errorf("consumed %d signals, want 5", m.Consumed())
	}
	if len(src.ch) != 1 {
		t.Errorf("monitor read past the landing: %d signals left, want 1", len(src.ch))
	}
	if m.State() != Completed {
		t.Errorf("state = %v, want completed", m.State())
	}
	want := []string{"grounded->airborne", "airborne->completed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}

	if err := m.Run(context.Background()); !errors.Is(err, ErrFlightCompleted) {
		t.Errorf("second Run = %v, want ErrFlightCompleted", err)
	}
}

func TestFlightMonitorNeverReturnsWithoutFlight(t *testing.T) {
	src := feed(false, false)
	close(src.ch)
	m := &FlightMonitor{Source: src}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("Run returned without a flight: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run after cancel = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run ignored cancellation")
	}
	if m.Consumed() != 2 || m.State() != Grounded {
		t.Errorf("consumed %d, state %v", m.Consumed(), m.State())
	}
}

func TestFlightMonitorSubscribeError(t *testing.T) {
	boom := errors.New("no telemetry")
	m := &FlightMonitor{Source: &airborneFeed{err: boom}}
	if err := m.Run(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Run = %v, want %v", err, boom)
	}
}

func TestProgressMonitorReportsUntilCancelled(t *testing.T) {
	src := &progressFeed{ch: make(chan mission.ProgressSample)}

	var (
		mu  sync.Mutex
		got []mission.ProgressSample
	)
	reported := make(chan struct{}, 2)
	m := &ProgressMonitor{
		Source: src,
		Report: func(s mission.ProgressSample) {
			mu.Lock()
			got = append(got, s)
			mu.Unlock()
			reported <- struct{}{}
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	src.ch <- mission.ProgressSample{Current: 0, Total: 1}
	<-reported
	src.ch <- mission.ProgressSample{Current: 1, Total: 1}
	<-reported

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("cancelled monitor returned %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop on cancellation")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []mission.ProgressSample{{Current: 0, Total: 1}, {Current: 1, Total: 1}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("reported %v, want %v", got, want)
	}
}

func TestProgressMonitorOutlivesClosedStream(t *testing.T) {
	src := &progressFeed{ch: make(chan mission.ProgressSample)}
	close(src.ch)
	m := &ProgressMonitor{Source: src}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("monitor stopped on its own: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run = %v, want nil", err)
	}
}

func TestProgressMonitorSubscribeError(t *testing.T) {
	boom := errors.New("no link")
	m := &ProgressMonitor{Source: &progressFeed{err: boom}}
	if err := m.Run(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Run = %v, want %v", err, boom)
	}
}

func TestProgressSamplesStopsWhenConsumerBreaks(t *testing.T) {
	src := &progressFeed{ch: make(chan mission.ProgressSample, 3)}
	for i := 1; i <= 3; i++ {
		src.ch <- mission.ProgressSample{Current: i, Total: 3}
	}
	m := &ProgressMonitor{Source: src}

	n := 0
	for s, err := range m.Samples(context.Background()) {
		if err != nil {
			t.Fatal(err)
		}
		n++
		if s.Current == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("iterated %d samples, want 2", n)
	}
}
