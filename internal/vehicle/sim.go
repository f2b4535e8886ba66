package vehicle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"drone-dispatch/internal/logger"
	"drone-dispatch/internal/mission"
)

const defaultSimTick = 500 * time.Millisecond

// Sim is an in-process vehicle. After StartMission it takes off, reaches one
// waypoint per tick and, with return-to-launch enabled, flies home and lands.
// Without return-to-launch it hovers at the last waypoint.
type Sim struct {
	Tick time.Duration

	// Reject makes a command fail; keys are "set_rtl", "upload", "arm", "start".
	Reject map[string]error

	mu        sync.Mutex
	connected bool
	rtl       bool
	plan      mission.MissionPlan
	uploaded  bool
	armed     bool
	started   bool
	stop      context.CancelFunc
	wg        sync.WaitGroup

	progress hub[mission.ProgressSample]
	airborne hub[bool]
}

func NewSim(tick time.Duration) *Sim {
	return &Sim{Tick: tick}
}

func (s *Sim) Connect(_ context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	logger.Log.Info("simulated vehicle connected", slog.String("endpoint", endpoint))
	return nil
}

func (s *Sim) WaitConnected(ctx context.Context) (VehicleID, error) {
	s.mu.Lock()
	connected := s.connected
	s.mu.Unlock()
	if !connected {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return "sim-1", nil
}

func (s *Sim) rejected(step string) error {
	if err, ok := s.Reject[step]; ok {
		return err
	}
	return nil
}

func (s *Sim) SetReturnToLaunch(_ context.Context, enabled bool) error {
	if err := s.rejected("set_rtl"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rtl = enabled
	return nil
}

func (s *Sim) UploadMission(_ context.Context, plan mission.MissionPlan) error {
	if err := s.rejected("upload"); err != nil {
		return err
	}
	if plan.Len() == 0 {
		return errors.New("mission has no items")
	}
	for i, item := range plan.Items {
		c := mission.Coordinate{Latitude: item.Latitude, Longitude: item.Longitude}
		if !c.Valid() {
			return fmt.Errorf("item %d: coordinate %s out of range", i, c)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("mission already running")
	}
	s.plan = mission.MissionPlan{Items: append([]mission.MissionItem(nil), plan.Items...)}
	s.uploaded = true
	return nil
}

func (s *Sim) Arm(_ context.Context) error {
	if err := s.rejected("arm"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return errors.New("not connected")
	}
	s.armed = true
	return nil
}

func (s *Sim) StartMission(_ context.Context) error {
	if err := s.rejected("start"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case !s.uploaded:
		return errors.New("no mission uploaded")
	case !s.armed:
		return errors.New("vehicle not armed")
	case s.started:
		return errors.New("mission already running")
	}
	s.started = true

	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	total, rtl := s.plan.Len(), s.rtl
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.fly(ctx, total, rtl)
	}()
	return nil
}

func (s *Sim) fly(ctx context.Context, total int, rtl bool) {
	tick := s.Tick
	if tick <= 0 {
		tick = defaultSimTick
	}
	t := time.NewTicker(tick)
	defer t.Stop()

	var (
		inAir   bool
		landed  bool
		reached int
	)
	s.airborne.publish(false)
	s.progress.publish(mission.ProgressSample{Current: 0, Total: total})

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		prev := reached
		switch {
		case !inAir && !landed:
			inAir = true
		case inAir && reached < total:
			reached++
		case inAir && rtl:
			inAir, landed = false, true
			s.mu.Lock()
			s.armed = false
			s.mu.Unlock()
		}

		if reached != prev {
			s.progress.publish(mission.ProgressSample{Current: reached, Total: total})
		}
		s.airborne.publish(inAir)
	}
}

func (s *Sim) SubscribeProgress(ctx context.Context) (<-chan mission.ProgressSample, error) {
	return s.progress.subscribe(ctx), nil
}

func (s *Sim) SubscribeAirborne(ctx context.Context) (<-chan bool, error) {
	return s.airborne.subscribe(ctx), nil
}

func (s *Sim) Close() error {
	s.mu.Lock()
	stop := s.stop
	s.connected = false
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.wg.Wait()
	s.progress.close()
	s.airborne.close()
	return nil
}
