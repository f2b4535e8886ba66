// Package vehicle is the link to the drone: connection, one-shot mission
// commands and live telemetry streams.
package vehicle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"drone-dispatch/internal/mission"
)

var (
	ErrConnection = errors.New("connection error")
	ErrCommand    = errors.New("command rejected")
	ErrUpload     = errors.New("mission upload failed")
	ErrArm        = errors.New("arm failed")
	ErrStart      = errors.New("mission start failed")
)

type VehicleID string

// Link is implemented by MAVLink (real vehicles) and Sim.
//
// Subscribe* return live streams that are closed once ctx is done or the
// link is closed. Telemetry is state-like: a slow reader may miss samples
// but never sees them out of order.
type Link interface {
	Connect(ctx context.Context, endpoint string) error
	WaitConnected(ctx context.Context) (VehicleID, error)

	SetReturnToLaunch(ctx context.Context, enabled bool) error
	UploadMission(ctx context.Context, plan mission.MissionPlan) error
	Arm(ctx context.Context) error
	StartMission(ctx context.Context) error

	SubscribeProgress(ctx context.Context) (<-chan mission.ProgressSample, error)
	SubscribeAirborne(ctx context.Context) (<-chan bool, error)

	Close() error
}

// Open connects the link and waits for the vehicle to show up. Any failure,
// including the timeout, is an ErrConnection.
func Open(ctx context.Context, link Link, endpoint string, timeout time.Duration) (VehicleID, error) {
	if err := link.Connect(ctx, endpoint); err != nil {
		return "", fmt.Errorf("%w: connect %s: %w", ErrConnection, endpoint, err)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	id, err := link.WaitConnected(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: waiting for vehicle on %s: %w", ErrConnection, endpoint, err)
	}
	return id, nil
}
