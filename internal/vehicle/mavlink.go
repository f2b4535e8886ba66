package vehicle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"

	"drone-dispatch/internal/logger"
	"drone-dispatch/internal/mission"
)

const (
	defaultAckTimeout = 5 * time.Second
	defaultSerialBaud = 57600
	gcsSystemID       = 245
)

var errNotConnected = errors.New("no vehicle heartbeat yet")

// MAVLink talks to a PX4/ArduPilot autopilot. Return-to-launch is applied
// at upload time as a trailing RETURN_TO_LAUNCH item.
type MAVLink struct {
	AckTimeout time.Duration

	node *gomavlib.Node
	send func(message.Message)
	done chan struct{}

	mu         sync.Mutex
	targetSys  byte
	targetComp byte
	hasTarget  bool
	connected  chan struct{}
	waiters    map[*waiter]struct{}
	rtl        bool
	waypoints  []int // mission seq of each plan item
	lastProg   mission.ProgressSample
	progSeen   bool

	progress hub[mission.ProgressSample]
	airborne hub[bool]
}

type waiter struct {
	match func(message.Message) bool
	ch    chan message.Message
}

func NewMAVLink(ackTimeout time.Duration) *MAVLink {
	return &MAVLink{
		AckTimeout: ackTimeout,
		connected:  make(chan struct{}),
		waiters:    make(map[*waiter]struct{}),
	}
}

func (l *MAVLink) Connect(_ context.Context, endpoint string) error {
	ep, err := ParseEndpoint(endpoint)
	if err != nil {
		return err
	}
	node, err := gomavlib.NewNode(gomavlib.NodeConf{
		Endpoints:   []gomavlib.EndpointConf{ep},
		Dialect:     common.Dialect,
		OutVersion:  gomavlib.V2,
		OutSystemID: gcsSystemID,
	})
	if err != nil {
		return err
	}
	l.node = node
	l.send = func(m message.Message) { node.WriteMessageAll(m) }
	l.done = make(chan struct{})
	go l.read(node)

	logger.Log.Info("mavlink node started", slog.String("endpoint", endpoint))
	return nil
}

func (l *MAVLink) read(node *gomavlib.Node) {
	defer close(l.done)
	for evt := range node.Events() {
		frm, ok := evt.(*gomavlib.EventFrame)
		if !ok {
			continue
		}
		l.handle(frm.SystemID(), frm.ComponentID(), frm.Message())
	}
}

// handle is called from the single reader goroutine.
func (l *MAVLink) handle(sys, comp byte, msg message.Message) {
	if hb, ok := msg.(*common.MessageHeartbeat); ok {
		l.onHeartbeat(sys, comp, hb)
	}

	l.mu.Lock()
	if !l.hasTarget || sys != l.targetSys {
		l.mu.Unlock()
		return
	}
	waiters := make([]*waiter, 0, len(l.waiters))
	for w := range l.waiters {
		waiters = append(waiters, w)
	}
	l.mu.Unlock()

	switch m := msg.(type) {
	case *common.MessageMissionCurrent:
		l.onProgress(int(m.Seq), false)
	case *common.MessageMissionItemReached:
		l.onProgress(int(m.Seq), true)
	case *common.MessageExtendedSysState:
		if inAir, ok := airborneFromLanded(m.LandedState); ok {
			l.airborne.publish(inAir)
		}
	}

	for _, w := range waiters {
		if w.match(msg) {
			select {
			case w.ch <- msg:
			default:
			}
		}
	}
}

func (l *MAVLink) onHeartbeat(sys, comp byte, hb *common.MessageHeartbeat) {
	// other ground stations report an invalid autopilot
	if hb.Autopilot == common.MAV_AUTOPILOT_INVALID {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hasTarget {
		return
	}
	l.targetSys, l.targetComp, l.hasTarget = sys, comp, true
	close(l.connected)
	logger.Log.Info("vehicle heartbeat", slog.Int("system_id", int(sys)), slog.Int("component_id", int(comp)))
}

// onProgress maps a mission sequence number to plan items: reached counts
// items up to and including seq, current counts items before seq.
func (l *MAVLink) onProgress(seq int, reached bool) {
	l.mu.Lock()
	total := len(l.waypoints)
	if total == 0 {
		l.mu.Unlock()
		return
	}
	n := 0
	for _, s := range l.waypoints {
		if s < seq || (reached && s == seq) {
			n++
		}
	}
	sample := mission.ProgressSample{Current: n, Total: total}
	if l.progSeen && sample == l.lastProg {
		l.mu.Unlock()
		return
	}
	l.lastProg, l.progSeen = sample, true
	l.mu.Unlock()

	l.progress.publish(sample)
}

func airborneFromLanded(s common.MAV_LANDED_STATE) (inAir bool, known bool) {
	switch s {
	case common.MAV_LANDED_STATE_ON_GROUND:
		return false, true
	case common.MAV_LANDED_STATE_IN_AIR, common.MAV_LANDED_STATE_TAKEOFF, common.MAV_LANDED_STATE_LANDING:
		return true, true
	default:
		return false, false
	}
}

func (l *MAVLink) WaitConnected(ctx context.Context) (VehicleID, error) {
	select {
	case <-l.connected:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return VehicleID(fmt.Sprintf("mavlink-%d", l.targetSys)), nil
}

func (l *MAVLink) target() (byte, byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.hasTarget {
		return 0, 0, errNotConnected
	}
	return l.targetSys, l.targetComp, nil
}

func (l *MAVLink) listen(match func(message.Message) bool) (*waiter, func()) {
	w := &waiter{match: match, ch: make(chan message.Message, 8)}
	l.mu.Lock()
	l.waiters[w] = struct{}{}
	l.mu.Unlock()
	return w, func() {
		l.mu.Lock()
		delete(l.waiters, w)
		l.mu.Unlock()
	}
}

func (l *MAVLink) next(ctx context.Context, w *waiter) (message.Message, error) {
	timeout := l.AckTimeout
	if timeout <= 0 {
		timeout = defaultAckTimeout
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case m := <-w.ch:
		return m, nil
	case <-t.C:
		return nil, fmt.Errorf("no answer from vehicle within %s", timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *MAVLink) SetReturnToLaunch(_ context.Context, enabled bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rtl = enabled
	return nil
}

func (l *MAVLink) UploadMission(ctx context.Context, plan mission.MissionPlan) error {
	sys, comp, err := l.target()
	if err != nil {
		return err
	}
	l.mu.Lock()
	rtl := l.rtl
	l.mu.Unlock()

	items, waypoints := missionItems(plan, rtl)
	if len(items) == 0 {
		return errors.New("mission has no items")
	}

	w, stop := l.listen(func(m message.Message) bool {
		switch m.(type) {
		case *common.MessageMissionRequestInt, *common.MessageMissionRequest, *common.MessageMissionAck:
			return true
		}
		return false
	})
	defer stop()

	l.send(&common.MessageMissionCount{
		TargetSystem:    sys,
		TargetComponent: comp,
		Count:           uint16(len(items)),
		MissionType:     common.MAV_MISSION_TYPE_MISSION,
	})

	for {
		msg, err := l.next(ctx, w)
		if err != nil {
			return fmt.Errorf("mission handshake: %w", err)
		}

		var seq int
		switch m := msg.(type) {
		case *common.MessageMissionRequestInt:
			seq = int(m.Seq)
		case *common.MessageMissionRequest:
			seq = int(m.Seq)
		case *common.MessageMissionAck:
			if m.Type != common.MAV_MISSION_ACCEPTED {
				return fmt.Errorf("vehicle rejected mission: %v", m.Type)
			}
			l.mu.Lock()
			l.waypoints = waypoints
			l.progSeen = false
			l.mu.Unlock()
			return nil
		}

		if seq < 0 || seq >= len(items) {
			return fmt.Errorf("vehicle requested item %d of %d", seq, len(items))
		}
		item := items[seq]
		item.TargetSystem, item.TargetComponent = sys, comp
		l.send(&item)
	}
}

// missionItems expands the plan into MAVLink items and returns the sequence
// number of the waypoint generated for each plan item.
func missionItems(plan mission.MissionPlan, rtl bool) ([]common.MessageMissionItemInt, []int) {
	var (
		items     []common.MessageMissionItemInt
		waypoints []int
		speed     float32
	)
	add := func(frame common.MAV_FRAME, cmd common.MAV_CMD, p1, p2, p3, p4 float32, x, y int32, z float32) {
		items = append(items, common.MessageMissionItemInt{
			Seq:          uint16(len(items)),
			Frame:        frame,
			Command:      cmd,
			Autocontinue: 1,
			Param1:       p1,
			Param2:       p2,
			Param3:       p3,
			Param4:       p4,
			X:            x,
			Y:            y,
			Z:            z,
			MissionType:  common.MAV_MISSION_TYPE_MISSION,
		})
	}
	cmd := func(c common.MAV_CMD, p1, p2, p3, p4 float32) {
		add(common.MAV_FRAME_MISSION, c, p1, p2, p3, p4, 0, 0, 0)
	}

	for _, it := range plan.Items {
		if it.Speed > 0 && it.Speed != speed {
			// speed type 1 = ground speed, throttle -1 = unchanged
			cmd(common.MAV_CMD_DO_CHANGE_SPEED, 1, it.Speed, -1, 0)
			speed = it.Speed
		}

		var hold float32
		switch {
		case it.LoiterTime != nil:
			hold = *it.LoiterTime
		case !it.IsFlyThrough:
			hold = 0.5
		}
		waypoints = append(waypoints, len(items))
		add(common.MAV_FRAME_GLOBAL_RELATIVE_ALT_INT, common.MAV_CMD_NAV_WAYPOINT,
			hold, valueOr(it.AcceptanceRadius, 0), 0, valueOr(it.Yaw, nan()),
			int32(math.Round(it.Latitude*1e7)), int32(math.Round(it.Longitude*1e7)), it.Altitude)

		if it.GimbalPitch != nil || it.GimbalYaw != nil {
			add(common.MAV_FRAME_MISSION, common.MAV_CMD_DO_MOUNT_CONTROL,
				valueOr(it.GimbalPitch, 0), 0, valueOr(it.GimbalYaw, 0), 0,
				0, 0, float32(common.MAV_MOUNT_MODE_MAVLINK_TARGETING))
		}

		switch it.CameraAction {
		case mission.CameraActionTakePhoto:
			cmd(common.MAV_CMD_IMAGE_START_CAPTURE, 0, 0, 1, 0)
		case mission.CameraActionStartPhotoInterval:
			cmd(common.MAV_CMD_IMAGE_START_CAPTURE, 0, 1, 0, 0)
		case mission.CameraActionStopPhotoInterval:
			cmd(common.MAV_CMD_IMAGE_STOP_CAPTURE, 0, 0, 0, 0)
		case mission.CameraActionStartVideo:
			cmd(common.MAV_CMD_VIDEO_START_CAPTURE, 0, 0, 0, 0)
		case mission.CameraActionStopVideo:
			cmd(common.MAV_CMD_VIDEO_STOP_CAPTURE, 0, 0, 0, 0)
		}
	}

	if len(waypoints) > 0 && rtl {
		cmd(common.MAV_CMD_NAV_RETURN_TO_LAUNCH, 0, 0, 0, 0)
	}
	if len(items) > 0 {
		items[0].Current = 1
	}
	return items, waypoints
}

func valueOr(v *float32, def float32) float32 {
	if v == nil {
		return def
	}
	return *v
}

// nan is MAVLink's "no change" for yaw.
func nan() float32 { return float32(math.NaN()) }

func (l *MAVLink) Arm(ctx context.Context) error {
	return l.command(ctx, common.MAV_CMD_COMPONENT_ARM_DISARM, 1)
}

func (l *MAVLink) StartMission(ctx context.Context) error {
	return l.command(ctx, common.MAV_CMD_MISSION_START, 0, 0)
}

func (l *MAVLink) command(ctx context.Context, c common.MAV_CMD, params ...float32) error {
	sys, comp, err := l.target()
	if err != nil {
		return err
	}
	var p [7]float32
	copy(p[:], params)

	w, stop := l.listen(func(m message.Message) bool {
		ack, ok := m.(*common.MessageCommandAck)
		return ok && ack.Command == c
	})
	defer stop()

	l.send(&common.MessageCommandLong{
		TargetSystem:    sys,
		TargetComponent: comp,
		Command:         c,
		Param1:          p[0],
		Param2:          p[1],
		Param3:          p[2],
		Param4:          p[3],
		Param5:          p[4],
		Param6:          p[5],
		Param7:          p[6],
	})

	for {
		msg, err := l.next(ctx, w)
		if err != nil {
			return fmt.Errorf("%v: %w", c, err)
		}
		ack := msg.(*common.MessageCommandAck)
		switch ack.Result {
		case common.MAV_RESULT_ACCEPTED:
			return nil
		case common.MAV_RESULT_IN_PROGRESS:
			continue
		default:
			return fmt.Errorf("%v: %v", c, ack.Result)
		}
	}
}

func (l *MAVLink) SubscribeProgress(ctx context.Context) (<-chan mission.ProgressSample, error) {
	return l.progress.subscribe(ctx), nil
}

func (l *MAVLink) SubscribeAirborne(ctx context.Context) (<-chan bool, error) {
	return l.airborne.subscribe(ctx), nil
}

func (l *MAVLink) Close() error {
	if l.node != nil {
		l.node.Close()
		<-l.done
	}
	l.progress.close()
	l.airborne.close()
	return nil
}

// ParseEndpoint understands MAVSDK-style connection URLs:
// udp://[host]:port (listen), udpout://host:port, tcp://host:port,
// tcpin://:port and serial:///dev/tty:baud.
func ParseEndpoint(s string) (gomavlib.EndpointConf, error) {
	scheme, rest, ok := strings.Cut(strings.TrimSpace(s), "://")
	if !ok || rest == "" {
		return nil, fmt.Errorf("invalid endpoint %q", s)
	}
	switch strings.ToLower(scheme) {
	case "udp", "udpin":
		return gomavlib.EndpointUDPServer{Address: rest}, nil
	case "udpout":
		return gomavlib.EndpointUDPClient{Address: rest}, nil
	case "tcp", "tcpout":
		return gomavlib.EndpointTCPClient{Address: rest}, nil
	case "tcpin":
		return gomavlib.EndpointTCPServer{Address: rest}, nil
	case "serial":
		dev, baud := rest, defaultSerialBaud
		if i := strings.LastIndex(rest, ":"); i > 0 {
			b, err := strconv.Atoi(rest[i+1:])
			if err != nil {
				return nil, fmt.Errorf("invalid baud rate in %q: %w", s, err)
			}
			dev, baud = rest[:i], b
		}
		return gomavlib.EndpointSerial{Device: dev, Baud: baud}, nil
	default:
		return nil, fmt.Errorf("unsupported endpoint scheme %q", scheme)
	}
}
