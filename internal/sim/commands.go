package sim

import (
	"context"
	"fmt"
	"math"
	"sort"

	"swarmops-sim/internal/command"
	"swarmops-sim/internal/config"
	"swarmops-sim/internal/telemetry"
	"swarmops-sim/internal/world"
)

const defaultPatrolRadius = 60.0

func (s *Simulator) registerTasks() {
	s.registry.Register(command.TaskMove, s.handleMove)
	s.registry.Register(command.TaskPatrol, s.handlePatrol)
	s.registry.Register(command.TaskTail, s.handleTail)
	s.registry.Register(command.TaskHold, s.handleHold)
	s.registry.Register(command.TaskReturnToBase, s.handleReturn)
	s.registry.Register(command.TaskIntercept, s.handleIntercept)
}

// ApplyTask dispatches a structured task request through the registry.
func (s *Simulator) ApplyTask(ctx context.Context, req command.Request) (command.Result, error) {
	return s.registry.Dispatch(ctx, req)
}

// Tasks returns the registered task names.
func (s *Simulator) Tasks() []string {
	return s.registry.Tasks()
}

// selectFriendly splits requested IDs into live friendly drones and
// ignored references. Duplicates collapse to one entry.
func (s *Simulator) selectFriendly(ids []string) ([]*world.Drone, []string) {
	var selected []*world.Drone
	var ignored []string
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		d, ok := s.world.Drones[id]
		if !ok || d.Team != world.TeamFriendly {
			ignored = append(ignored, id)
			continue
		}
		selected = append(selected, d)
	}
	return selected, ignored
}

// retask strips a drone's current assignment before a new one.
func (s *Simulator) retask(d *world.Drone) {
	s.removeFromGroup(d)
	d.Target = nil
	d.TailTargetID = ""
	d.TailStandoff = 0
	d.InterceptTargetID = ""
	d.InterceptPoint = nil
	d.InterceptETA = 0
	d.Pattern = world.Pattern{}
	d.Vel = world.Vec2{}
}

func droneIDs(drones []*world.Drone) []string {
	ids := make([]string, len(drones))
	for i, d := range drones {
		ids[i] = d.ID
	}
	return ids
}

// applyMove retasks the named friendly drones toward a shared
// destination as one command group. Unknown, hostile, and destroyed IDs
// are skipped per id.
func (s *Simulator) applyMove(ctx context.Context, ids []string, target world.Vec2) ([]string, []string) {
	target = s.world.Clamp(target)
	selected, ignored := s.selectFriendly(ids)
	if len(selected) == 0 {
		return nil, ignored
	}

	members := droneIDs(selected)
	sort.Strings(members)
	gid := s.world.NextGroupID
	s.world.NextGroupID++
	s.world.Groups[gid] = &world.Group{
		ID:        gid,
		MemberIDs: members,
		Dest:      target,
		Arrived:   map[string]bool{},
	}
	for _, d := range selected {
		s.retask(d)
		t := target
		d.Target = &t
		g := gid
		d.GroupID = &g
		d.Mode = world.ModeMoving
	}

	s.emitEvent(ctx, s.newEvent(telemetry.EventMove, members, "", &gid,
		fmt.Sprintf("to (%.0f,%.0f)", target.X, target.Y)))
	return members, ignored
}

// CommandMove retasks drones toward target and reports how many the
// command applied to. Zero applied is not an error.
func (s *Simulator) CommandMove(ids []string, target world.Vec2) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, _ := s.applyMove(context.Background(), ids, target)
	return len(members)
}

func (s *Simulator) handleMove(ctx context.Context, req command.Request) (command.Result, error) {
	if req.Params.X == nil || req.Params.Y == nil {
		return command.Result{}, fmt.Errorf("move requires x and y")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ignored := s.applyMove(ctx, req.DroneIDs, world.Vec2{X: *req.Params.X, Y: *req.Params.Y})
	return command.Result{Applied: len(members), Ignored: ignored}, nil
}

func (s *Simulator) handlePatrol(ctx context.Context, req command.Request) (command.Result, error) {
	if req.Params.X == nil || req.Params.Y == nil {
		return command.Result{}, fmt.Errorf("patrol requires x and y")
	}
	radius := defaultPatrolRadius
	if req.Params.Radius != nil {
		radius = *req.Params.Radius
		if radius <= 0 {
			return command.Result{}, fmt.Errorf("patrol radius must be > 0, got %v", radius)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	center := s.world.Clamp(world.Vec2{X: *req.Params.X, Y: *req.Params.Y})
	selected, ignored := s.selectFriendly(req.DroneIDs)
	for _, d := range selected {
		s.retask(d)
		d.Mode = world.ModePatrolling
		d.Pattern = world.Pattern{
			Kind:   world.PatternCircular,
			Dir:    1,
			Center: center,
			Radius: radius,
		}
	}
	if len(selected) > 0 {
		s.emitEvent(ctx, s.newEvent(telemetry.EventTask, droneIDs(selected), "", nil, command.TaskPatrol))
	}
	return command.Result{Applied: len(selected), Ignored: ignored}, nil
}

func (s *Simulator) handleTail(ctx context.Context, req command.Request) (command.Result, error) {
	if req.Params.TargetID == "" {
		return command.Result{}, fmt.Errorf("tail requires target_id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	standoff := s.cfg.Tail.Standoff
	if req.Params.Distance != nil {
		standoff = *req.Params.Distance
		if standoff <= 0 {
			return command.Result{}, fmt.Errorf("tail distance must be > 0, got %v", standoff)
		}
	}
	hostile, ok := s.world.Drones[req.Params.TargetID]
	if !ok || hostile.Team != world.TeamEnemy {
		return command.Result{}, fmt.Errorf("no live hostile %q", req.Params.TargetID)
	}
	selected, ignored := s.selectFriendly(req.DroneIDs)
	for _, d := range selected {
		s.retask(d)
		d.Mode = world.ModeTailing
		d.TailTargetID = hostile.ID
		d.TailStandoff = standoff
	}
	if len(selected) > 0 {
		s.emitEvent(ctx, s.newEvent(telemetry.EventTask, droneIDs(selected), hostile.ID, nil, command.TaskTail))
	}
	return command.Result{Applied: len(selected), Ignored: ignored}, nil
}

func (s *Simulator) handleHold(ctx context.Context, req command.Request) (command.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	selected, ignored := s.selectFriendly(req.DroneIDs)
	for _, d := range selected {
		s.retask(d)
		d.Mode = world.ModeHolding
	}
	if len(selected) > 0 {
		s.emitEvent(ctx, s.newEvent(telemetry.EventTask, droneIDs(selected), "", nil, command.TaskHold))
	}
	return command.Result{Applied: len(selected), Ignored: ignored}, nil
}

func (s *Simulator) handleReturn(ctx context.Context, req command.Request) (command.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var override *world.Base
	if req.Params.BaseID != "" {
		b, ok := s.world.Bases[req.Params.BaseID]
		if !ok {
			return command.Result{}, fmt.Errorf("no base %q", req.Params.BaseID)
		}
		override = b
	}
	selected, ignored := s.selectFriendly(req.DroneIDs)
	var applied []*world.Drone
	for _, d := range selected {
		base := override
		if base == nil {
			base = s.baseFor(d)
		}
		if base == nil {
			ignored = append(ignored, d.ID)
			continue
		}
		s.retask(d)
		t := base.Pos
		d.Target = &t
		d.Mode = world.ModeReturning
		applied = append(applied, d)
	}
	if len(applied) > 0 {
		s.emitEvent(ctx, s.newEvent(telemetry.EventTask, droneIDs(applied), "", nil, command.TaskReturnToBase))
	}
	return command.Result{Applied: len(applied), Ignored: ignored}, nil
}

func (s *Simulator) handleIntercept(ctx context.Context, req command.Request) (command.Result, error) {
	if req.Params.TargetID == "" {
		return command.Result{}, fmt.Errorf("intercept requires target_id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	hostile, ok := s.world.Drones[req.Params.TargetID]
	if !ok || hostile.Team != world.TeamEnemy {
		return command.Result{}, fmt.Errorf("no live hostile %q", req.Params.TargetID)
	}
	selected, ignored := s.selectFriendly(req.DroneIDs)
	for _, d := range selected {
		s.retask(d)
		d.Mode = world.ModeIntercepting
		d.InterceptTargetID = hostile.ID
	}
	if len(selected) > 0 {
		s.emitEvent(ctx, s.newEvent(telemetry.EventTask, droneIDs(selected), hostile.ID, nil, command.TaskIntercept))
	}
	return command.Result{Applied: len(selected), Ignored: ignored}, nil
}

// baseFor resolves a drone's return base: its assignment first, then
// the nearest base with the lowest ID breaking ties.
func (s *Simulator) baseFor(d *world.Drone) *world.Base {
	if b, ok := s.world.Bases[d.BaseID]; ok {
		return b
	}
	var best *world.Base
	bestDist := math.MaxFloat64
	for _, id := range s.world.BaseIDs() {
		b := s.world.Bases[id]
		if dist := d.Pos.Dist(b.Pos); dist < bestDist {
			best = b
			bestDist = dist
		}
	}
	return best
}

// SetPaused freezes or resumes the clock. Pausing while reversing locks
// the rewound position in: the un-taken future is discarded and the
// clock points forward for the eventual resume.
func (s *Simulator) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.world.Paused == paused {
		return
	}
	if paused && s.world.Direction == world.DirectionReverse {
		s.history.TruncateTo(s.cursor + 1)
		s.world.Direction = world.DirectionForward
	}
	s.world.Paused = paused
	detail := "resumed"
	if paused {
		detail = "paused"
	}
	s.emitEvent(context.Background(), s.newEvent(telemetry.EventTimeControl, nil, "", nil, detail))
}

// SetDirection flips the clock between forward and reverse. Entering
// reverse clears pause and walks the history cursor back from the
// newest snapshot; returning forward discards the un-taken future.
func (s *Simulator) SetDirection(dir world.Direction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dir != world.DirectionForward && dir != world.DirectionReverse {
		return
	}
	if dir == s.world.Direction {
		return
	}
	switch dir {
	case world.DirectionReverse:
		s.cursor = s.history.Len() - 1
		if s.cursor < 0 {
			s.cursor = 0
		}
		s.world.Direction = world.DirectionReverse
		s.world.Paused = false
	case world.DirectionForward:
		if s.history.Len() > 0 {
			s.history.TruncateTo(s.cursor + 1)
		}
		s.world.Direction = world.DirectionForward
	}
	s.emitEvent(context.Background(), s.newEvent(telemetry.EventTimeControl, nil, "", nil, string(dir)))
}

// JumpBack restores the snapshot JumpBackTicks behind the current
// position, clamped to the oldest, and resumes running forward. The
// restored tick is returned.
func (s *Simulator) JumpBack() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history.Len() == 0 {
		return s.world.Tick
	}
	pos := s.history.Len() - 1
	if s.world.Direction == world.DirectionReverse {
		pos = s.cursor
	}
	target := pos - s.cfg.Sim.JumpBackTicks
	if target < 0 {
		target = 0
	}
	s.restoreSnapshot(s.history.At(target))
	s.history.TruncateTo(target + 1)
	s.cursor = target
	s.world.Paused = false
	s.world.Direction = world.DirectionForward
	s.emitEvent(context.Background(), s.newEvent(telemetry.EventJumpBack, nil, "", nil,
		fmt.Sprintf("restored tick %d", s.world.Tick)))
	return s.world.Tick
}

// Reset rebuilds the world from config and clears history. The operator
// event feed survives so the reset itself stays visible.
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.world = s.buildWorld()
	s.history = NewHistory(s.cfg.Sim.HistoryCapacity)
	s.cursor = 0
	s.tickEvents = nil
	s.emitEvent(context.Background(), s.newEvent(telemetry.EventReset, nil, "", nil, ""))
}

// SetBase reassigns drones to the named base. The base must exist;
// drone references are ignored per id as usual.
func (s *Simulator) SetBase(ids []string, baseID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.world.Bases[baseID]; !ok {
		return 0, fmt.Errorf("no base %q", baseID)
	}
	selected, _ := s.selectFriendly(ids)
	for _, d := range selected {
		d.BaseID = baseID
	}
	if len(selected) > 0 {
		s.emitEvent(context.Background(), s.newEvent(telemetry.EventSetBase, droneIDs(selected), "", nil, baseID))
	}
	return len(selected), nil
}

// LaunchFleet adds count reinforcement drones on the named fleet's
// grid and returns their IDs. An unknown fleet launches nothing.
func (s *Simulator) LaunchFleet(name string, count int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if count <= 0 {
		return nil
	}
	for i := range s.cfg.Fleets {
		if s.cfg.Fleets[i].Name != name {
			continue
		}
		ids := s.placeFleet(s.world, s.cfg.Fleets[i], count)
		s.emitEvent(context.Background(), s.newEvent(telemetry.EventLaunch, ids, "", nil, name))
		return ids
	}
	return nil
}

// SpawnHostile validates the spec and inserts one hostile mid-session.
func (s *Simulator) SpawnHostile(spec config.HostileSpec) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.addHostile(s.world, spec)
	if err != nil {
		return "", err
	}
	s.emitEvent(context.Background(), s.newEvent(telemetry.EventSpawn, []string{id}, id, nil, spec.Pattern))
	return id, nil
}
