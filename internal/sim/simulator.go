// Simulator orchestrating the deterministic swarm world and telemetry ticks
package sim

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"swarmops-sim/internal/command"
	"swarmops-sim/internal/config"
	"swarmops-sim/internal/telemetry"
	"swarmops-sim/internal/world"
)

// recentEventsCap bounds the in-memory operator event feed.
const recentEventsCap = 256

// Simulator owns the world state. Physics runs on a single tick
// goroutine; every external mutation goes through the same mutex, so
// commands apply atomically between ticks.
type Simulator struct {
	simID        string
	cfg          *config.Config
	writer       TelemetryWriter
	eventWriter  EventWriter
	tickInterval time.Duration

	world   *world.State
	history *History
	cursor  int // history index while reversing

	registry     *command.Registry
	recentEvents []telemetry.EventRow
	tickEvents   []telemetry.EventRow

	nextDroneSeq   int
	nextHostileSeq int

	rand *rand.Rand
	now  func() time.Time
	mu   sync.Mutex
}

// NewSimulator builds the initial world from config. A nil rnd or now
// falls back to a time-seeded source and the system clock.
func NewSimulator(simID string, cfg *config.Config, writer TelemetryWriter, eventWriter EventWriter, tickInterval time.Duration, rnd *rand.Rand, now func() time.Time) *Simulator {
	if cfg == nil {
		panic("NewSimulator: nil config")
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	registry, err := command.NewRegistry()
	if err != nil {
		panic(fmt.Sprintf("NewSimulator: command registry init: %v", err))
	}

	s := &Simulator{
		simID:        simID,
		cfg:          cfg,
		writer:       writer,
		eventWriter:  eventWriter,
		tickInterval: tickInterval,
		registry:     registry,
		rand:         rnd,
		now:          now,
	}
	s.world = s.buildWorld()
	s.history = NewHistory(cfg.Sim.HistoryCapacity)
	s.registerTasks()
	if err := command.RegisterDroneGauge(s.droneCounts); err != nil {
		slog.Warn("drone gauge registration failed", "err", err)
	}
	return s
}

// buildWorld creates a fresh world from the configuration. Reset goes
// through here too, so drone ID sequences restart with it.
func (s *Simulator) buildWorld() *world.State {
	w := world.NewState(s.cfg.World.Width, s.cfg.World.Height)
	s.nextDroneSeq = 0
	s.nextHostileSeq = 0

	for _, b := range s.cfg.Bases {
		w.Bases[b.ID] = &world.Base{
			ID:    b.ID,
			Name:  b.Name,
			Pos:   world.Vec2{X: b.X, Y: b.Y},
			Shape: b.Shape,
		}
	}
	for _, f := range s.cfg.Fleets {
		s.placeFleet(w, f, f.Count)
	}
	for _, h := range s.cfg.Hostiles {
		if _, err := s.addHostile(w, h); err != nil {
			slog.Warn("skipping hostile", "id", h.ID, "err", err)
		}
	}
	return w
}

// placeFleet lays count drones out on the fleet's grid and returns
// their IDs in placement order.
func (s *Simulator) placeFleet(w *world.State, f config.Fleet, count int) []string {
	cols := f.Columns
	if cols < 1 {
		cols = 1
	}
	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		var id string
		for {
			s.nextDroneSeq++
			id = fmt.Sprintf("drone_%d", s.nextDroneSeq)
			if _, taken := w.Drones[id]; !taken {
				break
			}
		}
		pos := w.Clamp(world.Vec2{
			X: f.OriginX + float64(i%cols)*f.Spacing,
			Y: f.OriginY + float64(i/cols)*f.Spacing,
		})
		w.Drones[id] = &world.Drone{
			ID:     id,
			Team:   world.TeamFriendly,
			Pos:    pos,
			Speed:  f.Speed,
			Radius: s.cfg.World.DroneRadius,
			Mode:   world.ModeIdle,
			BaseID: f.BaseID,
		}
		ids = append(ids, id)
	}
	return ids
}

// addHostile validates the spec and inserts one hostile drone. Circular
// hostiles start on the orbit at angle zero.
func (s *Simulator) addHostile(w *world.State, spec config.HostileSpec) (string, error) {
	pattern := world.Pattern{Dir: 1}
	if spec.Dir < 0 {
		pattern.Dir = -1
	}
	pos := world.Vec2{X: spec.X, Y: spec.Y}
	switch world.PatternKind(spec.Pattern) {
	case world.PatternBounceX, world.PatternBounceY:
		if spec.Min >= spec.Max {
			return "", fmt.Errorf("bounce pattern needs min < max, got [%v,%v]", spec.Min, spec.Max)
		}
		pattern.Kind = world.PatternKind(spec.Pattern)
		pattern.Min = spec.Min
		pattern.Max = spec.Max
	case world.PatternCircular:
		if spec.Radius <= 0 {
			return "", fmt.Errorf("circular pattern needs radius > 0, got %v", spec.Radius)
		}
		pattern.Kind = world.PatternCircular
		pattern.Center = pos
		pattern.Radius = spec.Radius
		pos = pos.Add(world.Vec2{X: spec.Radius})
	case world.PatternNone, "":
		pattern.Kind = world.PatternNone
	default:
		return "", fmt.Errorf("unknown hostile pattern %q", spec.Pattern)
	}

	id := spec.ID
	if id == "" {
		// Configured hostiles may already hold hostile_N names.
		for {
			s.nextHostileSeq++
			id = fmt.Sprintf("hostile_%d", s.nextHostileSeq)
			if _, taken := w.Drones[id]; !taken {
				break
			}
		}
	}
	if _, exists := w.Drones[id]; exists {
		return "", fmt.Errorf("drone id %q already in use", id)
	}
	speed := spec.Speed
	if speed == 0 {
		speed = 40
	}
	w.Drones[id] = &world.Drone{
		ID:      id,
		Team:    world.TeamEnemy,
		Pos:     w.Clamp(pos),
		Speed:   speed,
		Radius:  s.cfg.World.DroneRadius,
		Mode:    world.ModePatrolling,
		Pattern: pattern,
	}
	return id, nil
}

// restoreSnapshot replaces the live world with a clone of snap, keeping
// the live clock fields. History entries never alias the live world.
func (s *Simulator) restoreSnapshot(snap *world.State) {
	paused, dir := s.world.Paused, s.world.Direction
	s.world = snap.Clone()
	s.world.Paused = paused
	s.world.Direction = dir
}

func (s *Simulator) droneCounts() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[string]int64{}
	for _, d := range s.world.Drones {
		counts[string(d.Team)]++
	}
	return counts
}

// DroneView is the JSON shape of one drone inside a world snapshot.
type DroneView struct {
	ID      string   `json:"id"`
	Team    string   `json:"team"`
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	VX      float64  `json:"vx"`
	VY      float64  `json:"vy"`
	Mode    string   `json:"mode"`
	TargetX *float64 `json:"target_x"`
	TargetY *float64 `json:"target_y"`
	GroupID *int64   `json:"group_id,omitempty"`
	BaseID  string   `json:"base_id,omitempty"`
}

// BaseView is the JSON shape of one base.
type BaseView struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Shape string  `json:"shape,omitempty"`
}

// GroupView is the JSON shape of one unresolved command group.
type GroupView struct {
	ID       int64    `json:"id"`
	DroneIDs []string `json:"drone_ids"`
	TargetX  float64  `json:"target_x"`
	TargetY  float64  `json:"target_y"`
	Arrived  int      `json:"arrived"`
}

// WorldView aggregates the full world for the HTTP and websocket APIs.
type WorldView struct {
	Tick      int64       `json:"tick"`
	Paused    bool        `json:"paused"`
	Direction string      `json:"direction"`
	Drones    []DroneView `json:"drones"`
	Bases     []BaseView  `json:"bases"`
	Groups    []GroupView `json:"groups"`
	Timestamp float64     `json:"timestamp"`
}

// WorldSnapshot returns a value copy of the world for serialization.
func (s *Simulator) WorldSnapshot() WorldView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.worldView()
}

func (s *Simulator) worldView() WorldView {
	v := WorldView{
		Tick:      s.world.Tick,
		Paused:    s.world.Paused,
		Direction: string(s.world.Direction),
		Drones:    make([]DroneView, 0, len(s.world.Drones)),
		Bases:     make([]BaseView, 0, len(s.world.Bases)),
		Groups:    make([]GroupView, 0, len(s.world.Groups)),
		Timestamp: float64(s.now().UnixNano()) / float64(time.Second),
	}
	for _, id := range s.world.DroneIDs("") {
		d := s.world.Drones[id]
		dv := DroneView{
			ID:     d.ID,
			Team:   string(d.Team),
			X:      d.Pos.X,
			Y:      d.Pos.Y,
			VX:     d.Vel.X,
			VY:     d.Vel.Y,
			Mode:   string(d.Mode),
			BaseID: d.BaseID,
		}
		if d.Target != nil {
			x, y := d.Target.X, d.Target.Y
			dv.TargetX, dv.TargetY = &x, &y
		}
		if d.GroupID != nil {
			g := *d.GroupID
			dv.GroupID = &g
		}
		v.Drones = append(v.Drones, dv)
	}
	for _, id := range s.world.BaseIDs() {
		b := s.world.Bases[id]
		v.Bases = append(v.Bases, BaseView{ID: b.ID, Name: b.Name, X: b.Pos.X, Y: b.Pos.Y, Shape: b.Shape})
	}
	for _, id := range s.world.GroupIDs() {
		g := s.world.Groups[id]
		arrived := 0
		for _, ok := range g.Arrived {
			if ok {
				arrived++
			}
		}
		v.Groups = append(v.Groups, GroupView{
			ID:       g.ID,
			DroneIDs: append([]string(nil), g.MemberIDs...),
			TargetX:  g.Dest.X,
			TargetY:  g.Dest.Y,
			Arrived:  arrived,
		})
	}
	return v
}

// TeamHealth summarizes live drones per team.
type TeamHealth struct {
	Team  string         `json:"team"`
	Total int            `json:"total"`
	Modes map[string]int `json:"modes"`
}

// Health returns aggregated live-drone counts per team.
func (s *Simulator) Health() []TeamHealth {
	s.mu.Lock()
	defer s.mu.Unlock()
	byTeam := map[world.Team]*TeamHealth{}
	for _, id := range s.world.DroneIDs("") {
		d := s.world.Drones[id]
		h, ok := byTeam[d.Team]
		if !ok {
			h = &TeamHealth{Team: string(d.Team), Modes: map[string]int{}}
			byTeam[d.Team] = h
		}
		h.Total++
		h.Modes[string(d.Mode)]++
	}
	var result []TeamHealth
	for _, team := range []world.Team{world.TeamFriendly, world.TeamEnemy} {
		if h, ok := byTeam[team]; ok {
			result = append(result, *h)
		}
	}
	return result
}

// RecentEvents returns up to limit of the latest event rows, oldest
// first. A non-positive limit returns everything retained.
func (s *Simulator) RecentEvents(limit int) []telemetry.EventRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.recentEvents
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	out := make([]telemetry.EventRow, len(events))
	copy(out, events)
	return out
}

// GetConfig returns the simulation configuration.
func (s *Simulator) GetConfig() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Tick returns the current tick counter.
func (s *Simulator) Tick() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world.Tick
}
