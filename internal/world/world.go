// World model for the swarm simulation: entities, the shared state
// aggregate, and deep cloning for history snapshots.
package world

import (
	"math"
	"sort"
)

// Team separates friendly drones from hostile ones.
type Team string

const (
	TeamFriendly Team = "friendly"
	TeamEnemy    Team = "enemy"
)

// Mode is the behavioral state of a drone. It fully determines which
// controller updates the drone on a forward tick.
type Mode string

const (
	ModeIdle         Mode = "idle"
	ModeMoving       Mode = "moving"
	ModePatrolling   Mode = "patrolling"
	ModeTailing      Mode = "tailing"
	ModeIntercepting Mode = "intercepting"
	ModeHolding      Mode = "holding"
	ModeReturning    Mode = "returning"
	ModeDestroyed    Mode = "destroyed"
)

// Direction of simulated time.
type Direction string

const (
	DirectionForward Direction = "forward"
	DirectionReverse Direction = "reverse"
)

// Drone holds runtime state for one simulated drone.
type Drone struct {
	ID     string
	Team   Team
	Pos    Vec2
	Vel    Vec2
	Speed  float64
	Radius float64
	Mode   Mode

	Target  *Vec2
	GroupID *int64
	BaseID  string

	TailTargetID string
	TailStandoff float64

	InterceptTargetID string
	InterceptPoint    *Vec2
	InterceptETA      float64

	// Pattern drives hostile motion; patrolling friendlies reuse the
	// circular parameters once on station.
	Pattern Pattern
}

// Base is a fixed installation drones can be assigned to and return to.
type Base struct {
	ID    string
	Name  string
	Pos   Vec2
	Shape string
}

// Group tracks one synchronized move command until every live member
// has arrived at the shared destination.
type Group struct {
	ID        int64
	MemberIDs []string
	Dest      Vec2
	Arrived   map[string]bool
}

// State is the complete simulation world. A single tick goroutine owns
// it; everything handed outside is a clone or a value copy.
type State struct {
	Tick        int64
	Drones      map[string]*Drone
	Bases       map[string]*Base
	Groups      map[int64]*Group
	NextGroupID int64
	Paused      bool
	Direction   Direction
	Width       float64
	Height      float64
}

// NewState returns an empty world of the given extent.
func NewState(width, height float64) *State {
	return &State{
		Drones:      map[string]*Drone{},
		Bases:       map[string]*Base{},
		Groups:      map[int64]*Group{},
		NextGroupID: 1,
		Direction:   DirectionForward,
		Width:       width,
		Height:      height,
	}
}

// Clone returns a deep copy sharing no mutable memory with s. History
// snapshots and restores both pass through here.
func (s *State) Clone() *State {
	c := &State{
		Tick:        s.Tick,
		Drones:      make(map[string]*Drone, len(s.Drones)),
		Bases:       make(map[string]*Base, len(s.Bases)),
		Groups:      make(map[int64]*Group, len(s.Groups)),
		NextGroupID: s.NextGroupID,
		Paused:      s.Paused,
		Direction:   s.Direction,
		Width:       s.Width,
		Height:      s.Height,
	}
	for id, d := range s.Drones {
		c.Drones[id] = d.clone()
	}
	for id, b := range s.Bases {
		cb := *b
		c.Bases[id] = &cb
	}
	for id, g := range s.Groups {
		c.Groups[id] = g.clone()
	}
	return c
}

func (d *Drone) clone() *Drone {
	c := *d
	if d.Target != nil {
		t := *d.Target
		c.Target = &t
	}
	if d.GroupID != nil {
		g := *d.GroupID
		c.GroupID = &g
	}
	if d.InterceptPoint != nil {
		p := *d.InterceptPoint
		c.InterceptPoint = &p
	}
	return &c
}

func (g *Group) clone() *Group {
	c := &Group{
		ID:        g.ID,
		MemberIDs: append([]string(nil), g.MemberIDs...),
		Dest:      g.Dest,
		Arrived:   make(map[string]bool, len(g.Arrived)),
	}
	for id, ok := range g.Arrived {
		c.Arrived[id] = ok
	}
	return c
}

// DroneIDs returns the IDs of drones on the given team in sorted order;
// an empty team selects all drones. Tick iteration always goes through
// sorted IDs so identical inputs replay identically.
func (s *State) DroneIDs(team Team) []string {
	ids := make([]string, 0, len(s.Drones))
	for id, d := range s.Drones {
		if team != "" && d.Team != team {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GroupIDs returns group IDs in ascending order.
func (s *State) GroupIDs() []int64 {
	ids := make([]int64, 0, len(s.Groups))
	for id := range s.Groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// BaseIDs returns base IDs in sorted order.
func (s *State) BaseIDs() []string {
	ids := make([]string, 0, len(s.Bases))
	for id := range s.Bases {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clamp constrains p to the world rectangle.
func (s *State) Clamp(p Vec2) Vec2 {
	return Vec2{
		X: math.Max(0, math.Min(s.Width, p.X)),
		Y: math.Max(0, math.Min(s.Height, p.Y)),
	}
}
