package sim

import (
	"fmt"
	"math"
	"sort"

	"swarmops-sim/internal/telemetry"
	"swarmops-sim/internal/world"
)

// resolveGroups disperses every group whose live members have all
// arrived. Dispersal happens inside the tick, so no snapshot ever holds
// a resolved but undispersed group.
func (s *Simulator) resolveGroups() {
	for _, gid := range s.world.GroupIDs() {
		g := s.world.Groups[gid]
		if len(g.MemberIDs) == 0 {
			delete(s.world.Groups, gid)
			continue
		}
		done := true
		for _, id := range g.MemberIDs {
			if !g.Arrived[id] {
				done = false
				break
			}
		}
		if done {
			s.disperseGroup(g)
		}
	}
}

// disperseGroup fans the arrived members out onto a centered grid
// around the shared destination and dissolves the group. Slots outside
// the world clamp to its bounds.
func (s *Simulator) disperseGroup(g *world.Group) {
	members := append([]string(nil), g.MemberIDs...)
	sort.Strings(members)

	spacing := s.cfg.Sim.FormationSpacing
	cols := int(math.Ceil(math.Sqrt(float64(len(members)))))
	rows := int(math.Ceil(float64(len(members)) / float64(cols)))
	for i, id := range members {
		d, ok := s.world.Drones[id]
		if !ok {
			continue
		}
		slot := s.world.Clamp(world.Vec2{
			X: g.Dest.X + (float64(i%cols)-float64(cols-1)/2)*spacing,
			Y: g.Dest.Y + (float64(i/cols)-float64(rows-1)/2)*spacing,
		})
		d.GroupID = nil
		if d.Pos == slot {
			// already on station, e.g. the sole member of a one-drone
			// group whose grid is the destination itself
			d.Target = nil
			d.Mode = world.ModeIdle
			d.Vel = world.Vec2{}
			continue
		}
		t := slot
		d.Target = &t
		d.Mode = world.ModeMoving
	}
	delete(s.world.Groups, g.ID)

	gid := g.ID
	s.queueEvent(s.newEvent(telemetry.EventGroupDispersed, members, "", &gid,
		fmt.Sprintf("%d drones", len(members))))
}

// removeFromGroup detaches d from its group, dissolving the group when
// no members remain.
func (s *Simulator) removeFromGroup(d *world.Drone) {
	if d.GroupID == nil {
		return
	}
	gid := *d.GroupID
	d.GroupID = nil
	g, ok := s.world.Groups[gid]
	if !ok {
		return
	}
	members := g.MemberIDs[:0]
	for _, id := range g.MemberIDs {
		if id != d.ID {
			members = append(members, id)
		}
	}
	g.MemberIDs = members
	delete(g.Arrived, d.ID)
	if len(g.MemberIDs) == 0 {
		delete(s.world.Groups, gid)
	}
}
