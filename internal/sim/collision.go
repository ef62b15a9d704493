package sim

import (
	"fmt"
	"sort"

	"swarmops-sim/internal/telemetry"
	"swarmops-sim/internal/world"
)

type collisionPair struct {
	friendlyID string
	hostileID  string
	dist       float64
}

// resolveCollisions removes every friendly/hostile pair whose bodies
// overlap this tick. All qualifying pairs are collected first, then
// claimed nearest-first with an ID tie-break, so each drone dies at
// most once and simultaneous contacts resolve the same way every run.
func (s *Simulator) resolveCollisions() {
	var pairs []collisionPair
	hostiles := s.world.DroneIDs(world.TeamEnemy)
	for _, fid := range s.world.DroneIDs(world.TeamFriendly) {
		f := s.world.Drones[fid]
		for _, hid := range hostiles {
			h := s.world.Drones[hid]
			dist := f.Pos.Dist(h.Pos)
			if dist < f.Radius+h.Radius {
				pairs = append(pairs, collisionPair{friendlyID: fid, hostileID: hid, dist: dist})
			}
		}
	}
	if len(pairs) == 0 {
		return
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].dist != pairs[j].dist {
			return pairs[i].dist < pairs[j].dist
		}
		if pairs[i].friendlyID != pairs[j].friendlyID {
			return pairs[i].friendlyID < pairs[j].friendlyID
		}
		return pairs[i].hostileID < pairs[j].hostileID
	})

	claimed := map[string]bool{}
	for _, p := range pairs {
		if claimed[p.friendlyID] || claimed[p.hostileID] {
			continue
		}
		claimed[p.friendlyID] = true
		claimed[p.hostileID] = true
		s.destroyDrone(s.world.Drones[p.friendlyID])
		s.destroyDrone(s.world.Drones[p.hostileID])
		s.queueEvent(s.newEvent(telemetry.EventCollision,
			[]string{p.friendlyID, p.hostileID}, p.hostileID, nil,
			fmt.Sprintf("distance %.2f", p.dist)))
	}
}

// destroyDrone removes d from the world and cleans up every reference
// to it: group membership, tails, and intercept assignments.
func (s *Simulator) destroyDrone(d *world.Drone) {
	d.Mode = world.ModeDestroyed
	s.removeFromGroup(d)
	delete(s.world.Drones, d.ID)

	for _, id := range s.world.DroneIDs(world.TeamFriendly) {
		o := s.world.Drones[id]
		if o.TailTargetID == d.ID {
			o.TailTargetID = ""
			o.TailStandoff = 0
			o.Mode = world.ModeIdle
			o.Vel = world.Vec2{}
		}
		if o.InterceptTargetID == d.ID {
			o.InterceptTargetID = ""
			o.InterceptPoint = nil
			o.InterceptETA = 0
			o.Mode = world.ModeIdle
			o.Vel = world.Vec2{}
		}
	}
}
