package sim

import (
	"context"
	"math"
	"testing"

	"swarmops-sim/internal/command"
	"swarmops-sim/internal/world"
)

func startTail(t *testing.T, sim *Simulator, droneID, targetID string, distance *float64) {
	t.Helper()
	params := &command.Params{TargetID: targetID, Distance: distance}
	if _, err := sim.ApplyTask(context.Background(), taskReq("tail", []string{droneID}, params)); err != nil {
		t.Fatalf("tail failed: %v", err)
	}
}

func TestTail_ApproachesToStandoff(t *testing.T) {
	sim := newTestSim(testConfig(), &MockWriter{})
	d := addFriendly(sim, "d_1", world.Vec2{X: 500, Y: 400}, 50)
	h := addStatic(sim, "h_1", world.Vec2{X: 500, Y: 500})
	ctx := context.Background()

	startTail(t, sim, "d_1", "h_1", nil)
	if d.TailStandoff != 50 {
		t.Fatalf("expected default standoff 50, got %v", d.TailStandoff)
	}
	for i := 0; i < 60; i++ {
		sim.tick(ctx)
	}
	if got := d.Pos.Dist(h.Pos); got != 52 {
		t.Errorf("Expected the drone parked at the dead zone edge, got dist %v", got)
	}
	if d.Vel.X != 0 || d.Vel.Y != 0 {
		t.Errorf("Expected zero velocity inside the dead zone, got %+v", d.Vel)
	}
	if d.Mode != world.ModeTailing {
		t.Errorf("Expected tailing to continue, got %s", d.Mode)
	}
}

func TestTail_BacksOffWhenTooClose(t *testing.T) {
	sim := newTestSim(testConfig(), &MockWriter{})
	d := addFriendly(sim, "d_1", world.Vec2{X: 500, Y: 476}, 50)
	h := addStatic(sim, "h_1", world.Vec2{X: 500, Y: 500})
	ctx := context.Background()

	startTail(t, sim, "d_1", "h_1", nil)
	for i := 0; i < 40; i++ {
		sim.tick(ctx)
	}
	if got := d.Pos.Dist(h.Pos); got != 48 {
		t.Errorf("Expected backing off to dist 48, got %v", got)
	}
	if d.Pos.Y != 452 {
		t.Errorf("Expected retreat straight down to y=452, got %v", d.Pos.Y)
	}
}

func TestTail_DeadZoneHoldsBitIdentical(t *testing.T) {
	sim := newTestSim(testConfig(), &MockWriter{})
	d := addFriendly(sim, "d_1", world.Vec2{X: 550, Y: 500}, 50)
	addStatic(sim, "h_1", world.Vec2{X: 500, Y: 500})
	ctx := context.Background()

	startTail(t, sim, "d_1", "h_1", nil)
	pos := d.Pos
	for i := 0; i < 50; i++ {
		sim.tick(ctx)
		if d.Pos != pos {
			t.Fatalf("tick %d: expected position unchanged, got %+v", i+1, d.Pos)
		}
	}
}

func TestTail_CoincidentPositionHolds(t *testing.T) {
	sim := newTestSim(testConfig(), &MockWriter{})
	d := addFriendly(sim, "d_1", world.Vec2{X: 500, Y: 500}, 50)
	addStatic(sim, "h_1", world.Vec2{X: 500, Y: 500})

	d.Mode = world.ModeTailing
	d.TailTargetID = "h_1"
	d.TailStandoff = 50
	sim.updateTailing(d, sim.cfg.Sim.DT)

	if d.Pos.X != 500 || d.Pos.Y != 500 {
		t.Errorf("Expected no movement without an away direction, got %+v", d.Pos)
	}
	if d.Vel.X != 0 || d.Vel.Y != 0 {
		t.Errorf("Expected zero velocity, got %+v", d.Vel)
	}
}

func TestTail_CustomDistanceOverridesDefault(t *testing.T) {
	sim := newTestSim(testConfig(), &MockWriter{})
	d := addFriendly(sim, "d_1", world.Vec2{X: 500, Y: 400}, 50)
	addStatic(sim, "h_1", world.Vec2{X: 500, Y: 500})

	dist := 30.0
	startTail(t, sim, "d_1", "h_1", &dist)
	if d.TailStandoff != 30 {
		t.Errorf("Expected standoff 30, got %v", d.TailStandoff)
	}
}

func TestTail_TracksMovingHostile(t *testing.T) {
	sim := newTestSim(testConfig(), &MockWriter{})
	d := addFriendly(sim, "d_1", world.Vec2{X: 100, Y: 300}, 200)
	h := addBouncer(sim, "h_1", world.Vec2{X: 100, Y: 0}, 40, 100, 900, 1)
	ctx := context.Background()

	startTail(t, sim, "d_1", "h_1", nil)
	for i := 0; i < 200; i++ {
		sim.tick(ctx)
	}
	// dead zone plus at most one hostile step of lag
	if got := d.Pos.Dist(h.Pos); math.Abs(got-50) > 3 {
		t.Errorf("Expected the drone to hold near standoff 50, got dist %v", got)
	}
}

func TestTail_TargetLostGoesIdle(t *testing.T) {
	sim := newTestSim(testConfig(), &MockWriter{})
	d := addFriendly(sim, "d_1", world.Vec2{X: 500, Y: 400}, 50)
	addStatic(sim, "h_1", world.Vec2{X: 500, Y: 500})
	ctx := context.Background()

	startTail(t, sim, "d_1", "h_1", nil)
	sim.tick(ctx)

	delete(sim.world.Drones, "h_1")
	sim.tick(ctx)

	if d.Mode != world.ModeIdle || d.TailTargetID != "" || d.TailStandoff != 0 {
		t.Errorf("Expected tail state cleared after target loss, got %+v", d)
	}
}
