package sim

import (
	"context"
	"testing"

	"swarmops-sim/internal/telemetry"
	"swarmops-sim/internal/world"
)

func snapAt(tick int64) *world.State {
	s := world.NewState(100, 100)
	s.Tick = tick
	return s
}

func TestHistory_PushEvictsOldest(t *testing.T) {
	h := NewHistory(3)
	for i := int64(1); i <= 5; i++ {
		h.Push(snapAt(i))
	}
	if h.Len() != 3 || h.Cap() != 3 {
		t.Fatalf("expected len 3 cap 3, got len %d cap %d", h.Len(), h.Cap())
	}
	if h.At(0).Tick != 3 {
		t.Errorf("Expected oldest tick 3, got %d", h.At(0).Tick)
	}
	if h.Newest().Tick != 5 {
		t.Errorf("Expected newest tick 5, got %d", h.Newest().Tick)
	}
	if h.At(3) != nil || h.At(-1) != nil {
		t.Errorf("Expected out of range lookups to return nil")
	}
}

func TestHistory_TruncateDropsNewest(t *testing.T) {
	h := NewHistory(10)
	for i := int64(1); i <= 5; i++ {
		h.Push(snapAt(i))
	}
	h.TruncateTo(2)
	if h.Len() != 2 || h.Newest().Tick != 2 {
		t.Fatalf("expected ticks 1..2 kept, got len %d newest %v", h.Len(), h.Newest())
	}

	h.TruncateTo(7) // larger than len is a no-op
	if h.Len() != 2 {
		t.Errorf("Expected len unchanged, got %d", h.Len())
	}

	h.TruncateTo(-1)
	if h.Len() != 0 || h.Newest() != nil {
		t.Errorf("Expected empty history, got len %d", h.Len())
	}
}

func TestHistory_CapacityFloor(t *testing.T) {
	h := NewHistory(0)
	if h.Cap() != 1 {
		t.Errorf("Expected capacity floor 1, got %d", h.Cap())
	}
	h.Push(snapAt(1))
	h.Push(snapAt(2))
	if h.Len() != 1 || h.Newest().Tick != 2 {
		t.Errorf("Expected only the newest snapshot, got len %d", h.Len())
	}
}

// mover returns a simulator with one drone flying +x at 2 units per
// tick, for exact position arithmetic in clock tests.
func mover(w TelemetryWriter) *Simulator {
	sim := newTestSim(testConfig(), w)
	addFriendly(sim, "d_1", world.Vec2{X: 100, Y: 500}, 100)
	sim.CommandMove([]string{"d_1"}, world.Vec2{X: 900, Y: 500})
	return sim
}

func ticks(sim *Simulator, n int) {
	ctx := context.Background()
	for i := 0; i < n; i++ {
		sim.tick(ctx)
	}
}

func droneX(sim *Simulator, id string) float64 {
	return sim.world.Drones[id].Pos.X
}

func TestClock_PauseFreezesPhysicsButKeepsStateRows(t *testing.T) {
	w := &MockWriter{}
	sim := mover(w)
	ticks(sim, 5)

	if sim.world.Tick != 5 || droneX(sim, "d_1") != 110 {
		t.Fatalf("expected tick 5 at x=110, got tick %d x=%v", sim.world.Tick, droneX(sim, "d_1"))
	}
	rows := len(w.Rows)
	states := len(w.States)

	sim.SetPaused(true)
	ticks(sim, 10)

	if sim.world.Tick != 5 || droneX(sim, "d_1") != 110 {
		t.Errorf("Expected the world frozen, got tick %d x=%v", sim.world.Tick, droneX(sim, "d_1"))
	}
	if len(w.Rows) != rows {
		t.Errorf("Expected no telemetry rows while paused, got %d new", len(w.Rows)-rows)
	}
	if len(w.States) != states+10 {
		t.Errorf("Expected a state row per paused tick, got %d new", len(w.States)-states)
	}

	sim.SetPaused(false)
	ticks(sim, 1)
	if sim.world.Tick != 6 || droneX(sim, "d_1") != 112 {
		t.Errorf("Expected the clock to resume, got tick %d x=%v", sim.world.Tick, droneX(sim, "d_1"))
	}
}

func TestClock_CommandsApplyWhilePaused(t *testing.T) {
	w := &MockWriter{}
	sim := newTestSim(testConfig(), w)
	d := addFriendly(sim, "d_1", world.Vec2{X: 100, Y: 100}, 100)

	sim.SetPaused(true)
	events := len(w.Events)
	if n := sim.CommandMove([]string{"d_1"}, world.Vec2{X: 300, Y: 100}); n != 1 {
		t.Fatalf("expected the command accepted while paused, got %d", n)
	}
	if d.Mode != world.ModeMoving || d.Target == nil {
		t.Errorf("Expected the drone retargeted, got %+v", d)
	}
	if len(w.Events) <= events {
		t.Errorf("Expected the command event written while paused")
	}

	ticks(sim, 5)
	if d.Pos.X != 100 {
		t.Errorf("Expected no motion while paused, got x=%v", d.Pos.X)
	}

	sim.SetPaused(false)
	ticks(sim, 1)
	if d.Pos.X != 102 {
		t.Errorf("Expected motion after resume, got x=%v", d.Pos.X)
	}
}

func TestClock_ReverseStepsBackThroughHistory(t *testing.T) {
	w := &MockWriter{}
	sim := mover(w)
	ticks(sim, 10)

	sim.SetDirection(world.DirectionReverse)
	ticks(sim, 1)
	if sim.world.Tick != 9 || droneX(sim, "d_1") != 118 {
		t.Errorf("Expected tick 9 at x=118, got tick %d x=%v", sim.world.Tick, droneX(sim, "d_1"))
	}
	ticks(sim, 1)
	if sim.world.Tick != 8 || droneX(sim, "d_1") != 116 {
		t.Errorf("Expected tick 8 at x=116, got tick %d x=%v", sim.world.Tick, droneX(sim, "d_1"))
	}

	last := w.Rows[len(w.Rows)-1]
	if last.Direction != string(world.DirectionReverse) {
		t.Errorf("Expected reverse telemetry rows, got %q", last.Direction)
	}
}

func TestClock_ReverseHoldsAtOldestSnapshot(t *testing.T) {
	sim := mover(&MockWriter{})
	ticks(sim, 3)

	sim.SetDirection(world.DirectionReverse)
	ticks(sim, 10)
	if sim.world.Tick != 1 || droneX(sim, "d_1") != 102 {
		t.Errorf("Expected to hold at tick 1, got tick %d x=%v", sim.world.Tick, droneX(sim, "d_1"))
	}
}

func TestClock_ResumeForwardDiscardsFuture(t *testing.T) {
	sim := mover(&MockWriter{})
	ticks(sim, 10)

	sim.SetDirection(world.DirectionReverse)
	ticks(sim, 4)
	if sim.world.Tick != 6 {
		t.Fatalf("expected tick 6 after four reverse steps, got %d", sim.world.Tick)
	}

	sim.SetDirection(world.DirectionForward)
	if sim.history.Len() != 6 || sim.history.Newest().Tick != 6 {
		t.Errorf("Expected the future discarded, got len %d", sim.history.Len())
	}

	ticks(sim, 1)
	if sim.world.Tick != 7 || droneX(sim, "d_1") != 114 {
		t.Errorf("Expected a fresh tick 7 at x=114, got tick %d x=%v", sim.world.Tick, droneX(sim, "d_1"))
	}
	if sim.history.Len() != 7 {
		t.Errorf("Expected the new tick recorded, got len %d", sim.history.Len())
	}
}

func TestClock_PauseWhileReversingNormalizesForward(t *testing.T) {
	sim := mover(&MockWriter{})
	ticks(sim, 10)

	sim.SetDirection(world.DirectionReverse)
	ticks(sim, 3)
	if sim.world.Tick != 7 {
		t.Fatalf("expected tick 7, got %d", sim.world.Tick)
	}

	sim.SetPaused(true)
	if !sim.world.Paused || sim.world.Direction != world.DirectionForward {
		t.Fatalf("expected paused forward, got paused=%v dir=%s", sim.world.Paused, sim.world.Direction)
	}
	if sim.history.Len() != 7 {
		t.Errorf("Expected history truncated at the pause point, got %d", sim.history.Len())
	}

	ticks(sim, 5)
	if sim.world.Tick != 7 {
		t.Errorf("Expected the clock frozen, got %d", sim.world.Tick)
	}

	sim.SetPaused(false)
	ticks(sim, 1)
	if sim.world.Tick != 8 || droneX(sim, "d_1") != 116 {
		t.Errorf("Expected forward from tick 7, got tick %d x=%v", sim.world.Tick, droneX(sim, "d_1"))
	}
}

func TestClock_JumpBackRestoresAndRunsForward(t *testing.T) {
	w := &MockWriter{}
	cfg := testConfig()
	cfg.Sim.JumpBackTicks = 30
	sim := newTestSim(cfg, w)
	addFriendly(sim, "d_1", world.Vec2{X: 100, Y: 500}, 100)
	sim.CommandMove([]string{"d_1"}, world.Vec2{X: 900, Y: 500})
	ticks(sim, 50)

	got := sim.JumpBack()
	if got != 20 {
		t.Fatalf("expected restored tick 20, got %d", got)
	}
	if sim.world.Tick != 20 || droneX(sim, "d_1") != 140 {
		t.Errorf("Expected tick 20 at x=140, got tick %d x=%v", sim.world.Tick, droneX(sim, "d_1"))
	}
	if sim.history.Len() != 20 {
		t.Errorf("Expected history truncated to 20, got %d", sim.history.Len())
	}
	if sim.world.Paused || sim.world.Direction != world.DirectionForward {
		t.Errorf("Expected running forward after the jump")
	}

	ticks(sim, 1)
	if sim.world.Tick != 21 {
		t.Errorf("Expected tick 21, got %d", sim.world.Tick)
	}

	found := false
	for _, ev := range w.Events {
		if ev.Type == telemetry.EventJumpBack && ev.Detail == "restored tick 20" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a jump_back event naming the restored tick")
	}
}

func TestClock_JumpBackClampsToOldest(t *testing.T) {
	cfg := testConfig()
	cfg.Sim.JumpBackTicks = 30
	sim := newTestSim(cfg, &MockWriter{})
	addFriendly(sim, "d_1", world.Vec2{X: 100, Y: 500}, 100)
	ticks(sim, 10)

	if got := sim.JumpBack(); got != 1 {
		t.Errorf("Expected clamp to the oldest tick 1, got %d", got)
	}
	if sim.history.Len() != 1 {
		t.Errorf("Expected a single snapshot left, got %d", sim.history.Len())
	}
}

func TestClock_JumpBackFromReverseUsesCursor(t *testing.T) {
	cfg := testConfig()
	cfg.Sim.JumpBackTicks = 4
	sim := newTestSim(cfg, &MockWriter{})
	addFriendly(sim, "d_1", world.Vec2{X: 100, Y: 500}, 100)
	ticks(sim, 20)

	sim.SetDirection(world.DirectionReverse)
	ticks(sim, 5)
	if sim.world.Tick != 15 {
		t.Fatalf("expected tick 15, got %d", sim.world.Tick)
	}

	if got := sim.JumpBack(); got != 11 {
		t.Errorf("Expected the jump measured from the cursor, got %d", got)
	}
	if sim.world.Direction != world.DirectionForward {
		t.Errorf("Expected forward after the jump")
	}
}

func TestClock_JumpBackWithEmptyHistoryIsNoop(t *testing.T) {
	sim := newTestSim(testConfig(), &MockWriter{})
	if got := sim.JumpBack(); got != 0 {
		t.Errorf("Expected current tick 0, got %d", got)
	}
}

func TestClock_HistoryStaysBounded(t *testing.T) {
	cfg := testConfig()
	cfg.Sim.HistoryCapacity = 5
	sim := newTestSim(cfg, &MockWriter{})
	addFriendly(sim, "d_1", world.Vec2{X: 100, Y: 500}, 100)
	ticks(sim, 12)

	if sim.history.Len() != 5 {
		t.Fatalf("expected len 5, got %d", sim.history.Len())
	}
	if sim.history.At(0).Tick != 8 || sim.history.Newest().Tick != 12 {
		t.Errorf("Expected ticks 8..12 retained, got %d..%d",
			sim.history.At(0).Tick, sim.history.Newest().Tick)
	}

	// reverse can only walk back to the oldest surviving snapshot
	sim.SetDirection(world.DirectionReverse)
	ticks(sim, 10)
	if sim.world.Tick != 8 {
		t.Errorf("Expected to hold at tick 8, got %d", sim.world.Tick)
	}
}

func TestClock_RestoredWorldDoesNotAliasHistory(t *testing.T) {
	sim := mover(&MockWriter{})
	ticks(sim, 10)

	sim.SetDirection(world.DirectionReverse)
	ticks(sim, 1)

	live := sim.world.Drones["d_1"]
	live.Pos.X = 999
	if snap := sim.history.At(sim.cursor); snap.Drones["d_1"].Pos.X == 999 {
		t.Errorf("Expected the live world detached from the snapshot")
	}
}
