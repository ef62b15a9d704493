package api

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"swarmops-sim/internal/config"
	"swarmops-sim/internal/sim"
	"swarmops-sim/internal/telemetry"
	"swarmops-sim/internal/world"
)

type nopWriter struct{}

func (nopWriter) Write(telemetry.TelemetryRow) error  { return nil }
func (nopWriter) WriteEvent(telemetry.EventRow) error   { return nil }

func newTestServer(t *testing.T) (*Server, *sim.Simulator) {
	t.Helper()
	cfg := &config.Config{
		Fleets: []config.Fleet{{Name: "alpha", Count: 3, Columns: 2, Spacing: 40, OriginX: 100, OriginY: 100, Speed: 50}},
		Bases:  []config.BaseSpec{{ID: "base_1", Name: "North", X: 50, Y: 50}},
		Hostiles: []config.HostileSpec{
			{ID: "hostile_1", Pattern: "bounce_x", X: 100, Y: 600, Min: 100, Max: 300},
		},
	}
	cfg.ApplyDefaults()
	simulator := sim.NewSimulator("sim-test", cfg, nopWriter{}, nil, time.Second,
		rand.New(rand.NewSource(1)), func() time.Time { return time.Unix(0, 0).UTC() })
	return NewServer(simulator, "", 5*time.Millisecond), simulator
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandleRoot_HealthShape(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv.Handler(), http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status OK, got %d", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body["status"] != "ok" || body["message"] != "Drone Swarm API" {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestHandleWorld_ReturnsDrones(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv.Handler(), http.MethodGet, "/world", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status OK, got %d", w.Code)
	}
	var view sim.WorldView
	if err := json.NewDecoder(w.Body).Decode(&view); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(view.Drones) != 4 {
		t.Errorf("expected 4 drones (3 friendly + 1 hostile), got %d", len(view.Drones))
	}
	if len(view.Bases) != 1 {
		t.Errorf("expected 1 base, got %d", len(view.Bases))
	}
	if view.Direction != "forward" {
		t.Errorf("expected direction forward, got %q", view.Direction)
	}
}

func TestHandleCommand_MovesKnownIgnoresUnknown(t *testing.T) {
	srv, _ := newTestServer(t)
	body := `{"drone_ids":["drone_1","drone_2","ghost"],"target_x":500,"target_y":500}`
	w := doJSON(t, srv.Handler(), http.MethodPost, "/command", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status OK, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Status        string             `json:"status"`
		UpdatedDrones int                `json:"updated_drones"`
		Target        map[string]float64 `json:"target"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if resp.Status != "ok" || resp.UpdatedDrones != 2 {
		t.Errorf("expected 2 updated drones, got %+v", resp)
	}
	if resp.Target["x"] != 500 || resp.Target["y"] != 500 {
		t.Errorf("expected target echo (500,500), got %v", resp.Target)
	}
}

func TestHandleCommand_SchemaErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	cases := []string{
		`{"drone_ids":["drone_1"]}`,
		`{"drone_ids":["drone_1"],"target_x":10}`,
		`{"drone_ids":"drone_1","target_x":1,"target_y":2}`,
		`{not json`,
	}
	for _, body := range cases {
		w := doJSON(t, srv.Handler(), http.MethodPost, "/command", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, w.Code)
		}
	}
}

func TestHandleTask_DispatchAndRejection(t *testing.T) {
	srv, simulator := newTestServer(t)

	w := doJSON(t, srv.Handler(), http.MethodPost, "/task",
		`{"task_name":"tail","drone_ids":["drone_1"],"parameters":{"target_id":"hostile_1","distance":40}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status OK, got %d: %s", w.Code, w.Body.String())
	}
	var res struct {
		Applied int      `json:"applied"`
		Ignored []string `json:"ignored"`
	}
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if res.Applied != 1 {
		t.Errorf("expected 1 applied, got %+v", res)
	}
	view := simulator.WorldSnapshot()
	for _, d := range view.Drones {
		if d.ID == "drone_1" && d.Mode != "tailing" {
			t.Errorf("expected drone_1 tailing, got %q", d.Mode)
		}
	}

	w = doJSON(t, srv.Handler(), http.MethodPost, "/task",
		`{"task_name":"self_destruct","drone_ids":["drone_1"]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown task, got %d", w.Code)
	}
	var errBody map[string]string
	if err := json.NewDecoder(w.Body).Decode(&errBody); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !strings.Contains(errBody["error"], "unknown task") {
		t.Errorf("expected unknown task error, got %q", errBody["error"])
	}
}

func TestHandlePause_TogglesClock(t *testing.T) {
	srv, simulator := newTestServer(t)

	w := doJSON(t, srv.Handler(), http.MethodPost, "/pause", `{"paused":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status OK, got %d", w.Code)
	}
	if !simulator.WorldSnapshot().Paused {
		t.Errorf("expected world paused")
	}
	w = doJSON(t, srv.Handler(), http.MethodPost, "/pause", `{"paused":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status OK, got %d", w.Code)
	}
	if simulator.WorldSnapshot().Paused {
		t.Errorf("expected world running")
	}

	w = doJSON(t, srv.Handler(), http.MethodPost, "/pause", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing paused field, got %d", w.Code)
	}
}

func TestHandleTime_DirectionAndInvalidAction(t *testing.T) {
	srv, simulator := newTestServer(t)

	w := doJSON(t, srv.Handler(), http.MethodPost, "/time", `{"action":"reverse"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status OK, got %d", w.Code)
	}
	if simulator.WorldSnapshot().Direction != "reverse" {
		t.Errorf("expected direction reverse")
	}
	w = doJSON(t, srv.Handler(), http.MethodPost, "/time", `{"action":"forward"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status OK, got %d", w.Code)
	}
	if simulator.WorldSnapshot().Direction != "forward" {
		t.Errorf("expected direction forward")
	}

	w = doJSON(t, srv.Handler(), http.MethodPost, "/time", `{"action":"sideways"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown action, got %d", w.Code)
	}
}

func TestHandleJumpBack_ReturnsTick(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv.Handler(), http.MethodPost, "/jump-back", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status OK, got %d", w.Code)
	}
	var body map[string]int64
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if _, ok := body["tick"]; !ok {
		t.Errorf("expected tick in response, got %v", body)
	}
}

func TestHandleReset_NoContent(t *testing.T) {
	srv, simulator := newTestServer(t)
	simulator.CommandMove([]string{"drone_1"}, world.Vec2{X: 500, Y: 500})
	w := doJSON(t, srv.Handler(), http.MethodPost, "/reset", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	for _, d := range simulator.WorldSnapshot().Drones {
		if d.Mode == "moving" {
			t.Errorf("expected reset to clear assignments, %s still moving", d.ID)
		}
	}
}

func TestHandleSetBase(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv.Handler(), http.MethodPost, "/set-base",
		`{"drone_ids":["drone_1","ghost"],"base_id":"base_1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status OK, got %d", w.Code)
	}
	var body map[string]int
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body["updated_count"] != 1 {
		t.Errorf("expected 1 updated, got %d", body["updated_count"])
	}

	w = doJSON(t, srv.Handler(), http.MethodPost, "/set-base",
		`{"drone_ids":["drone_1"],"base_id":"nowhere"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown base, got %d", w.Code)
	}
}

func TestHandleLaunchAndHostiles(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv.Handler(), http.MethodPost, "/launch", `{"fleet":"alpha","count":2}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status OK, got %d", w.Code)
	}
	var launch struct {
		DroneIDs []string `json:"drone_ids"`
	}
	if err := json.NewDecoder(w.Body).Decode(&launch); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(launch.DroneIDs) != 2 {
		t.Errorf("expected 2 launched drones, got %v", launch.DroneIDs)
	}

	w = doJSON(t, srv.Handler(), http.MethodPost, "/hostiles",
		`{"pattern":"circular","x":700,"y":300,"radius":50}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status OK, got %d: %s", w.Code, w.Body.String())
	}
	var spawned map[string]string
	if err := json.NewDecoder(w.Body).Decode(&spawned); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if spawned["id"] == "" {
		t.Errorf("expected spawned hostile id, got %v", spawned)
	}

	w = doJSON(t, srv.Handler(), http.MethodPost, "/hostiles",
		`{"pattern":"bounce_x","x":1,"y":1,"min":300,"max":100}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid pattern bounds, got %d", w.Code)
	}
}

func TestHandleEvents_LimitAndValidation(t *testing.T) {
	srv, simulator := newTestServer(t)
	simulator.CommandMove([]string{"drone_1"}, world.Vec2{X: 500, Y: 500})
	simulator.SetPaused(true)
	simulator.SetPaused(false)

	w := doJSON(t, srv.Handler(), http.MethodGet, "/events?limit=2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status OK, got %d", w.Code)
	}
	var events []telemetry.EventRow
	if err := json.NewDecoder(w.Body).Decode(&events); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 events, got %d", len(events))
	}

	w = doJSON(t, srv.Handler(), http.MethodGet, "/events?limit=nope", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", w.Code)
	}
}

func TestCORS_PreflightAndHeader(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv.Handler(), http.MethodOptions, "/command", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("expected wildcard CORS origin, got %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"/command", "/task", "/pause", "/time", "/jump-back", "/reset", "/set-base", "/launch", "/hostiles"} {
		w := doJSON(t, srv.Handler(), http.MethodGet, path, "")
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("GET %s: expected 405, got %d", path, w.Code)
		}
	}
}

func TestHandleWS_PushesWorldViews(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i := 0; i < 2; i++ {
		var view sim.WorldView
		if err := conn.ReadJSON(&view); err != nil {
			t.Fatalf("read %d failed: %v", i, err)
		}
		if len(view.Drones) != 4 {
			t.Errorf("push %d: expected 4 drones, got %d", i, len(view.Drones))
		}
	}
}
