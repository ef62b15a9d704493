// Package api is the HTTP operator boundary: JSON command endpoints,
// world queries, and a websocket world stream. Schema errors die here
// with a 400; reference errors inside a valid command are per-id
// ignores handled by the engine.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"swarmops-sim/internal/command"
	"swarmops-sim/internal/config"
	"swarmops-sim/internal/logging"
	"swarmops-sim/internal/sim"
	"swarmops-sim/internal/world"
)

const defaultPushInterval = 100 * time.Millisecond

// Server exposes the simulator over HTTP.
type Server struct {
	Sim          *sim.Simulator
	CORSOrigin   string
	PushInterval time.Duration
	upgrader     websocket.Upgrader
}

// NewServer wires a simulator to the HTTP boundary. An empty corsOrigin
// allows any origin; a zero pushInterval uses the default.
func NewServer(simulator *sim.Simulator, corsOrigin string, pushInterval time.Duration) *Server {
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	if pushInterval <= 0 {
		pushInterval = defaultPushInterval
	}
	s := &Server{Sim: simulator, CORSOrigin: corsOrigin, PushInterval: pushInterval}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if s.CORSOrigin == "*" {
				return true
			}
			return r.Header.Get("Origin") == s.CORSOrigin
		},
	}
	return s
}

// Handler builds the route mux wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/world", s.handleWorld)
	mux.HandleFunc("/command", s.handleCommand)
	mux.HandleFunc("/task", s.handleTask)
	mux.HandleFunc("/pause", s.handlePause)
	mux.HandleFunc("/time", s.handleTime)
	mux.HandleFunc("/jump-back", s.handleJumpBack)
	mux.HandleFunc("/reset", s.handleReset)
	mux.HandleFunc("/set-base", s.handleSetBase)
	mux.HandleFunc("/launch", s.handleLaunch)
	mux.HandleFunc("/hostiles", s.handleHostiles)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/ws", s.handleWS)
	return s.cors(mux)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return srv.ListenAndServe()
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.CORSOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

// decode parses the request body into v, treating malformed or
// unexpected JSON as a schema error.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Drone Swarm API"})
}

func (s *Server) handleWorld(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sim.WorldSnapshot())
}

type commandRequest struct {
	DroneIDs []string `json:"drone_ids"`
	TargetX  *float64 `json:"target_x"`
	TargetY  *float64 `json:"target_y"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req commandRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid command: %v", err)
		return
	}
	if req.TargetX == nil || req.TargetY == nil {
		writeError(w, http.StatusBadRequest, "target_x and target_y are required")
		return
	}
	n := s.Sim.CommandMove(req.DroneIDs, world.Vec2{X: *req.TargetX, Y: *req.TargetY})
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"updated_drones": n,
		"target":         map[string]float64{"x": *req.TargetX, "y": *req.TargetY},
	})
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req command.Request
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid task: %v", err)
		return
	}
	res, err := s.Sim.ApplyTask(r.Context(), req)
	if err != nil {
		if !errors.Is(err, command.ErrUnknownTask) {
			logging.FromContext(r.Context()).Warn("task rejected", "task", req.Task, "err", err)
		}
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type pauseRequest struct {
	Paused *bool `json:"paused"`
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req pauseRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: %v", err)
		return
	}
	if req.Paused == nil {
		writeError(w, http.StatusBadRequest, "paused is required")
		return
	}
	s.Sim.SetPaused(*req.Paused)
	writeJSON(w, http.StatusOK, map[string]bool{"paused": *req.Paused})
}

type timeRequest struct {
	Action string `json:"action"`
}

func (s *Server) handleTime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req timeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: %v", err)
		return
	}
	switch req.Action {
	case "reverse":
		s.Sim.SetDirection(world.DirectionReverse)
	case "forward":
		s.Sim.SetDirection(world.DirectionForward)
	default:
		writeError(w, http.StatusBadRequest, "unknown action %q", req.Action)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"direction": req.Action})
}

func (s *Server) handleJumpBack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	tick := s.Sim.JumpBack()
	writeJSON(w, http.StatusOK, map[string]int64{"tick": tick})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	s.Sim.Reset()
	w.WriteHeader(http.StatusNoContent)
}

type setBaseRequest struct {
	DroneIDs []string `json:"drone_ids"`
	BaseID   string   `json:"base_id"`
}

func (s *Server) handleSetBase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req setBaseRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: %v", err)
		return
	}
	n, err := s.Sim.SetBase(req.DroneIDs, req.BaseID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated_count": n})
}

type launchRequest struct {
	Fleet string `json:"fleet"`
	Count int    `json:"count"`
}

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req launchRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: %v", err)
		return
	}
	if req.Count <= 0 {
		req.Count = 1
	}
	ids := s.Sim.LaunchFleet(req.Fleet, req.Count)
	writeJSON(w, http.StatusOK, map[string]any{"drone_ids": ids})
}

type hostileRequest struct {
	ID      string  `json:"id"`
	Pattern string  `json:"pattern"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Radius  float64 `json:"radius"`
	Speed   float64 `json:"speed"`
	Dir     float64 `json:"dir"`
}

func (s *Server) handleHostiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req hostileRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: %v", err)
		return
	}
	id, err := s.Sim.SpawnHostile(config.HostileSpec{
		ID:      req.ID,
		Pattern: req.Pattern,
		X:       req.X,
		Y:       req.Y,
		Min:     req.Min,
		Max:     req.Max,
		Radius:  req.Radius,
		Speed:   req.Speed,
		Dir:     req.Dir,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sim.Health())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit %q", q)
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, s.Sim.RecentEvents(limit))
}

// handleWS upgrades to a websocket and pushes world snapshots at the
// configured interval until the client disconnects. Client messages are
// drained and ignored.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.FromContext(r.Context()).Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.PushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := conn.WriteJSON(s.Sim.WorldSnapshot()); err != nil {
				return
			}
		}
	}
}
