// Task command registry: the one place operator task names are
// interpreted and counted.
package command

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Task names accepted at the operator boundary.
const (
	TaskMove         = "move"
	TaskPatrol       = "patrol"
	TaskTail         = "tail"
	TaskHold         = "hold"
	TaskReturnToBase = "return_to_base"
	TaskIntercept    = "intercept"
)

// ErrUnknownTask is returned when a request names an unregistered task.
var ErrUnknownTask = errors.New("unknown task")

// Params carries the closed set of task parameters. Pointer fields
// distinguish absent from zero.
type Params struct {
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Radius   *float64 `json:"radius,omitempty"`
	Distance *float64 `json:"distance,omitempty"`
	TargetID string   `json:"target_id,omitempty"`
	BaseID   string   `json:"base_id,omitempty"`
}

// Request is one structured task command with fully-resolved drone IDs.
type Request struct {
	Task     string   `json:"task_name"`
	DroneIDs []string `json:"drone_ids"`
	Params   Params   `json:"parameters"`
}

// Result reports how many drones a request applied to and which
// referenced IDs were ignored.
type Result struct {
	Applied int      `json:"applied"`
	Ignored []string `json:"ignored,omitempty"`
}

// HandlerFunc applies one task request to the world.
type HandlerFunc func(ctx context.Context, req Request) (Result, error)

// Registry routes task requests to registered handlers.
type Registry struct {
	handlers map[string]HandlerFunc

	// OTEL metrics
	dispatched metric.Int64Counter
	rejected   metric.Int64Counter
}

// NewRegistry creates an empty registry. Metrics come from the global
// OTel meter provider (no-op if not configured).
func NewRegistry() (*Registry, error) {
	r := &Registry{handlers: make(map[string]HandlerFunc)}

	m := meter()

	var err error
	r.dispatched, err = m.Int64Counter(
		"command.dispatched",
		metric.WithDescription("Total task commands dispatched to a handler"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dispatched counter: %w", err)
	}

	r.rejected, err = m.Int64Counter(
		"command.rejected",
		metric.WithDescription("Total task commands rejected"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rejected counter: %w", err)
	}

	return r, nil
}

// Register adds a handler for the given task name.
func (r *Registry) Register(task string, h HandlerFunc) {
	r.handlers[task] = h
}

// Dispatch routes a request to its registered handler. Unknown task
// names and handler failures are rejected without touching the world.
func (r *Registry) Dispatch(ctx context.Context, req Request) (Result, error) {
	h, ok := r.handlers[req.Task]
	if !ok {
		r.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("task", req.Task)))
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTask, req.Task)
	}
	res, err := h(ctx, req)
	if err != nil {
		r.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("task", req.Task)))
		return res, err
	}
	r.dispatched.Add(ctx, 1, metric.WithAttributes(attribute.String("task", req.Task)))
	return res, nil
}

// Tasks returns the registered task names in sorted order.
func (r *Registry) Tasks() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterDroneGauge registers an observable gauge reporting live drones
// per team. The callback runs on metric collection.
func RegisterDroneGauge(counts func() map[string]int64) error {
	m := meter()
	g, err := m.Int64ObservableGauge(
		"sim.drones",
		metric.WithDescription("Live drones per team"),
	)
	if err != nil {
		return fmt.Errorf("creating drone gauge: %w", err)
	}
	_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		for team, n := range counts() {
			o.ObserveInt64(g, n, metric.WithAttributes(attribute.String("team", team)))
		}
		return nil
	}, g)
	if err != nil {
		return fmt.Errorf("registering drone gauge callback: %w", err)
	}
	return nil
}
