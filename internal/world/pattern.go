package world

import "math"

// PatternKind identifies a parametric motion pattern.
type PatternKind string

const (
	PatternNone     PatternKind = "none"
	PatternBounceX  PatternKind = "bounce_x"
	PatternBounceY  PatternKind = "bounce_y"
	PatternCircular PatternKind = "circular"
)

// Pattern holds the parameters and current phase of a drone's motion
// pattern. It lives on the drone itself so history snapshots carry it.
type Pattern struct {
	Kind PatternKind

	// Min and Max bound the moving axis of a bounce pattern.
	Min float64
	Max float64

	// Dir is the travel sense, +1 or -1: current bounce heading, or the
	// orbit sense for circular patterns.
	Dir float64

	// Circular orbit parameters. AngularPos is the current angle in
	// radians measured from Center.
	Center     Vec2
	Radius     float64
	AngularPos float64
}

// Step advances pos by dt seconds along the pattern and returns the new
// position together with the pattern state after any reflection or
// angle advance.
func (p Pattern) Step(pos Vec2, speed, dt float64) (Vec2, Pattern) {
	switch p.Kind {
	case PatternBounceX:
		pos.X, p.Dir = bounceAdvance(pos.X, p.Min, p.Max, p.Dir, speed*dt)
	case PatternBounceY:
		pos.Y, p.Dir = bounceAdvance(pos.Y, p.Min, p.Max, p.Dir, speed*dt)
	case PatternCircular:
		if p.Radius > 0 {
			p.AngularPos += p.Dir * speed / p.Radius * dt
			pos = p.Center.Add(Vec2{X: math.Cos(p.AngularPos), Y: math.Sin(p.AngularPos)}.Scale(p.Radius))
		}
	}
	return pos, p
}

// Predict returns the position t seconds ahead of pos assuming the
// pattern continues uninterrupted. Closed form, no per-tick integration,
// so the intercept planner can sample arbitrary horizons cheaply. A
// pattern of kind none predicts the current position.
func (p Pattern) Predict(pos Vec2, speed, t float64) Vec2 {
	switch p.Kind {
	case PatternBounceX:
		pos.X, _ = bounceAdvance(pos.X, p.Min, p.Max, p.Dir, speed*t)
	case PatternBounceY:
		pos.Y, _ = bounceAdvance(pos.Y, p.Min, p.Max, p.Dir, speed*t)
	case PatternCircular:
		if p.Radius > 0 {
			theta := p.AngularPos + p.Dir*speed/p.Radius*t
			pos = p.Center.Add(Vec2{X: math.Cos(theta), Y: math.Sin(theta)}.Scale(p.Radius))
		}
	}
	return pos
}

// bounceAdvance moves x by dist along a segment [min,max] with
// instantaneous reflection at the bounds. The triangle-wave fold keeps
// it exact for any distance, so stepping one tick and predicting far
// ahead agree with each other.
func bounceAdvance(x, min, max, dir, dist float64) (float64, float64) {
	span := max - min
	if span <= 0 {
		return x, dir
	}
	q := x - min
	if dir < 0 {
		q = 2*span - q
	}
	q = math.Mod(q+dist, 2*span)
	if q < 0 {
		q += 2 * span
	}
	if q <= span {
		return min + q, 1
	}
	return min + (2*span - q), -1
}
