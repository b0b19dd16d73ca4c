package domain

import "math"

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SpawnPoint is where every new member appears.
var SpawnPoint = Position{X: 500, Y: 500}

// IsFinite reports whether both coordinates are usable numbers.
func (p Position) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Clamp keeps the position inside the [0, boxSize] square.
func (p Position) Clamp(boxSize int) Position {
	side := float64(boxSize)
	return Position{X: clamp(p.X, 0, side), Y: clamp(p.Y, 0, side)}
}

// Distance is the planar euclidean distance, symmetric by construction.
func Distance(a, b Position) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// InRange is the proximity predicate both ends of a link evaluate.
func InRange(d float64, voiceRadius int) bool {
	return d <= float64(voiceRadius)
}

// Volume maps distance to a playback gain in [0, 1].
func Volume(d float64, voiceRadius int) float64 {
	if voiceRadius <= 0 {
		return 0
	}
	return clamp(1-d/float64(voiceRadius), 0, 1)
}

// NormalizeOrientation folds radians into [0, 2π).
func NormalizeOrientation(rad float64) float64 {
	o := math.Mod(rad, 2*math.Pi)
	if o < 0 {
		o += 2 * math.Pi
	}
	if o >= 2*math.Pi {
		o = 0
	}
	return o
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Direction is a keyboard step relative to the current facing.
type Direction int

const (
	Forward Direction = iota
	Backward
	StrafeLeft
	StrafeRight
)

// MoveStep is the distance covered by one key press.
const MoveStep = 10.0

// Step moves p one step in dir, relative to orientation.
func Step(p Position, orientation float64, dir Direction, step float64) Position {
	angle := orientation
	switch dir {
	case Backward:
		angle += math.Pi
	case StrafeLeft:
		angle -= math.Pi / 2
	case StrafeRight:
		angle += math.Pi / 2
	}
	return Position{X: p.X + step*math.Cos(angle), Y: p.Y + step*math.Sin(angle)}
}

// TurnRate converts a mouse sensitivity setting into radians per pixel.
func TurnRate(sensitivity float64) float64 {
	return sensitivity / 1000 * math.Pi
}
