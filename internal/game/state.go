package game

import (
	"math"
	"math/rand"
	"pongarena/internal/model"
)

type Vec2 struct {
	X, Y float64
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{v.X + o.X, v.Y + o.Y}
}

func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}

func (v Vec2) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// State is the canonical game state of one match. Paddles hold the top edge
// of each paddle; index 0 is player1 (left).
type State struct {
	Ball       Vec2
	Vel        Vec2
	Paddles    [2]float64
	Scores     [2]int
	Rally      float64
	ServeTicks int
	Over       bool
	Winner     model.Role
}

// NewState returns a state with centered paddles and ball, not yet served.
func NewState(t Tuning) State {
	mid := (t.Height - t.PaddleHeight) / 2
	return State{
		Ball:    Vec2{t.Width / 2, t.Height / 2},
		Paddles: [2]float64{mid, mid},
		Rally:   1,
	}
}

// Reset clears scores and serves from the center.
func (s *State) Reset(t Tuning, rng *rand.Rand) {
	*s = NewState(t)
	s.serve(t, rng)
}

// Speed is the magnitude of the ball velocity.
func (s *State) Speed() float64 {
	return s.Vel.Len()
}

// serve puts the ball at the center with a baseline velocity in a random
// diagonal and holds it there for the serve delay.
func (s *State) serve(t Tuning, rng *rand.Rand) {
	s.Ball = Vec2{t.Width / 2, t.Height / 2}
	s.Rally = 1
	sx, sy := 1.0, 1.0
	if rng.Intn(2) == 0 {
		sx = -1
	}
	if rng.Intn(2) == 0 {
		sy = -1
	}
	s.Vel = Vec2{sx * t.BaseSpeed, sy * t.BaseSpeed}
	s.ServeTicks = t.ServeTicks
}
