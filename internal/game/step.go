package game

import (
	"math"
	"math/rand"
	"pongarena/internal/model"
)

// Event reports what happened during one tick.
type Event struct {
	Hit    model.Role
	Scored model.Role
	Ended  bool
}

// Step advances the state by one tick using each player's current intent.
func Step(s *State, t Tuning, intents [2]model.Direction, rng *rand.Rand) Event {
	var ev Event
	if s.Over {
		return ev
	}

	for i := range s.Paddles {
		s.Paddles[i] = clamp(s.Paddles[i]+intents[i].Sign()*t.PaddleSpeed, 0, t.MaxPaddleY())
	}

	if s.ServeTicks > 0 {
		s.ServeTicks--
		return ev
	}

	prev := s.Ball
	s.Ball = s.Ball.Add(s.Vel)
	r := t.BallRadius

	if s.Ball.Y-r <= 0 {
		s.Ball.Y = r
		s.Vel.Y = math.Abs(s.Vel.Y)
	} else if s.Ball.Y+r >= t.Height {
		s.Ball.Y = t.Height - r
		s.Vel.Y = -math.Abs(s.Vel.Y)
	}

	left := t.PaddleWidth
	right := t.Width - t.PaddleWidth
	switch {
	case s.Vel.X < 0 && prev.X-r >= left && s.Ball.X-r <= left && s.covers(t, 0):
		s.bounce(t, 0)
		s.Ball.X = left + r
		ev.Hit = model.RolePlayer1
	case s.Vel.X > 0 && prev.X+r <= right && s.Ball.X+r >= right && s.covers(t, 1):
		s.bounce(t, 1)
		s.Ball.X = right - r
		ev.Hit = model.RolePlayer2
	}

	switch {
	case s.Ball.X < 0:
		ev.Scored = model.RolePlayer2
	case s.Ball.X > t.Width:
		ev.Scored = model.RolePlayer1
	default:
		return ev
	}

	i := ev.Scored.Index()
	s.Scores[i]++
	if s.Scores[i] >= t.WinScore {
		s.Over = true
		s.Winner = ev.Scored
		s.Vel = Vec2{}
		ev.Ended = true
		return ev
	}
	s.serve(t, rng)
	return ev
}

func (s *State) covers(t Tuning, i int) bool {
	top := s.Paddles[i]
	return s.Ball.Y+t.BallRadius >= top && s.Ball.Y-t.BallRadius <= top+t.PaddleHeight
}

// bounce sends the ball back from paddle i. Hits near the center leave at a
// shallow angle, hits near the edge at a steep one.
func (s *State) bounce(t Tuning, i int) {
	half := t.PaddleHeight / 2
	off := clamp((s.Ball.Y-(s.Paddles[i]+half))/half, -1, 1)
	fx := clamp(1-(1-t.MinFractionX)*math.Abs(off), t.MinFractionX, 1)
	fy := math.Sqrt(2 - fx*fx)

	s.Rally = math.Min(s.Rally*t.SpeedUp, t.MaxRally)
	speed := t.BaseSpeed * s.Rally

	dir := 1.0
	if i == 1 {
		dir = -1
	}
	vy := fy * speed
	if off < 0 {
		vy = -vy
	}
	s.Vel = Vec2{dir * fx * speed, vy}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
