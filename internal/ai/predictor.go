// Package ai steers a paddle by predicting where the ball will cross the
// paddle's plane. Its view of the ball is refreshed only once per reaction
// interval, which keeps it beatable.
package ai

import (
	"math"
	"time"

	"pongarena/internal/game"
	"pongarena/internal/model"
)

// Ball is the observed ball position and its displacement since the
// previous observation. Only the direction of the displacement matters.
type Ball struct {
	X, Y   float64
	DX, DY float64
}

// PredictY returns the ball's y when it reaches x = planeX, folding the path
// off the top and bottom walls. A ball moving away from the plane, or not
// moving horizontally, yields the field center.
func PredictY(b Ball, planeX float64, t game.Tuning) float64 {
	center := t.Height / 2
	if b.DX == 0 || (planeX-b.X)*b.DX < 0 {
		return center
	}
	y := b.Y + (planeX-b.X)*b.DY/b.DX
	return fold(y, t.BallRadius, t.Height-t.BallRadius)
}

// fold reflects y into [lo, hi] as a ball bouncing between two walls would.
func fold(y, lo, hi float64) float64 {
	span := hi - lo
	if span <= 0 {
		return lo
	}
	m := math.Mod(y-lo, 2*span)
	if m < 0 {
		m += 2 * span
	}
	if m > span {
		m = 2*span - m
	}
	return lo + m
}

// Predictor decides which way to move one paddle.
type Predictor struct {
	Role     model.Role
	Tuning   game.Tuning
	Reaction time.Duration
	// DeadZone is how far the paddle center may be from the target before
	// it moves.
	DeadZone float64

	nextEval time.Time
	target   float64
	primed   bool
}

// New returns a predictor with a one second reaction time.
func New(role model.Role, t game.Tuning) *Predictor {
	return &Predictor{
		Role:     role,
		Tuning:   t,
		Reaction: time.Second,
		DeadZone: t.PaddleHeight / 5,
	}
}

// plane is the x of the ball center when it touches this paddle.
func (p *Predictor) plane() float64 {
	if p.Role == model.RolePlayer1 {
		return p.Tuning.PaddleWidth + p.Tuning.BallRadius
	}
	return p.Tuning.Width - p.Tuning.PaddleWidth - p.Tuning.BallRadius
}

// Decide returns the direction to hold now given the ball and the top of
// this paddle. The target is re-evaluated at most once per reaction
// interval.
func (p *Predictor) Decide(now time.Time, b Ball, paddleY float64) model.Direction {
	if !p.primed || !now.Before(p.nextEval) {
		p.target = PredictY(b, p.plane(), p.Tuning)
		p.nextEval = now.Add(p.Reaction)
		p.primed = true
	}

	mid := paddleY + p.Tuning.PaddleHeight/2
	switch {
	case mid < p.target-p.DeadZone:
		return model.DirDown
	case mid > p.target+p.DeadZone:
		return model.DirUp
	}
	return model.DirNone
}

// Target is the last predicted crossing point.
func (p *Predictor) Target() float64 {
	return p.target
}
