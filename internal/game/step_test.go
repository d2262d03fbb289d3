package game

import (
	"math"
	"math/rand"
	"testing"

	"pongarena/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

var directions = []model.Direction{model.DirNone, model.DirUp, model.DirDown}

func randomIntents(rng *rand.Rand) [2]model.Direction {
	return [2]model.Direction{directions[rng.Intn(3)], directions[rng.Intn(3)]}
}

func TestPaddlesStayInBounds(t *testing.T) {
	tun := DefaultTuning()
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		s := NewState(tun)
		s.Reset(tun, rng)
		in := randomIntents(rng)
		for tick := 0; tick < 5000 && !s.Over; tick++ {
			if rng.Intn(30) == 0 {
				in = randomIntents(rng)
			}
			Step(&s, tun, in, rng)
			for i, y := range s.Paddles {
				require.GreaterOrEqual(t, y, 0.0, "seed %d tick %d paddle %d", seed, tick, i)
				require.LessOrEqual(t, y, tun.MaxPaddleY(), "seed %d tick %d paddle %d", seed, tick, i)
			}
		}
	}
}

func TestBallSpeedNonDecreasingWithinRally(t *testing.T) {
	tun := DefaultTuning()
	baseline := tun.BaseSpeed * math.Sqrt2
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		s := NewState(tun)
		s.Reset(tun, rng)
		require.InDelta(t, baseline, s.Speed(), eps)

		last := s.Speed()
		hits := 0
		for tick := 0; tick < 20000 && !s.Over; tick++ {
			// paddles chase the ball so rallies actually happen
			var in [2]model.Direction
			for i := range in {
				c := s.Paddles[i] + tun.PaddleHeight/2
				if s.Ball.Y < c-5 {
					in[i] = model.DirUp
				} else if s.Ball.Y > c+5 {
					in[i] = model.DirDown
				}
			}
			if rng.Intn(4) == 0 {
				in = randomIntents(rng)
			}
			ev := Step(&s, tun, in, rng)
			if ev.Hit != model.RoleNone {
				hits++
			}
			switch {
			case ev.Ended:
			case ev.Scored != model.RoleNone:
				assert.InDelta(t, baseline, s.Speed(), eps, "speed resets on goal")
				assert.Equal(t, 1.0, s.Rally)
			default:
				assert.GreaterOrEqual(t, s.Speed()+eps, last, "seed %d tick %d", seed, tick)
			}
			last = s.Speed()
		}
		assert.Positive(t, hits, "seed %d produced no paddle contact", seed)
	}
}

func TestRallyMultiplierCapped(t *testing.T) {
	tun := DefaultTuning()
	s := NewState(tun)
	for i := 0; i < 100; i++ {
		s.Ball.Y = s.Paddles[0] + tun.PaddleHeight/2
		s.bounce(tun, 0)
	}
	assert.Equal(t, tun.MaxRally, s.Rally)
	assert.InDelta(t, tun.BaseSpeed*tun.MaxRally*math.Sqrt2, s.Speed(), eps)
}

func TestBounceAngle(t *testing.T) {
	tun := DefaultTuning()
	tests := []struct {
		name   string
		offset float64 // relative to paddle center, in half-heights
		wantFx float64
	}{
		{"center", 0, 1},
		{"half way", 0.5, 0.85},
		{"top edge", -1, 0.7},
		{"bottom edge", 1, 0.7},
		{"past edge", 1.2, 0.7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState(tun)
			s.Ball.Y = s.Paddles[1] + tun.PaddleHeight/2 + tt.offset*tun.PaddleHeight/2
			s.bounce(tun, 1)
			speed := tun.BaseSpeed * s.Rally
			assert.InDelta(t, -tt.wantFx*speed, s.Vel.X, 1e-6)
			if tt.offset < 0 {
				assert.Negative(t, s.Vel.Y)
			} else {
				assert.Positive(t, s.Vel.Y)
			}
			frac := math.Abs(s.Vel.X) / speed
			assert.GreaterOrEqual(t, frac, 0.7-eps)
			assert.LessOrEqual(t, frac, 1+eps)
		})
	}
}

func TestWallReflectionPreservesMagnitude(t *testing.T) {
	tun := DefaultTuning()
	tun.ServeTicks = 0
	s := NewState(tun)
	s.Ball = Vec2{500, tun.BallRadius + 1}
	s.Vel = Vec2{3, -4}
	Step(&s, tun, [2]model.Direction{}, rand.New(rand.NewSource(1)))
	assert.Equal(t, 4.0, s.Vel.Y)
	assert.Equal(t, 3.0, s.Vel.X)

	s.Ball = Vec2{500, tun.Height - tun.BallRadius - 1}
	s.Vel = Vec2{3, 4}
	Step(&s, tun, [2]model.Direction{}, rand.New(rand.NewSource(1)))
	assert.Equal(t, -4.0, s.Vel.Y)
}

func TestServeDelayHoldsBall(t *testing.T) {
	tun := DefaultTuning()
	rng := rand.New(rand.NewSource(7))
	s := NewState(tun)
	s.Reset(tun, rng)
	center := s.Ball
	for i := 0; i < tun.ServeTicks; i++ {
		Step(&s, tun, [2]model.Direction{model.DirUp, model.DirDown}, rng)
		require.Equal(t, center, s.Ball)
	}
	assert.Less(t, s.Paddles[0], NewState(tun).Paddles[0], "paddles move during the serve delay")
	Step(&s, tun, [2]model.Direction{}, rng)
	assert.NotEqual(t, center, s.Ball)
}

// missRight places the ball just short of player2's goal with player2's
// paddle out of the way.
func missRight(s *State, tun Tuning) {
	s.ServeTicks = 0
	s.Paddles[1] = 0
	s.Ball = Vec2{tun.Width - tun.PaddleWidth - tun.BallRadius - 1, tun.Height - 20}
	s.Vel = Vec2{tun.BaseSpeed * 4, 0}
}

func TestGoalScoresAndServes(t *testing.T) {
	tun := DefaultTuning()
	rng := rand.New(rand.NewSource(3))
	s := NewState(tun)
	s.Reset(tun, rng)
	s.Rally = 1.5

	missRight(&s, tun)
	var ev Event
	for i := 0; i < 10 && ev.Scored == model.RoleNone; i++ {
		ev = Step(&s, tun, [2]model.Direction{}, rng)
	}
	assert.Equal(t, model.RolePlayer1, ev.Scored)
	assert.Equal(t, [2]int{1, 0}, s.Scores)
	assert.Equal(t, Vec2{tun.Width / 2, tun.Height / 2}, s.Ball)
	assert.Equal(t, tun.ServeTicks, s.ServeTicks)
	assert.Equal(t, 1.0, s.Rally)
	assert.False(t, s.Over)
}

func TestWinnerIsFirstToThreshold(t *testing.T) {
	tun := DefaultTuning()
	for seed := int64(1); seed <= 10; seed++ {
		rng := rand.New(rand.NewSource(seed))
		s := NewState(tun)
		s.Reset(tun, rng)
		var ended Event
		for tick := 0; tick < 200000 && !s.Over; tick++ {
			ev := Step(&s, tun, randomIntents(rng), rng)
			for _, sc := range s.Scores {
				require.LessOrEqual(t, sc, tun.WinScore)
			}
			if ev.Ended {
				ended = ev
			}
		}
		require.True(t, s.Over, "seed %d never finished", seed)
		assert.Equal(t, tun.WinScore, s.Scores[s.Winner.Index()])
		assert.Less(t, s.Scores[s.Winner.Other().Index()], tun.WinScore)
		assert.Equal(t, ended.Scored, s.Winner)

		frozen := s
		Step(&s, tun, [2]model.Direction{model.DirUp, model.DirUp}, rng)
		assert.Equal(t, frozen, s, "finished state does not change")
	}
}
