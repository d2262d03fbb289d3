package game

import "time"

// Tuning holds the playfield geometry and physics constants, in canvas units
// per tick at the simulation rate.
type Tuning struct {
	Width        float64
	Height       float64
	PaddleWidth  float64
	PaddleHeight float64
	BallRadius   float64
	PaddleSpeed  float64
	BaseSpeed    float64
	SpeedUp      float64 // rally multiplier growth per paddle contact
	MaxRally     float64
	MinFractionX float64
	WinScore     int
	ServeTicks   int
}

const (
	CanvasWidth   = 1000
	CanvasHeight  = 500
	DefaultTickHz = 60
)

// DefaultTuning matches the local and AI modes of the browser game.
func DefaultTuning() Tuning {
	return Tuning{
		Width:        CanvasWidth,
		Height:       CanvasHeight,
		PaddleWidth:  10,
		PaddleHeight: 100,
		BallRadius:   10,
		PaddleSpeed:  5,
		BaseSpeed:    5,
		SpeedUp:      1.05,
		MaxRally:     1.9,
		MinFractionX: 0.7,
		WinScore:     5,
		ServeTicks:   DefaultTickHz,
	}
}

// WithServeDelay converts a wall-clock serve delay into ticks at tickHz.
func (t Tuning) WithServeDelay(d time.Duration, tickHz int) Tuning {
	t.ServeTicks = int(d.Seconds() * float64(tickHz))
	return t
}

// MaxPaddleY is the largest legal paddle offset.
func (t Tuning) MaxPaddleY() float64 {
	return t.Height - t.PaddleHeight
}
