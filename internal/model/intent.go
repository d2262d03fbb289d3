package model

import "fmt"

type Direction string

const (
	DirNone Direction = "none"
	DirUp   Direction = "up"
	DirDown Direction = "down"
)

// Sign returns -1 for up, 1 for down and 0 otherwise (canvas y grows downward).
func (d Direction) Sign() float64 {
	switch d {
	case DirUp:
		return -1
	case DirDown:
		return 1
	}
	return 0
}

type MoveAction string

const (
	MoveStart MoveAction = "start"
	MoveStop  MoveAction = "stop"
)

// Intent is the latest known movement direction for one player.
type Intent struct {
	Direction Direction
	Seq       uint64
}

// ParseMove validates a paddle_move direction/action pair.
func ParseMove(direction, action string) (Direction, MoveAction, error) {
	d := Direction(direction)
	if d != DirUp && d != DirDown {
		return DirNone, "", fmt.Errorf("invalid direction %q", direction)
	}
	a := MoveAction(action)
	if a != MoveStart && a != MoveStop {
		return DirNone, "", fmt.Errorf("invalid action %q", action)
	}
	return d, a, nil
}

// Apply folds a start/stop transition into the intent. Starting the held
// direction again leaves the intent unchanged; stopping a direction that is
// not held is a no-op.
func (in Intent) Apply(d Direction, a MoveAction, seq uint64) Intent {
	if seq != 0 && seq < in.Seq {
		return in
	}
	out := in
	if seq != 0 {
		out.Seq = seq
	}
	switch a {
	case MoveStart:
		out.Direction = d
	case MoveStop:
		if in.Direction == d {
			out.Direction = DirNone
		}
	}
	return out
}
