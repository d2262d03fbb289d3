package main

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"pongarena/internal/client"
	"pongarena/internal/game"
	"pongarena/internal/model"

	tea "github.com/charmbracelet/bubbletea"
)

const frameInterval = time.Second / 30

type frameMsg time.Time

type eventMsg client.Event

type closedMsg struct{}

type ui struct {
	match  *client.Match
	cancel context.CancelFunc
	name   string
	tuning game.Tuning

	width  int
	height int
	notice string
	conn   client.ConnState
	ready  bool
	over   bool

	// written by the relay, which may run on its auto-release timer
	sendMu  sync.Mutex
	sendErr error
}

func newUI(match *client.Match, cancel context.CancelFunc, name string) *ui {
	u := &ui{
		match:  match,
		cancel: cancel,
		name:   name,
		tuning: game.DefaultTuning(),
		notice: "Connecting...",
	}
	match.Relay().OnError(u.noteSendError)
	return u
}

func (u *ui) noteSendError(err error) {
	u.sendMu.Lock()
	u.sendErr = err
	u.sendMu.Unlock()
}

func (u *ui) lastSendError() error {
	u.sendMu.Lock()
	defer u.sendMu.Unlock()
	return u.sendErr
}

func (u *ui) Init() tea.Cmd {
	return tea.Batch(u.waitForEvent(), nextFrame())
}

func nextFrame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (u *ui) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		e, ok := <-u.match.Events()
		if !ok {
			return closedMsg{}
		}
		return eventMsg(e)
	}
}

func (u *ui) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		u.width, u.height = msg.Width, msg.Height
		return u, nil
	case frameMsg:
		if u.over {
			return u, nil
		}
		return u, nextFrame()
	case eventMsg:
		u.apply(client.Event(msg))
		return u, u.waitForEvent()
	case closedMsg:
		u.over = true
		u.notice += "  Press q to exit."
		return u, nil
	case tea.KeyMsg:
		return u, u.key(msg)
	}
	return u, nil
}

func (u *ui) key(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyCtrlC {
		u.cancel()
		return tea.Quit
	}
	if u.over {
		if msg.String() == "q" || msg.Type == tea.KeyEsc {
			return tea.Quit
		}
		return nil
	}

	switch msg.String() {
	case "w", "up":
		u.match.Relay().Press(model.DirUp)
	case "s", "down":
		u.match.Relay().Press(model.DirDown)
	case " ":
		u.match.Relay().Hold(model.DirNone)
	case "r", "enter":
		if u.match.Status() != model.SessionReadyCheck || u.ready {
			return nil
		}
		if err := u.match.Ready(); err != nil {
			u.notice = fmt.Sprintf("Could not signal ready: %v", err)
			return nil
		}
		u.ready = true
		u.notice = "You are ready. Waiting for your opponent..."
	case "q":
		var err error
		if u.match.Status() == model.SessionWaiting {
			err = u.match.CancelWaiting()
		} else {
			err = u.match.Leave("left")
		}
		if err != nil {
			// nothing reaches the server; stop locally
			u.cancel()
			return tea.Quit
		}
	}
	return nil
}

func (u *ui) apply(e client.Event) {
	switch e.Kind {
	case client.EventWaiting:
		u.notice = "Waiting for an opponent to join..."
	case client.EventRole:
		if e.CanStart && !u.ready {
			u.notice = fmt.Sprintf("Opponent found. You are %s. Press r when ready.", e.Role)
		}
	case client.EventOpponentReady:
		u.notice = "Your opponent is ready."
		if !u.ready {
			u.notice += " Press r to start."
		}
	case client.EventAllReady:
		u.notice = "Both players ready!"
	case client.EventStart:
		u.notice = fmt.Sprintf("%s vs %s  (w/s or arrows to move, q to forfeit)", e.Start.Player1Name, e.Start.Player2Name)
	case client.EventEnd:
		u.notice = u.result(e.End.Winner, e.End.Player1Score, e.End.Player2Score)
	case client.EventAbandoned:
		u.notice = e.Message
		if u.notice == "" {
			u.notice = "The match was abandoned."
		}
	case client.EventError:
		u.notice = "Server: " + e.Message
	case client.EventConnection:
		u.conn = e.Conn
		if e.Conn == client.StateConnected {
			u.noteSendError(nil)
		}
		if e.Conn == client.StateReconnecting {
			u.notice = fmt.Sprintf("Connection lost, reconnecting (attempt %d)...", e.Attempt)
		}
	case client.EventFailed:
		u.notice = fmt.Sprintf("Disconnected: %v.", e.Err)
	}
}

func (u *ui) result(winner model.Role, s1, s2 int) string {
	if winner == u.match.Role() {
		return fmt.Sprintf("You win %d-%d!", s1, s2)
	}
	return fmt.Sprintf("You lose %d-%d.", s1, s2)
}

func (u *ui) View() string {
	var b strings.Builder
	names := u.match.Names()
	fmt.Fprintf(&b, "pongarena  %s  [%s]\n", u.name, u.conn)

	if f, ok := u.match.Renderer().Frame(); ok {
		left, right := names[0], names[1]
		fmt.Fprintf(&b, "%s %d - %d %s\n", left, f.Player1Score, f.Player2Score, right)
		b.WriteString(drawField(f, u.tuning, u.width, u.height-4))
	}

	b.WriteString("\n" + u.notice + "\n")
	if err := u.lastSendError(); err != nil {
		fmt.Fprintf(&b, "Paddle input not delivered: %v\n", err)
	}
	return b.String()
}

// drawField rasterises a frame into at most cols x rows cells.
func drawField(f client.Frame, t game.Tuning, cols, rows int) string {
	if cols <= 2 || rows <= 2 {
		cols, rows = 80, 24
	}
	scale := math.Min(float64(cols-2)/t.Width, float64(rows-2)/t.Height)
	w := int(t.Width * scale)
	h := int(t.Height * scale)
	if w < 4 || h < 4 {
		return ""
	}

	cell := func(v float64, max int) int {
		c := int(math.Round(v * scale))
		if c < 0 {
			return 0
		}
		if c >= max {
			return max - 1
		}
		return c
	}
	bx, by := cell(f.BallX, w), cell(f.BallY, h)
	p1Top, p1Bot := cell(f.Paddle1Y, h), cell(f.Paddle1Y+t.PaddleHeight, h)
	p2Top, p2Bot := cell(f.Paddle2Y, h), cell(f.Paddle2Y+t.PaddleHeight, h)

	var b strings.Builder
	b.WriteString("+" + strings.Repeat("-", w) + "+\n")
	for y := 0; y < h; y++ {
		b.WriteByte('|')
		for x := 0; x < w; x++ {
			switch {
			case x == bx && y == by:
				b.WriteByte('O')
			case x == 0 && y >= p1Top && y <= p1Bot:
				b.WriteByte('#')
			case x == w-1 && y >= p2Top && y <= p2Bot:
				b.WriteByte('#')
			case x == w/2:
				b.WriteByte(':')
			default:
				b.WriteByte(' ')
			}
		}
		b.WriteString("|\n")
	}
	b.WriteString("+" + strings.Repeat("-", w) + "+\n")
	return b.String()
}
