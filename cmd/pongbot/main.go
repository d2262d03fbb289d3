// Command pongbot plays remote matches with the predicting paddle AI. It is
// handy as a sparring partner and for load testing a server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pongarena/internal/ai"
	"pongarena/internal/client"
	"pongarena/internal/game"
	"pongarena/internal/model"

	"github.com/decred/slog"
)

var (
	serverURL = flag.String("server", "http://localhost:8080", "pongarena server base URL")
	botName   = flag.String("name", "pongbot", "display name")
	sessionID = flag.String("session", "", "join this session instead of matchmaking")
	matches   = flag.Int("matches", 1, "matches to play before exiting (0 plays forever)")
	reaction  = flag.Duration("reaction", time.Second, "how often the bot re-reads the ball")
	logLevel  = flag.String("loglevel", "info", "log level")
)

const steerInterval = time.Second / 60

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	backend := slog.NewBackend(os.Stderr)
	level, ok := slog.LevelFromString(*logLevel)
	if !ok {
		level = slog.LevelInfo
	}
	log := backend.Logger("BOT")
	log.SetLevel(level)
	connLog := backend.Logger("CONN")
	connLog.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.NewAPI(*serverURL)
	me, err := api.Login(ctx, *botName)
	if err != nil {
		return err
	}
	log.Infof("Logged in as %s (%s)", me.Name, me.PlayerID)

	for n := 1; *matches == 0 || n <= *matches; n++ {
		id := *sessionID
		if id == "" || n > 1 {
			ref, err := api.FindMatch(ctx)
			if err != nil {
				return err
			}
			id = ref.SessionID
		} else if _, err := api.JoinMatch(ctx, id); err != nil {
			return err
		}

		log.Infof("Match %d: session %s", n, id)
		err := play(ctx, api.MatchURL(id), id, log, connLog)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("match %d: %w", n, err)
		}
	}
	return nil
}

// play runs one match to completion, readying up as soon as an opponent
// arrives.
func play(ctx context.Context, url, sessionID string, log, connLog slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := client.NewMatch(url, sessionID, client.MatchConfig{
		Conn: client.ConnConfig{Log: connLog},
		Log:  log,
	})
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	tuning := game.DefaultTuning()
	var pred *ai.Predictor
	steer := time.NewTicker(steerInterval)
	defer steer.Stop()

	for {
		select {
		case e, ok := <-m.Events():
			if !ok {
				err := <-done
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
			switch e.Kind {
			case client.EventRole:
				if e.CanStart {
					if err := m.Ready(); err != nil {
						log.Warnf("ready: %v", err)
					}
				}
			case client.EventStart:
				pred = ai.New(m.Role(), tuning)
				pred.Reaction = *reaction
				log.Infof("%s vs %s, playing as %s", e.Start.Player1Name, e.Start.Player2Name, m.Role())
			case client.EventEnd:
				log.Infof("Match over: %d-%d, %s wins", e.End.Player1Score, e.End.Player2Score, e.End.Winner)
				pred = nil
			case client.EventAbandoned:
				log.Infof("Match abandoned: %s", e.Message)
				pred = nil
			case client.EventError:
				log.Warnf("server: %s", e.Message)
			}

		case now := <-steer.C:
			if pred == nil || m.Status() != model.SessionActive {
				continue
			}
			f, ok := m.Renderer().Frame()
			if !ok {
				continue
			}
			dx, dy, _ := m.Renderer().Motion()
			paddleY := f.Paddle1Y
			if m.Role() == model.RolePlayer2 {
				paddleY = f.Paddle2Y
			}
			dir := pred.Decide(now, ai.Ball{X: f.BallX, Y: f.BallY, DX: dx, DY: dy}, paddleY)
			m.Relay().Hold(dir)
		}
	}
}
