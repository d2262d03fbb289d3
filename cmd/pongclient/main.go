package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"pongarena/internal/client"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/decred/slog"
)

var (
	serverURL      = flag.String("server", "http://localhost:8080", "pongarena server base URL")
	playerName     = flag.String("name", "", "display name (required)")
	sessionID      = flag.String("session", "", "join this session instead of matchmaking")
	reconnectDelay = flag.Duration("reconnect-delay", 3*time.Second, "wait between reconnect attempts")
	maxAttempts    = flag.Int("reconnect-attempts", 5, "reconnect attempts before giving up")
	pingInterval   = flag.Duration("ping", 5*time.Second, "heartbeat interval")
	autoRelease    = flag.Duration("key-release", 500*time.Millisecond, "release a paddle key when it stops repeating for this long")
	logFile        = flag.String("logfile", "", "write logs to this file (the terminal is taken by the UI)")
	logLevel       = flag.String("loglevel", "info", "log level")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()
	if *playerName == "" {
		return errors.New("missing -name")
	}

	var out io.Writer = io.Discard
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		out = f
	}
	backend := slog.NewBackend(out)
	level, ok := slog.LevelFromString(*logLevel)
	if !ok {
		level = slog.LevelInfo
	}
	log := backend.Logger("PONG")
	log.SetLevel(level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := client.NewAPI(*serverURL)
	me, err := api.Login(ctx, *playerName)
	if err != nil {
		return err
	}
	log.Infof("Logged in as %s (%s)", me.Name, me.PlayerID)

	id := *sessionID
	if id == "" {
		ref, err := api.FindMatch(ctx)
		if err != nil {
			return err
		}
		id = ref.SessionID
	} else if _, err := api.JoinMatch(ctx, id); err != nil {
		return err
	}
	log.Infof("Session %s", id)

	match := client.NewMatch(api.MatchURL(id), id, client.MatchConfig{
		Conn: client.ConnConfig{
			ReconnectDelay: *reconnectDelay,
			MaxAttempts:    *maxAttempts,
			PingInterval:   *pingInterval,
			Log:            backend.Logger("CONN"),
		},
		AutoRelease: *autoRelease,
		Log:         log,
	})

	runErr := make(chan error, 1)
	go func() { runErr <- match.Run(ctx) }()

	p := tea.NewProgram(newUI(match, cancel, me.Name), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	cancel()

	err = <-runErr
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
