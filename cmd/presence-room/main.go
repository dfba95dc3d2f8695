// Command presence-room is a reference presence client.
//
// This command joins a presence channel and maintains the live roster
// of who is online and who is typing. It demonstrates:
//   - CLI argument parsing with config file and environment overrides
//   - Both transports: the in-memory hub and a live realtime socket
//   - Throttled presence and typing publishing
//   - Simulated peers for local experiments
//   - Event capture to a .plog file for offline analysis
//
// Usage:
//
//	presence-room [flags]
//
// Flags:
//
//	-config string       Configuration file path (YAML)
//	-url string          Realtime websocket URL (empty = in-memory hub)
//	-api-key string      API key appended to the socket URL
//	-token string        Access token (JWT) for the realtime transport
//	-channel string      Channel to join (default "lobby")
//	-user-id string      Presence key (auto-generated if empty)
//	-user-name string    Display name (defaults to the user id)
//	-user-image string   Avatar URL
//	-room-id string      Room scope inside the channel
//	-kind string         Participant kind: user, agent (default "user")
//	-capture string      Write capture events to this .plog file
//	-sim-peers int       Number of simulated peers (hub transport only)
//	-presence-throttle-ms int   Presence publish throttle window
//	-typing-throttle-ms int     Typing broadcast throttle window
//	-presence-expiry-ms int     Presence staleness window
//	-typing-stale-ms int        Typing staleness window
//	-log-level string    Log level: debug, info, warn, error (default "info")
//	-interactive         Enable interactive command mode
//
// Examples:
//
//	# Local experiment: in-memory hub with three simulated peers
//	presence-room -interactive -sim-peers 3
//
//	# Join a live realtime channel
//	presence-room -url wss://proj.example.co/realtime/v1/websocket \
//	    -api-key $KEY -token $JWT -channel room-7 -user-id u-42 -user-name Ada
//
//	# Record everything for later inspection with presence-log
//	presence-room -sim-peers 5 -capture session.plog
//
// Interactive Commands:
//
//	who                 - Show the online roster
//	typing              - Show who is typing
//	type on|off         - Broadcast the local typing state
//	publish             - Publish the local presence record
//	bg / fg             - Simulate visibility hidden / visible
//	watch on|off        - Print roster changes as they happen
//	sim start|stop      - Control the simulated peers
//	status              - Show session status
//	quit                - Exit
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asrayaos/presence-go/cmd/presence-room/interactive"
	plog "github.com/asrayaos/presence-go/pkg/log"
	"github.com/asrayaos/presence-go/pkg/realtime"
	"github.com/asrayaos/presence-go/pkg/session"
	"github.com/asrayaos/presence-go/pkg/transport"
	"github.com/asrayaos/presence-go/pkg/wire"
)

var config Config

func init() {
	flag.StringVar(&config.ConfigFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&flagValues.URL, "url", "", "Realtime websocket URL (empty = in-memory hub)")
	flag.StringVar(&flagValues.APIKey, "api-key", "", "API key appended to the socket URL")
	flag.StringVar(&flagValues.Token, "token", "", "Access token (JWT) for the realtime transport")
	flag.StringVar(&flagValues.Channel, "channel", "lobby", "Channel to join")
	flag.StringVar(&flagValues.UserID, "user-id", "", "Presence key (auto-generated if empty)")
	flag.StringVar(&flagValues.UserName, "user-name", "", "Display name (defaults to the user id)")
	flag.StringVar(&flagValues.UserImage, "user-image", "", "Avatar URL")
	flag.StringVar(&flagValues.RoomID, "room-id", "", "Room scope inside the channel")
	flag.StringVar(&flagValues.Kind, "kind", "user", "Participant kind: user, agent")
	flag.StringVar(&flagValues.CapturePath, "capture", "", "Write capture events to this .plog file")
	flag.IntVar(&flagValues.SimPeers, "sim-peers", 0, "Number of simulated peers (hub transport only)")
	flag.IntVar(&flagValues.PresenceThrottleMs, "presence-throttle-ms", 0, "Presence publish throttle window in ms")
	flag.IntVar(&flagValues.TypingThrottleMs, "typing-throttle-ms", 0, "Typing broadcast throttle window in ms")
	flag.IntVar(&flagValues.PresenceExpiryMs, "presence-expiry-ms", 0, "Presence staleness window in ms")
	flag.IntVar(&flagValues.TypingStaleMs, "typing-stale-ms", 0, "Typing staleness window in ms")
	flag.StringVar(&flagValues.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.BoolVar(&config.Interactive, "interactive", false, "Enable interactive command mode")
}

func main() {
	flag.Parse()

	if err := resolveConfig(&config); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	setupLogging(config.LogLevel)

	log.Println("Presence Room")
	log.Println("=============")
	log.Printf("Channel: %s", config.Channel)
	log.Printf("User: %s (%s)", config.UserID, config.Kind)
	if config.URL != "" {
		log.Printf("Transport: realtime socket %s", config.URL)
	} else {
		log.Printf("Transport: in-memory hub")
	}

	kind, err := parseKind(config.Kind)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	slogger := newSlogger(config.LogLevel)

	// Capture sink
	capture, closeCapture, err := buildCapture(config.CapturePath)
	if err != nil {
		log.Fatalf("Failed to open capture file: %v", err)
	}
	defer closeCapture()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Transport: hub by default, realtime socket when a URL is given
	var tr transport.Transport
	var hub *transport.Hub
	var client *realtime.Client

	if config.URL == "" {
		hub = transport.NewHub()
		hub.SetLogger(slogger)
		tr = hub
	} else {
		client, err = realtime.NewClient(realtime.Config{
			URL:       config.URL,
			APIKey:    config.APIKey,
			AuthToken: config.Token,
			Logger:    slogger,
		})
		if err != nil {
			log.Fatalf("Failed to create realtime client: %v", err)
		}
		if err := client.Connect(ctx); err != nil {
			log.Fatalf("Failed to connect: %v", err)
		}
		log.Printf("Socket connected (state: %s)", client.State())
		tr = client
	}

	sess, err := session.New(tr, session.Config{
		ChannelName: config.Channel,
		Identity: wire.PresenceMeta{
			Kind:   kind,
			ID:     config.UserID,
			Name:   config.UserName,
			Image:  config.UserImage,
			RoomID: config.RoomID,
		},
		PresenceThrottle: time.Duration(config.PresenceThrottleMs) * time.Millisecond,
		TypingThrottle:   time.Duration(config.TypingThrottleMs) * time.Millisecond,
		PresenceExpiry:   time.Duration(config.PresenceExpiryMs) * time.Millisecond,
		TypingStale:      time.Duration(config.TypingStaleMs) * time.Millisecond,
		Logger:           slogger,
		Capture:          capture,
	})
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}

	sess.OnStateChange(func(old, next session.State) {
		log.Printf("[EVENT] Session %s -> %s", old, next)
	})
	if !config.Interactive {
		sess.OnChange(func() {
			log.Printf("[EVENT] Roster: %d online, %d typing",
				sess.Roster().Count(), sess.Roster().TypingCount())
		})
	}

	if err := sess.Start(ctx); err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}

	// Simulated peers need the hub: the realtime transport allows one
	// join per topic per socket.
	var peers *peerSim
	if config.SimPeers > 0 {
		if hub == nil {
			log.Printf("Warning: -sim-peers requires the in-memory hub, ignoring")
		} else {
			peers = newPeerSim(hub, config.Channel, config.RoomID, config.SimPeers)
			peers.Start()
		}
	}

	// Run interactive mode or wait for signal
	if config.Interactive {
		var sim interactive.Simulator
		if peers != nil {
			sim = peers
		}
		ic, err := interactive.New(sess, &config, sim)
		if err != nil {
			log.Fatalf("Failed to create interactive mode: %v", err)
		}
		// Redirect log output through readline to avoid interfering with input
		log.SetOutput(ic.Stdout())
		go ic.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal: %v", sig)
	case <-ctx.Done():
		// Context was cancelled (e.g., by the interactive quit command)
	}

	log.Println("Shutting down...")

	if peers != nil {
		peers.Stop()
	}
	sess.Stop()
	if client != nil {
		if err := client.Close(); err != nil {
			log.Printf("Error closing socket: %v", err)
		}
	}
	if hub != nil {
		hub.Close()
	}

	log.Println("Goodbye!")
}

func setupLogging(level string) {
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	switch level {
	case "debug":
		log.SetFlags(log.Ltime | log.Lmicroseconds | log.Lshortfile)
	case "warn", "error":
		log.SetFlags(log.Ltime)
	}
}

// newSlogger builds the structured logger handed to the library
// packages. CLI output stays on the standard log package.
func newSlogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func parseKind(s string) (wire.ParticipantKind, error) {
	switch s {
	case "user", "":
		return wire.KindUser, nil
	case "agent":
		return wire.KindAgent, nil
	default:
		return "", fmt.Errorf("unknown participant kind: %s (use: user, agent)", s)
	}
}

// buildCapture opens the capture sink. The returned close function is
// always safe to call.
func buildCapture(path string) (plog.Logger, func(), error) {
	if path == "" {
		return plog.NoopLogger{}, func() {}, nil
	}
	fl, err := plog.NewFileLogger(path)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("Capturing events to %s", path)
	return fl, func() {
		if err := fl.Close(); err != nil {
			log.Printf("Error closing capture file: %v", err)
		}
	}, nil
}
