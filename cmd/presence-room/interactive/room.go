// Package interactive provides the interactive command-line interface
// for presence-room.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chzyer/readline"

	"github.com/asrayaos/presence-go/pkg/session"
	"github.com/asrayaos/presence-go/pkg/wire"
)

// RoomConfig provides configuration information to the interactive
// layer without depending on the main package's config structure.
type RoomConfig interface {
	// ChannelName returns the joined channel.
	ChannelName() string

	// Identity returns the local presence record.
	Identity() wire.PresenceMeta
}

// Simulator controls the simulated peers, when available.
type Simulator interface {
	Start()
	Stop()
	Running() bool
	Count() int
}

// Room handles interactive mode for presence-room.
type Room struct {
	sess   *session.Session
	config RoomConfig
	sim    Simulator
	rl     *readline.Instance

	// Live roster printing toggle
	watching atomic.Bool
}

// New creates a new interactive room handler.
func New(sess *session.Session, cfg RoomConfig, sim Simulator) (*Room, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "room> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	r := &Room{
		sess:   sess,
		config: cfg,
		sim:    sim,
		rl:     rl,
	}

	// Register roster handler for the watch command
	sess.OnChange(r.handleRosterChange)

	return r, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (r *Room) Stdout() io.Writer {
	return r.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (r *Room) Stderr() io.Writer {
	return r.rl.Stderr()
}

// Run starts the interactive command loop.
func (r *Room) Run(ctx context.Context, cancel context.CancelFunc) {
	defer r.rl.Close()

	r.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := r.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(r.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			r.printHelp()

		case "who", "w":
			r.cmdWho()

		case "typing":
			r.cmdTyping()

		case "type", "t":
			r.cmdType(args)

		case "publish", "p":
			r.cmdPublish()

		case "bg", "background":
			r.cmdBackground()

		case "fg", "foreground":
			r.cmdForeground()

		case "watch":
			r.cmdWatch(args)

		case "sim":
			r.cmdSim(args)

		case "status":
			r.cmdStatus()

		case "quit", "exit", "q":
			fmt.Fprintln(r.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(r.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (r *Room) printHelp() {
	fmt.Fprintln(r.rl.Stdout(), `
Presence Room Commands:
  Roster:
    who                - Show the online roster
    typing             - Show who is typing
    watch on|off       - Print roster changes as they happen

  Publishing:
    type on|off        - Broadcast the local typing state
    publish            - Publish the local presence record

  Lifecycle:
    bg                 - Background the session (sweeps pause)
    fg                 - Foreground the session (forced publish, sweeps resume)
    status             - Show session status

  Simulation:
    sim start|stop     - Control the simulated peers

  General:
    help               - Show this help
    quit               - Exit`)
}

// cmdWho prints the online roster.
func (r *Room) cmdWho() {
	entities := r.sess.Roster().Entities()
	if len(entities) == 0 {
		fmt.Fprintln(r.rl.Stdout(), "Nobody is online")
		return
	}

	fmt.Fprintf(r.rl.Stdout(), "\nOnline (%d):\n", len(entities))
	fmt.Fprintln(r.rl.Stdout(), "-------------------------------------------------------------")
	fmt.Fprintf(r.rl.Stdout(), "%-6s %-12s %-20s %-12s %s\n", "KIND", "ID", "NAME", "ROOM", "LAST SEEN")
	for _, e := range entities {
		room := e.RoomID
		if room == "" {
			room = "-"
		}
		fmt.Fprintf(r.rl.Stdout(), "%-6s %-12s %-20s %-12s %s\n",
			e.Kind, e.ID, e.Name, room, e.LastActive.Format("15:04:05"))
	}
	fmt.Fprintln(r.rl.Stdout())
}

// cmdTyping prints the active typing states.
func (r *Room) cmdTyping() {
	states := r.sess.Roster().TypingStates()
	if len(states) == 0 {
		fmt.Fprintln(r.rl.Stdout(), "Nobody is typing")
		return
	}

	fmt.Fprintf(r.rl.Stdout(), "\nTyping (%d):\n", len(states))
	fmt.Fprintf(r.rl.Stdout(), "%-12s %-12s %s\n", "USER", "ROOM", "SINCE")
	for _, ts := range states {
		room := ts.RoomID
		if room == "" {
			room = "-"
		}
		fmt.Fprintf(r.rl.Stdout(), "%-12s %-12s %s\n", ts.UserID, room, ts.LastSignal.Format("15:04:05"))
	}
	fmt.Fprintln(r.rl.Stdout())
}

// cmdType broadcasts the local typing state.
func (r *Room) cmdType(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(r.rl.Stdout(), "Usage: type on|off")
		return
	}

	switch strings.ToLower(args[0]) {
	case "on":
		r.sess.SetTyping(true)
		fmt.Fprintln(r.rl.Stdout(), "Typing on")
	case "off":
		r.sess.SetTyping(false)
		fmt.Fprintln(r.rl.Stdout(), "Typing off")
	default:
		fmt.Fprintln(r.rl.Stdout(), "Usage: type on|off")
	}
}

// cmdPublish publishes the local presence record.
func (r *Room) cmdPublish() {
	r.sess.PublishPresence()
	fmt.Fprintln(r.rl.Stdout(), "Presence publish requested (one send per throttle window)")
}

// cmdBackground simulates the app going hidden.
func (r *Room) cmdBackground() {
	r.sess.Background()
	fmt.Fprintf(r.rl.Stdout(), "Session state: %s\n", r.sess.State())
}

// cmdForeground simulates the app becoming visible again.
func (r *Room) cmdForeground() {
	r.sess.Foreground()
	fmt.Fprintf(r.rl.Stdout(), "Session state: %s\n", r.sess.State())
}

// cmdWatch toggles live roster printing.
func (r *Room) cmdWatch(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(r.rl.Stdout(), "Watching: %v (usage: watch on|off)\n", r.watching.Load())
		return
	}

	switch strings.ToLower(args[0]) {
	case "on":
		r.watching.Store(true)
		fmt.Fprintln(r.rl.Stdout(), "Watching roster changes")
	case "off":
		r.watching.Store(false)
		fmt.Fprintln(r.rl.Stdout(), "Watch off")
	default:
		fmt.Fprintln(r.rl.Stdout(), "Usage: watch on|off")
	}
}

// cmdSim controls the simulated peers.
func (r *Room) cmdSim(args []string) {
	if r.sim == nil {
		fmt.Fprintln(r.rl.Stdout(), "No simulated peers (start with -sim-peers on the hub transport)")
		return
	}

	if len(args) < 1 {
		state := "stopped"
		if r.sim.Running() {
			state = "running"
		}
		fmt.Fprintf(r.rl.Stdout(), "Simulation %s, %d peers (usage: sim start|stop)\n", state, r.sim.Count())
		return
	}

	switch strings.ToLower(args[0]) {
	case "start":
		if r.sim.Running() {
			fmt.Fprintln(r.rl.Stdout(), "Simulation already running")
			return
		}
		r.sim.Start()
		fmt.Fprintln(r.rl.Stdout(), "Simulation started")
	case "stop":
		if !r.sim.Running() {
			fmt.Fprintln(r.rl.Stdout(), "Simulation not running")
			return
		}
		r.sim.Stop()
		fmt.Fprintln(r.rl.Stdout(), "Simulation stopped")
	default:
		fmt.Fprintln(r.rl.Stdout(), "Usage: sim start|stop")
	}
}

// cmdStatus shows the session status.
func (r *Room) cmdStatus() {
	identity := r.config.Identity()

	fmt.Fprintln(r.rl.Stdout(), "\nSession Status")
	fmt.Fprintln(r.rl.Stdout(), "-------------------------------------------")
	fmt.Fprintf(r.rl.Stdout(), "  Channel:       %s\n", r.config.ChannelName())
	fmt.Fprintf(r.rl.Stdout(), "  Identity:      %s (%s)\n", identity.ID, identity.Kind)
	fmt.Fprintf(r.rl.Stdout(), "  State:         %s\n", r.sess.State())
	fmt.Fprintf(r.rl.Stdout(), "  Online:        %d\n", r.sess.Roster().Count())
	fmt.Fprintf(r.rl.Stdout(), "  Typing:        %d\n", r.sess.Roster().TypingCount())

	if r.sim != nil {
		simStatus := "stopped"
		if r.sim.Running() {
			simStatus = "running"
		}
		fmt.Fprintf(r.rl.Stdout(), "  Simulation:    %s (%d peers)\n", simStatus, r.sim.Count())
	}

	fmt.Fprintf(r.rl.Stdout(), "  Watching:      %v\n", r.watching.Load())
	fmt.Fprintln(r.rl.Stdout())
}

// handleRosterChange prints roster updates when watching is on.
func (r *Room) handleRosterChange() {
	if !r.watching.Load() {
		return
	}

	fmt.Fprintf(r.rl.Stdout(), "\n[%s] roster: %d online, %d typing\n",
		time.Now().Format("15:04:05"),
		r.sess.Roster().Count(),
		r.sess.Roster().TypingCount())
	r.rl.Refresh()
}
