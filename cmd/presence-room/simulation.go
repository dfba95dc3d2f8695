package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/asrayaos/presence-go/pkg/session"
	"github.com/asrayaos/presence-go/pkg/transport"
	"github.com/asrayaos/presence-go/pkg/wire"
)

// peerSim runs a set of simulated agent peers on the in-memory hub.
// Each peer is a full session on the same channel, so the local roster
// sees real syncs, typing broadcasts and occasional churn.
type peerSim struct {
	hub     *transport.Hub
	channel string
	roomID  string

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	peers   []*session.Session
	serial  int
	rng     *rand.Rand
}

func newPeerSim(hub *transport.Hub, channel, roomID string, count int) *peerSim {
	s := &peerSim{
		hub:     hub,
		channel: channel,
		roomID:  roomID,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	s.mu.Lock()
	for i := 0; i < count; i++ {
		s.addPeerLocked()
	}
	s.mu.Unlock()
	return s
}

// Start begins the simulation loop. No-op while already running.
func (s *peerSim) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true
	go s.run(ctx)
	log.Printf("[SIM] %d simulated peers running", len(s.peers))
}

// Stop halts the loop and disconnects every peer.
func (s *peerSim) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.cancel = nil
	peers := s.peers
	s.peers = nil
	s.mu.Unlock()

	cancel()
	for _, p := range peers {
		p.Stop()
	}
	log.Printf("[SIM] simulated peers stopped")
}

// Running reports whether the simulation loop is active.
func (s *peerSim) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Count returns the number of live simulated peers.
func (s *peerSim) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// addPeerLocked creates and starts one new peer session. Callers hold
// s.mu.
func (s *peerSim) addPeerLocked() {
	s.serial++
	id := fmt.Sprintf("sim-%02d", s.serial)

	sess, err := session.New(s.hub, session.Config{
		ChannelName: s.channel,
		Identity: wire.PresenceMeta{
			Kind:   wire.KindAgent,
			ID:     id,
			Name:   fmt.Sprintf("Sim Peer %d", s.serial),
			RoomID: s.roomID,
		},
		// Lively timings so the roster visibly moves
		PresenceThrottle: 2 * time.Second,
		TypingThrottle:   500 * time.Millisecond,
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		log.Printf("[SIM] failed to create peer %s: %v", id, err)
		return
	}
	if err := sess.Start(context.Background()); err != nil {
		log.Printf("[SIM] failed to start peer %s: %v", id, err)
		return
	}
	s.peers = append(s.peers, sess)
}

// run drives random peer activity until the context is cancelled.
func (s *peerSim) run(ctx context.Context) {
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick performs one round of random activity: mostly typing toggles
// and presence publishes, with occasional peer churn.
func (s *peerSim) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || len(s.peers) == 0 {
		return
	}

	idx := s.rng.Intn(len(s.peers))
	peer := s.peers[idx]

	switch roll := s.rng.Intn(10); {
	case roll < 5:
		peer.SetTyping(s.rng.Intn(2) == 0)
	case roll < 8:
		peer.PublishPresence()
	default:
		// Churn: replace this peer so the roster sees a leave and a
		// fresh join.
		peer.Stop()
		s.peers = append(s.peers[:idx], s.peers[idx+1:]...)
		s.addPeerLocked()
		log.Printf("[SIM] peer churn: one peer left, one joined (%d live)", len(s.peers))
	}
}
