package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/asrayaos/presence-go/pkg/transport"
	"github.com/asrayaos/presence-go/pkg/wire"
)

// Socket errors.
var (
	ErrSocketClosed     = errors.New("socket closed")
	ErrAlreadyConnected = errors.New("already connected")
	ErrNotConnected     = errors.New("not connected")
	ErrTopicJoined      = errors.New("topic already joined")
	ErrJoinTimeout      = errors.New("channel join timed out")
	ErrJoinRejected     = errors.New("channel join rejected")

	errHeartbeatLost = errors.New("heartbeat not acknowledged")
)

// Default socket timings.
const (
	// DefaultHeartbeatInterval matches the probe cadence of the hosted
	// realtime servers, which drop a client after two missed probes.
	DefaultHeartbeatInterval = 30 * time.Second

	// DefaultJoinTimeout bounds how long a channel waits for its join
	// reply before reporting a timed out subscription.
	DefaultJoinTimeout = 10 * time.Second

	DefaultWriteTimeout = 10 * time.Second
	DefaultDialTimeout  = 10 * time.Second
)

// maxMissedHeartbeats is how many consecutive unanswered probes the
// client tolerates before declaring the socket dead, mirroring the
// server's own drop threshold.
const maxMissedHeartbeats = 2

// State represents the socket connection state.
type State uint8

const (
	// StateDisconnected indicates no socket has been dialed yet.
	StateDisconnected State = iota

	// StateConnecting indicates a dial is in progress.
	StateConnecting

	// StateConnected indicates an established socket.
	StateConnected

	// StateReconnecting indicates the socket was lost and automatic
	// reconnection is in progress.
	StateReconnecting

	// StateClosed indicates the client has been closed.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Config configures a realtime Client.
type Config struct {
	// URL is the websocket endpoint, for example
	// wss://project.example.com/realtime/v1/websocket. http and https
	// schemes are rewritten to their websocket equivalents.
	URL string

	// APIKey is appended to the endpoint query string when set.
	APIKey string

	// AuthToken is the initial access token. It can be rotated later
	// with SetAuth.
	AuthToken string

	// HeartbeatInterval is the probe cadence. Defaults to
	// DefaultHeartbeatInterval.
	HeartbeatInterval time.Duration

	// JoinTimeout bounds each channel join. Defaults to
	// DefaultJoinTimeout.
	JoinTimeout time.Duration

	WriteTimeout time.Duration
	DialTimeout  time.Duration

	// Logger receives connection lifecycle logs. Defaults to a
	// discarding logger.
	Logger *slog.Logger
}

// Client is a Phoenix-framed websocket transport. One reader goroutine
// decodes inbound frames, a write mutex serializes outbound frames, and
// a heartbeat loop detects dead sockets and triggers reconnection.
type Client struct {
	cfg    Config
	logger *slog.Logger

	// writeMu serializes frames onto the socket.
	writeMu sync.Mutex

	mu          sync.Mutex
	conn        *websocket.Conn
	state       State
	channels    map[string]*channel
	token       string
	pendingBeat string
	missedBeats int
	beatStop    chan struct{}
	closed      bool

	refCounter atomic.Uint64
	wait       *backoff
	done       chan struct{}
}

var _ transport.Transport = (*Client)(nil)

// NewClient creates a client for the given endpoint. The socket is not
// dialed until Connect or the first Join.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("realtime endpoint URL is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("parsing endpoint URL: %w", err)
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = DefaultJoinTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &Client{
		cfg:      cfg,
		logger:   cfg.Logger.With("conn_id", uuid.NewString()[:8]),
		channels: make(map[string]*channel),
		token:    cfg.AuthToken,
		wait:     newBackoff(),
		done:     make(chan struct{}),
	}
	if cfg.AuthToken != "" {
		c.warnIfExpired(cfg.AuthToken)
	}
	return c, nil
}

// Connect dials the socket. Most callers can skip this and let the
// first Join dial lazily.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrSocketClosed
	}
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.state = StateConnecting
	c.mu.Unlock()

	if err := c.dialAndInstall(ctx); err != nil {
		c.mu.Lock()
		if c.state == StateConnecting {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
		return err
	}
	return nil
}

// State returns the current socket state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Join subscribes to a named channel, tracking presence under key.
// The socket is dialed first if needed; a dial failure fails the join.
// The subscription outcome arrives through the channel's status
// callback: subscribed on a join ack, error on a rejection, timed out
// when no ack arrives within the join timeout.
func (c *Client) Join(ctx context.Context, channelName, key string) (transport.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	topic := topicPrefix + channelName

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, transport.ErrClosed
	}
	if _, ok := c.channels[topic]; ok {
		c.mu.Unlock()
		return nil, ErrTopicJoined
	}
	needDial := c.state == StateDisconnected
	if needDial {
		c.state = StateConnecting
	}
	c.mu.Unlock()

	if needDial {
		if err := c.dialAndInstall(ctx); err != nil {
			c.mu.Lock()
			if c.state == StateConnecting {
				c.state = StateDisconnected
			}
			c.mu.Unlock()
			return nil, err
		}
	}

	ch := newChannel(c, topic, key)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, transport.ErrClosed
	}
	c.channels[topic] = ch
	connected := c.state == StateConnected
	c.mu.Unlock()

	// When the socket is mid-reconnect the join is sent by rejoinAll.
	if connected {
		ch.join()
	}
	return ch, nil
}

// SetAuth rotates the access token and pushes it to every joined
// channel. Expired or malformed tokens are still applied but logged.
func (c *Client) SetAuth(token string) {
	c.warnIfExpired(token)

	c.mu.Lock()
	c.token = token
	connected := c.state == StateConnected
	chans := make([]*channel, 0, len(c.channels))
	for _, ch := range c.channels {
		chans = append(chans, ch)
	}
	c.mu.Unlock()

	if !connected {
		return
	}
	for _, ch := range chans {
		ch.pushAccessToken(token)
	}
}

// Close tears down the socket and all channels. Channels receive a
// closed status. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.state = StateClosed
	conn := c.conn
	c.conn = nil
	if c.beatStop != nil {
		close(c.beatStop)
		c.beatStop = nil
	}
	close(c.done)
	chans := make([]*channel, 0, len(c.channels))
	for _, ch := range c.channels {
		chans = append(chans, ch)
	}
	c.channels = make(map[string]*channel)
	c.mu.Unlock()

	for _, ch := range chans {
		ch.socketClosed()
	}

	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		return conn.Close()
	}
	return nil
}

// dialAndInstall dials the endpoint and installs the connection with
// fresh reader and heartbeat loops.
func (c *Client) dialAndInstall(ctx context.Context) error {
	endpoint, err := c.dialURL()
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dialing realtime socket: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrSocketClosed
	}
	c.conn = conn
	c.state = StateConnected
	c.pendingBeat = ""
	c.missedBeats = 0
	stop := make(chan struct{})
	c.beatStop = stop
	c.mu.Unlock()

	go c.readLoop(conn)
	go c.heartbeatLoop(conn, stop)

	c.logger.Debug("socket connected")
	return nil
}

// dialURL builds the endpoint URL with protocol version and API key.
func (c *Client) dialURL() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	q := u.Query()
	q.Set("vsn", "1.0.0")
	if c.cfg.APIKey != "" {
		q.Set("apikey", c.cfg.APIKey)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// makeRef returns the next frame reference.
func (c *Client) makeRef() string {
	return strconv.FormatUint(c.refCounter.Add(1), 10)
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// send encodes and writes one frame. Writes are serialized and carry a
// deadline so a stalled peer cannot wedge publishers.
func (c *Client) send(msg Message) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	data, err := wire.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop decodes inbound frames until the connection fails.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.socketLost(conn, fmt.Errorf("socket read: %w", err))
			return
		}
		msg, err := decodeMessage(data)
		if err != nil {
			c.logger.Warn("dropping malformed frame", "error", err)
			continue
		}
		c.route(msg)
	}
}

// route dispatches one inbound frame to the control topic handler or
// the owning channel.
func (c *Client) route(msg Message) {
	if msg.Topic == controlTopic {
		if msg.Event == eventReply {
			c.heartbeatAck(msg.Ref)
		}
		return
	}

	c.mu.Lock()
	ch := c.channels[msg.Topic]
	c.mu.Unlock()

	if ch == nil {
		c.logger.Debug("frame for unknown topic", "topic", msg.Topic, "event", msg.Event)
		return
	}
	ch.handleMessage(msg)
}

// removeChannel drops a channel from the registry if it is still the
// registered one.
func (c *Client) removeChannel(topic string, ch *channel) {
	c.mu.Lock()
	if c.channels[topic] == ch {
		delete(c.channels, topic)
	}
	c.mu.Unlock()
}

// heartbeatLoop probes the server on the configured cadence.
func (c *Client) heartbeatLoop(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !c.beat(conn) {
				return
			}
		}
	}
}

// beat sends one probe. It reports false once the socket is considered
// dead.
func (c *Client) beat(conn *websocket.Conn) bool {
	c.mu.Lock()
	if c.pendingBeat != "" {
		c.missedBeats++
		c.pendingBeat = ""
		if c.missedBeats >= maxMissedHeartbeats {
			c.mu.Unlock()
			c.socketLost(conn, errHeartbeatLost)
			return false
		}
	}
	ref := c.makeRef()
	c.pendingBeat = ref
	c.mu.Unlock()

	msg := Message{
		Topic:   controlTopic,
		Event:   eventHeartbeat,
		Payload: json.RawMessage("{}"),
		Ref:     ref,
	}
	if err := c.send(msg); err != nil {
		c.socketLost(conn, fmt.Errorf("heartbeat send: %w", err))
		return false
	}
	return true
}

func (c *Client) heartbeatAck(ref string) {
	c.mu.Lock()
	if ref == c.pendingBeat {
		c.pendingBeat = ""
		c.missedBeats = 0
	}
	c.mu.Unlock()
}

// socketLost handles the death of one specific connection. Stale
// notifications from already-replaced connections are ignored.
func (c *Client) socketLost(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.closed || conn == nil || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = StateReconnecting
	if c.beatStop != nil {
		close(c.beatStop)
		c.beatStop = nil
	}
	chans := make([]*channel, 0, len(c.channels))
	for _, ch := range c.channels {
		chans = append(chans, ch)
	}
	c.mu.Unlock()

	_ = conn.Close()
	c.logger.Warn("socket lost", "cause", cause)

	for _, ch := range chans {
		ch.socketDown(cause)
	}

	go c.reconnectLoop()
}

// reconnectLoop redials with exponential backoff until the socket is
// back or the client is closed. On success every surviving channel is
// rejoined.
func (c *Client) reconnectLoop() {
	for {
		delay := c.wait.next()
		c.logger.Info("reconnecting", "attempt", c.wait.attemptCount(), "delay", delay)

		select {
		case <-c.done:
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.DialTimeout)
		err := c.dialAndInstall(ctx)
		cancel()
		if err != nil {
			if errors.Is(err, ErrSocketClosed) {
				return
			}
			c.logger.Warn("reconnect attempt failed", "error", err)
			continue
		}

		c.wait.reset()
		c.rejoinAll()
		return
	}
}

// rejoinAll re-sends joins for every channel after a reconnect. Each
// rejoined channel delivers a fresh subscribed status, prompting layers
// above to re-publish their presence.
func (c *Client) rejoinAll() {
	c.mu.Lock()
	chans := make([]*channel, 0, len(c.channels))
	for _, ch := range c.channels {
		chans = append(chans, ch)
	}
	c.mu.Unlock()

	for _, ch := range chans {
		ch.join()
	}
}

// warnIfExpired inspects a JWT's expiry claim without verifying its
// signature. Verification is the server's job; this only surfaces the
// common footgun of configuring a stale token.
func (c *Client) warnIfExpired(token string) {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		c.logger.Warn("access token is not a parseable JWT", "error", err)
		return
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		c.logger.Warn("access token is expired", "expired_at", claims.ExpiresAt.Time)
	}
}
