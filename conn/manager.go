package conn

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ragchat/chatstream/log"
	"github.com/ragchat/chatstream/wire"
)

// State is the lifecycle state of the managed connection.
type State int

const (
	// Uninstantiated means Connect has not been called yet.
	Uninstantiated State = iota
	// Connecting means a dial or reconnect attempt is in flight.
	Connecting
	// Open means the socket is live and Send is valid.
	Open
	// Closing means an orderly shutdown is in progress.
	Closing
	// Closed means the socket is down. Terminal once reconnects are exhausted
	// or Close was called.
	Closed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Uninstantiated:
		return "uninstantiated"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	// ErrNotOpen is returned by Send while the socket is not open.
	ErrNotOpen = errors.New("conn: connection is not open")
	// ErrClosed is returned once the manager has shut down for good.
	ErrClosed = errors.New("conn: connection manager is closed")
)

// Options configures a Manager. The zero value of every field has a usable
// default except URL, which is required.
type Options struct {
	// URL is the ws/wss chat endpoint, usually built with conn.URL.
	URL string

	// Header carries handshake headers, e.g. the bearer token.
	Header http.Header

	// MaxRetries bounds automatic reconnect attempts after an unexpected
	// drop. Default 5.
	MaxRetries int

	// Backoff is the fixed interval between reconnect attempts. Default 2s.
	Backoff time.Duration

	// BufferSize is the capacity of the inbound fragment channel. A full
	// buffer never drops fragments; the read loop blocks so backpressure
	// propagates to the socket. Default 256.
	BufferSize int

	// HandshakeTimeout bounds each dial. Default 10s.
	HandshakeTimeout time.Duration

	// Logger receives lifecycle and protocol warnings. Defaults to the
	// package-level logger.
	Logger log.Logger
}

func (o *Options) withDefaults() {
	if o.MaxRetries == 0 {
		o.MaxRetries = 5
	}
	if o.Backoff == 0 {
		o.Backoff = 2 * time.Second
	}
	if o.BufferSize == 0 {
		o.BufferSize = 256
	}
	if o.HandshakeTimeout == 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
}

// Manager owns the WebSocket lifecycle for one chat session: dial, bounded
// reconnect on unexpected drops, send, and the cancel-by-reconnect primitive.
// Inbound fragments are delivered on a buffered channel consumed by a single
// reconciliation loop, which makes apply-in-arrival-order structural rather
// than incidental.
type Manager struct {
	opts   Options
	logger log.Logger

	mu      sync.Mutex
	state   State
	ws      *websocket.Conn
	gen     int             // bumped on every teardown; stale read loops exit silently
	genDone chan struct{}   // closed on every teardown, releasing a parked stale sender
	done    bool

	fragments chan wire.Fragment
	states    chan State
}

// NewManager creates a manager. No connection is made until Connect.
func NewManager(opts Options) *Manager {
	opts.withDefaults()
	return &Manager{
		opts:      opts,
		logger:    opts.Logger,
		state:     Uninstantiated,
		fragments: make(chan wire.Fragment, opts.BufferSize),
		states:    make(chan State, 16),
	}
}

// Fragments returns the inbound fragment channel. It is never closed; the
// terminal state arrives on States.
func (m *Manager) Fragments() <-chan wire.Fragment {
	return m.fragments
}

// States returns the state-transition channel. Delivery is best effort: a
// slow consumer may miss intermediate transitions but always observes the
// latest state via State().
func (m *Manager) States() <-chan State {
	return m.states
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// bumpGen retires the current connection generation. The previous genDone
// channel is closed so a read loop parked on the fragment channel wakes up
// and exits instead of delivering a stale frame. Callers must hold mu.
func (m *Manager) bumpGen() int {
	m.gen++
	if m.genDone != nil {
		close(m.genDone)
	}
	m.genDone = make(chan struct{})
	return m.gen
}

func (m *Manager) setState(s State) {
	m.state = s
	select {
	case m.states <- s:
	default:
		// Best effort, same as dropped stream events under backpressure.
	}
}

// Connect dials the chat endpoint and starts the read loop. It establishes
// exactly one live socket; calling it on an open manager is an error.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.state == Open || m.state == Connecting {
		m.mu.Unlock()
		return errors.New("conn: already connected")
	}
	m.setState(Connecting)
	m.mu.Unlock()

	ws, err := m.dial(ctx)
	if err != nil {
		m.mu.Lock()
		m.setState(Closed)
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.ws = ws
	gen := m.bumpGen()
	stale := m.genDone
	m.setState(Open)
	m.mu.Unlock()

	m.logger.Info("connected to %s", m.opts.URL)
	go m.readLoop(gen, stale, ws)
	return nil
}

func (m *Manager) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: m.opts.HandshakeTimeout}
	ws, resp, err := dialer.DialContext(ctx, m.opts.URL, m.opts.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return ws, err
}

// Send writes one fragment to the socket. Valid only while the state is Open.
func (m *Manager) Send(frag wire.Fragment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		return ErrClosed
	}
	if m.state != Open || m.ws == nil {
		return ErrNotOpen
	}
	return m.ws.WriteJSON(frag)
}

// readLoop pumps inbound fragments into the channel until the socket dies.
// The send blocks when the buffer is full: the single reconciliation consumer
// must see every fragment, so backpressure propagates to the socket rather
// than losing a message chunk or a stop. A loop whose generation has been
// superseded (cancel, close) exits without delivering the frame it holds.
func (m *Manager) readLoop(gen int, stale <-chan struct{}, ws *websocket.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			m.onReadError(gen, err)
			return
		}
		frag, derr := wire.Decode(data)
		if derr != nil {
			m.logger.Warn("discarding undecodable frame: %v", derr)
			continue
		}
		select {
		case <-stale:
			return
		default:
		}
		select {
		case m.fragments <- frag:
		case <-stale:
			return
		}
	}
}

func (m *Manager) onReadError(gen int, err error) {
	m.mu.Lock()
	if m.done || gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.ws = nil
	m.setState(Connecting)
	m.mu.Unlock()

	m.logger.Warn("connection dropped: %v", err)
	m.reconnect(gen)
}

// reconnect retries the dial with a fixed backoff up to MaxRetries times.
// Exhaustion is terminal: the state settles on Closed and Send stays invalid
// until the caller builds a new manager.
func (m *Manager) reconnect(gen int) {
	for attempt := 1; attempt <= m.opts.MaxRetries; attempt++ {
		time.Sleep(m.opts.Backoff)

		m.mu.Lock()
		if m.done || gen != m.gen {
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), m.opts.HandshakeTimeout)
		ws, err := m.dial(ctx)
		cancel()
		if err != nil {
			m.logger.Warn("reconnect attempt %d/%d failed: %v", attempt, m.opts.MaxRetries, err)
			continue
		}

		m.mu.Lock()
		if m.done || gen != m.gen {
			m.mu.Unlock()
			ws.Close()
			return
		}
		m.ws = ws
		newGen := m.bumpGen()
		stale := m.genDone
		m.setState(Open)
		m.mu.Unlock()

		m.logger.Info("reconnected after %d attempt(s)", attempt)
		go m.readLoop(newGen, stale, ws)
		return
	}

	m.mu.Lock()
	m.setState(Closed)
	m.mu.Unlock()
	m.logger.Error("reconnect attempts exhausted, connection closed")
}

// Cancel abandons the current socket and immediately opens a fresh one. This
// is the only cancellation primitive for an in-flight AI response: there is
// no stop-generating request, the old connection is simply walked away from.
// Partial output already assembled stays in the transcript.
func (m *Manager) Cancel(ctx context.Context) error {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return ErrClosed
	}
	ws := m.ws
	m.ws = nil
	m.bumpGen() // orphan the old read loop
	m.setState(Closing)
	m.setState(Connecting)
	m.mu.Unlock()

	if ws != nil {
		ws.Close()
	}

	fresh, err := m.dial(ctx)
	if err != nil {
		m.mu.Lock()
		m.setState(Closed)
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.ws = fresh
	gen := m.bumpGen()
	stale := m.genDone
	m.setState(Open)
	m.mu.Unlock()

	m.logger.Info("cancelled in-flight turn, fresh connection open")
	go m.readLoop(gen, stale, fresh)
	return nil
}

// Close tears the connection down for good. The manager cannot be reused.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return nil
	}
	m.done = true
	ws := m.ws
	m.ws = nil
	m.bumpGen()
	m.setState(Closing)
	m.setState(Closed)
	m.mu.Unlock()

	if ws != nil {
		return ws.Close()
	}
	return nil
}
