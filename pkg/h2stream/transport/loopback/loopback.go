// Package loopback is an in-memory ConnectionManager for exercising
// pkg/h2stream/stream without a real socket: AcquireConnection hands out
// fixed-concurrency Connection values from a pool it owns, and
// MakeRequest returns a Stream that records the request headers and
// completes as soon as it is activated. It exists for integration tests,
// not for production traffic.
package loopback

import (
	"sync"
	"sync/atomic"

	"github.com/yourusername/h2stream/pkg/h2stream/hpack"
	"github.com/yourusername/h2stream/pkg/h2stream/stream"
)

// Config controls the simulated connection pool.
type Config struct {
	// ConcurrencyLimit bounds how many streams a single Connection reports
	// as its limit.
	ConcurrencyLimit int32
	// MaxConnections caps how many distinct connections AcquireConnection
	// will ever hand out; further acquisitions fail once reached. Zero
	// means unbounded.
	MaxConnections int
}

// DefaultConfig returns a Config with a concurrency limit of 100 per
// connection and no cap on the number of connections.
func DefaultConfig() *Config {
	return &Config{ConcurrencyLimit: 100}
}

// Manager is a loopback stream.ConnectionManager.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	opened  int
	conns   []*Connection
	nextID  uint64
	onClose []func()
}

// New constructs a loopback Manager. A nil cfg uses DefaultConfig.
func New(cfg *Config) *Manager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Manager{cfg: *cfg}
}

// AcquireConnection synthesizes a new Connection unless MaxConnections has
// been reached, in which case it reports an error. The callback runs
// synchronously, matching a connector that can resolve immediately from a
// warm pool.
func (m *Manager) AcquireConnection(onAcquired func(stream.Connection, error)) {
	m.mu.Lock()
	if m.cfg.MaxConnections > 0 && m.opened >= m.cfg.MaxConnections {
		m.mu.Unlock()
		onAcquired(nil, errPoolExhausted)
		return
	}
	m.nextID++
	id := m.nextID
	m.opened++
	conn := &Connection{id: id, limit: m.cfg.ConcurrencyLimit, loop: &syncEventLoop{}}
	m.conns = append(m.conns, conn)
	m.mu.Unlock()

	onAcquired(conn, nil)
}

// ReleaseConnection marks the connection closed and drops it from the
// pool's bookkeeping.
func (m *Manager) ReleaseConnection(c stream.Connection) {
	conn, ok := c.(*Connection)
	if !ok {
		return
	}
	conn.closed.Store(true)

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.conns {
		if existing == conn {
			m.conns = append(m.conns[:i], m.conns[i+1:]...)
			break
		}
	}
}

// Shutdown runs onComplete immediately; the loopback pool holds no
// background resources that need draining.
func (m *Manager) Shutdown(onComplete func()) {
	onComplete()
}

var errPoolExhausted = poolExhaustedError{}

type poolExhaustedError struct{}

func (poolExhaustedError) Error() string { return "loopback: connection pool exhausted" }

// Connection is a synthesized stream.Connection backed by no real socket.
type Connection struct {
	id     uint64
	limit  int32
	loop   *syncEventLoop
	closed atomic.Bool
}

func (c *Connection) EventLoop() stream.EventLoop { return c.loop }
func (c *Connection) ConcurrencyLimit() int32     { return c.limit }
func (c *Connection) Unavailable() bool           { return c.closed.Load() }

// MakeRequest returns a Stream that records the request's header list
// (readable through its Headers method) and calls onComplete as soon as
// it is Activated; no response is delivered. Request messages that don't expose
// HeaderList (the hpack.Header accessor convention used by
// transport/fasthttpmsg) echo an empty header list instead of failing.
func (c *Connection) MakeRequest(msg stream.Message) (stream.Stream, error) {
	var headers []hpack.Header
	if hl, ok := msg.(interface{ HeaderList() []hpack.Header }); ok {
		headers = hl.HeaderList()
	}
	return &echoStream{headers: headers}, nil
}

type echoStream struct {
	headers []hpack.Header
}

// Activate calls onComplete right away: the loopback stream has no
// pending I/O, so it "completes" the instant it is activated.
func (s *echoStream) Activate(onComplete func()) {
	onComplete()
}

// Headers returns the request header list this stream echoed.
func (s *echoStream) Headers() []hpack.Header { return s.headers }

// syncEventLoop runs scheduled work inline. A real connection's event
// loop would hand fn to its I/O goroutine instead.
type syncEventLoop struct{}

func (*syncEventLoop) Schedule(fn func()) { fn() }
