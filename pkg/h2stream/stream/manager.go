// Package stream implements the HTTP/2 stream manager: a multiplexing
// layer that vends streams to callers across a pool of connections,
// coordinating pending acquisitions with asynchronous connection
// provisioning. It owns no sockets and runs no frame codec itself; those
// concerns belong to the Connection implementation a caller supplies.
package stream

import (
	"sync"

	"github.com/google/uuid"

	"github.com/yourusername/h2stream/pkg/h2stream/telemetry"
)

// State is the stream manager's lifecycle state.
type State uint8

const (
	StateReady State = iota
	StateShuttingDown
)

func (s State) String() string {
	if s == StateShuttingDown {
		return "shutting_down"
	}
	return "ready"
}

// Config configures a Manager.
type Config struct {
	// Logger receives structured diagnostics; the zero value logs nothing.
	Logger telemetry.Logger
}

// DefaultConfig returns a Config with a no-op logger.
func DefaultConfig() *Config {
	return &Config{Logger: telemetry.Nop()}
}

// managedConnection tracks the manager's view of one Connection: how many
// streams it currently carries, and whether it has been hidden from
// selection (saturated) or doomed (should be released once idle).
type managedConnection struct {
	conn      Connection
	openCount int32
	hidden    bool
	doomed    bool
}

// PendingStreamAcquisition is the record created by AcquireStream and
// destroyed once its stream completes or the acquisition fails. While it
// has no chosen connection it lives on Manager.pending; once a connection
// is chosen it is handed to a transaction for activation and dropped from
// that list.
type PendingStreamAcquisition struct {
	id         string
	message    Message
	onAcquired func(Stream, error)
	onComplete func()
}

// ID is an opaque correlation identifier, useful only for logging.
func (p *PendingStreamAcquisition) ID() string { return p.id }

// Manager acquires streams across a pool of connections vended by a
// ConnectionManager. All state mutation happens under mu; every event
// handler follows the Transaction pattern: mutate state under lock, build
// a transaction of side effects, release the lock, then execute the
// transaction. No user callback and no downstream call ever happens while
// mu is held.
type Manager struct {
	cm     ConnectionManager
	log    telemetry.Logger
	config *Config

	mu sync.Mutex

	state    State
	refcount int

	pending     []*PendingStreamAcquisition
	connections []*managedConnection

	connectionsAcquiring uint32

	// assumeMaxConcurrentStream estimates how many streams one connection
	// can carry, used to size new-connection requests. It starts
	// maximally permissive and is refined downward as connections report
	// their real SETTINGS_MAX_CONCURRENT_STREAMS.
	assumeMaxConcurrentStream uint32

	onShutdownComplete func()
	shutdownFired      bool
}

// NewManager creates a Manager with an external refcount of one, backed
// by cm. cfg may be nil to accept defaults.
func NewManager(cm ConnectionManager, cfg *Config) *Manager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Manager{
		cm:                        cm,
		log:                       cfg.Logger,
		config:                    cfg,
		state:                     StateReady,
		refcount:                  1,
		assumeMaxConcurrentStream: maxUint32,
	}
}

const maxUint32 = 1<<32 - 1

// AcquireStream enqueues a stream acquisition. onAcquired is invoked
// exactly once, either with a Stream and a nil error, or a nil Stream and
// a non-nil error: an *Error of kind ErrKindShuttingDown (errors.Is
// matches ErrManagerShuttingDown), an *Error of kind
// ErrKindConnectionAcquireFailed that unwraps to the ConnectionManager's
// own error, or an error from Connection.MakeRequest. onComplete is invoked exactly
// once, after onAcquired succeeded, when the stream finishes. Neither
// callback is ever invoked with Manager's internal lock held.
func (m *Manager) AcquireStream(msg Message, onAcquired func(Stream, error), onComplete func()) {
	m.mu.Lock()
	tx := &transaction{}

	if m.state == StateShuttingDown {
		m.mu.Unlock()
		tx.enqueue(func() { onAcquired(nil, shuttingDownErr()) })
		tx.execute()
		return
	}

	rec := &PendingStreamAcquisition{
		id:         uuid.NewString(),
		message:    msg,
		onAcquired: onAcquired,
		onComplete: onComplete,
	}
	m.pending = append(m.pending, rec)
	m.log.Debugw("stream acquisition enqueued", "acquisition_id", rec.id)

	m.assignPendingLocked(tx)
	m.mu.Unlock()
	tx.execute()
}

// Acquire increments the external refcount, delaying shutdown.
func (m *Manager) Acquire() {
	m.mu.Lock()
	m.refcount++
	m.mu.Unlock()
}

// Release decrements the external refcount. At zero the manager moves to
// ShuttingDown: every pending-without-connection acquisition fails with
// ErrManagerShuttingDown, and the manager begins draining toward its
// shutdown-complete callback.
func (m *Manager) Release(onShutdownComplete func()) {
	m.mu.Lock()
	tx := &transaction{}

	m.refcount--
	if m.refcount > 0 {
		m.mu.Unlock()
		return
	}

	m.state = StateShuttingDown
	m.onShutdownComplete = onShutdownComplete
	m.log.Infow("stream manager shutting down", "pending", len(m.pending))

	failed := m.pending
	m.pending = nil
	for _, rec := range failed {
		rec := rec
		tx.enqueue(func() { rec.onAcquired(nil, shuttingDownErr()) })
	}

	m.maybeFinishShutdownLocked(tx)
	m.mu.Unlock()
	tx.execute()
}

// MarkConnectionDoomed flags conn so it is released back to the pool as
// soon as its last open stream completes, even while the manager is
// still Ready. Connection implementations call this when they learn they
// are going away (e.g. a received GOAWAY) but still have streams open.
func (m *Manager) MarkConnectionDoomed(conn Connection) {
	m.mu.Lock()
	tx := &transaction{}
	for _, mc := range m.connections {
		if mc.conn != conn {
			continue
		}
		mc.doomed = true
		mc.hidden = true
		if mc.openCount == 0 {
			m.removeConnectionLocked(mc)
			tx.enqueue(func() { m.cm.ReleaseConnection(mc.conn) })
		}
		break
	}
	m.maybeFinishShutdownLocked(tx)
	m.mu.Unlock()
	tx.execute()
}

// OpenStreamCount returns the number of streams acquired and not yet
// completed, summed across every connection the manager knows about.
func (m *Manager) OpenStreamCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, mc := range m.connections {
		total += int(mc.openCount)
	}
	return total
}

// PendingCount returns the number of acquisitions awaiting a connection.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// assignPendingLocked matches pending records to connections using the
// best-fit selection policy, then requests however many additional
// connections are still needed. Must be called with mu held.
func (m *Manager) assignPendingLocked(tx *transaction) {
	for len(m.pending) > 0 {
		mc := m.selectConnectionLocked()
		if mc == nil {
			break
		}
		rec := m.pending[0]
		m.pending = m.pending[1:]
		mc.openCount++
		if limit := mc.conn.ConcurrencyLimit(); limit > 0 && mc.openCount >= limit {
			mc.hidden = true
		}
		tx.enqueue(func() { m.activateStream(rec, mc) })
	}
	m.requestMoreConnectionsLocked(tx)
}

// selectConnectionLocked returns the connection with the highest
// open-stream count still below its concurrency limit (best-fit, to free
// idle connections sooner), tie-broken by insertion order. Hidden,
// doomed, or Unavailable connections are skipped.
func (m *Manager) selectConnectionLocked() *managedConnection {
	var best *managedConnection
	for _, mc := range m.connections {
		if mc.hidden || mc.doomed || mc.conn.Unavailable() {
			continue
		}
		if limit := mc.conn.ConcurrencyLimit(); limit > 0 && mc.openCount >= limit {
			continue
		}
		if best == nil || mc.openCount > best.openCount {
			best = mc
		}
	}
	return best
}

// requestMoreConnectionsLocked computes how many additional connections
// are needed to eventually serve every still-pending record and requests
// the shortfall. desired = ceil(pending_count / assume_max_concurrent_stream);
// this is the corrected formula (RFC-adjacent source code used integer
// division + 1, which overshoots by one whenever pending_count is an
// exact multiple of assume_max_concurrent_stream).
func (m *Manager) requestMoreConnectionsLocked(tx *transaction) {
	if len(m.pending) == 0 {
		return
	}
	desired := ceilDivUint32(uint32(len(m.pending)), m.assumeMaxConcurrentStream)
	if desired <= m.connectionsAcquiring {
		return
	}
	need := desired - m.connectionsAcquiring
	for i := uint32(0); i < need; i++ {
		m.connectionsAcquiring++
		tx.enqueue(func() { m.cm.AcquireConnection(m.onConnectionAcquired) })
	}
}

func ceilDivUint32(a, b uint32) uint32 {
	if b == 0 {
		return a
	}
	// a/b rounded up without forming a+b-1, which overflows uint32 when b
	// is near maxUint32 (the initial assumeMaxConcurrentStream).
	q := a / b
	if a%b != 0 {
		q++
	}
	return q
}

// onConnectionAcquired handles ConnectionManager's response to an
// AcquireConnection call. It may arrive synchronously from inside
// AcquireConnection (reentrant) or later from an I/O thread; both are
// safe because this function only ever mutates state under mu and defers
// every side effect to a transaction executed after unlock.
func (m *Manager) onConnectionAcquired(conn Connection, err error) {
	m.mu.Lock()
	tx := &transaction{}

	acquiringBeforeThis := m.connectionsAcquiring
	m.connectionsAcquiring--

	if err != nil {
		m.log.Warnw("connection acquire failed", "error", err)
		// Open question resolution: bound how many pending records we
		// fail synchronously here to min(pending_count, connections
		// in flight including this one), so a cascade of acquire
		// failures can't fail an unbounded number of records from one
		// stack frame.
		m.failPendingLocked(tx, connectionAcquireErr(err), acquiringBeforeThis)
	} else {
		mc := &managedConnection{conn: conn}
		m.connections = append(m.connections, mc)
		if limit := conn.ConcurrencyLimit(); limit > 0 && uint32(limit) < m.assumeMaxConcurrentStream {
			m.assumeMaxConcurrentStream = uint32(limit)
		}
		m.assignPendingLocked(tx)
	}

	m.maybeFinishShutdownLocked(tx)
	m.mu.Unlock()
	tx.execute()
}

// failPendingLocked fails up to bound of the oldest pending records with
// cause. Must be called with mu held.
func (m *Manager) failPendingLocked(tx *transaction, cause error, bound uint32) {
	n := uint32(len(m.pending))
	if n > bound {
		n = bound
	}
	for i := uint32(0); i < n; i++ {
		rec := m.pending[0]
		m.pending = m.pending[1:]
		tx.enqueue(func() { rec.onAcquired(nil, cause) })
	}
}

// activateStream schedules make-request onto the connection's own event
// loop, per the "stream activation on the connection's thread" design:
// running there prevents racing with connection shutdown. Must be called
// outside mu (it is only ever enqueued onto a transaction).
func (m *Manager) activateStream(rec *PendingStreamAcquisition, mc *managedConnection) {
	mc.conn.EventLoop().Schedule(func() {
		strm, err := mc.conn.MakeRequest(rec.message)
		if err != nil {
			rec.onAcquired(nil, err)
			m.mu.Lock()
			tx := &transaction{}
			m.streamCompletedLocked(tx, mc)
			m.mu.Unlock()
			tx.execute()
			return
		}

		rec.onAcquired(strm, nil)
		strm.Activate(func() {
			rec.onComplete()
			m.mu.Lock()
			tx := &transaction{}
			m.streamCompletedLocked(tx, mc)
			m.mu.Unlock()
			tx.execute()
		})
	})
}

// streamCompletedLocked decrements the connection's open-stream count and
// re-exposes it to selection if it was hidden for saturation. If the
// connection has gone idle and is either doomed or the manager is
// shutting down, the connection is released back to the pool. Must be
// called with mu held.
func (m *Manager) streamCompletedLocked(tx *transaction, mc *managedConnection) {
	mc.openCount--
	if mc.openCount < 0 {
		// Programmer error: stream completed twice, or for a connection
		// not actually carrying it.
		panic("stream: open_stream_count went negative")
	}

	if mc.hidden {
		limit := mc.conn.ConcurrencyLimit()
		if limit == 0 || mc.openCount < limit {
			mc.hidden = false
		}
	}

	if mc.openCount == 0 && (mc.doomed || m.state == StateShuttingDown) {
		m.removeConnectionLocked(mc)
		tx.enqueue(func() { m.cm.ReleaseConnection(mc.conn) })
	}

	m.assignPendingLocked(tx)
	m.maybeFinishShutdownLocked(tx)
}

func (m *Manager) removeConnectionLocked(mc *managedConnection) {
	for i, c := range m.connections {
		if c == mc {
			m.connections = append(m.connections[:i], m.connections[i+1:]...)
			return
		}
	}
}

// maybeFinishShutdownLocked fires the shutdown-complete callback exactly
// once, after every connection acquisition has resolved and every
// outstanding stream has completed. While shutting down it first releases
// every connection that has no open streams. Must be called with mu held;
// the ReleaseConnection and cm.Shutdown calls are deferred into tx since
// they are downstream calls.
func (m *Manager) maybeFinishShutdownLocked(tx *transaction) {
	if m.state != StateShuttingDown || m.shutdownFired {
		return
	}
	for _, mc := range append([]*managedConnection(nil), m.connections...) {
		if mc.openCount == 0 {
			m.removeConnectionLocked(mc)
			tx.enqueue(func() { m.cm.ReleaseConnection(mc.conn) })
		}
	}
	if m.connectionsAcquiring != 0 || len(m.connections) != 0 {
		return
	}

	m.shutdownFired = true
	cb := m.onShutdownComplete
	tx.enqueue(func() {
		m.cm.Shutdown(func() {
			if cb != nil {
				cb()
			}
		})
	})
}
