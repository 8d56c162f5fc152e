package stream

import (
	"sync"
	"testing"
)

type fakeEventLoop struct{}

func (fakeEventLoop) Schedule(fn func()) { fn() }

type fakeStream struct {
	onComplete func()
}

func (s *fakeStream) Activate(onComplete func()) { s.onComplete = onComplete }

type fakeConnection struct {
	limit int32
}

func (c *fakeConnection) EventLoop() EventLoop    { return fakeEventLoop{} }
func (c *fakeConnection) ConcurrencyLimit() int32 { return c.limit }
func (c *fakeConnection) Unavailable() bool       { return false }
func (c *fakeConnection) MakeRequest(msg Message) (Stream, error) {
	return &fakeStream{}, nil
}

// fakeConnManager hands out connections with a fixed concurrency limit,
// deferring every AcquireConnection call until the test explicitly
// flushes it, so acquire ordering is deterministic.
type fakeConnManager struct {
	mu           sync.Mutex
	limit        int32
	acquireCalls int
	pendingCB    []func(Connection, error)
	released     []Connection
}

func (cm *fakeConnManager) AcquireConnection(onAcquired func(Connection, error)) {
	cm.mu.Lock()
	cm.acquireCalls++
	cm.pendingCB = append(cm.pendingCB, onAcquired)
	cm.mu.Unlock()
}

func (cm *fakeConnManager) flushOne(t *testing.T) {
	t.Helper()
	cm.mu.Lock()
	if len(cm.pendingCB) == 0 {
		cm.mu.Unlock()
		t.Fatalf("no pending acquisition to flush")
	}
	cb := cm.pendingCB[0]
	cm.pendingCB = cm.pendingCB[1:]
	limit := cm.limit
	cm.mu.Unlock()

	cb(&fakeConnection{limit: limit}, nil)
}

func (cm *fakeConnManager) ReleaseConnection(c Connection) {
	cm.mu.Lock()
	cm.released = append(cm.released, c)
	cm.mu.Unlock()
}

func (cm *fakeConnManager) Shutdown(onComplete func()) {
	onComplete()
}

// TestStreamManagerHappyPath mirrors scenario 6: with connections capped
// at 3 concurrent streams each, 5 acquisitions need exactly 2 connections,
// each acquired stream is distinct, and open_stream_count returns to zero
// once every stream completes.
func TestStreamManagerHappyPath(t *testing.T) {
	cm := &fakeConnManager{limit: 3}
	mgr := NewManager(cm, nil)

	type result struct {
		stream Stream
		err    error
	}

	var resultMu sync.Mutex
	var acquired []result
	completed := 0

	for i := 0; i < 5; i++ {
		mgr.AcquireStream("request", func(s Stream, err error) {
			resultMu.Lock()
			acquired = append(acquired, result{s, err})
			resultMu.Unlock()
		}, func() {
			resultMu.Lock()
			completed++
			resultMu.Unlock()
		})
	}

	if cm.acquireCalls != 1 {
		t.Fatalf("acquireCalls before any connection resolved = %d, want 1", cm.acquireCalls)
	}

	cm.flushOne(t) // connection 1 (limit 3) absorbs 3 of the 5 pending
	if cm.acquireCalls != 2 {
		t.Fatalf("acquireCalls after first connection = %d, want 2", cm.acquireCalls)
	}

	cm.flushOne(t) // connection 2 (limit 3) absorbs the remaining 2

	if cm.acquireCalls != 2 {
		t.Fatalf("acquireCalls after second connection = %d, want 2", cm.acquireCalls)
	}
	if len(acquired) != 5 {
		t.Fatalf("onAcquired fired %d times, want 5", len(acquired))
	}

	seen := make(map[Stream]bool, 5)
	for i, r := range acquired {
		if r.err != nil {
			t.Fatalf("acquisition %d failed: %v", i, r.err)
		}
		if seen[r.stream] {
			t.Fatalf("acquisition %d returned a stream already handed out", i)
		}
		seen[r.stream] = true
	}

	if got := mgr.OpenStreamCount(); got != 5 {
		t.Fatalf("OpenStreamCount = %d, want 5", got)
	}

	for _, r := range acquired {
		r.stream.(*fakeStream).onComplete()
	}

	if completed != 5 {
		t.Fatalf("onComplete fired %d times, want 5", completed)
	}
	if got := mgr.OpenStreamCount(); got != 0 {
		t.Fatalf("OpenStreamCount after completion = %d, want 0", got)
	}
}

// TestStreamManagerConnectionAcquireFailure bounds the failure-fanout per
// the second Open Question: a failed AcquireConnection fails at most
// min(pending_count, connections_acquiring) records, not the whole
// pending list.
func TestStreamManagerConnectionAcquireFailure(t *testing.T) {
	cm := &fakeConnManager{limit: 1}
	mgr := NewManager(cm, nil)

	var resultMu sync.Mutex
	var errs []error

	for i := 0; i < 3; i++ {
		mgr.AcquireStream("request", func(s Stream, err error) {
			resultMu.Lock()
			errs = append(errs, err)
			resultMu.Unlock()
		}, func() {})
	}

	cm.mu.Lock()
	cb := cm.pendingCB[0]
	cm.pendingCB = nil
	cm.mu.Unlock()

	cb(nil, errConnRefused)

	resultMu.Lock()
	defer resultMu.Unlock()
	if len(errs) != 1 {
		t.Fatalf("failed acquisitions = %d, want 1 (min(pending=3, connections_acquiring=1))", len(errs))
	}
	if errs[0] == nil {
		t.Fatalf("expected non-nil error on failed acquisition")
	}
	if mgr.PendingCount() != 2 {
		t.Fatalf("PendingCount = %d, want 2 remaining", mgr.PendingCount())
	}
}

// TestStreamManagerMarkConnectionDoomed checks that a doomed connection
// is hidden from further selection and released back to the pool once
// its last stream completes.
func TestStreamManagerMarkConnectionDoomed(t *testing.T) {
	cm := &fakeConnManager{limit: 5}
	mgr := NewManager(cm, nil)

	var strm Stream
	mgr.AcquireStream("request", func(s Stream, err error) {
		if err != nil {
			t.Fatalf("unexpected acquire error: %v", err)
		}
		strm = s
	}, func() {})

	cm.flushOne(t)
	if strm == nil {
		t.Fatalf("expected a stream to have been acquired")
	}

	var conn Connection
	mgr.mu.Lock()
	conn = mgr.connections[0].conn
	mgr.mu.Unlock()

	mgr.MarkConnectionDoomed(conn)

	// A second acquisition must not land on the doomed connection even
	// though it still has capacity.
	var secondErr error
	var secondStream Stream
	mgr.AcquireStream("request-2", func(s Stream, err error) {
		secondStream = s
		secondErr = err
	}, func() {})
	if secondErr != nil {
		t.Fatalf("unexpected error: %v", secondErr)
	}
	if secondStream != nil {
		t.Fatalf("expected second acquisition to wait for a fresh connection, not reuse the doomed one")
	}

	strm.(*fakeStream).onComplete()

	cm.mu.Lock()
	released := len(cm.released)
	cm.mu.Unlock()
	if released != 1 {
		t.Fatalf("released connections = %d, want 1 once the doomed connection's last stream completed", released)
	}
}

// TestStreamManagerShutdownFiresOnce drives refcount to zero with no
// acquisitions outstanding and checks the shutdown-complete callback
// fires exactly once.
func TestStreamManagerShutdownFiresOnce(t *testing.T) {
	cm := &fakeConnManager{limit: 1}
	mgr := NewManager(cm, nil)

	fired := 0
	mgr.Release(func() { fired++ })

	if fired != 1 {
		t.Fatalf("shutdown-complete fired %d times, want 1", fired)
	}

	// The manager is left in ShuttingDown; a further Release would be a
	// caller bug, and shutdownFired guards against a second callback.
	mgr.mu.Lock()
	alreadyShuttingDown := mgr.state == StateShuttingDown
	mgr.mu.Unlock()
	if !alreadyShuttingDown {
		t.Fatalf("expected manager to be in ShuttingDown state")
	}
}

var errConnRefused = &fakeDialError{"connection refused"}

type fakeDialError struct{ msg string }

func (e *fakeDialError) Error() string { return e.msg }
