package stream

// Message is an opaque outbound request carried through acquisition;
// concrete transports (see pkg/h2stream/transport) supply their own
// implementations and type-assert on the other side of MakeRequest.
type Message interface{}

// Stream is a single HTTP/2 stream handed back to the caller once a
// connection accepted the request. Activate arms the connection-side
// completion hook; onComplete MUST be invoked exactly once, from the
// connection's own event loop, when the stream finishes for any reason
// (success, reset, or connection failure).
type Stream interface {
	Activate(onComplete func())
}

// Connection is a reference-counted handle produced by a
// ConnectionManager. The stream manager only ever touches it from
// outside its own lock (see Transaction pattern in manager.go).
type Connection interface {
	// EventLoop returns the handle used to schedule work on the thread
	// that owns this connection.
	EventLoop() EventLoop

	// MakeRequest starts a new stream for msg. Must be called from this
	// connection's own event loop.
	MakeRequest(msg Message) (Stream, error)

	// ConcurrencyLimit is this connection's advertised maximum of
	// simultaneously open streams, or 0 if unknown.
	ConcurrencyLimit() int32

	// Unavailable reports a connection that should never be selected
	// again (e.g. it is going away) even though it has not yet reached
	// open_stream_count == 0.
	Unavailable() bool
}

// EventLoop schedules a closure to run on the thread that owns a
// Connection. Implementations must not run fn synchronously from a
// thread other than their own.
type EventLoop interface {
	Schedule(fn func())
}

// ConnectionManager provisions and reclaims Connections on behalf of the
// stream manager. AcquireConnection may invoke onAcquired synchronously
// (reentrantly) or from another goroutine; the manager's Transaction
// pattern tolerates both.
type ConnectionManager interface {
	AcquireConnection(onAcquired func(Connection, error))
	ReleaseConnection(Connection)

	// Shutdown begins releasing all resources the ConnectionManager owns
	// and calls onComplete once every acquired connection has been
	// released and every in-flight acquisition has resolved.
	Shutdown(onComplete func())
}
