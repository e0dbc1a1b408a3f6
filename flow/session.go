package flow

import (
	"github.com/google/uuid"

	"github.com/mel2oo/go-alcore/optionals"
	"github.com/mel2oo/go-alcore/proto"
)

// TCPSession is the TCP transport context a Flow is attached to: the two
// half-streams and the first-data-direction tracker.
type TCPSession struct {
	ConnectionID uuid.UUID

	Client Stream // data flowing TOSERVER
	Server Stream // data flowing TOCLIENT

	FirstSeen FirstSeen
}

// NewTCPSession returns a session with a freshly generated connection id.
func NewTCPSession() *TCPSession {
	return &TCPSession{ConnectionID: uuid.New()}
}

// StreamFor returns the half-stream carrying data in dir. dir must be
// DirToServer or DirToClient; any other value returns the client
// (TOSERVER) stream.
func (s *TCPSession) StreamFor(dir proto.Direction) *Stream {
	if dir == proto.DirToClient {
		return &s.Server
	}
	return &s.Client
}

// Stream is one half of a TCP flow's byte stream, from the dispatch core's
// point of view: whether detection has completed on this side, whether the
// reassembler has been told to stop reassembling this side, and the queue
// of buffered StreamMsg waiting on a deferred detection decision.
type Stream struct {
	detectionCompleted bool
	noReassembly       bool

	pending []StreamMsg
}

// DetectionCompleted reports whether this half-stream no longer needs to be
// offered to the detector (either a protocol committed for it, or PM/PP
// both exhausted with no inspection needed).
func (s *Stream) DetectionCompleted() bool { return s.detectionCompleted }

// SetDetectionCompleted marks detection finished for this half-stream.
func (s *Stream) SetDetectionCompleted() { s.detectionCompleted = true }

// ResetDetectionCompleted clears the completed mark, used by the soft
// rollback path when a premature commit is undone.
func (s *Stream) ResetDetectionCompleted() { s.detectionCompleted = false }

// NoReassembly reports whether the external reassembler has been told it no
// longer needs to buffer this half-stream for replay.
func (s *Stream) NoReassembly() bool { return s.noReassembly }

// SetNoReassembly sets the no-reassembly-needed mark.
func (s *Stream) SetNoReassembly() { s.noReassembly = true }

// Enqueue appends msg to the pending queue, used
// while detection on this direction has not finished and bytes must be held
// for replay to the parser once it does.
func (s *Stream) Enqueue(msg StreamMsg) { s.pending = append(s.pending, msg) }

// Pending returns the buffered messages without removing them.
func (s *Stream) Pending() []StreamMsg { return s.pending }

// DequeueAll removes and returns all buffered messages, in order.
func (s *Stream) DequeueAll() []StreamMsg {
	out := s.pending
	s.pending = nil
	return out
}

// StreamMsg is one buffered chunk of stream data awaiting replay to a
// parser
type StreamMsg struct {
	Dir  proto.Direction
	Data []byte
	Flow *Flow
}

// Pool is the buffer-recycling capability the stream-message intake path
// uses to release a StreamMsg's backing buffer when it cannot be queued,
// mirroring mempool.BufferPool's Put signature.
type Pool interface {
	Put(buf []byte)
}

// FirstSeenState is the tagged-variant state of the data_first_seen_dir
// state machine: which direction(s) have been observed to
// carry the first application-layer bytes of the flow, monotonically
// advancing toward Committed.
type FirstSeenState int

const (
	// FirstSeenNone: no direction has produced data yet.
	FirstSeenNone FirstSeenState = iota
	// FirstSeenOne: exactly one direction has produced data so far.
	FirstSeenOne
	// FirstSeenBoth: both directions have produced data, neither committed.
	FirstSeenBoth
	// FirstSeenCommitted: the flow's protocol has committed; the direction
	// recorded at commitment time is retained (ALREADY_SENT_TO_APP_LAYER).
	FirstSeenCommitted
)

// FirstSeen tracks data_first_seen_dir. The zero value is a valid
// FirstSeenNone state.
type FirstSeen struct {
	state FirstSeenState
	dir   optionals.Optional[proto.Direction]
}

// State returns the current tagged-variant state.
func (f *FirstSeen) State() FirstSeenState { return f.state }

// Dir returns the direction recorded by the state machine. Valid only when
// State() is FirstSeenOne or FirstSeenCommitted; returns proto.DirNone
// otherwise (FirstSeenBoth has no single direction by construction).
func (f *FirstSeen) Dir() proto.Direction {
	if d, ok := f.dir.Get(); ok {
		return d
	}
	return proto.DirNone
}

// Observe advances the state machine on seeing data in dir:
//   - None --dir--> One(dir)
//   - One(d) --dir--> One(d) if d == dir, else Both
//   - Both is absorbing until Commit
//   - Committed is absorbing
func (f *FirstSeen) Observe(dir proto.Direction) {
	switch f.state {
	case FirstSeenNone:
		f.state = FirstSeenOne
		f.dir = optionals.Some(dir)
	case FirstSeenOne:
		if d, _ := f.dir.Get(); d != dir {
			f.state = FirstSeenBoth
			f.dir = optionals.None[proto.Direction]()
		}
	case FirstSeenBoth, FirstSeenCommitted:
		// absorbing
	}
}

// MarkCommitted moves the state machine to FirstSeenCommitted, recording dir
// as the direction the committing protocol was detected on. This is the
// ALREADY_SENT_TO_APP_LAYER transition: Observe never leaves
// FirstSeenCommitted, and only Reset returns to FirstSeenNone. The
// dispatcher's soft rollback (Flow.Reset plus the PM/PP latch resets)
// leaves FirstSeen unchanged.
func (f *FirstSeen) MarkCommitted(dir proto.Direction) {
	f.state = FirstSeenCommitted
	f.dir = optionals.Some(dir)
}

// Reset returns the state machine to FirstSeenNone. The dispatch core does
// not call it; its soft rollback path leaves FirstSeen as it is.
func (f *FirstSeen) Reset() {
	f.state = FirstSeenNone
	f.dir = optionals.None[proto.Direction]()
}
