// Package flow implements the per-connection data model: the
// Flow record, its TCP transport context (TcpSession, half-streams,
// stream-message queues), and the bookkeeping latches the dispatch core
// relies on to track detection and commitment state.
package flow

import (
	"sync"

	"github.com/mel2oo/go-alcore/events"
	"github.com/mel2oo/go-alcore/proto"
)

// Flags is the flow-level bitset: the give-up sticky bit, the
// UDP-only detection latch, and the per-direction pattern-match/probe-parser
// exhaustion latches.
type Flags uint32

const (
	// NoAppLayerInspection is the give-up sticky bit: once
	// set, it is never cleared and no further detect/parse call is made.
	NoAppLayerInspection Flags = 1 << iota
	// AlprotoDetectDone latches that UDP detection has already been
	// attempted for this flow (detection happens at most once per UDP flow).
	AlprotoDetectDone
	pmDoneToServer
	pmDoneToClient
	ppDoneToServer
	ppDoneToClient
)

// Flow is the per-connection record tracked by the dispatch core.
type Flow struct {
	mu sync.Mutex

	L4 proto.L4

	// Session is the flow's TCP transport context. Nil for UDP flows and
	// for TCP flows that have not yet been attached to a session.
	Session *TCPSession

	// Events is the flow's app_layer_events sink.
	Events *events.Log

	appProto   proto.AppProto
	appProtoTS proto.AppProto
	appProtoTC proto.AppProto

	flags       Flags
	dataAlSoFar [2]int64

	parserState map[proto.AppProto]interface{}
}

// New constructs a Flow for the given transport protocol. forward, if
// non-nil, receives a copy of every event raised on this flow (e.g. for
// aggregate metrics); most callers pass nil.
func New(l4 proto.L4, forward events.Sink) *Flow {
	return &Flow{
		L4:     l4,
		Events: events.NewLog(forward),
	}
}

// Lock/Unlock implement the "caller holds the flow's write lock" discipline:
// TCP entry points assume the lock is already held by the
// caller, UDP entry points take and release it themselves around a call.
func (f *Flow) Lock()   { f.mu.Lock() }
func (f *Flow) Unlock() { f.mu.Unlock() }

// AppProto returns the committed protocol, or proto.Unknown if none has
// been committed yet.
func (f *Flow) AppProto() proto.AppProto { return f.appProto }

// TentativeProto returns the per-direction tentative protocol id
// (alproto_ts / alproto_tc) before commitment.
func (f *Flow) TentativeProto(dir proto.Direction) proto.AppProto {
	if dir == proto.DirToClient {
		return f.appProtoTC
	}
	return f.appProtoTS
}

// SetTentativeProto sets the per-direction tentative protocol id.
func (f *Flow) SetTentativeProto(dir proto.Direction, p proto.AppProto) {
	if dir == proto.DirToClient {
		f.appProtoTC = p
	} else {
		f.appProtoTS = p
	}
}

// Commit sets the flow's final alproto. This is the only
// path that moves alproto away from Unknown; the only path back to Unknown
// is Reset.
func (f *Flow) Commit(p proto.AppProto) { f.appProto = p }

// Reset implements cleanup_applayer, the explicit reset path used for an
// already-committed protocol. It is used exactly once in the core, for the
// soft rollback of a premature detection decision. It does not touch
// NoAppLayerInspection or the PM/PP latches; callers clear those
// separately, as the rollback path does.
func (f *Flow) Reset() {
	f.appProto = proto.Unknown
	f.appProtoTS = proto.Unknown
	f.appProtoTC = proto.Unknown
	f.dataAlSoFar[0] = 0
	f.dataAlSoFar[1] = 0
}

// NoAppLayerInspection reports the give-up sticky bit.
func (f *Flow) NoAppLayerInspection() bool { return f.flags&NoAppLayerInspection != 0 }

// SetNoAppLayerInspection sets the give-up sticky bit. It is monotonic:
// nothing in this package ever clears it.
func (f *Flow) SetNoAppLayerInspection() { f.flags |= NoAppLayerInspection }

// AlprotoDetectDone reports the UDP-only single-shot detection latch.
func (f *Flow) AlprotoDetectDone() bool { return f.flags&AlprotoDetectDone != 0 }

// SetAlprotoDetectDone latches that UDP detection has been attempted.
func (f *Flow) SetAlprotoDetectDone() { f.flags |= AlprotoDetectDone }

func pmFlag(dir proto.Direction) Flags {
	if dir == proto.DirToClient {
		return pmDoneToClient
	}
	return pmDoneToServer
}

func ppFlag(dir proto.Direction) Flags {
	if dir == proto.DirToClient {
		return ppDoneToClient
	}
	return ppDoneToServer
}

// PMDone/PPDone report the per-direction pattern-match / probe-parser
// exhaustion latches (PM_DONE / PP_DONE in the glossary).
func (f *Flow) PMDone(dir proto.Direction) bool { return f.flags&pmFlag(dir) != 0 }
func (f *Flow) PPDone(dir proto.Direction) bool { return f.flags&ppFlag(dir) != 0 }

func (f *Flow) SetPMDone(dir proto.Direction)   { f.flags |= pmFlag(dir) }
func (f *Flow) SetPPDone(dir proto.Direction)   { f.flags |= ppFlag(dir) }
func (f *Flow) ResetPMDone(dir proto.Direction) { f.flags &^= pmFlag(dir) }
func (f *Flow) ResetPPDone(dir proto.Direction) { f.flags &^= ppFlag(dir) }

func dirIndex(dir proto.Direction) int {
	if dir == proto.DirToClient {
		return 1
	}
	return 0
}

// DataAlSoFar returns data_al_so_far[dir]: bytes already buffered for the
// parser but not yet committed, while detection on dir is deferred.
func (f *Flow) DataAlSoFar(dir proto.Direction) int64 { return f.dataAlSoFar[dirIndex(dir)] }

// SetDataAlSoFar sets data_al_so_far[dir]. Non-zero only
// while detection on dir is pending.
func (f *Flow) SetDataAlSoFar(dir proto.Direction, n int64) { f.dataAlSoFar[dirIndex(dir)] = n }

// ParserState returns the parser-owned scratch value stashed for protocol p
// on this flow, and whether one was ever set. Parsers use this instead of
// a global registry keyed by flow, since the flow is the natural owner of
// per-connection parser state.
func (f *Flow) ParserState(p proto.AppProto) (interface{}, bool) {
	if f.parserState == nil {
		return nil, false
	}
	v, ok := f.parserState[p]
	return v, ok
}

// SetParserState stashes v as the parser scratch state for protocol p.
func (f *Flow) SetParserState(p proto.AppProto, v interface{}) {
	if f.parserState == nil {
		f.parserState = make(map[proto.AppProto]interface{})
	}
	f.parserState[p] = v
}
