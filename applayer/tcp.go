package applayer

import (
	"time"

	"github.com/pkg/errors"

	"github.com/mel2oo/go-alcore/events"
	"github.com/mel2oo/go-alcore/flow"
	"github.com/mel2oo/go-alcore/internal/diag"
	"github.com/mel2oo/go-alcore/parse"
	"github.com/mel2oo/go-alcore/proto"
)

// HandleTCPData is the TCP data handler.
// f's lock already; this function never
// takes or releases it. pkt carries the current packet's apparent
// direction so that a force-drain can flip it temporarily.
//
// Returns nil on success. A non-nil error is never
// fatal to the process; the caller should simply move on to the next
// packet. ErrNoInspection/ErrReassembleFailed indicate the flow has been
// marked no-inspection; ErrRollback indicates the caller should re-present
// the same bytes on a later call.
func (d *Dispatcher) HandleTCPData(tctx *ThreadCtx, pkt *Packet, f *flow.Flow, dir proto.Direction, data []byte, flags proto.Flags) error {
	// 1. Inspection disabled.
	if f.NoAppLayerInspection() {
		return nil
	}

	session := f.Session
	stream := session.StreamFor(dir)
	otherDir := dir.Opposite()

	// 4. Bytes after this direction's own detection has concluded, whether
	// by committing a protocol, by latching detection_completed on a gap,
	// or by exhausting PM/PP while inheriting the other side's protocol.
	// This is the detection_completed latch itself, not the flow-wide
	// commit: the opposite half-stream must keep running its own detection
	// until ITS latch is set, even after this direction has committed.
	if stream.DetectionCompleted() {
		return d.handlePostCommit(f, dir, data)
	}

	dirAlproto := f.TentativeProto(dir)

	// 2. Gap at stream start on unknown protocol.
	if dirAlproto == proto.Unknown && flags.Has(proto.FlagGap) {
		stream.SetDetectionCompleted()
		stream.SetNoReassembly()
		return nil
	}

	// 3. Bytes on a still-undetected direction. Generalized from the
	// literal START-flag gate: a direction can receive several chunks
	// while still undetected (detection deferred pending the preferred
	// direction, or simply more bytes needed), and each must retry
	// detection the same way the first one did.
	if dirAlproto == proto.Unknown {
		return d.handleUndetectedDirection(tctx, pkt, f, dir, otherDir, data, flags)
	}

	// Should not occur: dirAlproto only ever becomes non-Unknown together
	// with stream.SetDetectionCompleted() in this implementation.
	diag.Println("applayer: unexpected tentative protocol without detection_completed, dropping", len(data), "bytes")
	return nil
}

func (d *Dispatcher) handleUndetectedDirection(tctx *ThreadCtx, pkt *Packet, f *flow.Flow, dir, otherDir proto.Direction, data []byte, flags proto.Flags) error {
	session := f.Session
	stream := session.StreamFor(dir)

	n := len(data)
	var already int64
	if n != 0 {
		already = f.DataAlSoFar(dir)
	}

	if n != 0 {
		session.FirstSeen.Observe(dir)
	}

	// No stream-end signal reaches this handler (flags only ever carries
	// TOSERVER/TOCLIENT/START/GAP), so probers never see isEnd=true here;
	// only HandleUDPData's single-datagram call does.
	start := time.Now()
	result := d.Engine.Detect(f, dir, data, false)
	d.profiler.ObserveDetect(f.L4, dir, time.Since(start))

	otherAlproto := f.TentativeProto(otherDir)

	if result.Proto != proto.Unknown {
		return d.handleDetectionSucceeded(tctx, pkt, f, dir, otherDir, data, already, result.Proto, otherAlproto)
	}

	// Detection failed on this direction.
	if result.PMExhausted {
		f.SetPMDone(dir)
	}
	if result.PPExhausted {
		f.SetPPDone(dir)
	}

	if otherAlproto != proto.Unknown {
		otherFirstDataDir := d.Engine.FirstDataDir(otherAlproto)
		if otherFirstDataDir != proto.DirNone && otherFirstDataDir != proto.DirBoth && otherFirstDataDir != dir {
			// The already-committed opposing protocol insists on a
			// direction other than this one; nothing to inherit.
			f.SetNoAppLayerInspection()
			return ErrNoInspection
		}

		if n != 0 {
			session.FirstSeen.MarkCommitted(dir)
			if err := d.parseChunk(f, dir, otherAlproto, data); err != nil {
				if errors.Is(err, parse.ErrFatal) {
					f.SetNoAppLayerInspection()
					return errors.Wrap(ErrNoInspection, err.Error())
				}
				diag.Println("applayer: parser error, continuing:", err)
			}
		}

		if f.PMDone(dir) && f.PPDone(dir) {
			f.Events.Raise(events.DetectProtocolOnlyOneDirection)
			stream.SetDetectionCompleted()
			f.SetDataAlSoFar(dir, 0)
		} else {
			f.SetDataAlSoFar(dir, int64(n))
		}
		return nil
	}

	// Neither direction has a protocol yet.
	if f.PMDone(proto.DirToServer) && f.PPDone(proto.DirToServer) &&
		f.PMDone(proto.DirToClient) && f.PPDone(proto.DirToClient) {
		f.SetNoAppLayerInspection()
		session.StreamFor(proto.DirToServer).SetDetectionCompleted()
		session.StreamFor(proto.DirToClient).SetDetectionCompleted()
		session.FirstSeen.MarkCommitted(dir)
		return nil
	}

	f.SetDataAlSoFar(dir, int64(n))
	return nil
}

func (d *Dispatcher) handleDetectionSucceeded(tctx *ThreadCtx, pkt *Packet, f *flow.Flow, dir, otherDir proto.Direction, data []byte, already int64, detected, otherAlproto proto.AppProto) error {
	session := f.Session
	stream := session.StreamFor(dir)
	dirAlproto := detected
	f.SetTentativeProto(dir, dirAlproto)

	// a. Conflict reconciliation. This asymmetry
	// (TOCLIENT wins, TOSERVER does not) is preserved verbatim from the
	// source rather than "fixed".
	if otherAlproto != proto.Unknown && otherAlproto != dirAlproto {
		f.Events.Raise(events.MismatchProtocolBothDirections)

		if session.FirstSeen.State() == flow.FirstSeenCommitted {
			dirAlproto = otherAlproto
			f.SetTentativeProto(dir, dirAlproto)
		} else if dir == proto.DirToClient {
			f.SetTentativeProto(otherDir, dirAlproto)
		} else {
			dirAlproto = otherAlproto
			f.SetTentativeProto(dir, dirAlproto)
		}
	}

	// b. Commit.
	f.Commit(dirAlproto)
	stream.SetDetectionCompleted()

	// c. Force-drain of opposing direction.
	firstSeenState := session.FirstSeen.State()
	firstSeenDir := session.FirstSeen.Dir()
	drainNeeded := firstSeenState == flow.FirstSeenOne && firstSeenDir == otherDir

	if drainNeeded {
		if err := d.forceDrain(f, pkt, otherDir); err != nil {
			f.SetNoAppLayerInspection()
			stream.SetDetectionCompleted()
			session.StreamFor(otherDir).SetDetectionCompleted()
			return errors.Wrap(ErrReassembleFailed, err.Error())
		}
	}

	// d. Directionality policy.
	firstDataDir := d.Engine.FirstDataDir(dirAlproto)
	wrongDirection := firstDataDir != proto.DirNone && firstDataDir != proto.DirBoth &&
		firstSeenDir != proto.DirNone && firstSeenDir != firstDataDir
	satisfiedByDrain := drainNeeded && otherDir == firstDataDir

	if wrongDirection && !satisfiedByDrain {
		f.Events.Raise(events.WrongDirectionFirstData)
		f.SetNoAppLayerInspection()
		stream.SetDetectionCompleted()
		session.StreamFor(otherDir).SetDetectionCompleted()
		session.FirstSeen.MarkCommitted(dir)
		return ErrNoInspection
	}

	// e. Rollback for deferred detection. Guarded by the precondition that
	// the opposing side is still Unknown.
	if firstDataDir == otherDir && otherAlproto == proto.Unknown {
		f.Reset()
		stream.ResetDetectionCompleted()
		f.ResetPMDone(dir)
		f.ResetPPDone(dir)
		return ErrRollback
	}

	// f. Hand bytes to the parser.
	session.FirstSeen.MarkCommitted(dir)

	toFeed := data
	if already >= 0 && int(already) <= len(data) {
		toFeed = data[already:]
	}
	if len(toFeed) > 0 {
		if err := d.parseChunk(f, dir, dirAlproto, toFeed); err != nil {
			if errors.Is(err, parse.ErrFatal) {
				f.SetNoAppLayerInspection()
				return errors.Wrap(ErrNoInspection, err.Error())
			}
			diag.Println("applayer: parser error, continuing:", err)
		}
	}
	f.SetDataAlSoFar(dir, 0)

	return nil
}

func (d *Dispatcher) handlePostCommit(f *flow.Flow, dir proto.Direction, data []byte) error {
	alproto := f.AppProto()
	if alproto == proto.Unknown {
		diag.Println("applayer: dropping", len(data), "bytes, alproto unknown after commit branch")
		return nil
	}
	if len(data) == 0 {
		return nil
	}
	if err := d.parseChunk(f, dir, alproto, data); err != nil {
		if errors.Is(err, parse.ErrFatal) {
			f.SetNoAppLayerInspection()
			return errors.Wrap(ErrNoInspection, err.Error())
		}
		diag.Println("applayer: parser error, continuing:", err)
	}
	return nil
}
