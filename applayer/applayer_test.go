package applayer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mel2oo/go-alcore/detect"
	"github.com/mel2oo/go-alcore/events"
	"github.com/mel2oo/go-alcore/flow"
	"github.com/mel2oo/go-alcore/parse"
	"github.com/mel2oo/go-alcore/proto"
)

// fakeProber accepts any data on its configured direction, exercising the
// plain detection-succeeds path without pulling in any gnet parser. pmCalls
// counts PatternMatch invocations, so tests can assert detection did (or
// did not) run again on a given call.
type fakeProber struct {
	name    string
	dir     proto.Direction
	pmCalls int
}

func (p *fakeProber) Name() string               { return p.name }
func (p *fakeProber) Direction() proto.Direction { return p.dir }
func (p *fakeProber) PatternMatch(data []byte) detect.Decision {
	p.pmCalls++
	return detect.Accept
}
func (p *fakeProber) Probe(f *flow.Flow, dir proto.Direction, data []byte, isEnd bool) detect.Decision {
	return detect.Accept
}

// conditionalProber only accepts data beginning with a fixed prefix,
// letting a test force two directions to detect two different protocols.
type conditionalProber struct {
	name   string
	accept []byte
}

func (p *conditionalProber) Name() string               { return p.name }
func (p *conditionalProber) Direction() proto.Direction { return proto.DirBoth }
func (p *conditionalProber) PatternMatch(data []byte) detect.Decision {
	n := len(p.accept)
	if len(data) < n {
		if len(data) > 0 && string(p.accept[:len(data)]) == string(data) {
			return detect.NeedMoreData
		}
		return detect.Reject
	}
	if string(data[:n]) == string(p.accept) {
		return detect.Accept
	}
	return detect.Reject
}
func (p *conditionalProber) Probe(f *flow.Flow, dir proto.Direction, data []byte, isEnd bool) detect.Decision {
	return detect.Accept
}

// fakeParser records every chunk it is handed.
type fakeParser struct {
	id    proto.AppProto
	calls [][]byte
}

func (p *fakeParser) Proto() proto.AppProto { return p.id }
func (p *fakeParser) Parse(f *flow.Flow, dir proto.Direction, data []byte) error {
	p.calls = append(p.calls, append([]byte(nil), data...))
	return nil
}

func newTestDispatcher() (*Dispatcher, *fakeParser, proto.AppProto) {
	d, fp, id, _ := newTestDispatcherWithProber()
	return d, fp, id
}

func newTestDispatcherWithProber() (*Dispatcher, *fakeParser, proto.AppProto, *fakeProber) {
	registry := proto.NewRegistry()
	engine := detect.NewEngine(registry)
	parsers := parse.NewRegistry()

	prober := &fakeProber{name: "fake", dir: proto.DirBoth}
	id := engine.Register("fake", proto.DirNone, prober)

	fp := &fakeParser{id: id}
	parsers.Register(fp)

	return New(engine, parsers), fp, id, prober
}

func TestHandleTCPDataCommitsAndParses(t *testing.T) {
	d, fp, id := newTestDispatcher()
	tctx, err := NewThreadCtx()
	assert.NoError(t, err)
	defer tctx.Destroy()

	f := flow.New(proto.L4TCP, nil)
	f.Session = flow.NewTCPSession()

	pkt := &Packet{Dir: proto.DirToServer}
	err = d.HandleTCPData(tctx, pkt, f, proto.DirToServer, []byte("hello"), proto.FlagToServer|proto.FlagStart)
	assert.NoError(t, err)

	assert.Equal(t, id, f.AppProto())
	assert.Len(t, fp.calls, 1)
	assert.Equal(t, []byte("hello"), fp.calls[0])
}

// TestHandleTCPDataOppositeDirectionStillDetects ensures a commit on one
// half-stream does not divert the opposite, still-undetected half-stream
// away from running its own detection: both directions reach the fake
// prober, and both chunks reach the parser.
func TestHandleTCPDataOppositeDirectionStillDetects(t *testing.T) {
	d, fp, _, prober := newTestDispatcherWithProber()
	tctx, err := NewThreadCtx()
	assert.NoError(t, err)
	defer tctx.Destroy()

	f := flow.New(proto.L4TCP, nil)
	f.Session = flow.NewTCPSession()
	pkt := &Packet{Dir: proto.DirToServer}

	assert.NoError(t, d.HandleTCPData(tctx, pkt, f, proto.DirToServer, []byte("one"), proto.FlagToServer|proto.FlagStart))
	assert.Equal(t, 1, prober.pmCalls)

	assert.NoError(t, d.HandleTCPData(tctx, pkt, f, proto.DirToClient, []byte("two"), proto.FlagToClient))
	assert.Equal(t, 2, prober.pmCalls, "toClient must still run its own detection rather than being diverted by toServer's commit")

	assert.Len(t, fp.calls, 2)
	assert.Equal(t, []byte("two"), fp.calls[1])
}

// TestHandleTCPDataPostCommitGoesStraightToParser covers the real branch-4
// short-circuit: once a direction's OWN detection_completed latch is set,
// further chunks on that same direction skip detection entirely.
func TestHandleTCPDataPostCommitGoesStraightToParser(t *testing.T) {
	d, fp, _, prober := newTestDispatcherWithProber()
	tctx, err := NewThreadCtx()
	assert.NoError(t, err)
	defer tctx.Destroy()

	f := flow.New(proto.L4TCP, nil)
	f.Session = flow.NewTCPSession()
	pkt := &Packet{Dir: proto.DirToServer}

	assert.NoError(t, d.HandleTCPData(tctx, pkt, f, proto.DirToServer, []byte("one"), proto.FlagToServer|proto.FlagStart))
	assert.NoError(t, d.HandleTCPData(tctx, pkt, f, proto.DirToClient, []byte("two"), proto.FlagToClient))
	calledBeforeThirdChunk := prober.pmCalls

	assert.NoError(t, d.HandleTCPData(tctx, pkt, f, proto.DirToClient, []byte("three"), proto.FlagToClient))

	assert.Equal(t, calledBeforeThirdChunk, prober.pmCalls, "toClient's own detection_completed latch must short-circuit further detection")
	assert.Len(t, fp.calls, 3)
	assert.Equal(t, []byte("three"), fp.calls[2])
}

// TestHandleTCPDataMismatchAcrossDirections covers scenario 4: the two
// directions tentatively detect different protocols, raising
// events.MismatchProtocolBothDirections, and the already-committed
// protocol wins the reconciliation.
func TestHandleTCPDataMismatchAcrossDirections(t *testing.T) {
	registry := proto.NewRegistry()
	engine := detect.NewEngine(registry)
	parsers := parse.NewRegistry()

	proberA := &fakeProber{name: "fakeA", dir: proto.DirToServer}
	idA := engine.Register("fakeA", proto.DirNone, proberA)
	fpA := &fakeParser{id: idA}
	parsers.Register(fpA)

	proberB := &conditionalProber{name: "fakeB", accept: []byte("BBB")}
	idB := engine.Register("fakeB", proto.DirNone, proberB)
	fpB := &fakeParser{id: idB}
	parsers.Register(fpB)

	d := New(engine, parsers)
	tctx, err := NewThreadCtx()
	assert.NoError(t, err)
	defer tctx.Destroy()

	f := flow.New(proto.L4TCP, nil)
	f.Session = flow.NewTCPSession()
	pkt := &Packet{Dir: proto.DirToServer}

	// toServer commits to fakeA first, since proberA accepts unconditionally
	// and is tried before proberB.
	assert.NoError(t, d.HandleTCPData(tctx, pkt, f, proto.DirToServer, []byte("AAA1"), proto.FlagToServer|proto.FlagStart))
	assert.Equal(t, idA, f.AppProto())

	// toClient's bytes match only proberB's accept prefix, so toClient
	// tentatively detects fakeB while toServer already committed fakeA.
	assert.NoError(t, d.HandleTCPData(tctx, pkt, f, proto.DirToClient, []byte("BBB2"), proto.FlagToClient))

	assert.True(t, f.Events.Has(events.MismatchProtocolBothDirections))
	assert.Equal(t, idA, f.AppProto(), "the already-committed protocol wins the reconciliation")
	assert.Len(t, fpA.calls, 2)
	assert.Empty(t, fpB.calls)
}

// TestHandleTCPDataDetectProtocolOnlyOneDirection covers scenario 5: one
// direction commits to a protocol whose probers never run on the opposite
// direction, so that direction exhausts PM/PP without ever matching
// anything and inherits the committed protocol instead, raising
// events.DetectProtocolOnlyOneDirection.
func TestHandleTCPDataDetectProtocolOnlyOneDirection(t *testing.T) {
	registry := proto.NewRegistry()
	engine := detect.NewEngine(registry)
	parsers := parse.NewRegistry()

	prober := &fakeProber{name: "fake", dir: proto.DirToServer}
	id := engine.Register("fake", proto.DirNone, prober)
	fp := &fakeParser{id: id}
	parsers.Register(fp)

	d := New(engine, parsers)
	tctx, err := NewThreadCtx()
	assert.NoError(t, err)
	defer tctx.Destroy()

	f := flow.New(proto.L4TCP, nil)
	f.Session = flow.NewTCPSession()
	pkt := &Packet{Dir: proto.DirToServer}

	assert.NoError(t, d.HandleTCPData(tctx, pkt, f, proto.DirToServer, []byte("one"), proto.FlagToServer|proto.FlagStart))
	assert.Equal(t, id, f.AppProto())

	// No prober is eligible for toClient, so its PM/PP families are
	// vacuously exhausted on the very first call.
	assert.NoError(t, d.HandleTCPData(tctx, pkt, f, proto.DirToClient, []byte("two"), proto.FlagToClient))

	assert.True(t, f.Events.Has(events.DetectProtocolOnlyOneDirection))
	assert.True(t, f.Session.StreamFor(proto.DirToClient).DetectionCompleted())
	assert.Len(t, fp.calls, 2)
	assert.Equal(t, []byte("two"), fp.calls[1])
}

func TestHandleTCPDataNoInspectionShortCircuits(t *testing.T) {
	d, fp, _ := newTestDispatcher()
	tctx, err := NewThreadCtx()
	assert.NoError(t, err)
	defer tctx.Destroy()

	f := flow.New(proto.L4TCP, nil)
	f.Session = flow.NewTCPSession()
	f.SetNoAppLayerInspection()

	pkt := &Packet{Dir: proto.DirToServer}
	err = d.HandleTCPData(tctx, pkt, f, proto.DirToServer, []byte("data"), proto.FlagToServer)
	assert.NoError(t, err)
	assert.Empty(t, fp.calls)
}

func TestHandleUDPDataDetectsOnce(t *testing.T) {
	d, fp, id := newTestDispatcher()
	tctx, err := NewThreadCtx()
	assert.NoError(t, err)
	defer tctx.Destroy()

	f := flow.New(proto.L4UDP, nil)

	assert.NoError(t, d.HandleUDPData(tctx, f, proto.DirToServer, []byte("q")))
	assert.Equal(t, id, f.AppProto())
	assert.True(t, f.AlprotoDetectDone())

	assert.NoError(t, d.HandleUDPData(tctx, f, proto.DirToClient, []byte("a")))
	assert.Len(t, fp.calls, 2)
}

func TestProtoByNameAndToString(t *testing.T) {
	d, _, id := newTestDispatcher()
	assert.Equal(t, id, d.ProtoByName("fake"))
	assert.Equal(t, "fake", d.ProtoToString(id))
}

func TestEnqueueStreamMsgRequiresFlow(t *testing.T) {
	err := EnqueueStreamMsg(flow.StreamMsg{}, nil)
	assert.ErrorIs(t, err, ErrNilMsgFlow)
}

func TestEnqueueStreamMsgReleasesWhenNoSession(t *testing.T) {
	f := flow.New(proto.L4TCP, nil)
	msg := flow.StreamMsg{Dir: proto.DirToServer, Data: []byte("x"), Flow: f}

	released := false
	pool := poolFunc(func(buf []byte) { released = true })

	assert.NoError(t, EnqueueStreamMsg(msg, pool))
	assert.True(t, released, "a flow with no session yet has nowhere to queue the message, so its buffer must be released")
}

type poolFunc func(buf []byte)

func (p poolFunc) Put(buf []byte) { p(buf) }

func TestEnqueueStreamMsgQueuesOnSession(t *testing.T) {
	f := flow.New(proto.L4TCP, nil)
	f.Session = flow.NewTCPSession()

	msg := flow.StreamMsg{Dir: proto.DirToServer, Data: []byte("x"), Flow: f}
	assert.NoError(t, EnqueueStreamMsg(msg, nil))

	pending := f.Session.StreamFor(proto.DirToServer).Pending()
	assert.Len(t, pending, 1)
	assert.Nil(t, pending[0].Flow)
}
