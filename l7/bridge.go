// Package l7 adapts gnet.TCPParserFactory /
// gnet.TCPParser implementations (gnet/http, gnet/ctp, gnet/ftp, gnet/tls,
// gnet/http2) into the dispatch core's detect.Prober and parse.Parser
// interfaces. The core itself has no idea any of these protocols
// exist; this package is the only place that names them.
package l7

import (
	"github.com/google/gopacket/reassembly"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mel2oo/go-alcore/detect"
	"github.com/mel2oo/go-alcore/flow"
	"github.com/mel2oo/go-alcore/gnet"
	"github.com/mel2oo/go-alcore/memview"
	"github.com/mel2oo/go-alcore/parse"
	"github.com/mel2oo/go-alcore/proto"
)

// Sink receives completed parse units. Producing a full output pipeline for
// any one L7 protocol is outside the dispatch core's scope; a Sink lets a
// caller that does care (e.g. something writing a HAR file) observe what
// the wrapped gnet parser produced without the core depending on it.
type Sink interface {
	Emit(f *flow.Flow, dir proto.Direction, content gnet.ParsedNetworkContent)
}

// DiscardSink is a Sink that drops everything, for callers that only want
// to exercise detection and routing.
type DiscardSink struct{}

func (DiscardSink) Emit(*flow.Flow, proto.Direction, gnet.ParsedNetworkContent) {}

// matchPrefixes is the PM-family pattern match shared by every adapter in
// this package: Accept if data begins with one of patterns, NeedMoreData if
// data so far is itself a prefix of one of them, Reject otherwise.
func matchPrefixes(data []byte, patterns [][]byte) detect.Decision {
	possible := false
	for _, p := range patterns {
		n := len(p)
		if len(data) >= n {
			if string(data[:n]) == string(p) {
				return detect.Accept
			}
			continue
		}
		if string(p[:len(data)]) == string(data) {
			possible = true
		}
	}
	if possible {
		return detect.NeedMoreData
	}
	return detect.Reject
}

// factoryState is what a FactoryProber stashes in flow.Flow.ParserState
// once its wrapped gnet.TCPParserFactory has accepted a direction: the
// concrete gnet.TCPParser instance created for that direction, persisted
// across subsequent parse.Parser.Parse calls.
type factoryState struct {
	parsers [2]gnet.TCPParser // indexed by proto.DirToServer-1 / DirToClient-1
}

func dirSlot(dir proto.Direction) int {
	if dir == proto.DirToClient {
		return 1
	}
	return 0
}

func (s *factoryState) get(dir proto.Direction) gnet.TCPParser {
	return s.parsers[dirSlot(dir)]
}

func (s *factoryState) set(dir proto.Direction, p gnet.TCPParser) {
	s.parsers[dirSlot(dir)] = p
}

// FactoryProber adapts a single gnet.TCPParserFactory, restricted to one
// direction, into a detect.Prober plus the parse.Parser half of the same
// protocol. A bidirectional protocol registers one FactoryProber per
// direction under the same protocol name (see detect.Engine.Register); the
// request-side and response-side FactoryProbers share the committed
// proto.AppProto id but each owns its own gnet.TCPParserFactory.
type FactoryProber struct {
	protoName string
	dir       proto.Direction
	patterns  [][]byte
	factory   gnet.TCPParserFactory
	sink      Sink
	id        proto.AppProto
}

// NewFactoryProber wraps factory, restricted to dir, using patterns as the
// cheap PM-stage check ahead of factory.Accepts.
func NewFactoryProber(protoName string, dir proto.Direction, patterns [][]byte, factory gnet.TCPParserFactory, sink Sink) *FactoryProber {
	if sink == nil {
		sink = DiscardSink{}
	}
	return &FactoryProber{protoName: protoName, dir: dir, patterns: patterns, factory: factory, sink: sink}
}

func (p *FactoryProber) Name() string             { return p.factory.Name() }
func (p *FactoryProber) Direction() proto.Direction { return p.dir }

func (p *FactoryProber) PatternMatch(data []byte) detect.Decision {
	if len(p.patterns) == 0 {
		return detect.Accept
	}
	return matchPrefixes(data, p.patterns)
}

// Probe calls the wrapped factory's Accepts. On Accept it creates the
// concrete gnet.TCPParser for this (flow, direction) and stashes it in f's
// per-protocol parser state, keyed by this FactoryProber's committed
// proto.AppProto id, so the matching parse.Parser.Parse call can find it
// again.
func (p *FactoryProber) Probe(f *flow.Flow, dir proto.Direction, data []byte, isEnd bool) detect.Decision {
	decision, _ := p.factory.Accepts(memview.New(data), isEnd)

	switch decision {
	case gnet.Accept:
		state := p.flowState(f)
		state.set(dir, p.factory.CreateParser(bidiID(f), reassembly.Sequence(0), reassembly.Sequence(0)))
		return detect.Accept
	case gnet.NeedMoreData:
		return detect.NeedMoreData
	default:
		return detect.Reject
	}
}

// flowState returns (creating if necessary) the factoryState this
// protocol's FactoryProbers share on f.
func (p *FactoryProber) flowState(f *flow.Flow) *factoryState {
	v, ok := f.ParserState(p.id)
	if ok {
		if s, ok := v.(*factoryState); ok {
			return s
		}
	}
	s := &factoryState{}
	f.SetParserState(p.id, s)
	return s
}

// bidiID derives a gnet.TCPBidiID for f. Flows without a TCP session (UDP)
// never reach a FactoryProber, since none of the wrapped protocols in this
// package run over UDP.
func bidiID(f *flow.Flow) gnet.TCPBidiID {
	if f.Session == nil {
		return uuid.Nil
	}
	return f.Session.ConnectionID
}

// BindID records id (the proto.AppProto detect.Engine.Register assigned
// this protocol's name) on p, so Probe's accepting branch stashes parser
// state under the right key. A bidirectional protocol's request-side and
// response-side FactoryProbers both bind the same id.
func (p *FactoryProber) BindID(id proto.AppProto) { p.id = id }

// NewFactoryParser returns the single parse.Parser shared by every
// direction's FactoryProber for one protocol. One parser suffices because
// factoryParser.Parse already branches on direction through the
// factoryState stashed by whichever FactoryProber accepted that side.
func NewFactoryParser(id proto.AppProto, sink Sink) parse.Parser {
	if sink == nil {
		sink = DiscardSink{}
	}
	return &factoryParser{id: id, sink: sink}
}

type factoryParser struct {
	id   proto.AppProto
	sink Sink
}

func (fp *factoryParser) Proto() proto.AppProto { return fp.id }

// Parse feeds data to whichever gnet.TCPParser this flow/direction stashed
// during detection, emitting any completed unit to the sink. A direction
// with no stashed parser (detection accepted the other direction of the
// same protocol but not this one, e.g. an HTTP response-only flow) simply
// drops its bytes; that mirrors the original gnet-level factory selection, which
// likewise only ever produces one parser per direction.
func (fp *factoryParser) Parse(f *flow.Flow, dir proto.Direction, data []byte) error {
	v, ok := f.ParserState(fp.id)
	if !ok {
		return nil
	}
	state, ok := v.(*factoryState)
	if !ok {
		return nil
	}
	parser := state.get(dir)
	if parser == nil {
		return nil
	}

	view := memview.New(data)
	for view.Len() > 0 {
		content, unused, _, err := parser.Parse(view, false)
		if err != nil {
			return errors.Wrap(parse.ErrFatal, err.Error())
		}
		if content != nil {
			fp.sink.Emit(f, dir, content)
		}
		if unused.Len() == view.Len() {
			break
		}
		view = unused
	}
	return nil
}
