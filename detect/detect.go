// Package detect implements the two-stage pattern-match / probe-parser
// detection engine: given a candidate protocol's
// Prober, decide Accept/Reject/NeedMoreData, and track the PM_DONE/PP_DONE
// exhaustion latches the dispatch core consults.
package detect

import (
	"github.com/mel2oo/go-alcore/flow"
	"github.com/mel2oo/go-alcore/proto"
)

// Decision is the three-way verdict a Prober returns at each stage,
// mirroring the Accept/Reject/NeedMoreData shape of gnet.TCPParserFactory.Accepts.
type Decision int

const (
	// NeedMoreData: not enough bytes yet to decide either way; try again
	// once more data has arrived, unless the direction's PM/PP family is
	// otherwise exhausted.
	NeedMoreData Decision = iota
	// Accept: this stage passes; move to the next stage (PatternMatch ->
	// Probe), or, from Probe, commit the protocol.
	Accept
	// Reject: this Prober is permanently done for this flow/direction.
	Reject
)

// Prober is one candidate protocol's detection logic. A single Prober
// implements both the pattern-match (PM) and probe-parser (PP) stages named
// in the glossary, since in practice both stages look at the same
// accumulated prefix of a direction's byte stream and a single
// implementation is the natural place to share that state.
type Prober interface {
	// Name is the protocol name used by proto.Registry (and proto_by_name).
	Name() string

	// Direction restricts which direction's bytes this particular Prober
	// instance is even tried against (proto.DirNone/DirBoth for no
	// restriction). This is a property of the Prober instance, not of the
	// protocol as a whole: a bidirectional protocol like HTTP registers one
	// Prober per direction (request vs response), each restricted to its
	// own side, while the protocol's first-data-direction preference (used
	// by Engine.Register) is a single fact shared by both.
	Direction() proto.Direction

	// PatternMatch is the cheap PM stage: a fixed-prefix or similarly
	// lightweight check over data seen so far in one direction. NeedMoreData
	// here counts toward "PM family still pending"; Reject or Accept does
	// not. The dispatch core sets the direction's PM_DONE latch only when no
	// eligible Prober is still pending (Result.PMExhausted).
	PatternMatch(data []byte) Decision

	// Probe is the deeper PP stage, invoked only once PatternMatch has
	// Accepted. isEnd signals that no more data will arrive for this
	// direction on this flow (e.g. stream shutdown), letting probers that
	// would otherwise return NeedMoreData forever instead Reject. f is
	// passed through so a Prober that accepts can stash whatever per-flow
	// parser state it will need later (via f.SetParserState) without this
	// package needing to know anything about that state's shape.
	Probe(f *flow.Flow, dir proto.Direction, data []byte, isEnd bool) Decision
}

// Result is the outcome of one Engine.Detect call.
type Result struct {
	// Proto is the committed protocol, or proto.Unknown if nothing
	// accepted.
	Proto proto.AppProto

	// PMExhausted is true when no Prober eligible for this direction
	// returned NeedMoreData at the pattern-match stage, i.e. each one either
	// rejected there or went on to the probe stage (PM_DONE).
	PMExhausted bool

	// PPExhausted is true when every Prober that passed pattern-match was
	// subsequently rejected at the probe stage (PP_DONE).
	// Vacuously true if no Prober ever reached the probe stage.
	PPExhausted bool
}

// Engine runs the registered Probers eligible for a given direction against
// a buffered prefix of that direction's bytes.
type Engine struct {
	registry *proto.Registry
	probers  []registeredProber
}

type registeredProber struct {
	id     proto.AppProto
	prober Prober
}

// NewEngine returns an Engine backed by registry. Probers are added with
// Register.
func NewEngine(registry *proto.Registry) *Engine {
	return &Engine{registry: registry}
}

// Register adds p to the engine under the given protocol name, assigning
// (or reusing) its AppProto id in the shared registry. firstDataDir is the
// protocol-wide first-data-direction preference recorded against that name
// (see proto.Registry.Register); it is independent of p.Direction(), which
// only restricts when this particular Prober is tried. Registering two
// Probers under the same name (e.g. a request-side and a response-side
// Prober for one bidirectional protocol) is the normal way to model a
// protocol whose detection logic differs by direction.
func (e *Engine) Register(name string, firstDataDir proto.Direction, p Prober) proto.AppProto {
	id := e.registry.Register(name, firstDataDir)
	e.probers = append(e.probers, registeredProber{id: id, prober: p})
	return id
}

// FirstDataDir forwards to the shared registry, implementing the detector
// side of the "does this protocol insist on first-data direction
// dir" check.
func (e *Engine) FirstDataDir(id proto.AppProto) proto.Direction {
	return e.registry.FirstDataDir(id)
}

// Registry exposes the engine's backing registry, e.g. for proto_by_name /
// proto_to_string callers.
func (e *Engine) Registry() *proto.Registry { return e.registry }

// Detect runs every Prober eligible for dir against data.
// isEnd mirrors Prober.Probe's isEnd.
func (e *Engine) Detect(f *flow.Flow, dir proto.Direction, data []byte, isEnd bool) Result {
	pmPending := false
	ppPending := false

	for _, rp := range e.probers {
		pdir := rp.prober.Direction()
		if pdir != proto.DirNone && pdir != proto.DirBoth && pdir != dir {
			continue
		}

		switch rp.prober.PatternMatch(data) {
		case Reject:
			continue
		case NeedMoreData:
			pmPending = true
			continue
		}

		switch rp.prober.Probe(f, dir, data, isEnd) {
		case Accept:
			return Result{Proto: rp.id, PMExhausted: false, PPExhausted: false}
		case NeedMoreData:
			ppPending = true
		case Reject:
			continue
		}
	}

	return Result{
		Proto:       proto.Unknown,
		PMExhausted: !pmPending,
		PPExhausted: !ppPending,
	}
}
