package applayer

import (
	"time"

	"github.com/mel2oo/go-alcore/detect"
	"github.com/mel2oo/go-alcore/flow"
	"github.com/mel2oo/go-alcore/parse"
	"github.com/mel2oo/go-alcore/proto"
)

// Reassembler is the external TCP reassembly engine this core drives during
// a force-drain of the opposing half-stream ("Reassembler
// entry points"). A concrete implementation (the pcap package's gopacket
// reassembly wiring) buffers not-yet-delivered bytes per direction and
// replays them through the dispatcher on drain.
type Reassembler interface {
	// ReassembleAppLayer delivers any buffered-but-undelivered bytes for
	// dir to the app layer now, out of band from the normal reassembler
	// callback order. Used in IDS (non-inline) mode.
	ReassembleAppLayer(f *flow.Flow, dir proto.Direction) error

	// ReassembleInlineAppLayer is the inline-mode counterpart: the
	// reassembler is also responsible for forwarding the original packets,
	// so the drain must happen synchronously with that forwarding path.
	ReassembleInlineAppLayer(f *flow.Flow, dir proto.Direction) error
}

// Profiler is the optional timing hook for detect/parse calls. The default
// implementation (noopProfiler) costs one interface call per detect/parse
// invocation and nothing else.
type Profiler interface {
	ObserveDetect(l4 proto.L4, dir proto.Direction, d time.Duration)
	ObserveParse(p proto.AppProto, dir proto.Direction, d time.Duration)
}

type noopProfiler struct{}

func (noopProfiler) ObserveDetect(proto.L4, proto.Direction, time.Duration)    {}
func (noopProfiler) ObserveParse(proto.AppProto, proto.Direction, time.Duration) {}

// Option configures a Dispatcher, matching the functional-options shape of
// pcap.Option.
type Option func(*Dispatcher)

// WithReassembler registers the reassembler used for force-drains. Without
// one, a force-drain is a no-op that always succeeds.
func WithReassembler(r Reassembler) Option {
	return func(d *Dispatcher) { d.reassembler = r }
}

// SetReassembler is the post-construction counterpart to WithReassembler,
// for callers that only have their Reassembler available after building
// the Dispatcher (e.g. pcap.TrafficParser, whose gopacket assembler isn't
// constructed until Parse runs).
func (d *Dispatcher) SetReassembler(r Reassembler) { d.reassembler = r }

// WithProfiler registers a Profiler. Without one, a zero-cost no-op is
// used.
func WithProfiler(p Profiler) Option {
	return func(d *Dispatcher) { d.profiler = p }
}

// WithInlineReassembly switches force-drains to use
// ReassembleInlineAppLayer instead of ReassembleAppLayer.
func WithInlineReassembly() Option {
	return func(d *Dispatcher) { d.inline = true }
}

// Dispatcher is the application-layer dispatch core: it wires
// a detect.Engine and a parse.Registry together and implements the TCP and
// UDP data handlers.
type Dispatcher struct {
	Engine  *detect.Engine
	Parsers *parse.Registry

	reassembler Reassembler
	profiler    Profiler
	inline      bool
}

// New constructs a Dispatcher over engine and parsers.
func New(engine *detect.Engine, parsers *parse.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		Engine:   engine,
		Parsers:  parsers,
		profiler: noopProfiler{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ProtoByName implements the proto_by_name adapter.
func (d *Dispatcher) ProtoByName(name string) proto.AppProto {
	return d.Engine.Registry().ByName(name)
}

// ProtoToString implements the proto_to_string adapter.
func (d *Dispatcher) ProtoToString(id proto.AppProto) string {
	return d.Engine.Registry().ToString(id)
}

func (d *Dispatcher) forceDrain(f *flow.Flow, pkt *Packet, dir proto.Direction) error {
	if d.reassembler == nil {
		return nil
	}
	return withDirectionOverride(pkt, dir, func() error {
		if d.inline {
			return d.reassembler.ReassembleInlineAppLayer(f, dir)
		}
		return d.reassembler.ReassembleAppLayer(f, dir)
	})
}

func (d *Dispatcher) parseChunk(f *flow.Flow, dir proto.Direction, p proto.AppProto, data []byte) error {
	parser, err := d.Parsers.Get(p)
	if err != nil {
		// Nothing registered for this protocol; treat as anomalous-but-
		// continue rather than fatal-to-flow.
		return nil
	}

	start := time.Now()
	err = parser.Parse(f, dir, data)
	d.profiler.ObserveParse(p, dir, time.Since(start))
	return err
}
