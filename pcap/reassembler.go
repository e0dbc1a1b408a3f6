package pcap

import (
	"time"

	"github.com/google/gopacket/reassembly"

	"github.com/mel2oo/go-alcore/flow"
	"github.com/mel2oo/go-alcore/proto"
)

// gopacketReassembler implements applayer.Reassembler on top of a single
// gopacket/reassembly.Assembler.
//
// gopacket/reassembly has no public API to synchronously force a specific
// stream to hand over its buffered-but-undelivered bytes mid-callback; the
// only flush primitive is Assembler.FlushWithOptions, which is global and
// time-threshold based. A true per-stream force-drain would
// require reaching into the assembler's connection table, which the library
// does not expose. This is therefore a best-effort approximation: it nudges
// the assembler to flush anything older than a near-zero threshold, which in
// practice flushes the very stream the caller is mid-callback for (it is the
// oldest thing the assembler is currently holding) along with anything else
// that has gone quiet. Callers should not rely on this being scoped to one
// flow.
type gopacketReassembler struct {
	assembler *reassembly.Assembler
}

func newGopacketReassembler(a *reassembly.Assembler) *gopacketReassembler {
	return &gopacketReassembler{assembler: a}
}

func (r *gopacketReassembler) flushNow() {
	now := time.Now()
	r.assembler.FlushWithOptions(reassembly.FlushOptions{T: now, TC: now})
}

// ReassembleAppLayer is the IDS-mode force-drain entry point.
func (r *gopacketReassembler) ReassembleAppLayer(_ *flow.Flow, _ proto.Direction) error {
	r.flushNow()
	return nil
}

// ReassembleInlineAppLayer is the inline-mode force-drain entry point. There
// is no separate inline forwarding path in this pcap-file/offline-capture
// reader, so it behaves the same as ReassembleAppLayer.
func (r *gopacketReassembler) ReassembleInlineAppLayer(f *flow.Flow, dir proto.Direction) error {
	return r.ReassembleAppLayer(f, dir)
}
