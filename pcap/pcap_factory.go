package pcap

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/reassembly"

	"github.com/mel2oo/go-alcore/applayer"
	"github.com/mel2oo/go-alcore/gnet"
)

// Internal implementation of reassembly.AssemblerContext that includes TCP
// seq and ack numbers.
type assemblerCtxWithSeq struct {
	ci       gopacket.CaptureInfo
	seq, ack reassembly.Sequence
}

func contextFromTCPPacket(p gopacket.Packet, t *layers.TCP) *assemblerCtxWithSeq {
	return &assemblerCtxWithSeq{
		ci:  p.Metadata().CaptureInfo,
		seq: reassembly.Sequence(t.Seq),
		ack: reassembly.Sequence(t.Ack),
	}
}

func (ctx *assemblerCtxWithSeq) GetCaptureInfo() gopacket.CaptureInfo {
	return ctx.ci
}

// tcpStreamFactory implements reassembly.StreamFactory, handing every new
// TCP connection's reassembled bytes to the shared dispatch core instead of
// a per-connection gnet.TCPParserFactorySelector.
type tcpStreamFactory struct {
	dispatcher *applayer.Dispatcher
	tctx       *applayer.ThreadCtx
	outChan    chan<- gnet.NetTraffic
	sink       *Sink
}

func newTCPStreamFactory(outChan chan<- gnet.NetTraffic, d *applayer.Dispatcher,
	tctx *applayer.ThreadCtx, sink *Sink) *tcpStreamFactory {
	return &tcpStreamFactory{
		dispatcher: d,
		tctx:       tctx,
		outChan:    outChan,
		sink:       sink,
	}
}

func (fact *tcpStreamFactory) New(netFlow, _ gopacket.Flow, _ *layers.TCP,
	_ reassembly.AssemblerContext) reassembly.Stream {
	return newTCPStream(netFlow, fact.outChan, fact.dispatcher, fact.tctx, fact.sink)
}
