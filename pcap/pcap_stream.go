package pcap

import (
	"encoding/binary"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/reassembly"
	"github.com/google/uuid"

	"github.com/mel2oo/go-alcore/applayer"
	"github.com/mel2oo/go-alcore/flow"
	"github.com/mel2oo/go-alcore/gid"
	"github.com/mel2oo/go-alcore/gnet"
	"github.com/mel2oo/go-alcore/proto"
)

// tcpFlow represents a uni-directional flow of TCP segments along with a
// bidirectional ID that identifies the tcpFlow in the opposite direction.
// Writes come from TCP assembler via tcpStream, while reads come from users
// of this struct. Unlike a one-shot parser-owning tcpFlow, this one has no
// parser factory or currentParser of its own: bytes are handed straight to
// the shared flow.Flow through the dispatch core, which owns all detection
// and parser state.
type tcpFlow struct {
	netFlow gopacket.Flow // constant
	tcpFlow gopacket.Flow // constant

	// Shared with tcpFlow in the opposite direction of this flow.
	bidiID uuid.UUID // constant
	dir    proto.Direction

	outChan    chan<- gnet.NetTraffic
	dispatcher *applayer.Dispatcher
	tctx       *applayer.ThreadCtx

	// Shared with the tcpFlow in the opposite direction.
	flow *flow.Flow
}

func newTCPFlow(bidiID uuid.UUID, dir proto.Direction, nf, tf gopacket.Flow, outChan chan<- gnet.NetTraffic,
	d *applayer.Dispatcher, tctx *applayer.ThreadCtx, f *flow.Flow) *tcpFlow {
	return &tcpFlow{
		netFlow:    nf,
		tcpFlow:    tf,
		bidiID:     bidiID,
		dir:        dir,
		outChan:    outChan,
		dispatcher: d,
		tctx:       tctx,
		flow:       f,
	}
}

// Handles reassembled TCP flow data, routing it through the dispatch core
// instead of a one-shot gnet.TCPParserFactorySelector.
func (f *tcpFlow) reassembled(sg reassembly.ScatterGather, ac reassembly.AssemblerContext) {
	_, _, isEnd, _ := sg.Info()
	bytesAvailable, _ := sg.Lengths()
	data := sg.Fetch(bytesAvailable)

	if len(data) == 0 && !isEnd {
		return
	}

	pkt := &applayer.Packet{Dir: f.dir}
	flags := proto.FlagsForDirection(f.dir)

	f.flow.Lock()
	err := f.dispatcher.HandleTCPData(f.tctx, pkt, f.flow, f.dir, data, flags)
	deferred := f.flow.AppProto() == proto.Unknown && !f.flow.NoAppLayerInspection()
	gaveUp := f.flow.NoAppLayerInspection()
	f.flow.Unlock()

	if err != nil {
		// Never fatal to the reassembler; the dispatch core has already
		// recorded whatever state change it needed (e.g. NoAppLayerInspection)
		// before returning an error here.
		_ = err
	}

	if deferred && !isEnd {
		// Detection on this or the opposing direction is still pending;
		// keep every byte so the next reassembled call sees the same
		// cumulative prefix again, the same way a NeedMoreData
		// branch used sg.KeepFrom to retry with more data.
		sg.KeepFrom(0)
		return
	}

	if gaveUp {
		ts := ac.GetCaptureInfo().Timestamp
		f.outChan <- f.toPNT(ts, ts, gnet.DroppedBytes(len(data)), data)
	}
}

func (f *tcpFlow) toPNT(firstPacketTime, lastPacketTime time.Time,
	c gnet.ParsedNetworkContent, payload []byte) gnet.NetTraffic {
	if firstPacketTime.IsZero() {
		firstPacketTime = time.Now()
	}
	if lastPacketTime.IsZero() {
		lastPacketTime = firstPacketTime
	}

	srcE, dstE := f.netFlow.Endpoints()
	srcP, dstP := f.tcpFlow.Endpoints()

	return gnet.NetTraffic{
		LayerType:       "TCP",
		SrcIP:           net.IP(srcE.Raw()),
		SrcPort:         int(binary.BigEndian.Uint16(srcP.Raw())),
		DstIP:           net.IP(dstE.Raw()),
		DstPort:         int(binary.BigEndian.Uint16(dstP.Raw())),
		Payload:         payload,
		Content:         c,
		ConnectionID:    gid.NewConnectionID(f.bidiID),
		ObservationTime: firstPacketTime,
		FinalPacketTime: lastPacketTime,
	}
}

// tcpStream represents a pair of uni-directional tcpFlows sharing one
// flow.Flow and flow.TCPSession. It implements reassembly.Stream to
// receive reassembled packets for BOTH flows, which it then directs to the
// correct tcpFlow.
type tcpStream struct {
	bidiID uuid.UUID // constant

	netFlow gopacket.Flow

	// flows is populated upon seeing the first packet.
	flows map[reassembly.TCPFlowDirection]*tcpFlow

	dispatcher *applayer.Dispatcher
	tctx       *applayer.ThreadCtx
	outChan    chan<- gnet.NetTraffic
	sink       *Sink
}

func newTCPStream(netFlow gopacket.Flow, outChan chan<- gnet.NetTraffic,
	d *applayer.Dispatcher, tctx *applayer.ThreadCtx, sink *Sink) *tcpStream {
	return &tcpStream{
		bidiID:     uuid.New(),
		netFlow:    netFlow,
		dispatcher: d,
		tctx:       tctx,
		outChan:    outChan,
		sink:       sink,
	}
}

func (c *tcpStream) Accept(tcp *layers.TCP, _ gopacket.CaptureInfo,
	dir reassembly.TCPFlowDirection, _ reassembly.Sequence,
	start *bool, ac reassembly.AssemblerContext) bool {
	// We always force the TCP stream to start because we cannot guarantee that we
	// will ever observe the SYN packet. For example, we could be looking at an
	// existing connection that is actively reused by HTTP traffic. Without the
	// forced start, the stream will be held up by the assembler forever and we'll
	// never get a change to analyze its data.
	*start = true

	if c.flows == nil {
		// We are accepting the first packet for this connection. The
		// direction reassembly first saw becomes TOSERVER; its reverse is
		// TOCLIENT. Both tcpFlows share one flow.Flow/flow.TCPSession.
		tf, _ := gopacket.FlowFromEndpoints(
			layers.NewTCPPortEndpoint(tcp.SrcPort),
			layers.NewTCPPortEndpoint(tcp.DstPort),
		)

		fl := flow.New(proto.L4TCP, nil)
		fl.Session = flow.NewTCPSession()
		fl.Session.ConnectionID = c.bidiID

		s1 := newTCPFlow(c.bidiID, proto.DirToServer, c.netFlow, tf, c.outChan, c.dispatcher, c.tctx, fl)
		s2 := newTCPFlow(c.bidiID, proto.DirToClient, c.netFlow.Reverse(), tf.Reverse(), c.outChan, c.dispatcher, c.tctx, fl)
		c.flows = map[reassembly.TCPFlowDirection]*tcpFlow{
			dir:           s1,
			dir.Reverse(): s2,
		}

		if c.sink != nil {
			srcE, dstE := c.netFlow.Endpoints()
			c.sink.register(fl, connEndpoints{
				bidiID:  c.bidiID,
				srcIP:   net.IP(srcE.Raw()),
				srcPort: int(tcp.SrcPort),
				dstIP:   net.IP(dstE.Raw()),
				dstPort: int(tcp.DstPort),
			})
		}
	}

	// Output some metadata for the current packet.
	if len(tcp.Payload) == 0 {
		srcE, dstE := c.netFlow.Endpoints()

		c.outChan <- gnet.NetTraffic{
			LayerType:    "TCP",
			SrcIP:        net.IP(srcE.Raw()),
			SrcPort:      int(tcp.SrcPort),
			DstIP:        net.IP(dstE.Raw()),
			DstPort:      int(tcp.DstPort),
			ConnectionID: gid.NewConnectionID(c.bidiID),
			Content: gnet.TCPPacketMetadata{
				SYN: tcp.SYN,
				ACK: tcp.ACK,
				FIN: tcp.FIN,
				RST: tcp.RST,
			},
			ObservationTime: ac.GetCaptureInfo().Timestamp,
		}
	}

	// Accept everything, even if the packet might violate the TCP state machine
	// and get rejected by the client or server's TCP stack. We do this because we
	// are interested in detecting all dataflows, not just ones from valid TCP
	// connections.
	// The reassembly library does guarantee to deliver data in stream order, so
	// we don't need to worry about getting out-of-order or duplicate data.
	return true
}

// Handles reassembled TCP stream data.
func (c *tcpStream) ReassembledSG(sg reassembly.ScatterGather, ac reassembly.AssemblerContext) {
	if c.flows == nil {
		return
	}
	dir, _, _, _ := sg.Info()
	c.flows[dir].reassembled(sg, ac)
}

func (c *tcpStream) ReassemblyComplete(_ reassembly.AssemblerContext) bool {
	// Nothing to flush per-flow: the dispatch core holds all pending state
	// on flow.Flow itself rather than in a currentParser owned by tcpFlow,
	// so there is no in-flight parser object here to force-finish.
	if c.sink != nil && c.flows != nil {
		for _, fl := range c.flows {
			c.sink.forget(fl.flow)
			break
		}
	}

	// Remove connection from the pool.
	return true
}
