package pcap

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mel2oo/go-alcore/flow"
	"github.com/mel2oo/go-alcore/gid"
	"github.com/mel2oo/go-alcore/gnet"
	"github.com/mel2oo/go-alcore/proto"
)

// connEndpoints is the addressing pcap knows about a flow.Flow at the time
// it is created, keyed back in at emit time since flow.Flow itself carries
// no L3/L4 addressing (that is out of the dispatch core's scope).
type connEndpoints struct {
	bidiID uuid.UUID

	// toServer is the endpoint pair observed on this flow's first packet.
	srcIP   net.IP
	srcPort int
	dstIP   net.IP
	dstPort int
}

// Sink adapts the l7 package's parsed output back onto the TrafficParser's
// gnet.NetTraffic channel, the same channel a one-shot parser
// path wrote to directly. It implements l7.Sink structurally without
// importing the l7 package, since pcap sits below l7 in the dependency
// graph (l7 wires gnet parsers to a detect.Engine/parse.Registry; pcap
// wires packets to that engine through the dispatch core).
type Sink struct {
	mu        sync.Mutex
	outChan   chan<- gnet.NetTraffic
	endpoints map[*flow.Flow]connEndpoints
}

// NewSink constructs a Sink writing to outChan.
func NewSink(outChan chan<- gnet.NetTraffic) *Sink {
	return &Sink{
		outChan:   outChan,
		endpoints: make(map[*flow.Flow]connEndpoints),
	}
}

// register records the addressing for f, so a later Emit for f can be
// attributed back to its source/destination endpoints.
func (s *Sink) register(f *flow.Flow, e connEndpoints) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoints[f] = e
}

// forget drops f's addressing entry. Called once a TCP stream completes or
// a UDP flow entry is evicted, so the map doesn't grow unbounded.
func (s *Sink) forget(f *flow.Flow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.endpoints, f)
}

// Emit implements l7.Sink.
func (s *Sink) Emit(f *flow.Flow, dir proto.Direction, content gnet.ParsedNetworkContent) {
	s.mu.Lock()
	e, ok := s.endpoints[f]
	s.mu.Unlock()

	nt := gnet.NetTraffic{
		LayerType:       "TCP",
		Content:         content,
		ObservationTime: time.Now(),
		FinalPacketTime: time.Now(),
	}

	if ok {
		nt.ConnectionID = gid.NewConnectionID(e.bidiID)
		if dir == proto.DirToClient {
			// e's recorded endpoints are the toServer tuple; a toClient
			// message runs in the opposite direction.
			nt.SrcIP, nt.SrcPort = e.dstIP, e.dstPort
			nt.DstIP, nt.DstPort = e.srcIP, e.srcPort
		} else {
			nt.SrcIP, nt.SrcPort = e.srcIP, e.srcPort
			nt.DstIP, nt.DstPort = e.dstIP, e.dstPort
		}
	}

	s.outChan <- nt
}
