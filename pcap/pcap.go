package pcap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/reassembly"

	"github.com/mel2oo/go-alcore/applayer"
	"github.com/mel2oo/go-alcore/flow"
	"github.com/mel2oo/go-alcore/gnet"
	"github.com/mel2oo/go-alcore/memview"
	"github.com/mel2oo/go-alcore/proto"
)

type TrafficParser struct {
	opts    Options
	reader  PcapReader
	outchan chan gnet.NetTraffic
	sink    *Sink
	tctx    *applayer.ThreadCtx

	udpMu    sync.Mutex
	udpFlows map[string]*udpEntry
}

// udpEntry is one canonicalized UDP 4-tuple's flow state. firstSrcIP/Port
// records the endpoint pair seen on the first packet of this flow, which is
// taken to be the toServer direction; every later packet's direction is
// decided by comparing against it.
type udpEntry struct {
	flow         *flow.Flow
	firstSrcIP   string
	firstSrcPort int
	lastSeen     time.Time
}

func NewTrafficParser(opt ...Option) (*TrafficParser, error) {
	opts := NewOptions()
	for _, o := range opt {
		o(&opts)
	}

	if len(opts.ReadName) == 0 {
		return nil, errors.New("please set reader name")
	}

	var reader PcapReader
	if !opts.Live {
		reader = NewFileReader(opts.ReadName, opts.BPFilter)
	} else {
		reader = NewDeviceReader(opts.ReadName, opts.BPFilter)
	}

	outchan := make(chan gnet.NetTraffic, 100)

	return &TrafficParser{
		opts:     opts,
		reader:   reader,
		outchan:  outchan,
		sink:     NewSink(outchan),
		udpFlows: make(map[string]*udpEntry),
	}, nil
}

// Sink returns the l7-parsed-content sink this parser writes to its output
// channel through. Callers wire protocol parsers onto it before building the
// Dispatcher passed to WithDispatcher, e.g.:
//
//	parser, _ := pcap.NewTrafficParser(pcap.WithReadName(name, false))
//	l7.RegisterAll(engine, parsers, pool, parser.Sink())
//	dispatcher := applayer.New(engine, parsers)
//	parser.opts.Dispatcher = dispatcher // or pcap.WithDispatcher at construction
func (p *TrafficParser) Sink() *Sink { return p.sink }

// Parses network traffic from an interface.
// This function will attempt to parse the traffic with the highest level of
// protocol details as possible. For instance, it will try to piece together
// HTTP request and response pairs.
// Detection and parsing are delegated to the application-layer dispatch
// core (p.opts.Dispatcher); gopacket/reassembly's job is purely to hand
// this package ordered, deduplicated byte streams per direction.
func (p *TrafficParser) Parse(ctx context.Context) (<-chan gnet.NetTraffic, error) {
	if p.opts.Dispatcher == nil {
		return nil, errors.New("pcap: no Dispatcher set (see pcap.WithDispatcher)")
	}

	tctx, err := applayer.NewThreadCtx()
	if err != nil {
		return nil, fmt.Errorf("pcap: building thread context: %w", err)
	}
	p.tctx = tctx

	// Read in packets, pass to assembler
	packets, err := p.reader.Capture(ctx)
	if err != nil {
		return nil, err
	}

	// Set up assembly
	streamFactory := newTCPStreamFactory(p.outchan, p.opts.Dispatcher, tctx, p.sink)
	streamPool := reassembly.NewStreamPool(streamFactory)
	assembler := reassembly.NewAssembler(streamPool)

	// Override the assembler configuration. (This is the documented way to change them.)
	// Give this particular assembler a fraction of the total pages; there doesn't seem to be a way
	// to set an aggregate limit without major work.
	assembler.AssemblerOptions.MaxBufferedPagesTotal = p.opts.MaxBufferedPagesTotal
	assembler.AssemblerOptions.MaxBufferedPagesPerConnection = p.opts.MaxBufferedPagesPerConnection

	// The dispatch core's force-drain entry points are backed
	// by this same assembler, so they can only be wired up now that it
	// exists.
	p.opts.Dispatcher.SetReassembler(newGopacketReassembler(assembler))

	streamFlushTimeout := time.Duration(p.opts.StreamFlushTimeout) * time.Second
	streamCloseTimeout := time.Duration(p.opts.StreamCloseTimeout) * time.Second

	go func() {
		ticker := time.NewTicker(streamFlushTimeout / 4)
		defer ticker.Stop()

		// Signal caller that we're done on exit
		defer close(p.outchan)
		defer tctx.Destroy()

		for {
			select {
			// packets channel is going to read until EOF or when signalClose is
			// invoked.
			case packet, more := <-packets:
				if !more || packet == nil {
					// Flushes and closes all remaining connections. This should trigger all
					// parsers to hit EOF and return. This call will block until the parsers
					// have returned because tcpStream.ReassemblyComplete waits for
					// parsers.
					//
					// This is not safe to call in a defer, because it will be called on abnormal
					// exit from FlushCloseOlderThan (like a parser segfault) but assembler might
					// not be in a safe state to call (like holding a mutex.)
					assembler.FlushAll()

					return
				}

				p.PacketToNetTraffic(assembler, packet)
			case <-ticker.C:
				// The assembler stops reassembly for streams older than streamFlushTimeout.
				// This means the corresponding tcpFlow readers will return EOF.
				//
				// If there is a missing portion of the TCP reassembly (usually due to an
				// uncaptured packet) older then the stream timeout, then this call forces
				// the assembler to skip the missing data and deliver what it has accumulated
				// after that point. The stream will not be closed if it has received
				// packets more recently than that gap.
				//
				// Streams that are idle need to be closed eventually, too.  We use a larger
				// threshold for that because it costs us less memory to keep just a
				// connection record, rather than a backlog of data in the reassembly buffer.
				now := time.Now()
				streamFlushThreshold := now.Add(-streamFlushTimeout)
				streamCloseThreshold := now.Add(-streamCloseTimeout)
				flushed, closed := assembler.FlushWithOptions(
					reassembly.FlushOptions{
						T:  streamFlushThreshold,
						TC: streamCloseThreshold,
					})

				if flushed != 0 || closed != 0 {
					fmt.Printf("%d flushed, %d closed\n", flushed, closed)
				}

				p.evictIdleUDPFlows(streamCloseThreshold)
			}
		}
	}()

	return p.outchan, nil
}

func (p *TrafficParser) PacketToNetTraffic(assembler *reassembly.Assembler, packet gopacket.Packet) {
	defer func() {
		// If we panic during packet handling, do not crash the program. Instead log the error and backtrace.
		// We can perform selective error-handling based on the type of the object passed to panic(),
		// but we can't choose not to recover from certain errors; we would have to re-panic.
		if err := recover(); err != nil {
			fmt.Println("packet handling", err)
		}
	}()

	if packet.NetworkLayer() == nil {
		return
	}

	// Use timestamp current or use the more precise timestamp on the packet, if available.
	observationTime := time.Now()
	if packet.Metadata() != nil {
		if t := packet.Metadata().Timestamp; !t.IsZero() {
			observationTime = t
		}
	}

	// packet layer class
	types := make([]gopacket.LayerType, 0)
	for _, layer := range packet.Layers() {
		types = append(types, layer.LayerType())
	}
	class := gopacket.NewLayerClass(types)

	// Get network layer type, src and dst address
	var srcIP, dstIP net.IP
	switch l := packet.NetworkLayer().(type) {
	case *layers.IPv4:
		srcIP = l.SrcIP
		dstIP = l.DstIP
	case *layers.IPv6:
		srcIP = l.SrcIP
		dstIP = l.DstIP
	}

	transportLayer := packet.TransportLayer()

	if transportLayer == nil {
		p.outchan <- gnet.NetTraffic{
			LayerClass: class,
			SrcIP:      srcIP,
			DstIP:      dstIP,
			Content: gnet.BodyBytes{
				MemView: memview.New(packet.NetworkLayer().LayerPayload()),
			},

			ObservationTime: observationTime,
		}
		return
	}

	var srcPort, dstPort int
	switch t := transportLayer.(type) {
	case *layers.TCP:
		// Let TCP reassembler do extra magic to parse out higher layer protocols.
		assembler.AssembleWithContext(packet.NetworkLayer().NetworkFlow(), t,
			contextFromTCPPacket(packet, t))
		return
	case *layers.UDP:
		srcPort = int(t.SrcPort)
		dstPort = int(t.DstPort)
		p.handleUDP(packet, srcIP, dstIP, srcPort, dstPort, observationTime)
		return
	default:
		p.outchan <- gnet.NetTraffic{
			LayerClass: class,
			SrcIP:      srcIP,
			DstIP:      dstIP,
			Content: gnet.BodyBytes{
				MemView: memview.New(t.LayerPayload()),
			},
			ObservationTime: observationTime,
		}
		return
	}
}

// handleUDP routes a UDP datagram's application payload through the
// dispatch core's HandleUDPData entry point, tracking per-4-tuple flow
// state (direction and detection latches) the same way tcpStream tracks it
// for TCP connections.
func (p *TrafficParser) handleUDP(packet gopacket.Packet, srcIP, dstIP net.IP,
	srcPort, dstPort int, observationTime time.Time) {
	applicationLayer := packet.ApplicationLayer()
	var payload []byte
	if applicationLayer != nil {
		payload = applicationLayer.LayerContents()
	}

	key := udpFlowKey(srcIP, srcPort, dstIP, dstPort)

	p.udpMu.Lock()
	entry, ok := p.udpFlows[key]
	if !ok {
		entry = &udpEntry{
			flow:         flow.New(proto.L4UDP, nil),
			firstSrcIP:   srcIP.String(),
			firstSrcPort: srcPort,
		}
		p.udpFlows[key] = entry
		p.sink.register(entry.flow, connEndpoints{
			bidiID:  uuidFromKey(key),
			srcIP:   srcIP,
			srcPort: srcPort,
			dstIP:   dstIP,
			dstPort: dstPort,
		})
	}
	entry.lastSeen = observationTime
	p.udpMu.Unlock()

	dir := proto.DirToServer
	if !(srcIP.String() == entry.firstSrcIP && srcPort == entry.firstSrcPort) {
		dir = proto.DirToClient
	}

	if len(payload) > 0 {
		if err := p.opts.Dispatcher.HandleUDPData(p.tctx, entry.flow, dir, payload); err != nil {
			fmt.Println("udp dispatch", err)
		}
	}

	// A DNS response, if the flow turned out to be DNS, is surfaced through
	// the Sink registered with l7.RegisterAll rather than here; anything the
	// dispatch core did not recognize still gets forwarded to the output
	// channel as raw bytes, matching the unrecognized-traffic fallback.
	if entry.flow.AppProto() == proto.Unknown {
		p.outchan <- gnet.NetTraffic{
			SrcIP:           srcIP,
			SrcPort:         srcPort,
			DstIP:           dstIP,
			DstPort:         dstPort,
			Content:         gnet.BodyBytes{MemView: memview.New(payload)},
			ObservationTime: observationTime,
		}
	}
}

// evictIdleUDPFlows drops UDP flow table entries that have gone quiet since
// threshold, the UDP analogue of TCP's ReassemblyComplete-triggered
// Sink.forget. UDP has no close signal, so this relies purely on the same
// idle-timeout tick that drives TCP's periodic flush.
func (p *TrafficParser) evictIdleUDPFlows(threshold time.Time) {
	p.udpMu.Lock()
	defer p.udpMu.Unlock()

	for key, entry := range p.udpFlows {
		if entry.lastSeen.Before(threshold) {
			p.sink.forget(entry.flow)
			delete(p.udpFlows, key)
		}
	}
}

func udpFlowKey(srcIP net.IP, srcPort int, dstIP net.IP, dstPort int) string {
	a := fmt.Sprintf("%s:%d", srcIP, srcPort)
	b := fmt.Sprintf("%s:%d", dstIP, dstPort)
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}

func uuidFromKey(key string) (id [16]byte) {
	// A stable, allocation-free stand-in for uuid.New() keyed off the flow
	// tuple, so repeated lookups of the same UDP flow report the same
	// ConnectionID without needing a second map from key to uuid.UUID.
	copy(id[:], key)
	return id
}
