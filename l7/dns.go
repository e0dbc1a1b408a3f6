package l7

import (
	"github.com/google/gopacket/layers"

	"github.com/mel2oo/go-alcore/detect"
	"github.com/mel2oo/go-alcore/flow"
	"github.com/mel2oo/go-alcore/gnet"
	"github.com/mel2oo/go-alcore/parse"
	"github.com/mel2oo/go-alcore/proto"
)

// dnsHeaderLength is the fixed DNS message header: ID, flags, and the four
// section counts, 2 bytes each.
const dnsHeaderLength = 12

// dnsProber decodes a UDP datagram as a DNS message using gopacket/layers,
// the same decoder pcap.TrafficParser once used for its inline DNS
// handling; this package gives that handling a home in the dispatch core's
// detect/parse model, and pcap.TrafficParser now routes UDP payloads
// through the dispatch core instead of decoding DNS itself.
type dnsProber struct {
	sink Sink
	id   proto.AppProto
}

func (p *dnsProber) Name() string              { return "dns" }
func (p *dnsProber) Direction() proto.Direction { return proto.DirBoth }

func (p *dnsProber) PatternMatch(data []byte) detect.Decision {
	if len(data) < dnsHeaderLength {
		return detect.NeedMoreData
	}
	return detect.Accept
}

func (p *dnsProber) Probe(f *flow.Flow, dir proto.Direction, data []byte, isEnd bool) detect.Decision {
	var dns layers.DNS
	if err := dns.DecodeFromBytes(data, nil); err != nil {
		return detect.Reject
	}
	return detect.Accept
}

func (p *dnsProber) Proto() proto.AppProto { return p.id }

// Parse re-decodes data (UDP datagrams arrive whole, so there is never a
// partial message to carry state across calls) and hands the result to the
// sink as a gnet.DNSRequest, the same shape pcap.TrafficParser used to
// build directly.
func (p *dnsProber) Parse(f *flow.Flow, dir proto.Direction, data []byte) error {
	var t layers.DNS
	if err := t.DecodeFromBytes(data, nil); err != nil {
		return nil
	}

	p.sink.Emit(f, dir, gnet.DNSRequest{
		ID:     t.ID,
		QR:     t.QR,
		OpCode: t.OpCode,

		AA: t.AA,
		TC: t.TC,
		RD: t.RD,
		RA: t.RA,
		Z:  t.Z,

		ResponseCode: t.ResponseCode,
		QDCount:      t.QDCount,
		ANCount:      t.ANCount,
		NSCount:      t.NSCount,
		ARCount:      t.ARCount,

		Questions:   t.Questions,
		Answers:     t.Answers,
		Authorities: t.Authorities,
		Additionals: t.Additionals,
	})
	return nil
}

func registerDNS(engine *detect.Engine, parsers *parse.Registry, sink Sink) {
	if sink == nil {
		sink = DiscardSink{}
	}
	p := &dnsProber{sink: sink}
	id := engine.Register("dns", proto.DirBoth, p)
	p.id = id
	parsers.Register(p)
}
