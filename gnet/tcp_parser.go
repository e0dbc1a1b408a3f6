package gnet

import (
	"github.com/google/gopacket/reassembly"

	"github.com/mel2oo/go-alcore/memview"
)

// AcceptDecision is the three-way verdict a TCPParserFactory returns while
// probing whether a byte prefix belongs to its protocol.
type AcceptDecision int

const (
	// NeedMoreData: too little data to decide either way yet.
	NeedMoreData AcceptDecision = iota
	// Accept: this factory claims the stream starting at discardFront.
	Accept
	// Reject: this factory will never claim this stream.
	Reject
)

// TCPParser consumes successive chunks of one direction of a TCP stream
// once a TCPParserFactory has accepted it, producing parsed content when
// a complete unit (e.g. one HTTP request) has been recognized.
type TCPParser interface {
	Name() string

	// Parse consumes input. On completion it returns the parsed content and
	// any trailing bytes not belonging to it (so a second unit starting in
	// the same chunk isn't lost); totalBytesConsumed is the running count of
	// bytes this parser has consumed across all calls. A non-nil err means
	// parsing failed and the caller should give up on this parser.
	Parse(input memview.MemView, isEnd bool) (result ParsedNetworkContent, unused memview.MemView, totalBytesConsumed int64, err error)
}

// TCPParserFactory probes a byte prefix to decide whether it recognizes the
// protocol, and creates a TCPParser once it does.
type TCPParserFactory interface {
	Name() string

	// Accepts probes input. discardFront counts leading bytes that are not
	// part of the recognized protocol: with Accept, bytes before it should
	// be emitted separately; with NeedMoreData, it is how many leading bytes
	// the factory already knows it will not claim (Select reports the
	// smallest such count); with Reject, it is conventionally the full
	// input length, signaling nothing in it is usable.
	Accepts(input memview.MemView, isEnd bool) (decision AcceptDecision, discardFront int64)

	CreateParser(id TCPBidiID, seq, ack reassembly.Sequence) TCPParser
}

// TCPParserFactorySelector tries each factory, in order, against a byte
// prefix and picks the first one that accepts.
type TCPParserFactorySelector []TCPParserFactory

// Select returns the first factory that Accepts input, along with its
// decision and discard count. If none accept but at least one needs more
// data, it returns NeedMoreData with the smallest requested discard count
// among them. If every factory rejects, it returns Reject with discardFront
// set to the full length of input.
func (s TCPParserFactorySelector) Select(input memview.MemView, isEnd bool) (TCPParserFactory, AcceptDecision, int64) {
	needMoreData := false
	minDiscard := int64(-1)

	for _, f := range s {
		decision, discard := f.Accepts(input, isEnd)
		switch decision {
		case Accept:
			return f, Accept, discard
		case NeedMoreData:
			needMoreData = true
			if minDiscard == -1 || discard < minDiscard {
				minDiscard = discard
			}
		}
	}

	if needMoreData {
		return nil, NeedMoreData, minDiscard
	}
	return nil, Reject, input.Len()
}
