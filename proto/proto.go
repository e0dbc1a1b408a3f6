// Package proto defines the compact application-layer protocol identifier
// (AppProto) shared by the detector, the parser registry, and the
// dispatch core, along with the L4 protocol and direction/flag types
// that flow through all three.
package proto

import "fmt"

// AppProto is a compact integer identifying an L7 protocol. The zero value,
// Unknown, is the sentinel used throughout the core before a flow's
// protocol has been committed.
type AppProto uint16

// Unknown is the sentinel AppProto for "not yet detected".
const Unknown AppProto = 0

// String returns a bare numeric rendering. Callers that want the
// registered protocol name should go through Registry.ToString instead;
// AppProto alone does not know its name.
func (p AppProto) String() string {
	return fmt.Sprintf("%d", uint16(p))
}

// L4 identifies the transport protocol carrying the L7 traffic.
type L4 uint8

const (
	L4TCP L4 = iota
	L4UDP
)

func (l L4) String() string {
	switch l {
	case L4TCP:
		return "tcp"
	case L4UDP:
		return "udp"
	default:
		return fmt.Sprintf("L4(%d)", uint8(l))
	}
}

// Direction identifies which half of a bidirectional flow a chunk of bytes
// belongs to, or which direction a parser requires to see first.
//
// DirNone and DirBoth are only meaningful as a parser's first-data-direction
// preference (0 == no preference); a concrete chunk of bytes is always
// DirToServer or DirToClient.
type Direction uint8

const (
	DirNone Direction = iota
	DirToServer
	DirToClient
	DirBoth
)

func (d Direction) String() string {
	switch d {
	case DirNone:
		return "none"
	case DirToServer:
		return "toserver"
	case DirToClient:
		return "toclient"
	case DirBoth:
		return "both"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// Opposite returns the other half of a bidirectional flow. DirNone and
// DirBoth are returned unchanged since they do not name a single side.
func (d Direction) Opposite() Direction {
	switch d {
	case DirToServer:
		return DirToClient
	case DirToClient:
		return DirToServer
	default:
		return d
	}
}

// Flags carries the subset of {TOSERVER, TOCLIENT, START, GAP} relevant to a
// single call into the dispatch core, mirroring the flag bits a TCP
// reassembler or UDP ingress path would pass alongside a chunk of payload.
type Flags uint8

const (
	FlagToServer Flags = 1 << iota
	FlagToClient
	FlagStart
	FlagGap
)

// Has reports whether all bits in mask are set.
func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}

// Direction extracts the TOSERVER/TOCLIENT bit as a Direction. Callers are
// expected to set exactly one of FlagToServer/FlagToClient; if neither is
// set, DirNone is returned.
func (f Flags) Direction() Direction {
	switch {
	case f&FlagToServer != 0:
		return DirToServer
	case f&FlagToClient != 0:
		return DirToClient
	default:
		return DirNone
	}
}

// FlagsForDirection returns the single TOSERVER/TOCLIENT bit for dir, with
// no other bits set.
func FlagsForDirection(dir Direction) Flags {
	if dir == DirToClient {
		return FlagToClient
	}
	return FlagToServer
}
