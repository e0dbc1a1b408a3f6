package applayer

import "github.com/mel2oo/go-alcore/proto"

// Packet is the minimal caller-visible handle the dispatch core needs
// during a single HandleTCPData call: just enough to flip the apparent
// direction of the in-flight packet around a nested reassembler call
// ("direction bit flipping on the packet").
type Packet struct {
	Dir proto.Direction
}

// withDirectionOverride runs fn with pkt.Dir temporarily set to dir,
// unconditionally restoring the original value on every exit path,
// including when fn panics or returns an error. A force-drain uses this to
// flip the packet's apparent direction only for the duration of the
// reassembler call it makes on the opposing direction's behalf.
func withDirectionOverride(pkt *Packet, dir proto.Direction, fn func() error) error {
	if pkt == nil {
		return fn()
	}
	orig := pkt.Dir
	pkt.Dir = dir
	defer func() { pkt.Dir = orig }()
	return fn()
}
