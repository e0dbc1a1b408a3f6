package applayer

import (
	"github.com/pkg/errors"

	"github.com/mel2oo/go-alcore/flow"
)

// ErrNilMsgFlow is returned by EnqueueStreamMsg when msg.Flow is nil, the
// violated precondition.
var ErrNilMsgFlow = errors.New("applayer: stream message has no flow back-reference")

// EnqueueStreamMsg implements the stream-message intake path: a
// reassembled chunk is appended to the owning session's per-direction
// queue, for later consumption by the detection engine. If the flow has no
// transport context yet, the message is released back to pool instead.
//
// In both branches, the message's flow back-reference is dropped before it
// is queued or released, so nothing downstream retains a pointer to the
// flow through the queued message itself.
func EnqueueStreamMsg(msg flow.StreamMsg, pool flow.Pool) error {
	if msg.Flow == nil {
		return ErrNilMsgFlow
	}

	f := msg.Flow
	msg.Flow = nil

	if f.Session == nil {
		if pool != nil {
			pool.Put(msg.Data)
		}
		return nil
	}

	stream := f.Session.StreamFor(msg.Dir)
	stream.Enqueue(msg)
	return nil
}
