package applayer

import (
	"github.com/pkg/errors"

	"github.com/mel2oo/go-alcore/detect"
	"github.com/mel2oo/go-alcore/parse"
)

// ThreadCtx is the per-worker context the dispatch core hands each caller:
// it owns a detector thread state and a parser thread state, created
// together and destroyed together. One ThreadCtx is created per worker at
// startup and destroyed at worker exit; it is never shared across workers.
type ThreadCtx struct {
	Detect *detect.ThreadState
	Parse  *parse.ThreadState
}

// NewThreadCtx constructs both child thread states. If creating the parser
// state fails after the detector state succeeded, the detector state is
// released before returning the error, so a failed create() never leaks a
// partially constructed child.
func NewThreadCtx() (*ThreadCtx, error) {
	d, err := detect.NewThreadState()
	if err != nil {
		return nil, errors.Wrap(err, "applayer: create detect thread state")
	}

	p, err := parse.NewThreadState()
	if err != nil {
		d.Destroy()
		return nil, errors.Wrap(err, "applayer: create parse thread state")
	}

	return &ThreadCtx{Detect: d, Parse: p}, nil
}

// Destroy releases both child thread states. Order does not matter since
// they share no state; parser is released first to mirror NewThreadCtx's
// unwind order.
func (c *ThreadCtx) Destroy() {
	if c == nil {
		return
	}
	c.Parse.Destroy()
	c.Detect.Destroy()
}
