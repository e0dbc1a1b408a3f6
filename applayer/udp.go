package applayer

import (
	"time"

	"github.com/pkg/errors"

	"github.com/mel2oo/go-alcore/flow"
	"github.com/mel2oo/go-alcore/internal/diag"
	"github.com/mel2oo/go-alcore/parse"
	"github.com/mel2oo/go-alcore/proto"
)

// HandleUDPData is the UDP data handler: a simplified variant
// of HandleTCPData with no reassembly and a single detect-once latch.
// Unlike HandleTCPData, this entry point takes and releases f's lock
// itself.
func (d *Dispatcher) HandleUDPData(tctx *ThreadCtx, f *flow.Flow, dir proto.Direction, data []byte) error {
	f.Lock()
	defer f.Unlock()

	if f.NoAppLayerInspection() {
		return nil
	}

	var parseErr error

	if f.AppProto() == proto.Unknown && !f.AlprotoDetectDone() {
		start := time.Now()
		result := d.Engine.Detect(f, dir, data, true)
		d.profiler.ObserveDetect(f.L4, dir, time.Since(start))

		f.SetAlprotoDetectDone()

		if result.Proto != proto.Unknown {
			f.Commit(result.Proto)
			if len(data) > 0 {
				parseErr = d.parseChunk(f, dir, result.Proto, data)
			}
		}
	} else if f.AppProto() != proto.Unknown {
		parseErr = d.parseChunk(f, dir, f.AppProto(), data)
	}

	if parseErr != nil {
		if errors.Is(parseErr, parse.ErrFatal) {
			f.SetNoAppLayerInspection()
			return errors.Wrap(ErrNoInspection, parseErr.Error())
		}
		diag.Println("applayer: udp parser error, continuing:", parseErr)
	}

	return nil
}
