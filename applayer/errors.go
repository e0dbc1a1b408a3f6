package applayer

import "github.com/pkg/errors"

// ErrNoInspection is returned when a TCP data handler call gives up on a
// flow (sets NO_APPLAYER_INSPECTION) as part of the current call, per the
// fatal-to-flow error class.
var ErrNoInspection = errors.New("applayer: flow marked no-inspection")

// ErrRollback signals the soft-rollback error class,
// by the deferred-detection path: the caller should re-present the
// same bytes on a later call once the preferred direction has had a chance
// to detect first.
var ErrRollback = errors.New("applayer: detection rolled back, re-present bytes later")

// ErrReassembleFailed wraps a failure from the Reassembler during the
// force-drain of the opposing half-stream. It always results
// in ErrNoInspection being set on the flow as well.
var ErrReassembleFailed = errors.New("applayer: reassembler drain failed")
