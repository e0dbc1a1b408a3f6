// Package parse implements the L7 parser registry the dispatch core hands
// committed traffic to ("once alproto is committed, subsequent
// data for this flow is handed to that protocol's parser").
package parse

import (
	"github.com/pkg/errors"

	"github.com/mel2oo/go-alcore/flow"
	"github.com/mel2oo/go-alcore/proto"
)

// ErrUnknownProto is returned by Registry.Get when no Parser was registered
// for the requested protocol id.
var ErrUnknownProto = errors.New("parse: no parser registered for protocol")

// Parser is the capability a committed L7 protocol must provide: feed it a
// chunk of one direction's bytes for a flow, let it update whatever
// per-flow state it keeps (via flow.Flow.ParserState), and tell the core
// whether parsing can continue.
type Parser interface {
	// Proto is the protocol this Parser handles.
	Proto() proto.AppProto

	// Parse consumes data observed in dir on f. A non-nil error is treated
	// by the dispatch core as anomalous-but-continue unless it
	// wraps ErrFatal, in which case the core gives up on app-layer
	// inspection for the rest of the flow.
	Parse(f *flow.Flow, dir proto.Direction, data []byte) error
}

// ErrFatal, when wrapped into a Parser.Parse error, tells the dispatch core
// to stop inspecting this flow entirely (the fatal-to-flow class),
// distinct from an anomalous-but-continue error.
var ErrFatal = errors.New("parse: fatal parser error")

// Registry maps a committed AppProto to the Parser that handles it.
type Registry struct {
	parsers map[proto.AppProto]Parser
}

// NewRegistry returns an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[proto.AppProto]Parser)}
}

// Register adds p under its own Proto() id, overwriting any previous
// registration for that id.
func (r *Registry) Register(p Parser) {
	r.parsers[p.Proto()] = p
}

// Get returns the Parser registered for id, or ErrUnknownProto.
func (r *Registry) Get(id proto.AppProto) (Parser, error) {
	p, ok := r.parsers[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownProto, "proto id %d", id)
	}
	return p, nil
}
