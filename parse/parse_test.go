package parse

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/mel2oo/go-alcore/flow"
	"github.com/mel2oo/go-alcore/proto"
)

type fakeParser struct {
	id  proto.AppProto
	err error
}

func (p *fakeParser) Proto() proto.AppProto { return p.id }
func (p *fakeParser) Parse(f *flow.Flow, dir proto.Direction, data []byte) error {
	return p.err
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get(proto.AppProto(5))
	assert.ErrorIs(t, err, ErrUnknownProto)
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	p := &fakeParser{id: proto.AppProto(3)}
	r.Register(p)

	got, err := r.Get(proto.AppProto(3))
	assert.NoError(t, err)
	assert.Same(t, p, got)
}

func TestRegistryRegisterOverwrites(t *testing.T) {
	r := NewRegistry()
	p1 := &fakeParser{id: proto.AppProto(1)}
	p2 := &fakeParser{id: proto.AppProto(1)}
	r.Register(p1)
	r.Register(p2)

	got, err := r.Get(proto.AppProto(1))
	assert.NoError(t, err)
	assert.Same(t, p2, got)
}

func TestParserFatalErrorWrapping(t *testing.T) {
	p := &fakeParser{id: proto.AppProto(1), err: errors.Wrap(ErrFatal, "bad state")}
	err := p.Parse(flow.New(proto.L4TCP, nil), proto.DirToServer, nil)
	assert.ErrorIs(t, err, ErrFatal)
}
