package l7

import (
	"github.com/mel2oo/go-alcore/detect"
	"github.com/mel2oo/go-alcore/gnet/http2"
	"github.com/mel2oo/go-alcore/parse"
	"github.com/mel2oo/go-alcore/proto"
)

var http2PrefaceBytes = [][]byte{{0x50, 0x52, 0x49, 0x20, 0x2a, 0x20, 0x48, 0x54, 0x54, 0x50, 0x2f, 0x32, 0x2e, 0x30}}

// registerHTTP2 wraps gnet/http2's connection preface factory as "http2".
// The preface is sent only by the client, so this protocol has a single,
// TOSERVER-only, FactoryProber.
func registerHTTP2(engine *detect.Engine, parsers *parse.Registry, sink Sink) {
	preface := NewFactoryProber("http2", proto.DirToServer, http2PrefaceBytes, http2.NewHTTP2PrefaceParserFactory(), sink)

	id := engine.Register("http2", proto.DirToServer, preface)
	preface.BindID(id)

	parsers.Register(NewFactoryParser(id, sink))
}
