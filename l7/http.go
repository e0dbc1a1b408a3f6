package l7

import (
	"github.com/mel2oo/go-alcore/detect"
	"github.com/mel2oo/go-alcore/gnet/http"
	"github.com/mel2oo/go-alcore/mempool"
	"github.com/mel2oo/go-alcore/parse"
	"github.com/mel2oo/go-alcore/proto"
)

// registerHTTP wraps gnet/http's request and response parser factories as
// one "http" protocol, request-side restricted to TOSERVER and
// response-side to TOCLIENT, matching the way gnet already splits
// them into two independent gnet.TCPParserFactory values.
func registerHTTP(engine *detect.Engine, parsers *parse.Registry, pool mempool.BufferPool, sink Sink) {
	reqPatterns := [][]byte{
		[]byte("GET"), []byte("POST"), []byte("DELETE"), []byte("HEAD"),
		[]byte("PUT"), []byte("PATCH"), []byte("CONNECT"), []byte("OPTIONS"),
		[]byte("TRACE"),
	}
	respPatterns := [][]byte{[]byte("HTTP/")}

	req := NewFactoryProber("http", proto.DirToServer, reqPatterns, http.NewHTTPRequestParserFactory(pool), sink)
	resp := NewFactoryProber("http", proto.DirToClient, respPatterns, http.NewHTTPResponseParserFactory(pool), sink)

	id := engine.Register("http", proto.DirToServer, req)
	engine.Register("http", proto.DirToServer, resp)
	req.BindID(id)
	resp.BindID(id)

	parsers.Register(NewFactoryParser(id, sink))
}
