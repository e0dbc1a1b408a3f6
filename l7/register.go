package l7

import (
	"github.com/mel2oo/go-alcore/detect"
	"github.com/mel2oo/go-alcore/mempool"
	"github.com/mel2oo/go-alcore/parse"
)

// RegisterAll wires every protocol this package knows about into engine and
// parsers: http, http2, tls, the combined ftp_smtp parser, the standalone
// ftp parser, and dns. Completed parse units are reported to sink; pass
// DiscardSink{} to exercise only detection and routing.
func RegisterAll(engine *detect.Engine, parsers *parse.Registry, pool mempool.BufferPool, sink Sink) {
	if sink == nil {
		sink = DiscardSink{}
	}
	registerHTTP(engine, parsers, pool, sink)
	registerHTTP2(engine, parsers, sink)
	registerTLS(engine, parsers, sink)
	registerFtpSmtp(engine, parsers, sink)
	registerFTP(engine, parsers, sink)
	registerDNS(engine, parsers, sink)
}
