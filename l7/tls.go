package l7

import (
	"github.com/mel2oo/go-alcore/detect"
	"github.com/mel2oo/go-alcore/gnet/tls"
	"github.com/mel2oo/go-alcore/parse"
	"github.com/mel2oo/go-alcore/proto"
)

// tlsHandshakeRecordPrefix is the record header shared by every TLS 1.2/1.3
// handshake message we recognize (handshake content type 0x16, major
// version 0x03); the handshake type byte that follows (Client Hello 0x01,
// Server Hello 0x02, Certificate 0x0b) is what gnet/tls's own Accepts then
// tells apart.
var tlsHandshakeRecordPrefix = [][]byte{{0x16, 0x03}}

// registerTLS wraps gnet/tls's client, server and certificate parser
// factories as one "tls" protocol. Client Hello is TOSERVER; Server Hello
// and Certificate are both TOCLIENT and share that direction's detection
// slot, so only whichever of the two gets probed first on a given flow
// (Server Hello, registered first) is exercised there in practice — see
// the design notes on this file's limits.
func registerTLS(engine *detect.Engine, parsers *parse.Registry, sink Sink) {
	client := NewFactoryProber("tls", proto.DirToServer, tlsHandshakeRecordPrefix, tls.NewTLSClientParserFactory(), sink)
	server := NewFactoryProber("tls", proto.DirToClient, tlsHandshakeRecordPrefix, tls.NewTLSServerParserFactory(), sink)
	cert := NewFactoryProber("tls", proto.DirToClient, tlsHandshakeRecordPrefix, tls.NewTLSCertificateParserFactory(), sink)

	id := engine.Register("tls", proto.DirToServer, client)
	engine.Register("tls", proto.DirToServer, server)
	engine.Register("tls", proto.DirToServer, cert)
	client.BindID(id)
	server.BindID(id)
	cert.BindID(id)

	parsers.Register(NewFactoryParser(id, sink))
}
