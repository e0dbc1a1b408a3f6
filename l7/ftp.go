package l7

import (
	"github.com/mel2oo/go-alcore/detect"
	"github.com/mel2oo/go-alcore/gnet/ftp"
	"github.com/mel2oo/go-alcore/parse"
	"github.com/mel2oo/go-alcore/proto"
)

// registerFTP wraps the standalone gnet/ftp package as its own "ftp"
// protocol, distinct from the combined gnet/ctp "ftp_smtp" protocol
// registered alongside it. Both parsers exist independently; keeping
// both wired exercises both instead of discarding one as a duplicate.
func registerFTP(engine *detect.Engine, parsers *parse.Registry, sink Sink) {
	var reqPatterns [][]byte
	for _, c := range ftp.CMDS {
		reqPatterns = append(reqPatterns, []byte(string(c)))
	}

	req := NewFactoryProber("ftp", proto.DirToServer, reqPatterns, ftp.NewFTPRequestParserFactory(), sink)
	resp := NewFactoryProber("ftp", proto.DirToClient, nil, ftp.NewFTPResponseParserFactory(), sink)

	id := engine.Register("ftp", proto.DirToServer, req)
	engine.Register("ftp", proto.DirToServer, resp)
	req.BindID(id)
	resp.BindID(id)

	parsers.Register(NewFactoryParser(id, sink))
}
