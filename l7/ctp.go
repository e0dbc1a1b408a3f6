package l7

import (
	"github.com/mel2oo/go-alcore/detect"
	"github.com/mel2oo/go-alcore/gnet/ctp"
	"github.com/mel2oo/go-alcore/parse"
	"github.com/mel2oo/go-alcore/proto"
)

// registerFtpSmtp wraps gnet/ctp, a combined FTP/SMTP
// command-response parser, as protocol "ftp_smtp". The request side's PM
// patterns are the union of the FTP and SMTP command verbs; the response
// side has no fixed prefix (a three-digit reply code), so its PM stage
// always accepts and lets ctp's own Accepts do the real check.
func registerFtpSmtp(engine *detect.Engine, parsers *parse.Registry, sink Sink) {
	var reqPatterns [][]byte
	for _, c := range ctp.FtpCMDS {
		reqPatterns = append(reqPatterns, []byte(string(c)))
	}
	for _, c := range ctp.SmtpCMDS {
		reqPatterns = append(reqPatterns, []byte(string(c)))
	}

	req := NewFactoryProber("ftp_smtp", proto.DirToServer, reqPatterns, ctp.NewCtpRequestParserFactory(), sink)
	resp := NewFactoryProber("ftp_smtp", proto.DirToClient, nil, ctp.NewCtpResponseParserFactory(), sink)

	id := engine.Register("ftp_smtp", proto.DirToServer, req)
	engine.Register("ftp_smtp", proto.DirToServer, resp)
	req.BindID(id)
	resp.BindID(id)

	parsers.Register(NewFactoryParser(id, sink))
}
