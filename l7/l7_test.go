package l7

import (
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"

	"github.com/mel2oo/go-alcore/detect"
	"github.com/mel2oo/go-alcore/flow"
	"github.com/mel2oo/go-alcore/gnet"
	"github.com/mel2oo/go-alcore/mempool"
	"github.com/mel2oo/go-alcore/parse"
	"github.com/mel2oo/go-alcore/proto"
)

func TestMatchPrefixesAccept(t *testing.T) {
	got := matchPrefixes([]byte("GET / HTTP/1.1"), [][]byte{[]byte("GET"), []byte("POST")})
	assert.Equal(t, detect.Accept, got)
}

func TestMatchPrefixesNeedMoreData(t *testing.T) {
	got := matchPrefixes([]byte("GE"), [][]byte{[]byte("GET")})
	assert.Equal(t, detect.NeedMoreData, got)
}

func TestMatchPrefixesReject(t *testing.T) {
	got := matchPrefixes([]byte("XYZ"), [][]byte{[]byte("GET"), []byte("POST")})
	assert.Equal(t, detect.Reject, got)
}

type recordingSink struct {
	emitted []gnet.ParsedNetworkContent
}

func (s *recordingSink) Emit(f *flow.Flow, dir proto.Direction, content gnet.ParsedNetworkContent) {
	s.emitted = append(s.emitted, content)
}

func encodeDNSQuery(t *testing.T) []byte {
	t.Helper()
	dns := layers.DNS{
		ID:     0x1234,
		QR:     false,
		OpCode: layers.DNSOpCodeQuery,
		RD:     true,
		QDCount: 1,
		Questions: []layers.DNSQuestion{
			{Name: []byte("example.com"), Type: layers.DNSTypeA, Class: layers.DNSClassIN},
		},
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{}
	assert.NoError(t, dns.SerializeTo(buf, opts))
	return buf.Bytes()
}

func TestRegisterDNSDetectsAndParses(t *testing.T) {
	registry := proto.NewRegistry()
	engine := detect.NewEngine(registry)
	parsers := parse.NewRegistry()
	sink := &recordingSink{}

	registerDNS(engine, parsers, sink)

	f := flow.New(proto.L4UDP, nil)
	data := encodeDNSQuery(t)

	result := engine.Detect(f, proto.DirToServer, data, true)
	assert.Equal(t, registry.ByName("dns"), result.Proto)

	parser, err := parsers.Get(result.Proto)
	assert.NoError(t, err)
	assert.NoError(t, parser.Parse(f, proto.DirToServer, data))

	assert.Len(t, sink.emitted, 1)
	req, ok := sink.emitted[0].(gnet.DNSRequest)
	assert.True(t, ok)
	assert.Equal(t, uint16(0x1234), req.ID)
}

func TestRegisterHTTPSharesProtoIDAcrossDirections(t *testing.T) {
	registry := proto.NewRegistry()
	engine := detect.NewEngine(registry)
	parsers := parse.NewRegistry()
	pool, err := mempool.MakeBufferPool(1024*1024, 4*1024)
	assert.NoError(t, err)

	registerHTTP(engine, parsers, pool, &recordingSink{})

	f := flow.New(proto.L4TCP, nil)
	f.Session = flow.NewTCPSession()

	req := engine.Detect(f, proto.DirToServer, []byte("GET /index.html HTTP/1.1\r\n"), false)
	assert.Equal(t, registry.ByName("http"), req.Proto)
}
