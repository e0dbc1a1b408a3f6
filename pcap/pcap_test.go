package pcap

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mel2oo/go-alcore/applayer"
	"github.com/mel2oo/go-alcore/detect"
	"github.com/mel2oo/go-alcore/gnet"
	"github.com/mel2oo/go-alcore/l7"
	"github.com/mel2oo/go-alcore/mempool"
	"github.com/mel2oo/go-alcore/parse"
	"github.com/mel2oo/go-alcore/pcap/ja3"
	"github.com/mel2oo/go-alcore/proto"
)

// newDispatcher builds a fresh detect engine, parse registry, and dispatch
// core wired to sink, the same bootstrap every capture-driving caller
// performs before calling TrafficParser.Parse.
func newDispatcher(pool mempool.BufferPool, sink l7.Sink) *applayer.Dispatcher {
	registry := proto.NewRegistry()
	engine := detect.NewEngine(registry)
	parsers := parse.NewRegistry()
	l7.RegisterAll(engine, parsers, pool, sink)
	return applayer.New(engine, parsers)
}

func TestPcapParse(t *testing.T) {
	pool, err := mempool.MakeBufferPool(1024*1024, 4*1024)
	if err != nil {
		t.Error(err)
	}

	traffic, err := NewTrafficParser(
		WithReadName("../testdata/dump.pcap", false),
		WithStreamCloseTimeout(int64(time.Second)*300),
		WithStreamFlushTimeout(int64(time.Second)*300),
	)
	if err != nil {
		t.Error(err)
	}

	dispatcher := newDispatcher(pool, traffic.Sink())
	traffic.opts.Dispatcher = dispatcher

	out, err := traffic.Parse(context.TODO())
	if err != nil {
		t.Error(err)
	}

	tcps := make(map[string][]gnet.NetTraffic)
	dnss := make([]gnet.NetTraffic, 0)
	http := make([]gnet.NetTraffic, 0)

	for c := range out {
		// Remove TCP metadata, which was added after this test was written.
		if _, ignore := c.Content.(gnet.TCPPacketMetadata); ignore {
			c.Content.ReleaseBuffers()
			continue
		}

		if c.LayerType == "TCP" {
			_, ok := tcps[c.ConnectionID.String()]
			if !ok {
				tcps[c.ConnectionID.String()] = make([]gnet.NetTraffic, 0)
			}

			tcps[c.ConnectionID.String()] = append(tcps[c.ConnectionID.String()], c)

			_, ok1 := c.Content.(gnet.HTTPRequest)
			_, ok2 := c.Content.(gnet.HTTPResponse)
			if ok1 || ok2 {
				http = append(http, c)
			}

		} else if c.LayerType == "DNS" {
			dnss = append(dnss, c)
		} else if c.LayerType == "ICMPv4" {
			fmt.Println()
		}
	}

	for _, h := range http {
		r, ok := h.Content.(gnet.HTTPRequest)
		if !ok {
			continue
		}

		fmt.Println("url:", r.URL.String())
	}

	fmt.Println(tcps)
	fmt.Println(dnss)
	fmt.Println(http)
}

func TestTLS(t *testing.T) {
	pool, err := mempool.MakeBufferPool(1024*1024, 4*1024)
	if err != nil {
		t.Error(err)
	}

	traffic, err := NewTrafficParser(
		WithReadName("../testdata/dump.pcap", false),
		WithStreamCloseTimeout(int64(time.Second)*300),
		WithStreamFlushTimeout(int64(time.Second)*300),
	)
	if err != nil {
		t.Error(err)
	}

	dispatcher := newDispatcher(pool, traffic.Sink())
	traffic.opts.Dispatcher = dispatcher

	out, err := traffic.Parse(context.TODO())
	if err != nil {
		t.Error(err)
	}

	tcps := make(map[string][]gnet.NetTraffic)
	tlss := make([]gnet.NetTraffic, 0)

	for c := range out {
		// Remove TCP metadata, which was added after this test was written.
		if _, ignore := c.Content.(gnet.TCPPacketMetadata); ignore {
			c.Content.ReleaseBuffers()
			continue
		}

		if c.LayerType == "TCP" {
			_, ok := tcps[c.ConnectionID.String()]
			if !ok {
				tcps[c.ConnectionID.String()] = make([]gnet.NetTraffic, 0)
			}

			tcps[c.ConnectionID.String()] = append(tcps[c.ConnectionID.String()], c)

			// TLS
			_, ok1 := c.Content.(gnet.TLSClientHello)
			_, ok2 := c.Content.(gnet.TLSServerHello)
			if ok1 || ok2 {
				tlss = append(tlss, c)
			}
		}
	}

	for _, tr := range tlss {
		switch ch := tr.Content.(type) {
		case gnet.TLSClientHello:
			md5 := ja3.GetJa3Hash(ch)
			fmt.Printf("client id:%s src:%s dst:%s ja3:%s\n",
				tr.ConnectionID.String(), tr.SrcIP.String(), tr.DstIP.String(), md5)
		case gnet.TLSServerHello:
			md5 := ja3.GetJa3SHash(ch)
			fmt.Printf("server id:%s src:%s dst:%s ja3s:%s\n",
				tr.ConnectionID.String(), tr.SrcIP.String(), tr.DstIP.String(), md5)
		}
	}
}

func TestFTP(t *testing.T) {
	pool, err := mempool.MakeBufferPool(1024*1024, 4*1024)
	if err != nil {
		t.Error(err)
	}

	traffic, err := NewTrafficParser(
		WithReadName("../testdata/ftp.pcapng", false),
		WithStreamCloseTimeout(int64(time.Second)*300),
		WithStreamFlushTimeout(int64(time.Second)*300),
	)
	if err != nil {
		t.Error(err)
	}

	dispatcher := newDispatcher(pool, traffic.Sink())
	traffic.opts.Dispatcher = dispatcher

	out, err := traffic.Parse(context.TODO())
	if err != nil {
		t.Error(err)
	}

	tcps := make(map[string][]gnet.NetTraffic)
	ftps := make([]gnet.NetTraffic, 0)

	for c := range out {
		// Remove TCP metadata, which was added after this test was written.
		if _, ignore := c.Content.(gnet.TCPPacketMetadata); ignore {
			c.Content.ReleaseBuffers()
			continue
		}

		if c.LayerType == "TCP" {
			_, ok := tcps[c.ConnectionID.String()]
			if !ok {
				tcps[c.ConnectionID.String()] = make([]gnet.NetTraffic, 0)
			}

			tcps[c.ConnectionID.String()] = append(tcps[c.ConnectionID.String()], c)

			_, ok1 := c.Content.(gnet.FtpSmtpRequest)
			_, ok2 := c.Content.(gnet.FtpSmtpResponse)
			if ok1 || ok2 {
				ftps = append(ftps, c)
			}
		}
	}

	for _, f := range ftps {
		switch ff := f.Content.(type) {
		case gnet.FtpSmtpRequest:
			t.Logf("(%s) cmd: %s arg: %s\n", ff.ConnectionID, ff.CMD, ff.Arg)
		case gnet.FtpSmtpResponse:
			t.Logf("(%s) code: %s arg: %s", ff.ConnectionID, ff.Code, ff.Arg)
		}
	}
}

func TestSMTP(t *testing.T) {
	pool, err := mempool.MakeBufferPool(1024*1024, 4*1024)
	if err != nil {
		t.Error(err)
	}

	traffic, err := NewTrafficParser(
		WithReadName("../testdata/smtp-normal.pcapng", false),
		WithStreamCloseTimeout(int64(time.Second)*300),
		WithStreamFlushTimeout(int64(time.Second)*300),
	)
	if err != nil {
		t.Error(err)
	}

	dispatcher := newDispatcher(pool, traffic.Sink())
	traffic.opts.Dispatcher = dispatcher

	out, err := traffic.Parse(context.TODO())
	if err != nil {
		t.Error(err)
	}

	tcps := make(map[string][]gnet.NetTraffic)
	ftps := make([]gnet.NetTraffic, 0)

	for c := range out {
		// Remove TCP metadata, which was added after this test was written.
		if _, ignore := c.Content.(gnet.TCPPacketMetadata); ignore {
			c.Content.ReleaseBuffers()
			continue
		}

		if c.LayerType == "TCP" {
			_, ok := tcps[c.ConnectionID.String()]
			if !ok {
				tcps[c.ConnectionID.String()] = make([]gnet.NetTraffic, 0)
			}

			tcps[c.ConnectionID.String()] = append(tcps[c.ConnectionID.String()], c)

			_, ok1 := c.Content.(gnet.FtpSmtpRequest)
			_, ok2 := c.Content.(gnet.FtpSmtpResponse)
			if ok1 || ok2 {
				ftps = append(ftps, c)
			}
		}
	}

	for _, f := range ftps {
		switch ff := f.Content.(type) {
		case gnet.FtpSmtpRequest:
			t.Logf("(%s) cmd: %s arg: %s\n", ff.ConnectionID, ff.CMD, ff.Arg)
		case gnet.FtpSmtpResponse:
			t.Logf("(%s) code: %s arg: %s", ff.ConnectionID, ff.Code, ff.Arg)
		}
	}
}
