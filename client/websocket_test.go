package client_test

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/adamwoolhether/botkit/client"
)

func TestWebSocketFactory_Dialer(t *testing.T) {
	f := client.NewWebSocketFactory()
	f.ConnectionTimeout = 3 * time.Second
	f.EnableCompression = true
	f.ReadBufferSize = 1024

	proxy, err := url.Parse("http://proxy.local:3128")
	if err != nil {
		t.Fatal(err)
	}
	f.SetProxyURL(proxy)

	d := f.Dialer()
	if d.HandshakeTimeout != 3*time.Second || !d.EnableCompression || d.ReadBufferSize != 1024 {
		t.Errorf("dialer settings not carried over: %+v", d)
	}

	req, _ := http.NewRequest(http.MethodGet, "https://gateway.discord.gg", nil)
	got, err := d.Proxy(req)
	if err != nil || got.String() != proxy.String() {
		t.Errorf("exp proxy %v, got %v (%v)", proxy, got, err)
	}

	if f.Dialer() == d {
		t.Error("exp a fresh dialer per call")
	}
}

func TestWebSocketFactory_Header(t *testing.T) {
	srv := newServer(t)

	f := client.NewWebSocketFactory()
	f.Header = http.Header{"X-Trace": {"abc"}}

	c, _ := startClient(t, srv, newTestBuilder(srv).SetWebsocketFactory(f))
	if c.Status() != client.StatusConnected {
		t.Errorf("exp connected with custom factory, got %v", c.Status())
	}
}
