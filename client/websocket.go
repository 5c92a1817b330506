package client

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketFactory carries the dial settings of the gateway socket.
// It is configured before [Builder.BuildAsync] and read once per
// connection attempt; mutating it afterwards has no effect on live sockets.
type WebSocketFactory struct {
	// ConnectionTimeout bounds the opening handshake. Zero means no timeout.
	ConnectionTimeout time.Duration
	// Proxy selects a proxy per handshake request; nil uses the environment.
	Proxy func(*http.Request) (*url.URL, error)
	// TLSConfig overrides the TLS settings for wss:// endpoints.
	TLSConfig       *tls.Config
	ReadBufferSize  int
	WriteBufferSize int
	// EnableCompression negotiates per-message deflate.
	EnableCompression bool
	// ReadLimit caps the size of a single gateway frame. Zero means no limit.
	ReadLimit int64
	// Header is sent with every handshake.
	Header http.Header
}

// NewWebSocketFactory returns a factory with the gateway defaults.
func NewWebSocketFactory() *WebSocketFactory {
	return &WebSocketFactory{
		ConnectionTimeout: 10 * time.Second,
		Proxy:             http.ProxyFromEnvironment,
		ReadLimit:         4 << 20,
		Header:            http.Header{},
	}
}

// SetProxyURL routes handshakes through a fixed proxy.
func (f *WebSocketFactory) SetProxyURL(u *url.URL) *WebSocketFactory {
	f.Proxy = http.ProxyURL(u)
	return f
}

// Dialer returns a new [websocket.Dialer] carrying the factory settings.
func (f *WebSocketFactory) Dialer() *websocket.Dialer {
	return &websocket.Dialer{
		Proxy:             f.Proxy,
		HandshakeTimeout:  f.ConnectionTimeout,
		TLSClientConfig:   f.TLSConfig,
		ReadBufferSize:    f.ReadBufferSize,
		WriteBufferSize:   f.WriteBufferSize,
		EnableCompression: f.EnableCompression,
	}
}

func (f *WebSocketFactory) header() http.Header {
	if f.Header == nil {
		return http.Header{}
	}

	return f.Header.Clone()
}
