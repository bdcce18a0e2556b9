package httpclient

import (
	"net"
	"net/http"
	"time"
)

// TransportConfig tunes the pooled transport used for outbound calls.
type TransportConfig struct {
	DialTimeout     time.Duration
	MaxConnsPerHost int
	IdleConnTimeout time.Duration
}

// DefaultTransportConfig returns pooling defaults for a single backend.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		DialTimeout:     5 * time.Second,
		MaxConnsPerHost: 50,
		IdleConnTimeout: 90 * time.Second,
	}
}

// NewTransport builds a keep-alive transport honoring proxy env vars.
func NewTransport(cfg TransportConfig) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.MaxConnsPerHost * 2,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}
