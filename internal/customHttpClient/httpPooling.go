package customHttpClient

import (
	"net/http"
	"time"

	"github.com/docpanel/docflow/internal/config"
)

var customTransport = &http.Transport{
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

// NewClient returns a pooled client with a per-request deadline. The vector
// coordinator and the worker client share the transport so repeated calls to
// the ml service reuse connections.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: customTransport,
		Timeout:   timeout,
	}
}
