package shortener

import (
	"context"
	"net/http"
	"time"
)

// Prober checks whether a target URL currently responds. Implementations
// never return errors: network failures and timeouts resolve to false.
type Prober interface {
	Probe(ctx context.Context, url string) bool
}

// HTTPProber probes with a bounded-timeout HTTP GET. Only a 200 response
// counts as reachable.
type HTTPProber struct {
	client *http.Client
}

// NewHTTPProber creates a prober whose requests are cut off after timeoutMs.
func NewHTTPProber(timeoutMs int) *HTTPProber {
	return &HTTPProber{
		client: &http.Client{
			Timeout: time.Duration(timeoutMs) * time.Millisecond,
		},
	}
}

func (p *HTTPProber) Probe(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
