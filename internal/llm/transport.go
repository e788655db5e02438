package llm

import (
	"net/http"
	"net/url"

	"github.com/ppiankov/cultura/internal/util"
)

func proxyFunc(config Config) func(*http.Request) (*url.URL, error) {
	return util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy)
}

// newHTTPClient builds the client shared by the raw HTTP providers. The
// per-call deadline comes from the request context.
func newHTTPClient(config Config) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = proxyFunc(config)
	return &http.Client{Transport: transport}
}
