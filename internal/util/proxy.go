// Package util holds small helpers shared by the outbound HTTP clients.
package util

import (
	"net/http"
	"net/url"

	"golang.org/x/net/http/httpproxy"
)

// NewProxyFunc creates a proxy function based on configuration.
// If no proxy setting is provided, falls back to environment variables.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	var resolve func(*url.URL) (*url.URL, error)
	if httpProxy == "" && httpsProxy == "" && noProxy == "" {
		resolve = httpproxy.FromEnvironment().ProxyFunc()
	} else {
		resolve = (&httpproxy.Config{
			HTTPProxy:  httpProxy,
			HTTPSProxy: httpsProxy,
			NoProxy:    noProxy,
		}).ProxyFunc()
	}
	return func(req *http.Request) (*url.URL, error) {
		return resolve(req.URL)
	}
}
