// Package h2 serves HTTP handlers over cleartext HTTP/2 (h2c) as well as HTTP/1.1.
package h2

import (
	"net/http"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Handler wraps the given http.Handler such that it can now serve unencrypted h2 traffic.
func Handler(h http.Handler) http.Handler {
	if h == nil {
		// h2c requires this to be passed
		h = http.DefaultServeMux
	}
	h2s := &http2.Server{}
	return h2c.NewHandler(h, h2s)
}
