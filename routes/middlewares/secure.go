package middlewares

import (
	"net/http"

	"github.com/unrolled/secure"
)

// Secure sets the usual hardening headers on every response.
func Secure(debug bool) func(http.Handler) http.Handler {
	return secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		IsDevelopment:      debug,
	}).Handler
}
