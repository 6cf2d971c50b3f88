// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

package api

import (
	"context"
	"net/http"
)

// ctxKey is the private type for request-context values.
type ctxKey struct{}

// FromContext returns the RequestContext stored by the authenticate
// middleware, or nil if the pipeline has not run.
func FromContext(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(ctxKey{}).(*RequestContext)
	return rc
}

// withRequestContext stores the pipeline result for handlers.
func withRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// authenticate runs the pipeline for every request and stores the resulting
// context. A rejection answers immediately; handlers never see a partial
// context. Store calls made on behalf of the request share one deadline.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()

		rc, rejection := s.builder.Build(ctx, extractRequest(r))
		if rejection != nil {
			WriteError(w, s.logger, rejection)
			return
		}

		next.ServeHTTP(w, r.WithContext(withRequestContext(ctx, rc)))
	})
}

// extractRequest pulls the pipeline fields out of an HTTP request. GET
// requests read the query string; POST requests read form fields. The
// arguments value is used byte-for-byte as transmitted (after transport
// decoding), since the HMAC was computed over exactly that string.
func extractRequest(r *http.Request) Request {
	write := r.Method != http.MethodGet && r.Method != http.MethodHead

	// FormValue merges query and body fields, matching the original
	// transport contract where either carried the credentials.
	req := Request{
		Key:       r.FormValue("key"),
		Token:     r.FormValue("token"),
		With:      r.FormValue("with"),
		Signature: r.FormValue("signature"),
		Write:     write,
	}
	if raw := r.FormValue("arguments"); raw != "" {
		req.Arguments = []byte(raw)
	}
	return req
}
