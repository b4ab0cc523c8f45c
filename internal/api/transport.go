package api

import "net/http"

// TokenSource supplies the bearer credential for outgoing requests.
// An empty token means the request goes out anonymously.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// bearerTransport attaches the current token to every request. It is the
// only place the Authorization header is set.
type bearerTransport struct {
	base   http.RoundTripper
	tokens TokenSource
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.tokens == nil {
		return base.RoundTrip(req)
	}
	token := t.tokens.Token()
	if token == "" {
		return base.RoundTrip(req)
	}
	// RoundTrippers must not mutate the caller's request.
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+token)
	return base.RoundTrip(r)
}
