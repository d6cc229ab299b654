package client

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrNotReplayable is returned when a request with a body must be retried
// but has no GetBody.
var ErrNotReplayable = errors.New("request body cannot be replayed")

// Transport attaches the stored access token to every request. On a 401 it
// refreshes the access token once and retries the request once. When no
// refresh token is stored or the refresh fails, it clears the stored tokens,
// calls OnReauthenticate and returns the original 401 response.
type Transport struct {
	Tokens    *Tokens
	Refresher Refresher
	// Base defaults to http.DefaultTransport.
	Base http.RoundTripper
	// OnReauthenticate is called when the caller must log in again.
	OnReauthenticate func()
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base().RoundTrip(authorize(req, t.Tokens.AccessToken()))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	refreshToken := t.Tokens.RefreshToken()
	if refreshToken == "" {
		t.reauthenticate()
		return resp, nil
	}

	accessToken, err := t.Refresher.RefreshAccess(req.Context(), refreshToken)
	if err != nil {
		t.reauthenticate()
		return resp, nil
	}
	if err := t.Tokens.storage.Set(AccessTokenKey, accessToken); err != nil {
		return resp, nil
	}

	retry, err := replay(req)
	if err != nil {
		return resp, nil
	}
	drain(resp)
	return t.base().RoundTrip(authorize(retry, accessToken))
}

func (t *Transport) reauthenticate() {
	_ = t.Tokens.Clear()
	if t.OnReauthenticate != nil {
		t.OnReauthenticate()
	}
}

func authorize(req *http.Request, token string) *http.Request {
	out := req.Clone(req.Context())
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}
	if out.Header.Get("Content-Type") == "" {
		out.Header.Set("Content-Type", "application/json")
	}
	return out
}

func replay(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return out, nil
	}
	if req.GetBody == nil {
		return nil, ErrNotReplayable
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("replay body: %w", err)
	}
	out.Body = body
	return out, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
