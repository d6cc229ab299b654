package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fundn3xus/sessionauth"
)

// ErrRefreshRejected is returned when the server refuses a refresh token.
var ErrRefreshRejected = errors.New("refresh token rejected")

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	RefreshAccess(ctx context.Context, refreshToken string) (string, error)
}

// HTTPRefresher calls the refresh route of a sessionauth server.
type HTTPRefresher struct {
	// BaseURL is the server origin, e.g. "https://api.example.com".
	BaseURL string
	// Path defaults to /api/auth/refresh.
	Path string
	// Client defaults to http.DefaultClient. It must not be a client whose
	// transport is the Transport using this refresher.
	Client *http.Client
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	Success     bool   `json:"success"`
	AccessToken string `json:"accessToken"`
}

// RefreshAccess posts refreshToken to the refresh route and returns the new access token.
func (r *HTTPRefresher) RefreshAccess(ctx context.Context, refreshToken string) (string, error) {
	path := r.Path
	if path == "" {
		path = "/api/auth/refresh"
	}
	httpClient := r.Client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(r.BaseURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("refresh request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrRefreshRejected, resp.StatusCode)
	}

	var out refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode refresh response: %w", err)
	}
	if out.AccessToken == "" {
		return "", ErrRefreshRejected
	}
	return out.AccessToken, nil
}

// ManagerRefresher refreshes in-process against a Manager.
type ManagerRefresher struct {
	Manager *sessionauth.Manager
}

// RefreshAccess calls Manager.RefreshAccess directly.
func (r ManagerRefresher) RefreshAccess(ctx context.Context, refreshToken string) (string, error) {
	token, ok := r.Manager.RefreshAccess(ctx, refreshToken)
	if !ok {
		return "", ErrRefreshRejected
	}
	return token, nil
}
