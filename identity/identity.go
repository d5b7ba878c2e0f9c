// Package identity exposes the authenticated session's user id. The
// upload orchestrator and the submission coordinator both require a
// non-empty id before touching the network.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrNotAuthenticated is returned when no identity is available.
var ErrNotAuthenticated = errors.New("not authenticated")

// Provider yields the current user's unique id.
type Provider interface {
	UserID(ctx context.Context) (string, error)
}

// Static is a fixed identity, used by the CLI (service-role sessions) and
// by tests.
type Static struct {
	ID string
}

func (s Static) UserID(ctx context.Context) (string, error) {
	if s.ID == "" {
		return "", ErrNotAuthenticated
	}
	return s.ID, nil
}

// SupabaseSession resolves the id behind an access token via the Supabase
// auth endpoint.
type SupabaseSession struct {
	URL         string
	AnonKey     string
	AccessToken string
	Client      *http.Client
}

func (s *SupabaseSession) UserID(ctx context.Context) (string, error) {
	if s.AccessToken == "" {
		return "", ErrNotAuthenticated
	}

	req, err := http.NewRequestWithContext(ctx, "GET", s.URL+"/auth/v1/user", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("apikey", s.AnonKey)
	req.Header.Set("Authorization", "Bearer "+s.AccessToken)

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", ErrNotAuthenticated
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("auth error %d: %s", resp.StatusCode, string(body))
	}

	var user struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", fmt.Errorf("decode user: %w", err)
	}
	if user.ID == "" {
		return "", ErrNotAuthenticated
	}
	return user.ID, nil
}
