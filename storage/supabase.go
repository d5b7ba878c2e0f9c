package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"listflow/config"
	"listflow/models"
)

// SupabaseStore talks to the Supabase storage and REST endpoints. It
// serves both roles the pipeline needs from the backend: object writes
// for uploads and the single transactional create_listing RPC.
type SupabaseStore struct {
	url        string
	serviceKey string
	client     *http.Client
}

func NewSupabaseStore(cfg *config.SupabaseConfig, client *http.Client) *SupabaseStore {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &SupabaseStore{
		url:        strings.TrimSuffix(cfg.URL, "/"),
		serviceKey: cfg.ServiceKey,
		client:     client,
	}
}

func (s *SupabaseStore) Upload(ctx context.Context, bucket, path string, data io.Reader, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/storage/v1/object/%s/%s", s.url, bucket, path), data)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	s.auth(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("supabase storage error %d: %s", resp.StatusCode, string(body))
	}

	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.url, bucket, path), nil
}

func (s *SupabaseStore) Delete(ctx context.Context, bucket, path string) error {
	req, err := http.NewRequestWithContext(ctx, "DELETE",
		fmt.Sprintf("%s/storage/v1/object/%s/%s", s.url, bucket, path), nil)
	if err != nil {
		return err
	}
	s.auth(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("supabase storage error %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// PathFromURL recovers the object path from a public URL: everything after
// the bucket segment of /storage/v1/object/public/{bucket}/.
func (s *SupabaseStore) PathFromURL(url string) string {
	const marker = "/storage/v1/object/public/"
	i := strings.Index(url, marker)
	if i < 0 {
		return url
	}
	rest := url[i+len(marker):]
	if j := strings.Index(rest, "/"); j >= 0 {
		return rest[j+1:]
	}
	return rest
}

// CreateListing invokes the create_listing RPC, which inserts the listing
// row plus its media and document associations in one transaction. The
// whole listing is created or none of it is; no follow-up calls are made.
func (s *SupabaseStore) CreateListing(ctx context.Context, payload *models.ListingPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		s.url+"/rest/v1/rpc/create_listing", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	s.auth(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("supabase error %d: %s", resp.StatusCode, string(respBody))
	}

	var id string
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return "", fmt.Errorf("decode listing id: %w", err)
	}
	return id, nil
}

func (s *SupabaseStore) auth(req *http.Request) {
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
}
