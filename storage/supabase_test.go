package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"listflow/config"
	"listflow/models"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) (*SupabaseStore, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	store := NewSupabaseStore(&config.SupabaseConfig{URL: srv.URL, ServiceKey: "svc-key"}, srv.Client())
	return store, srv
}

func TestUploadHitsStorageEndpoint(t *testing.T) {
	var gotPath, gotAuth, gotBody string
	store, srv := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(200)
	})

	url, err := store.Upload(context.Background(), "property-images", "u1/image/t1.jpg",
		strings.NewReader("bytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if gotPath != "/storage/v1/object/property-images/u1/image/t1.jpg" {
		t.Fatalf("unexpected request path %q", gotPath)
	}
	if gotAuth != "Bearer svc-key" {
		t.Fatalf("missing auth header: %q", gotAuth)
	}
	if gotBody != "bytes" {
		t.Fatalf("body not forwarded: %q", gotBody)
	}
	want := srv.URL + "/storage/v1/object/public/property-images/u1/image/t1.jpg"
	if url != want {
		t.Fatalf("public url mismatch:\n got %s\nwant %s", url, want)
	}
}

func TestUploadSurfacesBackendError(t *testing.T) {
	store, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"row-level security"}`, 403)
	})

	_, err := store.Upload(context.Background(), "property-images", "wrong-user/x.jpg",
		strings.NewReader("x"), "image/jpeg")
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	var gotMethod, gotPath string
	store, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(200)
	})

	if err := store.Delete(context.Background(), "property-images", "u1/image/t1.jpg"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if gotMethod != "DELETE" || gotPath != "/storage/v1/object/property-images/u1/image/t1.jpg" {
		t.Fatalf("unexpected request: %s %s", gotMethod, gotPath)
	}
}

func TestPathFromURL(t *testing.T) {
	store := NewSupabaseStore(&config.SupabaseConfig{URL: "https://x.supabase.co"}, nil)

	url := "https://x.supabase.co/storage/v1/object/public/property-images/u1/image/t1.jpg"
	if got := store.PathFromURL(url); got != "u1/image/t1.jpg" {
		t.Fatalf("expected object path without bucket, got %q", got)
	}
}

func TestCreateListingSingleRPC(t *testing.T) {
	var calls int
	var gotPath string
	var gotPayload models.ListingPayload
	store, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotPayload)
		json.NewEncoder(w).Encode("fresh-id")
	})

	payload := &models.ListingPayload{
		Slug:      "family-home-abc123",
		Reference: "LF-AAAA1111",
		OwnerID:   "u1",
		Property:  json.RawMessage(`{"title":"Family Home"}`),
		Media:     []models.MediaEntry{{URL: "a", Type: models.MediaTypeImage, IsCover: true}},
	}

	id, err := store.CreateListing(context.Background(), payload)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if id != "fresh-id" {
		t.Fatalf("unexpected id %q", id)
	}
	if calls != 1 {
		t.Fatalf("expected one RPC, got %d", calls)
	}
	if gotPath != "/rest/v1/rpc/create_listing" {
		t.Fatalf("unexpected rpc path %q", gotPath)
	}
	if gotPayload.Slug != payload.Slug || len(gotPayload.Media) != 1 {
		t.Fatalf("payload not carried: %+v", gotPayload)
	}
}
