package wizard

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"sync"
	"testing"

	"listflow/catalog"
	"listflow/config"
	"listflow/draft"
	"listflow/identity"
	"listflow/models"
	"listflow/submit"
	"listflow/uploader"
)

type captureCreator struct {
	mu      sync.Mutex
	calls   int
	payload *models.ListingPayload
	err     error
}

func (c *captureCreator) CreateListing(ctx context.Context, payload *models.ListingPayload) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.payload = payload
	if c.err != nil {
		return "", c.err
	}
	return "listing-1", nil
}

func newController(creator submit.ListingCreator) (*Controller, *draft.Aggregator) {
	agg := draft.NewAggregator()
	coord := submit.NewCoordinator(identity.Static{ID: "u1"}, creator, catalog.Default())
	return New(agg, coord), agg
}

func TestAdvanceAndRetreatClamp(t *testing.T) {
	ctrl, _ := newController(&captureCreator{})

	ctrl.Retreat()
	if ctrl.CurrentStep().Index != StepIdentity {
		t.Fatalf("retreat must clamp at the first step")
	}

	for i := 0; i < 20; i++ {
		if err := ctrl.Advance(); err != nil {
			t.Fatalf("advance failed: %v", err)
		}
	}
	if ctrl.CurrentStep().Index != StepReview {
		t.Fatalf("advance must clamp at review, got %v", ctrl.CurrentStep().Index)
	}
	if !ctrl.CurrentStep().Last {
		t.Fatalf("review should report Last")
	}
}

func TestAdvanceNeverSkipsSteps(t *testing.T) {
	ctrl, _ := newController(&captureCreator{})
	prev := ctrl.CurrentStep().Index
	for i := 0; i < 10; i++ {
		if err := ctrl.Advance(); err != nil {
			t.Fatalf("advance failed: %v", err)
		}
		cur := ctrl.CurrentStep().Index
		if cur != prev && cur != prev+1 {
			t.Fatalf("advance skipped from %d to %d", prev, cur)
		}
		prev = cur
	}
}

func TestAdvanceGatedByUploadsInFlight(t *testing.T) {
	ctrl, agg := newController(&captureCreator{})
	for ctrl.CurrentStep().Index != StepMedia {
		if err := ctrl.Advance(); err != nil {
			t.Fatalf("advance failed: %v", err)
		}
	}

	agg.Apply(models.Patch{UploadsInFlight: models.Set(true)})
	if err := ctrl.Advance(); !errors.Is(err, ErrUploadsInFlight) {
		t.Fatalf("expected gate refusal, got %v", err)
	}
	if ctrl.CurrentStep().Index != StepMedia {
		t.Fatalf("refused advance must not move the step")
	}

	agg.Apply(models.Patch{UploadsInFlight: models.Set(false)})
	if err := ctrl.Advance(); err != nil {
		t.Fatalf("advance should pass once flag clears: %v", err)
	}
	if ctrl.CurrentStep().Index != StepReview {
		t.Fatalf("expected review step, got %v", ctrl.CurrentStep().Index)
	}
}

func TestGateOnlyAppliesToMediaStep(t *testing.T) {
	ctrl, agg := newController(&captureCreator{})
	agg.Apply(models.Patch{UploadsInFlight: models.Set(true)})

	// Steps before media are not gated.
	if err := ctrl.Advance(); err != nil {
		t.Fatalf("identity step must not be gated: %v", err)
	}
}

func TestSubmitOnlyFromReview(t *testing.T) {
	creator := &captureCreator{}
	ctrl, _ := newController(creator)

	if _, err := ctrl.Submit(context.Background()); !errors.Is(err, ErrNotAtReview) {
		t.Fatalf("expected ErrNotAtReview, got %v", err)
	}
	if creator.calls != 0 {
		t.Fatalf("no backend call before review")
	}
}

func TestSubmitFailureKeepsSessionAlive(t *testing.T) {
	creator := &captureCreator{err: errors.New("backend down")}
	ctrl, agg := newController(creator)
	seedValidDraft(agg)
	for ctrl.CurrentStep().Index != StepReview {
		if err := ctrl.Advance(); err != nil {
			t.Fatalf("advance failed: %v", err)
		}
	}

	if _, err := ctrl.Submit(context.Background()); err == nil {
		t.Fatalf("expected submission error")
	}
	if ctrl.CurrentStep().Index != StepReview {
		t.Fatalf("failed submit must stay at review")
	}
	if agg.Snapshot().Title == nil {
		t.Fatalf("draft must be preserved for retry")
	}

	// Retry works against the same controller.
	creator.err = nil
	if _, err := ctrl.Submit(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if creator.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", creator.calls)
	}
}

func TestSubmitSuccessEndsSession(t *testing.T) {
	creator := &captureCreator{}
	ctrl, agg := newController(creator)
	seedValidDraft(agg)
	for ctrl.CurrentStep().Index != StepReview {
		if err := ctrl.Advance(); err != nil {
			t.Fatalf("advance failed: %v", err)
		}
	}

	id, err := ctrl.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if id != "listing-1" {
		t.Fatalf("unexpected id %q", id)
	}
	if _, err := ctrl.Submit(context.Background()); !errors.Is(err, ErrSessionEnded) {
		t.Fatalf("expected session ended, got %v", err)
	}
	if err := ctrl.Advance(); !errors.Is(err, ErrSessionEnded) {
		t.Fatalf("expected session ended on advance, got %v", err)
	}
}

func seedValidDraft(agg *draft.Aggregator) {
	agg.Apply(models.Patch{
		Title:        models.Set("Family Home"),
		ListingType:  models.Set(models.ListingTypeSale),
		PropertyType: models.Set("house"),
		Prices:       map[string]models.Opt[float64]{"USD": models.Set(150000.0)},
	})
}

// gatedStore holds one upload until released and fails another, driving
// the full-session scenario.
type gatedStore struct {
	mu       sync.Mutex
	failName string
	uploaded []string
}

func (s *gatedStore) Upload(ctx context.Context, bucket, path string, data io.Reader, contentType string) (string, error) {
	body, _ := io.ReadAll(data)
	if string(body) == s.failName {
		return "", errors.New("storage rejected file")
	}
	s.mu.Lock()
	s.uploaded = append(s.uploaded, path)
	s.mu.Unlock()
	return "a", nil
}

func (s *gatedStore) Delete(ctx context.Context, bucket, path string) error { return nil }
func (s *gatedStore) PathFromURL(url string) string                         { return url }

// Full composition session: derive, upload with one failure, gate, submit.
func TestFullCompositionScenario(t *testing.T) {
	agg := draft.NewAggregator()
	creator := &captureCreator{}
	coord := submit.NewCoordinator(identity.Static{ID: "u1"}, creator, catalog.Default())
	store := &gatedStore{failName: "broken"}
	orch := uploader.NewOrchestrator(store, identity.Static{ID: "u1"}, agg, config.BucketConfig{Images: "imgs"}, 0)
	ctrl := New(agg, coord)

	agg.Apply(models.Patch{
		Title:        models.Set("Borrowdale Home"),
		ListingType:  models.Set(models.ListingTypeSale),
		PropertyType: models.Set("house"),
	})
	agg.Apply(models.Patch{Prices: map[string]models.Opt[float64]{"USD": models.Set(200000.0)}})
	snap := agg.Apply(models.Patch{FloorArea: models.Set(250.0)})
	if snap.PricePerArea == nil || math.Abs(*snap.PricePerArea-800.0) > 1e-9 {
		t.Fatalf("expected price_per_area 800.0, got %v", snap.PricePerArea)
	}

	for ctrl.CurrentStep().Index != StepMedia {
		if err := ctrl.Advance(); err != nil {
			t.Fatalf("advance failed: %v", err)
		}
	}

	files := []models.FileRef{
		{Name: "good.jpg", Size: 4, Reader: strings.NewReader("good")},
		{Name: "broken.jpg", Size: 6, Reader: strings.NewReader("broken")},
	}
	if _, err := orch.Enqueue(context.Background(), files, models.CategoryImage); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	orch.Close()

	snap = agg.Snapshot()
	if len(snap.Media) != 1 {
		t.Fatalf("expected exactly the successful upload merged, got %+v", snap.Media)
	}
	m := snap.Media[0]
	if m.URL != "a" || m.Type != models.MediaTypeImage || m.Order != 0 || !m.IsCover {
		t.Fatalf("unexpected media entry: %+v", m)
	}

	if err := ctrl.Advance(); err != nil {
		t.Fatalf("advance from media should succeed immediately: %v", err)
	}

	if _, err := ctrl.Submit(context.Background()); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if creator.calls != 1 {
		t.Fatalf("expected exactly one backend call, got %d", creator.calls)
	}
	if len(creator.payload.Media) != 1 || creator.payload.Media[0].URL != "a" {
		t.Fatalf("payload media mismatch: %+v", creator.payload.Media)
	}
	if len(creator.payload.Documents) != 0 {
		t.Fatalf("expected no documents, got %+v", creator.payload.Documents)
	}
}
