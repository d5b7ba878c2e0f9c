// Package submit performs the one atomic backend write that turns a
// finished draft into a listing.
package submit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"listflow/catalog"
	"listflow/draft"
	"listflow/identity"
	"listflow/models"
)

// ReferencePrefix is the fixed prefix of human-facing reference codes.
const ReferencePrefix = "LF-"

// ErrInvalidDraft is returned when the draft fails validation; the wrapped
// message lists every violation.
var ErrInvalidDraft = errors.New("draft not ready for submission")

// ListingCreator is the backend's single entry point. The call is
// transactional server-side: the listing with all its media and document
// associations is created whole, or not at all.
type ListingCreator interface {
	CreateListing(ctx context.Context, payload *models.ListingPayload) (string, error)
}

type Coordinator struct {
	ids     identity.Provider
	creator ListingCreator
	cat     *catalog.Catalog
}

func NewCoordinator(ids identity.Provider, creator ListingCreator, cat *catalog.Catalog) *Coordinator {
	return &Coordinator{ids: ids, creator: creator, cat: cat}
}

// Submit assembles the payload from a draft snapshot and issues exactly
// one create call. On failure the caller's draft is untouched, so a retry
// needs no re-entry and no re-upload (assets are already persisted). Any
// panic out of payload assembly or the creator is converted to an error
// rather than leaving the session wedged mid-submit.
func (c *Coordinator) Submit(ctx context.Context, d models.Draft) (id string, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("submit: recovered: %v", r)
			err = fmt.Errorf("submission failed unexpectedly")
		}
	}()

	uid, uidErr := c.ids.UserID(ctx)
	if uidErr != nil {
		return "", fmt.Errorf("submit: %w", uidErr)
	}

	if errs := draft.Validate(&d, c.cat); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return "", fmt.Errorf("%w: %s", ErrInvalidDraft, strings.Join(msgs, "; "))
	}

	payload, perr := BuildPayload(&d, uid)
	if perr != nil {
		return "", fmt.Errorf("build payload: %w", perr)
	}

	id, cerr := c.creator.CreateListing(ctx, payload)
	if cerr != nil {
		return "", fmt.Errorf("create listing: %w", cerr)
	}
	return id, nil
}

// BuildPayload strips the transient composition fields, splits media and
// documents from the scalar property fields, and generates the two
// client-side identifiers.
func BuildPayload(d *models.Draft, ownerID string) (*models.ListingPayload, error) {
	scalars := d.Clone()
	scalars.Media = nil
	scalars.Documents = nil
	scalars.UploadsInFlight = false

	property, err := json.Marshal(&scalars)
	if err != nil {
		return nil, err
	}

	title := ""
	if d.Title != nil {
		title = *d.Title
	}

	return &models.ListingPayload{
		Slug:      Slugify(title),
		Reference: NewReference(),
		OwnerID:   ownerID,
		Property:  property,
		Media:     append([]models.MediaEntry(nil), d.Media...),
		Documents: append([]models.DocumentEntry(nil), d.Documents...),
	}, nil
}

var nonWordRegex = regexp.MustCompile(`[^a-z0-9-]`)
var multiDashRegex = regexp.MustCompile(`-+`)

// Slugify builds a URL-safe slug from the title plus a random suffix so
// two listings with the same title never collide.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = strings.ReplaceAll(s, " ", "-")
	s = nonWordRegex.ReplaceAllString(s, "")
	s = multiDashRegex.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	if s == "" {
		return suffix
	}
	return s + "-" + suffix
}

// NewReference returns a human-facing reference code: fixed prefix plus a
// random alphanumeric suffix.
func NewReference() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return ReferencePrefix + suffix
}
