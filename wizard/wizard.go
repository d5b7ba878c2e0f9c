// Package wizard sequences the listing composition steps and gates
// transitions. The controller owns only the step index and the shared
// draft reference; all business data lives in the draft.
package wizard

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"listflow/draft"
	"listflow/models"
	"listflow/submit"
)

// Step indexes the fixed, ordered composition steps.
type Step int

const (
	StepIdentity Step = iota + 1
	StepFinancials
	StepLocation
	StepSpecifications
	StepAmenities
	StepMedia
	StepReview
)

var stepNames = map[Step]string{
	StepIdentity:       "identity",
	StepFinancials:     "financials",
	StepLocation:       "location",
	StepSpecifications: "specifications",
	StepAmenities:      "amenities",
	StepMedia:          "media",
	StepReview:         "review",
}

func (s Step) String() string { return stepNames[s] }

// Descriptor is what the shell renders for the active step.
type Descriptor struct {
	Index Step
	Name  string
	First bool
	Last  bool
}

var (
	// ErrUploadsInFlight blocks leaving the media step while any upload
	// is unresolved. The sole hard concurrency gate in the pipeline.
	ErrUploadsInFlight = errors.New("uploads still in flight")
	// ErrNotAtReview rejects submission from any step but the last.
	ErrNotAtReview = errors.New("submission only allowed from the review step")
	// ErrSessionEnded rejects use of a controller after a successful submit.
	ErrSessionEnded = errors.New("composition session has ended")
)

// Journal persists draft snapshots between merges; optional.
type Journal interface {
	Save(sessionID string, d models.Draft) error
	Discard(sessionID string) error
}

// Controller runs one composition session. It is not shared across
// sessions; a new session means a new controller and a fresh draft.
type Controller struct {
	mu        sync.Mutex
	sessionID string
	step      Step
	agg       *draft.Aggregator
	coord     *submit.Coordinator
	journal   Journal
	done      bool
}

func New(agg *draft.Aggregator, coord *submit.Coordinator) *Controller {
	return &Controller{
		sessionID: uuid.New().String(),
		step:      StepIdentity,
		agg:       agg,
		coord:     coord,
	}
}

// WithJournal enables autosave: every merge snapshots the draft.
func (c *Controller) WithJournal(j Journal) *Controller {
	c.journal = j
	c.agg.OnMerge(func(d models.Draft) {
		if err := j.Save(c.sessionID, d); err != nil {
			log.Printf("journal save failed: %v", err)
		}
	})
	return c
}

func (c *Controller) SessionID() string { return c.sessionID }

// Draft returns the aggregator steps merge through.
func (c *Controller) Draft() *draft.Aggregator { return c.agg }

// CurrentStep returns the descriptor bound to the current index.
func (c *Controller) CurrentStep() Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Descriptor{
		Index: c.step,
		Name:  c.step.String(),
		First: c.step == StepIdentity,
		Last:  c.step == StepReview,
	}
}

// Advance moves forward one step, clamped at review. Leaving the media
// step is refused while uploads are in flight; the check consults the
// draft's flag and never waits on the uploads themselves.
func (c *Controller) Advance() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return ErrSessionEnded
	}
	if c.step == StepMedia && c.agg.UploadsInFlight() {
		return ErrUploadsInFlight
	}
	if c.step < StepReview {
		c.step++
	}
	return nil
}

// Retreat moves back one step, clamped at the first.
func (c *Controller) Retreat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step > StepIdentity {
		c.step--
	}
}

// Submit delegates to the submission coordinator. Only reachable from the
// review step. Success ends the session and discards the draft; failure
// leaves the draft and the step untouched so the user can retry.
func (c *Controller) Submit(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return "", ErrSessionEnded
	}
	if c.step != StepReview {
		c.mu.Unlock()
		return "", ErrNotAtReview
	}
	c.mu.Unlock()

	id, err := c.coord.Submit(ctx, c.agg.Snapshot())
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.done = true
	c.mu.Unlock()

	if c.journal != nil {
		if jerr := c.journal.Discard(c.sessionID); jerr != nil {
			log.Printf("journal discard failed: %v", jerr)
		}
	}
	return id, nil
}
