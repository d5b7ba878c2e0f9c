package storage

import (
	"path/filepath"
	"testing"

	"listflow/models"
)

func TestJournalRoundTrip(t *testing.T) {
	j, err := OpenJournal(filepath.Join(t.TempDir(), "drafts.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer j.Close()

	title := "Kariba Cottage"
	d := models.Draft{
		Title: &title,
		Media: []models.MediaEntry{{URL: "a", Type: models.MediaTypeImage, IsCover: true}},
	}

	if err := j.Save("session-1", d); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Second save replaces the snapshot.
	title2 := "Kariba Cottage (updated)"
	d.Title = &title2
	if err := j.Save("session-1", d); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := j.Load("session-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil || got.Title == nil || *got.Title != title2 {
		t.Fatalf("unexpected draft: %+v", got)
	}
	if len(got.Media) != 1 || !got.Media[0].IsCover {
		t.Fatalf("media not restored: %+v", got.Media)
	}

	if err := j.Discard("session-1"); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if got, _ := j.Load("session-1"); got != nil {
		t.Fatalf("draft should be gone after discard")
	}

	if got, err := j.Load("never-existed"); err != nil || got != nil {
		t.Fatalf("missing session should be nil, nil; got %v, %v", got, err)
	}
}
