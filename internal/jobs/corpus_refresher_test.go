package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"querydesk/internal/models"
	"querydesk/internal/routing"
	"querydesk/internal/testutil"
)

type fakeLister struct {
	subjects []models.Subject
	err      error
	calls    atomic.Int32
	during   func()
}

func (f *fakeLister) ListSubjects(context.Context) ([]models.Subject, error) {
	f.calls.Add(1)
	if f.during != nil {
		f.during()
	}
	return f.subjects, f.err
}

func TestCorpusRefresher_Refresh(t *testing.T) {
	os := models.Subject{ID: uuid.New(), Name: "Operating Systems", Keywords: []string{"thread"}}
	db := models.Subject{ID: uuid.New(), Name: "Databases", Keywords: []string{"sql"}}

	corpus := routing.NewCorpus([]models.Subject{os})
	if _, err := corpus.MergeKeywords(os.ID, []string{"deadlock"}); err != nil {
		t.Fatalf("MergeKeywords() error = %v", err)
	}

	lister := &fakeLister{subjects: []models.Subject{os, db}}
	r := NewCorpusRefresher(lister, corpus, time.Minute)

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if corpus.Len() != 2 {
		t.Fatalf("corpus.Len() = %d, want 2", corpus.Len())
	}
	got, ok := corpus.Get(os.ID)
	if !ok {
		t.Fatal("subject missing after refresh")
	}
	// Keywords learned in memory survive a reload of stale rows
	if len(got.Keywords) != 2 || got.Keywords[1] != "deadlock" {
		t.Errorf("keywords = %v, want [thread deadlock]", got.Keywords)
	}
}

func TestCorpusRefresher_RefreshDuringSubjectChanges(t *testing.T) {
	os := models.Subject{ID: uuid.New(), Name: "Operating Systems", Keywords: []string{"thread"}}
	old := models.Subject{ID: uuid.New(), Name: "Legacy", Keywords: []string{"cobol"}}
	added := models.Subject{ID: uuid.New(), Name: "Databases", Keywords: []string{"sql"}}

	corpus := routing.NewCorpus([]models.Subject{os, old})
	lister := &fakeLister{
		// The list is read before the handlers below commit.
		subjects: []models.Subject{os, old},
		during: func() {
			corpus.Add(added)
			corpus.Remove(old.ID)
		},
	}

	r := NewCorpusRefresher(lister, corpus, time.Minute)
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if _, ok := corpus.Get(added.ID); !ok {
		t.Error("subject created during refresh was dropped")
	}
	if _, ok := corpus.Get(old.ID); ok {
		t.Error("subject deleted during refresh was restored")
	}

	// The next refresh sees the database state.
	lister.during = nil
	lister.subjects = []models.Subject{os, added}
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if corpus.Len() != 2 {
		t.Errorf("corpus.Len() = %d, want 2", corpus.Len())
	}
}

func TestCorpusRefresher_RefreshError(t *testing.T) {
	corpus := routing.NewCorpus([]models.Subject{{ID: uuid.New(), Name: "Networks"}})
	r := NewCorpusRefresher(&fakeLister{err: errors.New("db down")}, corpus, time.Minute)

	if err := r.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh() error = nil, want error")
	}
	if corpus.Len() != 1 {
		t.Errorf("failed refresh should leave the corpus alone, Len() = %d", corpus.Len())
	}
}

func TestCorpusRefresher_StartStops(t *testing.T) {
	lister := &fakeLister{}
	r := NewCorpusRefresher(lister, routing.NewCorpus(nil), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for lister.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("refresher ran %d times, want at least 2", lister.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}
}

func TestCorpusRefresher_Postgres(t *testing.T) {
	database, cleanup := testutil.TestDB(t)
	defer cleanup()

	s := testutil.CreateTestSubject(t, database, "Database Management", "CS302", "sql", "tabl")
	corpus := routing.NewCorpus(nil)

	if err := NewCorpusRefresher(database, corpus, time.Minute).Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	got, ok := corpus.Get(s.ID)
	if !ok {
		t.Fatal("subject not loaded from database")
	}
	if len(got.Keywords) != 2 {
		t.Errorf("keywords = %v, want [sql tabl]", got.Keywords)
	}
}
