package jobs

import (
	"context"
	"log"
	"time"

	"querydesk/internal/metrics"
	"querydesk/internal/models"
	"querydesk/internal/routing"
)

// SubjectLister loads the persisted subjects.
type SubjectLister interface {
	ListSubjects(ctx context.Context) ([]models.Subject, error)
}

// CorpusRefresher periodically reloads the routing corpus from the database so
// subjects changed by other instances or by the CLI become visible.
type CorpusRefresher struct {
	subjects SubjectLister
	corpus   *routing.Corpus
	interval time.Duration
}

// NewCorpusRefresher creates a new corpus refresher.
func NewCorpusRefresher(subjects SubjectLister, corpus *routing.Corpus, interval time.Duration) *CorpusRefresher {
	return &CorpusRefresher{
		subjects: subjects,
		corpus:   corpus,
		interval: interval,
	}
}

// Start reloads immediately and then on every tick until ctx is canceled.
func (r *CorpusRefresher) Start(ctx context.Context) {
	log.Printf("Corpus refresher started (interval: %v)", r.interval)

	if err := r.Refresh(ctx); err != nil {
		log.Printf("Corpus refresher: %v", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Corpus refresher stopped")
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				log.Printf("Corpus refresher: %v", err)
			}
		}
	}
}

// Refresh replaces the corpus with the database's subjects. Keywords already
// learned in memory are kept, and subjects added or removed while the list was
// loading keep their local state.
func (r *CorpusRefresher) Refresh(ctx context.Context) error {
	gen := r.corpus.Generation()
	subjects, err := r.subjects.ListSubjects(ctx)
	if err != nil {
		return err
	}

	before := r.corpus.Len()
	r.corpus.ReplaceSince(gen, subjects)
	after := r.corpus.Len()
	metrics.RecordCorpusSize(after)

	if before != after {
		log.Printf("Corpus refresher: %d subjects (was %d)", after, before)
	}
	return nil
}
