package routing

import (
	"errors"
	"slices"
	"sync/atomic"

	"github.com/google/uuid"

	"querydesk/internal/models"
)

// ErrSubjectNotFound is returned when a corpus operation names an unknown subject.
var ErrSubjectNotFound = errors.New("subject not found in corpus")

// Corpus is the in-memory set of subjects used for classification.
//
// Readers get an immutable snapshot; writers build a new snapshot and publish it with
// compare-and-swap, retrying on contention. A published snapshot and the keyword slices
// inside it are never modified afterwards.
//
// Every Add and Remove advances the corpus generation and remembers which subject it
// touched, so ReplaceSince can tell local changes from what a reload already saw.
type Corpus struct {
	snap atomic.Pointer[snapshot]
}

type snapshot struct {
	subjects []models.Subject
	gen      uint64
	touched  map[uuid.UUID]touch
}

// touch is the last local Add or Remove of a subject.
type touch struct {
	gen     uint64
	removed bool
}

// NewCorpus creates a corpus holding subjects in the given order.
func NewCorpus(subjects []models.Subject) *Corpus {
	c := &Corpus{}
	initial := make([]models.Subject, 0, len(subjects))
	for _, s := range subjects {
		initial = append(initial, corpusEntry(s))
	}
	c.snap.Store(&snapshot{subjects: initial})
	return c
}

// corpusEntry strips a subject down to what classification needs.
func corpusEntry(s models.Subject) models.Subject {
	s.Keywords, _ = models.MergeKeywords(nil, s.Keywords)
	s.Documents = nil
	return s
}

func (c *Corpus) load() []models.Subject {
	if p := c.snap.Load(); p != nil {
		return p.subjects
	}
	return nil
}

// update applies fn to the current snapshot until the result is published.
// fn must not modify its argument.
func (c *Corpus) update(fn func(cur snapshot) (snapshot, error)) error {
	for {
		old := c.snap.Load()
		var cur snapshot
		if old != nil {
			cur = *old
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		if c.snap.CompareAndSwap(old, &next) {
			return nil
		}
	}
}

// touch returns a copy of s with id marked as changed in a new generation.
func (s snapshot) touch(id uuid.UUID, removed bool) snapshot {
	s.gen++
	touched := make(map[uuid.UUID]touch, len(s.touched)+1)
	for k, v := range s.touched {
		touched[k] = v
	}
	touched[id] = touch{gen: s.gen, removed: removed}
	s.touched = touched
	return s
}

// Generation returns the current corpus generation. Read it before loading the
// subjects that are later passed to ReplaceSince.
func (c *Corpus) Generation() uint64 {
	if p := c.snap.Load(); p != nil {
		return p.gen
	}
	return 0
}

// All returns the subjects in creation order. The returned slice may be modified by
// the caller; the keyword slices inside it must not be.
func (c *Corpus) All() []models.Subject {
	return slices.Clone(c.load())
}

// Len returns the number of subjects.
func (c *Corpus) Len() int {
	return len(c.load())
}

// Get returns the subject with the given ID.
func (c *Corpus) Get(id uuid.UUID) (models.Subject, bool) {
	for _, s := range c.load() {
		if s.ID == id {
			return s, true
		}
	}
	return models.Subject{}, false
}

// Add appends a subject, or updates its metadata in place if it is already present.
// Keywords of an existing subject are merged, never dropped.
func (c *Corpus) Add(subject models.Subject) {
	entry := corpusEntry(subject)
	_ = c.update(func(cur snapshot) (snapshot, error) {
		next := cur.touch(entry.ID, false)
		next.subjects = slices.Clone(cur.subjects)
		for i := range next.subjects {
			if next.subjects[i].ID == entry.ID {
				e := entry
				e.Keywords, _ = models.MergeKeywords(next.subjects[i].Keywords, entry.Keywords)
				next.subjects[i] = e
				return next, nil
			}
		}
		next.subjects = append(next.subjects, entry)
		return next, nil
	})
}

// Remove drops a subject. Removing an unknown subject is a no-op.
func (c *Corpus) Remove(id uuid.UUID) {
	_ = c.update(func(cur snapshot) (snapshot, error) {
		next := cur.touch(id, true)
		next.subjects = slices.DeleteFunc(slices.Clone(cur.subjects), func(s models.Subject) bool {
			return s.ID == id
		})
		return next, nil
	})
}

// Replace swaps in a subject list that reflects every Add and Remove made so far.
// Keywords already known for a subject that is still present are kept, so a stale
// reload cannot shrink a keyword set.
func (c *Corpus) Replace(subjects []models.Subject) {
	c.ReplaceSince(c.Generation(), subjects)
}

// ReplaceSince swaps in a subject list loaded after the corpus was at generation gen.
// Subjects added or removed locally after gen may be missing from, or still present
// in, the list; for those the local change wins. Keywords are only ever merged.
func (c *Corpus) ReplaceSince(gen uint64, subjects []models.Subject) {
	_ = c.update(func(cur snapshot) (snapshot, error) {
		known := make(map[uuid.UUID]models.Subject, len(cur.subjects))
		for _, s := range cur.subjects {
			known[s.ID] = s
		}

		next := snapshot{gen: cur.gen}
		loaded := make(map[uuid.UUID]bool, len(subjects))
		for _, s := range subjects {
			entry := corpusEntry(s)
			t, changed := cur.touched[entry.ID]
			changed = changed && t.gen > gen
			if changed && t.removed {
				continue
			}
			if old, ok := known[entry.ID]; ok {
				merged, _ := models.MergeKeywords(old.Keywords, entry.Keywords)
				if changed {
					entry = old
				}
				entry.Keywords = merged
			}
			loaded[entry.ID] = true
			next.subjects = append(next.subjects, entry)
		}

		// Subjects added after the list was loaded.
		for _, s := range cur.subjects {
			t, ok := cur.touched[s.ID]
			if ok && t.gen > gen && !t.removed && !loaded[s.ID] {
				next.subjects = append(next.subjects, s)
			}
		}

		// Changes at or before gen are reflected in the list.
		for id, t := range cur.touched {
			if t.gen > gen {
				if next.touched == nil {
					next.touched = make(map[uuid.UUID]touch)
				}
				next.touched[id] = t
			}
		}
		return next, nil
	})
}

// MergeKeywords adds every keyword of kws not already on the subject and returns the
// subject's full keyword set. Merging the same keywords again changes nothing.
func (c *Corpus) MergeKeywords(id uuid.UUID, kws []string) ([]string, error) {
	merged, _, err := c.merge(id, kws)
	return merged, err
}

func (c *Corpus) merge(id uuid.UUID, kws []string) ([]string, int, error) {
	var (
		result []string
		added  int
	)
	err := c.update(func(cur snapshot) (snapshot, error) {
		idx := slices.IndexFunc(cur.subjects, func(s models.Subject) bool { return s.ID == id })
		if idx < 0 {
			return snapshot{}, ErrSubjectNotFound
		}
		merged, n := models.MergeKeywords(cur.subjects[idx].Keywords, kws)
		added = n
		if n == 0 {
			result = cur.subjects[idx].Keywords
			return cur, nil
		}
		next := cur
		next.subjects = slices.Clone(cur.subjects)
		next.subjects[idx].Keywords = merged
		result = merged
		return next, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return slices.Clone(result), added, nil
}
