package routing

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querydesk/internal/models"
	"querydesk/internal/nlp"
)

var errUnsupported = errors.New("unsupported document format")

type fakeExtractor map[string]string

func (f fakeExtractor) ExtractText(_ context.Context, kind string, data []byte) (string, error) {
	if kind == "txt" {
		return string(data), nil
	}
	text, ok := f[kind]
	if !ok {
		return "", errUnsupported
	}
	return text, nil
}

type fakeStore struct {
	mu       sync.Mutex
	keywords map[uuid.UUID][]string
	err      error
}

func (f *fakeStore) MergeSubjectKeywords(_ context.Context, id uuid.UUID, kws []string) ([]string, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, 0, f.err
	}
	merged, added := models.MergeKeywords(f.keywords[id], kws)
	f.keywords[id] = merged
	return merged, added, nil
}

func TestRouter_ExtractAndMerge(t *testing.T) {
	os := subject("Operating Systems", "process")
	r := NewRouter(fakeExtractor{}, nil, NewCorpus([]models.Subject{os}), DefaultPolicy())

	n, err := r.ExtractAndMerge(context.Background(), os.ID,
		[]byte("Threads share memory. Threads are scheduled by the process scheduler."), "txt")
	require.NoError(t, err)
	// process plus thread, share, memori, schedul.
	assert.Equal(t, 5, n)

	again, err := r.ExtractAndMerge(context.Background(), os.ID,
		[]byte("Threads share memory."), "txt")
	require.NoError(t, err)
	assert.Equal(t, n, again)
}

func TestRouter_ExtractAndMergeErrors(t *testing.T) {
	os := subject("Operating Systems")
	r := NewRouter(fakeExtractor{}, nil, NewCorpus([]models.Subject{os}), DefaultPolicy())
	ctx := context.Background()

	_, err := r.ExtractAndMerge(ctx, os.ID, []byte("slides"), "pptx")
	assert.ErrorIs(t, err, errUnsupported)

	_, err = r.ExtractAndMerge(ctx, os.ID, []byte("it is what it is"), "txt")
	assert.ErrorIs(t, err, nlp.ErrEmptyInput)

	_, err = r.ExtractAndMerge(ctx, uuid.New(), []byte("process scheduling"), "txt")
	assert.ErrorIs(t, err, ErrSubjectNotFound)

	got, _ := r.Corpus().Get(os.ID)
	assert.Empty(t, got.Keywords)
}

func TestRouter_LearnWithStore(t *testing.T) {
	os := subject("Operating Systems", "process")
	store := &fakeStore{keywords: map[uuid.UUID][]string{os.ID: {"process", "kernel"}}}
	r := NewRouter(fakeExtractor{}, store, NewCorpus([]models.Subject{os}), DefaultPolicy())

	res, err := r.Learn(context.Background(), os.ID, "process scheduling and thread scheduling")
	require.NoError(t, err)
	assert.Equal(t, []string{"schedul", "process", "thread"}, res.Keywords)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 4, res.Total)

	got, _ := r.Corpus().Get(os.ID)
	assert.Equal(t, []string{"process", "kernel", "schedul", "thread"}, got.Keywords)
}

func TestRouter_LearnStoreError(t *testing.T) {
	os := subject("Operating Systems")
	store := &fakeStore{keywords: map[uuid.UUID][]string{}, err: errors.New("connection refused")}
	r := NewRouter(fakeExtractor{}, store, NewCorpus([]models.Subject{os}), DefaultPolicy())

	_, err := r.Learn(context.Background(), os.ID, "process scheduling")
	require.Error(t, err)

	got, _ := r.Corpus().Get(os.ID)
	assert.Empty(t, got.Keywords)
}

func TestRouter_LearnKeywordLimit(t *testing.T) {
	os := subject("Operating Systems")
	policy := DefaultPolicy()
	policy.KeywordLimit = 2
	r := NewRouter(fakeExtractor{}, nil, NewCorpus([]models.Subject{os}), policy)

	res, err := r.Learn(context.Background(), os.ID, "kernel kernel kernel thread thread process")
	require.NoError(t, err)
	assert.Equal(t, []string{"kernel", "thread"}, res.Keywords)
	assert.Equal(t, 2, res.Total)
}

func TestRouter_ClassifyAndAssign(t *testing.T) {
	os := subject("Operating Systems", "process", "thread", "schedul", "memori")
	networks := subject("Computer Networks", "packet", "router", "tcp")
	r := NewRouter(nil, nil, NewCorpus([]models.Subject{os, networks}), DefaultPolicy())

	id := ids(3)
	staff := []models.User{
		teacher(id[0], []string{models.CategorySports}),
		teacher(id[1], nil, models.TeachingAssignment{SubjectID: networks.ID, Semester: 6}),
		teacher(id[2], nil, models.TeachingAssignment{SubjectID: networks.ID, Semester: 4}),
	}
	student := StudentContext{JoiningYear: year(22)}

	t.Run("academic assigned", func(t *testing.T) {
		d := r.ClassifyAndAssign(RoutingRequest{
			Text:     "TCP packet retransmission",
			Category: models.CategoryAcademics,
			Staff:    staff,
			Student:  student,
		})
		require.NotNil(t, d.Subject)
		require.NotNil(t, d.Assignee)
		assert.Equal(t, networks.ID, *d.Subject)
		assert.Equal(t, id[1], *d.Assignee)
		assert.Equal(t, models.StatusAssigned, d.Status())
	})

	t.Run("academic classified without teacher", func(t *testing.T) {
		d := r.ClassifyAndAssign(RoutingRequest{
			Text:     "How does process scheduling work?",
			Category: models.CategoryAcademics,
			Staff:    staff,
			Student:  student,
		})
		require.NotNil(t, d.Subject)
		assert.Equal(t, os.ID, *d.Subject)
		assert.Nil(t, d.Assignee)
		assert.Equal(t, models.StatusPending, d.Status())
	})

	t.Run("academic unclassified", func(t *testing.T) {
		d := r.ClassifyAndAssign(RoutingRequest{
			Text:     "What time does the canteen close?",
			Category: models.CategoryAcademics,
			Staff:    staff,
			Student:  student,
		})
		assert.Nil(t, d.Subject)
		assert.Nil(t, d.Assignee)
		assert.Equal(t, models.StatusPending, d.Status())
	})

	t.Run("non-academic bypasses classification", func(t *testing.T) {
		d := r.ClassifyAndAssign(RoutingRequest{
			Text:     "TCP packet router",
			Category: models.CategorySports,
			Staff:    staff,
			Student:  student,
		})
		assert.Nil(t, d.Subject)
		require.NotNil(t, d.Assignee)
		assert.Equal(t, id[0], *d.Assignee)
	})

	t.Run("explicit subject snapshot", func(t *testing.T) {
		d := r.ClassifyAndAssign(RoutingRequest{
			Text:     "TCP packet retransmission",
			Category: models.CategoryAcademics,
			Subjects: []models.Subject{os},
			Staff:    staff,
			Student:  student,
		})
		assert.Nil(t, d.Subject)
	})
}
