package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"querydesk/internal/db"
	"querydesk/internal/documents"
	"querydesk/internal/extract"
	"querydesk/internal/models"
	"querydesk/internal/nlp"
	"querydesk/internal/routing"
	"querydesk/internal/validation"
)

var (
	ingestConcurrency int
	ingestLimit       int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Learn subject keywords from a directory of documents",
	Long: `Each subdirectory of dir is named after a subject code and holds reference
documents for that subject. Keywords are weighted across every document in the
batch, so terms common to all subjects rank below distinctive ones, and are then
merged into each subject's keyword set. Every document is copied to upload storage
and recorded with the number of keywords it added or the reason it was skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().IntVarP(&ingestConcurrency, "concurrency", "c", 4, "documents extracted in parallel")
	ingestCmd.Flags().IntVarP(&ingestLimit, "limit", "n", 50, "keywords kept per document")
	rootCmd.AddCommand(ingestCmd)
}

type ingestFile struct {
	subject models.Subject
	path    string
	kind    string
}

// ingestResult is the outcome of reading, recording and tokenizing one file.
// doc is nil when the file could not be read or stored.
type ingestResult struct {
	doc    *models.SubjectDocument
	tokens []string
	err    error
}

type ingestSummary struct {
	subject models.Subject
	files   int
	added   int
	total   int
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	files, err := collectFiles(ctx, cmd, args[0])
	if err != nil {
		return err
	}
	if len(files) == 0 {
		cmd.Println(warning("No supported documents found."))
		return nil
	}

	router := routing.NewRouter(registry, store, routing.NewCorpus(ingestSubjects(files)), policy)
	svc := documentService(router)

	results := processAll(ctx, svc, files, ingestConcurrency)
	if err := ctx.Err(); err != nil {
		return err
	}
	docs := make([][]string, len(results))
	for i, r := range results {
		if r.err != nil {
			cmd.Printf("%s %s: %v\n", failure("skip"), files[i].path, r.err)
			continue
		}
		docs[i] = r.tokens
	}

	batch, err := nlp.ExtractBatch(docs, ingestLimit)
	if errors.Is(err, nlp.ErrEmptyInput) {
		cmd.Println(warning("No usable text in any document."))
		batch = make([][]string, len(files))
	} else if err != nil {
		return err
	}

	summaries, err := mergeBatch(ctx, cmd, svc, files, results, batch)
	if err != nil {
		return err
	}

	cmd.Println(heading("Ingested:"))
	for _, s := range summaries {
		cmd.Printf("  %-12s %3d files  %s keywords (%d total)\n",
			s.subject.Code, s.files, success(fmt.Sprintf("+%d", s.added)), s.total)
	}
	return nil
}

// collectFiles lists the supported documents under root, one subdirectory per subject.
// Subdirectories that do not name a known subject are reported and skipped.
func collectFiles(ctx context.Context, cmd *cobra.Command, root string) ([]ingestFile, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var files []ingestFile
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		code := validation.NormalizeCode(entry.Name())
		subject, err := store.GetSubjectByCode(ctx, code)
		if errors.Is(err, db.ErrSubjectNotFound) {
			cmd.Printf("%s %s: no subject with code %s\n", warning("skip"), entry.Name(), code)
			continue
		}
		if err != nil {
			return nil, err
		}

		dir := filepath.Join(root, entry.Name())
		err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			kind := extract.KindFromFilename(path)
			if !registry.Supports(kind) {
				return nil
			}
			files = append(files, ingestFile{subject: *subject, path: path, kind: kind})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func ingestSubjects(files []ingestFile) []models.Subject {
	seen := make(map[uuid.UUID]bool)
	var subjects []models.Subject
	for _, f := range files {
		if !seen[f.subject.ID] {
			seen[f.subject.ID] = true
			subjects = append(subjects, f.subject)
		}
	}
	return subjects
}

// processAll stores, records and tokenizes every file with at most limit files in
// flight. The returned slice is parallel to files. A file that was recorded but
// could not be extracted has the failure saved on its document.
func processAll(ctx context.Context, svc *documents.Service, files []ingestFile, limit int) []ingestResult {
	results := make([]ingestResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))
	for i, f := range files {
		g.Go(func() error {
			results[i] = processFile(gctx, svc, f)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func processFile(ctx context.Context, svc *documents.Service, f ingestFile) ingestResult {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return ingestResult{err: err}
	}
	doc, err := svc.Record(ctx, f.subject.ID, f.path, data)
	if err != nil {
		return ingestResult{err: err}
	}

	text, err := registry.ExtractText(ctx, f.kind, data)
	if err != nil {
		if ferr := svc.Fail(ctx, doc, "could not extract text: "+err.Error()); ferr != nil {
			err = errors.Join(err, ferr)
		}
		return ingestResult{doc: doc, err: err}
	}
	return ingestResult{doc: doc, tokens: nlp.Tokens(text)}
}

// mergeBatch merges each recorded document's keywords into its subject, saving the
// outcome on the document, and returns one summary per subject ordered by code.
func mergeBatch(ctx context.Context, cmd *cobra.Command, svc *documents.Service, files []ingestFile, results []ingestResult, batch [][]string) ([]ingestSummary, error) {
	bySubject := make(map[uuid.UUID]*ingestSummary)
	for i, f := range files {
		s, ok := bySubject[f.subject.ID]
		if !ok {
			s = &ingestSummary{subject: f.subject, total: len(f.subject.Keywords)}
			bySubject[f.subject.ID] = s
		}
		r := results[i]
		if r.err != nil {
			continue
		}

		res, err := svc.MergeKeywords(ctx, r.doc, batch[i])
		if err != nil {
			return nil, fmt.Errorf("record outcome for %s: %w", f.path, err)
		}
		if res == nil {
			cmd.Printf("%s %s: %s\n", warning("skip"), f.path, *r.doc.ExtractionError)
			continue
		}
		s.files++
		s.added += res.Added
		s.total = res.Total
	}

	summaries := make([]ingestSummary, 0, len(bySubject))
	for _, s := range bySubject {
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].subject.Code < summaries[j].subject.Code
	})
	return summaries, nil
}
