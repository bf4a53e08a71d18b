package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"querydesk/internal/documents"
	"querydesk/internal/extract"
	"querydesk/internal/models"
	"querydesk/internal/routing"
	"querydesk/internal/validation"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Learn keywords from documents as they are added",
	Long: `Watches dir, laid out like the ingest directory, and merges the keywords of every
document created or rewritten in a subject subdirectory. Each new version of a
document is copied to upload storage and recorded. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// watcher learns from the documents dropped into a subject directory tree.
type watcher struct {
	root   string
	byCode map[string]models.Subject
	docs   *documents.Service
	seen   map[string]fileStamp
	cmd    *cobra.Command
}

// fileStamp identifies one version of a watched file.
type fileStamp struct {
	size    int64
	modTime time.Time
}

func newWatcher(cmd *cobra.Command, root string, subjects []models.Subject) *watcher {
	byCode := make(map[string]models.Subject, len(subjects))
	for _, s := range subjects {
		byCode[s.Code] = s
	}
	return &watcher{
		root:   root,
		byCode: byCode,
		docs:   documentService(routing.NewRouter(registry, store, routing.NewCorpus(subjects), policy)),
		seen:   make(map[string]fileStamp),
		cmd:    cmd,
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := filepath.Clean(args[0])
	subjects, err := store.ListSubjects(ctx)
	if err != nil {
		return fmt.Errorf("failed to load subjects: %w", err)
	}
	w := newWatcher(cmd, root, subjects)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(root); err != nil {
		return err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			w.watchDir(fw, filepath.Join(root, e.Name()))
		}
	}

	cmd.Printf("%s %s\n", heading("Watching"), root)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				if filepath.Dir(ev.Name) == root {
					w.watchDir(fw, ev.Name)
				}
				continue
			}
			w.learnFile(ctx, ev.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			cmd.Printf("%s %v\n", failure("watch error:"), err)
		}
	}
}

// watchDir starts watching a subject directory if its name is a known subject code.
func (w *watcher) watchDir(fw *fsnotify.Watcher, dir string) {
	if _, ok := w.subjectFor(filepath.Join(dir, "_")); !ok {
		w.cmd.Printf("%s %s: no subject with code %s\n",
			warning("skip"), dir, validation.NormalizeCode(filepath.Base(dir)))
		return
	}
	if err := fw.Add(dir); err != nil {
		w.cmd.Printf("%s %s: %v\n", failure("skip"), dir, err)
	}
}

// subjectFor returns the subject owning the document at path.
func (w *watcher) subjectFor(path string) (models.Subject, bool) {
	dir := filepath.Dir(path)
	if filepath.Dir(dir) != w.root {
		return models.Subject{}, false
	}
	s, ok := w.byCode[validation.NormalizeCode(filepath.Base(dir))]
	return s, ok
}

// learnFile records one document and merges its keywords. A version of a file
// that was already learned is skipped, so repeated write events add no records.
func (w *watcher) learnFile(ctx context.Context, path string) {
	subject, ok := w.subjectFor(path)
	if !ok {
		return
	}
	kind := extract.KindFromFilename(path)
	if !registry.Supports(kind) {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		w.cmd.Printf("%s %s: %v\n", failure("skip"), path, err)
		return
	}
	if info.Size() == 0 {
		// Created but not yet written.
		return
	}
	stamp := fileStamp{size: info.Size(), modTime: info.ModTime()}
	if w.seen[path] == stamp {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		w.cmd.Printf("%s %s: %v\n", failure("skip"), path, err)
		return
	}
	w.seen[path] = stamp

	doc, err := w.docs.Record(ctx, subject.ID, path, data)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			w.cmd.Printf("%s %s: %v\n", failure("skip"), path, err)
		}
		return
	}

	res, err := w.docs.Learn(ctx, doc, kind, data)
	switch {
	case err != nil:
		if !errors.Is(err, context.Canceled) {
			w.cmd.Printf("%s %s: %v\n", failure("failed"), path, err)
		}
	case res == nil:
		w.cmd.Printf("%s %s: %s\n", warning("skip"), path, *doc.ExtractionError)
	default:
		w.cmd.Printf("%s %s -> %s (%d keywords)\n", success("learned"), filepath.Base(path), subject.Code, res.Total)
	}
}
