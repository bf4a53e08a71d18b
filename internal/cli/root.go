// Package cli implements the querydesk command line tool for maintaining the
// routing corpus outside the web server.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"querydesk/internal/config"
	"querydesk/internal/db"
	"querydesk/internal/documents"
	"querydesk/internal/extract"
	"querydesk/internal/models"
	"querydesk/internal/routing"
	"querydesk/internal/storage"
)

// Store is the subject persistence the commands work against.
type Store interface {
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	GetSubjectByCode(ctx context.Context, code string) (*models.Subject, error)
	MergeSubjectKeywords(ctx context.Context, id uuid.UUID, keywords []string) ([]string, int, error)
	documents.Recorder
}

var (
	store      Store
	uploads    storage.Store
	closeStore func()
	policy     = routing.DefaultPolicy()
	registry   = extract.NewRegistry()
)

var (
	success = color.New(color.FgGreen, color.Bold).SprintFunc()
	warning = color.New(color.FgYellow).SprintFunc()
	failure = color.New(color.FgRed).SprintFunc()
	heading = color.New(color.FgCyan, color.Bold).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:   "querydesk",
	Short: "Maintain the query routing corpus",
	Long: `querydesk manages the subject keyword corpus used to route student queries.
It connects to the database named by DATABASE_URL and reads routing settings
from the file named by CONFIG_FILE.`,
	SilenceUsage:      true,
	PersistentPreRunE: connect,
}

// connect opens the database and upload storage unless a store has already been set.
func connect(cmd *cobra.Command, _ []string) error {
	if store != nil {
		return nil
	}

	cfg := config.Load()
	yamlCfg, err := config.LoadYAMLConfig()
	if err != nil {
		return err
	}
	if err := cfg.ApplyYAML(yamlCfg); err != nil {
		return err
	}
	policy = cfg.Routing.Policy()

	database, err := db.New(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	objects, err := storage.Open(cmd.Context(), cfg.StorageBackend, cfg.UploadDir, cfg.GCSBucket)
	if err != nil {
		database.Close()
		return fmt.Errorf("failed to open upload storage: %w", err)
	}

	store = database
	uploads = objects
	closeStore = func() {
		if c, ok := objects.(io.Closer); ok {
			c.Close()
		}
		database.Close()
	}
	return nil
}

// documentService records documents in the configured upload storage and learns
// through learner.
func documentService(learner documents.Learner) *documents.Service {
	return documents.NewService(uploads, store, registry, learner)
}

// Execute runs the root command.
func Execute() error {
	defer func() {
		if closeStore != nil {
			closeStore()
		}
	}()
	return rootCmd.ExecuteContext(context.Background())
}
