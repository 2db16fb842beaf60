package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gomical/internal/calendar"
	"gomical/internal/config"
	"gomical/internal/extract"
	"gomical/internal/job"
	appLog "gomical/internal/log"
	"gomical/internal/storage"
	"gomical/internal/store"
	"gomical/internal/sync"
)

var (
	configPath string
	debug      bool

	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "gomical",
	Short: "Sync PDF schedules into a calendar",
	Long: `gomical ingests schedule PDFs (e.g. municipal garbage collection
calendars), extracts dated events through a generative model, and writes
them into Google Calendar idempotently: re-running a document never
creates duplicates.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config %s: %w", configPath, err)
		}
		if debug {
			cfg.LogLevel = "debug"
		}
		appLog.SetLevelFromString(cfg.LogLevel)
		return nil
	},
}

// Execute runs the CLI. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./gomical.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// openStore opens the configured SQLite database.
func openStore() (*store.Store, error) {
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.Database, err)
	}
	return st, nil
}

// openDocs builds the document fetcher: the local upload directory by
// default, an HTTP object store when base_url is configured.
func openDocs() (storage.Fetcher, *storage.DirStore, error) {
	dir, err := storage.NewDirStore(cfg.Storage.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("open upload dir %s: %w", cfg.Storage.Dir, err)
	}
	if cfg.Storage.BaseURL != "" {
		return storage.NewHTTPStore(cfg.Storage.BaseURL, cfg.StorageTimeout()), dir, nil
	}
	return dir, dir, nil
}

// newOrchestrator wires a job orchestrator over the shared store.
func newOrchestrator(st *store.Store, docs storage.Fetcher) *job.Orchestrator {
	extractor := extract.NewGeminiClient(cfg.Extract.Endpoint, cfg.Extract.APIKey, cfg.Extract.Model, cfg.ExtractTimeout())
	tokens := calendar.NewTokenSource(cfg.Google.TokenURL, cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.CalendarTimeout())

	newSyncer := func(accessToken string) job.Syncer {
		client := calendar.NewClient(cfg.Calendar.BaseURL, cfg.Calendar.CalendarID, accessToken, cfg.CalendarTimeout())
		return sync.NewEngine(client,
			sync.FixedDelayPacer{Delay: cfg.InsertDelay()},
			sync.FixedDelayPacer{Delay: cfg.ResolveDelay()},
			sync.Options{ReminderMinutes: cfg.Calendar.ReminderMinutes},
		)
	}

	return job.NewOrchestrator(st, st, st, docs, extractor, tokens, newSyncer, job.LogNotifier{})
}
