package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/haydenwy/civicboard/internal/blob"
	"github.com/haydenwy/civicboard/internal/classify"
	"github.com/haydenwy/civicboard/internal/config"
	"github.com/haydenwy/civicboard/internal/database"
	"github.com/haydenwy/civicboard/internal/events"
	"github.com/haydenwy/civicboard/internal/llm"
	"github.com/haydenwy/civicboard/internal/resolve"
	"github.com/haydenwy/civicboard/internal/review"
	"github.com/haydenwy/civicboard/internal/scan"
	"github.com/haydenwy/civicboard/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "civicboard",
	Short:   "Legislative tracking and community engagement",
	Long:    "CivicBoard scans state legislation, classifies bills into hot topics, and serves the civic engagement API.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(eventsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("civicboard", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/civicboard/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the jurisdiction, API keys, and LLM provider.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Jurisdiction: %s (%s)\n\n", cfg.Jurisdiction.State, cfg.Jurisdiction.Key)
		fmt.Println("Bills:")
		fmt.Printf("  Tracked: %d\n", stats.CivicItems)
		fmt.Printf("  Active: %d\n", stats.ActiveItems)
		fmt.Printf("  With AI summary: %d\n", stats.WithSummary)
		fmt.Println("\nReview:")
		fmt.Printf("  Pending staging records: %d\n", stats.StagingPending)
		fmt.Printf("  Published hot topics: %d\n", stats.HotTopics)
		fmt.Println("\nCommunity:")
		fmt.Printf("  Town hall threads: %d\n", stats.Threads)
		fmt.Printf("  Events: %d\n", stats.Events)

		provider := newProvider()
		configured := "no"
		if provider != nil && provider.IsConfigured() {
			configured = "yes"
		}
		fmt.Printf("\nLLM provider: %s (configured: %s)\n", cfg.Summarizer.Provider, configured)
		return nil
	},
}

// --- scan command ---

var (
	scanYear  string
	scanBatch int
	scanForce bool
	scanJSON  bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan pending bills: resolve documents, summarize, and stage topic classifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.Scanner.Enabled {
			return fmt.Errorf("scanner is disabled; set scanner.enabled: true in config")
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		provider := newProvider()
		if provider == nil || !provider.IsConfigured() {
			return fmt.Errorf("LLM provider %q is not configured", cfg.Summarizer.Provider)
		}

		orch := scan.New(cfg, db, provider)
		result, err := orch.Scan(context.Background(), scan.Options{
			Year:      scanYear,
			BatchSize: scanBatch,
			Force:     scanForce,
		})
		if err != nil {
			return err
		}

		if scanJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		fmt.Printf("Scanned %d bill(s).\n", result.Scanned)
		fmt.Printf("  Summaries written: %d\n", result.SummariesWritten)
		fmt.Printf("  Summaries skipped: %d\n", result.SummariesSkipped)
		for _, item := range result.Results {
			line := fmt.Sprintf("  %s:", item.BillNumber)
			if item.Error != "" {
				fmt.Printf("%s error: %s\n", line, item.Error)
				continue
			}
			if len(item.Topics) == 0 {
				fmt.Printf("%s no matching topics\n", line)
				continue
			}
			fmt.Printf("%s %v", line, item.Topics)
			if item.ConfidenceAvg != nil {
				fmt.Printf(" (avg confidence %.2f)", *item.ConfidenceAvg)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanYear, "year", "", "Restrict to one legislative session year")
	scanCmd.Flags().IntVar(&scanBatch, "batch-size", 0, "Override batch size")
	scanCmd.Flags().BoolVar(&scanForce, "force", false, "Regenerate cached summaries")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print the full result as JSON")
}

// --- resolve command ---

var resolveCmd = &cobra.Command{
	Use:   "resolve [bill-number] [year]",
	Short: "Resolve the best official document URL for a bill",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver := newResolver()
		resolution := resolver.Resolve(context.Background(), args[0], args[1])

		fmt.Printf("Checked %d candidate(s), %d returned a PDF.\n",
			resolution.CandidatesChecked, len(resolution.CandidatesFound))
		if resolution.Notes != "" {
			fmt.Println(resolution.Notes)
		}
		if !resolution.Success {
			return nil
		}
		fmt.Printf("Best document (%s): %s\n", resolution.BestKind, resolution.BestURL)
		for _, c := range resolution.CandidatesFound {
			fmt.Printf("  %-12s %s\n", c.Kind, c.URL)
		}
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if servePort > 0 {
			cfg.Server.Port = servePort
		}

		store, err := openBlobStore()
		if err != nil {
			return err
		}

		provider := newProvider()
		var analyzer server.Analyzer
		if provider != nil && provider.IsConfigured() {
			analyzer = classify.New(provider)
		}

		fmt.Printf("Starting server at http://localhost:%d\n", cfg.Server.Port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(cfg, db, store, scan.New(cfg, db, provider), analyzer, newResolver())
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (overrides config)")
}

// --- review commands ---

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review staged topic classifications",
}

var (
	reviewStatus   string
	reviewSession  string
	reviewReviewer string
	reviewNotes    string
)

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List staging records",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		records, err := db.ListStagingTopics(reviewStatus, reviewSession, 100)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No staging records found.")
			return nil
		}

		for _, rec := range records {
			complete := " "
			if !rec.IsComplete {
				complete = "!"
			}
			conf := "-"
			if rec.Confidence != nil {
				conf = fmt.Sprintf("%.2f", *rec.Confidence)
			}
			fmt.Printf("  [%d] %s %-24s %-10s conf=%s  %s\n",
				rec.ID, complete, rec.Slug, rec.ReviewStatus, conf, rec.Title)
			for _, e := range rec.ValidationErrors {
				fmt.Printf("        %s\n", e)
			}
		}
		return nil
	},
}

func reviewAction(args []string, act func(r *review.Reviewer, id int64) error) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid staging ID: %s", args[0])
	}
	return act(review.New(db), id)
}

var reviewApproveCmd = &cobra.Command{
	Use:   "approve [id]",
	Short: "Approve a staging record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewAction(args, func(r *review.Reviewer, id int64) error {
			if err := r.Approve(id, reviewReviewer, optional(reviewNotes)); err != nil {
				return err
			}
			fmt.Printf("Approved staging record %d.\n", id)
			return nil
		})
	},
}

var reviewRejectCmd = &cobra.Command{
	Use:   "reject [id]",
	Short: "Reject a staging record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewAction(args, func(r *review.Reviewer, id int64) error {
			if err := r.Reject(id, reviewReviewer, optional(reviewNotes)); err != nil {
				return err
			}
			fmt.Printf("Rejected staging record %d.\n", id)
			return nil
		})
	},
}

var reviewPromoteCmd = &cobra.Command{
	Use:   "promote [id]",
	Short: "Promote an approved record to the live hot topics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewAction(args, func(r *review.Reviewer, id int64) error {
			topic, err := r.Promote(id, reviewReviewer)
			if err != nil {
				return err
			}
			fmt.Printf("Promoted %q to hot topics.\n", topic.Slug)
			return nil
		})
	},
}

func init() {
	reviewCmd.PersistentFlags().StringVar(&reviewReviewer, "reviewer", "cli", "Reviewer name recorded in the audit trail")
	reviewCmd.PersistentFlags().StringVar(&reviewNotes, "notes", "", "Optional review notes")
	reviewListCmd.Flags().StringVar(&reviewStatus, "status", "", "Filter by review status")
	reviewListCmd.Flags().StringVar(&reviewSession, "session", "", "Filter by legislative session")

	reviewCmd.AddCommand(reviewListCmd)
	reviewCmd.AddCommand(reviewApproveCmd)
	reviewCmd.AddCommand(reviewRejectCmd)
	reviewCmd.AddCommand(reviewPromoteCmd)
}

// --- events commands ---

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Manage community events",
}

var eventsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import events from configured feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if len(cfg.Events.Feeds) == 0 {
			fmt.Println("No event feeds configured.")
			return nil
		}

		fmt.Println("Importing events from feeds...")
		result := events.NewImporter(cfg, db).Import()

		fmt.Println("\nImport complete:")
		fmt.Printf("  Total found: %d\n", result.TotalFound)
		fmt.Printf("  New events: %d\n", result.NewEvents)
		fmt.Printf("  Duplicates skipped: %d\n", result.Duplicates)

		if len(result.Sources) > 0 {
			fmt.Println("\nEvents by source:")
			type kv struct {
				key string
				val int
			}
			var sorted []kv
			for k, v := range result.Sources {
				sorted = append(sorted, kv{k, v})
			}
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].val > sorted[j].val })
			for _, s := range sorted {
				fmt.Printf("  %s: %d\n", s.key, s.val)
			}
		}
		return nil
	},
}

func init() {
	eventsCmd.AddCommand(eventsImportCmd)
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "civicboard.db")
	return database.Open(dbPath)
}

func openBlobStore() (*blob.Store, error) {
	return blob.NewStore(filepath.Join(cfg.GetDataDir(), "blobs"))
}

func newProvider() llm.Provider {
	return llm.CreateProvider(cfg.Summarizer.Provider, cfg.Summarizer.Model,
		cfg.Summarizer.OllamaURL, cfg.Summarizer.OpenAIModel, cfg.Summarizer.APIKeyEnv)
}

func newResolver() *resolve.Resolver {
	return resolve.New(cfg.Resolver.BaseURLs, time.Duration(cfg.Resolver.ProbeTimeout)*time.Second)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
