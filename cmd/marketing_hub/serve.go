package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jonathan/marketing-hub/internal/config"
	"github.com/jonathan/marketing-hub/internal/db"
	"github.com/jonathan/marketing-hub/internal/mail"
	"github.com/jonathan/marketing-hub/internal/scoring"
	"github.com/jonathan/marketing-hub/internal/server"
	"github.com/jonathan/marketing-hub/internal/store"
	"github.com/jonathan/marketing-hub/internal/templates"
	"github.com/spf13/cobra"
)

const defaultMailFrom = "Marketing Hub <no-reply@marketing-hub.local>"

var (
	servePort    int
	serveConfig  string
	serveVerbose bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes REST endpoints for leads, duplicate detection,
scoring, campaigns and templates.

Uses PostgreSQL when DATABASE_URL is set. Otherwise an in-memory store is seeded
with demo data and login codes are printed to the log.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default 8080)")
	serveCmd.Flags().StringVar(&serveConfig, "config", "", "Path to a JSON config file")
	serveCmd.Flags().BoolVarP(&serveVerbose, "verbose", "v", false, "Log full mail bodies")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveServeConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Port:        cfg.Port,
		CORSOrigin:  cfg.CORSOrigin,
		MailFrom:    cfg.MailFrom,
		AdminEmails: adminEmails(os.Getenv("ADMIN_EMAILS")),
	}, st, &mail.LogMailer{Verbose: cfg.Verbose || cfg.DatabaseURL == ""})
	if err != nil {
		st.Close()
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}

// resolveServeConfig layers flags over the config file over the environment.
func resolveServeConfig() (config.Config, error) {
	flags := config.Config{Port: servePort, Verbose: serveVerbose}

	defaults := config.Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		MailFrom:    defaultMailFrom,
		CORSOrigin:  os.Getenv("CORS_ORIGIN"),
	}
	if serveConfig != "" {
		fileCfg, err := config.LoadConfig(serveConfig)
		if err != nil {
			return config.Config{}, err
		}
		if err := fileCfg.Validate(); err != nil {
			return config.Config{}, err
		}
		defaults = fileCfg.MergeWithDefaults(defaults)
	}

	cfg := flags.MergeWithDefaults(defaults)
	cfg.Verbose = serveVerbose || defaults.Verbose
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Printf("[serve] using PostgreSQL store")
		return database, nil
	}

	fixture, err := loadFixture(cfg.SeedFile)
	if err != nil {
		return nil, err
	}
	mem := store.NewMemory()
	if err := seedMemory(ctx, mem, fixture, time.Now()); err != nil {
		return nil, err
	}
	log.Printf("[serve] using in-memory store with %d seeded leads", len(fixture.Leads))
	return mem, nil
}

func loadFixture(path string) (*store.Fixture, error) {
	if path == "" {
		return store.DefaultFixture()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}
	return store.ParseFixture(data)
}

// seedMemory loads the fixture with every lead score computed up front.
func seedMemory(ctx context.Context, st store.Store, f *store.Fixture, now time.Time) error {
	for i := range f.Leads {
		f.Leads[i].LeadScore = scoring.Score(&f.Leads[i].Lead)
	}
	extract := func(s string) []string { return templates.ExtractVariables(s) }
	return store.Seed(ctx, st, f, now, extract)
}

// adminEmails parses a comma-separated address list.
func adminEmails(raw string) []string {
	var out []string
	for _, e := range strings.Split(raw, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, strings.ToLower(e))
		}
	}
	return out
}
