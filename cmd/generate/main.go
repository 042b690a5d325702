// Command generate builds a banking fixture with planted anomalies and writes
// it to disk as one JSON file per table plus the anomaly manifest.
//
// Usage:
//
//	go run ./cmd/generate [flags]
//
// Flags:
//
//	-config      Path to a JSON config file (default: none, built-in defaults)
//	-out         Output directory (default: data)
//	-seed        Override the configured seed
//	-population  Override the configured population size
//	-pretty      Indent JSON output
//	-notify      Comma-separated webhook URLs to announce the fixture to
//
// Settings are read from a .env file and FIXTURE_* environment variables
// before flags are applied. The same seed and config always produce
// byte-identical files.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"vaultline/bankfixture/internal/config"
	"vaultline/bankfixture/internal/domain"
	"vaultline/bankfixture/internal/generator"
	"vaultline/bankfixture/internal/store"
	"vaultline/bankfixture/internal/webhook"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file")
	outDir := flag.String("out", "data", "output directory")
	seed := flag.Int64("seed", 0, "override the configured seed")
	population := flag.Int("population", 0, "override the configured population size")
	pretty := flag.Bool("pretty", false, "indent JSON output")
	notify := flag.String("notify", "", "comma-separated webhook URLs")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found; relying on existing environment")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("invalid configuration", err)
	}
	applyOverrides(flag.CommandLine, &cfg, *seed, *population)

	urls := webhook.ParseURLs(*notify)
	if len(urls) == 0 {
		urls = webhook.ParseURLs(os.Getenv(webhook.EnvURLs))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *outDir, *pretty, urls); err != nil {
		fatal("generation aborted", err)
	}
}

// applyOverrides copies -seed and -population onto cfg when they were given
// on the command line, so "-seed 0" selects seed 0 rather than the default.
func applyOverrides(fs *flag.FlagSet, cfg *config.Config, seed int64, population int) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			cfg.Seed = seed
		case "population":
			cfg.PopulationSize = population
		}
	})
}

func run(ctx context.Context, cfg config.Config, outDir string, pretty bool, urls []string) error {
	asm, err := generator.New(cfg, generator.WithLogger(slog.Default()))
	if err != nil {
		return err
	}

	started := time.Now()
	ds, err := asm.Generate(ctx)
	if err != nil {
		return err
	}

	if err := writeTables(outDir, ds, pretty); err != nil {
		return err
	}
	slog.Info("fixture written",
		"dir", outDir,
		"seed", ds.Seed,
		"transactions", len(ds.Transactions),
		"elapsed", time.Since(started).Round(time.Millisecond),
	)

	s := store.New()
	s.Load(ds)
	sum, err := s.Summary()
	if err != nil {
		return err
	}
	if err := webhook.New(urls, slog.Default()).Notify(ctx, sum); err != nil {
		// The fixture is already on disk; a missed announcement is not fatal.
		slog.Warn("some webhook deliveries failed", "error", err)
	}
	return nil
}

// writeTables writes one <table>.json per dataset table, manifest.json and
// fixture.json (seed and window).
func writeTables(dir string, ds *domain.Dataset, pretty bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	files := []struct {
		name string
		rows any
	}{
		{"banks", ds.Banks},
		{"customers", ds.Customers},
		{"users", ds.Users},
		{"accounts", ds.Accounts},
		{"account_customers", ds.AccountCustomers},
		{"transactions", ds.Transactions},
		{"loans", ds.Loans},
		{"payments", ds.Payments},
		{"chat_history", ds.ChatHistory},
		{"manifest", ds.Manifest},
		{"fixture", struct {
			Seed        int64     `json:"seed"`
			AsOf        time.Time `json:"as_of"`
			WindowStart time.Time `json:"window_start"`
		}{ds.Seed, ds.AsOf, ds.WindowStart}},
	}

	for _, f := range files {
		if err := writeJSON(filepath.Join(dir, f.name+".json"), f.rows, pretty); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(path string, v any, pretty bool) error {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
