package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultline/bankfixture/internal/config"
	"vaultline/bankfixture/internal/domain"
	"vaultline/bankfixture/internal/generator"
)

func TestWriteTables_OneFilePerTable(t *testing.T) {
	dir := t.TempDir()
	ds := &domain.Dataset{
		Seed:      7,
		AsOf:      time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		Customers: []domain.Customer{{ID: 1, FirstName: "Ada"}},
		Transactions: []domain.Transaction{
			{ID: 1, AccountID: 1, Type: domain.TxDeposit, Amount: decimal.RequireFromString("12.50")},
		},
	}
	require.NoError(t, writeTables(dir, ds, false))

	for _, name := range []string{
		"banks", "customers", "users", "accounts", "account_customers",
		"transactions", "loans", "payments", "chat_history", "manifest", "fixture",
	} {
		_, err := os.Stat(filepath.Join(dir, name+".json"))
		assert.NoError(t, err, name)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "transactions.json"))
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(raw, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "12.5", rows[0]["amount"])

	raw, err = os.ReadFile(filepath.Join(dir, "fixture.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"seed":7`)
}

func TestRun_SameSeedWritesIdenticalFiles(t *testing.T) {
	if testing.Short() {
		t.Skip("generates two fixtures")
	}
	cfg := config.Default()
	cfg.PopulationSize = 60
	cfg.MinTransactions = 0
	cfg.AnomalyCounts = config.AnomalyCounts{}

	a, b := t.TempDir(), t.TempDir()
	require.NoError(t, run(context.Background(), cfg, a, true, nil))
	require.NoError(t, run(context.Background(), cfg, b, true, nil))

	for _, name := range []string{"customers.json", "transactions.json", "payments.json", "manifest.json"} {
		x, err := os.ReadFile(filepath.Join(a, name))
		require.NoError(t, err)
		y, err := os.ReadFile(filepath.Join(b, name))
		require.NoError(t, err)
		assert.Equal(t, x, y, name)
	}
}

func TestRun_InvalidConfigIsConfigurationError(t *testing.T) {
	cfg := config.Default()
	cfg.PopulationSize = 1
	err := run(context.Background(), cfg, t.TempDir(), false, nil)
	assert.ErrorIs(t, err, generator.ErrConfiguration)
}

func TestApplyOverrides_OnlyExplicitFlags(t *testing.T) {
	cases := map[string]struct {
		args       []string
		seed       int64
		population int
	}{
		"none":       {nil, 42, 500},
		"zero seed":  {[]string{"-seed", "0"}, 0, 500},
		"population": {[]string{"-population", "80"}, 42, 80},
		"both":       {[]string{"-seed", "9", "-population", "60"}, 9, 60},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			fs := flag.NewFlagSet("generate", flag.ContinueOnError)
			seed := fs.Int64("seed", 0, "")
			population := fs.Int("population", 0, "")
			require.NoError(t, fs.Parse(tc.args))

			cfg := config.Default()
			applyOverrides(fs, &cfg, *seed, *population)
			assert.Equal(t, tc.seed, cfg.Seed)
			assert.Equal(t, tc.population, cfg.PopulationSize)
		})
	}
}
