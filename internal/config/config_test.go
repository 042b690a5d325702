package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 500, cfg.PopulationSize)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 18, cfg.WindowMonths)
	assert.Equal(t, AnomalyCounts{Structuring: 3, Relationship: 4, Loan: 5}, cfg.AnomalyCounts)
	assert.Equal(t, 12, cfg.AnomalyCounts.Total())
	assert.Equal(t, time.Date(2023, time.December, 30, 0, 0, 0, 0, time.UTC), cfg.WindowStart())
}

func TestValidate_RejectsStructuralProblems(t *testing.T) {
	cases := map[string]func(*Config){
		"population":     func(c *Config) { c.PopulationSize = 1 },
		"negative count": func(c *Config) { c.AnomalyCounts.Relationship = -1 },
		"threshold":      func(c *Config) { c.ReportingThreshold = 0 },
		"sub-dollar":     func(c *Config) { c.ReportingThreshold = 0.01 },
		"fraction":       func(c *Config) { c.JointFraction = 1.5 },
		"banks":          func(c *Config) { c.BankCount = 2 },
		"weights length": func(c *Config) { c.AccountWeights = []int{1, 2} },
		"weights zero":   func(c *Config) { c.AccountWeights = []int{0, 0, 0, 0} },
		"window":         func(c *Config) { c.WindowMonths = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_NamesJSONField(t *testing.T) {
	cfg := Default()
	cfg.PopulationSize = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "population_size")
	assert.Contains(t, err.Error(), "min=2")
}

func TestValidate_ThresholdBelowOneDollarNamesField(t *testing.T) {
	cfg := Default()
	cfg.ReportingThreshold = 0.5
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reporting_threshold")
	assert.Contains(t, err.Error(), "gte=1")

	cfg.ReportingThreshold = 1
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnv_OverridesDefaults(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envMap(map[string]string{
		"FIXTURE_POPULATION_SIZE":      "120",
		"FIXTURE_SEED":                 "7",
		"FIXTURE_ANOMALY_RELATIONSHIP": " 2 ",
		"FIXTURE_REPORTING_THRESHOLD":  "5000.50",
		"FIXTURE_AS_OF":                "2024-01-31",
		"FIXTURE_CORRELATE_ANOMALIES":  "false",
		"FIXTURE_WINDOW_MONTHS":        "",
	}))
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.PopulationSize)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 2, cfg.AnomalyCounts.Relationship)
	assert.Equal(t, 5000.50, cfg.ReportingThreshold)
	assert.Equal(t, time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC), cfg.AsOf)
	assert.False(t, cfg.CorrelateAnomalies)
	assert.Equal(t, 18, cfg.WindowMonths, "blank values are ignored")
}

func TestApplyEnv_BadNumber_ReturnsError(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envMap(map[string]string{"FIXTURE_SEED": "forty-two"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FIXTURE_SEED")
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.json")
	body := `{
		"population_size": 80,
		"anomaly_counts": {"structuring": 1, "relationship": 1, "loan": 1},
		"as_of": "2024-12-31",
		"min_transactions": 300
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("FIXTURE_POPULATION_SIZE", "90")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 90, cfg.PopulationSize, "env wins over file")
	assert.Equal(t, AnomalyCounts{Structuring: 1, Relationship: 1, Loan: 1}, cfg.AnomalyCounts)
	assert.Equal(t, 300, cfg.MinTransactions)
	assert.Equal(t, time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC), cfg.AsOf)
	assert.Equal(t, int64(42), cfg.Seed, "unset fields keep their defaults")
}

func TestLoad_UnknownField_ReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"populaton_size": 10}`), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile_ReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
