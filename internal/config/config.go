// Package config holds the generation parameters of a fixture run.
//
// Sources, lowest precedence first: built-in defaults, an optional JSON file,
// then FIXTURE_* environment variables (a local .env file is loaded into the
// environment by the cmd entry points). Command-line flags are applied last
// by the caller.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the layout of as_of in files and environment variables.
const DateLayout = "2006-01-02"

// AnomalyCounts is how many instances of each pattern a run embeds.
type AnomalyCounts struct {
	Structuring  int `json:"structuring" validate:"min=0"`
	Relationship int `json:"relationship" validate:"min=0"`
	Loan         int `json:"loan" validate:"min=0"`
}

// Total returns the number of manifest entries a run will produce.
func (a AnomalyCounts) Total() int {
	return a.Structuring + a.Relationship + a.Loan
}

// Config is the full set of generation parameters.
type Config struct {
	PopulationSize     int           `json:"population_size" validate:"min=2"`
	Seed               int64         `json:"seed"`
	WindowMonths       int           `json:"window_months" validate:"min=1,max=120"`
	AnomalyCounts      AnomalyCounts `json:"anomaly_counts"`
	ReportingThreshold float64       `json:"reporting_threshold" validate:"gte=1"`
	AsOf               time.Time     `json:"as_of" validate:"required"`

	BankCount             int     `json:"bank_count" validate:"min=3,max=10"`
	HouseholdFraction     float64 `json:"household_fraction" validate:"min=0,max=1"`
	JointFraction         float64 `json:"joint_fraction" validate:"min=0,max=1"`
	BeneficiaryFraction   float64 `json:"beneficiary_fraction" validate:"min=0,max=1"`
	LoanFraction          float64 `json:"loan_fraction" validate:"min=0,max=1"`
	IrregularLoanFraction float64 `json:"irregular_loan_fraction" validate:"min=0,max=1"`
	MinTransactions       int     `json:"min_transactions" validate:"min=0"`
	ChatsPerCustomer      float64 `json:"chats_per_customer" validate:"min=0,max=50"`
	AccountWeights        []int   `json:"account_weights" validate:"len=4,dive,min=0"`

	// CorrelateAnomalies steers the first structuring and the loan
	// discrepancy entries onto the same customers.
	CorrelateAnomalies bool `json:"correlate_anomalies"`
}

// Default returns the configuration of the reference fixture.
func Default() Config {
	return Config{
		PopulationSize: 500,
		Seed:           42,
		WindowMonths:   18,
		AnomalyCounts: AnomalyCounts{
			Structuring:  3,
			Relationship: 4,
			Loan:         5,
		},
		ReportingThreshold:    10000,
		AsOf:                  time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC),
		BankCount:             5,
		HouseholdFraction:     0.10,
		JointFraction:         0.12,
		BeneficiaryFraction:   0.04,
		LoanFraction:          0.40,
		IrregularLoanFraction: 0.08,
		MinTransactions:       5000,
		ChatsPerCustomer:      2.0,
		AccountWeights:        []int{40, 35, 20, 5},
		CorrelateAnomalies:    true,
	}
}

// Load builds a Config from the defaults, the JSON file at path (skipped
// when path is empty) and the FIXTURE_* environment. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field constraint and returns one error naming all
// offending fields.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		if c.AsOf.Location() != time.UTC {
			return errors.New("as_of: must be UTC")
		}
		if weightSum(c.AccountWeights) == 0 {
			return errors.New("account_weights: at least one weight must be positive")
		}
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		msgs = append(msgs, msg)
	}
	return errors.New(strings.Join(msgs, "; "))
}

// WindowStart returns the first instant of the transaction history window.
func (c Config) WindowStart() time.Time {
	return c.AsOf.AddDate(0, -c.WindowMonths, 0)
}

// ─── Sources ──────────────────────────────────────────────────────────────────

// fileConfig mirrors Config with as_of as a plain date string.
type fileConfig struct {
	Config
	AsOf string `json:"as_of"`
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	fc := fileConfig{Config: *c, AsOf: c.AsOf.Format(DateLayout)}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	asOf, err := time.Parse(DateLayout, fc.AsOf)
	if err != nil {
		return fmt.Errorf("config %s: as_of: %w", path, err)
	}
	*c = fc.Config
	c.AsOf = asOf
	return nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	ints := []struct {
		key string
		dst *int
	}{
		{"FIXTURE_POPULATION_SIZE", &c.PopulationSize},
		{"FIXTURE_WINDOW_MONTHS", &c.WindowMonths},
		{"FIXTURE_ANOMALY_STRUCTURING", &c.AnomalyCounts.Structuring},
		{"FIXTURE_ANOMALY_RELATIONSHIP", &c.AnomalyCounts.Relationship},
		{"FIXTURE_ANOMALY_LOAN", &c.AnomalyCounts.Loan},
		{"FIXTURE_BANK_COUNT", &c.BankCount},
		{"FIXTURE_MIN_TRANSACTIONS", &c.MinTransactions},
	}
	for _, f := range ints {
		v, ok := lookupTrimmed(lookup, f.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = n
	}

	if v, ok := lookupTrimmed(lookup, "FIXTURE_SEED"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("FIXTURE_SEED: %w", err)
		}
		c.Seed = n
	}
	if v, ok := lookupTrimmed(lookup, "FIXTURE_REPORTING_THRESHOLD"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("FIXTURE_REPORTING_THRESHOLD: %w", err)
		}
		c.ReportingThreshold = f
	}
	if v, ok := lookupTrimmed(lookup, "FIXTURE_AS_OF"); ok {
		t, err := time.Parse(DateLayout, v)
		if err != nil {
			return fmt.Errorf("FIXTURE_AS_OF: %w", err)
		}
		c.AsOf = t
	}
	if v, ok := lookupTrimmed(lookup, "FIXTURE_CORRELATE_ANOMALIES"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("FIXTURE_CORRELATE_ANOMALIES: %w", err)
		}
		c.CorrelateAnomalies = b
	}
	return nil
}

func lookupTrimmed(lookup lookupFunc, key string) (string, bool) {
	v, ok := lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// ─── Validation ───────────────────────────────────────────────────────────────

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func weightSum(ws []int) int {
	total := 0
	for _, w := range ws {
		total += w
	}
	return total
}
