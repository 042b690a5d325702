package generator

import (
	"errors"
	"fmt"
	"strings"

	"vaultline/bankfixture/internal/domain"
)

// Sentinels for errors.Is. Every error a run returns unwraps to one of them.
var (
	ErrConfiguration       = errors.New("invalid generation configuration")
	ErrGenerationExhausted = errors.New("not enough eligible entities")
	ErrIntegrity           = errors.New("dataset failed integrity check")
)

// ConfigurationError reports parameters that cannot describe any fixture.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrConfiguration, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// GenerationExhaustedError reports a quota the generated population cannot
// host, e.g. more relationship anomalies than there are joint accounts.
// Pattern is empty when the shortfall is in base transaction volume.
type GenerationExhaustedError struct {
	Pattern   domain.PatternType
	Requested int
	Available int
	Reason    string
}

func (e *GenerationExhaustedError) Error() string {
	what := string(e.Pattern)
	if what == "" {
		what = "transaction volume"
	}
	return fmt.Sprintf("%v: %s needs %d, found %d (%s)",
		ErrGenerationExhausted, what, e.Requested, e.Available, e.Reason)
}

func (e *GenerationExhaustedError) Unwrap() error { return ErrGenerationExhausted }

// IntegrityError lists every violation found by the final pass. It always
// indicates a generator bug.
type IntegrityError struct {
	Violations []string
}

const maxReportedViolations = 20

func (e *IntegrityError) Error() string {
	shown := e.Violations
	if len(shown) > maxReportedViolations {
		shown = shown[:maxReportedViolations]
	}
	msg := fmt.Sprintf("%v: %d violation(s): %s", ErrIntegrity, len(e.Violations), strings.Join(shown, "; "))
	if len(e.Violations) > len(shown) {
		msg += "; ..."
	}
	return msg
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrity }
