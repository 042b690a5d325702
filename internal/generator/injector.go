package generator

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"vaultline/bankfixture/internal/config"
	"vaultline/bankfixture/internal/domain"
)

// plantFunc embeds count instances of one pattern and returns their manifest
// entries in ordinal order.
type plantFunc func(in *injector, p *population, count int) ([]domain.ManifestEntry, error)

// patternHandlers is the dispatch table over the closed set of patterns.
var patternHandlers = map[domain.PatternType]plantFunc{
	domain.PatternStructuring:     (*injector).plantStructuring,
	domain.PatternRelationship:    (*injector).plantRelationship,
	domain.PatternLoanDiscrepancy: (*injector).plantLoanDiscrepancy,
}

func patternCount(cfg config.Config, pt domain.PatternType) int {
	switch pt {
	case domain.PatternStructuring:
		return cfg.AnomalyCounts.Structuring
	case domain.PatternRelationship:
		return cfg.AnomalyCounts.Relationship
	case domain.PatternLoanDiscrepancy:
		return cfg.AnomalyCounts.Loan
	}
	return 0
}

// injector plants anomalies into an otherwise finished population. It only
// rewrites or appends rows; it never deletes.
type injector struct {
	rng   *source
	log   *slog.Logger
	chats *chatGenerator

	usedAccounts map[int64]bool
	flaggedBy    map[int64][]domain.PatternType
	injected     int
}

func newInjector(seed int64, log *slog.Logger) *injector {
	rng := newSource(seed, streamInjector)
	return &injector{
		rng:          rng,
		log:          log,
		chats:        &chatGenerator{rng: rng, log: log},
		usedAccounts: make(map[int64]bool),
		flaggedBy:    make(map[int64][]domain.PatternType),
	}
}

// inject runs every pattern in domain.Patterns order and returns the number
// of transactions it appended.
func (in *injector) inject(p *population) (Tally, error) {
	for _, pt := range domain.Patterns {
		count := patternCount(p.cfg, pt)
		if count == 0 {
			continue
		}
		plant, ok := patternHandlers[pt]
		if !ok {
			return Tally{}, fmt.Errorf("no handler for pattern %q", pt)
		}
		entries, err := plant(in, p, count)
		if err != nil {
			return Tally{}, err
		}
		for i := range entries {
			entries[i].Pattern = pt
			entries[i].Ordinal = i + 1
		}
		p.manifest.Entries = append(p.manifest.Entries, entries...)
		in.log.Info("pattern injected", "pattern", pt, "entries", len(entries))
	}
	return Tally{Injected: in.injected}, nil
}

// ─── Shared helpers ───────────────────────────────────────────────────────────

func (in *injector) flag(p *population, pt domain.PatternType, customerIDs ...int64) {
	for _, id := range customerIDs {
		p.flaggedCustomers[id] = true
		in.flaggedBy[id] = append(in.flaggedBy[id], pt)
	}
}

func (in *injector) record(p *population, tx domain.Transaction) int64 {
	in.injected++
	return p.addTransaction(tx)
}

// openAccount reports whether an account is active, never closed and has
// carried activity since at least minAge before the as-of date.
func openAccount(p *population, a *domain.Account, minAge time.Duration) bool {
	return a.Status == domain.AccountActive && a.ClosedDate == nil &&
		!p.activeFrom(a).After(p.asOf.Add(-minAge)) && len(p.ledger[a.ID]) > 0
}

// unrelatedCustomer finds a customer who shares no household, surname or
// zip code with any of owners, was a customer before at, holds an active
// login and has not been used by another anomaly.
func (in *injector) unrelatedCustomer(p *population, owners []int64, at time.Time, accept func(*domain.Customer) bool) (*domain.Customer, bool) {
	related := func(c *domain.Customer) bool {
		for _, id := range owners {
			o := p.customer(id)
			if o.ID == c.ID || o.HouseholdID == c.HouseholdID || o.LastName == c.LastName || o.ZipCode == c.ZipCode {
				return true
			}
		}
		return false
	}
	for _, i := range in.rng.Perm(len(p.customers)) {
		c := &p.customers[i]
		if p.flaggedCustomers[c.ID] || related(c) || !c.CustomerSince.Before(at) {
			continue
		}
		if _, ok := p.loginUser(c.ID); !ok {
			continue
		}
		if accept == nil || accept(c) {
			return c, true
		}
	}
	return nil, false
}

// split divides total into n whole-dollar amounts that sum to at most total.
func (in *injector) split(total decimal.Decimal, n int) []decimal.Decimal {
	share := total.Div(decimal.NewFromInt(int64(n)))
	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = share.Mul(decimal.NewFromFloat(in.rng.between(0.85, 1.0))).Truncate(0)
	}
	return out
}

func sumAmounts(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

func stamp(t time.Time) string {
	return t.Format("2006-01-02 15:04 MST")
}
