// Package generator synthesizes a relational banking fixture with a known set
// of planted anomalies.
//
// A run is a straight pipeline over one working population:
//
//	entities -> ownership -> transactions -> loans -> chats
//	         -> volume top-up -> anomaly injection -> finalize -> integrity
//
// Every component draws from its own stream derived from the configured
// seed, so two runs with the same Config produce identical datasets.
package generator

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"vaultline/bankfixture/internal/config"
	"vaultline/bankfixture/internal/domain"
)

// Assembler runs the generation pipeline for one Config.
type Assembler struct {
	cfg config.Config
	log *slog.Logger
}

// Option customizes an Assembler.
type Option func(*Assembler)

// WithLogger routes stage logs to l instead of slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Assembler) { a.log = l }
}

// New validates cfg and returns an Assembler for it.
func New(cfg config.Config, opts ...Option) (*Assembler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}
	a := &Assembler{cfg: cfg, log: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Config returns the configuration the assembler was built with.
func (a *Assembler) Config() config.Config { return a.cfg }

// Generate runs every stage and returns the verified dataset. Any error
// aborts the run; no partial dataset is returned. ctx is checked between
// stages.
func (a *Assembler) Generate(ctx context.Context) (*domain.Dataset, error) {
	started := time.Now()
	seed := a.cfg.Seed
	p := newPopulation(a.cfg)

	synth := newTransactionSynthesizer(seed, a.log)
	var tally Tally

	stages := []struct {
		name string
		run  func() error
	}{
		{"entities", func() error { return newEntityFactory(seed, a.log).build(p) }},
		{"relationships", func() error { return newRelationshipBuilder(seed, a.log).build(p) }},
		{"transactions", func() error { tally = synth.synthesize(p); return nil }},
		{"loans", func() error {
			posted, err := newLoanPaymentEngine(seed, a.log).build(p)
			tally = tally.Add(posted)
			return err
		}},
		{"chats", func() error { return newChatGenerator(seed, a.log).build(p) }},
		{"top-up", func() error {
			var err error
			tally, err = synth.topUp(p, tally)
			return err
		}},
		{"anomalies", func() error {
			injected, err := newInjector(seed, a.log).inject(p)
			tally = tally.Add(injected)
			return err
		}},
		{"finalize", func() error { finalize(p); return nil }},
		{"integrity", func() error { return verify(p) }},
	}

	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := st.run(); err != nil {
			a.log.Error("generation failed", "stage", st.name, "error", err)
			return nil, err
		}
	}

	ds := p.dataset()
	a.log.Info("dataset generated",
		"seed", seed,
		"transactions", tally.String(),
		"manifest_entries", len(ds.Manifest.Entries),
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return ds, nil
}

// ─── Finalize ─────────────────────────────────────────────────────────────────

// finalize derives every computed column from the rows as they now stand.
func finalize(p *population) {
	for i := range p.accounts {
		a := &p.accounts[i]
		bal := decimal.Zero
		for _, ti := range p.sortedLedger(a.ID) {
			tx := &p.transactions[ti]
			bal = bal.Add(tx.Amount)
			tx.BalanceAfter = bal
		}
		a.Balance = bal
	}

	for i := range p.loans {
		l := &p.loans[i]
		paid := decimal.Zero
		for _, pid := range p.paymentsByLoan[l.ID] {
			if pm := p.payment(pid); pm.Counted() {
				paid = paid.Add(pm.AmountPaid)
			}
		}
		l.RemainingBalance = decimal.Max(l.ScheduledTotal.Sub(paid), decimal.Zero)
	}

	sort.SliceStable(p.links, func(i, j int) bool { return p.links[i].AccountID < p.links[j].AccountID })
	p.reindexLinks()
}
