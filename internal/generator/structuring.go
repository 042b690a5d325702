package generator

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"vaultline/bankfixture/internal/domain"
)

const (
	burstMin, burstMax       = 3, 5
	burstHoursMin            = 24
	burstHoursMax            = 72
	burstFloorPct            = 0.88
	burstCeilPct             = 0.99
	structuringLeadIn        = 14 * day
	structuringReusableLimit = 500
	structuringReuseRadius   = 30 * day
	lockedProfileFailures    = 35
)

// plantStructuring turns ordinary cash activity on checking accounts into
// bursts of near-threshold withdrawals, each funded by an incoming wire a few
// days earlier.
func (in *injector) plantStructuring(p *population, count int) ([]domain.ManifestEntry, error) {
	var eligible []int64
	for i := range p.accounts {
		a := &p.accounts[i]
		if a.Type == domain.AccountChecking && openAccount(p, a, 45*day) {
			eligible = append(eligible, a.ID)
		}
	}

	order := make([]int64, 0, len(eligible))
	for _, i := range in.rng.Perm(len(eligible)) {
		order = append(order, eligible[i])
	}
	if p.cfg.CorrelateAnomalies {
		order = preferBorrowers(p, order)
	}
	order = preferNotable(p, order)

	var entries []domain.ManifestEntry
	for _, id := range order {
		if len(entries) == count {
			break
		}
		owner := p.creatorOf(id)
		if p.flaggedCustomers[owner] {
			continue
		}
		entries = append(entries, in.structure(p, p.account(id)))
	}
	if len(entries) < count {
		return nil, &GenerationExhaustedError{
			Pattern:   domain.PatternStructuring,
			Requested: count,
			Available: len(entries),
			Reason:    "active checking accounts with distinct owners",
		}
	}
	return entries, nil
}

// preferBorrowers moves the first account owned by a holder of a reserved
// discrepancy loan to the front, so the two patterns share a customer.
func preferBorrowers(p *population, order []int64) []int64 {
	borrowers := make(map[int64]bool)
	for _, id := range p.reservedLoans {
		borrowers[p.loan(id).CustomerID] = true
	}
	for i, id := range order {
		if borrowers[p.creatorOf(id)] {
			out := append([]int64{id}, order[:i]...)
			return append(out, order[i+1:]...)
		}
	}
	return order
}

// preferNotable moves the notable PEP's first eligible account to the front,
// so the first structuring entry carries the full risk profile.
func preferNotable(p *population, order []int64) []int64 {
	for i, id := range order {
		if p.notablePEP != 0 && p.creatorOf(id) == p.notablePEP {
			out := append([]int64{id}, order[:i]...)
			return append(out, order[i+1:]...)
		}
	}
	return order
}

func (in *injector) structure(p *population, a *domain.Account) domain.ManifestEntry {
	owner := p.customer(p.creatorOf(a.ID))
	in.usedAccounts[a.ID] = true

	from := p.activeFrom(a).Add(structuringLeadIn)
	burstStart := in.rng.atBusinessHours(in.rng.timeBetween(from, p.asOf.Add(-4*day)), 9, 16)
	windowHours := in.rng.intBetween(burstHoursMin, burstHoursMax)
	k := in.rng.intBetween(burstMin, burstMax)

	offsets := []int{0}
	for len(offsets) < k {
		offsets = append(offsets, in.rng.Intn(windowHours*60))
	}
	sort.Ints(offsets)

	amounts := make([]decimal.Decimal, k)
	largest := decimal.Zero
	for j := range amounts {
		pct := decimal.NewFromFloat(in.rng.between(burstFloorPct, burstCeilPct))
		amounts[j] = p.threshold.Mul(pct).Truncate(2)
		if amounts[j].GreaterThan(largest) {
			largest = amounts[j]
		}
	}
	total := sumAmounts(amounts)

	// Small withdrawals near the burst are reshaped into it first.
	var reuse []int
	moved := decimal.Zero
	for _, i := range p.ledger[a.ID] {
		tx := &p.transactions[i]
		if len(reuse) == k-1 {
			break
		}
		if tx.Type != domain.TxWithdrawal || p.reversedDebits[tx.ID] || tx.Amount.Abs().GreaterThan(decimal.NewFromInt(structuringReusableLimit)) {
			continue
		}
		if d := tx.Timestamp.Sub(burstStart); d < -structuringReuseRadius || d > structuringReuseRadius {
			continue
		}
		reuse = append(reuse, i)
		moved = moved.Add(tx.Amount.Abs())
	}

	fundAt := in.rng.atBusinessHours(burstStart.AddDate(0, 0, -in.rng.intBetween(1, 5)), 10, 15)
	funding := total.Mul(decimal.NewFromFloat(in.rng.between(1.03, 1.10))).Add(moved).Round(2)
	wireFrom := in.rng.Intn(len(bankCatalog))
	fundID := in.record(p, domain.Transaction{
		AccountID:    a.ID,
		Type:         domain.TxDeposit,
		Amount:       funding,
		Timestamp:    fundAt,
		Description:  "DEPOSIT - " + merchantIncomingWire,
		Category:     "INCOME",
		MerchantName: merchantIncomingWire,
		Counterparty: p.freshCounterparty(in.rng),
		Location:     bankCatalog[wireFrom].city,
	})

	locations := in.rng.Perm(len(atmLocations))
	ids := make([]int64, 0, k)
	var first, last time.Time
	for j := 0; j < k; j++ {
		at := burstStart.Add(time.Duration(offsets[j]) * time.Minute)
		if j == 0 {
			first = at
		}
		last = at

		draft := domain.Transaction{
			AccountID:    a.ID,
			Type:         domain.TxWithdrawal,
			Amount:       amounts[j].Neg(),
			Timestamp:    at,
			Description:  "WITHDRAWAL - ATM Withdrawal",
			Category:     "FINANCIAL",
			MerchantName: "ATM Withdrawal",
			Location:     atmLocations[locations[j%len(locations)]],
		}
		if j < len(reuse) {
			tx := &p.transactions[reuse[j]]
			draft.ID, draft.ReferenceNumber = tx.ID, tx.ReferenceNumber
			*tx = draft
			ids = append(ids, tx.ID)
			continue
		}
		ids = append(ids, in.record(p, draft))
	}

	owner.RiskRating = owner.RiskRating.Elevate()
	in.flag(p, domain.PatternStructuring, owner.ID)

	entry := domain.ManifestEntry{
		CustomerIDs:           []int64{owner.ID},
		AccountIDs:            []int64{a.ID},
		TransactionIDs:        ids,
		RelatedTransactionIDs: []int64{fundID},
		WindowStart:           timePtr(first),
		WindowEnd:             timePtr(last),
		TotalAmount:           decimalPtr(total),
		Signature: fmt.Sprintf(
			"%d ATM cash withdrawals on account %s between %s and %s total $%s, above the $%s reporting threshold, "+
				"while each stays below it (largest $%s) and they span %d locations; "+
				"a $%s incoming wire credited the account on %s.",
			k, a.AccountNumber, stamp(first), stamp(last), total.StringFixed(2), p.threshold.StringFixed(2),
			largest.StringFixed(2), min(k, len(atmLocations)), funding.StringFixed(2), stamp(fundAt),
		),
	}
	if owner.ID == p.notablePEP {
		in.plantProfile(p, a, owner, first, &entry)
	}
	return entry
}

// plantProfile completes the notable PEP's picture: a wire far beyond the
// declared income parked on the account ahead of the burst, and the online
// login locked after a run of failed attempts.
func (in *injector) plantProfile(p *population, a *domain.Account, owner *domain.Customer, burstStart time.Time, entry *domain.ManifestEntry) {
	lo, hi := p.activeFrom(a).Add(day), burstStart.Add(-7*day)
	at := clampInto(in.rng.atBusinessHours(burstStart.AddDate(0, 0, -in.rng.intBetween(20, 60)), 10, 15), lo, hi)
	amount := owner.AnnualIncome.Mul(decimal.NewFromFloat(in.rng.between(40, 70))).Round(0)
	wireID := in.record(p, domain.Transaction{
		AccountID:    a.ID,
		Type:         domain.TxDeposit,
		Amount:       amount,
		Timestamp:    at,
		Description:  "DEPOSIT - " + merchantIncomingWire,
		Category:     "INCOME",
		MerchantName: merchantIncomingWire,
		Counterparty: p.freshCounterparty(in.rng),
		Location:     pick(in.rng, bankCatalog).city,
	})
	entry.RelatedTransactionIDs = append(entry.RelatedTransactionIDs, wireID)
	entry.Signature += fmt.Sprintf(
		" The owner is a politically exposed, %s-risk customer declaring $%s a year, and a $%s wire on %s "+
			"left the account holding many times that income.",
		owner.RiskRating, owner.AnnualIncome.StringFixed(0), amount.StringFixed(2), stamp(at),
	)

	u, ok := p.loginUser(owner.ID)
	if !ok {
		return
	}
	u.IsActive = false
	u.FailedLoginAttempts = in.rng.intBetween(lockedProfileFailures, 60)
	entry.UserIDs = append(entry.UserIDs, u.ID)
	entry.Signature += fmt.Sprintf(" User %s was deactivated after %d failed logins.", u.Username, u.FailedLoginAttempts)
}
