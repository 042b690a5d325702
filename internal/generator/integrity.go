package generator

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"vaultline/bankfixture/internal/domain"
)

const maxBurstSpan = 72 * time.Hour

// checker collects violations instead of stopping at the first one, so a
// failing run reports everything that is wrong with it.
type checker struct {
	p          *population
	violations []string
}

func (c *checker) failf(format string, args ...any) {
	c.violations = append(c.violations, fmt.Sprintf(format, args...))
}

func (c *checker) ref(id int64, n int) bool {
	return id >= 1 && id <= int64(n)
}

// verify is the final pass over a finished population. It returns an
// IntegrityError listing every violation found.
func verify(p *population) error {
	c := &checker{p: p}
	c.sequentialIDs()
	c.foreignKeys()
	var ownership *IntegrityError
	if err := checkOwnership(p); errors.As(err, &ownership) {
		c.violations = append(c.violations, ownership.Violations...)
	}
	c.ledger()
	c.schedules()
	c.manifest()

	if len(p.transactions) < p.cfg.MinTransactions {
		c.failf("dataset has %d transactions, fewer than the required %d", len(p.transactions), p.cfg.MinTransactions)
	}

	if len(c.violations) > 0 {
		return &IntegrityError{Violations: c.violations}
	}
	return nil
}

// ─── Keys ─────────────────────────────────────────────────────────────────────

func (c *checker) sequentialIDs() {
	p := c.p
	check := func(table string, n int, id func(int) int64) {
		for i := 0; i < n; i++ {
			if id(i) != int64(i+1) {
				c.failf("%s row %d has id %d", table, i, id(i))
				return
			}
		}
	}
	check("banks", len(p.banks), func(i int) int64 { return p.banks[i].ID })
	check("customers", len(p.customers), func(i int) int64 { return p.customers[i].ID })
	check("users", len(p.users), func(i int) int64 { return p.users[i].ID })
	check("accounts", len(p.accounts), func(i int) int64 { return p.accounts[i].ID })
	check("transactions", len(p.transactions), func(i int) int64 { return p.transactions[i].ID })
	check("loans", len(p.loans), func(i int) int64 { return p.loans[i].ID })
	check("payments", len(p.payments), func(i int) int64 { return p.payments[i].ID })
	check("chat_history", len(p.chats), func(i int) int64 { return p.chats[i].ID })
}

func (c *checker) foreignKeys() {
	p := c.p
	nc, nu, na, nt := len(p.customers), len(p.users), len(p.accounts), len(p.transactions)

	for i := range p.users {
		if u := &p.users[i]; !c.ref(u.CustomerID, nc) {
			c.failf("user %d references missing customer %d", u.ID, u.CustomerID)
		}
	}
	for i := range p.accounts {
		if a := &p.accounts[i]; !c.ref(a.BankID, len(p.banks)) {
			c.failf("account %d references missing bank %d", a.ID, a.BankID)
		}
	}
	for _, l := range p.links {
		if !c.ref(l.AccountID, na) || !c.ref(l.CustomerID, nc) {
			c.failf("account link %d/%d references a missing row", l.AccountID, l.CustomerID)
			continue
		}
		a := p.account(l.AccountID)
		if l.AddedDate.Before(a.OpenedDate) || l.AddedDate.After(p.asOf) {
			c.failf("account link %d/%d added %s outside the account lifetime", l.AccountID, l.CustomerID, l.AddedDate.Format(time.RFC3339))
		}
	}
	for i := range p.transactions {
		tx := &p.transactions[i]
		if !c.ref(tx.AccountID, na) {
			c.failf("transaction %d references missing account %d", tx.ID, tx.AccountID)
		}
		if tx.RelatedTransactionID != nil && !c.ref(*tx.RelatedTransactionID, nt) {
			c.failf("transaction %d references missing transaction %d", tx.ID, *tx.RelatedTransactionID)
		}
	}
	for i := range p.loans {
		l := &p.loans[i]
		if !c.ref(l.CustomerID, nc) || !c.ref(l.BankID, len(p.banks)) {
			c.failf("loan %d references a missing customer or bank", l.ID)
		}
	}
	for i := range p.payments {
		pm := &p.payments[i]
		if !c.ref(pm.LoanID, len(p.loans)) {
			c.failf("payment %d references missing loan %d", pm.ID, pm.LoanID)
		}
		if pm.TransactionID != nil && !c.ref(*pm.TransactionID, nt) {
			c.failf("payment %d references missing transaction %d", pm.ID, *pm.TransactionID)
		}
	}
	for i := range p.chats {
		ch := &p.chats[i]
		if !c.ref(ch.CustomerID, nc) {
			c.failf("chat %d references missing customer %d", ch.ID, ch.CustomerID)
		}
		if ch.UserID != nil && !c.ref(*ch.UserID, nu) {
			c.failf("chat %d references missing user %d", ch.ID, *ch.UserID)
		}
		if ch.SessionEnd.Before(ch.SessionStart) || ch.SessionStart.After(p.asOf) {
			c.failf("chat %d has an invalid session window", ch.ID)
		}
	}
}

// ─── Ledger ───────────────────────────────────────────────────────────────────

func (c *checker) ledger() {
	p := c.p
	for i := range p.transactions {
		tx := &p.transactions[i]
		if tx.Type.Credit() != tx.Amount.IsPositive() || tx.Amount.IsZero() {
			c.failf("transaction %d of type %s has amount %s", tx.ID, tx.Type, tx.Amount)
		}
		if tx.AccountID < 1 || tx.AccountID > int64(len(p.accounts)) {
			continue
		}
		a := p.account(tx.AccountID)
		if tx.Timestamp.Before(p.activeFrom(a)) || tx.Timestamp.After(a.ActiveUntil(p.asOf)) {
			c.failf("transaction %d at %s falls outside account %d's lifetime", tx.ID, tx.Timestamp.Format(time.RFC3339), a.ID)
		}
	}

	for i := range p.accounts {
		a := &p.accounts[i]
		sum := decimal.Zero
		floor := p.floor(a)
		for _, ti := range p.sortedLedger(a.ID) {
			tx := &p.transactions[ti]
			sum = sum.Add(tx.Amount)
			if !tx.BalanceAfter.Equal(sum) {
				c.failf("transaction %d balance_after %s, expected %s", tx.ID, tx.BalanceAfter, sum)
			}
			if sum.LessThan(floor) {
				c.failf("account %d drops to %s after transaction %d, below its floor %s", a.ID, sum, tx.ID, floor)
			}
		}
		if !a.Balance.Equal(sum) {
			c.failf("account %d balance %s does not reconcile to %s", a.ID, a.Balance, sum)
		}
	}
}

// ─── Lending ──────────────────────────────────────────────────────────────────

func (c *checker) schedules() {
	p := c.p
	for i := range p.loans {
		l := &p.loans[i]
		pids := p.paymentsByLoan[l.ID]
		if len(pids) != l.TermMonths {
			c.failf("loan %d has %d payments for a %d month term", l.ID, len(pids), l.TermMonths)
		}
		principal, total := decimal.Zero, decimal.Zero
		for k, pid := range pids {
			pm := p.payment(pid)
			if pm.Installment != k+1 {
				c.failf("loan %d payment %d has installment %d", l.ID, pm.ID, pm.Installment)
			}
			principal = principal.Add(pm.PrincipalDue)
			total = total.Add(pm.AmountDue)
			c.payment(pm)
		}
		if !principal.Equal(l.Principal) {
			c.failf("loan %d principal portions sum to %s, not %s", l.ID, principal, l.Principal)
		}
		if !total.Equal(l.ScheduledTotal) {
			c.failf("loan %d installments sum to %s, not scheduled total %s", l.ID, total, l.ScheduledTotal)
		}
		if l.Status == domain.LoanActive && l.DelinquencyDays > defaultAfterDays {
			c.failf("loan %d is active but %d days delinquent", l.ID, l.DelinquencyDays)
		}
	}
}

func (c *checker) payment(pm *domain.Payment) {
	p := c.p
	switch pm.Status {
	case domain.PaymentScheduled:
		if pm.DueDate.Before(p.asOf) || pm.PaidDate != nil {
			c.failf("payment %d is scheduled but due %s", pm.ID, pm.DueDate.Format(time.RFC3339))
		}
	case domain.PaymentMissed:
		if pm.PaidDate != nil {
			c.failf("missed payment %d carries a paid date", pm.ID)
		}
	case domain.PaymentReversed:
		if pm.PaidDate == nil || pm.ReversedAt == nil || !pm.ReversedAt.After(*pm.PaidDate) {
			c.failf("reversed payment %d must be reversed strictly after it was paid", pm.ID)
			return
		}
		if pm.TransactionID == nil {
			c.failf("reversed payment %d has no ledger debit", pm.ID)
			return
		}
		c.paymentDebit(pm)
	default:
		if pm.PaidDate == nil || pm.PaidDate.After(p.asOf) {
			c.failf("payment %d is %s without a paid date before the as-of date", pm.ID, pm.Status)
			return
		}
		if pm.TransactionID != nil {
			c.paymentDebit(pm)
		}
	}
}

// paymentDebit checks that a payment's ledger debit is a loan payment of the
// amount paid, posted when it was paid.
func (c *checker) paymentDebit(pm *domain.Payment) {
	p := c.p
	if *pm.TransactionID < 1 || *pm.TransactionID > int64(len(p.transactions)) {
		return
	}
	debit := p.tx(*pm.TransactionID)
	if debit.Type != domain.TxLoanPayment || !debit.Amount.Equal(pm.AmountPaid.Neg()) || !debit.Timestamp.Equal(*pm.PaidDate) {
		c.failf("%s payment %d does not match its ledger debit %d", pm.Status, pm.ID, debit.ID)
	}
}

// ─── Manifest ─────────────────────────────────────────────────────────────────

func (c *checker) manifest() {
	p := c.p
	for _, pt := range domain.Patterns {
		entries := p.manifest.ByPattern(pt)
		if want := patternCount(p.cfg, pt); len(entries) != want {
			c.failf("manifest has %d %s entries, configured %d", len(entries), pt, want)
		}
		for i, e := range entries {
			if e.Ordinal != i+1 {
				c.failf("%s entry %d has ordinal %d", pt, i+1, e.Ordinal)
			}
			if e.Signature == "" {
				c.failf("%s entry %d has no expected detection", pt, e.Ordinal)
			}
			if !c.entryRefs(e) {
				continue
			}
			switch pt {
			case domain.PatternStructuring:
				c.structuringEntry(e)
			case domain.PatternRelationship:
				c.relationshipEntry(e)
			case domain.PatternLoanDiscrepancy:
				c.discrepancyEntry(e)
			}
		}
	}

	seen := make(map[int64]bool)
	for _, e := range p.manifest.ByPattern(domain.PatternLoanDiscrepancy) {
		for _, id := range e.LoanIDs {
			if seen[id] {
				c.failf("loan %d appears in more than one loan discrepancy entry", id)
			}
			seen[id] = true
		}
	}
}

func (c *checker) entryRefs(e domain.ManifestEntry) bool {
	p := c.p
	ok := true
	check := func(table string, ids []int64, n int) {
		for _, id := range ids {
			if !c.ref(id, n) {
				c.failf("%s entry %d references missing %s row %d", e.Pattern, e.Ordinal, table, id)
				ok = false
			}
		}
	}
	check("customers", e.CustomerIDs, len(p.customers))
	check("accounts", e.AccountIDs, len(p.accounts))
	check("transactions", e.TransactionIDs, len(p.transactions))
	check("transactions", e.RelatedTransactionIDs, len(p.transactions))
	check("users", e.UserIDs, len(p.users))
	check("loans", e.LoanIDs, len(p.loans))
	check("payments", e.PaymentIDs, len(p.payments))
	check("chat_history", e.ChatIDs, len(p.chats))
	return ok
}

// structuringEntry checks that the burst really sums past the threshold
// while every withdrawal stays under it, inside a 72 hour span.
func (c *checker) structuringEntry(e domain.ManifestEntry) {
	p := c.p
	if len(e.TransactionIDs) < burstMin || len(e.AccountIDs) != 1 {
		c.failf("structuring entry %d has %d withdrawals", e.Ordinal, len(e.TransactionIDs))
		return
	}
	total := decimal.Zero
	var first, last time.Time
	for i, id := range e.TransactionIDs {
		tx := p.tx(id)
		if tx.Type != domain.TxWithdrawal || tx.AccountID != e.AccountIDs[0] {
			c.failf("structuring entry %d lists transaction %d which is not a withdrawal on account %d", e.Ordinal, id, e.AccountIDs[0])
		}
		if !tx.Amount.Abs().LessThan(p.threshold) {
			c.failf("structuring entry %d withdrawal %d reaches the threshold", e.Ordinal, id)
		}
		total = total.Add(tx.Amount.Abs())
		if i == 0 || tx.Timestamp.Before(first) {
			first = tx.Timestamp
		}
		if i == 0 || tx.Timestamp.After(last) {
			last = tx.Timestamp
		}
	}
	if !total.GreaterThan(p.threshold) {
		c.failf("structuring entry %d totals %s, not above the threshold", e.Ordinal, total)
	}
	if last.Sub(first) > maxBurstSpan {
		c.failf("structuring entry %d spans %s", e.Ordinal, last.Sub(first))
	}
}

func (c *checker) relationshipEntry(e domain.ManifestEntry) {
	if len(e.AccountIDs) == 0 || !isJoint(c.p, e.AccountIDs[0]) {
		c.failf("relationship entry %d does not name a joint account first", e.Ordinal)
	}
	if len(e.CustomerIDs) < 2 || len(e.TransactionIDs) == 0 {
		c.failf("relationship entry %d needs two customers and at least one transfer", e.Ordinal)
	}
}

func (c *checker) discrepancyEntry(e domain.ManifestEntry) {
	if len(e.LoanIDs) != 1 || len(e.PaymentIDs) != 1 {
		c.failf("loan discrepancy entry %d must name exactly one loan and one payment", e.Ordinal)
		return
	}
	pm := c.p.payment(e.PaymentIDs[0])
	if pm.LoanID != e.LoanIDs[0] || pm.Status != domain.PaymentReversed {
		c.failf("loan discrepancy entry %d payment %d is not a reversed payment of loan %d", e.Ordinal, pm.ID, e.LoanIDs[0])
	}
}
