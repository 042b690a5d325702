package generator

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"vaultline/bankfixture/internal/config"
	"vaultline/bankfixture/internal/domain"
)

const (
	nsfFee              = 35
	nsfCushion          = 50
	recentPaymentWindow = 4
)

// plantLoanDiscrepancy takes loans held back with a clean on-time history
// and turns one paid installment on each into a payment that bounced: the
// debit left the borrower's account, came back days later as a reversal,
// and an NSF fee followed.
func (in *injector) plantLoanDiscrepancy(p *population, count int) ([]domain.ManifestEntry, error) {
	pool := append([]int64(nil), p.reservedLoans...)
	if p.cfg.CorrelateAnomalies {
		sort.SliceStable(pool, func(i, j int) bool {
			return p.flaggedCustomers[p.loan(pool[i]).CustomerID] && !p.flaggedCustomers[p.loan(pool[j]).CustomerID]
		})
	}

	var entries []domain.ManifestEntry
	for _, id := range pool {
		if len(entries) == count {
			break
		}
		if entry, ok := in.reverse(p, p.loan(id)); ok {
			entries = append(entries, entry)
		}
	}
	if len(entries) < count {
		return nil, &GenerationExhaustedError{
			Pattern:   domain.PatternLoanDiscrepancy,
			Requested: count,
			Available: len(entries),
			Reason:    "reserved loans with an on-time payment the borrower's account can cover",
		}
	}
	return entries, nil
}

// payingAccount returns the account the candidate payment was, or can be,
// debited from so that its reversal and NSF fee land while the account is
// still open.
func (in *injector) payingAccount(p *population, l *domain.Loan, c *domain.Payment, reversedAt time.Time) *domain.Account {
	feeAt := reversedAt.Add(time.Minute)
	if !feeAt.Before(p.asOf) {
		return nil
	}
	if c.TransactionID != nil {
		a := p.account(p.tx(*c.TransactionID).AccountID)
		if a.Status != domain.AccountActive || !feeAt.Before(a.ActiveUntil(p.asOf)) || !c.AmountPaid.GreaterThan(decimal.NewFromInt(nsfFee)) {
			return nil
		}
		return a
	}
	need := c.AmountPaid.Add(decimal.NewFromInt(nsfFee + nsfCushion))
	a := debitAccount(p, l.CustomerID, *c.PaidDate, feeAt, need)
	if a == nil || a.Status != domain.AccountActive {
		return nil
	}
	return a
}

// delinquency applies the reversal to the loan's standing. A later counted
// payment made after the reversal cures it and the loan keeps its standing.
// Otherwise the loan is delinquent from the reversed installment's due date,
// and defaults past the same threshold settle uses.
func (in *injector) delinquency(p *population, l *domain.Loan, reversed *domain.Payment) string {
	for _, pid := range p.paymentsByLoan[l.ID] {
		pm := p.payment(pid)
		if pm.Installment > reversed.Installment && pm.Counted() && pm.PaidDate != nil && pm.PaidDate.After(*reversed.ReversedAt) {
			return fmt.Sprintf("installment %d paid on %s brought the loan current", pm.Installment, stamp(*pm.PaidDate))
		}
	}
	l.DelinquencyDays = max(l.DelinquencyDays, daysBetween(truncateDay(reversed.DueDate), truncateDay(p.asOf)))
	if l.DelinquencyDays > defaultAfterDays && l.Status == domain.LoanActive {
		l.Status = domain.LoanDefaulted
	}
	return fmt.Sprintf("loan delinquency is %d days and its status is %s", l.DelinquencyDays, l.Status)
}

// reversalCandidates returns the loan's on-time payments whose reversal fits
// inside the history window, most recent first.
func reversalCandidates(p *population, loanID int64) []*domain.Payment {
	from, to := p.windowStart.Add(discrepancyLeadIn), p.asOf.Add(-discrepancyRunOut)
	var out []*domain.Payment
	for _, pid := range p.paymentsByLoan[loanID] {
		pm := p.payment(pid)
		if pm.Status == domain.PaymentOnTime && pm.PaidDate != nil && pm.DueDate.After(from) && pm.DueDate.Before(to) {
			out = append(out, pm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.After(out[j].DueDate) })
	return out
}

func (in *injector) reverse(p *population, l *domain.Loan) (domain.ManifestEntry, bool) {
	candidates := reversalCandidates(p, l.ID)
	if len(candidates) == 0 {
		return domain.ManifestEntry{}, false
	}
	recent := candidates[:min(recentPaymentWindow, len(candidates))]

	var (
		pm         *domain.Payment
		from       *domain.Account
		lag        int
		reversedAt time.Time
	)
	for _, i := range in.rng.Perm(len(recent)) {
		c := recent[i]
		lag = in.rng.intBetween(2, 5)
		reversedAt = c.PaidDate.AddDate(0, 0, lag).Add(time.Duration(in.rng.intBetween(1, 6)) * time.Hour)
		if a := in.payingAccount(p, l, c, reversedAt); a != nil {
			pm, from = c, a
			break
		}
	}
	if pm == nil {
		return domain.ManifestEntry{}, false
	}

	paidAt := *pm.PaidDate
	var debitID int64
	if pm.TransactionID != nil {
		debitID = *pm.TransactionID
	} else {
		debitID = in.record(p, loanDebit(from.ID, l.ID, pm.Installment, pm.AmountPaid, paidAt))
	}
	reversalID := in.record(p, loanCredit(p.tx(debitID), debitID, pm.Installment, reversedAt))
	feeID := in.record(p, domain.Transaction{
		AccountID:    from.ID,
		Type:         domain.TxFee,
		Amount:       decimal.NewFromInt(-nsfFee),
		Timestamp:    reversedAt.Add(time.Minute),
		Description:  "FEE - " + feeReturnedPayment,
		Category:     "FEE",
		MerchantName: "Bank Fee",
	})

	pm.Status = domain.PaymentReversed
	pm.ReversedAt = timePtr(reversedAt)
	pm.ReversalReason = fmt.Sprintf("Insufficient funds - payment reversed after %d days", lag)
	pm.TransactionID = int64Ptr(debitID)
	pm.Method = "auto_debit"
	standing := in.delinquency(p, l, pm)

	signature := fmt.Sprintf(
		"Installment %d of loan %d (due %s) shows as paid on %s by auto debit from account %s, "+
			"but the $%s debit was reversed on %s and a $%d NSF fee was charged, so the payment history "+
			"and the ledger disagree; %s.",
		pm.Installment, l.ID, pm.DueDate.Format(config.DateLayout), stamp(paidAt), from.AccountNumber,
		pm.AmountPaid.StringFixed(2), stamp(reversedAt), nsfFee, standing,
	)
	if pts := in.flaggedBy[l.CustomerID]; len(pts) > 0 {
		signature += fmt.Sprintf(" The borrower is also named in the %s entries.", pts[0])
	}
	in.flag(p, domain.PatternLoanDiscrepancy, l.CustomerID)

	return domain.ManifestEntry{
		CustomerIDs:    []int64{l.CustomerID},
		AccountIDs:     []int64{from.ID},
		TransactionIDs: []int64{debitID, reversalID, feeID},
		LoanIDs:        []int64{l.ID},
		PaymentIDs:     []int64{pm.ID},
		WindowStart:    timePtr(paidAt),
		WindowEnd:      timePtr(reversedAt),
		TotalAmount:    decimalPtr(pm.AmountPaid),
		Signature:      signature,
	}, true
}
