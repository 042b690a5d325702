package generator

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"vaultline/bankfixture/internal/domain"
)

const (
	secondLoanRate     = 0.15
	gracePeriodDays    = 5
	defaultAfterDays   = 60
	minSpareLoans      = 3
	irregularMinPaid   = 6
	discrepancyLeadIn  = 14 * day
	discrepancyRunOut  = 10 * day
	standardLateFee    = 25
	irregularLateFee   = 50
	collateralCoverage = 1.2
	duplicatePostPct   = 0.02
)

var (
	paymentMethods = []string{"auto_debit", "online", "check", "cash"}
	daysLateSteps  = []int{0, 3, 7, 15}
	daysLateWeight = []int{90, 5, 3, 2}
)

// installment is one row of an amortization schedule.
type installment struct {
	number    int
	due       time.Time
	amount    decimal.Decimal
	principal decimal.Decimal
	interest  decimal.Decimal
}

// amortize builds a level-payment schedule. Interest accrues monthly on the
// outstanding principal; the final installment absorbs rounding so the
// principal portions sum to exactly the loan principal.
func amortize(principal, annualRate decimal.Decimal, term int, origination time.Time) (decimal.Decimal, []installment) {
	r, _ := annualRate.Div(decimal.NewFromInt(12)).Float64()
	p, _ := principal.Float64()
	growth := math.Pow(1+r, float64(term))
	monthly := decimal.NewFromFloat(p * r * growth / (growth - 1)).Round(2)

	monthlyRate := annualRate.Div(decimal.NewFromInt(12))
	bal := principal
	sched := make([]installment, 0, term)
	for k := 1; k <= term; k++ {
		interest := bal.Mul(monthlyRate).Round(2)
		part := monthly.Sub(interest)
		if k == term || part.GreaterThan(bal) {
			part = bal
		}
		sched = append(sched, installment{
			number:    k,
			due:       origination.AddDate(0, k, 0),
			amount:    part.Add(interest),
			principal: part,
			interest:  interest,
		})
		bal = bal.Sub(part)
	}
	return monthly, sched
}

// ─── Engine ───────────────────────────────────────────────────────────────────

type paymentMode int

const (
	modeNormal paymentMode = iota
	modeClean
	modeIrregular
)

type loanPaymentEngine struct {
	rng    *source
	log    *slog.Logger
	posted int
}

func newLoanPaymentEngine(seed int64, log *slog.Logger) *loanPaymentEngine {
	return &loanPaymentEngine{rng: newSource(seed, streamLoans), log: log}
}

// build originates the loans, writes every payment row and posts the
// electronic payments to the borrowers' ledgers. The tally counts the posted
// rows.
func (e *loanPaymentEngine) build(p *population) (Tally, error) {
	want := int(math.Round(p.cfg.LoanFraction * float64(len(p.customers))))
	borrowers := e.rng.Perm(len(p.customers))[:want]
	sort.Ints(borrowers)

	schedules := make(map[int64][]installment)
	for _, ci := range borrowers {
		c := &p.customers[ci]
		n := 1
		if e.rng.chance(secondLoanRate) {
			n = 2
		}
		for k := 0; k < n; k++ {
			l, sched := e.originate(p, c)
			schedules[p.addLoan(l)] = sched
		}
	}

	if err := e.reserve(p, schedules); err != nil {
		return Tally{}, err
	}
	e.selectIrregular(p, schedules)

	defaulted := 0
	for i := range p.loans {
		l := &p.loans[i]
		mode := modeNormal
		switch {
		case p.irregularLoans[l.ID]:
			mode = modeIrregular
		case e.isReserved(p, l.ID):
			mode = modeClean
		}
		e.settle(p, l, schedules[l.ID], mode)
		if l.Status == domain.LoanDefaulted {
			defaulted++
		}
	}

	e.log.Info("loans originated",
		"loans", len(p.loans),
		"payments", len(p.payments),
		"reserved", len(p.reservedLoans),
		"irregular", len(p.irregularLoans),
		"defaulted", defaulted,
		"ledger_postings", e.posted,
	)
	return Tally{Loan: e.posted}, nil
}

func (e *loanPaymentEngine) isReserved(p *population, loanID int64) bool {
	for _, id := range p.reservedLoans {
		if id == loanID {
			return true
		}
	}
	return false
}

func (e *loanPaymentEngine) originate(p *population, c *domain.Customer) (domain.Loan, []installment) {
	var (
		types []domain.LoanType
		base  float64
	)
	switch {
	case c.CreditScore >= 750:
		types, base = []domain.LoanType{domain.LoanMortgage, domain.LoanAuto, domain.LoanPersonal}, 0.03
	case c.CreditScore >= 650:
		types, base = []domain.LoanType{domain.LoanAuto, domain.LoanPersonal}, 0.05
	default:
		types, base = []domain.LoanType{domain.LoanPersonal}, 0.08
	}
	if c.CreditScore >= 650 && p.asOf.Sub(c.DateOfBirth) < 35*365*day {
		types = append(types, domain.LoanStudent)
	}

	l := domain.Loan{
		CustomerID: c.ID,
		BankID:     int64(e.rng.Intn(len(p.banks)) + 1),
		Type:       pick(e.rng, types),
		Status:     domain.LoanActive,
	}

	var principal, spread float64
	switch l.Type {
	case domain.LoanMortgage:
		principal = e.rng.between(150000, 750000)
		l.TermMonths = pick(e.rng, []int{180, 360})
		spread = e.rng.between(0, 0.02)
		l.CollateralType = "REAL_ESTATE"
	case domain.LoanAuto:
		principal = e.rng.between(15000, 75000)
		l.TermMonths = pick(e.rng, []int{36, 48, 60, 72})
		spread = e.rng.between(0.01, 0.03)
		l.CollateralType = "VEHICLE"
	case domain.LoanStudent:
		principal = e.rng.between(10000, 90000)
		l.TermMonths = 120
		spread = e.rng.between(0, 0.02)
	default:
		principal = e.rng.between(5000, 50000)
		l.TermMonths = pick(e.rng, []int{12, 24, 36, 48, 60})
		spread = e.rng.between(0.02, 0.05)
	}
	l.Principal = decimal.NewFromFloat(principal).Round(2)
	l.InterestRate = decimal.NewFromFloat(base + spread).Round(4)
	if l.CollateralType != "" {
		l.CollateralValue = decimalPtr(l.Principal.Mul(decimal.NewFromFloat(collateralCoverage)).Round(2))
	}

	from := maxTime(c.CustomerSince, p.asOf.AddDate(-5, 0, 0))
	orig := truncateDay(e.rng.timeBetween(from, p.asOf.AddDate(0, -6, 0)))
	if orig.Day() > 28 {
		orig = orig.AddDate(0, 0, 28-orig.Day())
	}
	l.OriginationDate = orig

	monthly, sched := amortize(l.Principal, l.InterestRate, l.TermMonths, orig)
	l.MonthlyPayment = monthly
	l.MaturityDate = sched[len(sched)-1].due
	l.ScheduledTotal = decimal.Zero
	for _, in := range sched {
		l.ScheduledTotal = l.ScheduledTotal.Add(in.amount)
	}
	l.RemainingBalance = l.ScheduledTotal
	return l, sched
}

// ─── Pools ────────────────────────────────────────────────────────────────────

// reserve holds back loans for the loan discrepancy pattern: the requested
// count plus spares, each with an installment the history window can show
// being paid and then reversed, a borrower with an open deposit account, and
// installments still outstanding.
func (e *loanPaymentEngine) reserve(p *population, schedules map[int64][]installment) error {
	want := p.cfg.AnomalyCounts.Loan
	if want == 0 {
		return nil
	}

	var eligible []int64
	for i := range p.loans {
		l := &p.loans[i]
		sched := schedules[l.ID]
		if pastDue(p, sched) < len(sched) && hasPayableAccount(p, l.CustomerID) && len(discrepancyCandidates(p, sched)) > 0 {
			eligible = append(eligible, l.ID)
		}
	}
	if len(eligible) < want {
		return &GenerationExhaustedError{
			Pattern:   domain.PatternLoanDiscrepancy,
			Requested: want,
			Available: len(eligible),
			Reason:    "loans with an installment inside the history window",
		}
	}

	keep := min(len(eligible), want+max(minSpareLoans, want))
	for _, i := range e.rng.Perm(len(eligible))[:keep] {
		p.reservedLoans = append(p.reservedLoans, eligible[i])
	}
	return nil
}

// hasPayableAccount reports whether the customer holds an active, non-CD
// account as primary owner.
func hasPayableAccount(p *population, customerID int64) bool {
	for _, id := range p.primaryAccounts(customerID) {
		a := p.account(id)
		if a.Status == domain.AccountActive && a.Type != domain.AccountCD {
			return true
		}
	}
	return false
}

// discrepancyCandidates returns the installments whose payment and reversal
// both fit inside the history window.
func discrepancyCandidates(p *population, sched []installment) []installment {
	from, to := p.windowStart.Add(discrepancyLeadIn), p.asOf.Add(-discrepancyRunOut)
	var out []installment
	for _, in := range sched {
		if in.due.After(from) && in.due.Before(to) {
			out = append(out, in)
		}
	}
	return out
}

// selectIrregular picks, disjoint from the reserved pool, the loans that go
// bad. Borrowers who share a household are considered first.
func (e *loanPaymentEngine) selectIrregular(p *population, schedules map[int64][]installment) {
	want := int(math.Round(p.cfg.IrregularLoanFraction * float64(len(p.loans))))
	if want == 0 {
		return
	}

	householdSize := make(map[int64]int)
	for i := range p.customers {
		householdSize[p.customers[i].HouseholdID]++
	}

	var shared, rest []int64
	for _, i := range e.rng.Perm(len(p.loans)) {
		l := &p.loans[i]
		if e.isReserved(p, l.ID) || pastDue(p, schedules[l.ID]) < irregularMinPaid+2 || pastDue(p, schedules[l.ID]) == len(schedules[l.ID]) {
			continue
		}
		if householdSize[p.customer(l.CustomerID).HouseholdID] > 1 {
			shared = append(shared, l.ID)
		} else {
			rest = append(rest, l.ID)
		}
	}
	for _, id := range append(shared, rest...) {
		if len(p.irregularLoans) == want {
			break
		}
		p.irregularLoans[id] = true
	}
}

func pastDue(p *population, sched []installment) int {
	n := 0
	for _, in := range sched {
		if in.due.Before(p.asOf) {
			n++
		}
	}
	return n
}

// ─── Payments ─────────────────────────────────────────────────────────────────

// settle writes one payment row per installment and derives the loan's
// status and delinquency from what was paid.
func (e *loanPaymentEngine) settle(p *population, l *domain.Loan, sched []installment, mode paymentMode) {
	due := pastDue(p, sched)
	breakAt := due + 1
	if mode == modeIrregular {
		if e.rng.chance(0.5) {
			breakAt = due - e.rng.intBetween(0, 1)
		} else {
			breakAt = max(irregularMinPaid+1, int(float64(due)*e.rng.between(0.4, 0.8)))
		}
	}

	var firstShortfall *time.Time
	for _, in := range sched {
		pm := domain.Payment{
			LoanID:       l.ID,
			Installment:  in.number,
			DueDate:      in.due,
			AmountDue:    in.amount,
			PrincipalDue: in.principal,
			InterestDue:  in.interest,
			AmountPaid:   decimal.Zero,
			LateFee:      decimal.Zero,
		}

		switch {
		case !in.due.Before(p.asOf):
			pm.Status = domain.PaymentScheduled

		case in.number >= breakAt:
			if firstShortfall == nil {
				firstShortfall = timePtr(in.due)
			}
			if e.rng.chance(0.5) {
				pm.Status = domain.PaymentMissed
				break
			}
			paid := e.rng.atBusinessHours(in.due.AddDate(0, 0, e.rng.intBetween(15, 45)), 8, 18)
			if !paid.Before(p.asOf) {
				pm.Status = domain.PaymentMissed
				break
			}
			pm.PaidDate = timePtr(paid)
			pm.AmountPaid = in.amount.Mul(decimal.NewFromFloat(e.rng.between(0.5, 0.8))).Round(2)
			pm.LateFee = decimal.NewFromInt(irregularLateFee)
			pm.Method = pick(e.rng, paymentMethods)
			pm.Status = domain.PaymentLate

		default:
			late := 0
			if mode == modeNormal {
				late = daysLateSteps[e.rng.weighted(daysLateWeight)]
			}
			paid := e.rng.atBusinessHours(in.due.AddDate(0, 0, late), 6, 20)
			if !paid.Before(p.asOf) {
				late = 0
				paid = e.rng.atBusinessHours(in.due, 6, 12)
			}
			pm.PaidDate = timePtr(paid)
			pm.AmountPaid = in.amount
			pm.Method = pick(e.rng, paymentMethods)
			pm.Status = domain.PaymentOnTime
			if late > gracePeriodDays {
				pm.Status = domain.PaymentLate
				pm.LateFee = decimal.NewFromInt(standardLateFee)
			}
		}
		if pm.PaidDate != nil {
			e.post(p, l, &pm, mode)
		}
		p.addPayment(pm)
	}

	switch {
	case firstShortfall != nil:
		l.DelinquencyDays = daysBetween(*firstShortfall, p.asOf)
		if l.DelinquencyDays > defaultAfterDays {
			l.Status = domain.LoanDefaulted
		}
	case due == len(sched):
		l.Status = domain.LoanPaid
	}
}

// ─── Ledger postings ──────────────────────────────────────────────────────────

func loanRef(loanID int64) string { return fmt.Sprintf("LOAN-%06d", loanID) }

// loanDebit is the ledger row an electronic installment payment leaves on
// the borrower's account.
func loanDebit(accountID, loanID int64, installment int, amount decimal.Decimal, at time.Time) domain.Transaction {
	ref := loanRef(loanID)
	return domain.Transaction{
		AccountID:    accountID,
		Type:         domain.TxLoanPayment,
		Amount:       amount.Neg(),
		Timestamp:    at,
		Description:  fmt.Sprintf("LOAN PAYMENT - %s installment %d", ref, installment),
		Category:     categoryLoan,
		MerchantName: merchantLoanServicing,
		Counterparty: ref,
	}
}

// loanCredit returns a loan debit to the account.
func loanCredit(debit *domain.Transaction, debitID int64, installment int, at time.Time) domain.Transaction {
	return domain.Transaction{
		AccountID:            debit.AccountID,
		Type:                 domain.TxReversal,
		Amount:               debit.Amount.Neg(),
		Timestamp:            at,
		Description:          fmt.Sprintf("REVERSAL - %s installment %d", debit.Counterparty, installment),
		Category:             categoryLoan,
		MerchantName:         merchantLoanServicing,
		Counterparty:         debit.Counterparty,
		RelatedTransactionID: int64Ptr(debitID),
	}
}

// post writes the ledger debit for an auto-debit or online payment made
// inside the history window, when a borrower account can carry it. Checks
// and cash are paid at the branch and leave no debit. Now and then the
// servicer posts the same installment twice and credits the copy back a few
// days later.
func (e *loanPaymentEngine) post(p *population, l *domain.Loan, pm *domain.Payment, mode paymentMode) {
	if pm.Method != "auto_debit" && pm.Method != "online" {
		return
	}
	at := *pm.PaidDate
	a := debitAccount(p, l.CustomerID, at, at.Add(time.Minute), pm.AmountPaid)
	if a == nil {
		return
	}
	debit := loanDebit(a.ID, l.ID, pm.Installment, pm.AmountPaid, at)
	pm.TransactionID = int64Ptr(p.addTransaction(debit))
	p.minBalance[a.ID] = p.minBalance[a.ID].Sub(pm.AmountPaid)
	e.posted++

	if mode != modeNormal || !e.rng.chance(duplicatePostPct) {
		return
	}
	dupAt := at.Add(time.Duration(e.rng.intBetween(2, 5)) * time.Hour)
	backAt := e.rng.atBusinessHours(dupAt.AddDate(0, 0, e.rng.intBetween(1, 3)), 8, 17)
	if !backAt.After(dupAt) || !backAt.Before(a.ActiveUntil(p.asOf)) || p.headroom(a.ID, dupAt).LessThan(pm.AmountPaid) {
		return
	}
	dup := loanDebit(a.ID, l.ID, pm.Installment, pm.AmountPaid, dupAt)
	dupID := p.addTransaction(dup)
	p.addTransaction(loanCredit(&dup, dupID, pm.Installment, backAt))
	p.minBalance[a.ID] = p.minBalance[a.ID].Sub(pm.AmountPaid)
	e.posted += 2
}

// debitAccount picks the borrower's primary account that can carry a debit
// of need at from and stays open past to, checking accounts first.
func debitAccount(p *population, customerID int64, from, to time.Time, need decimal.Decimal) *domain.Account {
	var checking, other []*domain.Account
	for _, id := range p.primaryAccounts(customerID) {
		a := p.account(id)
		if a.Status == domain.AccountFrozen || a.Type == domain.AccountCD || len(p.ledger[a.ID]) == 0 {
			continue
		}
		if !p.activeFrom(a).Before(from) || !to.Before(a.ActiveUntil(p.asOf)) {
			continue
		}
		if p.headroom(a.ID, from).LessThan(need) {
			continue
		}
		if a.Type == domain.AccountChecking {
			checking = append(checking, a)
		} else {
			other = append(other, a)
		}
	}
	if all := append(checking, other...); len(all) > 0 {
		return all[0]
	}
	return nil
}
