package generator

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"vaultline/bankfixture/internal/domain"
)

// Tally counts the transactions produced by each stream of a run.
type Tally struct {
	Primary  int
	Internal int
	Filler   int
	Loan     int
	Injected int
}

// Total returns the number of transactions counted so far.
func (t Tally) Total() int {
	return t.Primary + t.Internal + t.Filler + t.Loan + t.Injected
}

// Add returns the sum of two tallies.
func (t Tally) Add(o Tally) Tally {
	return Tally{
		Primary:  t.Primary + o.Primary,
		Internal: t.Internal + o.Internal,
		Filler:   t.Filler + o.Filler,
		Loan:     t.Loan + o.Loan,
		Injected: t.Injected + o.Injected,
	}
}

// ─── Rates ────────────────────────────────────────────────────────────────────

const (
	daysPerMonth        = 30.44
	internalTransferPct = 0.6
	peerTransferPct     = 0.3
	maxPayeesPerOwner   = 3
	travelATMPct        = 0.1
	purchaseReversalPct = 0.012
)

// monthlyRate is the expected number of checking transactions per month.
var monthlyRate = map[domain.SpendingProfile]float64{
	domain.ProfileConservative: 1.0,
	domain.ProfileModerate:     2.0,
	domain.ProfileActive:       3.5,
}

var typeFactor = map[domain.AccountType]float64{
	domain.AccountChecking:    1.0,
	domain.AccountSavings:     0.2,
	domain.AccountMoneyMarket: 0.15,
	domain.AccountCD:          0,
}

// kindWeights are deposit, withdrawal, transfer, fee.
var (
	kinds       = []domain.TransactionType{domain.TxDeposit, domain.TxWithdrawal, domain.TxTransfer, domain.TxFee}
	kindWeights = map[domain.AccountType][]int{
		domain.AccountChecking:    {18, 62, 15, 5},
		domain.AccountSavings:     {55, 20, 25, 0},
		domain.AccountMoneyMarket: {50, 15, 35, 0},
		domain.AccountCD:          {100, 0, 0, 0},
	}
	openingMedian = map[domain.AccountType]float64{
		domain.AccountChecking:    2500,
		domain.AccountSavings:     8000,
		domain.AccountMoneyMarket: 15000,
		domain.AccountCD:          20000,
	}
)

// ─── Synthesizer ──────────────────────────────────────────────────────────────

type transactionSynthesizer struct {
	rng    *source
	filler *source
	log    *slog.Logger
	payees map[int64][]string
}

func newTransactionSynthesizer(seed int64, log *slog.Logger) *transactionSynthesizer {
	return &transactionSynthesizer{
		rng:    newSource(seed, streamTransactions),
		filler: newSource(seed, streamFiller),
		log:    log,
		payees: make(map[int64][]string),
	}
}

type event struct {
	at   time.Time
	kind domain.TransactionType
}

// synthesize generates every account's primary stream and returns the
// counts. It never tops up; that is the assembler's call.
func (s *transactionSynthesizer) synthesize(p *population) Tally {
	var t Tally
	for i := range p.accounts {
		t = t.Add(s.account(p, &p.accounts[i]))
	}
	s.log.Info("transactions synthesized",
		"primary", t.Primary,
		"internal_credits", t.Internal,
	)
	return t
}

func (s *transactionSynthesizer) account(p *population, a *domain.Account) Tally {
	var t Tally
	start, end := p.activeFrom(a), a.ActiveUntil(p.asOf)
	if end.Sub(start) < day {
		return t
	}
	owner := p.customer(p.creatorOf(a.ID))
	floor := p.floor(a)

	openingDesc := "DEPOSIT - Initial deposit"
	if a.OpenedDate.Before(p.windowStart) {
		openingDesc = "DEPOSIT - Balance brought forward"
	}
	opening := domain.Transaction{
		AccountID:    a.ID,
		Type:         domain.TxDeposit,
		Amount:       s.rng.money(openingMedian[a.Type], 0.9, 100, 250000),
		Timestamp:    start,
		Description:  openingDesc,
		Category:     "OPENING_BALANCE",
		MerchantName: "Branch Deposit",
	}
	p.addTransaction(opening)
	t.Primary++

	bal := opening.Amount
	lowest := bal
	for _, ev := range s.schedule(p, a, owner, start, end) {
		tx, target, ok := s.draft(p, a, owner, ev, bal)
		if !ok {
			continue
		}
		if tx.Amount.IsNegative() && bal.Add(tx.Amount).LessThan(floor) {
			avail := bal.Sub(floor).Mul(decimal.NewFromFloat(0.9)).Truncate(0)
			if ev.kind == domain.TxFee || avail.LessThan(decimal.NewFromInt(10)) {
				continue
			}
			tx.Amount = avail.Neg()
		}

		bal = bal.Add(tx.Amount)
		if bal.LessThan(lowest) {
			lowest = bal
		}
		debitID := p.addTransaction(tx)
		t.Primary++

		if target != nil {
			p.addTransaction(domain.Transaction{
				AccountID:            target.ID,
				Type:                 domain.TxDeposit,
				Amount:               tx.Amount.Neg(),
				Timestamp:            tx.Timestamp,
				Description:          "TRANSFER - From account " + maskNumber(a.AccountNumber),
				Category:             "TRANSFER",
				MerchantName:         tx.MerchantName,
				Counterparty:         a.AccountNumber,
				RelatedTransactionID: int64Ptr(debitID),
				IPAddress:            tx.IPAddress,
				DeviceID:             tx.DeviceID,
			})
			t.Internal++
		}
		if s.reverseLater(p, &tx, debitID, end) {
			t.Primary++
		}
	}
	p.minBalance[a.ID] = lowest
	return t
}

// schedule draws Poisson-many events per weekly bucket plus quarterly
// interest postings, ordered by time.
func (s *transactionSynthesizer) schedule(p *population, a *domain.Account, owner *domain.Customer, start, end time.Time) []event {
	var events []event
	rate := monthlyRate[owner.SpendingProfile] * typeFactor[a.Type] * 7 / daysPerMonth
	weights := kindWeights[a.Type]

	for week := start; week.Before(end); week = week.Add(7 * day) {
		n := s.rng.poisson(rate)
		for k := 0; k < n; k++ {
			at := s.rng.atBusinessHours(s.rng.timeBetween(week, minTime(week.Add(7*day), end)), 7, 22)
			events = append(events, event{at: clampInto(at, start, end), kind: kinds[s.rng.weighted(weights)]})
		}
	}

	if a.Type.InterestBearing() {
		for q := nextQuarterEnd(start); q.Before(end); q = nextQuarterEnd(q) {
			events = append(events, event{at: q, kind: domain.TxInterest})
		}
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].at.Before(events[j].at) })
	return events
}

// clampInto keeps t strictly after start and strictly before end.
func clampInto(t, start, end time.Time) time.Time {
	if !t.After(start) {
		t = start.Add(time.Minute)
	}
	if !t.Before(end) {
		t = end.Add(-time.Minute)
	}
	return t
}

// nextQuarterEnd returns the first quarterly posting time (23:00 on the last
// day of a quarter) strictly after t.
func nextQuarterEnd(t time.Time) time.Time {
	q := quarterEnd(t)
	if !q.After(t) {
		q = quarterEnd(t.Add(2 * time.Hour))
	}
	return q
}

func quarterEnd(t time.Time) time.Time {
	nextQuarter := time.Month((int(t.Month())-1)/3*3 + 4)
	firstOfNext := time.Date(t.Year(), nextQuarter, 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.Add(-time.Hour)
}

// draft builds the transaction for one event. target is set for transfers
// between the owner's own accounts, which also credit the other side.
func (s *transactionSynthesizer) draft(p *population, a *domain.Account, owner *domain.Customer, ev event, bal decimal.Decimal) (domain.Transaction, *domain.Account, bool) {
	tx := domain.Transaction{
		AccountID: a.ID,
		Type:      ev.kind,
		Timestamp: ev.at,
	}
	local := owner.City + ", " + owner.State
	device := ""
	if u, ok := p.loginUser(owner.ID); ok {
		device = u.DeviceFingerprint
	}

	switch ev.kind {
	case domain.TxDeposit:
		if a.Type == domain.AccountChecking {
			tx.Amount = s.rng.money(1800, 0.5, 100, 9000)
		} else {
			tx.Amount = s.rng.money(600, 0.8, 25, 15000)
		}
		tx.MerchantName = depositSources[s.rng.weighted(depositWeights)]
		tx.Category = "INCOME"
		tx.Description = "DEPOSIT - " + tx.MerchantName
		switch tx.MerchantName {
		case "Mobile Check Deposit":
			tx.IPAddress, tx.DeviceID = p.homeIP[owner.ID], device
		case "Branch Deposit":
			tx.Location = local
		case merchantIncomingWire:
			tx.Amount = s.rng.money(4200, 0.9, 500, 60000)
			tx.Counterparty = p.freshCounterparty(s.rng)
			tx.Location = pick(s.rng, bankCatalog).city
		}

	case domain.TxWithdrawal:
		switch {
		case a.Type != domain.AccountChecking:
			tx.Amount = s.rng.money(400, 0.7, 50, 5000).Truncate(0).Neg()
			tx.Category, tx.MerchantName = "FINANCIAL", "Branch Withdrawal"
			tx.Location = local
		case s.rng.chance(0.15):
			tx.Amount = decimal.NewFromInt(int64(s.rng.intBetween(1, 20) * 20)).Neg()
			tx.Category, tx.MerchantName = "FINANCIAL", "ATM Withdrawal"
			tx.Location = local
			if s.rng.chance(travelATMPct) {
				tx.Location = pick(s.rng, atmLocations)
			}
		default:
			tx.Category = pick(s.rng, spendingCategories)
			tx.MerchantName = pick(s.rng, merchantsByCategory[tx.Category])
			tx.Amount = s.rng.money(55, 0.9, 3, 2500).Neg()
			tx.Location = local
		}
		tx.Description = "WITHDRAWAL - " + tx.MerchantName

	case domain.TxTransfer:
		tx.Amount = s.rng.money(350, 0.8, 25, 6000).Neg()
		tx.Category = "TRANSFER"
		tx.IPAddress, tx.DeviceID = p.homeIP[owner.ID], device
		if target := s.ownOtherAccount(p, a, owner.ID, ev.at); target != nil && s.rng.chance(internalTransferPct) {
			tx.MerchantName = "Internal Transfer"
			tx.Counterparty = target.AccountNumber
			tx.Description = "TRANSFER - To account " + maskNumber(target.AccountNumber)
			return tx, target, true
		}
		if a.Type == domain.AccountChecking && s.rng.chance(peerTransferPct) {
			if peer := s.peerAccount(p, owner.ID, ev.at); peer != nil {
				tx.MerchantName = merchantPeerTransfer
				tx.Counterparty = peer.AccountNumber
				tx.Description = "TRANSFER - To account " + maskNumber(peer.AccountNumber)
				return tx, peer, true
			}
		}
		tx.MerchantName = "External Transfer"
		tx.Counterparty = s.payee(p, owner.ID)
		tx.Description = "TRANSFER - To " + tx.Counterparty

	case domain.TxFee:
		fee := pick(s.rng, feeKinds)
		tx.Amount = decimal.NewFromInt(fee.amount).Neg()
		tx.Category, tx.MerchantName = "FEE", "Bank Fee"
		tx.Description = "FEE - " + fee.description

	case domain.TxInterest:
		if !bal.IsPositive() {
			return tx, nil, false
		}
		tx.Amount = bal.Mul(a.InterestRate).Div(decimal.NewFromInt(4)).Round(2)
		if !tx.Amount.IsPositive() {
			return tx, nil, false
		}
		tx.Category, tx.MerchantName = "INTEREST", "Interest Payment"
		tx.Description = "INTEREST - Quarterly interest credit"
	}
	return tx, nil, true
}

// ownOtherAccount returns another open, non-CD account the customer holds as
// primary owner that can take a credit at t.
func (s *transactionSynthesizer) ownOtherAccount(p *population, from *domain.Account, customerID int64, at time.Time) *domain.Account {
	var cands []*domain.Account
	for _, id := range p.primaryAccounts(customerID) {
		b := p.account(id)
		if id == from.ID || b.Type == domain.AccountCD {
			continue
		}
		if at.After(p.activeFrom(b)) && at.Before(b.ActiveUntil(p.asOf)) {
			cands = append(cands, b)
		}
	}
	if len(cands) == 0 {
		return nil
	}
	return pick(s.rng, cands)
}

// peerAccount returns an open checking or savings account of another
// customer that can take a credit at t, or nil after a few misses.
func (s *transactionSynthesizer) peerAccount(p *population, customerID int64, at time.Time) *domain.Account {
	for try := 0; try < 4; try++ {
		other := int64(s.rng.Intn(len(p.customers)) + 1)
		if other == customerID {
			continue
		}
		for _, id := range p.primaryAccounts(other) {
			b := p.account(id)
			if b.Status == domain.AccountFrozen || (b.Type != domain.AccountChecking && b.Type != domain.AccountSavings) {
				continue
			}
			if at.After(p.activeFrom(b)) && at.Before(b.ActiveUntil(p.asOf)) {
				return b
			}
		}
	}
	return nil
}

// reverseLater occasionally credits a card purchase back a few days after it
// posted, as a merchant refund of a disputed charge.
func (s *transactionSynthesizer) reverseLater(p *population, tx *domain.Transaction, debitID int64, end time.Time) bool {
	if tx.Type != domain.TxWithdrawal || tx.Category == "FINANCIAL" || !s.rng.chance(purchaseReversalPct) {
		return false
	}
	at := s.rng.atBusinessHours(tx.Timestamp.AddDate(0, 0, s.rng.intBetween(1, 6)), 6, 22)
	if !at.After(tx.Timestamp) || !at.Before(end) {
		return false
	}
	p.addTransaction(domain.Transaction{
		AccountID:            tx.AccountID,
		Type:                 domain.TxReversal,
		Amount:               tx.Amount.Neg(),
		Timestamp:            at,
		Description:          "REVERSAL - " + tx.MerchantName,
		Category:             tx.Category,
		MerchantName:         tx.MerchantName,
		RelatedTransactionID: int64Ptr(debitID),
	})
	p.reversedDebits[debitID] = true
	return true
}

// payee returns one of the customer's regular external payees, creating up
// to maxPayeesPerOwner of them on first use.
func (s *transactionSynthesizer) payee(p *population, customerID int64) string {
	known := s.payees[customerID]
	if len(known) < maxPayeesPerOwner && (len(known) == 0 || s.rng.chance(0.2)) {
		ref := p.freshCounterparty(s.rng)
		s.payees[customerID] = append(known, ref)
		return ref
	}
	return pick(s.rng, known)
}

func maskNumber(n string) string {
	if len(n) <= 4 {
		return n
	}
	return "****" + n[len(n)-4:]
}

// ─── Top-up ───────────────────────────────────────────────────────────────────

// topUp adds small filler transactions on random active accounts until the
// run reaches MinTransactions. A filler debit is only placed where the
// account's lowest simulated balance can absorb it, so no running balance
// drops below its floor.
func (s *transactionSynthesizer) topUp(p *population, t Tally) (Tally, error) {
	need := p.cfg.MinTransactions - t.Total()
	if need <= 0 {
		s.log.Info("transaction volume sufficient, no top-up", "total", t.Total())
		return t, nil
	}

	var pool []*domain.Account
	for i := range p.accounts {
		a := &p.accounts[i]
		if a.Status == domain.AccountActive && a.Type != domain.AccountCD && len(p.ledger[a.ID]) > 0 &&
			a.ActiveUntil(p.asOf).Sub(p.activeFrom(a)) > 2*day {
			pool = append(pool, a)
		}
	}
	if len(pool) == 0 {
		return t, &GenerationExhaustedError{
			Requested: p.cfg.MinTransactions,
			Available: t.Total(),
			Reason:    "no active account can carry filler transactions",
		}
	}

	for k := 0; k < need; k++ {
		a := pick(s.filler, pool)
		start, end := p.activeFrom(a).Add(day), a.ActiveUntil(p.asOf)
		at := clampInto(s.filler.atBusinessHours(s.filler.timeBetween(start, end), 8, 21), start, end)
		tx := domain.Transaction{AccountID: a.ID, Timestamp: at}

		amt := s.filler.money(12, 0.6, 2, 40)
		if s.filler.chance(0.6) && !p.minBalance[a.ID].Sub(amt).LessThan(p.floor(a)) {
			tx.Type = domain.TxWithdrawal
			tx.Amount = amt.Neg()
			tx.Category = pick(s.filler, fillerCategories)
			tx.MerchantName = pick(s.filler, merchantsByCategory[tx.Category])
			tx.Location = p.customer(p.creatorOf(a.ID)).City + ", " + p.customer(p.creatorOf(a.ID)).State
			p.minBalance[a.ID] = p.minBalance[a.ID].Sub(amt)
			tx.Description = "WITHDRAWAL - " + tx.MerchantName
		} else {
			tx.Type = domain.TxDeposit
			tx.Amount = s.filler.money(6, 0.7, 1, 25)
			tx.Category = "REFUND"
			tx.MerchantName = pick(s.filler, []string{"Cashback Reward", "Merchant Refund"})
			tx.Description = "DEPOSIT - " + tx.MerchantName
		}
		p.addTransaction(tx)
		t.Filler++
	}

	s.log.Info("transaction volume topped up",
		"filler", t.Filler,
		"total", t.Total(),
		"target", p.cfg.MinTransactions,
	)
	return t, nil
}

func (t Tally) String() string {
	return fmt.Sprintf("primary=%d internal=%d filler=%d loan=%d injected=%d", t.Primary, t.Internal, t.Filler, t.Loan, t.Injected)
}
