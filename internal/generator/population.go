package generator

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vaultline/bankfixture/internal/config"
	"vaultline/bankfixture/internal/domain"
)

// referenceNamespace scopes transaction reference numbers.
var referenceNamespace = uuid.MustParse("6f1c2a8e-4b7d-5e3f-9a10-2c4d6e8f0b1a")

// population is the working set of one run. It is owned by the Assembler and
// handed to each component in turn; nothing else mutates it.
//
// IDs are assigned sequentially from 1, so entity id n always lives at slice
// index n-1.
type population struct {
	cfg         config.Config
	asOf        time.Time
	windowStart time.Time
	threshold   decimal.Decimal

	banks        []domain.Bank
	customers    []domain.Customer
	users        []domain.User
	accounts     []domain.Account
	links        []domain.AccountCustomer
	transactions []domain.Transaction
	loans        []domain.Loan
	payments     []domain.Payment
	chats        []domain.ChatRecord
	manifest     domain.Manifest

	// Indexes kept current by the add* helpers.
	creator           []int64           // account index -> creating customer
	linksByAccount    map[int64][]int   // account id -> link indexes
	linksByCustomer   map[int64][]int   // customer id -> link indexes
	usersByCustomer   map[int64][]int64 // customer id -> user ids
	ledger            map[int64][]int   // account id -> transaction indexes
	paymentsByLoan    map[int64][]int64 // loan id -> payment ids
	loansByCustomer   map[int64][]int64 // customer id -> loan ids
	homeIP            map[int64]string  // customer id -> usual IP address
	counterparties    map[string]bool   // every counterparty reference issued
	minBalance        map[int64]decimal.Decimal
	reversedDebits    map[int64]bool // transaction ids already credited back
	reservedLoans     []int64 // held back for loan discrepancy entries
	irregularLoans    map[int64]bool
	flaggedCustomers  map[int64]bool
	flaggedAccounts   map[int64]bool
	notablePEP        int64 // 0 when the population is too small for one
	nextHousehold     int64
	legacyUserCount   int
	internalTransfers int
}

func newPopulation(cfg config.Config) *population {
	return &population{
		cfg:              cfg,
		asOf:             cfg.AsOf,
		windowStart:      cfg.WindowStart(),
		threshold:        decimal.NewFromFloat(cfg.ReportingThreshold).Round(2),
		linksByAccount:   make(map[int64][]int),
		linksByCustomer:  make(map[int64][]int),
		usersByCustomer:  make(map[int64][]int64),
		ledger:           make(map[int64][]int),
		paymentsByLoan:   make(map[int64][]int64),
		loansByCustomer:  make(map[int64][]int64),
		homeIP:           make(map[int64]string),
		counterparties:   make(map[string]bool),
		minBalance:       make(map[int64]decimal.Decimal),
		reversedDebits:   make(map[int64]bool),
		irregularLoans:   make(map[int64]bool),
		flaggedCustomers: make(map[int64]bool),
		flaggedAccounts:  make(map[int64]bool),
	}
}

// ─── Lookups ──────────────────────────────────────────────────────────────────

func (p *population) customer(id int64) *domain.Customer { return &p.customers[id-1] }
func (p *population) user(id int64) *domain.User         { return &p.users[id-1] }
func (p *population) account(id int64) *domain.Account   { return &p.accounts[id-1] }
func (p *population) loan(id int64) *domain.Loan         { return &p.loans[id-1] }
func (p *population) payment(id int64) *domain.Payment   { return &p.payments[id-1] }
func (p *population) tx(id int64) *domain.Transaction    { return &p.transactions[id-1] }

func (p *population) creatorOf(accountID int64) int64 { return p.creator[accountID-1] }

// owners returns the customers holding an account as primary or joint owner,
// primary first.
func (p *population) owners(accountID int64) []int64 {
	var primary, joint []int64
	for _, li := range p.linksByAccount[accountID] {
		l := p.links[li]
		switch l.Role {
		case domain.RolePrimary:
			primary = append(primary, l.CustomerID)
		case domain.RoleJoint:
			joint = append(joint, l.CustomerID)
		}
	}
	return append(primary, joint...)
}

func (p *population) linked(accountID, customerID int64) bool {
	for _, li := range p.linksByAccount[accountID] {
		if p.links[li].CustomerID == customerID {
			return true
		}
	}
	return false
}

// primaryAccounts returns the ids of accounts the customer holds as primary
// owner, in id order.
func (p *population) primaryAccounts(customerID int64) []int64 {
	var out []int64
	for _, li := range p.linksByCustomer[customerID] {
		if p.links[li].Role == domain.RolePrimary {
			out = append(out, p.links[li].AccountID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// loginUser returns the customer's active online-banking user.
func (p *population) loginUser(customerID int64) (*domain.User, bool) {
	for _, uid := range p.usersByCustomer[customerID] {
		if u := p.user(uid); u.IsActive {
			return u, true
		}
	}
	return nil, false
}

// activeFrom is the first instant an account can carry activity inside the
// history window.
func (p *population) activeFrom(a *domain.Account) time.Time {
	return maxTime(a.OpenedDate, p.windowStart)
}

func (p *population) floor(a *domain.Account) decimal.Decimal {
	return a.OverdraftLimit.Neg()
}

// ─── Mutation ─────────────────────────────────────────────────────────────────

func (p *population) addLink(l domain.AccountCustomer) {
	p.links = append(p.links, l)
	i := len(p.links) - 1
	p.linksByAccount[l.AccountID] = append(p.linksByAccount[l.AccountID], i)
	p.linksByCustomer[l.CustomerID] = append(p.linksByCustomer[l.CustomerID], i)
}

// reindexLinks rebuilds the link indexes after p.links is reordered.
func (p *population) reindexLinks() {
	p.linksByAccount = make(map[int64][]int, len(p.accounts))
	p.linksByCustomer = make(map[int64][]int, len(p.customers))
	for i, l := range p.links {
		p.linksByAccount[l.AccountID] = append(p.linksByAccount[l.AccountID], i)
		p.linksByCustomer[l.CustomerID] = append(p.linksByCustomer[l.CustomerID], i)
	}
}

func (p *population) addUser(u domain.User) int64 {
	u.ID = int64(len(p.users) + 1)
	p.users = append(p.users, u)
	p.usersByCustomer[u.CustomerID] = append(p.usersByCustomer[u.CustomerID], u.ID)
	return u.ID
}

// addTransaction assigns the next id and a reference number derived from
// the seed and that id.
func (p *population) addTransaction(t domain.Transaction) int64 {
	t.ID = int64(len(p.transactions) + 1)
	t.ReferenceNumber = uuid.NewSHA1(referenceNamespace, []byte(fmt.Sprintf("%d/%d", p.cfg.Seed, t.ID))).String()
	p.transactions = append(p.transactions, t)
	p.ledger[t.AccountID] = append(p.ledger[t.AccountID], len(p.transactions)-1)
	if t.Counterparty != "" {
		p.counterparties[t.Counterparty] = true
	}
	return t.ID
}

func (p *population) addLoan(l domain.Loan) int64 {
	l.ID = int64(len(p.loans) + 1)
	p.loans = append(p.loans, l)
	p.loansByCustomer[l.CustomerID] = append(p.loansByCustomer[l.CustomerID], l.ID)
	return l.ID
}

func (p *population) addPayment(pm domain.Payment) int64 {
	pm.ID = int64(len(p.payments) + 1)
	p.payments = append(p.payments, pm)
	p.paymentsByLoan[pm.LoanID] = append(p.paymentsByLoan[pm.LoanID], pm.ID)
	return pm.ID
}

func (p *population) addChat(c domain.ChatRecord) int64 {
	c.ID = int64(len(p.chats) + 1)
	p.chats = append(p.chats, c)
	return c.ID
}

// ─── Ledger views ─────────────────────────────────────────────────────────────

// sortedLedger returns the account's transaction indexes ordered by
// (timestamp, id).
func (p *population) sortedLedger(accountID int64) []int {
	idx := append([]int(nil), p.ledger[accountID]...)
	sort.Slice(idx, func(i, j int) bool {
		a, b := &p.transactions[idx[i]], &p.transactions[idx[j]]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.ID < b.ID
	})
	return idx
}

// headroom returns how much can be debited from the account at instant t
// without any later running balance dropping below the overdraft floor.
func (p *population) headroom(accountID int64, t time.Time) decimal.Decimal {
	bal := decimal.Zero
	var lowest *decimal.Decimal
	for _, i := range p.sortedLedger(accountID) {
		tx := &p.transactions[i]
		if !tx.Timestamp.Before(t) && lowest == nil {
			lowest = decimalPtr(bal)
		}
		bal = bal.Add(tx.Amount)
		if lowest != nil && bal.LessThan(*lowest) {
			lowest = decimalPtr(bal)
		}
	}
	if lowest == nil {
		lowest = decimalPtr(bal)
	}
	room := lowest.Sub(p.floor(p.account(accountID)))
	if room.IsNegative() {
		return decimal.Zero
	}
	return room
}

// freshCounterparty returns an external account reference never used before.
func (p *population) freshCounterparty(rng *source) string {
	for {
		ref := fmt.Sprintf("EXT-%010d", rng.Int63n(1e10))
		if !p.counterparties[ref] {
			p.counterparties[ref] = true
			return ref
		}
	}
}

// dataset copies the working set into its output shape.
func (p *population) dataset() *domain.Dataset {
	return &domain.Dataset{
		Seed:             p.cfg.Seed,
		AsOf:             p.asOf,
		WindowStart:      p.windowStart,
		Banks:            p.banks,
		Customers:        p.customers,
		Users:            p.users,
		Accounts:         p.accounts,
		AccountCustomers: p.links,
		Transactions:     p.transactions,
		Loans:            p.loans,
		Payments:         p.payments,
		ChatHistory:      p.chats,
		Manifest:         p.manifest,
	}
}
