// Package store holds a generated dataset in memory and answers the read
// queries the HTTP layer needs.
//
// A dataset is immutable once generated, so the store is loaded in one call
// and never written row by row. Secondary indexes (by account, customer and
// loan) are built at load time so every lookup is a slice walk over a
// handful of rows rather than a scan of the full table.
package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"vaultline/bankfixture/internal/domain"
)

// ErrNotLoaded is returned when no dataset has been loaded yet.
var ErrNotLoaded = errors.New("no dataset loaded")

// Store is a thread-safe, read-mostly index over one Dataset.
type Store struct {
	mu sync.RWMutex

	ds     *domain.Dataset
	loaded bool

	// Secondary indexes: parent id → row indexes into the dataset slices.
	txByAccount     map[int64][]int
	linksByAccount  map[int64][]int
	linksByCustomer map[int64][]int
	usersByCustomer map[int64][]int
	loansByCustomer map[int64][]int
	paymentsByLoan  map[int64][]int
	chatsByCustomer map[int64][]int
}

// New creates an empty Store. Queries return nothing until Load is called.
func New() *Store {
	return &Store{ds: &domain.Dataset{}}
}

// Load replaces the current dataset and rebuilds every index.
func (s *Store) Load(ds *domain.Dataset) {
	txByAccount := make(map[int64][]int, len(ds.Accounts))
	for i := range ds.Transactions {
		id := ds.Transactions[i].AccountID
		txByAccount[id] = append(txByAccount[id], i)
	}
	// Ledger order: timestamp, then id.
	for _, idx := range txByAccount {
		sort.Slice(idx, func(a, b int) bool {
			ta, tb := &ds.Transactions[idx[a]], &ds.Transactions[idx[b]]
			if !ta.Timestamp.Equal(tb.Timestamp) {
				return ta.Timestamp.Before(tb.Timestamp)
			}
			return ta.ID < tb.ID
		})
	}

	linksByAccount := make(map[int64][]int)
	linksByCustomer := make(map[int64][]int)
	for i, l := range ds.AccountCustomers {
		linksByAccount[l.AccountID] = append(linksByAccount[l.AccountID], i)
		linksByCustomer[l.CustomerID] = append(linksByCustomer[l.CustomerID], i)
	}

	usersByCustomer := make(map[int64][]int)
	for i := range ds.Users {
		id := ds.Users[i].CustomerID
		usersByCustomer[id] = append(usersByCustomer[id], i)
	}
	loansByCustomer := make(map[int64][]int)
	for i := range ds.Loans {
		id := ds.Loans[i].CustomerID
		loansByCustomer[id] = append(loansByCustomer[id], i)
	}
	paymentsByLoan := make(map[int64][]int)
	for i := range ds.Payments {
		id := ds.Payments[i].LoanID
		paymentsByLoan[id] = append(paymentsByLoan[id], i)
	}
	chatsByCustomer := make(map[int64][]int)
	for i := range ds.ChatHistory {
		id := ds.ChatHistory[i].CustomerID
		chatsByCustomer[id] = append(chatsByCustomer[id], i)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ds = ds
	s.loaded = true
	s.txByAccount = txByAccount
	s.linksByAccount = linksByAccount
	s.linksByCustomer = linksByCustomer
	s.usersByCustomer = usersByCustomer
	s.loansByCustomer = loansByCustomer
	s.paymentsByLoan = paymentsByLoan
	s.chatsByCustomer = chatsByCustomer
}

// ─── Entities ─────────────────────────────────────────────────────────────────

// Customer retrieves a customer by id.
func (s *Store) Customer(id int64) (domain.Customer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 1 || id > int64(len(s.ds.Customers)) {
		return domain.Customer{}, false
	}
	return s.ds.Customers[id-1], true
}

// Account retrieves an account by id.
func (s *Store) Account(id int64) (domain.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 1 || id > int64(len(s.ds.Accounts)) {
		return domain.Account{}, false
	}
	return s.ds.Accounts[id-1], true
}

// Loan retrieves a loan by id.
func (s *Store) Loan(id int64) (domain.Loan, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 1 || id > int64(len(s.ds.Loans)) {
		return domain.Loan{}, false
	}
	return s.ds.Loans[id-1], true
}

// ─── Relationships ────────────────────────────────────────────────────────────

// OwnersOf returns every party linked to the account, in link order.
func (s *Store) OwnersOf(accountID int64) []domain.AccountCustomer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AccountCustomer, 0, len(s.linksByAccount[accountID]))
	for _, i := range s.linksByAccount[accountID] {
		out = append(out, s.ds.AccountCustomers[i])
	}
	return out
}

// AccountsOf returns the accounts the customer is linked to in any role,
// ordered by account id.
func (s *Store) AccountsOf(customerID int64) []domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Account
	for _, i := range s.linksByCustomer[customerID] {
		out = append(out, s.ds.Accounts[s.ds.AccountCustomers[i].AccountID-1])
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

// UsersOf returns the customer's online-banking users.
func (s *Store) UsersOf(customerID int64) []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.usersByCustomer[customerID], s.ds.Users)
}

// LoansOf returns the customer's loans.
func (s *Store) LoansOf(customerID int64) []domain.Loan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.loansByCustomer[customerID], s.ds.Loans)
}

// PaymentsOf returns the loan's payments in installment order.
func (s *Store) PaymentsOf(loanID int64) []domain.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.paymentsByLoan[loanID], s.ds.Payments)
}

// ChatsOf returns the customer's chat sessions in id order.
func (s *Store) ChatsOf(customerID int64) []domain.ChatRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.chatsByCustomer[customerID], s.ds.ChatHistory)
}

// ─── Transactions ─────────────────────────────────────────────────────────────

// TxFilter narrows an account's ledger. Zero fields match everything; From
// is inclusive and To exclusive.
type TxFilter struct {
	From time.Time
	To   time.Time
	Type domain.TransactionType
}

func (f TxFilter) match(tx *domain.Transaction) bool {
	if !f.From.IsZero() && tx.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !tx.Timestamp.Before(f.To) {
		return false
	}
	return f.Type == "" || tx.Type == f.Type
}

// TransactionsByAccount returns the account's ledger in posting order,
// keeping only rows that match f.
func (s *Store) TransactionsByAccount(accountID int64, f TxFilter) []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Transaction
	for _, i := range s.txByAccount[accountID] {
		if tx := &s.ds.Transactions[i]; f.match(tx) {
			out = append(out, *tx)
		}
	}
	return out
}

// ─── Dataset level ────────────────────────────────────────────────────────────

// Summary describes the loaded dataset without its rows.
type Summary struct {
	Seed        int64                      `json:"seed"`
	AsOf        time.Time                  `json:"as_of"`
	WindowStart time.Time                  `json:"window_start"`
	Tables      map[string]int             `json:"tables"`
	Anomalies   map[domain.PatternType]int `json:"anomalies"`
}

// Summary returns row counts per table and entry counts per pattern.
func (s *Store) Summary() (Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return Summary{}, ErrNotLoaded
	}
	anomalies := make(map[domain.PatternType]int, len(domain.Patterns))
	for _, pt := range domain.Patterns {
		anomalies[pt] = len(s.ds.Manifest.ByPattern(pt))
	}
	return Summary{
		Seed:        s.ds.Seed,
		AsOf:        s.ds.AsOf,
		WindowStart: s.ds.WindowStart,
		Tables:      s.ds.TableCounts(),
		Anomalies:   anomalies,
	}, nil
}

// Manifest returns the loaded dataset's anomaly manifest.
func (s *Store) Manifest() (domain.Manifest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return domain.Manifest{}, false
	}
	return s.ds.Manifest, true
}

// collect resolves row indexes against rows.
// Must be called with at least a read-lock held.
func collect[T any](idx []int, rows []T) []T {
	out := make([]T, 0, len(idx))
	for _, i := range idx {
		out = append(out, rows[i])
	}
	return out
}
