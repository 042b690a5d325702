package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"vaultline/bankfixture/internal/config"
	"vaultline/bankfixture/internal/domain"
	"vaultline/bankfixture/internal/store"
)

//go:generate mockgen -destination=mocks/mock_fixture.go -package=mocks vaultline/bankfixture/internal/api Fixture

// Fixture is the read surface the handlers need. *store.Store satisfies it.
type Fixture interface {
	Customer(id int64) (domain.Customer, bool)
	Account(id int64) (domain.Account, bool)
	Loan(id int64) (domain.Loan, bool)
	OwnersOf(accountID int64) []domain.AccountCustomer
	AccountsOf(customerID int64) []domain.Account
	UsersOf(customerID int64) []domain.User
	LoansOf(customerID int64) []domain.Loan
	PaymentsOf(loanID int64) []domain.Payment
	ChatsOf(customerID int64) []domain.ChatRecord
	TransactionsByAccount(accountID int64, f store.TxFilter) []domain.Transaction
	Summary() (store.Summary, error)
	Manifest() (domain.Manifest, bool)
}

var _ Fixture = (*store.Store)(nil)

// Handler holds the dependencies shared across all HTTP handlers.
type Handler struct {
	fixture        Fixture
	exposeManifest bool
}

// NewHandler creates a Handler over f. The anomaly manifest is only served
// when exposeManifest is set.
func NewHandler(f Fixture, exposeManifest bool) *Handler {
	return &Handler{fixture: f, exposeManifest: exposeManifest}
}

// ─── GET /api/v1/summary ──────────────────────────────────────────────────────

// GetSummary returns the seed, window and row count of every table.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.fixture.Summary()
	if errors.Is(err, store.ErrNotLoaded) {
		unavailable(w, "no fixture has been generated yet")
		return
	}
	if err != nil {
		internalError(w)
		return
	}
	if !h.exposeManifest {
		sum.Anomalies = nil
	}
	ok(w, sum)
}

// ─── GET /api/v1/customers/{id} ──────────────────────────────────────────────

type customerDetail struct {
	domain.Customer
	Accounts []domain.Account `json:"accounts"`
	Users    []domain.User    `json:"users"`
	Loans    []domain.Loan    `json:"loans"`
}

// GetCustomer returns a customer with every linked account, user and loan.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(w, r)
	if !valid {
		return
	}
	c, exists := h.fixture.Customer(id)
	if !exists {
		notFound(w, fmt.Sprintf("customer %d not found", id))
		return
	}
	ok(w, customerDetail{
		Customer: c,
		Accounts: nonNil(h.fixture.AccountsOf(id)),
		Users:    nonNil(h.fixture.UsersOf(id)),
		Loans:    nonNil(h.fixture.LoansOf(id)),
	})
}

// GetCustomerChats returns a customer's support chat sessions.
func (h *Handler) GetCustomerChats(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(w, r)
	if !valid {
		return
	}
	if _, exists := h.fixture.Customer(id); !exists {
		notFound(w, fmt.Sprintf("customer %d not found", id))
		return
	}
	ok(w, nonNil(h.fixture.ChatsOf(id)))
}

// ─── GET /api/v1/accounts/{id} ───────────────────────────────────────────────

type accountDetail struct {
	domain.Account
	Owners []domain.AccountCustomer `json:"owners"`
}

// GetAccount returns an account with its owner links.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(w, r)
	if !valid {
		return
	}
	a, exists := h.fixture.Account(id)
	if !exists {
		notFound(w, fmt.Sprintf("account %d not found", id))
		return
	}
	ok(w, accountDetail{Account: a, Owners: nonNil(h.fixture.OwnersOf(id))})
}

// GetAccountTransactions returns an account's ledger in posting order.
//
// Query params:
//
//	from: inclusive lower bound, RFC 3339 or YYYY-MM-DD
//	to:   exclusive upper bound, same formats
//	type: one transaction type
func (h *Handler) GetAccountTransactions(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(w, r)
	if !valid {
		return
	}
	if _, exists := h.fixture.Account(id); !exists {
		notFound(w, fmt.Sprintf("account %d not found", id))
		return
	}

	var f store.TxFilter
	q := r.URL.Query()
	var err error
	if f.From, err = parseInstant(q.Get("from")); err != nil {
		badRequest(w, "INVALID_PARAM", "from must be RFC 3339 or YYYY-MM-DD")
		return
	}
	if f.To, err = parseInstant(q.Get("to")); err != nil {
		badRequest(w, "INVALID_PARAM", "to must be RFC 3339 or YYYY-MM-DD")
		return
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		badRequest(w, "INVALID_PARAM", "from must be before to")
		return
	}
	if t := q.Get("type"); t != "" {
		f.Type = domain.TransactionType(t)
		if !f.Type.Valid() {
			badRequest(w, "INVALID_PARAM", fmt.Sprintf("unknown transaction type %q", t))
			return
		}
	}

	ok(w, nonNil(h.fixture.TransactionsByAccount(id, f)))
}

// ─── GET /api/v1/loans/{id} ──────────────────────────────────────────────────

type loanDetail struct {
	domain.Loan
	Payments []domain.Payment `json:"payments"`
}

// GetLoan returns a loan with its full payment schedule.
func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(w, r)
	if !valid {
		return
	}
	l, exists := h.fixture.Loan(id)
	if !exists {
		notFound(w, fmt.Sprintf("loan %d not found", id))
		return
	}
	ok(w, loanDetail{Loan: l, Payments: nonNil(h.fixture.PaymentsOf(id))})
}

// ─── GET /api/v1/manifest ────────────────────────────────────────────────────

// GetManifest returns the anomaly manifest. It answers 404 unless the server
// was started with the manifest exposed, so a blind exercise stays blind.
func (h *Handler) GetManifest(w http.ResponseWriter, r *http.Request) {
	if !h.exposeManifest {
		notFound(w, "manifest is not exposed")
		return
	}
	m, loaded := h.fixture.Manifest()
	if !loaded {
		unavailable(w, "no fixture has been generated yet")
		return
	}
	ok(w, m)
}

// ─── Params ───────────────────────────────────────────────────────────────────

// pathID parses the {id} URL param, writing a 400 when it is not a positive
// integer.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		badRequest(w, "INVALID_ID", fmt.Sprintf("id must be a positive integer, got %q", raw))
		return 0, false
	}
	return id, true
}

func parseInstant(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(config.DateLayout, s)
}

// nonNil keeps empty collections rendering as [] rather than null.
func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
