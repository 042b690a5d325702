package api_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"

	"vaultline/bankfixture/internal/api"
	"vaultline/bankfixture/internal/api/mocks"
	"vaultline/bankfixture/internal/domain"
	"vaultline/bankfixture/internal/metrics"
	"vaultline/bankfixture/internal/store"
)

// ─── Test server setup ────────────────────────────────────────────────────────

func newTestServer(t *testing.T, f api.Fixture, exposeManifest bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(api.NewRouter(api.NewHandler(f, exposeManifest), metrics.New()))
	t.Cleanup(srv.Close)
	return srv
}

func newMock(t *testing.T) *mocks.MockFixture {
	t.Helper()
	return mocks.NewMockFixture(gomock.NewController(t))
}

func get(t *testing.T, srv *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var env map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

func decodeData(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	env := decodeEnvelope(t, resp)
	d, ok := env["data"].(map[string]any)
	if !ok {
		t.Fatalf("response has no object 'data' key: %v", env)
	}
	return d
}

func decodeList(t *testing.T, resp *http.Response) []any {
	t.Helper()
	env := decodeEnvelope(t, resp)
	d, ok := env["data"].([]any)
	if !ok {
		t.Fatalf("response has no list 'data' key: %v", env)
	}
	return d
}

func decodeError(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	env := decodeEnvelope(t, resp)
	e, ok := env["error"].(map[string]any)
	if !ok {
		t.Fatalf("response has no 'error' key: %v", env)
	}
	return e
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected %d, got %d", want, resp.StatusCode)
	}
}

// ─── Health ───────────────────────────────────────────────────────────────────

func TestHealth_Returns200(t *testing.T) {
	srv := newTestServer(t, newMock(t), false)
	expectStatus(t, get(t, srv, "/health"), http.StatusOK)
}

// ─── GET /api/v1/summary ──────────────────────────────────────────────────────

func TestSummary_HidesAnomalyCountsUnlessExposed(t *testing.T) {
	sum := store.Summary{
		Seed:      42,
		Tables:    map[string]int{"customers": 500},
		Anomalies: map[domain.PatternType]int{domain.PatternStructuring: 3},
	}
	for _, exposed := range []bool{false, true} {
		f := newMock(t)
		f.EXPECT().Summary().Return(sum, nil)
		srv := newTestServer(t, f, exposed)

		resp := get(t, srv, "/api/v1/summary")
		expectStatus(t, resp, http.StatusOK)
		data := decodeData(t, resp)
		if data["seed"] != float64(42) {
			t.Errorf("expected seed 42, got %v", data["seed"])
		}
		if got := data["anomalies"] != nil; got != exposed {
			t.Errorf("exposed=%v: anomalies present=%v", exposed, got)
		}
	}
}

func TestSummary_NotLoaded_Returns503(t *testing.T) {
	f := newMock(t)
	f.EXPECT().Summary().Return(store.Summary{}, store.ErrNotLoaded)
	srv := newTestServer(t, f, false)

	resp := get(t, srv, "/api/v1/summary")
	expectStatus(t, resp, http.StatusServiceUnavailable)
	if e := decodeError(t, resp); e["code"] != "NOT_READY" {
		t.Errorf("expected NOT_READY, got %v", e["code"])
	}
}

// ─── GET /api/v1/customers/{id} ──────────────────────────────────────────────

func TestGetCustomer_EmbedsRelatedRows(t *testing.T) {
	f := newMock(t)
	f.EXPECT().Customer(int64(7)).Return(domain.Customer{ID: 7, FirstName: "Ada"}, true)
	f.EXPECT().AccountsOf(int64(7)).Return([]domain.Account{{ID: 3}, {ID: 9}})
	f.EXPECT().UsersOf(int64(7)).Return([]domain.User{{ID: 7, CustomerID: 7}})
	f.EXPECT().LoansOf(int64(7)).Return(nil)
	srv := newTestServer(t, f, false)

	resp := get(t, srv, "/api/v1/customers/7")
	expectStatus(t, resp, http.StatusOK)
	data := decodeData(t, resp)
	if data["customer_id"] != float64(7) || data["first_name"] != "Ada" {
		t.Errorf("customer fields not flattened: %v", data)
	}
	if accts, _ := data["accounts"].([]any); len(accts) != 2 {
		t.Errorf("expected 2 accounts, got %v", data["accounts"])
	}
	loans, isList := data["loans"].([]any)
	if !isList || len(loans) != 0 {
		t.Errorf("expected empty loans list, got %v", data["loans"])
	}
}

func TestGetCustomer_Unknown_Returns404(t *testing.T) {
	f := newMock(t)
	f.EXPECT().Customer(int64(999)).Return(domain.Customer{}, false)
	srv := newTestServer(t, f, false)

	resp := get(t, srv, "/api/v1/customers/999")
	expectStatus(t, resp, http.StatusNotFound)
	if e := decodeError(t, resp); e["code"] != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND, got %v", e["code"])
	}
}

func TestGetCustomer_InvalidID_Returns400(t *testing.T) {
	srv := newTestServer(t, newMock(t), false)
	for _, id := range []string{"abc", "0", "-4"} {
		resp := get(t, srv, "/api/v1/customers/"+id)
		expectStatus(t, resp, http.StatusBadRequest)
		if e := decodeError(t, resp); e["code"] != "INVALID_ID" {
			t.Errorf("id %q: expected INVALID_ID, got %v", id, e["code"])
		}
	}
}

func TestGetCustomerChats_ReturnsList(t *testing.T) {
	f := newMock(t)
	f.EXPECT().Customer(int64(2)).Return(domain.Customer{ID: 2}, true)
	f.EXPECT().ChatsOf(int64(2)).Return([]domain.ChatRecord{{ID: 1, CustomerID: 2, Topic: "DISPUTE"}})
	srv := newTestServer(t, f, false)

	resp := get(t, srv, "/api/v1/customers/2/chats")
	expectStatus(t, resp, http.StatusOK)
	if chats := decodeList(t, resp); len(chats) != 1 {
		t.Errorf("expected 1 chat, got %d", len(chats))
	}
}

// ─── GET /api/v1/accounts/{id} ───────────────────────────────────────────────

func TestGetAccount_IncludesOwners(t *testing.T) {
	f := newMock(t)
	f.EXPECT().Account(int64(1)).Return(domain.Account{ID: 1, Type: domain.AccountChecking}, true)
	f.EXPECT().OwnersOf(int64(1)).Return([]domain.AccountCustomer{
		{AccountID: 1, CustomerID: 1, Role: domain.RolePrimary},
		{AccountID: 1, CustomerID: 2, Role: domain.RoleJoint},
	})
	srv := newTestServer(t, f, false)

	resp := get(t, srv, "/api/v1/accounts/1")
	expectStatus(t, resp, http.StatusOK)
	data := decodeData(t, resp)
	if data["account_type"] != "checking" {
		t.Errorf("expected checking, got %v", data["account_type"])
	}
	if owners, _ := data["owners"].([]any); len(owners) != 2 {
		t.Errorf("expected 2 owners, got %v", data["owners"])
	}
}

func TestGetAccountTransactions_PassesFilter(t *testing.T) {
	f := newMock(t)
	f.EXPECT().Account(int64(3)).Return(domain.Account{ID: 3}, true)

	var got store.TxFilter
	f.EXPECT().TransactionsByAccount(int64(3), gomock.Any()).
		DoAndReturn(func(_ int64, filter store.TxFilter) []domain.Transaction {
			got = filter
			return []domain.Transaction{{ID: 11, AccountID: 3, Type: domain.TxWithdrawal, Amount: decimal.NewFromInt(-9500)}}
		})
	srv := newTestServer(t, f, false)

	resp := get(t, srv, "/api/v1/accounts/3/transactions?from=2025-01-01&to=2025-02-01T12:00:00Z&type=withdrawal")
	expectStatus(t, resp, http.StatusOK)
	if rows := decodeList(t, resp); len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if !got.From.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected from: %v", got.From)
	}
	if !got.To.Equal(time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected to: %v", got.To)
	}
	if got.Type != domain.TxWithdrawal {
		t.Errorf("unexpected type: %v", got.Type)
	}
}

func TestGetAccountTransactions_BadParams_Return400(t *testing.T) {
	cases := []struct {
		name  string
		query string
	}{
		{"bad from", "?from=yesterday"},
		{"bad to", "?to=2025-13-01"},
		{"inverted window", "?from=2025-03-01&to=2025-02-01"},
		{"unknown type", "?type=wire"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newMock(t)
			f.EXPECT().Account(int64(1)).Return(domain.Account{ID: 1}, true)
			srv := newTestServer(t, f, false)

			resp := get(t, srv, "/api/v1/accounts/1/transactions"+tc.query)
			expectStatus(t, resp, http.StatusBadRequest)
			if e := decodeError(t, resp); e["code"] != "INVALID_PARAM" {
				t.Errorf("expected INVALID_PARAM, got %v", e["code"])
			}
		})
	}
}

// ─── GET /api/v1/loans/{id} ──────────────────────────────────────────────────

func TestGetLoan_IncludesSchedule(t *testing.T) {
	f := newMock(t)
	f.EXPECT().Loan(int64(4)).Return(domain.Loan{ID: 4, TermMonths: 2}, true)
	f.EXPECT().PaymentsOf(int64(4)).Return([]domain.Payment{
		{ID: 1, LoanID: 4, Installment: 1, Status: domain.PaymentReversed},
		{ID: 2, LoanID: 4, Installment: 2, Status: domain.PaymentScheduled},
	})
	srv := newTestServer(t, f, false)

	resp := get(t, srv, "/api/v1/loans/4")
	expectStatus(t, resp, http.StatusOK)
	payments, _ := decodeData(t, resp)["payments"].([]any)
	if len(payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(payments))
	}
	if first := payments[0].(map[string]any); first["status"] != "reversed" {
		t.Errorf("expected first payment reversed, got %v", first["status"])
	}
}

// ─── GET /api/v1/manifest ────────────────────────────────────────────────────

func TestManifest_HiddenByDefault(t *testing.T) {
	srv := newTestServer(t, newMock(t), false)
	expectStatus(t, get(t, srv, "/api/v1/manifest"), http.StatusNotFound)
}

func TestManifest_ExposedReturnsEntries(t *testing.T) {
	f := newMock(t)
	f.EXPECT().Manifest().Return(domain.Manifest{Entries: []domain.ManifestEntry{
		{Pattern: domain.PatternLoanDiscrepancy, Ordinal: 1, Signature: "reversed payment"},
	}}, true)
	srv := newTestServer(t, f, true)

	resp := get(t, srv, "/api/v1/manifest")
	expectStatus(t, resp, http.StatusOK)
	entries, _ := decodeData(t, resp)["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
}

// ─── Against a loaded store ───────────────────────────────────────────────────

func TestRealStore_LedgerAndMetrics(t *testing.T) {
	s := store.New()
	day := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	s.Load(&domain.Dataset{
		Customers:        []domain.Customer{{ID: 1}},
		Accounts:         []domain.Account{{ID: 1, Type: domain.AccountChecking}},
		AccountCustomers: []domain.AccountCustomer{{AccountID: 1, CustomerID: 1, Role: domain.RolePrimary}},
		Transactions: []domain.Transaction{
			{ID: 1, AccountID: 1, Type: domain.TxDeposit, Amount: decimal.NewFromInt(100), Timestamp: day},
			{ID: 2, AccountID: 1, Type: domain.TxFee, Amount: decimal.NewFromInt(-5), Timestamp: day.Add(time.Hour)},
		},
	})
	srv := newTestServer(t, s, false)

	resp := get(t, srv, "/api/v1/accounts/1/transactions?type=fee")
	expectStatus(t, resp, http.StatusOK)
	rows := decodeList(t, resp)
	if len(rows) != 1 || rows[0].(map[string]any)["transaction_id"] != float64(2) {
		t.Errorf("expected only the fee row, got %v", rows)
	}

	expectStatus(t, get(t, srv, "/api/v1/accounts/77"), http.StatusNotFound)

	m := get(t, srv, "/metrics")
	expectStatus(t, m, http.StatusOK)
	body, _ := io.ReadAll(m.Body)
	if !strings.Contains(string(body), `route="/api/v1/accounts/{id}/transactions"`) {
		t.Errorf("expected route-labelled request counter in:\n%s", body)
	}
}
