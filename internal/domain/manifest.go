package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PatternType is the closed set of anomaly classes planted in a fixture.
type PatternType string

const (
	PatternStructuring     PatternType = "structuring"
	PatternRelationship    PatternType = "relationship"
	PatternLoanDiscrepancy PatternType = "loan_discrepancy"
)

// Patterns lists every pattern in injection order.
var Patterns = []PatternType{PatternStructuring, PatternRelationship, PatternLoanDiscrepancy}

// ManifestEntry records one planted anomaly: the entities it touches and the
// signature an analyst is expected to find by querying.
//
// TransactionIDs are the rows that carry the signature itself.
// RelatedTransactionIDs are supporting rows (funding wires, mirrored credits)
// that an analyst will meet while tracing it.
type ManifestEntry struct {
	Pattern               PatternType      `json:"pattern"`
	Ordinal               int              `json:"ordinal"`
	Variant               string           `json:"variant,omitempty"`
	CustomerIDs           []int64          `json:"customer_ids,omitempty"`
	AccountIDs            []int64          `json:"account_ids,omitempty"`
	TransactionIDs        []int64          `json:"transaction_ids,omitempty"`
	RelatedTransactionIDs []int64          `json:"related_transaction_ids,omitempty"`
	UserIDs               []int64          `json:"user_ids,omitempty"`
	LoanIDs               []int64          `json:"loan_ids,omitempty"`
	PaymentIDs            []int64          `json:"payment_ids,omitempty"`
	ChatIDs               []int64          `json:"chat_ids,omitempty"`
	WindowStart           *time.Time       `json:"window_start,omitempty"`
	WindowEnd             *time.Time       `json:"window_end,omitempty"`
	TotalAmount           *decimal.Decimal `json:"total_amount,omitempty"`
	Signature             string           `json:"expected_detection"`
}

// Manifest is the ordered answer key of a generation run.
type Manifest struct {
	Entries []ManifestEntry `json:"entries"`
}

// ByPattern returns the entries of one pattern in manifest order.
func (m *Manifest) ByPattern(p PatternType) []ManifestEntry {
	var out []ManifestEntry
	for _, e := range m.Entries {
		if e.Pattern == p {
			out = append(out, e)
		}
	}
	return out
}

// Dataset is the complete output of one generation run.
type Dataset struct {
	Seed             int64             `json:"seed"`
	AsOf             time.Time         `json:"as_of"`
	WindowStart      time.Time         `json:"window_start"`
	Banks            []Bank            `json:"banks"`
	Customers        []Customer        `json:"customers"`
	Users            []User            `json:"users"`
	Accounts         []Account         `json:"accounts"`
	AccountCustomers []AccountCustomer `json:"account_customers"`
	Transactions     []Transaction     `json:"transactions"`
	Loans            []Loan            `json:"loans"`
	Payments         []Payment         `json:"payments"`
	ChatHistory      []ChatRecord      `json:"chat_history"`
	Manifest         Manifest          `json:"manifest"`
}

// TableCounts returns the row count of every table keyed by table name.
func (d *Dataset) TableCounts() map[string]int {
	return map[string]int{
		"banks":             len(d.Banks),
		"customers":         len(d.Customers),
		"users":             len(d.Users),
		"accounts":          len(d.Accounts),
		"account_customers": len(d.AccountCustomers),
		"transactions":      len(d.Transactions),
		"loans":             len(d.Loans),
		"payments":          len(d.Payments),
		"chat_history":      len(d.ChatHistory),
	}
}
