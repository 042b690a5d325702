// Package domain contains all core types used across the application.
// Every generated table and the anomaly manifest live here so the generator,
// the store and the API agree on one shape.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Enumerations ─────────────────────────────────────────────────────────────

// RiskRating is the bank's KYC risk classification of a customer.
type RiskRating string

const (
	RiskLow    RiskRating = "low"
	RiskMedium RiskRating = "medium"
	RiskHigh   RiskRating = "high"
)

// Elevate returns the next rating up, saturating at high.
func (r RiskRating) Elevate() RiskRating {
	switch r {
	case RiskLow:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// SpendingProfile drives how busy a customer's accounts are.
type SpendingProfile string

const (
	ProfileConservative SpendingProfile = "conservative"
	ProfileModerate     SpendingProfile = "moderate"
	ProfileActive       SpendingProfile = "active"
)

type AccountType string

const (
	AccountChecking    AccountType = "checking"
	AccountSavings     AccountType = "savings"
	AccountMoneyMarket AccountType = "money_market"
	AccountCD          AccountType = "cd"
)

// InterestBearing reports whether the account type accrues interest.
func (t AccountType) InterestBearing() bool {
	return t != AccountChecking
}

type AccountStatus string

const (
	AccountActive AccountStatus = "active"
	AccountFrozen AccountStatus = "frozen"
	AccountClosed AccountStatus = "closed"
)

type OwnerRole string

const (
	RolePrimary     OwnerRole = "primary"
	RoleJoint       OwnerRole = "joint"
	RoleBeneficiary OwnerRole = "beneficiary"
)

type TransactionType string

const (
	TxDeposit     TransactionType = "deposit"
	TxWithdrawal  TransactionType = "withdrawal"
	TxTransfer    TransactionType = "transfer"
	TxFee         TransactionType = "fee"
	TxInterest    TransactionType = "interest"
	TxLoanPayment TransactionType = "loan_payment"
	TxReversal    TransactionType = "reversal"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TxDeposit, TxWithdrawal, TxTransfer, TxFee, TxInterest, TxLoanPayment, TxReversal:
		return true
	}
	return false
}

// Credit reports whether the transaction type adds money to the account.
func (t TransactionType) Credit() bool {
	switch t {
	case TxDeposit, TxInterest, TxReversal:
		return true
	}
	return false
}

type LoanType string

const (
	LoanPersonal LoanType = "personal"
	LoanAuto     LoanType = "auto"
	LoanMortgage LoanType = "mortgage"
	LoanStudent  LoanType = "student"
)

type LoanStatus string

const (
	LoanActive    LoanStatus = "active"
	LoanDefaulted LoanStatus = "defaulted"
	LoanPaid      LoanStatus = "paid"
)

type PaymentStatus string

const (
	PaymentOnTime    PaymentStatus = "on_time"
	PaymentLate      PaymentStatus = "late"
	PaymentMissed    PaymentStatus = "missed"
	PaymentReversed  PaymentStatus = "reversed"
	PaymentScheduled PaymentStatus = "scheduled" // due after the as-of date
)

// ─── Reference data ───────────────────────────────────────────────────────────

// Bank is created once per run and never mutated.
type Bank struct {
	ID               int64     `json:"bank_id"`
	Name             string    `json:"bank_name"`
	SwiftCode        string    `json:"swift_code"`
	RoutingCode      string    `json:"routing_code"`
	Country          string    `json:"country"`
	HeadquartersCity string    `json:"headquarters_city"`
	EstablishedDate  time.Time `json:"established_date"`
	IsActive         bool      `json:"is_active"`
}

// ─── Parties ──────────────────────────────────────────────────────────────────

// Customer is immutable after creation except RiskRating, which anomaly
// injection may elevate.
type Customer struct {
	ID               int64           `json:"customer_id"`
	HouseholdID      int64           `json:"household_id"`
	FirstName        string          `json:"first_name"`
	LastName         string          `json:"last_name"`
	DateOfBirth      time.Time       `json:"date_of_birth"`
	SSNHash          string          `json:"ssn_hash"`
	Email            string          `json:"email"`
	Phone            string          `json:"phone"`
	Address          string          `json:"address"`
	City             string          `json:"city"`
	State            string          `json:"state"`
	ZipCode          string          `json:"zip_code"`
	CustomerSince    time.Time       `json:"customer_since"`
	CreditScore      int             `json:"credit_score"`
	AnnualIncome     decimal.Decimal `json:"annual_income"`
	EmploymentStatus string          `json:"employment_status"`
	IsPEP            bool            `json:"is_pep"`
	RiskRating       RiskRating      `json:"risk_rating"`
	SpendingProfile  SpendingProfile `json:"spending_profile"`
}

// User is an online-banking credential. Only hashes are stored.
type User struct {
	ID                  int64     `json:"user_id"`
	CustomerID          int64     `json:"customer_id"`
	Username            string    `json:"username"`
	PasswordHash        string    `json:"password_hash"`
	DeviceFingerprint   string    `json:"device_fingerprint"`
	CreatedAt           time.Time `json:"created_at"`
	LastLogin           time.Time `json:"last_login"`
	IsActive            bool      `json:"is_active"`
	FailedLoginAttempts int       `json:"failed_login_attempts"`
	TwoFactorEnabled    bool      `json:"two_factor_enabled"`
}

// ─── Accounts ─────────────────────────────────────────────────────────────────

// Account.Balance is derived: it always equals the sum of the account's
// signed transaction amounts.
type Account struct {
	ID             int64           `json:"account_id"`
	AccountNumber  string          `json:"account_number"`
	BankID         int64           `json:"bank_id"`
	Type           AccountType     `json:"account_type"`
	Balance        decimal.Decimal `json:"balance"`
	Currency       string          `json:"currency"`
	OpenedDate     time.Time       `json:"opened_date"`
	ClosedDate     *time.Time      `json:"closed_date,omitempty"`
	Status         AccountStatus   `json:"status"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	OverdraftLimit decimal.Decimal `json:"overdraft_limit"`
}

// ActiveUntil returns the last instant at which the account may carry
// activity: its closing date, or asOf when still open.
func (a *Account) ActiveUntil(asOf time.Time) time.Time {
	if a.ClosedDate != nil && a.ClosedDate.Before(asOf) {
		return *a.ClosedDate
	}
	return asOf
}

// AccountCustomer links an account to one of its parties.
type AccountCustomer struct {
	AccountID  int64     `json:"account_id"`
	CustomerID int64     `json:"customer_id"`
	Role       OwnerRole `json:"relationship_type"`
	AddedDate  time.Time `json:"added_date"`
}

// Transaction is one signed ledger entry. Debits carry negative amounts.
type Transaction struct {
	ID                   int64           `json:"transaction_id"`
	AccountID            int64           `json:"account_id"`
	Type                 TransactionType `json:"transaction_type"`
	Amount               decimal.Decimal `json:"amount"`
	BalanceAfter         decimal.Decimal `json:"balance_after"`
	Timestamp            time.Time       `json:"transaction_date"`
	Description          string          `json:"description"`
	Category             string          `json:"category"`
	MerchantName         string          `json:"merchant_name,omitempty"`
	Counterparty         string          `json:"counterparty,omitempty"`
	ReferenceNumber      string          `json:"reference_number"`
	RelatedTransactionID *int64          `json:"related_transaction_id,omitempty"`
	Location             string          `json:"location,omitempty"`
	IPAddress            string          `json:"ip_address,omitempty"`
	DeviceID             string          `json:"device_id,omitempty"`
}

// ─── Lending ──────────────────────────────────────────────────────────────────

type Loan struct {
	ID               int64            `json:"loan_id"`
	CustomerID       int64            `json:"customer_id"`
	BankID           int64            `json:"bank_id"`
	Type             LoanType         `json:"loan_type"`
	Principal        decimal.Decimal  `json:"principal_amount"`
	InterestRate     decimal.Decimal  `json:"interest_rate"`
	TermMonths       int              `json:"term_months"`
	MonthlyPayment   decimal.Decimal  `json:"monthly_payment"`
	ScheduledTotal   decimal.Decimal  `json:"scheduled_total"`
	RemainingBalance decimal.Decimal  `json:"remaining_balance"`
	OriginationDate  time.Time        `json:"origination_date"`
	MaturityDate     time.Time        `json:"maturity_date"`
	Status           LoanStatus       `json:"status"`
	CollateralValue  *decimal.Decimal `json:"collateral_value,omitempty"`
	CollateralType   string           `json:"collateral_type,omitempty"`
	DelinquencyDays  int              `json:"delinquency_days"`
}

// Payment is one installment of a loan's amortization schedule together with
// what actually happened to it.
type Payment struct {
	ID             int64           `json:"payment_id"`
	LoanID         int64           `json:"loan_id"`
	Installment    int             `json:"installment_number"`
	DueDate        time.Time       `json:"scheduled_date"`
	AmountDue      decimal.Decimal `json:"amount_due"`
	PrincipalDue   decimal.Decimal `json:"principal_due"`
	InterestDue    decimal.Decimal `json:"interest_due"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	PaidDate       *time.Time      `json:"payment_date,omitempty"`
	LateFee        decimal.Decimal `json:"late_fee"`
	Method         string          `json:"payment_method,omitempty"`
	Status         PaymentStatus   `json:"status"`
	ReversedAt     *time.Time      `json:"reversed_at,omitempty"`
	ReversalReason string          `json:"reversal_reason,omitempty"`
	TransactionID  *int64          `json:"transaction_id,omitempty"`
}

// Counted reports whether the payment's amount paid counts toward the loan.
func (p *Payment) Counted() bool {
	return p.Status != PaymentReversed && p.Status != PaymentScheduled
}

// ─── Service interactions ─────────────────────────────────────────────────────

type ChatRecord struct {
	ID               int64           `json:"chat_id"`
	CustomerID       int64           `json:"customer_id"`
	UserID           *int64          `json:"user_id,omitempty"`
	SessionStart     time.Time       `json:"session_start"`
	SessionEnd       time.Time       `json:"session_end"`
	Channel          string          `json:"channel"`
	AgentID          string          `json:"agent_id"`
	Topic            string          `json:"topic"`
	SentimentScore   decimal.Decimal `json:"sentiment_score"`
	ResolutionStatus string          `json:"resolution_status"`
	Transcript       string          `json:"transcript"`
}

// ChatMessage is one line of a ChatRecord transcript.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
