package generator

import "time"

// ─── Banks ────────────────────────────────────────────────────────────────────

type bankSpec struct {
	name        string
	swift       string
	city        string
	established time.Time
}

func ymd(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var bankCatalog = []bankSpec{
	{"First National Bank", "FNBAUS33", "New York", ymd(1863, time.June, 3)},
	{"Global Trust Bank", "GTBKUS44", "San Francisco", ymd(1985, time.April, 15)},
	{"Community Savings Bank", "CSBKUS66", "Chicago", ymd(1924, time.November, 20)},
	{"Digital First Bank", "DFBKUS77", "Austin", ymd(2018, time.January, 10)},
	{"Metropolitan Bank & Trust", "MBTCUS22", "Los Angeles", ymd(1962, time.July, 8)},
	{"Harborview Federal Bank", "HRBVUS31", "Boston", ymd(1948, time.March, 12)},
	{"Prairie State Bank", "PRSBUS55", "Omaha", ymd(1931, time.September, 1)},
	{"Summit Credit Bank", "SMCBUS48", "Denver", ymd(1977, time.May, 23)},
	{"Coastal Mutual Bank", "CSMBUS62", "Charleston", ymd(1899, time.February, 14)},
	{"Evergreen National Bank", "EVNBUS29", "Seattle", ymd(1956, time.October, 30)},
}

// ─── Customers ────────────────────────────────────────────────────────────────

var employmentStatuses = []string{"employed", "employed", "employed", "self_employed", "retired", "student", "unemployed"}

var emailDomains = []string{"gmail.com", "yahoo.com", "outlook.com", "hotmail.com", "icloud.com", "protonmail.com"}

// ─── Transactions ─────────────────────────────────────────────────────────────

var merchantsByCategory = map[string][]string{
	"GROCERIES":      {"Whole Foods", "Kroger", "Safeway", "Trader Joes"},
	"UTILITIES":      {"Electric Company", "Water Department", "Gas Company", "Internet Provider"},
	"ENTERTAINMENT":  {"Netflix", "Spotify", "AMC Theaters", "Live Nation"},
	"DINING":         {"Starbucks", "McDonalds", "Chipotle", "Local Restaurant"},
	"SHOPPING":       {"Amazon", "Target", "Walmart", "Best Buy"},
	"TRANSPORTATION": {"Uber", "Shell Gas", "Chevron", "Public Transit"},
	"HEALTHCARE":     {"CVS Pharmacy", "Walgreens", "Medical Center", "Dental Office"},
	"EDUCATION":      {"University", "Online Course Platform", "Bookstore"},
	"TRAVEL":         {"Delta Airlines", "Marriott Hotels", "Airbnb", "Expedia"},
}

// spendingCategories fixes the iteration order of merchantsByCategory.
var spendingCategories = []string{
	"GROCERIES", "UTILITIES", "ENTERTAINMENT", "DINING", "SHOPPING",
	"TRANSPORTATION", "HEALTHCARE", "EDUCATION", "TRAVEL",
}

// fillerCategories are the everyday purchases used to top up volume.
var fillerCategories = []string{"GROCERIES", "DINING", "TRANSPORTATION"}

// Merchant and category values shared by ordinary activity and planted rows.
const (
	merchantIncomingWire  = "Incoming Wire"
	merchantPeerTransfer  = "Person-to-Person Transfer"
	merchantLoanServicing = "Loan Servicing"
	categoryLoan          = "LOAN"
	feeReturnedPayment    = "Returned payment (NSF)"
)

var (
	depositSources = []string{"Direct Deposit", "Mobile Check Deposit", "Branch Deposit", merchantIncomingWire}
	depositWeights = []int{45, 25, 22, 8}
)

var feeKinds = []struct {
	description string
	amount      int64
}{
	{"Monthly maintenance fee", 12},
	{"Overdraft fee", 35},
	{"Outgoing wire fee", 25},
	{"Out-of-network ATM fee", 5},
	{"Paper statement fee", 10},
	{"Stop payment fee", 15},
	{feeReturnedPayment, 35},
}

var atmLocations = []string{
	"Miami, FL", "Fort Lauderdale, FL", "Hialeah, FL", "New York, NY",
	"Newark, NJ", "Los Angeles, CA", "Long Beach, CA", "Houston, TX",
}

// ─── Chats ────────────────────────────────────────────────────────────────────

const (
	topicAccountInquiry = "ACCOUNT_INQUIRY"
	topicDispute        = "DISPUTE"
	topicLoan           = "LOAN"
	topicTechnical      = "TECHNICAL"
	topicComplaint      = "COMPLAINT"
)

var chatTopics = []string{topicAccountInquiry, topicDispute, topicLoan, topicTechnical, topicComplaint}

var chatOpeners = map[string][]string{
	topicAccountInquiry: {
		"I need to check my balance",
		"Why was I charged a fee?",
		"Can you explain this transaction?",
		"I want to open a new account",
	},
	topicDispute: {
		"This transaction wasn't mine",
		"I was charged twice",
		"Fraudulent activity on my account",
		"Unauthorized withdrawal",
	},
	topicLoan: {
		"I need information about my loan",
		"Can I refinance?",
		"Payment didn't go through",
		"Late payment fee dispute",
	},
	topicTechnical: {
		"Can't log into online banking",
		"App keeps crashing",
		"Two-factor authentication issues",
		"Password reset needed",
	},
	topicComplaint: {
		"Terrible service at branch",
		"Been on hold for an hour",
		"Account frozen without notice",
		"Discrimination complaint",
	},
}

var chatChannels = []string{"WEB", "MOBILE", "PHONE", "BRANCH"}

const (
	resolutionResolved  = "RESOLVED"
	resolutionEscalated = "ESCALATED"
	resolutionPending   = "PENDING"
)
