package generator_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultline/bankfixture/internal/config"
	"vaultline/bankfixture/internal/domain"
	"vaultline/bankfixture/internal/generator"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func generate(t *testing.T, cfg config.Config) (*domain.Dataset, error) {
	t.Helper()
	a, err := generator.New(cfg, generator.WithLogger(quiet))
	if err != nil {
		return nil, err
	}
	return a.Generate(context.Background())
}

var (
	defaultOnce sync.Once
	defaultDS   *domain.Dataset
	defaultErr  error
)

// defaultDataset generates the default configuration once per test binary.
func defaultDataset(t *testing.T) *domain.Dataset {
	t.Helper()
	defaultOnce.Do(func() {
		defaultDS, defaultErr = generate(t, config.Default())
	})
	require.NoError(t, defaultErr)
	return defaultDS
}

func txByID(ds *domain.Dataset, id int64) domain.Transaction { return ds.Transactions[id-1] }

// ─── Default run ──────────────────────────────────────────────────────────────

func TestGenerate_DefaultConfig_MeetsVolumeAndManifestCounts(t *testing.T) {
	ds := defaultDataset(t)

	assert.Len(t, ds.Customers, 500)
	assert.GreaterOrEqual(t, len(ds.Transactions), 5000)
	assert.Len(t, ds.Banks, 5)
	assert.Len(t, ds.Manifest.ByPattern(domain.PatternStructuring), 3)
	assert.Len(t, ds.Manifest.ByPattern(domain.PatternRelationship), 4)
	assert.Len(t, ds.Manifest.ByPattern(domain.PatternLoanDiscrepancy), 5)
	assert.Len(t, ds.Manifest.Entries, 12)
}

func TestGenerate_BalancesReconcile(t *testing.T) {
	ds := defaultDataset(t)

	sums := make(map[int64]decimal.Decimal)
	for _, tx := range ds.Transactions {
		sums[tx.AccountID] = sums[tx.AccountID].Add(tx.Amount)
	}
	for _, a := range ds.Accounts {
		assert.Truef(t, a.Balance.Equal(sums[a.ID]), "account %d balance %s, ledger %s", a.ID, a.Balance, sums[a.ID])
	}
}

func TestGenerate_TransactionSignsMatchTypes(t *testing.T) {
	ds := defaultDataset(t)
	for _, tx := range ds.Transactions {
		if tx.Type.Credit() {
			assert.Truef(t, tx.Amount.IsPositive(), "credit %d has amount %s", tx.ID, tx.Amount)
		} else {
			assert.Truef(t, tx.Amount.IsNegative(), "debit %d has amount %s", tx.ID, tx.Amount)
		}
	}
}

func TestGenerate_EveryAccountHasPrimaryOwner(t *testing.T) {
	ds := defaultDataset(t)

	primaries := make(map[int64]int)
	for _, l := range ds.AccountCustomers {
		require.GreaterOrEqual(t, l.CustomerID, int64(1))
		require.LessOrEqual(t, l.CustomerID, int64(len(ds.Customers)))
		require.LessOrEqual(t, l.AccountID, int64(len(ds.Accounts)))
		if l.Role == domain.RolePrimary {
			primaries[l.AccountID]++
		}
	}
	for _, a := range ds.Accounts {
		assert.Equalf(t, 1, primaries[a.ID], "account %d primary owners", a.ID)
	}
}

func TestGenerate_SchedulesSumToAmortizedTotal(t *testing.T) {
	ds := defaultDataset(t)

	due := make(map[int64]decimal.Decimal)
	rows := make(map[int64]int)
	for _, pm := range ds.Payments {
		due[pm.LoanID] = due[pm.LoanID].Add(pm.AmountDue)
		rows[pm.LoanID]++
	}
	require.NotEmpty(t, ds.Loans)
	for _, l := range ds.Loans {
		assert.Truef(t, due[l.ID].Equal(l.ScheduledTotal), "loan %d due %s, scheduled %s", l.ID, due[l.ID], l.ScheduledTotal)
		assert.Equal(t, l.TermMonths, rows[l.ID])
		assert.False(t, l.RemainingBalance.IsNegative())
	}
}

func TestGenerate_StructuringEntriesStayUnderThreshold(t *testing.T) {
	ds := defaultDataset(t)
	threshold := decimal.NewFromFloat(config.Default().ReportingThreshold)

	for _, e := range ds.Manifest.ByPattern(domain.PatternStructuring) {
		require.GreaterOrEqual(t, len(e.TransactionIDs), 3)
		require.NotNil(t, e.WindowStart)
		require.NotNil(t, e.WindowEnd)

		total := decimal.Zero
		for _, id := range e.TransactionIDs {
			tx := txByID(ds, id)
			assert.True(t, tx.Amount.Abs().LessThan(threshold), "withdrawal %d reaches threshold", id)
			assert.False(t, tx.Timestamp.Before(*e.WindowStart))
			assert.False(t, tx.Timestamp.After(*e.WindowEnd))
			total = total.Add(tx.Amount.Abs())
		}
		assert.True(t, total.GreaterThan(threshold), "entry %d totals %s", e.Ordinal, total)
		assert.True(t, total.Equal(*e.TotalAmount))
		assert.LessOrEqual(t, e.WindowEnd.Sub(*e.WindowStart).Hours(), 72.0)
	}
}

func TestGenerate_RelationshipEntriesReferenceJointAccounts(t *testing.T) {
	ds := defaultDataset(t)

	owners := make(map[int64]int)
	for _, l := range ds.AccountCustomers {
		if l.Role != domain.RoleBeneficiary {
			owners[l.AccountID]++
		}
	}
	variants := make(map[string]int)
	for _, e := range ds.Manifest.ByPattern(domain.PatternRelationship) {
		require.NotEmpty(t, e.AccountIDs)
		assert.GreaterOrEqual(t, owners[e.AccountIDs[0]], 2, "entry %d account %d is not joint", e.Ordinal, e.AccountIDs[0])
		assert.Len(t, e.CustomerIDs, 2)
		variants[e.Variant]++
	}
	assert.Equal(t, 2, variants["late_joint_owner_transfer_spike"])
	assert.Equal(t, 2, variants["shared_device_fingerprint"])
}

func TestGenerate_SharedDeviceVariantSharesFingerprint(t *testing.T) {
	ds := defaultDataset(t)
	for _, e := range ds.Manifest.ByPattern(domain.PatternRelationship) {
		if e.Variant != "shared_device_fingerprint" {
			continue
		}
		require.Len(t, e.UserIDs, 2)
		a, b := ds.Users[e.UserIDs[0]-1], ds.Users[e.UserIDs[1]-1]
		assert.Equal(t, a.DeviceFingerprint, b.DeviceFingerprint)
		assert.NotEqual(t, a.CustomerID, b.CustomerID)
		assert.Len(t, e.RelatedTransactionIDs, len(e.TransactionIDs))
	}
}

func TestGenerate_LoanDiscrepanciesAreReversedLater(t *testing.T) {
	ds := defaultDataset(t)

	loans := make(map[int64]bool)
	for _, e := range ds.Manifest.ByPattern(domain.PatternLoanDiscrepancy) {
		require.Len(t, e.LoanIDs, 1)
		require.Len(t, e.PaymentIDs, 1)
		assert.False(t, loans[e.LoanIDs[0]], "loan %d used twice", e.LoanIDs[0])
		loans[e.LoanIDs[0]] = true

		pm := ds.Payments[e.PaymentIDs[0]-1]
		assert.Equal(t, e.LoanIDs[0], pm.LoanID)
		assert.Equal(t, domain.PaymentReversed, pm.Status)
		require.NotNil(t, pm.PaidDate)
		require.NotNil(t, pm.ReversedAt)
		assert.True(t, pm.ReversedAt.After(*pm.PaidDate))

		require.Len(t, e.TransactionIDs, 3)
		debit, reversal := txByID(ds, e.TransactionIDs[0]), txByID(ds, e.TransactionIDs[1])
		assert.Equal(t, domain.TxLoanPayment, debit.Type)
		assert.Equal(t, domain.TxReversal, reversal.Type)
		require.NotNil(t, reversal.RelatedTransactionID)
		assert.Equal(t, debit.ID, *reversal.RelatedTransactionID)
		assert.True(t, reversal.Timestamp.After(debit.Timestamp))
		assert.True(t, debit.Amount.Neg().Equal(reversal.Amount))
	}
	assert.Len(t, loans, 5)
}

func TestGenerate_PlantedValuesAlsoOccurInOrdinaryRows(t *testing.T) {
	ds := defaultDataset(t)

	planted := make(map[int64]bool)
	for _, e := range ds.Manifest.Entries {
		for _, id := range append(append([]int64(nil), e.TransactionIDs...), e.RelatedTransactionIDs...) {
			planted[id] = true
		}
	}
	inside := map[string]bool{}
	outside := map[string]bool{}
	for _, tx := range ds.Transactions {
		seen := outside
		if planted[tx.ID] {
			seen = inside
		}
		seen["type="+string(tx.Type)] = true
		seen["merchant="+tx.MerchantName] = true
		seen["category="+tx.Category] = true
	}
	require.NotEmpty(t, inside)
	for v := range inside {
		assert.Truef(t, outside[v], "%s only occurs on manifest rows", v)
	}
}

func TestGenerate_ElectronicLoanPaymentsPostToLedger(t *testing.T) {
	ds := defaultDataset(t)

	posted := 0
	for _, pm := range ds.Payments {
		if pm.TransactionID == nil {
			continue
		}
		posted++
		debit := txByID(ds, *pm.TransactionID)
		assert.Equal(t, domain.TxLoanPayment, debit.Type)
		assert.Truef(t, debit.Amount.Neg().Equal(pm.AmountPaid), "payment %d paid %s, debit %s", pm.ID, pm.AmountPaid, debit.Amount)
		require.NotNil(t, pm.PaidDate)
		assert.True(t, debit.Timestamp.Equal(*pm.PaidDate))
	}
	assert.Greater(t, posted, 10*len(ds.Manifest.ByPattern(domain.PatternLoanDiscrepancy)))
}

func TestGenerate_NoActiveLoanPastDefaultThreshold(t *testing.T) {
	check := func(t *testing.T, ds *domain.Dataset) {
		for _, l := range ds.Loans {
			if l.Status == domain.LoanActive {
				assert.LessOrEqualf(t, l.DelinquencyDays, 60, "loan %d", l.ID)
			}
		}
	}
	t.Run("default", func(t *testing.T) { check(t, defaultDataset(t)) })

	if testing.Short() {
		t.Skip("extra seeds")
	}
	for _, seed := range []int64{1, 7} {
		cfg := config.Default()
		cfg.Seed = seed
		ds, err := generate(t, cfg)
		require.NoError(t, err)
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) { check(t, ds) })
	}
}

func TestGenerate_FirstStructuringEntryCarriesRiskProfile(t *testing.T) {
	ds := defaultDataset(t)

	entries := ds.Manifest.ByPattern(domain.PatternStructuring)
	require.NotEmpty(t, entries)
	e := entries[0]
	owner := ds.Customers[e.CustomerIDs[0]-1]
	assert.True(t, owner.IsPEP)
	assert.Equal(t, domain.RiskHigh, owner.RiskRating)

	acct := ds.Accounts[e.AccountIDs[0]-1]
	assert.Truef(t, acct.Balance.GreaterThan(owner.AnnualIncome.Mul(decimal.NewFromInt(20))),
		"balance %s against income %s", acct.Balance, owner.AnnualIncome)

	require.Len(t, e.RelatedTransactionIDs, 2)
	for _, id := range e.RelatedTransactionIDs {
		assert.Equal(t, "Incoming Wire", txByID(ds, id).MerchantName)
	}

	require.Len(t, e.UserIDs, 1)
	u := ds.Users[e.UserIDs[0]-1]
	assert.Equal(t, owner.ID, u.CustomerID)
	assert.False(t, u.IsActive)
	assert.GreaterOrEqual(t, u.FailedLoginAttempts, 35)
	assert.Contains(t, e.Signature, "politically exposed")
}

func TestGenerate_LateJointOwnerPrecedesSpike(t *testing.T) {
	ds := defaultDataset(t)

	seen := 0
	for _, e := range ds.Manifest.ByPattern(domain.PatternRelationship) {
		if e.Variant != "late_joint_owner_transfer_spike" {
			continue
		}
		seen++
		require.Len(t, e.CustomerIDs, 2)
		require.NotNil(t, e.WindowStart)
		primary, newcomer := ds.Customers[e.CustomerIDs[0]-1], ds.Customers[e.CustomerIDs[1]-1]
		assert.NotEqual(t, primary.HouseholdID, newcomer.HouseholdID)
		assert.NotEqual(t, primary.LastName, newcomer.LastName)
		assert.NotEqual(t, primary.ZipCode, newcomer.ZipCode)

		var added *domain.AccountCustomer
		for i, l := range ds.AccountCustomers {
			if l.AccountID == e.AccountIDs[0] && l.CustomerID == newcomer.ID {
				added = &ds.AccountCustomers[i]
			}
		}
		require.NotNil(t, added, "entry %d has no link for customer %d", e.Ordinal, newcomer.ID)
		assert.Equal(t, domain.RoleJoint, added.Role)
		assert.True(t, added.AddedDate.Equal(*e.WindowStart))

		spike := make(map[int64]bool)
		for _, id := range e.TransactionIDs {
			spike[id] = true
			assert.True(t, txByID(ds, id).Timestamp.After(added.AddedDate), "transfer %d precedes the joint link", id)
		}
		payee := txByID(ds, e.TransactionIDs[0]).Counterparty
		for _, tx := range ds.Transactions {
			if tx.Counterparty == payee {
				assert.Truef(t, spike[tx.ID], "counterparty %s also on transaction %d", payee, tx.ID)
			}
		}

		if e.WindowEnd.Before(ds.AsOf.AddDate(0, 0, -4)) {
			require.Len(t, e.ChatIDs, 1)
			assert.Equal(t, primary.ID, ds.ChatHistory[e.ChatIDs[0]-1].CustomerID)
		}
	}
	assert.Equal(t, 2, seen)
}

func TestGenerate_ManifestOrdinalsAreSequential(t *testing.T) {
	ds := defaultDataset(t)
	for _, pt := range domain.Patterns {
		for i, e := range ds.Manifest.ByPattern(pt) {
			assert.Equal(t, i+1, e.Ordinal)
			assert.NotEmpty(t, e.Signature)
		}
	}
}

func TestGenerate_NoPlaintextSecrets(t *testing.T) {
	ds := defaultDataset(t)
	for _, u := range ds.Users {
		assert.Regexp(t, `^pbkdf2_sha256\$2048\$[A-Za-z0-9+/]+\$[A-Za-z0-9+/]+$`, u.PasswordHash)
	}
	for _, c := range ds.Customers {
		assert.Len(t, c.SSNHash, 64)
		assert.Regexp(t, `^\+1\d{10}$`, c.Phone)
	}
}

// ─── Determinism ──────────────────────────────────────────────────────────────

func TestGenerate_SameSeedIsByteIdentical(t *testing.T) {
	first, err := json.Marshal(defaultDataset(t))
	require.NoError(t, err)

	again, err := generate(t, config.Default())
	require.NoError(t, err)
	second, err := json.Marshal(again)
	require.NoError(t, err)

	assert.True(t, string(first) == string(second), "datasets differ between runs with the same seed")
}

func TestGenerate_DifferentSeedDiffers(t *testing.T) {
	cfg := config.Default()
	cfg.PopulationSize = 60
	cfg.MinTransactions = 500
	cfg.AnomalyCounts = config.AnomalyCounts{}

	a, err := generate(t, cfg)
	require.NoError(t, err)
	cfg.Seed = 7
	b, err := generate(t, cfg)
	require.NoError(t, err)

	assert.NotEqual(t, a.Customers[0].FirstName+a.Customers[0].LastName+a.Customers[1].LastName,
		b.Customers[0].FirstName+b.Customers[0].LastName+b.Customers[1].LastName)
}

// ─── Failure modes ────────────────────────────────────────────────────────────

func TestGenerate_TinyPopulation_ReturnsGenerationExhausted(t *testing.T) {
	cfg := config.Default()
	cfg.PopulationSize = 5
	cfg.MinTransactions = 0
	cfg.AnomalyCounts = config.AnomalyCounts{Relationship: 50}

	ds, err := generate(t, cfg)
	require.Error(t, err)
	assert.Nil(t, ds)
	assert.True(t, errors.Is(err, generator.ErrGenerationExhausted))

	var exhausted *generator.GenerationExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, domain.PatternRelationship, exhausted.Pattern)
	assert.Equal(t, 50, exhausted.Requested)
	assert.Less(t, exhausted.Available, 50)
}

func TestNew_InvalidConfig_ReturnsConfigurationError(t *testing.T) {
	cfg := config.Default()
	cfg.PopulationSize = 1

	_, err := generator.New(cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, generator.ErrConfiguration))
	assert.False(t, errors.Is(err, generator.ErrGenerationExhausted))
}

func TestNew_SubDollarThreshold_ReturnsConfigurationError(t *testing.T) {
	cfg := config.Default()
	cfg.ReportingThreshold = 0.01

	_, err := generator.New(cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, generator.ErrConfiguration))
}

func TestGenerate_CancelledContext_Stops(t *testing.T) {
	a, err := generator.New(config.Default(), generator.WithLogger(quiet))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ds, err := a.Generate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, ds)
}

// ─── Top-up ───────────────────────────────────────────────────────────────────

func TestGenerate_SmallPopulation_TopsUpToMinimum(t *testing.T) {
	cfg := config.Default()
	cfg.PopulationSize = 20
	cfg.MinTransactions = 3000
	cfg.AnomalyCounts = config.AnomalyCounts{}

	ds, err := generate(t, cfg)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(ds.Transactions), 3000)
	assert.Empty(t, ds.Manifest.Entries)

	refunds := 0
	for _, tx := range ds.Transactions {
		if tx.Category == "REFUND" {
			refunds++
		}
	}
	assert.Positive(t, refunds)
}
