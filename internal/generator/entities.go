package generator

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/nyaruka/phonenumbers"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/pbkdf2"

	"vaultline/bankfixture/internal/domain"
)

const (
	minPopulation      = 2
	passwordIterations = 2048
	legacyLoginRate    = 0.03
	pepRate            = 0.01
	lockedLoginRate    = 0.006
)

// entityFactory creates banks, customers, users and accounts.
type entityFactory struct {
	rng  *source
	fake *gofakeit.Faker
	log  *slog.Logger
}

func newEntityFactory(seed int64, log *slog.Logger) *entityFactory {
	return &entityFactory{
		rng:  newSource(seed, streamEntities),
		fake: gofakeit.New(streamSeed(seed, streamFaker)),
		log:  log,
	}
}

func (f *entityFactory) build(p *population) error {
	if p.cfg.PopulationSize < minPopulation {
		return &ConfigurationError{Reason: fmt.Sprintf("population_size %d is below the minimum of %d", p.cfg.PopulationSize, minPopulation)}
	}
	if p.cfg.BankCount > len(bankCatalog) {
		return &ConfigurationError{Reason: fmt.Sprintf("bank_count %d exceeds the %d known banks", p.cfg.BankCount, len(bankCatalog))}
	}

	f.buildBanks(p)
	f.buildCustomers(p)
	f.buildUsers(p)
	f.buildAccounts(p)

	f.log.Info("entities created",
		"banks", len(p.banks),
		"customers", len(p.customers),
		"households", p.nextHousehold,
		"users", len(p.users),
		"legacy_logins", p.legacyUserCount,
		"accounts", len(p.accounts),
	)
	return nil
}

// ─── Banks ────────────────────────────────────────────────────────────────────

func (f *entityFactory) buildBanks(p *population) {
	for i, spec := range bankCatalog[:p.cfg.BankCount] {
		p.banks = append(p.banks, domain.Bank{
			ID:               int64(i + 1),
			Name:             spec.name,
			SwiftCode:        spec.swift,
			RoutingCode:      f.routingNumber(),
			Country:          "USA",
			HeadquartersCity: spec.city,
			EstablishedDate:  spec.established,
			IsActive:         true,
		})
	}
}

// routingNumber returns a nine-digit ABA routing number with a valid check
// digit.
func (f *entityFactory) routingNumber() string {
	var d [9]int
	district := f.rng.intBetween(1, 12)
	d[0], d[1] = district/10, district%10
	for i := 2; i < 8; i++ {
		d[i] = f.rng.Intn(10)
	}
	sum := 3*(d[0]+d[3]+d[6]) + 7*(d[1]+d[4]+d[7]) + d[2] + d[5]
	d[8] = (10 - sum%10) % 10

	var b strings.Builder
	for _, v := range d {
		b.WriteByte(byte('0' + v))
	}
	return b.String()
}

// ─── Customers ────────────────────────────────────────────────────────────────

var (
	riskWeights    = []int{70, 25, 5}
	riskRatings    = []domain.RiskRating{domain.RiskLow, domain.RiskMedium, domain.RiskHigh}
	profileWeights = []int{35, 45, 20}
	profiles       = []domain.SpendingProfile{domain.ProfileConservative, domain.ProfileModerate, domain.ProfileActive}
)

func (f *entityFactory) buildCustomers(p *population) {
	n := p.cfg.PopulationSize
	// One long-standing PEP whose declared income is modest.
	notablePEP := -1
	if n >= 10 {
		notablePEP = n / 2
	}

	for i := 0; i < n; i++ {
		id := int64(i + 1)
		c := domain.Customer{
			ID:               id,
			FirstName:        f.fake.FirstName(),
			DateOfBirth:      f.birthDate(p),
			CustomerSince:    f.rng.timeBetween(p.asOf.AddDate(-10, 0, 0), p.asOf.AddDate(0, 0, -90)),
			CreditScore:      f.creditScore(),
			AnnualIncome:     f.rng.money(62000, 0.55, 18000, 450000),
			EmploymentStatus: pick(f.rng, employmentStatuses),
			IsPEP:            f.rng.chance(pepRate),
			RiskRating:       riskRatings[f.rng.weighted(riskWeights)],
			SpendingProfile:  profiles[f.rng.weighted(profileWeights)],
		}
		c.CustomerSince = truncateDay(c.CustomerSince)

		if i > 0 && f.rng.chance(p.cfg.HouseholdFraction) {
			prev := &p.customers[i-1]
			c.HouseholdID = prev.HouseholdID
			c.LastName = prev.LastName
			c.Address, c.City, c.State, c.ZipCode = prev.Address, prev.City, prev.State, prev.ZipCode
		} else {
			p.nextHousehold++
			c.HouseholdID = p.nextHousehold
			c.LastName = f.fake.LastName()
			c.Address = f.fake.Street()
			c.City = f.fake.City()
			c.State = f.fake.StateAbr()
			c.ZipCode = f.fake.Zip()
		}

		if i == notablePEP {
			c.IsPEP = true
			c.AnnualIncome = f.rng.money(85000, 0.25, 55000, 140000).Round(0)
			c.EmploymentStatus = "self_employed"
			c.CustomerSince = truncateDay(f.rng.timeBetween(p.asOf.AddDate(-10, 0, 0), p.asOf.AddDate(-3, 0, 0)))
			p.notablePEP = id
		}
		if c.IsPEP {
			c.RiskRating = domain.RiskHigh
		}

		ssn := fmt.Sprintf("%s-%d", f.fake.SSN(), id)
		sum := sha256.Sum256([]byte(ssn))
		c.SSNHash = hex.EncodeToString(sum[:])
		c.Email = f.email(&c)
		c.Phone = f.phone()

		p.customers = append(p.customers, c)
		p.homeIP[id] = f.fake.IPv4Address()
	}
}

// birthDate keeps every customer at least 18 when they joined the bank.
func (f *entityFactory) birthDate(p *population) time.Time {
	age := f.rng.intBetween(28, 85)
	born := p.asOf.AddDate(-age, 0, -f.rng.Intn(365))
	return truncateDay(born)
}

func (f *entityFactory) creditScore() int {
	score := 690 + int(70*f.rng.NormFloat64())
	return min(850, max(300, score))
}

func (f *entityFactory) email(c *domain.Customer) string {
	local := fmt.Sprintf("%s.%s%d", emailToken(c.FirstName), emailToken(c.LastName), c.ID)
	return local + "@" + pick(f.rng, emailDomains)
}

func emailToken(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "x"
	}
	return b.String()
}

// phone returns a US number in E.164 form.
func (f *entityFactory) phone() string {
	national := fmt.Sprintf("(%d) %d-%04d", f.rng.intBetween(201, 989), f.rng.intBetween(200, 999), f.rng.Intn(10000))
	num, err := phonenumbers.Parse(national, "US")
	if err != nil {
		return national
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

// ─── Users ────────────────────────────────────────────────────────────────────

var failedLoginWeights = []int{80, 15, 4, 1}

func (f *entityFactory) buildUsers(p *population) {
	for i := range p.customers {
		c := &p.customers[i]
		username := emailToken(c.FirstName)[:1] + emailToken(c.LastName) + fmt.Sprint(c.ID)

		created := f.rng.timeBetween(maxTime(c.CustomerSince, p.asOf.AddDate(-8, 0, 0)), p.asOf.AddDate(0, 0, -30))
		u := domain.User{
			CustomerID:          c.ID,
			Username:            username,
			PasswordHash:        f.passwordHash(),
			DeviceFingerprint:   "dev_" + f.rng.hex(16),
			CreatedAt:           created,
			LastLogin:           f.rng.timeBetween(maxTime(created, p.asOf.AddDate(0, 0, -60)), p.asOf),
			IsActive:            true,
			FailedLoginAttempts: f.rng.weighted(failedLoginWeights),
			TwoFactorEnabled:    f.rng.chance(0.25),
		}

		// A retired login from before the current one was issued.
		var legacy *domain.User
		if f.rng.chance(legacyLoginRate) && created.Sub(c.CustomerSince) > 30*day {
			oldCreated := f.rng.timeBetween(c.CustomerSince, created.Add(-14*day))
			legacy = &domain.User{
				CustomerID:        c.ID,
				Username:          username + "_old",
				PasswordHash:      f.passwordHash(),
				DeviceFingerprint: "dev_" + f.rng.hex(16),
				CreatedAt:         oldCreated,
				LastLogin:         f.rng.timeBetween(oldCreated, created),
				IsActive:          false,
			}
		}

		// Locked out after repeated bad passwords.
		if f.rng.chance(lockedLoginRate) && c.ID != p.notablePEP {
			u.IsActive = false
			u.FailedLoginAttempts = f.rng.intBetween(10, 60)
		}

		if legacy != nil {
			p.addUser(*legacy)
			p.legacyUserCount++
		}
		p.addUser(u)
	}
}

// passwordHash returns a PBKDF2-SHA256 hash of a random throwaway password in
// the usual algorithm$iterations$salt$hash layout.
func (f *entityFactory) passwordHash() string {
	salt := make([]byte, 16)
	for i := range salt {
		salt[i] = byte(f.rng.Intn(256))
	}
	secret := f.rng.hex(24)
	key := pbkdf2.Key([]byte(secret), salt, passwordIterations, 32, sha256.New)
	return fmt.Sprintf("pbkdf2_sha256$%d$%s$%s",
		passwordIterations,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

// ─── Accounts ─────────────────────────────────────────────────────────────────

var (
	accountTypes     = []domain.AccountType{domain.AccountChecking, domain.AccountSavings, domain.AccountMoneyMarket, domain.AccountCD}
	statusWeights    = []int{93, 4, 3}
	statuses         = []domain.AccountStatus{domain.AccountActive, domain.AccountFrozen, domain.AccountClosed}
	overdraftLimits  = []int64{0, 500, 1000}
	interestRanges   = map[domain.AccountType][2]float64{domain.AccountSavings: {0.01, 0.05}, domain.AccountMoneyMarket: {0.02, 0.06}, domain.AccountCD: {0.03, 0.07}}
	accountNumberGap = int64(37)
)

func (f *entityFactory) buildAccounts(p *population) {
	for i := range p.customers {
		c := &p.customers[i]
		n := f.rng.weighted(p.cfg.AccountWeights) + 1
		for j := 0; j < n; j++ {
			id := int64(len(p.accounts) + 1)
			a := domain.Account{
				ID:             id,
				AccountNumber:  fmt.Sprintf("%010d", 1_000_000_000+id*accountNumberGap+f.rng.Int63n(accountNumberGap)),
				BankID:         int64(f.rng.Intn(len(p.banks)) + 1),
				Type:           pick(f.rng, accountTypes),
				Balance:        decimal.Zero,
				Currency:       "USD",
				OpenedDate:     f.rng.timeBetween(c.CustomerSince, p.asOf.AddDate(0, 0, -30)),
				Status:         statuses[f.rng.weighted(statusWeights)],
				InterestRate:   decimal.Zero,
				OverdraftLimit: decimal.Zero,
			}
			if c.ID == p.notablePEP && j == 0 {
				a.Type, a.Status = domain.AccountChecking, domain.AccountActive
				a.OpenedDate = f.rng.timeBetween(c.CustomerSince, p.asOf.AddDate(0, 0, -180))
			}

			if r, ok := interestRanges[a.Type]; ok {
				a.InterestRate = decimal.NewFromFloat(f.rng.between(r[0], r[1])).Round(4)
			}
			if a.Type == domain.AccountChecking {
				a.OverdraftLimit = decimal.NewFromInt(pick(f.rng, overdraftLimits))
			}
			if a.Status == domain.AccountClosed {
				from := maxTime(a.OpenedDate.Add(90*day), p.windowStart.Add(30*day))
				to := p.asOf.Add(-7 * day)
				if from.Before(to) {
					a.ClosedDate = timePtr(f.rng.timeBetween(from, to))
				} else {
					a.Status = domain.AccountActive
				}
			}

			p.accounts = append(p.accounts, a)
			p.creator = append(p.creator, c.ID)
		}
	}
}
