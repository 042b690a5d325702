package generator

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"vaultline/bankfixture/internal/domain"
)

const (
	variantLateJointOwner = "late_joint_owner_transfer_spike"
	variantSharedDevice   = "shared_device_fingerprint"

	minSpikeHeadroom   = 1500
	minSiphonHeadroom  = 1000
	jointAccountMinAge = 90 * day
)

// plantRelationship alternates two identity-risk signals over distinct joint
// accounts: a late, unrelated joint owner followed by a burst of transfers
// to a brand-new payee, and an unrelated customer's login sharing a joint
// owner's device fingerprint.
func (in *injector) plantRelationship(p *population, count int) ([]domain.ManifestEntry, error) {
	var eligible []int64
	for i := range p.accounts {
		a := &p.accounts[i]
		if (a.Type == domain.AccountChecking || a.Type == domain.AccountSavings) &&
			isJoint(p, a.ID) && openAccount(p, a, jointAccountMinAge) && !in.usedAccounts[a.ID] {
			eligible = append(eligible, a.ID)
		}
	}

	var entries []domain.ManifestEntry
	queue := in.rng.Perm(len(eligible))
	for len(entries) < count && len(queue) > 0 {
		a := p.account(eligible[queue[0]])
		queue = queue[1:]

		var (
			entry domain.ManifestEntry
			ok    bool
			err   error
		)
		if len(entries)%2 == 0 {
			if entry, ok, err = in.lateJointOwner(p, a); err != nil {
				return nil, err
			}
		} else {
			entry, ok = in.sharedDevice(p, a)
		}
		if ok {
			in.usedAccounts[a.ID] = true
			entries = append(entries, entry)
		}
	}

	if len(entries) < count {
		return nil, &GenerationExhaustedError{
			Pattern:   domain.PatternRelationship,
			Requested: count,
			Available: len(entries),
			Reason:    "open joint accounts with funds and an unrelated counterpart customer",
		}
	}
	return entries, nil
}

// lateJointOwner adds an unrelated joint owner and, days later, drains part
// of the balance to a counterparty the dataset has never seen, from the new
// owner's device. The original primary owner then opens a dispute.
func (in *injector) lateJointOwner(p *population, a *domain.Account) (domain.ManifestEntry, bool, error) {
	owners := p.owners(a.ID)
	lo := maxTime(p.asOf.Add(-120*day), p.activeFrom(a).Add(30*day))
	hi := p.asOf.Add(-20 * day)
	if !lo.Before(hi) {
		return domain.ManifestEntry{}, false, nil
	}
	added := in.rng.atBusinessHours(in.rng.timeBetween(lo, hi), 9, 17)

	newcomer, ok := in.unrelatedCustomer(p, owners, added, nil)
	if !ok {
		return domain.ManifestEntry{}, false, nil
	}
	user, _ := p.loginUser(newcomer.ID)

	spikeStart := in.rng.atBusinessHours(added.AddDate(0, 0, in.rng.intBetween(1, 10)), 8, 22)
	room := p.headroom(a.ID, spikeStart)
	if room.LessThan(decimal.NewFromInt(minSpikeHeadroom)) {
		return domain.ManifestEntry{}, false, nil
	}

	n := in.rng.intBetween(4, 7)
	amounts := in.split(room.Mul(decimal.NewFromFloat(in.rng.between(0.6, 0.85))), n)
	payee := p.freshCounterparty(in.rng)

	p.addLink(domain.AccountCustomer{
		AccountID:  a.ID,
		CustomerID: newcomer.ID,
		Role:       domain.RoleJoint,
		AddedDate:  added,
	})

	ids := make([]int64, 0, n)
	at := spikeStart
	for j, amt := range amounts {
		if j > 0 {
			at = at.Add(time.Duration(in.rng.intBetween(2, 20)) * time.Hour)
		}
		ids = append(ids, in.record(p, domain.Transaction{
			AccountID:    a.ID,
			Type:         domain.TxTransfer,
			Amount:       amt.Neg(),
			Timestamp:    at,
			Description:  "TRANSFER - To " + payee,
			Category:     "TRANSFER",
			MerchantName: "External Transfer",
			Counterparty: payee,
			IPAddress:    p.homeIP[newcomer.ID],
			DeviceID:     user.DeviceFingerprint,
		}))
	}
	if user.LastLogin.Before(at) {
		user.LastLogin = at
	}
	total := sumAmounts(amounts)

	primary := p.customer(owners[0])
	entry := domain.ManifestEntry{
		Variant:        variantLateJointOwner,
		CustomerIDs:    []int64{primary.ID, newcomer.ID},
		AccountIDs:     []int64{a.ID},
		TransactionIDs: ids,
		UserIDs:        []int64{user.ID},
		WindowStart:    timePtr(added),
		WindowEnd:      timePtr(at),
		TotalAmount:    decimalPtr(total),
	}

	disputeAt := in.rng.atBusinessHours(at.AddDate(0, 0, in.rng.intBetween(1, 3)), 9, 18)
	if disputeAt.Before(p.asOf.Add(-2 * time.Hour)) {
		chatID, err := in.chats.add(p, primary, disputeAt, topicDispute,
			in.rng.between(-0.6, -0.3), resolutionEscalated,
			"I don't recognize several transfers that left our joint account this week",
			"I can see the transfers you mean. I am escalating this to our fraud team now.",
			"Please stop any further transfers. Nobody else should have access to this account.",
		)
		if err != nil {
			return domain.ManifestEntry{}, false, fmt.Errorf("dispute chat for account %s: %w", a.AccountNumber, err)
		}
		entry.ChatIDs = []int64{chatID}
	}

	newcomer.RiskRating = newcomer.RiskRating.Elevate()
	in.flag(p, domain.PatternRelationship, primary.ID, newcomer.ID)

	entry.Signature = fmt.Sprintf(
		"Customer %d was added as a joint owner of account %s on %s without sharing a household, surname or zip code with the existing owners; "+
			"%d day(s) later the account sent %d transfers totalling $%s to %s, a counterparty with no earlier history, "+
			"all from device %s registered to the new owner.",
		newcomer.ID, a.AccountNumber, stamp(added), daysBetween(truncateDay(added), truncateDay(spikeStart)),
		n, total.StringFixed(2), payee, user.DeviceFingerprint,
	)
	return entry, true, nil
}

// sharedDevice gives an unrelated customer's login the device fingerprint of
// a joint owner, then moves money from the joint account to that customer
// through the shared device while the owner's login records failed attempts.
func (in *injector) sharedDevice(p *population, a *domain.Account) (domain.ManifestEntry, bool) {
	owners := p.owners(a.ID)
	var (
		victim     *domain.Customer
		victimUser *domain.User
	)
	for _, id := range owners {
		if u, ok := p.loginUser(id); ok {
			victim, victimUser = p.customer(id), u
			break
		}
	}
	if victim == nil {
		return domain.ManifestEntry{}, false
	}

	first := in.rng.atBusinessHours(in.rng.timeBetween(p.asOf.Add(-75*day), p.asOf.Add(-20*day)), 1, 5)
	room := p.headroom(a.ID, first)
	if room.LessThan(decimal.NewFromInt(minSiphonHeadroom)) {
		return domain.ManifestEntry{}, false
	}

	var dest *domain.Account
	other, ok := in.unrelatedCustomer(p, owners, first, func(c *domain.Customer) bool {
		for _, id := range p.primaryAccounts(c.ID) {
			b := p.account(id)
			if b.Type != domain.AccountCD && openAccount(p, b, jointAccountMinAge) && !in.usedAccounts[b.ID] {
				dest = b
				return true
			}
		}
		return false
	})
	if !ok {
		return domain.ManifestEntry{}, false
	}
	otherUser, _ := p.loginUser(other.ID)

	shared := victimUser.DeviceFingerprint
	otherUser.DeviceFingerprint = shared
	spike := in.rng.intBetween(8, 25)
	victimUser.FailedLoginAttempts += spike

	n := in.rng.intBetween(2, 4)
	amounts := in.split(room.Mul(decimal.NewFromFloat(in.rng.between(0.3, 0.5))), n)
	debits := make([]int64, 0, n)
	credits := make([]int64, 0, n)
	at := first
	for j, amt := range amounts {
		if j > 0 {
			at = in.rng.atBusinessHours(at.AddDate(0, 0, in.rng.intBetween(2, 6)), 1, 5)
		}
		debitID := in.record(p, domain.Transaction{
			AccountID:    a.ID,
			Type:         domain.TxTransfer,
			Amount:       amt.Neg(),
			Timestamp:    at,
			Description:  "TRANSFER - To account " + maskNumber(dest.AccountNumber),
			Category:     "TRANSFER",
			MerchantName: merchantPeerTransfer,
			Counterparty: dest.AccountNumber,
			IPAddress:    p.homeIP[other.ID],
			DeviceID:     shared,
		})
		credits = append(credits, in.record(p, domain.Transaction{
			AccountID:            dest.ID,
			Type:                 domain.TxDeposit,
			Amount:               amt,
			Timestamp:            at,
			Description:          "TRANSFER - From account " + maskNumber(a.AccountNumber),
			Category:             "TRANSFER",
			MerchantName:         merchantPeerTransfer,
			Counterparty:         a.AccountNumber,
			RelatedTransactionID: int64Ptr(debitID),
		}))
		debits = append(debits, debitID)
	}
	if otherUser.LastLogin.Before(at) {
		otherUser.LastLogin = at
	}
	in.usedAccounts[dest.ID] = true
	total := sumAmounts(amounts)

	in.flag(p, domain.PatternRelationship, victim.ID, other.ID)

	return domain.ManifestEntry{
		Variant:               variantSharedDevice,
		CustomerIDs:           []int64{victim.ID, other.ID},
		AccountIDs:            []int64{a.ID, dest.ID},
		TransactionIDs:        debits,
		RelatedTransactionIDs: credits,
		UserIDs:               []int64{victimUser.ID, otherUser.ID},
		WindowStart:           timePtr(first),
		WindowEnd:             timePtr(at),
		TotalAmount:           decimalPtr(total),
		Signature: fmt.Sprintf(
			"Users %s (customer %d, owner of joint account %s) and %s (customer %d) carry the same device fingerprint %s "+
				"although the customers share no household, surname or zip code; %d overnight transfers totalling $%s "+
				"moved from the joint account to account %s held by customer %d from that device, and user %s shows %d failed logins.",
			victimUser.Username, victim.ID, a.AccountNumber, otherUser.Username, other.ID, shared,
			n, total.StringFixed(2), dest.AccountNumber, other.ID, victimUser.Username, victimUser.FailedLoginAttempts,
		),
	}, true
}
