package generator

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"vaultline/bankfixture/internal/domain"
)

const secondJointRate = 0.10

// relationshipBuilder links accounts to their owners and turns a share of
// accounts into joint or beneficiary accounts.
type relationshipBuilder struct {
	rng *source
	log *slog.Logger

	byHousehold map[int64][]int64
	bySurname   map[string][]int64
	byZip       map[string][]int64
	byStreet    map[string][]int64
}

func newRelationshipBuilder(seed int64, log *slog.Logger) *relationshipBuilder {
	return &relationshipBuilder{rng: newSource(seed, streamRelationships), log: log}
}

func (b *relationshipBuilder) build(p *population) error {
	b.index(p)

	for i := range p.accounts {
		a := &p.accounts[i]
		p.addLink(domain.AccountCustomer{
			AccountID:  a.ID,
			CustomerID: p.creatorOf(a.ID),
			Role:       domain.RolePrimary,
			AddedDate:  a.OpenedDate,
		})
	}

	joint := b.assignJoint(p)
	beneficiaries := b.assignBeneficiaries(p)

	if err := checkOwnership(p); err != nil {
		return err
	}
	b.log.Info("ownership assigned",
		"links", len(p.links),
		"joint_accounts", joint,
		"beneficiaries", beneficiaries,
	)
	return nil
}

func (b *relationshipBuilder) index(p *population) {
	b.byHousehold = make(map[int64][]int64)
	b.bySurname = make(map[string][]int64)
	b.byZip = make(map[string][]int64)
	b.byStreet = make(map[string][]int64)
	for i := range p.customers {
		c := &p.customers[i]
		b.byHousehold[c.HouseholdID] = append(b.byHousehold[c.HouseholdID], c.ID)
		b.bySurname[c.LastName] = append(b.bySurname[c.LastName], c.ID)
		b.byZip[c.ZipCode] = append(b.byZip[c.ZipCode], c.ID)
		b.byStreet[streetName(c.Address)] = append(b.byStreet[streetName(c.Address)], c.ID)
	}
}

// streetName drops the house number from an address line.
func streetName(address string) string {
	if i := strings.IndexByte(address, ' '); i >= 0 {
		return address[i+1:]
	}
	return address
}

// ─── Joint ownership ──────────────────────────────────────────────────────────

func (b *relationshipBuilder) assignJoint(p *population) int {
	var eligible []int64
	for i := range p.accounts {
		a := &p.accounts[i]
		if a.Type == domain.AccountChecking || a.Type == domain.AccountSavings {
			eligible = append(eligible, a.ID)
		}
	}
	want := int(math.Round(p.cfg.JointFraction * float64(len(p.accounts))))
	want = min(want, len(eligible))

	made := 0
	for _, pi := range b.rng.Perm(len(eligible)) {
		if made == want {
			break
		}
		a := p.account(eligible[pi])
		co, ok := b.coOwner(p, a)
		if !ok {
			continue
		}
		b.link(p, a, co, domain.RoleJoint)
		if b.rng.chance(secondJointRate) {
			if third, ok := b.coOwner(p, a); ok {
				b.link(p, a, third, domain.RoleJoint)
			}
		}
		made++
	}
	return made
}

// coOwner picks the most plausible partner for an account: a household
// member, then a namesake, then a neighbour by zip or street, then anyone.
func (b *relationshipBuilder) coOwner(p *population, a *domain.Account) (int64, bool) {
	primary := p.customer(p.creatorOf(a.ID))
	until := a.ActiveUntil(p.asOf)

	usable := func(id int64) bool {
		return !p.linked(a.ID, id) && p.customer(id).CustomerSince.Before(until)
	}
	tiers := [][]int64{
		b.byHousehold[primary.HouseholdID],
		b.bySurname[primary.LastName],
		b.byZip[primary.ZipCode],
		b.byStreet[streetName(primary.Address)],
	}
	for _, tier := range tiers {
		var cands []int64
		for _, id := range tier {
			if usable(id) {
				cands = append(cands, id)
			}
		}
		if len(cands) > 0 {
			return pick(b.rng, cands), true
		}
	}

	for _, i := range b.rng.Perm(len(p.customers)) {
		if id := int64(i + 1); usable(id) {
			return id, true
		}
	}
	return 0, false
}

func (b *relationshipBuilder) link(p *population, a *domain.Account, customerID int64, role domain.OwnerRole) {
	from := maxTime(a.OpenedDate, p.customer(customerID).CustomerSince)
	to := minTime(a.ActiveUntil(p.asOf), from.AddDate(2, 0, 0))
	p.addLink(domain.AccountCustomer{
		AccountID:  a.ID,
		CustomerID: customerID,
		Role:       role,
		AddedDate:  b.rng.timeBetween(from, to),
	})
}

// ─── Beneficiaries ────────────────────────────────────────────────────────────

func (b *relationshipBuilder) assignBeneficiaries(p *population) int {
	var eligible []int64
	for i := range p.accounts {
		a := &p.accounts[i]
		if a.Type == domain.AccountSavings || a.Type == domain.AccountCD {
			eligible = append(eligible, a.ID)
		}
	}
	want := int(math.Round(p.cfg.BeneficiaryFraction * float64(len(p.accounts))))
	want = min(want, len(eligible))

	made := 0
	for _, pi := range b.rng.Perm(len(eligible)) {
		if made == want {
			break
		}
		a := p.account(eligible[pi])
		who, ok := b.coOwner(p, a)
		if !ok {
			continue
		}
		b.link(p, a, who, domain.RoleBeneficiary)
		made++
	}
	return made
}

// ─── Cardinality ──────────────────────────────────────────────────────────────

// checkOwnership enforces that every account has a primary owner and that
// any account with a joint owner has at least two owners.
func checkOwnership(p *population) error {
	var violations []string
	for i := range p.accounts {
		id := p.accounts[i].ID
		primaries, joints := 0, 0
		for _, li := range p.linksByAccount[id] {
			switch p.links[li].Role {
			case domain.RolePrimary:
				primaries++
			case domain.RoleJoint:
				joints++
			}
		}
		if primaries < 1 {
			violations = append(violations, fmt.Sprintf("account %d has no primary owner", id))
		}
		if joints > 0 && primaries+joints < 2 {
			violations = append(violations, fmt.Sprintf("joint account %d has fewer than two owners", id))
		}
	}
	if len(violations) > 0 {
		return &IntegrityError{Violations: violations}
	}
	return nil
}

// isJoint reports whether the account has two or more owners.
func isJoint(p *population, accountID int64) bool {
	return len(p.owners(accountID)) >= 2
}
