package governor

import (
	"fmt"

	"github.com/talgya/idle-empire/internal/entropy"
	"github.com/talgya/idle-empire/internal/realm"
)

// Deduction is what one province pays toward an empire-wide cost.
type Deduction struct {
	ProvinceID string
	Resources  realm.Resources
}

// PlanDeduction spreads cost greedily across stocks in order: each resource
// is drained from the first province until covered, then the next. It
// returns realm.ErrInsufficientResources when the pool cannot cover cost.
func PlanDeduction(cost realm.Resources, stocks []realm.ProvinceStock) ([]Deduction, error) {
	pool := realm.Resources{}
	for _, s := range stocks {
		pool = pool.Add(s.Resources)
	}
	if !pool.Covers(cost) {
		return nil, fmt.Errorf("plan deduction of %s: %w", cost, realm.ErrInsufficientResources)
	}

	remaining := cost.Clone()
	var plan []Deduction
	for _, s := range stocks {
		take := realm.Resources{}
		for _, r := range realm.AllResourceTypes() {
			need := remaining[r]
			if need <= 0 {
				continue
			}
			n := min(need, s.Resources.Get(r))
			if n <= 0 {
				continue
			}
			take[r] = n
			remaining[r] -= n
		}
		if len(take) > 0 {
			plan = append(plan, Deduction{ProvinceID: s.ProvinceID, Resources: take})
		}
	}
	return plan, nil
}

// Progression gains.
const (
	buildXPPerLevel = 10
	researchXP      = 25
)

// BuildXP is the experience for starting an upgrade to toLevel.
func BuildXP(toLevel int) int { return buildXPPerLevel * toLevel }

// ResearchXP is the experience for starting research.
func ResearchXP() int { return researchXP }

// BuildLoyalty draws the loyalty gain for a build, 1–5.
func BuildLoyalty(src entropy.Source) int { return entropy.Between(src, 1, 5) }

// ResearchLoyalty draws the loyalty gain for research, 2–4.
func ResearchLoyalty(src entropy.Source) int { return entropy.Between(src, 2, 4) }
