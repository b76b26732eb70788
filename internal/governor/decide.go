package governor

import (
	"time"

	"github.com/talgya/idle-empire/internal/entropy"
	"github.com/talgya/idle-empire/internal/realm"
)

// DecisionType is the kind of action a governor takes.
type DecisionType string

const (
	Build    DecisionType = "BUILD"
	Research DecisionType = "RESEARCH"
	Wait     DecisionType = "WAIT"
)

// maxJitter breaks ties between near-equal candidates.
const maxJitter = 0.05

// Decision is the governor's choice for one cycle.
type Decision struct {
	Type         DecisionType
	Building     realm.BuildingType
	FromLevel    int
	ToLevel      int
	TechnologyID string
	Cost         realm.Resources
	Duration     time.Duration
	Score        float64
}

type candidate struct {
	Decision
	priority float64
}

// Decide picks the best affordable BUILD or RESEARCH action for the
// province's governor. Buildings are checked against the province's own
// stock, research against the empire pool. It returns WAIT when the province
// has no governor or nothing is affordable.
func Decide(p *realm.Province, empire *realm.Empire, rules *Rules, src entropy.Source) Decision {
	if p.Governor == nil {
		return Decision{Type: Wait}
	}
	traits := p.Governor.Traits()

	var cands []candidate
	for _, spec := range rules.Buildings {
		level := p.BuildingLevel(spec.Type)
		if level >= spec.MaxLevel || p.IsBuilding(spec.Type) {
			continue
		}
		cost := spec.UpgradeCost(level)
		if !p.Resources.Covers(cost) {
			continue
		}
		cands = append(cands, candidate{
			Decision: Decision{
				Type:      Build,
				Building:  spec.Type,
				FromLevel: level,
				ToLevel:   level + 1,
				Cost:      cost,
				Duration:  spec.UpgradeTime(level),
			},
			priority: traits.BuildPriority[spec.Type] / float64(level+1),
		})
	}

	if empire != nil {
		library := p.BuildingLevel(realm.Library)
		for _, tech := range rules.Technologies {
			if !researchable(tech, empire, library) || !empire.Totals.Covers(tech.Cost) {
				continue
			}
			cands = append(cands, candidate{
				Decision: Decision{
					Type:         Research,
					TechnologyID: tech.ID,
					Cost:         tech.Cost,
					Duration:     tech.ResearchTime(),
				},
				priority: traits.ResearchPriority,
			})
		}
	}

	best := Decision{Type: Wait}
	bestScore := -1.0
	for _, c := range cands {
		score := c.priority + entropy.Range(src, 0, maxJitter)
		if score > bestScore {
			best = c.Decision
			best.Score = score
			bestScore = score
		}
	}
	return best
}

func researchable(t Technology, empire *realm.Empire, libraryLevel int) bool {
	if empire.HasResearched(t.ID) || empire.IsResearching(t.ID) {
		return false
	}
	if libraryLevel < t.RequiredLibraryLevel {
		return false
	}
	for _, pre := range t.Prerequisites {
		if !empire.HasResearched(pre) {
			return false
		}
	}
	return true
}
