package combat

import (
	"math"

	"github.com/talgya/idle-empire/internal/entropy"
	"github.com/talgya/idle-empire/internal/realm"
)

// Outcome is the defender's result.
type Outcome string

const (
	Victory Outcome = "VICTORY"
	Draw    Outcome = "DRAW"
	Defeat  Outcome = "DEFEAT"
)

// Score thresholds. Each tier includes its lower edge.
const (
	VictoryThreshold = 1.3
	DrawThreshold    = 0.8
	maxCertainty     = 0.95
)

// Result is the immutable product of one engagement.
type Result struct {
	Outcome          Outcome `json:"outcome"`
	Score            float64 `json:"score"`
	VictoryCertainty float64 `json:"victory_certainty"`
	Factors          Factors `json:"factors"`

	DefenderCasualties   int `json:"defender_casualties"`
	AttackerCasualties   int `json:"attacker_casualties"`
	InfrastructureDamage int `json:"infrastructure_damage"`

	ResourcesGained realm.Resources `json:"resources_gained,omitempty"`
	ResourcesLost   realm.Resources `json:"resources_lost,omitempty"`

	GovernorXP      int `json:"governor_xp"`
	GovernorLoyalty int `json:"governor_loyalty"`
	MoraleDelta     int `json:"morale_delta"`

	Narrative string `json:"narrative"`
}

// NetResources returns gains minus losses per resource.
func (r Result) NetResources() realm.Resources {
	return r.ResourcesGained.Add(r.ResourcesLost.Negate()).Compact()
}

// Resolve fights enemy against defense, drawing the stochastic factors from src.
func Resolve(enemy *EnemyForce, defense DefenseForce, src entropy.Source) Result {
	return ResolveWithFactors(enemy, defense, ComputeFactors(enemy, defense, src))
}

// ResolveWithFactors resolves an engagement from precomputed factors.
func ResolveWithFactors(enemy *EnemyForce, defense DefenseForce, f Factors) Result {
	score := f.Total()
	outcome, certainty := Classify(score)

	r := Result{
		Outcome:          outcome,
		Score:            score,
		VictoryCertainty: certainty,
		Factors:          f,
	}

	strength := float64(enemy.Strength)
	r.DefenderCasualties = int(math.Floor(strength / 4 * defenderLossMultiplier(outcome) * (1 - certainty*0.3)))
	r.AttackerCasualties = int(math.Floor(strength * attackerLossMultiplier(outcome) * certainty))
	r.InfrastructureDamage = int(math.Floor(strength * 0.1 * infrastructureMultiplier(outcome)))

	r.ResourcesGained, r.ResourcesLost = resourceDeltas(enemy, outcome, certainty, r.InfrastructureDamage)

	if defense.HasGovernor && defense.GovernorBonus > 0 {
		r.GovernorXP, r.GovernorLoyalty = governorDeltas(enemy.ThreatLevel, outcome, certainty)
		r.MoraleDelta = moraleDelta(enemy.ThreatLevel, outcome, certainty)
	}

	r.Narrative = Narrate(enemy, defense, r)
	return r
}

// Classify maps a defense score to an outcome and its certainty.
func Classify(score float64) (Outcome, float64) {
	switch {
	case score >= VictoryThreshold:
		return Victory, clamp(0.5+(score-VictoryThreshold)*1.5, 0, maxCertainty)
	case score >= DrawThreshold:
		return Draw, 0.5
	default:
		return Defeat, clamp(0.5+(DrawThreshold-score)*1.5, 0, maxCertainty)
	}
}

func defenderLossMultiplier(o Outcome) float64 {
	switch o {
	case Victory:
		return 0.3
	case Draw:
		return 0.6
	default:
		return 1.2
	}
}

func attackerLossMultiplier(o Outcome) float64 {
	switch o {
	case Victory:
		return 0.8
	case Draw:
		return 0.5
	default:
		return 0.3
	}
}

func infrastructureMultiplier(o Outcome) float64 {
	switch o {
	case Victory:
		return 0.1
	case Draw:
		return 0.3
	default:
		return 0.6
	}
}

func resourceDeltas(enemy *EnemyForce, o Outcome, certainty float64, infrastructure int) (gained, lost realm.Resources) {
	switch o {
	case Victory:
		gained = enemy.Rewards.Clone()
		lost = enemy.Penalties.Scale(0.5 * (1 - certainty*0.7))
	case Draw:
		gained = enemy.Rewards.Scale(0.3)
		lost = enemy.Penalties.Scale(0.6)
	default:
		gained = realm.Resources{}
		lost = enemy.Penalties.Clone()
		if infrastructure > 0 {
			lost[realm.Stone] += infrastructure
		}
	}
	return gained.Compact(), lost.Compact()
}

func governorDeltas(threat int, o Outcome, certainty float64) (xp, loyalty int) {
	t := float64(threat)
	switch o {
	case Victory:
		return int(math.Floor(t * 10 * (1 + certainty))), int(math.Ceil(t / 2))
	case Draw:
		return threat * 5, 0
	default:
		return threat * 2, -int(math.Round(t * (0.5 + certainty/2)))
	}
}

func moraleDelta(threat int, o Outcome, certainty float64) int {
	t := float64(threat)
	switch o {
	case Victory:
		return int(math.Floor(5 + t*certainty))
	case Draw:
		return -2
	default:
		return -int(math.Floor(5 + 2*t*certainty))
	}
}
