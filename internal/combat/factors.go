package combat

import (
	"math"

	"github.com/talgya/idle-empire/internal/entropy"
	"github.com/talgya/idle-empire/internal/terrain"
)

// Draw ranges of the stochastic factors.
const (
	weatherSpread = 0.05
	luckSpread    = 0.075
	surpriseMax   = 0.10
)

// Factors holds the eleven additive sub-scores of an engagement. Positive
// values favor the defender.
type Factors struct {
	StrengthRatio float64 `json:"strength_ratio"`
	Fortification float64 `json:"fortification"`
	Terrain       float64 `json:"terrain"`
	Preparation   float64 `json:"preparation"`
	Leadership    float64 `json:"leadership"`
	Morale        float64 `json:"morale"`
	Equipment     float64 `json:"equipment"`
	Tactical      float64 `json:"tactical"`
	Weather       float64 `json:"weather"`
	Luck          float64 `json:"luck"`
	Surprise      float64 `json:"surprise"`
}

// Total sums every factor into the defense score.
func (f Factors) Total() float64 {
	return f.StrengthRatio + f.Fortification + f.Terrain + f.Preparation +
		f.Leadership + f.Morale + f.Equipment + f.Tactical +
		f.Weather + f.Luck + f.Surprise
}

// ComputeFactors scores enemy against defense. Weather, luck, and surprise
// are drawn from src in that order; the rest are deterministic.
func ComputeFactors(enemy *EnemyForce, defense DefenseForce, src entropy.Source) Factors {
	tr := defense.Traits()

	defPower := float64(defense.GarrisonSize+defense.MilitiaSize) +
		20*float64(defense.WallLevel) +
		0.5*float64(defense.StrategicReserves)
	enemyPower := 2*float64(enemy.Strength) + float64(enemy.Toughness)
	ratio := 0.0
	if enemyPower > 0 {
		ratio = defPower / enemyPower
	}

	f := Factors{
		StrengthRatio: 0.5 * clamp(ratio, 0, 2),
		Fortification: 0.05*float64(defense.WallLevel) + defense.FortifyEffect,
		Terrain:       terrain.DefenseBonus(defense.Terrain) + 0.02*float64(defense.Watchtowers),
		Preparation:   tr.Preparation * (1 - float64(enemy.Speed)/200),
		Leadership:    defense.GovernorBonus / 200,
		Morale:        (defense.PopulationMorale - 50) / 250,
		Equipment:     0.03*float64(defense.SmithyLevel) + 0.02*float64(defense.StableLevel) - float64(enemy.Toughness)/500,
		Tactical:      tr.Tactical - float64(enemy.Cunning)/500,
	}
	f.Weather = entropy.Range(src, -weatherSpread, weatherSpread)
	f.Luck = entropy.Range(src, -luckSpread, luckSpread)
	f.Surprise = entropy.Range(src, 0, surpriseMax)
	return f
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
