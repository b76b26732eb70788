package combat

import (
	"math"
	"time"

	"github.com/talgya/idle-empire/internal/realm"
	"github.com/talgya/idle-empire/internal/terrain"
)

// DefenseForce is the combat-relevant projection of a province. It is
// recomputed for every engagement and never stored.
type DefenseForce struct {
	ProvinceName string
	Terrain      terrain.Kind

	WallLevel     int
	BarracksLevel int
	Watchtowers   int
	SmithyLevel   int
	StableLevel   int

	GarrisonSize      int
	MilitiaSize       int
	PopulationMorale  float64
	StrategicReserves int

	HasGovernor   bool
	Personality   realm.Personality
	GovernorBonus float64

	// FortifyEffect is the sum of active defense effects.
	FortifyEffect float64
}

// Traits returns the trait row of the defending governor.
func (d DefenseForce) Traits() realm.Traits {
	if !d.HasGovernor {
		return realm.TraitsFor("")
	}
	return realm.TraitsFor(d.Personality)
}

// ComputeDefenseForce derives the defense profile of p as of now. It is
// deterministic and expects a validated snapshot.
func ComputeDefenseForce(p *realm.Province, now time.Time) DefenseForce {
	population := p.Resources.Get(realm.Population)

	d := DefenseForce{
		ProvinceName:  p.Name,
		Terrain:       terrain.Kind(p.Terrain),
		WallLevel:     p.BuildingLevel(realm.Walls),
		BarracksLevel: p.BuildingLevel(realm.Barracks),
		Watchtowers:   p.BuildingLevel(realm.Watchtower),
		SmithyLevel:   p.BuildingLevel(realm.Smithy),
		StableLevel:   p.BuildingLevel(realm.Stable),

		MilitiaSize:       int(math.Floor(float64(population) * 0.10)),
		StrategicReserves: p.Resources.Get(realm.Gold) / 100,
		FortifyEffect:     p.EffectTotal(realm.EffectDefense, now),
	}
	d.GarrisonSize = d.BarracksLevel * 25
	d.PopulationMorale = math.Min(100, 50+float64(population)/20+p.EffectTotal(realm.EffectMorale, now))

	if g := p.Governor; g != nil {
		d.HasGovernor = true
		d.Personality = g.Personality
		d.GovernorBonus = GovernorBonus(g)
	}
	return d
}

// GovernorBonus scales the personality's combat base by loyalty and experience.
func GovernorBonus(g *realm.Governor) float64 {
	if g == nil {
		return 0
	}
	base := realm.TraitsFor(g.Personality).CombatBase
	xpFactor := math.Min(1.5, 1+float64(g.Experience)/2000)
	return base * (float64(g.Loyalty) / 100) * xpFactor
}
