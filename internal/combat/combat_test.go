package combat

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/talgya/idle-empire/internal/entropy"
	"github.com/talgya/idle-empire/internal/realm"
)

var testNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func scenarioProvince() *realm.Province {
	return &realm.Province{
		ID:     "p1",
		Name:   "Greyford",
		Level:  1,
		Threat: 10,
		Buildings: []realm.Building{
			{Type: realm.Barracks, Level: 1},
			{Type: realm.Walls, Level: 0},
		},
		Resources: realm.Resources{realm.Population: 50},
		Governor: &realm.Governor{
			Name:        "Aldric",
			Personality: realm.Conservative,
			Loyalty:     75,
			Experience:  0,
		},
	}
}

func testEnemy() *EnemyForce {
	return &EnemyForce{
		ID:          "bandits",
		Name:        "Red Hand Bandits",
		Type:        Bandit,
		Strength:    40,
		Toughness:   20,
		Speed:       50,
		Cunning:     30,
		ThreatLevel: 3,
		Rewards:     realm.Resources{realm.Gold: 100},
		Penalties:   realm.Resources{realm.Food: 50},
		SpawnWeight: 10,
	}
}

func TestComputeDefenseForceScenario(t *testing.T) {
	d := ComputeDefenseForce(scenarioProvince(), testNow)
	if d.GarrisonSize != 25 {
		t.Fatalf("garrison = %d, want 25", d.GarrisonSize)
	}
	if d.MilitiaSize != 5 {
		t.Fatalf("militia = %d, want 5", d.MilitiaSize)
	}
	if d.PopulationMorale != 52.5 {
		t.Fatalf("morale = %v, want 52.5", d.PopulationMorale)
	}
	if d.GovernorBonus != 18.75 {
		t.Fatalf("governor bonus = %v, want 18.75", d.GovernorBonus)
	}
}

func TestComputeDefenseForceDeterministic(t *testing.T) {
	p := scenarioProvince()
	a := ComputeDefenseForce(p, testNow)
	b := ComputeDefenseForce(p, testNow)
	if a != b {
		t.Fatalf("defense differs across calls: %+v vs %+v", a, b)
	}
}

func TestComputeDefenseForceCapsAndEffects(t *testing.T) {
	p := scenarioProvince()
	p.Resources[realm.Population] = 5000
	p.Resources[realm.Gold] = 950
	p.Governor.Experience = 10000
	p.Governor.Loyalty = 100
	p.Effects = []realm.Effect{{Kind: realm.EffectDefense, Magnitude: 0.1, ExpiresAt: testNow.Add(time.Hour)}}

	d := ComputeDefenseForce(p, testNow)
	if d.PopulationMorale != 100 {
		t.Fatalf("morale should cap at 100, got %v", d.PopulationMorale)
	}
	if d.StrategicReserves != 9 {
		t.Fatalf("reserves = %d, want 9", d.StrategicReserves)
	}
	if d.GovernorBonus != 25*1.5 {
		t.Fatalf("xp factor should cap at 1.5, bonus = %v", d.GovernorBonus)
	}
	if d.FortifyEffect != 0.1 {
		t.Fatalf("fortify effect = %v, want 0.1", d.FortifyEffect)
	}
}

func TestComputeFactorsDrawOrder(t *testing.T) {
	d := ComputeDefenseForce(scenarioProvince(), testNow)
	f := ComputeFactors(testEnemy(), d, entropy.NewSequence(1.0, 0.0, 0.5))
	if math.Abs(f.Weather-0.05) > 1e-9 {
		t.Fatalf("weather = %v, want 0.05", f.Weather)
	}
	if math.Abs(f.Luck+0.075) > 1e-9 {
		t.Fatalf("luck = %v, want -0.075", f.Luck)
	}
	if math.Abs(f.Surprise-0.05) > 1e-9 {
		t.Fatalf("surprise = %v, want 0.05", f.Surprise)
	}
	// Conservative preparation 0.25 reduced by enemy speed 50/200.
	if math.Abs(f.Preparation-0.1875) > 1e-9 {
		t.Fatalf("preparation = %v, want 0.1875", f.Preparation)
	}
}

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  Outcome
	}{
		{1.3, Victory},
		{1.2999, Draw},
		{0.8, Draw},
		{0.7999, Defeat},
		{5, Victory},
		{-1, Defeat},
	}
	for _, c := range cases {
		if got, _ := Classify(c.score); got != c.want {
			t.Fatalf("Classify(%v) = %s, want %s", c.score, got, c.want)
		}
	}
	if _, c := Classify(1.0); c != 0.5 {
		t.Fatalf("draw certainty = %v, want 0.5", c)
	}
	if _, c := Classify(10); c != 0.95 {
		t.Fatalf("certainty should clamp at 0.95, got %v", c)
	}
}

func TestResolveWithFactorsThresholds(t *testing.T) {
	d := ComputeDefenseForce(scenarioProvince(), testNow)
	if r := ResolveWithFactors(testEnemy(), d, Factors{StrengthRatio: 1.3}); r.Outcome != Victory {
		t.Fatalf("score 1.3 outcome = %s, want VICTORY", r.Outcome)
	}
	if r := ResolveWithFactors(testEnemy(), d, Factors{StrengthRatio: 0.8}); r.Outcome != Draw {
		t.Fatalf("score 0.8 outcome = %s, want DRAW", r.Outcome)
	}
}

func TestResolveDecisiveVictory(t *testing.T) {
	d := ComputeDefenseForce(scenarioProvince(), testNow)
	r := ResolveWithFactors(testEnemy(), d, Factors{StrengthRatio: 2.0})
	if r.Outcome != Victory || r.VictoryCertainty != 0.95 {
		t.Fatalf("unexpected outcome: %s %.3f", r.Outcome, r.VictoryCertainty)
	}
	if r.DefenderCasualties != 2 || r.AttackerCasualties != 30 || r.InfrastructureDamage != 0 {
		t.Fatalf("unexpected casualties: %+v", r)
	}
	if r.ResourcesGained[realm.Gold] != 100 || r.ResourcesLost[realm.Food] != 8 {
		t.Fatalf("unexpected resources: gained %v lost %v", r.ResourcesGained, r.ResourcesLost)
	}
	if r.GovernorXP != 58 || r.GovernorLoyalty != 2 || r.MoraleDelta != 7 {
		t.Fatalf("unexpected governor deltas: xp %d loyalty %d morale %d", r.GovernorXP, r.GovernorLoyalty, r.MoraleDelta)
	}
	if !strings.Contains(r.Narrative, "routed") {
		t.Fatalf("decisive victory narrative missing: %q", r.Narrative)
	}
}

func TestResolveDefeatLosesStoneToDamage(t *testing.T) {
	d := ComputeDefenseForce(scenarioProvince(), testNow)
	r := ResolveWithFactors(testEnemy(), d, Factors{StrengthRatio: 0.5})
	if r.Outcome != Defeat {
		t.Fatalf("outcome = %s, want DEFEAT", r.Outcome)
	}
	if r.DefenderCasualties != 8 || r.AttackerCasualties != 11 || r.InfrastructureDamage != 2 {
		t.Fatalf("unexpected casualties: %+v", r)
	}
	if r.ResourcesLost[realm.Food] != 50 || r.ResourcesLost[realm.Stone] != 2 || len(r.ResourcesGained) != 0 {
		t.Fatalf("unexpected resources: gained %v lost %v", r.ResourcesGained, r.ResourcesLost)
	}
	if r.GovernorXP != 6 || r.GovernorLoyalty != -3 || r.MoraleDelta != -10 {
		t.Fatalf("unexpected governor deltas: xp %d loyalty %d morale %d", r.GovernorXP, r.GovernorLoyalty, r.MoraleDelta)
	}
	net := r.NetResources()
	if net[realm.Food] != -50 || net[realm.Stone] != -2 {
		t.Fatalf("unexpected net: %v", net)
	}
}

func TestResolveWithoutGovernorSkipsGovernorDeltas(t *testing.T) {
	p := scenarioProvince()
	p.Governor = nil
	d := ComputeDefenseForce(p, testNow)
	r := ResolveWithFactors(testEnemy(), d, Factors{StrengthRatio: 2.0})
	if r.GovernorXP != 0 || r.GovernorLoyalty != 0 || r.MoraleDelta != 0 {
		t.Fatalf("governor deltas without governor: %+v", r)
	}
	if !strings.Contains(r.Narrative, "Without a governor") {
		t.Fatalf("narrative missing no-governor clause: %q", r.Narrative)
	}
}

func TestResolveIsReplayableWithSameSource(t *testing.T) {
	d := ComputeDefenseForce(scenarioProvince(), testNow)
	a := Resolve(testEnemy(), d, entropy.NewSeeded(99))
	b := Resolve(testEnemy(), d, entropy.NewSeeded(99))
	if a.Score != b.Score || a.Narrative != b.Narrative || a.Outcome != b.Outcome {
		t.Fatalf("seeded resolution differs: %+v vs %+v", a, b)
	}
}

func TestNarrativeWeatherClause(t *testing.T) {
	d := ComputeDefenseForce(scenarioProvince(), testNow)
	r := Resolve(testEnemy(), d, entropy.NewSequence(0.95, 0.5, 0.9))
	if !strings.Contains(r.Narrative, "Driving rain") {
		t.Fatalf("strong weather clause missing: %q", r.Narrative)
	}
	if !strings.Contains(r.Narrative, "Red Hand Bandits (strength 40)") {
		t.Fatalf("opening clause missing: %q", r.Narrative)
	}
	if !strings.Contains(r.Narrative, realm.TraitsFor(realm.Conservative).Engagement) {
		t.Fatalf("engagement clause missing: %q", r.Narrative)
	}

	for _, first := range []float64{0.5, 0.8, 0.2} {
		calm := Resolve(testEnemy(), d, entropy.NewSequence(first, 0.5, 0.5))
		if math.Abs(calm.Factors.Weather) > weatherNarrativeThreshold {
			t.Fatalf("draw %v gave weather %v above the narrative cut", first, calm.Factors.Weather)
		}
		if strings.Contains(calm.Narrative, "Driving rain") || strings.Contains(calm.Narrative, "clear sky") {
			t.Fatalf("weak weather %v should add no clause: %q", calm.Factors.Weather, calm.Narrative)
		}
	}
}

func TestEnemyValidate(t *testing.T) {
	e := testEnemy()
	if err := e.Validate(); err != nil {
		t.Fatalf("valid enemy rejected: %v", err)
	}
	e.Cunning = 0
	if err := e.Validate(); err == nil {
		t.Fatalf("cunning 0 should be rejected")
	}
}
