package governor

import (
	"errors"
	"testing"
	"time"

	"github.com/talgya/idle-empire/internal/entropy"
	"github.com/talgya/idle-empire/internal/realm"
)

func testRules() *Rules {
	return &Rules{
		Buildings: []BuildingSpec{
			{Type: realm.Walls, BaseCost: realm.Resources{realm.Gold: 100, realm.Stone: 50}, CostGrowth: 1.5, BaseMinutes: 10, TimeGrowth: 2, MaxLevel: 5},
			{Type: realm.Market, BaseCost: realm.Resources{realm.Gold: 100}, CostGrowth: 1.5, BaseMinutes: 10, TimeGrowth: 2, MaxLevel: 5},
		},
		Technologies: []Technology{
			{ID: "masonry", Name: "Masonry", Cost: realm.Resources{realm.Gold: 300}, ResearchMinutes: 60},
			{ID: "engineering", Name: "Engineering", Cost: realm.Resources{realm.Gold: 100}, ResearchMinutes: 120, Prerequisites: []string{"masonry"}},
		},
	}
}

func governedProvince(p realm.Personality, gold int) *realm.Province {
	return &realm.Province{
		ID:        "p1",
		Level:     1,
		Resources: realm.Resources{realm.Gold: gold, realm.Stone: 500},
		Governor:  &realm.Governor{Name: "Aldric", Personality: p, Loyalty: 50},
	}
}

func TestUpgradeCostAndTimeGrow(t *testing.T) {
	spec := testRules().Buildings[0]
	if got := spec.UpgradeCost(2); got[realm.Gold] != 225 || got[realm.Stone] != 112 {
		t.Fatalf("level 2 cost = %v, want gold 225 stone 112", got)
	}
	if got := spec.UpgradeTime(3); got != 80*time.Minute {
		t.Fatalf("level 3 time = %v, want 80m", got)
	}
	if got := spec.UpgradeTime(0); got != 10*time.Minute {
		t.Fatalf("level 0 time = %v, want 10m", got)
	}
}

func TestPlanDeductionGreedy(t *testing.T) {
	stocks := []realm.ProvinceStock{
		{ProvinceID: "A", Resources: realm.Resources{realm.Gold: 100}},
		{ProvinceID: "B", Resources: realm.Resources{realm.Gold: 250}},
	}
	plan, err := PlanDeduction(realm.Resources{realm.Gold: 300}, stocks)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan) != 2 {
		t.Fatalf("plan = %+v, want two deductions", plan)
	}
	if plan[0].ProvinceID != "A" || plan[0].Resources[realm.Gold] != 100 {
		t.Fatalf("first deduction = %+v, want A gold 100", plan[0])
	}
	if plan[1].ProvinceID != "B" || plan[1].Resources[realm.Gold] != 200 {
		t.Fatalf("second deduction = %+v, want B gold 200", plan[1])
	}
}

func TestPlanDeductionInsufficient(t *testing.T) {
	stocks := []realm.ProvinceStock{{ProvinceID: "A", Resources: realm.Resources{realm.Gold: 100}}}
	if _, err := PlanDeduction(realm.Resources{realm.Gold: 101}, stocks); !errors.Is(err, realm.ErrInsufficientResources) {
		t.Fatalf("err = %v, want ErrInsufficientResources", err)
	}
}

func TestDecidePrefersPersonalityPriority(t *testing.T) {
	p := governedProvince(realm.Conservative, 500)
	d := Decide(p, nil, testRules(), entropy.NewSequence(0))
	if d.Type != Build || d.Building != realm.Walls || d.ToLevel != 1 {
		t.Fatalf("conservative decision = %+v, want BUILD walls", d)
	}
	if d.Duration != 10*time.Minute || d.Cost[realm.Gold] != 100 {
		t.Fatalf("unexpected cost/duration: %+v", d)
	}

	p = governedProvince(realm.Merchant, 500)
	d = Decide(p, nil, testRules(), entropy.NewSequence(0))
	if d.Type != Build || d.Building != realm.Market {
		t.Fatalf("merchant decision = %+v, want BUILD market", d)
	}
}

func TestDecideSkipsPendingAndMaxed(t *testing.T) {
	p := governedProvince(realm.Conservative, 500)
	p.PendingConstruction = []realm.BuildingType{realm.Walls}
	d := Decide(p, nil, testRules(), entropy.NewSequence(0))
	if d.Building != realm.Market {
		t.Fatalf("pending walls should be skipped, got %+v", d)
	}

	p.PendingConstruction = nil
	p.Buildings = []realm.Building{{Type: realm.Walls, Level: 5}, {Type: realm.Market, Level: 5}}
	if d := Decide(p, nil, testRules(), entropy.NewSequence(0)); d.Type != Wait {
		t.Fatalf("maxed buildings should WAIT, got %+v", d)
	}
}

func TestDecideWaitsWhenNothingAffordable(t *testing.T) {
	p := governedProvince(realm.Aggressive, 0)
	empire := realm.NewEmpire("c1", []realm.ProvinceStock{{ProvinceID: "p1", Resources: p.Resources}})
	src := entropy.NewSequence(0.5)
	if d := Decide(p, empire, testRules(), src); d.Type != Wait {
		t.Fatalf("broke province decision = %+v, want WAIT", d)
	}
	if src.Draws() != 0 {
		t.Fatalf("WAIT should consume no draws, got %d", src.Draws())
	}
}

func TestDecideResearchAgainstEmpirePool(t *testing.T) {
	p := governedProvince(realm.Explorer, 100)
	empire := realm.NewEmpire("c1", []realm.ProvinceStock{
		{ProvinceID: "p1", Resources: realm.Resources{realm.Gold: 100}},
		{ProvinceID: "p2", Resources: realm.Resources{realm.Gold: 250}},
	})
	rules := testRules()
	rules.Buildings = nil

	d := Decide(p, empire, rules, entropy.NewSequence(0))
	if d.Type != Research || d.TechnologyID != "masonry" {
		t.Fatalf("decision = %+v, want RESEARCH masonry", d)
	}

	empire.PendingResearch = []string{"masonry"}
	if d := Decide(p, empire, rules, entropy.NewSequence(0)); d.Type != Wait {
		t.Fatalf("pending masonry blocks it and engineering lacks its prerequisite, got %+v", d)
	}

	empire.PendingResearch = nil
	empire.Researched = []string{"masonry"}
	if d := Decide(p, empire, rules, entropy.NewSequence(0)); d.TechnologyID != "engineering" {
		t.Fatalf("engineering should unlock after masonry, got %+v", d)
	}
}

func TestDecideWithoutGovernor(t *testing.T) {
	p := governedProvince(realm.Conservative, 500)
	p.Governor = nil
	if d := Decide(p, nil, testRules(), entropy.NewSequence(0)); d.Type != Wait {
		t.Fatalf("ungoverned province should WAIT, got %+v", d)
	}
}

func TestProgressionGains(t *testing.T) {
	if BuildXP(3) != 30 || ResearchXP() != 25 {
		t.Fatalf("xp gains = %d/%d, want 30/25", BuildXP(3), ResearchXP())
	}
	src := entropy.NewSeeded(3)
	for i := 0; i < 1000; i++ {
		if v := BuildLoyalty(src); v < 1 || v > 5 {
			t.Fatalf("build loyalty %d outside 1-5", v)
		}
		if v := ResearchLoyalty(src); v < 2 || v > 4 {
			t.Fatalf("research loyalty %d outside 2-4", v)
		}
	}
}

func TestRulesValidate(t *testing.T) {
	r := testRules()
	if err := r.Validate(); err != nil {
		t.Fatalf("valid rules rejected: %v", err)
	}
	r.Technologies[1].Prerequisites = []string{"alchemy"}
	if err := r.Validate(); !errors.Is(err, realm.ErrInvalidSnapshot) {
		t.Fatalf("unknown prerequisite err = %v", err)
	}
}
