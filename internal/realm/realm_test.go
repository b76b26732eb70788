package realm

import (
	"errors"
	"testing"
	"time"
)

func TestAdjustLoyaltyClamps(t *testing.T) {
	cases := []struct {
		loyalty, delta, want int
	}{
		{50, 10, 60},
		{95, 10, 100},
		{5, -10, 0},
		{0, -1 << 30, 0},
		{100, 1 << 30, 100},
		{-20, 0, 0},
	}
	for _, c := range cases {
		if got := AdjustLoyalty(c.loyalty, c.delta); got != c.want {
			t.Fatalf("AdjustLoyalty(%d, %d) = %d, want %d", c.loyalty, c.delta, got, c.want)
		}
	}
}

func TestResourcesCoversAndScale(t *testing.T) {
	stock := Resources{Gold: 100, Stone: 20}
	if !stock.Covers(Resources{Gold: 100}) {
		t.Fatalf("exact gold cost should be covered")
	}
	if stock.Covers(Resources{Gold: 50, Iron: 1}) {
		t.Fatalf("iron cost should not be covered by empty iron stock")
	}
	if !stock.Covers(Resources{Food: -10}) {
		t.Fatalf("negative cost entries are grants and never block")
	}

	scaled := Resources{Gold: 7, Food: 3}.Scale(0.3)
	if scaled[Gold] != 2 || scaled[Food] != 0 {
		t.Fatalf("unexpected scaled resources: %+v", scaled)
	}
}

func TestResourcesString(t *testing.T) {
	got := Resources{Stone: -10, Gold: 50, Food: 0}.String()
	if got != "gold +50, stone -10" {
		t.Fatalf("String() = %q", got)
	}
	if got := (Resources{}).String(); got != "nothing" {
		t.Fatalf("empty String() = %q", got)
	}
}

func TestEveryPersonalityHasTraits(t *testing.T) {
	for _, p := range AllPersonalities() {
		tr := TraitsFor(p)
		if tr.CombatBase <= 0 || tr.Preparation <= 0 || tr.Engagement == "" {
			t.Fatalf("personality %s has incomplete traits: %+v", p, tr)
		}
		for _, b := range AllBuildingTypes() {
			if _, ok := tr.BuildPriority[b]; !ok {
				t.Fatalf("personality %s missing build priority for %s", p, b)
			}
		}
	}
	if got := TraitsFor("UNKNOWN").Preparation; got != 0.10 {
		t.Fatalf("no-governor preparation = %v, want 0.10", got)
	}
}

func TestProvinceValidate(t *testing.T) {
	p := &Province{ID: "p1", Level: 1, Resources: Resources{Gold: 1}}
	if err := p.Validate(); err != nil {
		t.Fatalf("valid province rejected: %v", err)
	}

	p.Resources[Gold] = -1
	if err := p.Validate(); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("negative stock: err = %v, want ErrInvalidSnapshot", err)
	}

	p.Resources[Gold] = 0
	p.Governor = &Governor{Personality: "PACIFIST", Loyalty: 50}
	if err := p.Validate(); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("unknown personality: err = %v, want ErrInvalidSnapshot", err)
	}
}

func TestEffectTotalIgnoresExpired(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	p := &Province{Effects: []Effect{
		{Kind: EffectMorale, Magnitude: 10, ExpiresAt: now.Add(time.Hour)},
		{Kind: EffectMorale, Magnitude: 5, ExpiresAt: now.Add(-time.Hour)},
		{Kind: EffectDefense, Magnitude: 0.1, ExpiresAt: now.Add(time.Hour)},
	}}
	if got := p.EffectTotal(EffectMorale, now); got != 10 {
		t.Fatalf("morale effect total = %v, want 10", got)
	}
}

func TestSeasonAt(t *testing.T) {
	if got := SeasonAt(time.Date(2026, time.January, 3, 0, 0, 0, 0, time.UTC)); got != Winter {
		t.Fatalf("january season = %s", got)
	}
	if got := SeasonAt(time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC)); got != Autumn {
		t.Fatalf("october season = %s", got)
	}
}

func TestNewEmpireTotals(t *testing.T) {
	e := NewEmpire("c1", []ProvinceStock{
		{ProvinceID: "a", Resources: Resources{Gold: 100}},
		{ProvinceID: "b", Resources: Resources{Gold: 250, Food: 5}},
	})
	if e.ProvinceCount != 2 || e.Totals[Gold] != 350 || e.Totals[Food] != 5 {
		t.Fatalf("unexpected empire: %+v", e)
	}
}
