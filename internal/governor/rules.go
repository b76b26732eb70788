// Package governor implements the autonomous governor's decision policy:
// which building to upgrade or technology to research, what it costs, how
// long it takes, and how the cost is spread across an empire's provinces.
package governor

import (
	"fmt"
	"math"
	"time"

	"github.com/talgya/idle-empire/internal/realm"
)

// BuildingSpec is the catalog entry for one building type. Costs and build
// times grow geometrically with the level being left.
type BuildingSpec struct {
	Type        realm.BuildingType `yaml:"type" json:"type"`
	Name        string             `yaml:"name" json:"name"`
	BaseCost    realm.Resources    `yaml:"base_cost" json:"base_cost"`
	CostGrowth  float64            `yaml:"cost_growth" json:"cost_growth"`
	BaseMinutes int                `yaml:"base_minutes" json:"base_minutes"`
	TimeGrowth  float64            `yaml:"time_growth" json:"time_growth"`
	MaxLevel    int                `yaml:"max_level" json:"max_level"`
}

// UpgradeCost returns the cost of going from currentLevel to currentLevel+1.
func (b BuildingSpec) UpgradeCost(currentLevel int) realm.Resources {
	return b.BaseCost.Scale(math.Pow(growth(b.CostGrowth), float64(currentLevel)))
}

// UpgradeTime returns the build duration from currentLevel to currentLevel+1.
func (b BuildingSpec) UpgradeTime(currentLevel int) time.Duration {
	minutes := float64(b.BaseMinutes) * math.Pow(growth(b.TimeGrowth), float64(currentLevel))
	return time.Duration(math.Round(minutes * float64(time.Minute)))
}

func growth(g float64) float64 {
	if g <= 0 {
		return 1
	}
	return g
}

// Validate checks catalog invariants.
func (b BuildingSpec) Validate() error {
	if !validBuilding(b.Type) {
		return fmt.Errorf("%w: unknown building type %q", realm.ErrInvalidSnapshot, b.Type)
	}
	if b.MaxLevel < 1 || b.BaseMinutes < 0 || b.CostGrowth < 0 || b.TimeGrowth < 0 {
		return fmt.Errorf("%w: building %s has invalid growth or bounds", realm.ErrInvalidSnapshot, b.Type)
	}
	if err := b.BaseCost.Validate(true); err != nil {
		return fmt.Errorf("building %s cost: %w", b.Type, err)
	}
	return nil
}

func validBuilding(t realm.BuildingType) bool {
	for _, b := range realm.AllBuildingTypes() {
		if b == t {
			return true
		}
	}
	return false
}

// Technology is a researchable, city-wide improvement.
type Technology struct {
	ID                   string          `yaml:"id" json:"id"`
	Name                 string          `yaml:"name" json:"name"`
	Description          string          `yaml:"description" json:"description,omitempty"`
	Cost                 realm.Resources `yaml:"cost" json:"cost"`
	ResearchMinutes      int             `yaml:"research_minutes" json:"research_minutes"`
	Prerequisites        []string        `yaml:"prerequisites" json:"prerequisites,omitempty"`
	RequiredLibraryLevel int             `yaml:"required_library_level" json:"required_library_level,omitempty"`
}

// ResearchTime returns how long the research takes.
func (t Technology) ResearchTime() time.Duration {
	return time.Duration(t.ResearchMinutes) * time.Minute
}

// Rules is the read-only catalog the policy consults.
type Rules struct {
	Buildings    []BuildingSpec
	Technologies []Technology
}

// Building looks up the BuildingSpec for t.
func (r *Rules) Building(t realm.BuildingType) (BuildingSpec, bool) {
	for _, b := range r.Buildings {
		if b.Type == t {
			return b, true
		}
	}
	return BuildingSpec{}, false
}

// Technology looks up a technology by id.
func (r *Rules) Technology(id string) (Technology, bool) {
	for _, t := range r.Technologies {
		if t.ID == id {
			return t, true
		}
	}
	return Technology{}, false
}

// Validate checks every entry and that prerequisites name known technologies.
func (r *Rules) Validate() error {
	seen := map[realm.BuildingType]bool{}
	for _, b := range r.Buildings {
		if err := b.Validate(); err != nil {
			return err
		}
		if seen[b.Type] {
			return fmt.Errorf("%w: building %s listed twice", realm.ErrInvalidSnapshot, b.Type)
		}
		seen[b.Type] = true
	}
	ids := map[string]bool{}
	for _, t := range r.Technologies {
		if t.ID == "" || ids[t.ID] {
			return fmt.Errorf("%w: technology id %q empty or duplicated", realm.ErrInvalidSnapshot, t.ID)
		}
		ids[t.ID] = true
		if err := t.Cost.Validate(true); err != nil {
			return fmt.Errorf("technology %s cost: %w", t.ID, err)
		}
	}
	for _, t := range r.Technologies {
		for _, pre := range t.Prerequisites {
			if !ids[pre] {
				return fmt.Errorf("%w: technology %s requires unknown %s", realm.ErrInvalidSnapshot, t.ID, pre)
			}
		}
	}
	return nil
}
