package realm

import (
	"fmt"
	"sort"
	"time"
)

// BuildingType names a province building.
type BuildingType string

const (
	Walls      BuildingType = "walls"
	Barracks   BuildingType = "barracks"
	Watchtower BuildingType = "watchtower"
	Smithy     BuildingType = "smithy"
	Stable     BuildingType = "stable"
	Farm       BuildingType = "farm"
	Quarry     BuildingType = "quarry"
	Mine       BuildingType = "mine"
	Market     BuildingType = "market"
	Library    BuildingType = "library"
)

// AllBuildingTypes returns every building type in a fixed order.
func AllBuildingTypes() []BuildingType {
	return []BuildingType{Walls, Barracks, Watchtower, Smithy, Stable, Farm, Quarry, Mine, Market, Library}
}

// Building is one entry of a province's building set.
type Building struct {
	Type  BuildingType `json:"type" db:"type"`
	Level int          `json:"level" db:"level"`
}

// EffectKind names a temporary province modifier.
type EffectKind string

const (
	EffectMorale  EffectKind = "morale"
	EffectDefense EffectKind = "defense"
)

// Effect is a temporary modifier granted by an event outcome.
type Effect struct {
	Kind      EffectKind `json:"kind"`
	Magnitude float64    `json:"magnitude"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Governor is the AI administrator of a province.
type Governor struct {
	Name        string      `json:"name" db:"name"`
	Personality Personality `json:"personality" db:"personality"`
	Loyalty     int         `json:"loyalty" db:"loyalty"`       // 0–100
	Experience  int         `json:"experience" db:"experience"` // never decreases
}

// Traits returns the governor's trait row, or the no-governor row for nil.
func (g *Governor) Traits() Traits {
	if g == nil {
		return noGovernorTraits
	}
	return TraitsFor(g.Personality)
}

// Province is a read-only snapshot of one province.
type Province struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	CityID    string     `json:"city_id"`
	Name      string     `json:"name"`
	Level     int        `json:"level"`
	Threat    int        `json:"threat"`
	Terrain   string     `json:"terrain"`
	Buildings []Building `json:"buildings"`
	Resources Resources  `json:"resources"`
	Governor  *Governor  `json:"governor,omitempty"`
	Effects   []Effect   `json:"effects,omitempty"`

	// PendingConstruction lists building types with an unfinished task.
	PendingConstruction []BuildingType `json:"pending_construction,omitempty"`
}

// BuildingLevel returns the level of building t (zero when absent).
func (p *Province) BuildingLevel(t BuildingType) int {
	for _, b := range p.Buildings {
		if b.Type == t {
			return b.Level
		}
	}
	return 0
}

// IsBuilding reports whether t has a pending construction task.
func (p *Province) IsBuilding(t BuildingType) bool {
	for _, pending := range p.PendingConstruction {
		if pending == t {
			return true
		}
	}
	return false
}

// EffectTotal sums the magnitude of active effects of kind k at now.
func (p *Province) EffectTotal(k EffectKind, now time.Time) float64 {
	total := 0.0
	for _, e := range p.Effects {
		if e.Kind == k && e.ExpiresAt.After(now) {
			total += e.Magnitude
		}
	}
	return total
}

// SortBuildings orders the building set by type so snapshots compare stably.
func (p *Province) SortBuildings() {
	sort.Slice(p.Buildings, func(i, j int) bool { return p.Buildings[i].Type < p.Buildings[j].Type })
}

// Validate checks the invariants a snapshot must satisfy before the core uses it.
func (p *Province) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil province", ErrInvalidSnapshot)
	}
	if p.ID == "" {
		return fmt.Errorf("%w: province without id", ErrInvalidSnapshot)
	}
	if p.Level < 1 {
		return fmt.Errorf("%w: province %s level %d", ErrInvalidSnapshot, p.ID, p.Level)
	}
	if p.Threat < 0 {
		return fmt.Errorf("%w: province %s threat %d", ErrInvalidSnapshot, p.ID, p.Threat)
	}
	seen := make(map[BuildingType]bool, len(p.Buildings))
	for _, b := range p.Buildings {
		if seen[b.Type] {
			return fmt.Errorf("%w: province %s duplicate building %s", ErrInvalidSnapshot, p.ID, b.Type)
		}
		seen[b.Type] = true
		if b.Level < 0 {
			return fmt.Errorf("%w: province %s building %s level %d", ErrInvalidSnapshot, p.ID, b.Type, b.Level)
		}
	}
	if err := p.Resources.Validate(true); err != nil {
		return fmt.Errorf("province %s: %w", p.ID, err)
	}
	if g := p.Governor; g != nil {
		if !g.Personality.Valid() {
			return fmt.Errorf("%w: province %s governor personality %q", ErrInvalidSnapshot, p.ID, g.Personality)
		}
		if g.Loyalty < 0 || g.Loyalty > 100 || g.Experience < 0 {
			return fmt.Errorf("%w: province %s governor loyalty %d xp %d", ErrInvalidSnapshot, p.ID, g.Loyalty, g.Experience)
		}
	}
	return nil
}

// ClampLoyalty bounds a loyalty value to [0,100].
func ClampLoyalty(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// AdjustLoyalty applies delta to loyalty and clamps the result.
func AdjustLoyalty(loyalty, delta int) int {
	return ClampLoyalty(loyalty + delta)
}
