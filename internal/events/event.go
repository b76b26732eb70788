// Package events decides which narrative events and raiders a province may
// draw, picks one by weight, and turns a player's (or the auto-resolver's)
// choice into resource and governor deltas.
package events

import (
	"errors"
	"fmt"

	"github.com/talgya/idle-empire/internal/realm"
)

// ErrInvalidChoice is returned when a choice id matches no branch of an event.
var ErrInvalidChoice = errors.New("invalid choice")

// Rarity scales an event's spawn weight.
type Rarity string

const (
	Common    Rarity = "COMMON"
	Uncommon  Rarity = "UNCOMMON"
	Rare      Rarity = "RARE"
	Epic      Rarity = "EPIC"
	Legendary Rarity = "LEGENDARY"
)

// Multiplier returns the weight multiplier of r. Unknown rarities count as common.
func (r Rarity) Multiplier() float64 {
	switch r {
	case Uncommon:
		return 1.5
	case Rare:
		return 2
	case Epic:
		return 2.5
	case Legendary:
		return 3
	default:
		return 1
	}
}

// ImpactType distinguishes auto-resolved events from ones awaiting a choice.
type ImpactType string

const (
	Immediate ImpactType = "IMMEDIATE"
	Delayed   ImpactType = "DELAYED"
)

// Requirements gate an event on the province and empire state.
type Requirements struct {
	MinProvinces  int                        `yaml:"min_provinces" json:"min_provinces,omitempty"`
	MinBuildings  map[realm.BuildingType]int `yaml:"min_buildings" json:"min_buildings,omitempty"`
	MinResources  realm.Resources            `yaml:"min_resources" json:"min_resources,omitempty"`
	Personalities []realm.Personality        `yaml:"personalities" json:"personalities,omitempty"`
}

// EffectGrant is a temporary modifier an outcome leaves on the province.
type EffectGrant struct {
	Kind          realm.EffectKind `yaml:"kind" json:"kind"`
	Magnitude     float64          `yaml:"magnitude" json:"magnitude"`
	DurationHours int              `yaml:"duration_hours" json:"duration_hours"`
}

// Outcome is what happens after a choice is made.
type Outcome struct {
	Resources       realm.Resources `yaml:"resources" json:"resources,omitempty"`
	LoyaltyChange   int             `yaml:"loyalty_change" json:"loyalty_change,omitempty"`
	XPGain          int             `yaml:"xp_gain" json:"xp_gain,omitempty"`
	Message         string          `yaml:"message" json:"message"`
	FollowupChance  float64         `yaml:"followup_chance" json:"followup_chance,omitempty"`
	FollowupEventID string          `yaml:"followup_event_id" json:"followup_event_id,omitempty"`
	Effect          *EffectGrant    `yaml:"effect,omitempty" json:"effect,omitempty"`
}

// Choice is one branch the player may take.
type Choice struct {
	ID      string          `yaml:"id" json:"id"`
	Label   string          `yaml:"label" json:"label"`
	Cost    realm.Resources `yaml:"cost" json:"cost,omitempty"`
	Outcome Outcome         `yaml:"outcome" json:"outcome"`
}

// GameEvent is a catalog entry.
type GameEvent struct {
	ID           string        `yaml:"id" json:"id"`
	Title        string        `yaml:"title" json:"title"`
	Description  string        `yaml:"description" json:"description"`
	Rarity       Rarity        `yaml:"rarity" json:"rarity"`
	Weight       float64       `yaml:"weight" json:"weight"`
	ImpactType   ImpactType    `yaml:"impact_type" json:"impact_type"`
	Requirements *Requirements `yaml:"requirements,omitempty" json:"requirements,omitempty"`
	Choices      []Choice      `yaml:"choices" json:"choices"`
}

// EffectiveWeight is the roulette weight: weight × rarity multiplier.
func (e *GameEvent) EffectiveWeight() float64 {
	return e.Weight * e.Rarity.Multiplier()
}

// Choice looks up a branch by id.
func (e *GameEvent) Choice(id string) (*Choice, bool) {
	for i := range e.Choices {
		if e.Choices[i].ID == id {
			return &e.Choices[i], true
		}
	}
	return nil, false
}

// Validate checks the catalog invariants of an event entry.
func (e *GameEvent) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: event without id", realm.ErrInvalidSnapshot)
	}
	if e.Weight < 0 {
		return fmt.Errorf("%w: event %s negative weight", realm.ErrInvalidSnapshot, e.ID)
	}
	if e.ImpactType != Immediate && e.ImpactType != Delayed {
		return fmt.Errorf("%w: event %s impact type %q", realm.ErrInvalidSnapshot, e.ID, e.ImpactType)
	}
	if len(e.Choices) == 0 {
		return fmt.Errorf("%w: event %s has no choices", realm.ErrInvalidSnapshot, e.ID)
	}
	seen := map[string]bool{}
	for _, c := range e.Choices {
		if c.ID == "" || seen[c.ID] {
			return fmt.Errorf("%w: event %s choice id %q empty or duplicated", realm.ErrInvalidSnapshot, e.ID, c.ID)
		}
		seen[c.ID] = true
		if err := c.Cost.Validate(true); err != nil {
			return fmt.Errorf("event %s choice %s cost: %w", e.ID, c.ID, err)
		}
		if err := c.Outcome.Resources.Validate(false); err != nil {
			return fmt.Errorf("event %s choice %s outcome: %w", e.ID, c.ID, err)
		}
		if p := c.Outcome.FollowupChance; p < 0 || p > 1 {
			return fmt.Errorf("%w: event %s choice %s followup chance %v", realm.ErrInvalidSnapshot, e.ID, c.ID, p)
		}
	}
	return nil
}
