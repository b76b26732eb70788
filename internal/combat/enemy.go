// Package combat scores a province's defenses against a raiding force and
// resolves the engagement into casualties, resource deltas, and a narrative.
// Every function is pure; randomness arrives through an entropy.Source.
package combat

import (
	"fmt"

	"github.com/talgya/idle-empire/internal/realm"
)

// EnemyType classifies a raiding force.
type EnemyType string

const (
	Scout   EnemyType = "scout"
	Warrior EnemyType = "warrior"
	Horde   EnemyType = "horde"
	Beast   EnemyType = "beast"
	Spy     EnemyType = "spy"
	Bandit  EnemyType = "bandit"
	Cultist EnemyType = "cultist"
)

// Valid reports whether t is a known enemy type.
func (t EnemyType) Valid() bool {
	switch t {
	case Scout, Warrior, Horde, Beast, Spy, Bandit, Cultist:
		return true
	}
	return false
}

// SpawnRequirements restricts when an enemy may be chosen for a raid.
type SpawnRequirements struct {
	MinThreat int `yaml:"min_threat" json:"min_threat,omitempty"`
	MaxThreat int `yaml:"max_threat" json:"max_threat,omitempty"` // 0 = unbounded

	// ResourceAffinity draws the enemy only to provinces holding at least
	// these amounts.
	ResourceAffinity realm.Resources `yaml:"resource_affinity" json:"resource_affinity,omitempty"`
	Seasons          []realm.Season  `yaml:"seasons" json:"seasons,omitempty"`
}

// EnemyForce is a catalog entry describing a raider. Strength, toughness,
// speed, and cunning are independent 1–100 scales.
type EnemyForce struct {
	ID               string             `yaml:"id" json:"id"`
	Name             string             `yaml:"name" json:"name"`
	Type             EnemyType          `yaml:"type" json:"type"`
	Strength         int                `yaml:"strength" json:"strength"`
	Toughness        int                `yaml:"toughness" json:"toughness"`
	Speed            int                `yaml:"speed" json:"speed"`
	Cunning          int                `yaml:"cunning" json:"cunning"`
	ThreatLevel      int                `yaml:"threat_level" json:"threat_level"`
	MinProvinceLevel int                `yaml:"min_province_level" json:"min_province_level"`
	Rewards          realm.Resources    `yaml:"rewards" json:"rewards,omitempty"`
	Penalties        realm.Resources    `yaml:"penalties" json:"penalties,omitempty"`
	SpawnWeight      float64            `yaml:"spawn_weight" json:"spawn_weight"`
	Requirements     *SpawnRequirements `yaml:"requirements,omitempty" json:"requirements,omitempty"`
}

// Validate checks the catalog invariants of an enemy entry.
func (e *EnemyForce) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: nil enemy", realm.ErrInvalidSnapshot)
	}
	if e.ID == "" {
		return fmt.Errorf("%w: enemy without id", realm.ErrInvalidSnapshot)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("%w: enemy %s type %q", realm.ErrInvalidSnapshot, e.ID, e.Type)
	}
	for name, v := range map[string]int{
		"strength": e.Strength, "toughness": e.Toughness, "speed": e.Speed, "cunning": e.Cunning,
	} {
		if v < 1 || v > 100 {
			return fmt.Errorf("%w: enemy %s %s %d outside 1-100", realm.ErrInvalidSnapshot, e.ID, name, v)
		}
	}
	if e.ThreatLevel < 1 || e.ThreatLevel > 10 {
		return fmt.Errorf("%w: enemy %s threat level %d outside 1-10", realm.ErrInvalidSnapshot, e.ID, e.ThreatLevel)
	}
	if e.SpawnWeight < 0 {
		return fmt.Errorf("%w: enemy %s negative spawn weight", realm.ErrInvalidSnapshot, e.ID)
	}
	if err := e.Rewards.Validate(true); err != nil {
		return fmt.Errorf("enemy %s rewards: %w", e.ID, err)
	}
	if err := e.Penalties.Validate(true); err != nil {
		return fmt.Errorf("enemy %s penalties: %w", e.ID, err)
	}
	return nil
}

// DisplayName falls back to the id when the catalog omits a name.
func (e *EnemyForce) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}
