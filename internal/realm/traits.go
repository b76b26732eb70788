package realm

// Personality is a governor's fixed temperament.
type Personality string

const (
	Aggressive   Personality = "AGGRESSIVE"
	Conservative Personality = "CONSERVATIVE"
	Merchant     Personality = "MERCHANT"
	Explorer     Personality = "EXPLORER"
)

// AllPersonalities returns every personality in a fixed order.
func AllPersonalities() []Personality {
	return []Personality{Aggressive, Conservative, Merchant, Explorer}
}

// Valid reports whether p is a known personality.
func (p Personality) Valid() bool {
	_, ok := traitTable[p]
	return ok
}

// Traits is the single lookup every formula keyed on personality reads from.
type Traits struct {
	Preparation float64 // combat preparation factor
	Tactical    float64 // combat tactical factor
	CombatBase  float64 // base governor bonus before loyalty/xp scaling
	EventBias   float64 // additive event-spawn probability bias

	// BuildPriority weights building upgrades in the governor policy.
	BuildPriority map[BuildingType]float64
	// ResearchPriority weights any research candidate.
	ResearchPriority float64

	// Engagement is the narrative clause used when the governor leads a defense.
	Engagement string
}

var traitTable = map[Personality]Traits{
	Aggressive: {
		Preparation: 0.15,
		Tactical:    0.10,
		CombatBase:  40,
		EventBias:   0.05,
		BuildPriority: map[BuildingType]float64{
			Barracks: 1.0, Walls: 0.7, Smithy: 0.9, Stable: 0.8, Watchtower: 0.4,
			Farm: 0.4, Quarry: 0.3, Mine: 0.5, Market: 0.2, Library: 0.2,
		},
		ResearchPriority: 0.35,
		Engagement:       "The governor charges at the head of the garrison, blade drawn.",
	},
	Conservative: {
		Preparation: 0.25,
		Tactical:    0.15,
		CombatBase:  25,
		EventBias:   -0.03,
		BuildPriority: map[BuildingType]float64{
			Walls: 1.0, Farm: 0.8, Watchtower: 0.7, Barracks: 0.5, Quarry: 0.6,
			Smithy: 0.4, Stable: 0.3, Mine: 0.4, Market: 0.4, Library: 0.4,
		},
		ResearchPriority: 0.45,
		Engagement:       "The governor holds the line behind the walls, trusting stone over steel.",
	},
	Merchant: {
		Preparation: 0.12,
		Tactical:    0.05,
		CombatBase:  15,
		EventBias:   0,
		BuildPriority: map[BuildingType]float64{
			Market: 1.0, Mine: 0.8, Farm: 0.7, Quarry: 0.6, Library: 0.5,
			Walls: 0.4, Barracks: 0.3, Watchtower: 0.3, Smithy: 0.3, Stable: 0.2,
		},
		ResearchPriority: 0.5,
		Engagement:       "The governor hires sellswords at a premium and haggles over every arrow.",
	},
	Explorer: {
		Preparation: 0.20,
		Tactical:    0.20,
		CombatBase:  20,
		EventBias:   0.10,
		BuildPriority: map[BuildingType]float64{
			Watchtower: 1.0, Library: 0.9, Stable: 0.7, Market: 0.5, Farm: 0.5,
			Walls: 0.4, Barracks: 0.4, Smithy: 0.3, Quarry: 0.3, Mine: 0.4,
		},
		ResearchPriority: 0.9,
		Engagement:       "The governor, who scouted these hills for years, springs an ambush from the ridgeline.",
	},
}

// noGovernorTraits applies to provinces without a governor.
var noGovernorTraits = Traits{
	Preparation:   0.10,
	Tactical:      0,
	CombatBase:    20,
	EventBias:     0,
	BuildPriority: map[BuildingType]float64{},
	Engagement:    "Without a governor, the militia fights as best it can.",
}

// TraitsFor returns the trait row for p. Unknown or empty personalities get
// the no-governor row.
func TraitsFor(p Personality) Traits {
	if t, ok := traitTable[p]; ok {
		return t
	}
	return noGovernorTraits
}
