package combat

import (
	"fmt"
	"math"
	"strings"
)

// Weather clauses appear only for strong weather draws. The weather factor
// is drawn from [-0.05, 0.05), so the cut has to sit inside that range or
// no draw could ever reach it.
const weatherNarrativeThreshold = 0.04

// tone buckets the certainty of an outcome.
type tone int

const (
	toneNormal tone = iota
	toneDecisive
	toneClose
)

func toneOf(certainty float64) tone {
	switch {
	case certainty > 0.7:
		return toneDecisive
	case certainty < 0.3:
		return toneClose
	default:
		return toneNormal
	}
}

var outcomeLines = map[Outcome]map[tone]string{
	Victory: {
		toneDecisive: "The raiders are routed and flee, leaving their spoils behind.",
		toneClose:    "The defenders prevail, but only just; the last charge is turned back at the gate.",
		toneNormal:   "After a hard fight the raiders break and withdraw.",
	},
	// Draws always report certainty 0.5.
	Draw: {
		toneNormal: "Neither side yields; the raiders pull back to lick their wounds.",
	},
	Defeat: {
		toneDecisive: "The defenses collapse and the raiders plunder at will.",
		toneClose:    "The defenders nearly hold, but the line finally gives way.",
		toneNormal:   "The raiders force their way in and carry off what they can.",
	},
}

// Narrate synthesizes the engagement narrative from the enemy, the defense
// profile, and the result.
func Narrate(enemy *EnemyForce, defense DefenseForce, r Result) string {
	var b strings.Builder

	target := defense.ProvinceName
	if target == "" {
		target = "the province"
	}
	fmt.Fprintf(&b, "A %s force, %s (strength %d), descends on %s.", enemy.Type, enemy.DisplayName(), enemy.Strength, target)

	b.WriteString(" ")
	switch {
	case r.Factors.Surprise > 0.05:
		b.WriteString("Scouts spotted them early, and the defenders were ready before the first horn.")
	case r.Factors.Preparation >= 0.2:
		b.WriteString("Long preparation pays off as every post is already manned.")
	default:
		b.WriteString("The alarm comes late and the defenders scramble to their posts.")
	}

	b.WriteString(" ")
	b.WriteString(defense.Traits().Engagement)

	b.WriteString(" ")
	line, ok := outcomeLines[r.Outcome][toneOf(r.VictoryCertainty)]
	if !ok {
		line = outcomeLines[r.Outcome][toneNormal]
	}
	b.WriteString(line)

	if math.Abs(r.Factors.Weather) > weatherNarrativeThreshold {
		b.WriteString(" ")
		if r.Factors.Weather > 0 {
			b.WriteString("Driving rain bogs down the attackers' advance.")
		} else {
			b.WriteString("A clear sky and firm ground favor the attackers.")
		}
	}
	return b.String()
}
