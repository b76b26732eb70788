package events

import (
	"math"

	"github.com/talgya/idle-empire/internal/entropy"
	"github.com/talgya/idle-empire/internal/realm"
)

// Event-spawn probability terms.
const (
	baseEventChance  = 0.15
	maxEventChance   = 0.40
	levelBonus       = 0.05 // province level > 3
	threatBonus      = 0.10 // threat > 5
	empireSizeBonus  = 0.08 // more than 3 provinces
	levelBonusAbove  = 3
	threatBonusAbove = 5
	empireBonusAbove = 3
)

// EventChance returns the probability that province receives an event this
// cycle, in [0, 0.40].
func EventChance(p *realm.Province, empire *realm.Empire) float64 {
	chance := baseEventChance
	if p.Level > levelBonusAbove {
		chance += levelBonus
	}
	if p.Threat > threatBonusAbove {
		chance += threatBonus
	}
	if empire != nil && empire.ProvinceCount > empireBonusAbove {
		chance += empireSizeBonus
	}
	chance += p.Governor.Traits().EventBias
	return math.Max(0, math.Min(maxEventChance, chance))
}

// Eligible filters catalog down to the events province may receive.
func Eligible(catalog []GameEvent, p *realm.Province, empire *realm.Empire) []GameEvent {
	var out []GameEvent
	for _, e := range catalog {
		if meetsRequirements(e.Requirements, p, empire) {
			out = append(out, e)
		}
	}
	return out
}

func meetsRequirements(req *Requirements, p *realm.Province, empire *realm.Empire) bool {
	if req == nil {
		return true
	}
	if req.MinProvinces > 0 {
		if empire == nil || empire.ProvinceCount < req.MinProvinces {
			return false
		}
	}
	for b, lvl := range req.MinBuildings {
		if p.BuildingLevel(b) < lvl {
			return false
		}
	}
	for r, amt := range req.MinResources {
		if p.Resources.Get(r) < amt {
			return false
		}
	}
	if len(req.Personalities) > 0 {
		if p.Governor == nil {
			return false
		}
		allowed := false
		for _, pers := range req.Personalities {
			if pers == p.Governor.Personality {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	return true
}

// SelectRandom picks one event by effective weight. It returns false when
// eligible is empty or every weight is zero.
func SelectRandom(eligible []GameEvent, src entropy.Source) (GameEvent, bool) {
	weights := make([]float64, len(eligible))
	for i := range eligible {
		weights[i] = eligible[i].EffectiveWeight()
	}
	i := entropy.Pick(src, weights)
	if i < 0 {
		return GameEvent{}, false
	}
	return eligible[i], true
}
