package events

import (
	"github.com/talgya/idle-empire/internal/combat"
	"github.com/talgya/idle-empire/internal/entropy"
	"github.com/talgya/idle-empire/internal/realm"
)

// EligibleEnemies filters the enemy catalog by province level, threat
// bounds, resource affinity, and season.
func EligibleEnemies(catalog []combat.EnemyForce, p *realm.Province, season realm.Season) []combat.EnemyForce {
	var out []combat.EnemyForce
	for _, e := range catalog {
		if p.Level < e.MinProvinceLevel {
			continue
		}
		if req := e.Requirements; req != nil {
			if p.Threat < req.MinThreat {
				continue
			}
			if req.MaxThreat > 0 && p.Threat > req.MaxThreat {
				continue
			}
			if !p.Resources.Covers(req.ResourceAffinity) {
				continue
			}
			if len(req.Seasons) > 0 && !hasSeason(req.Seasons, season) {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

func hasSeason(seasons []realm.Season, s realm.Season) bool {
	for _, x := range seasons {
		if x == s {
			return true
		}
	}
	return false
}

// SelectEnemy picks one enemy by spawn weight with the same roulette as
// SelectRandom.
func SelectEnemy(eligible []combat.EnemyForce, src entropy.Source) (combat.EnemyForce, bool) {
	weights := make([]float64, len(eligible))
	for i := range eligible {
		weights[i] = eligible[i].SpawnWeight
	}
	i := entropy.Pick(src, weights)
	if i < 0 {
		return combat.EnemyForce{}, false
	}
	return eligible[i], true
}
