// Package demo builds a starter empire for fresh databases.
package demo

import (
	"context"
	"fmt"
	"time"

	"github.com/talgya/idle-empire/internal/realm"
	"github.com/talgya/idle-empire/internal/terrain"
)

// UserID and CityID own every demo province.
const (
	UserID = "demo"
	CityID = "demo-city"
)

type seed struct {
	id, name    string
	level       int
	governor    string
	personality realm.Personality
	buildings   map[realm.BuildingType]int
	population  int
}

var seeds = []seed{
	{"prov-01", "Ashford", 2, "Aldric", realm.Conservative, map[realm.BuildingType]int{realm.Walls: 2, realm.Barracks: 1, realm.Farm: 2}, 400},
	{"prov-02", "Brightwater", 1, "Mira", realm.Merchant, map[realm.BuildingType]int{realm.Market: 1, realm.Farm: 1}, 250},
	{"prov-03", "Cinderholt", 3, "Varek", realm.Aggressive, map[realm.BuildingType]int{realm.Barracks: 2, realm.Smithy: 1, realm.Mine: 1}, 520},
	{"prov-04", "Duskmere", 1, "Sela", realm.Explorer, map[realm.BuildingType]int{realm.Watchtower: 1, realm.Library: 1}, 180},
	{"prov-05", "Eastmarch", 1, "", "", map[realm.BuildingType]int{realm.Farm: 1}, 120},
}

// Provinces returns the demo provinces with terrain sampled from gen.
func Provinces(gen *terrain.Generator) []*realm.Province {
	out := make([]*realm.Province, 0, len(seeds))
	for _, s := range seeds {
		p := &realm.Province{
			ID:     s.id,
			UserID: UserID,
			CityID: CityID,
			Name:   s.name,
			Level:  s.level,
			Threat: s.level - 1,
			Resources: realm.Resources{
				realm.Gold:       300 + 50*s.level,
				realm.Food:       400,
				realm.Influence:  20,
				realm.Stone:      150,
				realm.Iron:       60,
				realm.Population: s.population,
			},
			Terrain: string(gen.KindFor(s.id)),
		}
		for t, lvl := range s.buildings {
			p.Buildings = append(p.Buildings, realm.Building{Type: t, Level: lvl})
		}
		p.SortBuildings()
		if s.governor != "" {
			p.Governor = &realm.Governor{Name: s.governor, Personality: s.personality, Loyalty: 70}
		}
		out = append(out, p)
	}
	return out
}

// Store is what Seed writes through.
type Store interface {
	CountProvinces(ctx context.Context) (int, error)
	CreateProvince(ctx context.Context, p *realm.Province, now time.Time) error
}

// Seed inserts the demo provinces when the store is empty and reports how
// many it created.
func Seed(ctx context.Context, store Store, gen *terrain.Generator, now time.Time) (int, error) {
	n, err := store.CountProvinces(ctx)
	if err != nil {
		return 0, fmt.Errorf("count provinces: %w", err)
	}
	if n > 0 {
		return 0, nil
	}
	provinces := Provinces(gen)
	for _, p := range provinces {
		if err := store.CreateProvince(ctx, p, now); err != nil {
			return 0, err
		}
	}
	return len(provinces), nil
}
