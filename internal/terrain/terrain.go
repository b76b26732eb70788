// Package terrain assigns each province a terrain kind using layered simplex
// noise. The assignment is a pure function of the world seed and province id,
// so a province keeps its terrain across restarts without storing the noise.
package terrain

import (
	"hash/fnv"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Kind is a province's dominant terrain.
type Kind string

const (
	Plains    Kind = "plains"
	Coast     Kind = "coast"
	Marsh     Kind = "marsh"
	Forest    Kind = "forest"
	Hills     Kind = "hills"
	Mountains Kind = "mountains"
)

// DefenseBonus returns the terrain combat factor for k.
func DefenseBonus(k Kind) float64 {
	switch k {
	case Mountains:
		return 0.12
	case Hills:
		return 0.08
	case Forest:
		return 0.05
	case Marsh:
		return 0.04
	case Coast:
		return 0.02
	default:
		return 0
	}
}

// Name returns a human-readable name for a terrain kind.
func Name(k Kind) string {
	switch k {
	case Plains:
		return "Plains"
	case Coast:
		return "Coast"
	case Marsh:
		return "Marsh"
	case Forest:
		return "Forest"
	case Hills:
		return "Hills"
	case Mountains:
		return "Mountains"
	default:
		return "Unknown"
	}
}

// Generator samples elevation and rainfall fields.
type Generator struct {
	elevNoise opensimplex.Noise
	rainNoise opensimplex.Noise
	span      float64
}

// NewGenerator creates a generator for a world seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		elevNoise: opensimplex.NewNormalized(seed),
		rainNoise: opensimplex.NewNormalized(seed + 1),
		span:      64,
	}
}

// KindFor returns the terrain of the province with the given id.
func (g *Generator) KindFor(provinceID string) Kind {
	x, y := g.position(provinceID)
	elevation := octaveNoise(g.elevNoise, x, y, 4, 0.05, 0.5)
	rainfall := octaveNoise(g.rainNoise, x, y, 3, 0.04, 0.5)
	return classify(elevation, rainfall)
}

// position hashes the id onto a point of the noise plane.
func (g *Generator) position(id string) (float64, float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	sum := h.Sum64()
	x := float64(sum&0xffffffff) / float64(0xffffffff) * g.span
	y := float64(sum>>32) / float64(0xffffffff) * g.span
	return x, y
}

func classify(elevation, rainfall float64) Kind {
	switch {
	case elevation > 0.70:
		return Mountains
	case elevation > 0.58:
		return Hills
	case elevation < 0.30:
		return Coast
	case rainfall > 0.62 && elevation < 0.42:
		return Marsh
	case rainfall > 0.52:
		return Forest
	default:
		return Plains
	}
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
