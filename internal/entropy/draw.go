package entropy

// Range draws uniformly from [lo, hi).
func Range(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}

// Between draws an int uniformly from [lo, hi] inclusive.
func Between(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.IntN(hi-lo+1)
}

// Chance is a Bernoulli draw succeeding with probability p.
// p <= 0 never succeeds and p >= 1 always does; neither consumes a draw.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return src.Float64() < p
}

// Pick performs roulette-wheel selection over weights. It draws one value in
// [0, total) and walks the list subtracting weights until the remainder is
// <= 0. Non-positive weights are never picked. Returns -1 when nothing can be
// picked; in that case no draw is consumed.
func Pick(src Source, weights []float64) int {
	total := 0.0
	last := -1
	for i, w := range weights {
		if w > 0 {
			total += w
			last = i
		}
	}
	if total <= 0 {
		return -1
	}

	remainder := src.Float64() * total
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		remainder -= w
		if remainder <= 0 {
			return i
		}
	}
	// Float rounding can leave a sliver past the final weight.
	return last
}
