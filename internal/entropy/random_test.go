package entropy

import (
	"math"
	"testing"
)

func TestSeededIsReplayable(t *testing.T) {
	a, b := NewSeeded(42), NewSeeded(42)
	for i := 0; i < 100; i++ {
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("draw %d differs: %v vs %v", i, x, y)
		}
	}
}

func TestSequenceCycles(t *testing.T) {
	s := NewSequence(0.1, 0.9)
	got := []float64{s.Float64(), s.Float64(), s.Float64()}
	if got[0] != 0.1 || got[1] != 0.9 || got[2] != 0.1 {
		t.Fatalf("unexpected sequence: %v", got)
	}
	if s.Draws() != 3 {
		t.Fatalf("draws = %d, want 3", s.Draws())
	}
	if v := NewSequence(0.99).IntN(5); v != 4 {
		t.Fatalf("IntN(5) at 0.99 = %d, want 4", v)
	}
}

func TestNewPicksSourceBySeed(t *testing.T) {
	if _, ok := New(0).(Crypto); !ok {
		t.Fatalf("seed 0 should use the crypto source")
	}
	s, ok := New(7).(*Seeded)
	if !ok {
		t.Fatalf("non-zero seed should use a seeded source")
	}
	if s.Float64() != NewSeeded(7).Float64() {
		t.Fatalf("New(7) is not replayable against NewSeeded(7)")
	}
}

func TestCryptoRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		if f := (Crypto{}).Float64(); f < 0 || f >= 1 {
			t.Fatalf("crypto float out of range: %v", f)
		}
		if n := (Crypto{}).IntN(3); n < 0 || n > 2 {
			t.Fatalf("crypto IntN out of range: %d", n)
		}
	}
}

func TestChanceEdges(t *testing.T) {
	s := NewSequence(0.3)
	if Chance(s, 0) || !Chance(s, 1) {
		t.Fatalf("edge probabilities misbehave")
	}
	if s.Draws() != 0 {
		t.Fatalf("edge probabilities consumed %d draws", s.Draws())
	}
	if Chance(s, 0.3) {
		t.Fatalf("0.3 < 0.3 should fail")
	}
	if !Chance(s, 0.31) {
		t.Fatalf("0.3 < 0.31 should succeed")
	}
}

func TestBetweenInclusive(t *testing.T) {
	if got := Between(NewSequence(0), 10, 30); got != 10 {
		t.Fatalf("low draw = %d, want 10", got)
	}
	if got := Between(NewSequence(0.999), 10, 30); got != 30 {
		t.Fatalf("high draw = %d, want 30", got)
	}
}

func TestPickEmptyAndZero(t *testing.T) {
	s := NewSequence(0.5)
	if got := Pick(s, nil); got != -1 {
		t.Fatalf("empty pick = %d", got)
	}
	if got := Pick(s, []float64{0, 0}); got != -1 {
		t.Fatalf("zero-weight pick = %d", got)
	}
	if s.Draws() != 0 {
		t.Fatalf("failed picks consumed draws")
	}
	if got := Pick(NewSequence(0), []float64{0, 5, 5}); got != 1 {
		t.Fatalf("zero remainder should land on first positive weight, got %d", got)
	}
}

func TestPickConvergesToWeights(t *testing.T) {
	weights := []float64{10, 30, 60}
	src := NewSeeded(7)
	const n = 100000
	counts := make([]int, len(weights))
	for i := 0; i < n; i++ {
		counts[Pick(src, weights)]++
	}
	for i, w := range weights {
		got := float64(counts[i]) / n
		want := w / 100
		if math.Abs(got-want) > 0.01 {
			t.Fatalf("candidate %d frequency %.4f, want %.2f±0.01", i, got, want)
		}
	}
}
