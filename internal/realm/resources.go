// Package realm provides the province, governor, and empire snapshots the
// simulation core reads and the resource arithmetic it performs on them.
package realm

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ErrInsufficientResources is returned when a cost cannot be covered by the
// available stock. It is a normal negative result, not a failure.
var ErrInsufficientResources = errors.New("insufficient resources")

// ErrInvalidSnapshot marks malformed input handed to the core.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// ResourceType names one of the six stockpiled resources.
type ResourceType string

const (
	Gold       ResourceType = "gold"
	Food       ResourceType = "food"
	Stone      ResourceType = "stone"
	Iron       ResourceType = "iron"
	Population ResourceType = "population"
	Influence  ResourceType = "influence"
)

// AllResourceTypes returns every resource type in a fixed order.
func AllResourceTypes() []ResourceType {
	return []ResourceType{Gold, Food, Stone, Iron, Population, Influence}
}

// Valid reports whether r is a known resource type.
func (r ResourceType) Valid() bool {
	switch r {
	case Gold, Food, Stone, Iron, Population, Influence:
		return true
	}
	return false
}

// Resources maps resource type to amount. Stocks are non-negative; deltas
// (event outcomes, combat results) may carry negative values.
type Resources map[ResourceType]int

// Get returns the amount held for r (zero when absent).
func (r Resources) Get(t ResourceType) int {
	if r == nil {
		return 0
	}
	return r[t]
}

// Clone returns an independent copy.
func (r Resources) Clone() Resources {
	out := make(Resources, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Add returns r + o per key.
func (r Resources) Add(o Resources) Resources {
	out := r.Clone()
	for k, v := range o {
		out[k] += v
	}
	return out
}

// Negate returns -r per key.
func (r Resources) Negate() Resources {
	out := make(Resources, len(r))
	for k, v := range r {
		out[k] = -v
	}
	return out
}

// Scale multiplies every amount by f and floors the result.
func (r Resources) Scale(f float64) Resources {
	out := make(Resources, len(r))
	for k, v := range r {
		out[k] = int(math.Floor(float64(v) * f))
	}
	return out
}

// Covers reports whether the stock r can pay cost without going negative.
func (r Resources) Covers(cost Resources) bool {
	for k, v := range cost {
		if v > 0 && r.Get(k) < v {
			return false
		}
	}
	return true
}

// Total sums all amounts.
func (r Resources) Total() int {
	n := 0
	for _, v := range r {
		n += v
	}
	return n
}

// IsZero reports whether every amount is zero.
func (r Resources) IsZero() bool {
	for _, v := range r {
		if v != 0 {
			return false
		}
	}
	return true
}

// Compact drops zero entries.
func (r Resources) Compact() Resources {
	out := make(Resources, len(r))
	for k, v := range r {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

// Validate rejects unknown resource keys and, for stocks, negative amounts.
func (r Resources) Validate(stock bool) error {
	for k, v := range r {
		if !k.Valid() {
			return fmt.Errorf("%w: unknown resource %q", ErrInvalidSnapshot, k)
		}
		if stock && v < 0 {
			return fmt.Errorf("%w: negative %s stock %d", ErrInvalidSnapshot, k, v)
		}
	}
	return nil
}

// String renders the non-zero amounts in a stable order, e.g. "gold +50, stone -10".
func (r Resources) String() string {
	keys := make([]string, 0, len(r))
	for k, v := range r {
		if v != 0 {
			keys = append(keys, string(k))
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %+d", k, r[ResourceType(k)]))
	}
	if len(parts) == 0 {
		return "nothing"
	}
	return strings.Join(parts, ", ")
}
