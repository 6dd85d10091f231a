// Package weights turns untrusted raw aspect weights into a valid
// probability distribution over the aspect catalog.
package weights

import (
	"fmt"
	"math"

	"github.com/jonathan/candidate-ranker/internal/aspects"
	"github.com/jonathan/candidate-ranker/internal/types"
)

// Tolerance is the allowed deviation of a weight vector's sum from 1.
const Tolerance = 1e-6

// Raw is an unvalidated weight map as produced by the weight oracle. Keys may
// be unknown, values may be negative or non-finite, and entries may be missing.
type Raw map[string]float64

// Normalize projects raw onto the catalog's simplex. It never fails:
//  1. keys not in the catalog are dropped
//  2. negative and non-finite values become 0
//  3. if everything is 0 the result is uniform
//  4. the remaining weights are scaled by their maximum, then divided by
//     their sum
//
// When several raw keys map to the same catalog key the largest value wins.
func Normalize(raw Raw, catalog *aspects.Catalog) types.WeightVector {
	clamped := make(map[aspects.Key]float64, catalog.Len())
	for rawKey, value := range raw {
		key, ok := catalog.Parse(rawKey)
		if !ok {
			continue
		}
		value = clamp(value)
		if value > clamped[key] {
			clamped[key] = value
		}
	}

	keys := catalog.Keys()
	var peak float64
	for _, key := range keys {
		peak = math.Max(peak, clamped[key])
	}
	if peak == 0 {
		return Uniform(catalog)
	}

	// Scaling by the peak first keeps the sum finite for huge finite inputs.
	var total float64
	for _, key := range keys {
		clamped[key] /= peak
		total += clamped[key]
	}

	out := make(types.WeightVector, len(keys))
	for _, key := range keys {
		out[key] = clamped[key] / total
	}
	return out
}

// Uniform assigns 1/N to every catalog aspect.
func Uniform(catalog *aspects.Catalog) types.WeightVector {
	keys := catalog.Keys()
	out := make(types.WeightVector, len(keys))
	share := 1.0 / float64(len(keys))
	for _, key := range keys {
		out[key] = share
	}
	return out
}

// IsZero reports whether raw carries no usable weight for the catalog, which
// is the case Normalize resolves to the uniform distribution.
func IsZero(raw Raw, catalog *aspects.Catalog) bool {
	for rawKey, value := range raw {
		if _, ok := catalog.Parse(rawKey); ok && clamp(value) > 0 {
			return false
		}
	}
	return true
}

// Validate checks that w is a distribution over exactly the catalog's keys.
func Validate(w types.WeightVector, catalog *aspects.Catalog) error {
	if len(w) != catalog.Len() {
		return fmt.Errorf("weight vector has %d aspects, catalog has %d", len(w), catalog.Len())
	}
	for key, value := range w {
		if !catalog.Contains(key) {
			return fmt.Errorf("weight vector contains unknown aspect %q", key)
		}
		if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf("weight for aspect %q is invalid: %v", key, value)
		}
	}
	if sum := w.Sum(catalog); math.Abs(sum-1) > Tolerance {
		return fmt.Errorf("weights sum to %v, expected 1", sum)
	}
	return nil
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
