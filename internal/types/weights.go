package types

import (
	"sort"

	"github.com/jonathan/candidate-ranker/internal/aspects"
)

// WeightVector is a probability distribution over catalog aspects.
type WeightVector map[aspects.Key]float64

// Get returns the weight for key, 0 when absent.
func (w WeightVector) Get(key aspects.Key) float64 {
	return w[key]
}

// Sum adds the weights in catalog order so the result is reproducible.
func (w WeightVector) Sum(catalog *aspects.Catalog) float64 {
	var total float64
	for _, key := range catalog.Keys() {
		total += w[key]
	}
	return total
}

// WeightedAspect pairs an aspect key with its weight.
type WeightedAspect struct {
	Key    aspects.Key `json:"key"`
	Weight float64     `json:"weight"`
}

// Sorted returns the weights ordered by weight descending, then key ascending.
func (w WeightVector) Sorted() []WeightedAspect {
	out := make([]WeightedAspect, 0, len(w))
	for k, v := range w {
		out = append(out, WeightedAspect{Key: k, Weight: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Key < out[j].Key
	})
	return out
}
