package db

import (
	"sort"

	"github.com/pgvector/pgvector-go"
)

// vectorArg converts a vector for a nullable column. Empty vectors are NULL.
func vectorArg(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v)
}

func vectorSlice(v *pgvector.Vector) []float32 {
	if v == nil {
		return nil
	}
	return v.Slice()
}

func sortedLabels(m map[string][]float32) []string {
	labels := make([]string, 0, len(m))
	for k := range m {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return labels
}
