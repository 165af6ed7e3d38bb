// Package vector keeps embedded documents and answers nearest-neighbour queries.
package vector

import (
	"fmt"
	"math"
	"sort"

	"github.com/mikey/email-onebox/internal/core"
)

// Distance scores how far apart two vectors are. Lower is closer.
type Distance func(a, b []float32) float64

// L2 returns the squared Euclidean distance
func L2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// Cosine returns 1 minus the cosine similarity. Zero vectors are maximally distant.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// DistanceByName resolves the configured metric
func DistanceByName(name string) (Distance, error) {
	switch name {
	case "", "l2":
		return L2, nil
	case "cosine":
		return Cosine, nil
	default:
		return nil, fmt.Errorf("%w: unsupported vector distance %q", core.ErrValidation, name)
	}
}

// rank scores every record against query and keeps the topK closest.
// Records of a different dimension are skipped.
func rank(records []core.VectorRecord, query []float32, topK int, dist Distance) []core.VectorMatch {
	matches := make([]core.VectorMatch, 0, len(records))
	for _, r := range records {
		if len(r.Vector) != len(query) {
			continue
		}
		matches = append(matches, core.VectorMatch{
			ID:       r.ID,
			Document: r.Document,
			Distance: dist(query, r.Vector),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
