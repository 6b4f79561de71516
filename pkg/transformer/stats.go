package transformer

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Column statistics over non-missing values. Callers guarantee len(x) > 0.

func mean(x []float64) float64 {
	return stat.Mean(x, nil)
}

// stddev is the sample standard deviation; a single observation has zero spread.
func stddev(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return stat.StdDev(x, nil)
}

func minMax(x []float64) (float64, float64) {
	return floats.Min(x), floats.Max(x)
}

func sortedCopy(x []float64) []float64 {
	s := make([]float64, len(x))
	copy(s, x)
	sort.Float64s(s)
	return s
}

func median(x []float64) float64 {
	return quantile(sortedCopy(x), 0.5)
}

// quantile interpolates linearly between the closest ranks at p*(n-1) of an
// ascending slice.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	rank := p * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// iqr returns the first quartile, third quartile and their difference.
func iqr(x []float64) (q1, q3, spread float64) {
	s := sortedCopy(x)
	q1 = quantile(s, 0.25)
	q3 = quantile(s, 0.75)
	return q1, q3, q3 - q1
}

// numericMode returns the most frequent value; ties resolve to the smallest.
func numericMode(x []float64) float64 {
	counts := make(map[float64]int, len(x))
	for _, v := range x {
		counts[v]++
	}
	best, bestCount := math.NaN(), 0
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best
}

// stringMode returns the most frequent value; ties resolve to the lexically smallest.
func stringMode(x []string) string {
	counts := make(map[string]int, len(x))
	for _, v := range x {
		counts[v]++
	}
	best, bestCount := "", 0
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best
}

// distinctInOrder returns the distinct values of x in first-seen order.
func distinctInOrder(x []string) []string {
	seen := make(map[string]struct{}, len(x))
	var out []string
	for _, v := range x {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
