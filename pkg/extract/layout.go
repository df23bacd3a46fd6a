package extract

import (
	"math"
	"sort"

	"github.com/civicledger/budgetmap/pkg/document"
)

// Cluster is a group of nearby x positions.
type Cluster struct {
	Median float64
	Min    float64
	Max    float64
	Count  int
}

// ClusterPositions groups sorted x positions, starting a new cluster whenever
// the gap to the previous position exceeds gap. Clusters are returned in
// ascending order of median.
func ClusterPositions(xs []float64, gap float64) []Cluster {
	if len(xs) == 0 {
		return nil
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	var clusters []Cluster
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) && sorted[i]-sorted[i-1] <= gap {
			continue
		}
		group := sorted[start:i]
		clusters = append(clusters, Cluster{
			Median: median(group),
			Min:    group[0],
			Max:    group[len(group)-1],
			Count:  len(group),
		})
		start = i
	}
	return clusters
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// LeftMargin returns the x threshold at or below which a token counts as
// left-aligned: the leftmost cluster median plus tolerance.
func LeftMargin(tokens []document.Token, gap, tolerance float64) float64 {
	xs := make([]float64, 0, len(tokens))
	for _, t := range tokens {
		xs = append(xs, t.X)
	}
	clusters := ClusterPositions(xs, gap)
	if len(clusters) == 0 {
		return math.Inf(-1)
	}
	return clusters[0].Median + tolerance
}

// Band is an x range assigned to one hierarchy level.
type Band struct {
	Level string
	Low   float64
	High  float64
}

// Bands maps cluster medians to the given level labels, one band of
// ±halfWidth per label. Extra clusters are ignored.
func Bands(clusters []Cluster, labels []string, halfWidth float64) []Band {
	bands := make([]Band, 0, len(labels))
	for i, c := range clusters {
		if i >= len(labels) {
			break
		}
		bands = append(bands, Band{Level: labels[i], Low: c.Median - halfWidth, High: c.Median + halfWidth})
	}
	return bands
}

// Assign returns the level whose band contains x, or else the band with the
// nearest edge.
func Assign(bands []Band, x float64) string {
	for _, b := range bands {
		if x >= b.Low && x <= b.High {
			return b.Level
		}
	}
	best, bestDist := "", math.Inf(1)
	for _, b := range bands {
		d := math.Min(math.Abs(x-b.Low), math.Abs(x-b.High))
		if d < bestDist {
			best, bestDist = b.Level, d
		}
	}
	return best
}
