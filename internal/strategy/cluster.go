package strategy

import (
	"math"
	"time"

	"StockLens/internal/model"
)

// ClusterByDate groups ascending row indices into runs whose consecutive
// members are at most maxGapDays calendar days apart. The gap is measured from
// the last member of the open cluster. dates is indexed by row position.
func ClusterByDate(dates []time.Time, indices []int, maxGapDays int) []model.Cluster {
	clusters := []model.Cluster{}
	if len(indices) == 0 {
		return clusters
	}

	current := model.Cluster{indices[0]}
	for _, idx := range indices[1:] {
		last := current[len(current)-1]
		if model.DaysBetween(dates[last], dates[idx]) <= maxGapDays {
			current = append(current, idx)
			continue
		}
		clusters = append(clusters, current)
		current = model.Cluster{idx}
	}
	return append(clusters, current)
}

// SelectIndex picks the member at quantile q of the cluster, rounding the
// position half to even. It returns -1 for an empty cluster.
func SelectIndex(cluster model.Cluster, q float64) int {
	n := len(cluster)
	if n == 0 {
		return -1
	}
	pos := int(math.RoundToEven(q * float64(n-1)))
	pos = max(0, min(pos, n-1))
	return cluster[pos]
}

// QuantileFor maps a case to the quantile used inside each cluster.
func QuantileFor(c model.Case, avgQ, greedyQ float64) float64 {
	switch c {
	case model.CaseMin:
		return 0
	case model.CaseAverage:
		return avgQ
	case model.CaseGreedy:
		return greedyQ
	default:
		return 0.5
	}
}
