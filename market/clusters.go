package market

import (
	"sort"

	"github.com/rustyeddy/tob/indicators"
)

// BuildClusters groups symbols whose return series correlate at or above
// threshold, using single-linkage union-find with path compression.
// Cluster ids are assigned in sorted symbol order so the mapping is
// deterministic.
func BuildClusters(returns map[string][]float64, threshold float64) map[string]int {
	symbols := make([]string, 0, len(returns))
	for s := range returns {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	parent := make(map[string]string, len(symbols))
	for _, s := range symbols {
		parent[s] = s
	}

	var find func(string) string
	find = func(s string) string {
		for parent[s] != s {
			parent[s] = parent[parent[s]]
			s = parent[s]
		}
		return s
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for i, a := range symbols {
		for _, b := range symbols[i+1:] {
			if indicators.Correlation(returns[a], returns[b]) >= threshold {
				union(a, b)
			}
		}
	}

	rootIDs := make(map[string]int, len(symbols))
	clusters := make(map[string]int, len(symbols))
	next := 0
	for _, s := range symbols {
		root := find(s)
		if _, ok := rootIDs[root]; !ok {
			rootIDs[root] = next
			next++
		}
		clusters[s] = rootIDs[root]
	}
	return clusters
}
