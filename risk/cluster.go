package risk

// ClusterBlocked reports whether opening symbol would put too many
// correlated positions on at once: the count of open symbols sharing
// symbol's cluster id must stay under maxPerCluster. Symbols absent from
// the cluster map are unconstrained.
func ClusterBlocked(symbol string, clusters map[string]int, openSymbols []string, maxPerCluster int) bool {
	id, ok := clusters[symbol]
	if !ok || maxPerCluster <= 0 {
		return false
	}

	inCluster := 0
	for _, open := range openSymbols {
		if openID, ok := clusters[open]; ok && openID == id {
			inCluster++
		}
	}
	return inCluster >= maxPerCluster
}
