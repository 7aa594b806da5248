package techrules

// DetectCycle reports ErrCycleDetected when the edges form a cycle.
// Cycles are allowed in a graph; this is a diagnostic only.
func DetectCycle(nodes []Node, edges []Edge) error {
	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e.To)
	}

	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)

	// Visit in node order, then edge endpoints, so the result never depends
	// on map iteration.
	var order []string
	state := make(map[string]int)
	track := func(id string) {
		if _, ok := state[id]; !ok {
			state[id] = unvisited
			order = append(order, id)
		}
	}
	for _, n := range nodes {
		track(n.ID)
	}
	for _, e := range edges {
		track(e.From)
		track(e.To)
	}

	var dfs func(id string) bool
	dfs = func(id string) bool {
		state[id] = visiting
		for _, next := range adj[id] {
			switch state[next] {
			case visiting:
				return true
			case unvisited:
				if dfs(next) {
					return true
				}
			}
		}
		state[id] = visited
		return false
	}

	for _, id := range order {
		if state[id] == unvisited && dfs(id) {
			return ErrCycleDetected
		}
	}
	return nil
}
