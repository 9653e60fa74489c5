package worldmap

import "container/heap"

// FindPath runs Dijkstra over the authored edges and returns the total
// distance plus the ordered node-id path. from==to returns {0, [from]}.
// When no edge-connected path exists the result falls back to straight-line
// distance between the node positions scaled by TravelDistanceScale with a
// direct two-node path; the fallback never consults edges, so it cannot
// beat an authored shortcut.
func (m *Map) FindPath(from, to string) (float64, []string, bool) {
	a := m.byID[from]
	b := m.byID[to]
	if a == nil || b == nil {
		return 0, nil, false
	}
	if from == to {
		return 0, []string{from}, true
	}

	dist := map[string]float64{from: 0}
	prev := map[string]string{}
	visited := map[string]bool{}

	pq := &nodeQueue{{id: from, dist: 0}}
	heap.Init(pq)
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(queueItem)
		if visited[cur.id] {
			continue
		}
		visited[cur.id] = true
		if cur.id == to {
			break
		}
		for _, adj := range m.adj[cur.id] {
			next := cur.dist + adj.distance
			if d, seen := dist[adj.to]; !seen || next < d {
				dist[adj.to] = next
				prev[adj.to] = cur.id
				heap.Push(pq, queueItem{id: adj.to, dist: next})
			}
		}
	}

	if !visited[to] {
		d := a.Pos.DistanceTo(b.Pos) * m.TravelDistanceScale
		return d, []string{from, to}, true
	}

	path := []string{to}
	for at := to; at != from; {
		at = prev[at]
		path = append(path, at)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return dist[to], path, true
}

type queueItem struct {
	id   string
	dist float64
}

type nodeQueue []queueItem

func (q nodeQueue) Len() int            { return len(q) }
func (q nodeQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q nodeQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x any)         { *q = append(*q, x.(queueItem)) }
func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}
