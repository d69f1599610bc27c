package campus

import (
	"container/heap"
	"sort"
	"strings"

	"campuslife.ai/internal/sim/campusdata"
)

// MapGraph is the immutable campus graph: locations, traversable edges, and
// building complexes whose members are mutually reachable at zero cost.
type MapGraph struct {
	nodes map[string]*campusdata.Node
	order []string
	adj   map[string][]graphEdge

	complexes []campusdata.BuildingComplex
	complexOf map[string]string
}

type graphEdge struct {
	To              string
	Cost            int
	Props           map[string]string
	ComplexInternal bool
}

func NewMapGraph(m *campusdata.MapData) *MapGraph {
	g := &MapGraph{
		nodes:     make(map[string]*campusdata.Node, len(m.Nodes)),
		adj:       make(map[string][]graphEdge, len(m.Nodes)),
		complexes: m.BuildingComplexes,
		complexOf: make(map[string]string),
	}
	for i := range m.Nodes {
		n := &m.Nodes[i]
		g.nodes[n.ID] = n
		g.order = append(g.order, n.ID)
		g.adj[n.ID] = nil
	}
	sort.Strings(g.order)

	for _, e := range m.Edges {
		g.adj[e.Source] = append(g.adj[e.Source], graphEdge{To: e.Target, Cost: e.TimeCost, Props: e.Properties})
		if !e.OneWay {
			g.adj[e.Target] = append(g.adj[e.Target], graphEdge{To: e.Source, Cost: e.TimeCost, Props: e.Properties})
		}
	}
	for _, c := range m.BuildingComplexes {
		for _, id := range c.MemberIDs {
			g.complexOf[id] = c.Name
		}
		for i, u := range c.MemberIDs {
			for _, v := range c.MemberIDs[i+1:] {
				g.adj[u] = append(g.adj[u], graphEdge{To: v, ComplexInternal: true})
				g.adj[v] = append(g.adj[v], graphEdge{To: u, ComplexInternal: true})
			}
		}
	}
	return g
}

func (g *MapGraph) Node(id string) (*campusdata.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// NodeIDs returns all location ids in sorted order.
func (g *MapGraph) NodeIDs() []string { return g.order }

// FindBuilding resolves a display name or alias, case-insensitively.
func (g *MapGraph) FindBuilding(name string) (node *campusdata.Node, alias string, ok bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, id := range g.order {
		n := g.nodes[id]
		if strings.ToLower(n.Name) == want {
			return n, "", true
		}
		for _, a := range n.Aliases {
			if strings.ToLower(a) == want {
				return n, a, true
			}
		}
	}
	return nil, "", false
}

// ComplexFor returns the complex containing the given location, if any.
func (g *MapGraph) ComplexFor(id string) (campusdata.BuildingComplex, bool) {
	name, ok := g.complexOf[id]
	if !ok {
		return campusdata.BuildingComplex{}, false
	}
	for _, c := range g.complexes {
		if c.Name == name {
			return c, true
		}
	}
	return campusdata.BuildingComplex{}, false
}

// edgeSatisfies applies the hard constraint set to one edge. Complex-internal
// hops are indoor transfers and bypass constraint checks. A constraint on a
// property the edge does not declare counts as violated.
func edgeSatisfies(e graphEdge, constraints map[string]string) bool {
	if e.ComplexInternal {
		return true
	}
	for key, want := range constraints {
		got, ok := e.Props[key]
		if !ok {
			return false
		}
		if key == "rain_exposure" && want == "Covered" {
			if strings.Contains(got, "Exposed") {
				return false
			}
			continue
		}
		if got != want {
			return false
		}
	}
	return true
}

type pathItem struct {
	cost int
	hops int
	key  string // "\x00"-joined id sequence; lexicographic tie-break
	node string
	path []string
}

type pathHeap []pathItem

func (h pathHeap) Len() int { return len(h) }
func (h pathHeap) Less(i, j int) bool {
	if h[i].cost != h[j].cost {
		return h[i].cost < h[j].cost
	}
	if h[i].hops != h[j].hops {
		return h[i].hops < h[j].hops
	}
	return h[i].key < h[j].key
}
func (h pathHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *pathHeap) Push(x any)   { *h = append(*h, x.(pathItem)) }
func (h *pathHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

func better(a, b pathItem) bool {
	if a.cost != b.cost {
		return a.cost < b.cost
	}
	if a.hops != b.hops {
		return a.hops < b.hops
	}
	return a.key < b.key
}

// FindPath returns the lowest-cost path from src to dst whose every edge
// satisfies all constraints, or ok=false if none exists. Edges violating a
// constraint are pruned before search, so satisfaction is exact. Among
// equal-cost paths the fewest-hop, then lexicographically smallest id
// sequence wins, which makes results reproducible across runs.
func (g *MapGraph) FindPath(src, dst string, constraints map[string]string) (path []string, cost int, ok bool) {
	if _, ok := g.nodes[src]; !ok {
		return nil, 0, false
	}
	if _, ok := g.nodes[dst]; !ok {
		return nil, 0, false
	}

	start := pathItem{node: src, key: src, path: []string{src}}
	h := &pathHeap{start}
	best := map[string]pathItem{src: start}

	for h.Len() > 0 {
		it := heap.Pop(h).(pathItem)
		if b, seen := best[it.node]; seen && better(b, it) {
			continue
		}
		if it.node == dst {
			return it.path, it.cost, true
		}
		for _, e := range g.adj[it.node] {
			if !edgeSatisfies(e, constraints) {
				continue
			}
			next := pathItem{
				cost: it.cost + e.Cost,
				hops: it.hops + 1,
				key:  it.key + "\x00" + e.To,
				node: e.To,
			}
			if b, seen := best[e.To]; seen && !better(next, b) {
				continue
			}
			next.path = append(append([]string{}, it.path...), e.To)
			best[e.To] = next
			heap.Push(h, next)
		}
	}
	return nil, 0, false
}

// HopExists reports whether a single step from a to b is traversable.
func (g *MapGraph) HopExists(a, b string) bool {
	for _, e := range g.adj[a] {
		if e.To == b {
			return true
		}
	}
	return false
}
