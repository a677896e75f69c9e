package questgraph

import (
	"container/heap"
	"slices"
	"strings"
)

// DetectCircularDependencies returns each distinct cycle once, following
// follow-up edges, rotated to start at its lowest catalog position.
// Diagnostic only: the other queries already tolerate cycles.
func (g *Graph) DetectCircularDependencies() [][]string {
	const (
		unvisited = iota
		onStack
		done
	)
	state := make(map[string]int, g.cat.Len())
	seen := make(map[string]bool)
	var cycles [][]string

	type frame struct {
		id   string
		next int
	}

	for _, start := range g.cat.IDs() {
		if state[start] != unvisited {
			continue
		}
		stack := []frame{{id: start}}
		path := []string{start}
		pos := map[string]int{start: 0}
		state[start] = onStack

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			adj := g.followUps[top.id]
			if top.next >= len(adj) {
				state[top.id] = done
				delete(pos, top.id)
				path = path[:len(path)-1]
				stack = stack[:len(stack)-1]
				continue
			}
			next := adj[top.next]
			top.next++

			switch state[next] {
			case onStack:
				cycle := g.canonicalCycle(path[pos[next]:])
				key := strings.Join(cycle, "\x00")
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
			case unvisited:
				state[next] = onStack
				pos[next] = len(path)
				path = append(path, next)
				stack = append(stack, frame{id: next})
			}
		}
	}
	return cycles
}

func (g *Graph) canonicalCycle(cycle []string) []string {
	minAt := 0
	for i, id := range cycle {
		if g.cat.Index(id) < g.cat.Index(cycle[minAt]) {
			minAt = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[minAt:]...)
	out = append(out, cycle[:minAt]...)
	return out
}

// OptimalPath returns id and all of its prerequisites in an order where every
// task follows its prerequisites and id comes last. Among tasks that are
// ready at the same time the one earliest in the catalog goes first. Unknown
// ids yield nil.
func (g *Graph) OptimalPath(id string) []string {
	id = g.cat.Resolve(id)
	if !g.cat.Has(id) {
		return nil
	}
	nodes := append([]string{id}, g.AllPrerequisites(id)...)
	return g.topoOrder(nodes, id)
}

// KappaPath orders the endgame-required tasks and their prerequisites into a
// completion plan using the same rules as OptimalPath.
func (g *Graph) KappaPath() []string {
	return g.topoOrder(g.KappaSet(), "")
}

// topoOrder runs Kahn's algorithm over the subgraph induced by nodes, using
// catalog position as priority. When only cycle members remain, the
// lowest-positioned one is emitted and its unsatisfied in-edges are dropped.
// A non-empty last is held back until everything else has been emitted.
func (g *Graph) topoOrder(nodes []string, last string) []string {
	inSet := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		inSet[n] = true
	}
	indeg := make(map[string]int, len(nodes))
	for _, n := range nodes {
		for _, p := range g.prereqs[n] {
			if inSet[p] {
				indeg[n]++
			}
		}
	}

	pending := len(nodes)
	if last != "" && inSet[last] {
		pending--
	}

	emitted := make(map[string]bool, len(nodes))
	ready := &indexHeap{}
	queued := make(map[string]bool, len(nodes))
	push := func(n string) {
		if n == last || queued[n] || emitted[n] {
			return
		}
		queued[n] = true
		heap.Push(ready, heapItem{id: n, pos: g.cat.Index(n)})
	}
	for _, n := range nodes {
		if indeg[n] == 0 {
			push(n)
		}
	}

	order := make([]string, 0, len(nodes))
	emit := func(n string) {
		emitted[n] = true
		order = append(order, n)
		for _, f := range g.followUps[n] {
			if !inSet[f] || emitted[f] {
				continue
			}
			indeg[f]--
			if indeg[f] <= 0 {
				push(f)
			}
		}
	}

	for len(order) < pending {
		if ready.Len() > 0 {
			emit(heap.Pop(ready).(heapItem).id)
			continue
		}
		// Cycle: break it at the earliest remaining task.
		var pick string
		for _, n := range nodes {
			if n == last || emitted[n] || queued[n] {
				continue
			}
			if pick == "" || g.cat.Index(n) < g.cat.Index(pick) {
				pick = n
			}
		}
		if pick == "" {
			break
		}
		queued[pick] = true
		emit(pick)
	}

	if last != "" && inSet[last] {
		order = append(order, last)
	}
	return slices.Clip(order)
}

type heapItem struct {
	id  string
	pos int
}

type indexHeap []heapItem

func (h indexHeap) Len() int           { return len(h) }
func (h indexHeap) Less(i, j int) bool { return h[i].pos < h[j].pos }
func (h indexHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *indexHeap) Push(x any)        { *h = append(*h, x.(heapItem)) }
func (h *indexHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}
