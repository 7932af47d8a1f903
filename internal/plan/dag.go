package plan

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cedarbackup/cback/internal/action"
)

// graph has one node per requested occurrence. An edge from i to j means
// node i must run before node j.
type graph struct {
	descs    []action.Descriptor
	forward  [][]int
	inDegree []int
}

func (g *graph) addEdge(from, to int) {
	g.forward[from] = append(g.forward[from], to)
	g.inDegree[to]++
}

// buildDependency orders the request topologically over declared before and
// after constraints. Built-ins carry the pipeline order as before
// constraints, so it always holds.
func buildDependency(names []string, reg *action.Registry, hooks *action.HookTable) ([]Step, error) {
	if err := checkDependencyRefs(reg); err != nil {
		return nil, err
	}

	g := &graph{
		descs:    make([]action.Descriptor, len(names)),
		forward:  make([][]int, len(names)),
		inDegree: make([]int, len(names)),
	}
	present := make(map[string][]int, len(names))
	for i, name := range names {
		g.descs[i] = mustLookup(reg, name)
		present[name] = append(present[name], i)
	}

	for i, d := range g.descs {
		deps := dependenciesOf(d)
		// Constraints naming actions absent from this request are dropped.
		for _, b := range deps.Before {
			for _, j := range present[b] {
				g.addEdge(i, j)
			}
		}
		for _, a := range deps.After {
			for _, j := range present[a] {
				g.addEdge(j, i)
			}
		}
	}

	order, err := g.sort()
	if err != nil {
		return nil, err
	}

	steps := make([]Step, len(order))
	for i, n := range order {
		steps[i] = newStep(g.descs[n], hooks)
	}
	return steps, nil
}

// checkDependencyRefs validates every declared constraint against the whole
// registry, whether or not the declaring action was requested.
func checkDependencyRefs(reg *action.Registry) error {
	for _, d := range reg.Descriptors() {
		deps := dependenciesOf(d)
		for _, ref := range slices.Concat(deps.Before, deps.After) {
			if !reg.Known(ref) {
				return newError(CodeUnknownDependency, []string{d.Name, ref},
					"action %q depends on unknown action %q", d.Name, ref)
			}
		}
	}
	return nil
}

func dependenciesOf(d action.Descriptor) action.Dependencies {
	deps, ok := d.Ordering.(action.Dependencies)
	if !ok {
		panic(fmt.Sprintf("plan: action %q has %T ordering in dependency mode", d.Name, d.Ordering))
	}
	return deps
}

// sort runs Kahn's algorithm. Among ready nodes the lowest request ordinal
// is always taken first, which makes the order reproducible.
func (g *graph) sort() ([]int, error) {
	inDegree := slices.Clone(g.inDegree)

	var ready []int
	for n, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, n)
		}
	}

	sorted := make([]int, 0, len(g.descs))
	for len(ready) > 0 {
		node := ready[0]
		ready = ready[1:]
		sorted = append(sorted, node)

		for _, next := range g.forward[node] {
			inDegree[next]--
			if inDegree[next] == 0 {
				pos, _ := slices.BinarySearch(ready, next)
				ready = slices.Insert(ready, pos, next)
			}
		}
	}

	if len(sorted) == len(g.descs) {
		return sorted, nil
	}

	path := g.findCyclePath(inDegree)
	return nil, newError(CodeCycleDetected, uniqueNames(path),
		"circular dependency detected: %s", strings.Join(path, " -> "))
}

// findCyclePath walks the nodes Kahn's algorithm could not order and
// returns one cycle as action names, first name repeated at the end.
func (g *graph) findCyclePath(inDegree []int) []string {
	const (
		white = 0 // unvisited
		gray  = 1 // in current path
		black = 2 // finished
	)

	color := make([]int, len(g.descs))
	parent := make([]int, len(g.descs))

	var cycle []int

	var dfs func(node int) bool
	dfs = func(node int) bool {
		color[node] = gray
		for _, next := range g.forward[node] {
			if color[next] == gray {
				cycle = []int{next}
				for cur := node; cur != next; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, next)
				slices.Reverse(cycle)
				return true
			}
			if color[next] == white {
				parent[next] = node
				if dfs(next) {
					return true
				}
			}
		}
		color[node] = black
		return false
	}

	for n := range g.descs {
		if inDegree[n] > 0 && color[n] == white && dfs(n) {
			path := make([]string, len(cycle))
			for i, c := range cycle {
				path[i] = g.descs[c].Name
			}
			return path
		}
	}

	return []string{"(cycle detected)"}
}

func uniqueNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
