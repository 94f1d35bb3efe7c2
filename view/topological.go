package view

import (
	"sort"
)

// Sort orders views so that every view comes after all of its dependencies.
// Views with no ordering constraint between them keep their input order, so
// the result is deterministic for a fixed input.
//
// Sort fails with *UnknownDependencyError when a dependency is not in views
// and with *CyclicDependencyError when no valid order exists.
func Sort(views []*Descriptor) ([]*Descriptor, error) {
	layers, err := Layers(views)
	if err != nil {
		return nil, err
	}
	sorted := make([]*Descriptor, 0, len(views))
	for _, layer := range layers {
		sorted = append(sorted, layer...)
	}
	return sorted, nil
}

// Layers groups views into build layers using Kahn's algorithm. Layer n
// holds the views whose dependencies all sit in layers before n.
func Layers(views []*Descriptor) ([][]*Descriptor, error) {
	if len(views) == 0 {
		return nil, nil
	}

	// Index by identity. The same Ref registered twice resolves to both nodes.
	refIndex := make(map[Ref][]int, len(views))
	for idx, v := range views {
		refIndex[v.Ref()] = append(refIndex[v.Ref()], idx)
	}

	// Build edges: if view A depends on view B, add edge B -> A
	inDegree := make([]int, len(views))
	dependents := make([][]int, len(views))
	depsOf := make([][]int, len(views))
	for a, v := range views {
		for _, dep := range v.dependencies {
			targets, ok := refIndex[dep]
			if !ok {
				return nil, &UnknownDependencyError{View: v.Ref(), Dependency: dep}
			}
			for _, b := range targets {
				dependents[b] = append(dependents[b], a)
				depsOf[a] = append(depsOf[a], b)
				inDegree[a]++
			}
		}
	}

	var ready []int
	for idx, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, idx)
		}
	}

	var layers [][]*Descriptor
	processed := make([]bool, len(views))
	done := 0
	for done < len(views) {
		if len(ready) == 0 {
			return nil, cycleError(views, depsOf, processed)
		}

		layer := make([]*Descriptor, 0, len(ready))
		var next []int
		for _, current := range ready {
			processed[current] = true
			layer = append(layer, views[current])
			for _, neighbor := range dependents[current] {
				inDegree[neighbor]--
				if inDegree[neighbor] == 0 {
					next = append(next, neighbor)
				}
			}
		}
		done += len(ready)
		layers = append(layers, layer)

		// Stable tie-break: definition order, never traversal order
		sort.Ints(next)
		ready = next
	}

	return layers, nil
}

// cycleError collects the residual graph left after Kahn's algorithm stalls.
func cycleError(views []*Descriptor, depsOf [][]int, processed []bool) *CyclicDependencyError {
	blocked := make(map[Ref][]Ref)
	for idx, v := range views {
		if processed[idx] {
			continue
		}
		var unresolved []Ref
		seen := make(map[Ref]bool)
		for _, dep := range depsOf[idx] {
			ref := views[dep].Ref()
			if !processed[dep] && !seen[ref] {
				seen[ref] = true
				unresolved = append(unresolved, ref)
			}
		}
		blocked[v.Ref()] = unresolved
	}

	return &CyclicDependencyError{
		Blocked: blocked,
		Cycles:  findCycles(views, depsOf, processed),
	}
}

// findCycles runs Tarjan's strongly connected components algorithm over the
// unprocessed views and keeps the components that contain a cycle.
func findCycles(views []*Descriptor, depsOf [][]int, processed []bool) [][]Ref {
	index := 0
	indices := make([]int, len(views))
	lowlink := make([]int, len(views))
	onStack := make([]bool, len(views))
	visited := make([]bool, len(views))
	var stack []int
	var cycles [][]Ref

	var strongConnect func(v int)
	strongConnect = func(v int) {
		visited[v] = true
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		selfLoop := false
		for _, w := range depsOf[v] {
			if processed[w] {
				continue
			}
			if w == v {
				selfLoop = true
			}
			if !visited[w] {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] != indices[v] {
			return
		}

		var component []int
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		if len(component) == 1 && !selfLoop {
			return
		}

		refs := make([]Ref, 0, len(component))
		seen := make(map[Ref]bool)
		for _, member := range component {
			ref := views[member].Ref()
			if !seen[ref] {
				seen[ref] = true
				refs = append(refs, ref)
			}
		}
		sortRefs(refs)
		cycles = append(cycles, refs)
	}

	for v := range views {
		if !processed[v] && !visited[v] {
			strongConnect(v)
		}
	}

	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i][0].String() < cycles[j][0].String()
	})
	return cycles
}

func sortRefs(refs []Ref) {
	sort.Slice(refs, func(i, j int) bool {
		return refs[i].String() < refs[j].String()
	})
}
