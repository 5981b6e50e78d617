package symbols

import "strings"

// defaultExternalPrefixes are namespaces the inheritance walk never enters:
// library types carry no rename records, so walking them is wasted work and
// a pollution risk.
var defaultExternalPrefixes = []string{"java.", "javax.", "android.", "androidx.", "kotlin."}

// InheritanceGraph holds child -> parents edges harvested from structural
// facts and from the source pre-scan. Parents cover both the super type and
// every implemented interface.
type InheritanceGraph struct {
	parents          map[string][]string
	externalPrefixes []string
}

// NewInheritanceGraph creates an empty graph. A nil prefix list selects the
// default external namespaces.
func NewInheritanceGraph(externalPrefixes []string) *InheritanceGraph {
	if externalPrefixes == nil {
		externalPrefixes = defaultExternalPrefixes
	}
	return &InheritanceGraph{
		parents:          make(map[string][]string),
		externalPrefixes: externalPrefixes,
	}
}

// AddEdge records child -> parent. Duplicate edges are dropped.
func (g *InheritanceGraph) AddEdge(child, parent string) {
	if child == "" || parent == "" || child == parent {
		return
	}
	for _, p := range g.parents[child] {
		if p == parent {
			return
		}
	}
	g.parents[child] = append(g.parents[child], parent)
}

// Parents returns the direct parents of a class.
func (g *InheritanceGraph) Parents(class string) []string {
	return g.parents[class]
}

// External reports whether a type belongs to the root object type or an
// excluded library namespace.
func (g *InheritanceGraph) External(class string) bool {
	if class == "java.lang.Object" {
		return true
	}
	for _, prefix := range g.externalPrefixes {
		if strings.HasPrefix(class, prefix) {
			return true
		}
	}
	return false
}

// Chain returns every ancestor reachable from start, breadth-first, start
// excluded. The visited set makes the walk safe against cyclic or
// self-referential inheritance facts; termination is a hard invariant here,
// not an optimization.
func (g *InheritanceGraph) Chain(start string) []string {
	var chain []string
	visited := map[string]bool{}
	queue := []string{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] || g.External(current) {
			continue
		}
		visited[current] = true
		if current != start {
			chain = append(chain, current)
		}
		queue = append(queue, g.parents[current]...)
	}
	return chain
}
