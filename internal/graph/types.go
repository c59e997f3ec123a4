// Package graph provides the collection dependency graph used to validate
// and order seed plans.
package graph

// Node represents a collection in the dependency graph.
type Node struct {
	Name     string // Collection slug
	Position int    // Insertion order, used to break ties deterministically
}

// Edge represents a dependency: From must be seeded before To.
type Edge struct {
	From string // Referenced collection
	To   string // Referencing collection
}

// Graph is a directed dependency graph over collections. Iteration order
// always follows node insertion order.
type Graph struct {
	Nodes    map[string]*Node    // collection -> node
	Children map[string][]string // collection -> dependents (outgoing edges)
	Parents  map[string][]string // collection -> dependencies (incoming edges)
	order    []string
	edges    map[Edge]bool
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:    make(map[string]*Node),
		Children: make(map[string][]string),
		Parents:  make(map[string][]string),
		edges:    make(map[Edge]bool),
	}
}

// AddNode adds a collection. Adding an existing node is a no-op.
func (g *Graph) AddNode(name string) {
	if _, exists := g.Nodes[name]; exists {
		return
	}
	g.Nodes[name] = &Node{Name: name, Position: len(g.order)}
	g.order = append(g.order, name)
}

// AddEdge records that dependent references dependency. Both nodes are
// added if missing. Self-references and duplicate edges are ignored.
func (g *Graph) AddEdge(dependency, dependent string) {
	g.AddNode(dependency)
	g.AddNode(dependent)
	if dependency == dependent {
		return
	}
	e := Edge{From: dependency, To: dependent}
	if g.edges[e] {
		return
	}
	g.edges[e] = true
	g.Children[dependency] = append(g.Children[dependency], dependent)
	g.Parents[dependent] = append(g.Parents[dependent], dependency)
}

// GetChildren returns the collections that depend on name.
func (g *Graph) GetChildren(name string) []string {
	return g.Children[name]
}

// AllEdges returns every edge, ordered by source then target insertion.
func (g *Graph) AllEdges() []Edge {
	var edges []Edge
	for _, parent := range g.order {
		for _, child := range g.Children[parent] {
			edges = append(edges, Edge{From: parent, To: child})
		}
	}
	return edges
}

