// Package graph records which produced resources use which, so the bundle
// can include shared resources once and leave out content that is only
// loaded dynamically.
package graph

import (
	"fmt"
	"sort"
)

// NodeID addresses a node in its Graph. IDs are stable for the life of the graph.
type NodeID int

// None is the parent of the root.
const None NodeID = -1

// Type is the load-reachability category of a node.
type Type int

const (
	Normal Type = iota
	// ExcludedCollectionProxy marks a proxy whose content is loaded at
	// runtime and left out of the initial bundle. The proxy itself ships.
	ExcludedCollectionProxy
)

func (t Type) String() string {
	switch t {
	case Normal:
		return "normal"
	case ExcludedCollectionProxy:
		return "excluded-collection-proxy"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Node is one produced resource. Parents and Children are ids into the
// owning graph, so the structure has no pointer cycles.
type Node struct {
	ID       NodeID
	Path     string
	Type     Type
	Parents  []NodeID
	Children []NodeID
}

// Graph is an arena of nodes keyed by path. It is built single-threaded
// during resolution and only read afterwards, which is safe from any number
// of goroutines.
type Graph struct {
	nodes  []Node
	byPath map[string]NodeID
}

// New returns a graph whose root node represents the build entry point.
func New(rootPath string) *Graph {
	g := &Graph{byPath: make(map[string]NodeID)}
	g.Add(rootPath, None)
	return g
}

// Root returns the id of the entry point.
func (g *Graph) Root() NodeID { return 0 }

// Add returns the node for path, creating it on first use, and records an
// edge from parent. A shared resource added under several parents stays a
// single node with several parent edges.
//
// A parent of None records no edge. A node created that way is unreachable
// from the root until another Add links it, and is listed by
// CreateExcludedResourcesList as long as it stays unlinked.
func (g *Graph) Add(path string, parent NodeID) NodeID {
	id, ok := g.byPath[path]
	if !ok {
		id = NodeID(len(g.nodes))
		g.nodes = append(g.nodes, Node{ID: id, Path: path})
		g.byPath[path] = id
	}
	if parent == None || parent == id {
		return id
	}
	n := &g.nodes[id]
	for _, p := range n.Parents {
		if p == parent {
			return id
		}
	}
	n.Parents = append(n.Parents, parent)
	g.nodes[parent].Children = append(g.nodes[parent].Children, id)
	return id
}

// SetType sets the reachability category of id.
func (g *Graph) SetType(id NodeID, t Type) {
	g.nodes[id].Type = t
}

// Node returns a copy of the node with id.
func (g *Graph) Node(id NodeID) Node {
	n := g.nodes[id]
	n.Parents = append([]NodeID(nil), n.Parents...)
	n.Children = append([]NodeID(nil), n.Children...)
	return n
}

// Lookup returns the id of path.
func (g *Graph) Lookup(path string) (NodeID, bool) {
	id, ok := g.byPath[path]
	return id, ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Paths returns every node path, sorted.
func (g *Graph) Paths() []string {
	out := make([]string, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n.Path)
	}
	sort.Strings(out)
	return out
}

// CreateExcludedResourcesList returns, sorted, the paths of every node that
// can only be reached from the root through an excluded collection proxy.
// A node with at least one path from the root that avoids every excluded
// proxy stays in the bundle.
func (g *Graph) CreateExcludedResourcesList() []string {
	if len(g.nodes) == 0 {
		return nil
	}
	reached := make([]bool, len(g.nodes))
	queue := []NodeID{g.Root()}
	reached[g.Root()] = true
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if g.nodes[id].Type == ExcludedCollectionProxy {
			continue
		}
		for _, c := range g.nodes[id].Children {
			if !reached[c] {
				reached[c] = true
				queue = append(queue, c)
			}
		}
	}

	var excluded []string
	for i, ok := range reached {
		if !ok {
			excluded = append(excluded, g.nodes[i].Path)
		}
	}
	sort.Strings(excluded)
	return excluded
}

// Walk visits nodes depth first from the root, each once, children in
// insertion order.
func (g *Graph) Walk(fn func(n Node, depth int)) {
	if len(g.nodes) == 0 {
		return
	}
	visited := make([]bool, len(g.nodes))
	var visit func(id NodeID, depth int)
	visit = func(id NodeID, depth int) {
		if visited[id] {
			return
		}
		visited[id] = true
		fn(g.Node(id), depth)
		for _, c := range g.nodes[id].Children {
			visit(c, depth+1)
		}
	}
	visit(g.Root(), 0)
}
