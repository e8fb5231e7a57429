// Package core provides the in-memory property graph behind the engine.
//
// Graph keeps vertices keyed by label and id, per-label ordered id indexes
// built on B-trees, and out/in adjacency lists grouped by edge label. Like
// the key-value store it grew out of, it exposes its read-write mutex so
// that callers can hold a consistent view across many lookups; the lookup
// and apply methods themselves never lock.
package core

import (
	"fmt"
	"iter"
	"sync"

	"github.com/sanonone/kektorsnb/pkg/graph"
	"github.com/sanonone/kektorsnb/pkg/schema"
	"github.com/tidwall/btree"
)

type adjacency map[string][]graph.Edge

// Graph is an in-memory labelled property graph.
type Graph struct {
	mu sync.RWMutex

	vertices map[graph.Key]*graph.Vertex
	ids      map[string]*btree.BTreeG[int64]
	out      map[graph.Key]adjacency
	in       map[graph.Key]adjacency

	edgeCounts map[string]int64
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		vertices:   make(map[graph.Key]*graph.Vertex),
		ids:        make(map[string]*btree.BTreeG[int64]),
		out:        make(map[graph.Key]adjacency),
		in:         make(map[graph.Key]adjacency),
		edgeCounts: make(map[string]int64),
	}
}

// RLock locks the graph for reading.
// Use it with RUnlock around multi-step reads that need a consistent view.
func (g *Graph) RLock() { g.mu.RLock() }

// RUnlock releases a read lock taken with RLock.
func (g *Graph) RUnlock() { g.mu.RUnlock() }

// Lock locks the graph for writing.
func (g *Graph) Lock() { g.mu.Lock() }

// Unlock releases a write lock taken with Lock.
func (g *Graph) Unlock() { g.mu.Unlock() }

// Vertex implements graph.Reader. The caller must hold at least a read lock.
func (g *Graph) Vertex(label string, id int64) (*graph.Vertex, bool) {
	v, ok := g.vertices[graph.Key{Label: label, ID: id}]
	return v, ok
}

// HasVertex reports whether k exists. The caller must hold at least a read lock.
func (g *Graph) HasVertex(k graph.Key) bool {
	_, ok := g.vertices[k]
	return ok
}

// Edges implements graph.Reader. The caller must hold at least a read lock
// for as long as the sequence is being consumed.
func (g *Graph) Edges(from graph.Key, edgeLabel string, dir graph.Direction) iter.Seq[graph.Edge] {
	idx := g.out
	if dir == graph.In {
		idx = g.in
	}
	return func(yield func(graph.Edge) bool) {
		adj, ok := idx[from]
		if !ok {
			return
		}
		for _, e := range adj[edgeLabel] {
			if !yield(e) {
				return
			}
		}
	}
}

// PutVertex inserts v. The caller must hold the write lock.
func (g *Graph) PutVertex(v graph.Vertex) error {
	k := v.Key()
	if _, exists := g.vertices[k]; exists {
		return fmt.Errorf("%w: %s", graph.ErrDuplicateVertex, k)
	}
	if v.Props == nil {
		v.Props = graph.Props{}
	}
	stored := v
	g.vertices[k] = &stored

	tree, ok := g.ids[v.Label]
	if !ok {
		tree = btree.NewBTreeG[int64](func(a, b int64) bool { return a < b })
		g.ids[v.Label] = tree
	}
	tree.Set(v.ID)
	return nil
}

// PutEdge inserts e. Both endpoints must already exist. The caller must hold
// the write lock.
func (g *Graph) PutEdge(e graph.Edge) error {
	if !g.HasVertex(e.From) {
		return fmt.Errorf("%w: %s -[%s]-> %s (from)", graph.ErrMissingEndpoint, e.From, e.Label, e.To)
	}
	if !g.HasVertex(e.To) {
		return fmt.Errorf("%w: %s -[%s]-> %s (to)", graph.ErrMissingEndpoint, e.From, e.Label, e.To)
	}
	if e.Props == nil {
		e.Props = graph.Props{}
	}
	appendEdge(g.out, e.From, e)
	appendEdge(g.in, e.To, e)
	g.edgeCounts[e.Label]++
	return nil
}

func appendEdge(idx map[graph.Key]adjacency, k graph.Key, e graph.Edge) {
	adj, ok := idx[k]
	if !ok {
		adj = make(adjacency)
		idx[k] = adj
	}
	adj[e.Label] = append(adj[e.Label], e)
}

// ScanVertices calls fn for every vertex with the given label in ascending
// id order until fn returns false. The caller must hold at least a read lock.
func (g *Graph) ScanVertices(label string, fn func(*graph.Vertex) bool) {
	tree, ok := g.ids[label]
	if !ok {
		return
	}
	tree.Scan(func(id int64) bool {
		return fn(g.vertices[graph.Key{Label: label, ID: id}])
	})
}

// ScanEdges calls fn for every edge in a deterministic order (source label,
// source id, edge label, insertion order) until fn returns false. The caller
// must hold at least a read lock.
func (g *Graph) ScanEdges(fn func(graph.Edge) bool) {
	labels := schema.EdgeLabels()
	for _, vl := range g.Labels() {
		cont := true
		g.ScanVertices(vl, func(v *graph.Vertex) bool {
			adj := g.out[v.Key()]
			for _, el := range labels {
				for _, e := range adj[el] {
					if !fn(e) {
						cont = false
						return false
					}
				}
			}
			return true
		})
		if !cont {
			return
		}
	}
}

// Labels returns the schema vertex labels followed by any other label
// present, sorted. The caller must hold at least a read lock.
func (g *Graph) Labels() []string {
	labels := schema.VertexLabels()
	known := make(map[string]bool, len(labels))
	for _, l := range labels {
		known[l] = true
	}
	extra := btree.NewBTreeG[string](func(a, b string) bool { return a < b })
	for l := range g.ids {
		if !known[l] {
			extra.Set(l)
		}
	}
	extra.Scan(func(l string) bool {
		labels = append(labels, l)
		return true
	})
	return labels
}

// Stats summarises the graph contents.
type Stats struct {
	Vertices map[string]int64 `json:"vertices"`
	Edges    map[string]int64 `json:"edges"`
}

// Stats returns per-label vertex and edge counts. It takes the read lock.
func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s := Stats{
		Vertices: make(map[string]int64, len(g.ids)),
		Edges:    make(map[string]int64, len(g.edgeCounts)),
	}
	for label, tree := range g.ids {
		s.Vertices[label] = int64(tree.Len())
	}
	for label, n := range g.edgeCounts {
		s.Edges[label] = n
	}
	return s
}

// Reset drops all contents. The caller must hold the write lock.
func (g *Graph) Reset() {
	g.vertices = make(map[graph.Key]*graph.Vertex)
	g.ids = make(map[string]*btree.BTreeG[int64])
	g.out = make(map[graph.Key]adjacency)
	g.in = make(map[graph.Key]adjacency)
	g.edgeCounts = make(map[string]int64)
}
