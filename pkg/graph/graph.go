// Package graph defines how the query library reaches the property graph.
//
// The interfaces here are deliberately small: a label-qualified point lookup,
// a lazy edge iterator filtered by label and direction, and two scopes (read
// and write) with commit-on-success / rollback-on-failure semantics. Storage,
// indexing and isolation are the implementation's business.
package graph

import (
	"context"
	"errors"
	"fmt"
	"iter"
)

var (
	// ErrDuplicateVertex is returned when a vertex with the same label and id already exists.
	ErrDuplicateVertex = errors.New("duplicate vertex")
	// ErrMissingEndpoint is returned when an edge references a vertex that does not exist.
	ErrMissingEndpoint = errors.New("edge endpoint does not exist")
)

// Direction selects which side of an edge a traversal follows.
type Direction int

const (
	// Out follows edges whose From is the current vertex.
	Out Direction = iota
	// In follows edges whose To is the current vertex.
	In
)

func (d Direction) String() string {
	if d == In {
		return "in"
	}
	return "out"
}

// Key is the label-qualified identity of a vertex.
type Key struct {
	Label string `json:"label"`
	ID    int64  `json:"id"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Label, k.ID)
}

// K is shorthand for Key{Label: label, ID: id}.
func K(label string, id int64) Key {
	return Key{Label: label, ID: id}
}

// Vertex is a labelled node with its properties.
type Vertex struct {
	Label string `json:"label"`
	ID    int64  `json:"id"`
	Props Props  `json:"props,omitempty"`
}

// Key returns the vertex identity.
func (v *Vertex) Key() Key {
	return Key{Label: v.Label, ID: v.ID}
}

// Edge is a directed, labelled relationship between two vertices.
type Edge struct {
	Label string `json:"label"`
	From  Key    `json:"from"`
	To    Key    `json:"to"`
	Props Props  `json:"props,omitempty"`
}

// Other returns the endpoint of e reached when walking it in direction dir.
func (e Edge) Other(dir Direction) Key {
	if dir == In {
		return e.From
	}
	return e.To
}

// Reader is the read side of the graph.
//
// Edges returns a fresh lazy sequence on every call; sequences are not shared
// across calls and may be ranged over more than once.
type Reader interface {
	Vertex(label string, id int64) (*Vertex, bool)
	Edges(from Key, edgeLabel string, dir Direction) iter.Seq[Edge]
}

// Writer is a Reader that can also add vertices and edges. Writes become
// visible to other scopes only once the enclosing Update commits.
type Writer interface {
	Reader
	AddVertex(v Vertex) error
	AddEdge(e Edge) error
}

// Store opens read and write scopes.
//
// View runs fn against a consistent snapshot. Update runs fn against a
// transaction that is committed if fn returns nil and discarded otherwise,
// including when fn panics.
type Store interface {
	View(ctx context.Context, fn func(r Reader) error) error
	Update(ctx context.Context, fn func(w Writer) error) error
}

// Neighbors returns the keys of the vertices reached from k over edgeLabel in
// direction dir, optionally restricted to a single target label.
func Neighbors(r Reader, k Key, edgeLabel string, dir Direction, labels ...string) iter.Seq[Key] {
	return func(yield func(Key) bool) {
		for e := range r.Edges(k, edgeLabel, dir) {
			other := e.Other(dir)
			if len(labels) > 0 && !hasLabel(other, labels) {
				continue
			}
			if !yield(other) {
				return
			}
		}
	}
}

// First returns the first neighbour of k over edgeLabel, if any.
func First(r Reader, k Key, edgeLabel string, dir Direction) (Key, bool) {
	for other := range Neighbors(r, k, edgeLabel, dir) {
		return other, true
	}
	return Key{}, false
}

// FirstVertex resolves the first neighbour of k over edgeLabel.
func FirstVertex(r Reader, k Key, edgeLabel string, dir Direction) (*Vertex, bool) {
	other, ok := First(r, k, edgeLabel, dir)
	if !ok {
		return nil, false
	}
	return r.Vertex(other.Label, other.ID)
}

// Lookup resolves a key.
func Lookup(r Reader, k Key) (*Vertex, bool) {
	return r.Vertex(k.Label, k.ID)
}

func hasLabel(k Key, labels []string) bool {
	for _, l := range labels {
		if k.Label == l {
			return true
		}
	}
	return false
}
