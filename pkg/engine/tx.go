package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"sync/atomic"

	"github.com/sanonone/kektorsnb/pkg/core"
	"github.com/sanonone/kektorsnb/pkg/graph"
	"github.com/sanonone/kektorsnb/pkg/metrics"
	"github.com/sanonone/kektorsnb/pkg/persistence"
)

// txRecord is the log payload of one committed transaction. A Full record
// carries the entire graph and replaces whatever was loaded before it.
type txRecord struct {
	Seq      int64          `json:"seq"`
	Full     bool           `json:"full,omitempty"`
	Vertices []graph.Vertex `json:"vertices,omitempty"`
	Edges    []graph.Edge   `json:"edges,omitempty"`
}

// tx is a write scope: pending vertices and edges layered over the
// committed graph. Reads see both.
type tx struct {
	base *core.Graph

	vertices map[graph.Key]*graph.Vertex
	order    []graph.Key
	edges    []graph.Edge
	out      map[graph.Key]map[string][]graph.Edge
	in       map[graph.Key]map[string][]graph.Edge
}

func newTx(base *core.Graph) *tx {
	return &tx{
		base:     base,
		vertices: make(map[graph.Key]*graph.Vertex),
		out:      make(map[graph.Key]map[string][]graph.Edge),
		in:       make(map[graph.Key]map[string][]graph.Edge),
	}
}

func (t *tx) Vertex(label string, id int64) (*graph.Vertex, bool) {
	if v, ok := t.vertices[graph.Key{Label: label, ID: id}]; ok {
		return v, true
	}
	return t.base.Vertex(label, id)
}

func (t *tx) Edges(from graph.Key, edgeLabel string, dir graph.Direction) iter.Seq[graph.Edge] {
	pending := t.out
	if dir == graph.In {
		pending = t.in
	}
	committed := t.base.Edges(from, edgeLabel, dir)
	return func(yield func(graph.Edge) bool) {
		for e := range committed {
			if !yield(e) {
				return
			}
		}
		for _, e := range pending[from][edgeLabel] {
			if !yield(e) {
				return
			}
		}
	}
}

func (t *tx) has(k graph.Key) bool {
	if _, ok := t.vertices[k]; ok {
		return true
	}
	return t.base.HasVertex(k)
}

func (t *tx) AddVertex(v graph.Vertex) error {
	k := v.Key()
	if t.has(k) {
		return fmt.Errorf("%w: %s", graph.ErrDuplicateVertex, k)
	}
	if v.Props == nil {
		v.Props = graph.Props{}
	}
	t.vertices[k] = &v
	t.order = append(t.order, k)
	return nil
}

func (t *tx) AddEdge(e graph.Edge) error {
	if !t.has(e.From) {
		return fmt.Errorf("%w: %s -[%s]-> %s (from)", graph.ErrMissingEndpoint, e.From, e.Label, e.To)
	}
	if !t.has(e.To) {
		return fmt.Errorf("%w: %s -[%s]-> %s (to)", graph.ErrMissingEndpoint, e.From, e.Label, e.To)
	}
	if e.Props == nil {
		e.Props = graph.Props{}
	}
	t.edges = append(t.edges, e)
	pendingAppend(t.out, e.From, e)
	pendingAppend(t.in, e.To, e)
	return nil
}

func pendingAppend(idx map[graph.Key]map[string][]graph.Edge, k graph.Key, e graph.Edge) {
	adj, ok := idx[k]
	if !ok {
		adj = make(map[string][]graph.Edge)
		idx[k] = adj
	}
	adj[e.Label] = append(adj[e.Label], e)
}

func (t *tx) record(seq int64) txRecord {
	rec := txRecord{Seq: seq, Edges: t.edges}
	rec.Vertices = make([]graph.Vertex, 0, len(t.order))
	for _, k := range t.order {
		rec.Vertices = append(rec.Vertices, *t.vertices[k])
	}
	return rec
}

func (t *tx) size() int {
	return len(t.order) + len(t.edges)
}

// View runs fn against the committed graph while holding its read lock.
// Mutations cannot interleave with the scope. fn must not open another
// scope on the same engine.
func (e *Engine) View(ctx context.Context, fn func(r graph.Reader) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.isClosed() {
		return ErrClosed
	}

	e.Graph.RLock()
	defer e.Graph.RUnlock()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in read scope: %v", p)
		}
	}()
	return fn(e.Graph)
}

// Update runs fn in a write scope. If fn returns nil the buffered writes are
// logged as one transaction and applied atomically; if it returns an error
// or panics nothing is applied. Write scopes are serialised. fn must not
// open another scope on the same engine.
func (e *Engine) Update(ctx context.Context, fn func(w graph.Writer) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.isClosed() {
		return ErrClosed
	}

	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	t := newTx(e.Graph)
	if err := e.runWriteScope(t, fn); err != nil {
		metrics.TxRolledBack.Inc()
		return err
	}
	if err := ctx.Err(); err != nil {
		metrics.TxRolledBack.Inc()
		return err
	}
	if t.size() == 0 {
		return nil
	}
	return e.commit(t)
}

func (e *Engine) runWriteScope(t *tx, fn func(w graph.Writer) error) (err error) {
	e.Graph.RLock()
	defer e.Graph.RUnlock()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in write scope: %v", p)
		}
	}()
	return fn(t)
}

// commit logs and applies t. The caller holds commitMu, so nothing changed
// the graph since t was validated against it.
func (e *Engine) commit(t *tx) error {
	seq := atomic.LoadInt64(&e.seq) + 1
	rec := t.record(seq)

	var payload []byte
	if e.aof != nil {
		var err error
		payload, err = json.Marshal(rec)
		if err != nil {
			metrics.TxRolledBack.Inc()
			return fmt.Errorf("encode transaction: %w", err)
		}
	}

	e.Graph.Lock()
	defer e.Graph.Unlock()

	if e.aof != nil {
		if err := e.aof.Append(persistence.OpCodeTx, payload); err != nil {
			metrics.TxRolledBack.Inc()
			return fmt.Errorf("append transaction %d: %w", seq, err)
		}
	}

	if err := applyRecord(e.Graph, rec); err != nil {
		// The record was validated against this exact graph state.
		return fmt.Errorf("apply transaction %d: %w", seq, err)
	}
	atomic.StoreInt64(&e.seq, seq)
	atomic.AddInt64(&e.dirtyCounter, int64(t.size()))
	metrics.TxCommitted.Inc()
	return nil
}

// applyRecord writes rec into g. The caller holds the write lock.
func applyRecord(g *core.Graph, rec txRecord) error {
	if rec.Full {
		g.Reset()
	}
	for _, v := range rec.Vertices {
		if err := g.PutVertex(v); err != nil {
			return err
		}
	}
	for _, edge := range rec.Edges {
		if err := g.PutEdge(edge); err != nil {
			return err
		}
	}
	return nil
}
