package queries

import (
	"github.com/sanonone/kektorsnb/pkg/graph"
	"github.com/sanonone/kektorsnb/pkg/schema"
)

// DefaultMaxHops bounds the path searches of ShortestPath and TrustedPaths.
// Pairs further apart are reported as unreachable.
const DefaultMaxHops = 4

// reached is a person found by a bounded KNOWS expansion.
type reached struct {
	key  graph.Key
	dist int
}

// friendsWithin expands KNOWS breadth first from start for up to maxHops
// hops. Each reachable person appears once with its minimal hop count, in
// breadth order; start itself is never returned. A breadth-first frontier
// never revisits a vertex, so every path it follows is simple.
func friendsWithin(r graph.Reader, start graph.Key, maxHops int) []reached {
	seen := map[graph.Key]bool{start: true}
	frontier := []graph.Key{start}
	var out []reached
	for dist := 1; dist <= maxHops && len(frontier) > 0; dist++ {
		var next []graph.Key
		for _, k := range frontier {
			for n := range graph.Neighbors(r, k, schema.Knows, graph.Out, schema.Person) {
				if seen[n] {
					continue
				}
				seen[n] = true
				out = append(out, reached{key: n, dist: dist})
				next = append(next, n)
			}
		}
		frontier = next
	}
	return out
}

// personKey returns the key of person id if it exists.
func personKey(r graph.Reader, id int64) (graph.Key, bool) {
	k := graph.K(schema.Person, id)
	_, ok := graph.Lookup(r, k)
	return k, ok
}

// findMessage resolves a message id, trying Post before Comment.
func findMessage(r graph.Reader, id int64) (*graph.Vertex, bool) {
	if v, ok := r.Vertex(schema.Post, id); ok {
		return v, true
	}
	return r.Vertex(schema.Comment, id)
}

// messagesBy returns the posts and comments created by person.
func messagesBy(r graph.Reader, person graph.Key, labels ...string) []*graph.Vertex {
	if len(labels) == 0 {
		labels = []string{schema.Post, schema.Comment}
	}
	var out []*graph.Vertex
	for k := range graph.Neighbors(r, person, schema.HasCreator, graph.In, labels...) {
		if v, ok := graph.Lookup(r, k); ok {
			out = append(out, v)
		}
	}
	return out
}

// creatorOf returns the author of a message.
func creatorOf(r graph.Reader, msg graph.Key) (*graph.Vertex, bool) {
	return graph.FirstVertex(r, msg, schema.HasCreator, graph.Out)
}

// rootPost follows REPLY_OF from msg until it reaches a Post.
func rootPost(r graph.Reader, msg graph.Key) (graph.Key, bool) {
	seen := make(map[graph.Key]bool)
	for msg.Label != schema.Post {
		if seen[msg] {
			return graph.Key{}, false
		}
		seen[msg] = true
		next, ok := graph.First(r, msg, schema.ReplyOf, graph.Out)
		if !ok {
			return graph.Key{}, false
		}
		msg = next
	}
	return msg, true
}

// knows reports whether a has a KNOWS edge to b.
func knows(r graph.Reader, a, b graph.Key) bool {
	for n := range graph.Neighbors(r, a, schema.Knows, graph.Out) {
		if n == b {
			return true
		}
	}
	return false
}

// placeName returns the name of the place v is located in.
func placeName(r graph.Reader, rr *rowReader, v graph.Key) string {
	place, ok := graph.FirstVertex(r, v, schema.IsLocatedIn, graph.Out)
	if !ok {
		return ""
	}
	return rr.str(place.Props, schema.Name)
}

// countryOf returns the country a person lives in, via their city.
func countryOf(r graph.Reader, person graph.Key) (*graph.Vertex, bool) {
	city, ok := graph.First(r, person, schema.IsLocatedIn, graph.Out)
	if !ok {
		return nil, false
	}
	return graph.FirstVertex(r, city, schema.IsPartOf, graph.Out)
}

// rowReader projects properties and remembers the first coercion failure so
// that a projection can read every column and check the error once.
type rowReader struct {
	err error
}

func (rr *rowReader) keep(err error) {
	if rr.err == nil && err != nil {
		rr.err = err
	}
}

func (rr *rowReader) str(p graph.Props, name string) string {
	s, err := p.String(name)
	rr.keep(err)
	return s
}

func (rr *rowReader) strs(p graph.Props, name string) []string {
	s, err := p.Strings(name)
	rr.keep(err)
	if s == nil {
		s = []string{}
	}
	return s
}

func (rr *rowReader) integer(p graph.Props, name string) int {
	n, err := p.Int(name)
	rr.keep(err)
	return n
}

func (rr *rowReader) millis(p graph.Props, name string) int64 {
	n, err := p.Millis(name)
	rr.keep(err)
	return n
}

// content returns imageFile when set, content otherwise.
func (rr *rowReader) content(msg *graph.Vertex) string {
	if img := rr.str(msg.Props, schema.ImageFile); img != "" {
		return img
	}
	return rr.str(msg.Props, schema.Content)
}

type fullName struct {
	first, last string
}

func (rr *rowReader) name(person *graph.Vertex) fullName {
	return fullName{
		first: rr.str(person.Props, schema.FirstName),
		last:  rr.str(person.Props, schema.LastName),
	}
}
