package queries

import (
	"slices"

	"github.com/sanonone/kektorsnb/pkg/graph"
	"github.com/sanonone/kektorsnb/pkg/schema"
)

// PairParams selects two persons (IC13, IC14). MaxHops bounds the search;
// zero means DefaultMaxHops.
type PairParams struct {
	Person1ID int64 `json:"person1Id"`
	Person2ID int64 `json:"person2Id"`
	MaxHops   int   `json:"-" validate:"gte=0"`
}

func (p PairParams) hops() int {
	if p.MaxHops > 0 {
		return p.MaxHops
	}
	return DefaultMaxHops
}

// ShortestPathResult is the KNOWS distance between two persons, -1 when no
// path exists within the hop bound.
type ShortestPathResult struct {
	ShortestPathLength int `json:"shortestPathLength"`
}

// ShortestPath returns the length of the shortest KNOWS path between two
// persons. A person is at distance 0 from themselves.
func ShortestPath(r graph.Reader, p PairParams) (ShortestPathResult, error) {
	if err := Validate(p); err != nil {
		return ShortestPathResult{}, err
	}
	if p.Person1ID == p.Person2ID {
		return ShortestPathResult{ShortestPathLength: 0}, nil
	}
	from, ok := personKey(r, p.Person1ID)
	if !ok {
		return ShortestPathResult{ShortestPathLength: -1}, nil
	}
	to := graph.K(schema.Person, p.Person2ID)

	seen := map[graph.Key]bool{from: true}
	frontier := []graph.Key{from}
	for dist := 1; dist <= p.hops() && len(frontier) > 0; dist++ {
		var next []graph.Key
		for _, k := range frontier {
			for n := range graph.Neighbors(r, k, schema.Knows, graph.Out, schema.Person) {
				if n == to {
					return ShortestPathResult{ShortestPathLength: dist}, nil
				}
				if seen[n] {
					continue
				}
				seen[n] = true
				next = append(next, n)
			}
		}
		frontier = next
	}
	return ShortestPathResult{ShortestPathLength: -1}, nil
}

// TrustedPathsResult is one shortest path and its interaction weight.
type TrustedPathsResult struct {
	PersonIDsInPath []int64 `json:"personIdsInPath"`
	PathWeight      float64 `json:"pathWeight"`
}

// TrustedPaths enumerates every shortest KNOWS path between two persons and
// weighs each by the replies exchanged along it: a comment replying to a post
// is worth 1.0, a comment replying to a comment 0.5, in both directions of
// every consecutive pair. Heaviest paths come first.
func TrustedPaths(r graph.Reader, p PairParams) ([]TrustedPathsResult, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	from, ok := personKey(r, p.Person1ID)
	if !ok {
		return []TrustedPathsResult{}, nil
	}
	// A person has no path of one or more hops to themself.
	if p.Person1ID == p.Person2ID {
		return []TrustedPathsResult{}, nil
	}
	to, ok := personKey(r, p.Person2ID)
	if !ok {
		return []TrustedPathsResult{}, nil
	}

	preds, found := shortestPredecessors(r, from, to, p.hops())
	if !found {
		return []TrustedPathsResult{}, nil
	}

	weights := make(map[[2]graph.Key]float64)
	pairWeight := func(a, b graph.Key) float64 {
		k := [2]graph.Key{a, b}
		if w, ok := weights[k]; ok {
			return w
		}
		w := replyWeight(r, a, b) + replyWeight(r, b, a)
		weights[k] = w
		weights[[2]graph.Key{b, a}] = w
		return w
	}

	var out []TrustedPathsResult
	var walk func(k graph.Key, suffix []graph.Key)
	walk = func(k graph.Key, suffix []graph.Key) {
		path := append([]graph.Key{k}, suffix...)
		if k == from {
			row := TrustedPathsResult{PersonIDsInPath: make([]int64, len(path))}
			for i, pk := range path {
				row.PersonIDsInPath[i] = pk.ID
				if i > 0 {
					row.PathWeight += pairWeight(path[i-1], pk)
				}
			}
			out = append(out, row)
			return
		}
		for _, prev := range preds[k] {
			walk(prev, path)
		}
	}
	walk(to, nil)

	slices.SortFunc(out, func(a, b TrustedPathsResult) int {
		if a.PathWeight != b.PathWeight {
			if a.PathWeight > b.PathWeight {
				return -1
			}
			return 1
		}
		return slices.Compare(a.PersonIDsInPath, b.PersonIDsInPath)
	})
	return out, nil
}

// shortestPredecessors runs a layered breadth-first search from start and
// records, for every vertex up to target's layer, all its predecessors on a
// shortest path. It stops after the layer containing target.
func shortestPredecessors(r graph.Reader, start, target graph.Key, maxHops int) (map[graph.Key][]graph.Key, bool) {
	dist := map[graph.Key]int{start: 0}
	preds := make(map[graph.Key][]graph.Key)
	frontier := []graph.Key{start}
	for d := 1; d <= maxHops && len(frontier) > 0; d++ {
		var next []graph.Key
		for _, k := range frontier {
			for n := range graph.Neighbors(r, k, schema.Knows, graph.Out, schema.Person) {
				nd, seen := dist[n]
				switch {
				case !seen:
					dist[n] = d
					preds[n] = append(preds[n], k)
					next = append(next, n)
				case nd == d:
					preds[n] = append(preds[n], k)
				}
			}
		}
		if _, ok := dist[target]; ok {
			return preds, true
		}
		frontier = next
	}
	return nil, false
}

// replyWeight sums the comments of a replying to messages of b.
func replyWeight(r graph.Reader, a, b graph.Key) float64 {
	w := 0.0
	for _, c := range messagesBy(r, a, schema.Comment) {
		for parent := range graph.Neighbors(r, c.Key(), schema.ReplyOf, graph.Out) {
			author, ok := graph.First(r, parent, schema.HasCreator, graph.Out)
			if !ok || author != b {
				continue
			}
			if parent.Label == schema.Post {
				w += 1.0
			} else {
				w += 0.5
			}
		}
	}
	return w
}
