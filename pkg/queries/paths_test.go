package queries

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/sanonone/kektorsnb/pkg/graph"
	"github.com/sanonone/kektorsnb/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

func TestShortestPath(t *testing.T) {
	e := newFixture(t)

	tests := []struct {
		name     string
		from, to int64
		maxHops  int
		want     int
	}{
		{"chain", alice, david, 0, 3},
		{"symmetric", david, alice, 0, 3},
		{"direct", alice, bob, 0, 1},
		{"same person", alice, alice, 0, 0},
		{"same missing person", 999, 999, 0, 0},
		{"isolated", alice, frank, 0, -1},
		{"missing start", 999, alice, 0, -1},
		{"missing target", alice, 999, 0, -1},
		{"beyond bound", alice, david, 2, -1},
		{"at bound", alice, david, 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustRead(t, e, ShortestPath, PairParams{Person1ID: tt.from, Person2ID: tt.to, MaxHops: tt.maxHops})
			assert.Equal(t, tt.want, res.ShortestPathLength)
		})
	}
}

// TestShortestPathMatchesOracle compares against gonum's Dijkstra on random
// undirected graphs with unit weights.
func TestShortestPathMatchesOracle(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const persons = 40

	for round := 0; round < 5; round++ {
		e := openTestEngine(t)
		oracle := simple.NewUndirectedGraph()
		mustUpdate(t, e, func(w graph.Writer) error {
			return w.AddVertex(graph.Vertex{Label: schema.Place, ID: 1})
		})
		for id := int64(1); id <= persons; id++ {
			mustUpdate(t, e, addPerson(id, "P", "P", 1))
			oracle.AddNode(simple.Node(id))
		}

		err := e.Update(context.Background(), func(w graph.Writer) error {
			for i := 0; i < persons; i++ {
				a, b := rng.Int63n(persons)+1, rng.Int63n(persons)+1
				if a == b || oracle.HasEdgeBetween(a, b) {
					continue
				}
				oracle.SetEdge(oracle.NewEdge(simple.Node(a), simple.Node(b)))
				if err := AddFriendship(w, AddFriendshipParams{Person1ID: a, Person2ID: b}); err != nil {
					return err
				}
			}
			return nil
		})
		require.NoError(t, err)

		for from := int64(1); from <= persons; from++ {
			shortest := path.DijkstraFrom(simple.Node(from), oracle)
			for to := int64(1); to <= persons; to++ {
				want := -1
				if d := shortest.WeightTo(to); !math.IsInf(d, 1) && int(d) <= DefaultMaxHops {
					want = int(d)
				}
				res := mustRead(t, e, ShortestPath, PairParams{Person1ID: from, Person2ID: to})
				require.Equal(t, want, res.ShortestPathLength, "round %d: %d -> %d", round, from, to)
			}
		}
	}
}

func TestTrustedPaths(t *testing.T) {
	e := newFixture(t)

	// Alice-Bob: Bob replied to Alice's post (1.0), Alice replied to Bob's
	// comment (0.5). Bob-Carol: Bob replied to Carol's post (1.0).
	res := mustRead(t, e, TrustedPaths, PairParams{Person1ID: alice, Person2ID: david})
	assert.Equal(t, []TrustedPathsResult{
		{PersonIDsInPath: []int64{alice, bob, carol, david}, PathWeight: 2.5},
	}, res)

	res = mustRead(t, e, TrustedPaths, PairParams{Person1ID: carol, Person2ID: david})
	assert.Equal(t, []TrustedPathsResult{
		{PersonIDsInPath: []int64{carol, david}, PathWeight: 0},
	}, res)

	res = mustRead(t, e, TrustedPaths, PairParams{Person1ID: alice, Person2ID: alice})
	assert.NotNil(t, res)
	assert.Empty(t, res)

	res = mustRead(t, e, TrustedPaths, PairParams{Person1ID: alice, Person2ID: frank})
	assert.NotNil(t, res)
	assert.Empty(t, res)

	assert.Empty(t, mustRead(t, e, TrustedPaths, PairParams{Person1ID: alice, Person2ID: david, MaxHops: 2}))
	assert.Empty(t, mustRead(t, e, TrustedPaths, PairParams{Person1ID: 999, Person2ID: alice}))
}

func TestTrustedPathsEnumeratesEveryShortestPath(t *testing.T) {
	e := newFixture(t)
	// A second route from Alice to David through Eve.
	mustUpdate(t, e, addFriendship(eve, david))

	res := mustRead(t, e, TrustedPaths, PairParams{Person1ID: alice, Person2ID: david})
	require.Len(t, res, 2)
	// Bob-Eve: Eve replied to Bob's post (1.0). Both paths weigh 2.5, so the
	// path ids decide.
	assert.Equal(t, []int64{alice, bob, carol, david}, res[0].PersonIDsInPath)
	assert.Equal(t, []int64{alice, bob, eve, david}, res[1].PersonIDsInPath)
	assert.InDelta(t, 2.5, res[0].PathWeight, 1e-9)
	assert.InDelta(t, 2.5, res[1].PathWeight, 1e-9)

	// A reply from David to Eve makes the Eve route heavier.
	mustUpdate(t, e, func(w graph.Writer) error {
		return AddPost(w, AddPostParams{PostID: 310, Content: "Eve's post", CreationDate: jan2022, AuthorID: eve, ForumID: wall, CountryID: uk})
	})
	mustUpdate(t, e, func(w graph.Writer) error {
		return AddComment(w, AddCommentParams{CommentID: 410, Content: "David replies", CreationDate: jan2022, AuthorID: david, CountryID: uk, ReplyToPostID: 310, ReplyToCommentID: NoReply})
	})
	res = mustRead(t, e, TrustedPaths, PairParams{Person1ID: alice, Person2ID: david})
	require.Len(t, res, 2)
	assert.Equal(t, []int64{alice, bob, eve, david}, res[0].PersonIDsInPath)
	assert.InDelta(t, 3.5, res[0].PathWeight, 1e-9)
}
