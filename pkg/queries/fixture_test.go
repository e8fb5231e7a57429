package queries

import (
	"context"
	"testing"

	"github.com/sanonone/kektorsnb/pkg/engine"
	"github.com/sanonone/kektorsnb/pkg/graph"
	"github.com/sanonone/kektorsnb/pkg/schema"
	"github.com/stretchr/testify/require"
)

// Dates used by the fixture, in epoch millis.
const (
	jan2020 int64 = 1577836800000
	jun2020 int64 = 1590969600000
	jan2021 int64 = 1609459200000
	mar2021 int64 = 1614556800000
	jun2021 int64 = 1622505600000
	jan2022 int64 = 1640995200000
	jan2023 int64 = 1672531200000
)

// Fixture ids.
const (
	alice, bob, carol, david, eve, frank int64 = 1, 2, 3, 4, 5, 6

	newYork, usa, london, uk, paris, france int64 = 100, 101, 102, 103, 104, 105

	wall, club int64 = 200, 201

	helloPost, photoPost, bobJavaPost, bobGoPost, carolPost int64 = 300, 301, 302, 303, 304

	bobReply, aliceThanks, carolReply, bobOnCarol, eveOnBob, eveOnCarol int64 = 400, 401, 402, 403, 404, 405

	java, databases, golang int64 = 500, 501, 502

	acme, mit int64 = 600, 601

	programming, technology, subject int64 = 700, 701, 702
)

func openTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.Open(engine.InMemoryOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

// newFixture builds a small social network:
//
//	Alice - Bob - Carol - David
//	         |
//	        Eve            Frank (no friends)
//
// Alice, Carol and Frank live in New York, Bob and David in London, Eve in
// Paris. Forum 200 is Alice's wall; forum 201 is an empty club.
func newFixture(t *testing.T) *engine.Engine {
	t.Helper()
	e := openTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Update(ctx, func(w graph.Writer) error {
		static := mutation{w: w}
		place := func(id int64, name, kind string) {
			static.vertex(graph.K(schema.Place, id), graph.Props{schema.Name: name, schema.Type: kind})
		}
		place(usa, "USA", schema.PlaceCountry)
		place(uk, "UK", schema.PlaceCountry)
		place(france, "France", schema.PlaceCountry)
		place(newYork, "New York", schema.PlaceCity)
		place(london, "London", schema.PlaceCity)
		place(paris, "Paris", schema.PlaceCity)
		static.edge(schema.IsPartOf, graph.K(schema.Place, newYork), graph.K(schema.Place, usa), nil)
		static.edge(schema.IsPartOf, graph.K(schema.Place, london), graph.K(schema.Place, uk), nil)
		static.edge(schema.IsPartOf, graph.K(schema.Place, paris), graph.K(schema.Place, france), nil)

		class := func(id int64, name string) {
			static.vertex(graph.K(schema.TagClass, id), graph.Props{schema.Name: name})
		}
		class(technology, "Technology")
		class(programming, "ProgrammingLanguage")
		class(subject, "Subject")
		static.edge(schema.IsSubclassOf, graph.K(schema.TagClass, programming), graph.K(schema.TagClass, technology), nil)

		tag := func(id int64, name string, classID int64) {
			static.vertex(graph.K(schema.Tag, id), graph.Props{schema.Name: name})
			static.edge(schema.HasType, graph.K(schema.Tag, id), graph.K(schema.TagClass, classID), nil)
		}
		tag(java, "Java", programming)
		tag(databases, "Databases", subject)
		tag(golang, "Go", programming)

		static.vertex(graph.K(schema.Organisation, acme), graph.Props{schema.Name: "ACME", schema.Type: schema.OrgCompany})
		static.vertex(graph.K(schema.Organisation, mit), graph.Props{schema.Name: "MIT", schema.Type: schema.OrgUniversity})
		static.edge(schema.IsLocatedIn, graph.K(schema.Organisation, acme), graph.K(schema.Place, usa), nil)
		static.edge(schema.IsLocatedIn, graph.K(schema.Organisation, mit), graph.K(schema.Place, newYork), nil)
		return static.err
	}))

	persons := []AddPersonParams{
		{
			PersonID: alice, FirstName: "Alice", LastName: "Smith", Gender: "female",
			Birthday: 631152000000, CreationDate: jan2020, LocationIP: "10.0.0.1", BrowserUsed: "Firefox",
			CityID: newYork, Languages: []string{"en"}, Emails: []string{"alice@example.com"},
			TagIDs:  []int64{java},
			StudyAt: []OrganisationYear{{OrganisationID: mit, Year: 2010}},
			WorkAt:  []OrganisationYear{{OrganisationID: acme, Year: 2015}},
		},
		{
			PersonID: bob, FirstName: "Bob", LastName: "Jones", Gender: "male",
			Birthday: 473385600000, CreationDate: jan2020, CityID: london,
			TagIDs: []int64{databases},
			WorkAt: []OrganisationYear{{OrganisationID: acme, Year: 2012}},
		},
		{PersonID: carol, FirstName: "Carol", LastName: "Brown", Gender: "female", Birthday: 706752000000, CreationDate: jan2020, CityID: newYork},
		{PersonID: david, FirstName: "David", LastName: "Wilson", Gender: "male", Birthday: 581904000000, CreationDate: jan2020, CityID: london},
		{PersonID: eve, FirstName: "Eve", LastName: "Adams", Gender: "female", Birthday: 821232000000, CreationDate: jan2020, CityID: paris},
		{PersonID: frank, FirstName: "Frank", LastName: "Lone", Gender: "male", Birthday: 663897600000, CreationDate: jan2020, CityID: newYork},
	}
	for _, p := range persons {
		mustUpdate(t, e, func(w graph.Writer) error { return AddPerson(w, p) })
	}

	for _, f := range []AddFriendshipParams{
		{Person1ID: alice, Person2ID: bob, CreationDate: jan2020},
		{Person1ID: bob, Person2ID: carol, CreationDate: jan2021},
		{Person1ID: carol, Person2ID: david, CreationDate: jan2022},
		{Person1ID: bob, Person2ID: eve, CreationDate: jan2021},
	} {
		mustUpdate(t, e, func(w graph.Writer) error { return AddFriendship(w, f) })
	}

	mustUpdate(t, e, func(w graph.Writer) error {
		return AddForum(w, AddForumParams{ForumID: wall, Title: "Alice's Wall", CreationDate: jan2020, ModeratorID: alice, TagIDs: []int64{java}})
	})
	mustUpdate(t, e, func(w graph.Writer) error {
		return AddForum(w, AddForumParams{ForumID: club, Title: "Empty Club", CreationDate: jan2020, ModeratorID: bob})
	})
	for _, m := range []AddForumMembershipParams{
		{ForumID: wall, PersonID: bob, JoinDate: jan2021},
		{ForumID: wall, PersonID: carol, JoinDate: jan2022},
		{ForumID: wall, PersonID: eve, JoinDate: jan2020},
		{ForumID: club, PersonID: eve, JoinDate: jan2022},
	} {
		mustUpdate(t, e, func(w graph.Writer) error { return AddForumMembership(w, m) })
	}

	for _, p := range []AddPostParams{
		{PostID: helloPost, Content: "Hello Java", CreationDate: jan2020, AuthorID: alice, ForumID: wall, CountryID: usa, TagIDs: []int64{java}},
		{PostID: photoPost, ImageFile: "photo.jpg", CreationDate: jan2021, AuthorID: alice, ForumID: wall, CountryID: uk, TagIDs: []int64{databases}},
		{PostID: bobJavaPost, Content: "Bob on Java", CreationDate: jun2020, AuthorID: bob, ForumID: wall, CountryID: usa, TagIDs: []int64{java}},
		{PostID: bobGoPost, Content: "Bob on Java and Go", CreationDate: mar2021, AuthorID: bob, ForumID: wall, CountryID: usa, TagIDs: []int64{java, golang}},
		{PostID: carolPost, Content: "Carol in London", CreationDate: jan2021, AuthorID: carol, ForumID: wall, CountryID: uk, TagIDs: []int64{java, databases}},
	} {
		mustUpdate(t, e, func(w graph.Writer) error { return AddPost(w, p) })
	}

	for _, c := range []AddCommentParams{
		{CommentID: bobReply, Content: "Nice post", CreationDate: jan2021, AuthorID: bob, CountryID: uk, ReplyToPostID: helloPost, ReplyToCommentID: NoReply},
		{CommentID: aliceThanks, Content: "Thanks Bob", CreationDate: jun2021, AuthorID: alice, CountryID: usa, ReplyToPostID: NoReply, ReplyToCommentID: bobReply},
		{CommentID: carolReply, Content: "Carol agrees", CreationDate: jan2022, AuthorID: carol, CountryID: usa, ReplyToPostID: helloPost, ReplyToCommentID: NoReply},
		{CommentID: bobOnCarol, Content: "Bob on Carol", CreationDate: jan2023, AuthorID: bob, CountryID: usa, ReplyToPostID: carolPost, ReplyToCommentID: NoReply},
		{CommentID: eveOnBob, Content: "Eve from the US", CreationDate: jan2021, AuthorID: eve, CountryID: usa, ReplyToPostID: bobJavaPost, ReplyToCommentID: NoReply},
		{CommentID: eveOnCarol, Content: "Eve from the UK", CreationDate: jan2021, AuthorID: eve, CountryID: uk, ReplyToPostID: carolPost, ReplyToCommentID: NoReply},
	} {
		mustUpdate(t, e, func(w graph.Writer) error { return AddComment(w, c) })
	}

	mustUpdate(t, e, func(w graph.Writer) error {
		return AddPostLike(w, AddLikeParams{PersonID: bob, MessageID: helloPost, CreationDate: jan2021})
	})
	mustUpdate(t, e, func(w graph.Writer) error {
		return AddCommentLike(w, AddLikeParams{PersonID: bob, MessageID: aliceThanks, CreationDate: jan2022})
	})
	mustUpdate(t, e, func(w graph.Writer) error {
		return AddPostLike(w, AddLikeParams{PersonID: carol, MessageID: helloPost, CreationDate: jan2021})
	})
	return e
}

func mustUpdate(t *testing.T, e *engine.Engine, fn func(w graph.Writer) error) {
	t.Helper()
	require.NoError(t, e.Update(context.Background(), fn))
}

// read runs q in a read scope of e.
func read[P, R any](t *testing.T, e *engine.Engine, q func(graph.Reader, P) (R, error), p P) (R, error) {
	t.Helper()
	var res R
	err := e.View(context.Background(), func(r graph.Reader) error {
		var err error
		res, err = q(r, p)
		return err
	})
	return res, err
}

// mustRead is read for queries expected to succeed.
func mustRead[P, R any](t *testing.T, e *engine.Engine, q func(graph.Reader, P) (R, error), p P) R {
	t.Helper()
	res, err := read(t, e, q, p)
	require.NoError(t, err)
	return res
}

func addPerson(id int64, first, last string, city int64) func(graph.Writer) error {
	return func(w graph.Writer) error {
		return AddPerson(w, AddPersonParams{PersonID: id, FirstName: first, LastName: last, CreationDate: jan2020, CityID: city})
	}
}

func addFriendship(a, b int64) func(graph.Writer) error {
	return func(w graph.Writer) error {
		return AddFriendship(w, AddFriendshipParams{Person1ID: a, Person2ID: b, CreationDate: jan2022})
	}
}
