package queries

import (
	"testing"
	"time"

	"github.com/sanonone/kektorsnb/pkg/graph"
	"github.com/sanonone/kektorsnb/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFriendsByName(t *testing.T) {
	e := newFixture(t)

	res := mustRead(t, e, FriendsByName, FriendsByNameParams{PersonID: alice, FirstName: "Carol", Limit: 10})
	require.Len(t, res, 1)
	assert.Equal(t, carol, res[0].PersonID)
	assert.Equal(t, 2, res[0].Distance)
	assert.Equal(t, "Brown", res[0].LastName)
	assert.Equal(t, "New York", res[0].CityName)
	assert.Empty(t, res[0].Universities)
	assert.Empty(t, res[0].Companies)

	res = mustRead(t, e, FriendsByName, FriendsByNameParams{PersonID: bob, FirstName: "Alice", Limit: 10})
	require.Len(t, res, 1)
	assert.Equal(t, 1, res[0].Distance)
	assert.Equal(t, int64(631152000000), res[0].Birthday)
	assert.Equal(t, []string{"alice@example.com"}, res[0].Emails)
	assert.Equal(t, []string{"en"}, res[0].Languages)
	assert.Equal(t, []Organisation{{Name: "MIT", Year: 2010, Place: "New York"}}, res[0].Universities)
	assert.Equal(t, []Organisation{{Name: "ACME", Year: 2015, Place: "USA"}}, res[0].Companies)

	far := mustRead(t, e, FriendsByName, FriendsByNameParams{PersonID: alice, FirstName: "David", Limit: 10})
	require.Len(t, far, 1)
	assert.Equal(t, 3, far[0].Distance)

	assert.Empty(t, mustRead(t, e, FriendsByName, FriendsByNameParams{PersonID: alice, FirstName: "Frank", Limit: 10}))
	assert.Empty(t, mustRead(t, e, FriendsByName, FriendsByNameParams{PersonID: alice, FirstName: "Alice", Limit: 10}),
		"the start person is never returned")

	_, err := read(t, e, FriendsByName, FriendsByNameParams{PersonID: alice, Limit: 10})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestFriendsByNameOrdersByDistanceThenName(t *testing.T) {
	e := newFixture(t)
	// Give David's first name to two more persons at distances 1 and 2.
	mustUpdate(t, e, addPerson(7, "David", "Zed", newYork))
	mustUpdate(t, e, addPerson(8, "David", "Able", newYork))
	mustUpdate(t, e, addFriendship(alice, 7))
	mustUpdate(t, e, addFriendship(bob, 8))

	res := mustRead(t, e, FriendsByName, FriendsByNameParams{PersonID: alice, FirstName: "David", Limit: 10})
	ids := make([]int64, len(res))
	for i, r := range res {
		ids[i] = r.PersonID
	}
	assert.Equal(t, []int64{7, 8, david}, ids)
}

func TestRecentMessages(t *testing.T) {
	e := newFixture(t)

	res := mustRead(t, e, RecentMessages, MessagesBeforeParams{PersonID: alice, MaxDate: jan2022, Limit: 10})
	assert.Equal(t, []int64{bobGoPost, bobReply, bobJavaPost}, messageIDs(res))
	assert.Equal(t, "Bob on Java and Go", res[0].MessageContent)
	assert.Equal(t, "Bob", res[0].FirstName)

	// MaxDate is exclusive.
	res = mustRead(t, e, RecentMessages, MessagesBeforeParams{PersonID: alice, MaxDate: jun2020, Limit: 10})
	assert.Empty(t, res)
}

func TestRecentCircleMessages(t *testing.T) {
	e := newFixture(t)

	res := mustRead(t, e, RecentCircleMessages, MessagesBeforeParams{PersonID: alice, MaxDate: jan2022, Limit: 10})
	// Ties on date are broken by message id.
	assert.Equal(t, []int64{bobGoPost, carolPost, bobReply, eveOnBob, eveOnCarol, bobJavaPost}, messageIDs(res))

	for n := 0; n <= len(res); n++ {
		limited := mustRead(t, e, RecentCircleMessages, MessagesBeforeParams{PersonID: alice, MaxDate: jan2022, Limit: n})
		assert.Equal(t, res[:n], limited, "limit %d", n)
	}
}

func messageIDs(rows []FriendMessageResult) []int64 {
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.MessageID
	}
	return ids
}

func TestFriendsInCountries(t *testing.T) {
	e := newFixture(t)

	p := FriendsInCountriesParams{
		PersonID: alice, CountryXName: "USA", CountryYName: "UK",
		StartDate: jan2021, DurationDays: 365, Limit: 10,
	}
	res := mustRead(t, e, FriendsInCountries, p)
	// Bob and Carol live in one of the two countries and are excluded.
	assert.Equal(t, []FriendsInCountriesResult{
		{PersonID: eve, FirstName: "Eve", LastName: "Adams", XCount: 1, YCount: 1, Count: 2},
	}, res)

	p.DurationDays = 0
	assert.Empty(t, mustRead(t, e, FriendsInCountries, p))

	p.DurationDays = 365
	p.StartDate = jan2022
	assert.Empty(t, mustRead(t, e, FriendsInCountries, p))
}

func TestFriendsInCountriesSkipsUnknownHomeCountry(t *testing.T) {
	e := newFixture(t)
	const atlantis, grace, graceInUS, graceInUK int64 = 106, 7, 406, 407

	// Atlantis is a city outside any country.
	mustUpdate(t, e, func(w graph.Writer) error {
		return w.AddVertex(graph.Vertex{Label: schema.Place, ID: atlantis, Props: graph.Props{schema.Name: "Atlantis", schema.Type: schema.PlaceCity}})
	})
	mustUpdate(t, e, addPerson(grace, "Grace", "Hopper", atlantis))
	mustUpdate(t, e, addFriendship(alice, grace))
	for _, c := range []AddCommentParams{
		{CommentID: graceInUS, Content: "From the US", CreationDate: jan2021, AuthorID: grace, CountryID: usa, ReplyToPostID: bobJavaPost, ReplyToCommentID: NoReply},
		{CommentID: graceInUK, Content: "From the UK", CreationDate: jan2021, AuthorID: grace, CountryID: uk, ReplyToPostID: carolPost, ReplyToCommentID: NoReply},
	} {
		mustUpdate(t, e, func(w graph.Writer) error { return AddComment(w, c) })
	}

	p := FriendsInCountriesParams{
		PersonID: alice, CountryXName: "USA", CountryYName: "UK",
		StartDate: jan2021, DurationDays: 365, Limit: 10,
	}
	assert.Equal(t, []FriendsInCountriesResult{
		{PersonID: eve, FirstName: "Eve", LastName: "Adams", XCount: 1, YCount: 1, Count: 2},
	}, mustRead(t, e, FriendsInCountries, p))

	// Once Atlantis resolves to France, Grace qualifies.
	mustUpdate(t, e, func(w graph.Writer) error {
		return w.AddEdge(graph.Edge{Label: schema.IsPartOf, From: graph.K(schema.Place, atlantis), To: graph.K(schema.Place, france)})
	})
	assert.Equal(t, []FriendsInCountriesResult{
		{PersonID: eve, FirstName: "Eve", LastName: "Adams", XCount: 1, YCount: 1, Count: 2},
		{PersonID: grace, FirstName: "Grace", LastName: "Hopper", XCount: 1, YCount: 1, Count: 2},
	}, mustRead(t, e, FriendsInCountries, p))
}

func TestFriendRecommendation(t *testing.T) {
	e := newFixture(t)

	res := mustRead(t, e, FriendRecommendation, FriendRecommendationParams{PersonID: alice, Month: 5, Limit: 10})
	assert.Equal(t, []FriendRecommendationResult{
		{PersonID: carol, FirstName: "Carol", LastName: "Brown", CommonInterestScore: 1, Gender: "female", CityName: "New York"},
	}, res)

	// December wraps to January; Bob (born January 1st) is a direct friend
	// and never recommended.
	res = mustRead(t, e, FriendRecommendation, FriendRecommendationParams{PersonID: alice, Month: 12, Limit: 10})
	assert.Equal(t, []FriendRecommendationResult{
		{PersonID: eve, FirstName: "Eve", LastName: "Adams", CommonInterestScore: 0, Gender: "female", CityName: "Paris"},
	}, res)

	_, err := read(t, e, FriendRecommendation, FriendRecommendationParams{PersonID: alice, Month: 13, Limit: 10})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestBirthdayWindow(t *testing.T) {
	day := func(s string) time.Time {
		d, err := time.Parse(time.DateOnly, s)
		require.NoError(t, err)
		return d
	}
	tests := []struct {
		birthday string
		month    int
		want     bool
	}{
		{"1990-05-21", 5, true},
		{"1990-05-20", 5, false},
		{"1990-06-21", 5, true},
		{"1990-06-22", 5, false},
		{"1990-12-31", 12, true},
		{"1991-01-21", 12, true},
		{"1991-01-22", 12, false},
		{"1991-02-01", 1, true},
		{"1992-02-29", 2, true},
		{"1992-02-29", 1, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inBirthdayWindow(day(tt.birthday), tt.month), "%s month %d", tt.birthday, tt.month)
	}
}

func TestJobReferral(t *testing.T) {
	e := newFixture(t)

	res := mustRead(t, e, JobReferral, JobReferralParams{PersonID: alice, CountryName: "USA", WorkFromYear: 2014, Limit: 10})
	assert.Equal(t, []JobReferralResult{
		{PersonID: bob, FirstName: "Bob", LastName: "Jones", OrganizationName: "ACME", OrganizationWorkFromYear: 2012},
	}, res)

	// WorkFromYear is exclusive.
	assert.Empty(t, mustRead(t, e, JobReferral, JobReferralParams{PersonID: alice, CountryName: "USA", WorkFromYear: 2012, Limit: 10}))
	assert.Empty(t, mustRead(t, e, JobReferral, JobReferralParams{PersonID: alice, CountryName: "UK", WorkFromYear: 2020, Limit: 10}))

	res = mustRead(t, e, JobReferral, JobReferralParams{PersonID: bob, CountryName: "USA", WorkFromYear: 2020, Limit: 10})
	require.Len(t, res, 1)
	assert.Equal(t, alice, res[0].PersonID)
}
