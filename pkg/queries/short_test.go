package queries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersonProfile(t *testing.T) {
	e := newFixture(t)

	res := mustRead(t, e, PersonProfile, PersonProfileParams{PersonID: alice})
	assert.Equal(t, PersonProfileResult{
		FirstName:    "Alice",
		LastName:     "Smith",
		Birthday:     631152000000,
		LocationIP:   "10.0.0.1",
		BrowserUsed:  "Firefox",
		CityID:       newYork,
		Gender:       "female",
		CreationDate: jan2020,
	}, res)

	_, err := read(t, e, PersonProfile, PersonProfileParams{PersonID: 999})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPersonPosts(t *testing.T) {
	e := newFixture(t)

	res := mustRead(t, e, PersonPosts, PersonPostsParams{PersonID: alice, Limit: 10})
	require.Len(t, res, 3)
	assert.Equal(t, PersonPostsResult{
		MessageID:                   aliceThanks,
		MessageContent:              "Thanks Bob",
		MessageCreationDate:         jun2021,
		OriginalPostID:              helloPost,
		OriginalPostAuthorID:        alice,
		OriginalPostAuthorFirstName: "Alice",
		OriginalPostAuthorLastName:  "Smith",
	}, res[0])
	assert.Equal(t, photoPost, res[1].MessageID)
	assert.Equal(t, "photo.jpg", res[1].MessageContent, "image posts expose the image file")
	assert.Equal(t, photoPost, res[1].OriginalPostID)
	assert.Equal(t, helloPost, res[2].MessageID)

	limited := mustRead(t, e, PersonPosts, PersonPostsParams{PersonID: alice, Limit: 2})
	assert.Equal(t, res[:2], limited)

	// Bob's reply resolves to Alice's post.
	bobs := mustRead(t, e, PersonPosts, PersonPostsParams{PersonID: bob, Limit: 10})
	var found bool
	for _, row := range bobs {
		if row.MessageID == bobReply {
			found = true
			assert.Equal(t, helloPost, row.OriginalPostID)
			assert.Equal(t, alice, row.OriginalPostAuthorID)
		}
	}
	assert.True(t, found)

	empty := mustRead(t, e, PersonPosts, PersonPostsParams{PersonID: 999, Limit: 10})
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err := read(t, e, PersonPosts, PersonPostsParams{PersonID: alice, Limit: -1})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestPersonFriends(t *testing.T) {
	e := newFixture(t)

	res := mustRead(t, e, PersonFriends, PersonFriendsParams{PersonID: bob})
	assert.Equal(t, []PersonFriendsResult{
		{PersonID: carol, FirstName: "Carol", LastName: "Brown", FriendshipCreationDate: jan2021},
		{PersonID: eve, FirstName: "Eve", LastName: "Adams", FriendshipCreationDate: jan2021},
		{PersonID: alice, FirstName: "Alice", LastName: "Smith", FriendshipCreationDate: jan2020},
	}, res)

	assert.Empty(t, mustRead(t, e, PersonFriends, PersonFriendsParams{PersonID: frank}))
}

func TestMessageContent(t *testing.T) {
	e := newFixture(t)

	res := mustRead(t, e, MessageContent, MessageParams{MessageID: helloPost})
	assert.Equal(t, MessageContentResult{MessageCreationDate: jan2020, MessageContent: "Hello Java"}, res)

	res = mustRead(t, e, MessageContent, MessageParams{MessageID: photoPost})
	assert.Equal(t, "photo.jpg", res.MessageContent)

	res = mustRead(t, e, MessageContent, MessageParams{MessageID: aliceThanks})
	assert.Equal(t, "Thanks Bob", res.MessageContent)

	_, err := read(t, e, MessageContent, MessageParams{MessageID: 999})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMessageCreator(t *testing.T) {
	e := newFixture(t)

	res := mustRead(t, e, MessageCreator, MessageParams{MessageID: bobReply})
	assert.Equal(t, MessageCreatorResult{PersonID: bob, FirstName: "Bob", LastName: "Jones"}, res)

	_, err := read(t, e, MessageCreator, MessageParams{MessageID: 999})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMessageForum(t *testing.T) {
	e := newFixture(t)

	want := MessageForumResult{
		ForumID:            wall,
		ForumTitle:         "Alice's Wall",
		ModeratorID:        alice,
		ModeratorFirstName: "Alice",
		ModeratorLastName:  "Smith",
	}
	// A reply to a reply resolves through the thread to the root post's forum.
	assert.Equal(t, want, mustRead(t, e, MessageForum, MessageParams{MessageID: aliceThanks}))
	assert.Equal(t, want, mustRead(t, e, MessageForum, MessageParams{MessageID: helloPost}))

	_, err := read(t, e, MessageForum, MessageParams{MessageID: 999})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMessageReplies(t *testing.T) {
	e := newFixture(t)

	res := mustRead(t, e, MessageReplies, MessageParams{MessageID: helloPost})
	assert.Equal(t, []MessageRepliesResult{
		{
			CommentID: carolReply, CommentContent: "Carol agrees", CommentCreationDate: jan2022,
			ReplyAuthorID: carol, ReplyAuthorFirstName: "Carol", ReplyAuthorLastName: "Brown",
			ReplyAuthorKnows: false,
		},
		{
			CommentID: bobReply, CommentContent: "Nice post", CommentCreationDate: jan2021,
			ReplyAuthorID: bob, ReplyAuthorFirstName: "Bob", ReplyAuthorLastName: "Jones",
			ReplyAuthorKnows: true,
		},
	}, res)

	assert.Empty(t, mustRead(t, e, MessageReplies, MessageParams{MessageID: photoPost}))
	assert.Empty(t, mustRead(t, e, MessageReplies, MessageParams{MessageID: 999}))
}
