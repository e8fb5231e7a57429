package queries

import (
	"github.com/sanonone/kektorsnb/pkg/graph"
	"github.com/sanonone/kektorsnb/pkg/schema"
)

// PersonProfileParams selects a person (IS1).
type PersonProfileParams struct {
	PersonID int64 `json:"personId"`
}

// PersonProfileResult is the profile of a person.
type PersonProfileResult struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Birthday     int64  `json:"birthday"`
	LocationIP   string `json:"locationIP"`
	BrowserUsed  string `json:"browserUsed"`
	CityID       int64  `json:"cityId"`
	Gender       string `json:"gender"`
	CreationDate int64  `json:"creationDate"`
}

// PersonProfile returns the profile of a person and the id of their city.
func PersonProfile(r graph.Reader, p PersonProfileParams) (PersonProfileResult, error) {
	if err := Validate(p); err != nil {
		return PersonProfileResult{}, err
	}
	person, ok := r.Vertex(schema.Person, p.PersonID)
	if !ok {
		return PersonProfileResult{}, ErrNotFound
	}

	var rr rowReader
	res := PersonProfileResult{
		FirstName:    rr.str(person.Props, schema.FirstName),
		LastName:     rr.str(person.Props, schema.LastName),
		Birthday:     rr.millis(person.Props, schema.Birthday),
		LocationIP:   rr.str(person.Props, schema.LocationIP),
		BrowserUsed:  rr.str(person.Props, schema.BrowserUsed),
		Gender:       rr.str(person.Props, schema.Gender),
		CreationDate: rr.millis(person.Props, schema.CreationDate),
	}
	if city, ok := graph.First(r, person.Key(), schema.IsLocatedIn, graph.Out); ok {
		res.CityID = city.ID
	}
	return res, rr.err
}

// PersonPostsParams selects the latest messages of a person (IS2).
type PersonPostsParams struct {
	PersonID int64 `json:"personId"`
	Limit    int   `json:"limit" validate:"gte=0"`
}

// PersonPostsResult is one message with the post its thread started from.
type PersonPostsResult struct {
	MessageID                   int64  `json:"messageId"`
	MessageContent              string `json:"messageContent"`
	MessageCreationDate         int64  `json:"messageCreationDate"`
	OriginalPostID              int64  `json:"originalPostId"`
	OriginalPostAuthorID        int64  `json:"originalPostAuthorId"`
	OriginalPostAuthorFirstName string `json:"originalPostAuthorFirstName"`
	OriginalPostAuthorLastName  string `json:"originalPostAuthorLastName"`
}

// PersonPosts returns the person's most recent messages, newest first, each
// with the root post of its thread and that post's author.
func PersonPosts(r graph.Reader, p PersonPostsParams) ([]PersonPostsResult, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	person, ok := personKey(r, p.PersonID)
	if !ok {
		return []PersonPostsResult{}, nil
	}

	var rr rowReader
	type dated struct {
		msg  *graph.Vertex
		date int64
	}
	var msgs []dated
	for _, m := range messagesBy(r, person) {
		msgs = append(msgs, dated{msg: m, date: rr.millis(m.Props, schema.CreationDate)})
	}
	if rr.err != nil {
		return nil, rr.err
	}
	msgs = sortLimit(msgs, p.Limit,
		Desc(func(d dated) int64 { return d.date }),
		Desc(func(d dated) int64 { return d.msg.ID }),
		Asc(func(d dated) string { return d.msg.Label }),
	)

	out := make([]PersonPostsResult, 0, len(msgs))
	for _, d := range msgs {
		root, ok := rootPost(r, d.msg.Key())
		if !ok {
			continue
		}
		author, ok := creatorOf(r, root)
		if !ok {
			continue
		}
		n := rr.name(author)
		out = append(out, PersonPostsResult{
			MessageID:                   d.msg.ID,
			MessageContent:              rr.content(d.msg),
			MessageCreationDate:         d.date,
			OriginalPostID:              root.ID,
			OriginalPostAuthorID:        author.ID,
			OriginalPostAuthorFirstName: n.first,
			OriginalPostAuthorLastName:  n.last,
		})
	}
	return out, rr.err
}

// PersonFriendsParams selects a person (IS3).
type PersonFriendsParams struct {
	PersonID int64 `json:"personId"`
}

// PersonFriendsResult is one friend and when the friendship started.
type PersonFriendsResult struct {
	PersonID               int64  `json:"personId"`
	FirstName              string `json:"firstName"`
	LastName               string `json:"lastName"`
	FriendshipCreationDate int64  `json:"friendshipCreationDate"`
}

// PersonFriends lists every friend of a person, most recent friendship first.
func PersonFriends(r graph.Reader, p PersonFriendsParams) ([]PersonFriendsResult, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	person, ok := personKey(r, p.PersonID)
	if !ok {
		return []PersonFriendsResult{}, nil
	}

	var rr rowReader
	var out []PersonFriendsResult
	for e := range r.Edges(person, schema.Knows, graph.Out) {
		friend, ok := graph.Lookup(r, e.To)
		if !ok {
			continue
		}
		n := rr.name(friend)
		out = append(out, PersonFriendsResult{
			PersonID:               friend.ID,
			FirstName:              n.first,
			LastName:               n.last,
			FriendshipCreationDate: rr.millis(e.Props, schema.CreationDate),
		})
	}
	if rr.err != nil {
		return nil, rr.err
	}
	return sortLimit(out, -1,
		Desc(func(x PersonFriendsResult) int64 { return x.FriendshipCreationDate }),
		Asc(func(x PersonFriendsResult) int64 { return x.PersonID }),
	), nil
}

// MessageParams selects a message by id (IS4, IS5, IS6, IS7). Posts are
// tried before comments.
type MessageParams struct {
	MessageID int64 `json:"messageId"`
}

// MessageContentResult is the body and date of a message.
type MessageContentResult struct {
	MessageCreationDate int64  `json:"messageCreationDate"`
	MessageContent      string `json:"messageContent"`
}

// MessageContent returns a message's creation date and body.
func MessageContent(r graph.Reader, p MessageParams) (MessageContentResult, error) {
	msg, ok := findMessage(r, p.MessageID)
	if !ok {
		return MessageContentResult{}, ErrNotFound
	}
	var rr rowReader
	res := MessageContentResult{
		MessageCreationDate: rr.millis(msg.Props, schema.CreationDate),
		MessageContent:      rr.content(msg),
	}
	return res, rr.err
}

// MessageCreatorResult is the author of a message.
type MessageCreatorResult struct {
	PersonID  int64  `json:"personId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// MessageCreator returns the author of a message.
func MessageCreator(r graph.Reader, p MessageParams) (MessageCreatorResult, error) {
	msg, ok := findMessage(r, p.MessageID)
	if !ok {
		return MessageCreatorResult{}, ErrNotFound
	}
	author, ok := creatorOf(r, msg.Key())
	if !ok {
		return MessageCreatorResult{}, ErrNotFound
	}
	var rr rowReader
	n := rr.name(author)
	return MessageCreatorResult{PersonID: author.ID, FirstName: n.first, LastName: n.last}, rr.err
}

// MessageForumResult is the forum a message's thread lives in and its moderator.
type MessageForumResult struct {
	ForumID            int64  `json:"forumId"`
	ForumTitle         string `json:"forumTitle"`
	ModeratorID        int64  `json:"moderatorId"`
	ModeratorFirstName string `json:"moderatorFirstName"`
	ModeratorLastName  string `json:"moderatorLastName"`
}

// MessageForum resolves the forum containing the root post of a message's
// thread, and the forum's moderator.
func MessageForum(r graph.Reader, p MessageParams) (MessageForumResult, error) {
	msg, ok := findMessage(r, p.MessageID)
	if !ok {
		return MessageForumResult{}, ErrNotFound
	}
	root, ok := rootPost(r, msg.Key())
	if !ok {
		return MessageForumResult{}, ErrNotFound
	}
	forum, ok := graph.FirstVertex(r, root, schema.ContainerOf, graph.In)
	if !ok {
		return MessageForumResult{}, ErrNotFound
	}
	mod, ok := graph.FirstVertex(r, forum.Key(), schema.HasModerator, graph.Out)
	if !ok {
		return MessageForumResult{}, ErrNotFound
	}

	var rr rowReader
	n := rr.name(mod)
	return MessageForumResult{
		ForumID:            forum.ID,
		ForumTitle:         rr.str(forum.Props, schema.Title),
		ModeratorID:        mod.ID,
		ModeratorFirstName: n.first,
		ModeratorLastName:  n.last,
	}, rr.err
}

// MessageRepliesResult is one direct reply to a message.
type MessageRepliesResult struct {
	CommentID            int64  `json:"commentId"`
	CommentContent       string `json:"commentContent"`
	CommentCreationDate  int64  `json:"commentCreationDate"`
	ReplyAuthorID        int64  `json:"replyAuthorId"`
	ReplyAuthorFirstName string `json:"replyAuthorFirstName"`
	ReplyAuthorLastName  string `json:"replyAuthorLastName"`
	ReplyAuthorKnows     bool   `json:"replyAuthorKnowsOriginalMessageAuthor"`
}

// MessageReplies lists the comments replying directly to a message, newest
// first, flagging replies whose author knows the original author.
func MessageReplies(r graph.Reader, p MessageParams) ([]MessageRepliesResult, error) {
	msg, ok := findMessage(r, p.MessageID)
	if !ok {
		return []MessageRepliesResult{}, nil
	}
	author, hasAuthor := creatorOf(r, msg.Key())

	var rr rowReader
	var out []MessageRepliesResult
	for k := range graph.Neighbors(r, msg.Key(), schema.ReplyOf, graph.In, schema.Comment) {
		reply, ok := graph.Lookup(r, k)
		if !ok {
			continue
		}
		replier, ok := creatorOf(r, k)
		if !ok {
			continue
		}
		n := rr.name(replier)
		out = append(out, MessageRepliesResult{
			CommentID:            reply.ID,
			CommentContent:       rr.content(reply),
			CommentCreationDate:  rr.millis(reply.Props, schema.CreationDate),
			ReplyAuthorID:        replier.ID,
			ReplyAuthorFirstName: n.first,
			ReplyAuthorLastName:  n.last,
			ReplyAuthorKnows:     hasAuthor && knows(r, replier.Key(), author.Key()),
		})
	}
	if rr.err != nil {
		return nil, rr.err
	}
	return sortLimit(out, -1,
		Desc(func(x MessageRepliesResult) int64 { return x.CommentCreationDate }),
		Asc(func(x MessageRepliesResult) int64 { return x.ReplyAuthorID }),
		Asc(func(x MessageRepliesResult) int64 { return x.CommentID }),
	), nil
}
