package queries

import (
	"fmt"
	"time"

	"github.com/sanonone/kektorsnb/pkg/graph"
	"github.com/sanonone/kektorsnb/pkg/schema"
)

// OrganisationYear links a person to an organisation with a year.
type OrganisationYear struct {
	OrganisationID int64 `json:"organizationId"`
	Year           int   `json:"year"`
}

// AddPersonParams describes a new person (INS1).
type AddPersonParams struct {
	PersonID     int64              `json:"personId"`
	FirstName    string             `json:"personFirstName" validate:"required"`
	LastName     string             `json:"personLastName" validate:"required"`
	Gender       string             `json:"gender"`
	Birthday     int64              `json:"birthday"`
	CreationDate int64              `json:"creationDate"`
	LocationIP   string             `json:"locationIp"`
	BrowserUsed  string             `json:"browserUsed"`
	CityID       int64              `json:"cityId"`
	Languages    []string           `json:"languages"`
	Emails       []string           `json:"emails"`
	TagIDs       []int64            `json:"tagIds"`
	StudyAt      []OrganisationYear `json:"studyAt"`
	WorkAt       []OrganisationYear `json:"workAt"`
}

// AddPerson inserts a person with their city, interests, universities and
// companies.
func AddPerson(w graph.Writer, p AddPersonParams) error {
	if err := Validate(p); err != nil {
		return err
	}
	person := graph.K(schema.Person, p.PersonID)
	m := mutation{w: w}
	m.vertex(person, graph.Props{
		schema.FirstName:    p.FirstName,
		schema.LastName:     p.LastName,
		schema.Gender:       p.Gender,
		schema.Birthday:     date(p.Birthday),
		schema.CreationDate: date(p.CreationDate),
		schema.LocationIP:   p.LocationIP,
		schema.BrowserUsed:  p.BrowserUsed,
		schema.Languages:    nonNil(p.Languages),
		schema.Emails:       nonNil(p.Emails),
	})
	m.edge(schema.IsLocatedIn, person, graph.K(schema.Place, p.CityID), nil)
	for _, id := range p.TagIDs {
		m.edge(schema.HasInterest, person, graph.K(schema.Tag, id), nil)
	}
	for _, s := range p.StudyAt {
		m.edge(schema.StudyAt, person, graph.K(schema.Organisation, s.OrganisationID),
			graph.Props{schema.ClassYear: s.Year})
	}
	for _, wk := range p.WorkAt {
		m.edge(schema.WorkAt, person, graph.K(schema.Organisation, wk.OrganisationID),
			graph.Props{schema.WorkFrom: wk.Year})
	}
	return m.err
}

// AddLikeParams records a like (INS2 on posts, INS3 on comments).
type AddLikeParams struct {
	PersonID     int64 `json:"personId"`
	MessageID    int64 `json:"messageId"`
	CreationDate int64 `json:"creationDate"`
}

// AddPostLike adds a LIKES edge from a person to a post.
func AddPostLike(w graph.Writer, p AddLikeParams) error {
	return addLike(w, p, schema.Post)
}

// AddCommentLike adds a LIKES edge from a person to a comment.
func AddCommentLike(w graph.Writer, p AddLikeParams) error {
	return addLike(w, p, schema.Comment)
}

func addLike(w graph.Writer, p AddLikeParams, label string) error {
	if err := Validate(p); err != nil {
		return err
	}
	m := mutation{w: w}
	m.edge(schema.Likes, graph.K(schema.Person, p.PersonID), graph.K(label, p.MessageID),
		graph.Props{schema.CreationDate: date(p.CreationDate)})
	return m.err
}

// AddForumParams describes a new forum (INS4).
type AddForumParams struct {
	ForumID      int64   `json:"forumId"`
	Title        string  `json:"forumTitle"`
	CreationDate int64   `json:"creationDate"`
	ModeratorID  int64   `json:"moderatorPersonId"`
	TagIDs       []int64 `json:"tagIds"`
}

// AddForum inserts a forum with its moderator and tags.
func AddForum(w graph.Writer, p AddForumParams) error {
	if err := Validate(p); err != nil {
		return err
	}
	forum := graph.K(schema.Forum, p.ForumID)
	m := mutation{w: w}
	m.vertex(forum, graph.Props{
		schema.Title:        p.Title,
		schema.CreationDate: date(p.CreationDate),
	})
	m.edge(schema.HasModerator, forum, graph.K(schema.Person, p.ModeratorID), nil)
	for _, id := range p.TagIDs {
		m.edge(schema.HasTag, forum, graph.K(schema.Tag, id), nil)
	}
	return m.err
}

// AddForumMembershipParams adds a member to a forum (INS5).
type AddForumMembershipParams struct {
	ForumID  int64 `json:"forumId"`
	PersonID int64 `json:"personId"`
	JoinDate int64 `json:"joinDate"`
}

// AddForumMembership adds a HAS_MEMBER edge with its join date.
func AddForumMembership(w graph.Writer, p AddForumMembershipParams) error {
	if err := Validate(p); err != nil {
		return err
	}
	m := mutation{w: w}
	m.edge(schema.HasMember, graph.K(schema.Forum, p.ForumID), graph.K(schema.Person, p.PersonID),
		graph.Props{schema.JoinDate: date(p.JoinDate)})
	return m.err
}

// AddPostParams describes a new post (INS6). Exactly one of ImageFile and
// Content is set.
type AddPostParams struct {
	PostID       int64   `json:"postId"`
	ImageFile    string  `json:"imageFile"`
	CreationDate int64   `json:"creationDate"`
	LocationIP   string  `json:"locationIp"`
	BrowserUsed  string  `json:"browserUsed"`
	Language     string  `json:"language"`
	Content      string  `json:"content"`
	Length       int     `json:"length" validate:"gte=0"`
	AuthorID     int64   `json:"authorPersonId"`
	ForumID      int64   `json:"forumId"`
	CountryID    int64   `json:"countryId"`
	TagIDs       []int64 `json:"tagIds"`
}

// AddPost inserts a post into a forum with its author, country and tags.
func AddPost(w graph.Writer, p AddPostParams) error {
	if err := Validate(p); err != nil {
		return err
	}
	post := graph.K(schema.Post, p.PostID)
	props := graph.Props{
		schema.CreationDate: date(p.CreationDate),
		schema.LocationIP:   p.LocationIP,
		schema.BrowserUsed:  p.BrowserUsed,
		schema.Language:     p.Language,
		schema.Length:       p.Length,
	}
	if p.ImageFile != "" {
		props[schema.ImageFile] = p.ImageFile
	} else {
		props[schema.Content] = p.Content
	}

	m := mutation{w: w}
	m.vertex(post, props)
	m.edge(schema.HasCreator, post, graph.K(schema.Person, p.AuthorID), nil)
	m.edge(schema.ContainerOf, graph.K(schema.Forum, p.ForumID), post, nil)
	m.edge(schema.IsLocatedIn, post, graph.K(schema.Place, p.CountryID), nil)
	for _, id := range p.TagIDs {
		m.edge(schema.HasTag, post, graph.K(schema.Tag, id), nil)
	}
	return m.err
}

// AddCommentParams describes a new comment (INS7). Exactly one of
// ReplyToPostID and ReplyToCommentID is set; the other is NoReply. Zero is a
// valid message id, so set the target with OnPost or OnComment rather than
// relying on the zero value.
type AddCommentParams struct {
	CommentID        int64   `json:"commentId"`
	CreationDate     int64   `json:"creationDate"`
	LocationIP       string  `json:"locationIp"`
	BrowserUsed      string  `json:"browserUsed"`
	Content          string  `json:"content"`
	Length           int     `json:"length" validate:"gte=0"`
	AuthorID         int64   `json:"authorPersonId"`
	CountryID        int64   `json:"countryId"`
	ReplyToPostID    int64   `json:"replyToPostId"`
	ReplyToCommentID int64   `json:"replyToCommentId"`
	TagIDs           []int64 `json:"tagIds"`
}

// OnPost returns p replying to the post postID.
func (p AddCommentParams) OnPost(postID int64) AddCommentParams {
	p.ReplyToPostID, p.ReplyToCommentID = postID, NoReply
	return p
}

// OnComment returns p replying to the comment commentID.
func (p AddCommentParams) OnComment(commentID int64) AddCommentParams {
	p.ReplyToPostID, p.ReplyToCommentID = NoReply, commentID
	return p
}

// AddComment inserts a comment replying to a post or to another comment.
func AddComment(w graph.Writer, p AddCommentParams) error {
	if err := Validate(p); err != nil {
		return err
	}
	comment := graph.K(schema.Comment, p.CommentID)
	parent := graph.K(schema.Post, p.ReplyToPostID)
	if p.ReplyToPostID == NoReply {
		parent = graph.K(schema.Comment, p.ReplyToCommentID)
	}

	m := mutation{w: w}
	m.vertex(comment, graph.Props{
		schema.CreationDate: date(p.CreationDate),
		schema.LocationIP:   p.LocationIP,
		schema.BrowserUsed:  p.BrowserUsed,
		schema.Content:      p.Content,
		schema.Length:       p.Length,
	})
	m.edge(schema.HasCreator, comment, graph.K(schema.Person, p.AuthorID), nil)
	m.edge(schema.IsLocatedIn, comment, graph.K(schema.Place, p.CountryID), nil)
	m.edge(schema.ReplyOf, comment, parent, nil)
	for _, id := range p.TagIDs {
		m.edge(schema.HasTag, comment, graph.K(schema.Tag, id), nil)
	}
	return m.err
}

// AddFriendshipParams links two persons (INS8).
type AddFriendshipParams struct {
	Person1ID    int64 `json:"person1Id"`
	Person2ID    int64 `json:"person2Id" validate:"nefield=Person1ID"`
	CreationDate int64 `json:"creationDate"`
}

// AddFriendship adds KNOWS in both directions.
func AddFriendship(w graph.Writer, p AddFriendshipParams) error {
	if err := Validate(p); err != nil {
		return err
	}
	a, b := graph.K(schema.Person, p.Person1ID), graph.K(schema.Person, p.Person2ID)
	created := date(p.CreationDate)
	m := mutation{w: w}
	m.edge(schema.Knows, a, b, graph.Props{schema.CreationDate: created})
	m.edge(schema.Knows, b, a, graph.Props{schema.CreationDate: created})
	return m.err
}

// mutation stops at the first failed write.
type mutation struct {
	w   graph.Writer
	err error
}

func (m *mutation) vertex(k graph.Key, props graph.Props) {
	if m.err != nil {
		return
	}
	if err := m.w.AddVertex(graph.Vertex{Label: k.Label, ID: k.ID, Props: props}); err != nil {
		m.err = fmt.Errorf("add %s: %w", k, err)
	}
}

func (m *mutation) edge(label string, from, to graph.Key, props graph.Props) {
	if m.err != nil {
		return
	}
	if err := m.w.AddEdge(graph.Edge{Label: label, From: from, To: to, Props: props}); err != nil {
		m.err = fmt.Errorf("add %s %s->%s: %w", label, from, to, err)
	}
}

func date(millis int64) time.Time {
	return time.UnixMilli(millis).UTC()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
