package queries

import (
	"slices"

	"github.com/sanonone/kektorsnb/pkg/graph"
	"github.com/sanonone/kektorsnb/pkg/schema"
)

// NewTopicsParams selects a posting window (IC4).
type NewTopicsParams struct {
	PersonID     int64 `json:"personId"`
	StartDate    int64 `json:"startDate"`
	DurationDays int   `json:"durationDays" validate:"gte=0"`
	Limit        int   `json:"limit" validate:"gte=0"`
}

// TagCountResult counts posts per tag.
type TagCountResult struct {
	TagName   string `json:"tagName"`
	PostCount int    `json:"postCount"`
}

// NewTopics counts, per tag, the posts of direct friends created in
// [StartDate, StartDate+DurationDays) carrying a tag that none of their posts
// created before StartDate carried.
func NewTopics(r graph.Reader, p NewTopicsParams) ([]TagCountResult, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	start, ok := personKey(r, p.PersonID)
	if !ok {
		return []TagCountResult{}, nil
	}
	end := p.StartDate + int64(p.DurationDays)*dayMillis

	var rr rowReader
	prior := make(map[graph.Key]bool)
	window := make(map[graph.Key]int)
	for _, f := range friendsWithin(r, start, 1) {
		for _, post := range messagesBy(r, f.key, schema.Post) {
			date := rr.millis(post.Props, schema.CreationDate)
			for tag := range graph.Neighbors(r, post.Key(), schema.HasTag, graph.Out) {
				switch {
				case date < p.StartDate:
					prior[tag] = true
				case date < end:
					window[tag]++
				}
			}
		}
	}

	counts := make(map[string]int)
	for tag, n := range window {
		if prior[tag] {
			continue
		}
		v, ok := graph.Lookup(r, tag)
		if !ok {
			continue
		}
		counts[rr.str(v.Props, schema.Name)] += n
	}
	if rr.err != nil {
		return nil, rr.err
	}
	return tagCounts(counts, p.Limit), nil
}

// TagCooccurrenceParams names the tag to pivot on (IC6).
type TagCooccurrenceParams struct {
	PersonID int64  `json:"personId"`
	TagName  string `json:"tagName" validate:"required"`
	Limit    int    `json:"limit" validate:"gte=0"`
}

// TagCooccurrence counts the other tags found on posts tagged TagName written
// by persons within two hops.
func TagCooccurrence(r graph.Reader, p TagCooccurrenceParams) ([]TagCountResult, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	start, ok := personKey(r, p.PersonID)
	if !ok {
		return []TagCountResult{}, nil
	}

	var rr rowReader
	counts := make(map[string]int)
	for _, f := range friendsWithin(r, start, 2) {
		for _, post := range messagesBy(r, f.key, schema.Post) {
			var names []string
			tagged := false
			for k := range graph.Neighbors(r, post.Key(), schema.HasTag, graph.Out) {
				tag, ok := graph.Lookup(r, k)
				if !ok {
					continue
				}
				name := rr.str(tag.Props, schema.Name)
				if name == p.TagName {
					tagged = true
					continue
				}
				names = append(names, name)
			}
			if !tagged {
				continue
			}
			for _, name := range names {
				counts[name]++
			}
		}
	}
	if rr.err != nil {
		return nil, rr.err
	}
	return tagCounts(counts, p.Limit), nil
}

func tagCounts(counts map[string]int, limit int) []TagCountResult {
	out := make([]TagCountResult, 0, len(counts))
	for name, n := range counts {
		out = append(out, TagCountResult{TagName: name, PostCount: n})
	}
	return sortLimit(out, limit,
		Desc(func(x TagCountResult) int { return x.PostCount }),
		Asc(func(x TagCountResult) string { return x.TagName }),
	)
}

// NewGroupsParams selects forums joined after a date (IC5).
type NewGroupsParams struct {
	PersonID int64 `json:"personId"`
	MinDate  int64 `json:"minDate"`
	Limit    int   `json:"limit" validate:"gte=0"`
}

// NewGroupsResult is a forum recently joined by the circle.
type NewGroupsResult struct {
	ForumTitle string `json:"forumTitle"`
	PostCount  int    `json:"postCount"`
	ForumID    int64  `json:"forumId"`
}

// NewGroups finds forums that persons within two hops joined after MinDate
// and counts the posts those new members wrote in each forum.
func NewGroups(r graph.Reader, p NewGroupsParams) ([]NewGroupsResult, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	start, ok := personKey(r, p.PersonID)
	if !ok {
		return []NewGroupsResult{}, nil
	}

	var rr rowReader
	members := make(map[graph.Key]map[graph.Key]bool)
	for _, f := range friendsWithin(r, start, 2) {
		for e := range r.Edges(f.key, schema.HasMember, graph.In) {
			if rr.millis(e.Props, schema.JoinDate) <= p.MinDate {
				continue
			}
			if members[e.From] == nil {
				members[e.From] = make(map[graph.Key]bool)
			}
			members[e.From][f.key] = true
		}
	}

	out := make([]NewGroupsResult, 0, len(members))
	for fk, joined := range members {
		forum, ok := graph.Lookup(r, fk)
		if !ok {
			continue
		}
		count := 0
		for post := range graph.Neighbors(r, fk, schema.ContainerOf, graph.Out, schema.Post) {
			if author, ok := graph.First(r, post, schema.HasCreator, graph.Out); ok && joined[author] {
				count++
			}
		}
		out = append(out, NewGroupsResult{
			ForumTitle: rr.str(forum.Props, schema.Title),
			PostCount:  count,
			ForumID:    forum.ID,
		})
	}
	if rr.err != nil {
		return nil, rr.err
	}
	return sortLimit(out, p.Limit,
		Desc(func(x NewGroupsResult) int { return x.PostCount }),
		Asc(func(x NewGroupsResult) int64 { return x.ForumID }),
	), nil
}

// PersonLimitParams selects a person and caps the rows (IC7, IC8).
type PersonLimitParams struct {
	PersonID int64 `json:"personId"`
	Limit    int   `json:"limit" validate:"gte=0"`
}

// RecentLikersResult is the latest like a person gave to the start person.
type RecentLikersResult struct {
	PersonID         int64  `json:"personId"`
	FirstName        string `json:"personFirstName"`
	LastName         string `json:"personLastName"`
	LikeCreationDate int64  `json:"likeCreationDate"`
	MessageID        int64  `json:"messageId"`
	MessageContent   string `json:"messageContent"`
	MinutesLatency   int    `json:"minutesLatency"`
	IsNew            bool   `json:"isNew"`
}

// RecentLikers returns, for every person who liked one of the start
// person's messages, their most recent like. IsNew is set when the liker is
// not a friend.
func RecentLikers(r graph.Reader, p PersonLimitParams) ([]RecentLikersResult, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	start, ok := personKey(r, p.PersonID)
	if !ok {
		return []RecentLikersResult{}, nil
	}

	var rr rowReader
	latest := make(map[graph.Key]RecentLikersResult)
	for _, msg := range messagesBy(r, start) {
		msgDate := rr.millis(msg.Props, schema.CreationDate)
		for e := range r.Edges(msg.Key(), schema.Likes, graph.In) {
			row := RecentLikersResult{
				LikeCreationDate: rr.millis(e.Props, schema.CreationDate),
				MessageID:        msg.ID,
				MessageContent:   rr.content(msg),
			}
			row.MinutesLatency = int((row.LikeCreationDate - msgDate) / 60000)
			prev, seen := latest[e.From]
			if seen && (prev.LikeCreationDate > row.LikeCreationDate ||
				(prev.LikeCreationDate == row.LikeCreationDate && prev.MessageID < row.MessageID)) {
				continue
			}
			latest[e.From] = row
		}
	}

	out := make([]RecentLikersResult, 0, len(latest))
	for k, row := range latest {
		liker, ok := graph.Lookup(r, k)
		if !ok {
			continue
		}
		n := rr.name(liker)
		row.PersonID = liker.ID
		row.FirstName = n.first
		row.LastName = n.last
		row.IsNew = !knows(r, k, start)
		out = append(out, row)
	}
	if rr.err != nil {
		return nil, rr.err
	}
	return sortLimit(out, p.Limit,
		Desc(func(x RecentLikersResult) int64 { return x.LikeCreationDate }),
		Asc(func(x RecentLikersResult) int64 { return x.PersonID }),
	), nil
}

// RecentRepliesResult is a comment replying to one of the start person's messages.
type RecentRepliesResult struct {
	PersonID            int64  `json:"personId"`
	FirstName           string `json:"personFirstName"`
	LastName            string `json:"personLastName"`
	CommentCreationDate int64  `json:"commentCreationDate"`
	CommentID           int64  `json:"commentId"`
	CommentContent      string `json:"commentContent"`
}

// RecentReplies returns the newest direct replies to the start person's
// posts and comments.
func RecentReplies(r graph.Reader, p PersonLimitParams) ([]RecentRepliesResult, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	start, ok := personKey(r, p.PersonID)
	if !ok {
		return []RecentRepliesResult{}, nil
	}

	var rr rowReader
	var out []RecentRepliesResult
	for _, msg := range messagesBy(r, start) {
		for k := range graph.Neighbors(r, msg.Key(), schema.ReplyOf, graph.In, schema.Comment) {
			reply, ok := graph.Lookup(r, k)
			if !ok {
				continue
			}
			author, ok := creatorOf(r, k)
			if !ok {
				continue
			}
			n := rr.name(author)
			out = append(out, RecentRepliesResult{
				PersonID:            author.ID,
				FirstName:           n.first,
				LastName:            n.last,
				CommentCreationDate: rr.millis(reply.Props, schema.CreationDate),
				CommentID:           reply.ID,
				CommentContent:      rr.str(reply.Props, schema.Content),
			})
		}
	}
	if rr.err != nil {
		return nil, rr.err
	}
	return sortLimit(out, p.Limit,
		Desc(func(x RecentRepliesResult) int64 { return x.CommentCreationDate }),
		Asc(func(x RecentRepliesResult) int64 { return x.CommentID }),
	), nil
}

// ExpertSearchParams names a tag class (IC12).
type ExpertSearchParams struct {
	PersonID     int64  `json:"personId"`
	TagClassName string `json:"tagClassName" validate:"required"`
	Limit        int    `json:"limit" validate:"gte=0"`
}

// ExpertSearchResult is a friend who replied to posts about the tag class.
type ExpertSearchResult struct {
	PersonID   int64    `json:"personId"`
	FirstName  string   `json:"personFirstName"`
	LastName   string   `json:"personLastName"`
	TagNames   []string `json:"tagNames"`
	ReplyCount int      `json:"replyCount"`
}

// ExpertSearch finds direct friends whose comments reply to posts carrying a
// tag of the named class or one of its subclasses.
func ExpertSearch(r graph.Reader, p ExpertSearchParams) ([]ExpertSearchResult, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	start, ok := personKey(r, p.PersonID)
	if !ok {
		return []ExpertSearchResult{}, nil
	}

	var rr rowReader
	inClass := classMatcher(r, &rr, p.TagClassName)

	var out []ExpertSearchResult
	for _, f := range friendsWithin(r, start, 1) {
		replies := 0
		tags := make(map[string]bool)
		for _, c := range messagesBy(r, f.key, schema.Comment) {
			matched := false
			for post := range graph.Neighbors(r, c.Key(), schema.ReplyOf, graph.Out, schema.Post) {
				for tk := range graph.Neighbors(r, post, schema.HasTag, graph.Out) {
					if !inClass(tk) {
						continue
					}
					matched = true
					if tag, ok := graph.Lookup(r, tk); ok {
						tags[rr.str(tag.Props, schema.Name)] = true
					}
				}
			}
			if matched {
				replies++
			}
		}
		if replies == 0 {
			continue
		}
		friend, ok := graph.Lookup(r, f.key)
		if !ok {
			continue
		}
		names := make([]string, 0, len(tags))
		for name := range tags {
			names = append(names, name)
		}
		slices.Sort(names)
		n := rr.name(friend)
		out = append(out, ExpertSearchResult{
			PersonID:   friend.ID,
			FirstName:  n.first,
			LastName:   n.last,
			TagNames:   names,
			ReplyCount: replies,
		})
	}
	if rr.err != nil {
		return nil, rr.err
	}
	return sortLimit(out, p.Limit,
		Desc(func(x ExpertSearchResult) int { return x.ReplyCount }),
		Asc(func(x ExpertSearchResult) int64 { return x.PersonID }),
	), nil
}

// classMatcher reports whether a tag's class is className or a descendant of
// it. Verdicts are memoised per tag class.
func classMatcher(r graph.Reader, rr *rowReader, className string) func(tag graph.Key) bool {
	memo := make(map[graph.Key]bool)
	var under func(class graph.Key, seen map[graph.Key]bool) bool
	under = func(class graph.Key, seen map[graph.Key]bool) bool {
		if v, ok := memo[class]; ok {
			return v
		}
		if seen[class] {
			return false
		}
		seen[class] = true
		found := false
		if v, ok := graph.Lookup(r, class); ok && rr.str(v.Props, schema.Name) == className {
			found = true
		}
		if !found {
			for parent := range graph.Neighbors(r, class, schema.IsSubclassOf, graph.Out) {
				if under(parent, seen) {
					found = true
					break
				}
			}
		}
		memo[class] = found
		return found
	}
	return func(tag graph.Key) bool {
		for class := range graph.Neighbors(r, tag, schema.HasType, graph.Out) {
			if under(class, make(map[graph.Key]bool)) {
				return true
			}
		}
		return false
	}
}
