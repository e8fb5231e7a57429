// Package schema defines the labels and property names of the LDBC Social
// Network Benchmark property graph.
//
// Ids are unique within a vertex label only, so every lookup in the store is
// qualified by one of the vertex labels below.
package schema

// Vertex labels.
const (
	Person       = "Person"
	Place        = "Place"
	Organisation = "Organisation"
	TagClass     = "TagClass"
	Tag          = "Tag"
	Forum        = "Forum"
	Post         = "Post"
	Comment      = "Comment"
)

// Edge labels.
const (
	Knows        = "KNOWS"
	IsLocatedIn  = "IS_LOCATED_IN"
	HasInterest  = "HAS_INTEREST"
	StudyAt      = "STUDY_AT"
	WorkAt       = "WORK_AT"
	HasModerator = "HAS_MODERATOR"
	HasMember    = "HAS_MEMBER"
	ContainerOf  = "CONTAINER_OF"
	HasTag       = "HAS_TAG"
	HasCreator   = "HAS_CREATOR"
	Likes        = "LIKES"
	ReplyOf      = "REPLY_OF"
	IsPartOf     = "IS_PART_OF"
	IsSubclassOf = "IS_SUBCLASS_OF"
	HasType      = "HAS_TYPE"
)

// Common properties.
const (
	ID           = "id"
	CreationDate = "creationDate"
)

// Person properties.
const (
	FirstName   = "firstName"
	LastName    = "lastName"
	Gender      = "gender"
	Birthday    = "birthday"
	LocationIP  = "locationIP"
	BrowserUsed = "browserUsed"
	Languages   = "languages"
	Emails      = "emails"
)

// Place, Organisation, Tag and TagClass properties.
const (
	Name = "name"
	URL  = "url"
	Type = "type"
)

// Message (Post/Comment) properties.
const (
	Language  = "language"
	Content   = "content"
	ImageFile = "imageFile"
	Length    = "length"
)

// Forum properties.
const (
	Title = "title"
)

// Edge properties.
const (
	ClassYear = "classYear"
	WorkFrom  = "workFrom"
	JoinDate  = "joinDate"
)

// Place types.
const (
	PlaceCity      = "City"
	PlaceCountry   = "Country"
	PlaceContinent = "Continent"
)

// Organisation types.
const (
	OrgCompany    = "Company"
	OrgUniversity = "University"
)

// VertexLabels returns every vertex label in load order.
func VertexLabels() []string {
	return []string{Place, Organisation, TagClass, Tag, Person, Forum, Post, Comment}
}

// EdgeLabels returns every edge label.
func EdgeLabels() []string {
	return []string{
		Knows, IsLocatedIn, HasInterest, StudyAt, WorkAt,
		HasModerator, HasMember, ContainerOf, HasTag, HasCreator,
		Likes, ReplyOf, IsPartOf, IsSubclassOf, HasType,
	}
}

// IsMessage reports whether label is one of the two message labels.
func IsMessage(label string) bool {
	return label == Post || label == Comment
}
