package loader

import (
	"path/filepath"

	"github.com/sanonone/kektorsnb/pkg/graph"
	"github.com/sanonone/kektorsnb/pkg/schema"
)

// writeFunc parses r and writes it. It returns the number of graph elements
// added. When r.err is set after the call the row was not written.
type writeFunc func(w graph.Writer, r *row) (int, error)

type csvFile struct {
	path      string
	label     string
	minFields int
	write     writeFunc
}

type phase struct {
	name  string
	files []csvFile
}

func phases(staticDir, dynamicDir string) []phase {
	st := func(name string) string { return filepath.Join(staticDir, name) }
	dy := func(name string) string { return filepath.Join(dynamicDir, name) }

	return []phase{
		{"static entities", []csvFile{
			vertexFile(st("place_0_0.csv"), schema.Place, 4, placeProps),
			vertexFile(st("organisation_0_0.csv"), schema.Organisation, 4, organisationProps),
			vertexFile(st("tagclass_0_0.csv"), schema.TagClass, 3, namedProps),
			vertexFile(st("tag_0_0.csv"), schema.Tag, 3, namedProps),
		}},
		{"static relationships", []csvFile{
			edgeFile(st("place_isPartOf_place_0_0.csv"), schema.IsPartOf, schema.Place, schema.Place, nil),
			edgeFile(st("organisation_isLocatedIn_place_0_0.csv"), schema.IsLocatedIn, schema.Organisation, schema.Place, nil),
			edgeFile(st("tagclass_isSubclassOf_tagclass_0_0.csv"), schema.IsSubclassOf, schema.TagClass, schema.TagClass, nil),
			edgeFile(st("tag_hasType_tagclass_0_0.csv"), schema.HasType, schema.Tag, schema.TagClass, nil),
		}},
		{"dynamic entities", []csvFile{
			vertexFile(dy("person_0_0.csv"), schema.Person, 10, personProps),
			vertexFile(dy("forum_0_0.csv"), schema.Forum, 3, forumProps),
			vertexFile(dy("post_0_0.csv"), schema.Post, 8, postProps),
			vertexFile(dy("comment_0_0.csv"), schema.Comment, 6, commentProps),
		}},
		{"dynamic relationships", []csvFile{
			knowsFile(dy("person_knows_person_0_0.csv")),
			edgeFile(dy("person_isLocatedIn_place_0_0.csv"), schema.IsLocatedIn, schema.Person, schema.Place, nil),
			edgeFile(dy("person_hasInterest_tag_0_0.csv"), schema.HasInterest, schema.Person, schema.Tag, nil),
			edgeFile(dy("person_studyAt_organisation_0_0.csv"), schema.StudyAt, schema.Person, schema.Organisation, intProp(schema.ClassYear)),
			edgeFile(dy("person_workAt_organisation_0_0.csv"), schema.WorkAt, schema.Person, schema.Organisation, intProp(schema.WorkFrom)),
			edgeFile(dy("person_likes_post_0_0.csv"), schema.Likes, schema.Person, schema.Post, dateProp(schema.CreationDate)),
			edgeFile(dy("person_likes_comment_0_0.csv"), schema.Likes, schema.Person, schema.Comment, dateProp(schema.CreationDate)),

			edgeFile(dy("forum_hasModerator_person_0_0.csv"), schema.HasModerator, schema.Forum, schema.Person, nil),
			edgeFile(dy("forum_containerOf_post_0_0.csv"), schema.ContainerOf, schema.Forum, schema.Post, nil),
			edgeFile(dy("forum_hasTag_tag_0_0.csv"), schema.HasTag, schema.Forum, schema.Tag, nil),
			edgeFile(dy("forum_hasMember_person_0_0.csv"), schema.HasMember, schema.Forum, schema.Person, dateProp(schema.JoinDate)),

			edgeFile(dy("post_hasCreator_person_0_0.csv"), schema.HasCreator, schema.Post, schema.Person, nil),
			edgeFile(dy("post_isLocatedIn_place_0_0.csv"), schema.IsLocatedIn, schema.Post, schema.Place, nil),
			edgeFile(dy("post_hasTag_tag_0_0.csv"), schema.HasTag, schema.Post, schema.Tag, nil),
			edgeFile(dy("comment_hasCreator_person_0_0.csv"), schema.HasCreator, schema.Comment, schema.Person, nil),
			edgeFile(dy("comment_isLocatedIn_place_0_0.csv"), schema.IsLocatedIn, schema.Comment, schema.Place, nil),
			edgeFile(dy("comment_replyOf_post_0_0.csv"), schema.ReplyOf, schema.Comment, schema.Post, nil),
			edgeFile(dy("comment_replyOf_comment_0_0.csv"), schema.ReplyOf, schema.Comment, schema.Comment, nil),
			edgeFile(dy("comment_hasTag_tag_0_0.csv"), schema.HasTag, schema.Comment, schema.Tag, nil),
		}},
	}
}

func vertexFile(path, label string, minFields int, props func(*row) graph.Props) csvFile {
	return csvFile{
		path:      path,
		label:     label,
		minFields: minFields,
		write: func(w graph.Writer, r *row) (int, error) {
			id := r.id(0)
			p := props(r)
			if r.err != nil {
				return 0, nil
			}
			return 1, w.AddVertex(graph.Vertex{Label: label, ID: id, Props: p})
		},
	}
}

// edgeFile reads "from|to[|prop]" rows.
func edgeFile(path, label, fromLabel, toLabel string, props func(*row) graph.Props) csvFile {
	minFields := 2
	if props != nil {
		minFields = 3
	}
	return csvFile{
		path:      path,
		label:     label,
		minFields: minFields,
		write: func(w graph.Writer, r *row) (int, error) {
			from, to := graph.K(fromLabel, r.id(0)), graph.K(toLabel, r.id(1))
			var p graph.Props
			if props != nil {
				p = props(r)
			}
			if r.err != nil {
				return 0, nil
			}
			return 1, w.AddEdge(graph.Edge{Label: label, From: from, To: to, Props: p})
		},
	}
}

// knowsFile inserts both directions of every friendship.
func knowsFile(path string) csvFile {
	return csvFile{
		path:      path,
		label:     schema.Knows,
		minFields: 3,
		write: func(w graph.Writer, r *row) (int, error) {
			a, b := graph.K(schema.Person, r.id(0)), graph.K(schema.Person, r.id(1))
			created := r.date(2)
			if r.err != nil {
				return 0, nil
			}
			if err := w.AddEdge(graph.Edge{Label: schema.Knows, From: a, To: b, Props: graph.Props{schema.CreationDate: created}}); err != nil {
				return 0, err
			}
			return 2, w.AddEdge(graph.Edge{Label: schema.Knows, From: b, To: a, Props: graph.Props{schema.CreationDate: created}})
		},
	}
}

func intProp(name string) func(*row) graph.Props {
	return func(r *row) graph.Props { return graph.Props{name: r.integer(2)} }
}

func dateProp(name string) func(*row) graph.Props {
	return func(r *row) graph.Props { return graph.Props{name: r.date(2)} }
}

// id|name|url|type
func placeProps(r *row) graph.Props {
	return graph.Props{schema.Name: r.str(1), schema.URL: r.str(2), schema.Type: r.str(3)}
}

// id|type|name|url
func organisationProps(r *row) graph.Props {
	return graph.Props{schema.Type: r.str(1), schema.Name: r.str(2), schema.URL: r.str(3)}
}

// id|name|url, for tags and tag classes.
func namedProps(r *row) graph.Props {
	return graph.Props{schema.Name: r.str(1), schema.URL: r.str(2)}
}

func personProps(r *row) graph.Props {
	return graph.Props{
		schema.FirstName:    r.str(1),
		schema.LastName:     r.str(2),
		schema.Gender:       r.str(3),
		schema.Birthday:     r.date(4),
		schema.CreationDate: r.date(5),
		schema.LocationIP:   r.str(6),
		schema.BrowserUsed:  r.str(7),
		schema.Languages:    r.list(8),
		schema.Emails:       r.list(9),
	}
}

func forumProps(r *row) graph.Props {
	return graph.Props{schema.Title: r.str(1), schema.CreationDate: r.date(2)}
}

// Posts carry either an image file or text content; the empty one is not
// stored.
func postProps(r *row) graph.Props {
	p := graph.Props{
		schema.CreationDate: r.date(2),
		schema.LocationIP:   r.str(3),
		schema.BrowserUsed:  r.str(4),
		schema.Language:     r.str(5),
		schema.Length:       r.integer(7),
	}
	if img := r.str(1); img != "" {
		p[schema.ImageFile] = img
	}
	if content := r.str(6); content != "" {
		p[schema.Content] = content
	}
	return p
}

func commentProps(r *row) graph.Props {
	return graph.Props{
		schema.CreationDate: r.date(1),
		schema.LocationIP:   r.str(2),
		schema.BrowserUsed:  r.str(3),
		schema.Content:      r.str(4),
		schema.Length:       r.integer(5),
	}
}
