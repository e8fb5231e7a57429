package queries

import (
	"fmt"
	"slices"
	"time"

	"github.com/sanonone/kektorsnb/pkg/graph"
	"github.com/sanonone/kektorsnb/pkg/schema"
)

const dayMillis = int64(24 * time.Hour / time.Millisecond)

// FriendsByNameParams searches the extended friend circle by first name (IC1).
type FriendsByNameParams struct {
	PersonID  int64  `json:"personId"`
	FirstName string `json:"firstName" validate:"required"`
	Limit     int    `json:"limit" validate:"gte=0"`
}

// Organisation is a place of study or work in a FriendsByNameResult.
type Organisation struct {
	Name string `json:"name"`
	// Year is the class year for universities and the start year for companies.
	Year int `json:"year"`
	// Place is the university's city or the company's country.
	Place string `json:"place"`
}

// FriendsByNameResult is a person with the searched first name.
type FriendsByNameResult struct {
	PersonID     int64          `json:"friendId"`
	LastName     string         `json:"friendLastName"`
	Distance     int            `json:"distanceFromPerson"`
	Birthday     int64          `json:"friendBirthday"`
	CreationDate int64          `json:"friendCreationDate"`
	Gender       string         `json:"friendGender"`
	BrowserUsed  string         `json:"friendBrowserUsed"`
	LocationIP   string         `json:"friendLocationIp"`
	Emails       []string       `json:"friendEmails"`
	Languages    []string       `json:"friendLanguages"`
	CityName     string         `json:"friendCityName"`
	Universities []Organisation `json:"friendUniversities"`
	Companies    []Organisation `json:"friendCompanies"`
}

// FriendsByName finds persons within three KNOWS hops with the given first
// name, closest first, with their study and work history.
func FriendsByName(r graph.Reader, p FriendsByNameParams) ([]FriendsByNameResult, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	start, ok := personKey(r, p.PersonID)
	if !ok {
		return []FriendsByNameResult{}, nil
	}

	var rr rowReader
	type match struct {
		person *graph.Vertex
		dist   int
		last   string
	}
	var matches []match
	for _, f := range friendsWithin(r, start, 3) {
		v, ok := graph.Lookup(r, f.key)
		if !ok || rr.str(v.Props, schema.FirstName) != p.FirstName {
			continue
		}
		matches = append(matches, match{person: v, dist: f.dist, last: rr.str(v.Props, schema.LastName)})
	}
	if rr.err != nil {
		return nil, rr.err
	}
	matches = sortLimit(matches, p.Limit,
		Asc(func(m match) int { return m.dist }),
		Asc(func(m match) string { return m.last }),
		Asc(func(m match) int64 { return m.person.ID }),
	)

	out := make([]FriendsByNameResult, 0, len(matches))
	for _, m := range matches {
		v := m.person
		out = append(out, FriendsByNameResult{
			PersonID:     v.ID,
			LastName:     m.last,
			Distance:     m.dist,
			Birthday:     rr.millis(v.Props, schema.Birthday),
			CreationDate: rr.millis(v.Props, schema.CreationDate),
			Gender:       rr.str(v.Props, schema.Gender),
			BrowserUsed:  rr.str(v.Props, schema.BrowserUsed),
			LocationIP:   rr.str(v.Props, schema.LocationIP),
			Emails:       rr.strs(v.Props, schema.Emails),
			Languages:    rr.strs(v.Props, schema.Languages),
			CityName:     placeName(r, &rr, v.Key()),
			Universities: organisations(r, &rr, v.Key(), schema.StudyAt, schema.ClassYear),
			Companies:    organisations(r, &rr, v.Key(), schema.WorkAt, schema.WorkFrom),
		})
	}
	return out, rr.err
}

func organisations(r graph.Reader, rr *rowReader, person graph.Key, edgeLabel, yearProp string) []Organisation {
	out := []Organisation{}
	for e := range r.Edges(person, edgeLabel, graph.Out) {
		org, ok := graph.Lookup(r, e.To)
		if !ok {
			continue
		}
		out = append(out, Organisation{
			Name:  rr.str(org.Props, schema.Name),
			Year:  rr.integer(e.Props, yearProp),
			Place: placeName(r, rr, org.Key()),
		})
	}
	slices.SortFunc(out, OrderBy(
		Asc(func(o Organisation) string { return o.Name }),
		Asc(func(o Organisation) int { return o.Year }),
		Asc(func(o Organisation) string { return o.Place }),
	))
	return out
}

// MessagesBeforeParams bounds messages by creation date (IC2, IC9).
type MessagesBeforeParams struct {
	PersonID int64 `json:"personId"`
	MaxDate  int64 `json:"maxDate"`
	Limit    int   `json:"limit" validate:"gte=0"`
}

// FriendMessageResult is a message written by someone in the friend circle.
type FriendMessageResult struct {
	PersonID            int64  `json:"personId"`
	FirstName           string `json:"personFirstName"`
	LastName            string `json:"personLastName"`
	MessageID           int64  `json:"messageId"`
	MessageContent      string `json:"messageContent"`
	MessageCreationDate int64  `json:"messageCreationDate"`

	label string
}

// RecentMessages returns the newest messages of direct friends created
// strictly before MaxDate.
func RecentMessages(r graph.Reader, p MessagesBeforeParams) ([]FriendMessageResult, error) {
	return messagesOfCircle(r, p, 1)
}

// RecentCircleMessages is RecentMessages over friends and friends of friends.
func RecentCircleMessages(r graph.Reader, p MessagesBeforeParams) ([]FriendMessageResult, error) {
	return messagesOfCircle(r, p, 2)
}

func messagesOfCircle(r graph.Reader, p MessagesBeforeParams, hops int) ([]FriendMessageResult, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	start, ok := personKey(r, p.PersonID)
	if !ok {
		return []FriendMessageResult{}, nil
	}

	var rr rowReader
	var out []FriendMessageResult
	for _, f := range friendsWithin(r, start, hops) {
		friend, ok := graph.Lookup(r, f.key)
		if !ok {
			continue
		}
		n := rr.name(friend)
		for _, m := range messagesBy(r, f.key) {
			date := rr.millis(m.Props, schema.CreationDate)
			if date >= p.MaxDate {
				continue
			}
			out = append(out, FriendMessageResult{
				PersonID:            friend.ID,
				FirstName:           n.first,
				LastName:            n.last,
				MessageID:           m.ID,
				MessageContent:      rr.content(m),
				MessageCreationDate: date,
				label:               m.Label,
			})
		}
	}
	if rr.err != nil {
		return nil, rr.err
	}
	return sortLimit(out, p.Limit,
		Desc(func(x FriendMessageResult) int64 { return x.MessageCreationDate }),
		Asc(func(x FriendMessageResult) int64 { return x.MessageID }),
		Asc(func(x FriendMessageResult) string { return x.label }),
	), nil
}

// FriendsInCountriesParams selects travellers to two countries (IC3).
type FriendsInCountriesParams struct {
	PersonID     int64  `json:"personId"`
	CountryXName string `json:"countryXName" validate:"required"`
	CountryYName string `json:"countryYName" validate:"required"`
	StartDate    int64  `json:"startDate"`
	DurationDays int    `json:"durationDays" validate:"gte=0"`
	Limit        int    `json:"limit" validate:"gte=0"`
}

// FriendsInCountriesResult counts a person's messages from each country.
type FriendsInCountriesResult struct {
	PersonID  int64  `json:"personId"`
	FirstName string `json:"personFirstName"`
	LastName  string `json:"personLastName"`
	XCount    int    `json:"xCount"`
	YCount    int    `json:"yCount"`
	Count     int    `json:"count"`
}

// FriendsInCountries finds persons within two hops, living outside both
// countries, who wrote messages located in each of them during
// [StartDate, StartDate+DurationDays).
func FriendsInCountries(r graph.Reader, p FriendsInCountriesParams) ([]FriendsInCountriesResult, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	start, ok := personKey(r, p.PersonID)
	if !ok {
		return []FriendsInCountriesResult{}, nil
	}
	end := p.StartDate + int64(p.DurationDays)*dayMillis

	var rr rowReader
	var out []FriendsInCountriesResult
	for _, f := range friendsWithin(r, start, 2) {
		// A friend with no resolvable home country cannot be shown to live
		// outside X and Y.
		home, ok := countryOf(r, f.key)
		if !ok {
			continue
		}
		if name := rr.str(home.Props, schema.Name); name == p.CountryXName || name == p.CountryYName {
			continue
		}
		var x, y int
		for _, m := range messagesBy(r, f.key) {
			date := rr.millis(m.Props, schema.CreationDate)
			if date < p.StartDate || date >= end {
				continue
			}
			switch placeName(r, &rr, m.Key()) {
			case p.CountryXName:
				x++
			case p.CountryYName:
				y++
			}
		}
		if x == 0 || y == 0 {
			continue
		}
		person, ok := graph.Lookup(r, f.key)
		if !ok {
			continue
		}
		n := rr.name(person)
		out = append(out, FriendsInCountriesResult{
			PersonID:  person.ID,
			FirstName: n.first,
			LastName:  n.last,
			XCount:    x,
			YCount:    y,
			Count:     x + y,
		})
	}
	if rr.err != nil {
		return nil, rr.err
	}
	return sortLimit(out, p.Limit,
		Desc(func(x FriendsInCountriesResult) int { return x.Count }),
		Asc(func(x FriendsInCountriesResult) int64 { return x.PersonID }),
	), nil
}

// FriendRecommendationParams selects candidates born around a month (IC10).
type FriendRecommendationParams struct {
	PersonID int64 `json:"personId"`
	Month    int   `json:"month" validate:"min=1,max=12"`
	Limit    int   `json:"limit" validate:"gte=0"`
}

// FriendRecommendationResult is a recommended friend of a friend.
type FriendRecommendationResult struct {
	PersonID            int64  `json:"personId"`
	FirstName           string `json:"personFirstName"`
	LastName            string `json:"personLastName"`
	CommonInterestScore int    `json:"commonInterestScore"`
	Gender              string `json:"personGender"`
	CityName            string `json:"personCityName"`
}

// FriendRecommendation scores friends of friends (never direct friends) whose
// birthday falls between the 21st of Month and the 22nd of the next month.
// The score is the number of their posts tagged with one of the start
// person's interests minus the number of their posts without one.
func FriendRecommendation(r graph.Reader, p FriendRecommendationParams) ([]FriendRecommendationResult, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	start, ok := personKey(r, p.PersonID)
	if !ok {
		return []FriendRecommendationResult{}, nil
	}

	interests := make(map[graph.Key]bool)
	for tag := range graph.Neighbors(r, start, schema.HasInterest, graph.Out) {
		interests[tag] = true
	}

	var rr rowReader
	var out []FriendRecommendationResult
	for _, f := range friendsWithin(r, start, 2) {
		if f.dist != 2 {
			continue
		}
		person, ok := graph.Lookup(r, f.key)
		if !ok {
			continue
		}
		birthday, err := person.Props.Time(schema.Birthday)
		if err != nil {
			return nil, err
		}
		if !inBirthdayWindow(birthday, p.Month) {
			continue
		}

		score := 0
		for _, post := range messagesBy(r, f.key, schema.Post) {
			shared := false
			for tag := range graph.Neighbors(r, post.Key(), schema.HasTag, graph.Out) {
				if interests[tag] {
					shared = true
					break
				}
			}
			if shared {
				score++
			} else {
				score--
			}
		}

		n := rr.name(person)
		out = append(out, FriendRecommendationResult{
			PersonID:            person.ID,
			FirstName:           n.first,
			LastName:            n.last,
			CommonInterestScore: score,
			Gender:              rr.str(person.Props, schema.Gender),
			CityName:            placeName(r, &rr, f.key),
		})
	}
	if rr.err != nil {
		return nil, rr.err
	}
	return sortLimit(out, p.Limit,
		Desc(func(x FriendRecommendationResult) int { return x.CommonInterestScore }),
		Asc(func(x FriendRecommendationResult) int64 { return x.PersonID }),
	), nil
}

// inBirthdayWindow compares the zero-padded month and day of the UTC
// ISO-8601 form of birthday as strings: day >= "21" in month, or day < "22"
// in the following month (January after December).
func inBirthdayWindow(birthday time.Time, month int) bool {
	iso := birthday.UTC().Format(time.RFC3339)
	if len(iso) < 10 {
		return false
	}
	mm, dd := iso[5:7], iso[8:10]
	next := month%12 + 1
	return (mm == fmt.Sprintf("%02d", month) && dd >= "21") ||
		(mm == fmt.Sprintf("%02d", next) && dd < "22")
}

// JobReferralParams selects early employees of companies in a country (IC11).
type JobReferralParams struct {
	PersonID     int64  `json:"personId"`
	CountryName  string `json:"countryName" validate:"required"`
	WorkFromYear int    `json:"workFromYear"`
	Limit        int    `json:"limit" validate:"gte=0"`
}

// JobReferralResult is one employment of a person in the circle.
type JobReferralResult struct {
	PersonID                 int64  `json:"personId"`
	FirstName                string `json:"personFirstName"`
	LastName                 string `json:"personLastName"`
	OrganizationName         string `json:"organizationName"`
	OrganizationWorkFromYear int    `json:"organizationWorkFromYear"`
}

// JobReferral lists persons within two hops who started working before
// WorkFromYear at a company located in the named country.
func JobReferral(r graph.Reader, p JobReferralParams) ([]JobReferralResult, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	start, ok := personKey(r, p.PersonID)
	if !ok {
		return []JobReferralResult{}, nil
	}

	var rr rowReader
	var out []JobReferralResult
	for _, f := range friendsWithin(r, start, 2) {
		person, ok := graph.Lookup(r, f.key)
		if !ok {
			continue
		}
		for e := range r.Edges(f.key, schema.WorkAt, graph.Out) {
			from := rr.integer(e.Props, schema.WorkFrom)
			if from >= p.WorkFromYear {
				continue
			}
			if placeName(r, &rr, e.To) != p.CountryName {
				continue
			}
			org, ok := graph.Lookup(r, e.To)
			if !ok {
				continue
			}
			n := rr.name(person)
			out = append(out, JobReferralResult{
				PersonID:                 person.ID,
				FirstName:                n.first,
				LastName:                 n.last,
				OrganizationName:         rr.str(org.Props, schema.Name),
				OrganizationWorkFromYear: from,
			})
		}
	}
	if rr.err != nil {
		return nil, rr.err
	}
	return sortLimit(out, p.Limit,
		Asc(func(x JobReferralResult) int { return x.OrganizationWorkFromYear }),
		Asc(func(x JobReferralResult) int64 { return x.PersonID }),
		Desc(func(x JobReferralResult) string { return x.OrganizationName }),
	), nil
}
