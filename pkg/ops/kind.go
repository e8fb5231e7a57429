// Package ops is the closed catalogue of the 29 LDBC SNB Interactive
// operations and the dispatcher that runs each one in its own graph scope.
package ops

import (
	"fmt"
	"strings"
)

// Kind identifies one of the 29 workload operations.
type Kind int

const (
	KindIS1 Kind = iota + 1
	KindIS2
	KindIS3
	KindIS4
	KindIS5
	KindIS6
	KindIS7
	KindIC1
	KindIC2
	KindIC3
	KindIC4
	KindIC5
	KindIC6
	KindIC7
	KindIC8
	KindIC9
	KindIC10
	KindIC11
	KindIC12
	KindIC13
	KindIC14
	KindINS1
	KindINS2
	KindINS3
	KindINS4
	KindINS5
	KindINS6
	KindINS7
	KindINS8
)

type kindInfo struct {
	code string
	name string
}

var kinds = map[Kind]kindInfo{
	KindIS1:  {"IS1", "person_profile"},
	KindIS2:  {"IS2", "person_posts"},
	KindIS3:  {"IS3", "person_friends"},
	KindIS4:  {"IS4", "message_content"},
	KindIS5:  {"IS5", "message_creator"},
	KindIS6:  {"IS6", "message_forum"},
	KindIS7:  {"IS7", "message_replies"},
	KindIC1:  {"IC1", "friends_by_name"},
	KindIC2:  {"IC2", "recent_messages"},
	KindIC3:  {"IC3", "friends_in_countries"},
	KindIC4:  {"IC4", "new_topics"},
	KindIC5:  {"IC5", "new_groups"},
	KindIC6:  {"IC6", "tag_cooccurrence"},
	KindIC7:  {"IC7", "recent_likers"},
	KindIC8:  {"IC8", "recent_replies"},
	KindIC9:  {"IC9", "recent_circle_messages"},
	KindIC10: {"IC10", "friend_recommendation"},
	KindIC11: {"IC11", "job_referral"},
	KindIC12: {"IC12", "expert_search"},
	KindIC13: {"IC13", "shortest_path"},
	KindIC14: {"IC14", "trusted_paths"},
	KindINS1: {"INS1", "add_person"},
	KindINS2: {"INS2", "add_post_like"},
	KindINS3: {"INS3", "add_comment_like"},
	KindINS4: {"INS4", "add_forum"},
	KindINS5: {"INS5", "add_forum_membership"},
	KindINS6: {"INS6", "add_post"},
	KindINS7: {"INS7", "add_comment"},
	KindINS8: {"INS8", "add_friendship"},
}

// Kinds returns every operation kind in catalogue order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for k := KindIS1; k <= KindINS8; k++ {
		out = append(out, k)
	}
	return out
}

// String returns the short code, e.g. "IC13".
func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.code
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Name returns the descriptive name, e.g. "shortest_path".
func (k Kind) Name() string {
	return kinds[k].name
}

// IsUpdate reports whether k mutates the graph.
func (k Kind) IsUpdate() bool {
	return k >= KindINS1 && k <= KindINS8
}

// IsShort reports whether k is a short read.
func (k Kind) IsShort() bool {
	return k >= KindIS1 && k <= KindIS7
}

// ParseKind accepts a short code ("ic13") or a descriptive name
// ("shortest_path"), case-insensitively.
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	for k, info := range kinds {
		if strings.EqualFold(s, info.code) || strings.EqualFold(s, info.name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown operation kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kinds[k]; !ok {
		return nil, fmt.Errorf("invalid operation kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
