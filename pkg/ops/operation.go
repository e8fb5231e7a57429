package ops

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/sanonone/kektorsnb/pkg/queries"
)

// Operation is one parameterised workload operation. The set of
// implementations is closed: one type per Kind.
type Operation interface {
	Kind() Kind
	// params returns the parameters as the queries package type.
	params() any
}

// Short reads.
type (
	IS1 queries.PersonProfileParams
	IS2 queries.PersonPostsParams
	IS3 queries.PersonFriendsParams
	IS4 queries.MessageParams
	IS5 queries.MessageParams
	IS6 queries.MessageParams
	IS7 queries.MessageParams
)

// Complex reads.
type (
	IC1  queries.FriendsByNameParams
	IC2  queries.MessagesBeforeParams
	IC3  queries.FriendsInCountriesParams
	IC4  queries.NewTopicsParams
	IC5  queries.NewGroupsParams
	IC6  queries.TagCooccurrenceParams
	IC7  queries.PersonLimitParams
	IC8  queries.PersonLimitParams
	IC9  queries.MessagesBeforeParams
	IC10 queries.FriendRecommendationParams
	IC11 queries.JobReferralParams
	IC12 queries.ExpertSearchParams
	IC13 queries.PairParams
	IC14 queries.PairParams
)

// Mutations.
type (
	INS1 queries.AddPersonParams
	INS2 queries.AddLikeParams
	INS3 queries.AddLikeParams
	INS4 queries.AddForumParams
	INS5 queries.AddForumMembershipParams
	INS6 queries.AddPostParams
	INS7 queries.AddCommentParams
	INS8 queries.AddFriendshipParams
)

func (IS1) Kind() Kind  { return KindIS1 }
func (IS2) Kind() Kind  { return KindIS2 }
func (IS3) Kind() Kind  { return KindIS3 }
func (IS4) Kind() Kind  { return KindIS4 }
func (IS5) Kind() Kind  { return KindIS5 }
func (IS6) Kind() Kind  { return KindIS6 }
func (IS7) Kind() Kind  { return KindIS7 }
func (IC1) Kind() Kind  { return KindIC1 }
func (IC2) Kind() Kind  { return KindIC2 }
func (IC3) Kind() Kind  { return KindIC3 }
func (IC4) Kind() Kind  { return KindIC4 }
func (IC5) Kind() Kind  { return KindIC5 }
func (IC6) Kind() Kind  { return KindIC6 }
func (IC7) Kind() Kind  { return KindIC7 }
func (IC8) Kind() Kind  { return KindIC8 }
func (IC9) Kind() Kind  { return KindIC9 }
func (IC10) Kind() Kind { return KindIC10 }
func (IC11) Kind() Kind { return KindIC11 }
func (IC12) Kind() Kind { return KindIC12 }
func (IC13) Kind() Kind { return KindIC13 }
func (IC14) Kind() Kind { return KindIC14 }
func (INS1) Kind() Kind { return KindINS1 }
func (INS2) Kind() Kind { return KindINS2 }
func (INS3) Kind() Kind { return KindINS3 }
func (INS4) Kind() Kind { return KindINS4 }
func (INS5) Kind() Kind { return KindINS5 }
func (INS6) Kind() Kind { return KindINS6 }
func (INS7) Kind() Kind { return KindINS7 }
func (INS8) Kind() Kind { return KindINS8 }

func (o IS1) params() any  { return queries.PersonProfileParams(o) }
func (o IS2) params() any  { return queries.PersonPostsParams(o) }
func (o IS3) params() any  { return queries.PersonFriendsParams(o) }
func (o IS4) params() any  { return queries.MessageParams(o) }
func (o IS5) params() any  { return queries.MessageParams(o) }
func (o IS6) params() any  { return queries.MessageParams(o) }
func (o IS7) params() any  { return queries.MessageParams(o) }
func (o IC1) params() any  { return queries.FriendsByNameParams(o) }
func (o IC2) params() any  { return queries.MessagesBeforeParams(o) }
func (o IC3) params() any  { return queries.FriendsInCountriesParams(o) }
func (o IC4) params() any  { return queries.NewTopicsParams(o) }
func (o IC5) params() any  { return queries.NewGroupsParams(o) }
func (o IC6) params() any  { return queries.TagCooccurrenceParams(o) }
func (o IC7) params() any  { return queries.PersonLimitParams(o) }
func (o IC8) params() any  { return queries.PersonLimitParams(o) }
func (o IC9) params() any  { return queries.MessagesBeforeParams(o) }
func (o IC10) params() any { return queries.FriendRecommendationParams(o) }
func (o IC11) params() any { return queries.JobReferralParams(o) }
func (o IC12) params() any { return queries.ExpertSearchParams(o) }
func (o IC13) params() any { return queries.PairParams(o) }
func (o IC14) params() any { return queries.PairParams(o) }
func (o INS1) params() any { return queries.AddPersonParams(o) }
func (o INS2) params() any { return queries.AddLikeParams(o) }
func (o INS3) params() any { return queries.AddLikeParams(o) }
func (o INS4) params() any { return queries.AddForumParams(o) }
func (o INS5) params() any { return queries.AddForumMembershipParams(o) }
func (o INS6) params() any { return queries.AddPostParams(o) }
func (o INS7) params() any { return queries.AddCommentParams(o) }
func (o INS8) params() any { return queries.AddFriendshipParams(o) }

// Params returns the parameters of op, for logging and error reports.
func Params(op Operation) any {
	return op.params()
}

// Decode builds the operation of the given kind from its JSON parameters.
// Unknown fields are rejected. Reply targets of INS7 default to
// queries.NoReply.
func Decode(kind Kind, data []byte) (Operation, error) {
	switch kind {
	case KindIS1:
		return decodeAs[IS1](data)
	case KindIS2:
		return decodeAs[IS2](data)
	case KindIS3:
		return decodeAs[IS3](data)
	case KindIS4:
		return decodeAs[IS4](data)
	case KindIS5:
		return decodeAs[IS5](data)
	case KindIS6:
		return decodeAs[IS6](data)
	case KindIS7:
		return decodeAs[IS7](data)
	case KindIC1:
		return decodeAs[IC1](data)
	case KindIC2:
		return decodeAs[IC2](data)
	case KindIC3:
		return decodeAs[IC3](data)
	case KindIC4:
		return decodeAs[IC4](data)
	case KindIC5:
		return decodeAs[IC5](data)
	case KindIC6:
		return decodeAs[IC6](data)
	case KindIC7:
		return decodeAs[IC7](data)
	case KindIC8:
		return decodeAs[IC8](data)
	case KindIC9:
		return decodeAs[IC9](data)
	case KindIC10:
		return decodeAs[IC10](data)
	case KindIC11:
		return decodeAs[IC11](data)
	case KindIC12:
		return decodeAs[IC12](data)
	case KindIC13:
		return decodeAs[IC13](data)
	case KindIC14:
		return decodeAs[IC14](data)
	case KindINS1:
		return decodeAs[INS1](data)
	case KindINS2:
		return decodeAs[INS2](data)
	case KindINS3:
		return decodeAs[INS3](data)
	case KindINS4:
		return decodeAs[INS4](data)
	case KindINS5:
		return decodeAs[INS5](data)
	case KindINS6:
		return decodeAs[INS6](data)
	case KindINS7:
		op := INS7{ReplyToPostID: queries.NoReply, ReplyToCommentID: queries.NoReply}
		return decodeInto(op, data)
	case KindINS8:
		return decodeAs[INS8](data)
	default:
		return nil, fmt.Errorf("%w: unknown operation kind %d", queries.ErrInvalidParameter, int(kind))
	}
}

func decodeAs[T Operation](data []byte) (Operation, error) {
	var zero T
	return decodeInto(zero, data)
}

func decodeInto[T Operation](op T, data []byte) (Operation, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return op, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&op); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", queries.ErrInvalidParameter, op.Kind(), err)
	}
	return op, nil
}

// Encode returns the JSON parameters of op, the inverse of Decode.
func Encode(op Operation) ([]byte, error) {
	return json.Marshal(op.params())
}
