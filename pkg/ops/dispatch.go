package ops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/sanonone/kektorsnb/pkg/graph"
	"github.com/sanonone/kektorsnb/pkg/metrics"
	"github.com/sanonone/kektorsnb/pkg/queries"
)

// ErrCollaboratorFailure wraps failures of the graph store that are not part
// of the query error taxonomy (duplicate ids, dangling edges, I/O, closed
// store, cancellation).
var ErrCollaboratorFailure = errors.New("graph store failure")

// Tuning keys.
const (
	TuningShortestPathMaxHops = "ic13.maxHops"
	TuningTrustedPathsMaxHops = "ic14.maxHops"
)

// Tuning holds free-form engine tuning values.
type Tuning map[string]string

// Int returns the integer value of key, or def when it is unset or invalid.
func (t Tuning) Int(key string, def int) int {
	v, ok := t[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Ignoring invalid tuning value", "key", key, "value", v)
		return def
	}
	return n
}

// OpError reports a failed operation together with its parameters.
type OpError struct {
	Op     Kind
	Params any
	Err    error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %+v: %v", e.Op, e.Params, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Result is the outcome of one operation. Count is the number of rows of a
// list result and zero otherwise.
type Result struct {
	Kind    Kind `json:"kind"`
	Count   int  `json:"count"`
	Payload any  `json:"payload,omitempty"`
}

// Dispatcher runs operations against a graph store, one scope per operation.
type Dispatcher struct {
	Store  graph.Store
	Tuning Tuning
	Logger *slog.Logger
}

// NewDispatcher returns a dispatcher using the default logger.
func NewDispatcher(store graph.Store, tuning Tuning) *Dispatcher {
	return &Dispatcher{Store: store, Tuning: tuning, Logger: slog.Default()}
}

// Execute validates op, runs it in a read scope (queries) or a write scope
// (mutations) and records its latency and outcome. Every error is an
// *OpError.
func (d *Dispatcher) Execute(ctx context.Context, op Operation) (Result, error) {
	kind := op.Kind()
	params := op.params()
	start := time.Now()

	res, err := d.execute(ctx, kind, op, params)

	metrics.OperationDuration.WithLabelValues(kind.String()).Observe(time.Since(start).Seconds())
	metrics.OperationsTotal.WithLabelValues(kind.String(), outcome(err)).Inc()
	if err != nil {
		d.logger().Debug("Operation failed", "op", kind.String(), "error", err)
		return Result{Kind: kind}, &OpError{Op: kind, Params: params, Err: err}
	}
	return res, nil
}

func (d *Dispatcher) execute(ctx context.Context, kind Kind, op Operation, params any) (Result, error) {
	if err := queries.Validate(params); err != nil {
		return Result{}, err
	}

	res := Result{Kind: kind}
	var err error
	if kind.IsUpdate() {
		err = d.Store.Update(ctx, func(w graph.Writer) error {
			return d.mutate(w, op)
		})
	} else {
		err = d.Store.View(ctx, func(r graph.Reader) error {
			var qerr error
			res.Payload, res.Count, qerr = d.query(r, op)
			return qerr
		})
	}
	if err != nil {
		return Result{}, classify(err)
	}
	return res, nil
}

func (d *Dispatcher) query(r graph.Reader, op Operation) (any, int, error) {
	switch o := op.(type) {
	case IS1:
		return single(queries.PersonProfile(r, queries.PersonProfileParams(o)))
	case IS2:
		return list(queries.PersonPosts(r, queries.PersonPostsParams(o)))
	case IS3:
		return list(queries.PersonFriends(r, queries.PersonFriendsParams(o)))
	case IS4:
		return single(queries.MessageContent(r, queries.MessageParams(o)))
	case IS5:
		return single(queries.MessageCreator(r, queries.MessageParams(o)))
	case IS6:
		return single(queries.MessageForum(r, queries.MessageParams(o)))
	case IS7:
		return list(queries.MessageReplies(r, queries.MessageParams(o)))
	case IC1:
		return list(queries.FriendsByName(r, queries.FriendsByNameParams(o)))
	case IC2:
		return list(queries.RecentMessages(r, queries.MessagesBeforeParams(o)))
	case IC3:
		return list(queries.FriendsInCountries(r, queries.FriendsInCountriesParams(o)))
	case IC4:
		return list(queries.NewTopics(r, queries.NewTopicsParams(o)))
	case IC5:
		return list(queries.NewGroups(r, queries.NewGroupsParams(o)))
	case IC6:
		return list(queries.TagCooccurrence(r, queries.TagCooccurrenceParams(o)))
	case IC7:
		return list(queries.RecentLikers(r, queries.PersonLimitParams(o)))
	case IC8:
		return list(queries.RecentReplies(r, queries.PersonLimitParams(o)))
	case IC9:
		return list(queries.RecentCircleMessages(r, queries.MessagesBeforeParams(o)))
	case IC10:
		return list(queries.FriendRecommendation(r, queries.FriendRecommendationParams(o)))
	case IC11:
		return list(queries.JobReferral(r, queries.JobReferralParams(o)))
	case IC12:
		return list(queries.ExpertSearch(r, queries.ExpertSearchParams(o)))
	case IC13:
		p := queries.PairParams(o)
		if p.MaxHops == 0 {
			p.MaxHops = d.Tuning.Int(TuningShortestPathMaxHops, queries.DefaultMaxHops)
		}
		return single(queries.ShortestPath(r, p))
	case IC14:
		p := queries.PairParams(o)
		if p.MaxHops == 0 {
			p.MaxHops = d.Tuning.Int(TuningTrustedPathsMaxHops, queries.DefaultMaxHops)
		}
		return list(queries.TrustedPaths(r, p))
	default:
		return nil, 0, fmt.Errorf("%w: %s is not a query", queries.ErrInvalidParameter, op.Kind())
	}
}

func (d *Dispatcher) mutate(w graph.Writer, op Operation) error {
	switch o := op.(type) {
	case INS1:
		return queries.AddPerson(w, queries.AddPersonParams(o))
	case INS2:
		return queries.AddPostLike(w, queries.AddLikeParams(o))
	case INS3:
		return queries.AddCommentLike(w, queries.AddLikeParams(o))
	case INS4:
		return queries.AddForum(w, queries.AddForumParams(o))
	case INS5:
		return queries.AddForumMembership(w, queries.AddForumMembershipParams(o))
	case INS6:
		return queries.AddPost(w, queries.AddPostParams(o))
	case INS7:
		return queries.AddComment(w, queries.AddCommentParams(o))
	case INS8:
		return queries.AddFriendship(w, queries.AddFriendshipParams(o))
	default:
		return fmt.Errorf("%w: %s is not a mutation", queries.ErrInvalidParameter, op.Kind())
	}
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func single[T any](res T, err error) (any, int, error) {
	if err != nil {
		return nil, 0, err
	}
	return res, 0, nil
}

func list[T any](rows []T, err error) (any, int, error) {
	if err != nil {
		return nil, 0, err
	}
	return rows, len(rows), nil
}

// classify keeps errors of the query taxonomy as they are and marks every
// other store failure as ErrCollaboratorFailure.
func classify(err error) error {
	if errors.Is(err, queries.ErrNotFound) ||
		errors.Is(err, queries.ErrInvalidParameter) ||
		errors.Is(err, queries.ErrCoercion) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCollaboratorFailure, err)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, queries.ErrNotFound):
		return "not_found"
	case errors.Is(err, queries.ErrInvalidParameter):
		return "invalid"
	case errors.Is(err, queries.ErrCoercion):
		return "coercion"
	default:
		return "error"
	}
}
