package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sanonone/kektorsnb/pkg/ops"
	"github.com/sanonone/kektorsnb/pkg/queries"
)

const defaultLimit = 20

// Executor runs one operation. *ops.Dispatcher implements it.
type Executor interface {
	Execute(ctx context.Context, op ops.Operation) (ops.Result, error)
}

type Service struct {
	exec Executor
}

func NewService(exec Executor) *Service {
	return &Service{exec: exec}
}

// --- Tool Handlers ---

func (s *Service) PersonProfile(ctx context.Context, req *mcp.CallToolRequest, args PersonArgs) (*mcp.CallToolResult, queries.PersonProfileResult, error) {
	res, err := s.exec.Execute(ctx, ops.IS1{PersonID: args.PersonID})
	if err != nil {
		return nil, queries.PersonProfileResult{}, err
	}
	return nil, res.Payload.(queries.PersonProfileResult), nil
}

func (s *Service) FriendsByName(ctx context.Context, req *mcp.CallToolRequest, args FriendsByNameArgs) (*mcp.CallToolResult, FriendsByNameResult, error) {
	limit := args.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	res, err := s.exec.Execute(ctx, ops.IC1{PersonID: args.PersonID, FirstName: args.FirstName, Limit: limit})
	if err != nil {
		return nil, FriendsByNameResult{}, err
	}
	return nil, FriendsByNameResult{Friends: res.Payload.([]queries.FriendsByNameResult)}, nil
}

func (s *Service) ShortestPath(ctx context.Context, req *mcp.CallToolRequest, args PathArgs) (*mcp.CallToolResult, ShortestPathResult, error) {
	res, err := s.exec.Execute(ctx, ops.IC13{Person1ID: args.Person1ID, Person2ID: args.Person2ID, MaxHops: args.MaxHops})
	if err != nil {
		return nil, ShortestPathResult{}, err
	}
	n := res.Payload.(queries.ShortestPathResult).ShortestPathLength
	out := ShortestPathResult{Length: n, Reachable: n >= 0}
	if out.Reachable {
		out.Description = fmt.Sprintf("Person %d and person %d are %d KNOWS hops apart.", args.Person1ID, args.Person2ID, n)
	} else {
		out.Description = fmt.Sprintf("No KNOWS path connects person %d and person %d.", args.Person1ID, args.Person2ID)
	}
	return nil, out, nil
}

func (s *Service) WeightedPaths(ctx context.Context, req *mcp.CallToolRequest, args PathArgs) (*mcp.CallToolResult, WeightedPathsResult, error) {
	res, err := s.exec.Execute(ctx, ops.IC14{Person1ID: args.Person1ID, Person2ID: args.Person2ID, MaxHops: args.MaxHops})
	if err != nil {
		return nil, WeightedPathsResult{}, err
	}
	paths := res.Payload.([]queries.TrustedPathsResult)

	var sb strings.Builder
	if len(paths) == 0 {
		fmt.Fprintf(&sb, "No KNOWS path connects person %d and person %d.\n", args.Person1ID, args.Person2ID)
	}
	for _, p := range paths {
		ids := make([]string, len(p.PersonIDsInPath))
		for i, id := range p.PersonIDsInPath {
			ids[i] = fmt.Sprint(id)
		}
		fmt.Fprintf(&sb, "%s (weight %.1f)\n", strings.Join(ids, " -> "), p.PathWeight)
	}
	return nil, WeightedPathsResult{Paths: paths, Description: sb.String()}, nil
}

func (s *Service) RunOperation(ctx context.Context, req *mcp.CallToolRequest, args RunOperationArgs) (*mcp.CallToolResult, RunOperationResult, error) {
	kind, err := ops.ParseKind(args.Operation)
	if err != nil {
		return nil, RunOperationResult{}, err
	}
	var params []byte
	if len(args.Params) > 0 {
		if params, err = json.Marshal(args.Params); err != nil {
			return nil, RunOperationResult{}, err
		}
	}
	op, err := ops.Decode(kind, params)
	if err != nil {
		return nil, RunOperationResult{}, err
	}
	res, err := s.exec.Execute(ctx, op)
	if err != nil {
		return nil, RunOperationResult{}, err
	}
	return nil, RunOperationResult{Kind: res.Kind.String(), Count: res.Count, Payload: res.Payload}, nil
}

func (s *Service) ListOperations(ctx context.Context, req *mcp.CallToolRequest, args ListOperationsArgs) (*mcp.CallToolResult, ListOperationsResult, error) {
	var out ListOperationsResult
	for _, k := range ops.Kinds() {
		out.Operations = append(out.Operations, OperationInfo{Code: k.String(), Name: k.Name(), Update: k.IsUpdate()})
	}
	return nil, out, nil
}
