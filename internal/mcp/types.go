package mcp

import "github.com/sanonone/kektorsnb/pkg/queries"

// --- Tool Arguments ---

type PersonArgs struct {
	PersonID int64 `json:"person_id" jsonschema:"Id of the person"`
}

type FriendsByNameArgs struct {
	PersonID  int64  `json:"person_id" jsonschema:"Id of the start person"`
	FirstName string `json:"first_name" jsonschema:"First name to look for among friends up to three hops away"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Max number of results (default 20)"`
}

type FriendsByNameResult struct {
	Friends []queries.FriendsByNameResult `json:"friends"`
}

type PathArgs struct {
	Person1ID int64 `json:"person1_id" jsonschema:"Id of the first person"`
	Person2ID int64 `json:"person2_id" jsonschema:"Id of the second person"`
	MaxHops   int   `json:"max_hops,omitempty" jsonschema:"Give up beyond this many KNOWS hops (server default when omitted)"`
}

type ShortestPathResult struct {
	Length      int    `json:"length"`
	Reachable   bool   `json:"reachable"`
	Description string `json:"description"`
}

type WeightedPathsResult struct {
	Paths       []queries.TrustedPathsResult `json:"paths"`
	Description string                       `json:"description"`
}

type RunOperationArgs struct {
	Operation string         `json:"operation" jsonschema:"Operation code (e.g. IC13) or name (e.g. shortest_path); see list_operations"`
	Params    map[string]any `json:"params,omitempty" jsonschema:"Operation parameters as a JSON object"`
}

type RunOperationResult struct {
	Kind    string `json:"kind"`
	Count   int    `json:"count"`
	Payload any    `json:"payload,omitempty"`
}

type ListOperationsArgs struct{}

type OperationInfo struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Update bool   `json:"update"`
}

type ListOperationsResult struct {
	Operations []OperationInfo `json:"operations"`
}
