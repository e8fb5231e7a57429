package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

func NewMCPServer(exec Executor) *mcp.Server {
	service := NewService(exec)

	s := mcp.NewServer(&mcp.Implementation{
		Name:    "KektorSNB",
		Version: Version,
	}, nil)

	// AddTool infers the input and output schemas from the argument structs.

	mcp.AddTool(s, &mcp.Tool{
		Name:        "person_profile",
		Description: "Get the profile of a person of the social network: name, birthday, gender, browser, IP and city id.",
	}, service.PersonProfile)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "friends_by_name",
		Description: "Find people with a given first name among the friends of a person, up to three hops away, closest first.",
	}, service.FriendsByName)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "shortest_path",
		Description: "Length of the shortest friendship (KNOWS) path between two persons.",
	}, service.ShortestPath)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "weighted_paths",
		Description: "All shortest friendship paths between two persons, weighted by how much the people along each path reply to each other.",
	}, service.WeightedPaths)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_operations",
		Description: "List every benchmark operation that run_operation accepts.",
	}, service.ListOperations)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "run_operation",
		Description: "Run any benchmark operation (short reads IS1-IS7, complex reads IC1-IC14, inserts INS1-INS8) with JSON parameters.",
	}, service.RunOperation)

	return s
}
