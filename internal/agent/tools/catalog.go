package tools

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/nakari-agent/server/internal/search"
)

const (
	ToolMemoryQuery  = "memory_query"
	ToolMemoryWrite  = "memory_write"
	ToolMemorySchema = "memory_schema"
	ToolEmbedding    = "embedding"
	ToolWebSearch    = "web_search"
)

// Names lists every action the dispatcher knows, in catalog order.
var Names = []string{ToolMemoryQuery, ToolMemoryWrite, ToolMemorySchema, ToolEmbedding, ToolWebSearch}

func cypherParams() map[string]*schema.ParameterInfo {
	return map[string]*schema.ParameterInfo{
		"cypher": {
			Type:     schema.String,
			Desc:     "Parameterized Cypher query. Reference every value as $paramName; never write values into the query text.",
			Required: true,
		},
		"params": {
			Type:     schema.Object,
			Desc:     "Values for the $paramName placeholders, keyed by parameter name. Use {} when the query has none.",
			Required: true,
		},
	}
}

func searchTypes() []string {
	out := make([]string, len(search.Types))
	for i, t := range search.Types {
		out[i] = string(t)
	}
	return out
}

// Catalog returns the descriptors handed to the model on every turn. Each call
// builds a fresh list.
func Catalog() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: ToolMemoryQuery,
			Desc: "Execute a read-only Cypher query on your memory graph. Use it to recall memories, experiences and knowledge. " +
				"Always use parameterized queries with $paramName placeholders.",
			ParamsOneOf: schema.NewParamsOneOfByParams(cypherParams()),
		},
		{
			Name: ToolMemoryWrite,
			Desc: "Execute a write Cypher query on your memory graph to create, update or delete nodes, relationships and properties. " +
				"Always use parameterized queries with $paramName placeholders. Returns mutation counters.",
			ParamsOneOf: schema.NewParamsOneOfByParams(cypherParams()),
		},
		{
			Name: ToolMemorySchema,
			Desc: "Inspect the current shape of your memory graph: every node label, relationship type and property key in use. " +
				"Call it before writing to reuse the names you already chose.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		{
			Name:        ToolEmbedding,
			Desc:        "Generate a vector embedding for a text, for semantic search and similarity comparisons.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{"text": {Type: schema.String, Desc: "Text to embed", Required: true}}),
		},
		{
			Name: ToolWebSearch,
			Desc: "Search the internet for current information. Use it for up-to-date facts, news or knowledge you do not hold.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {Type: schema.String, Desc: "Search query", Required: true},
				"num_results": {
					Type: schema.Integer,
					Desc: fmt.Sprintf("Number of results, between 1 and %d (default %d)", search.MaxNumResults, search.DefaultNumResults),
				},
				"type": {
					Type: schema.String,
					Desc: "Kind of search: " + strings.Join(searchTypes(), ", ") + " (default search)",
					Enum: searchTypes(),
				},
			}),
		},
	}
}
