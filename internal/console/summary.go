package console

import (
	"fmt"
	"strings"

	"github.com/nakari-agent/server/internal/agent/tools"
	"github.com/nakari-agent/server/internal/memory"
	"github.com/nakari-agent/server/internal/search"
)

var toolIcons = map[string]string{
	tools.ToolMemoryQuery:  "🔍",
	tools.ToolMemoryWrite:  "✏️",
	tools.ToolMemorySchema: "📋",
	tools.ToolEmbedding:    "🧮",
	tools.ToolWebSearch:    "🌐",
}

func toolIcon(name string) string {
	if icon, ok := toolIcons[name]; ok {
		return icon
	}
	return "🔧"
}

// Summarize renders a one-line digest of an action result.
func Summarize(result any) string {
	if msg, ok := tools.ErrorMessage(result); ok {
		return "Error: " + msg
	}
	switch r := result.(type) {
	case *memory.WriteResult:
		return summarizeCounters(r.Stats)
	case *memory.ReadResult:
		if len(r.Records) == 0 {
			return "(no records)"
		}
		return fmt.Sprintf("%d records", len(r.Records))
	case *memory.SchemaSnapshot:
		return summarizeSchema(r)
	case *search.Response:
		return fmt.Sprintf("%d results", r.TotalResults)
	case *tools.EmbeddingResult:
		return fmt.Sprintf("%d dimensions", r.Dimensions)
	case nil:
		return "(nothing)"
	}
	return fmt.Sprintf("%v", result)
}

func summarizeCounters(c memory.Counters) string {
	var parts []string
	if c.NodesCreated > 0 {
		parts = append(parts, fmt.Sprintf("%d nodes", c.NodesCreated))
	}
	if c.RelationshipsCreated > 0 {
		parts = append(parts, fmt.Sprintf("%d rels", c.RelationshipsCreated))
	}
	if c.PropertiesSet > 0 {
		parts = append(parts, fmt.Sprintf("%d props", c.PropertiesSet))
	}
	if c.LabelsAdded > 0 {
		parts = append(parts, fmt.Sprintf("%d labels", c.LabelsAdded))
	}
	if c.NodesDeleted > 0 {
		parts = append(parts, fmt.Sprintf("%d nodes deleted", c.NodesDeleted))
	}
	if c.RelationshipsDeleted > 0 {
		parts = append(parts, fmt.Sprintf("%d rels deleted", c.RelationshipsDeleted))
	}
	if len(parts) == 0 {
		return "no changes"
	}
	return strings.Join(parts, ", ")
}

func summarizeSchema(s *memory.SchemaSnapshot) string {
	var parts []string
	if n := len(s.Labels); n > 0 {
		parts = append(parts, fmt.Sprintf("%d labels", n))
	}
	if n := len(s.RelationshipTypes); n > 0 {
		parts = append(parts, fmt.Sprintf("%d rel types", n))
	}
	if n := len(s.PropertyKeys); n > 0 {
		parts = append(parts, fmt.Sprintf("%d props", n))
	}
	if len(parts) == 0 {
		return "empty graph"
	}
	return strings.Join(parts, ", ")
}
