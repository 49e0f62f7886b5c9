package memory

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// Reserved keys of tagged graph values. Tags are written after properties, so a
// stored property with one of these names never shadows the tag.
const (
	KeyType             = "_type"
	KeyLabels           = "_labels"
	KeyRelationshipType = "_relationshipType"
)

// Normalize converts a value returned by the driver into a portable value built
// from nil, bool, int64, float64, string, []byte, []any and map[string]any.
//
// Nodes take precedence over relationships: a value is inspected for node shape
// first. The driver's Node and Relationship types are disjoint, so the rule only
// fixes the order of inspection.
//
// Integers are int64, which represents every value the store can hold. Readers
// that decode the JSON form into float64 lose precision beyond 2^53.
func Normalize(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case dbtype.Node:
		return normalizeNode(val)
	case *dbtype.Node:
		if val == nil {
			return nil
		}
		return normalizeNode(*val)
	case dbtype.Relationship:
		return normalizeRelationship(val)
	case *dbtype.Relationship:
		if val == nil {
			return nil
		}
		return normalizeRelationship(*val)
	case dbtype.Path:
		return normalizePath(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Normalize(item)
		}
		return out
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case float32:
		return float64(val)
	case dbtype.Date:
		return time.Time(val).Format("2006-01-02")
	case dbtype.LocalTime:
		return time.Time(val).Format("15:04:05.999999999")
	case dbtype.Time:
		return time.Time(val).Format("15:04:05.999999999Z07:00")
	case dbtype.LocalDateTime:
		return time.Time(val).Format("2006-01-02T15:04:05.999999999")
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case dbtype.Duration:
		return val.String()
	case dbtype.Point2D:
		return map[string]any{KeyType: "point", "srid": int64(val.SpatialRefId), "x": val.X, "y": val.Y}
	case dbtype.Point3D:
		return map[string]any{KeyType: "point", "srid": int64(val.SpatialRefId), "x": val.X, "y": val.Y, "z": val.Z}
	default:
		return v
	}
}

// Properties are applied after the tags, so a stored property named like a
// tag shadows the tag rather than being dropped.
func normalizeNode(n dbtype.Node) map[string]any {
	labels := make([]any, len(n.Labels))
	for i, l := range n.Labels {
		labels[i] = l
	}
	return withProps(map[string]any{KeyType: "node", KeyLabels: labels}, n.Props)
}

func normalizeRelationship(r dbtype.Relationship) map[string]any {
	return withProps(map[string]any{KeyType: "relationship", KeyRelationshipType: r.Type}, r.Props)
}

func normalizePath(p dbtype.Path) map[string]any {
	nodes := make([]any, len(p.Nodes))
	for i, n := range p.Nodes {
		nodes[i] = normalizeNode(n)
	}
	rels := make([]any, len(p.Relationships))
	for i, r := range p.Relationships {
		rels[i] = normalizeRelationship(r)
	}
	return map[string]any{KeyType: "path", "nodes": nodes, "relationships": rels}
}

func withProps(out map[string]any, props map[string]any) map[string]any {
	for k, v := range props {
		out[k] = Normalize(v)
	}
	return out
}

// NormalizeRecord maps result columns to normalized values.
func NormalizeRecord(keys []string, values []any) map[string]any {
	out := make(map[string]any, len(keys))
	for i, k := range keys {
		if i < len(values) {
			out[k] = Normalize(values[i])
		} else {
			out[k] = nil
		}
	}
	return out
}
