package memory

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	errx "github.com/nakari-agent/server/internal/core/error"
	logx "github.com/nakari-agent/server/pkg/logger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ReadResult holds the normalized records of a read statement.
type ReadResult struct {
	Records []map[string]any `json:"records"`
}

// Counters summarizes the mutations of a write statement.
type Counters struct {
	NodesCreated         int `json:"nodesCreated"`
	NodesDeleted         int `json:"nodesDeleted"`
	RelationshipsCreated int `json:"relationshipsCreated"`
	RelationshipsDeleted int `json:"relationshipsDeleted"`
	PropertiesSet        int `json:"propertiesSet"`
	LabelsAdded          int `json:"labelsAdded"`
}

// WriteResult holds the mutation counters of a write statement.
type WriteResult struct {
	Stats Counters `json:"stats"`
}

// SchemaSnapshot is the emergent shape of the stored graph. Each list is sorted.
type SchemaSnapshot struct {
	Labels            []string `json:"labels"`
	RelationshipTypes []string `json:"relationshipTypes"`
	PropertyKeys      []string `json:"propertyKeys"`
}

var (
	labelsStatement       = MustStatement("CALL db.labels() YIELD label RETURN label", nil)
	relTypesStatement     = MustStatement("CALL db.relationshipTypes() YIELD relationshipType RETURN relationshipType", nil)
	propertyKeysStatement = MustStatement("CALL db.propertyKeys() YIELD propertyKey RETURN propertyKey", nil)
)

// Gateway executes agent-authored statements against the graph store. It is
// safe for concurrent use; each call runs in its own session from the
// driver's pool.
type Gateway struct {
	driver   neo4j.DriverWithContext
	database string
	closed   atomic.Bool
}

func NewGateway(driver neo4j.DriverWithContext, database string) *Gateway {
	return &Gateway{driver: driver, database: database}
}

func (g *Gateway) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: g.database})
}

func (g *Gateway) checkOpen() error {
	if g.closed.Load() {
		return errx.New(errx.KindClosed, nil, "memory gateway is closed")
	}
	return nil
}

// RunRead executes st in a read session and normalizes every record.
func (g *Gateway) RunRead(ctx context.Context, st Statement) (*ReadResult, error) {
	if err := g.checkOpen(); err != nil {
		return nil, err
	}
	session := g.session(ctx, neo4j.AccessModeRead)
	defer closeSession(ctx, session)

	result, err := session.Run(ctx, st.Query(), st.Params())
	if err != nil {
		logx.Debug().Err(err).Str("query", st.Query()).Msg("read statement failed")
		return nil, errx.WrapNeo4j(err)
	}
	records, err := result.Collect(ctx)
	if err != nil {
		logx.Debug().Err(err).Str("query", st.Query()).Msg("read statement failed")
		return nil, errx.WrapNeo4j(err)
	}

	out := &ReadResult{Records: make([]map[string]any, 0, len(records))}
	for _, rec := range records {
		out.Records = append(out.Records, NormalizeRecord(rec.Keys, rec.Values))
	}
	return out, nil
}

// RunWrite executes st in a write session and returns its mutation counters.
func (g *Gateway) RunWrite(ctx context.Context, st Statement) (*WriteResult, error) {
	if err := g.checkOpen(); err != nil {
		return nil, err
	}
	session := g.session(ctx, neo4j.AccessModeWrite)
	defer closeSession(ctx, session)

	result, err := session.Run(ctx, st.Query(), st.Params())
	if err != nil {
		logx.Debug().Err(err).Str("query", st.Query()).Msg("write statement failed")
		return nil, errx.WrapNeo4j(err)
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		logx.Debug().Err(err).Str("query", st.Query()).Msg("write statement failed")
		return nil, errx.WrapNeo4j(err)
	}

	c := summary.Counters()
	return &WriteResult{Stats: Counters{
		NodesCreated:         c.NodesCreated(),
		NodesDeleted:         c.NodesDeleted(),
		RelationshipsCreated: c.RelationshipsCreated(),
		RelationshipsDeleted: c.RelationshipsDeleted(),
		PropertiesSet:        c.PropertiesSet(),
		LabelsAdded:          c.LabelsAdded(),
	}}, nil
}

// InspectSchema lists existing labels, relationship types and property keys.
// The three procedures run one after another in a single session.
func (g *Gateway) InspectSchema(ctx context.Context) (*SchemaSnapshot, error) {
	if err := g.checkOpen(); err != nil {
		return nil, err
	}
	session := g.session(ctx, neo4j.AccessModeRead)
	defer closeSession(ctx, session)

	labels, err := collectStrings(ctx, session, labelsStatement)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	relTypes, err := collectStrings(ctx, session, relTypesStatement)
	if err != nil {
		return nil, fmt.Errorf("list relationship types: %w", err)
	}
	keys, err := collectStrings(ctx, session, propertyKeysStatement)
	if err != nil {
		return nil, fmt.Errorf("list property keys: %w", err)
	}
	return &SchemaSnapshot{Labels: labels, RelationshipTypes: relTypes, PropertyKeys: keys}, nil
}

// VerifyConnectivity opens and validates a connection to the store.
func (g *Gateway) VerifyConnectivity(ctx context.Context) error {
	if err := g.checkOpen(); err != nil {
		return err
	}
	if err := g.driver.VerifyConnectivity(ctx); err != nil {
		return errx.New(errx.KindConnectivity, err, "graph store unreachable")
	}
	return nil
}

// Close releases pooled connections. Any later call, Close included, fails
// with a closed error.
func (g *Gateway) Close(ctx context.Context) error {
	if !g.closed.CompareAndSwap(false, true) {
		return errx.New(errx.KindClosed, nil, "memory gateway is closed")
	}
	if err := g.driver.Close(ctx); err != nil {
		return errx.WrapNeo4j(err)
	}
	return nil
}

func collectStrings(ctx context.Context, session neo4j.SessionWithContext, st Statement) ([]string, error) {
	result, err := session.Run(ctx, st.Query(), st.Params())
	if err != nil {
		return nil, errx.WrapNeo4j(err)
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, errx.WrapNeo4j(err)
	}
	out := make([]string, 0, len(records))
	for _, rec := range records {
		if len(rec.Values) == 0 {
			continue
		}
		if s, ok := rec.Values[0].(string); ok {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out, nil
}

func closeSession(ctx context.Context, session neo4j.SessionWithContext) {
	if err := session.Close(ctx); err != nil {
		logx.Warn().Err(err).Msg("failed to close graph session")
	}
}
