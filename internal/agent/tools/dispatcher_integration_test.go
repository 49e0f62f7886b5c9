package tools

import (
	"context"
	"testing"
	"time"

	"github.com/nakari-agent/server/internal/agent/model"
	"github.com/nakari-agent/server/internal/memory"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcneo4j "github.com/testcontainers/testcontainers-go/modules/neo4j"
)

func startGateway(t *testing.T) *memory.Gateway {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping neo4j container test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container, err := tcneo4j.RunContainer(ctx,
		testcontainers.WithImage("neo4j:5"),
		tcneo4j.WithoutAuthentication(),
	)
	if err != nil {
		t.Skipf("neo4j container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	uri, err := container.BoltUrl(ctx)
	require.NoError(t, err)
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.NoAuth())
	require.NoError(t, err)

	g := memory.NewGateway(driver, "")
	require.NoError(t, g.VerifyConnectivity(ctx))
	t.Cleanup(func() { _ = g.Close(context.Background()) })
	return g
}

func TestDispatcherIntegration_IntegerParams(t *testing.T) {
	d := NewDispatcher(startGateway(t))
	ctx := context.Background()

	res := d.Execute(ctx, ToolMemoryWrite, model.DecodeArguments(
		`{"cypher":"UNWIND range(1, $n) AS i CREATE (:Counter {i: i, big: $big})","params":{"n":3,"big":9007199254740993}}`))
	_, failed := ErrorMessage(res)
	require.False(t, failed, "%v", res)
	assert.Equal(t, 3, res.(*memory.WriteResult).Stats.NodesCreated)

	res = d.Execute(ctx, ToolMemoryQuery, model.DecodeArguments(
		`{"cypher":"MATCH (c:Counter) RETURN c.i AS i, c.big AS big ORDER BY i LIMIT $n","params":{"n":2}}`))
	_, failed = ErrorMessage(res)
	require.False(t, failed, "%v", res)

	records := res.(*memory.ReadResult).Records
	require.Len(t, records, 2)
	assert.Equal(t, int64(1), records[0]["i"])
	assert.Equal(t, int64(9007199254740993), records[1]["big"])
}
