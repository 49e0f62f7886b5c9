package errx

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesKind(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("run write: %w", New(KindStatement, cause, "statement failed"))

	assert.ErrorIs(t, err, ErrStatement)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrConnectivity)
	assert.Equal(t, KindStatement, KindOf(err))
	assert.Equal(t, "run write: statement failed: boom", err.Error())
}

func TestErrorAs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(KindClosed, nil, "gateway closed"))

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindClosed, e.Kind)
	assert.Equal(t, "gateway closed", e.Error())
}

func TestErrorMessageVariants(t *testing.T) {
	assert.Equal(t, "closed error", ErrClosed.Error())
	assert.Equal(t, "boom", New(KindStatement, errors.New("boom"), "").Error())
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestWrapProviderKeepsExistingProviderError(t *testing.T) {
	inner := New(KindProvider, errors.New("429"), "rate limited")
	assert.Same(t, inner, WrapProvider(inner, "search"))

	wrapped := WrapProvider(errors.New("timeout"), "embedding")
	assert.ErrorIs(t, wrapped, ErrProvider)
	assert.Contains(t, wrapped.Error(), "embedding failed")

	assert.NoError(t, WrapProvider(nil, "search"))
}

func TestWrapModelCall(t *testing.T) {
	assert.NoError(t, WrapModelCall(nil))
	assert.ErrorIs(t, WrapModelCall(errors.New("503")), ErrModelCall)
}

func TestWrapRedis(t *testing.T) {
	assert.NoError(t, WrapRedis(nil))
	assert.NoError(t, WrapRedis(redis.Nil))
	assert.ErrorIs(t, WrapRedis(errors.New("dial tcp")), ErrConnectivity)
}

func TestWrapNeo4j(t *testing.T) {
	assert.NoError(t, WrapNeo4j(nil))
	assert.ErrorIs(t, WrapNeo4j(context.DeadlineExceeded), ErrConnectivity)

	serverErr := &neo4j.Neo4jError{Code: "Neo.ClientError.Statement.SyntaxError", Msg: "Invalid input"}
	err := WrapNeo4j(serverErr)
	assert.ErrorIs(t, err, ErrStatement)
	assert.Contains(t, err.Error(), "Invalid input")

	authErr := &neo4j.Neo4jError{Code: "Neo.ClientError.Security.Unauthorized", Msg: "The client is unauthorized"}
	err = WrapNeo4j(authErr)
	assert.ErrorIs(t, err, ErrConnectivity)
	assert.NotErrorIs(t, err, ErrStatement)
}
