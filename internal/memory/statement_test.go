package memory

import (
	"errors"
	"testing"

	errx "github.com/nakari-agent/server/internal/core/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStatement(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		params  map[string]any
		wantErr bool
	}{
		{"placeholder", "MATCH (n:Person {name: $name}) RETURN n", map[string]any{"name": "Ada Lovelace"}, false},
		{"no params", "MATCH (n) RETURN n LIMIT 1", nil, false},
		{"single quoted inline", "MATCH (n:Person {name: 'Ada Lovelace'}) RETURN n", map[string]any{"name": "Ada Lovelace"}, true},
		{"double quoted inline", `CREATE (n:Note {text: "remember milk"})`, map[string]any{"text": "remember milk"}, true},
		{"short values ignored", "MATCH (n {k: 'ab'}) RETURN n", map[string]any{"k": "ab"}, false},
		{"non string values ignored", "CREATE (n:Test {x: 5})", map[string]any{"v": 5}, false},
		{"literal unrelated to params", "MATCH (n:Person {name: 'Bob'}) RETURN n", map[string]any{"name": "Ada"}, false},
		{"empty query", "   ", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := NewStatement(tt.query, tt.params)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errx.ErrStatement))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.query, st.Query())
			assert.NotNil(t, st.Params())
		})
	}
}

func TestNewStatement_ErrorNamesParameter(t *testing.T) {
	_, err := NewStatement("MATCH (n {id: 'user-42'}) RETURN n", map[string]any{"id": "user-42"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "$id")
}

func TestMustStatement_Panics(t *testing.T) {
	assert.Panics(t, func() { MustStatement("", nil) })
}
