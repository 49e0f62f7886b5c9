package tools

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringArg(t *testing.T) {
	args := map[string]any{"s": "x", "n": float64(3), "nil": nil}
	assert.Equal(t, "x", stringArg(args, "s"))
	assert.Equal(t, "3", stringArg(args, "n"))
	assert.Equal(t, "", stringArg(args, "nil"))
	assert.Equal(t, "", stringArg(args, "absent"))
}

func TestMapArg(t *testing.T) {
	assert.Equal(t, map[string]any{"a": "b"}, mapArg(map[string]any{"p": map[string]any{"a": "b"}}, "p"))
	assert.Equal(t, map[string]any{"a": int64(1), "b": 1.5}, mapArg(map[string]any{"p": `{"a":1,"b":1.5}`}, "p"))
	assert.Empty(t, mapArg(map[string]any{"p": "not json"}, "p"))
	assert.Empty(t, mapArg(map[string]any{"p": []any{1}}, "p"))
	assert.NotNil(t, mapArg(map[string]any{}, "p"))
}

func TestIntArg(t *testing.T) {
	tests := []struct {
		in     any
		want   int
		wantOK bool
	}{
		{float64(7), 7, true},
		{7, 7, true},
		{json.Number("9"), 9, true},
		{" 4 ", 4, true},
		{"four", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, tt := range tests {
		n, ok := intArg(map[string]any{"k": tt.in}, "k")
		assert.Equal(t, tt.wantOK, ok, "%v", tt.in)
		assert.Equal(t, tt.want, n, "%v", tt.in)
	}
}
