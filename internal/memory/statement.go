package memory

import (
	"fmt"
	"strings"

	errx "github.com/nakari-agent/server/internal/core/error"
)

// minInlineLen is the shortest string parameter value checked for inlining.
// Shorter values ("a", "1") collide with ordinary query text.
const minInlineLen = 3

// Statement is a Cypher query and its named parameters. Values only travel in
// Params; construct statements with NewStatement so the text is checked.
type Statement struct {
	query  string
	params map[string]any
}

// NewStatement builds a Statement, rejecting query text that carries a
// parameter's value as a quoted literal instead of a $placeholder.
//
// The check is a heuristic: it only looks for string values of at least
// minInlineLen characters wrapped in quotes. Inlined numbers, booleans and
// short strings are not detected, so passing it does not prove every value
// travels in Params.
func NewStatement(query string, params map[string]any) (Statement, error) {
	if strings.TrimSpace(query) == "" {
		return Statement{}, errx.New(errx.KindStatement, nil, "query text is empty")
	}
	for name, value := range params {
		s, ok := value.(string)
		if !ok || len(s) < minInlineLen {
			continue
		}
		if strings.Contains(query, "'"+s+"'") || strings.Contains(query, `"`+s+`"`) {
			return Statement{}, errx.New(errx.KindStatement, nil,
				fmt.Sprintf("value of parameter %q is inlined in the query text; reference it as $%s", name, name))
		}
	}
	if params == nil {
		params = map[string]any{}
	}
	return Statement{query: query, params: params}, nil
}

// MustStatement is NewStatement for fixed queries known at compile time.
func MustStatement(query string, params map[string]any) Statement {
	st, err := NewStatement(query, params)
	if err != nil {
		panic(err)
	}
	return st
}

// Query returns the statement text.
func (s Statement) Query() string {
	return s.query
}

// Params returns the named parameters.
func (s Statement) Params() map[string]any {
	return s.params
}
