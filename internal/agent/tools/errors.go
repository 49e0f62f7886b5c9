package tools

import (
	errx "github.com/nakari-agent/server/internal/core/error"
)

func errUnknownTool(name string) error {
	return errx.New(errx.KindUnknownAction, nil, "Unknown tool: "+name)
}

// ErrorMessage reports whether result is a tagged failure and returns its text.
func ErrorMessage(result any) (string, bool) {
	switch r := result.(type) {
	case *ToolError:
		if r == nil {
			return "", false
		}
		return r.Error, true
	case ToolError:
		return r.Error, true
	}
	return "", false
}
