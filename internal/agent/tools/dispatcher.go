package tools

import (
	"context"
	"fmt"

	"github.com/nakari-agent/server/internal/memory"
	"github.com/nakari-agent/server/internal/search"
	logx "github.com/nakari-agent/server/pkg/logger"
)

// Memory is the graph gateway as seen by the dispatcher.
type Memory interface {
	RunRead(ctx context.Context, st memory.Statement) (*memory.ReadResult, error)
	RunWrite(ctx context.Context, st memory.Statement) (*memory.WriteResult, error)
	InspectSchema(ctx context.Context) (*memory.SchemaSnapshot, error)
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Searcher runs web queries.
type Searcher interface {
	Search(ctx context.Context, query string, opts search.Options) (*search.Response, error)
}

// ToolError is the tagged failure value returned in place of a result.
type ToolError struct {
	Error string `json:"error"`
}

type EmbeddingResult struct {
	Vector     []float64 `json:"vector"`
	Dimensions int       `json:"dimensions"`
}

// Dispatcher routes a requested action to its provider. Execute never returns
// an error: failures become a *ToolError result.
type Dispatcher struct {
	memory   Memory
	embedder Embedder
	searcher Searcher
}

type Option func(*Dispatcher)

func WithEmbedder(e Embedder) Option {
	return func(d *Dispatcher) { d.embedder = e }
}

func WithSearcher(s Searcher) Option {
	return func(d *Dispatcher) { d.searcher = s }
}

func NewDispatcher(mem Memory, opts ...Option) *Dispatcher {
	d := &Dispatcher{memory: mem}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Execute runs the named action with loosely typed arguments.
func (d *Dispatcher) Execute(ctx context.Context, name string, args map[string]any) any {
	if args == nil {
		args = map[string]any{}
	}
	result, err := d.execute(ctx, name, args)
	if err != nil {
		logx.Debug().Err(err).Str("tool", name).Msg("tool call failed")
		return &ToolError{Error: err.Error()}
	}
	return result
}

func (d *Dispatcher) execute(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolMemoryQuery:
		if d.memory == nil {
			return nil, errNotConfigured("memory")
		}
		st, err := memory.NewStatement(stringArg(args, "cypher"), mapArg(args, "params"))
		if err != nil {
			return nil, err
		}
		return d.memory.RunRead(ctx, st)

	case ToolMemoryWrite:
		if d.memory == nil {
			return nil, errNotConfigured("memory")
		}
		st, err := memory.NewStatement(stringArg(args, "cypher"), mapArg(args, "params"))
		if err != nil {
			return nil, err
		}
		return d.memory.RunWrite(ctx, st)

	case ToolMemorySchema:
		if d.memory == nil {
			return nil, errNotConfigured("memory")
		}
		return d.memory.InspectSchema(ctx)

	case ToolEmbedding:
		if d.embedder == nil {
			return nil, errNotConfigured("embedding provider")
		}
		vec, err := d.embedder.Embed(ctx, stringArg(args, "text"))
		if err != nil {
			return nil, err
		}
		return &EmbeddingResult{Vector: vec, Dimensions: len(vec)}, nil

	case ToolWebSearch:
		if d.searcher == nil {
			return nil, errNotConfigured("search client")
		}
		opts := search.Options{Type: search.ParseType(stringArg(args, "type"))}
		if n, ok := intArg(args, "num_results"); ok {
			opts.NumResults = clamp(n, 1, search.MaxNumResults)
		}
		return d.searcher.Search(ctx, stringArg(args, "query"), opts)
	}
	return nil, errUnknownTool(name)
}

func errNotConfigured(what string) error {
	return fmt.Errorf("%s not configured", what)
}
