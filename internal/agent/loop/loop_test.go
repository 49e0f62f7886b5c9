package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nakari-agent/server/internal/agent/model"
	"github.com/nakari-agent/server/internal/agent/tools"
	errx "github.com/nakari-agent/server/internal/core/error"
)

type modelCall struct {
	messages []*schema.Message
	options  *einomodel.Options
}

// scriptedModel replays canned replies in order and records every request.
type scriptedModel struct {
	mu      sync.Mutex
	replies []func(call int) (*schema.Message, error)
	calls   []modelCall
	bound   []*schema.ToolInfo
}

func (m *scriptedModel) Generate(_ context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := make([]*schema.Message, len(in))
	copy(msgs, in)
	m.calls = append(m.calls, modelCall{messages: msgs, options: einomodel.GetCommonOptions(&einomodel.Options{}, opts...)})
	n := len(m.calls) - 1
	if n >= len(m.replies) {
		return m.replies[len(m.replies)-1](n)
	}
	return m.replies[n](n)
}

func (m *scriptedModel) Stream(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *scriptedModel) WithTools(infos []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	m.bound = infos
	return m, nil
}

func text(s string) func(int) (*schema.Message, error) {
	return func(int) (*schema.Message, error) { return schema.AssistantMessage(s, nil), nil }
}

func toolCalls(calls ...schema.ToolCall) func(int) (*schema.Message, error) {
	return func(int) (*schema.Message, error) { return schema.AssistantMessage("", calls), nil }
}

func call(id, name, args string) schema.ToolCall {
	return schema.ToolCall{ID: id, Type: "function", Function: schema.FunctionCall{Name: name, Arguments: args}}
}

type recordingExecutor struct {
	mu    sync.Mutex
	names []string
	args  []map[string]any
	fn    func(name string, args map[string]any) any
}

func (e *recordingExecutor) Execute(_ context.Context, name string, args map[string]any) any {
	e.mu.Lock()
	e.names = append(e.names, name)
	e.args = append(e.args, args)
	e.mu.Unlock()
	if e.fn != nil {
		return e.fn(name, args)
	}
	return map[string]any{"ok": name}
}

type fakeRecorder struct {
	runs     []string
	models   []string
	tools    []string
	ceilings int
	cost     float64
}

func (r *fakeRecorder) ObserveRun(outcome string, _ time.Duration) { r.runs = append(r.runs, outcome) }
func (r *fakeRecorder) IncModelCall(outcome string)               { r.models = append(r.models, outcome) }
func (r *fakeRecorder) IncToolCall(tool, outcome string)          { r.tools = append(r.tools, tool+":"+outcome) }
func (r *fakeRecorder) IncCeilingHit()                            { r.ceilings++ }
func (r *fakeRecorder) AddCost(usd float64)                       { r.cost += usd }

func newLoop(t *testing.T, m *scriptedModel, exec Executor, mut ...func(*Config)) *Loop {
	t.Helper()
	cfg := Config{ChatModel: m, ModelName: "gpt-4o", Tools: tools.Catalog(), Executor: exec}
	for _, f := range mut {
		f(&cfg)
	}
	l, err := New(cfg)
	require.NoError(t, err)
	return l
}

func TestRun_DirectAnswer(t *testing.T) {
	m := &scriptedModel{replies: []func(int) (*schema.Message, error){text("hello!")}}
	exec := &recordingExecutor{}
	l := newLoop(t, m, exec)

	history := []*schema.Message{schema.UserMessage("earlier"), schema.AssistantMessage("reply", nil)}
	res, err := l.Run(context.Background(), "be helpful", history, "hi", nil)
	require.NoError(t, err)

	assert.Equal(t, "hello!", res.Answer)
	assert.Empty(t, exec.names)
	assert.Len(t, m.bound, len(tools.Names))
	require.Len(t, m.calls, 1)

	sent := m.calls[0].messages
	require.Len(t, sent, 4)
	assert.Equal(t, schema.System, sent[0].Role)
	assert.Equal(t, "be helpful", sent[0].Content)
	assert.Equal(t, "earlier", sent[1].Content)
	assert.Equal(t, "hi", sent[3].Content)
	assert.Len(t, res.Transcript, 5)
	assert.Equal(t, 1, res.Stats.Iterations)
}

func TestRun_ResultsFollowRequestOrder(t *testing.T) {
	m := &scriptedModel{replies: []func(int) (*schema.Message, error){
		toolCalls(
			call("a1", tools.ToolMemorySchema, `{}`),
			call("b2", tools.ToolMemoryWrite, `{"cypher":"CREATE (n:X {v: $v})","params":{"v":1}}`),
			call("c3", tools.ToolMemoryQuery, `{"cypher":"MATCH (n:X) RETURN n","params":{}}`),
		),
		text("done"),
	}}
	exec := &recordingExecutor{}
	l := newLoop(t, m, exec)

	res, err := l.Run(context.Background(), "", nil, "remember x", nil)
	require.NoError(t, err)
	assert.Equal(t, "done", res.Answer)
	assert.Equal(t, []string{tools.ToolMemorySchema, tools.ToolMemoryWrite, tools.ToolMemoryQuery}, exec.names)
	assert.Equal(t, map[string]any{"v": int64(1)}, exec.args[1]["params"])

	require.Len(t, m.calls, 2)
	second := m.calls[1].messages
	// user, assistant with calls, three results
	require.Len(t, second, 5)
	requested := second[1].ToolCalls
	results := second[2:]
	require.Len(t, requested, len(results))
	for i := range requested {
		assert.Equal(t, schema.Tool, results[i].Role)
		assert.Equal(t, requested[i].ID, results[i].ToolCallID)
		assert.Equal(t, requested[i].Function.Name, results[i].ToolName)
	}
	assert.JSONEq(t, `{"ok":"memory_write"}`, results[1].Content)
}

func TestRun_IterationCeiling(t *testing.T) {
	m := &scriptedModel{replies: []func(int) (*schema.Message, error){
		func(n int) (*schema.Message, error) {
			if n < DefaultMaxIterations {
				return schema.AssistantMessage("", []schema.ToolCall{call(fmt.Sprintf("id%d", n), tools.ToolMemorySchema, "{}")}), nil
			}
			// the forced call may still carry calls; they must be ignored
			return schema.AssistantMessage("best effort answer", []schema.ToolCall{call("late", tools.ToolMemorySchema, "{}")}), nil
		},
	}}
	exec := &recordingExecutor{}
	rec := &fakeRecorder{}
	l := newLoop(t, m, exec, func(c *Config) { c.Recorder = rec })

	res, err := l.Run(context.Background(), "", nil, "loop forever", nil)
	require.NoError(t, err)

	assert.Equal(t, "best effort answer", res.Answer)
	assert.Len(t, exec.names, DefaultMaxIterations)
	require.Len(t, m.calls, DefaultMaxIterations+1)
	assert.True(t, res.Stats.CeilingHit)
	assert.Equal(t, 1, rec.ceilings)

	for _, c := range m.calls[:DefaultMaxIterations] {
		assert.Nil(t, c.options.ToolChoice)
	}
	final := m.calls[DefaultMaxIterations].options
	require.NotNil(t, final.ToolChoice)
	assert.Equal(t, schema.ToolChoiceForbidden, *final.ToolChoice)

	last := res.Transcript[len(res.Transcript)-1]
	assert.Equal(t, schema.Assistant, last.Role)
	assert.Empty(t, last.ToolCalls)
}

func TestRun_CustomCeilingAndEmptyFinal(t *testing.T) {
	m := &scriptedModel{replies: []func(int) (*schema.Message, error){
		toolCalls(call("x", tools.ToolMemorySchema, "{}")),
		toolCalls(call("y", tools.ToolMemorySchema, "{}")),
		text("   "),
	}}
	l := newLoop(t, m, &recordingExecutor{}, func(c *Config) { c.MaxIterations = 2 })

	res, err := l.Run(context.Background(), "", nil, "q", nil)
	require.NoError(t, err)
	assert.Equal(t, EmptyResponse, res.Answer)
	assert.Len(t, m.calls, 3)
}

func TestRun_ModelFailureIsFatal(t *testing.T) {
	boom := errors.New("503 upstream")
	m := &scriptedModel{replies: []func(int) (*schema.Message, error){
		toolCalls(call("a", tools.ToolMemorySchema, "{}")),
		func(int) (*schema.Message, error) { return nil, boom },
	}}
	var steps []model.Step
	rec := &fakeRecorder{}
	l := newLoop(t, m, &recordingExecutor{}, func(c *Config) { c.Recorder = rec })

	_, err := l.Run(context.Background(), "", nil, "q", func(s model.Step) { steps = append(steps, s) })
	require.Error(t, err)
	assert.True(t, errors.Is(err, errx.ErrModelCall))
	assert.True(t, errors.Is(err, boom))

	require.NotEmpty(t, steps)
	assert.Equal(t, model.StepError, steps[len(steps)-1].Type)
	assert.Equal(t, []string{"error"}, rec.runs)
}

func TestRun_NilModelMessage(t *testing.T) {
	m := &scriptedModel{replies: []func(int) (*schema.Message, error){
		func(int) (*schema.Message, error) { return nil, nil },
	}}
	l := newLoop(t, m, &recordingExecutor{})

	_, err := l.Run(context.Background(), "", nil, "q", nil)
	assert.True(t, errors.Is(err, errx.ErrModelCall))
}

func TestRun_SynthesizesMissingIDs(t *testing.T) {
	m := &scriptedModel{replies: []func(int) (*schema.Message, error){
		toolCalls(call("", tools.ToolMemorySchema, "{}"), call("", tools.ToolMemorySchema, "{}")),
		toolCalls(call("", tools.ToolMemorySchema, "{}")),
		text("ok"),
	}}
	l := newLoop(t, m, &recordingExecutor{})

	res, err := l.Run(context.Background(), "", nil, "q", nil)
	require.NoError(t, err)

	var ids []string
	for _, msg := range res.Transcript {
		if msg.Role == schema.Tool {
			ids = append(ids, msg.ToolCallID)
		}
	}
	assert.Equal(t, []string{"call_1", "call_2", "call_3"}, ids)
}

func TestRun_ToolFailureFeedsBack(t *testing.T) {
	m := &scriptedModel{replies: []func(int) (*schema.Message, error){
		toolCalls(call("a", "unknown_tool", `{"x":1}`), call("b", tools.ToolMemoryQuery, `not json`)),
		text("recovered"),
	}}
	exec := &recordingExecutor{fn: func(name string, args map[string]any) any {
		if name == "unknown_tool" {
			return &tools.ToolError{Error: "Unknown tool: unknown_tool"}
		}
		return map[string]any{"args": len(args)}
	}}
	rec := &fakeRecorder{}
	l := newLoop(t, m, exec, func(c *Config) { c.Recorder = rec })

	res, err := l.Run(context.Background(), "", nil, "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "recovered", res.Answer)

	results := m.calls[1].messages[2:]
	assert.JSONEq(t, `{"error":"Unknown tool: unknown_tool"}`, results[0].Content)
	assert.JSONEq(t, `{"args":0}`, results[1].Content)
	assert.Equal(t, []string{"unknown_tool:error", "memory_query:ok"}, rec.tools)
}

func TestRun_ExecutorPanicIsContained(t *testing.T) {
	m := &scriptedModel{replies: []func(int) (*schema.Message, error){
		toolCalls(call("a", tools.ToolWebSearch, `{}`), call("b", tools.ToolMemorySchema, `{}`)),
		text("fine"),
	}}
	exec := &recordingExecutor{fn: func(name string, _ map[string]any) any {
		if name == tools.ToolWebSearch {
			panic("nil map")
		}
		return map[string]any{}
	}}
	var types []model.StepType
	l := newLoop(t, m, exec)

	res, err := l.Run(context.Background(), "", nil, "q", func(s model.Step) { types = append(types, s.Type) })
	require.NoError(t, err)
	assert.Equal(t, "fine", res.Answer)
	assert.Equal(t, []model.StepType{
		model.StepToolCall, model.StepError,
		model.StepToolCall, model.StepToolResult,
		model.StepResponse,
	}, types)

	results := m.calls[1].messages[2:]
	require.Len(t, results, 2)
	assert.Contains(t, results[0].Content, "nil map")
}

func TestRun_ObserverPanicIgnored(t *testing.T) {
	m := &scriptedModel{replies: []func(int) (*schema.Message, error){
		toolCalls(call("a", tools.ToolMemorySchema, `{}`)),
		text("still here"),
	}}
	l := newLoop(t, m, &recordingExecutor{})

	res, err := l.Run(context.Background(), "", nil, "q", func(model.Step) { panic("observer bug") })
	require.NoError(t, err)
	assert.Equal(t, "still here", res.Answer)
}

func TestRun_StepsCarryCallDetails(t *testing.T) {
	m := &scriptedModel{replies: []func(int) (*schema.Message, error){
		toolCalls(call("a", tools.ToolMemoryQuery, `{"cypher":"RETURN 1"}`)),
		text("one"),
	}}
	var steps []model.Step
	l := newLoop(t, m, &recordingExecutor{})

	_, err := l.Run(context.Background(), "", nil, "q", func(s model.Step) { steps = append(steps, s) })
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, model.Step{Type: model.StepToolCall, Name: tools.ToolMemoryQuery, CallID: "a", Arguments: map[string]any{"cypher": "RETURN 1"}}, steps[0])
	assert.Equal(t, "a", steps[1].CallID)
	assert.Equal(t, map[string]any{"ok": tools.ToolMemoryQuery}, steps[1].Result)
	assert.Equal(t, model.Step{Type: model.StepResponse, Content: "one"}, steps[2])
}

func TestRun_UsageAccounting(t *testing.T) {
	m := &scriptedModel{replies: []func(int) (*schema.Message, error){
		func(int) (*schema.Message, error) {
			msg := schema.AssistantMessage("priced", nil)
			msg.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 100_000, TotalTokens: 1_100_000}}
			return msg, nil
		},
	}}
	rec := &fakeRecorder{}
	l := newLoop(t, m, &recordingExecutor{}, func(c *Config) { c.Recorder = rec })

	res, err := l.Run(context.Background(), "", nil, "q", nil)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, res.Stats.TotalCostUSD, 1e-9)
	assert.InDelta(t, 3.5, rec.cost, 1e-9)
	assert.Equal(t, []string{"ok"}, rec.models)
}

func TestRun_FiresCallbacks(t *testing.T) {
	m := &scriptedModel{replies: []func(int) (*schema.Message, error){
		toolCalls(call("a", tools.ToolMemorySchema, `{}`)),
		text("ok"),
	}}
	var mu sync.Mutex
	var events []string
	handler := callbacks.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *callbacks.RunInfo, _ callbacks.CallbackInput) context.Context {
			mu.Lock()
			events = append(events, "start:"+string(info.Component))
			mu.Unlock()
			return ctx
		}).
		OnEndFn(func(ctx context.Context, info *callbacks.RunInfo, _ callbacks.CallbackOutput) context.Context {
			mu.Lock()
			events = append(events, "end:"+string(info.Component))
			mu.Unlock()
			return ctx
		}).
		Build()
	l := newLoop(t, m, &recordingExecutor{}, func(c *Config) { c.Handlers = []callbacks.Handler{handler} })

	_, err := l.Run(context.Background(), "", nil, "q", nil)
	require.NoError(t, err)

	cm, tc := string(components.ComponentOfChatModel), string(components.ComponentOfTool)
	assert.Equal(t, []string{
		"start:" + cm, "end:" + cm,
		"start:" + tc, "end:" + tc,
		"start:" + cm, "end:" + cm,
	}, events)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Executor: &recordingExecutor{}})
	assert.Error(t, err)
	_, err = New(Config{ChatModel: &scriptedModel{}})
	assert.Error(t, err)
}

type plainModel struct{}

func (plainModel) Generate(context.Context, []*schema.Message, ...einomodel.Option) (*schema.Message, error) {
	return schema.AssistantMessage("", nil), nil
}

func (plainModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("unsupported")
}

func TestNew_RequiresToolCalling(t *testing.T) {
	_, err := New(Config{ChatModel: plainModel{}, Executor: &recordingExecutor{}, Tools: tools.Catalog()})
	assert.Error(t, err)

	_, err = New(Config{ChatModel: plainModel{}, Executor: &recordingExecutor{}})
	assert.NoError(t, err)
}
