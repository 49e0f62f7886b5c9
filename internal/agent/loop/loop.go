package loop

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/nakari-agent/server/internal/agent/model"
	"github.com/nakari-agent/server/internal/agent/tools"
	errx "github.com/nakari-agent/server/internal/core/error"
	logx "github.com/nakari-agent/server/pkg/logger"
)

const (
	DefaultMaxIterations = 10

	// EmptyResponse is returned when the forced final call yields no text.
	EmptyResponse = "I wasn't able to put together a response. Please try again."
)

// Executor runs one requested action. It must not return errors; failures are
// encoded in the result value.
type Executor interface {
	Execute(ctx context.Context, name string, args map[string]any) any
}

// Observer receives loop steps synchronously. Panics are recovered.
type Observer func(model.Step)

// Recorder receives loop metrics. A nil Recorder disables them.
type Recorder interface {
	ObserveRun(outcome string, d time.Duration)
	IncModelCall(outcome string)
	IncToolCall(tool, outcome string)
	IncCeilingHit()
	AddCost(usd float64)
}

type Config struct {
	ChatModel einomodel.BaseChatModel
	// ModelName is used for cost accounting and callback run info.
	ModelName     string
	Tools         []*schema.ToolInfo
	Executor      Executor
	MaxIterations int
	Handlers      []callbacks.Handler
	Recorder      Recorder
}

// Loop is the reasoning/acting cycle. It holds no per-run state and may be
// shared by concurrent runs.
type Loop struct {
	chatModel     einomodel.BaseChatModel
	modelName     string
	tools         []*schema.ToolInfo
	executor      Executor
	maxIterations int
	handlers      []callbacks.Handler
	recorder      Recorder
}

// Result is the outcome of one run.
type Result struct {
	Answer string
	// Transcript holds every turn of the run, instruction context included.
	Transcript []*schema.Message
	Stats      model.RunStats
}

func New(cfg Config) (*Loop, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("chat model is nil")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is nil")
	}
	bound, err := bindTools(cfg.ChatModel, cfg.Tools)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools")
		return nil, fmt.Errorf("failed to bind tools: %w", err)
	}
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	rec := cfg.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Loop{
		chatModel:     bound,
		modelName:     cfg.ModelName,
		tools:         cfg.Tools,
		executor:      cfg.Executor,
		maxIterations: maxIter,
		handlers:      cfg.Handlers,
		recorder:      rec,
	}, nil
}

func bindTools(m einomodel.BaseChatModel, infos []*schema.ToolInfo) (einomodel.BaseChatModel, error) {
	if len(infos) == 0 {
		return m, nil
	}
	if tc, ok := m.(einomodel.ToolCallingChatModel); ok {
		return tc.WithTools(infos)
	}
	if cm, ok := m.(einomodel.ChatModel); ok {
		if err := cm.BindTools(infos); err != nil {
			return nil, err
		}
		return cm, nil
	}
	return nil, fmt.Errorf("chat model does not support tool calling")
}

// runState is private to one Run call.
type runState struct {
	messages []*schema.Message
	stats    model.RunStats
	idSeq    int
	observe  Observer
}

// Run answers userMessage given the prior history. systemPrompt, when not
// empty, leads the transcript. Only a failed model call returns an error.
func (l *Loop) Run(ctx context.Context, systemPrompt string, history []*schema.Message, userMessage string, observe Observer) (*Result, error) {
	start := time.Now()
	st := &runState{
		messages: make([]*schema.Message, 0, len(history)+2),
		observe:  observe,
	}
	if systemPrompt != "" {
		st.messages = append(st.messages, schema.SystemMessage(systemPrompt))
	}
	st.messages = append(st.messages, history...)
	st.messages = append(st.messages, schema.UserMessage(userMessage))

	answer, err := l.run(ctx, st)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		l.emit(st, model.Step{Type: model.StepError, Err: err, Content: err.Error()})
	}
	l.recorder.ObserveRun(outcome, time.Since(start))
	if err != nil {
		return nil, err
	}

	l.emit(st, model.Step{Type: model.StepResponse, Content: answer})
	logx.Debug().
		Int("iterations", st.stats.Iterations).
		Int("model_calls", st.stats.ModelCalls).
		Int("tool_calls", st.stats.ToolCalls).
		Bool("ceiling_hit", st.stats.CeilingHit).
		Float64("total_cost_usd", st.stats.TotalCostUSD).
		Dur("elapsed", time.Since(start)).
		Msg("loop finished")
	return &Result{Answer: answer, Transcript: st.messages, Stats: st.stats}, nil
}

func (l *Loop) run(ctx context.Context, st *runState) (string, error) {
	for st.stats.Iterations < l.maxIterations {
		st.stats.Iterations++

		out, err := l.generate(ctx, st)
		if err != nil {
			return "", err
		}
		l.assignCallIDs(st, out)
		st.messages = append(st.messages, out)

		if len(out.ToolCalls) == 0 {
			logx.Debug().Int("iteration", st.stats.Iterations).Msg("AI response ready")
			return out.Content, nil
		}

		logx.Debug().Int("iteration", st.stats.Iterations).Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
		for _, call := range out.ToolCalls {
			st.messages = append(st.messages, l.executeCall(ctx, st, call))
		}
	}

	st.stats.CeilingHit = true
	l.recorder.IncCeilingHit()
	logx.Warn().Int("max_iterations", l.maxIterations).Msg("Iteration limit reached - forcing final answer")

	st.messages = append(st.messages, &schema.Message{
		Role: schema.System,
		Content: fmt.Sprintf(
			"SYSTEM NOTICE: You have reached the maximum number of reasoning steps (%d). "+
				"Tools are no longer available. Give your final answer to the user now, using what you have gathered, "+
				"and say so if something could not be completed.",
			l.maxIterations,
		),
	})

	out, err := l.generate(ctx, st, einomodel.WithToolChoice(schema.ToolChoiceForbidden))
	if err != nil {
		return "", err
	}
	// tool calls in the forced turn are ignored
	final := &schema.Message{Role: schema.Assistant, Content: out.Content, ResponseMeta: out.ResponseMeta}
	st.messages = append(st.messages, final)
	if strings.TrimSpace(out.Content) == "" {
		return EmptyResponse, nil
	}
	return out.Content, nil
}

// generate performs one model call. The callback context is set up here since
// the model is invoked outside a compose graph.
func (l *Loop) generate(ctx context.Context, st *runState, opts ...einomodel.Option) (*schema.Message, error) {
	st.stats.ModelCalls++
	selfReporting := false
	if len(l.handlers) > 0 {
		ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
			Name:      l.modelName,
			Type:      modelType(l.chatModel),
			Component: components.ComponentOfChatModel,
		}, l.handlers...)
		if c, ok := l.chatModel.(components.Checker); ok && c.IsCallbacksEnabled() {
			selfReporting = true
		} else {
			ctx = callbacks.OnStart(ctx, &einomodel.CallbackInput{Messages: st.messages, Tools: l.tools})
		}
	}

	out, err := l.chatModel.Generate(ctx, st.messages, opts...)
	if err == nil && out == nil {
		err = errx.New(errx.KindModelCall, nil, "model returned no message")
	}
	if err != nil {
		l.recorder.IncModelCall("error")
		if len(l.handlers) > 0 && !selfReporting {
			callbacks.OnError(ctx, err)
		}
		logx.Error().Err(err).Str("model", l.modelName).Msg("model call failed")
		if errx.KindOf(err) == errx.KindModelCall {
			return nil, err
		}
		return nil, errx.WrapModelCall(err)
	}
	l.recorder.IncModelCall("ok")

	var usage *schema.TokenUsage
	if out.ResponseMeta != nil {
		usage = out.ResponseMeta.Usage
	}
	if len(l.handlers) > 0 && !selfReporting {
		cbOut := &einomodel.CallbackOutput{Message: out}
		if usage != nil {
			cbOut.TokenUsage = &einomodel.TokenUsage{
				PromptTokens:     usage.PromptTokens,
				CompletionTokens: usage.CompletionTokens,
				TotalTokens:      usage.TotalTokens,
			}
		}
		callbacks.OnEnd(ctx, cbOut)
	}
	l.accountUsage(st, usage)
	if out.Role == "" {
		out.Role = schema.Assistant
	}
	return out, nil
}

func (l *Loop) accountUsage(st *runState, usage *schema.TokenUsage) {
	if usage == nil {
		return
	}
	inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(l.modelName))
	st.stats.TotalCostUSD += totalC
	l.recorder.AddCost(totalC)
	logx.Debug().
		Str("model", l.modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", totalC).
		Msg("LLM usage")
}

// assignCallIDs fills ids some providers omit, so results can be correlated.
func (l *Loop) assignCallIDs(st *runState, out *schema.Message) {
	for i := range out.ToolCalls {
		if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
			st.idSeq++
			out.ToolCalls[i].ID = fmt.Sprintf("call_%d", st.idSeq)
		}
		if out.ToolCalls[i].Type == "" {
			out.ToolCalls[i].Type = "function"
		}
	}
}

// executeCall runs one requested action and returns its result turn.
func (l *Loop) executeCall(ctx context.Context, st *runState, call schema.ToolCall) *schema.Message {
	name := call.Function.Name
	args := model.DecodeArguments(call.Function.Arguments)
	st.stats.ToolCalls++

	l.emit(st, model.Step{Type: model.StepToolCall, Name: name, CallID: call.ID, Arguments: args})

	if len(l.handlers) > 0 {
		ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
			Name:      name,
			Type:      "Dispatcher",
			Component: components.ComponentOfTool,
		}, l.handlers...)
		ctx = callbacks.OnStart(ctx, &tool.CallbackInput{ArgumentsInJSON: call.Function.Arguments})
	}

	result, err := l.dispatch(ctx, name, args)
	outcome := "ok"
	if err != nil {
		outcome = "panic"
		logx.Error().Err(err).Str("tool", name).Msg("tool execution panicked")
		l.emit(st, model.Step{Type: model.StepError, Name: name, CallID: call.ID, Err: err, Content: err.Error()})
		result = &tools.ToolError{Error: err.Error()}
	} else {
		if _, isErr := tools.ErrorMessage(result); isErr {
			outcome = "error"
		}
		l.emit(st, model.Step{Type: model.StepToolResult, Name: name, CallID: call.ID, Result: result})
	}
	l.recorder.IncToolCall(name, outcome)

	content := encodeResult(result)
	if len(l.handlers) > 0 {
		callbacks.OnEnd(ctx, &tool.CallbackOutput{Response: content})
	}

	msg := schema.ToolMessage(content, call.ID)
	msg.ToolName = name
	return msg
}

func (l *Loop) dispatch(ctx context.Context, name string, args map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s failed unexpectedly: %v", name, r)
		}
	}()
	return l.executor.Execute(ctx, name, args), nil
}

func encodeResult(result any) string {
	b, err := json.Marshal(result)
	if err != nil {
		b, _ = json.Marshal(&tools.ToolError{Error: "encode result: " + err.Error()})
	}
	return string(b)
}

func (l *Loop) emit(st *runState, step model.Step) {
	if st.observe == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logx.Warn().Interface("panic", r).Str("step", string(step.Type)).Msg("step observer panicked")
		}
	}()
	st.observe(step)
}

func modelType(m einomodel.BaseChatModel) string {
	if t, ok := components.GetType(m); ok {
		return t
	}
	return "ChatModel"
}

type nopRecorder struct{}

func (nopRecorder) ObserveRun(string, time.Duration) {}
func (nopRecorder) IncModelCall(string)              {}
func (nopRecorder) IncToolCall(string, string)       {}
func (nopRecorder) IncCeilingHit()                   {}
func (nopRecorder) AddCost(float64)                  {}
