package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/nakari-agent/server/internal/agent/model"
)

const typeOpenAI = "OpenAI"

// OpenAIChatModel adapts the OpenAI chat completions API (and compatible
// endpoints) to eino's tool-calling chat model. It reports its own callbacks.
type OpenAIChatModel struct {
	client      openai.Client
	model       string
	temperature float32
	maxTokens   int

	toolInfos []*schema.ToolInfo
	tools     []openai.ChatCompletionToolParam
}

var _ einomodel.ToolCallingChatModel = (*OpenAIChatModel)(nil)

// NewOpenAIChatModel builds the adapter. Extra request options are appended
// after the key and base URL.
func NewOpenAIChatModel(cfg model.LLMConfig, opts ...option.RequestOption) *OpenAIChatModel {
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &OpenAIChatModel{
		client:      openai.NewClient(reqOpts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// WithTools returns a copy of the model with tools bound. The receiver is unchanged.
func (m *OpenAIChatModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	converted, err := convertTools(tools)
	if err != nil {
		return nil, err
	}
	cp := *m
	cp.toolInfos = tools
	cp.tools = converted
	return &cp, nil
}

func (m *OpenAIChatModel) GetType() string { return typeOpenAI }

func (m *OpenAIChatModel) IsCallbacksEnabled() bool { return true }

func (m *OpenAIChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (out *schema.Message, err error) {
	options := einomodel.GetCommonOptions(&einomodel.Options{
		Model:       &m.model,
		Temperature: &m.temperature,
		MaxTokens:   &m.maxTokens,
	}, opts...)

	ctx = callbacks.OnStart(ctx, &einomodel.CallbackInput{
		Messages: input,
		Tools:    m.toolInfos,
		Config: &einomodel.Config{
			Model:       *options.Model,
			MaxTokens:   *options.MaxTokens,
			Temperature: *options.Temperature,
		},
	})
	defer func() {
		if err != nil {
			callbacks.OnError(ctx, err)
		}
	}()

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(*options.Model),
		Messages:    convertMessages(input),
		Temperature: openai.Float(float64(*options.Temperature)),
		MaxTokens:   openai.Int(int64(*options.MaxTokens)),
	}
	if len(m.tools) > 0 {
		params.Tools = m.tools
		if options.ToolChoice != nil && *options.ToolChoice == schema.ToolChoiceForbidden {
			params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("none")}
		}
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai chat completion: response has no choices")
	}

	choice := resp.Choices[0]
	out = &schema.Message{
		Role:    schema.Assistant,
		Content: choice.Message.Content,
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: choice.FinishReason,
			Usage: &schema.TokenUsage{
				PromptTokens:     int(resp.Usage.PromptTokens),
				CompletionTokens: int(resp.Usage.CompletionTokens),
				TotalTokens:      int(resp.Usage.TotalTokens),
			},
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, schema.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: schema.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}

	callbacks.OnEnd(ctx, &einomodel.CallbackOutput{
		Message: out,
		TokenUsage: &einomodel.TokenUsage{
			PromptTokens:     out.ResponseMeta.Usage.PromptTokens,
			CompletionTokens: out.ResponseMeta.Usage.CompletionTokens,
			TotalTokens:      out.ResponseMeta.Usage.TotalTokens,
		},
	})
	return out, nil
}

// Stream delivers the Generate result as a single chunk.
func (m *OpenAIChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func convertMessages(msgs []*schema.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			out = append(out, openai.SystemMessage(msg.Content))
		case schema.User:
			out = append(out, openai.UserMessage(msg.Content))
		case schema.Tool:
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		case schema.Assistant:
			if len(msg.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(msg.Content))
				continue
			}
			assistant := &openai.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(msg.Content)}
			}
			for _, tc := range msg.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: assistant})
		}
	}
	return out
}

func convertTools(tools []*schema.ToolInfo) ([]openai.ChatCompletionToolParam, error) {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, info := range tools {
		if info == nil {
			continue
		}
		params := map[string]any{"type": "object", "properties": map[string]any{}}
		if info.ParamsOneOf != nil {
			js, err := info.ParamsOneOf.ToJSONSchema()
			if err != nil {
				return nil, fmt.Errorf("tool %s: %w", info.Name, err)
			}
			raw, err := json.Marshal(js)
			if err != nil {
				return nil, fmt.Errorf("tool %s: %w", info.Name, err)
			}
			if err := json.Unmarshal(raw, &params); err != nil {
				return nil, fmt.Errorf("tool %s: %w", info.Name, err)
			}
		}
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        info.Name,
				Description: openai.String(info.Desc),
				Parameters:  openai.FunctionParameters(params),
			},
		})
	}
	return out, nil
}
