package llm

import (
	"context"
	"fmt"

	"github.com/agentplane/agentplane/engine/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIConfig configures the OpenAI-compatible provider backing the gateway.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// LangChainGateway adapts a langchaingo model to the Gateway interface.
type LangChainGateway struct {
	model llms.Model
}

// NewOpenAIGateway creates a gateway backed by the OpenAI chat API. The
// per-request Config.Model overrides cfg.Model.
func NewOpenAIGateway(cfg *OpenAIConfig) (*LangChainGateway, error) {
	opts := []openai.Option{}
	if cfg != nil {
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}
	return NewLangChainGateway(model), nil
}

// NewLangChainGateway wraps an existing langchaingo model.
func NewLangChainGateway(model llms.Model) *LangChainGateway {
	return &LangChainGateway{model: model}
}

// Completion implements Gateway.
func (g *LangChainGateway) Completion(ctx context.Context, cfg *Config) (*Choice, error) {
	if cfg == nil {
		return nil, core.NewError(fmt.Errorf("completion config is required"), core.CodeClientError, nil)
	}
	messages := convertMessages(cfg.Messages)
	response, err := g.model.GenerateContent(ctx, messages, buildCallOptions(cfg)...)
	if err != nil {
		return nil, core.NewError(
			fmt.Errorf("llm completion: %w", err),
			core.CodeServiceError,
			map[string]any{"model": cfg.Model},
		)
	}
	return convertChoice(response)
}

// Close implements Gateway. langchaingo models hold no resources to release.
func (g *LangChainGateway) Close() error {
	return nil
}

// convertMessages converts domain messages to langchaingo content. Assistant
// tool calls and tool results travel as dedicated content parts so providers
// can reconstruct the call linkage.
func convertMessages(messages []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleAssistant:
			mc := llms.MessageContent{Role: llms.ChatMessageTypeAI}
			if msg.Content != "" {
				mc.Parts = append(mc.Parts, llms.TextContent{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				callType := tc.Type
				if callType == "" {
					callType = ToolCallTypeFunction
				}
				mc.Parts = append(mc.Parts, llms.ToolCall{
					ID:   tc.ID,
					Type: callType,
					FunctionCall: &llms.FunctionCall{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				})
			}
			out = append(out, mc)
		case RoleTool:
			out = append(out, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: msg.ToolCallID,
					Name:       msg.Name,
					Content:    msg.Content,
				}},
			})
		case RoleSystem:
			out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, msg.Content))
		default:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, msg.Content))
		}
	}
	return out
}

// buildCallOptions builds langchaingo call options from the request config.
func buildCallOptions(cfg *Config) []llms.CallOption {
	var options []llms.CallOption
	if cfg.Model != "" {
		options = append(options, llms.WithModel(cfg.Model))
	}
	if cfg.Temperature > 0 {
		options = append(options, llms.WithTemperature(cfg.Temperature))
	}
	if cfg.TopP > 0 {
		options = append(options, llms.WithTopP(cfg.TopP))
	}
	if cfg.N > 0 {
		options = append(options, llms.WithN(cfg.N))
	}
	if len(cfg.Stop) > 0 {
		options = append(options, llms.WithStopWords(cfg.Stop))
	}
	if cfg.MaxTokens > 0 {
		options = append(options, llms.WithMaxTokens(cfg.MaxTokens))
	}
	if cfg.PresencePenalty > 0 {
		options = append(options, llms.WithPresencePenalty(cfg.PresencePenalty))
	}
	if cfg.FrequencyPenalty > 0 {
		options = append(options, llms.WithFrequencyPenalty(cfg.FrequencyPenalty))
	}
	if cfg.Seed != 0 {
		options = append(options, llms.WithSeed(cfg.Seed))
	}
	if len(cfg.Tools) > 0 {
		options = append(options, llms.WithTools(convertTools(cfg.Tools)))
		if cfg.ToolChoice != "" {
			options = append(options, llms.WithToolChoice(cfg.ToolChoice))
		}
	}
	if cfg.JSONMode && len(cfg.Tools) == 0 {
		options = append(options, llms.WithJSONMode())
	}
	return options
}

// convertTools converts tool schemas to langchaingo function tools.
func convertTools(tools []ToolSchema) []llms.Tool {
	out := make([]llms.Tool, 0, len(tools))
	for _, tool := range tools {
		out = append(out, llms.Tool{
			Type: ToolCallTypeFunction,
			Function: &llms.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	return out
}

// convertChoice converts the first langchaingo choice to the domain Choice.
func convertChoice(resp *llms.ContentResponse) (*Choice, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, core.NewError(fmt.Errorf("empty response from llm"), core.CodeServiceError, nil)
	}
	first := resp.Choices[0]
	message := Message{Role: RoleAssistant, Content: first.Content}
	for _, tc := range first.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		message.ToolCalls = append(message.ToolCalls, ToolCall{
			ID:   tc.ID,
			Type: tc.Type,
			Function: FunctionCall{
				Name:      tc.FunctionCall.Name,
				Arguments: tc.FunctionCall.Arguments,
			},
		})
	}
	reason := first.StopReason
	if reason == "" {
		reason = FinishReasonStop
		if len(message.ToolCalls) > 0 {
			reason = FinishReasonToolCalls
		}
	}
	return &Choice{FinishReason: reason, Message: message}, nil
}
