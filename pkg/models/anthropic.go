// Package models provides model.LLM implementations for providers other than
// Gemini. Agents that do not rely on Gemini-only tools can run on them.
package models

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// DefaultAnthropicMaxTokens is sent when the request does not set
// MaxOutputTokens; the Messages API requires a limit.
const DefaultAnthropicMaxTokens = 8192

// IsAnthropicModel reports whether name is served by Anthropic.
func IsAnthropicModel(name string) bool {
	return strings.HasPrefix(strings.ToLower(name), "claude")
}

// Anthropic is a model.LLM backed by the Anthropic Messages API.
type Anthropic struct {
	client    anthropic.Client
	name      string
	maxTokens int64
}

// NewAnthropic creates a model for the named Claude model.
func NewAnthropic(name string, opts ...option.RequestOption) *Anthropic {
	return &Anthropic{
		client:    anthropic.NewClient(opts...),
		name:      name,
		maxTokens: DefaultAnthropicMaxTokens,
	}
}

// Name implements model.LLM.
func (m *Anthropic) Name() string { return m.name }

// GenerateContent implements model.LLM.
func (m *Anthropic) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		params := m.messageParams(req)
		if stream {
			m.generateStream(ctx, params, yield)
			return
		}
		m.generate(ctx, params, yield)
	}
}

func (m *Anthropic) messageParams(req *model.LLMRequest) anthropic.MessageNewParams {
	messages, system := toAnthropicMessages(req.Contents, req.Config)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.name),
		Messages:  messages,
		MaxTokens: m.maxTokens,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	cfg := req.Config
	if cfg == nil {
		return params
	}
	if cfg.MaxOutputTokens > 0 {
		params.MaxTokens = int64(cfg.MaxOutputTokens)
	}
	if cfg.Temperature != nil {
		params.Temperature = anthropic.Float(float64(*cfg.Temperature))
	}
	if cfg.TopP != nil {
		params.TopP = anthropic.Float(float64(*cfg.TopP))
	}
	if cfg.TopK != nil {
		params.TopK = anthropic.Int(int64(*cfg.TopK))
	}
	params.Tools = toAnthropicTools(cfg.Tools)
	return params
}

func (m *Anthropic) generate(ctx context.Context, params anthropic.MessageNewParams, yield func(*model.LLMResponse, error) bool) {
	msg, err := m.client.Messages.New(ctx, params)
	if err != nil {
		yield(nil, fmt.Errorf("anthropic request failed: %w", err))
		return
	}

	parts := make([]*genai.Part, 0, len(msg.Content))
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			parts = append(parts, genai.NewPartFromText(b.Text))
		case anthropic.ToolUseBlock:
			parts = append(parts, functionCallPart(b.ID, b.Name, string(b.Input)))
		}
	}

	var usage *genai.GenerateContentResponseUsageMetadata
	if msg.Usage.InputTokens > 0 || msg.Usage.OutputTokens > 0 {
		usage = &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     int32(msg.Usage.InputTokens),
			CandidatesTokenCount: int32(msg.Usage.OutputTokens),
			TotalTokenCount:      int32(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		}
	}

	yield(&model.LLMResponse{
		Content:       &genai.Content{Role: genai.RoleModel, Parts: parts},
		FinishReason:  finishReason(msg.StopReason),
		UsageMetadata: usage,
		TurnComplete:  true,
	}, nil)
}

// toolUse accumulates a streamed tool_use block.
type toolUse struct {
	id, name string
	input    strings.Builder
}

func (m *Anthropic) generateStream(ctx context.Context, params anthropic.MessageNewParams, yield func(*model.LLMResponse, error) bool) {
	stream := m.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	var text strings.Builder
	tools := map[int64]*toolUse{}
	var stopReason anthropic.StopReason

	for stream.Next() {
		switch ev := stream.Current().AsAny().(type) {
		case anthropic.ContentBlockStartEvent:
			if tu, ok := ev.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
				tools[ev.Index] = &toolUse{id: tu.ID, name: tu.Name}
			}
		case anthropic.ContentBlockDeltaEvent:
			switch d := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				text.WriteString(d.Text)
				if !yield(&model.LLMResponse{
					Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{genai.NewPartFromText(d.Text)}},
					Partial: true,
				}, nil) {
					return
				}
			case anthropic.InputJSONDelta:
				if tu := tools[ev.Index]; tu != nil {
					tu.input.WriteString(d.PartialJSON)
				}
			}
		case anthropic.MessageDeltaEvent:
			stopReason = ev.Delta.StopReason
		}
	}
	if err := stream.Err(); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		yield(nil, fmt.Errorf("anthropic stream failed: %w", err))
		return
	}

	var parts []*genai.Part
	if text.Len() > 0 {
		parts = append(parts, genai.NewPartFromText(text.String()))
	}
	indices := make([]int64, 0, len(tools))
	for i := range tools {
		indices = append(indices, i)
	}
	sort.Slice(indices, func(a, b int) bool { return indices[a] < indices[b] })
	for _, i := range indices {
		tu := tools[i]
		parts = append(parts, functionCallPart(tu.id, tu.name, tu.input.String()))
	}

	yield(&model.LLMResponse{
		Content:      &genai.Content{Role: genai.RoleModel, Parts: parts},
		FinishReason: finishReason(stopReason),
		TurnComplete: true,
	}, nil)
}

func functionCallPart(id, name, input string) *genai.Part {
	args := map[string]any{}
	if input != "" {
		_ = json.Unmarshal([]byte(input), &args)
	}
	p := genai.NewPartFromFunctionCall(name, args)
	p.FunctionCall.ID = id
	return p
}

func finishReason(reason anthropic.StopReason) genai.FinishReason {
	if reason == anthropic.StopReasonMaxTokens {
		return genai.FinishReasonMaxTokens
	}
	return genai.FinishReasonStop
}

// toAnthropicMessages converts the conversation. Consecutive contents of the
// same role are merged, since the Messages API expects alternating turns.
// Thoughts and inline data other than images are dropped.
func toAnthropicMessages(contents []*genai.Content, cfg *genai.GenerateContentConfig) ([]anthropic.MessageParam, string) {
	var system []string
	if cfg != nil && cfg.SystemInstruction != nil {
		for _, p := range cfg.SystemInstruction.Parts {
			if p != nil && p.Text != "" {
				system = append(system, p.Text)
			}
		}
	}

	var messages []anthropic.MessageParam
	for _, c := range contents {
		if c == nil {
			continue
		}
		role := anthropic.MessageParamRoleUser
		if c.Role == genai.RoleModel {
			role = anthropic.MessageParamRoleAssistant
		}

		var blocks []anthropic.ContentBlockParamUnion
		for _, p := range c.Parts {
			if b, ok := toContentBlock(p); ok {
				blocks = append(blocks, b)
			}
		}
		if len(blocks) == 0 {
			continue
		}
		if n := len(messages); n > 0 && messages[n-1].Role == role {
			messages[n-1].Content = append(messages[n-1].Content, blocks...)
			continue
		}
		messages = append(messages, anthropic.MessageParam{Role: role, Content: blocks})
	}
	return messages, strings.Join(system, "\n")
}

func toContentBlock(p *genai.Part) (anthropic.ContentBlockParamUnion, bool) {
	switch {
	case p == nil || p.Thought:
		return anthropic.ContentBlockParamUnion{}, false
	case p.FunctionCall != nil:
		args := p.FunctionCall.Args
		if args == nil {
			args = map[string]any{}
		}
		return anthropic.NewToolUseBlock(p.FunctionCall.ID, args, p.FunctionCall.Name), true
	case p.FunctionResponse != nil:
		return anthropic.NewToolResultBlock(p.FunctionResponse.ID, functionResponseText(p.FunctionResponse.Response), false), true
	case p.InlineData != nil && strings.HasPrefix(p.InlineData.MIMEType, "image/"):
		return anthropic.NewImageBlockBase64(p.InlineData.MIMEType, base64.StdEncoding.EncodeToString(p.InlineData.Data)), true
	case p.Text != "":
		return anthropic.NewTextBlock(p.Text), true
	}
	return anthropic.ContentBlockParamUnion{}, false
}

// functionResponseText flattens a tool result. Agent tools answer with a
// single "result" string, which is passed through as is.
func functionResponseText(resp map[string]any) string {
	if len(resp) == 1 {
		if s, ok := resp["result"].(string); ok {
			return s
		}
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return fmt.Sprintf("%v", resp)
	}
	return string(b)
}

// toAnthropicTools converts function declarations. Built-in Gemini tools such
// as Google Search have no Anthropic equivalent and are skipped.
func toAnthropicTools(tools []*genai.Tool) []anthropic.ToolUnionParam {
	var out []anthropic.ToolUnionParam
	for _, t := range tools {
		if t == nil {
			continue
		}
		for _, fd := range t.FunctionDeclarations {
			if fd == nil {
				continue
			}
			schema := declarationSchema(fd)
			input := anthropic.ToolInputSchemaParam{Properties: map[string]any{}}
			if props, ok := schema["properties"].(map[string]any); ok {
				input.Properties = props
			}
			switch req := schema["required"].(type) {
			case []string:
				input.Required = req
			case []any:
				for _, r := range req {
					if s, ok := r.(string); ok {
						input.Required = append(input.Required, s)
					}
				}
			}
			tool := anthropic.ToolParam{
				Name:        fd.Name,
				Description: anthropic.String(fd.Description),
				InputSchema: input,
			}
			out = append(out, anthropic.ToolUnionParam{OfTool: &tool})
		}
	}
	return out
}

// declarationSchema returns the parameter schema as a JSON Schema object.
// Function tools carry ParametersJsonSchema; agent tools carry a genai.Schema.
func declarationSchema(fd *genai.FunctionDeclaration) map[string]any {
	if fd.ParametersJsonSchema != nil {
		b, err := json.Marshal(fd.ParametersJsonSchema)
		if err != nil {
			return nil
		}
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			return nil
		}
		return m
	}
	return schemaToJSON(fd.Parameters)
}

func schemaToJSON(s *genai.Schema) map[string]any {
	if s == nil {
		return nil
	}
	out := map[string]any{}
	if s.Type != "" {
		out["type"] = strings.ToLower(string(s.Type))
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if s.Items != nil {
		out["items"] = schemaToJSON(s.Items)
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = schemaToJSON(p)
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}
