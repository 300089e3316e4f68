package llmclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOpenAIModel   = "gpt-4o"
	defaultOpenAIBaseURL = "https://api.openai.com/v1/chat/completions"
)

// OpenAIClient calls an OpenAI-compatible Chat Completions API with SSE
// streaming enabled.
type OpenAIClient struct {
	http    *http.Client
	apiKey  string
	model   string
	baseURL string
}

// NewOpenAIClient creates a client. Empty model/baseURL take the defaults,
// so the same client type also serves compatible providers.
func NewOpenAIClient(apiKey, model, baseURL string) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoKey
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIClient{
		http:    &http.Client{Timeout: 5 * time.Minute},
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
	}, nil
}

func (c *OpenAIClient) Name() string { return "OpenAI:" + c.model }
func (c *OpenAIClient) Close() error { return nil }

type openAIChatReq struct {
	Model          string            `json:"model"`
	Messages       []openAIMessage   `json:"messages"`
	Temperature    float32           `json:"temperature"`
	Stream         bool              `json:"stream"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
	Tools          []openAITool      `json:"tools,omitempty"`
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	Name       string           `json:"name,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
}

type openAIToolCall struct {
	ID       string             `json:"id,omitempty"`
	Type     string             `json:"type,omitempty"`
	Function openAIFunctionCall `json:"function"`
}

type openAIFunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type openAITool struct {
	Type     string            `json:"type"`
	Function openAIFunctionDef `json:"function"`
}

type openAIFunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

type openAIStreamResp struct {
	Choices []struct {
		Delta struct {
			Content   string           `json:"content"`
			ToolCalls []openAIToolCall `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// StreamJSONObject requests json_object output over a streaming completion.
func (c *OpenAIClient) StreamJSONObject(ctx context.Context, system string, onPartial func(raw json.RawMessage)) (json.RawMessage, error) {
	req := openAIChatReq{
		Model:          c.model,
		Messages:       []openAIMessage{{Role: "system", Content: system}},
		Temperature:    0.5,
		Stream:         true,
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	var acc string
	var last json.RawMessage
	err := c.stream(ctx, req, func(resp openAIStreamResp) {
		if len(resp.Choices) == 0 {
			return
		}
		acc += resp.Choices[0].Delta.Content
		if fixed := CompleteTruncated([]byte(StripCodeFence(acc))); fixed != nil {
			last = fixed
			if onPartial != nil {
				onPartial(fixed)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	if last == nil {
		return nil, ErrNoOutput
	}
	return last, nil
}

// StreamChat streams a chat completion; tool-call argument deltas accumulate
// into a growing FunctionCall snapshot.
func (c *OpenAIClient) StreamChat(ctx context.Context, transcript []ChatMessage, functions []FunctionSpec, onPartial func(ChatMessage)) (ChatMessage, error) {
	req := openAIChatReq{
		Model:       c.model,
		Messages:    toOpenAIMessages(transcript),
		Temperature: 0.5,
		Stream:      true,
	}
	for _, fn := range functions {
		props := make(map[string]any, len(fn.Parameters))
		for name, p := range fn.Parameters {
			typ := p.Type
			if typ == "" {
				typ = "string"
			}
			prop := map[string]any{"type": typ}
			if p.Description != "" {
				prop["description"] = p.Description
			}
			props[name] = prop
		}
		req.Tools = append(req.Tools, openAITool{
			Type: "function",
			Function: openAIFunctionDef{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters: map[string]any{
					"type":       "object",
					"properties": props,
				},
			},
		})
	}

	snapshot := ChatMessage{Role: RoleAssistant}
	produced := false
	err := c.stream(ctx, req, func(resp openAIStreamResp) {
		if len(resp.Choices) == 0 {
			return
		}
		delta := resp.Choices[0].Delta
		if delta.Content != "" {
			snapshot.Content += delta.Content
			produced = true
		}
		for _, tc := range delta.ToolCalls {
			if snapshot.FunctionCall == nil {
				snapshot.FunctionCall = &FunctionCall{}
			}
			if tc.Function.Name != "" {
				snapshot.FunctionCall.Name = tc.Function.Name
			}
			snapshot.FunctionCall.Arguments += tc.Function.Arguments
			produced = true
		}
		if produced && onPartial != nil {
			onPartial(snapshot)
		}
	})
	if err != nil {
		return ChatMessage{}, err
	}
	if !produced {
		return ChatMessage{}, ErrNoOutput
	}
	return snapshot, nil
}

// stream posts the request and decodes the SSE response line by line.
func (c *OpenAIClient) stream(ctx context.Context, reqBody openAIChatReq, onChunk func(openAIStreamResp)) error {
	b, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		const max = 2048
		if len(body) > max {
			body = body[:max]
		}
		err := fmt.Errorf("openai: unexpected status %s: %s", resp.Status, string(body))
		if resp.StatusCode == http.StatusBadRequest && bytes.Contains(body, []byte(`"context_length_exceeded"`)) {
			return NewPermanentError(err)
		}
		return err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "data: [DONE]") {
			break
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var chunk openAIStreamResp
		if err := json.Unmarshal([]byte(line[6:]), &chunk); err != nil {
			return fmt.Errorf("openai: decode stream chunk: %w", err)
		}
		onChunk(chunk)
	}
	return scanner.Err()
}

func toOpenAIMessages(transcript []ChatMessage) []openAIMessage {
	out := make([]openAIMessage, 0, len(transcript))
	for _, m := range transcript {
		msg := openAIMessage{Role: string(m.Role), Content: m.Content}
		switch m.Role {
		case RoleAssistant:
			if m.FunctionCall != nil {
				msg.ToolCalls = []openAIToolCall{{
					ID:   "call_" + m.FunctionCall.Name,
					Type: "function",
					Function: openAIFunctionCall{
						Name:      m.FunctionCall.Name,
						Arguments: m.FunctionCall.Arguments,
					},
				}}
			}
		case RoleFunction:
			msg.Role = "tool"
			msg.ToolCallID = "call_" + m.FunctionName
		}
		out = append(out, msg)
	}
	return out
}

var _ StreamingLLM = (*OpenAIClient)(nil)
