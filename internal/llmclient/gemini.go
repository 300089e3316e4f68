package llmclient

import (
	"context"
	"encoding/json"

	genai "google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

// NewGeminiClient builds a client for the Gemini API backend.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  apiKey,
	})
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

// StreamJSONObject streams a structured completion, surfacing a repaired
// cumulative snapshot per chunk.
func (g *GeminiClient) StreamJSONObject(ctx context.Context, system string, onPartial func(raw json.RawMessage)) (json.RawMessage, error) {
	contents := []*genai.Content{
		{Role: genai.RoleUser, Parts: []*genai.Part{{Text: system}}},
	}
	config := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}

	var acc string
	var last json.RawMessage
	var streamErr error
	for resp, err := range g.cli.Models.GenerateContentStream(ctx, g.model, contents, config) {
		if err != nil {
			streamErr = err
			break
		}
		acc += chunkText(resp)
		if fixed := CompleteTruncated([]byte(StripCodeFence(acc))); fixed != nil {
			last = fixed
			if onPartial != nil {
				onPartial(fixed)
			}
		}
	}
	if streamErr != nil {
		return nil, streamErr
	}
	if last == nil {
		return nil, ErrNoOutput
	}
	return last, nil
}

// StreamChat streams a chat completion with the edit function declared as a
// Gemini tool.
func (g *GeminiClient) StreamChat(ctx context.Context, transcript []ChatMessage, functions []FunctionSpec, onPartial func(ChatMessage)) (ChatMessage, error) {
	config := &genai.GenerateContentConfig{}
	contents := make([]*genai.Content, 0, len(transcript))
	for _, m := range transcript {
		switch m.Role {
		case RoleSystem:
			config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: m.Content}}}
		case RoleUser:
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser, Parts: []*genai.Part{{Text: m.Content}},
			})
		case RoleAssistant:
			part := &genai.Part{Text: m.Content}
			if m.FunctionCall != nil {
				part = &genai.Part{FunctionCall: &genai.FunctionCall{
					Name: m.FunctionCall.Name,
					Args: argsToMap(m.FunctionCall.Arguments),
				}}
			}
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{part}})
		case RoleFunction:
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{FunctionResponse: &genai.FunctionResponse{
					Name:     m.FunctionName,
					Response: map[string]any{"result": m.Content},
				}}},
			})
		}
	}
	if len(functions) > 0 {
		tool := &genai.Tool{}
		for _, fn := range functions {
			props := make(map[string]*genai.Schema, len(fn.Parameters))
			for name, p := range fn.Parameters {
				props[name] = &genai.Schema{Type: genai.TypeString, Description: p.Description}
			}
			tool.FunctionDeclarations = append(tool.FunctionDeclarations, &genai.FunctionDeclaration{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: props},
			})
		}
		config.Tools = []*genai.Tool{tool}
	}

	snapshot := ChatMessage{Role: RoleAssistant}
	produced := false
	var streamErr error
	for resp, err := range g.cli.Models.GenerateContentStream(ctx, g.model, contents, config) {
		if err != nil {
			streamErr = err
			break
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		for _, part := range resp.Candidates[0].Content.Parts {
			if part == nil {
				continue
			}
			if part.FunctionCall != nil {
				args, err := json.Marshal(part.FunctionCall.Args)
				if err != nil {
					args = []byte("{}")
				}
				snapshot.FunctionCall = &FunctionCall{
					Name:      part.FunctionCall.Name,
					Arguments: string(args),
				}
				produced = true
				continue
			}
			if part.Text != "" {
				snapshot.Content += part.Text
				produced = true
			}
		}
		if produced && onPartial != nil {
			onPartial(snapshot)
		}
	}
	if streamErr != nil {
		return ChatMessage{}, streamErr
	}
	if !produced {
		return ChatMessage{}, ErrNoOutput
	}
	return snapshot, nil
}

func chunkText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	out := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			out += part.Text
		}
	}
	return out
}

func argsToMap(arguments string) map[string]any {
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

var _ StreamingLLM = (*GeminiClient)(nil)
