// Package llmclient wraps the model backends behind two streaming call
// shapes: a structured-JSON completion used by generation sessions, and a
// chat completion with optional function calling used by edit conversations.
package llmclient

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrNoOutput reports a stream that ended without a single decodable
	// partial.
	ErrNoOutput = errors.New("llmclient: model produced no output")
	// ErrNoKey reports missing credentials; sessions abort before any call.
	ErrNoKey = errors.New("llmclient: no api key configured")
)

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// Role labels one transcript entry.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleFunction  Role = "function"
)

// FunctionCall is a (possibly partial, mid-stream) function invocation
// emitted by the model. Arguments is the raw JSON argument text streamed so
// far.
type FunctionCall struct {
	Name      string
	Arguments string
}

// ChatMessage is one transcript entry sent to or received from the model.
type ChatMessage struct {
	Role    Role
	Content string
	// FunctionCall is set on assistant turns that invoke a function.
	FunctionCall *FunctionCall
	// FunctionName identifies the function a RoleFunction result belongs to.
	FunctionName string
}

// ParamSpec describes one function parameter.
type ParamSpec struct {
	Type        string
	Description string
}

// FunctionSpec declares one callable function to the model.
type FunctionSpec struct {
	Name        string
	Description string
	Parameters  map[string]ParamSpec
}

// StreamingLLM is the client contract the sessions consume.
//
// StreamJSONObject issues a single structured-output request. onPartial is
// invoked with a cumulative, repaired-JSON snapshot after every chunk; the
// returned value is the final complete JSON, or ErrNoOutput when the stream
// ended without producing any decodable snapshot.
//
// StreamChat issues a chat completion over the full transcript with the
// given function schema. onPartial is invoked with a growing snapshot of the
// model's turn (plain text, or a function call with partial arguments); the
// final snapshot is returned.
type StreamingLLM interface {
	Name() string
	Close() error
	StreamJSONObject(ctx context.Context, system string, onPartial func(raw json.RawMessage)) (json.RawMessage, error)
	StreamChat(ctx context.Context, transcript []ChatMessage, functions []FunctionSpec, onPartial func(ChatMessage)) (ChatMessage, error)
}
