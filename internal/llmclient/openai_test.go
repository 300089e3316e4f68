package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func sseServer(t *testing.T, lines []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprintf(w, "data: %s\n\n", line)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func textChunk(s string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"delta": map[string]any{"content": s}}},
	})
	return string(b)
}

func toolChunk(name, args string) string {
	fn := map[string]any{"arguments": args}
	if name != "" {
		fn["name"] = name
	}
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"delta": map[string]any{
			"tool_calls": []map[string]any{{"type": "function", "function": fn}},
		}}},
	})
	return string(b)
}

func TestOpenAI_StreamJSONObject(t *testing.T) {
	srv := sseServer(t, []string{
		textChunk(`{"icon": "cal`),
		textChunk(`endar", "html"`),
		textChunk(`: "<div></div>"}`),
	})
	defer srv.Close()

	cli, err := NewOpenAIClient("test-key", "", srv.URL)
	require.NoError(t, err)

	var snapshots []string
	final, err := cli.StreamJSONObject(context.Background(), "make an app", func(raw json.RawMessage) {
		snapshots = append(snapshots, string(raw))
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"icon":"calendar","html":"<div></div>"}`, string(final))
	require.NotEmpty(t, snapshots)
	// The first snapshot already carries the truncated icon prefix.
	require.Contains(t, snapshots[0], "cal")
}

func TestOpenAI_StreamJSONObject_NoOutput(t *testing.T) {
	srv := sseServer(t, nil)
	defer srv.Close()

	cli, err := NewOpenAIClient("test-key", "", srv.URL)
	require.NoError(t, err)
	_, err = cli.StreamJSONObject(context.Background(), "x", nil)
	require.ErrorIs(t, err, ErrNoOutput)
}

func TestOpenAI_StreamChat_ToolCallDeltas(t *testing.T) {
	srv := sseServer(t, []string{
		toolChunk("edit_program", `{"js": "ale`),
		toolChunk("", `rt(1)"}`),
	})
	defer srv.Close()

	cli, err := NewOpenAIClient("test-key", "", srv.URL)
	require.NoError(t, err)

	var partials int
	final, err := cli.StreamChat(context.Background(),
		[]ChatMessage{{Role: RoleUser, Content: "fix it"}},
		[]FunctionSpec{{Name: "edit_program", Parameters: map[string]ParamSpec{"js": {}}}},
		func(ChatMessage) { partials++ })
	require.NoError(t, err)
	require.NotNil(t, final.FunctionCall)
	require.Equal(t, "edit_program", final.FunctionCall.Name)
	require.Equal(t, `{"js": "alert(1)"}`, final.FunctionCall.Arguments)
	require.Equal(t, 2, partials)
}

func TestOpenAI_StreamChat_Text(t *testing.T) {
	srv := sseServer(t, []string{textChunk("Hello"), textChunk(" there")})
	defer srv.Close()

	cli, err := NewOpenAIClient("test-key", "", srv.URL)
	require.NoError(t, err)

	final, err := cli.StreamChat(context.Background(),
		[]ChatMessage{{Role: RoleUser, Content: "hi"}}, nil, nil)
	require.NoError(t, err)
	require.Nil(t, final.FunctionCall)
	require.Equal(t, "Hello there", final.Content)
}

func TestOpenAI_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"code":"context_length_exceeded"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	cli, err := NewOpenAIClient("test-key", "", srv.URL)
	require.NoError(t, err)
	_, err = cli.StreamJSONObject(context.Background(), "x", nil)
	var perm *PermanentError
	require.ErrorAs(t, err, &perm)
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient("", "", "")
	require.ErrorIs(t, err, ErrNoKey)
}
