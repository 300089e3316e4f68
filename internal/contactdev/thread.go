// Package contactdev runs the support-chat conversation with a program's
// fictional developer. The model answers in character and edits the
// program through the edit_program function; committed edits flow through
// the document store like any other mutation.
package contactdev

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand/v2"
	"strings"
	"sync"

	"tinyapps/internal/docstore"
	"tinyapps/internal/llmclient"
	"tinyapps/internal/program"
	"tinyapps/internal/prompts"
)

// Kind discriminates transcript entries.
type Kind string

const (
	KindSystem        Kind = "system"
	KindUser          Kind = "user"
	KindHiddenUser    Kind = "hiddenUser"
	KindAssistantText Kind = "assistantText"
	KindEditProposal  Kind = "editProposal"
	KindEditAck       Kind = "editAck"
	KindError         Kind = "error"
)

// Message is one transcript entry. Edit is set only for editProposal.
type Message struct {
	Kind Kind                `json:"kind"`
	Text string              `json:"text,omitempty"`
	Edit *program.EditParams `json:"edit,omitempty"`
}

const editFunctionName = "edit_program"

// maxEditRounds bounds consecutive model turns in one Send, so a model
// that keeps calling edit_program without ever answering cannot loop
// forever.
const maxEditRounds = 8

const compactedPlaceholder = "...Old content omitted..."

var greetings = []string{
	"What's up?",
	"Ugh, what do you want?",
	"Hi! Thanks so much for reaching out. I'm sorry you're not having a good experience with the app. What can I do for you?",
	"Hi... can I fix the app for you?",
	"Feature request? Bug? What is it?",
}

// Thread is the conversation for one program. All exported methods are
// safe for concurrent use; transcript mutations happen under one mutex so
// observers always see a consistent snapshot.
type Thread struct {
	ProgramID string
	Store     *docstore.Store

	// LLM overrides credential resolution when set. Otherwise Credentials
	// and NewClient build a client per Send, defaulting to the environment.
	LLM         llmclient.StreamingLLM
	Credentials llmclient.CredentialSource
	NewClient   llmclient.Factory

	mu sync.Mutex
	// messages is the committed transcript; pending is the current
	// in-progress model turn, promoted to committed on stream completion
	// or when a newer Send supersedes it.
	messages []Message
	pending  *Message
	typing   bool
	seeded   bool
	cancel   context.CancelFunc
	done     chan struct{}
	obs      map[int]func()
	nextObs  int
}

// SeedInitialMessages installs the hidden conversation prefix and the
// greeting. Repeat calls are no-ops.
func (t *Thread) SeedInitialMessages() {
	t.mu.Lock()
	if t.seeded {
		t.mu.Unlock()
		return
	}
	p, ok := t.Store.Get(t.ProgramID)
	if !ok {
		t.mu.Unlock()
		return
	}
	t.seeded = true
	t.messages = []Message{
		{Kind: KindSystem, Text: prompts.EditSeed(p.Title, p.Subtitle)},
		{Kind: KindEditProposal, Edit: fullStateEdit(p)},
		{Kind: KindEditAck},
		{Kind: KindHiddenUser, Text: "User entered the support chat. They may request edits to your program. Use the edit_program function to do this."},
		{Kind: KindAssistantText, Text: greetings[rand.IntN(len(greetings))]},
	}
	t.mu.Unlock()
	t.changed()
}

// Send appends the user's message and starts a model turn in the
// background. A still-running previous turn is cancelled first, so at most
// one request is in flight and only its outcome lands in the transcript.
func (t *Thread) Send(text string) {
	t.mu.Lock()
	if !t.seeded {
		t.mu.Unlock()
		return
	}
	if t.cancel != nil {
		t.cancel()
	}
	if t.pending != nil {
		t.messages = append(t.messages, *t.pending)
		t.pending = nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	done := make(chan struct{})
	t.done = done
	t.messages = append(t.messages, Message{Kind: KindUser, Text: text})
	t.typing = true
	t.mu.Unlock()
	t.changed()

	go func() {
		defer close(done)
		t.converse(ctx)
		t.mu.Lock()
		if ctx.Err() == nil {
			t.typing = false
		}
		t.mu.Unlock()
		t.changed()
	}()
}

// Typing reports whether a model turn is in flight.
func (t *Thread) Typing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.typing
}

// Messages returns a copy of the transcript, with the in-progress turn
// (if any) last.
func (t *Thread) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Message, 0, len(t.messages)+1)
	out = append(out, t.messages...)
	if t.pending != nil {
		out = append(out, *t.pending)
	}
	return out
}

// DisplayMessages returns the transcript without the seed prefix and
// without hidden or function-plumbing entries.
func (t *Thread) DisplayMessages() []Message {
	msgs := t.Messages()
	if len(msgs) > 0 && msgs[0].Kind == KindSystem {
		msgs = msgs[1:]
	}
	if len(msgs) > 0 && msgs[0].Kind == KindEditProposal {
		msgs = msgs[1:]
	}
	if len(msgs) > 0 && msgs[0].Kind == KindEditAck {
		msgs = msgs[1:]
	}
	out := msgs[:0:0]
	for _, m := range msgs {
		if m.Kind == KindHiddenUser || m.Kind == KindEditAck {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Close cancels any in-flight turn.
func (t *Thread) Close() {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.mu.Unlock()
}

// Observe registers fn to run after every transcript mutation. The
// returned func unregisters it.
func (t *Thread) Observe(fn func()) func() {
	t.mu.Lock()
	if t.obs == nil {
		t.obs = make(map[int]func())
	}
	id := t.nextObs
	t.nextObs++
	t.obs[id] = fn
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		delete(t.obs, id)
		t.mu.Unlock()
	}
}

func (t *Thread) changed() {
	t.mu.Lock()
	fns := make([]func(), 0, len(t.obs))
	for _, fn := range t.obs {
		fns = append(fns, fn)
	}
	t.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// wait blocks until the current background turn finishes. Test hook.
func (t *Thread) wait() {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (t *Thread) converse(ctx context.Context) {
	llm, err := t.client(ctx)
	if err != nil {
		t.fail(ctx, err)
		return
	}
	if llm != t.LLM {
		defer llm.Close()
	}

	for round := 0; round < maxEditRounds; round++ {
		if ctx.Err() != nil {
			return
		}
		transcript := t.transcript()

		final, err := llm.StreamChat(ctx, transcript, functionSpecs(), func(partial llmclient.ChatMessage) {
			if msg := parseReply(partial, false); msg != nil {
				t.setPending(ctx, *msg)
			}
		})
		if err != nil {
			t.fail(ctx, err)
			return
		}

		msg := parseReply(final, true)
		if msg == nil {
			t.dropPending(ctx)
			return
		}
		t.promote(ctx, *msg)

		if msg.Kind != KindEditProposal {
			return
		}
		if ctx.Err() != nil {
			return
		}
		t.Store.Upsert(t.ProgramID, func(p *program.Program) {
			p.ApplyEdit(*msg.Edit)
		})
		t.append(ctx, Message{Kind: KindEditAck})
	}
	log.Printf("contactdev %s: stopping after %d edit rounds", t.ProgramID, maxEditRounds)
}

// setPending installs the turn's latest streamed snapshot. Writes from a
// superseded turn are dropped.
func (t *Thread) setPending(ctx context.Context, msg Message) {
	t.mu.Lock()
	if ctx.Err() != nil {
		t.mu.Unlock()
		return
	}
	t.pending = &msg
	t.mu.Unlock()
	t.changed()
}

// promote commits the finished turn to the transcript.
func (t *Thread) promote(ctx context.Context, msg Message) {
	t.mu.Lock()
	if ctx.Err() != nil {
		t.mu.Unlock()
		return
	}
	t.pending = nil
	t.messages = append(t.messages, msg)
	t.mu.Unlock()
	t.changed()
}

func (t *Thread) dropPending(ctx context.Context) {
	t.mu.Lock()
	if ctx.Err() != nil || t.pending == nil {
		t.mu.Unlock()
		return
	}
	t.pending = nil
	t.mu.Unlock()
	t.changed()
}

func (t *Thread) append(ctx context.Context, msg Message) {
	t.mu.Lock()
	if ctx.Err() != nil {
		t.mu.Unlock()
		return
	}
	t.messages = append(t.messages, msg)
	t.mu.Unlock()
	t.changed()
}

func (t *Thread) fail(ctx context.Context, err error) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return
	}
	log.Printf("contactdev %s: %v", t.ProgramID, err)
	t.dropPending(ctx)
	t.append(ctx, Message{Kind: KindError, Text: err.Error()})
}

func (t *Thread) client(ctx context.Context) (llmclient.StreamingLLM, error) {
	if t.LLM != nil {
		return t.LLM, nil
	}
	source := t.Credentials
	if source == nil {
		source = llmclient.EnvCredentials{}
	}
	creds, err := source.GetOrResolve(ctx)
	if err != nil {
		return nil, err
	}
	factory := t.NewClient
	if factory == nil {
		factory = llmclient.DefaultFactory
	}
	return factory(ctx, creds)
}

// transcript maps the thread onto chat messages for the model. All edit
// proposals except the last collapse to a placeholder; the last one is
// rehydrated from the store so the model always sees the real current
// code, even when the proposal that produced it was streamed partially.
func (t *Thread) transcript() []llmclient.ChatMessage {
	current, _ := t.Store.Get(t.ProgramID)

	t.mu.Lock()
	defer t.mu.Unlock()

	lastEdit := -1
	for i, m := range t.messages {
		if m.Kind == KindEditProposal {
			lastEdit = i
		}
	}

	out := make([]llmclient.ChatMessage, 0, len(t.messages))
	for i, m := range t.messages {
		cm := toChatMessage(m)
		if m.Kind == KindEditProposal {
			if i != lastEdit {
				cm.FunctionCall.Arguments = compactedPlaceholder
			} else {
				cm.FunctionCall.Arguments = editArgsJSON(fullStateEdit(current))
			}
		}
		out = append(out, cm)
	}
	return out
}

func toChatMessage(m Message) llmclient.ChatMessage {
	switch m.Kind {
	case KindSystem:
		return llmclient.ChatMessage{Role: llmclient.RoleSystem, Content: m.Text}
	case KindUser, KindHiddenUser:
		return llmclient.ChatMessage{Role: llmclient.RoleUser, Content: m.Text}
	case KindAssistantText:
		return llmclient.ChatMessage{Role: llmclient.RoleAssistant, Content: m.Text}
	case KindEditProposal:
		return llmclient.ChatMessage{
			Role: llmclient.RoleAssistant,
			FunctionCall: &llmclient.FunctionCall{
				Name:      editFunctionName,
				Arguments: editArgsJSON(m.Edit),
			},
		}
	case KindEditAck:
		return llmclient.ChatMessage{Role: llmclient.RoleFunction, Content: "OK", FunctionName: editFunctionName}
	case KindError:
		return llmclient.ChatMessage{Role: llmclient.RoleSystem, Content: "Error: " + m.Text}
	}
	return llmclient.ChatMessage{Role: llmclient.RoleSystem, Content: m.Text}
}

// parseReply maps a streamed model message onto a transcript entry.
// Partial function-call arguments get best-effort repair so observers can
// watch the edit grow; the final arguments must parse as-is, and a final
// proposal that doesn't parse degrades to an empty (no-op) edit.
func parseReply(m llmclient.ChatMessage, final bool) *Message {
	if m.FunctionCall != nil {
		if m.FunctionCall.Name != editFunctionName {
			return nil
		}
		var params program.EditParams
		raw := []byte(m.FunctionCall.Arguments)
		if final {
			if err := json.Unmarshal(raw, &params); err != nil {
				params = program.EditParams{}
			}
		} else {
			_ = llmclient.DecodePartial(raw, &params)
		}
		return &Message{Kind: KindEditProposal, Edit: &params}
	}
	if m.Role == llmclient.RoleAssistant {
		return &Message{Kind: KindAssistantText, Text: m.Content}
	}
	return nil
}

func functionSpecs() []llmclient.FunctionSpec {
	return []llmclient.FunctionSpec{{
		Name:        editFunctionName,
		Description: "Update the code of your program. Only update fields you need to change. If, for example, you want to change JS but not HTML, only set the JS field. (This would replace existing JS)",
		Parameters: map[string]llmclient.ParamSpec{
			"js":   {Type: "string"},
			"css":  {Type: "string"},
			"html": {Type: "string"},
			"icon": {Type: "string"},
		},
	}}
}

func fullStateEdit(p program.Program) *program.EditParams {
	html, css, js, icon := p.HTML, p.CSS, p.JS, p.IconName
	return &program.EditParams{HTML: &html, CSS: &css, JS: &js, Icon: &icon}
}

// editArgsJSON serializes edit arguments without HTML escaping so the
// model sees the program's markup as written, not as < escapes.
func editArgsJSON(e *program.EditParams) string {
	if e == nil {
		return "{}"
	}
	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return "{}"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
