package contactdev

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"tinyapps/internal/docstore"
	"tinyapps/internal/llmclient"
	"tinyapps/internal/program"
)

type chatScript struct {
	partials []llmclient.ChatMessage
	final    llmclient.ChatMessage
	err      error
	// block delays the final reply (after any partials) until the channel
	// closes or the context is cancelled, for exercising cancellation.
	block chan struct{}
	// started closes once this script's partials have been delivered.
	started chan struct{}
}

type fakeChat struct {
	mu      sync.Mutex
	scripts []chatScript
	repeat  *chatScript
	calls   [][]llmclient.ChatMessage
}

func (f *fakeChat) Name() string { return "fake" }
func (f *fakeChat) Close() error { return nil }

func (f *fakeChat) StreamJSONObject(context.Context, string, func(json.RawMessage)) (json.RawMessage, error) {
	panic("not used")
}

func (f *fakeChat) StreamChat(ctx context.Context, transcript []llmclient.ChatMessage, _ []llmclient.FunctionSpec, onPartial func(llmclient.ChatMessage)) (llmclient.ChatMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, transcript)
	var sc chatScript
	switch {
	case len(f.scripts) > 0:
		sc = f.scripts[0]
		f.scripts = f.scripts[1:]
	case f.repeat != nil:
		sc = *f.repeat
	default:
		sc = chatScript{final: llmclient.ChatMessage{Role: llmclient.RoleAssistant, Content: "ok"}}
	}
	f.mu.Unlock()

	for _, p := range sc.partials {
		if onPartial != nil {
			onPartial(p)
		}
	}
	if sc.started != nil {
		close(sc.started)
	}
	if sc.block != nil {
		select {
		case <-ctx.Done():
			return llmclient.ChatMessage{}, ctx.Err()
		case <-sc.block:
		}
	}
	if sc.err != nil {
		return llmclient.ChatMessage{}, sc.err
	}
	return sc.final, nil
}

func assistantText(s string) llmclient.ChatMessage {
	return llmclient.ChatMessage{Role: llmclient.RoleAssistant, Content: s}
}

func editCall(args string) llmclient.ChatMessage {
	return llmclient.ChatMessage{
		Role:         llmclient.RoleAssistant,
		FunctionCall: &llmclient.FunctionCall{Name: "edit_program", Arguments: args},
	}
}

func seedProgram(t *testing.T) (*docstore.Store, *Thread, *fakeChat) {
	t.Helper()
	store := docstore.New(filepath.Join(t.TempDir(), "store.json"))
	store.Upsert("p1", func(p *program.Program) {
		p.Title = "Timer"
		p.Subtitle = "A countdown timer"
		p.HTML = "<div>t</div>"
		p.CSS = "div{}"
		p.JS = "tick()"
		p.IconName = "clock"
	})
	llm := &fakeChat{}
	th := &Thread{ProgramID: "p1", Store: store, LLM: llm}
	th.SeedInitialMessages()
	return store, th, llm
}

func countKind(msgs []Message, k Kind) int {
	n := 0
	for _, m := range msgs {
		if m.Kind == k {
			n++
		}
	}
	return n
}

func TestSeedInitialMessages(t *testing.T) {
	_, th, _ := seedProgram(t)
	msgs := th.Messages()
	if len(msgs) != 5 {
		t.Fatalf("seed length = %d", len(msgs))
	}
	if msgs[0].Kind != KindSystem || !strings.Contains(msgs[0].Text, "Timer") {
		t.Fatalf("bad system seed: %+v", msgs[0])
	}
	if msgs[1].Kind != KindEditProposal || msgs[1].Edit == nil || *msgs[1].Edit.JS != "tick()" {
		t.Fatalf("seed proposal should carry full program state: %+v", msgs[1])
	}
	if msgs[2].Kind != KindEditAck || msgs[3].Kind != KindHiddenUser {
		t.Fatalf("bad seed shape: %+v", msgs)
	}
	if msgs[4].Kind != KindAssistantText || msgs[4].Text == "" {
		t.Fatalf("missing greeting: %+v", msgs[4])
	}

	th.SeedInitialMessages()
	if got := len(th.Messages()); got != 5 {
		t.Fatalf("reseed duplicated messages: %d", got)
	}

	// The visible transcript starts at the greeting.
	disp := th.DisplayMessages()
	if len(disp) != 1 || disp[0].Kind != KindAssistantText {
		t.Fatalf("display = %+v", disp)
	}
}

func TestSend_TextReply(t *testing.T) {
	_, th, llm := seedProgram(t)
	llm.scripts = []chatScript{{
		partials: []llmclient.ChatMessage{assistantText("Su"), assistantText("Sure")},
		final:    assistantText("Sure!"),
	}}

	th.Send("can you help?")
	th.wait()

	msgs := th.Messages()
	last := msgs[len(msgs)-1]
	if last.Kind != KindAssistantText || last.Text != "Sure!" {
		t.Fatalf("last = %+v", last)
	}
	// Streamed snapshots replace each other; one reply entry total.
	if n := countKind(msgs, KindAssistantText); n != 2 {
		t.Fatalf("assistant entries = %d", n)
	}
	if th.Typing() {
		t.Fatal("typing should clear after the turn")
	}
}

func TestSend_EditProposalCommitsAndCompacts(t *testing.T) {
	store, th, llm := seedProgram(t)
	llm.scripts = []chatScript{
		{
			partials: []llmclient.ChatMessage{editCall(`{"js":"ale`)},
			final:    editCall(`{"js":"alert(2)"}`),
		},
		{final: assistantText("Done!")},
	}

	th.Send("make it beep")
	th.wait()

	p, _ := store.Get("p1")
	if p.JS != "alert(2)" {
		t.Fatalf("js = %q", p.JS)
	}
	// Partial merge: untouched fields survive.
	if p.HTML != "<div>t</div>" || p.IconName != "clock" {
		t.Fatalf("edit clobbered unrelated fields: %+v", p)
	}

	msgs := th.Messages()
	if countKind(msgs, KindEditProposal) != 2 || countKind(msgs, KindEditAck) != 2 {
		t.Fatalf("transcript shape: %+v", msgs)
	}
	if last := msgs[len(msgs)-1]; last.Kind != KindAssistantText || last.Text != "Done!" {
		t.Fatalf("last = %+v", last)
	}

	// The follow-up request sees old proposals compacted and the latest
	// one rehydrated from the store.
	second := llm.calls[1]
	var edits []string
	for _, m := range second {
		if m.FunctionCall != nil {
			edits = append(edits, m.FunctionCall.Arguments)
		}
	}
	if len(edits) != 2 {
		t.Fatalf("edit calls in transcript = %d", len(edits))
	}
	if edits[0] != compactedPlaceholder {
		t.Fatalf("old proposal not compacted: %q", edits[0])
	}
	if !strings.Contains(edits[1], "alert(2)") || !strings.Contains(edits[1], "<div>t</div>") {
		t.Fatalf("last proposal not rehydrated: %q", edits[1])
	}
	// Markup goes to the model as written, never as \u003c escapes.
	if strings.Contains(edits[1], `\u003c`) {
		t.Fatalf("rehydrated proposal is HTML-escaped: %q", edits[1])
	}
}

func TestSend_InvalidFinalProposalIsNoOp(t *testing.T) {
	store, th, llm := seedProgram(t)
	llm.scripts = []chatScript{
		{final: editCall(`{"js": tru`)},
		{final: assistantText("hm, let me look again")},
	}

	th.Send("fix the bug")
	th.wait()

	p, _ := store.Get("p1")
	if p.JS != "tick()" {
		t.Fatalf("unparseable proposal mutated the program: %q", p.JS)
	}
	msgs := th.Messages()
	for _, m := range msgs[5:] {
		if m.Kind == KindEditProposal && !m.Edit.IsEmpty() {
			t.Fatalf("expected empty proposal, got %+v", m.Edit)
		}
	}
}

func TestSend_CancelThenResend(t *testing.T) {
	_, th, llm := seedProgram(t)
	block := make(chan struct{})
	started := make(chan struct{})
	llm.scripts = []chatScript{
		{block: block, started: started},
		{final: assistantText("Second answer")},
	}

	th.Send("first")
	<-started
	th.Send("second")
	th.wait()

	msgs := th.Messages()
	// Greeting plus exactly one reply; the cancelled turn leaves neither
	// output nor an error entry.
	if n := countKind(msgs, KindAssistantText); n != 2 {
		t.Fatalf("assistant entries = %d: %+v", n, msgs)
	}
	if n := countKind(msgs, KindError); n != 0 {
		t.Fatalf("cancelled turn produced errors: %+v", msgs)
	}
	if last := msgs[len(msgs)-1]; last.Text != "Second answer" {
		t.Fatalf("last = %+v", last)
	}
}

func TestSend_SupersededTurnKeepsPartial(t *testing.T) {
	_, th, llm := seedProgram(t)
	block := make(chan struct{})
	started := make(chan struct{})
	llm.scripts = []chatScript{
		{partials: []llmclient.ChatMessage{assistantText("I was sayi")}, block: block, started: started},
		{final: assistantText("Anyway.")},
	}

	th.Send("first")
	<-started
	th.Send("second")
	th.wait()

	// The superseded turn's last streamed snapshot is committed before
	// the new user message.
	msgs := th.Messages()
	var texts []string
	for _, m := range msgs {
		if m.Kind == KindAssistantText {
			texts = append(texts, m.Text)
		}
	}
	if len(texts) != 3 || texts[1] != "I was sayi" || texts[2] != "Anyway." {
		t.Fatalf("assistant texts = %v", texts)
	}
}

func TestSend_ErrorTurn(t *testing.T) {
	_, th, llm := seedProgram(t)
	llm.scripts = []chatScript{{err: llmclient.ErrNoOutput}}

	th.Send("hello?")
	th.wait()

	msgs := th.Messages()
	last := msgs[len(msgs)-1]
	if last.Kind != KindError || last.Text == "" {
		t.Fatalf("last = %+v", last)
	}
}

func TestSend_MaxRoundsStops(t *testing.T) {
	_, th, llm := seedProgram(t)
	llm.repeat = &chatScript{final: editCall(`{"js":"x"}`)}

	th.Send("loop forever")
	th.wait()

	msgs := th.Messages()
	if n := countKind(msgs, KindEditAck); n != 1+maxEditRounds {
		t.Fatalf("acks = %d", n)
	}
}

func TestRegistry(t *testing.T) {
	store := docstore.New(filepath.Join(t.TempDir(), "store.json"))
	store.Upsert("p1", func(p *program.Program) { p.Title = "Timer" })

	reg := NewRegistry(store, llmclient.StaticCredentials{}, nil)
	if reg.Thread("missing") != nil {
		t.Fatal("thread for unknown program")
	}
	a := reg.Thread("p1")
	if a == nil || len(a.Messages()) == 0 {
		t.Fatal("thread not seeded")
	}
	if b := reg.Thread("p1"); b != a {
		t.Fatal("registry should reuse threads")
	}
	reg.Drop("p1")
	if c := reg.Thread("p1"); c == a {
		t.Fatal("dropped thread resurrected")
	}
}
