package gensession

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"tinyapps/internal/docstore"
	"tinyapps/internal/llmclient"
)

type fakeLLM struct {
	partials []string
	final    string
	err      error
}

func (f *fakeLLM) Name() string { return "fake" }
func (f *fakeLLM) Close() error { return nil }

func (f *fakeLLM) StreamJSONObject(_ context.Context, _ string, onPartial func(json.RawMessage)) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range f.partials {
		if onPartial != nil {
			onPartial(json.RawMessage(p))
		}
	}
	return json.RawMessage(f.final), nil
}

func (f *fakeLLM) StreamChat(context.Context, []llmclient.ChatMessage, []llmclient.FunctionSpec, func(llmclient.ChatMessage)) (llmclient.ChatMessage, error) {
	return llmclient.ChatMessage{}, errors.New("not used")
}

func newTestStore(t *testing.T) *docstore.Store {
	t.Helper()
	return docstore.New(filepath.Join(t.TempDir(), "store.json"))
}

func TestGenerate_StreamsPartialsIntoStore(t *testing.T) {
	store := newTestStore(t)
	events, cancel := store.Subscribe(64)
	defer cancel()

	llm := &fakeLLM{
		partials: []string{
			`{"icon":"calcul"}`,
			`{"icon":"calculator","html":"<div>hi</div>"}`,
			`{"icon":"calculator","html":"<div>hi</div>","css":"div{color:red}","js":"alert(1)"}`,
		},
		final: `{"icon":"calculator","html":"<div>hi</div>","css":"div{color:red}","js":"alert(1)"}`,
	}
	sess := &Session{Store: store, LLM: llm}
	err := sess.Generate(context.Background(), "p1", Params{Title: "Calc", Subtitle: "A calculator"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	cancel()
	var seen []docstore.Event
	for ev := range events {
		seen = append(seen, ev)
	}
	if len(seen) < 4 {
		t.Fatalf("expected stub + partials + final events, got %d", len(seen))
	}

	stub := seen[0].Program
	if stub.Title != "Calc" || stub.InstallProgress == nil || *stub.InstallProgress != 0 {
		t.Fatalf("bad stub write: %+v", stub)
	}

	// Truncated icon names fall back to the default while streaming.
	if got := seen[1].Program.IconName; got != "executable" {
		t.Fatalf("icon fallback: got %q", got)
	}

	// JS stays out of the store until the final write, but its length
	// still advances progress.
	withJS := seen[3].Program
	if withJS.JS != "" {
		t.Fatalf("js committed during stream: %q", withJS.JS)
	}
	if withJS.InstallProgress == nil || *withJS.InstallProgress <= *seen[2].Program.InstallProgress {
		t.Fatal("js length should advance progress")
	}

	final := seen[len(seen)-1].Program
	if final.JS != "alert(1)" {
		t.Fatalf("final js missing: %q", final.JS)
	}
	if final.InstallProgress != nil {
		t.Fatalf("final write must clear progress, got %v", *final.InstallProgress)
	}
}

func TestGenerate_NoKeyLeavesStoreUntouched(t *testing.T) {
	store := newTestStore(t)
	sess := &Session{Store: store, Credentials: llmclient.StaticCredentials{}}
	err := sess.Generate(context.Background(), "p1", Params{Title: "Calc"})
	if !errors.Is(err, llmclient.ErrNoKey) {
		t.Fatalf("want ErrNoKey, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("store mutated before credentials resolved: %d entries", store.Len())
	}
}

func TestGenerate_StreamErrorPropagates(t *testing.T) {
	store := newTestStore(t)
	sess := &Session{Store: store, LLM: &fakeLLM{err: llmclient.ErrNoOutput}}
	err := sess.Generate(context.Background(), "p1", Params{Title: "Calc"})
	if !errors.Is(err, llmclient.ErrNoOutput) {
		t.Fatalf("want ErrNoOutput, got %v", err)
	}
	// The stub write already happened; the program exists with progress set.
	p, ok := store.Get("p1")
	if !ok || p.InstallProgress == nil {
		t.Fatalf("stub write missing: %+v", p)
	}
}
