package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"tinyapps/internal/docstore"
	"tinyapps/internal/gensession"
	"tinyapps/internal/llmclient"
)

func main() {
	title := flag.String("title", "", "app name")
	subtitle := flag.String("subtitle", "", "one-line app description")
	llmEnabled := flag.Bool("llm", false, "expose the llmStream API to the generated app")
	scripting := flag.Bool("scripting", false, "expose the automation API to the generated app")
	storePath := flag.String("store", "", "path to the program store file")
	model := flag.String("model", "", "model id override")
	flag.Parse()
	if *title == "" {
		log.Fatal("--title is required")
	}

	_ = godotenv.Load()

	path := *storePath
	if path == "" {
		path = docstore.DefaultPath("programs")
	}
	store := docstore.NewFromEnv(path)
	store.EnsureLoaded()
	defer store.Close()

	sess := &gensession.Session{
		Store:       store,
		Credentials: llmclient.EnvCredentials{},
		NewClient:   newClient(*model),
	}

	// Log install progress while the stream runs.
	events, cancel := store.Subscribe(64)
	defer cancel()
	go func() {
		for ev := range events {
			if ev.Removed || ev.Program.InstallProgress == nil {
				continue
			}
			log.Printf("installing %s: %3.0f%%", ev.Program.ID, *ev.Program.InstallProgress*100)
		}
	}()

	id := fmt.Sprintf("program-%d", time.Now().UnixNano())
	ctx := context.Background()
	if err := sess.Generate(ctx, id, gensession.Params{
		Title:            *title,
		Subtitle:         *subtitle,
		LLMEnabled:       *llmEnabled,
		ScriptingEnabled: *scripting,
	}); err != nil {
		log.Fatal(err)
	}
	store.Save()

	p, _ := store.Get(id)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(p)
}

func newClient(model string) llmclient.Factory {
	if model == "" {
		return llmclient.DefaultFactory
	}
	return func(ctx context.Context, creds llmclient.Credentials) (llmclient.StreamingLLM, error) {
		switch creds.Provider {
		case llmclient.ProviderGemini:
			return llmclient.NewGeminiClient(ctx, creds.APIKey, model)
		default:
			return llmclient.NewOpenAIClient(creds.APIKey, model, "")
		}
	}
}
