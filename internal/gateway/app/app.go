package app

import (
	"context"
	"fmt"

	"tinyapps/internal/config"
	"tinyapps/internal/contactdev"
	"tinyapps/internal/docstore"
	"tinyapps/internal/gateway/handler"
	"tinyapps/internal/gateway/server"
	"tinyapps/internal/gensession"
	"tinyapps/internal/llmclient"
)

type App struct {
	server *server.Server
	store  *docstore.Store
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Dependencies
	store := initStore(cfg)
	creds := llmclient.EnvCredentials{}
	factory := modelFactory(cfg.Model)
	session := &gensession.Session{Store: store, Credentials: creds, NewClient: factory}
	registry := contactdev.NewRegistry(store, creds, factory)

	programHandler, err := handler.NewProgramHandler(store, session, registry)
	if err != nil {
		return nil, err
	}
	watchHandler := handler.NewWatchHandler(store)
	chatHandler := handler.NewChatHandler(registry)

	// Routing & Server
	mux := server.NewMux(programHandler, watchHandler, chatHandler)
	srv := server.New(cfg.Port, mux)

	return &App{
		server: srv,
		store:  store,
	}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

// Shutdown drains the server, then flushes and closes the store. Close
// saves, so mutations landed during the drain still persist.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if cerr := a.store.Close(); err == nil {
		err = cerr
	}
	return err
}

// modelFactory overrides the default model when one is configured.
func modelFactory(model string) llmclient.Factory {
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
