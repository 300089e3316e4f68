// Package gensession drives a single program-generation run: it streams a
// structured JSON object from the model and mirrors each partial snapshot
// into the document store so observers can watch the install.
package gensession

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"tinyapps/internal/docstore"
	"tinyapps/internal/llmclient"
	"tinyapps/internal/program"
	"tinyapps/internal/prompts"
)

// Params names the new program and selects its capabilities.
type Params struct {
	Title            string
	Subtitle         string
	LLMEnabled       bool
	ScriptingEnabled bool
}

// Session generates programs into Store. When LLM is nil the session
// resolves Credentials and builds a client with NewClient per run.
type Session struct {
	Store       *docstore.Store
	LLM         llmclient.StreamingLLM
	Credentials llmclient.CredentialSource
	NewClient   llmclient.Factory
}

// generated is the object shape the model streams back.
type generated struct {
	Icon *string `json:"icon"`
	HTML *string `json:"html"`
	CSS  *string `json:"css"`
	JS   *string `json:"js"`
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Generate runs one generation for the program id. Credentials are
// resolved before anything is written, so a missing key leaves the store
// untouched. While streaming, html and css are committed as they grow but
// js is held back until the final snapshot; its length still drives the
// install progress estimate.
func (s *Session) Generate(ctx context.Context, id string, params Params) error {
	llm, err := s.client(ctx)
	if err != nil {
		return err
	}
	if llm != s.LLM {
		defer llm.Close()
	}

	s.Store.Upsert(id, func(p *program.Program) {
		p.Title = params.Title
		p.Subtitle = params.Subtitle
		p.LLMEnabled = params.LLMEnabled
		p.ScriptingEnabled = params.ScriptingEnabled
		p.SetInstallProgress(0)
	})

	prompt := prompts.Generation(params.Title, params.Subtitle, params.LLMEnabled, params.ScriptingEnabled)

	final, err := llm.StreamJSONObject(ctx, prompt, func(raw json.RawMessage) {
		var out generated
		if err := json.Unmarshal(raw, &out); err != nil {
			return
		}
		s.Store.Upsert(id, func(p *program.Program) {
			p.Title = params.Title
			p.Subtitle = params.Subtitle
			p.IconName = program.ResolveIcon(orEmpty(out.Icon))
			p.HTML = orEmpty(out.HTML)
			p.CSS = orEmpty(out.CSS)
			p.JS = ""
			p.UpdateInstallProgress(len(orEmpty(out.JS)))
		})
	})
	if err != nil {
		return fmt.Errorf("generate %s: %w", id, err)
	}

	var out generated
	if err := json.Unmarshal(final, &out); err != nil {
		return fmt.Errorf("generate %s: decode final output: %w", id, err)
	}
	updated := s.Store.Upsert(id, func(p *program.Program) {
		p.HTML = orEmpty(out.HTML)
		p.CSS = orEmpty(out.CSS)
		p.JS = orEmpty(out.JS)
		p.InstallProgress = nil
	})
	log.Printf("generated %s (%q): html=%d css=%d js=%d", id, params.Title, len(updated.HTML), len(updated.CSS), len(updated.JS))
	return nil
}

func (s *Session) client(ctx context.Context) (llmclient.StreamingLLM, error) {
	if s.LLM != nil {
		return s.LLM, nil
	}
	source := s.Credentials
	if source == nil {
		source = llmclient.EnvCredentials{}
	}
	creds, err := source.GetOrResolve(ctx)
	if err != nil {
		return nil, err
	}
	factory := s.NewClient
	if factory == nil {
		factory = llmclient.DefaultFactory
	}
	return factory(ctx, creds)
}
