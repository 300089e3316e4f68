package handler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"tinyapps/internal/contactdev"
	"tinyapps/internal/docstore"
	"tinyapps/internal/gensession"
)

// ProgramHandler serves program CRUD, generation and the composed code
// document the webview loads.
type ProgramHandler struct {
	store     *docstore.Store
	session   *gensession.Session
	registry  *contactdev.Registry
	codeCache *lru.Cache[string, string]
}

func NewProgramHandler(store *docstore.Store, session *gensession.Session, registry *contactdev.Registry) (*ProgramHandler, error) {
	cache, err := lru.New[string, string](256)
	if err != nil {
		return nil, err
	}
	return &ProgramHandler{
		store:     store,
		session:   session,
		registry:  registry,
		codeCache: cache,
	}, nil
}

func (h *ProgramHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title            string `json:"title"`
		Subtitle         string `json:"subtitle"`
		LLMEnabled       bool   `json:"llm_enabled"`
		ScriptingEnabled bool   `json:"scripting_enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}

	id := fmt.Sprintf("program-%d", time.Now().UnixNano())
	params := gensession.Params{
		Title:            title,
		Subtitle:         strings.TrimSpace(in.Subtitle),
		LLMEnabled:       in.LLMEnabled,
		ScriptingEnabled: in.ScriptingEnabled,
	}
	go func() {
		if err := h.session.Generate(context.Background(), id, params); err != nil {
			log.Printf("generate %s failed: %v", id, err)
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]any{"id": id})
}

func (h *ProgramHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"programs": h.store.List()})
}

func (h *ProgramHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, ok := h.store.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "program not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *ProgramHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.store.Get(id); !ok {
		http.Error(w, "program not found", http.StatusNotFound)
		return
	}
	h.store.Remove(id)
	if h.registry != nil {
		h.registry.Drop(id)
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// HandleCode renders the program's composed document. Renders are cached
// by content hash, so an edit invalidates naturally via a new key.
func (h *ProgramHandler) HandleCode(w http.ResponseWriter, r *http.Request) {
	p, ok := h.store.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "program not found", http.StatusNotFound)
		return
	}

	sum := sha256.Sum256([]byte(p.HTML + "\x00" + p.CSS + "\x00" + p.JS))
	key := hex.EncodeToString(sum[:])

	code, ok := h.codeCache.Get(key)
	if !ok {
		code = p.FullCode()
		h.codeCache.Add(key, code)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(code))
}
