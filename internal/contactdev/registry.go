package contactdev

import (
	"sync"

	"tinyapps/internal/docstore"
	"tinyapps/internal/llmclient"
)

// Registry hands out one seeded thread per program id, so reopening the
// support chat for a program resumes its conversation.
type Registry struct {
	store       *docstore.Store
	credentials llmclient.CredentialSource
	newClient   llmclient.Factory

	mu      sync.Mutex
	threads map[string]*Thread
}

func NewRegistry(store *docstore.Store, credentials llmclient.CredentialSource, newClient llmclient.Factory) *Registry {
	return &Registry{
		store:       store,
		credentials: credentials,
		newClient:   newClient,
		threads:     make(map[string]*Thread),
	}
}

// Thread returns the thread for the program, creating and seeding it on
// first use. Returns nil when the program does not exist.
func (r *Registry) Thread(programID string) *Thread {
	if _, ok := r.store.Get(programID); !ok {
		return nil
	}
	r.mu.Lock()
	t, ok := r.threads[programID]
	if !ok {
		t = &Thread{
			ProgramID:   programID,
			Store:       r.store,
			Credentials: r.credentials,
			NewClient:   r.newClient,
		}
		r.threads[programID] = t
	}
	r.mu.Unlock()
	t.SeedInitialMessages()
	return t
}

// Drop cancels and forgets the program's thread, if any. Called when the
// program is removed.
func (r *Registry) Drop(programID string) {
	r.mu.Lock()
	t := r.threads[programID]
	delete(r.threads, programID)
	r.mu.Unlock()
	if t != nil {
		t.Close()
	}
}
