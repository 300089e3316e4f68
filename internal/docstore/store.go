// Package docstore is the persistent, observable store of Program documents.
// All reads and writes are serialized through one mutex; generation sessions
// and edit conversations never touch a program except through Upsert, so a
// read-modify-write can never interleave with another writer.
package docstore

import (
	"database/sql"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"

	"tinyapps/internal/program"
)

// Event is one store notification: the program after the mutation, or its
// last value with Removed set.
type Event struct {
	Program program.Program
	Removed bool
}

type subscriber struct {
	ch chan Event
}

// Store maps program ids to Programs, persisted either to a JSON file or to
// Postgres. The file backend is the default; a DSN selects Postgres.
type Store struct {
	path        string
	initialPath string
	db          *sql.DB

	loadOnce sync.Once
	mu       sync.Mutex
	byID     map[string]program.Program

	schemaOnce sync.Once
	schemaErr  error

	subMu  sync.Mutex
	subs   map[*subscriber]struct{}
	mirror *S3Mirror
}

// New returns a file-backed store persisting to path.
func New(path string) *Store {
	return &Store{
		path: path,
		byID: make(map[string]program.Program),
		subs: make(map[*subscriber]struct{}),
	}
}

// NewPostgres returns a Postgres-backed store.
func NewPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{
		db:   db,
		byID: make(map[string]program.Program),
		subs: make(map[*subscriber]struct{}),
	}, nil
}

// NewFromEnv picks Postgres when DOCSTORE_PG_DSN is set, otherwise the file
// backend at path.
func NewFromEnv(path string) *Store {
	dsn := strings.TrimSpace(os.Getenv("DOCSTORE_PG_DSN"))
	if dsn == "" {
		return New(path)
	}
	s, err := NewPostgres(dsn)
	if err != nil {
		log.Printf("docstore: postgres unavailable, falling back to file backend: %v", err)
		return New(path)
	}
	return s
}

// DefaultPath derives the persisted file location for a store key under the
// user's application-support directory.
func DefaultPath(key string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "tinyapps", "DataStores", key+".json")
}

// SetInitialStatePath sets a bundled initial-state file used when the
// persisted file is missing or unreadable. Must be called before first use.
func (s *Store) SetInitialStatePath(path string) {
	s.initialPath = path
}

// SetMirror attaches an S3 snapshot mirror that receives the serialized
// store on every save.
func (s *Store) SetMirror(m *S3Mirror) {
	s.mirror = m
}

// EnsureLoaded loads the persisted state once. Safe to call repeatedly.
func (s *Store) EnsureLoaded() {
	if s == nil {
		return
	}
	if s.db != nil {
		_ = s.ensureSchema()
		return
	}
	s.ensureLoadedFile()
}

// Get returns the program for id, if present.
func (s *Store) Get(id string) (program.Program, bool) {
	if s == nil {
		return program.Program{}, false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return program.Program{}, false
	}
	if s.db != nil {
		return s.getDB(id)
	}
	s.ensureLoadedFile()
	s.mu.Lock()
	p, ok := s.byID[id]
	s.mu.Unlock()
	return p, ok
}

// Upsert applies mutate to the program for id, creating a default program
// when absent. The write, persistence and observer notification are skipped
// when the mutation produces a value equal to the current one. Returns the
// resulting program.
func (s *Store) Upsert(id string, mutate func(*program.Program)) program.Program {
	if s == nil {
		return program.Program{}
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return program.Program{}
	}
	s.EnsureLoaded()

	s.mu.Lock()
	cur, existed := s.byID[id]
	if !existed && s.db != nil {
		cur, existed = s.getDBLocked(id)
	}
	if !existed {
		cur = program.New(id)
	}
	next := cur
	if mutate != nil {
		mutate(&next)
	}
	next.ID = id // ids are immutable
	if existed && next.Equal(cur) {
		s.mu.Unlock()
		return next
	}
	s.byID[id] = next
	s.persistLocked(next, false)
	s.mu.Unlock()

	s.notify(Event{Program: next})
	return next
}

// Remove deletes the program for id.
func (s *Store) Remove(id string) {
	if s == nil {
		return
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	s.EnsureLoaded()

	s.mu.Lock()
	p, ok := s.byID[id]
	if ok {
		delete(s.byID, id)
	}
	if s.db != nil {
		if !ok {
			// Pull the last value for the removal event before the row goes.
			p, ok = s.getDBLocked(id)
			delete(s.byID, id)
		}
		ok = s.removeDBLocked(id) || ok
	} else if ok {
		s.saveFileLocked()
	}
	s.mu.Unlock()

	if ok {
		p.ID = id
		s.notify(Event{Program: p, Removed: true})
	}
}

// List returns all programs sorted by title, then id.
func (s *Store) List() []program.Program {
	if s == nil {
		return nil
	}
	s.EnsureLoaded()
	if s.db != nil {
		return s.listDB()
	}
	s.mu.Lock()
	out := make([]program.Program, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, p)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of stored programs.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	s.EnsureLoaded()
	s.mu.Lock()
	n := len(s.byID)
	s.mu.Unlock()
	return n
}

// Subscribe registers an observer fed an Event per committed mutation.
// Events for a slow consumer are dropped once its buffer fills; the cancel
// func unregisters and closes the channel.
func (s *Store) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	sub := &subscriber{ch: make(chan Event, buffer)}
	s.subMu.Lock()
	s.subs[sub] = struct{}{}
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, sub)
			s.subMu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

func (s *Store) notify(ev Event) {
	s.subMu.Lock()
	for sub := range s.subs {
		select {
		case sub.ch <- ev:
		default:
		}
	}
	s.subMu.Unlock()
}

// persistLocked writes one mutation through to the active backend. The file
// backend rewrites the whole document; Postgres upserts the row.
func (s *Store) persistLocked(p program.Program, removed bool) {
	if s.db != nil {
		if removed {
			s.removeDBLocked(p.ID)
		} else {
			s.putDBLocked(p)
		}
		return
	}
	s.saveFileLocked()
}

// Save flushes the store. Called on shutdown; every mutation already
// persists itself, so this mainly feeds the snapshot mirror.
func (s *Store) Save() {
	if s == nil {
		return
	}
	s.EnsureLoaded()
	s.mu.Lock()
	if s.db == nil {
		s.saveFileLocked()
	}
	snap, err := s.encodeLocked()
	s.mu.Unlock()
	if err == nil && s.mirror != nil {
		s.mirror.Upload(snap)
	}
}

// Close releases the backend.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.Save()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
