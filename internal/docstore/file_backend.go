package docstore

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"

	"tinyapps/internal/program"
)

// persistedState is the on-disk document. Unknown fields in older files are
// ignored; missing fields take their zero defaults.
type persistedState struct {
	Programs map[string]program.Program `json:"programs"`
}

func (s *Store) ensureLoadedFile() {
	s.loadOnce.Do(func() {
		for _, path := range []string{s.path, s.initialPath} {
			if strings.TrimSpace(path) == "" {
				continue
			}
			b, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			byID, ok := decodeState(b)
			if !ok {
				log.Printf("docstore: could not decode %s, trying next source", path)
				continue
			}
			s.mu.Lock()
			for id, p := range byID {
				id = strings.TrimSpace(id)
				if id == "" {
					continue
				}
				p.ID = id
				p.IconName = program.ResolveIcon(p.IconName)
				s.byID[id] = p
			}
			s.mu.Unlock()
			return
		}
		// No readable source: start from in-memory defaults.
	})
}

// decodeState reads the current format, falling back to the legacy layout
// (a bare JSON array of programs).
func decodeState(b []byte) (map[string]program.Program, bool) {
	var state persistedState
	if err := json.Unmarshal(b, &state); err == nil && state.Programs != nil {
		return state.Programs, true
	}
	return migrateLegacy(b)
}

func migrateLegacy(b []byte) (map[string]program.Program, bool) {
	var rows []program.Program
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, false
	}
	out := make(map[string]program.Program, len(rows))
	for _, p := range rows {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			continue
		}
		p.ID = id
		out[id] = p
	}
	return out, true
}

func (s *Store) encodeLocked() ([]byte, error) {
	return json.MarshalIndent(persistedState{Programs: s.byID}, "", "  ")
}

// saveFileLocked writes the full document atomically (tmp file + rename).
// Serialization failures are logged, never fatal.
func (s *Store) saveFileLocked() {
	if strings.TrimSpace(s.path) == "" {
		return
	}
	b, err := s.encodeLocked()
	if err != nil {
		log.Printf("docstore: encode failed: %v", err)
		return
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("docstore: mkdir %s failed: %v", dir, err)
		return
	}
	tmp, err := os.CreateTemp(dir, ".docstore-*.json")
	if err != nil {
		log.Printf("docstore: temp file failed: %v", err)
		return
	}
	name := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		log.Printf("docstore: write failed: %v", err)
		return
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		log.Printf("docstore: close failed: %v", err)
		return
	}
	if err := os.Rename(name, s.path); err != nil {
		_ = os.Remove(name)
		log.Printf("docstore: rename failed: %v", err)
	}
}
