package docstore

import (
	"log"
	"sort"
	"strings"

	"tinyapps/internal/program"
)

func logDBError(op string, err error) {
	log.Printf("docstore: %s failed: %v", op, err)
}

func (s *Store) ensureSchema() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS programs (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL DEFAULT '',
  subtitle TEXT NOT NULL DEFAULT '',
  html TEXT NOT NULL DEFAULT '',
  css TEXT NOT NULL DEFAULT '',
  js TEXT NOT NULL DEFAULT '',
  icon_name TEXT NOT NULL DEFAULT '',
  install_progress DOUBLE PRECISION,
  llm_enabled BOOLEAN NOT NULL DEFAULT FALSE,
  scripting_enabled BOOLEAN NOT NULL DEFAULT FALSE
);
`)
	})
	return s.schemaErr
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgram(row rowScanner) (program.Program, bool) {
	var p program.Program
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Subtitle,
		&p.HTML,
		&p.CSS,
		&p.JS,
		&p.IconName,
		&p.InstallProgress,
		&p.LLMEnabled,
		&p.ScriptingEnabled,
	)
	if err != nil {
		return program.Program{}, false
	}
	return p, true
}

const programColumns = `id, title, subtitle, html, css, js, icon_name, install_progress, llm_enabled, scripting_enabled`

func (s *Store) getDB(id string) (program.Program, bool) {
	if err := s.ensureSchema(); err != nil {
		return program.Program{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getDBLocked(id)
}

func (s *Store) getDBLocked(id string) (program.Program, bool) {
	if p, ok := s.byID[id]; ok {
		return p, true
	}
	row := s.db.QueryRow(`SELECT `+programColumns+` FROM programs WHERE id = $1`, id)
	p, ok := scanProgram(row)
	if ok {
		s.byID[id] = p
	}
	return p, ok
}

func (s *Store) putDBLocked(p program.Program) {
	if err := s.ensureSchema(); err != nil {
		return
	}
	_, err := s.db.Exec(`
INSERT INTO programs (`+programColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  title = EXCLUDED.title,
  subtitle = EXCLUDED.subtitle,
  html = EXCLUDED.html,
  css = EXCLUDED.css,
  js = EXCLUDED.js,
  icon_name = EXCLUDED.icon_name,
  install_progress = EXCLUDED.install_progress,
  llm_enabled = EXCLUDED.llm_enabled,
  scripting_enabled = EXCLUDED.scripting_enabled
`, p.ID, p.Title, p.Subtitle, p.HTML, p.CSS, p.JS, p.IconName,
		p.InstallProgress, p.LLMEnabled, p.ScriptingEnabled)
	if err != nil {
		// Logged at the store boundary; the in-memory copy stays valid.
		logDBError("put", err)
	}
}

// removeDBLocked reports whether the row existed.
func (s *Store) removeDBLocked(id string) bool {
	if err := s.ensureSchema(); err != nil {
		return false
	}
	res, err := s.db.Exec(`DELETE FROM programs WHERE id = $1`, id)
	if err != nil {
		logDBError("remove", err)
		return false
	}
	n, err := res.RowsAffected()
	return err == nil && n > 0
}

func (s *Store) listDB() []program.Program {
	if err := s.ensureSchema(); err != nil {
		return nil
	}
	rows, err := s.db.Query(`SELECT ` + programColumns + ` FROM programs`)
	if err != nil {
		logDBError("list", err)
		return nil
	}
	defer rows.Close()
	var out []program.Program
	for rows.Next() {
		if p, ok := scanProgram(rows); ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return strings.Compare(out[i].Title, out[j].Title) < 0
		}
		return out[i].ID < out[j].ID
	})
	return out
}
