package program

import "strings"

// Program is one generated webview app: three source fragments plus the
// attributes the shell needs to list, render and regenerate it.
type Program struct {
	ID string `json:"id"`

	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`

	HTML     string `json:"html"`
	CSS      string `json:"css"`
	JS       string `json:"js"`
	IconName string `json:"icon_name,omitempty"`

	// InstallProgress is non-nil only while a generation session is writing
	// this program. Cleared (not set to 1.0) on completion.
	InstallProgress *float64 `json:"install_progress,omitempty"`

	LLMEnabled       bool `json:"llm_enabled,omitempty"`
	ScriptingEnabled bool `json:"scripting_enabled,omitempty"`
}

// New returns an empty program with the given id.
func New(id string) Program {
	return Program{ID: strings.TrimSpace(id)}
}

// Equal reports value equality, comparing InstallProgress by pointee.
func (p Program) Equal(o Program) bool {
	if p.ID != o.ID ||
		p.Title != o.Title || p.Subtitle != o.Subtitle ||
		p.HTML != o.HTML || p.CSS != o.CSS || p.JS != o.JS ||
		p.IconName != o.IconName ||
		p.LLMEnabled != o.LLMEnabled || p.ScriptingEnabled != o.ScriptingEnabled {
		return false
	}
	if (p.InstallProgress == nil) != (o.InstallProgress == nil) {
		return false
	}
	if p.InstallProgress != nil && *p.InstallProgress != *o.InstallProgress {
		return false
	}
	return true
}

// EditParams is a partial set of field changes. Nil fields are untouched.
type EditParams struct {
	HTML  *string `json:"html,omitempty"`
	CSS   *string `json:"css,omitempty"`
	JS    *string `json:"js,omitempty"`
	Title *string `json:"title,omitempty"`
	Icon  *string `json:"icon,omitempty"`
}

// IsEmpty reports whether the edit changes nothing.
func (e EditParams) IsEmpty() bool {
	return e.HTML == nil && e.CSS == nil && e.JS == nil && e.Title == nil && e.Icon == nil
}

// ApplyEdit merges the non-nil fields of the edit into the program.
func (p *Program) ApplyEdit(e EditParams) {
	if e.HTML != nil {
		p.HTML = *e.HTML
	}
	if e.CSS != nil {
		p.CSS = *e.CSS
	}
	if e.JS != nil {
		p.JS = *e.JS
	}
	if e.Title != nil {
		p.Title = *e.Title
	}
	if e.Icon != nil {
		p.IconName = ResolveIcon(*e.Icon)
	}
}

// SetInstallProgress replaces the progress pointer with a fresh value.
func (p *Program) SetInstallProgress(v float64) {
	p.InstallProgress = &v
}

// FullCode composes the document handed to the rendering surface. The order
// matters: the program's stylesheet must override the base stylesheet, and
// the script runs after the markup exists.
func (p Program) FullCode() string {
	lines := []string{
		"<meta name='viewport' content='width=device-width, initial-scale=1.0'>",
		p.HTML,
		"<style>",
		BaseCSS,
		"</style>",
		"<style>",
		p.CSS,
		"</style>",
		"<script>",
		p.JS,
		"</script>",
	}
	return strings.Join(lines, "\n")
}
