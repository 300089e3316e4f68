package program

import (
	"strings"
	"testing"
)

func strptr(s string) *string { return &s }

func TestApplyEdit_PartialMerge(t *testing.T) {
	p := Program{ID: "p1", HTML: "<div>", CSS: "body{}", JS: "old"}
	p.ApplyEdit(EditParams{JS: strptr("x")})
	if p.HTML != "<div>" || p.CSS != "body{}" {
		t.Fatalf("untouched fields changed: %+v", p)
	}
	if p.JS != "x" {
		t.Fatalf("js not replaced: %q", p.JS)
	}
}

func TestApplyEdit_IconResolvesVocabulary(t *testing.T) {
	p := Program{ID: "p1", IconName: "calendar"}
	p.ApplyEdit(EditParams{Icon: strptr("bogus_name")})
	if p.IconName != DefaultIcon {
		t.Fatalf("expected fallback icon, got %q", p.IconName)
	}
	p.ApplyEdit(EditParams{Icon: strptr("mailbox")})
	if p.IconName != "mailbox" {
		t.Fatalf("expected mailbox, got %q", p.IconName)
	}
}

func TestEqual_InstallProgressByValue(t *testing.T) {
	a := Program{ID: "p"}
	b := Program{ID: "p"}
	a.SetInstallProgress(0.5)
	if a.Equal(b) {
		t.Fatal("progress-set program should differ from nil-progress")
	}
	b.SetInstallProgress(0.5)
	if !a.Equal(b) {
		t.Fatal("equal progress values should compare equal")
	}
}

func TestFullCode_Ordering(t *testing.T) {
	p := Program{ID: "p", HTML: "<main>hi</main>", CSS: ".x{color:red}", JS: "alert(1)"}
	code := p.FullCode()

	idxViewport := strings.Index(code, "viewport")
	idxHTML := strings.Index(code, "<main>hi</main>")
	idxBase := strings.Index(code, "--surface: #c0c0c0")
	idxCSS := strings.Index(code, ".x{color:red}")
	idxJS := strings.Index(code, "alert(1)")
	for name, idx := range map[string]int{
		"viewport": idxViewport, "html": idxHTML, "base css": idxBase, "css": idxCSS, "js": idxJS,
	} {
		if idx < 0 {
			t.Fatalf("missing %s in composed code", name)
		}
	}
	if !(idxViewport < idxHTML && idxHTML < idxBase && idxBase < idxCSS && idxCSS < idxJS) {
		t.Fatalf("composed sections out of order: %d %d %d %d %d",
			idxViewport, idxHTML, idxBase, idxCSS, idxJS)
	}
}

func TestEstimateInstallProgress_Range(t *testing.T) {
	got := EstimateInstallProgress(len("<div>"), 0, 0)
	if got < 0.1 || got >= 1.0 {
		t.Fatalf("progress out of range: %v", got)
	}
}

func TestUpdateInstallProgress_Monotonic(t *testing.T) {
	// Simulate a stream: html grows, then css grows, then js grows. The html
	// here overshoots the baseline so the raw estimate would dip when css
	// starts; the stored progress must not.
	type step struct {
		html, css string
		jsLen     int
	}
	long := strings.Repeat("x", 900)
	steps := []step{
		{"", "", 0},
		{long[:120], "", 0},
		{long[:480], "", 0},
		{long, "", 0},
		{long, strings.Repeat("c", 50), 0},
		{long, strings.Repeat("c", 640), 0},
		{long, strings.Repeat("c", 640), 10},
		{long, strings.Repeat("c", 640), 700},
		{long, strings.Repeat("c", 640), 1500},
	}
	p := Program{ID: "p"}
	prev := 0.0
	for i, s := range steps {
		p.HTML, p.CSS = s.html, s.css
		p.UpdateInstallProgress(s.jsLen)
		if p.InstallProgress == nil {
			t.Fatalf("step %d: progress not set", i)
		}
		got := *p.InstallProgress
		if got < prev {
			t.Fatalf("step %d: progress decreased %v -> %v", i, prev, got)
		}
		if got >= 1.0 {
			t.Fatalf("step %d: progress reached 1.0: %v", i, got)
		}
		prev = got
	}
}

func TestResolveIcon(t *testing.T) {
	if got := ResolveIcon(""); got != DefaultIcon {
		t.Fatalf("empty icon: got %q", got)
	}
	if got := ResolveIcon("  minesweeper "); got != "minesweeper" {
		t.Fatalf("trimmed lookup failed: got %q", got)
	}
}
