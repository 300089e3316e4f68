package program

// Baseline expected fragment lengths used while a fragment is still in
// flight. Once a later fragment starts streaming, the earlier one is known
// to be final and its actual length replaces the baseline.
const (
	expectedHTMLLen = 700
	expectedCSSLen  = 700
	expectedJSLen   = 700
)

// EstimateInstallProgress returns a heuristic completion fraction for a
// generation stream that has produced htmlLen/cssLen/jsLen characters so
// far. The model emits html, then css, then js, so a non-empty css means
// the html is final, and a non-empty js means the css is final. The result
// starts at 0.1 and approaches (but never reaches) 1.0; the session clears
// the progress outright when the stream ends.
func EstimateInstallProgress(htmlLen, cssLen, jsLen int) float64 {
	expected := 0
	if cssLen > 0 {
		expected += htmlLen
	} else {
		expected += expectedHTMLLen
	}
	if jsLen > 0 {
		expected += cssLen
	} else {
		expected += expectedCSSLen
	}
	if jsLen > expectedJSLen {
		expected += jsLen
	} else {
		expected += expectedJSLen
	}

	total := htmlLen + cssLen + jsLen
	est := 0.1 + float64(total)/float64(expected)*0.9
	// Once the js overshoots its baseline the ratio hits 1.0; completion is
	// signalled by clearing the progress, not by the estimate itself.
	if est > 0.99 {
		est = 0.99
	}
	return est
}

// UpdateInstallProgress recomputes the program's install progress from its
// current html/css plus the length of the js streamed so far. The stored
// value never decreases: when a fragment finalizes, swapping its baseline
// for the (possibly larger) actual length can dip the raw estimate.
func (p *Program) UpdateInstallProgress(jsLen int) {
	est := EstimateInstallProgress(len(p.HTML), len(p.CSS), jsLen)
	if p.InstallProgress != nil && *p.InstallProgress > est {
		return
	}
	p.SetInstallProgress(est)
}
