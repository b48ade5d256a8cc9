// Package report renders validation results as console text, a self-contained
// HTML page, and a line-delimited machine summary.
package report

type Reporter struct{}

func NewReporter() *Reporter {
	return &Reporter{}
}
