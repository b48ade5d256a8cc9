package report

import (
	"fmt"
	"io"

	"github.com/deployaudit/tools/pkg/audit/application/model"
)

// RenderConsole writes the human-readable report. One block per component,
// then a summary line.
func (r *Reporter) RenderConsole(w io.Writer, records []model.ValidationRecord) {
	passed := 0
	failed := 0
	for _, record := range records {
		if record.Err != model.ErrorNone {
			failed++
			fmt.Fprintf(w, "[FAIL] %v@%v: %v: %v\n", record.Component, record.Version, record.Err, record.ErrDetail)
			continue
		}

		if record.OverallPass() {
			passed++
			fmt.Fprintf(w, "[PASS] %v@%v\n", record.Component, record.Version)
		} else {
			failed++
			fmt.Fprintf(w, "[FAIL] %v@%v\n", record.Component, record.Version)
		}
		for _, name := range model.ManifestNames() {
			if record.Files[name] {
				fmt.Fprintf(w, "  %v: present\n", name)
			} else {
				fmt.Fprintf(w, "  %v: missing\n", name)
			}
		}
		for _, property := range model.PropertyNames() {
			// Verdicts come from the mapping result, so a correct value whose
			// manifest file is missing still prints as a failure.
			value, ok := record.Props[property]
			switch {
			case !ok:
				fmt.Fprintf(w, "  %v: Not Set\n", property)
			case record.Mapping[property]:
				fmt.Fprintf(w, "  %v = %v (ok)\n", property, value)
			case value != model.ManifestForProperty[property]:
				fmt.Fprintf(w, "  %v = %v (expected %v)\n", property, value, model.ManifestForProperty[property])
			default:
				fmt.Fprintf(w, "  %v = %v (file missing)\n", property, value)
			}
		}
		if record.PropsNote != "" {
			fmt.Fprintf(w, "  note: %v\n", record.PropsNote)
		}
	}
	fmt.Fprintf(w, "summary: %v passed, %v failed, %v total\n", passed, failed, len(records))
}
