// Package report turns validator diagnostics and synthesizer output into
// caller-consumable records. No analysis logic lives here; this is pure
// formatting and serialization.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/contractspec/element"
	"github.com/c360studio/contractspec/validate"
)

// Record pairs one element's qualified path with its diagnostics and, when
// regeneration happened, its new documentation text.
type Record struct {
	QualifiedPath string       `json:"qualified_path"`
	Kind          element.Kind `json:"kind"`
	Name          string       `json:"name"`
	Path          string       `json:"path,omitempty"`
	StartLine     int          `json:"start_line,omitempty"`
	EndLine       int          `json:"end_line,omitempty"`

	// Purpose and Description come from the final section tree and feed
	// the module map.
	Purpose     string `json:"purpose,omitempty"`
	Description string `json:"description,omitempty"`

	Diagnostics []validate.Diagnostic `json:"diagnostics"`

	// RegeneratedText is present only when the synthesizer produced new
	// documentation for this element.
	RegeneratedText string `json:"regenerated_text,omitempty"`

	// Unresolved marks an element whose required documentation could not
	// be synthesized; UnresolvedSection names the section at fault.
	Unresolved        bool   `json:"unresolved,omitempty"`
	UnresolvedSection string `json:"unresolved_section,omitempty"`
}

// Compliant reports whether validation produced no diagnostics at all.
func (r Record) Compliant() bool {
	return len(r.Diagnostics) == 0 && !r.Unresolved
}

// Failed reports whether any diagnostic carries error severity.
func (r Record) Failed() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == validate.SeverityError {
			return true
		}
	}
	return false
}

// Report is the output of one analysis run. Records keep the depth-first
// order of the input tree so identical input yields byte-identical output.
type Report struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Records     []Record  `json:"records"`
}

// New creates an empty report with a fresh run ID.
func New() *Report {
	return &Report{
		RunID:       uuid.New().String(),
		GeneratedAt: time.Now().UTC(),
	}
}

// Summary counts the run's outcomes.
type Summary struct {
	Elements    int `json:"elements"`
	Compliant   int `json:"compliant"`
	Diagnostics int `json:"diagnostics"`
	Regenerated int `json:"regenerated"`
	Unresolved  int `json:"unresolved"`
}

// Summarize computes the outcome counts for a report.
func (r *Report) Summarize() Summary {
	s := Summary{Elements: len(r.Records)}
	for _, rec := range r.Records {
		if rec.Compliant() {
			s.Compliant++
		}
		s.Diagnostics += len(rec.Diagnostics)
		if rec.RegeneratedText != "" {
			s.Regenerated++
		}
		if rec.Unresolved {
			s.Unresolved++
		}
	}
	return s
}

// WriteJSON serializes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText writes a human-readable summary: one block per element with
// its diagnostics, then the run totals.
func (r *Report) WriteText(w io.Writer) error {
	for _, rec := range r.Records {
		status := "ok"
		switch {
		case rec.Unresolved:
			status = "unresolved"
		case rec.Failed():
			status = "failed"
		case len(rec.Diagnostics) > 0:
			status = "non-compliant"
		}
		if _, err := fmt.Fprintf(w, "%s (%s) [%s]\n", rec.QualifiedPath, rec.Kind, status); err != nil {
			return err
		}
		for _, d := range rec.Diagnostics {
			if _, err := fmt.Fprintf(w, "  %s\n", d.String()); err != nil {
				return err
			}
		}
		if rec.Unresolved {
			if _, err := fmt.Fprintf(w, "  cannot synthesize %s\n", rec.UnresolvedSection); err != nil {
				return err
			}
		}
		if rec.RegeneratedText != "" {
			if _, err := fmt.Fprintf(w, "  regenerated:\n%s\n", indentBlock(rec.RegeneratedText, "    ")); err != nil {
				return err
			}
		}
	}

	s := r.Summarize()
	_, err := fmt.Fprintf(w, "\n%d elements, %d compliant, %d diagnostics, %d regenerated, %d unresolved\n",
		s.Elements, s.Compliant, s.Diagnostics, s.Regenerated, s.Unresolved)
	return err
}

func indentBlock(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
