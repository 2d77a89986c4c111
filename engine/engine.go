// Package engine runs the full analysis pipeline over an element tree:
// fact extraction and documentation parsing feed the validator, and
// non-compliant elements flow into the synthesizer. Elements are
// independent, so a batch is processed by a bounded worker pool over the
// read-only tree snapshot; output order is the tree's depth-first order
// regardless of scheduling.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/c360studio/contractspec/docparse"
	"github.com/c360studio/contractspec/element"
	"github.com/c360studio/contractspec/facts"
	"github.com/c360studio/contractspec/report"
	"github.com/c360studio/contractspec/synth"
	"github.com/c360studio/contractspec/validate"
)

// Options configures one analysis run.
type Options struct {
	// Validation behavior, passed through to the validator and synthesizer.
	StrictRaises                 bool
	RedundancySensitivity        validate.Sensitivity
	ContractsMandatoryForClasses bool

	// Synthesize enables documentation regeneration for non-compliant
	// elements. When false the run is check-only.
	Synthesize bool

	// Workers bounds the element worker pool; 0 means GOMAXPROCS.
	Workers int

	Logger *slog.Logger
}

func (o Options) validateOptions() validate.Options {
	return validate.Options{
		StrictRaises:                 o.StrictRaises,
		RedundancySensitivity:        o.RedundancySensitivity,
		ContractsMandatoryForClasses: o.ContractsMandatoryForClasses,
	}
}

// Run analyzes every element of the tree and returns the per-element
// records in depth-first tree order. The only fatal error is a schema
// lookup failure, which signals a front-end contract violation; every
// other finding lands in the records.
func Run(ctx context.Context, root *element.Element, opts Options) (*report.Report, error) {
	if err := root.Validate(); err != nil {
		return nil, fmt.Errorf("invalid element tree: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	elements := root.Flatten()
	records := make([]report.Record, len(elements))

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, el := range elements {
		g.Go(func() error {
			// No cancellation mid-element: once started, an element's
			// pipeline runs to completion.
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			rec, err := Process(el, opts)
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := report.New()
	rep.Records = records

	s := rep.Summarize()
	logger.Info("analysis run complete",
		"run_id", rep.RunID,
		"elements", s.Elements,
		"compliant", s.Compliant,
		"diagnostics", s.Diagnostics,
		"regenerated", s.Regenerated,
		"unresolved", s.Unresolved)

	return rep, nil
}

// Process runs the pipeline for a single element. Diagnostics are ordered:
// parse and body diagnostics first, then the validator's fixed check order.
func Process(el *element.Element, opts Options) (report.Record, error) {
	rec := report.Record{
		QualifiedPath: el.QualifiedPath,
		Kind:          el.Kind,
		Name:          el.Name,
		Path:          el.Path,
		StartLine:     el.StartLine,
		EndLine:       el.EndLine,
	}

	// Parse existing documentation. Malformed text falls back to an empty
	// tree plus a diagnostic; analysis continues.
	parsed, err := docparse.Parse(el.DocText, el.Kind)
	if err != nil {
		var parseErr *docparse.ParseError
		if !errors.As(err, &parseErr) {
			return rec, fmt.Errorf("parse documentation of %s: %w", el.QualifiedPath, err)
		}
		rec.Diagnostics = append(rec.Diagnostics, validate.NewParseDiagnostic(parseErr))
		parsed = &docparse.Result{Tree: &docparse.SectionTree{}}
	}

	// Fact extraction never fails hard; unreadable bodies are flagged and
	// documentation is still produced best-effort.
	fs, readable := facts.Extract(el)
	if !readable && el.Kind != element.KindModule && el.Kind != element.KindClass {
		rec.Diagnostics = append(rec.Diagnostics, validate.NewUnreadableBodyDiagnostic())
	}

	diags, err := validate.Check(el, parsed, fs, opts.validateOptions())
	if err != nil {
		// Unknown element kind: contract violation between the front end
		// and the engine, fatal for the whole run.
		return rec, err
	}
	rec.Diagnostics = append(rec.Diagnostics, diags...)

	rec.Purpose = parsed.Tree.Purpose
	rec.Description = parsed.Tree.Description

	if opts.Synthesize && len(rec.Diagnostics) > 0 {
		text, err := synth.Generate(el, parsed, fs, diags, opts.validateOptions())
		if err != nil {
			var unresolved *synth.UnresolvedError
			if errors.As(err, &unresolved) {
				rec.Unresolved = true
				rec.UnresolvedSection = string(unresolved.Section)
				return rec, nil
			}
			return rec, err
		}
		rec.RegeneratedText = text

		// Record fields reflect the final documentation state.
		if regenerated, err := docparse.Parse(text, el.Kind); err == nil {
			rec.Purpose = regenerated.Tree.Purpose
			rec.Description = regenerated.Tree.Description
		}
	}

	return rec, nil
}
