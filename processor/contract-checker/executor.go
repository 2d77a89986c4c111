package contractchecker

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/c360studio/semstreams/message"

	"github.com/c360studio/contractspec/element"
	"github.com/c360studio/contractspec/engine"
	"github.com/c360studio/contractspec/frontend"
	"github.com/c360studio/contractspec/report"
	"github.com/c360studio/contractspec/validate"
)

// Executor runs contract checks for one request. Pure logic, no NATS.
type Executor struct {
	registry *frontend.Registry
	config   Config
	logger   *slog.Logger
}

// NewExecutor creates an executor over the given parser registry.
func NewExecutor(registry *frontend.Registry, config Config, logger *slog.Logger) *Executor {
	if registry == nil {
		registry = frontend.DefaultRegistry
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{registry: registry, config: config, logger: logger}
}

// Execute lowers the requested source tree and runs the analysis pipeline.
// The returned result always carries the request ID; a failed run carries
// the error string instead of records.
func (e *Executor) Execute(ctx context.Context, req *CheckRequest) (*CheckResult, error) {
	start := time.Now()

	result := &CheckResult{
		RequestID: req.RequestID,
		Root:      req.Root,
	}

	roots := []string{req.Root}
	if len(req.Paths) > 0 {
		patterns := make([]string, 0, len(req.Paths))
		for _, p := range req.Paths {
			patterns = append(patterns, filepath.Join(req.Root, p))
		}
		resolved, err := frontend.ResolvePaths(patterns)
		if err != nil {
			return nil, fmt.Errorf("resolve paths: %w", err)
		}
		roots = resolved
	}

	opts := engine.Options{
		StrictRaises:                 e.config.StrictRaises,
		RedundancySensitivity:        validate.Sensitivity(e.config.RedundancySensitivity),
		ContractsMandatoryForClasses: e.config.ContractMandatoryForClasses,
		Synthesize:                   req.Synthesize,
		Workers:                      e.config.Workers,
		Logger:                       e.logger,
	}
	if req.StrictRaises != nil {
		opts.StrictRaises = *req.StrictRaises
	}

	var records []report.Record
	var graph []message.Triple
	for _, root := range roots {
		for _, lang := range e.registry.Languages() {
			parser, err := e.registry.Create(lang, root)
			if err != nil {
				return nil, err
			}
			parsed, err := parser.ParseDirectory(ctx, root)
			if err != nil {
				return nil, fmt.Errorf("lower %s sources under %s: %w", lang, root, err)
			}
			for _, pr := range parsed {
				rep, err := engine.Run(ctx, pr.Module, opts)
				if err != nil {
					return nil, fmt.Errorf("analyze %s: %w", pr.Path, err)
				}
				records = append(records, rep.Records...)
				pr.Module.Walk(func(el *element.Element) bool {
					graph = append(graph, el.Triples()...)
					return true
				})
			}
		}
	}

	rep := report.New()
	rep.Records = records

	result.RunID = rep.RunID
	result.Summary = rep.Summarize()
	result.Records = records
	result.Graph = graph

	e.observe(result, time.Since(start))
	return result, nil
}

func (e *Executor) observe(result *CheckResult, elapsed time.Duration) {
	runDuration.Observe(elapsed.Seconds())
	elementsChecked.Add(float64(result.Summary.Elements))
	docsRegenerated.Add(float64(result.Summary.Regenerated))
	for _, rec := range result.Records {
		for _, d := range rec.Diagnostics {
			diagnosticsEmitted.WithLabelValues(string(d.Code)).Inc()
		}
	}
}
