package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/contractspec/config"
	"github.com/c360studio/contractspec/engine"
	"github.com/c360studio/contractspec/frontend"
	"github.com/c360studio/contractspec/report"
)

// runAnalysis lowers the configured source trees and runs the pipeline
// over every module.
func runAnalysis(ctx context.Context, cfg *config.Config, synthesize bool) (*report.Report, error) {
	roots, err := frontend.ResolvePaths(cfg.Source.Paths)
	if err != nil {
		return nil, fmt.Errorf("resolve source paths: %w", err)
	}

	opts := engineOptions(cfg, synthesize)

	languages := cfg.Source.Languages
	if len(languages) == 0 {
		languages = frontend.DefaultRegistry.Languages()
	}

	rep := report.New()
	for _, root := range roots {
		for _, lang := range languages {
			parser, err := frontend.DefaultRegistry.Create(lang, root)
			if err != nil {
				return nil, err
			}
			results, err := parser.ParseDirectory(ctx, root)
			if err != nil {
				return nil, fmt.Errorf("lower %s sources under %s: %w", lang, root, err)
			}
			for _, pr := range results {
				fileRep, err := engine.Run(ctx, pr.Module, opts)
				if err != nil {
					return nil, fmt.Errorf("analyze %s: %w", pr.Path, err)
				}
				rep.Records = append(rep.Records, fileRep.Records...)
			}
		}
	}
	return rep, nil
}

func engineOptions(cfg *config.Config, synthesize bool) engine.Options {
	vopts := cfg.ValidatorOptions()
	return engine.Options{
		StrictRaises:                 vopts.StrictRaises,
		RedundancySensitivity:        vopts.RedundancySensitivity,
		ContractsMandatoryForClasses: vopts.ContractsMandatoryForClasses,
		Synthesize:                   synthesize,
		Workers:                      cfg.Engine.Workers,
	}
}

func loadConfig() (*config.Config, error) {
	return config.NewLoader(slog.Default()).Load()
}

func writeReport(rep *report.Report, cfg *config.Config) error {
	if cfg.Output.Format == "json" {
		return rep.WriteJSON(os.Stdout)
	}
	return rep.WriteText(os.Stdout)
}

// exitCode maps a report onto a process exit status: 0 when every element
// is compliant, 1 otherwise.
func exitCode(rep *report.Report) int {
	s := rep.Summarize()
	if s.Compliant == s.Elements && s.Unresolved == 0 {
		return 0
	}
	return 1
}

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Validate contract documentation without modifying anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.Source.Paths = args
			}

			rep, err := runAnalysis(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			if err := writeReport(rep, cfg); err != nil {
				return err
			}
			os.Exit(exitCode(rep))
			return nil
		},
	}
	return cmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [paths...]",
		Short: "Validate and regenerate documentation for non-compliant elements",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.Source.Paths = args
			}

			rep, err := runAnalysis(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			return writeReport(rep, cfg)
		},
	}
	return cmd
}

func moduleMapCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "modulemap [paths...]",
		Short: "Render the module map navigation index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.Source.Paths = args
			}
			if outputPath == "" {
				outputPath = cfg.Output.ModuleMapPath
			}

			rep, err := runAnalysis(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}

			text := report.ModuleMap(rep)
			if outputPath != "" {
				return os.WriteFile(outputPath, []byte(text), 0644)
			}
			fmt.Println(text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the module map to a file instead of stdout")
	return cmd
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Watch a source tree and re-check files as they change",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			root := cfg.Source.Paths[0]
			if len(args) > 0 {
				root = args[0]
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			watcher, err := frontend.NewWatcher(frontend.WatcherConfig{
				Root:          root,
				DebounceDelay: cfg.Source.WatchDebounce,
				Logger:        slog.Default(),
			})
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			defer watcher.Stop()

			opts := engineOptions(cfg, false)

			// Initial pass over the whole tree.
			results, err := watcher.IndexDirectory(ctx)
			if err != nil {
				return fmt.Errorf("initial index: %w", err)
			}
			for _, pr := range results {
				if err := checkAndPrint(ctx, pr, opts); err != nil {
					return err
				}
			}

			if err := watcher.Start(ctx); err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}

			for {
				select {
				case <-ctx.Done():
					return nil
				case event, ok := <-watcher.Events():
					if !ok {
						return nil
					}
					if event.Error != nil {
						slog.Warn("failed to lower changed file", "path", event.Path, "error", event.Error)
						continue
					}
					if event.Operation == frontend.OpDelete || event.Result == nil {
						continue
					}
					if err := checkAndPrint(ctx, event.Result, opts); err != nil {
						slog.Error("analysis failed", "path", event.Path, "error", err)
					}
				}
			}
		},
	}
	return cmd
}

func checkAndPrint(ctx context.Context, pr *frontend.ParseResult, opts engine.Options) error {
	rep, err := engine.Run(ctx, pr.Module, opts)
	if err != nil {
		return err
	}
	s := rep.Summarize()
	if s.Compliant == s.Elements {
		fmt.Printf("%s: ok (%d elements)\n", pr.Path, s.Elements)
		return nil
	}
	return rep.WriteText(os.Stdout)
}
