package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"voxnote/internal/config"
	"voxnote/internal/logging"
	"voxnote/internal/metrics"
	"voxnote/internal/workflow"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) configValue() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(c.configValue())
		c.configPath = path
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = fmt.Errorf("ensure directories: %w", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(cfg *config.Config) (*slog.Logger, error) {
	level := ""
	if c.verbose != nil && *c.verbose {
		level = "debug"
	}
	logger, err := logging.NewFromConfig(cfg, level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

// run holds what one stage command needs.
type run struct {
	cfg      *config.Config
	workflow *workflow.Workflow
	metrics  *metrics.Recorder
}

func (c *commandContext) newRun(cmd *cobra.Command) (*run, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.logger(cfg)
	if err != nil {
		return nil, err
	}
	printer := newEventPrinter(cmd.OutOrStdout())
	recorder := metrics.New()
	wf := workflow.NewDefault(cfg, logger,
		workflow.WithEmitter(printer.Print),
		workflow.WithMetrics(recorder),
	)
	return &run{cfg: cfg, workflow: wf, metrics: recorder}, nil
}

// finish writes the metrics textfile when one is configured. A write
// failure is reported but does not fail the run.
func (r *run) finish(cmd *cobra.Command, runErr error) error {
	if err := r.metrics.WriteTextfile(r.cfg.Metrics.Textfile); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: write metrics textfile: %v\n", err)
	}
	return runErr
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for current := cmd; current != nil; current = current.Parent() {
		if current.Annotations != nil && current.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
