package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"voxnote/internal/config"
)

func newInitCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration and create the working directories",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, exists, err := config.ResolvePath(ctx.configValue())
			if err != nil {
				return fmt.Errorf("resolve config path: %w", err)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if exists && !force {
				fmt.Fprintln(out, renderStatusLine("Config", statusWarn, fmt.Sprintf("already exists at %s (use --force to overwrite)", target), colorize))
				return nil
			}

			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", filepath.Dir(target), err)
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}
			cfg, _, _, err := config.Load(target)
			if err != nil {
				return fmt.Errorf("load written config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			fmt.Fprintln(out, renderStatusLine("Config", statusOK, "written to "+target, colorize))
			for _, dir := range []string{cfg.Paths.Input, cfg.Paths.Output, cfg.Paths.Archive} {
				fmt.Fprintln(out, renderStatusLine("Directory", statusOK, dir, colorize))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration")
	return cmd
}

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	return configCmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			rows := [][]string{
				{"Config", ctx.configPath},
				{"Input", cfg.Paths.Input},
				{"Output", cfg.Paths.Output},
				{"Archive", cfg.Paths.Archive},
				{"State", cfg.Paths.State},
				{"Whisper model", cfg.Transcription.Model},
				{"LLM model", cfg.LLM.Model},
				{"VAD backend", cfg.VAD.Backend},
			}
			fmt.Fprintln(out, renderTable([]string{"Setting", "Value"}, rows, nil))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
