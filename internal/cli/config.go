package cli

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/peersync/internal/config"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.PersistentFlags().StringVarP(&path, "config", "c", "", "path to YAML configuration file")

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd, rootOpts, path)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check the merged configuration against the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigValidate(cmd, rootOpts, path)
		},
	})

	return cmd
}

func runConfigShow(cmd *cobra.Command, opts *RootOptions, path string) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	cfg, err := config.Load(path)
	if err != nil {
		_ = formatter.Error(CodeConfigLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	redacted := cfg.Redacted()

	if opts.Format == "json" {
		return formatter.Success(redacted)
	}
	var buf bytes.Buffer
	if err := redacted.WriteYAML(&buf); err != nil {
		return WrapExitError(ExitFailure, "failed to render configuration", err)
	}
	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

func runConfigValidate(cmd *cobra.Command, opts *RootOptions, path string) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	cfg, err := config.Load(path)
	if err != nil {
		_ = formatter.Error(CodeConfigLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	err = cfg.Validate()
	var ve *config.ValidationError
	switch {
	case err == nil:
		if opts.Format == "json" {
			return formatter.Success(map[string]bool{"valid": true})
		}
		return formatter.Success("✓ Configuration valid")
	case errors.As(err, &ve):
		_ = formatter.Error(CodeConfigInvalid, "configuration invalid", ve.Problems)
		if opts.Format != "json" {
			for _, p := range ve.Problems {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", p)
			}
		}
		return NewExitError(ExitFailure, "configuration invalid")
	default:
		return WrapExitError(ExitCommandError, "failed to validate configuration", err)
	}
}
