package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/peersync/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter    string // glob matched against scenario file names
	GoldenDir string // compare traces with {name}.golden files here
	Update    bool   // rewrite golden files instead of comparing
}

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult aggregates a test run.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run replication scenarios against an in-process peer pair",
		Long: `Run YAML replication scenarios. Each scenario starts two fresh peers
that replicate to each other over loopback HTTP, sends its steps and
checks the responses, the peers' state and the requests that crossed
the boundary.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, malformed scenario, etc.)

Examples:
  peersync test ./scenarios
  peersync test ./scenarios --filter "order_*"
  peersync test ./scenarios --golden-dir ./golden --update
  peersync test ./scenarios --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenario files by glob pattern")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden-dir", "", "directory of golden trace files")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden files (requires --golden-dir)")

	return cmd
}

func runTests(cmd *cobra.Command, opts *TestOptions, dir string) error {
	if opts.Update && opts.GoldenDir == "" {
		return NewExitError(ExitCommandError, "--update requires --golden-dir")
	}
	if _, err := filepath.Match(opts.Filter, ""); err != nil {
		return WrapExitError(ExitCommandError, "invalid --filter pattern", err)
	}

	files, err := harness.FindScenarios(dir)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("scenarios directory not readable: %s", dir), err)
	}
	if opts.Filter != "" {
		kept := files[:0]
		for _, f := range files {
			if ok, _ := filepath.Match(opts.Filter, filepath.Base(f)); ok {
				kept = append(kept, f)
			}
		}
		files = kept
	}

	scenarios := make([]*harness.Scenario, 0, len(files))
	for _, f := range files {
		sc, err := harness.LoadScenario(f)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid scenario", err)
		}
		scenarios = append(scenarios, sc)
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(scenarios)), Total: len(scenarios)}
	for i, sc := range scenarios {
		sr := runScenario(cmd, opts, sc, files[i])
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result, opts.Verbose)
}

func runScenario(cmd *cobra.Command, opts *TestOptions, sc *harness.Scenario, file string) ScenarioResult {
	sr := ScenarioResult{Name: sc.Name, File: file}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := harness.Run(ctx, sc)
	if err != nil {
		sr.Errors = []string{err.Error()}
		return sr
	}
	sr.Pass = res.Pass
	sr.Errors = res.Errors

	if opts.GoldenDir == "" {
		return sr
	}
	snapshot, err := harness.MarshalSnapshot(sc.Name, res)
	if err != nil {
		sr.Pass = false
		sr.Errors = append(sr.Errors, err.Error())
		return sr
	}
	if msg := checkGolden(filepath.Join(opts.GoldenDir, sc.Name+".golden"), snapshot, opts.Update); msg != "" {
		sr.Pass = false
		sr.Errors = append(sr.Errors, msg)
	}
	return sr
}

// checkGolden compares snapshot with the golden file at path, or rewrites
// it when update is set. It returns a failure message or "".
func checkGolden(path string, snapshot []byte, update bool) string {
	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Sprintf("failed to create golden directory: %v", err)
		}
		if err := os.WriteFile(path, snapshot, 0o644); err != nil {
			return fmt.Sprintf("failed to write golden file: %v", err)
		}
		return ""
	}

	want, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Sprintf("golden file %s does not exist (run with --update)", path)
	}
	if err != nil {
		return fmt.Sprintf("failed to read golden file: %v", err)
	}
	if !bytes.Equal(want, snapshot) {
		return fmt.Sprintf("trace differs from %s", path)
	}
	return ""
}

func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    CodeScenarioFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

func outputTestText(cmd *cobra.Command, result TestResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}

	for _, sr := range result.Scenarios {
		if sr.Pass {
			fmt.Fprintf(w, "✓ %s\n", sr.Name)
			if verbose {
				fmt.Fprintf(w, "    %s\n", sr.File)
			}
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", sr.Name)
		for _, e := range sr.Errors {
			fmt.Fprintf(w, "    %s\n", e)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
