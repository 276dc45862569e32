package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/trizel-project/epistemic-engine/internal/recorder"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	RunID    string
	MethodID string
}

// RunSummary is the payload reported after a successful run.
type RunSummary struct {
	RunID           string            `json:"run_id"`
	RunDir          string            `json:"run_dir"`
	MethodID        string            `json:"method_id"`
	Layout          recorder.Layout   `json:"layout"`
	Commit          recorder.Commit   `json:"commit"`
	InputFilesCount int               `json:"input_files_count"`
	Outputs         []recorder.Output `json:"outputs"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Record a deterministic contract-only run",
		Long: `Record a deterministic contract-only run.

The method id must name an active method in the method registry, the input
scope must be a directory, and the run directory must not exist yet. Artifacts
are written under the output root, which must sit under analysis_artifacts/ or
releases/. Without --run-id an id is derived from the UTC time and the commit.

Example:
  trizel run --run-id CI_CONTRACT_TEST --method-id P3.M0.CONTRACT_ONLY
  trizel run --method-id P3.M0.CONTRACT_ONLY --input-scope states/3I_ATLAS --layout hashed`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecorder(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "run id (default: <UTC timestamp>_<short commit>)")
	cmd.Flags().StringVar(&opts.MethodID, "method-id", "", "method id from the method registry (required)")
	cmd.Flags().String("input-scope", "", "directory of input states (default from config)")
	cmd.Flags().String("layout", "", "artifact layout: contract|hashed (default from config)")
	cmd.Flags().String("output-root", "", "output root under analysis_artifacts/ or releases/ (default from config)")
	cmd.Flags().String("method-registry", "", "method registry file (default from config)")
	_ = cmd.MarkFlagRequired("method-id")

	return cmd
}

func runRecorder(opts *RunOptions, cmd *cobra.Command) error {
	formatter, err := opts.prepare(cmd)
	if err != nil {
		return err
	}
	cfg := opts.Config
	logger := opts.Logger

	layout, err := recorder.ParseLayout(cfg.Layout)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeConfig, "invalid layout", err)
	}

	methods, err := recorder.LoadMethods(cfg.MethodRegistry)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeLoadFailed, "failed to load method registry", err)
	}
	formatter.VerboseLog("Loaded %d method(s) from %s", len(methods.Methods), cfg.MethodRegistry)

	workDir, err := os.Getwd()
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, "cannot determine working directory", err)
	}

	rec := &recorder.Recorder{
		WorkDir:    workDir,
		OutputRoot: cfg.OutputRoot,
		Repository: cfg.Repository,
		Phase:      cfg.Phase,
		Layout:     layout,
		Methods:    methods,
		Commit: recorder.CommitSource{
			OverrideEnv: cfg.Commit.OverrideEnv,
			SHAEnv:      cfg.Commit.SHAEnv,
		},
		Logger: logger,
	}

	// An interrupt stops the run between artifact writes.
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Warn("received signal, stopping run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	res, err := rec.Run(ctx, recorder.Request{
		RunID:         opts.RunID,
		GenerateRunID: !cmd.Flags().Changed("run-id"),
		MethodID:      opts.MethodID,
		InputScope:    cfg.InputScope,
	})
	if err != nil {
		if recorder.IsContractError(err) {
			_ = formatter.Error(ErrCodeContract, err.Error(), map[string]string{
				"contract": string(recorder.ContractCodeOf(err)),
			})
			return WrapExitError(ExitCommandError, ErrCodeContract+": contract violation", err)
		}
		return formatter.fail(ExitCommandError, ErrCodeWriteFailed, "run failed", err)
	}

	summary := RunSummary{
		RunID:           res.RunID,
		RunDir:          res.RunDir,
		MethodID:        res.MethodID,
		Layout:          res.Layout,
		Commit:          res.Commit,
		InputFilesCount: res.InputFilesCount,
		Outputs:         res.Outputs,
	}
	if formatter.JSON() {
		return formatter.Success(summary)
	}

	fmt.Fprintf(formatter.Writer, "✓ Run %s recorded (%s layout)\n", res.RunID, res.Layout)
	fmt.Fprintf(formatter.Writer, "  method:      %s\n", res.MethodID)
	fmt.Fprintf(formatter.Writer, "  commit:      %s (%s)\n", res.Commit.SHA, res.Commit.Source)
	fmt.Fprintf(formatter.Writer, "  input files: %d\n", res.InputFilesCount)
	for _, out := range res.Outputs {
		fmt.Fprintf(formatter.Writer, "  wrote %s %s\n", out.Path, out.Digest)
	}
	return nil
}
