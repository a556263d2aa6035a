// Command schedule-session is the core engine's orchestrator entry point
// (spec.md §6.5): it loads a dataset, runs the two-phase solve, and
// persists the resulting Solution. Flag parsing follows the teacher
// pack's cobra idiom (one Command, flags bound directly to local
// variables, a single RunE), adapted to carry the process's exit code
// back to main since spec.md §7 names one per error class.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"examtt/internal/backend/ortools"
	"examtt/internal/backend/reference"
	"examtt/internal/config"
	"examtt/internal/constraints"
	"examtt/internal/ingest"
	"examtt/internal/model"
	"examtt/internal/orchestrator"
	"examtt/internal/ports"
	"examtt/internal/problem"
	"examtt/internal/solution"
	"examtt/internal/telemetry"
)

// Exit codes, spec.md §6.5/§7.
const (
	exitSuccess      = 0
	exitConfigError  = 1
	exitDatasetError = 2
	exitInfeasible   = 3
	exitInternal     = 4
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	code := exitSuccess
	cmd := newRootCmd(&code)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil && code == exitSuccess {
		fmt.Fprintln(os.Stderr, err)
		code = exitInternal
	}
	return code
}

func newRootCmd(code *int) *cobra.Command {
	var (
		dataFile string
		outDir   string
		backend  string
	)

	cmd := &cobra.Command{
		Use:   "schedule-session",
		Short: "Solve one exam-timetabling session and persist the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			*code = executeSession(cmd, dataFile, outDir, backend)
			if *code != exitSuccess {
				return fmt.Errorf("schedule-session: exit %d", *code)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("session-id", "", "session identifier (required)")
	flags.String("template", "standard", "standard|emergency|exam_week|flexible|strict")
	flags.Float64("solver-time", 0, "override phase-1 solver time budget, seconds")
	flags.Int64("seed", 0, "override the deterministic RNG seed")
	flags.Float64("retention-threshold", 0, "override the GA front-filter retention threshold")
	flags.Bool("limit-data", false, "cap dataset size for a quick smoke run")
	flags.String("log-level", "info", "debug|info|warn|error")
	flags.StringVar(&dataFile, "data-file", "", "path to the dataset JSON file (required)")
	flags.StringVar(&outDir, "out-dir", "./out", "directory solved solutions are written to")
	flags.StringVar(&backend, "backend", "reference", "reference|ortools")

	return cmd
}

// executeSession runs the full pipeline and returns the process exit code
// spec.md §7 names; it never calls os.Exit itself so it stays testable.
func executeSession(cmd *cobra.Command, dataFile, outDir, backendName string) int {
	sess, err := config.Load(cmd.Flags(), "")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfigError
	}
	if dataFile == "" {
		fmt.Fprintln(os.Stderr, "schedule-session: --data-file is required")
		return exitConfigError
	}

	log, err := telemetry.NewLogger(sess.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfigError
	}
	defer log.Sync() //nolint:errcheck

	metrics, err := telemetry.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		log.Warn("metrics registration failed, continuing without them", zap.Error(err))
	}

	ctx := context.Background()
	source := ingest.NewFileDataSource(dataFile)
	sink := ingest.NewFileResultSink(outDir)

	sessionID, err := uuid.Parse(sess.SessionID)
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("schedule-session: invalid --session-id: %w", err))
		return exitConfigError
	}

	dataset, err := source.GetDataset(ctx, sessionID)
	if err != nil {
		log.Error("dataset load failed", zap.Error(err))
		return exitDatasetError
	}

	p, dsErr := problem.FromDataset(dataset)
	if dsErr != nil {
		log.Error("dataset invalid", zap.Strings("reasons", dsErr.Reasons))
		return exitDatasetError
	}

	newModel := modelFactory(backendName, sess.Seed)
	orch := orchestrator.New(constraints.NewRegistry(), newModel, log)

	result, err := orch.Run(ctx, p, sess.Orchestrator)
	if err != nil {
		log.Error("orchestrator run failed", zap.Error(err))
		return exitInternal
	}

	if metrics != nil {
		metrics.Observe(result.Performance)
	}

	result.Solution.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	meta := solution.SolutionMetadata{
		SessionID:         sessionID,
		TerminationReason: string(result.TerminationReason),
		SolverTimeSeconds: sess.SolverTimeSeconds,
		Seed:              sess.Seed,
	}

	if err := sink.Persist(ctx, result.Solution, meta); err != nil {
		log.Error("persisting solution failed", zap.Error(err))
		return exitInternal
	}

	if result.TerminationReason == orchestrator.Infeasible {
		log.Warn("session infeasible", zap.String("message", result.ErrorMessage))
		return exitInfeasible
	}
	log.Info("session solved",
		zap.String("status", string(result.Solution.Status)),
		zap.String("termination_reason", string(result.TerminationReason)))
	return exitSuccess
}

func modelFactory(name string, seed int64) orchestrator.ModelFactory {
	switch name {
	case "ortools":
		return func() model.ConstraintModel { return ortools.New() }
	default:
		return func() model.ConstraintModel { return reference.New(seed) }
	}
}

var _ ports.ResultSink = (*ingest.FileResultSink)(nil)
var _ ports.DataSource = (*ingest.FileDataSource)(nil)
