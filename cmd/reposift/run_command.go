package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"reposift/internal/logging"
	"reposift/internal/pipeline"
	"reposift/internal/preflight"
)

type stageView struct {
	Stage           string `json:"stage"`
	Accepted        int    `json:"accepted"`
	Rejected        int    `json:"rejected"`
	Skipped         int    `json:"skipped"`
	Known           int    `json:"known"`
	PersistFailures int    `json:"persist_failures,omitempty"`
}

type summaryView struct {
	RunID         string      `json:"run_id"`
	StartedAt     time.Time   `json:"started_at"`
	FinishedAt    time.Time   `json:"finished_at"`
	Previous      int         `json:"previous"`
	Reconciled    int         `json:"reconciled"`
	Ignored       int         `json:"ignored"`
	Fetched       int         `json:"fetched"`
	NewCandidates int         `json:"new_candidates"`
	Accepted      int         `json:"accepted"`
	GreenTotal    int         `json:"green_total"`
	Stages        []stageView `json:"stages"`
	SourceError   string      `json:"source_error,omitempty"`
}

func newSummaryView(s pipeline.Summary) summaryView {
	view := summaryView{
		RunID:         s.RunID,
		StartedAt:     s.StartedAt,
		FinishedAt:    s.FinishedAt,
		Previous:      s.Previous,
		Reconciled:    s.Reconciled,
		Ignored:       s.Ignored,
		Fetched:       s.Fetched,
		NewCandidates: s.NewCandidates,
		Accepted:      s.Accepted,
		GreenTotal:    s.GreenTotal,
		Stages:        make([]stageView, 0, len(s.Stages)),
	}
	for _, r := range s.Stages {
		view.Stages = append(view.Stages, stageView{
			Stage:           r.Stage,
			Accepted:        len(r.Accepted),
			Rejected:        len(r.Rejected),
			Skipped:         len(r.Skipped),
			Known:           r.Known,
			PersistFailures: r.PersistFailures,
		})
	}
	if s.SourceErr != nil {
		view.SourceError = s.SourceErr.Error()
	}
	return view
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one discovery and filtering pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			runCtx := cmd.Context()
			if !skipPreflight {
				for _, failed := range preflight.Failed(preflight.RunAll(runCtx, cfg)) {
					logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
						logging.String("check", failed.Name),
						logging.String("detail", failed.Detail),
					)
				}
			}

			rt, err := buildRuntime(runCtx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			summary, runErr := rt.pipeline.Run(runCtx)
			if errors.Is(runErr, pipeline.ErrRunInProgress) {
				return runErr
			}

			if jsonOutput {
				if err := writeJSON(cmd, newSummaryView(summary)); err != nil {
					return err
				}
			} else {
				printSummary(cmd.OutOrStdout(), summary)
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip directory and credential checks before running")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run summary as JSON")
	return cmd
}

func printSummary(out io.Writer, s pipeline.Summary) {
	fmt.Fprintf(out, "Run %s finished in %s\n", s.RunID, s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	if s.SourceErr != nil {
		fmt.Fprintf(out, "Upstream search failed: %v\n", s.SourceErr)
	}

	counts := [][]string{
		{"Green list (before)", strconv.Itoa(s.Previous)},
		{"Reconciled as owned", strconv.Itoa(s.Reconciled)},
		{"Ignored identities", strconv.Itoa(s.Ignored)},
		{"Fetched", strconv.Itoa(s.Fetched)},
		{"New candidates", strconv.Itoa(s.NewCandidates)},
		{"Accepted", strconv.Itoa(s.Accepted)},
		{"Skipped", strconv.Itoa(s.Skipped())},
		{"Green list (after)", strconv.Itoa(s.GreenTotal)},
	}
	fmt.Fprintln(out, renderTable([]string{"Count", "Value"}, counts, []columnAlignment{alignLeft, alignRight}))

	if len(s.Stages) == 0 {
		return
	}
	rows := make([][]string, 0, len(s.Stages))
	for _, r := range s.Stages {
		rows = append(rows, []string{
			r.Stage,
			strconv.Itoa(len(r.Accepted)),
			strconv.Itoa(len(r.Rejected)),
			strconv.Itoa(len(r.Skipped)),
			strconv.Itoa(r.Known),
			strconv.Itoa(r.PersistFailures),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Stage", "Accepted", "Rejected", "Skipped", "Known", "Unsaved"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	))
}
