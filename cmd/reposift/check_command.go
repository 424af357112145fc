package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reposift/internal/logging"
	"reposift/internal/preflight"
	"reposift/internal/setstore"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify directories, credentials, and stage readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			failures := 0

			for _, line := range renderSectionHeader("Environment", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
					failures++
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Stages", colorize) {
				fmt.Fprintln(out, line)
			}
			logger := logging.NewNop()
			gh, err := newGitHubClient(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			stages, err := buildStages(cfg, gh, setstore.New(logger), logger)
			if err != nil {
				failures++
				fmt.Fprintln(out, renderStatusLine("benchmark", statusError, err.Error(), colorize))
			}
			if len(stages) == 0 && err == nil {
				fmt.Fprintln(out, renderStatusLine("stages", statusWarn, "no stages enabled; every new candidate is accepted", colorize))
			}
			for _, s := range stages {
				health := s.HealthCheck(cmd.Context())
				kind := statusOK
				detail := health.Detail
				if !health.Ready {
					kind = statusWarn
				}
				if detail == "" {
					detail = "ready"
				}
				fmt.Fprintln(out, renderStatusLine(health.Name, kind, detail, colorize))
			}

			if failures > 0 {
				return fmt.Errorf("%d check(s) failed", failures)
			}
			return nil
		},
	}
}
