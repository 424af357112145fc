package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reposift/internal/config"
	"reposift/internal/logging"
	"reposift/internal/setstore"
)

// setNames lists the durable identity sets in display order.
var setNames = []string{"owned", "language-rejected", "benchmark-blacklist"}

func setPath(cfg *config.Config, name string) (string, error) {
	switch name {
	case "owned":
		return cfg.Paths.OwnedFile, nil
	case "language-rejected":
		return cfg.Paths.LanguageRejectedFile, nil
	case "benchmark-blacklist":
		return cfg.Paths.BenchmarkBlacklistFile, nil
	default:
		return "", fmt.Errorf("unknown set %q (expected one of %s)", name, strings.Join(setNames, ", "))
	}
}

func newSetsCommand(ctx *commandContext) *cobra.Command {
	setsCmd := &cobra.Command{
		Use:   "sets",
		Short: "Inspect the owned and rejection sets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store := setstore.New(logging.NewNop())
			rows := make([][]string, 0, len(setNames))
			for _, name := range setNames {
				path, _ := setPath(cfg, name)
				rows = append(rows, []string{name, strconv.Itoa(store.Load(path).Len()), path})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Set", "Size", "Path"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	setsCmd.AddCommand(newSetsShowCommand(ctx))
	setsCmd.AddCommand(newSetsAddCommand(ctx))
	return setsCmd
}

func newSetsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:       "show <set>",
		Short:     "List the identities in a set",
		Args:      cobra.ExactArgs(1),
		ValidArgs: setNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := setPath(cfg, args[0])
			if err != nil {
				return err
			}
			identities := setstore.New(logging.NewNop()).Load(path).Sorted()
			if jsonOutput {
				if identities == nil {
					identities = []string{}
				}
				return writeJSON(cmd, identities)
			}
			out := cmd.OutOrStdout()
			for _, id := range identities {
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print identities as a JSON array")
	return cmd
}

func newSetsAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <set> <identity>...",
		Short: "Add identities to a set",
		Long: "Add repository URLs to a set. Adding to owned removes matching\n" +
			"entries from the green list on the next run.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := setPath(cfg, args[0])
			if err != nil {
				return err
			}
			store := setstore.New(logging.NewNop())
			before := store.Load(path).Len()
			if err := store.Merge(path, setstore.NewIdentitySet(args[1:]...)); err != nil {
				return err
			}
			after := store.Load(path).Len()
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d new identities to %s (%d total)\n", after-before, args[0], after)
			return nil
		},
	}
}
