package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/config"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/event"
)

func resetCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Archive every row left on the daily tracker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executePhase(flags, event.PhaseReset, false, cmd.OutOrStdout())
		},
	}
}

func selectCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Pick today's quests from the catalog and place them on the tracker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			return executePhase(flags, event.PhaseSelect, dryRun, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Bool("dry-run", false, "report the picks without writing to the tracker")
	return cmd
}

func reconcileCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Log completed quests and grant their XP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executePhase(flags, event.PhaseReconcile, false, cmd.OutOrStdout())
		},
	}
}

func runCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run all phases on their schedules until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			noTUI, _ := cmd.Flags().GetBool("no-tui")
			return executeDaemon(flags, noTUI, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Bool("no-tui", false, "print events as plain lines instead of the dashboard")
	return cmd
}

func statusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show per-phase state, next runs and recent results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus(flags, cmd.OutOrStdout())
		},
	}
}

func todayCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show today's completed quests and XP by skill",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showToday(flags, cmd.OutOrStdout())
		},
	}
}

func historyCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled phase runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			name, _ := cmd.Flags().GetString("phase")
			var phase event.Phase
			if name != "" {
				p, ok := event.ParsePhase(name)
				if !ok {
					return fmt.Errorf("unknown phase %q (want reset, select or reconcile)", name)
				}
				phase = p
			}
			return showHistory(flags, phase, limit, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Int("limit", 20, "maximum runs to show (0 = all)")
	cmd.Flags().String("phase", "", "only show runs of this phase")
	return cmd
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Scaffold quest.toml and .env.example in the working directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			created, err := config.ScaffoldProject(dir)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatScaffoldResult(created))
			return nil
		},
	}
}
