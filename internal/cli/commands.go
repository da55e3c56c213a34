package cli

import (
	"fmt"
	"os"
	"time"

	"codemaster/internal/importer"
	"github.com/spf13/cobra"
)

// NewImportCmd replaces the question catalog with a JSON content pack.
func NewImportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the question catalog with a JSON content pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			qs, err := importer.Parse(f, time.Now())
			if err != nil {
				return err
			}

			service, cleanup, err := loadService(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := service.ImportQuestions(cmd.Context(), qs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d questions\n", len(qs))
			return nil
		},
	}
}

// NewStatsCmd prints the player profile and the last week of averages.
func NewStatsCmd(configPath *string) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show level, XP, streak and recent averages",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			service, cleanup, err := loadService(ctx, *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			profile, err := service.Profile(ctx)
			if err != nil {
				return err
			}
			averages, err := service.DailyAverages(ctx, days)
			if err != nil {
				return err
			}
			cats, err := service.Categories(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Level %d · %s · %d XP (%.0f%% to next)\n", profile.Level, profile.Title, profile.XP, profile.Progress)
			fmt.Fprintf(out, "Sessions: %d · Average: %.1f%% · Best: %.0f%% · Streak: %d days\n",
				profile.TotalSessions, profile.Average, profile.Best, profile.Streak)
			fmt.Fprintf(out, "Badges: %d/%d\n", profile.BadgesUnlocked, profile.BadgesTotal)
			for _, d := range averages {
				if d.Count == 0 {
					fmt.Fprintf(out, "  %s  -\n", d.Day)
					continue
				}
				fmt.Fprintf(out, "  %s  %5.1f%% (%d)\n", d.Day, d.Average, d.Count)
			}
			fmt.Fprintln(out, "Categories:")
			for _, c := range cats {
				fmt.Fprintf(out, "  %s (%d)\n", c.Name, c.Count)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "number of days of averages to show")
	return cmd
}

// NewBadgesCmd lists badges, unlocked ones first.
func NewBadgesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "badges",
		Short: "List badges and their unlock state",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, cleanup, err := loadService(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			list, err := service.Badges(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, b := range list {
				mark := "[ ]"
				if b.Unlocked() {
					mark = "[x]"
				}
				fmt.Fprintf(out, "%s %s %s: %s\n", mark, b.Icon, b.Name, b.Description)
			}
			return nil
		},
	}
}

// NewResetBadgesCmd locks every badge again.
func NewResetBadgesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-badges",
		Short: "Lock every badge again",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, cleanup, err := loadService(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			list, err := service.ResetBadges(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset %d badges\n", len(list))
			return nil
		},
	}
}
