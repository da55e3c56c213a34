package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"codemaster/internal/app"
	"codemaster/internal/domain"
	"github.com/spf13/cobra"
)

// NewPlayCmd runs an interactive quiz session on the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		categories []string
		difficulty string
		count      int
		daily      bool
		again      bool
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz session in the terminal (resumes a pending one)",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, cleanup, err := loadService(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			req := app.StartRequest{
				Categories:     categories,
				Difficulty:     domain.Difficulty(difficulty),
				Count:          count,
				DailyChallenge: daily,
			}
			return runPlay(cmd.Context(), service, req, again, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringSliceVar(&categories, "categories", nil, "categories to draw from (default: all)")
	cmd.Flags().StringVar(&difficulty, "difficulty", string(domain.DifficultyAny), "facile, moyen, difficile or random")
	cmd.Flags().IntVar(&count, "count", 0, "number of questions (default from config)")
	cmd.Flags().BoolVar(&daily, "daily", false, "play as the daily challenge (double XP)")
	cmd.Flags().BoolVar(&again, "again", false, "replay the setup of the last finished session")
	return cmd
}

func runPlay(ctx context.Context, service *app.QuizService, req app.StartRequest, again bool, in io.Reader, out io.Writer) error {
	sess, ok, err := service.Pending(ctx)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintf(out, "Resuming session started %s\n", sess.StartedAt.Format("2006-01-02 15:04"))
	} else if again {
		sess, err = service.Replay(ctx, "")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Replaying %s · %s\n", strings.Join(sess.Categories, ", "), sess.Difficulty)
	} else {
		if len(req.Categories) == 0 {
			cats, err := service.Categories(ctx)
			if err != nil {
				return err
			}
			for _, c := range cats {
				req.Categories = append(req.Categories, c.Name)
			}
		}
		sess, err = service.Start(ctx, req)
		if err != nil {
			return err
		}
	}

	scanner := bufio.NewScanner(in)
	for {
		q, ok := sess.Current()
		if !ok {
			return fmt.Errorf("session %s has no current question", sess.ID)
		}

		var summary *app.Summary
		if q.Answered() {
			sess, summary, err = service.Next(ctx, sess.ID)
			if err != nil {
				return err
			}
			if summary != nil {
				printSummary(out, summary)
				return nil
			}
			continue
		}

		printQuestion(out, sess, q)
		if !scanner.Scan() {
			fmt.Fprintln(out, "\nSession saved. Run play again to resume.")
			return scanner.Err()
		}
		input := strings.TrimSpace(strings.ToLower(scanner.Text()))

		switch input {
		case "q":
			fmt.Fprintln(out, "Session saved. Run play again to resume.")
			return nil
		case "a":
			if err := service.Abandon(ctx, sess.ID); err != nil {
				return err
			}
			fmt.Fprintln(out, "Session abandoned.")
			return nil
		case "s":
			sess, summary, err = service.Skip(ctx, sess.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Skipped.")
		default:
			n, convErr := strconv.Atoi(input)
			if convErr != nil || n < 1 || n > len(q.AnswerOrder) {
				fmt.Fprintf(out, "Enter 1-%d, s to skip, q to quit or a to abandon.\n", len(q.AnswerOrder))
				continue
			}
			res, err := service.Answer(ctx, sess.ID, q.AnswerOrder[n-1])
			if err != nil {
				return err
			}
			printFeedback(out, q, res)
			sess, summary, err = service.Next(ctx, sess.ID)
			if err != nil {
				return err
			}
		}

		if summary != nil {
			printSummary(out, summary)
			return nil
		}
	}
}

func printQuestion(out io.Writer, sess domain.Session, q *domain.SessionQuestion) {
	fmt.Fprintf(out, "\n[%d/%d] %s · %s\n%s\n", sess.Cursor+1, len(sess.Questions), q.Category, q.Difficulty, q.Prompt)
	for i, idx := range q.AnswerOrder {
		if idx < len(q.Answers) {
			fmt.Fprintf(out, "  %d) %s\n", i+1, q.Answers[idx])
		}
	}
	fmt.Fprint(out, "> ")
}

func printFeedback(out io.Writer, q *domain.SessionQuestion, res app.AnswerResult) {
	if res.Correct {
		fmt.Fprintf(out, "Correct! +%d", res.Points)
		if res.Combo > 1 {
			fmt.Fprintf(out, " (combo x%d)", res.Combo)
		}
		fmt.Fprintln(out)
	} else {
		fmt.Fprintf(out, "Wrong. The answer was: %s\n", q.Answers[res.CorrectIndex])
	}
	if res.Explanation != "" {
		fmt.Fprintln(out, res.Explanation)
	}
}

func printSummary(out io.Writer, s *app.Summary) {
	fmt.Fprintf(out, "\nSession complete: %d/%d correct, %.0f%% (weighted %d/%d)\n",
		s.Score.CorrectCount, len(s.Session.Questions), s.Score.Percentage,
		s.Score.WeightedScore, s.Score.MaxWeightedScore)
	fmt.Fprintf(out, "XP +%d", s.Award.Total)
	if s.Award.Bonus > 0 {
		fmt.Fprintf(out, " (daily bonus +%d)", s.Award.Bonus)
	}
	fmt.Fprintf(out, " · total %d XP\n", s.After.XP)
	if s.LevelsDelta > 0 {
		fmt.Fprintf(out, "Level up! %d -> %d (%s)\n", s.Before.Level, s.After.Level, s.After.Title)
	} else {
		fmt.Fprintf(out, "Level %d (%s), %.0f%% to next level\n", s.After.Level, s.After.Title, s.After.Progress)
	}
	for _, b := range s.Unlocked {
		fmt.Fprintf(out, "Badge unlocked: %s %s\n", b.Icon, b.Name)
	}
}
