package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mathquiz-service/internal/app"
	"mathquiz-service/internal/domain"
	"mathquiz-service/internal/game"
	"mathquiz-service/internal/infra/memory"
)

type playOptions struct {
	difficulty string
	name       string
	scoring    string
	seed       int64
}

// NewPlayCmd plays games in the terminal against in-memory stores.
func NewPlayCmd() *cobra.Command {
	opts := playOptions{}
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a game in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.difficulty, "difficulty", string(domain.Beginner), "Beginner, Novice, Intermediate or Expert")
	cmd.Flags().StringVar(&opts.name, "name", "player", "name shown on the leaderboard")
	cmd.Flags().StringVar(&opts.scoring, "scoring", "tiered", "scoring formula: tiered or legacy")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "question seed; 0 picks one from the clock")
	return cmd
}

func runPlay(ctx context.Context, in io.Reader, out io.Writer, opts playOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	d, err := domain.ParseDifficulty(opts.difficulty)
	if err != nil {
		return err
	}
	formula, err := game.FormulaByName(opts.scoring)
	if err != nil {
		return err
	}

	board := app.NewLeaderboardService(memory.NewLeaderboardStore(), 0, 0)
	service := app.NewGameService(memory.NewGameStore(), memory.NewGameArchive(), board, game.NewSeededGenerator(opts.seed), formula)
	scanner := bufio.NewScanner(in)

	for {
		if err := playOne(ctx, service, scanner, out, d, opts.name); err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			return err
		}
		fmt.Fprint(out, "Play again? [y/N] ")
		line, err := readLine(scanner)
		if err != nil || !strings.EqualFold(line, "y") {
			return nil
		}
	}
}

func playOne(ctx context.Context, service *app.GameService, scanner *bufio.Scanner, out io.Writer, d domain.Difficulty, name string) error {
	session, err := service.NewGame(ctx, name, name, d)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s game, %d questions. Lower scores are better.\n", d, len(session.Questions))

	for !session.Complete() {
		q, err := service.StartQuestion(ctx, session.ID)
		if err != nil {
			return err
		}
		answer, err := askNumber(scanner, out, fmt.Sprintf("Q%d/%d: %s = ", session.CurrentIndex+1, len(session.Questions), q.Prompt()))
		if err != nil {
			return err
		}
		scored, _, err := service.SubmitAnswer(ctx, session.ID, answer)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  answer %s, off by %.1f%%, %.1fs, score %.1f\n",
			strconv.FormatFloat(scored.CorrectAnswer, 'f', -1, 64), scored.PercentDifference, scored.ElapsedSeconds, scored.Score)
		if session, err = service.AdvanceQuestion(ctx, session.ID); err != nil {
			return err
		}
	}

	result, err := service.FinishGame(ctx, session.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Total score: %.1f\n", result.Record.TotalScore)
	if result.Entry != nil {
		fmt.Fprintf(out, "New leaderboard entry at rank %d\n", result.Entry.Rank)
	}
	entries, err := service.Leaderboard().GetLeaderboard(ctx, d, 10)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s leaderboard:\n", d)
	for _, e := range entries {
		fmt.Fprintf(out, "  %2d. %-16s %8.1f  %s\n", e.Rank, e.Username, e.Score, e.AchievedAt.Local().Format(time.DateTime))
	}
	return nil
}

func askNumber(scanner *bufio.Scanner, out io.Writer, prompt string) (float64, error) {
	for {
		fmt.Fprint(out, prompt)
		line, err := readLine(scanner)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(line, 64)
		if err == nil {
			return v, nil
		}
		fmt.Fprintln(out, "  please enter a number")
	}
}

func readLine(scanner *bufio.Scanner) (string, error) {
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(scanner.Text()), nil
}
