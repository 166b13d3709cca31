// Command duelctl is the operator tool for the duel service: it mints
// development session tokens, applies migrations and follows a duel live.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"scholarduel/src/app/http/dto"
	"scholarduel/src/client"
	"scholarduel/src/core/domain"
	"scholarduel/src/infra/auth"
	"scholarduel/src/infra/config"
	"scholarduel/src/infra/db"
	"scholarduel/src/infra/logger"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "duelctl",
	Short:         "Operate the scholarduel service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user UUID to mint a token for (required)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default: APP_JWT_TTL)")
	_ = tokenCmd.MarkFlagRequired("user")

	watchCmd.Flags().StringVar(&watchServer, "server", "http://localhost:8080", "API base URL")
	watchCmd.Flags().StringVar(&watchToken, "token", os.Getenv("DUELCTL_TOKEN"), "session token (default: $DUELCTL_TOKEN)")

	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(watchCmd)
}

// ============================================================================
// TOKEN COMMAND
// ============================================================================

var (
	tokenUser string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a session token signed with APP_JWT_SECRET",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := uuid.Parse(tokenUser)
		if err != nil {
			return fmt.Errorf("--user must be a UUID: %w", err)
		}

		var cfg config.AuthConfig
		if err := config.LoadSection(&cfg); err != nil {
			return err
		}
		if cfg.JWTSecret == "" {
			return errors.New("APP_JWT_SECRET is not set")
		}

		tokens := auth.NewTokens(cfg)
		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.TTL
		}
		token, expires, err := tokens.IssueWithTTL(userID, ttl)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Format(time.RFC3339))
		return nil
	},
}

// ============================================================================
// MIGRATE COMMAND
// ============================================================================

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			dbCfg  config.DatabaseConfig
			logCfg config.LogConfig
		)
		if err := config.LoadSection(&dbCfg); err != nil {
			return err
		}
		if err := config.LoadSection(&logCfg); err != nil {
			return err
		}
		log := logger.New(logCfg)

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		pg, err := db.New(ctx, dbCfg, log)
		if err != nil {
			return err
		}
		defer pg.Close()

		return db.Migrate(ctx, pg.Pool, log)
	},
}

// ============================================================================
// WATCH COMMAND
// ============================================================================

var (
	watchServer string
	watchToken  string
)

var errDuelOver = errors.New("duel over")

var watchCmd = &cobra.Command{
	Use:   "watch <duel-id>",
	Short: "Follow a duel live and print the scoreboard as it changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		duelID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("duel id must be a UUID: %w", err)
		}
		if watchToken == "" {
			return errors.New("--token or $DUELCTL_TOKEN is required")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		api := client.New(watchServer, watchToken)
		view := client.NewDuelView(duelID)

		refresh := func() error {
			detail, err := api.GetDuel(ctx, duelID)
			if err != nil {
				return err
			}
			view.Reset(*detail)
			printScoreboard(out, view)
			return nil
		}
		if err := refresh(); err != nil {
			return err
		}
		if over(view) {
			return nil
		}

		err = api.Stream(ctx, duelID, func(ev dto.EventResponse) error {
			if !view.ApplyEvent(ev) {
				return nil
			}
			if ev.Round != nil && ev.Type == string(domain.EventRoundInserted) {
				fmt.Fprintf(out, "round %d: %s scored %d\n", ev.Round.RoundNumber, ev.Round.AuthorID, ev.Round.TotalScore)
			}
			if view.Deleted {
				fmt.Fprintln(out, "duel deleted")
				return errDuelOver
			}
			if view.NeedsRefresh {
				if err := refresh(); err != nil {
					return err
				}
			}
			if over(view) {
				return errDuelOver
			}
			return nil
		})
		if errors.Is(err, errDuelOver) {
			return nil
		}
		return err
	},
}

func over(v *client.DuelView) bool {
	return v.Deleted || (v.Duel != nil && domain.DuelStatus(v.Duel.Status).Terminal())
}

func printScoreboard(w io.Writer, v *client.DuelView) {
	d := v.Duel
	if d == nil {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "TOPIC\t%s\n", d.Topic)
	fmt.Fprintf(tw, "STATUS\t%s (round %d of %d)\n", d.Status, d.CurrentRound, d.MaxRounds)
	fmt.Fprintf(tw, "CHALLENGER\t%s\t%s\t%d\n", d.ChallengerID, d.ChallengerPosition, d.ChallengerScore)
	opponent := "-"
	if d.OpponentID != nil {
		opponent = d.OpponentID.String()
	}
	fmt.Fprintf(tw, "OPPONENT\t%s\t%s\t%d\n", opponent, d.OpponentPosition, d.OpponentScore)
	if d.CurrentTurnUserID != nil {
		fmt.Fprintf(tw, "TURN\t%s\n", d.CurrentTurnUserID)
	}
	if d.Status == string(domain.DuelCompleted) {
		fmt.Fprintf(tw, "OUTCOME\t%s\n", d.Outcome)
	}
	fmt.Fprintf(tw, "ROUNDS\t%d\n", len(v.Rounds()))
	_ = tw.Flush()
}
