package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"igunfollow/internal/runner"
	"igunfollow/pkg/auth"
	"igunfollow/pkg/logger"
	"igunfollow/pkg/ui"
	"igunfollow/pkg/unfollow"
)

var (
	dryRun      bool
	accountName string
)

// unfollowCmd represents the unfollow command
var unfollowCmd = &cobra.Command{
	Use:   "unfollow",
	Short: "Unfollow everyone who doesn't follow you back",
	Long: `Log into Instagram, compare your followers with the accounts you follow and
unfollow every account that does not follow back.

Each unfollow is followed by a random 4-8 second pause, failed ones by a 10
second pause, so large accounts take a while. Use --dry-run to only list the
accounts that would be unfollowed.`,
	Example: `  # See who would be unfollowed
  igunfollow unfollow --dry-run

  # Unfollow using a saved account
  igunfollow unfollow --account myusername`,
	Args: cobra.NoArgs,
	RunE: runUnfollow,
}

func init() {
	rootCmd.AddCommand(unfollowCmd)
	unfollowCmd.Flags().BoolVar(&dryRun, "dry-run", false, "list non-followers without unfollowing")
	unfollowCmd.Flags().StringVar(&accountName, "account", "", "saved account to use")
}

func runUnfollow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, pool := newRunner(ctx, cfg, accountName)
	defer pool.Stop()

	var observer unfollow.Observer
	if !quiet {
		observer = ui.NewProgressTracker(os.Stdout).Observe
	}

	if dryRun {
		ui.PrintHighlight("[DRY RUN] Nothing will be unfollowed")
	}

	outcome := r.Invoke(ctx, runner.Request{
		Invoker:  "cli",
		DryRun:   dryRun,
		Observer: observer,
		OnAccepted: func(runID string) {
			logger.ForRun(runID).Info("Unfollow run started from the command line")
		},
	})

	fmt.Println()
	switch outcome.Status {
	case runner.StatusConfigError:
		ui.PrintError("Instagram credentials not configured", outcome.Err)
		auth.ShowQuickGuide()
		return outcome.Err
	case runner.StatusCooldown, runner.StatusBusy:
		fmt.Println(ui.RenderCooldown(outcome.Gate))
		return fmt.Errorf("command unavailable: %s", outcome.Status)
	case runner.StatusCompleted:
		fmt.Println(ui.RenderSummary(outcome.Result, outcome.CooldownDuration))
		return nil
	default:
		fmt.Println(ui.RenderError(outcome.Err))
		return outcome.Err
	}
}
