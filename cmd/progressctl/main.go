package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"selfpaced/backend/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "progressctl",
		Short: "Track and sync self-paced course progress",
		Long: `progressctl keeps a completion checklist for the self-paced course on this
device and syncs it with the progress server once you sign in.

Configuration is read from progressctl.yaml (current directory or
~/.progressctl) and PROGRESSCTL_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Learner commands
	rootCmd.AddCommand(cli.LoginCmd())
	rootCmd.AddCommand(cli.WhoamiCmd())
	rootCmd.AddCommand(cli.SyncCmd())
	rootCmd.AddCommand(cli.ToggleCmd())
	rootCmd.AddCommand(cli.ListCmd())
	rootCmd.AddCommand(cli.UnlockCmd())
	rootCmd.AddCommand(cli.AssessCmd())

	// Administrator tools
	rootCmd.AddCommand(cli.AdminCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
