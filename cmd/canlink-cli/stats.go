package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show gateway statistics (admin only)",
		Long:  "Show gateway statistics. Requires an admin token.",
		RunE:  runStats,
	}

	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	if err := requireAuthentication(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	stats, err := client.AdminGetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	fmt.Printf("Gateway statistics for %s:\n", stats.NodeID)
	fmt.Printf("  Routes: %d\n", stats.Routes)
	fmt.Printf("  Frames sent: %d\n", stats.FramesSent)
	fmt.Printf("  Frames dispatched: %d\n", stats.FramesDispatched)
	fmt.Printf("  Frames logged: %d\n", stats.FramesLogged)

	return nil
}
