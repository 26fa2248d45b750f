package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check gateway health",
		Long:  "Check the health status of the canlink gateway",
		RunE:  runHealth,
	}

	return cmd
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fmt.Printf("Checking health of %s...\n", serverURL)

	health, err := client.GetHealth(ctx)
	if err != nil {
		return fmt.Errorf("failed to check health: %w", err)
	}

	if health.Status == "healthy" {
		fmt.Printf("✅ Gateway is healthy!\n")
	} else {
		fmt.Printf("❌ Gateway is not healthy!\n")
	}
	fmt.Printf("Node: %s\n", health.NodeID)
	fmt.Printf("Router: %t\n", health.RouterHealthy)
	fmt.Printf("FrameLog: %t\n", health.FrameLogHealthy)
	fmt.Printf("Routes: %d\n", health.Routes)
	if health.Message != "" {
		fmt.Printf("Message: %s\n", health.Message)
	}

	return nil
}
