package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newRoutesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List installed routes",
		Long:  "List the gateway's installed routes in insertion order",
		RunE:  runRoutes,
	}

	return cmd
}

func runRoutes(cmd *cobra.Command, args []string) error {
	if err := requireAuthentication(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	routes, err := client.ListRoutes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list routes: %w", err)
	}

	if routes.Count == 0 {
		fmt.Println("No routes installed.")
		return nil
	}

	fmt.Printf("Routes (%d):\n", routes.Count)
	for i, route := range routes.Routes {
		fmt.Printf("  %d. 0x%X\n", i+1, route.ID)
	}

	return nil
}
