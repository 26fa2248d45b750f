package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

func newFramesCommand() *cobra.Command {
	var (
		idStr  string
		offset int64
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "frames",
		Short: "Read captured frames for an identifier",
		Long: `Read frames captured by a route, starting at the given offset.
A route must have been installed first with 'canlink-cli watch'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFrames(idStr, offset, limit)
		},
	}

	cmd.Flags().StringVar(&idStr, "id", "", "Message identifier (required)")
	cmd.Flags().Int64Var(&offset, "offset", 0, "Start offset")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum frames to read (0 = unlimited)")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		panic(fmt.Sprintf("Failed to mark id as required: %v", err))
	}

	return cmd
}

func runFrames(idStr string, offset int64, limit int) error {
	if err := requireAuthentication(); err != nil {
		return err
	}

	id, err := parseFrameID(idStr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	frames, err := client.ReadFrames(ctx, id, offset, limit)
	if err != nil {
		return fmt.Errorf("failed to read frames: %w", err)
	}

	if frames.Count == 0 {
		fmt.Printf("No captured frames for 0x%X at offset %d.\n", id, offset)
		return nil
	}

	fmt.Printf("Frames for 0x%X (%d, next offset %d):\n", frames.ID, frames.Count, frames.EndOffset)
	for _, frame := range frames.Frames {
		fmt.Printf("  [%d] %s  len=%d  %s\n",
			frame.Offset,
			hex.EncodeToString(frame.Data),
			frame.Length,
			frame.Timestamp.Format("2006-01-02 15:04:05.000"))
	}

	return nil
}
