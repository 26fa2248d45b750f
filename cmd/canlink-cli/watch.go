package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opencanbus/canlink/pkg/busclient"
)

func newWatchCommand() *cobra.Command {
	var (
		idStr      string
		follow     bool
		bufferSize int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Install a route for a message identifier",
		Long: `Install a route on the gateway for a message identifier. Matching
frames are captured and can be read back with 'canlink-cli frames'.

With --follow, matching frames are additionally streamed to the terminal
in real-time as they arrive on the bus. Press Ctrl+C to stop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(idStr, follow, bufferSize)
		},
	}

	cmd.Flags().StringVar(&idStr, "id", "", "Message identifier (required)")
	cmd.Flags().BoolVar(&follow, "follow", false, "Stream matching frames in real-time")
	cmd.Flags().IntVar(&bufferSize, "buffer-size", 100, "Frame buffer size when following")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		panic(fmt.Sprintf("Failed to mark id as required: %v", err))
	}

	return cmd
}

func runWatch(idStr string, follow bool, bufferSize int) error {
	if err := requireAuthentication(); err != nil {
		return err
	}

	id, err := parseFrameID(idStr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fmt.Printf("Installing route for 0x%X...\n", id)

	route, err := client.Watch(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to create route: %w", err)
	}

	fmt.Printf("✅ Route installed!\n")
	fmt.Printf("ID: 0x%X\n", route.ID)

	if follow {
		return followFrames(id, bufferSize)
	}

	fmt.Printf("\nRead captured frames with:\n")
	fmt.Printf("  canlink-cli frames --id 0x%X\n", route.ID)

	return nil
}

// followFrames tails live frames for the identifier until interrupted
func followFrames(id uint32, bufferSize int) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle Ctrl+C gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\n🛑 Stopping stream...")
		cancel()
	}()

	fmt.Printf("🌊 Streaming frames for 0x%X from %s...\n", id, serverURL)
	fmt.Println("Press Ctrl+C to stop streaming")

	streamClient, err := client.Stream(ctx, busclient.StreamConfig{
		ID:                   id,
		BufferSize:           bufferSize,
		MaxReconnectAttempts: 0, // Infinite retries
	})
	if err != nil {
		return fmt.Errorf("failed to start streaming: %w", err)
	}
	defer func() {
		if err := streamClient.Close(); err != nil {
			fmt.Printf("Warning: failed to close stream client: %v\n", err)
		}
	}()

	frameCount := 0
	for {
		select {
		case <-ctx.Done():
			fmt.Printf("\n✅ Stream stopped. Received %d frames.\n", frameCount)
			return nil

		case record, ok := <-streamClient.Frames():
			if !ok {
				fmt.Printf("\n🔌 Frame stream closed. Received %d frames.\n", frameCount)
				return nil
			}

			frameCount++
			printFrameRecord(record, frameCount)

		case err, ok := <-streamClient.Errors():
			if !ok {
				fmt.Printf("\n🔌 Error stream closed. Received %d frames.\n", frameCount)
				return nil
			}

			fmt.Printf("❌ Stream error: %v\n", err)
			// Non-fatal - the client reconnects on its own

		case <-streamClient.Done():
			fmt.Printf("\n🔌 Stream finished. Received %d frames.\n", frameCount)
			return nil
		}
	}
}

func printFrameRecord(record busclient.FrameRecord, count int) {
	fmt.Printf("📨 Frame #%d:\n", count)
	fmt.Printf("   ID: 0x%X\n", record.ID)
	fmt.Printf("   Data: %s\n", hex.EncodeToString(record.Data))
	fmt.Printf("   Length: %d\n", record.Length)
	fmt.Printf("   Offset: %d\n", record.Offset)
	fmt.Printf("   Time: %s\n", record.Timestamp.Format("2006-01-02 15:04:05.000"))
	fmt.Println()
}
