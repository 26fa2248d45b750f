package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

func newSendCommand() *cobra.Command {
	var (
		idStr   string
		dataHex string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Transmit a frame on the bus",
		Long: `Transmit a frame on the gateway's bus. The identifier accepts decimal
or prefixed hex (0x123). The payload is given as a hex string of at
most 8 bytes, e.g. "deadbeef".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(idStr, dataHex)
		},
	}

	cmd.Flags().StringVar(&idStr, "id", "", "Message identifier (required)")
	cmd.Flags().StringVar(&dataHex, "data", "", "Frame payload as a hex string")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		panic(fmt.Sprintf("Failed to mark id as required: %v", err))
	}

	return cmd
}

func runSend(idStr, dataHex string) error {
	if err := requireAuthentication(); err != nil {
		return err
	}

	id, err := parseFrameID(idStr)
	if err != nil {
		return err
	}

	var data []byte
	if dataHex != "" {
		data, err = hex.DecodeString(dataHex)
		if err != nil {
			return fmt.Errorf("invalid hex payload: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fmt.Printf("Sending frame 0x%X (%d bytes)...\n", id, len(data))

	response, err := client.SendFrame(ctx, id, data)
	if err != nil {
		return fmt.Errorf("failed to send frame: %w", err)
	}

	fmt.Printf("✅ Frame sent successfully!\n")
	fmt.Printf("ID: 0x%X\n", response.ID)
	fmt.Printf("Length: %d\n", response.Length)
	fmt.Printf("Timestamp: %s\n", response.Timestamp.Format("2006-01-02 15:04:05"))

	return nil
}
