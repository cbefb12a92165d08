package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"nullchat/client"
	"nullchat/protocol/pairing"

	"github.com/spf13/cobra"
)

func scanCmd() *cobra.Command {
	var imagePath string

	cmd := &cobra.Command{
		Use:   "scan [payload]",
		Short: "Pair with a device showing a QR code",
		Long:  "Pair using the QR payload text, a QR image (--image), or text read from stdin.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptible(cmd)
			defer cancel()

			data, err := scannedPayload(args, imagePath)
			if err != nil {
				return err
			}
			if _, err := appCore.Start(ctx); err != nil {
				return err
			}

			if _, err := appCore.Scan(ctx, data); err != nil {
				switch {
				case errors.Is(err, pairing.ErrExpired):
					return fmt.Errorf("this QR code has expired, ask for a fresh one")
				case errors.Is(err, pairing.ErrInvalidPayload):
					return fmt.Errorf("not a nullchat QR code: %w", err)
				}
				return err
			}
			return verifyAndChat(cmd)
		},
	}
	cmd.Flags().StringVar(&imagePath, "image", "", "PNG or JPEG file containing the QR code")
	return cmd
}

func scannedPayload(args []string, imagePath string) (string, error) {
	if imagePath != "" {
		return client.ScanQRFromFile(imagePath)
	}
	if len(args) == 1 {
		return args[0], nil
	}
	fmt.Print("Paste the QR payload: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
