package commands

import (
	"fmt"
	"time"

	"nullchat/client"
	"nullchat/protocol/pairing"

	"github.com/spf13/cobra"
)

func shareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "share",
		Short: "Show a QR code for the other device to scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptible(cmd)
			defer cancel()

			id, err := appCore.Start(ctx)
			if err != nil {
				return err
			}
			text, _, err := appCore.Share(ctx)
			if err != nil {
				return err
			}

			client.ShowQRCode(text)
			fmt.Printf("You are %s. Payload for manual entry:\n%s\n\n", id.DisplayName, text)

			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					appCore.Reset(cmd.Context())
					fmt.Println("\nCancelled.")
					return nil
				case <-ticker.C:
					fmt.Printf("\rWaiting for the other device... %2ds ", int(appCore.Remaining().Seconds()))
				case ev := <-appCore.Events():
					switch ev.Kind {
					case pairing.EventExpired:
						fmt.Println("\nQR code expired. Run share again for a fresh code.")
						return nil
					case pairing.EventVerifying:
						fmt.Println()
						return verifyAndChat(cmd)
					}
				}
			}
		},
	}
}
