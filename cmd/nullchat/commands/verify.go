package commands

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"nullchat/client"

	"github.com/spf13/cobra"
)

// verifyAndChat shows the fingerprint, asks the user to compare it with the
// other screen and, if confirmed, opens the chat window.
func verifyAndChat(cmd *cobra.Command) error {
	ctx := cmd.Context()

	fp, err := appCore.Fingerprint()
	if err != nil {
		return err
	}
	peer := appCore.Peer()
	fmt.Printf("Paired with %s\n\n    %s\n\n", peer.DisplayName, fp)
	fmt.Print("Does the other device show the same fingerprint? [y/N] ")

	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
		fmt.Println("Fingerprints not confirmed, session discarded.")
		return appCore.Reject(ctx)
	}

	if err := appCore.Confirm(ctx); err != nil {
		return err
	}

	// the chat window owns the terminal; keep logs out of it
	logFile, err := os.OpenFile(filepath.Join(cfg.Home, "nullchat.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err == nil {
		logger.SetOutput(logFile)
		defer func() {
			logger.SetOutput(os.Stderr)
			logFile.Close()
		}()
	}

	return client.NewChatApp(appCore, logger).Run()
}
