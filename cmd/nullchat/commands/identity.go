package commands

import (
	"encoding/base64"
	"fmt"
	"strings"

	"nullchat/crypto/signer_schnorr"
	"nullchat/protocol/fingerprint"
	"nullchat/state"

	"github.com/spf13/cobra"
)

func identityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Show this device's identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := appCore.LoadIdentity(cmd.Context())
			if err != nil {
				return err
			}
			return printIdentity(id)
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "reset",
			Short: "Replace the identity key and display name",
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := appCore.LoadIdentity(cmd.Context()); err != nil {
					return err
				}
				id, err := appCore.ResetIdentity(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Println("Identity reset.")
				return printIdentity(id)
			},
		},
		&cobra.Command{
			Use:   "rename",
			Short: "Pick a new random display name",
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := appCore.LoadIdentity(cmd.Context()); err != nil {
					return err
				}
				id, err := appCore.RegenerateName(cmd.Context())
				if err != nil {
					return err
				}
				return printIdentity(id)
			},
		},
		&cobra.Command{
			Use:   "sign <message>",
			Short: "Sign a message with the identity key",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := appCore.LoadIdentity(cmd.Context())
				if err != nil {
					return err
				}
				sig, err := id.Sign([]byte(strings.Join(args, " ")))
				if err != nil {
					return err
				}
				fmt.Println(sig)
				return nil
			},
		},
		&cobra.Command{
			Use:   "verify <public-key> <signature> <message>",
			Short: "Check a signature made with 'identity sign'",
			Args:  cobra.MinimumNArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := signer_schnorr.VerifyText(args[0], strings.Join(args[2:], " "), args[1]); err != nil {
					return err
				}
				fmt.Println("Signature OK.")
				return nil
			},
		},
	)
	return cmd
}

func printIdentity(id *state.Identity) error {
	digits, err := fingerprint.SafetyNumber(id.KeyPair.Pub, []byte(id.DisplayName))
	if err != nil {
		return err
	}
	fmt.Printf("Name:          %s\n", id.DisplayName)
	fmt.Printf("Public key:    %s\n", base64.StdEncoding.EncodeToString(id.KeyPair.Pub))
	fmt.Printf("Safety number: %s\n", fingerprint.FormatSafetyNumber(digits))
	return nil
}
