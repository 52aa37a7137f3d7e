package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/aq2208/gstore-api/internal/security"
	"github.com/spf13/cobra"
)

func webhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Payment webhook helpers",
	}

	var keyPath string
	sign := &cobra.Command{
		Use:   "sign [payload-file]",
		Short: "Print the X-Signature value for a payload (stdin when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, err := security.LoadRSAPrivateKey(keyPath)
			if err != nil {
				return err
			}
			signer, err := security.NewRSASigner(nil, priv)
			if err != nil {
				return err
			}

			var payload []byte
			if len(args) == 1 {
				payload, err = os.ReadFile(args[0])
			} else {
				payload, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read payload: %w", err)
			}

			sig, err := signer.Sign(payload)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), base64.StdEncoding.EncodeToString(sig))
			return nil
		},
	}
	sign.Flags().StringVar(&keyPath, "key", "", "RSA private key (PEM file or inline PEM)")
	_ = sign.MarkFlagRequired("key")
	cmd.AddCommand(sign)

	return cmd
}
