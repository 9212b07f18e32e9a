package main

import (
	"fmt"

	"github.com/jrsteele09/go-keygrant/client"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var keygenComment string

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new Ed25519 key",
	Example: `  keygrantctl keygen --key ~/.config/keygrant/id_laptop`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := client.GenerateKey()
		if err != nil {
			return err
		}
		if err := client.SaveKey(keyPath, key, keygenComment); err != nil {
			return err
		}

		fp, err := key.Fingerprint()
		if err != nil {
			return err
		}
		log.Info().Str("path", keyPath).Str("fingerprint", fp).Msg("key written")
		fmt.Fprintln(cmd.OutOrStdout(), key.TokenID().String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().StringVar(&keygenComment, "comment", "", "comment stored in the key file")
}
