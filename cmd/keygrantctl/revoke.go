package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var revokeAll bool

var revokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke the key behind the current session",
	Example: `  # Revoke this key only
  keygrantctl revoke

  # Revoke every key bound to the same GitHub account
  keygrantctl revoke --all`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getClient(true)
		if err != nil {
			return err
		}

		if revokeAll {
			err = c.RevokeAll(cmd.Context())
		} else {
			err = c.RevokeSelf(cmd.Context())
		}
		if err != nil {
			return err
		}

		_ = os.Remove(sessionPath())
		log.Info().Bool("all", revokeAll).Msg("revoked")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(revokeCmd)
	revokeCmd.Flags().BoolVar(&revokeAll, "all", false, "revoke every key bound to the GitHub account")
}
