package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jrsteele09/go-keygrant/client"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Exchange the key for a new session",
	Long: `Proves possession of the key and stores the new session id next to
the key file, where whoami and revoke pick it up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := client.LoadKey(keyPath)
		if err != nil {
			return err
		}
		c, err := getClient(false)
		if err != nil {
			return err
		}

		session, err := c.GrantSession(cmd.Context(), key)
		if err != nil {
			return fmt.Errorf("granting session: %w", err)
		}
		if err := os.WriteFile(sessionPath(), []byte(session.ID+"\n"), 0o600); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}

		log.Info().Time("expiry", session.Expiry).Msgf("session valid for %s", time.Until(session.Expiry).Round(time.Minute))
		fmt.Fprintln(cmd.OutOrStdout(), session.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
}
