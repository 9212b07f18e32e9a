package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the GitHub account behind the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getClient(true)
		if err != nil {
			return err
		}
		me, err := c.WhoAmI(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "login:\t%s\n", me.GitHubLogin)
		_, _ = fmt.Fprintf(w, "name:\t%s\n", me.GitHubDisplayName)
		_, _ = fmt.Fprintf(w, "github id:\t%d\n", me.GitHubID)
		_, _ = fmt.Fprintf(w, "token:\t%s\n", me.TokenID)
		_, _ = fmt.Fprintf(w, "expires:\t%s\n", time.UnixMilli(me.Expiry).Local().Format(time.RFC1123))
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
