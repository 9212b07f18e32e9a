package main

import (
	"fmt"

	"github.com/jrsteele09/go-keygrant/client"
	"github.com/spf13/cobra"
)

var loginURLCmd = &cobra.Command{
	Use:   "login-url",
	Short: "Print the URL that binds the key to your GitHub account",
	Long: `Prints a GitHub login URL carrying a fresh proof for the key.
Open it in a browser within five minutes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := client.LoadKey(keyPath)
		if err != nil {
			return err
		}
		c, err := getClient(false)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), c.LoginURL(key))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginURLCmd)
}
