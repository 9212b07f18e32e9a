package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jrsteele09/go-keygrant/client"
	"github.com/jrsteele09/go-keygrant/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// global flags
var (
	serverAddr string
	keyPath    string
	sessionID  string
	logLevel   string
)

const (
	envServer  = "KEYGRANT_SERVER"
	envKey     = "KEYGRANT_KEY"
	envSession = "KEYGRANT_SESSION"
)

var rootCmd = &cobra.Command{
	Use:   "keygrantctl",
	Short: "Client for a keygrant server",
	Long: `keygrantctl manages an Ed25519 key that is bound to a GitHub account
through a keygrant server, and exchanges it for sessions.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init("DEV", logLevel)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("execution failed")
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", os.Getenv(envServer),
		"keygrant server base URL (env "+envServer+")")
	rootCmd.PersistentFlags().StringVar(&keyPath, "key", envOr(envKey, defaultKeyPath()),
		"private key file (env "+envKey+")")
	rootCmd.PersistentFlags().StringVar(&sessionID, "session", os.Getenv(envSession),
		"session id; defaults to the one saved next to the key (env "+envSession+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultKeyPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "id_keygrant"
	}
	return filepath.Join(dir, "keygrant", "id_keygrant")
}

func sessionPath() string {
	return keyPath + ".session"
}

func getClient(withSession bool) (*client.Client, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address not configured, provide via --server or %s", envServer)
	}

	var opts []client.Option
	if withSession {
		id := sessionID
		if id == "" {
			data, err := os.ReadFile(sessionPath())
			if err != nil {
				return nil, fmt.Errorf("no session: run 'keygrantctl session' first")
			}
			id = strings.TrimSpace(string(data))
		}
		opts = append(opts, client.WithSession(id))
	}
	return client.New(serverAddr, opts...), nil
}
