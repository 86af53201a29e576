package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	gtaw "github.com/jamesprial/go-twitter-api-wrapper"
	"github.com/jamesprial/go-twitter-api-wrapper/config"
)

var (
	cfgFile  string
	envFiles []string
	logLevel string
	jsonOut  bool

	cfg    *config.Config
	logger zerolog.Logger
	client *gtaw.Client
)

var rootCmd = &cobra.Command{
	Use:   "gtaw",
	Short: "Query the Twitter API v2 from the command line",
	Long: `gtaw searches Tweets, walks follower lists and conversations, manages
filtered stream rules and tails the filtered or sample stream.

Credentials come from config.yaml, a .env file, GTAW_AUTH_* variables or the
TWITTER_BEARER_TOKEN / TWITTER_CONSUMER_KEY family of variables.`,
	SilenceUsage:      true,
	PersistentPreRunE: initializeApp,
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or ~/.gtaw/config.yaml)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default is ./.env when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print results as JSON lines")

	rootCmd.AddCommand(whoamiCmd, userCmd, searchCmd, countsCmd, followersCmd, threadCmd, streamCmd, rulesCmd)
}

// initializeApp loads the configuration and builds the client.
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile, envFiles...)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}

	logger = setupLogger(cfg.Logging, os.Stderr)

	client, err = gtaw.NewClient(cfg.ClientConfig(newSlogLogger(logger)))
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	logger.Debug().Bool("user_context", client.UserContext()).Msg("client ready")
	return nil
}

// emit prints v as a JSON line in --json mode, otherwise calls human.
func emit(w io.Writer, v any, human func(io.Writer)) error {
	if jsonOut {
		return json.NewEncoder(w).Encode(v)
	}
	human(w)
	return nil
}
