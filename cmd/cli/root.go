package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "diffwarden",
	Short:         "diffwarden reviews staged changes and pull requests with an LLM.",
	Long:          `A CLI that annotates diffs with line numbers and streams a code review from Claude or OpenAI.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (default ./config.yaml or $HOME/.diffwarden/config.yaml)")
	flags.StringP("provider", "p", "", "review provider: claude or openai")
	flags.StringP("github-token", "t", "", "GitHub token for pull request reviews")
	flags.String("log-level", "", "log level: debug, info, warn, error")

	bindings := map[string]string{
		"provider":      "provider",
		"github.token":  "github-token",
		"logging.level": "log-level",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			slog.Error("Error binding flag", "flag", flag, "error", err)
			os.Exit(1)
		}
	}
}

// initConfig points viper at an explicit config file; the rest of the lookup
// happens in config.LoadConfig.
func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	}
}
