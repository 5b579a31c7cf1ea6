// Package cli implements the vecsync command line interface.
package cli

import (
	"github.com/spf13/cobra"

	cfgfile "github.com/custodia-labs/vecsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/vecsync/internal/logger"
)

// Exit codes. Partial is distinct from aborted so schedulers can tell
// "index updated but some documents need retry" from "nothing happened".
const (
	ExitClean   = 0
	ExitAborted = 1
	ExitPartial = 2
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "vecsync",
	Short: "Incremental document synchronisation for a vector index",
	Long: `vecsync keeps a vector index in step with an external document
corpus. Each run is one discrete cycle: list the corpus, diff it
against the last synchronised state by content hash, and apply only
the changes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.vecsync/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig resolves the --config flag and loads the configuration.
func loadConfig() (*cfgfile.Config, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = cfgfile.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}
	return cfgfile.Load(path)
}

// resolvedConfigPath returns the config file location the commands use.
func resolvedConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return cfgfile.DefaultConfigPath()
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("%v", err)
		return ExitAborted
	}
	return exitCode
}

// exitCode carries the sync command's outcome out of cobra's
// error-or-nil return. Commands other than sync leave it at ExitClean.
var exitCode = ExitClean
