package cli

import (
	"bufio"
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	cfgfile "github.com/custodia-labs/vecsync/internal/adapters/driven/config/file"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Store the embedding provider API key",
	Long: `Prompts for the embedding API key without echoing it and writes it
to the config file with restricted permissions.`,
	Args: cobra.NoArgs,
	RunE: runConfigSetKey,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetKeyCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path, err := resolvedConfigPath()
	if err != nil {
		return err
	}

	cmd.Printf("Config file: %s\n", path)
	cmd.Println()
	cmd.Println("[sync]")
	cmd.Printf("  state_path = %s\n", cfg.Sync.StatePath)
	cmd.Printf("  workers = %d\n", cfg.Sync.Workers)
	cmd.Printf("  max_document_bytes = %d\n", cfg.Sync.MaxDocumentBytes)
	cmd.Printf("  cycle_timeout = %s\n", cfg.Sync.CycleTimeout.Std())
	cmd.Println()
	cmd.Println("[source]")
	cmd.Printf("  type = %s\n", cfg.Source.Type)
	cmd.Println()
	cmd.Println("[index]")
	cmd.Printf("  path = %s\n", cfg.Index.Path)
	cmd.Println()
	cmd.Println("[embedding]")
	cmd.Printf("  provider = %s\n", cfg.Embedding.Provider)
	if cfg.Embedding.Model != "" {
		cmd.Printf("  model = %s\n", cfg.Embedding.Model)
	}
	if cfg.Embedding.APIKey != "" {
		cmd.Printf("  api_key = %s\n", maskAPIKey(cfg.Embedding.APIKey))
	}
	cmd.Println()
	cmd.Println("[chunking]")
	cmd.Printf("  size = %d\n", cfg.Chunking.Size)
	cmd.Printf("  overlap = %d\n", cfg.Chunking.Overlap)
	return nil
}

func runConfigSetKey(cmd *cobra.Command, _ []string) error {
	path, err := resolvedConfigPath()
	if err != nil {
		return err
	}

	cmd.Print("API key: ")
	key := readPassword()
	cmd.Println()
	if key == "" {
		return errors.New("no key entered")
	}

	if err := cfgfile.SetAPIKey(path, key); err != nil {
		return err
	}
	cmd.Printf("Key saved to %s\n", path)
	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
