package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	cfgfile "github.com/custodia-labs/vecsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the synchronised index",
	Long: `Embeds the query with the configured embedding provider and returns
the most similar indexed chunks.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", cfgfile.DefaultSearchTopK, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.embedder == nil {
		return errors.New("search requires an embedding provider; set [embedding] provider in the config")
	}

	query, err := a.embedder.Embed(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("embedding query: %w", err)
	}

	hits, err := a.index.Search(cmd.Context(), query, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, hits)
	}
	return outputSearchText(cmd, hits)
}

func outputSearchJSON(cmd *cobra.Command, hits []driven.SearchHit) error {
	data, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchText(cmd *cobra.Command, hits []driven.SearchHit) error {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, hit := range hits {
		title, _ := hit.Chunk.Metadata["title"].(string)
		if title == "" {
			title = hit.Chunk.DocumentID
		}

		cmd.Printf("  [%d] %s (%.2f)\n", i+1, title, hit.Similarity)
		cmd.Printf("      %s\n", snippet(hit.Chunk.Text, 160))
	}
	return nil
}

// snippet returns the first line of text, truncated to max runes.
func snippet(text string, max int) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	runes := []rune(text)
	if len(runes) > max {
		return string(runes[:max]) + "..."
	}
	return text
}
