package cli

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	statefile "github.com/custodia-labs/vecsync/internal/adapters/driven/statestore/file"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the synchronised state",
	Long:  `Prints a summary of the sync state file and the index.`,
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statusCmd)
}

// statusSummary is the machine-readable status output.
type statusSummary struct {
	StatePath    string    `json:"state_path"`
	IndexPath    string    `json:"index_path"`
	Documents    int       `json:"documents"`
	Chunks       int       `json:"chunks"`
	LastSyncedAt time.Time `json:"last_synced_at,omitzero"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := statefile.NewStore(cfg.Sync.StatePath)
	if err != nil {
		return err
	}
	state, err := store.Load(cmd.Context())
	if err != nil {
		return err
	}

	summary := statusSummary{
		StatePath: cfg.Sync.StatePath,
		IndexPath: cfg.Index.Path,
		Documents: state.Len(),
	}
	for _, rec := range state.Records {
		if rec.LastSyncedAt.After(summary.LastSyncedAt) {
			summary.LastSyncedAt = rec.LastSyncedAt
		}
	}

	a, err := newApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.index.Stats(cmd.Context())
	if err != nil {
		return err
	}
	summary.Chunks = stats.Chunks

	if statusJSON {
		data, merr := json.MarshalIndent(summary, "", "  ")
		if merr != nil {
			return merr
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("State file:  %s\n", summary.StatePath)
	cmd.Printf("Index:       %s\n", summary.IndexPath)
	cmd.Printf("Documents:   %d\n", summary.Documents)
	cmd.Printf("Chunks:      %d\n", summary.Chunks)
	if summary.LastSyncedAt.IsZero() {
		cmd.Println("Last sync:   never")
	} else {
		cmd.Printf("Last sync:   %s\n", summary.LastSyncedAt.Local().Format(time.RFC1123))
	}
	return nil
}
