package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/truenorth/comex/backend/internal/infrastructure/observability"
	"github.com/truenorth/comex/backend/pkg/config"
)

var (
	verbose bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ncmctl",
	Short: "Operate the NCM search engine",
	Long: `ncmctl loads the NCM reference dataset, keeps the Typesense index in
sync, runs ad-hoc searches and exact-code lookups, and scores the engine
against the golden query set.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		observability.InitLogger("ncmctl", cfg.Log.Env, level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
