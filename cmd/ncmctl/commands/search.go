package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/truenorth/comex/backend/internal/bootstrap"
	"github.com/truenorth/comex/backend/internal/domain/entities"
)

var (
	searchSector string
	searchLimit  int
)

var searchCmd = &cobra.Command{
	Use:   "search <description>",
	Short: "Rank NCM codes for a product description",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <code>...",
	Short: "Look up exact NCM codes, consulting the registry on a miss",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResolve,
}

func init() {
	searchCmd.Flags().StringVar(&searchSector, "sector", "", "sector to boost (English name or setor label)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum results")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(resolveCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	engine, err := bootstrap.New(cfg, nil)
	if err != nil {
		return err
	}
	defer engine.Close()

	resp, err := engine.Service.Search(ctx, strings.Join(args, " "), entities.ParseSector(searchSector), searchLimit)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp)
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	engine, err := bootstrap.New(cfg, nil)
	if err != nil {
		return err
	}
	defer engine.Close()

	out := make(map[string]*entities.TariffCodeDetails, len(args))
	missing := 0
	for _, code := range args {
		details, err := engine.Service.ResolveDetails(ctx, code)
		if err != nil {
			return err
		}
		if details == nil {
			missing++
		}
		out[code] = details
	}
	if err := printJSON(cmd.OutOrStdout(), out); err != nil {
		return err
	}
	if missing > 0 {
		return fmt.Errorf("%d of %d codes not found", missing, len(args))
	}
	return nil
}
