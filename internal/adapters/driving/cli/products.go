package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
)

var productsJSON bool

var productsCmd = &cobra.Command{
	Use:   "products [date]",
	Short: "List products acquired on a day",
	Long: `Query the catalogue for products of the configured type whose acquisition
overlaps the given UTC day. Results are newest first and limited by
catalog.max_results.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProducts,
}

func init() {
	productsCmd.Flags().BoolVar(&productsJSON, "json", false, "output products as JSON")
	rootCmd.AddCommand(productsCmd)
}

func runProducts(cmd *cobra.Command, args []string) error {
	day, err := dateArg(args)
	if err != nil {
		return err
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	products, err := rt.fetchDay(cmd.Context(), day)
	if err != nil {
		return err
	}

	if productsJSON {
		return printJSON(cmd, products)
	}

	if len(products) == 0 {
		cmd.Printf("No %s products found for %s.\n", rt.resolver.ProductType(), day)
		return nil
	}

	cmd.Printf("Products for %s (%s):\n\n", day, rt.resolver.ProductType())
	for i := range products {
		printProduct(cmd, i+1, products[i])
	}
	return nil
}

func printProduct(cmd *cobra.Command, n int, p domain.Product) {
	cmd.Printf("  [%d] %s\n", n, p.Title())
	if p.DisplayName != "" && p.DisplayName != p.ID {
		cmd.Printf("      ID:       %s\n", p.ID)
	}
	cmd.Printf("      Acquired: %s (%s)\n", p.AcquisitionLabel(), p.Duration())
	if b, ok := p.Footprint.Bounds(); ok {
		cmd.Printf("      Bounds:   %s\n", b.LonLat())
	}
	cmd.Println()
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	// Machine-readable output goes to stdout so it can be piped.
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
