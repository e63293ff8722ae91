package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
)

var wmsJSON bool

var wmsCmd = &cobra.Command{
	Use:   "wms [date]",
	Short: "Print the WMS overlay for a day",
	Long: `Resolve the newest product for the day, request a token and print the
WMS tile URL for it. The URL carries the access token and expires with it.

The tile URL uses {bbox-epsg-3857} as its bounding box placeholder, which
web map clients replace per tile.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWMS,
}

func init() {
	wmsCmd.Flags().BoolVar(&wmsJSON, "json", false, "output the overlay as JSON")
	rootCmd.AddCommand(wmsCmd)
}

// layerOutput is the JSON form of a resolved overlay.
type layerOutput struct {
	Date      string           `json:"date"`
	Product   domain.Product   `json:"product"`
	Params    domain.WMSParams `json:"params"`
	TileURL   string           `json:"tile_url"`
	ExpiresAt string           `json:"token_expires_at"`
}

func runWMS(cmd *cobra.Command, args []string) error {
	day, err := dateArg(args)
	if err != nil {
		return err
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	product, tok, err := rt.resolveLayer(cmd.Context(), day)
	if err != nil {
		return err
	}
	params := rt.builder.Build(product, tok)
	tileURL := rt.builder.TileURL(params)

	if wmsJSON {
		return printJSON(cmd, layerOutput{
			Date:      day.String(),
			Product:   product,
			Params:    params,
			TileURL:   tileURL,
			ExpiresAt: tok.ExpiresAt.UTC().Format(domain.InstantLayout),
		})
	}

	cmd.Printf("Product: %s\n", product.Title())
	cmd.Printf("Time:    %s\n", params.Time)
	cmd.Printf("Layer:   %s (%s)\n", params.Layer, params.Style)
	cmd.Printf("Expires: %s\n\n", tok.ExpiresAt.UTC().Format(domain.InstantLayout))
	fmt.Fprintln(cmd.OutOrStdout(), tileURL)
	return nil
}

// resolveLayer returns the newest product for day and a token to draw it.
func (rt *runtime) resolveLayer(ctx context.Context, day domain.DateKey) (domain.Product, domain.Token, error) {
	products, err := rt.fetchDay(ctx, day)
	if err != nil {
		return domain.Product{}, domain.Token{}, err
	}
	if len(products) == 0 {
		return domain.Product{}, domain.Token{}, fmt.Errorf("%w: no %s products for %s",
			domain.ErrNotFound, rt.resolver.ProductType(), day)
	}

	tok, err := rt.tokens.GetToken(ctx)
	if err != nil {
		return domain.Product{}, domain.Token{}, err
	}
	return products[0], tok, nil
}
