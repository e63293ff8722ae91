package cli

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
)

const maxSnapshotBytes = 64 << 20

var (
	snapshotOutput string
	snapshotWidth  int
	snapshotHeight int
	snapshotWorld  bool
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [date]",
	Short: "Save a WMS image of a day's product",
	Long: `Resolve the newest product for the day and save a single GetMap image of
it. The image covers the product footprint, or the whole world with --world
or when the catalogue returned no footprint.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotOutput, "output", "o", "", "output file (default <date>-<gas>.<ext>)")
	snapshotCmd.Flags().IntVar(&snapshotWidth, "width", 0, "image width in pixels (default wms.width)")
	snapshotCmd.Flags().IntVar(&snapshotHeight, "height", 0, "image height in pixels (default wms.height)")
	snapshotCmd.Flags().BoolVar(&snapshotWorld, "world", false, "cover the whole world instead of the footprint")
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
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

	bbox := domain.WorldBBox
	if b, ok := product.Footprint.Bounds(); ok && !snapshotWorld {
		bbox = b
	}
	width, height := snapshotWidth, snapshotHeight
	if width <= 0 {
		width = rt.settings.WMS.Width
	}
	if height <= 0 {
		height = rt.settings.WMS.Height
	}

	params := rt.builder.Build(product, tok)
	requestURL := rt.builder.GetMapURL(params, bbox, width, height)

	out := snapshotOutput
	if out == "" {
		out = fmt.Sprintf("%s-%s%s", day, rt.settings.Gas, extensionFor(params.Format))
	}

	n, err := rt.download(cmd.Context(), requestURL, out)
	if err != nil {
		return err
	}
	cmd.Printf("Saved %s (%d bytes, %dx%d, %s)\n", out, n, width, height, product.Title())
	return nil
}

// download fetches a GetMap image into path. WMS servers report errors as
// XML documents with status 200, so anything that is not an image fails.
func (rt *runtime) download(ctx context.Context, requestURL, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	resp, err := rt.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("requesting image: %w", err)
	}
	defer resp.Body.Close()

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(mediaType, "image/") {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return 0, fmt.Errorf("WMS request failed: status %d (%s): %s",
			resp.StatusCode, mediaType, strings.TrimSpace(string(body)))
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", path, err)
	}
	n, err := io.Copy(f, io.LimitReader(resp.Body, maxSnapshotBytes))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	return n, nil
}

func extensionFor(format string) string {
	switch format {
	case "image/jpeg":
		return ".jpg"
	case "image/tiff":
		return ".tiff"
	default:
		return ".png"
	}
}
