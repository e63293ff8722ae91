package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tracegas-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
	"github.com/custodia-labs/tracegas-cli/internal/core/ports/driven"
	"github.com/custodia-labs/tracegas-cli/internal/core/services"
	"github.com/custodia-labs/tracegas-cli/internal/logger"
)

var watchMetricsAddr string

var watchCmd = &cobra.Command{
	Use:   "watch [date]",
	Short: "Keep an overlay live and follow date selections",
	Long: `Resolve the overlay for a day and keep it live: the token is refreshed in
the background and every refresh prints the updated tile URL.

Further dates are read from standard input, one per line. Each line replaces
the selection; a slower earlier selection never overwrites a newer one.
Changes to the WMS settings in the config file are applied without
restarting. Stop with Ctrl-C.

Examples:
  tracegas watch 2024-01-15
  tracegas watch --metrics-addr :9090`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	day, err := dateArg(args)
	if err != nil {
		return err
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	shell := &printerShell{out: cmd.OutOrStdout()}
	session := rt.newSession(shell)
	shell.session = session
	defer session.Close()

	stopWatching := watchConfig(ctx, rt, session)
	defer stopWatching()

	if watchMetricsAddr != "" {
		stop := serveMetrics(rt, watchMetricsAddr)
		defer stop()
		cmd.PrintErrf("Metrics on http://%s/metrics\n", watchMetricsAddr)
	}

	var wg sync.WaitGroup
	defer wg.Wait()
	selectDay := func(day domain.DateKey) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := session.SelectDate(ctx, day.Start)
			if err != nil && !errors.Is(err, domain.ErrSuperseded) && !errors.Is(err, context.Canceled) {
				logger.Debug("selection %s ended: %v", day, err)
			}
		}()
	}

	selectDay(day)
	for line := range readLines(ctx, cmd.InOrStdin()) {
		day, err := parseDate(line, now())
		if err != nil {
			shell.OnResolutionFailed(domain.KindOf(err), err.Error())
			continue
		}
		selectDay(day)
	}

	<-ctx.Done()
	return nil
}

// watchConfig applies config file changes to session until ctx is done.
// The returned func stops watching.
func watchConfig(ctx context.Context, rt *runtime, session *services.OverlaySession) func() {
	watcher, err := file.NewWatcher(rt.store, 0, func() {
		settings, err := rt.settingsService.Get()
		if err != nil {
			logger.Warn("ignoring config change: %v", err)
			return
		}
		logger.Info("config changed, rebuilding overlay")
		session.Reconfigure(settings.WMS)
	})
	if err != nil {
		logger.Warn("config changes will not be applied: %v", err)
		return func() {}
	}
	watcher.Start(ctx)
	return func() {
		if err := watcher.Close(); err != nil {
			logger.Debug("closing config watcher: %v", err)
		}
	}
}

// readLines sends non-empty input lines until r is exhausted or ctx is done.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func serveMetrics(rt *runtime, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", rt.recorder.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server: %v", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx) //nolint:errcheck
	}
}

// printerShell writes overlay updates as text.
type printerShell struct {
	mu      sync.Mutex
	out     io.Writer
	session *services.OverlaySession
}

var _ driven.Shell = (*printerShell)(nil)

func (p *printerShell) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

func (p *printerShell) OnProductResolved(o domain.Overlay) {
	p.printf("[%s] %s\n  acquired %s, TIME=%s\n  %s\n",
		o.Date, o.Product.Title(), o.Product.AcquisitionLabel(), o.Params.Time,
		p.session.Builder().TileURL(o.Params))
}

func (p *printerShell) OnNoProducts(day domain.DateKey) {
	p.printf("[%s] no products found, keeping the current overlay\n", day)
}

func (p *printerShell) OnResolutionFailed(kind domain.ErrorKind, message string) {
	p.printf("error (%s): %s\n", kind, message)
}

func (p *printerShell) OnTokenRefreshed(tok domain.Token) {
	o, ok := p.session.Overlay()
	if !ok {
		return
	}
	p.printf("token refreshed, expires %s\n  %s\n",
		tok.ExpiresAt.UTC().Format(domain.InstantLayout),
		p.session.Builder().TileURL(o.Params))
}
