package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/tracegas-cli/internal/adapters/driven/catalog/odata"
	"github.com/custodia-labs/tracegas-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/tracegas-cli/internal/adapters/driven/metrics"
	"github.com/custodia-labs/tracegas-cli/internal/adapters/driven/oauth"
	"github.com/custodia-labs/tracegas-cli/internal/adapters/driven/secrets"
	"github.com/custodia-labs/tracegas-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tracegas-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
	"github.com/custodia-labs/tracegas-cli/internal/core/ports/driven"
	"github.com/custodia-labs/tracegas-cli/internal/core/services"
	"github.com/custodia-labs/tracegas-cli/internal/logger"
)

// Environment variables consulted for client credentials.
//
//nolint:gosec // G101: variable names, not credentials.
const (
	envClientID     = "TRACEGAS_CLIENT_ID"
	envClientSecret = "TRACEGAS_CLIENT_SECRET"
)

const httpTimeout = 60 * time.Second

// app holds what every command needs: the config file, settings and secrets.
type app struct {
	dir             string
	store           *file.ConfigStore
	settingsService *services.SettingsService
	settings        domain.Settings
	secrets         *secrets.Store
}

func loadApp() (*app, error) {
	dir := configDir
	if dir == "" {
		d, err := file.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("locating config directory: %w", err)
		}
		dir = d
	}

	store, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	var opts []services.SettingsOption
	if flagGas != "" {
		opts = append(opts, services.WithGasOverride(domain.Gas(flagGas)))
	}
	settingsService := services.NewSettingsService(store, opts...)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings from %s: %w", store.Path(), err)
	}

	return &app{
		dir:             dir,
		store:           store,
		settingsService: settingsService,
		settings:        settings,
		secrets:         secrets.NewStore(dir),
	}, nil
}

// clientID returns the configured client id and where it came from.
func (a *app) clientID() (id, source string) {
	switch {
	case flagClientID != "":
		return flagClientID, "--client-id"
	case os.Getenv(envClientID) != "":
		return os.Getenv(envClientID), envClientID
	case a.settings.Identity.ClientID != "":
		return a.settings.Identity.ClientID, a.store.Path()
	default:
		return "", ""
	}
}

// clientSecret returns the secret for clientID and where it came from.
func (a *app) clientSecret(clientID string) (secret, source string, err error) {
	switch {
	case flagClientSecret != "":
		return flagClientSecret, "--client-secret", nil
	case os.Getenv(envClientSecret) != "":
		return os.Getenv(envClientSecret), envClientSecret, nil
	case a.settings.Identity.ClientSecret != "":
		return a.settings.Identity.ClientSecret, a.store.Path(), nil
	}

	s, err := a.secrets.Get(clientID)
	if err != nil {
		return "", "", err
	}
	source = "system keyring"
	if !a.secrets.UsesKeyring() {
		source = filepath.Join(a.dir, "secrets.json")
	}
	return s, source, nil
}

// credentials resolves the client pair: flags, then environment, then the
// config file, then the secret store.
func (a *app) credentials() (domain.Credentials, error) {
	id, _ := a.clientID()
	if strings.TrimSpace(id) == "" {
		return domain.Credentials{}, fmt.Errorf("%w: no client id; run 'tracegas auth login' or set %s",
			domain.ErrAuthRequired, envClientID)
	}

	secret, _, err := a.clientSecret(id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Credentials{}, fmt.Errorf("%w: no secret stored for client %s; run 'tracegas auth login' or set %s",
			domain.ErrAuthRequired, id, envClientSecret)
	}
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("reading client secret: %w", err)
	}

	return domain.NewCredentials(id, secret, a.settings.Identity.Scopes), nil
}

// openCache opens the configured product cache. Both results are nil when
// caching is disabled.
func (a *app) openCache() (driven.ProductCache, func() error, error) {
	c := a.settings.Cache
	switch c.Backend {
	case domain.CacheMemory:
		return memory.NewProductCache(c.Size, c.TTL), nil, nil
	case domain.CacheSQLite:
		store, err := sqlite.NewStore(filepath.Join(a.dir, "data"))
		if err != nil {
			return nil, nil, fmt.Errorf("opening product cache: %w", err)
		}
		return store.ProductCache(c.TTL), store.Close, nil
	default:
		return nil, nil, nil
	}
}

// runtime is the wired core for commands that talk to the data space.
type runtime struct {
	*app

	httpClient *http.Client
	recorder   *metrics.Recorder
	tokens     *services.TokenProvider
	resolver   *services.ProductResolver
	builder    *services.WMSBuilder
	closers    []func() error
}

// fetchDay resolves day for a one-shot command, bounded by
// refresh.request_timeout like each query of a live session.
func (rt *runtime) fetchDay(ctx context.Context, day domain.DateKey) ([]domain.Product, error) {
	if d := rt.settings.Refresh.RequestTimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return rt.resolver.FetchForDay(ctx, day)
}

func newRuntime() (*runtime, error) {
	a, err := loadApp()
	if err != nil {
		return nil, err
	}
	creds, err := a.credentials()
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		app:        a,
		httpClient: &http.Client{Timeout: httpTimeout},
		recorder:   metrics.NewRecorder(),
	}

	exchanger, err := oauth.NewExchanger(a.settings.Identity.TokenURL, creds, oauth.WithHTTPClient(rt.httpClient))
	if err != nil {
		return nil, err
	}
	rt.tokens = services.NewTokenProvider(exchanger,
		services.WithTokenBuffer(a.settings.Refresh.TokenBuffer),
		services.WithExchangeTimeout(a.settings.Refresh.RequestTimeout),
		services.WithTokenMetrics(rt.recorder),
	)

	catalog, err := odata.NewClient(a.settings.Catalog.URL,
		odata.WithHTTPClient(rt.httpClient),
		odata.WithRateLimiter(odata.NewRateLimiter(a.settings.Catalog.RequestsPerSecond, 1)),
	)
	if err != nil {
		return nil, err
	}

	opts := []services.ResolverOption{services.WithResolverMetrics(rt.recorder)}
	cache, closeCache, err := a.openCache()
	if err != nil {
		return nil, err
	}
	if cache != nil {
		opts = append(opts, services.WithProductCache(cache))
	}
	if closeCache != nil {
		rt.closers = append(rt.closers, closeCache)
	}

	rt.resolver = services.NewProductResolver(rt.tokens, catalog, a.settings.Catalog, opts...)
	rt.builder = services.NewWMSBuilder(a.settings.WMS)
	return rt, nil
}

// Close releases what newRuntime opened.
func (rt *runtime) Close() {
	rt.tokens.StopBackgroundRefresh()
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			logger.Warn("close: %v", err)
		}
	}
}

// newSession creates an overlay session over the runtime's core.
func (rt *runtime) newSession(shell driven.Shell) *services.OverlaySession {
	return services.NewOverlaySession(rt.tokens, rt.resolver, shell,
		rt.settings.Refresh, rt.settings.WMS,
		services.WithOverlayMetrics(rt.recorder),
	)
}
