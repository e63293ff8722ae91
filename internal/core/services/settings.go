package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
	"github.com/custodia-labs/tracegas-cli/internal/core/ports/driven"
	"github.com/custodia-labs/tracegas-cli/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyGas               = "gas"
	keyTokenURL          = "identity.token_url"
	keyClientID          = "identity.client_id"
	keyClientSecret      = "identity.client_secret"
	keyScopes            = "identity.scopes"
	keyCatalogURL        = "catalog.url"
	keyCollection        = "catalog.collection"
	keyProductType       = "catalog.product_type"
	keyMaxResults        = "catalog.max_results"
	keyRequestsPerSecond = "catalog.requests_per_second"
	keyWMSURL            = "wms.url"
	keyLayer             = "wms.layer"
	keyStyle             = "wms.style"
	keyColorRange        = "wms.color_range"
	keyTimeMode          = "wms.time_mode"
	keyCRS               = "wms.crs"
	keyFormat            = "wms.format"
	keyVersion           = "wms.version"
	keyWidth             = "wms.width"
	keyHeight            = "wms.height"
	keyOpacity           = "wms.opacity"
	keyInterval          = "refresh.interval"
	keyTokenBuffer       = "refresh.token_buffer"
	keyRequestTimeout    = "refresh.request_timeout"
	keyRetryBackoff      = "refresh.retry_backoff"
	keyCacheBackend      = "cache.backend"
	keyCacheTTL          = "cache.ttl"
	keyCacheSize         = "cache.size"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindDuration
	kindStringSlice
)

type settingKey struct {
	name string
	kind valueKind
	// check validates an already converted value.
	check func(any) error
}

var settingKeys = []settingKey{
	{name: keyGas, kind: kindString, check: checkGas},
	{name: keyTokenURL, kind: kindString, check: checkURL},
	{name: keyClientID, kind: kindString},
	{name: keyClientSecret, kind: kindString},
	{name: keyScopes, kind: kindStringSlice},
	{name: keyCatalogURL, kind: kindString, check: checkURL},
	{name: keyCollection, kind: kindString},
	{name: keyProductType, kind: kindString},
	{name: keyMaxResults, kind: kindInt, check: checkRange(1, domain.MaxCatalogResults)},
	{name: keyRequestsPerSecond, kind: kindFloat, check: checkNonNegative},
	{name: keyWMSURL, kind: kindString, check: checkURL},
	{name: keyLayer, kind: kindString},
	{name: keyStyle, kind: kindString},
	{name: keyColorRange, kind: kindString, check: checkColorRange},
	{name: keyTimeMode, kind: kindString, check: checkTimeMode},
	{name: keyCRS, kind: kindString},
	{name: keyFormat, kind: kindString},
	{name: keyVersion, kind: kindString},
	{name: keyWidth, kind: kindInt, check: checkRange(1, 4096)},
	{name: keyHeight, kind: kindInt, check: checkRange(1, 4096)},
	{name: keyOpacity, kind: kindFloat, check: checkUnit},
	{name: keyInterval, kind: kindDuration, check: checkPositive},
	{name: keyTokenBuffer, kind: kindDuration},
	{name: keyRequestTimeout, kind: kindDuration, check: checkPositive},
	{name: keyRetryBackoff, kind: kindDuration},
	{name: keyCacheBackend, kind: kindString, check: checkBackend},
	{name: keyCacheTTL, kind: kindDuration, check: checkPositive},
	{name: keyCacheSize, kind: kindInt, check: checkRange(1, 10000)},
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	gas         domain.Gas
}

// SettingsOption configures a SettingsService.
type SettingsOption func(*SettingsService)

// WithGasOverride selects the preset for g whatever the config file says.
// Explicit product and layer keys still win over the preset.
func WithGasOverride(g domain.Gas) SettingsOption {
	return func(s *SettingsService) { s.gas = domain.Gas(strings.ToLower(string(g))) }
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, opts ...SettingsOption) *SettingsService {
	s := &SettingsService{configStore: configStore}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves current settings. The gas preset supplies the product and
// layer defaults; explicit keys override it.
func (s *SettingsService) Get() (domain.Settings, error) {
	settings := domain.DefaultSettings()

	if v := s.configStore.GetString(keyGas); v != "" {
		settings.Gas = domain.Gas(strings.ToLower(v))
	}
	if s.gas != "" {
		settings.Gas = s.gas
	}
	preset, err := domain.PresetFor(settings.Gas)
	if err != nil {
		return domain.Settings{}, err
	}
	settings.Catalog.ProductType = preset.ProductType
	settings.WMS.Layer = preset.Layer
	settings.WMS.Style = preset.Style
	settings.WMS.ColorRange = preset.ColorRange

	id := &settings.Identity
	id.TokenURL = s.getString(keyTokenURL, id.TokenURL)
	id.ClientID = s.configStore.GetString(keyClientID)
	id.ClientSecret = s.configStore.GetString(keyClientSecret)
	if scopes := s.configStore.GetStringSlice(keyScopes); scopes != nil {
		id.Scopes = scopes
	}

	cat := &settings.Catalog
	cat.URL = s.getString(keyCatalogURL, cat.URL)
	cat.Collection = s.getString(keyCollection, cat.Collection)
	cat.ProductType = s.getString(keyProductType, cat.ProductType)
	cat.MaxResults = s.getInt(keyMaxResults, cat.MaxResults)
	if cat.MaxResults > domain.MaxCatalogResults {
		cat.MaxResults = domain.MaxCatalogResults
	}
	cat.RequestsPerSecond = s.getFloat(keyRequestsPerSecond, cat.RequestsPerSecond)

	wms := &settings.WMS
	wms.URL = s.getString(keyWMSURL, wms.URL)
	wms.Layer = s.getString(keyLayer, wms.Layer)
	wms.Style = s.getString(keyStyle, wms.Style)
	wms.ColorRange = s.getString(keyColorRange, wms.ColorRange)
	if mode := domain.TimeMode(s.configStore.GetString(keyTimeMode)); mode != "" {
		if !mode.IsValid() {
			return domain.Settings{}, &domain.InvalidArgumentError{Arg: keyTimeMode, Reason: fmt.Sprintf("unknown mode %q", mode)}
		}
		wms.TimeMode = mode
	}
	wms.CRS = s.getString(keyCRS, wms.CRS)
	wms.Format = s.getString(keyFormat, wms.Format)
	wms.Version = s.getString(keyVersion, wms.Version)
	wms.Width = s.getInt(keyWidth, wms.Width)
	wms.Height = s.getInt(keyHeight, wms.Height)
	wms.Opacity = s.getFloat(keyOpacity, wms.Opacity)

	ref := &settings.Refresh
	ref.Interval = s.getDuration(keyInterval, ref.Interval)
	ref.TokenBuffer = s.getDuration(keyTokenBuffer, ref.TokenBuffer)
	ref.RequestTimeout = s.getDuration(keyRequestTimeout, ref.RequestTimeout)
	ref.RetryBackoff = s.getDuration(keyRetryBackoff, ref.RetryBackoff)

	cache := &settings.Cache
	if b := domain.CacheBackend(s.configStore.GetString(keyCacheBackend)); b != "" {
		if !b.IsValid() {
			return domain.Settings{}, &domain.InvalidArgumentError{Arg: keyCacheBackend, Reason: fmt.Sprintf("unknown backend %q", b)}
		}
		cache.Backend = b
	}
	cache.TTL = s.getDuration(keyCacheTTL, cache.TTL)
	cache.Size = s.getInt(keyCacheSize, cache.Size)

	return settings, nil
}

// Set validates value for key and persists it.
func (s *SettingsService) Set(key, value string) error {
	k, ok := lookupKey(key)
	if !ok {
		return &domain.InvalidArgumentError{Arg: key, Reason: "unknown setting"}
	}

	converted, err := convert(k.kind, value)
	if err != nil {
		return &domain.InvalidArgumentError{Arg: key, Reason: err.Error()}
	}
	if k.check != nil {
		if err := k.check(converted); err != nil {
			return &domain.InvalidArgumentError{Arg: key, Reason: err.Error()}
		}
	}

	if err := s.configStore.Set(key, converted); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys lists the settable keys in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingKeys))
	for i, k := range settingKeys {
		keys[i] = k.name
	}
	return keys
}

// IsSecret reports whether key holds a credential that should be masked.
func IsSecret(key string) bool {
	return key == keyClientSecret
}

func lookupKey(name string) (settingKey, bool) {
	for _, k := range settingKeys {
		if k.name == name {
			return k, true
		}
	}
	return settingKey{}, false
}

func convert(kind valueKind, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", value)
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", value)
		}
		return f, nil
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("not a duration: %q", value)
		}
		return d.String(), nil
	case kindStringSlice:
		if value == "" {
			return []string{}, nil
		}
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	default:
		return value, nil
	}
}

func checkGas(v any) error {
	_, err := domain.PresetFor(domain.Gas(strings.ToLower(v.(string))))
	if err != nil {
		return fmt.Errorf("must be one of co, no2")
	}
	return nil
}

func checkURL(v any) error {
	s := v.(string)
	if !strings.HasPrefix(s, "https://") && !strings.HasPrefix(s, "http://") {
		return fmt.Errorf("must be an http(s) URL")
	}
	return nil
}

func checkColorRange(v any) error {
	parts := strings.Split(v.(string), ",")
	if len(parts) != 2 {
		return fmt.Errorf("must be min,max")
	}
	lo, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	hi, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || lo >= hi {
		return fmt.Errorf("must be min,max with min < max")
	}
	return nil
}

func checkTimeMode(v any) error {
	if !domain.TimeMode(v.(string)).IsValid() {
		return fmt.Errorf("must be one of midpoint, interval")
	}
	return nil
}

func checkBackend(v any) error {
	if !domain.CacheBackend(v.(string)).IsValid() {
		return fmt.Errorf("must be one of none, memory, sqlite")
	}
	return nil
}

func checkRange(lo, hi int) func(any) error {
	return func(v any) error {
		if n := v.(int); n < lo || n > hi {
			return fmt.Errorf("must be between %d and %d", lo, hi)
		}
		return nil
	}
}

func checkNonNegative(v any) error {
	if v.(float64) < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func checkUnit(v any) error {
	if f := v.(float64); f < 0 || f > 1 {
		return fmt.Errorf("must be between 0 and 1")
	}
	return nil
}

func checkPositive(v any) error {
	d, _ := time.ParseDuration(v.(string))
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

// Helper methods

func (s *SettingsService) getString(key, defaultVal string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	if val := s.configStore.GetInt(key); val > 0 {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := s.configStore.GetDuration(key); val > 0 {
		return val
	}
	return defaultVal
}
