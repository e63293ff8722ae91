package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.Equal(t, GasCO, s.Gas)
	assert.Equal(t, "L2__CO____", s.Catalog.ProductType)
	assert.Equal(t, "SENTINEL-5P", s.Catalog.Collection)
	assert.Equal(t, 5, s.Catalog.MaxResults)
	assert.Equal(t, "S5_CO_CDAS", s.WMS.Layer)
	assert.Equal(t, TimeModeMidpoint, s.WMS.TimeMode)
	assert.Equal(t, 30*time.Second, s.Refresh.TokenBuffer)
	assert.Equal(t, 10*time.Second, s.Refresh.RequestTimeout)
	assert.Equal(t, 5*time.Minute, s.Refresh.Interval)
	assert.Equal(t, CacheMemory, s.Cache.Backend)
}

func TestPresetFor(t *testing.T) {
	p, err := PresetFor(GasNO2)
	require.NoError(t, err)
	assert.Equal(t, "L2__NO2___", p.ProductType)
	assert.Equal(t, NO2Legend.Title, p.Legend.Title)

	_, err = PresetFor(Gas("ch4"))
	var invalid *InvalidArgumentError
	assert.True(t, errors.As(err, &invalid))
	assert.False(t, Gas("ch4").IsValid())
}

func TestCatalogSettings_CacheScope(t *testing.T) {
	base := DefaultSettings().Catalog
	withSlash := base
	withSlash.URL = base.URL + "/"
	assert.Equal(t, base.CacheScope(), withSlash.CacheScope())

	for _, change := range []func(*CatalogSettings){
		func(c *CatalogSettings) { c.URL = "https://other.test/odata/v1" },
		func(c *CatalogSettings) { c.Collection = "SENTINEL-5P-RPRO" },
		func(c *CatalogSettings) { c.ProductType = "L2__NO2___" },
	} {
		changed := base
		change(&changed)
		assert.NotEqual(t, base.CacheScope(), changed.CacheScope())
	}

	limited := base
	limited.MaxResults = 1
	assert.Equal(t, base.CacheScope(), limited.CacheScope())
}

func TestCacheBackend_IsValid(t *testing.T) {
	assert.True(t, CacheNone.IsValid())
	assert.True(t, CacheMemory.IsValid())
	assert.True(t, CacheSQLite.IsValid())
	assert.False(t, CacheBackend("redis").IsValid())
}

func TestCredentials(t *testing.T) {
	scopes := []string{"openid", "profile"}
	c := NewCredentials("id", "secret-value", scopes)
	scopes[0] = "mutated"

	assert.Equal(t, "openid profile", c.Scope())
	assert.NoError(t, c.Validate())
	assert.Equal(t, "********alue", c.MaskedSecret())

	assert.ErrorIs(t, NewCredentials("", "s", nil).Validate(), ErrInvalidInput)
	assert.ErrorIs(t, NewCredentials("id", " ", nil).Validate(), ErrInvalidInput)
}

func TestToken_ValidAt(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	tok := Token{Value: "abc", ExpiresAt: now.Add(time.Minute)}

	assert.True(t, tok.ValidAt(now, 30*time.Second))
	assert.False(t, tok.ValidAt(now.Add(31*time.Second), 30*time.Second))
	assert.False(t, Token{}.ValidAt(now, 0))
	assert.Equal(t, time.Minute, tok.TimeUntilExpiry(now))
	assert.Equal(t, "****", tok.Masked())
	assert.Equal(t, "eyJh…wxyz", Token{Value: "eyJhbGciOi.wxyz"}.Masked())
}
