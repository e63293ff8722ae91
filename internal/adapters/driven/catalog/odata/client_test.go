package odata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
)

const odataBody = `{
  "@odata.context": "$metadata#Products",
  "value": [
    {
      "Id": "S5P_X",
      "Name": "S5P_OFFL_L2__CO_____20240115T101112.nc",
      "ContentDate": {"Start": "2024-01-15T10:11:12.000Z", "End": "2024-01-15T11:52:41.000Z"},
      "GeoFootprint": {"type": "Polygon", "coordinates": [[[-10, 35], [30, 35], [30, 60], [-10, 60], [-10, 35]]]}
    },
    {
      "Id": "S5P_Y",
      "Name": "S5P_OFFL_L2__CO_____20240115T115341.nc",
      "ContentDate": {"Start": "2024-01-15T11:53:41.000Z", "End": "2024-01-15T13:35:10.000Z"}
    },
    "not an object"
  ]
}`

func testQuery() domain.CatalogQuery {
	day, _ := domain.ParseDateKey("2024-01-15")
	return domain.CatalogQuery{
		Collection:  "SENTINEL-5P",
		ProductType: "L2__CO____",
		Window:      day,
		Top:         5,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithHTTPClient(srv.Client())}, opts...)
	c, err := NewClient(srv.URL+"/odata/v1/Products", opts...)
	require.NoError(t, err)
	return c
}

func TestClient_Search_RequestShape(t *testing.T) {
	var got atomic.Value
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Clone(context.Background()))
		_, _ = w.Write([]byte(`{"value": []}`))
	})

	_, err := c.Search(context.Background(), "tok-123", testQuery())
	require.NoError(t, err)

	r := got.Load().(*http.Request)
	assert.Equal(t, http.MethodGet, r.Method)
	assert.Equal(t, "/odata/v1/Products", r.URL.Path)
	assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

	q := r.URL.Query()
	assert.Equal(t, "5", q.Get("$top"))
	assert.Equal(t, "ContentDate/Start desc", q.Get("$orderby"))
	filter := q.Get("$filter")
	assert.Contains(t, filter, "Collection/Name eq 'SENTINEL-5P'")
	assert.Contains(t, filter, "att/OData.CSC.StringAttribute/Value eq 'L2__CO____'")
	assert.Contains(t, filter, "ContentDate/Start le 2024-01-15T23:59:59Z")
	assert.Contains(t, filter, "ContentDate/End ge 2024-01-15T00:00:00Z")
}

func TestClient_Search_ODataShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(odataBody))
	})

	entries, err := c.Search(context.Background(), "tok", testQuery())
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "S5P_X", entries[0].ID)
	assert.Equal(t, "2024-01-15T10:11:12.000Z", entries[0].Start)
	assert.Equal(t, "2024-01-15T11:52:41.000Z", entries[0].End)
	require.NotNil(t, entries[0].Footprint)
	bounds, ok := entries[0].Footprint.Bounds()
	require.True(t, ok)
	assert.Equal(t, domain.BBox{MinLon: -10, MinLat: 35, MaxLon: 30, MaxLat: 60}, bounds)
	assert.Nil(t, entries[1].Footprint)
}

func TestClient_Search_GeoJSONShape(t *testing.T) {
	body := `{"type": "FeatureCollection", "features": [
		{"id": "F1", "properties": {"title": "S5P_F1", "startDate": "2024-01-15T01:00:00Z", "completionDate": "2024-01-15T02:00:00Z"},
		 "geometry": {"type": "MultiPolygon", "coordinates": [[[[0, 0], [1, 0], [1, 1], [0, 0]]], [[[5, 5], [6, 5], [6, 7], [5, 5]]]]}}
	]}`
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	})

	entries, err := c.Search(context.Background(), "tok", testQuery())
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "F1", entries[0].ID)
	assert.Equal(t, "S5P_F1", entries[0].Name)
	assert.Equal(t, "2024-01-15T02:00:00Z", entries[0].End)
	bounds, ok := entries[0].Footprint.Bounds()
	require.True(t, ok)
	assert.Equal(t, domain.BBox{MinLon: 0, MinLat: 0, MaxLon: 6, MaxLat: 7}, bounds)
}

func TestClient_Search_UnknownShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results": []}`))
	})

	_, err := c.Search(context.Background(), "tok", testQuery())

	var catErr *domain.CatalogError
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, http.StatusOK, catErr.Status)
	assert.False(t, catErr.Retryable())
	assert.Contains(t, err.Error(), "unrecognised response shape")
}

func TestClient_Search_NotJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	})

	_, err := c.Search(context.Background(), "tok", testQuery())
	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
}

func TestClient_Search_HTTPErrors(t *testing.T) {
	tests := []struct {
		status    int
		body      string
		retryable bool
		wantText  string
	}{
		{http.StatusBadRequest, `{"detail":"Invalid filter"}`, false, "Invalid filter"},
		{http.StatusUnauthorized, "", false, "Unauthorized"},
		{http.StatusServiceUnavailable, "try later", true, "try later"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Search(context.Background(), "tok", testQuery())

			var catErr *domain.CatalogError
			require.ErrorAs(t, err, &catErr)
			assert.Equal(t, tt.status, catErr.Status)
			assert.Equal(t, tt.retryable, catErr.Retryable())
			assert.Contains(t, err.Error(), tt.wantText)
		})
	}
}

func TestClient_Search_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c, err := NewClient(addr)
	require.NoError(t, err)

	_, err = c.Search(context.Background(), "tok", testQuery())

	var catErr *domain.CatalogError
	require.ErrorAs(t, err, &catErr)
	assert.Zero(t, catErr.Status)
	assert.True(t, catErr.Retryable())
}

func TestClient_Search_Canceled(t *testing.T) {
	c := newTestClient(t, func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Search(ctx, "tok", testQuery())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClient_Search_RateLimited(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	before := time.Now()

	_, err := c.Search(context.Background(), "tok", testQuery())

	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.WithinDuration(t, before.Add(120*time.Second), c.limiter.RetryAt(), 5*time.Second)

	// The next call waits for the backoff and gives up with the context.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Search(ctx, "tok", testQuery())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("catalogue")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFilter_QuotesLiterals(t *testing.T) {
	q := testQuery()
	q.Collection = "O'Brien"

	assert.Contains(t, Filter(q), "Collection/Name eq 'O''Brien'")
}

func TestQueryURL_KeepsExistingParameters(t *testing.T) {
	c, err := NewClient("https://catalogue.example.test/odata/v1/Products?$expand=Attributes")
	require.NoError(t, err)

	raw, err := c.queryURL(testQuery())
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "Attributes", u.Query().Get("$expand"))
	assert.Equal(t, "5", u.Query().Get("$top"))
}
