package cli

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tracegas-cli/internal/adapters/driven/secrets"
)

const testToken = "eyJhbGciOiJSUzI1NiJ9.payload.signature"

// pngBytes is a PNG signature followed by filler.
var pngBytes = []byte("\x89PNG\r\n\x1a\nfake-image-data")

// productsBody holds two CO products for 2024-01-15, oldest first.
const productsBody = `{
  "value": [
    {
      "Id": "a-1",
      "Name": "S5P_OFFL_L2__CO_____20240115T100000",
      "ContentDate": {"Start": "2024-01-15T10:00:00.000Z", "End": "2024-01-15T11:40:00.000Z"},
      "GeoFootprint": {"type": "Polygon", "coordinates": [[[-10, 20], [30, 20], [30, 60], [-10, 60], [-10, 20]]]}
    },
    {
      "Id": "b-2",
      "Name": "S5P_OFFL_L2__CO_____20240115T120000",
      "ContentDate": {"Start": "2024-01-15T12:00:00.000Z", "End": "2024-01-15T13:40:00.000Z"},
      "GeoFootprint": {"type": "Polygon", "coordinates": [[[0, 10], [40, 10], [40, 50], [0, 50], [0, 10]]]}
    }
  ]
}`

// dataSpace fakes the identity, catalogue and WMS endpoints.
type dataSpace struct {
	*httptest.Server

	tokenCalls   atomic.Int32
	catalogCalls atomic.Int32
	wmsError     atomic.Bool
	catalogDelay atomic.Int64

	mu        sync.Mutex
	clientIDs []string
	filters   []string
	wmsQuery  url.Values
}

func newDataSpace(t *testing.T) *dataSpace {
	t.Helper()
	ds := &dataSpace{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", ds.handleToken)
	mux.HandleFunc("/odata/v1/Products", ds.handleProducts)
	mux.HandleFunc("/wms", ds.handleWMS)
	ds.Server = httptest.NewServer(mux)
	t.Cleanup(ds.Close)
	return ds
}

func (ds *dataSpace) handleToken(w http.ResponseWriter, r *http.Request) {
	ds.tokenCalls.Add(1)
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id := r.PostForm.Get("client_id")
	ds.mu.Lock()
	ds.clientIDs = append(ds.clientIDs, id)
	ds.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if id == "bad" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client","error_description":"Invalid client credentials"}`))
		return
	}
	_, _ = fmt.Fprintf(w, `{"access_token":%q,"expires_in":600,"token_type":"Bearer"}`, testToken)
}

func (ds *dataSpace) handleProducts(w http.ResponseWriter, r *http.Request) {
	ds.catalogCalls.Add(1)
	if d := time.Duration(ds.catalogDelay.Load()); d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}
	if r.Header.Get("Authorization") != "Bearer "+testToken {
		http.Error(w, "unauthorised", http.StatusUnauthorized)
		return
	}
	filter := r.URL.Query().Get("$filter")
	ds.mu.Lock()
	ds.filters = append(ds.filters, filter)
	ds.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if strings.Contains(filter, "'L2__CO____'") && strings.Contains(filter, "ContentDate/End ge 2024-01-15T00:00:00Z") {
		_, _ = w.Write([]byte(productsBody))
		return
	}
	_, _ = w.Write([]byte(`{"value": []}`))
}

func (ds *dataSpace) handleWMS(w http.ResponseWriter, r *http.Request) {
	ds.mu.Lock()
	ds.wmsQuery = r.URL.Query()
	ds.mu.Unlock()

	if ds.wmsError.Load() {
		w.Header().Set("Content-Type", "application/vnd.ogc.se_xml")
		_, _ = w.Write([]byte(`<ServiceExceptionReport><ServiceException>Layer not found</ServiceException></ServiceExceptionReport>`))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(pngBytes)
}

func (ds *dataSpace) lastFilter() string {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if len(ds.filters) == 0 {
		return ""
	}
	return ds.filters[len(ds.filters)-1]
}

func (ds *dataSpace) lastClientID() string {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if len(ds.clientIDs) == 0 {
		return ""
	}
	return ds.clientIDs[len(ds.clientIDs)-1]
}

func (ds *dataSpace) lastWMSQuery() url.Values {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.wmsQuery
}

// setup starts a fake data space, writes a config pointing at it and
// provides client credentials through the environment.
func setup(t *testing.T, cacheBackend string) (*dataSpace, string) {
	t.Helper()
	ds := newDataSpace(t)
	dir := t.TempDir()

	config := fmt.Sprintf(`[identity]
token_url = %q

[catalog]
url = %q

[wms]
url = %q

[cache]
backend = %q
`, ds.URL+"/token", ds.URL+"/odata/v1/Products", ds.URL+"/wms", cacheBackend)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(config), 0600))

	t.Setenv("HOME", dir)
	t.Setenv(secrets.NoKeyringEnv, "1")
	t.Setenv(envClientID, "sh-test")
	t.Setenv(envClientSecret, "s3cret-value")
	return ds, dir
}

// resetFlags restores every flag variable; cobra keeps them between runs.
func resetFlags() {
	verbose = false
	configDir = ""
	flagClientID = ""
	flagClientSecret = ""
	flagGas = ""
	productsJSON = false
	wmsJSON = false
	tokenShow = false
	authNoVerify = false
	authCheck = false
	snapshotOutput = ""
	snapshotWidth = 0
	snapshotHeight = 0
	snapshotWorld = false
	watchMetricsAddr = ""
}

// execute runs the root command with args and returns everything it wrote.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	return executeContext(context.Background(), t, stdin, args...)
}

func executeContext(ctx context.Context, t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags()
	}()

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}
