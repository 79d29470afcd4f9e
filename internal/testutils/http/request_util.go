package testhttp

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"
)

// DoGet decodes the JSON response of the url into response.
func DoGet(t *testing.T, url string, response any) *http.Response {
	return doGet(t, url, "application/json", func(b []byte) error { return json.Unmarshal(b, response) })
}

// DoGetCbor requests CBOR encoded response and decodes it into response.
func DoGetCbor(t *testing.T, url string, response any) *http.Response {
	return doGet(t, url, "application/cbor", func(b []byte) error { return cbor.Unmarshal(b, response) })
}

func doGet(t *testing.T, url, accept string, decode func([]byte) error) *http.Response {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Header.Set("Accept", accept)
	httpRes, err := http.DefaultClient.Do(req) // #nosec G107
	require.NoError(t, err)
	defer func() {
		_ = httpRes.Body.Close()
	}()
	resBytes, err := io.ReadAll(httpRes.Body)
	require.NoError(t, err)
	t.Logf("GET %s response: %s", url, resBytes)
	require.NoError(t, decode(resBytes))
	return httpRes
}
