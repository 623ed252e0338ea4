package sharefile

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetItemDownloadURL(t *testing.T) {
	c, mt := newMockClient(t, reply(http.StatusOK,
		`{"DownloadUrl":"https://storage-eu-208.sharefile.com/download.ashx?dt=my_download_key"}`))

	spec, err := c.GetItemDownloadURL(context.Background(), "file_id", false)
	require.NoError(t, err)

	assert.Equal(t, apiRoot+"Items(file_id)/Download?includeallversions=false&redirect=false", mt.last().URL)
	assert.Equal(t, "https://storage-eu-208.sharefile.com/download.ashx?dt=my_download_key", spec.DownloadURL)
}

func TestGetItemContents_Text(t *testing.T) {
	c, mt := newMockClient(t, reply(http.StatusOK, "My Item Contents"))

	resp, err := c.GetItemContents(context.Background(), "file_id", false)
	require.NoError(t, err)

	assert.Equal(t, apiRoot+"Items(file_id)/Download?includeallversions=false&redirect=true", mt.last().URL)
	assert.False(t, resp.IsJSON())
	assert.Equal(t, "My Item Contents", resp.Text())
}

func TestDownloadItem(t *testing.T) {
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte("file body"))
	}))
	defer storage.Close()

	c, mt := newMockClient(t, reply(http.StatusOK, `{"DownloadUrl":"`+storage.URL+`/download.ashx?dt=k"}`))
	c.httpClient = &http.Client{Transport: &splitTransport{api: mt, other: http.DefaultTransport}}

	var buf bytes.Buffer

	n, err := c.DownloadItem(context.Background(), "file_id", &buf)
	require.NoError(t, err)

	assert.Equal(t, int64(9), n)
	assert.Equal(t, "file body", buf.String())
	assert.Len(t, mt.requests(), 1)
}

func TestDownloadItem_StorageError(t *testing.T) {
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"NotFound","message":{"value":"expired"}}`))
	}))
	defer storage.Close()

	c, mt := newMockClient(t, reply(http.StatusOK, `{"DownloadUrl":"`+storage.URL+`/d"}`))
	c.httpClient = &http.Client{Transport: &splitTransport{api: mt, other: http.DefaultTransport}}

	_, err := c.DownloadItem(context.Background(), "file_id", &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDownloadItem_NoURL(t *testing.T) {
	c, _ := newMockClient(t, reply(http.StatusOK, `{"DownloadToken":"t"}`))

	_, err := c.DownloadItem(context.Background(), "folder", &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrNoDownloadURL)
}

// splitTransport sends API requests to the mock and everything else to a
// real transport.
type splitTransport struct {
	api   http.RoundTripper
	other http.RoundTripper
}

func (s *splitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Host == "subdomain.sf-api.com" {
		return s.api.RoundTrip(req)
	}

	return s.other.RoundTrip(req)
}
