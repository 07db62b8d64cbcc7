package engine_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/birthday-bot/internal/config"
	"github.com/tartampluch/birthday-bot/internal/engine"
)

const addressBook = "BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Olena\r\nBDAY:1990-03-07\r\nNOTE:Tea\r\nEND:VCARD\r\n"

func serveBody(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

// TestHTTPFetcher_SendsCredentialsAndHeaders feeds the download through
// VCardSource so the whole remote path is exercised.
func TestHTTPFetcher_SendsCredentialsAndHeaders(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "family" || pass != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, config.UserAgent, r.Header.Get(config.HeaderUserAgent))
		assert.Contains(t, r.Header.Get(config.HeaderAccept), "text/vcard")
		_, _ = io.WriteString(w, addressBook)
	}))
	defer ts.Close()

	src := &engine.VCardSource{
		Fetcher: engine.NewHTTPFetcher(),
		URL:     ts.URL + "/contacts.vcf",
		User:    "family",
		Pass:    "hunter2",
	}
	rows, err := src.Rows(context.Background())
	require.NoError(t, err)

	roster := engine.ParseRoster(rows)
	require.Len(t, roster, 1)
	assert.Equal(t, "Olena", roster[0].Name)
	assert.Equal(t, "Tea", roster[0].Wishlist)
}

func TestHTTPFetcher_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		url     func(t *testing.T) string
		wantErr string
	}{
		{
			name:    "BadStatus",
			url:     func(t *testing.T) string { return serveBody(t, http.StatusNotFound, "").URL },
			wantErr: config.ErrFetchStatus,
		},
		{
			name:    "ServerError",
			url:     func(t *testing.T) string { return serveBody(t, http.StatusBadGateway, "").URL },
			wantErr: "502",
		},
		{
			name:    "InvalidURL",
			url:     func(*testing.T) string { return string([]byte{0x7f}) },
			wantErr: config.ErrInvalidURL,
		},
		{
			name:    "UnsupportedScheme",
			url:     func(*testing.T) string { return "ftp://example.com/contacts.vcf" },
			wantErr: config.ErrProtocol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, err := engine.NewHTTPFetcher().Fetch(context.Background(), tt.url(t), "", "")
			require.Error(t, err)
			assert.Nil(t, rc)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHTTPFetcher_SizeCap(t *testing.T) {
	body := strings.Repeat("x", 64)

	t.Run("DeclaredLengthTooLarge", func(t *testing.T) {
		ts := serveBody(t, http.StatusOK, body)
		f := engine.NewHTTPFetcher()
		f.MaxBytes = 16

		_, err := f.Fetch(context.Background(), ts.URL, "", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), config.ErrResponseTooLarge)
	})

	t.Run("StreamedBodyTooLarge", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			// Flushing before the body forces chunked encoding, hiding the length.
			w.WriteHeader(http.StatusOK)
			w.(http.Flusher).Flush()
			_, _ = io.WriteString(w, body)
		}))
		defer ts.Close()

		f := engine.NewHTTPFetcher()
		f.MaxBytes = 16
		rc, err := f.Fetch(context.Background(), ts.URL, "", "")
		require.NoError(t, err)
		defer func() { _ = rc.Close() }()

		_, err = io.ReadAll(rc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), config.ErrResponseTooLarge)
	})

	t.Run("ExactlyAtLimit", func(t *testing.T) {
		ts := serveBody(t, http.StatusOK, body)
		f := engine.NewHTTPFetcher()
		f.MaxBytes = int64(len(body))

		rc, err := f.Fetch(context.Background(), ts.URL, "", "")
		require.NoError(t, err)
		defer func() { _ = rc.Close() }()

		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, body, string(got))
	})
}

// TestHTTPFetcher_RespectsDeadline ensures a hung server cannot stall a run.
func TestHTTPFetcher_RespectsDeadline(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := engine.NewHTTPFetcher().Fetch(ctx, ts.URL, "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
