package backupclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cgi-bin/backup":
			_, _ = w.Write([]byte("audits-2026-05-02.dump\n"))
		default:
			http.Error(w, "no dumps", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	out, err := c.TriggerBackup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "audits-2026-05-02.dump", out)

	_, err = c.RestoreLatest(context.Background())
	assert.ErrorContains(t, err, "http 500: no dumps")
}

func TestNewDefaultURL(t *testing.T) {
	assert.Equal(t, DefaultURL, New("").BaseURL)
}
