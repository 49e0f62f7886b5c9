package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	errx "github.com/nakari-agent/server/internal/core/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerper_SearchOrganic(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-KEY")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{
			"searchInformation": {"totalResults": "1,230"},
			"organic": [
				{"title": "Go", "link": "https://go.dev", "snippet": "The Go language"},
				{"title": "Tour", "link": "https://go.dev/tour", "snippet": "A tour"}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient(NewSerper("secret", srv.URL, srv.Client()))
	resp, err := c.Search(context.Background(), "golang", Options{NumResults: 2, Language: "en"})
	require.NoError(t, err)

	assert.Equal(t, "/search", gotPath)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "golang", gotBody["q"])
	assert.Equal(t, float64(2), gotBody["num"])
	assert.Equal(t, "en", gotBody["hl"])

	assert.Equal(t, "golang", resp.Query)
	assert.Equal(t, int64(1230), resp.TotalResults)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, Result{Title: "Go", URL: "https://go.dev", Snippet: "The Go language"}, resp.Results[0])
}

func TestSerper_TypeSpecificFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/news":
			_, _ = w.Write([]byte(`{"news": [{"title": "n", "link": "l", "snippet": "s", "date": "2 hours ago", "source": "Wire"}]}`))
		case "/images":
			_, _ = w.Write([]byte(`{"images": [{"title": "i", "link": "l", "imageUrl": "https://img/x.png"}]}`))
		case "/videos":
			_, _ = w.Write([]byte(`{"videos": [{"title": "v", "link": "l", "thumbnail": "https://img/v.jpg"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(NewSerper("k", srv.URL, srv.Client()))
	ctx := context.Background()

	news, err := c.SearchNews(ctx, "q", Options{})
	require.NoError(t, err)
	require.Len(t, news.Results, 1)
	assert.Equal(t, "2 hours ago", news.Results[0].Date)
	assert.Equal(t, "Wire", news.Results[0].SiteName)
	assert.Equal(t, int64(1), news.TotalResults)

	images, err := c.Search(ctx, "q", Options{Type: TypeImages})
	require.NoError(t, err)
	assert.Equal(t, "https://img/x.png", images.Results[0].ThumbnailURL)

	videos, err := c.Search(ctx, "q", Options{Type: TypeVideos})
	require.NoError(t, err)
	assert.Equal(t, "https://img/v.jpg", videos.Results[0].ThumbnailURL)
}

func TestSerper_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   Code
	}{
		{"unauthorized", http.StatusUnauthorized, "bad key", CodeAuth},
		{"forbidden", http.StatusForbidden, "nope", CodeAuth},
		{"rate limited", http.StatusTooManyRequests, "slow down", CodeRateLimit},
		{"server error", http.StatusInternalServerError, "boom", CodeHTTP},
		{"bad json", http.StatusOK, "{not json", CodeDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(NewSerper("k", srv.URL, srv.Client()))
			_, err := c.Search(context.Background(), "q", Options{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, errx.ErrProvider))

			var se *Error
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.code, se.Code)
			if tt.code != CodeDecode {
				assert.Contains(t, err.Error(), tt.body)
			}
		})
	}
}

func TestSerper_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(NewSerper("k", srv.URL, &http.Client{Timeout: 20 * time.Millisecond}))
	_, err := c.Search(context.Background(), "q", Options{})

	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, CodeTimeout, se.Code)
}

func TestSerper_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(NewSerper("k", url, nil))
	err := c.VerifyConnectivity(context.Background())

	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, CodeRequest, se.Code)
}
