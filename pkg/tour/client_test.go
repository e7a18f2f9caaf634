package tour

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postcardgo/pkg/config"
	"postcardgo/pkg/db"
	"postcardgo/pkg/request"
	"postcardgo/pkg/store"
	"postcardgo/pkg/tracker"
)

func newTestRequestClient(t *testing.T) *request.Client {
	t.Helper()

	d, err := db.Init(filepath.Join(t.TempDir(), "tour_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	cfg := &config.RequestConfig{
		Retries: 1,
		Timeout: config.Duration(5 * time.Second),
		Backoff: config.BackoffConfig{
			BaseDelay: config.Duration(10 * time.Millisecond),
			MaxDelay:  config.Duration(50 * time.Millisecond),
		},
	}
	return request.New(cfg, store.NewSQLiteStore(d), tracker.New())
}

func TestGetTour_ParsesResponse(t *testing.T) {
	var gotAuth string
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/tours/t42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "t42",
			"destination": "Lisbon",
			"topic": "old town",
			"ready": false,
			"stops": [
				{"name": "Alfama", "description": "oldest district", "narration_text": "script", "image_urls": ["http://x/1.jpg"], "audio_url": "http://x/1.mp3"},
				{"name": "Belem", "description": "tower", "image_urls": []}
			]
		}`))
	}))
	defer svr.Close()

	cfg := &config.TourConfig{BaseURL: svr.URL, Key: "secret"}
	c := NewClient(cfg, newTestRequestClient(t))

	tour, err := c.GetTour(context.Background(), "t42")
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "Lisbon", tour.Destination)
	require.Len(t, tour.Stops, 2)
	assert.Equal(t, 1, tour.NarratedCount())
	assert.Equal(t, "script", tour.Stops[0].ScriptText())
	assert.Equal(t, "tower", tour.Stops[1].ScriptText())
}

func TestGetTour_BadJSON(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer svr.Close()

	c := NewClient(&config.TourConfig{BaseURL: svr.URL}, newTestRequestClient(t))

	_, err := c.GetTour(context.Background(), "t1")
	require.Error(t, err)
}
