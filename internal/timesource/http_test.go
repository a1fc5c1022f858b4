package timesource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minaret-labs/minaret/internal/model"
)

const timingsFixture = `{
	"code": 200,
	"data": {
		"timings": {
			"Fajr": "05:12",
			"Sunrise": "06:40",
			"Dhuhr": "12:30",
			"Asr": "15:45",
			"Sunset": "18:20",
			"Maghrib": "18:20",
			"Isha": "19:50",
			"Midnight": "00:25"
		}
	}
}`

func TestFetchDayParsesTimings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v1/timings/05-01-2026")
		assert.Equal(t, "3", r.URL.Query().Get("method"))
		_, _ = w.Write([]byte(timingsFixture))
	}))
	defer srv.Close()

	adapter := NewHTTPAdapter(srv.URL)
	date := time.Date(2026, 1, 5, 0, 0, 0, 0, time.Local)

	events, err := adapter.FetchDay(context.Background(), date, Location{Latitude: 30.04, Longitude: 31.23, Method: 3})
	require.NoError(t, err)
	require.Len(t, events, 6)

	assert.Equal(t, model.Fajr, events[0].Name)
	assert.Equal(t, time.Date(2026, 1, 5, 5, 12, 0, 0, time.Local), events[0].ScheduledTime)
	assert.Equal(t, model.Isha, events[5].Name)
	assert.Equal(t, time.Date(2026, 1, 5, 19, 50, 0, 0, time.Local), events[5].ScheduledTime)
}

func TestFetchDayServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	adapter := NewHTTPAdapter(srv.URL)
	_, err := adapter.FetchDay(context.Background(), time.Now(), Location{})
	require.ErrorIs(t, err, ErrFetchFailed)
}

func TestFetchDayMissingTiming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"data":{"timings":{"Fajr":"05:12"}}}`))
	}))
	defer srv.Close()

	adapter := NewHTTPAdapter(srv.URL)
	_, err := adapter.FetchDay(context.Background(), time.Now(), Location{})
	require.ErrorIs(t, err, ErrFetchFailed)
}

func TestParseClockTrailingZone(t *testing.T) {
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local)
	at, err := parseClock("05:12 (EET)", date)
	require.NoError(t, err)
	assert.Equal(t, 5, at.Hour())
	assert.Equal(t, 12, at.Minute())
}
