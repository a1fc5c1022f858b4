package timesource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/minaret-labs/minaret/internal/model"
)

// HTTPAdapter talks to an AlAdhan-compatible timings endpoint:
// GET {base}/v1/timings/{DD-MM-YYYY}?latitude=..&longitude=..&method=..
type HTTPAdapter struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPAdapter(baseURL string) *HTTPAdapter {
	return &HTTPAdapter{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type timingsResponse struct {
	Code int `json:"code"`
	Data struct {
		Timings map[string]string `json:"timings"`
	} `json:"data"`
}

// apiNames maps the service's timing keys onto prayer names.
var apiNames = map[model.PrayerName]string{
	model.Fajr:    "Fajr",
	model.Sunrise: "Sunrise",
	model.Dhuhr:   "Dhuhr",
	model.Asr:     "Asr",
	model.Maghrib: "Maghrib",
	model.Isha:    "Isha",
}

func (a *HTTPAdapter) FetchDay(ctx context.Context, date time.Time, loc Location) ([]model.PrayerEvent, error) {
	endpoint := fmt.Sprintf("%s/v1/timings/%s?%s",
		a.BaseURL,
		date.Format("02-01-2006"),
		url.Values{
			"latitude":  {fmt.Sprintf("%f", loc.Latitude)},
			"longitude": {fmt.Sprintf("%f", loc.Longitude)},
			"method":    {fmt.Sprintf("%d", loc.Method)},
		}.Encode(),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("date", model.DateKey(date)).Msg("prayer times request failed")
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}

	var body timingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrFetchFailed, err)
	}
	if body.Code != http.StatusOK {
		return nil, fmt.Errorf("%w: service code %d", ErrFetchFailed, body.Code)
	}

	events := make([]model.PrayerEvent, 0, len(model.PrayerNames))
	for _, name := range model.PrayerNames {
		raw, ok := body.Data.Timings[apiNames[name]]
		if !ok {
			return nil, fmt.Errorf("%w: missing timing for %s", ErrFetchFailed, name)
		}
		at, err := parseClock(raw, date)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrFetchFailed, name, err)
		}
		events = append(events, model.PrayerEvent{
			Name:          name,
			ScheduledTime: at,
		})
	}
	return events, nil
}

// parseClock turns "05:12" (optionally with a trailing zone tag like
// "05:12 (EET)") into an instant on the given day, device-local.
func parseClock(raw string, date time.Time) (time.Time, error) {
	if i := len("15:04"); len(raw) > i {
		raw = raw[:i]
	}
	clock, err := time.Parse("15:04", raw)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(),
		clock.Hour(), clock.Minute(), 0, 0, date.Location()), nil
}
