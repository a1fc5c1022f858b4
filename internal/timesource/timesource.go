// Package timesource supplies prayer times for a date and location. The
// remote calculation service is treated as unreliable: results are cached
// so the device can keep displaying last-known times offline.
package timesource

import (
	"context"
	"errors"
	"time"

	"github.com/minaret-labs/minaret/internal/model"
)

// ErrFetchFailed wraps any failure to obtain times from the remote
// calculation service.
var ErrFetchFailed = errors.New("prayer time fetch failed")

// Location is the device's fixed position plus the calculation method id
// understood by the timings service.
type Location struct {
	Latitude  float64
	Longitude float64
	Method    int
}

// Adapter fetches the prayer schedule for one calendar day.
type Adapter interface {
	FetchDay(ctx context.Context, date time.Time, loc Location) ([]model.PrayerEvent, error)
}
