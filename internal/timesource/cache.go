package timesource

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/minaret-labs/minaret/internal/model"
	"github.com/minaret-labs/minaret/internal/redis"
)

// CachingAdapter wraps a fetch adapter and mirrors every successful result
// into redis as the last-known schedule. Cached times back display only —
// the prayer scheduler never fires audio off a stale day.
type CachingAdapter struct {
	Inner Adapter
}

func NewCachingAdapter(inner Adapter) *CachingAdapter {
	return &CachingAdapter{Inner: inner}
}

func (c *CachingAdapter) FetchDay(ctx context.Context, date time.Time, loc Location) ([]model.PrayerEvent, error) {
	events, err := c.Inner.FetchDay(ctx, date, loc)
	if err != nil {
		return nil, err
	}

	if payload, merr := json.Marshal(events); merr == nil {
		redis.SetPrayerTimes(ctx, model.DateKey(date), string(payload))
	} else {
		log.Warn().Err(merr).Msg("marshalling prayer times for cache")
	}
	return events, nil
}

// LastKnown returns the cached schedule for a date, if any.
func LastKnown(ctx context.Context, date string) ([]model.PrayerEvent, bool) {
	payload := redis.GetPrayerTimes(ctx, date)
	if payload == "" {
		return nil, false
	}
	var events []model.PrayerEvent
	if err := json.Unmarshal([]byte(payload), &events); err != nil {
		log.Warn().Err(err).Str("date", date).Msg("corrupt cached prayer times")
		return nil, false
	}
	return events, true
}
