// Package redis caches last-known prayer times and repeat-alarm fire
// stamps. Every helper degrades to a miss on error — the schedulers carry
// their own in-memory state and must keep ticking without the cache.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var Rdb *redis.Client

func InitRedis(redisAddress string, redisUsername string, redisPassword string) {
	Rdb = redis.NewClient(&redis.Options{
		Addr:     redisAddress,
		Username: redisUsername,
		Password: redisPassword,
		DB:       0,
	})
}

func Set(ctx context.Context, key string, value interface{}, expiration time.Duration) {
	if Rdb == nil {
		return
	}
	if err := Rdb.Set(ctx, key, value, expiration).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis set failed")
	}
}

// Get returns the cached value, or "" on miss or error.
func Get(ctx context.Context, key string) string {
	if Rdb == nil {
		return ""
	}
	val, err := Rdb.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("key", key).Msg("redis get failed")
		}
		return ""
	}
	return val
}

const (
	prayerTimesKey    = "prayer:times:"    // + YYYY-MM-DD, JSON of the day's events
	alarmLastFiredKey = "alarm:lastfired:" // + alarm id, YYYY-MM-DD of last firing
)

// SetPrayerTimes stores a fetched day's schedule as the last-known copy,
// kept for two days so yesterday's schedule survives a rollover fetch
// failure for display.
func SetPrayerTimes(ctx context.Context, date string, payload string) {
	Set(ctx, prayerTimesKey+date, payload, 48*time.Hour)
}

func GetPrayerTimes(ctx context.Context, date string) string {
	return Get(ctx, prayerTimesKey+date)
}

// StampAlarmFired remembers the date a repeating alarm fired.
func StampAlarmFired(ctx context.Context, alarmID string, date string) {
	Set(ctx, alarmLastFiredKey+alarmID, date, 48*time.Hour)
}

func AlarmLastFired(ctx context.Context, alarmID string) string {
	return Get(ctx, alarmLastFiredKey+alarmID)
}
