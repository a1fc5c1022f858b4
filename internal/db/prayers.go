package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/minaret-labs/minaret/internal/model"
)

// GetPrayerDay loads one day's schedule with its events. Returns
// sql.ErrNoRows when the day has never been ingested.
func GetPrayerDay(date string) (model.PrayerDay, error) {
	var day model.PrayerDay
	err := DB.Get(&day, `SELECT date, created_at FROM prayer_days WHERE date = $1;`, date)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PrayerDay{}, err
	}
	if err != nil {
		log.Error().Err(err).Str("date", date).Msg("GetPrayerDay failed")
		return model.PrayerDay{}, err
	}

	const q = `
	SELECT name, scheduled_at, pre_announce_offset_seconds, pre_announce_enabled,
	       adhan_sound_ref, enabled
	  FROM prayer_events
	 WHERE date = $1
	 ORDER BY scheduled_at;`
	if err := DB.Select(&day.Events, q, date); err != nil {
		log.Error().Err(err).Str("date", date).Msg("GetPrayerDay events failed")
		return model.PrayerDay{}, err
	}
	return day, nil
}

// SavePrayerDay replaces the stored schedule for a date. Days that have
// already passed are never rewritten.
func SavePrayerDay(day model.PrayerDay) error {
	tx, err := DB.Beginx()
	if err != nil {
		log.Error().Err(err).Msg("SavePrayerDay begin failed")
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		INSERT INTO prayer_days (date, created_at)
		VALUES ($1, now())
		ON CONFLICT (date) DO UPDATE SET created_at = now();`, day.Date); err != nil {
		log.Error().Err(err).Str("date", day.Date).Msg("SavePrayerDay upsert failed")
		return err
	}
	if _, err := tx.Exec(`DELETE FROM prayer_events WHERE date = $1;`, day.Date); err != nil {
		return err
	}
	for _, e := range day.Events {
		if _, err := tx.Exec(`
			INSERT INTO prayer_events
			  (date, name, scheduled_at, pre_announce_offset_seconds,
			   pre_announce_enabled, adhan_sound_ref, enabled)
			VALUES ($1,$2,$3,$4,$5,$6,$7);`,
			day.Date, e.Name, e.ScheduledTime, e.PreAnnounceOffsetSeconds,
			e.PreAnnounceEnabled, e.AdhanSoundRef, e.Enabled); err != nil {
			log.Error().Err(err).Str("date", day.Date).Str("prayer", string(e.Name)).Msg("SavePrayerDay event failed")
			return err
		}
	}
	return tx.Commit()
}

// ListPrayerSettings returns the per-prayer device settings, one row per
// prayer name, seeded by migration.
func ListPrayerSettings() ([]model.PrayerSettings, error) {
	var out []model.PrayerSettings
	const q = `
	SELECT name, pre_announce_offset_seconds, pre_announce_enabled,
	       adhan_sound_ref, enabled, updated_at
	  FROM prayer_settings;`
	if err := DB.Select(&out, q); err != nil {
		log.Error().Err(err).Msg("ListPrayerSettings failed")
		return nil, err
	}
	return out, nil
}

func UpdatePrayerSettings(s model.PrayerSettings) (model.PrayerSettings, error) {
	const q = `
	UPDATE prayer_settings SET
	  pre_announce_offset_seconds = $2, pre_announce_enabled = $3,
	  adhan_sound_ref = $4, enabled = $5, updated_at = now()
	WHERE name = $1
	RETURNING name, pre_announce_offset_seconds, pre_announce_enabled,
	          adhan_sound_ref, enabled, updated_at;`
	var out model.PrayerSettings
	if err := DB.Get(&out, q, s.Name, s.PreAnnounceOffsetSeconds,
		s.PreAnnounceEnabled, s.AdhanSoundRef, s.Enabled); err != nil {
		log.Error().Err(err).Str("prayer", string(s.Name)).Msg("UpdatePrayerSettings failed")
		return model.PrayerSettings{}, err
	}
	return out, nil
}

// PruneOldPrayerDays removes day rows older than keep days. Past days are
// immutable but not kept forever on an appliance.
func PruneOldPrayerDays(keep int) error {
	cutoff := model.DateKey(time.Now().AddDate(0, 0, -keep))
	if _, err := DB.Exec(`DELETE FROM prayer_days WHERE date < $1;`, cutoff); err != nil {
		log.Error().Err(err).Msg("PruneOldPrayerDays failed")
		return err
	}
	_, err := DB.Exec(`DELETE FROM prayer_events WHERE date < $1;`, cutoff)
	return err
}
