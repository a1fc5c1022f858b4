package db

import (
	"database/sql"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/minaret-labs/minaret/internal/model"
)

const alarmColumns = `
	id, name, at_ts, repeat_days, hour, minute, message, sound_ref,
	enabled, smart_ramp_enabled, smart_ramp_duration_seconds,
	last_fired_date, created_at, updated_at`

// alarmRow carries the last_fired_date column alongside the model fields.
type alarmRow struct {
	model.Alarm
	LastFiredDate *string `db:"last_fired_date"`
}

func CreateAlarm(a model.Alarm) (model.Alarm, error) {
	const q = `
	INSERT INTO alarms
	  (name, at_ts, repeat_days, hour, minute, message, sound_ref,
	   enabled, smart_ramp_enabled, smart_ramp_duration_seconds, created_at, updated_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now(),now())
	RETURNING` + alarmColumns + `;`
	var row alarmRow
	if err := DB.Get(&row, q,
		a.Name, a.At, a.RepeatDays, a.Hour, a.Minute, a.Message, a.SoundRef,
		a.Enabled, a.SmartRampEnabled, a.SmartRampDurationSeconds,
	); err != nil {
		log.Error().Err(err).Msg("CreateAlarm failed")
		return model.Alarm{}, err
	}
	return row.Alarm, nil
}

func UpdateAlarm(a model.Alarm) (model.Alarm, error) {
	const q = `
	UPDATE alarms SET
	  name = $2, at_ts = $3, repeat_days = $4, hour = $5, minute = $6,
	  message = $7, sound_ref = $8, enabled = $9,
	  smart_ramp_enabled = $10, smart_ramp_duration_seconds = $11,
	  updated_at = now()
	WHERE id = $1
	RETURNING` + alarmColumns + `;`
	var row alarmRow
	if err := DB.Get(&row, q,
		a.ID, a.Name, a.At, a.RepeatDays, a.Hour, a.Minute,
		a.Message, a.SoundRef, a.Enabled,
		a.SmartRampEnabled, a.SmartRampDurationSeconds,
	); err != nil {
		log.Error().Err(err).Int("alarm_id", a.ID).Msg("UpdateAlarm failed")
		return model.Alarm{}, err
	}
	return row.Alarm, nil
}

func DeleteAlarm(id int) error {
	_, err := DB.Exec(`DELETE FROM alarms WHERE id = $1;`, id)
	if err != nil {
		log.Error().Err(err).Int("alarm_id", id).Msg("DeleteAlarm failed")
	}
	return err
}

func GetAlarm(id int) (model.Alarm, error) {
	var row alarmRow
	err := DB.Get(&row, `SELECT`+alarmColumns+` FROM alarms WHERE id = $1;`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Alarm{}, err
	}
	if err != nil {
		log.Error().Err(err).Int("alarm_id", id).Msg("GetAlarm failed")
	}
	return row.Alarm, err
}

func ListAlarms() ([]model.Alarm, error) {
	var rows []alarmRow
	if err := DB.Select(&rows, `SELECT`+alarmColumns+` FROM alarms ORDER BY id;`); err != nil {
		log.Error().Err(err).Msg("ListAlarms failed")
		return nil, err
	}
	out := make([]model.Alarm, len(rows))
	for i, r := range rows {
		out[i] = r.Alarm
	}
	return out, nil
}

func ListEnabledAlarms() ([]model.Alarm, error) {
	var rows []alarmRow
	const q = `SELECT` + alarmColumns + ` FROM alarms WHERE enabled ORDER BY id;`
	if err := DB.Select(&rows, q); err != nil {
		log.Error().Err(err).Msg("ListEnabledAlarms failed")
		return nil, err
	}
	out := make([]model.Alarm, len(rows))
	for i, r := range rows {
		out[i] = r.Alarm
	}
	return out, nil
}

// DisableAlarm turns a one-shot alarm off after it fires. The row is kept
// so the owner can re-arm it from the app.
func DisableAlarm(id int) error {
	_, err := DB.Exec(`UPDATE alarms SET enabled = false, updated_at = now() WHERE id = $1;`, id)
	if err != nil {
		log.Error().Err(err).Int("alarm_id", id).Msg("DisableAlarm failed")
	}
	return err
}

// StampAlarmFired records the calendar date a repeating alarm last fired,
// backing the at-most-once-per-day guarantee across restarts.
func StampAlarmFired(id int, date string) error {
	_, err := DB.Exec(`UPDATE alarms SET last_fired_date = $2 WHERE id = $1;`, id, date)
	if err != nil {
		log.Error().Err(err).Int("alarm_id", id).Msg("StampAlarmFired failed")
	}
	return err
}

// LastFiredDate returns the stored stamp, or "" when the alarm never fired.
func LastFiredDate(id int) (string, error) {
	var d sql.NullString
	err := DB.Get(&d, `SELECT last_fired_date FROM alarms WHERE id = $1;`, id)
	if err != nil {
		log.Error().Err(err).Int("alarm_id", id).Msg("LastFiredDate failed")
		return "", err
	}
	return d.String, nil
}
