// exposes a Store interface that is passed to the schedulers and API
// controllers so they can be tested without a live database.
package db

import (
	"github.com/minaret-labs/minaret/internal/model"
)

type Store interface {
	// alarm functions
	CreateAlarm(a model.Alarm) (model.Alarm, error)
	UpdateAlarm(a model.Alarm) (model.Alarm, error)
	DeleteAlarm(id int) error
	GetAlarm(id int) (model.Alarm, error)
	ListAlarms() ([]model.Alarm, error)
	ListEnabledAlarms() ([]model.Alarm, error)
	DisableAlarm(id int) error
	StampAlarmFired(id int, date string) error
	LastFiredDate(id int) (string, error)

	// prayer functions
	GetPrayerDay(date string) (model.PrayerDay, error)
	SavePrayerDay(day model.PrayerDay) error
	ListPrayerSettings() ([]model.PrayerSettings, error)
	UpdatePrayerSettings(s model.PrayerSettings) (model.PrayerSettings, error)
	PruneOldPrayerDays(keep int) error
}

type pgStore struct{}

// compile-time check that pgStore implements Store
var _ Store = (*pgStore)(nil)

func NewStore() Store {
	return &pgStore{}
}

func (*pgStore) CreateAlarm(a model.Alarm) (model.Alarm, error) { return CreateAlarm(a) }
func (*pgStore) UpdateAlarm(a model.Alarm) (model.Alarm, error) { return UpdateAlarm(a) }
func (*pgStore) DeleteAlarm(id int) error                       { return DeleteAlarm(id) }
func (*pgStore) GetAlarm(id int) (model.Alarm, error)           { return GetAlarm(id) }
func (*pgStore) ListAlarms() ([]model.Alarm, error)             { return ListAlarms() }
func (*pgStore) ListEnabledAlarms() ([]model.Alarm, error)      { return ListEnabledAlarms() }
func (*pgStore) DisableAlarm(id int) error                      { return DisableAlarm(id) }
func (*pgStore) StampAlarmFired(id int, date string) error      { return StampAlarmFired(id, date) }
func (*pgStore) LastFiredDate(id int) (string, error)           { return LastFiredDate(id) }

func (*pgStore) GetPrayerDay(date string) (model.PrayerDay, error) { return GetPrayerDay(date) }
func (*pgStore) SavePrayerDay(day model.PrayerDay) error           { return SavePrayerDay(day) }
func (*pgStore) ListPrayerSettings() ([]model.PrayerSettings, error) {
	return ListPrayerSettings()
}
func (*pgStore) UpdatePrayerSettings(s model.PrayerSettings) (model.PrayerSettings, error) {
	return UpdatePrayerSettings(s)
}
func (*pgStore) PruneOldPrayerDays(keep int) error { return PruneOldPrayerDays(keep) }
