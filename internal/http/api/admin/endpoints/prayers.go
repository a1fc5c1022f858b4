package endpoints

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/minaret-labs/minaret/internal/db"
	"github.com/minaret-labs/minaret/internal/http/api"
	"github.com/minaret-labs/minaret/internal/http/api/admin/packets"
	"github.com/minaret-labs/minaret/internal/model"
)

// ScheduleSource is the prayer scheduler's read side.
type ScheduleSource interface {
	Schedule() (date string, events []model.PrayerEvent, live bool)
}

type PrayerController struct {
	store db.Store
	sched ScheduleSource
}

func newPrayerController(store db.Store, sched ScheduleSource) *PrayerController {
	return &PrayerController{store: store, sched: sched}
}

// PrayerModule mounts the prayer schedule and settings endpoints.
func PrayerModule(store db.Store, sched ScheduleSource) api.Module {
	ctl := newPrayerController(store, sched)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/prayers/today", ctl.today)
		c.GET("/prayers/settings", ctl.listSettings)
		c.PUT("/prayers/settings/:name", ctl.updateSettings)
	})
}

func (p *PrayerController) today(ctx *gin.Context) (any, *api.Error) {
	date, events, live := p.sched.Schedule()
	if events == nil {
		events = []model.PrayerEvent{}
	}
	return packets.PrayerDayResponse{Date: date, Live: live, Events: events}, nil
}

func (p *PrayerController) listSettings(ctx *gin.Context) (any, *api.Error) {
	settings, err := p.store.ListPrayerSettings()
	if err != nil {
		log.Error().Err(err).Msg("failed to list prayer settings")
		return nil, api.Errf(http.StatusInternalServerError, "failed to list prayer settings")
	}
	return settings, nil
}

func (p *PrayerController) updateSettings(ctx *gin.Context) (any, *api.Error) {
	name := model.PrayerName(ctx.Param("name"))
	known := false
	for _, n := range model.PrayerNames {
		if n == name {
			known = true
			break
		}
	}
	if !known {
		return nil, api.Errf(http.StatusBadRequest, "unknown prayer name")
	}

	var req packets.UpdatePrayerSettingsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, api.Errf(http.StatusBadRequest, err.Error())
	}

	settings, err := p.store.ListPrayerSettings()
	if err != nil {
		log.Error().Err(err).Msg("failed to load prayer settings")
		return nil, api.Errf(http.StatusInternalServerError, "failed to load prayer settings")
	}
	var current *model.PrayerSettings
	for i := range settings {
		if settings[i].Name == name {
			current = &settings[i]
			break
		}
	}
	if current == nil {
		return nil, api.Errf(http.StatusNotFound, "prayer settings not found")
	}

	if req.PreAnnounceOffsetSeconds != nil {
		if *req.PreAnnounceOffsetSeconds < 0 {
			return nil, api.Errf(http.StatusBadRequest, "pre_announce_offset_seconds must be >= 0")
		}
		current.PreAnnounceOffsetSeconds = *req.PreAnnounceOffsetSeconds
	}
	if req.PreAnnounceEnabled != nil {
		current.PreAnnounceEnabled = *req.PreAnnounceEnabled
	}
	if req.AdhanSoundRef != nil {
		current.AdhanSoundRef = *req.AdhanSoundRef
	}
	if req.Enabled != nil {
		current.Enabled = *req.Enabled
	}

	updated, err := p.store.UpdatePrayerSettings(*current)
	if err != nil {
		log.Error().Err(err).Str("prayer", string(name)).Msg("failed to update prayer settings")
		return nil, api.Errf(http.StatusInternalServerError, "failed to update prayer settings")
	}
	return updated, nil
}
