package endpoints

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/minaret-labs/minaret/internal/db"
	"github.com/minaret-labs/minaret/internal/http/api"
	"github.com/minaret-labs/minaret/internal/http/api/admin/packets"
	"github.com/minaret-labs/minaret/internal/model"
)

type AlarmController struct {
	store db.Store
}

func newAlarmController(store db.Store) *AlarmController {
	return &AlarmController{store: store}
}

// AlarmModule mounts the /alarms CRUD endpoints.
func AlarmModule(store db.Store) api.Module {
	ctl := newAlarmController(store)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/alarms", ctl.listAlarms)
		c.POST("/alarms", ctl.createAlarm)
		c.GET("/alarms/:id", ctl.getAlarm)
		c.PUT("/alarms/:id", ctl.updateAlarm)
		c.DELETE("/alarms/:id", ctl.deleteAlarm)
	})
}

func alarmID(ctx *gin.Context) (int, *api.Error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, api.Errf(http.StatusBadRequest, "invalid alarm id")
	}
	return id, nil
}

func (a *AlarmController) listAlarms(ctx *gin.Context) (any, *api.Error) {
	alarms, err := a.store.ListAlarms()
	if err != nil {
		log.Error().Err(err).Msg("failed to list alarms")
		return nil, api.Errf(http.StatusInternalServerError, "failed to list alarms")
	}
	if alarms == nil {
		alarms = []model.Alarm{}
	}
	return alarms, nil
}

func (a *AlarmController) createAlarm(ctx *gin.Context) (any, *api.Error) {
	var req packets.CreateAlarmRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, api.Errf(http.StatusBadRequest, err.Error())
	}

	alarm := model.Alarm{
		Name:                     req.Name,
		At:                       req.At,
		RepeatDays:               req.RepeatDays,
		Hour:                     req.Hour,
		Minute:                   req.Minute,
		Message:                  req.Message,
		SoundRef:                 req.SoundRef,
		Enabled:                  true,
		SmartRampEnabled:         req.SmartRampEnabled,
		SmartRampDurationSeconds: req.SmartRampDurationSeconds,
	}
	if req.Enabled != nil {
		alarm.Enabled = *req.Enabled
	}
	if err := alarm.Validate(); err != nil {
		return nil, api.Errf(http.StatusBadRequest, err.Error())
	}

	created, err := a.store.CreateAlarm(alarm)
	if err != nil {
		log.Error().Err(err).Msg("failed to create alarm")
		return nil, api.Errf(http.StatusInternalServerError, "failed to create alarm")
	}
	return created, nil
}

func (a *AlarmController) getAlarm(ctx *gin.Context) (any, *api.Error) {
	id, apiErr := alarmID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	alarm, err := a.store.GetAlarm(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, api.Errf(http.StatusNotFound, "alarm not found")
		}
		log.Error().Err(err).Int("alarm_id", id).Msg("failed to get alarm")
		return nil, api.Errf(http.StatusInternalServerError, "failed to get alarm")
	}
	return alarm, nil
}

func (a *AlarmController) updateAlarm(ctx *gin.Context) (any, *api.Error) {
	id, apiErr := alarmID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	var req packets.UpdateAlarmRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, api.Errf(http.StatusBadRequest, err.Error())
	}

	alarm, err := a.store.GetAlarm(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, api.Errf(http.StatusNotFound, "alarm not found")
		}
		log.Error().Err(err).Int("alarm_id", id).Msg("failed to get alarm")
		return nil, api.Errf(http.StatusInternalServerError, "failed to get alarm")
	}

	if req.Name != nil {
		alarm.Name = *req.Name
	}
	if req.At != nil {
		alarm.At = req.At
		alarm.RepeatDays = 0
	}
	if req.RepeatDays != nil {
		alarm.RepeatDays = *req.RepeatDays
		alarm.At = nil
	}
	if req.Hour != nil {
		alarm.Hour = *req.Hour
	}
	if req.Minute != nil {
		alarm.Minute = *req.Minute
	}
	if req.Message != nil {
		alarm.Message = req.Message
		alarm.SoundRef = nil
	}
	if req.SoundRef != nil {
		alarm.SoundRef = req.SoundRef
		alarm.Message = nil
	}
	if req.Enabled != nil {
		alarm.Enabled = *req.Enabled
	}
	if req.SmartRampEnabled != nil {
		alarm.SmartRampEnabled = *req.SmartRampEnabled
	}
	if req.SmartRampDurationSeconds != nil {
		alarm.SmartRampDurationSeconds = *req.SmartRampDurationSeconds
	}

	if err := alarm.Validate(); err != nil {
		return nil, api.Errf(http.StatusBadRequest, err.Error())
	}

	updated, err := a.store.UpdateAlarm(alarm)
	if err != nil {
		log.Error().Err(err).Int("alarm_id", id).Msg("failed to update alarm")
		return nil, api.Errf(http.StatusInternalServerError, "failed to update alarm")
	}
	return updated, nil
}

func (a *AlarmController) deleteAlarm(ctx *gin.Context) (any, *api.Error) {
	id, apiErr := alarmID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := a.store.DeleteAlarm(id); err != nil {
		log.Error().Err(err).Int("alarm_id", id).Msg("failed to delete alarm")
		return nil, api.Errf(http.StatusInternalServerError, "failed to delete alarm")
	}
	return packets.MessageResponse{Message: "alarm deleted"}, nil
}
