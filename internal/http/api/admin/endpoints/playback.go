package endpoints

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/minaret-labs/minaret/internal/arbiter"
	"github.com/minaret-labs/minaret/internal/audio"
	"github.com/minaret-labs/minaret/internal/http/api"
	"github.com/minaret-labs/minaret/internal/http/api/admin/packets"
	"github.com/minaret-labs/minaret/internal/model"
	"github.com/minaret-labs/minaret/internal/storage"
)

// PlaybackArbiter is the slice of the arbiter the API consumes.
type PlaybackArbiter interface {
	Submit(req model.PlaybackRequest) (*arbiter.Handle, error)
	NowPlaying() (model.SourceKind, bool)
	StopAll()
}

type PlaybackController struct {
	arb    PlaybackArbiter
	sounds storage.Library
}

func newPlaybackController(arb PlaybackArbiter, sounds storage.Library) *PlaybackController {
	return &PlaybackController{arb: arb, sounds: sounds}
}

// PlaybackModule mounts playback control and the sound library endpoints.
func PlaybackModule(arb PlaybackArbiter, sounds storage.Library) api.Module {
	ctl := newPlaybackController(arb, sounds)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/playback", ctl.status)
		c.POST("/playback/play", ctl.play)
		c.POST("/playback/stop", ctl.stop)

		c.GET("/sounds", ctl.listSounds)
		c.POST("/sounds", ctl.uploadSound)
	})
}

func (p *PlaybackController) status(ctx *gin.Context) (any, *api.Error) {
	kind, playing := p.arb.NowPlaying()
	resp := packets.PlaybackStatusResponse{Playing: playing}
	if playing {
		resp.Kind = kind
	}
	return resp, nil
}

func (p *PlaybackController) play(ctx *gin.Context) (any, *api.Error) {
	var req packets.PlayRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, api.Errf(http.StatusBadRequest, err.Error())
	}

	kind := model.SourceAdHoc
	if req.Kind == string(model.SourceMurattal) {
		kind = model.SourceMurattal
	}

	rc, err := p.sounds.Open(req.SoundRef)
	if err != nil {
		return nil, api.Errf(http.StatusNotFound, "sound not found")
	}
	provider, err := audio.NewFileProvider(rc, req.SoundRef)
	if err != nil {
		_ = rc.Close()
		log.Error().Err(err).Str("ref", req.SoundRef).Msg("sound unreadable")
		return nil, api.Errf(http.StatusUnprocessableEntity, "sound unreadable")
	}

	_, err = p.arb.Submit(model.PlaybackRequest{
		Kind:        kind,
		Label:       req.SoundRef,
		Provider:    provider,
		StartVolume: 1,
		Cancellable: true,
		OnDone:      func(model.CompletionReason) { _ = rc.Close() },
	})
	if err != nil {
		_ = rc.Close()
		if errors.Is(err, arbiter.ErrOutputUnavailable) {
			return nil, api.Errf(http.StatusServiceUnavailable, "audio output unavailable")
		}
		log.Error().Err(err).Str("ref", req.SoundRef).Msg("playback submission failed")
		return nil, api.Errf(http.StatusInternalServerError, "playback submission failed")
	}
	return packets.MessageResponse{Message: "playing"}, nil
}

func (p *PlaybackController) stop(ctx *gin.Context) (any, *api.Error) {
	p.arb.StopAll()
	return packets.MessageResponse{Message: "stopped"}, nil
}

func (p *PlaybackController) listSounds(ctx *gin.Context) (any, *api.Error) {
	refs, err := p.sounds.List()
	if err != nil {
		log.Error().Err(err).Msg("failed to list sounds")
		return nil, api.Errf(http.StatusInternalServerError, "failed to list sounds")
	}
	if refs == nil {
		refs = []string{}
	}
	return packets.SoundListResponse{Sounds: refs}, nil
}

func (p *PlaybackController) uploadSound(ctx *gin.Context) (any, *api.Error) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return nil, api.Errf(http.StatusBadRequest, "missing file")
	}

	ref, err := p.sounds.SaveFile(fileHeader, fileHeader.Filename)
	if err != nil {
		log.Error().Err(err).Str("filename", fileHeader.Filename).Msg("sound upload failed")
		return nil, api.Errf(http.StatusInternalServerError, "sound upload failed")
	}
	return packets.UploadSoundResponse{Ref: ref}, nil
}
