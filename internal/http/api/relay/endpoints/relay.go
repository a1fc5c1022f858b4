package endpoints

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/minaret-labs/minaret/internal/http/api"
	"github.com/minaret-labs/minaret/internal/relay"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RelayModule mounts the voice relay websocket. Binary frames carry raw
// PCM audio (44.1kHz stereo s16le); the text frame "end" closes the
// session gracefully, as does a plain disconnect.
func RelayModule(mgr *relay.Manager) api.Module {
	return api.ModuleFunc(func(c *api.Controller) {
		c.Group.GET("/stream", relayStream(mgr))
	})
}

func relayStream(mgr *relay.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Error().Err(err).Msg("relay websocket upgrade failed")
			return
		}
		defer func() { _ = conn.Close() }()

		id, err := mgr.Begin()
		if err != nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte("error: "+err.Error()))
			return
		}
		// End on every exit path; buffered audio still drains and the
		// slot frees when playback completes.
		defer mgr.End()

		log.Info().Str("session_id", id.String()).Str("remote", c.ClientIP()).
			Msg("relay websocket connected")

		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				log.Info().Str("session_id", id.String()).Msg("relay websocket disconnected")
				return
			}
			switch messageType {
			case websocket.BinaryMessage:
				if err := mgr.Push(data); err != nil {
					log.Warn().Err(err).Str("session_id", id.String()).
						Msg("relay frame dropped")
					return
				}
			case websocket.TextMessage:
				if string(data) == "end" {
					return
				}
			}
		}
	}
}
