package main

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/minaret-labs/minaret/internal/db"
	"github.com/minaret-labs/minaret/internal/http/api"
	adminapi "github.com/minaret-labs/minaret/internal/http/api/admin/endpoints"
	relayapi "github.com/minaret-labs/minaret/internal/http/api/relay/endpoints"
	"github.com/minaret-labs/minaret/internal/relay"
	"github.com/minaret-labs/minaret/internal/scheduler"
	"github.com/minaret-labs/minaret/internal/storage"
)

// RegisterRoutes sets up all application routes.
func RegisterRoutes(r *gin.Engine, store db.Store, sounds storage.Library,
	arb adminapi.PlaybackArbiter, prayers *scheduler.PrayerScheduler, relayMgr *relay.Manager) {
	// CORS: the companion app runs off-origin on the LAN.
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowMethods: []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
			"HEAD",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
		},
		ExposeHeaders: []string{
			"Content-Length",
		},
		AllowCredentials: false,
	}))

	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api/admin",
	},
		adminapi.AlarmModule(store),
		adminapi.PrayerModule(store, prayers),
		adminapi.PlaybackModule(arb, sounds),
	)

	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api/relay",
	},
		relayapi.RelayModule(relayMgr),
	)
}
