package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/minaret-labs/minaret/internal/announce"
	"github.com/minaret-labs/minaret/internal/arbiter"
	"github.com/minaret-labs/minaret/internal/audio"
	"github.com/minaret-labs/minaret/internal/db"
	"github.com/minaret-labs/minaret/internal/redis"
	"github.com/minaret-labs/minaret/internal/relay"
	"github.com/minaret-labs/minaret/internal/scheduler"
	"github.com/minaret-labs/minaret/internal/timesource"
	"github.com/minaret-labs/minaret/internal/tts"
)

func main() {
	env := LoadEnvironment()
	if env.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// initialize PostgreSQL
	if err := db.Init(env.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("db init failed")
	}
	if err := db.RunMigrations(env.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}
	store := db.NewStore()

	// redis is optional; the helpers degrade to no-ops without it
	if env.RedisAddress != "" {
		redis.InitRedis(env.RedisAddress, env.RedisUsername, env.RedisPassword)
	}

	sounds := InitStorage(env)

	out, err := audio.NewOtoOutput()
	if err != nil {
		log.Fatal().Err(err).Msg("audio output init failed")
	}
	arb := arbiter.New(out)

	var publisher *announce.Publisher
	if env.MQTTBrokerURL != "" {
		publisher, err = announce.NewPublisher(env.MQTTBrokerURL, "minaret-server")
		if err != nil {
			log.Warn().Err(err).Msg("MQTT unavailable, announcements disabled")
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}
	arb.Subscribe(publisher.PlaybackChanged)

	synth := tts.NewCachingSynthesizer(
		tts.NewHTTPSynthesizer(env.TTSEndpoint, env.TTSVoice), env.TTSVoice)
	adapter := timesource.NewCachingAdapter(timesource.NewHTTPAdapter(env.PrayerAPIBaseURL))
	location := timesource.Location{
		Latitude:  env.Latitude,
		Longitude: env.Longitude,
		Method:    env.CalcMethod,
	}

	prayers := scheduler.NewPrayerScheduler(adapter, store, sounds, synth, arb, location)
	prayers.SetGraceWindow(env.GraceWindow)
	prayers.OnScheduleComputed(publisher.ScheduleComputed)

	alarms := scheduler.NewAlarmScheduler(store, sounds, synth, arb)
	alarms.SetGraceWindow(env.GraceWindow)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := scheduler.NewRunner(env.TickInterval, prayers, alarms)
	go runner.Run(ctx)

	relayMgr := relay.NewManager(arb)

	r := gin.Default()
	RegisterRoutes(r, store, sounds, arb, prayers, relayMgr)

	srv := &http.Server{Addr: env.ServerAddress, Handler: r}
	go func() {
		log.Info().Str("address", env.ServerAddress).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	arb.StopAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}
